package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/coinflow/matching-engine/internal/api/models"
	"github.com/coinflow/matching-engine/internal/engine"
	"github.com/coinflow/matching-engine/internal/matching"
	"github.com/coinflow/matching-engine/internal/types"
)

// SubmitOrderHandler handles single order submission
func (h *Holder) SubmitOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitOrderRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, models.ErrBadRequest("Invalid JSON format", map[string]interface{}{"error": err.Error()}))
		return
	}

	if httpErr := req.Validate(); httpErr != nil {
		h.writeErrorResponse(w, httpErr)
		return
	}

	res, httpErr := h.placeOrder(&req)
	if httpErr != nil {
		h.writeErrorResponse(w, httpErr)
		return
	}

	h.Log.Info("order submitted",
		zap.Uint64("order_id", res.Taker.ID),
		zap.String("owner", req.Owner),
		zap.String("pair", res.Taker.Pair),
		zap.String("disposition", res.Disposition.String()),
		zap.Int("trades", len(res.Trades)))

	writeJSON(w, http.StatusOK, models.SubmitOrderResponse{
		BaseResponse: okBase(),
		OrderID:      res.Taker.ID,
		Status:       string(res.Taker.Status),
		Disposition:  res.Disposition.String(),
		Filled:       res.Taker.Filled,
		Remaining:    res.Taker.Remaining,
		Trades:       convertTradesToDTO(res.Trades),
	})
}

// placeOrder builds the engine order from a validated request and submits it
func (h *Holder) placeOrder(req *models.SubmitOrderRequest) (*matching.MatchResult, *models.HTTPError) {
	kind := convertKind(req.Kind)
	price := req.Price
	if kind == types.MarketOrder {
		// Market orders have no price; never echo a client-supplied one
		price = decimal.Zero
	}
	order := types.NewOrder(
		h.Registry.IDs().NextOrderID(),
		req.Pair,
		req.Owner,
		kind,
		convertSide(req.Side),
		price,
		req.Quantity,
	)

	res, err := h.Registry.Submit(order)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrBookHalted):
			return nil, models.ErrPairHaltedError(order.Pair)
		case errors.Is(err, engine.ErrInvalidOrder):
			return nil, models.ErrBadRequest(err.Error(), nil)
		default:
			h.Log.Error("order submission failed",
				zap.Uint64("order_id", order.ID),
				zap.Error(err))
			return nil, models.ErrInternal("order submission failed")
		}
	}
	return res, nil
}

// BatchOrderHandler handles batch order submission
func (h *Holder) BatchOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req models.BatchOrderRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, models.ErrBadRequest("Invalid JSON format", map[string]interface{}{"error": err.Error()}))
		return
	}

	if httpErr := req.Validate(); httpErr != nil {
		h.writeErrorResponse(w, httpErr)
		return
	}

	results := make([]models.BatchOrderResult, len(req.Orders))
	successful := 0
	failed := 0

	for i := range req.Orders {
		orderReq := req.Orders[i]
		result := models.BatchOrderResult{Index: i}

		httpErr := orderReq.Validate()
		var res *matching.MatchResult
		if httpErr == nil {
			res, httpErr = h.placeOrder(&orderReq)
		}

		if httpErr != nil {
			result.Success = false
			result.Error = &httpErr.Error
			failed++
		} else {
			result.Success = true
			result.OrderID = res.Taker.ID
			result.Status = string(res.Taker.Status)
			result.Trades = convertTradesToDTO(res.Trades)
			successful++
		}

		results[i] = result
	}

	h.Log.Info("batch order processed",
		zap.Int("total", len(req.Orders)),
		zap.Int("successful", successful),
		zap.Int("failed", failed))

	writeJSON(w, http.StatusOK, models.BatchOrderResponse{
		BaseResponse: okBase(),
		Results:      results,
		Summary: models.BatchOrderSummary{
			Total:      len(req.Orders),
			Successful: successful,
			Failed:     failed,
		},
	})
}

// orderIDFromPath pulls the trailing order id out of the request path
func orderIDFromPath(r *http.Request) (uint64, *models.HTTPError) {
	pathParts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")
	orderIDStr := pathParts[len(pathParts)-1]
	orderID, err := strconv.ParseUint(orderIDStr, 10, 64)
	if err != nil {
		return 0, models.ErrBadRequest("Invalid order ID format", map[string]interface{}{"provided_value": orderIDStr})
	}
	return orderID, nil
}

// CancelOrderHandler handles order cancellation. The pair query parameter
// routes the cancel to the right book.
func (h *Holder) CancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID, httpErr := orderIDFromPath(r)
	if httpErr != nil {
		h.writeErrorResponse(w, httpErr)
		return
	}

	pair := r.URL.Query().Get("pair")
	if strings.TrimSpace(pair) == "" {
		h.writeErrorResponse(w, models.ErrInvalidPairError())
		return
	}

	if !h.Registry.Cancel(pair, orderID) {
		h.writeErrorResponse(w, models.ErrOrderNotFoundError(orderID))
		return
	}

	h.Log.Info("order cancelled",
		zap.Uint64("order_id", orderID),
		zap.String("pair", pair))

	writeJSON(w, http.StatusOK, models.CancelOrderResponse{
		BaseResponse: models.BaseResponse{
			Success:   true,
			Timestamp: okBase().Timestamp,
			Message:   "Order cancelled successfully",
		},
		OrderID: orderID,
	})
}

// GetOrderHandler handles retrieving a single order. Orders still known to
// the engine come from the live books; older ones fall back to storage.
func (h *Holder) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID, httpErr := orderIDFromPath(r)
	if httpErr != nil {
		h.writeErrorResponse(w, httpErr)
		return
	}

	var order *types.Order
	if pair := r.URL.Query().Get("pair"); pair != "" {
		order = h.Registry.GetOrder(pair, orderID)
	}
	if order == nil {
		stored, err := h.Orders.Get(orderID)
		if err == nil {
			order = stored
		}
	}

	if order == nil {
		h.writeErrorResponse(w, models.ErrOrderNotFoundError(orderID))
		return
	}

	writeJSON(w, http.StatusOK, models.GetOrderResponse{
		BaseResponse: okBase(),
		Order:        convertOrderToDTO(order),
	})
}

// GetAllOrdersHandler handles listing orders with optional owner/pair filters
func (h *Holder) GetAllOrdersHandler(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	pair := r.URL.Query().Get("pair")
	limit := clampLimit(r.URL.Query().Get("limit"), h.Limits.DefaultOrderLimit, h.Limits.MaxOrderLimit)

	var orders []*types.Order
	switch {
	case owner != "":
		orders = h.Orders.GetByOwner(owner)
	case pair != "":
		orders = h.Orders.GetByPair(pair)
	default:
		orders = h.Orders.GetAll()
	}

	if len(orders) > limit {
		orders = orders[:limit]
	}

	orderDTOs := make([]models.OrderDTO, len(orders))
	for i, order := range orders {
		orderDTOs[i] = *convertOrderToDTO(order)
	}

	writeJSON(w, http.StatusOK, models.GetOrdersResponse{
		BaseResponse: okBase(),
		Orders:       orderDTOs,
		Count:        len(orderDTOs),
	})
}
