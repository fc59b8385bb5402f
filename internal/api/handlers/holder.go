package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coinflow/matching-engine/internal/api/models"
	"github.com/coinflow/matching-engine/internal/engine"
	"github.com/coinflow/matching-engine/internal/events"
	"github.com/coinflow/matching-engine/internal/marketdata"
	"github.com/coinflow/matching-engine/internal/storage"
	"github.com/coinflow/matching-engine/internal/types"
)

// Limits caps list endpoints so one request cannot page the whole store.
type Limits struct {
	DefaultOrderLimit int
	MaxOrderLimit     int
	DefaultTradeLimit int
	MaxTradeLimit     int
	DefaultBookDepth  int
	MaxBookDepth      int
}

// Holder wires the engine and its collaborators into the HTTP handlers.
type Holder struct {
	Registry *engine.Registry
	Market   *marketdata.Aggregator
	Orders   storage.OrderStore
	Trades   storage.TradeStore
	Bus      *events.Bus
	Log      *zap.Logger
	Limits   Limits
	Started  time.Time
}

// NewHolder creates a handler holder
func NewHolder(reg *engine.Registry, market *marketdata.Aggregator, orders storage.OrderStore, trades storage.TradeStore, bus *events.Bus, log *zap.Logger, limits Limits) *Holder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Holder{
		Registry: reg,
		Market:   market,
		Orders:   orders,
		Trades:   trades,
		Bus:      bus,
		Log:      log,
		Limits:   limits,
		Started:  time.Now().UTC(),
	}
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeErrorResponse writes a structured error response
func (h *Holder) writeErrorResponse(w http.ResponseWriter, httpErr *models.HTTPError) {
	h.Log.Warn("request failed",
		zap.String("error_code", string(httpErr.Error.Code)),
		zap.Int("status", httpErr.StatusCode))

	writeJSON(w, httpErr.StatusCode, models.BaseResponse{
		Success:   false,
		Timestamp: time.Now().UTC(),
		Message:   httpErr.Error.Message,
		Error:     &httpErr.Error,
	})
}

func okBase() models.BaseResponse {
	return models.BaseResponse{Success: true, Timestamp: time.Now().UTC()}
}

// convertKind converts a request string to an OrderKind
func convertKind(kind string) types.OrderKind {
	if strings.ToLower(strings.TrimSpace(kind)) == "market" {
		return types.MarketOrder
	}
	return types.LimitOrder
}

// convertSide converts a request string to a SideType
func convertSide(side string) types.SideType {
	if strings.ToLower(strings.TrimSpace(side)) == "sell" {
		return types.Sell
	}
	return types.Buy
}

// convertTradesToDTO converts engine trades to DTO trades
func convertTradesToDTO(trades []*types.Trade) []models.TradeDTO {
	dtos := make([]models.TradeDTO, len(trades))
	for i, trade := range trades {
		dtos[i] = models.TradeDTO{
			TradeID:     trade.ID,
			Pair:        trade.Pair,
			BuyOrderID:  trade.BuyOrderID,
			SellOrderID: trade.SellOrderID,
			Price:       trade.Price,
			Quantity:    trade.Quantity,
			ExecutedAt:  trade.ExecutedAt,
		}
	}
	return dtos
}

// convertOrderToDTO converts an engine order to a DTO
func convertOrderToDTO(order *types.Order) *models.OrderDTO {
	return &models.OrderDTO{
		OrderID:   order.ID,
		Owner:     order.Owner,
		Pair:      order.Pair,
		Kind:      order.Kind.String(),
		Side:      order.Side.String(),
		Price:     order.Price,
		Quantity:  order.Quantity,
		Filled:    order.Filled,
		Remaining: order.Remaining,
		Status:    string(order.Status),
		CreatedAt: order.CreatedAt,
	}
}

// clampLimit parses a limit query value against a default and a cap
func clampLimit(raw string, def, max int) int {
	limit := def
	if raw != "" {
		if parsed, err := parsePositiveInt(raw); err == nil {
			limit = parsed
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}

func parsePositiveInt(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("value must be positive")
	}
	return v, nil
}
