package handlers

import (
	"net/http"
	"strings"

	"github.com/coinflow/matching-engine/internal/api/models"
)

// GetOrderBookHandler returns an aggregated depth snapshot for one pair
func (h *Holder) GetOrderBookHandler(w http.ResponseWriter, r *http.Request) {
	pair := r.URL.Query().Get("pair")
	if strings.TrimSpace(pair) == "" {
		h.writeErrorResponse(w, models.ErrInvalidPairError())
		return
	}

	depth := clampLimit(r.URL.Query().Get("depth"), h.Limits.DefaultBookDepth, h.Limits.MaxBookDepth)

	snap := h.Registry.Snapshot(pair, depth)

	bids := make([]models.PriceLevel, len(snap.Bids))
	for i, lvl := range snap.Bids {
		bids[i] = models.PriceLevel{Price: lvl.Price, Quantity: lvl.Quantity, OrderCount: lvl.OrderCount}
	}
	asks := make([]models.PriceLevel, len(snap.Asks))
	for i, lvl := range snap.Asks {
		asks[i] = models.PriceLevel{Price: lvl.Price, Quantity: lvl.Quantity, OrderCount: lvl.OrderCount}
	}

	writeJSON(w, http.StatusOK, models.OrderBookResponse{
		BaseResponse: okBase(),
		Pair:         snap.Pair,
		Bids:         bids,
		Asks:         asks,
	})
}

// GetTopOfBookHandler returns the best bid and ask for one pair
func (h *Holder) GetTopOfBookHandler(w http.ResponseWriter, r *http.Request) {
	pair := r.URL.Query().Get("pair")
	if strings.TrimSpace(pair) == "" {
		h.writeErrorResponse(w, models.ErrInvalidPairError())
		return
	}

	top := h.Market.BestBidAsk(pair)

	response := models.TopOfBookResponse{
		BaseResponse: okBase(),
		Pair:         pair,
	}
	if top.Bid != nil {
		response.BestBid = &models.BestQuote{Price: top.Bid.Price, Quantity: top.Bid.Quantity}
	}
	if top.Ask != nil {
		response.BestAsk = &models.BestQuote{Price: top.Ask.Price, Quantity: top.Ask.Quantity}
	}
	if top.HasSpread {
		spread := top.Spread
		response.Spread = &spread
	}

	writeJSON(w, http.StatusOK, response)
}
