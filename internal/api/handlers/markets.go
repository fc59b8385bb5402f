package handlers

import (
	"net/http"
	"strings"

	"github.com/coinflow/matching-engine/internal/api/models"
)

// GetPairsHandler lists pairs with live books
func (h *Holder) GetPairsHandler(w http.ResponseWriter, r *http.Request) {
	pairs := h.Registry.ActivePairs()

	writeJSON(w, http.StatusOK, models.PairsResponse{
		BaseResponse: okBase(),
		Pairs:        pairs,
		Count:        len(pairs),
	})
}

// GetTickerHandler returns last price, 24h stats, and the top of book for
// one pair
func (h *Holder) GetTickerHandler(w http.ResponseWriter, r *http.Request) {
	pair := r.URL.Query().Get("pair")
	if strings.TrimSpace(pair) == "" {
		h.writeErrorResponse(w, models.ErrInvalidPairError())
		return
	}

	stats := h.Market.Stats(pair)
	top := h.Market.BestBidAsk(pair)

	response := models.TickerResponse{
		BaseResponse: okBase(),
		Pair:         pair,
		High:         stats.High,
		Low:          stats.Low,
		Volume:       stats.Volume,
		Trades:       stats.Count,
	}

	if last, ok := h.Market.LastPrice(pair); ok {
		response.LastPrice = &last
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
