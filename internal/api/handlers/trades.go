package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/coinflow/matching-engine/internal/api/models"
	"github.com/coinflow/matching-engine/internal/types"
)

// GetTradesHandler returns recent trades, optionally filtered by pair
func (h *Holder) GetTradesHandler(w http.ResponseWriter, r *http.Request) {
	pair := r.URL.Query().Get("pair")
	limit := clampLimit(r.URL.Query().Get("limit"), h.Limits.DefaultTradeLimit, h.Limits.MaxTradeLimit)

	var trades []*types.Trade
	var err error
	if pair != "" {
		trades, err = h.Trades.GetRecentByPair(pair, limit)
	} else {
		trades, err = h.Trades.GetRecent(limit)
	}
	if err != nil {
		h.Log.Error("failed to load trades", zap.Error(err))
		h.writeErrorResponse(w, models.ErrInternal("failed to load trades"))
		return
	}

	writeJSON(w, http.StatusOK, models.GetTradesResponse{
		BaseResponse: okBase(),
		Trades:       convertTradesToDTO(trades),
		Count:        len(trades),
	})
}
