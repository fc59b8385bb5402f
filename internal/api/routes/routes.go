package routes

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/coinflow/matching-engine/internal/api/handlers"
	"github.com/coinflow/matching-engine/internal/api/middleware"
)

// SetupRoutes configures all API routes with middleware
func SetupRoutes(h *handlers.Holder, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/api/v1/health", h.HealthHandler)

	// Order endpoints
	mux.HandleFunc("/api/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.SubmitOrderHandler(w, r)
		case http.MethodGet:
			h.GetAllOrdersHandler(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/orders/batch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.BatchOrderHandler(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/orders/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.GetOrderHandler(w, r)
		case http.MethodDelete:
			h.CancelOrderHandler(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Order book endpoints
	mux.HandleFunc("/api/v1/orderbook", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetOrderBookHandler(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/orderbook/top", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetTopOfBookHandler(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Trade endpoints
	mux.HandleFunc("/api/v1/trades", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetTradesHandler(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Market data endpoints
	mux.HandleFunc("/api/v1/markets", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetPairsHandler(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/markets/ticker", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetTickerHandler(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Apply middleware (order matters: Recovery -> CORS -> Logging -> Handler)
	handler := middleware.Recovery(log)(mux)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(log)(handler)

	return handler
}
