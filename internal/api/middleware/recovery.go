package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/coinflow/matching-engine/internal/api/models"
)

// Recovery middleware recovers from panics and returns a 500 error
func Recovery(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						zap.Any("error", err),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.String("stacktrace", string(debug.Stack())))

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)

					response := models.BaseResponse{
						Success:   false,
						Timestamp: time.Now().UTC(),
						Message:   "Internal server error",
						Error: &models.APIError{
							Code:    models.ErrInternalError,
							Message: "An unexpected error occurred",
						},
					}

					json.NewEncoder(w).Encode(response)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
