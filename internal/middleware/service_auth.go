package middleware

import (
	"crypto/subtle"
	"net/http"

	"paylink-checkout/internal/logger"
	"paylink-checkout/internal/utils"

	"go.uber.org/zap"
)

// RequireServiceAuth rejects requests whose X-Service-Auth header does not
// match key.
func RequireServiceAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Service-Auth")
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				logger.FromCtx(r.Context()).Warn("Rejected internal request",
					zap.String("path", r.URL.Path),
					zap.Bool("header_present", got != ""),
				)
				utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
