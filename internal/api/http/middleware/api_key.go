package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"service-bondvol/internal/models"
)

type APIKeyValidator interface {
	Validate(ctx context.Context, rawKey string) (exists bool, isActive bool, err error)
}

func APIKeyAuth(store APIKeyValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get("X-API-Key"))
			if key == "" {
				writeErr(w, http.StatusUnauthorized, models.BizError(models.CodeUnauthorized, "missing X-API-Key"))
				return
			}

			exists, active, err := store.Validate(r.Context(), key)
			if err != nil {
				writeErr(w, http.StatusInternalServerError, models.BizError(models.CodeInternal, "internal error"))
				return
			}
			if !exists {
				writeErr(w, http.StatusUnauthorized, models.BizError(models.CodeUnauthorized, "invalid api key"))
				return
			}
			if !active {
				writeErr(w, http.StatusForbidden, models.BizError(models.CodeForbidden, "api key is disabled"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeErr(w http.ResponseWriter, status int, bizErr *models.BusinessError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(bizErr); err != nil {
		http.Error(w, "Unknown error", http.StatusInternalServerError)
	}
}
