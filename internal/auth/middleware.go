// internal/auth/middleware.go
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"school-controlplane/internal/apperr"
	"school-controlplane/internal/model"
)

type contextKey string

const OperatorKey contextKey = "operator"

// Middleware rejects requests without a valid operator token and injects
// the operator into the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			unauthorized(w, "missing or invalid Authorization header")
			return
		}

		op, err := a.Authenticate(r.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			if apperr.HTTPStatus(err) != http.StatusUnauthorized {
				a.logger.Error("operator lookup failed", zap.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			unauthorized(w, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), OperatorKey, op)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OperatorFromContext returns the authenticated operator, if any.
func OperatorFromContext(ctx context.Context) *model.Operator {
	if op, ok := ctx.Value(OperatorKey).(*model.Operator); ok {
		return op
	}
	return nil
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
