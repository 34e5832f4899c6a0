/*
Package jwt issues and verifies the operator bearer tokens that guard the
monitoring endpoints.
*/
package jwt

import (
	"context"
	"net/http"
	"strings"

	"planpoker/internal/pkg/errs"
	"planpoker/internal/pkg/logx"
	"planpoker/internal/pkg/resp"
)

// Define Context Key for storing the Payload struct, preventing key collisions with other packages.
type contextKey string

const (
	// ContextAuthPayloadKey is the key used to store the parsed jwt.Payload in the request Context.
	ContextAuthPayloadKey contextKey = "auth_payload"
)

// RequireOperator rejects requests without a valid operator bearer token with 401.
func RequireOperator(secretKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Expected format: "Bearer <token>"
			parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			payload, err := ParseToken(parts[1], secretKey)
			if err != nil {
				logx.Warn("Rejected operator token", "error", err.Error(), "path", r.URL.Path)
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			if payload.Role != RoleOperator {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			ctx := context.WithValue(r.Context(), ContextAuthPayloadKey, payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPayloadFromContext safely extracts the authenticated Payload from the request Context.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, ok := r.Context().Value(ContextAuthPayloadKey).(*Payload)

	if !ok {
		return nil
	}

	return payload
}
