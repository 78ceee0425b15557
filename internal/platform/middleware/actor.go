package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"wayfare/pkg/requestcontext"
)

// actorClaims is the subset of platform JWT claims this subsystem reads.
// Authentication and authorization live in the platform gateway; here we only
// extract who is acting so audit records and services can attribute mutations.
type actorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Actor extracts the acting principal from a bearer token into the request
// context. Requests without a parseable token proceed unattributed; access
// enforcement is the gateway's job, not ours.
func Actor(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims := &actorClaims{}
			_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				return []byte(signingKey), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil {
				logger.WarnContext(r.Context(), "unparseable bearer token",
					"error", err.Error(),
					"request_id", requestcontext.RequestID(r.Context()),
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx := requestcontext.WithActor(r.Context(), requestcontext.ActorInfo{
				ID:   claims.Subject,
				Role: claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, prefix))
}
