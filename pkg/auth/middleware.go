package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

// Middleware verifies an "Authorization: Bearer" token and stores the
// resulting principal in the request context for ContextProvider.
//
// Requests without a token, or with a token that fails verification, pass
// through unauthenticated.
//
// Usage:
//
//	r := chi.NewRouter()
//	r.Use(auth.Middleware(verifier, logger))
func Middleware(verifier *JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok || verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			p, err := verifier.Verify(token)
			if err != nil {
				logger.Debug("bearer token rejected", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
