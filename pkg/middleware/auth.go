package middleware

import (
	"net/http"
	"turfbook/pkg/auth"
	"turfbook/pkg/logger"
)

// Authenticate verifies the bearer token once per request and stores the
// resolved principal in the request context. Requests without an
// Authorization header continue as anonymous; handlers decide what needs a
// capability. A present but invalid token is rejected here.
func Authenticate(verifier *auth.Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), auth.Anonymous())))
				return
			}

			token, err := auth.BearerToken(header)
			if err == nil {
				var principal auth.Principal
				principal, err = verifier.Verify(token)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
					return
				}
			}

			log.Warn("Authentication failed",
				logger.REQUEST_ID, RequestID(r.Context()),
				"path", r.URL.Path,
				"error", err,
			)
			writeFailure(w, http.StatusUnauthorized, "Unauthorized")
		})
	}
}
