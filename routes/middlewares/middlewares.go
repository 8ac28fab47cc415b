package middlewares

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
)

// Authenticated rejects requests without a valid bearer token.
func Authenticated(secret string) func(http.Handler) http.Handler {
	return oauth.Authorize(secret, nil)
}

// Admin middleware to check for the 'admin' role in an OAuth token.
func Admin(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(Authenticated(secret), admin).Handler(next)
	}
}

func admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !HasRole(r, "admin") {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HasRole looks role up in the token claims of an authenticated request.
func HasRole(r *http.Request, role string) bool {
	claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)
	rolesClaim, ok := claims["roles"]
	if !ok {
		return false
	}
	for _, rl := range strings.Split(rolesClaim, ",") {
		if strings.TrimSpace(rl) == role {
			return true
		}
	}
	return false
}

// Credential is the username the request's token was issued to.
func Credential(r *http.Request) string {
	credential, _ := r.Context().Value(oauth.CredentialContext).(string)
	return credential
}
