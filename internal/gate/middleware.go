package gate

import (
	"net/http"
	"strings"

	"github.com/lendfast/dealready/internal/pkg/jwt"
	"github.com/lendfast/dealready/internal/pkg/session"
)

// Middleware converts gate decisions into HTTP behavior: redirects are
// written as 303s, allowed requests proceed with the verified claims
// on the context.
//
// The session is resolved from the Authorization header first, then
// the session cookie. A token that fails verification is treated the
// same as no session at all.
func Middleware(verifier jwt.Verifier, policy *Policy) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := resolveSession(r, verifier)

			decision := policy.Decide(r.Context(), r.URL.Path, r.URL.RawQuery, sess)
			if decision.Action == ActionRedirect {
				http.Redirect(w, r, decision.Location, http.StatusSeeOther)
				return
			}

			if sess != nil {
				r = r.WithContext(jwt.SetAuth(r.Context(), sess.Claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolveSession(r *http.Request, verifier jwt.Verifier) *Session {
	token := bearerToken(r)
	if token == "" {
		tokens, err := session.FromRequest(r)
		if err != nil {
			return nil
		}
		token = tokens.AccessToken
	}

	claims, err := verifier.Verify(token)
	if err != nil {
		return nil
	}

	return &Session{
		UserID:      claims.UserID(),
		AccessToken: token,
		Claims:      claims,
	}
}

func bearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
