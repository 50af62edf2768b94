package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lendfast/dealready/internal/pkg/jwt"
	"github.com/lendfast/dealready/internal/pkg/session"
)

type fakeVerifier struct {
	claims jwt.Claims
	err    error
}

func (f fakeVerifier) Verify(string) (jwt.Claims, error) {
	return f.claims, f.err
}

func aal2Claims(t *testing.T) jwt.Claims {
	t.Helper()
	claims := jwt.Claims{AAL: jwt.AAL2}
	claims.Subject = "user-1"
	return claims
}

func TestMiddlewareRedirectsAnonymousToLogin(t *testing.T) {
	policy := NewPolicy(&fakeAdminChecker{}, &fakeAALResolver{level: jwt.AAL2}, true)
	handler := Middleware(fakeVerifier{err: jwt.ErrInvalidToken}, policy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without a session")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app/deals?page=2", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/login?next=%2Fapp%2Fdeals%3Fpage%3D2" {
		t.Errorf("location = %q", got)
	}
}

func TestMiddlewareAllowsSessionFromCookie(t *testing.T) {
	policy := NewPolicy(&fakeAdminChecker{}, &fakeAALResolver{level: jwt.AAL2}, true)

	var gotClaims jwt.Claims
	var hasClaims bool
	handler := Middleware(fakeVerifier{claims: aal2Claims(t)}, policy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if clm := jwt.GetAuth(r.Context()); clm != nil {
			gotClaims, hasClaims = *clm, true
		}
	}))

	value, err := session.Encode(session.Tokens{AccessToken: "at-1", RefreshToken: "rt-1"})
	if err != nil {
		t.Fatalf("encode session: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/app/deals", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: value})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !hasClaims || gotClaims.UserID() != "user-1" {
		t.Errorf("claims on context = %+v (ok=%v), want user-1", gotClaims, hasClaims)
	}
}

func TestMiddlewarePrefersBearerToken(t *testing.T) {
	policy := NewPolicy(&fakeAdminChecker{}, &fakeAALResolver{level: jwt.AAL2}, true)
	handler := Middleware(fakeVerifier{claims: aal2Claims(t)}, policy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/app", nil)
	req.Header.Set("Authorization", "Bearer api-token")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
