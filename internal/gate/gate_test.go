package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/lendfast/dealready/internal/pkg/jwt"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want Class
	}{
		{"/static/app.css", ClassAsset},
		{"/assets/logo.png", ClassAsset},
		{"/_next/chunk.js", ClassAsset},
		{"/favicon.ico", ClassAsset},
		{"/robots.txt", ClassAsset},
		{"/app/report.js", ClassAsset},

		{"/", ClassPublic},
		{"/login", ClassPublic},
		{"/admin/login", ClassPublic},
		{"/signup", ClassPublic},
		{"/logout", ClassPublic},
		{"/auth/callback", ClassPublic},
		{"/privacy", ClassPublic},
		{"/security", ClassPublic},
		{"/health", ClassPublic},

		{"/mfa", ClassMFAGate},
		{"/mfa/challenge", ClassMFAGate},
		{"/mfa/verify", ClassMFAGate},

		{"/admin", ClassAdmin},
		{"/admin/deals", ClassAdmin},
		{"/admin/submissions", ClassAdmin},

		{"/app", ClassBroker},
		{"/app/deals/42", ClassBroker},
		{"/app/settings/security", ClassBroker},
		{"/anything/else", ClassBroker},
		{"", ClassPublic},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Classify(tt.path); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.path, got, tt.want)
			}
		})
	}
}

func TestClassifyAdminLoginBeforeAdmin(t *testing.T) {
	// /admin/login must stay public even though it sits under /admin.
	if got := Classify("/admin/login"); got != ClassPublic {
		t.Fatalf("Classify(/admin/login) = %s, want public", got)
	}
	if got := Classify("/admin/logins"); got != ClassAdmin {
		t.Fatalf("Classify(/admin/logins) = %s, want admin-protected", got)
	}
}

type fakeAdminChecker struct {
	isAdmin bool
	err     error
	calls   int
}

func (f *fakeAdminChecker) IsAdmin(context.Context, string) (bool, error) {
	f.calls++
	return f.isAdmin, f.err
}

type fakeAALResolver struct {
	level string
	err   error
	calls int
}

func (f *fakeAALResolver) Resolve(context.Context, *Session) (string, error) {
	f.calls++
	return f.level, f.err
}

func aal1Session() *Session {
	return &Session{
		UserID:      "user-1",
		AccessToken: "token-1",
		Claims:      jwt.Claims{AAL: jwt.AAL1},
	}
}

func aal2Session() *Session {
	return &Session{
		UserID:      "user-1",
		AccessToken: "token-1",
		Claims:      jwt.Claims{AAL: jwt.AAL2},
	}
}

func TestPolicyDecideAssetAndPublicAlwaysAllowed(t *testing.T) {
	policy := NewPolicy(&fakeAdminChecker{}, &fakeAALResolver{}, true)

	for _, path := range []string{"/static/app.css", "/login", "/", "/admin/login"} {
		decision := policy.Decide(context.Background(), path, "", nil)
		if decision.Action != ActionAllow {
			t.Errorf("Decide(%q, no session) = redirect %q, want allow", path, decision.Location)
		}
	}
}

func TestPolicyDecideNoSessionRedirectsToLoginVariant(t *testing.T) {
	policy := NewPolicy(&fakeAdminChecker{}, &fakeAALResolver{}, true)

	tests := []struct {
		path     string
		rawQuery string
		want     string
	}{
		{"/app/deals", "", "/login?next=%2Fapp%2Fdeals"},
		{"/app/deals", "page=2", "/login?next=%2Fapp%2Fdeals%3Fpage%3D2"},
		{"/admin/deals", "", "/admin/login?next=%2Fadmin%2Fdeals"},
		{"/mfa", "", "/login?next=%2Fmfa"},
	}

	for _, tt := range tests {
		decision := policy.Decide(context.Background(), tt.path, tt.rawQuery, nil)
		if decision.Action != ActionRedirect {
			t.Errorf("Decide(%q) = allow, want redirect", tt.path)
			continue
		}
		if decision.Location != tt.want {
			t.Errorf("Decide(%q) location = %q, want %q", tt.path, decision.Location, tt.want)
		}
	}
}

func TestPolicyDecideNonAdminRedirectedToBrokerHome(t *testing.T) {
	policy := NewPolicy(&fakeAdminChecker{isAdmin: false}, &fakeAALResolver{level: jwt.AAL2}, true)

	decision := policy.Decide(context.Background(), "/admin/deals", "", aal2Session())
	if decision.Action != ActionRedirect || decision.Location != BrokerHomePath {
		t.Fatalf("Decide(/admin/deals, non-admin) = %+v, want redirect to %s", decision, BrokerHomePath)
	}
}

func TestPolicyDecideAdminCheckErrorFailsClosed(t *testing.T) {
	admins := &fakeAdminChecker{err: errors.New("policy store down")}
	policy := NewPolicy(admins, &fakeAALResolver{level: jwt.AAL2}, true)

	decision := policy.Decide(context.Background(), "/admin", "", aal2Session())
	if decision.Action != ActionRedirect || decision.Location != BrokerHomePath {
		t.Fatalf("Decide(/admin, check error) = %+v, want redirect to %s", decision, BrokerHomePath)
	}
}

func TestPolicyDecideAAL1RedirectedToMFA(t *testing.T) {
	policy := NewPolicy(&fakeAdminChecker{isAdmin: true}, &fakeAALResolver{level: jwt.AAL1}, true)

	for _, path := range []string{"/app", "/app/deals", "/admin/deals"} {
		decision := policy.Decide(context.Background(), path, "", aal1Session())
		if decision.Action != ActionRedirect || decision.Location != MFAPath {
			t.Errorf("Decide(%q, aal1) = %+v, want redirect to %s", path, decision, MFAPath)
		}
	}
}

func TestPolicyDecideMFAGateReachableAtAAL1(t *testing.T) {
	aal := &fakeAALResolver{level: jwt.AAL1}
	policy := NewPolicy(&fakeAdminChecker{}, aal, true)

	decision := policy.Decide(context.Background(), "/mfa", "", aal1Session())
	if decision.Action != ActionAllow {
		t.Fatalf("Decide(/mfa, aal1) = redirect %q, want allow", decision.Location)
	}
	if aal.calls != 0 {
		t.Errorf("assurance resolver called %d times for the mfa gate, want 0", aal.calls)
	}
}

func TestPolicyDecideAssuranceLookupErrorFailsOpen(t *testing.T) {
	policy := NewPolicy(&fakeAdminChecker{isAdmin: true}, &fakeAALResolver{err: errors.New("provider down")}, true)

	decision := policy.Decide(context.Background(), "/app/deals", "", aal1Session())
	if decision.Action != ActionAllow {
		t.Fatalf("Decide(/app/deals, assurance error) = redirect %q, want allow", decision.Location)
	}
}

func TestPolicyDecideAAL2Allowed(t *testing.T) {
	policy := NewPolicy(&fakeAdminChecker{isAdmin: true}, &fakeAALResolver{level: jwt.AAL2}, true)

	for _, path := range []string{"/app", "/admin/deals"} {
		decision := policy.Decide(context.Background(), path, "", aal2Session())
		if decision.Action != ActionAllow {
			t.Errorf("Decide(%q, aal2) = redirect %q, want allow", path, decision.Location)
		}
	}
}

func TestPolicyDecideEnforcementOffSkipsAssurance(t *testing.T) {
	aal := &fakeAALResolver{level: jwt.AAL1}
	policy := NewPolicy(&fakeAdminChecker{}, aal, false)

	decision := policy.Decide(context.Background(), "/app/deals", "", aal1Session())
	if decision.Action != ActionAllow {
		t.Fatalf("Decide(/app/deals, enforcement off) = redirect %q, want allow", decision.Location)
	}
	if aal.calls != 0 {
		t.Errorf("assurance resolver called %d times with enforcement off, want 0", aal.calls)
	}
}
