package gate

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/lendfast/dealready/internal/pkg/jwt"
)

// Routes the policy redirects to.
const (
	LoginPath      = "/login"
	AdminLoginPath = "/admin/login"
	BrokerHomePath = "/app"
	MFAPath        = "/mfa"
)

// Session is the authenticated caller as the gate sees it: verified
// claims plus the raw access token for upstream lookups.
type Session struct {
	UserID      string
	AccessToken string
	Claims      jwt.Claims
}

// Action says what the middleware should do with the request.
type Action int

const (
	// ActionAllow lets the request through to its handler.
	ActionAllow Action = iota
	// ActionRedirect sends the caller to Decision.Location.
	ActionRedirect
)

// Decision is the gate's verdict for one request.
type Decision struct {
	Action   Action
	Location string
}

func allow() Decision {
	return Decision{Action: ActionAllow}
}

func redirect(location string) Decision {
	return Decision{Action: ActionRedirect, Location: location}
}

// AdminChecker reports whether a user carries the admin attribute.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// AALResolver reports the caller's current authenticator assurance
// level, confirming the session against the provider.
type AALResolver interface {
	Resolve(ctx context.Context, sess *Session) (string, error)
}

// Policy evaluates route access. Safe for concurrent use.
type Policy struct {
	admins     AdminChecker
	aal        AALResolver
	enforceMFA bool
}

// NewPolicy builds a Policy. enforceMFA must be true in production;
// non-production deployments may toggle it off.
func NewPolicy(admins AdminChecker, aal AALResolver, enforceMFA bool) *Policy {
	return &Policy{admins: admins, aal: aal, enforceMFA: enforceMFA}
}

// Decide classifies the path and returns the verdict for the caller.
// sess is nil when no session could be resolved.
func (p *Policy) Decide(ctx context.Context, requestPath, rawQuery string, sess *Session) Decision {
	class := Classify(requestPath)

	switch class {
	case ClassAsset, ClassPublic:
		return allow()
	case ClassMFAGate, ClassAdmin, ClassBroker:
	}

	if sess == nil {
		target := LoginPath
		if class == ClassAdmin {
			target = AdminLoginPath
		}
		return redirect(target + "?next=" + url.QueryEscape(carryPath(requestPath, rawQuery)))
	}

	if class == ClassAdmin {
		// Lookup failure counts as "not admin". The admin area fails
		// closed, unlike the assurance check below.
		isAdmin, err := p.admins.IsAdmin(ctx, sess.UserID)
		if err != nil {
			slog.WarnContext(ctx, "admin check failed, denying", "user_id", sess.UserID, "error", err)
			return redirect(BrokerHomePath)
		}
		if !isAdmin {
			return redirect(BrokerHomePath)
		}
	}

	if p.enforceMFA && class != ClassMFAGate {
		level, err := p.aal.Resolve(ctx, sess)
		if err != nil {
			// Availability over strictness for this one check: a
			// provider outage must not lock every broker out.
			slog.WarnContext(ctx, "assurance check unavailable, allowing", "user_id", sess.UserID, "error", err)
			return allow()
		}
		if level != jwt.AAL2 {
			return redirect(MFAPath)
		}
	}

	return allow()
}

func carryPath(requestPath, rawQuery string) string {
	if rawQuery == "" {
		return requestPath
	}
	return requestPath + "?" + rawQuery
}
