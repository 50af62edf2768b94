package inbound

import (
	"net/http"
	"strings"
	"time"

	"github.com/lendfast/dealready/internal/identity/usecase"
	"github.com/lendfast/dealready/internal/pkg/router"
	"github.com/lendfast/dealready/internal/pkg/session"
)

// sessionCookieTTL bounds the cookie, not the access token; the refresh
// token inside stays usable for the whole window.
const sessionCookieTTL = 7 * 24 * time.Hour

// HTTPEndpoint exposes HTTP handlers for authentication and MFA workflows.
type HTTPEndpoint struct {
	uc uc
}

// accessToken resolves the caller's access token, preferring the
// Authorization header over the session cookie.
func accessToken(r *router.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	tokens, err := session.FromRequest(r.Request)
	if err != nil {
		return ""
	}
	return tokens.AccessToken
}

// writeSession stores the session cookie when the usecase produced an
// active session.
func writeSession(r *router.Request, access, refresh string) {
	if access == "" {
		return
	}
	_ = session.Write(r.Response, session.Tokens{AccessToken: access, RefreshToken: refresh}, sessionCookieTTL)
}

// sanitizeNext only allows same-origin relative paths as redirect targets.
func sanitizeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/app"
	}
	return next
}

// Login authenticates a user against the identity provider.
// @Summary Sign in
// @Description Exchanges email and password for a session. The session is stored in an HttpOnly cookie and also returned for API callers.
// @Tags Identity
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} router.successResponse{data=SessionResponse} "Session"
// @Failure 401 {object} router.errorResponse "Invalid credentials"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /login [post]
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	writeSession(r, resp.Session.AccessToken, resp.Session.RefreshToken)

	return newSessionResponse(resp.Session), nil
}

// Signup registers a new account with the identity provider.
// @Summary Sign up
// @Description Creates an account. Depending on provider settings the response carries a session or a pending-verification marker.
// @Tags Identity
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup payload"
// @Success 200 {object} router.successResponse{data=SignupResponse} "Signup result"
// @Failure 409 {object} router.errorResponse "Email already registered"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /signup [post]
func (h *HTTPEndpoint) Signup(r *router.Request) (any, error) {
	var req SignupRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Signup(r.Context(), usecase.SignupInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	writeSession(r, resp.Session.AccessToken, resp.Session.RefreshToken)

	return SignupResponse{
		Session:             newSessionResponse(resp.Session),
		PendingVerification: resp.PendingVerification,
	}, nil
}

// Logout revokes the session and clears the cookie.
// @Summary Sign out
// @Tags Identity
// @Success 204 "No Content"
// @Router /logout [post]
func (h *HTTPEndpoint) Logout(r *router.Request) (any, error) {
	if err := h.uc.Logout(r.Context(), usecase.LogoutInput{AccessToken: accessToken(r)}); err != nil {
		return nil, err
	}

	session.Clear(r.Response)
	return nil, nil
}

// Callback completes the provider redirect flow.
// @Summary Auth callback
// @Description Exchanges the provider's one-time code for a session, then redirects to the next page.
// @Tags Identity
// @Param code query string true "One-time auth code"
// @Param next query string false "Relative path to continue to"
// @Success 302 "Redirect"
// @Failure 401 {object} router.errorResponse "Invalid or expired code"
// @Router /auth/callback [get]
func (h *HTTPEndpoint) Callback(r *router.Request) (any, error) {
	resp, err := h.uc.Callback(r.Context(), usecase.CallbackInput{Code: r.GetQuery("code")})
	if err != nil {
		return nil, err
	}

	writeSession(r, resp.Session.AccessToken, resp.Session.RefreshToken)

	return router.Redirect{Location: sanitizeNext(r.GetQuery("next")), Code: http.StatusFound}, nil
}

// Factors lists the caller's MFA factors.
// @Summary Security settings
// @Tags Identity, MFA
// @Produce json
// @Success 200 {object} router.successResponse{data=FactorsResponse} "Factors"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Router /app/settings/security [get]
func (h *HTTPEndpoint) Factors(r *router.Request) (any, error) {
	resp, err := h.uc.Factors(r.Context(), usecase.FactorsInput{AccessToken: accessToken(r)})
	if err != nil {
		return nil, err
	}

	return newFactorsResponse(resp.Account, resp.Factors), nil
}

// EnrollStart begins TOTP enrollment.
// @Summary Start TOTP enrollment
// @Tags Identity, MFA
// @Accept json
// @Produce json
// @Param request body EnrollStartRequest true "Enrollment payload"
// @Success 200 {object} router.successResponse{data=EnrollStartResponse} "Enrollment data"
// @Failure 409 {object} router.errorResponse "Enrollment already in progress"
// @Router /app/settings/security/enroll [post]
func (h *HTTPEndpoint) EnrollStart(r *router.Request) (any, error) {
	var req EnrollStartRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.EnrollStart(r.Context(), usecase.EnrollStartInput{
		AccessToken:  accessToken(r),
		FriendlyName: req.FriendlyName,
	})
	if err != nil {
		return nil, err
	}

	return EnrollStartResponse{
		FactorID: resp.FactorID,
		Secret:   resp.Secret,
		URI:      resp.URI,
		QRCode:   resp.QRCode,
	}, nil
}

// EnrollVerify confirms a pending enrollment with a TOTP code.
// @Summary Verify TOTP enrollment
// @Tags Identity, MFA
// @Accept json
// @Produce json
// @Param request body EnrollVerifyRequest true "Verification payload"
// @Success 200 {object} router.successResponse{data=EnrollVerifyResponse} "Verified factors"
// @Failure 401 {object} router.errorResponse "Code rejected"
// @Failure 422 {object} router.errorResponse "Malformed code"
// @Router /app/settings/security/enroll/verify [post]
func (h *HTTPEndpoint) EnrollVerify(r *router.Request) (any, error) {
	var req EnrollVerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.EnrollVerify(r.Context(), usecase.EnrollVerifyInput{
		AccessToken: accessToken(r),
		FactorID:    req.FactorID,
		Code:        req.Code,
	})
	if err != nil {
		return nil, err
	}

	writeSession(r, resp.Session.AccessToken, resp.Session.RefreshToken)

	return EnrollVerifyResponse{Factors: newFactorModels(resp.Factors)}, nil
}

// EnrollCancel abandons an in-flight enrollment.
// @Summary Cancel TOTP enrollment
// @Tags Identity, MFA
// @Success 204 "No Content"
// @Router /app/settings/security/enroll/cancel [post]
func (h *HTTPEndpoint) EnrollCancel(r *router.Request) (any, error) {
	return nil, h.uc.EnrollCancel(r.Context())
}

// Unenroll removes a factor after explicit confirmation.
// @Summary Remove MFA factor
// @Tags Identity, MFA
// @Accept json
// @Produce json
// @Param id path string true "Factor id"
// @Param request body UnenrollRequest true "Confirmation payload"
// @Success 200 {object} router.successResponse{data=EnrollVerifyResponse} "Remaining factors"
// @Failure 404 {object} router.errorResponse "Factor not found"
// @Router /app/settings/security/factors/{id} [delete]
func (h *HTTPEndpoint) Unenroll(r *router.Request) (any, error) {
	var req UnenrollRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Unenroll(r.Context(), usecase.UnenrollInput{
		AccessToken: accessToken(r),
		FactorID:    r.GetParam("id"),
		Confirm:     req.Confirm,
	})
	if err != nil {
		return nil, err
	}

	return EnrollVerifyResponse{Factors: newFactorModels(resp.Factors)}, nil
}

// ChallengeStart opens a login-time verification challenge.
// @Summary Start MFA challenge
// @Tags Identity, MFA
// @Produce json
// @Success 200 {object} router.successResponse{data=ChallengeStartResponse} "Challenge"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Router /mfa/challenge [get]
func (h *HTTPEndpoint) ChallengeStart(r *router.Request) (any, error) {
	resp, err := h.uc.ChallengeStart(r.Context(), usecase.ChallengeStartInput{AccessToken: accessToken(r)})
	if err != nil {
		return nil, err
	}

	return ChallengeStartResponse{
		SetupRequired: resp.SetupRequired,
		FactorID:      resp.FactorID,
		ChallengeID:   resp.ChallengeID,
		ExpiresAt:     resp.ExpiresAt,
	}, nil
}

// ChallengeVerify completes a login-time challenge and upgrades the session.
// @Summary Verify MFA challenge
// @Tags Identity, MFA
// @Accept json
// @Produce json
// @Param request body ChallengeVerifyRequest true "Verification payload"
// @Success 200 {object} router.successResponse{data=SessionResponse} "Upgraded session"
// @Failure 401 {object} router.errorResponse "Code rejected"
// @Router /mfa/verify [post]
func (h *HTTPEndpoint) ChallengeVerify(r *router.Request) (any, error) {
	var req ChallengeVerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.ChallengeVerify(r.Context(), usecase.ChallengeVerifyInput{
		AccessToken: accessToken(r),
		FactorID:    req.FactorID,
		ChallengeID: req.ChallengeID,
		Code:        req.Code,
	})
	if err != nil {
		return nil, err
	}

	writeSession(r, resp.Session.AccessToken, resp.Session.RefreshToken)

	return newSessionResponse(resp.Session), nil
}
