package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"

	"github.com/lendfast/dealready/internal/pkg/clock"
	"github.com/lendfast/dealready/internal/pkg/config"
	"github.com/lendfast/dealready/internal/pkg/goerror"
	"github.com/lendfast/dealready/internal/pkg/goroutine"
	"github.com/lendfast/dealready/internal/pkg/idp"
	"github.com/lendfast/dealready/internal/pkg/instrument"
	"github.com/lendfast/dealready/internal/pkg/jwt"
	"github.com/lendfast/dealready/internal/pkg/lock"
	"github.com/lendfast/dealready/internal/pkg/validator"
)

type fakeProvider struct {
	enrollment *idp.Enrollment
	enrollErr  error

	challenge    *idp.Challenge
	challengeErr error

	verifySession *idp.Session
	verifyErr     error
	verifySecret  string

	user    *idp.User
	userErr error

	signInSession *idp.Session
	signInErr     error

	deleteErr error

	enrollCalls    int
	challengeCalls int
	verifyCalls    int
	userCalls      int
	deleteCalls    int
}

func (f *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (*idp.Session, error) {
	return f.signInSession, f.signInErr
}

func (f *fakeProvider) SignUp(ctx context.Context, email, password string) (*idp.Session, error) {
	return f.signInSession, f.signInErr
}

func (f *fakeProvider) ExchangeCode(ctx context.Context, authCode string) (*idp.Session, error) {
	return f.signInSession, f.signInErr
}

func (f *fakeProvider) RefreshSession(ctx context.Context, refreshToken string) (*idp.Session, error) {
	return f.signInSession, f.signInErr
}

func (f *fakeProvider) SignOut(ctx context.Context, accessToken string) error { return nil }

func (f *fakeProvider) GetUser(ctx context.Context, accessToken string) (*idp.User, error) {
	f.userCalls++
	return f.user, f.userErr
}

func (f *fakeProvider) EnrollTOTP(ctx context.Context, accessToken, friendlyName string) (*idp.Enrollment, error) {
	f.enrollCalls++
	return f.enrollment, f.enrollErr
}

func (f *fakeProvider) ChallengeFactor(ctx context.Context, accessToken, factorID string) (*idp.Challenge, error) {
	f.challengeCalls++
	return f.challenge, f.challengeErr
}

func (f *fakeProvider) VerifyFactor(ctx context.Context, accessToken, factorID, challengeID, code string) (*idp.Session, error) {
	f.verifyCalls++
	if f.verifySecret != "" && !totp.Validate(code, f.verifySecret) {
		return nil, &idp.APIError{Status: 422, Message: "Invalid TOTP code entered"}
	}
	return f.verifySession, f.verifyErr
}

func (f *fakeProvider) DeleteFactor(ctx context.Context, accessToken, factorID string) error {
	f.deleteCalls++
	return f.deleteErr
}

type fakeLocker struct {
	held        map[string]bool
	acquireErr  error
	releaseKeys []string
}

type fakeHandle struct{}

func (fakeHandle) Release(ctx context.Context) error { return nil }

func (f *fakeLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (lock.Handle, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	if f.held == nil {
		f.held = map[string]bool{}
	}
	if f.held[name] {
		return nil, lock.ErrAlreadyHeld
	}
	f.held[name] = true
	return fakeHandle{}, nil
}

func (f *fakeLocker) Do(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) error {
	return fn(ctx)
}

func (f *fakeLocker) ForceRelease(ctx context.Context, name string) error {
	f.releaseKeys = append(f.releaseKeys, name)
	delete(f.held, name)
	return nil
}

type fakeMessaging struct {
	events []string
}

func (f *fakeMessaging) PublishSignedIn(ctx context.Context, msg AuthEvent) error {
	f.events = append(f.events, "auth.signed_in")
	return nil
}

func (f *fakeMessaging) PublishSignedOut(ctx context.Context, msg AuthEvent) error {
	f.events = append(f.events, "auth.signed_out")
	return nil
}

func (f *fakeMessaging) PublishMFAEnrolled(ctx context.Context, msg AuthEvent) error {
	f.events = append(f.events, "auth.mfa_enrolled")
	return nil
}

func (f *fakeMessaging) PublishMFAUnenrolled(ctx context.Context, msg AuthEvent) error {
	f.events = append(f.events, "auth.mfa_unenrolled")
	return nil
}

type stubConfig struct {
	config.Config
}

func (stubConfig) GetMinute(key string) time.Duration { return 5 * time.Minute }

func newTestUsecase(t *testing.T, provider *fakeProvider, locker *fakeLocker, msg *fakeMessaging) *Usecase {
	t.Helper()

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error = %v", err)
	}

	return New(Dependency{
		IDP:           provider,
		RepoMessaging: msg,
		Locker:        locker,
		Validator:     v,
		Config:        stubConfig{},
		Clock:         clock.New(),
		Instrument:    instrument.NewNoop(),
		Goroutine:     goroutine.NewManager(4),
	})
}

func authedContext(userID string) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{
		RegisteredClaims: jwtlib.RegisteredClaims{Subject: userID},
		Email:            userID + "@example.com",
		AAL:              jwt.AAL1,
	})
}

func errorCode(t *testing.T, err error) goerror.Code {
	t.Helper()

	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("error %v is not a *goerror.Error", err)
	}
	return gerr.Code()
}

func testEnrollment(t *testing.T) (*idp.Enrollment, string) {
	t.Helper()

	key, err := totp.Generate(totp.GenerateOpts{Issuer: "dealready", AccountName: "user-1@example.com"})
	if err != nil {
		t.Fatalf("totp.Generate() error = %v", err)
	}

	return &idp.Enrollment{
		ID:   "factor-1",
		Type: idp.FactorTypeTOTP,
		TOTP: idp.TOTPEnrollment{Secret: key.Secret(), URI: key.URL()},
	}, key.Secret()
}

func TestEnrollStartReturnsSecretAndQR(t *testing.T) {
	enrollment, secret := testEnrollment(t)
	provider := &fakeProvider{enrollment: enrollment}
	locker := &fakeLocker{}
	uc := newTestUsecase(t, provider, locker, &fakeMessaging{})

	out, err := uc.EnrollStart(authedContext("user-1"), EnrollStartInput{AccessToken: "token"})
	if err != nil {
		t.Fatalf("EnrollStart() error = %v", err)
	}

	if out.FactorID != "factor-1" {
		t.Errorf("FactorID = %q, want factor-1", out.FactorID)
	}
	if out.Secret != secret {
		t.Errorf("Secret = %q, want %q", out.Secret, secret)
	}
	if !strings.HasPrefix(out.QRCode, "data:image/png;base64,") {
		t.Errorf("QRCode is not a PNG data URL: %.40q", out.QRCode)
	}
	if !locker.held["mfa_enroll:user-1"] {
		t.Error("enrollment lock not held after start")
	}
}

func TestEnrollStartSecondAttemptConflicts(t *testing.T) {
	enrollment, _ := testEnrollment(t)
	provider := &fakeProvider{enrollment: enrollment}
	locker := &fakeLocker{held: map[string]bool{"mfa_enroll:user-1": true}}
	uc := newTestUsecase(t, provider, locker, &fakeMessaging{})

	_, err := uc.EnrollStart(authedContext("user-1"), EnrollStartInput{AccessToken: "token"})
	if err == nil {
		t.Fatal("EnrollStart() error = nil, want conflict")
	}
	if code := errorCode(t, err); code != goerror.CodeConflict {
		t.Errorf("error code = %v, want CodeConflict", code)
	}
	if provider.enrollCalls != 0 {
		t.Errorf("enrollCalls = %d, want 0", provider.enrollCalls)
	}
}

func TestEnrollStartIncompleteDataReleasesLock(t *testing.T) {
	provider := &fakeProvider{enrollment: &idp.Enrollment{ID: "factor-1"}}
	locker := &fakeLocker{}
	uc := newTestUsecase(t, provider, locker, &fakeMessaging{})

	_, err := uc.EnrollStart(authedContext("user-1"), EnrollStartInput{AccessToken: "token"})
	if err == nil {
		t.Fatal("EnrollStart() error = nil, want incomplete data error")
	}
	if len(locker.releaseKeys) != 1 || locker.releaseKeys[0] != "mfa_enroll:user-1" {
		t.Errorf("releaseKeys = %v, want [mfa_enroll:user-1]", locker.releaseKeys)
	}
}

func TestEnrollVerifyRejectsMalformedCodes(t *testing.T) {
	tests := []string{"12345", "1234567", "abcdef", "12345a", ""}

	for _, code := range tests {
		t.Run("code "+code, func(t *testing.T) {
			provider := &fakeProvider{}
			uc := newTestUsecase(t, provider, &fakeLocker{}, &fakeMessaging{})

			_, err := uc.EnrollVerify(authedContext("user-1"), EnrollVerifyInput{
				AccessToken: "token",
				FactorID:    "factor-1",
				Code:        code,
			})
			if err == nil {
				t.Fatalf("EnrollVerify(%q) error = nil, want validation error", code)
			}
			if provider.challengeCalls != 0 {
				t.Errorf("challengeCalls = %d, want 0: malformed code reached the provider", provider.challengeCalls)
			}
		})
	}
}

func TestEnrollVerifyStripsWhitespace(t *testing.T) {
	enrollment, secret := testEnrollment(t)

	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("totp.GenerateCode() error = %v", err)
	}
	spaced := code[:3] + " " + code[3:]

	provider := &fakeProvider{
		enrollment:    enrollment,
		challenge:     &idp.Challenge{ID: "challenge-1", Type: idp.FactorTypeTOTP},
		verifySecret:  secret,
		verifySession: &idp.Session{AccessToken: "upgraded", RefreshToken: "refresh"},
		user: &idp.User{ID: "user-1", Factors: []idp.Factor{
			{ID: "factor-1", FactorType: idp.FactorTypeTOTP, Status: idp.FactorStatusVerified},
		}},
	}
	locker := &fakeLocker{held: map[string]bool{"mfa_enroll:user-1": true}}
	msg := &fakeMessaging{}
	uc := newTestUsecase(t, provider, locker, msg)

	out, err := uc.EnrollVerify(authedContext("user-1"), EnrollVerifyInput{
		AccessToken: "token",
		FactorID:    "factor-1",
		Code:        spaced,
	})
	if err != nil {
		t.Fatalf("EnrollVerify() error = %v", err)
	}

	if out.Session.AccessToken != "upgraded" {
		t.Errorf("Session.AccessToken = %q, want upgraded", out.Session.AccessToken)
	}
	if len(out.Factors) != 1 || !out.Factors[0].Verified {
		t.Errorf("Factors = %+v, want one verified factor", out.Factors)
	}
	if len(locker.releaseKeys) != 1 {
		t.Errorf("releaseKeys = %v, want the enrollment lock released", locker.releaseKeys)
	}
	if len(msg.events) != 1 || msg.events[0] != "auth.mfa_enrolled" {
		t.Errorf("events = %v, want [auth.mfa_enrolled]", msg.events)
	}
}

func TestEnrollVerifyMissingChallenge(t *testing.T) {
	provider := &fakeProvider{challenge: &idp.Challenge{}}
	uc := newTestUsecase(t, provider, &fakeLocker{}, &fakeMessaging{})

	_, err := uc.EnrollVerify(authedContext("user-1"), EnrollVerifyInput{
		AccessToken: "token",
		FactorID:    "factor-1",
		Code:        "123456",
	})
	if err == nil {
		t.Fatal("EnrollVerify() error = nil, want missing challenge error")
	}
	if provider.verifyCalls != 0 {
		t.Errorf("verifyCalls = %d, want 0", provider.verifyCalls)
	}
}

func TestEnrollVerifyRejectedCodeKeepsLock(t *testing.T) {
	provider := &fakeProvider{
		challenge: &idp.Challenge{ID: "challenge-1"},
		verifyErr: &idp.APIError{Status: 422, Message: "Invalid TOTP code entered"},
	}
	locker := &fakeLocker{held: map[string]bool{"mfa_enroll:user-1": true}}
	uc := newTestUsecase(t, provider, locker, &fakeMessaging{})

	_, err := uc.EnrollVerify(authedContext("user-1"), EnrollVerifyInput{
		AccessToken: "token",
		FactorID:    "factor-1",
		Code:        "000000",
	})
	if err == nil {
		t.Fatal("EnrollVerify() error = nil, want rejection")
	}
	if code := errorCode(t, err); code != goerror.CodeUnauthorized {
		t.Errorf("error code = %v, want CodeUnauthorized", code)
	}
	if len(locker.releaseKeys) != 0 {
		t.Errorf("releaseKeys = %v, want lock kept so the user can retry", locker.releaseKeys)
	}
}

func TestChallengeStartWithoutVerifiedFactor(t *testing.T) {
	provider := &fakeProvider{
		user: &idp.User{ID: "user-1", Factors: []idp.Factor{
			{ID: "factor-1", FactorType: idp.FactorTypeTOTP, Status: idp.FactorStatusUnverified},
		}},
	}
	uc := newTestUsecase(t, provider, &fakeLocker{}, &fakeMessaging{})

	out, err := uc.ChallengeStart(authedContext("user-1"), ChallengeStartInput{AccessToken: "token"})
	if err != nil {
		t.Fatalf("ChallengeStart() error = %v", err)
	}

	if !out.SetupRequired {
		t.Error("SetupRequired = false, want true")
	}
	if provider.challengeCalls != 0 {
		t.Errorf("challengeCalls = %d, want 0", provider.challengeCalls)
	}
}

func TestChallengeStartSelectsVerifiedFactor(t *testing.T) {
	provider := &fakeProvider{
		user: &idp.User{ID: "user-1", Factors: []idp.Factor{
			{ID: "factor-1", FactorType: idp.FactorTypeTOTP, Status: idp.FactorStatusUnverified},
			{ID: "factor-2", FactorType: idp.FactorTypeTOTP, Status: idp.FactorStatusVerified},
		}},
		challenge: &idp.Challenge{ID: "challenge-9", ExpiresAt: 1700000000},
	}
	uc := newTestUsecase(t, provider, &fakeLocker{}, &fakeMessaging{})

	out, err := uc.ChallengeStart(authedContext("user-1"), ChallengeStartInput{AccessToken: "token"})
	if err != nil {
		t.Fatalf("ChallengeStart() error = %v", err)
	}

	if out.FactorID != "factor-2" {
		t.Errorf("FactorID = %q, want factor-2", out.FactorID)
	}
	if out.ChallengeID != "challenge-9" {
		t.Errorf("ChallengeID = %q, want challenge-9", out.ChallengeID)
	}
}

func TestChallengeVerifyLooseCodeLength(t *testing.T) {
	provider := &fakeProvider{
		verifySession: &idp.Session{AccessToken: "upgraded"},
	}
	uc := newTestUsecase(t, provider, &fakeLocker{}, &fakeMessaging{})

	// Short codes never reach the provider.
	_, err := uc.ChallengeVerify(authedContext("user-1"), ChallengeVerifyInput{
		AccessToken: "token",
		FactorID:    "factor-1",
		ChallengeID: "challenge-1",
		Code:        "12345",
	})
	if err == nil {
		t.Fatal("ChallengeVerify(short code) error = nil, want format error")
	}
	if provider.verifyCalls != 0 {
		t.Errorf("verifyCalls = %d, want 0", provider.verifyCalls)
	}

	// Longer non-numeric codes are passed through for the provider to judge.
	out, err := uc.ChallengeVerify(authedContext("user-1"), ChallengeVerifyInput{
		AccessToken: "token",
		FactorID:    "factor-1",
		ChallengeID: "challenge-1",
		Code:        "  abcdef12  ",
	})
	if err != nil {
		t.Fatalf("ChallengeVerify(loose code) error = %v", err)
	}
	if out.Session.AccessToken != "upgraded" {
		t.Errorf("Session.AccessToken = %q, want upgraded", out.Session.AccessToken)
	}
}

func TestUnenrollRequiresConfirmation(t *testing.T) {
	provider := &fakeProvider{}
	uc := newTestUsecase(t, provider, &fakeLocker{}, &fakeMessaging{})

	_, err := uc.Unenroll(authedContext("user-1"), UnenrollInput{
		AccessToken: "token",
		FactorID:    "factor-1",
	})
	if err == nil {
		t.Fatal("Unenroll() error = nil, want confirmation error")
	}
	if provider.deleteCalls != 0 {
		t.Errorf("deleteCalls = %d, want 0", provider.deleteCalls)
	}
}

func TestUnenrollPublishesAuditEvent(t *testing.T) {
	provider := &fakeProvider{user: &idp.User{ID: "user-1"}}
	msg := &fakeMessaging{}
	uc := newTestUsecase(t, provider, &fakeLocker{}, msg)

	out, err := uc.Unenroll(authedContext("user-1"), UnenrollInput{
		AccessToken: "token",
		FactorID:    "factor-1",
		Confirm:     true,
	})
	if err != nil {
		t.Fatalf("Unenroll() error = %v", err)
	}

	if len(out.Factors) != 0 {
		t.Errorf("Factors = %+v, want empty", out.Factors)
	}
	if len(msg.events) != 1 || msg.events[0] != "auth.mfa_unenrolled" {
		t.Errorf("events = %v, want [auth.mfa_unenrolled]", msg.events)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	provider := &fakeProvider{signInErr: &idp.APIError{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"}}
	uc := newTestUsecase(t, provider, &fakeLocker{}, &fakeMessaging{})

	_, err := uc.Login(context.Background(), LoginInput{Email: "user@example.com", Password: "wrong"})
	if err == nil {
		t.Fatal("Login() error = nil, want unauthorized")
	}
	if code := errorCode(t, err); code != goerror.CodeUnauthorized {
		t.Errorf("error code = %v, want CodeUnauthorized", code)
	}
}

func TestLoginPublishesSignedIn(t *testing.T) {
	provider := &fakeProvider{signInSession: &idp.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User:         idp.User{ID: "user-1", Email: "user@example.com"},
	}}
	msg := &fakeMessaging{}
	uc := newTestUsecase(t, provider, &fakeLocker{}, msg)

	out, err := uc.Login(context.Background(), LoginInput{Email: "user@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if !out.Session.Active() {
		t.Error("Session.Active() = false, want true")
	}
	if len(msg.events) != 1 || msg.events[0] != "auth.signed_in" {
		t.Errorf("events = %v, want [auth.signed_in]", msg.events)
	}
}

func TestFactorsAlwaysRefetches(t *testing.T) {
	provider := &fakeProvider{user: &idp.User{ID: "user-1", Email: "user@example.com"}}
	uc := newTestUsecase(t, provider, &fakeLocker{}, &fakeMessaging{})

	for i := 0; i < 3; i++ {
		if _, err := uc.Factors(authedContext("user-1"), FactorsInput{AccessToken: "token"}); err != nil {
			t.Fatalf("Factors() error = %v", err)
		}
	}

	if provider.userCalls != 3 {
		t.Errorf("userCalls = %d, want 3", provider.userCalls)
	}
}
