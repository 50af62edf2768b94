package idp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "missing base url",
			cfg:     Config{APIKey: "anon"},
			wantErr: true,
		},
		{
			name:    "missing api key",
			cfg:     Config{BaseURL: "http://localhost:9999"},
			wantErr: true,
		},
		{
			name: "ok",
			cfg:  Config{BaseURL: "http://localhost:9999/", APIKey: "anon"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && c.baseURL != "http://localhost:9999" {
				t.Errorf("NewClient() baseURL = %q, want trailing slash trimmed", c.baseURL)
			}
		})
	}
}

func TestClientSignInWithPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/token" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("grant_type"); got != "password" {
			t.Errorf("grant_type = %q, want password", got)
		}
		if got := r.Header.Get("apikey"); got != "anon" {
			t.Errorf("apikey header = %q, want anon", got)
		}

		var body passwordGrant
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Email != "broker@example.com" {
			t.Errorf("email = %q", body.Email)
		}

		_ = json.NewEncoder(w).Encode(Session{
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			User:         User{ID: "user-1", Email: body.Email},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "anon"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	sess, err := c.SignInWithPassword(context.Background(), "broker@example.com", "secretpass")
	if err != nil {
		t.Fatalf("SignInWithPassword: %v", err)
	}
	if sess.AccessToken != "at-1" || sess.User.ID != "user-1" {
		t.Errorf("unexpected session %+v", sess)
	}
}

func TestClientSignInWithPasswordInvalidCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":"invalid_credentials","msg":"Invalid login credentials"}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "anon"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = c.SignInWithPassword(context.Background(), "broker@example.com", "wrong")
	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", apiErr.Status)
	}
	if apiErr.Code != "invalid_credentials" {
		t.Errorf("code = %q, want invalid_credentials", apiErr.Code)
	}
	if apiErr.Message != "Invalid login credentials" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestClientEnrollTOTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/factors" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer at-1" {
			t.Errorf("authorization = %q", got)
		}

		var body enrollRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.FactorType != FactorTypeTOTP {
			t.Errorf("factor_type = %q, want totp", body.FactorType)
		}

		_ = json.NewEncoder(w).Encode(Enrollment{
			ID:   "factor-1",
			Type: FactorTypeTOTP,
			TOTP: TOTPEnrollment{
				Secret: "JBSWY3DPEHPK3PXP",
				URI:    "otpauth://totp/app:broker@example.com?secret=JBSWY3DPEHPK3PXP",
			},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "anon"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	enrollment, err := c.EnrollTOTP(context.Background(), "at-1", "Authenticator")
	if err != nil {
		t.Fatalf("EnrollTOTP: %v", err)
	}
	if enrollment.ID != "factor-1" || enrollment.TOTP.Secret == "" {
		t.Errorf("unexpected enrollment %+v", enrollment)
	}
}

func TestClientVerifyFactor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/factors/factor-1/verify" {
			t.Errorf("path = %q", r.URL.Path)
		}

		var body verifyRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.ChallengeID != "challenge-1" || body.Code != "123456" {
			t.Errorf("unexpected body %+v", body)
		}

		_ = json.NewEncoder(w).Encode(Session{AccessToken: "at-aal2", RefreshToken: "rt-aal2"})
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "anon"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	sess, err := c.VerifyFactor(context.Background(), "at-1", "factor-1", "challenge-1", "123456")
	if err != nil {
		t.Fatalf("VerifyFactor: %v", err)
	}
	if sess.AccessToken != "at-aal2" {
		t.Errorf("access token = %q, want at-aal2", sess.AccessToken)
	}
}

func TestClientGetUserRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(User{
			ID:      "user-1",
			Factors: []Factor{{ID: "factor-1", FactorType: FactorTypeTOTP, Status: FactorStatusVerified}},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "anon"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	user, err := c.GetUser(context.Background(), "at-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if calls < 2 {
		t.Errorf("calls = %d, want retry after 502", calls)
	}
	if len(user.Factors) != 1 || !user.Factors[0].Verified() {
		t.Errorf("unexpected user %+v", user)
	}
}

func TestClientGetUserDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error_code":"bad_jwt","msg":"invalid token"}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "anon"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := c.GetUser(context.Background(), "stale"); err == nil {
		t.Fatal("GetUser: want error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestClientSignOutTreatsRevokedAsDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error_code":"bad_jwt","msg":"invalid token"}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "anon"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if err := c.SignOut(context.Background(), "stale"); err != nil {
		t.Errorf("SignOut: %v, want nil for revoked session", err)
	}
}
