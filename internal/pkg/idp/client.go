package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Config carries the provider endpoint and its public API key.
type Config struct {
	// BaseURL is the root of the provider's auth API, without a trailing slash.
	BaseURL string
	// APIKey is sent on every request as the apikey header.
	APIKey string
	// Timeout bounds each HTTP call. Defaults to 10s.
	Timeout time.Duration
	// HTTPClient overrides the underlying client, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to the provider's REST API. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a provider client from cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("idp: base url is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("idp: api key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
	}, nil
}

type passwordGrant struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshGrant struct {
	RefreshToken string `json:"refresh_token"`
}

type pkceGrant struct {
	AuthCode     string `json:"auth_code"`
	CodeVerifier string `json:"code_verifier,omitempty"`
}

// SignInWithPassword exchanges an email and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var sess Session
	err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", passwordGrant{
		Email:    email,
		Password: password,
	}, &sess)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignUp registers a new account. The provider may return a session
// immediately or an empty one when email confirmation is pending.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	var sess Session
	err := c.do(ctx, http.MethodPost, "/signup", "", passwordGrant{
		Email:    email,
		Password: password,
	}, &sess)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// ExchangeCode swaps an authorization code from an email link for a session.
func (c *Client) ExchangeCode(ctx context.Context, authCode string) (*Session, error) {
	var sess Session
	err := c.do(ctx, http.MethodPost, "/token?grant_type=pkce", "", pkceGrant{AuthCode: authCode}, &sess)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// RefreshSession rotates the token pair using a refresh token.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	var sess Session
	err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", refreshGrant{
		RefreshToken: refreshToken,
	}, &sess)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignOut revokes the session behind accessToken. A session the provider
// no longer knows about is treated as already signed out.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	err := c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)

	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusNotFound) {
		return nil
	}
	return err
}

// GetUser fetches the account behind accessToken, including its MFA
// factors. Reads are retried on transient failures.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User

	backoff := retry.WithMaxDuration(3*time.Second, retry.NewFibonacci(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		user = User{}
		if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &user); err != nil {
			if retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type enrollRequest struct {
	FactorType   string `json:"factor_type"`
	FriendlyName string `json:"friendly_name,omitempty"`
}

// EnrollTOTP registers a new unverified TOTP factor and returns its
// shared secret material.
func (c *Client) EnrollTOTP(ctx context.Context, accessToken, friendlyName string) (*Enrollment, error) {
	var enrollment Enrollment
	err := c.do(ctx, http.MethodPost, "/factors", accessToken, enrollRequest{
		FactorType:   FactorTypeTOTP,
		FriendlyName: friendlyName,
	}, &enrollment)
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ChallengeFactor opens a short-lived challenge against a factor.
func (c *Client) ChallengeFactor(ctx context.Context, accessToken, factorID string) (*Challenge, error) {
	var challenge Challenge
	path := "/factors/" + url.PathEscape(factorID) + "/challenge"
	if err := c.do(ctx, http.MethodPost, path, accessToken, nil, &challenge); err != nil {
		return nil, err
	}
	return &challenge, nil
}

type verifyRequest struct {
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
}

// VerifyFactor answers a challenge with a code. On success the provider
// issues a fresh session at the elevated assurance level.
func (c *Client) VerifyFactor(ctx context.Context, accessToken, factorID, challengeID, code string) (*Session, error) {
	var sess Session
	path := "/factors/" + url.PathEscape(factorID) + "/verify"
	err := c.do(ctx, http.MethodPost, path, accessToken, verifyRequest{
		ChallengeID: challengeID,
		Code:        code,
	}, &sess)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// DeleteFactor removes a factor from the account.
func (c *Client) DeleteFactor(ctx context.Context, accessToken, factorID string) error {
	return c.do(ctx, http.MethodDelete, "/factors/"+url.PathEscape(factorID), accessToken, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("idp: encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("idp: build request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("idp: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("idp: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("idp: decode response: %w", err)
		}
	}
	return nil
}

// decodeAPIError copes with the two error shapes the provider emits,
// {"error_code","msg"} and {"error","error_description"}.
func decodeAPIError(status int, raw []byte) error {
	var payload struct {
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(raw, &payload)

	message := payload.Msg
	if message == "" {
		message = payload.Message
	}
	if message == "" {
		message = payload.ErrorDescription
	}
	if message == "" {
		message = payload.Error
	}
	if message == "" {
		message = http.StatusText(status)
	}

	code := payload.ErrorCode
	if code == "" {
		code = payload.Error
	}

	return &APIError{Status: status, Code: code, Message: message}
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	// Network-level failures are worth one more try.
	return true
}
