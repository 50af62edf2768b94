// Package session encodes the browser session cookie.
//
// The cookie carries the provider token pair; everything else about the
// session lives with the identity provider. The payload is base64 JSON,
// not encrypted: the access token inside is already a signed JWT and
// the refresh token is opaque.
package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// CookieName is the session cookie set after login.
const CookieName = "dr_session"

// ErrInvalidCookie is returned when the cookie payload cannot be decoded.
var ErrInvalidCookie = errors.New("session: invalid cookie payload")

// Tokens is the provider token pair stored in the cookie.
type Tokens struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// Encode packs tokens into the cookie value.
func Encode(tokens Tokens) (string, error) {
	raw, err := json.Marshal(tokens)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode unpacks a cookie value produced by Encode.
func Decode(value string) (Tokens, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return Tokens{}, ErrInvalidCookie
	}

	var tokens Tokens
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return Tokens{}, ErrInvalidCookie
	}
	if tokens.AccessToken == "" {
		return Tokens{}, ErrInvalidCookie
	}
	return tokens, nil
}

// FromRequest reads and decodes the session cookie. A missing cookie
// returns ErrInvalidCookie.
func FromRequest(r *http.Request) (Tokens, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Tokens{}, ErrInvalidCookie
	}
	return Decode(cookie.Value)
}

// Write sets the session cookie on the response.
func Write(w http.ResponseWriter, tokens Tokens, maxAge time.Duration) error {
	value, err := Encode(tokens)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
