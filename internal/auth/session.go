// Package auth holds the bearer-token session used by gated sites. A
// session is created once per process, by exchanging credentials or by
// supplying a pre-obtained token, and is never refreshed.
package auth

import (
	"context"
	"fmt"

	"github.com/naglis/mediaresolver/internal/config"
	"github.com/naglis/mediaresolver/internal/fetch"
)

// TokenUsername is the sentinel username that makes Login treat the
// password as an already-issued access token and skip the login request.
const TokenUsername = "__token__"

// Session carries an opaque bearer token. The zero value is unusable;
// sessions are only constructed through Login or NewSession.
type Session struct {
	token string
}

// NewSession wraps an already-issued access token.
func NewSession(token string) (*Session, error) {
	if token == "" {
		return nil, fmt.Errorf("access token must not be empty")
	}
	return &Session{token: token}, nil
}

// AuthorizationHeader returns the value for the Authorization request header.
func (s *Session) AuthorizationHeader() string {
	return "Bearer " + s.token
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges credentials for a bearer token at loginURL using an OAuth
// password grant. When username is TokenUsername the password is used as the
// token directly and no request is made. The extra headers are sent with the
// login request (sites key token issuance to a specific client user agent).
func Login(ctx context.Context, f fetch.Fetcher, loginURL, username, password string, headers map[string]string) (*Session, error) {
	if username == TokenUsername {
		return NewSession(password)
	}

	logger := config.GetLogger()

	payload := map[string]string{
		"grant_type": "password",
		"username":   username,
		"password":   password,
	}
	var resp tokenResponse
	if err := f.PostJSON(ctx, loginURL, payload, &fetch.Options{Headers: headers}, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login response contained no access token")
	}

	logger.Info().
		Str("access_token", resp.AccessToken).
		Msgf("Logged in. Reuse the token with username %q to avoid repeated login requests", TokenUsername)

	return &Session{token: resp.AccessToken}, nil
}
