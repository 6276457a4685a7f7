package oidc

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrAuthorizeRejected indicates the provider reported an error in the callback.
	ErrAuthorizeRejected = errors.New("authorization rejected by provider")
	// ErrMissingCode indicates the callback carried no authorization code.
	ErrMissingCode = errors.New("authorization code missing from authorize response")
	// ErrMissingState indicates the callback carried no state parameter.
	ErrMissingState = errors.New("state missing from authorize response")
	// ErrStateMismatch indicates the callback state does not match the attempt's state.
	ErrStateMismatch = errors.New("state in authorize response does not match expected state")
)

// AuthorizeParams configures an authorization redirect.
type AuthorizeParams struct {
	ClientID     string
	Scopes       []string
	RedirectURI  string
	ResponseType string
	Prompt       string // optional
}

// AuthorizeRequest is a built authorization redirect. The caller must persist
// State and Nonce against the in-flight attempt before redirecting.
type AuthorizeRequest struct {
	URL   string
	State string
	Nonce string
}

// BuildAuthorizeURL constructs the authorization redirect for md with fresh
// anti-forgery parameters.
func BuildAuthorizeURL(md *ProviderMetadata, p AuthorizeParams) (*AuthorizeRequest, error) {
	u, err := url.Parse(md.AuthorizationEndpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid authorization endpoint: %w", err)
	}

	state, err := randomToken()
	if err != nil {
		return nil, err
	}
	nonce, err := randomToken()
	if err != nil {
		return nil, err
	}

	q := u.Query()
	q.Set("client_id", p.ClientID)
	q.Set("scope", strings.Join(p.Scopes, " "))
	q.Set("redirect_uri", p.RedirectURI)
	q.Set("response_type", p.ResponseType)
	q.Set("state", state)
	q.Set("nonce", nonce)
	if p.Prompt != "" {
		q.Set("prompt", p.Prompt)
	}
	u.RawQuery = q.Encode()

	return &AuthorizeRequest{URL: u.String(), State: state, Nonce: nonce}, nil
}

// randomToken returns a 256-bit random value, base64url-encoded without padding.
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// AuthorizeResponse holds the parameters returned on the callback redirect.
type AuthorizeResponse struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// ParseAuthorizeResponse extracts callback parameters. Pure parse, no validation.
func ParseAuthorizeResponse(q url.Values) AuthorizeResponse {
	return AuthorizeResponse{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

// ValidateAuthorizeResponse checks the callback against the attempt's expected
// state and returns the authorization code. Any state mismatch is an
// unconditional rejection.
func ValidateAuthorizeResponse(resp AuthorizeResponse, expectedState string) (string, error) {
	if resp.Error != "" {
		desc := resp.ErrorDescription
		if desc == "" {
			desc = resp.Error
		}
		return "", fmt.Errorf("%w: %s", ErrAuthorizeRejected, desc)
	}
	if resp.Code == "" {
		return "", ErrMissingCode
	}
	if resp.State == "" {
		return "", ErrMissingState
	}
	if subtle.ConstantTimeCompare([]byte(resp.State), []byte(expectedState)) != 1 {
		return "", ErrStateMismatch
	}
	return resp.Code, nil
}
