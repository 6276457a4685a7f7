package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"auth-backend/internal/conf"
	"auth-backend/internal/oidc"

	"golang.org/x/oauth2"
)

// exchangeTimeout bounds token-endpoint calls.
const exchangeTimeout = 10 * time.Second

// Client drives the authorization-code flow against the configured issuer.
type Client struct {
	cfg         *conf.Auth
	discovery   *oidc.DiscoveryCache
	redirectURL string
	httpClient  *http.Client
}

// NewClient creates a provider client. Discovery happens lazily on first use
// so a slow or unreachable issuer does not block startup.
func NewClient(cfg *conf.Auth, discovery *oidc.DiscoveryCache, redirectURL string) *Client {
	return &Client{
		cfg:         cfg,
		discovery:   discovery,
		redirectURL: redirectURL,
		httpClient:  &http.Client{Timeout: exchangeTimeout},
	}
}

// AuthorizeURL builds the authorization redirect with fresh state and nonce.
// The caller must persist both against the attempt before redirecting.
func (c *Client) AuthorizeURL(ctx context.Context) (*oidc.AuthorizeRequest, error) {
	md, err := c.discovery.Get(ctx, c.cfg.Issuer)
	if err != nil {
		return nil, err
	}
	return oidc.BuildAuthorizeURL(md, oidc.AuthorizeParams{
		ClientID:     c.cfg.ClientID,
		Scopes:       c.cfg.Scopes,
		RedirectURI:  c.redirectURL,
		ResponseType: "code",
		Prompt:       c.cfg.Prompt,
	})
}

// Exchange trades an authorization code for tokens. Any error-shaped or
// unparseable response is terminal for this attempt; authorization codes are
// single-use, so a retry would fail regardless.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	md, err := c.discovery.Get(ctx, c.cfg.Issuer)
	if err != nil {
		return nil, err
	}

	oc := oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  c.redirectURL,
		Scopes:       c.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  md.AuthorizationEndpoint,
			TokenURL: md.TokenEndpoint,
			// Client credentials travel form-encoded in the request body.
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := oc.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return token, nil
}

// ValidateIDToken runs the full claim validation on the id_token carried by
// token, bound to the attempt's nonce.
func (c *Client) ValidateIDToken(ctx context.Context, token *oauth2.Token, nonce string) (*oidc.ValidatedIDToken, error) {
	md, err := c.discovery.Get(ctx, c.cfg.Issuer)
	if err != nil {
		return nil, err
	}
	return oidc.ValidateIDToken(oidc.IDTokenParams{
		IDToken:     token.Extra("id_token"),
		Issuer:      c.cfg.Issuer,
		ClientID:    c.cfg.ClientID,
		Nonce:       nonce,
		SigningAlgs: md.IDTokenSigningAlgValuesSupported,
		ACRValues:   md.ACRValuesSupported,
	})
}
