package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// defaultHTTPTimeout bounds discovery requests; the provider is a remote
// collaborator and must not stall a login indefinitely.
const defaultHTTPTimeout = 10 * time.Second

// maxDiscoveryResponseSize limits the well-known document size.
const maxDiscoveryResponseSize = 1 << 20 // 1MB

// ProviderMetadata is the subset of the issuer's openid-configuration
// this service uses. Immutable once fetched.
type ProviderMetadata struct {
	Issuer                           string   `json:"issuer"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint"`
	TokenEndpoint                    string   `json:"token_endpoint"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
	ACRValuesSupported               []string `json:"acr_values_supported,omitempty"`
}

// DiscoveryCache fetches and memoizes issuer metadata for the process
// lifetime. Concurrent first calls for the same issuer collapse into a
// single upstream fetch; a failed fetch leaves no entry behind, so a later
// call retries cleanly.
type DiscoveryCache struct {
	client *http.Client
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[string]*ProviderMetadata
}

// NewDiscoveryCache creates a process-scoped discovery cache.
func NewDiscoveryCache() *DiscoveryCache {
	return &DiscoveryCache{
		client: &http.Client{Timeout: defaultHTTPTimeout},
		cache:  make(map[string]*ProviderMetadata),
	}
}

// Get returns the metadata for issuer, fetching it on first use.
func (c *DiscoveryCache) Get(ctx context.Context, issuer string) (*ProviderMetadata, error) {
	c.mu.RLock()
	md, ok := c.cache[issuer]
	c.mu.RUnlock()
	if ok {
		return md, nil
	}

	v, err, _ := c.group.Do(issuer, func() (any, error) {
		md, err := c.fetch(ctx, issuer)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[issuer] = md
		c.mu.Unlock()
		return md, nil
	})
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", issuer, err)
	}
	return v.(*ProviderMetadata), nil
}

func (c *DiscoveryCache) fetch(ctx context.Context, issuer string) (*ProviderMetadata, error) {
	wellKnownURL := strings.TrimSuffix(issuer, "/") + "/.well-known/openid-configuration"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnownURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", wellKnownURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: HTTP %d", wellKnownURL, resp.StatusCode)
	}

	var md ProviderMetadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDiscoveryResponseSize)).Decode(&md); err != nil {
		return nil, fmt.Errorf("%s: unexpected response: %w", wellKnownURL, err)
	}

	// The document must describe the issuer we asked for.
	if md.Issuer != "" && strings.TrimSuffix(md.Issuer, "/") != strings.TrimSuffix(issuer, "/") {
		return nil, fmt.Errorf("issuer mismatch: requested %s, document declares %s", issuer, md.Issuer)
	}
	if md.AuthorizationEndpoint == "" || md.TokenEndpoint == "" {
		return nil, fmt.Errorf("%s: incomplete configuration", wellKnownURL)
	}

	return &md, nil
}
