package conf

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the config structure.
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Auth     Auth     `yaml:"auth"`
}

// Server is the server config.
type Server struct {
	Addr    string `yaml:"addr"`
	BaseURL string `yaml:"base_url"`
}

// Database is the persistence config.
type Database struct {
	Path string `yaml:"path"`
}

// Auth is the authentication config.
type Auth struct {
	Issuer       string   `yaml:"issuer"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"` // Optional: if not set, auto-constructed from server.base_url
	FrontendURL  string   `yaml:"frontend_url"`
	Scopes       []string `yaml:"scopes"`
	Prompt       string   `yaml:"prompt"`
	CookieSecure bool     `yaml:"cookie_secure"`

	// AllowEmailLinking permits attaching a new issuer to an existing user
	// on a verified-email match. This trusts the configured issuer's email
	// verification, so it is off unless explicitly enabled.
	AllowEmailLinking bool `yaml:"allow_email_linking"`
}

// GetRedirectURL returns the OIDC callback URL.
// If RedirectURL is explicitly configured, use it.
// Otherwise, construct from server base_url + hardcoded callback path.
func (a *Auth) GetRedirectURL(serverBaseURL string) string {
	if a.RedirectURL != "" {
		return a.RedirectURL
	}
	return serverBaseURL + "/auth/callback"
}

// Load loads config from file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:8080"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/auth.db"
	}
	if len(cfg.Auth.Scopes) == 0 {
		cfg.Auth.Scopes = []string{"openid", "profile", "email"}
	}

	// Override from env vars if present
	if baseURL := os.Getenv("SERVER_BASE_URL"); baseURL != "" {
		cfg.Server.BaseURL = baseURL
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if issuer := os.Getenv("OIDC_ISSUER"); issuer != "" {
		cfg.Auth.Issuer = issuer
	}
	if clientID := os.Getenv("OIDC_CLIENT_ID"); clientID != "" {
		cfg.Auth.ClientID = clientID
	}
	if secret := os.Getenv("OIDC_CLIENT_SECRET"); secret != "" {
		cfg.Auth.ClientSecret = secret
	}
	if redirectURL := os.Getenv("OIDC_REDIRECT_URL"); redirectURL != "" {
		cfg.Auth.RedirectURL = redirectURL
	}
	if frontendURL := os.Getenv("OIDC_FRONTEND_URL"); frontendURL != "" {
		cfg.Auth.FrontendURL = frontendURL
	}

	if cfg.Auth.Issuer == "" {
		return nil, fmt.Errorf("auth.issuer is required")
	}
	if cfg.Auth.ClientID == "" {
		return nil, fmt.Errorf("auth.client_id is required")
	}

	return &cfg, nil
}
