package hosting

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Config holds hosting provider configuration.
type Config struct {
	// Provider type: "github", "gitlab", or "auto" (default).
	// When "auto", the provider is detected from the repository URL or
	// base URL, falling back to GitHub for plain "owner/name" values.
	Provider string `yaml:"provider" json:"provider"`

	// BaseURL for self-hosted instances (e.g., "https://gitlab.company.com").
	// Leave empty for github.com / gitlab.com.
	BaseURL string `yaml:"base_url" json:"base_url,omitempty"`

	// TokenEnvVar overrides the default token environment variable name.
	// Default: GITHUB_TOKEN for GitHub, GITLAB_TOKEN for GitLab.
	TokenEnvVar string `yaml:"token_env_var" json:"token_env_var,omitempty"`

	// Retry controls retries of transient API failures.
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logger receives retry and degraded-operation warnings.
	// Nil means slog.Default().
	Logger *slog.Logger `yaml:"-" json:"-"`
}

// LoggerOrDefault returns c.Logger, or slog.Default() when unset.
func (c Config) LoggerOrDefault() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// RetryConfig configures retry behavior for hosting API calls.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts. Default: 3
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// InitialBackoff is the first wait between attempts. Default: 1s
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`

	// MaxBackoff caps the wait between attempts. Default: 30s
	MaxBackoff time.Duration `yaml:"max_backoff" json:"max_backoff"`
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *RetryConfig) ApplyDefaults() {
	defaults := DefaultRetryConfig()
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = defaults.InitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = defaults.MaxBackoff
	}
}

// NewServiceFunc is a constructor function for creating a hosting service.
// Provider packages register one from init() so this package never imports them.
type NewServiceFunc func(cfg Config) (Service, error)

// Service constructors registered by provider packages.
var serviceConstructors = map[ProviderType]NewServiceFunc{}

// RegisterProvider registers a service constructor.
// Called from init() in provider packages (github/, gitlab/).
func RegisterProvider(providerType ProviderType, constructor NewServiceFunc) {
	serviceConstructors[providerType] = constructor
}

// NewService creates a hosting service for repo.
// If cfg.Provider is "auto" or empty, the provider is detected from repo and cfg.BaseURL.
func NewService(cfg Config, repo string) (Service, error) {
	providerType, err := ResolveProviderType(cfg, repo)
	if err != nil {
		return nil, err
	}

	constructor, ok := serviceConstructors[providerType]
	if !ok {
		return nil, fmt.Errorf("no provider registered for %q (registered: %v)", providerType, registeredProviders())
	}

	return constructor(cfg)
}

// ResolveProviderType determines which provider to use.
func ResolveProviderType(cfg Config, repo string) (ProviderType, error) {
	if cfg.Provider != "" && cfg.Provider != "auto" {
		pt := ProviderType(strings.ToLower(cfg.Provider))
		if pt != ProviderGitHub && pt != ProviderGitLab {
			return "", fmt.Errorf("unknown provider %q (supported: github, gitlab)", cfg.Provider)
		}
		return pt, nil
	}

	for _, candidate := range []string{repo, cfg.BaseURL} {
		if candidate == "" {
			continue
		}
		if detected := DetectProvider(candidate); detected != ProviderUnknown {
			return detected, nil
		}
	}

	if strings.Contains(repo, "://") || strings.HasPrefix(repo, "git@") || cfg.BaseURL != "" {
		return "", fmt.Errorf("cannot detect hosting provider from %q (set hosting.provider explicitly)", repo)
	}
	return ProviderGitHub, nil
}

func registeredProviders() []ProviderType {
	var providers []ProviderType
	for pt := range serviceConstructors {
		providers = append(providers, pt)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}
