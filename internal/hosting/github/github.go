// Package github implements hosting.Service on the GitHub REST API.
package github

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v82/github"

	"github.com/randalmurphal/repoback/internal/hosting"
)

// Compile-time interface check.
var _ hosting.Service = (*Service)(nil)

func init() {
	hosting.RegisterProvider(hosting.ProviderGitHub, newService)
}

// defaultFanOut bounds concurrent per-issue and per-PR lookups.
const defaultFanOut = 8

// Service implements hosting.Service using the go-github library.
type Service struct {
	client *gogithub.Client
	retry  hosting.RetryConfig
	fanOut int
	logger *slog.Logger
}

// newService creates a Service authenticated from the environment.
func newService(cfg hosting.Config) (hosting.Service, error) {
	token, err := resolveToken(cfg)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Transport: &oauth2Transport{token: token},
	}
	return New(httpClient, cfg)
}

// New creates a Service that sends requests through httpClient.
// cfg.BaseURL selects a GitHub Enterprise instance.
func New(httpClient *http.Client, cfg hosting.Config) (*Service, error) {
	client := gogithub.NewClient(httpClient)

	// GitHub Enterprise: override base URL.
	if cfg.BaseURL != "" {
		baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
		var parseErr error
		client.BaseURL, parseErr = client.BaseURL.Parse(baseURL + "/api/v3/")
		if parseErr != nil {
			return nil, fmt.Errorf("parse base URL %q: %w", cfg.BaseURL, parseErr)
		}
		client.UploadURL, parseErr = client.UploadURL.Parse(baseURL + "/api/uploads/")
		if parseErr != nil {
			return nil, fmt.Errorf("parse upload URL %q: %w", cfg.BaseURL, parseErr)
		}
	}

	retry := cfg.Retry
	retry.ApplyDefaults()

	return &Service{
		client: client,
		retry:  retry,
		fanOut: defaultFanOut,
		logger: cfg.LoggerOrDefault(),
	}, nil
}

// oauth2Transport adds an Authorization header to every request.
type oauth2Transport struct {
	token string
	base  http.RoundTripper
}

func (t *oauth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	req2.Header.Set("Authorization", "Bearer "+t.token)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req2)
}

// Name returns the provider type.
func (s *Service) Name() hosting.ProviderType {
	return hosting.ProviderGitHub
}

func splitRepo(repo string) (string, string, error) {
	return hosting.SplitRepo(repo)
}

// numberFromURL returns the trailing number of an API URL such as
// https://api.github.com/repos/o/r/issues/12.
func numberFromURL(u string) int {
	idx := strings.LastIndex(u, "/")
	if idx == -1 {
		return 0
	}
	n, err := strconv.Atoi(u[idx+1:])
	if err != nil {
		return 0
	}
	return n
}

func timePtr(ts *gogithub.Timestamp) *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}

func logins(users []*gogithub.User) []string {
	var out []string
	for _, u := range users {
		if login := u.GetLogin(); login != "" {
			out = append(out, login)
		}
	}
	return out
}

func labelNames(labels []*gogithub.Label) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if name := l.GetName(); name != "" {
			out = append(out, name)
		}
	}
	return out
}
