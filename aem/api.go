// Package aem talks to a live content repository over its Sling HTTP API, and publishes migrated
// nodes through it.
package aem

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds every single request to the repository.
const DefaultTimeout = 30 * time.Second

func NewAPI(baseURL string, username string, password string) (*API, error) {
	if baseURL == "" {
		return &API{}, fmt.Errorf("aem: configure your repository URL with --aem-url")
	}
	if username == "" {
		return &API{}, fmt.Errorf("aem: configure your repository username with --auth-username")
	}
	if password == "" {
		return &API{}, fmt.Errorf("aem: password is empty, please check auth-password-cmd or WP2AEM_PASSWORD")
	}

	u, err := url.ParseRequestURI(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("aem: couldn't parse repository URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("aem: repository URL must be http or https, got %q", baseURL)
	}

	a := &API{
		BaseURI:  u,
		Timeout:  DefaultTimeout,
		username: username,
		password: password,
	}
	a.Client = &http.Client{}

	return a, nil
}

type API struct {
	// Where the author instance lives, e.g. http://localhost:4502
	BaseURI *url.URL

	// An HTTP client - you can substitute VCR or whatnot.
	Client *http.Client

	// Per-request budget.  Zero means no deadline beyond the caller's context.
	Timeout time.Duration

	// Auth info
	username, password string
}
