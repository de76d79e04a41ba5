package pypi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/pypi-updater/pkg/buildinfo"
	"github.com/matzehuels/pypi-updater/pkg/deps"
	"github.com/matzehuels/pypi-updater/pkg/integrations"
)

// DefaultIndexURL is the public PyPI JSON API.
const DefaultIndexURL = "https://pypi.org/pypi"

// Release is the latest published release of a project.
type Release struct {
	Name           string // Project name as published (e.g., "Django")
	Version        string // Latest version string, never empty in a valid release
	Summary        string
	RequiresPython string
	Yanked         bool
}

// Client provides access to the PyPI JSON API.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a client for the index at indexURL. An empty indexURL
// selects [DefaultIndexURL]; timeout bounds each request.
func NewClient(indexURL string, timeout time.Duration) *Client {
	if indexURL == "" {
		indexURL = DefaultIndexURL
	}
	return &Client{
		Client:  integrations.NewClient(timeout, map[string]string{"User-Agent": buildinfo.UserAgent(), "Accept": "application/json"}),
		baseURL: strings.TrimRight(indexURL, "/"),
	}
}

// BaseURL returns the index URL requests are made against.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchLatest returns the latest release of the named project.
// The name is normalized before the request.
func (c *Client) FetchLatest(ctx context.Context, name string) (*Release, error) {
	pkg := deps.Normalize(name)
	if pkg == "" {
		return nil, fmt.Errorf("%w: empty package name", integrations.ErrNotFound)
	}

	var data apiResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/%s/json", c.baseURL, pkg), &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, fmt.Errorf("%w: pypi package %s", err, pkg)
		}
		return nil, err
	}
	if data.Info.Version == "" {
		return nil, fmt.Errorf("pypi package %s: response has no version", pkg)
	}

	return &Release{
		Name:           data.Info.Name,
		Version:        data.Info.Version,
		Summary:        data.Info.Summary,
		RequiresPython: data.Info.RequiresPython,
		Yanked:         data.Info.Yanked,
	}, nil
}

type apiResponse struct {
	Info apiInfo `json:"info"`
}

type apiInfo struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	Summary        string `json:"summary"`
	RequiresPython string `json:"requires_python"`
	Yanked         bool   `json:"yanked"`
}
