// Package logocdn downloads team crests from the upstream image CDN.
package logocdn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/matchstake/internal/domain"
	"github.com/alanyoungcy/matchstake/internal/logo"
)

// maxImageBytes caps a single crest download.
const maxImageBytes = 2 << 20

var _ logo.Fetcher = (*Client)(nil)

// Client fetches crest images by team id.
type Client struct {
	urlTemplate string
	httpClient  *http.Client
}

// NewClient creates a logo CDN client. urlTemplate must contain "{id}",
// e.g. "https://media.api-sports.io/football/teams/{id}.png".
func NewClient(urlTemplate string) (*Client, error) {
	if !strings.Contains(urlTemplate, "{id}") {
		return nil, fmt.Errorf("logocdn: url template %q has no {id} placeholder", urlTemplate)
	}
	return &Client{
		urlTemplate: urlTemplate,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// URLFor returns the upstream URL of a crest.
func (c *Client) URLFor(teamID string) string {
	return strings.ReplaceAll(c.urlTemplate, "{id}", url.PathEscape(teamID))
}

// Fetch downloads the crest for teamID and returns its bytes and content type.
func (c *Client) Fetch(ctx context.Context, teamID string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URLFor(teamID), nil)
	if err != nil {
		return nil, "", fmt.Errorf("logocdn: create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("logocdn: fetch %s: %w", teamID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("logocdn: read %s: %w", teamID, err)
	}
	if err := checkHTTPStatus(resp.StatusCode); err != nil {
		return nil, "", fmt.Errorf("logocdn: fetch %s: %w", teamID, err)
	}
	if len(body) > maxImageBytes {
		return nil, "", fmt.Errorf("logocdn: crest %s exceeds %d bytes", teamID, maxImageBytes)
	}
	if len(body) == 0 {
		return nil, "", fmt.Errorf("logocdn: crest %s: empty body", teamID)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return body, contentType, nil
}

func checkHTTPStatus(statusCode int) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case statusCode == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	default:
		return fmt.Errorf("HTTP %d", statusCode)
	}
}
