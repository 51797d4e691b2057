// Package fixtures is the REST client for the fixture provider, which
// supplies match metadata, kickoff times and live scores.
package fixtures

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

const dateLayout = "2006-01-02"

// Client talks to the fixture provider API.
type Client struct {
	baseURL    string
	apiKey     string
	season     int
	httpClient *http.Client
}

// NewClient creates a fixture provider client.
//
// baseURL is the API root, e.g. "https://v3.football.api-sports.io".
func NewClient(baseURL, apiKey string, season int) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		season:  season,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetFixtures returns the fixtures of a league scheduled between from and to,
// inclusive of both days.
func (c *Client) GetFixtures(ctx context.Context, league string, from, to time.Time) ([]domain.Fixture, error) {
	params := url.Values{}
	params.Set("league", league)
	params.Set("from", from.UTC().Format(dateLayout))
	params.Set("to", to.UTC().Format(dateLayout))
	if c.season > 0 {
		params.Set("season", strconv.Itoa(c.season))
	}

	env, err := c.getFixtures(ctx, "/fixtures?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("fixtures: get league %s: %w", league, err)
	}

	out := make([]domain.Fixture, 0, len(env.Response))
	for i := range env.Response {
		out = append(out, env.Response[i].ToDomainFixture())
	}
	return out, nil
}

// GetFixture returns a single fixture by id.
func (c *Client) GetFixture(ctx context.Context, id int64) (domain.Fixture, error) {
	params := url.Values{}
	params.Set("id", strconv.FormatInt(id, 10))

	env, err := c.getFixtures(ctx, "/fixtures?"+params.Encode())
	if err != nil {
		return domain.Fixture{}, fmt.Errorf("fixtures: get fixture %d: %w", id, err)
	}
	if len(env.Response) == 0 {
		return domain.Fixture{}, fmt.Errorf("fixtures: %w: id=%d", domain.ErrNotFound, id)
	}
	return env.Response[0].ToDomainFixture(), nil
}

// GetLive returns every fixture currently in play.
func (c *Client) GetLive(ctx context.Context) ([]domain.Fixture, error) {
	env, err := c.getFixtures(ctx, "/fixtures?live=all")
	if err != nil {
		return nil, fmt.Errorf("fixtures: get live: %w", err)
	}
	out := make([]domain.Fixture, 0, len(env.Response))
	for i := range env.Response {
		out = append(out, env.Response[i].ToDomainFixture())
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *Client) getFixtures(ctx context.Context, path string) (APIEnvelope, error) {
	body, err := c.doGet(ctx, path)
	if err != nil {
		return APIEnvelope{}, err
	}
	var env APIEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return APIEnvelope{}, fmt.Errorf("decode response: %w", err)
	}
	if providerErr := envelopeError(env.Errors); providerErr != "" {
		return APIEnvelope{}, fmt.Errorf("provider error: %s", providerErr)
	}
	return env, nil
}

// envelopeError extracts a message from the provider's errors field, which is
// an empty array on success and an object or array of messages on failure.
func envelopeError(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return ""
		}
		return list[0]
	}
	var obj map[string]string
	if err := json.Unmarshal(raw, &obj); err == nil {
		for k, v := range obj {
			return k + ": " + v
		}
	}
	return ""
}

// doGet sends an authenticated GET request to the provider.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-apisports-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus maps non-2xx responses onto domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
