// Package chesscom fetches games from the Chess.com published-data API.
//
// The API is unauthenticated but requires a descriptive User-Agent; requests
// without one are throttled aggressively.
package chesscom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultBaseURL is the player endpoint of the published-data API.
const DefaultBaseURL = "https://api.chess.com/pub/player"

const defaultUserAgent = "chess-coach/1.0"

// ArchivedGame is one finished game from a monthly archive. Fields we do not
// use (clocks, ratings, accuracy) are left out of the struct; the decoder
// drops them.
type ArchivedGame struct {
	URL     string `json:"url"`
	PGN     string `json:"pgn"`
	EndTime int64  `json:"end_time"`
}

type monthlyArchive struct {
	Games []ArchivedGame `json:"games"`
}

// Client talks to the Chess.com published-data API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Mostly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client with a 30s request timeout.
func New(logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MonthlyGames fetches all games the player finished in the given month.
// A month with no games (404 from the API) returns an empty slice, not an
// error: players routinely have gaps in their archives.
func (c *Client) MonthlyGames(ctx context.Context, username string, year int, month time.Month) ([]ArchivedGame, error) {
	url := fmt.Sprintf("%s/%s/games/%04d/%02d", c.baseURL, username, year, int(month))

	body, status, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		c.logger.Debug("no archive for month", "username", username, "year", year, "month", int(month))
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("chesscom: fetching %s: unexpected status %d", url, status)
	}

	var archive monthlyArchive
	if err := json.Unmarshal(body, &archive); err != nil {
		return nil, fmt.Errorf("chesscom: decoding archive %s: %w", url, err)
	}
	return archive.Games, nil
}

// ProfileExists reports whether the username exists on Chess.com.
func (c *Client) ProfileExists(ctx context.Context, username string) (bool, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, username)

	_, status, err := c.get(ctx, url)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("chesscom: checking profile %s: unexpected status %d", username, status)
	}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("chesscom: building request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("chesscom: requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("chesscom: reading response from %s: %w", url, err)
	}
	return body, resp.StatusCode, nil
}
