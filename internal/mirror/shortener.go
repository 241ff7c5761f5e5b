package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultShortenerTimeout bounds a single call to the shortening API.
const DefaultShortenerTimeout = 10 * time.Second

// ErrInvalidShortURL is returned when the API answers without a usable short_url.
var ErrInvalidShortURL = errors.New("missing or invalid short_url")

// StatusError reports a non-2xx answer from the shortening API.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// ShortenerClient talks to the remote shortening API.
type ShortenerClient struct {
	client  HTTPClient
	apiURL  string
	token   string
	timeout time.Duration
}

// NewShortenerClient creates a client for the API at apiURL authorised by token.
// A non-positive timeout selects DefaultShortenerTimeout.
func NewShortenerClient(client HTTPClient, apiURL, token string, timeout time.Duration) *ShortenerClient {
	if timeout <= 0 {
		timeout = DefaultShortenerTimeout
	}
	return &ShortenerClient{
		client:  client,
		apiURL:  strings.TrimRight(apiURL, "/"),
		token:   token,
		timeout: timeout,
	}
}

type shortenResponse struct {
	ShortURL string `json:"short_url"`
}

// Shorten asks the API for a short mirror link of rawURL.
func (c *ShortenerClient) Shorten(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.apiURL + "/?url=" + url.QueryEscape(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode}
	}

	var body shortenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !IsValidURL(body.ShortURL) {
		return "", ErrInvalidShortURL
	}
	return body.ShortURL, nil
}

// Remote is the first stage of a Shortener.
type Remote interface {
	Shorten(ctx context.Context, rawURL string) (string, error)
}

// Shortener tries the remote API and falls back to BuildManualURL. It always
// returns a URL.
type Shortener struct {
	remote Remote
	log    *slog.Logger
}

// NewShortener creates a Shortener. A nil remote means every call is built manually.
func NewShortener(remote Remote, log *slog.Logger) *Shortener {
	return &Shortener{remote: remote, log: log}
}

// Shorten returns a mirror URL for rawURL, which parses to u and is served by mirrorHost.
func (s *Shortener) Shorten(ctx context.Context, rawURL string, u *url.URL, mirrorHost string) string {
	if s.remote != nil {
		short, err := s.remote.Shorten(ctx, rawURL)
		if err == nil {
			return short
		}
		s.log.Warn("shortener unavailable, building mirror url manually",
			"url", rawURL,
			"reason", fallbackReason(err),
			"error", err,
		)
	}
	return BuildManualURL(u, mirrorHost)
}

func fallbackReason(err error) string {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, ErrInvalidShortURL):
		return "invalid_short_url"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "malformed_response"
		}
		return "transport"
	}
}
