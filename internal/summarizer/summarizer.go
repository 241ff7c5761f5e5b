// Package summarizer produces social media posts for an article with the Gemini API.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"mirror_bot/internal/article"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.5-flash"
)

// ErrUnparsable is returned when the model reply lacks the expected sections.
var ErrUnparsable = errors.New("summary reply has no FACEBOOK/TWITTER sections")

var (
	facebookRe = regexp.MustCompile(`(?is)\*{0,2}FACEBOOK:\*{0,2}\s*(.*?)\s*(?:\*{0,2}TWITTER:|$)`)
	twitterRe  = regexp.MustCompile(`(?is)\*{0,2}TWITTER:\*{0,2}\s*(.*)$`)
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Summary holds the generated posts. The Twitter text is asked to stay under
// 250 characters but the limit is not enforced.
type Summary struct {
	ForFacebook string
	ForTwitter  string
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	client  HTTPClient
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
}

// New creates a Client. An empty model selects DefaultModel.
func New(client HTTPClient, apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client:  client,
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		timeout: 30 * time.Second,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Summarize asks the model for a Facebook post and a tweet about a.
func (c *Client) Summarize(ctx context.Context, a *article.Article) (*Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: buildPrompt(a)}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call gemini: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(gr.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}
	var text strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return ParseReply(text.String())
}

// ParseReply splits a model reply into its FACEBOOK and TWITTER sections.
func ParseReply(text string) (*Summary, error) {
	fb := facebookRe.FindStringSubmatch(text)
	tw := twitterRe.FindStringSubmatch(text)
	if fb == nil || tw == nil {
		return nil, ErrUnparsable
	}
	s := &Summary{
		ForFacebook: strings.TrimSpace(fb[1]),
		ForTwitter:  strings.TrimSpace(tw[1]),
	}
	if s.ForFacebook == "" || s.ForTwitter == "" {
		return nil, ErrUnparsable
	}
	return s, nil
}

func buildPrompt(a *article.Article) string {
	return fmt.Sprintf(`You are a journalist at an independent news service. Retell the news below in two formats, in the language of the article.

NEWS:
Title: %s
Text: %s

TASK:
1. Facebook post (100-150 words): neutral tone, key facts, well structured.
2. Post for X (Twitter), at most 250 characters: no sensational headline, only the most important point, no hashtags.

Answer exactly in this format:
FACEBOOK:
[text]

TWITTER:
[text]`, a.Title, a.Body)
}
