// Package article downloads news pages and extracts their title and body text.
package article

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Extraction limits.
const (
	MaxBodyLength = 8000
	MinBodyLength = 100
)

// ErrNoContent is returned when a page has no usable title or body.
var ErrNoContent = errors.New("article has no usable content")

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Article is the extracted text of a news page.
type Article struct {
	URL   string
	Title string
	Body  string
}

// Parser fetches and extracts articles.
type Parser struct {
	client  HTTPClient
	timeout time.Duration
	log     *slog.Logger
}

// New creates a Parser with the given HTTP client.
func New(client HTTPClient, log *slog.Logger) *Parser {
	return &Parser{
		client:  client,
		timeout: 20 * time.Second,
		log:     log,
	}
}

// Parse downloads rawURL and extracts its article. Bodies longer than
// MaxBodyLength characters are cut at that length.
func (p *Parser) Parse(ctx context.Context, rawURL string) (*Article, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; MirrorLinkBot/1.0)")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	title, body, err := extract(page)
	if err != nil {
		return nil, err
	}

	if title == "" || body == "" {
		p.log.Debug("selectors missed, trying readability", "url", rawURL)
		rt, rb := extractReadable(page, pageURL)
		if title == "" {
			title = rt
		}
		if body == "" {
			body = rb
		}
	}

	if n := utf8.RuneCountInString(body); n > MaxBodyLength {
		p.log.Info("article truncated", "url", rawURL, "length", n, "truncated_length", MaxBodyLength)
		body = truncate(body, MaxBodyLength)
	}

	if title == "" || utf8.RuneCountInString(body) < MinBodyLength {
		p.log.Warn("article missing content",
			"url", rawURL,
			"title_exists", title != "",
			"body_length", utf8.RuneCountInString(body),
		)
		return nil, ErrNoContent
	}

	p.log.Info("article parsed", "url", rawURL, "title_length", len(title), "body_length", len(body))
	return &Article{URL: rawURL, Title: title, Body: body}, nil
}

// extract applies the RFE/RL page layout: the headline is h1.pg-title and
// the story text lives in .wsw containers.
func extract(page []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("h1.pg-title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	content := doc.Find(".wsw").Clone()
	content.Find("script, style, iframe").Remove()

	return title, paragraphs(content.Text()), nil
}

func extractReadable(page []byte, pageURL *url.URL) (string, string) {
	a, err := readability.FromReader(bytes.NewReader(page), pageURL)
	if err != nil {
		return "", ""
	}
	return strings.TrimSpace(a.Title), paragraphs(a.TextContent)
}

// paragraphs collapses whitespace and starts a new paragraph after each sentence.
func paragraphs(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, ". ", ".\n\n")
}

func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
