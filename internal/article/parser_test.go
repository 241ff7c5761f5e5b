package article

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
}

func (m *mockTransport) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return string(data)
}

func newTestParser(m *mockTransport) *Parser {
	return New(m, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseSelectors(t *testing.T) {
	p := newTestParser(&mockTransport{body: loadFixture(t, "article.html"), statusCode: 200})

	got, err := p.Parse(context.Background(), "https://www.svoboda.org/a/123.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &Article{
		URL:   "https://www.svoboda.org/a/123.html",
		Title: "В регионе задержаны трое активистов",
		Body: "Власти региона сообщили о задержании трёх активистов.\n\n" +
			"Правозащитники считают преследование политически мотивированным.\n\n" +
			"Суд назначил заседание на следующую неделю.\n\n" +
			"Адвокаты задержанных подали жалобу.\n\n" +
			"Родственники ждут решения суда.\n\n" +
			"Редакция продолжит следить за развитием событий.",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
	for _, unwanted := range []string{"analytics", "embedded player", "display: none"} {
		if strings.Contains(got.Body, unwanted) {
			t.Errorf("body contains stripped element text %q", unwanted)
		}
	}
}

func TestParseTruncatesLongBody(t *testing.T) {
	p := newTestParser(&mockTransport{body: loadFixture(t, "long.html"), statusCode: 200})

	got, err := p.Parse(context.Background(), "https://www.svoboda.org/a/long.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(MaxBodyLength, utf8.RuneCountInString(got.Body)); diff != "" {
		t.Errorf("body length mismatch (-want +got):\n%s", diff)
	}
	if !utf8.ValidString(got.Body) {
		t.Error("truncated body is not valid UTF-8")
	}
	if diff := cmp.Diff("Long read", got.Title); diff != "" {
		t.Errorf("title mismatch (-want +got):\n%s", diff)
	}
}

func TestParseReadabilityFallback(t *testing.T) {
	p := newTestParser(&mockTransport{body: loadFixture(t, "no_selectors.html"), statusCode: 200})

	got, err := p.Parse(context.Background(), "https://www.rferl.org/a/court.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title == "" {
		t.Error("expected a title from readability")
	}
	if !strings.Contains(got.Body, "regional court postponed the hearing") {
		t.Errorf("body missing story text:\n%s", got.Body)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		transport *mockTransport
		url       string
		wantErr   error
	}{
		{
			name:      "too short",
			transport: &mockTransport{body: loadFixture(t, "short.html"), statusCode: 200},
			url:       "https://www.svoboda.org/a/1.html",
			wantErr:   ErrNoContent,
		},
		{
			name:      "empty page",
			transport: &mockTransport{body: "", statusCode: 200},
			url:       "https://www.svoboda.org/a/1.html",
			wantErr:   ErrNoContent,
		},
		{
			name:      "not found",
			transport: &mockTransport{body: "gone", statusCode: 404},
			url:       "https://www.svoboda.org/a/1.html",
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
			url:       "https://www.svoboda.org/a/1.html",
		},
		{
			name:      "bad url",
			transport: &mockTransport{statusCode: 200},
			url:       "http://exa mple.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestParser(tt.transport)
			got, err := p.Parse(context.Background(), tt.url)
			if err == nil {
				t.Fatalf("expected error, got article %+v", got)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 2, "he"},
		{"привет", 3, "при"},
		{"", 3, ""},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, truncate(tt.in, tt.n)); diff != "" {
			t.Errorf("truncate(%q, %d) mismatch (-want +got):\n%s", tt.in, tt.n, diff)
		}
	}
}
