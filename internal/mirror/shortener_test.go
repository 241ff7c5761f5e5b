package mirror

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const articleURL = "https://www.svoboda.org/a/123.html?x=1"

func TestShortenerClient(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		want       string
		wantStatus int
		wantErr    error
		anyErr     bool
	}{
		{
			name:   "short url returned",
			status: http.StatusOK,
			body:   `{"short_url": "https://sho.rt/abc"}`,
			want:   "https://sho.rt/abc",
		},
		{
			name:   "created counts as success",
			status: http.StatusCreated,
			body:   `{"short_url": "https://sho.rt/xyz", "extra": 1}`,
			want:   "https://sho.rt/xyz",
		},
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       `{"short_url": "https://sho.rt/abc"}`,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "unauthorised",
			status:     http.StatusUnauthorized,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "missing field",
			status:  http.StatusOK,
			body:    `{}`,
			wantErr: ErrInvalidShortURL,
		},
		{
			name:    "not a url",
			status:  http.StatusOK,
			body:    `{"short_url": "sho.rt/abc"}`,
			wantErr: ErrInvalidShortURL,
		},
		{
			name:   "empty body",
			status: http.StatusOK,
			anyErr: true,
		},
		{
			name:   "wrong field type",
			status: http.StatusOK,
			body:   `{"short_url": 12}`,
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth, gotURL string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				gotURL = r.URL.Query().Get("url")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewShortenerClient(srv.Client(), srv.URL+"/", "secret-token", time.Second)
			got, err := c.Shorten(context.Background(), articleURL)

			if diff := cmp.Diff("secret-token", gotAuth); diff != "" {
				t.Errorf("Authorization mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(articleURL, gotURL); diff != "" {
				t.Errorf("url param mismatch (-want +got):\n%s", diff)
			}

			switch {
			case tt.wantStatus != 0:
				var statusErr *StatusError
				if !errors.As(err, &statusErr) {
					t.Fatalf("expected StatusError, got %v", err)
				}
				if diff := cmp.Diff(tt.wantStatus, statusErr.Code); diff != "" {
					t.Errorf("status mismatch (-want +got):\n%s", diff)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			case tt.anyErr:
				if err == nil {
					t.Fatal("expected error, got nil")
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Errorf("Shorten mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestShortenerClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{"short_url": "https://sho.rt/late"}`))
	}))
	defer srv.Close()

	c := NewShortenerClient(srv.Client(), srv.URL, "t", 50*time.Millisecond)
	_, err := c.Shorten(context.Background(), articleURL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if diff := cmp.Diff("timeout", fallbackReason(err)); diff != "" {
		t.Errorf("reason mismatch (-want +got):\n%s", diff)
	}
}

type stubRemote struct {
	url   string
	err   error
	calls int
}

func (s *stubRemote) Shorten(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.url, s.err
}

func TestShortenerFallback(t *testing.T) {
	u, err := Parse(articleURL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	manual := BuildManualURL(u, "mirror.example")

	tests := []struct {
		name   string
		remote Remote
		want   string
	}{
		{
			name:   "remote success",
			remote: &stubRemote{url: "https://sho.rt/abc"},
			want:   "https://sho.rt/abc",
		},
		{
			name:   "remote status error",
			remote: &stubRemote{err: &StatusError{Code: 500}},
			want:   manual,
		},
		{
			name:   "remote invalid result",
			remote: &stubRemote{err: ErrInvalidShortURL},
			want:   manual,
		},
		{
			name:   "no remote configured",
			remote: nil,
			want:   manual,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewShortener(tt.remote, discardLogger())
			got := s.Shorten(context.Background(), articleURL, u, "mirror.example")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Shorten mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFallbackReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&StatusError{Code: 502}, "status"},
		{ErrInvalidShortURL, "invalid_short_url"},
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{errors.New("connection refused"), "transport"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, fallbackReason(tt.err)); diff != "" {
				t.Errorf("fallbackReason mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
