package mirror

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "https://host/path", want: true},
		{in: "http://www.svoboda.org/a/123.html?x=1#y", want: true},
		{in: "ftp://example.com", want: true},
		{in: "not a url", want: false},
		{in: "", want: false},
		{in: "https://", want: false},
		{in: "/relative/path", want: false},
		{in: "mailto:someone@example.com", want: false},
		{in: "http://exa mple.com", want: false},
		{in: "://missing-scheme.com", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, IsValidURL(tt.in)); diff != "" {
				t.Errorf("IsValidURL(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestHostname(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "https://www.svoboda.org/a/1.html", want: "www.svoboda.org"},
		{in: "https://WWW.Svoboda.ORG:8443/a/1.html", want: "www.svoboda.org"},
		{in: "not a url", wantErr: true},
	}
	for _, tt := range tests {
		got, err := Hostname(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Hostname(%q): expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Hostname(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Hostname(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestBuildManualURL(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		mirror string
		want   string
	}{
		{
			name:   "path query and fragment preserved",
			in:     "https://src.example/a/b?x=1#frag",
			mirror: "mir.example",
			want:   "https://mir.example/a/b?x=1&utm_medium=proxy&utm_campaign=otf&utm_source=otf#frag",
		},
		{
			name:   "article without query",
			in:     "https://www.svoboda.org/a/123.html",
			mirror: "d3ro389divh0hy.cloudfront.net",
			want:   "https://d3ro389divh0hy.cloudfront.net/a/123.html?utm_medium=proxy&utm_campaign=otf&utm_source=otf",
		},
		{
			name:   "empty path becomes root",
			in:     "https://www.svoboda.org",
			mirror: "m.example",
			want:   "https://m.example/?utm_medium=proxy&utm_campaign=otf&utm_source=otf",
		},
		{
			name:   "existing tracking values overwritten in place",
			in:     "https://s.example/p?utm_source=tg&y=2&utm_source=again",
			mirror: "m.example",
			want:   "https://m.example/p?utm_source=otf&y=2&utm_medium=proxy&utm_campaign=otf",
		},
		{
			name:   "escaped tracking key recognised",
			in:     "https://s.example/p?utm%5Fmedium=mail",
			mirror: "m.example",
			want:   "https://m.example/p?utm_medium=proxy&utm_campaign=otf&utm_source=otf",
		},
		{
			name:   "port and userinfo replaced with mirror host",
			in:     "http://user:pw@s.example:8080/p",
			mirror: "m.example",
			want:   "http://m.example/p?utm_medium=proxy&utm_campaign=otf&utm_source=otf",
		},
		{
			name:   "escaped path kept verbatim",
			in:     "https://s.example/a%20b/%D0%BD%D0%BE%D0%B2%D0%BE%D1%81%D1%82%D0%B8",
			mirror: "m.example",
			want:   "https://m.example/a%20b/%D0%BD%D0%BE%D0%B2%D0%BE%D1%81%D1%82%D0%B8?utm_medium=proxy&utm_campaign=otf&utm_source=otf",
		},
		{
			name:   "other query pairs keep order and encoding",
			in:     "https://s.example/p?b=2&a=%2F1&flag",
			mirror: "m.example",
			want:   "https://m.example/p?b=2&a=%2F1&flag&utm_medium=proxy&utm_campaign=otf&utm_source=otf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got := BuildManualURL(u, tt.mirror)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildManualURL mismatch (-want +got):\n%s", diff)
			}
			if !IsValidURL(got) {
				t.Errorf("result %q does not parse as an absolute URL", got)
			}
		})
	}
}

func TestBuildManualURLDoesNotMutateInput(t *testing.T) {
	u, err := Parse("https://src.example/a/b?x=1&utm_source=tg#frag")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	before := u.String()

	_ = BuildManualURL(u, "mir.example")

	if diff := cmp.Diff(before, u.String()); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
}

func TestBuildManualURLIdempotentTracking(t *testing.T) {
	u, err := Parse("https://src.example/a/b?x=1#frag")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	first := BuildManualURL(u, "mir.example")
	reparsed, err := Parse(first)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	second := BuildManualURL(reparsed, "mir.example")

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second application changed the URL (-first +second):\n%s", diff)
	}

	final, err := url.Parse(second)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	want := url.Values{
		"x":            {"1"},
		"utm_medium":   {"proxy"},
		"utm_campaign": {"otf"},
		"utm_source":   {"otf"},
	}
	if diff := cmp.Diff(want, final.Query()); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("/a/b", final.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("frag", final.Fragment); diff != "" {
		t.Errorf("fragment mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("mir.example", final.Host); diff != "" {
		t.Errorf("host mismatch (-want +got):\n%s", diff)
	}
}
