// Package mirror turns article URLs of supported news sites into mirror URLs.
//
// Resolution runs strictly in order: syntax check, registry lookup, existence
// probe, then shortening with a manual rewrite as fallback. No network request
// is made before the registry check, and the shortener is never called for an
// article the probe reports as missing.
package mirror

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

var errNotAbsolute = errors.New("url must have a scheme and a host")

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Parse parses s and requires an absolute URL with scheme and authority.
func Parse(s string) (*url.URL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errNotAbsolute
	}
	return u, nil
}

// IsValidURL reports whether s is an absolute URL. It performs no network access.
func IsValidURL(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// hostOf returns the lowercased hostname of u without port.
func hostOf(u *url.URL) string {
	return strings.ToLower(u.Hostname())
}

// Hostname parses s and returns its registry lookup key.
func Hostname(s string) (string, error) {
	u, err := Parse(s)
	if err != nil {
		return "", err
	}
	return hostOf(u), nil
}
