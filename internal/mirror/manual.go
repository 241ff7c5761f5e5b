package mirror

import (
	"net/url"
	"strings"
)

const userAgent = "MirrorLinkBot/1.0"

var trackingParams = []struct {
	key   string
	value string
}{
	{"utm_medium", "proxy"},
	{"utm_campaign", "otf"},
	{"utm_source", "otf"},
}

// BuildManualURL rewrites u onto mirrorHost and tags it with the tracking
// parameters. Scheme, path, the remaining query pairs and the fragment are
// kept as they are. u is not modified.
func BuildManualURL(u *url.URL, mirrorHost string) string {
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(mirrorHost)

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	b.WriteString(path)

	b.WriteByte('?')
	b.WriteString(withTracking(u.RawQuery))

	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.EscapedFragment())
	}
	return b.String()
}

// withTracking sets the tracking parameters on a raw query string. An
// existing parameter keeps its position and gets the tracking value, later
// duplicates are dropped, missing ones are appended in a fixed order.
func withTracking(rawQuery string) string {
	pairs := make([]string, 0, 8)
	set := make(map[string]bool, len(trackingParams))

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		value, tracked := trackingValue(key)
		if !tracked {
			pairs = append(pairs, pair)
			continue
		}
		if set[key] {
			continue
		}
		set[key] = true
		pairs = append(pairs, key+"="+value)
	}

	for _, p := range trackingParams {
		if !set[p.key] {
			pairs = append(pairs, p.key+"="+p.value)
		}
	}
	return strings.Join(pairs, "&")
}

func trackingValue(key string) (string, bool) {
	for _, p := range trackingParams {
		if p.key == key {
			return p.value, true
		}
	}
	return "", false
}
