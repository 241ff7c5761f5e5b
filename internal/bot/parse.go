package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var urlRe = regexp.MustCompile(`https?://\S+`)

// ExtractURL returns the first http(s) URL in text, or "" when there is none.
func ExtractURL(text string) string {
	return urlRe.FindString(text)
}

// ParseIDArg extracts a numeric ID from a command argument string.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("ID is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return id, nil
}

// ParseSubscribeArgs splits /subscribe arguments into the feed URL and an
// optional keyword list.
// Format: <feed_url> [keyword, -keyword, /regex/ ...]
func ParseSubscribeArgs(args string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("usage: /subscribe <feed_url> [keywords]")
	}
	feedURL := parts[0]
	if urlRe.FindString(feedURL) != feedURL {
		return "", "", fmt.Errorf("invalid feed URL %q", feedURL)
	}
	keywords := ""
	if len(parts) == 2 {
		keywords = strings.TrimSpace(parts[1])
	}
	return feedURL, keywords, nil
}
