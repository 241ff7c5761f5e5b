// Package filter decides which feed items a subscription forwards.
//
// A keyword list is comma separated. Each entry is a case-insensitive
// substring, or a regular expression when wrapped in slashes ("/elect(ed|ion)/").
// A leading "-" turns the entry into an exclusion.
package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Item is the part of a feed item keywords are matched against.
type Item struct {
	Title       string
	Description string
}

// Rule is a single parsed keyword.
type Rule struct {
	Exclude bool
	Value   string
	re      *regexp.Regexp
}

// Parse splits a keyword list into rules. Empty entries are skipped.
func Parse(keywords string) ([]Rule, error) {
	var rules []Rule
	for _, raw := range strings.Split(keywords, ",") {
		raw = strings.TrimSpace(raw)
		var r Rule
		if strings.HasPrefix(raw, "-") {
			r.Exclude = true
			raw = strings.TrimSpace(raw[1:])
		}
		if raw == "" {
			continue
		}
		if len(raw) > 2 && strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") {
			re, err := regexp.Compile("(?i)" + raw[1:len(raw)-1])
			if err != nil {
				return nil, fmt.Errorf("invalid regex %q: %w", raw, err)
			}
			r.re = re
		}
		r.Value = raw
		rules = append(rules, r)
	}
	return rules, nil
}

// Match checks whether an item passes the rules.
// If no rules are provided, the item always passes.
// Include rules use OR logic (at least one must match).
// Exclude rules use AND logic (none must match).
func Match(item Item, rules []Rule) bool {
	if len(rules) == 0 {
		return true
	}

	text := strings.ToLower(item.Title + " " + item.Description)
	hasIncludes := false
	anyIncludeMatched := false

	for _, r := range rules {
		if r.Exclude {
			if r.matches(text) {
				return false
			}
			continue
		}
		hasIncludes = true
		if r.matches(text) {
			anyIncludeMatched = true
		}
	}

	return !hasIncludes || anyIncludeMatched
}

func (r Rule) matches(text string) bool {
	if r.re != nil {
		return r.re.MatchString(text)
	}
	return strings.Contains(text, strings.ToLower(r.Value))
}
