package bot

import (
	"errors"
	"fmt"
	"strings"

	"mirror_bot/internal/domains"
	"mirror_bot/internal/mirror"
	"mirror_bot/internal/model"
	"mirror_bot/internal/summarizer"
)

// User-facing replies.
const (
	msgGenerating        = "Generating mirror URL..."
	msgSummarizing       = "Preparing summary..."
	msgRateLimited       = "Please wait a moment before sending another request."
	msgChatNotAllowed    = "This bot is not available in this chat."
	msgUnexpected        = "An unexpected error occurred. Please try again later."
	msgMirrorUsage       = "Please provide a URL.\n\nExample: /mirror https://www.svoboda.org/a/article"
	msgInvalidURL        = "Invalid URL provided."
	msgUnsupported       = "This domain is not supported. Use /help to see the supported sites."
	msgNotFound          = "This article was not found on the original site. Check that the link is complete."
	msgGenerationFailed  = "An error occurred while generating the mirror URL. Please try again later."
	msgSummariesDisabled = "Summaries are not enabled."
	msgSummaryFailed     = "Could not prepare a summary. Please try again later."
	msgNoArticleText     = "Could not extract the article text from this page."
)

// FormatMirror formats a successful mirror reply.
func FormatMirror(mirrorURL string) string {
	return "Mirror URL:\n\n" + mirrorURL
}

// FormatResolveError maps a resolution failure to its reply.
func FormatResolveError(err error) string {
	switch {
	case errors.Is(err, mirror.ErrInvalidURL):
		return msgInvalidURL
	case errors.Is(err, mirror.ErrUnsupportedDomain):
		return msgUnsupported
	case errors.Is(err, mirror.ErrNotFound):
		return msgNotFound
	default:
		return msgGenerationFailed
	}
}

// FormatFeedPost formats a mirrored feed item for a subscribed chat.
func FormatFeedPost(feedName, title, mirrorURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n\n", feedName)
	if title != "" {
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	b.WriteString(mirrorURL)
	return b.String()
}

// FormatHelp lists the supported sites grouped by region.
func FormatHelp(sites []domains.Site) string {
	var b strings.Builder
	b.WriteString("Send me a link to an article from any of these sites and I'll reply with a mirror link that works in restricted regions.\n")

	region := ""
	for _, s := range sites {
		if s.Region != region {
			region = s.Region
			fmt.Fprintf(&b, "\n%s:\n", region)
		}
		fmt.Fprintf(&b, "• %s\n", s.Host)
	}
	return b.String()
}

// FormatSummary formats generated posts for an article.
func FormatSummary(title string, s *summarizer.Summary) string {
	return fmt.Sprintf("%s\n\nFacebook:\n%s\n\nX (Twitter):\n%s", title, s.ForFacebook, s.ForTwitter)
}

// FormatHistory formats the recent mirror links of a chat.
func FormatHistory(mirrors []model.Mirror) string {
	if len(mirrors) == 0 {
		return "No mirror links yet. Send me an article link to create one."
	}
	var b strings.Builder
	b.WriteString("Recent mirror links:\n")
	for _, m := range mirrors {
		fmt.Fprintf(&b, "\n%s\n%s\n→ %s\n", m.CreatedAt.Format("2006-01-02 15:04 UTC"), m.OriginalURL, m.MirrorURL)
	}
	return b.String()
}

// FormatSubscribed confirms a new subscription.
func FormatSubscribed(sub *model.Subscription) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subscribed!\n#%d %s (every %d min)\nURL: %s", sub.ID, sub.Name, sub.IntervalMinutes, sub.URL)
	if sub.Keywords != "" {
		fmt.Fprintf(&b, "\nKeywords: %s", sub.Keywords)
	}
	return b.String()
}

// FormatSubscriptionList formats the subscriptions of a chat.
func FormatSubscriptionList(subs []model.Subscription) string {
	if len(subs) == 0 {
		return "No subscriptions yet. Use /subscribe <feed_url> to add one."
	}
	var b strings.Builder
	b.WriteString("Your subscriptions:\n")
	for _, s := range subs {
		status := "active"
		if !s.IsActive {
			status = "paused"
		}
		fmt.Fprintf(&b, "\n#%d %s  (every %d min) [%s]\n   %s\n", s.ID, s.Name, s.IntervalMinutes, status, s.URL)
		if s.Keywords != "" {
			fmt.Fprintf(&b, "   keywords: %s\n", s.Keywords)
		}
	}
	return b.String()
}
