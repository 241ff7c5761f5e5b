package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mirror_bot/internal/article"
	"mirror_bot/internal/filter"
	"mirror_bot/internal/mirror"
	"mirror_bot/internal/model"
	"mirror_bot/internal/storage"
)

// historyLimit is the number of entries /history shows.
const historyLimit = 10

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome!

Send me a link to an article from a supported news site and I'll generate a mirror link that works in restricted regions.

Commands:
/mirror <url> — generate a mirror link
/summary <url> — social media posts about an article
/history — your recent mirror links
/subscribe <feed_url> [keywords] — mirror new articles of a feed
/subscriptions — list feed subscriptions
/unsubscribe <id> — stop a subscription
/help — supported sites`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, FormatHelp(b.registry.Sites()))
}

func (b *Bot) handleMirror(ctx context.Context, msg *tgbotapi.Message, rawURL string) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	// Local checks run before the limiter and consume no quota.
	host, err := mirror.Hostname(rawURL)
	if err != nil {
		b.reply(chatID, msgInvalidURL)
		return
	}
	if _, ok := b.registry.Lookup(host); !ok {
		b.log.Info("host not in registry", "host", host, "chat_id", chatID)
		b.reply(chatID, msgUnsupported)
		return
	}

	if !b.limiter.Allow(userID) {
		b.log.Info("rate limited", "user_id", userID, "chat_id", chatID)
		b.reply(chatID, msgRateLimited)
		return
	}

	statusID := b.sendStatus(chatID, msgGenerating)

	mirrorURL, err := b.resolver.Resolve(ctx, rawURL)
	if err != nil {
		b.log.Info("mirror request failed", "user_id", userID, "chat_id", chatID, "url", rawURL, "error", err)
		b.finish(chatID, statusID, FormatResolveError(err), nil)
		return
	}

	entry := &model.Mirror{ChatID: chatID, UserID: userID, OriginalURL: rawURL, MirrorURL: mirrorURL}
	if err := b.store.RecordMirror(ctx, entry); err != nil {
		b.log.Error("record mirror", "chat_id", chatID, "error", err)
	}
	b.log.Info("mirror generated", "user_id", userID, "chat_id", chatID, "url", rawURL, "mirror", mirrorURL)

	var markup *tgbotapi.InlineKeyboardMarkup
	if b.summarizer != nil && entry.ID != 0 {
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Summary", fmt.Sprintf("%s:%d", actionSummary, entry.ID)),
			),
		)
		markup = &kb
	}
	b.finish(chatID, statusID, FormatMirror(mirrorURL), markup)
}

func (b *Bot) handleSummary(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	if b.summarizer == nil {
		b.reply(chatID, msgSummariesDisabled)
		return
	}
	rawURL := ExtractURL(args)
	if rawURL == "" {
		b.reply(chatID, "Please provide a URL.\n\nExample: /summary https://www.svoboda.org/a/article")
		return
	}
	b.summarize(ctx, chatID, msg.From.ID, rawURL)
}

// summarize scrapes rawURL and posts the generated summary. Only registry
// sites are scraped.
func (b *Bot) summarize(ctx context.Context, chatID, userID int64, rawURL string) {
	host, err := mirror.Hostname(rawURL)
	if err != nil {
		b.reply(chatID, msgInvalidURL)
		return
	}
	if _, ok := b.registry.Lookup(host); !ok {
		b.reply(chatID, msgUnsupported)
		return
	}

	if !b.limiter.Allow(userID) {
		b.reply(chatID, msgRateLimited)
		return
	}

	statusID := b.sendStatus(chatID, msgSummarizing)

	a, err := b.articles.Parse(ctx, rawURL)
	if err != nil {
		b.log.Warn("parse article", "url", rawURL, "error", err)
		text := msgSummaryFailed
		if errors.Is(err, article.ErrNoContent) {
			text = msgNoArticleText
		}
		b.finish(chatID, statusID, text, nil)
		return
	}

	s, err := b.summarizer.Summarize(ctx, a)
	if err != nil {
		b.log.Error("summarize article", "url", rawURL, "error", err)
		b.finish(chatID, statusID, msgSummaryFailed, nil)
		return
	}

	b.log.Info("summary generated", "user_id", userID, "chat_id", chatID, "url", rawURL)
	b.finish(chatID, statusID, FormatSummary(a.Title, s), nil)
}

func (b *Bot) handleHistory(ctx context.Context, chatID int64) {
	mirrors, err := b.store.ListMirrors(ctx, chatID, historyLimit)
	if err != nil {
		b.log.Error("list mirrors", "chat_id", chatID, "error", err)
		b.reply(chatID, msgUnexpected)
		return
	}
	b.reply(chatID, FormatHistory(mirrors))
}

func (b *Bot) handleSubscribe(ctx context.Context, chatID int64, args string) {
	feedURL, keywords, err := ParseSubscribeArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	host, err := mirror.Hostname(feedURL)
	if err != nil {
		b.reply(chatID, msgInvalidURL)
		return
	}
	if _, ok := b.registry.Lookup(host); !ok {
		b.reply(chatID, msgUnsupported)
		return
	}
	if _, err := filter.Parse(keywords); err != nil {
		b.reply(chatID, fmt.Sprintf("Invalid keywords: %v", err))
		return
	}

	feed, err := b.feeds.Fetch(ctx, feedURL)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to fetch feed: %v", err))
		return
	}

	name := strings.TrimSpace(feed.Title)
	if name == "" {
		name = host
	}

	sub := &model.Subscription{
		ChatID:          chatID,
		Name:            name,
		URL:             feedURL,
		Keywords:        keywords,
		IntervalMinutes: model.DefaultIntervalMinutes,
		IsActive:        true,
	}
	if err := b.store.CreateSubscription(ctx, sub); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			b.reply(chatID, "This chat is already subscribed to that feed.")
			return
		}
		b.log.Error("create subscription", "chat_id", chatID, "error", err)
		b.reply(chatID, msgUnexpected)
		return
	}

	b.log.Info("subscribed", "chat_id", chatID, "subscription_id", sub.ID, "url", feedURL)
	b.reply(chatID, FormatSubscribed(sub))
}

func (b *Bot) handleSubscriptions(ctx context.Context, chatID int64) {
	subs, err := b.store.ListSubscriptions(ctx, chatID)
	if err != nil {
		b.log.Error("list subscriptions", "chat_id", chatID, "error", err)
		b.reply(chatID, msgUnexpected)
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatSubscriptionList(subs))
	msg.DisableWebPagePreview = true
	if len(subs) > 0 {
		var rows [][]tgbotapi.InlineKeyboardButton
		for _, sub := range subs {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("Remove #%d", sub.ID),
					fmt.Sprintf("%s:%d", actionUnsubConfirm, sub.ID),
				),
			))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send subscription list", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleUnsubscribe(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /unsubscribe <id>")
		return
	}

	sub, err := b.store.GetSubscription(ctx, id)
	if err != nil || sub.ChatID != chatID {
		b.reply(chatID, fmt.Sprintf("Subscription #%d not found.", id))
		return
	}

	if err := b.store.DeleteSubscription(ctx, id); err != nil {
		b.log.Error("delete subscription", "subscription_id", id, "error", err)
		b.reply(chatID, msgUnexpected)
		return
	}
	b.log.Info("unsubscribed", "chat_id", chatID, "subscription_id", id)
	b.reply(chatID, fmt.Sprintf("Subscription #%d \"%s\" removed.", id, sub.Name))
}
