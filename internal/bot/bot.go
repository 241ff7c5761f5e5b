// Package bot implements the Telegram front end: commands, mirror requests,
// summaries and feed subscriptions.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mmcdole/gofeed"

	"mirror_bot/internal/article"
	"mirror_bot/internal/config"
	"mirror_bot/internal/domains"
	"mirror_bot/internal/storage"
	"mirror_bot/internal/summarizer"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// SiteRegistry lists the supported sites.
type SiteRegistry interface {
	Lookup(hostname string) (string, bool)
	Sites() []domains.Site
}

// Resolver turns an article URL into its mirror URL.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

// Limiter throttles requests per user.
type Limiter interface {
	Allow(userID int64) bool
}

// ArticleParser extracts the text of an article.
type ArticleParser interface {
	Parse(ctx context.Context, rawURL string) (*article.Article, error)
}

// Summarizer writes social media posts about an article.
type Summarizer interface {
	Summarize(ctx context.Context, a *article.Article) (*summarizer.Summary, error)
}

// FeedSource downloads a parsed feed.
type FeedSource interface {
	Fetch(ctx context.Context, url string) (*gofeed.Feed, error)
}

// Services are the collaborators the bot dispatches to. Summarizer may be
// nil, which disables summaries.
type Services struct {
	Store      storage.Storage
	Registry   SiteRegistry
	Resolver   Resolver
	Limiter    Limiter
	Articles   ArticleParser
	Summarizer Summarizer
	Feeds      FeedSource
}

// Bot is the Telegram bot that handles user requests and sends feed posts.
type Bot struct {
	api        telegramAPI
	cfg        *config.Config
	store      storage.Storage
	registry   SiteRegistry
	resolver   Resolver
	limiter    Limiter
	articles   ArticleParser
	summarizer Summarizer
	feeds      FeedSource
	log        *slog.Logger

	wg sync.WaitGroup
}

// New creates a Bot with the given Telegram token, config and services.
func New(token string, cfg *config.Config, svc Services, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info("authorized", "username", api.Self.UserName)
	return newBot(api, cfg, svc, log), nil
}

func newBot(api telegramAPI, cfg *config.Config, svc Services, log *slog.Logger) *Bot {
	return &Bot{
		api:        api,
		cfg:        cfg,
		store:      svc.Store,
		registry:   svc.Registry,
		resolver:   svc.Resolver,
		limiter:    svc.Limiter,
		articles:   svc.Articles,
		summarizer: svc.Summarizer,
		feeds:      svc.Feeds,
		log:        log,
	}
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled
// and every in-flight update has been handled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return
			}
			b.wg.Go(func() { b.handleUpdate(ctx, update) })
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	chatID := chatOf(update)
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic while handling update", "update_id", update.UpdateID, "chat_id", chatID, "panic", r)
			if chatID != 0 {
				b.reply(chatID, msgUnexpected)
			}
		}
	}()

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	rawURL := ExtractURL(msg.Text)
	if !msg.IsCommand() && rawURL == "" {
		return
	}
	if !b.cfg.IsChatAllowed(msg.Chat.ID) {
		b.log.Info("chat not allowed", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)
		b.reply(msg.Chat.ID, msgChatNotAllowed)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleMirror(ctx, msg, rawURL)
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

// sendStatus posts a placeholder message and returns its ID, or 0 when it
// could not be sent.
func (b *Bot) sendStatus(chatID int64, text string) int {
	m, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		b.log.Error("send status message", "chat_id", chatID, "error", err)
		return 0
	}
	return m.MessageID
}

// finish replaces the status message with text, or sends text as a new
// message when there is no status message.
func (b *Bot) finish(chatID int64, statusID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	var c tgbotapi.Chattable
	switch {
	case statusID == 0:
		msg := tgbotapi.NewMessage(chatID, text)
		msg.DisableWebPagePreview = true
		if markup != nil {
			msg.ReplyMarkup = *markup
		}
		c = msg
	case markup != nil:
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, statusID, text, *markup)
		edit.DisableWebPagePreview = true
		c = edit
	default:
		edit := tgbotapi.NewEditMessageText(chatID, statusID, text)
		edit.DisableWebPagePreview = true
		c = edit
	}
	if _, err := b.api.Send(c); err != nil {
		b.log.Error("deliver result", "chat_id", chatID, "message_id", statusID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "mirror":
		if args == "" {
			b.reply(chatID, msgMirrorUsage)
			return
		}
		b.handleMirror(ctx, msg, strings.Fields(args)[0])
	case "summary":
		b.handleSummary(ctx, msg, args)
	case "history":
		b.handleHistory(ctx, chatID)
	case "subscribe":
		b.handleSubscribe(ctx, chatID, args)
	case "subscriptions":
		b.handleSubscriptions(ctx, chatID)
	case "unsubscribe":
		b.handleUnsubscribe(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

func chatOf(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}
