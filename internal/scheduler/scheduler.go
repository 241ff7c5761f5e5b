// Package scheduler polls feed subscriptions and posts mirror links for new items.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/robfig/cron/v3"

	"mirror_bot/internal/bot"
	"mirror_bot/internal/fetcher"
	"mirror_bot/internal/filter"
	"mirror_bot/internal/mirror"
	"mirror_bot/internal/model"
	"mirror_bot/internal/storage"
)

// Sender is the interface for sending Telegram messages.
type Sender interface {
	SendMessage(chatID int64, text string)
}

// FeedSource downloads a parsed feed.
type FeedSource interface {
	Fetch(ctx context.Context, url string) (*gofeed.Feed, error)
}

// Resolver turns an article URL into its mirror URL.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

// Scheduler periodically checks subscriptions and sends mirror links.
type Scheduler struct {
	store    storage.Storage
	feeds    FeedSource
	resolver Resolver
	sender   Sender
	log      *slog.Logger
	pause    time.Duration
}

// New creates a Scheduler.
func New(store storage.Storage, feeds FeedSource, resolver Resolver, sender Sender, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		feeds:    feeds,
		resolver: resolver,
		sender:   sender,
		log:      log,
		pause:    50 * time.Millisecond,
	}
}

// Run checks due subscriptions once, then on every activation of the cron
// schedule, blocking until ctx is cancelled. Overlapping activations
// are skipped.
func (s *Scheduler) Run(ctx context.Context, schedule string) error {
	logger := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(schedule, func() { s.checkAll(ctx) }); err != nil {
		return fmt.Errorf("invalid poll schedule %q: %w", schedule, err)
	}

	s.checkAll(ctx)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *Scheduler) checkAll(ctx context.Context) {
	subs, err := s.store.ListDueSubscriptions(ctx)
	if err != nil {
		s.log.Error("list due subscriptions", "error", err)
		return
	}

	for _, sub := range subs {
		if ctx.Err() != nil {
			return
		}
		s.processSubscription(ctx, sub)
	}
}

func (s *Scheduler) processSubscription(ctx context.Context, sub model.Subscription) {
	s.log.Debug("checking subscription", "subscription_id", sub.ID, "name", sub.Name)

	feed, err := s.feeds.Fetch(ctx, sub.URL)
	if err != nil {
		s.log.Error("fetch feed", "subscription_id", sub.ID, "url", sub.URL, "error", err)
		s.updateLastCheck(ctx, &sub)
		return
	}

	rules, err := filter.Parse(sub.Keywords)
	if err != nil {
		s.log.Error("parse keywords", "subscription_id", sub.ID, "error", err)
		rules = nil
	}

	sent := 0
	for _, item := range fetcher.Items(feed, rules) {
		if ctx.Err() != nil {
			return
		}
		seen, err := s.store.IsSeen(ctx, sub.ID, item.GUID)
		if err != nil {
			s.log.Error("check seen", "subscription_id", sub.ID, "guid", item.GUID, "error", err)
			continue
		}
		if seen {
			continue
		}

		mirrorURL, err := s.resolver.Resolve(ctx, item.Link)
		switch {
		case err == nil:
			s.sender.SendMessage(sub.ChatID, bot.FormatFeedPost(sub.Name, item.Title, mirrorURL))
			sent++
		case errors.Is(err, mirror.ErrGenerationFailure):
			s.log.Warn("mirror generation failed, will retry", "subscription_id", sub.ID, "link", item.Link, "error", err)
			continue
		default:
			s.log.Info("skipping item", "subscription_id", sub.ID, "link", item.Link, "error", err)
		}

		if err := s.store.MarkSeen(ctx, sub.ID, item.GUID); err != nil {
			s.log.Error("mark seen", "subscription_id", sub.ID, "guid", item.GUID, "error", err)
		}

		if s.pause > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.pause):
			}
		}
	}

	if sent > 0 {
		s.log.Info("sent mirror links", "subscription_id", sub.ID, "name", sub.Name, "count", sent)
	}

	s.updateLastCheck(ctx, &sub)
}

func (s *Scheduler) updateLastCheck(ctx context.Context, sub *model.Subscription) {
	now := time.Now().UTC()
	sub.LastCheckAt = &now
	if err := s.store.UpdateSubscription(ctx, sub); err != nil {
		s.log.Error("update last check", "subscription_id", sub.ID, "error", err)
	}
}

// cronLogger routes cron's internal messages to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
