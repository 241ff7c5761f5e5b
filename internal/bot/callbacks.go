package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback actions. Callback data has the form "action:id".
const (
	actionSummary      = "summary"
	actionUnsubConfirm = "unsub_confirm"
	actionUnsub        = "unsub"
	actionNoop         = "noop"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.From == nil {
		return
	}
	data := cb.Data
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Request(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 {
		return
	}

	action := parts[0]
	idStr := parts[1]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return
	}

	b.log.Info("callback",
		"action", action,
		"id", id,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	if action != actionNoop && !b.cfg.IsChatAllowed(chatID) {
		b.reply(chatID, msgChatNotAllowed)
		return
	}

	switch action {
	case actionSummary:
		if b.summarizer == nil {
			b.reply(chatID, msgSummariesDisabled)
			return
		}
		m, err := b.store.GetMirror(ctx, id)
		if err != nil || m.ChatID != chatID {
			b.reply(chatID, "This link is no longer available.")
			return
		}
		b.summarize(ctx, chatID, cb.From.ID, m.OriginalURL)
	case actionUnsubConfirm:
		sub, err := b.store.GetSubscription(ctx, id)
		if err != nil || sub.ChatID != chatID {
			b.reply(chatID, fmt.Sprintf("Subscription #%d not found.", id))
			return
		}
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Remove subscription #%d \"%s\"?", id, sub.Name))
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Yes, remove", fmt.Sprintf("%s:%d", actionUnsub, id)),
				tgbotapi.NewInlineKeyboardButtonData("Cancel", actionNoop+":0"),
			),
		)
		if _, err := b.api.Send(msg); err != nil {
			b.log.Error("send unsubscribe confirmation", "error", err)
		}
	case actionUnsub:
		b.handleUnsubscribe(ctx, chatID, idStr)
	}
}
