// Package channel implements the Telegram transport: it owns update
// delivery (long poll or webhook), normalizes platform updates into domain
// events, and exposes the outbound chat surface the pipeline sends through.
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"triagebot/internal/domain"
)

const (
	telegramMaxMsgLen  = 4000
	telegramPollJitter = 3 * time.Second
)

// allowedUpdates lists the update types the pipeline consumes. Reaction
// updates are opt-in on the Bot API; without this the platform never sends
// them.
var allowedUpdates = []string{"message", "message_reaction"}

// Telegram connects the bot account to the pipeline. It implements
// domain.ChatAPI for outbound calls and publishes normalized events inbound.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	bus    domain.EventBus
	logger *slog.Logger
}

type TelegramConfig struct {
	Token  string
	Logger *slog.Logger
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	t := &Telegram{bot: bot, logger: cfg.Logger}
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)
	return t, nil
}

func (t *Telegram) Name() string { return "telegram" }

// Start begins long polling for updates. The v5 library's typed Update
// struct predates reaction updates, so polling goes through the raw
// getUpdates endpoint and decoding is done here.
func (t *Telegram) Start(ctx context.Context, bus domain.EventBus) error {
	t.bus = bus

	if _, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		t.logger.Warn("could not clear webhook before polling", "err", err)
	}

	t.logger.Info("telegram polling started")

	offset := 0
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram polling stopping")
			return nil
		default:
		}

		updates, err := t.fetchUpdates(offset)
		if err != nil {
			t.logger.Error("getUpdates failed, backing off", "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(telegramPollJitter):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			t.dispatch(u)
		}
	}
}

func (t *Telegram) fetchUpdates(offset int) ([]rawUpdate, error) {
	params := tgbotapi.Params{}
	params.AddNonZero("offset", offset)
	params.AddNonZero("timeout", 30)
	if err := params.AddInterface("allowed_updates", allowedUpdates); err != nil {
		return nil, err
	}

	resp, err := t.bot.MakeRequest("getUpdates", params)
	if err != nil {
		return nil, err
	}

	var updates []rawUpdate
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}

// RegisterWebhook points the bot at the given public URL and restricts
// delivery to the update types the pipeline consumes.
func (t *Telegram) RegisterWebhook(publicURL string) error {
	wh, err := tgbotapi.NewWebhook(publicURL)
	if err != nil {
		return fmt.Errorf("webhook config: %w", err)
	}
	wh.AllowedUpdates = allowedUpdates
	if _, err := t.bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	t.logger.Info("webhook registered", "url", publicURL)
	return nil
}

// dispatch normalizes one raw update and publishes it on the bus.
func (t *Telegram) dispatch(u rawUpdate) {
	switch {
	case u.MessageReaction != nil:
		t.bus.Publish(domain.Event{
			Kind:     domain.EventReaction,
			Reaction: normalizeReaction(u.MessageReaction),
		})

	case u.Message != nil && u.Message.Text != "":
		msg := normalizeMessage(u.Message)
		if cmd, ok := t.commandName(msg.Text); ok {
			t.bus.Publish(domain.Event{Kind: domain.EventCommand, Command: cmd, Message: msg})
			return
		}
		t.bus.Publish(domain.Event{Kind: domain.EventMessage, Message: msg})
	}
}

// commandName extracts "status" from "/status" or "/status@botname".
func (t *Telegram) commandName(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	cmd := strings.Fields(text)[0][1:]
	if at := strings.Index(cmd, "@"); at >= 0 {
		if !strings.EqualFold(cmd[at+1:], t.bot.Self.UserName) {
			return "", false
		}
		cmd = cmd[:at]
	}
	return cmd, cmd != ""
}

// NotifyOperators sends text to each operator, best-effort.
func (t *Telegram) NotifyOperators(ctx context.Context, operatorIDs []int64, text string) {
	sent := 0
	for _, id := range operatorIDs {
		if err := t.SendMessage(ctx, id, text, domain.ParsePlain); err != nil {
			t.logger.Warn("failed to notify operator", "operator_id", id, "err", err)
			continue
		}
		sent++
	}
	t.logger.Info("operator notifications sent", "successful", sent, "total", len(operatorIDs))
}

// SendMessage sends text, chunked to Telegram's message length limit.
// Unlike a generic chat client there is no fallback here: the delivery
// engine owns the formatting fallback chain, so errors surface verbatim.
func (t *Telegram) SendMessage(ctx context.Context, chatID int64, text string, mode domain.ParseMode) error {
	return t.send(ctx, chatID, 0, text, mode)
}

// ReplyTo sends text as a reply to a specific message.
func (t *Telegram) ReplyTo(ctx context.Context, chatID int64, messageID int, text string, mode domain.ParseMode) error {
	return t.send(ctx, chatID, messageID, text, mode)
}

func (t *Telegram) send(ctx context.Context, chatID int64, replyTo int, text string, mode domain.ParseMode) error {
	for len(text) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk := text
		if len(chunk) > telegramMaxMsgLen {
			cutAt := strings.LastIndex(chunk[:telegramMaxMsgLen], "\n")
			if cutAt < telegramMaxMsgLen/2 {
				cutAt = telegramMaxMsgLen
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}

		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = string(mode)
		msg.ReplyToMessageID = replyTo
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		// Only the first chunk replies; followups are regular messages.
		replyTo = 0
	}
	return nil
}

// SendTyping emits the typing chat action.
func (t *Telegram) SendTyping(ctx context.Context, chatID int64) error {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := t.bot.Request(action); err != nil {
		return fmt.Errorf("telegram chat action: %w", err)
	}
	return nil
}

// DeleteMessage removes a message from a chat.
func (t *Telegram) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	del := tgbotapi.NewDeleteMessage(chatID, messageID)
	if _, err := t.bot.Request(del); err != nil {
		return fmt.Errorf("telegram delete: %w", err)
	}
	return nil
}
