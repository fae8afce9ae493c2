package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrBlocked is returned when Telegram refuses delivery to a user for good
// (bot blocked, chat deleted, user deactivated).
var ErrBlocked = errors.New("telegram: recipient unreachable")

// Button is one inline button.
type Button struct {
	Text string
	Data string
}

// Keyboard is the markup attached to an outgoing message. At most one of
// Reply, Inline and Remove is used, in that order.
type Keyboard struct {
	Reply  [][]string
	Inline [][]Button
	Remove bool
}

type CommandUpdate struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	Command   string
}

type TextUpdate struct {
	ChatID   int64
	UserID   int64
	Username string
	Text     string
}

type CallbackUpdate struct {
	CallbackID string
	ChatID     int64
	MessageID  int
	UserID     int64
	Username   string
	Data       string
}

type Handlers struct {
	OnCommand  func(context.Context, CommandUpdate) error
	OnText     func(context.Context, TextUpdate) error
	OnCallback func(context.Context, CallbackUpdate) error
}

type Bot struct {
	api *tgbotapi.BotAPI
	log *slog.Logger
}

func NewBot(token string, log *slog.Logger) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}

	api, err := tgbotapi.NewBotAPI(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}
	log.Info("telegram bot authorized", "username", api.Self.UserName)

	return &Bot{api: api, log: log}, nil
}

// Listen long-polls for updates until ctx is done. A failing handler is
// logged and does not stop the loop.
func (b *Bot) Listen(ctx context.Context, handlers Handlers) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := b.api.GetUpdatesChan(updateCfg)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := dispatch(ctx, update, handlers); err != nil {
				b.log.Error("telegram update failed", "update_id", update.UpdateID, "err", err)
			}
		}
	}
}

func dispatch(ctx context.Context, update tgbotapi.Update, handlers Handlers) error {
	if msg := update.Message; msg != nil && msg.From != nil {
		// private chats only; group traffic is never relayed
		if msg.Chat != nil && !msg.Chat.IsPrivate() {
			return nil
		}
		if msg.IsCommand() {
			if handlers.OnCommand == nil {
				return nil
			}
			return handlers.OnCommand(ctx, CommandUpdate{
				ChatID:    msg.Chat.ID,
				UserID:    msg.From.ID,
				Username:  msg.From.UserName,
				FirstName: msg.From.FirstName,
				Command:   msg.Command(),
			})
		}

		text := strings.TrimSpace(msg.Text)
		if text != "" && handlers.OnText != nil {
			return handlers.OnText(ctx, TextUpdate{
				ChatID:   msg.Chat.ID,
				UserID:   msg.From.ID,
				Username: msg.From.UserName,
				Text:     text,
			})
		}
		return nil
	}

	if cb := update.CallbackQuery; cb != nil && cb.From != nil && handlers.OnCallback != nil {
		out := CallbackUpdate{
			CallbackID: cb.ID,
			UserID:     cb.From.ID,
			Username:   cb.From.UserName,
			Data:       cb.Data,
		}
		if cb.Message != nil {
			out.ChatID = cb.Message.Chat.ID
			out.MessageID = cb.Message.MessageID
		}
		return handlers.OnCallback(ctx, out)
	}
	return nil
}

func (b *Bot) Send(ctx context.Context, chatID int64, text string, kb *Keyboard) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if chatID == 0 {
		return fmt.Errorf("chat id is required")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if markup := Markup(kb); markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		return classify(fmt.Errorf("send telegram message: %w", err))
	}

	return nil
}

// EditText replaces the text of a message the bot sent earlier, dropping its
// inline keyboard.
func (b *Bot) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 || messageID == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := b.api.Request(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		return fmt.Errorf("edit telegram message: %w", err)
	}

	return nil
}

func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if strings.TrimSpace(callbackID) == "" || ctx.Err() != nil {
		return nil
	}

	cfg := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	return nil
}

// Markup converts kb into the Bot API reply markup, or nil for no markup.
func Markup(kb *Keyboard) any {
	switch {
	case kb == nil:
		return nil
	case len(kb.Reply) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Reply))
		for _, row := range kb.Reply {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, label := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, buttons)
		}
		markup := tgbotapi.NewReplyKeyboard(rows...)
		markup.ResizeKeyboard = true
		return markup
	case len(kb.Inline) > 0:
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Inline))
		for _, row := range kb.Inline {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, btn := range row {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
			}
			rows = append(rows, buttons)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	case kb.Remove:
		return tgbotapi.NewRemoveKeyboard(true)
	}
	return nil
}

// classify marks permanent delivery refusals with ErrBlocked.
func classify(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 403 {
		return errors.Join(ErrBlocked, err)
	}
	return err
}
