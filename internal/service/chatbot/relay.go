package chatbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/oggyb/anonchat/internal/matchmaking"
	"github.com/oggyb/anonchat/internal/telegram"
)

// Sender is the outgoing side of the Telegram bot.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string, kb *telegram.Keyboard) error
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Relay delivers engine traffic to Telegram users. Telegram private chat ids
// equal user ids, so a user id is used as the destination chat.
type Relay struct {
	sender Sender
}

func NewRelay(sender Sender) *Relay {
	return &Relay{sender: sender}
}

func (r *Relay) SendText(ctx context.Context, to int64, text string) error {
	return reachability(r.sender.Send(ctx, to, text, nil))
}

func (r *Relay) Notify(ctx context.Context, to int64, n matchmaking.Notice) error {
	text, kb, err := renderNotice(n)
	if err != nil {
		return err
	}
	return reachability(r.sender.Send(ctx, to, text, kb))
}

// reachability marks users Telegram will never deliver to again.
func reachability(err error) error {
	if errors.Is(err, telegram.ErrBlocked) {
		return errors.Join(matchmaking.ErrUnreachable, err)
	}
	return err
}

func renderNotice(n matchmaking.Notice) (string, *telegram.Keyboard, error) {
	switch n.Kind {
	case matchmaking.NoticeMatched:
		if n.Initiator {
			return msgMatchedInitiator, chattingMenu(), nil
		}
		return msgMatchedWaiting, chattingMenu(), nil
	case matchmaking.NoticeEscalated:
		return msgEscalated(n.Filter), searchingMenu(), nil
	case matchmaking.NoticeCompanionLeft:
		return msgCompanionLeft, mainMenu(), nil
	case matchmaking.NoticeSearchFailed:
		return msgSearchFailed, mainMenu(), nil
	default:
		return "", nil, fmt.Errorf("unknown notice kind %q", n.Kind)
	}
}
