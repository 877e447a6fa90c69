package share

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var newBot = func(token string) (sender, error) {
	return tgbotapi.NewBotAPI(token)
}

// Telegram sends the meme as a photo to one chat. The bot connects on first
// use.
type Telegram struct {
	token  string
	chatID int64

	once sync.Once
	bot  sender
	err  error
}

// NewTelegram creates a target posting to chatID with the bot token.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("telegram: missing bot token")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram: missing chat id")
	}
	return &Telegram{token: token, chatID: chatID}, nil
}

// Share implements Target.
func (t *Telegram) Share(ctx context.Context, p Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.once.Do(func() { t.bot, t.err = newBot(t.token) })
	if t.err != nil {
		return fmt.Errorf("telegram connect: %w", t.err)
	}
	name := p.Location.Name()
	if name == "" || name == "." {
		name = "meme.png"
	}
	photo := tgbotapi.NewPhoto(t.chatID, tgbotapi.FileBytes{Name: name, Bytes: p.Data})
	photo.Caption = caption(p)
	if _, err := t.bot.Send(photo); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func caption(p Payload) string {
	parts := make([]string, 0, 2)
	for _, s := range []string{p.Title, p.Text} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
