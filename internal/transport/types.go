package transport

import "context"

// Update is one inbound event from the chat platform.
type Update struct {
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	FromFirst    string
	Text         string
	IsGroup      bool
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// BotCommand is a single bot command menu entry.
type BotCommand struct {
	Command     string
	Description string
}

// Adapter abstracts the chat platform. The Telegram implementation lives
// in internal/adapters/telegram.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, chatID int64, text string, opt *SendOptions) error
	SetMenuCommands(ctx context.Context, cmds []BotCommand) error
}
