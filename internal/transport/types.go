// Package transport holds the chat-platform neutral types shared by the
// Telegram adapter, the broadcast engine and the command router.
package transport

import "context"

type Update struct {
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int
	FromID       int64
	FromUsername string
	Text         string
	IsPrivate    bool
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Link renders as a single inline URL button under the message.
type Link struct {
	Label string
	URL   string
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	Link           *Link
}

// Media points at a photo or video either by platform file id or by URL.
// Exactly one field is set.
type Media struct {
	FileID string
	URL    string
}

func (m Media) IsZero() bool { return m.FileID == "" && m.URL == "" }

func (m Media) String() string {
	if m.FileID != "" {
		return "file_id:" + m.FileID
	}
	return m.URL
}

// FileMeta is what the platform reports about a stored file.
type FileMeta struct {
	FileID string
	Path   string
	Size   int64
}

// Sender is the outbound half of an adapter.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	SendPhoto(ctx context.Context, to ChatTarget, media Media, caption string, opt *SendOptions) (MessageRef, error)
	SendVideo(ctx context.Context, to ChatTarget, media Media, caption string, opt *SendOptions) (MessageRef, error)
}

// FileServer exposes the platform's file storage.
type FileServer interface {
	FileMetadata(ctx context.Context, fileID string) (FileMeta, error)
	// FileURL builds a download URL for a path returned by FileMetadata.
	FileURL(path string) string
	// IsFileURL reports whether raw points at the platform's own file host.
	IsFileURL(raw string) bool
}

type Adapter interface {
	Sender
	FileServer

	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error
}

type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is implemented by adapters that can publish a command menu.
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
