package session

import (
	"context"
	"io"

	"agentconsole/internal/api"
	"agentconsole/internal/reconcile"
	"agentconsole/internal/transport"
	"agentconsole/internal/types"
)

// NoticeLevel grades a transient notification.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// View is whatever displays the console. Methods may be called from
// controller and renderer goroutines and must not block.
type View interface {
	// AppendMessage adds an empty message slot; reveal frames fill it.
	AppendMessage(msg types.ChatMessage)
	RevealFrame(id, text string)
	RevealComplete(id, rich string)
	ClearHistory()

	SetStatus(status types.Status)
	SetModel(name string)
	SetTasks(list reconcile.TaskList)
	SetTerminal(text string)
	SetNotebook(text string)
	AppendShell(kind transport.Kind, text string)
	Notice(level NoticeLevel, text string)
}

// Backend is the agent HTTP API the controller depends on.
type Backend interface {
	Chat(ctx context.Context, message string) (string, error)
	Reset(ctx context.Context) (string, error)
	Status(ctx context.Context) (api.StatusInfo, error)
	UpdateSettings(ctx context.Context, s types.Settings) (string, error)
	Initialize(ctx context.Context) (string, error)
	Memory(ctx context.Context) (types.Snapshot, error)
	Tasks(ctx context.Context) (types.Snapshot, error)
	CompleteTask(ctx context.Context, key string) error
	DeleteTask(ctx context.Context, key string) error
	UploadPaths(ctx context.Context, root string, paths []string) ([]string, error)
	OpenTaskStream(ctx context.Context) (io.ReadCloser, error)
}

// SettingsStore persists the settings object.
type SettingsStore interface {
	LoadSettings(ctx context.Context) (types.Settings, bool, error)
	SaveSettings(ctx context.Context, s types.Settings) error
}

// Socket is one transport channel.
type Socket interface {
	Open(ctx context.Context, url string) error
	Send(payload string) error
	Close() error
}

// SocketFactory builds a socket for kind.
type SocketFactory func(kind transport.Kind, h transport.Handlers) Socket

// DefaultSockets builds gorilla-backed transport channels.
func DefaultSockets(kind transport.Kind, h transport.Handlers) Socket {
	return transport.New(kind, h)
}
