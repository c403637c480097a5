package session

import (
	"context"

	"agentconsole/internal/api"
	"agentconsole/internal/transport"
	"agentconsole/internal/types"
)

// Event is anything fed to Controller.Handle.
type Event interface {
	eventName() string
}

// generational events belong to one connection. They are dropped when the
// controller has since disconnected or reconnected.
type generational interface {
	generation() uint64
}

// SnapshotEvent carries a snapshot from a monitor.
type SnapshotEvent struct {
	Gen      uint64
	Snapshot types.Snapshot
}

// ChatReplyEvent completes an outbound chat message.
type ChatReplyEvent struct {
	Gen   uint64
	Reply string
	Err   error
}

// ResetReplyEvent completes a conversation reset.
type ResetReplyEvent struct {
	Gen       uint64
	SessionID string
	Err       error
}

// TaskAction names a task mutation.
type TaskAction string

const (
	TaskComplete TaskAction = "complete"
	TaskDelete   TaskAction = "delete"
)

// TaskActionEvent completes a task mutation.
type TaskActionEvent struct {
	Gen    uint64
	Action TaskAction
	Key    string
	Err    error
}

// SettingsReplyEvent completes a settings update.
type SettingsReplyEvent struct {
	Gen      uint64
	Settings types.Settings
	Message  string
	Err      error
}

// InitializeReplyEvent completes an agent initialization.
type InitializeReplyEvent struct {
	Gen uint64
	Err error
}

// UploadReplyEvent completes a workspace upload.
type UploadReplyEvent struct {
	Gen   uint64
	Files []string
	Err   error
}

// StatusReplyEvent completes the status query issued on connect.
type StatusReplyEvent struct {
	Gen  uint64
	Info api.StatusInfo
	Err  error
}

// ChannelEventKind is a socket lifecycle step.
type ChannelEventKind string

const (
	ChannelOpened  ChannelEventKind = "opened"
	ChannelMessage ChannelEventKind = "message"
	ChannelClosed  ChannelEventKind = "closed"
	ChannelFailed  ChannelEventKind = "failed"
)

// ChannelEvent reports socket activity.
type ChannelEvent struct {
	Gen     uint64
	Channel transport.Kind
	Kind    ChannelEventKind
	Payload string
	Err     error
}

// NoticeEvent surfaces a system message.
type NoticeEvent struct {
	Text string
}

func (SnapshotEvent) eventName() string        { return "snapshot" }
func (ChatReplyEvent) eventName() string       { return "chat reply" }
func (ResetReplyEvent) eventName() string      { return "reset reply" }
func (TaskActionEvent) eventName() string      { return "task action" }
func (SettingsReplyEvent) eventName() string   { return "settings reply" }
func (InitializeReplyEvent) eventName() string { return "initialize reply" }
func (UploadReplyEvent) eventName() string     { return "upload reply" }
func (StatusReplyEvent) eventName() string     { return "status reply" }
func (ChannelEvent) eventName() string         { return "channel" }
func (NoticeEvent) eventName() string          { return "notice" }

func (e SnapshotEvent) generation() uint64        { return e.Gen }
func (e ChatReplyEvent) generation() uint64       { return e.Gen }
func (e ResetReplyEvent) generation() uint64      { return e.Gen }
func (e TaskActionEvent) generation() uint64      { return e.Gen }
func (e SettingsReplyEvent) generation() uint64   { return e.Gen }
func (e InitializeReplyEvent) generation() uint64 { return e.Gen }
func (e UploadReplyEvent) generation() uint64     { return e.Gen }
func (e StatusReplyEvent) generation() uint64     { return e.Gen }
func (e ChannelEvent) generation() uint64         { return e.Gen }

// User intents. They enter through Handle like every other event so that
// all state changes are serialised.
type (
	connectIntent    struct{ ctx context.Context }
	disconnectIntent struct{}
	sendIntent       struct{ text string }
	resetIntent      struct{}
	taskIntent       struct {
		action TaskAction
		key    string
	}
	refreshIntent  struct{}
	settingsIntent struct{ settings types.Settings }
	uploadIntent   struct {
		root  string
		paths []string
	}
)

func (connectIntent) eventName() string    { return "connect" }
func (disconnectIntent) eventName() string { return "disconnect" }
func (sendIntent) eventName() string       { return "send" }
func (resetIntent) eventName() string      { return "reset" }
func (taskIntent) eventName() string       { return "task" }
func (refreshIntent) eventName() string    { return "refresh" }
func (settingsIntent) eventName() string   { return "settings" }
func (uploadIntent) eventName() string     { return "upload" }
