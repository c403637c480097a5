package types

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
	SenderAgent  Sender = "agent"
)

// ChatMessage is view-local and lives only for the page session.
// Ordering is arrival order; the history is append-only.
type ChatMessage struct {
	ID     string
	Sender Sender
	Text   string
	At     time.Time
}

// NewChatMessage stamps a message with a fresh id.
func NewChatMessage(sender Sender, text string) ChatMessage {
	return ChatMessage{
		ID:     uuid.NewString(),
		Sender: sender,
		Text:   text,
		At:     time.Now(),
	}
}

// Session is the connection identity for one console instance.
type Session struct {
	ID        string
	ClientID  string
	Connected bool
}

// NewClientID builds the socket client id used in channel paths.
func NewClientID() string {
	return "client_" + uuid.NewString()
}

// Settings is the agent configuration the user edits and persists locally.
type Settings struct {
	Model       string  `json:"model"`
	APIKey      string  `json:"apiKey"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}
