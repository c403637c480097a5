package console

import (
	"agentconsole/internal/reconcile"
	"agentconsole/internal/session"
	"agentconsole/internal/transport"
	"agentconsole/internal/types"

	tea "github.com/charmbracelet/bubbletea"
)

// Messages delivered from the controller to the model.
type (
	appendMsg   struct{ msg types.ChatMessage }
	frameMsg    struct{ id, text string }
	completeMsg struct{ id, rich string }
	clearMsg    struct{}
	statusMsg   struct{ status types.Status }
	modelMsg    struct{ name string }
	tasksMsg    struct{ list reconcile.TaskList }
	terminalMsg struct{ text string }
	notebookMsg struct{ text string }
	shellMsg    struct {
		kind transport.Kind
		text string
	}
	noticeMsg struct {
		level session.NoticeLevel
		text  string
	}
)

// Bridge implements session.View by forwarding every call into the
// bubbletea event loop.
type Bridge struct {
	send func(tea.Msg)
}

var _ session.View = (*Bridge)(nil)

// NewBridge forwards to send, usually (*tea.Program).Send.
func NewBridge(send func(tea.Msg)) *Bridge {
	return &Bridge{send: send}
}

func (b *Bridge) AppendMessage(msg types.ChatMessage) { b.send(appendMsg{msg}) }
func (b *Bridge) RevealFrame(id, text string)         { b.send(frameMsg{id, text}) }
func (b *Bridge) RevealComplete(id, rich string)      { b.send(completeMsg{id, rich}) }
func (b *Bridge) ClearHistory()                       { b.send(clearMsg{}) }
func (b *Bridge) SetStatus(status types.Status)       { b.send(statusMsg{status}) }
func (b *Bridge) SetModel(name string)                { b.send(modelMsg{name}) }
func (b *Bridge) SetTasks(list reconcile.TaskList)    { b.send(tasksMsg{list}) }
func (b *Bridge) SetTerminal(text string)             { b.send(terminalMsg{text}) }
func (b *Bridge) SetNotebook(text string)             { b.send(notebookMsg{text}) }

func (b *Bridge) AppendShell(kind transport.Kind, text string) {
	b.send(shellMsg{kind, text})
}

func (b *Bridge) Notice(level session.NoticeLevel, text string) {
	b.send(noticeMsg{level, text})
}
