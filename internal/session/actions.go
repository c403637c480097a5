package session

import (
	"context"

	"agentconsole/internal/transport"
	"agentconsole/internal/types"
)

// Connect opens a new connection: fresh client id, the three socket
// channels, and a status query. Any previous connection is torn down first.
func (c *Controller) Connect(ctx context.Context) {
	c.Handle(connectIntent{ctx: ctx})
}

// Disconnect closes every channel, cancels in-flight requests and stops Run.
// Replies that arrive afterwards are dropped.
func (c *Controller) Disconnect() {
	c.Handle(disconnectIntent{})
}

// SendMessage sends one user chat message. Blank input is ignored.
func (c *Controller) SendMessage(text string) {
	c.Handle(sendIntent{text: text})
}

// Reset asks the backend for a fresh conversation.
func (c *Controller) Reset() {
	c.Handle(resetIntent{})
}

// CompleteTask marks a task completed on the backend.
func (c *Controller) CompleteTask(key string) {
	c.Handle(taskIntent{action: TaskComplete, key: key})
}

// DeleteTask removes a task on the backend.
func (c *Controller) DeleteTask(key string) {
	c.Handle(taskIntent{action: TaskDelete, key: key})
}

// RefreshTasks fetches the task list once.
func (c *Controller) RefreshTasks() {
	c.Handle(refreshIntent{})
}

// SaveSettings persists s locally and pushes it to the backend.
func (c *Controller) SaveSettings(s types.Settings) {
	c.Handle(settingsIntent{settings: s})
}

// Upload sends files or directories under root to the agent workspace.
func (c *Controller) Upload(root string, paths []string) {
	c.Handle(uploadIntent{root: root, paths: paths})
}

// SendShell writes raw input to the shell or notebook channel.
func (c *Controller) SendShell(kind transport.Kind, data string) error {
	c.stateMu.RLock()
	clientID := c.session.ClientID
	c.stateMu.RUnlock()
	if clientID == "" {
		return ErrNoClientID
	}

	c.sockMu.Lock()
	sock := c.sockets[kind]
	c.sockMu.Unlock()
	if sock == nil {
		return transport.ErrNotOpen
	}
	return sock.Send(data)
}
