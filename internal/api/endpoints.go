package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"agentconsole/internal/logging"
	"agentconsole/internal/types"
)

// =============================================================================
// CHAT / SESSION
// =============================================================================

type chatReply struct {
	envelope
	Response string `json:"response"`
	Status   string `json:"status,omitempty"`
}

// Chat sends one user message and returns the agent's reply text.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}
	var out chatReply
	if err := c.doJSON(ctx, "chat", http.MethodPost, "/api/chat", map[string]string{"message": message}, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

type resetReply struct {
	envelope
	NewSessionID string `json:"newSessionId"`
}

// Reset asks the backend for a fresh conversation and returns the new
// session id.
func (c *Client) Reset(ctx context.Context) (string, error) {
	var out resetReply
	if err := c.doJSON(ctx, "reset", http.MethodPost, "/api/reset", nil, &out); err != nil {
		return "", err
	}
	logging.API("conversation reset, new session %q", out.NewSessionID)
	return out.NewSessionID, nil
}

// StatusInfo is the backend's self-reported agent status.
type StatusInfo struct {
	Status        string `json:"status"`
	CurrentTask   string `json:"currentTask"`
	Model         string `json:"model"`
	SessionActive bool   `json:"sessionActive"`
}

type statusReply struct {
	envelope
	StatusInfo
}

// Status fetches the backend's agent status.
func (c *Client) Status(ctx context.Context) (StatusInfo, error) {
	var out statusReply
	if err := c.doJSON(ctx, "status", http.MethodGet, "/api/status", nil, &out); err != nil {
		return StatusInfo{}, err
	}
	return out.StatusInfo, nil
}

// =============================================================================
// SETTINGS
// =============================================================================

// UpdateSettings posts the agent settings and returns the backend message.
func (c *Client) UpdateSettings(ctx context.Context, s types.Settings) (string, error) {
	var out envelope
	if err := c.doJSON(ctx, "settings", http.MethodPost, "/api/settings", s, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Initialize (re)creates the agent on the backend.
func (c *Client) Initialize(ctx context.Context) (string, error) {
	var out envelope
	if err := c.doJSON(ctx, "initialize", http.MethodGet, "/api/initialize", nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

type memoryReply struct {
	envelope
	types.Snapshot
}

// Memory fetches the aggregate snapshot of tasks, commands, codes and memories.
// Feeds the backend leaves out stay absent in the result.
func (c *Client) Memory(ctx context.Context) (types.Snapshot, error) {
	var out memoryReply
	if err := c.doJSON(ctx, "memory", http.MethodGet, "/api/memory", nil, &out); err != nil {
		return types.Snapshot{}, err
	}
	return out.Snapshot, nil
}

type tasksReply struct {
	envelope
	Tasks types.Feed[types.TaskItem] `json:"tasks"`
}

// Tasks fetches the task list alone.
func (c *Client) Tasks(ctx context.Context) (types.Snapshot, error) {
	var out tasksReply
	if err := c.doJSON(ctx, "tasks", http.MethodGet, "/api/tasks", nil, &out); err != nil {
		return types.Snapshot{}, err
	}
	return types.Snapshot{Tasks: out.Tasks}, nil
}

// CompleteTask marks one task completed.
func (c *Client) CompleteTask(ctx context.Context, key string) error {
	var out envelope
	return c.doJSON(ctx, "complete task", http.MethodPost, "/api/tasks/"+url.PathEscape(key)+"/complete", nil, &out)
}

// DeleteTask removes one task.
func (c *Client) DeleteTask(ctx context.Context, key string) error {
	var out envelope
	return c.doJSON(ctx, "delete task", http.MethodDelete, "/api/tasks/"+url.PathEscape(key), nil, &out)
}
