package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agentconsole/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestChat(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, map[string]any{"success": true, "response": "echo: " + body["message"]})
	})
	c := newTestServer(t, mux)

	got, err := c.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", got)
}

func TestChat_EmptyMessage(t *testing.T) {
	c := New("http://127.0.0.1:1")
	_, err := c.Chat(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestReset_FailureEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/reset", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": false, "error": "db down"})
	})
	c := newTestServer(t, mux)

	_, err := c.Reset(context.Background())
	var re *RequestError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "db down", re.Message)
	assert.Equal(t, "db down", ServerMessage(err, "fallback"))
}

func TestReset_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/reset", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true, "newSessionId": "s-2"})
	})
	c := newTestServer(t, mux)

	id, err := c.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s-2", id)
}

func TestRequestErrors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantMsg    string
	}{
		{
			name: "non-2xx with envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				writeJSON(w, map[string]any{"success": false, "error": "boom"})
			},
			wantStatus: 500,
			wantMsg:    "boom",
		},
		{
			name: "non-2xx plain body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad gateway", http.StatusBadGateway)
			},
			wantStatus: 502,
			wantMsg:    "bad gateway",
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, "{nope")
			},
			wantStatus: 200,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/initialize", tt.handler)
			c := newTestServer(t, mux)

			_, err := c.Initialize(context.Background())
			var re *RequestError
			require.True(t, errors.As(err, &re), "got %v", err)
			assert.Equal(t, tt.wantStatus, re.StatusCode)
			assert.Equal(t, tt.wantMsg, re.Message)
			if tt.wantMsg == "" {
				assert.Equal(t, "fallback", ServerMessage(err, "fallback"))
			}
		})
	}
}

func TestMemory_PresentVersusAbsentFeeds(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/memory", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"tasks":[],"commands":[{"command":"ls"}],
			"memories":[{"id":0,"category":"Message","content":"hi"},{"id":"m1","category":"Thought","thought":"x"}]}`)
	})
	c := newTestServer(t, mux)

	snap, err := c.Memory(context.Background())
	require.NoError(t, err)

	assert.True(t, snap.Tasks.Present)
	assert.Empty(t, snap.Tasks.Items)
	assert.True(t, snap.Commands.Present)
	assert.False(t, snap.Codes.Present)
	require.Len(t, snap.Memories.Items, 2)
	assert.Equal(t, types.ItemID("0"), snap.Memories.Items[0].ID)
	assert.Equal(t, types.ItemID("m1"), snap.Memories.Items[1].ID)
}

func TestTasksAndActions(t *testing.T) {
	var completed, deleted string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tasks", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"tasks":[{"id":1,"name":"Build","task":"go build","created_at":null}]}`)
	})
	mux.HandleFunc("POST /api/tasks/{id}/complete", func(w http.ResponseWriter, r *http.Request) {
		completed = r.PathValue("id")
		writeJSON(w, map[string]any{"success": true})
	})
	mux.HandleFunc("DELETE /api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		deleted = r.PathValue("id")
		writeJSON(w, map[string]any{"success": false, "error": "Task 7 not found"})
	})
	c := newTestServer(t, mux)
	ctx := context.Background()

	snap, err := c.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Tasks.Items, 1)
	assert.Equal(t, "Build", snap.Tasks.Items[0].Name)
	assert.False(t, snap.Memories.Present)

	require.NoError(t, c.CompleteTask(ctx, "1"))
	assert.Equal(t, "1", completed)

	err = c.DeleteTask(ctx, "7")
	assert.Error(t, err)
	assert.Equal(t, "7", deleted)
}

func TestSettingsAndStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/settings", func(w http.ResponseWriter, r *http.Request) {
		var s types.Settings
		require.NoError(t, json.NewDecoder(r.Body).Decode(&s))
		assert.Equal(t, "m", s.Model)
		writeJSON(w, map[string]any{"success": true, "message": "Agent updated"})
	})
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true, "status": "ready", "currentTask": "none", "model": "demo"})
	})
	c := newTestServer(t, mux)
	ctx := context.Background()

	msg, err := c.UpdateSettings(ctx, types.Settings{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "Agent updated", msg)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusInfo{Status: "ready", CurrentTask: "none", Model: "demo"}, st)
}

func TestUploadPaths_PreservesRelativeNames(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir", "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("A"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dir", "sub", "b.txt"), []byte("B"), 0644))

	got := map[string]string{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload", func(w http.ResponseWriter, r *http.Request) {
		mr, err := r.MultipartReader()
		require.NoError(t, err)
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			// Part.FileName strips directories; read the raw parameter instead.
			_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
			require.NoError(t, err)
			assert.Equal(t, "files", params["name"])
			data, _ := io.ReadAll(part)
			got[params["filename"]] = string(data)
		}
		writeJSON(w, map[string]any{"success": true, "uploaded_files": []string{"ok"}})
	})
	c := newTestServer(t, mux)

	_, err := c.UploadPaths(context.Background(), root, []string{"a.txt", "dir"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.txt": "A", "dir/sub/b.txt": "B"}, got)
}

func TestUpload_NoFiles(t *testing.T) {
	_, err := New("http://127.0.0.1:1").Upload(context.Background(), nil)
	assert.Error(t, err)
}

func TestOpenTaskStream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tasks/stream", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"tasks\":[]}\n\n")
	})
	c := newTestServer(t, mux)

	body, err := c.OpenTaskStream(context.Background())
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "data: "))
}

func TestSocketURL(t *testing.T) {
	assert.Equal(t, "ws://h:4000/ws/chat/client_1", SocketURL("ws://h:4000/", SocketChat, "client_1"))
	assert.Equal(t, "wss://h/ws/terminal/c", SocketURL("wss://h", SocketShell, "c"))
	assert.Equal(t, "wss://h/ws/jupyter/c", SocketURL("wss://h", SocketNotebook, "c"))
}
