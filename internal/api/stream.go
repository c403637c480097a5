package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// OpenTaskStream opens the server-sent task stream. The caller owns the
// returned body and must close it.
func (c *Client) OpenTaskStream(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tasks/stream", nil)
	if err != nil {
		return nil, &RequestError{Op: "task stream", Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// The stream is long-lived; the shared client's timeout must not cut it.
	hc := *c.client
	hc.Timeout = 0

	resp, err := hc.Do(req)
	if err != nil {
		return nil, &RequestError{Op: "task stream", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &RequestError{Op: "task stream", StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// SocketKind names one of the backend's raw text socket channels.
type SocketKind string

const (
	SocketChat     SocketKind = "chat"
	SocketShell    SocketKind = "terminal"
	SocketNotebook SocketKind = "jupyter"
)

// SocketURL builds ws(s)://host/ws/{kind}/{clientID} from a websocket base.
func SocketURL(wsBase string, kind SocketKind, clientID string) string {
	return strings.TrimRight(wsBase, "/") + "/ws/" + string(kind) + "/" + url.PathEscape(clientID)
}
