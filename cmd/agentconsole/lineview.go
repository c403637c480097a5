package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"agentconsole/internal/reconcile"
	"agentconsole/internal/session"
	"agentconsole/internal/transport"
	"agentconsole/internal/types"
)

// lineView prints controller output as plain lines. Messages are printed
// once their reveal completes.
type lineView struct {
	mu      sync.Mutex
	out     io.Writer
	senders map[string]types.Sender
	status  types.Status
}

var _ session.View = (*lineView)(nil)

func newLineView(out io.Writer) *lineView {
	return &lineView{out: out, senders: make(map[string]types.Sender)}
}

func (v *lineView) printf(format string, args ...any) {
	fmt.Fprintf(v.out, format, args...)
}

func (v *lineView) AppendMessage(msg types.ChatMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.senders[msg.ID] = msg.Sender
}

func (v *lineView) RevealFrame(string, string) {}

func (v *lineView) RevealComplete(id, rich string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	sender, ok := v.senders[id]
	if !ok {
		return
	}
	delete(v.senders, id)
	if sender == types.SenderUser {
		return
	}
	v.printf("[%s] %s\n", sender, strings.TrimSpace(rich))
}

func (v *lineView) ClearHistory() {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.senders)
	v.printf("--- history cleared ---\n")
}

func (v *lineView) SetStatus(status types.Status) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if status == v.status {
		return
	}
	v.status = status
	v.printf("status: %s (current task: %s)\n", status.State, status.Detail)
}

func (v *lineView) SetModel(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.printf("model: %s\n", name)
}

func (v *lineView) SetTasks(list reconcile.TaskList) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if list.Empty() {
		v.printf("tasks: %s\n", list.Placeholder)
		return
	}
	v.printf("tasks:\n")
	for _, row := range list.Rows {
		v.printf("  %-6s %-10s %s\n", row.Key, row.Status, row.Name)
	}
}

func (v *lineView) SetTerminal(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.printf("terminal:\n%s", indent(text))
}

func (v *lineView) SetNotebook(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.printf("notebook:\n%s", indent(text))
}

func (v *lineView) AppendShell(kind transport.Kind, text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.printf("[%s] %s", kind, text)
	if !strings.HasSuffix(text, "\n") {
		v.printf("\n")
	}
}

func (v *lineView) Notice(level session.NoticeLevel, text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.printf("(%s) %s\n", level, text)
}

func indent(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	return "  " + strings.Join(lines, "\n  ") + "\n"
}
