package console

import (
	"fmt"
	"strings"

	"agentconsole/cmd/agentconsole/ui"
	"agentconsole/internal/session"
	"agentconsole/internal/transport"
	"agentconsole/internal/types"

	"github.com/charmbracelet/lipgloss"
)

const (
	headerHeight = 1
	footerHeight = 2
	inputHeight  = 5
)

// View renders the whole screen.
func (m Model) View() string {
	if !m.ready {
		return "Starting agent console…"
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.styles.Panel.Render(m.textarea.View()),
	)
	right := m.renderSidebar(max(m.width-m.viewport.Width-4, 10))

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	title := "Agent Console"
	if m.model != "" {
		title += " · " + m.model
	}
	return m.styles.Header.Width(max(m.width, 1)).Render(ui.Truncate(title, max(m.width-4, 1)))
}

func (m Model) renderFooter() string {
	indicator := m.styles.StatusStyle(m.status.State).Render("● " + string(m.status.State))
	if m.status.Busy() {
		indicator = m.spinner.View() + " " + indicator
	}
	line := fmt.Sprintf("%s · Current task: %s", indicator, m.status.Detail)

	var toastLine string
	if m.toast.text != "" {
		style := m.styles.Info
		switch m.toast.level {
		case session.NoticeSuccess:
			style = m.styles.Success
		case session.NoticeError:
			style = m.styles.Error
		}
		toastLine = style.Render(m.toast.text)
	}
	return m.styles.Footer.Render(ui.Truncate(line, max(m.width-2, 1)) + "\n" + toastLine)
}

func (m Model) renderHistory() string {
	width := m.viewport.Width
	blocks := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		key := ui.ComputeKey(e.msg.ID, e.text, e.done, width)
		blocks = append(blocks, m.cache.GetOrCompute(key, func() string {
			return m.renderEntry(e, width)
		}))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderEntry(e entry, width int) string {
	switch e.msg.Sender {
	case types.SenderUser:
		return m.styles.UserMessage.Render(ui.Wrap("You: "+e.msg.Text, width))
	case types.SenderAgent:
		return m.styles.AgentMessage.Render(ui.Wrap(e.text, width-2))
	default:
		return m.styles.SystemMessage.Render(ui.Wrap(e.text, width))
	}
}

func (m Model) renderSidebar(width int) string {
	panelHeight := max((m.height-headerHeight-footerHeight)/3-2, 3)
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderPanel("Tasks", m.renderTasks(width-4), width, panelHeight),
		m.renderPanel("Terminal", m.terminal+m.shell[transport.KindShell], width, panelHeight),
		m.renderPanel("Notebook", m.notebook+m.shell[transport.KindNotebook], width, panelHeight),
	)
}

func (m Model) renderPanel(title, body string, width, height int) string {
	body = ui.TailLines(strings.TrimRight(body, "\n"), height-1)
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		lines = append(lines, ui.Truncate(line, width-4))
	}
	content := m.styles.Title.Render(title) + "\n" + strings.Join(lines, "\n")
	return m.styles.Panel.Width(width - 2).Height(height).Render(content)
}

func (m Model) renderTasks(width int) string {
	if m.tasks.Empty() {
		if m.tasks.Placeholder != "" {
			return m.styles.Muted.Render(m.tasks.Placeholder)
		}
		return ""
	}
	var sb strings.Builder
	for i, row := range m.tasks.Rows {
		cursor := "  "
		if m.focus == FocusTasks && i == m.selected {
			cursor = "> "
		}
		line := fmt.Sprintf("%s%s [%s]", cursor, row.Name, row.Status)
		sb.WriteString(m.styles.TaskStyle(row.Status).Render(ui.Truncate(line, width)))
		if i < len(m.tasks.Rows)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
