// Package console is the interactive terminal front end: a bubbletea model
// that displays what the session controller reports and forwards user input
// back to it.
//
// Layout:
//   - left: chat history (viewport) over the input box (textarea)
//   - right: task list, terminal log, notebook log
package console

import (
	"strings"
	"time"

	"agentconsole/cmd/agentconsole/ui"
	"agentconsole/internal/logging"
	"agentconsole/internal/reconcile"
	"agentconsole/internal/session"
	"agentconsole/internal/transport"
	"agentconsole/internal/types"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Actions is the part of the session controller the console drives.
type Actions interface {
	SendMessage(text string)
	Reset()
	CompleteTask(key string)
	DeleteTask(key string)
	Upload(root string, paths []string)
	SendShell(kind transport.Kind, data string) error
}

// Config tunes the console.
type Config struct {
	SplitRatio      float64
	ScrollbackLines int
	Theme           string
	Workspace       string
	ToastDuration   time.Duration
}

// Focus is the panel receiving key input.
type Focus int

const (
	FocusInput Focus = iota
	FocusTasks
)

// entry is one chat message as displayed.
type entry struct {
	msg  types.ChatMessage
	text string // current reveal frame, or the rich form once done
	done bool
}

type toast struct {
	level session.NoticeLevel
	text  string
	seq   int
}

type toastExpiredMsg struct{ seq int }

type resizedMsg struct{ width, height int }

// Model is the console's bubbletea model.
type Model struct {
	actions Actions
	cfg     Config
	styles  ui.Styles

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	cache    *ui.RenderCache
	resize   *ui.ResizeDebouncer
	send     func(tea.Msg)

	width, height int
	ready         bool
	focus         Focus

	entries []entry
	index   map[string]int

	status   types.Status
	model    string
	tasks    reconcile.TaskList
	selected int
	terminal string
	notebook string
	shell    map[transport.Kind]string
	toast    toast
}

// New creates the model. send lets the model post messages to itself from
// timers; pass (*tea.Program).Send once the program exists, or nil.
func New(actions Actions, cfg Config, send func(tea.Msg)) Model {
	if cfg.SplitRatio <= 0 || cfg.SplitRatio >= 1 {
		cfg.SplitRatio = 0.6
	}
	if cfg.ScrollbackLines <= 0 {
		cfg.ScrollbackLines = 2000
	}
	if cfg.ToastDuration <= 0 {
		cfg.ToastDuration = 3 * time.Second
	}

	styles := ui.NewStyles(ui.DetectTheme(cfg.Theme))

	ta := textarea.New()
	ta.Placeholder = "Type a message… (Enter to send, /help for commands)"
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return Model{
		actions:  actions,
		cfg:      cfg,
		styles:   styles,
		textarea: ta,
		spinner:  sp,
		cache:    ui.NewRenderCache(512),
		resize:   ui.NewResizeDebouncer(ui.DefaultResizeDuration),
		send:     send,
		index:    make(map[string]int),
		status:   types.Status{State: types.StateDisconnected, Detail: types.DetailNone},
		shell:    make(map[transport.Kind]string),
	}
}

// SetSender wires the program's Send after construction.
func (m *Model) SetSender(send func(tea.Msg)) {
	m.send = send
}

// Init starts the cursor blink and spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		if !m.ready || m.send == nil {
			m.layout(msg.Width, msg.Height)
			return m, nil
		}
		send := m.send
		m.resize.Resize(msg.Width, msg.Height, func(w, h int) { send(resizedMsg{w, h}) })
		return m, nil

	case resizedMsg:
		m.layout(msg.width, msg.height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case appendMsg:
		m.index[msg.msg.ID] = len(m.entries)
		m.entries = append(m.entries, entry{msg: msg.msg})
		m.refreshHistory()
	case frameMsg:
		if i, ok := m.index[msg.id]; ok && !m.entries[i].done {
			m.entries[i].text = msg.text
			m.refreshHistory()
		}
	case completeMsg:
		if i, ok := m.index[msg.id]; ok {
			m.entries[i].text = msg.rich
			m.entries[i].done = true
			m.refreshHistory()
		}
	case clearMsg:
		m.entries = nil
		clear(m.index)
		m.cache.Clear()
		m.refreshHistory()

	case statusMsg:
		m.status = msg.status
	case modelMsg:
		m.model = msg.name
	case tasksMsg:
		m.tasks = msg.list
		if m.selected >= len(m.tasks.Rows) {
			m.selected = max(len(m.tasks.Rows)-1, 0)
		}
	case terminalMsg:
		m.terminal = msg.text
	case notebookMsg:
		m.notebook = msg.text
	case shellMsg:
		m.shell[msg.kind] = ui.TailLines(m.shell[msg.kind]+msg.text, m.cfg.ScrollbackLines)

	case noticeMsg:
		m.toast = toast{level: msg.level, text: msg.text, seq: m.toast.seq + 1}
		seq := m.toast.seq
		return m, tea.Tick(m.cfg.ToastDuration, func(time.Time) tea.Msg { return toastExpiredMsg{seq} })
	case toastExpiredMsg:
		if msg.seq == m.toast.seq {
			m.toast = toast{seq: m.toast.seq}
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.resize.Cancel()
		return m, tea.Quit
	case tea.KeyTab:
		if m.focus == FocusInput {
			m.focus = FocusTasks
			m.textarea.Blur()
		} else {
			m.focus = FocusInput
			m.textarea.Focus()
		}
		return m, nil
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.focus == FocusTasks {
		return m.handleTaskKey(msg)
	}

	if msg.Type == tea.KeyEnter && !msg.Alt {
		text := m.textarea.Value()
		m.textarea.Reset()
		return m, m.submit(text)
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) handleTaskKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.tasks.Rows
	switch msg.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(rows)-1 {
			m.selected++
		}
	case "c":
		if m.selected < len(rows) && rows[m.selected].CanComplete {
			key := rows[m.selected].Key
			return m, m.do(func() { m.actions.CompleteTask(key) })
		}
	case "d":
		if m.selected < len(rows) && rows[m.selected].CanDelete {
			key := rows[m.selected].Key
			return m, m.do(func() { m.actions.DeleteTask(key) })
		}
	}
	return m, nil
}

// submit turns input into a controller action. Slash commands:
//
//	/reset              new conversation
//	/upload <path>...   upload files or directories
//	/sh <command>       run on the terminal channel
//	/py <code>          run on the notebook channel
func (m Model) submit(text string) tea.Cmd {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if !strings.HasPrefix(trimmed, "/") {
		return m.do(func() { m.actions.SendMessage(text) })
	}

	cmd, rest, _ := strings.Cut(trimmed, " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "/reset":
		return m.do(m.actions.Reset)
	case "/upload":
		paths := strings.Fields(rest)
		root := m.cfg.Workspace
		return m.do(func() { m.actions.Upload(root, paths) })
	case "/sh":
		return m.shellCmd(transport.KindShell, rest+"\n")
	case "/py":
		return m.shellCmd(transport.KindNotebook, rest+"\n")
	case "/help":
		return func() tea.Msg {
			return noticeMsg{session.NoticeInfo, "/reset · /upload <path> · /sh <cmd> · /py <code> · Tab: tasks"}
		}
	}
	return func() tea.Msg {
		return noticeMsg{session.NoticeError, "Unknown command " + cmd}
	}
}

func (m Model) shellCmd(kind transport.Kind, data string) tea.Cmd {
	return func() tea.Msg {
		if err := m.actions.SendShell(kind, data); err != nil {
			logging.UIDebug("shell send failed: %v", err)
			return noticeMsg{session.NoticeError, transport.NotOpenNotice(kind)}
		}
		return nil
	}
}

// do runs a controller call off the event loop; the controller reports
// back through the Bridge, which sends into this same loop.
func (m Model) do(fn func()) tea.Cmd {
	return func() tea.Msg {
		fn()
		return nil
	}
}

func (m *Model) layout(width, height int) {
	m.width, m.height = width, height

	left := int(float64(width) * m.cfg.SplitRatio)
	chatWidth := max(left-2, 10)
	chatHeight := max(height-headerHeight-footerHeight-inputHeight, 3)

	if !m.ready {
		m.viewport = viewport.New(chatWidth, chatHeight)
		m.ready = true
	} else {
		m.viewport.Width = chatWidth
		m.viewport.Height = chatHeight
	}
	m.textarea.SetWidth(chatWidth)
	m.cache.Clear()
	m.refreshHistory()
}

func (m *Model) refreshHistory() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderHistory())
	if atBottom {
		m.viewport.GotoBottom()
	}
}
