package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"agentconsole/internal/api"
	"agentconsole/internal/logging"
	"agentconsole/internal/monitor"
	"agentconsole/internal/transport"
	"agentconsole/internal/types"
)

// Console copy.
const (
	welcomeText        = "Hello! How can I help you today?"
	connectFailedText  = "Failed to connect to the backend. Some features may not work properly."
	resetDoneText      = "Conversation has been reset. How can I help you?"
	resetFailedNotice  = "There was an error resetting the conversation. Please try again."
	settingsUpdated    = "Settings saved successfully! Agent is updated"
	settingsInitText   = "Settings saved successfully! Initializing agent..."
	agentInitText      = "Agent initialized successfully!"
	uploadStartText    = "Uploading to workspace..."
	uploadDoneText     = "Upload complete!"
	agentFramePrefix   = "Agent: "
	echoFramePrefix    = "You: "
	noConnectionDetail = "No connection to backend"
)

var socketPaths = map[transport.Kind]api.SocketKind{
	transport.KindChat:     api.SocketChat,
	transport.KindShell:    api.SocketShell,
	transport.KindNotebook: api.SocketNotebook,
}

var socketLabels = map[transport.Kind]string{
	transport.KindChat:     "chat",
	transport.KindShell:    "terminal",
	transport.KindNotebook: "notebook",
}

// dispatch applies one event. It is only ever entered from drain.
func (c *Controller) dispatch(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.SessionError("panic handling %s: %v", ev.eventName(), r)
			c.system("Unexpected error: %v", r)
			c.setStatus(types.StateError, "Unexpected error")
		}
	}()

	if g, ok := ev.(generational); ok && g.generation() != c.gen.Load() {
		logging.SessionDebug("dropping stale %s (gen %d, current %d)", ev.eventName(), g.generation(), c.gen.Load())
		return
	}

	switch e := ev.(type) {
	case connectIntent:
		c.onConnect(e.ctx)
	case disconnectIntent:
		c.onDisconnect()
	case sendIntent:
		c.onSend(e.text)
	case resetIntent:
		c.begin("Resetting conversation...")
		c.run(func(ctx context.Context, gen uint64) Event {
			id, err := c.backend.Reset(ctx)
			return ResetReplyEvent{Gen: gen, SessionID: id, Err: err}
		})
	case taskIntent:
		c.onTask(e.action, e.key)
	case refreshIntent:
		c.refresh()
	case settingsIntent:
		c.onSettings(e.settings)
	case uploadIntent:
		c.system(uploadStartText)
		c.begin("Uploading files...")
		c.run(func(ctx context.Context, gen uint64) Event {
			files, err := c.backend.UploadPaths(ctx, e.root, e.paths)
			return UploadReplyEvent{Gen: gen, Files: files, Err: err}
		})

	case StatusReplyEvent:
		c.onStatusReply(e)
	case ChatReplyEvent:
		c.onChatReply(e)
	case ResetReplyEvent:
		c.onResetReply(e)
	case TaskActionEvent:
		c.onTaskReply(e)
	case SettingsReplyEvent:
		c.onSettingsReply(e)
	case InitializeReplyEvent:
		if e.Err != nil {
			c.system("Failed to initialize agent: %s", serverError(e.Err))
			c.failRequest("Failed to initialize agent")
			return
		}
		c.system(agentInitText)
		c.succeed()
	case UploadReplyEvent:
		c.onUploadReply(e)
	case SnapshotEvent:
		c.onSnapshot(e.Snapshot)
	case ChannelEvent:
		c.onChannel(e)
	case NoticeEvent:
		c.system("%s", e.Text)
	default:
		logging.SessionWarn("unhandled event %T", ev)
	}
}

// =============================================================================
// CONNECTION
// =============================================================================

func (c *Controller) onConnect(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.teardown()
	gen := c.gen.Add(1)

	c.stateMu.Lock()
	c.session = types.Session{ID: newSessionID(), ClientID: types.NewClientID()}
	clientID := c.session.ClientID
	c.stateMu.Unlock()

	logging.Session("connecting (gen %d, client %s)", gen, clientID)
	c.setStatus(types.StateConnecting, "Connecting to backend...")

	if c.opts.WSBase != "" {
		c.openSockets(ctx, gen, clientID)
	}
	c.reapplySettings()
	c.say(types.SenderAgent, welcomeText)

	c.run(func(ctx context.Context, gen uint64) Event {
		info, err := c.backend.Status(ctx)
		return StatusReplyEvent{Gen: gen, Info: info, Err: err}
	})
}

func (c *Controller) openSockets(ctx context.Context, gen uint64, clientID string) {
	for _, kind := range []transport.Kind{transport.KindChat, transport.KindShell, transport.KindNotebook} {
		sock := c.opts.Sockets(kind, c.socketHandlers(gen, kind))
		c.sockMu.Lock()
		c.sockets[kind] = sock
		c.sockMu.Unlock()

		url := api.SocketURL(c.opts.WSBase, socketPaths[kind], clientID)
		c.opts.Runner(func() {
			if err := sock.Open(ctx, url); err != nil {
				c.Post(ChannelEvent{Gen: gen, Channel: kind, Kind: ChannelFailed, Err: err})
				return
			}
			// A disconnect may have raced the dial.
			if c.gen.Load() != gen {
				sock.Close()
			}
		})
	}
}

// socketHandlers never dispatch on the socket's own goroutine, so dispatch
// may close a socket without waiting on itself.
func (c *Controller) socketHandlers(gen uint64, kind transport.Kind) transport.Handlers {
	post := func(ev Event) {
		c.qmu.Lock()
		c.queue = append(c.queue, ev)
		running := c.running
		c.qmu.Unlock()
		if running {
			select {
			case c.wake <- struct{}{}:
			default:
			}
			return
		}
		c.opts.Runner(c.drain)
	}
	return transport.Handlers{
		OnOpen: func() {
			post(ChannelEvent{Gen: gen, Channel: kind, Kind: ChannelOpened})
		},
		OnMessage: func(text string) {
			post(ChannelEvent{Gen: gen, Channel: kind, Kind: ChannelMessage, Payload: text})
		},
		OnClose: func(reason string) {
			post(ChannelEvent{Gen: gen, Channel: kind, Kind: ChannelClosed, Payload: reason})
		},
		OnError: func(err error) {
			post(ChannelEvent{Gen: gen, Channel: kind, Kind: ChannelFailed, Err: err})
		},
		OnNotice: func(text string) {
			post(NoticeEvent{Text: text})
		},
	}
}

// reapplySettings pushes persisted settings to the backend without touching
// the status line.
func (c *Controller) reapplySettings() {
	if c.opts.Settings == nil {
		return
	}
	s, ok, err := c.opts.Settings.LoadSettings(c.reqCtx)
	if err != nil {
		logging.SessionWarn("failed to load settings: %v", err)
		return
	}
	if !ok {
		return
	}
	if s.Model != "" {
		c.setModel(s.Model)
	}
	c.run(func(ctx context.Context, _ uint64) Event {
		if _, err := c.backend.UpdateSettings(ctx, s); err != nil {
			logging.SessionWarn("failed to re-apply settings: %v", err)
		}
		return nil
	})
}

func (c *Controller) onStatusReply(e StatusReplyEvent) {
	if c.state() != types.StateConnecting {
		return
	}
	if e.Err != nil {
		logging.SessionWarn("status query failed: %v", e.Err)
		c.system(connectFailedText)
		c.setStatus(types.StateDisconnected, noConnectionDetail)
		return
	}

	c.stateMu.Lock()
	c.session.Connected = true
	c.stateMu.Unlock()

	if e.Info.Model != "" {
		c.setModel(e.Info.Model)
	}
	state := connectedState(e.Info.Status)
	c.setStatus(state, taskDetail(e.Info.CurrentTask))
	logging.Session("connected: %s", state)
}

// connectedState maps the backend's reported status onto the states a
// fresh connection may enter. No request is pending yet, so Processing and
// unknown values settle on Ready.
func connectedState(status string) types.State {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "awaiting", "awaiting input", "awaiting for user input", "waiting":
		return types.StateAwaitingInput
	case "error":
		return types.StateError
	default:
		return types.StateReady
	}
}

func (c *Controller) onDisconnect() {
	c.teardown()
	c.gen.Add(1)

	c.stateMu.Lock()
	c.session = types.Session{}
	c.stateMu.Unlock()
	c.setStatus(types.StateDisconnected, types.DetailNone)

	c.qmu.Lock()
	cancel := c.runCancel
	c.qmu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// teardown cancels requests and reveals and closes every socket.
func (c *Controller) teardown() {
	c.reqCancel()
	c.reqCtx, c.reqCancel = context.WithCancel(context.Background())
	c.pending = 0
	c.awaitSocket = false
	c.renderer.CancelAll()

	c.sockMu.Lock()
	socks := c.sockets
	c.sockets = make(map[transport.Kind]Socket)
	c.sockMu.Unlock()
	for kind, sock := range socks {
		if err := sock.Close(); err != nil {
			logging.SessionDebug("closing %s: %v", kind, err)
		}
	}
}

// =============================================================================
// CHAT
// =============================================================================

func (c *Controller) onSend(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	c.say(types.SenderUser, text)
	c.begin("Analyzing your request...")

	if c.opts.ChatTransport == ChatOverSocket {
		c.sockMu.Lock()
		sock := c.sockets[transport.KindChat]
		c.sockMu.Unlock()
		if sock == nil {
			c.system("%s", transport.NotOpenNotice(transport.KindChat))
			c.succeed()
			return
		}
		switch err := sock.Send(text); {
		case errors.Is(err, transport.ErrNotOpen):
			c.succeed()
		case err != nil:
			c.system("Error: %v", err)
			c.failRequest("Failed to process request")
		default:
			c.awaitSocket = true
		}
		return
	}

	c.run(func(ctx context.Context, gen uint64) Event {
		reply, err := c.backend.Chat(ctx, text)
		return ChatReplyEvent{Gen: gen, Reply: reply, Err: err}
	})
}

// onChatReply only settles the request. The reply text is the agent's
// final thought, which the memory poll surfaces.
func (c *Controller) onChatReply(e ChatReplyEvent) {
	if e.Err != nil {
		c.system("Error: %s", serverError(e.Err))
		c.failRequest("Failed to process request")
		return
	}
	c.succeed()
}

func (c *Controller) onResetReply(e ResetReplyEvent) {
	if e.Err != nil {
		logging.SessionWarn("reset failed: %v", e.Err)
		c.failRequest("Failed to reset conversation")
		c.view.Notice(NoticeError, resetFailedNotice)
		return
	}

	c.clearHistory()
	c.store.Reset()
	id := e.SessionID
	if id == "" {
		id = newSessionID()
	}
	c.stateMu.Lock()
	c.session.ID = id
	c.stateMu.Unlock()
	logging.Session("conversation reset, session %s", id)

	c.say(types.SenderSystem, resetDoneText)
	if c.pending > 0 {
		c.pending--
	}
	c.setStatus(types.StateReady, types.DetailNone)
}

// =============================================================================
// TASKS / SETTINGS / UPLOAD
// =============================================================================

func (c *Controller) onTask(action TaskAction, key string) {
	if action == TaskComplete {
		c.begin("Completing task...")
	} else {
		c.begin("Deleting task...")
	}
	c.run(func(ctx context.Context, gen uint64) Event {
		var err error
		if action == TaskComplete {
			err = c.backend.CompleteTask(ctx, key)
		} else {
			err = c.backend.DeleteTask(ctx, key)
		}
		return TaskActionEvent{Gen: gen, Action: action, Key: key, Err: err}
	})
}

func (c *Controller) onTaskReply(e TaskActionEvent) {
	verb := "complete"
	done := "Task completed!"
	if e.Action == TaskDelete {
		verb, done = "delete", "Task deleted!"
	}
	if e.Err != nil {
		logging.SessionWarn("failed to %s task %s: %v", verb, e.Key, e.Err)
		c.view.Notice(NoticeError, "Failed to "+verb+" task")
		c.failRequest("Failed to " + verb + " task")
		return
	}
	c.view.Notice(NoticeSuccess, done)
	c.succeed()
	c.refresh()
}

// refresh fetches tasks once. Its result is an ordinary snapshot.
func (c *Controller) refresh() {
	ctx, gen := c.reqCtx, c.gen.Load()
	sink := c.snapshotSink(gen)
	c.opts.Runner(func() {
		monitor.Refresh(ctx, c.backend.Tasks, sink)
	})
}

func (c *Controller) onSettings(s types.Settings) {
	if c.opts.Settings != nil {
		if err := c.opts.Settings.SaveSettings(c.reqCtx, s); err != nil {
			logging.SessionWarn("failed to persist settings: %v", err)
		}
	}
	if s.Model != "" {
		c.setModel(s.Model)
	}
	c.begin("Updating settings...")
	c.run(func(ctx context.Context, gen uint64) Event {
		msg, err := c.backend.UpdateSettings(ctx, s)
		return SettingsReplyEvent{Gen: gen, Settings: s, Message: msg, Err: err}
	})
}

func (c *Controller) onSettingsReply(e SettingsReplyEvent) {
	if e.Err != nil {
		c.system("Failed to save settings: %s", serverError(e.Err))
		c.failRequest("Failed to save settings")
		return
	}
	if strings.Contains(e.Message, "updated") {
		c.system(settingsUpdated)
		c.succeed()
		return
	}

	c.system(settingsInitText)
	c.setStatus(types.StateProcessing, "Initializing agent...")
	c.run(func(ctx context.Context, gen uint64) Event {
		_, err := c.backend.Initialize(ctx)
		return InitializeReplyEvent{Gen: gen, Err: err}
	})
}

func (c *Controller) onUploadReply(e UploadReplyEvent) {
	if e.Err != nil {
		var re *api.RequestError
		if errors.As(e.Err, &re) && re.Message != "" {
			c.system("Upload error: %s", re.Message)
		} else {
			c.system("Upload failed: %v", e.Err)
		}
		c.failRequest("Upload failed")
		return
	}
	logging.Session("uploaded %d file(s)", len(e.Files))
	c.system(uploadDoneText)
	c.succeed()
}

// =============================================================================
// MONITORS / CHANNELS
// =============================================================================

func (c *Controller) onSnapshot(snap types.Snapshot) {
	fx := c.store.Apply(snap)
	if fx.Empty() {
		return
	}
	for _, text := range fx.Messages {
		c.say(types.SenderSystem, text)
	}
	if fx.AwaitingInput {
		c.setStatus(types.StateAwaitingInput, types.DetailNone)
	}
	if fx.Tasks != nil {
		c.view.SetTasks(*fx.Tasks)
	}
	if fx.Commands != nil {
		c.view.SetTerminal(fx.Commands.Text)
	}
	if fx.Notebook != nil {
		c.view.SetNotebook(fx.Notebook.Text)
	}
}

func (c *Controller) onChannel(e ChannelEvent) {
	label := socketLabels[e.Channel]
	var line string
	switch e.Kind {
	case ChannelOpened:
		line = fmt.Sprintf("Connected to %s server.", label)
	case ChannelClosed:
		line = fmt.Sprintf("Disconnected from %s server.", label)
		if e.Channel == transport.KindChat && c.awaitSocket {
			c.awaitSocket = false
			c.failRequest("Chat connection lost")
		}
	case ChannelFailed:
		line = fmt.Sprintf("%s connection error: %v", capitalize(label), e.Err)
	case ChannelMessage:
		if e.Channel == transport.KindChat {
			c.onChatFrame(e.Payload)
		} else {
			c.view.AppendShell(e.Channel, e.Payload)
		}
		return
	}

	if e.Channel == transport.KindChat {
		c.system("%s", line)
	} else {
		c.view.AppendShell(e.Channel, line+"\n")
	}
}

// onChatFrame classifies one chat socket frame. The server echoes user
// input back prefixed with "You: ", which is already in the history.
func (c *Controller) onChatFrame(payload string) {
	switch {
	case strings.HasPrefix(payload, agentFramePrefix):
		c.say(types.SenderAgent, strings.TrimPrefix(payload, agentFramePrefix))
		if c.awaitSocket {
			c.awaitSocket = false
			c.succeed()
		}
	case strings.HasPrefix(payload, echoFramePrefix):
	default:
		c.system("%s", payload)
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func taskDetail(task string) string {
	if task == "" || strings.EqualFold(task, "none") {
		return types.DetailNone
	}
	return task
}
