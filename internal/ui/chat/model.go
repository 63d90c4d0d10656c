// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/ocepa/ocepa-tui/internal/session"
	"github.com/ocepa/ocepa-tui/internal/ui/styles"
)

// =============================================================================
// STATE
// =============================================================================

// State tracks what the chat view is currently doing.
type State int

const (
	// StateReady accepts input for the active session.
	StateReady State = iota
	// StateStreaming means a tutor reply is arriving.
	StateStreaming
	// StateRenaming means the rename prompt has focus.
	StateRenaming
)

const sidebarWidth = 28

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State

	theme  *styles.Theme
	keyMap KeyMap

	// Conversation state. The controller owns all sessions; the model only
	// reads snapshots and forwards intent.
	controller *session.Controller

	// Dimensions
	width  int
	height int

	// UI components
	viewport    viewport.Model
	input       textinput.Model
	renameInput textinput.Model
	spinner     spinner.Model

	// Streaming redraw coalescing
	limiter *renderLimiter

	// Markdown rendering for tutor replies, nil renders plain text
	markdown *glamour.TermRenderer

	// Display toggles
	sidebarVisible bool
	showHelp       bool

	// Status line
	statusMsg string
	proxyDown bool
}

// New creates a new chat model bound to a session controller.
func New(theme *styles.Theme, ctrl *session.Controller) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask your tutor anything..."
	ti.CharLimit = 4096
	ti.Focus()

	ri := textinput.New()
	ri.Prompt = "Rename: "
	ri.CharLimit = 128

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 30,
	}
	sp.Style = theme.Spinner

	return Model{
		state:          StateReady,
		theme:          theme,
		keyMap:         DefaultKeyMap(),
		controller:     ctrl,
		viewport:       vp,
		input:          ti,
		renameInput:    ri,
		spinner:        sp,
		limiter:        newRenderLimiter(),
		sidebarVisible: true,
	}
}

// EnableMarkdown configures a glamour renderer for tutor replies.
// Rendering quietly stays plain if the renderer cannot be built.
func (m *Model) EnableMarkdown(styleName string, wrap int) {
	if wrap <= 0 {
		wrap = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(styleName),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return
	}
	m.markdown = r
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SessionsChangedMsg:
		return m.handleSessionsChanged()

	case StreamTickMsg:
		return m.handleStreamTick()

	case ProxyStatusMsg:
		m.proxyDown = !msg.Reachable
		if m.proxyDown {
			m.statusMsg = "chat proxy unreachable, replies will fail until it is back"
		}
		return m, nil

	case StatusMsg:
		m.statusMsg = msg.Text
		return m, clearStatusCmd()

	case ClearStatusMsg:
		m.statusMsg = ""
		return m, nil

	case spinner.TickMsg:
		if m.state == StateStreaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m, nil
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	transcriptWidth := m.transcriptWidth()
	m.viewport.Width = transcriptWidth
	m.viewport.Height = max(1, msg.Height-inputAreaHeight-statusBarHeight-headerHeight)
	m.input.Width = max(10, transcriptWidth-4)
	m.renameInput.Width = m.input.Width

	m.updateViewport()
	return m, nil
}

func (m Model) handleSessionsChanged() (tea.Model, tea.Cmd) {
	m.limiter.Mark()

	if !m.controller.Busy() {
		// Mutations outside a stream render immediately, and this is also
		// where a finished stream commits its last fragment.
		if m.state == StateStreaming {
			m.state = StateReady
		}
		m.limiter.ForceRender()
		m.updateViewport()
		return m, nil
	}

	var cmds []tea.Cmd
	if m.state == StateReady {
		m.state = StateStreaming
		cmds = append(cmds, m.spinner.Tick, streamTickCmd())
	}
	if m.limiter.ShouldRender() {
		m.updateViewport()
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if m.controller.Busy() {
		if m.limiter.ShouldRender() {
			m.updateViewport()
		}
		return m, streamTickCmd()
	}

	// Stream just ended, flush whatever the limiter held back.
	if m.state == StateStreaming {
		m.state = StateReady
	}
	if m.limiter.ForceRender() {
		m.updateViewport()
	} else {
		m.updateViewport()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.state == StateRenaming {
		return m.handleRenameKey(msg)
	}

	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.controller.Cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Cancel):
		if m.state == StateStreaming {
			m.controller.Cancel()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keyMap.ToggleSidebar):
		m.sidebarVisible = !m.sidebarVisible
		return m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})

	case key.Matches(msg, m.keyMap.NewChat):
		m.controller.NewChat()
		m.updateViewport()
		return m, nil

	case key.Matches(msg, m.keyMap.NextSession):
		m.selectAdjacent(1)
		return m, nil

	case key.Matches(msg, m.keyMap.PrevSession):
		m.selectAdjacent(-1)
		return m, nil

	case key.Matches(msg, m.keyMap.RenameSession):
		active := m.controller.Registry().Active()
		if active == nil {
			return m, nil
		}
		m.state = StateRenaming
		m.renameInput.SetValue(active.Title)
		m.renameInput.CursorEnd()
		m.renameInput.Focus()
		m.input.Blur()
		return m, textinput.Blink

	case key.Matches(msg, m.keyMap.DeleteSession):
		m.controller.Delete(m.controller.Registry().ActiveID())
		m.updateViewport()
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()

	case key.Matches(msg, m.keyMap.PageUp), key.Matches(msg, m.keyMap.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.controller.Rename(m.controller.Registry().ActiveID(), m.renameInput.Value())
		return m.exitRename()
	case tea.KeyEsc:
		return m.exitRename()
	case tea.KeyCtrlC:
		m.controller.Cancel()
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return m, cmd
}

func (m Model) exitRename() (tea.Model, tea.Cmd) {
	m.state = StateReady
	if m.controller.Busy() {
		m.state = StateStreaming
	}
	m.renameInput.Blur()
	m.renameInput.Reset()
	m.input.Focus()
	m.updateViewport()
	return m, textinput.Blink
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	if !m.controller.Send(text) {
		m.statusMsg = "the tutor is still replying, wait or press Esc to stop"
		return m, clearStatusCmd()
	}

	m.input.Reset()
	m.state = StateStreaming
	m.limiter.Reset()
	m.updateViewport()
	m.viewport.GotoBottom()
	return m, tea.Batch(m.spinner.Tick, streamTickCmd())
}

// =============================================================================
// HELPERS
// =============================================================================

// selectAdjacent moves the active session up or down the sidebar order.
func (m *Model) selectAdjacent(delta int) {
	reg := m.controller.Registry()
	sessions := reg.Sessions()
	if len(sessions) < 2 {
		return
	}

	activeID := reg.ActiveID()
	idx := 0
	for i, s := range sessions {
		if s.ID == activeID {
			idx = i
			break
		}
	}

	next := (idx + delta + len(sessions)) % len(sessions)
	m.controller.Select(sessions[next].ID)
	m.updateViewport()
	m.viewport.GotoBottom()
}

// updateViewport re-renders the transcript into the viewport, keeping the
// scroll pinned to the bottom while a reply streams.
func (m *Model) updateViewport() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom || m.state == StateStreaming {
		m.viewport.GotoBottom()
	}
}

func (m Model) transcriptWidth() int {
	if m.sidebarShown() {
		return max(20, m.width-sidebarWidth-2)
	}
	return max(20, m.width-2)
}

func (m Model) sidebarShown() bool {
	return m.sidebarVisible && m.theme.GetLayoutMode() == styles.LayoutWide
}

func clearStatusCmd() tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
