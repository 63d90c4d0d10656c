// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file contains all rendering logic for the chat view: the header,
// session sidebar, transcript, input area, status bar, and the help
// overlay. Layout: header (1 line) + body (viewport, with optional
// sidebar) + input (3 lines) + status (1 line).
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ocepa/ocepa-tui/internal/model"
	"github.com/ocepa/ocepa-tui/internal/util"
)

const (
	headerHeight    = 1
	inputAreaHeight = 3
	statusBarHeight = 1
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the complete chat screen.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelpOverlay()
	}

	header := m.renderHeader()
	body := m.renderBody()
	input := m.renderInput()
	status := m.renderStatusBar()

	return lipgloss.JoinVertical(lipgloss.Left, header, body, input, status)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("Ocepa AI")
	hint := m.theme.HeaderHint.Render("  your personal tutor")
	return m.theme.Header.Width(m.width).Render(title + hint)
}

func (m Model) renderBody() string {
	transcript := m.viewport.View()
	if !m.sidebarShown() {
		return transcript
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), transcript)
}

// =============================================================================
// SESSION SIDEBAR
// =============================================================================

func (m Model) renderSidebar() string {
	reg := m.controller.Registry()
	sessions := reg.Sessions()
	activeID := reg.ActiveID()

	var b strings.Builder
	b.WriteString(m.theme.SidebarTitle.Render("Chats"))
	b.WriteString("\n")

	// Room for the border and padding on each row.
	rowWidth := sidebarWidth - 4

	for _, s := range sessions {
		label := util.TruncateWidth(s.Title, rowWidth)
		switch {
		case s.ID == activeID && m.state == StateStreaming:
			b.WriteString(m.theme.SessionStreaming.Render("* " + label))
		case s.ID == activeID:
			b.WriteString(m.theme.SessionActive.Render(label))
		default:
			b.WriteString(m.theme.SessionItem.Render(label))
		}
		b.WriteString("\n")
	}

	return m.theme.Sidebar.
		Width(sidebarWidth - 2).
		Height(m.viewport.Height - 2).
		Render(b.String())
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders every message of the active session.
func (m Model) renderTranscript() string {
	active := m.controller.Registry().Active()
	if active == nil {
		return m.theme.HeaderHint.Render("No chat selected.")
	}

	if len(active.Messages) == 0 {
		return m.renderWelcome()
	}

	wrap := max(20, m.transcriptWidth()-8)
	var parts []string
	for i, msg := range active.Messages {
		last := i == len(active.Messages)-1
		parts = append(parts, m.renderMessage(msg, wrap, last))
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderMessage(msg model.Message, wrap int, last bool) string {
	switch msg.Role {
	case model.RoleUser:
		label := m.theme.UserLabel.Render("You")
		bubble := m.theme.UserBubble.MaxWidth(wrap).Render(msg.Text)
		return label + "\n" + bubble

	default:
		label := m.theme.TutorLabel.Render("Tutor")
		text := msg.Text
		if text == "" && last && m.state == StateStreaming {
			return label + "\n" + m.spinner.View() + " " +
				m.theme.ThinkingText.Render("thinking...")
		}
		return label + "\n" + m.theme.TutorBubble.MaxWidth(wrap).Render(m.renderReply(text))
	}
}

// renderReply passes tutor text through glamour when markdown is enabled.
// While a reply is still streaming the text may stop mid-construct, which
// glamour tolerates, so streaming output goes through the same path.
func (m Model) renderReply(text string) string {
	if m.markdown == nil {
		return text
	}
	out, err := m.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (m Model) renderWelcome() string {
	lines := []string{
		m.theme.HeaderTitle.Render("Welcome to Ocepa AI"),
		"",
		m.theme.HeaderHint.Render("Ask a question to get started."),
		m.theme.HeaderHint.Render("Ctrl+N starts a new chat, Ctrl+G shows all shortcuts."),
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m Model) renderInput() string {
	field := m.input.View()
	if m.state == StateRenaming {
		field = m.renameInput.View()
	}
	return m.theme.InputContainer.Width(max(20, m.width-2)).Render(field)
}

func (m Model) renderStatusBar() string {
	if m.statusMsg != "" {
		return m.theme.StatusBar.Width(m.width).Render(m.statusMsg)
	}
	if m.proxyDown {
		return m.theme.StatusBar.Width(m.width).
			Render(m.theme.ErrorText.Render("proxy offline") + "  start it with: ocepa serve")
	}

	var parts []string
	for _, b := range m.keyMap.ShortHelp() {
		h := b.Help()
		parts = append(parts,
			m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

func (m Model) renderHelpOverlay() string {
	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("Keyboard shortcuts"))
	b.WriteString("\n\n")

	for _, group := range m.keyMap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %s  %s\n",
				m.theme.ShortcutKey.Render(util.PadRight(h.Key, 12)),
				m.theme.ShortcutDesc.Render(h.Desc)))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.theme.HeaderHint.Render("Press Ctrl+G to close."))
	return m.theme.Container.Render(b.String())
}
