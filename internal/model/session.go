// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"github.com/google/uuid"
)

// TitleRunes is the number of leading runes of the first user message used as
// a session title. Longer messages get an ellipsis marker appended.
const TitleRunes = 35

// DefaultTitle is the placeholder title of a session before its first message.
const DefaultTitle = "New Chat"

// =============================================================================
// CHAT SESSION
// =============================================================================

// ChatSession holds one named conversation thread. Messages are append-only
// and their insertion order is the chronological order.
type ChatSession struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// NewChatSession creates an empty session with a fresh unique ID and the
// placeholder title.
func NewChatSession() *ChatSession {
	return &ChatSession{
		ID:       generateSessionID(),
		Title:    DefaultTitle,
		Messages: make([]Message, 0),
	}
}

// Append adds a message to the end of the session.
func (s *ChatSession) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
}

// AppendToLast concatenates fragment onto the text of the last message. The
// last message must be the streaming model placeholder; fragments addressed at
// a session whose last message is not a model message are dropped.
func (s *ChatSession) AppendToLast(fragment string) {
	if len(s.Messages) == 0 {
		return
	}
	last := &s.Messages[len(s.Messages)-1]
	if last.Role != RoleModel {
		return
	}
	last.Text += fragment
}

// LastMessage returns the most recent message, or nil if the session is empty.
func (s *ChatSession) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return &s.Messages[len(s.Messages)-1]
}

// IsEmpty reports whether the session has no messages.
func (s *ChatSession) IsEmpty() bool {
	return len(s.Messages) == 0
}

// MessageCount returns the number of messages.
func (s *ChatSession) MessageCount() int {
	return len(s.Messages)
}

// History returns a copy of the message sequence. Callers dispatching a
// request must not hold a live reference into the session, which may be
// mutated while the request is in flight.
func (s *ChatSession) History() []Message {
	history := make([]Message, len(s.Messages))
	copy(history, s.Messages)
	return history
}

// Clone returns a deep copy of the session.
func (s *ChatSession) Clone() *ChatSession {
	return &ChatSession{
		ID:       s.ID,
		Title:    s.Title,
		Messages: s.History(),
	}
}

// =============================================================================
// TITLE DERIVATION
// =============================================================================

// DeriveTitle builds a session title from the first user message: the first
// TitleRunes runes, with "..." appended when the message is longer. Later
// messages never change the title; an explicit rename always wins.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= TitleRunes {
		return text
	}
	return string(runes[:TitleRunes]) + "..."
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateSessionID creates a unique session ID. IDs are generated once at
// creation time and never reused.
func generateSessionID() string {
	return "chat-" + uuid.NewString()
}
