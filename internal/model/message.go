// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// MESSAGE ROLE
// =============================================================================

// Role identifies the author of a message. It is a closed set: messages are
// written either by the user or by the model. Anything else fails to decode.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// UnmarshalJSON enforces the closed role set when decoding persisted sessions
// or wire payloads.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	role := Role(s)
	if !role.Valid() {
		return fmt.Errorf("unknown message role %q", s)
	}
	*r = role
	return nil
}

// =============================================================================
// MESSAGE
// =============================================================================

// Message is a single chat message. Text is immutable once the message is
// appended, except for the trailing model message during streaming, whose Text
// is extended in place via ChatSession.AppendToLast.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// NewUserMessage creates a user message.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// NewModelMessage creates a model message. Streaming placeholders start with
// empty text.
func NewModelMessage(text string) Message {
	return Message{Role: RoleModel, Text: text}
}

// Preview returns the first maxRunes runes of the message text with newlines
// collapsed, appending "..." when truncated.
func (m Message) Preview(maxRunes int) string {
	text := strings.ReplaceAll(m.Text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", "")
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}
