// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "time"

// =============================================================================
// CONTROLLER MESSAGES
// =============================================================================

// SessionsChangedMsg signals that the session registry changed: a fragment
// arrived, a session was added, renamed, deleted, or the snapshot was
// reloaded from disk. Sent from controller goroutines via tea.Program.Send.
type SessionsChangedMsg struct{}

// ProxyStatusMsg reports the result of the startup reachability probe
// against the chat proxy.
type ProxyStatusMsg struct {
	Reachable bool
	Err       error
}

// =============================================================================
// RENDER MESSAGES
// =============================================================================

// StreamTickMsg drives capped-rate redraws while a reply is streaming.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// STATUS MESSAGES
// =============================================================================

// StatusMsg shows a transient line in the status bar.
type StatusMsg struct {
	Text string
}

// ClearStatusMsg clears the transient status line.
type ClearStatusMsg struct{}
