// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the live collection of chat sessions and the
// controller that drives message sends.
//
// The Registry is the single piece of mutable shared state: an ordered list
// of sessions (newest-created first) plus the active-session pointer, guarded
// by one mutex. Every mutation re-reads the latest state under the lock before
// writing, so an in-flight stream can never clobber a rename or delete that
// landed between two of its updates, and vice versa.
//
// The Controller orchestrates a send: append the user message (deriving the
// title from the first message), mark the controller busy, append an empty
// model placeholder, dispatch the history to the stream client, and fold each
// received fragment onto the placeholder of the session the send was addressed
// to. At most one send is in flight per process; sends while busy are silently
// rejected. Cancellation keeps whatever partial text has arrived; transport
// failure appends an apology fragment instead of surfacing an error state.
package session
