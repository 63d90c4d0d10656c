// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strings"
	"sync"

	"github.com/ocepa/ocepa-tui/internal/model"
)

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is the in-memory collection of chat sessions plus the active
// pointer. All reads and writes go through the mutex; mutating methods always
// operate on the state as it is at call time, never on a caller-captured
// snapshot.
type Registry struct {
	mu       sync.Mutex
	sessions []*model.ChatSession // newest-created first
	activeID string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// Sessions returns a deep copy of the session list for rendering or
// persistence. Mutating the copy has no effect on the registry.
func (r *Registry) Sessions() []*model.ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cloneLocked()
}

// Active returns a deep copy of the active session, or nil when none is
// active.
func (r *Registry) Active() *model.ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.findLocked(r.activeID); s != nil {
		return s.Clone()
	}
	return nil
}

// ActiveID returns the active session id, or "" when none is active.
func (r *Registry) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// Insert places a session at the front of the list and makes it active.
func (r *Registry) Insert(s *model.ChatSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append([]*model.ChatSession{s}, r.sessions...)
	r.activeID = s.ID
}

// Select sets the active session. Selecting an id that is not present leaves
// the registry with no active session; the controller repairs that on the
// next lifecycle event.
func (r *Registry) Select(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findLocked(id) != nil {
		r.activeID = id
	} else {
		r.activeID = ""
	}
}

// Rename replaces the title of the matching session. The title is
// whitespace-trimmed; a rename to an empty title is a no-op, as is a rename
// of an absent id. Explicit renames always stick: later messages never
// re-derive the title.
func (r *Registry) Rename(id, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.findLocked(id); s != nil {
		s.Title = title
	}
}

// Delete removes the matching session. When the active session is deleted the
// first remaining session becomes active, or none when the list is now empty.
// Returns false for an absent id.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, s := range r.sessions {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	r.sessions = append(r.sessions[:idx], r.sessions[idx+1:]...)

	if r.activeID == id {
		if len(r.sessions) > 0 {
			r.activeID = r.sessions[0].ID
		} else {
			r.activeID = ""
		}
	}
	return true
}

// Replace swaps in a new session list, keeping the active pointer when the
// session is still present and falling back to the first session otherwise.
// Used when seeding from storage and when an external change is reloaded.
func (r *Registry) Replace(sessions []*model.ChatSession) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions = sessions
	if r.findLocked(r.activeID) != nil {
		return
	}
	if len(r.sessions) > 0 {
		r.activeID = r.sessions[0].ID
	} else {
		r.activeID = ""
	}
}

// =============================================================================
// SEND SUPPORT
// =============================================================================

// beginSend performs steps one and two of a send against the latest state:
// append the user message to the active session, derive the title when this
// is the session's first message, then append the empty model placeholder.
// It returns the target session id and the history to dispatch, which
// excludes the placeholder. ok is false when there is no active session.
func (r *Registry) beginSend(text string) (id string, history []model.Message, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.findLocked(r.activeID)
	if s == nil {
		return "", nil, false
	}

	if s.IsEmpty() {
		s.Title = model.DeriveTitle(text)
	}
	s.Append(model.NewUserMessage(text))

	// History as of the user-message append, before the placeholder.
	history = s.History()

	s.Append(model.NewModelMessage(""))

	return s.ID, history, true
}

// applyFragment locates the session by id in the current state and extends
// its trailing model message. Fragments addressed to a session that has been
// deleted in the meantime are dropped. Returns false when dropped.
func (r *Registry) applyFragment(id, fragment string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.findLocked(id)
	if s == nil {
		return false
	}
	s.AppendToLast(fragment)
	return true
}

// =============================================================================
// HELPERS
// =============================================================================

func (r *Registry) findLocked(id string) *model.ChatSession {
	if id == "" {
		return nil
	}
	for _, s := range r.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (r *Registry) cloneLocked() []*model.ChatSession {
	out := make([]*model.ChatSession, len(r.sessions))
	for i, s := range r.sessions {
		out[i] = s.Clone()
	}
	return out
}
