// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"log"
	"os"
	"sync/atomic"

	"github.com/ocepa/ocepa-tui/internal/model"
)

// ApologyText is appended to the in-progress model message when a send fails
// for any reason other than user cancellation. The user sees it as part of
// the (possibly partial) reply; the underlying error is never surfaced as a
// separate UI state.
const ApologyText = "\n\nSorry, I encountered an error while processing your request. Please try again."

// Streamer dispatches a message history and delivers response fragments in
// arrival order. A cancelled context must end the call with context.Canceled
// and stop fragment delivery promptly.
type Streamer interface {
	StreamChat(ctx context.Context, history []model.Message, onFragment func(string)) error
}

// Store is the slice of the session store the controller needs.
type Store interface {
	Save(sessions []*model.ChatSession) error
	Clear() error
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the registry and drives the send lifecycle. All mutation of
// the session collection funnels through it so every change is persisted and
// announced exactly once.
type Controller struct {
	registry *Registry
	store    Store
	streamer Streamer

	busy      atomic.Bool
	cancelMgr *cancelManager

	// notify is called after every observable state change, including each
	// applied fragment. Set once before use; may be nil.
	notify func()

	logger *log.Logger
}

// NewController wires a controller. store may be nil to disable persistence
// (used by tests); streamer must not be nil.
func NewController(store Store, streamer Streamer) *Controller {
	return &Controller{
		registry:  NewRegistry(),
		store:     store,
		streamer:  streamer,
		cancelMgr: newCancelManager(),
		logger:    log.New(os.Stderr, "session: ", log.LstdFlags),
	}
}

// SetNotify registers the change listener. The listener runs on whichever
// goroutine performed the mutation and must not call back into the
// controller synchronously.
func (c *Controller) SetNotify(fn func()) {
	c.notify = fn
}

// SetLogger replaces the controller's logger.
func (c *Controller) SetLogger(logger *log.Logger) {
	c.logger = logger
}

// Registry exposes the underlying registry for read access.
func (c *Controller) Registry() *Registry {
	return c.registry
}

// Busy reports whether a send is in flight.
func (c *Controller) Busy() bool {
	return c.busy.Load()
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Seed populates the registry from a persisted snapshot. An empty snapshot is
// transient: exactly one fresh session is created and made active before the
// registry is ever shown, and that state is persisted.
func (c *Controller) Seed(sessions []*model.ChatSession) {
	if len(sessions) > 0 {
		c.registry.Replace(sessions)
		c.registry.Select(sessions[0].ID)
	} else {
		c.registry.Insert(model.NewChatSession())
	}
	c.persist()
	c.changed()
}

// NewChat creates a fresh empty session at the front of the list and makes it
// active.
func (c *Controller) NewChat() *model.ChatSession {
	s := model.NewChatSession()
	c.registry.Insert(s)
	c.persist()
	c.changed()
	return s.Clone()
}

// Select makes the given session active.
func (c *Controller) Select(id string) {
	c.registry.Select(id)
	c.changed()
}

// Rename retitles a session. No-op for an absent id or a blank title.
func (c *Controller) Rename(id, title string) {
	c.registry.Rename(id, title)
	c.persist()
	c.changed()
}

// Delete removes a session. Deleting the active session activates the next
// one in order; deleting the last remaining session immediately auto-creates
// a fresh session so the registry is never left (or persisted) empty.
func (c *Controller) Delete(id string) {
	if !c.registry.Delete(id) {
		return
	}
	if c.registry.Len() == 0 {
		c.registry.Insert(model.NewChatSession())
	}
	c.persist()
	c.changed()
}

// =============================================================================
// SEND STATE MACHINE
// =============================================================================

// Send dispatches a user message to the active session. Returns false, with
// no state change, when no session is active or another send is in flight.
//
// The send runs on its own goroutine: fragments are folded onto the model
// placeholder of the session the send was addressed to, located by id in the
// registry's state at application time. Switching the active session mid
// stream does not redirect fragments; deleting the target session drops them.
func (c *Controller) Send(text string) bool {
	if !c.busy.CompareAndSwap(false, true) {
		return false
	}

	id, history, ok := c.registry.beginSend(text)
	if !ok {
		c.busy.Store(false)
		return false
	}
	c.persist()
	c.changed()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelMgr.set(cancel)

	go c.run(ctx, id, history)
	return true
}

// Cancel aborts the in-flight send, if any. Partial output already applied
// stays as the final content of the model message; no rollback, no retry.
func (c *Controller) Cancel() {
	c.cancelMgr.cancel()
}

// run owns a single send from dispatch to terminal state.
//
// Cancellation takes effect at the stream client's next suspension point: a
// fragment already in flight when the context is cancelled may still be
// applied, but nothing is read from the network afterwards.
func (c *Controller) run(ctx context.Context, id string, history []model.Message) {
	err := c.streamer.StreamChat(ctx, history, func(fragment string) {
		if c.registry.applyFragment(id, fragment) {
			c.persist()
			c.changed()
		}
	})

	switch {
	case err == nil:
		// Remote closed the stream; the reply is complete.
	case errors.Is(err, context.Canceled):
		// User stop. Keep the partial reply, no apology.
	default:
		c.logger.Printf("send failed: %v", err)
		if c.registry.applyFragment(id, ApologyText) {
			c.persist()
		}
	}

	c.cancelMgr.clear()
	c.busy.Store(false)
	c.changed()
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// persist writes the full current session list, or clears the persisted state
// when the list is empty. Load failures never block the UI; they are logged
// and the in-memory state remains authoritative.
func (c *Controller) persist() {
	if c.store == nil {
		return
	}

	sessions := c.registry.Sessions()
	var err error
	if len(sessions) == 0 {
		err = c.store.Clear()
	} else {
		err = c.store.Save(sessions)
	}
	if err != nil {
		c.logger.Printf("persist failed: %v", err)
	}
}

// ReloadSeed applies an externally modified snapshot, e.g. one written by
// another running instance. Skipped while a send is in flight so the stream
// target cannot be swapped out from underneath the fragment applier.
func (c *Controller) ReloadSeed(sessions []*model.ChatSession) {
	if c.busy.Load() {
		return
	}
	if len(sessions) == 0 {
		return
	}
	c.registry.Replace(sessions)
	c.changed()
}

func (c *Controller) changed() {
	if c.notify != nil {
		c.notify()
	}
}
