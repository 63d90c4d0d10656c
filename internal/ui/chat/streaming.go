// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file caps the redraw rate during streaming. Fragments are applied
// to the registry by the controller as they arrive, which can be hundreds
// of times per second; re-rendering the transcript on every one causes
// flicker and burns CPU. The renderLimiter coalesces change notifications
// and releases at most maxFPS redraws per second, with a forced final
// redraw when the stream ends.
package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	// defaultMaxFPS caps transcript redraws during streaming.
	defaultMaxFPS = 30
)

// renderLimiter coalesces change notifications into capped-rate redraws.
//
// Thread-safety: Mark is called from controller goroutines while
// ShouldRender runs in the Bubble Tea loop, so state is mutex-guarded.
type renderLimiter struct {
	mu          sync.Mutex
	dirty       bool
	lastRender  time.Time
	minInterval time.Duration
}

func newRenderLimiter() *renderLimiter {
	return &renderLimiter{
		minInterval: time.Second / defaultMaxFPS,
	}
}

// Mark records that the registry changed since the last redraw.
func (rl *renderLimiter) Mark() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.dirty = true
}

// ShouldRender reports whether a redraw is due, and if so consumes the
// dirty flag. A redraw is due when there are unrendered changes and at
// least minInterval has passed since the previous redraw.
func (rl *renderLimiter) ShouldRender() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.dirty {
		return false
	}
	if time.Since(rl.lastRender) < rl.minInterval {
		return false
	}

	rl.dirty = false
	rl.lastRender = time.Now()
	return true
}

// ForceRender consumes the dirty flag regardless of elapsed time.
// Used when a stream completes so the final fragment always lands.
func (rl *renderLimiter) ForceRender() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.dirty {
		return false
	}
	rl.dirty = false
	rl.lastRender = time.Now()
	return true
}

// Reset clears pending state, for when a new stream starts.
func (rl *renderLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.dirty = false
	rl.lastRender = time.Time{}
}

// streamTickCmd schedules the next redraw check while streaming.
func streamTickCmd() tea.Cmd {
	return tea.Tick(time.Second/defaultMaxFPS, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
