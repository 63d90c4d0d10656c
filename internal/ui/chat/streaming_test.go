// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
	"time"
)

func TestRenderLimiterCleanNeverRenders(t *testing.T) {
	rl := newRenderLimiter()

	if rl.ShouldRender() {
		t.Error("clean limiter should not request a render")
	}
	if rl.ForceRender() {
		t.Error("clean limiter should not force a render")
	}
}

func TestRenderLimiterFirstMarkRendersImmediately(t *testing.T) {
	rl := newRenderLimiter()
	rl.Mark()

	if !rl.ShouldRender() {
		t.Fatal("first mark should render right away")
	}
	if rl.ShouldRender() {
		t.Error("render should have consumed the dirty flag")
	}
}

func TestRenderLimiterThrottlesBursts(t *testing.T) {
	rl := newRenderLimiter()

	rl.Mark()
	if !rl.ShouldRender() {
		t.Fatal("first render should pass")
	}

	// A burst of marks right after a render stays held back.
	for i := 0; i < 50; i++ {
		rl.Mark()
		if rl.ShouldRender() {
			t.Fatal("render allowed inside the minimum interval")
		}
	}

	// Dirty content is still there and force-flushes.
	if !rl.ForceRender() {
		t.Error("held-back content should force-flush")
	}
}

func TestRenderLimiterRendersAfterInterval(t *testing.T) {
	rl := newRenderLimiter()
	rl.minInterval = 5 * time.Millisecond

	rl.Mark()
	if !rl.ShouldRender() {
		t.Fatal("first render should pass")
	}

	rl.Mark()
	time.Sleep(10 * time.Millisecond)
	if !rl.ShouldRender() {
		t.Error("render should pass once the interval elapsed")
	}
}

func TestRenderLimiterReset(t *testing.T) {
	rl := newRenderLimiter()

	rl.Mark()
	rl.Reset()

	if rl.ForceRender() {
		t.Error("reset should discard pending state")
	}
}
