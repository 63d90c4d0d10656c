// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ocepa/ocepa-tui/internal/model"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	store, err := NewSessionStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	store.SetLogger(log.New(io.Discard, "", 0))
	return store
}

func sampleSessions() []*model.ChatSession {
	a := model.NewChatSession()
	a.Title = "Photosynthesis"
	a.Append(model.NewUserMessage("Explain photosynthesis"))
	a.Append(model.NewModelMessage("Photosynthesis is..."))

	b := model.NewChatSession()
	b.Title = "Acids"
	b.Append(model.NewUserMessage("What is an acid?"))

	return []*model.ChatSession{a, b}
}

// =============================================================================
// ROUND-TRIP TESTS
// =============================================================================

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	saved := sampleSessions()

	if err := store.Save(saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("loaded %d sessions, want 2", len(loaded))
	}
	for i := range saved {
		if loaded[i].ID != saved[i].ID {
			t.Errorf("session %d ID = %q, want %q", i, loaded[i].ID, saved[i].ID)
		}
		if loaded[i].Title != saved[i].Title {
			t.Errorf("session %d Title = %q, want %q", i, loaded[i].Title, saved[i].Title)
		}
		if len(loaded[i].Messages) != len(saved[i].Messages) {
			t.Errorf("session %d has %d messages, want %d",
				i, len(loaded[i].Messages), len(saved[i].Messages))
			continue
		}
		for j, msg := range saved[i].Messages {
			if loaded[i].Messages[j] != msg {
				t.Errorf("session %d message %d = %+v, want %+v",
					i, j, loaded[i].Messages[j], msg)
			}
		}
	}
}

func TestLoadAbsentIsNoSavedState(t *testing.T) {
	store := newTestStore(t)

	sessions, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sessions != nil {
		t.Errorf("expected nil for absent state, got %d sessions", len(sessions))
	}
}

func TestSaveEmptyClearsInsteadOfPersisting(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(sampleSessions()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(nil); err != nil {
		t.Fatalf("Save(nil) failed: %v", err)
	}

	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Error("sessions file should be removed when the list becomes empty")
	}

	sessions, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sessions != nil {
		t.Error("reload after clear should report no saved state, not an empty list")
	}
}

func TestClearIdempotent(t *testing.T) {
	store := newTestStore(t)

	if err := store.Clear(); err != nil {
		t.Errorf("Clear on absent file failed: %v", err)
	}
}

// =============================================================================
// CORRUPT SNAPSHOT TESTS
// =============================================================================

func TestLoadCorruptSnapshotTreatedAsAbsent(t *testing.T) {
	store := newTestStore(t)

	if err := os.WriteFile(store.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to plant corrupt file: %v", err)
	}

	sessions, err := store.Load()
	if err != nil {
		t.Fatalf("corrupt snapshot should not error, got: %v", err)
	}
	if sessions != nil {
		t.Error("corrupt snapshot should be treated as no saved state")
	}
}

func TestLoadRejectsUnknownRole(t *testing.T) {
	store := newTestStore(t)

	bad := `[{"id":"chat-x","title":"t","messages":[{"role":"assistant","text":"hi"}]}]`
	if err := os.WriteFile(store.Path(), []byte(bad), 0644); err != nil {
		t.Fatalf("failed to plant file: %v", err)
	}

	// The closed role set makes this snapshot unparsable, so it is treated
	// as absent state like any other corrupt snapshot.
	sessions, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sessions != nil {
		t.Error("snapshot with unknown role should be discarded")
	}
}

// =============================================================================
// WATCHER TESTS
// =============================================================================

func TestWatcherReportsExternalWrite(t *testing.T) {
	store := newTestStore(t)

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(store, 50*time.Millisecond, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(store.Path(), []byte("[]"), 0644); err != nil {
		t.Fatalf("external write failed: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report external write")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	store := newTestStore(t)

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(store, 50*time.Millisecond, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	other := filepath.Join(store.BaseDir, "config.toml")
	if err := os.WriteFile(other, []byte("x"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	select {
	case <-changed:
		t.Fatal("watcher fired for an unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}
