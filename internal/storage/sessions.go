// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/ocepa/ocepa-tui/internal/model"
	"github.com/ocepa/ocepa-tui/internal/util"
)

// SessionsFile is the name of the persisted session list within the data
// directory. It plays the role of the "chatSessions" storage key.
const SessionsFile = "chatSessions.json"

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore handles durable persistence of the session list.
type SessionStore struct {
	// BaseDir is the data directory, default ~/.ocepa
	BaseDir string

	logger *log.Logger
}

// NewSessionStore creates a store rooted at ~/.ocepa.
func NewSessionStore() (*SessionStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewSessionStoreWithDir(filepath.Join(homeDir, ".ocepa"))
}

// NewSessionStoreWithDir creates a store with a custom data directory.
func NewSessionStoreWithDir(baseDir string) (*SessionStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &SessionStore{
		BaseDir: baseDir,
		logger:  log.New(os.Stderr, "storage: ", log.LstdFlags),
	}, nil
}

// SetLogger replaces the store's logger. Used by tests to silence warnings.
func (s *SessionStore) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// =============================================================================
// LOAD / SAVE / CLEAR
// =============================================================================

// Load reads the persisted session list. A missing file means "no saved
// state" and returns (nil, nil). A snapshot that fails to parse is treated
// the same way, with a logged warning, rather than discarding the error
// upward and taking the whole client down with it.
func (s *SessionStore) Load() ([]*model.ChatSession, error) {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var sessions []*model.ChatSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		s.logger.Printf("warning: discarding unreadable session snapshot: %v", err)
		return nil, nil
	}

	return sessions, nil
}

// Save persists the full session list. The caller must not pass an empty
// list; use Clear when the list becomes empty.
func (s *SessionStore) Save(sessions []*model.ChatSession) error {
	if len(sessions) == 0 {
		return s.Clear()
	}

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return err
	}

	return util.AtomicWriteFile(s.filePath(), data, 0644)
}

// Clear removes the persisted session list.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.filePath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the location of the sessions file. The Watcher observes it.
func (s *SessionStore) Path() string {
	return s.filePath()
}

func (s *SessionStore) filePath() string {
	return filepath.Join(s.BaseDir, SessionsFile)
}
