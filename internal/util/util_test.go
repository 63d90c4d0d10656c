// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")

	if err := AtomicWriteFile(path, []byte(`{"ok":true}`), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("content = %q", string(data))
	}
}

func TestAtomicWriteFileReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	if err := AtomicWriteFile(path, []byte("first"), 0644); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("second"), 0644); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", string(data), "second")
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("hello", 10); got != "hello" {
		t.Errorf("TruncateRunes short = %q", got)
	}
	if got := TruncateRunes("hello world", 8); got != "hello..." {
		t.Errorf("TruncateRunes long = %q", got)
	}
	if got := TruncateRunes("héllo wörld", 8); got != "héllo..." {
		t.Errorf("TruncateRunes unicode = %q", got)
	}
	if got := TruncateRunes("anything", 0); got != "" {
		t.Errorf("TruncateRunes zero = %q", got)
	}
}

func TestTruncateWidth(t *testing.T) {
	if got := TruncateWidth("abc", 10); got != "abc" {
		t.Errorf("TruncateWidth short = %q", got)
	}
	got := TruncateWidth("abcdefghij", 6)
	if got != "abc..." {
		t.Errorf("TruncateWidth long = %q", got)
	}
}

func TestPadRight(t *testing.T) {
	if got := PadRight("ab", 5); got != "ab   " {
		t.Errorf("PadRight = %q", got)
	}
	if got := PadRight("abcdef", 3); got != "abcdef" {
		t.Errorf("PadRight overlong = %q", got)
	}
}
