// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"testing"

	"github.com/ocepa/ocepa-tui/internal/model"
)

// =============================================================================
// ARG PARSER TESTS
// =============================================================================

func TestArgParserSubcommandAndFlags(t *testing.T) {
	args := NewArgParser([]string{"serve", "--port", "9000", "--quiet"})

	if got := args.Subcommand(); got != "serve" {
		t.Errorf("Subcommand() = %q, want %q", got, "serve")
	}
	if got := args.Flag("port"); got != "9000" {
		t.Errorf("Flag(port) = %q, want %q", got, "9000")
	}
	if !args.BoolFlag("quiet") {
		t.Error("BoolFlag(quiet) = false, want true")
	}
}

func TestArgParserEqualsForm(t *testing.T) {
	args := NewArgParser([]string{"chat", "--endpoint=http://127.0.0.1:9999", "--markdown=false"})

	if got := args.Flag("endpoint"); got != "http://127.0.0.1:9999" {
		t.Errorf("Flag(endpoint) = %q", got)
	}
	if args.BoolFlag("markdown") {
		t.Error("explicit --markdown=false should parse as false")
	}
	if !args.HasFlag("markdown") {
		t.Error("HasFlag(markdown) = false, want true")
	}
}

func TestArgParserShortFlags(t *testing.T) {
	args := NewArgParser([]string{"-p", "8991", "-q"})

	if got := args.Flag("p"); got != "8991" {
		t.Errorf("Flag(p) = %q", got)
	}
	if !args.BoolFlag("q") {
		t.Error("BoolFlag(q) = false, want true")
	}
	if args.Subcommand() != "" {
		t.Errorf("Subcommand() = %q, want empty", args.Subcommand())
	}
}

func TestArgParserIntDefaults(t *testing.T) {
	args := NewArgParser([]string{"serve", "--port", "abc"})

	if got := args.FlagIntOrDefault("port", 8990); got != 8990 {
		t.Errorf("unparsable int should fall back: got %d", got)
	}
	if got := args.FlagIntOrDefault("missing", 42); got != 42 {
		t.Errorf("missing flag should fall back: got %d", got)
	}
}

func TestArgParserPositionals(t *testing.T) {
	args := NewArgParser([]string{"chat", "extra", "words"})

	if got := args.Positional(1); got != "extra" {
		t.Errorf("Positional(1) = %q", got)
	}
	rest := args.PositionalFrom(1)
	if len(rest) != 2 || rest[0] != "extra" || rest[1] != "words" {
		t.Errorf("PositionalFrom(1) = %v", rest)
	}
	if got := args.Positional(9); got != "" {
		t.Errorf("out of range Positional = %q, want empty", got)
	}
}

// =============================================================================
// REPL COMMAND TESTS
// =============================================================================

func TestHandleCommandQuit(t *testing.T) {
	s := &ReplSession{}
	for _, cmd := range []string{"/quit", "/q", "/exit"} {
		if !s.handleCommand(cmd) {
			t.Errorf("handleCommand(%q) = false, want exit", cmd)
		}
	}
	if s.handleCommand("/help") {
		t.Error("handleCommand(/help) should not exit")
	}
}

func TestHandleCommandClear(t *testing.T) {
	s := &ReplSession{
		History: []model.Message{
			model.NewUserMessage("q"),
			model.NewModelMessage("a"),
		},
	}

	s.handleCommand("/clear")

	if len(s.History) != 0 {
		t.Errorf("history length after /clear = %d, want 0", len(s.History))
	}
}
