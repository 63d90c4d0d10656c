// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI command surface of ocepa: argument
// parsing and the plain-terminal chat REPL.
//
// The REPL ("ocepa chat") is the fallback for environments where the full
// Bubble Tea interface is unwanted. It talks to the same proxy as the TUI but
// uses the non-streaming variant and keeps its history in the terminal
// session only; nothing is persisted to the session store.
package cli
