// ocepa - A terminal client and proxy for the Ocepa AI tutor.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/ocepa/ocepa-tui/internal/cli"
	"github.com/ocepa/ocepa-tui/internal/config"
	"github.com/ocepa/ocepa-tui/internal/gemini"
	"github.com/ocepa/ocepa-tui/internal/server"
	"github.com/ocepa/ocepa-tui/internal/session"
	"github.com/ocepa/ocepa-tui/internal/storage"
	"github.com/ocepa/ocepa-tui/internal/tutor"
	"github.com/ocepa/ocepa-tui/internal/ui/chat"
	"github.com/ocepa/ocepa-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference for async change notifications
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

func notifyProgram(msg tea.Msg) {
	programMu.Lock()
	p := programRef
	programMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func main() {
	args := cli.NewArgParser(os.Args[1:])

	switch args.Subcommand() {
	case "", "tui":
		runTUI(args)
	case "serve":
		runServe(args)
	case "chat":
		runChat(args)
	case "version", "--version", "-v":
		printVersion()
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args.Subcommand())
		printUsage()
		os.Exit(1)
	}
}

func loadConfig(args *cli.ArgParser) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if endpoint := args.Flag("endpoint"); endpoint != "" {
		cfg.Client.Endpoint = endpoint
	}
	if args.HasFlag("no-markdown") {
		cfg.UI.Markdown = false
	}
	return cfg
}

// =============================================================================
// TUI
// =============================================================================

func runTUI(args *cli.ArgParser) {
	cfg := loadConfig(args)

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "The TUI needs an interactive terminal. Use 'ocepa chat' for a plain REPL.")
		os.Exit(1)
	}

	dir, err := cfg.StorageDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving data directory: %v\n", err)
		os.Exit(1)
	}
	store, err := storage.NewSessionStoreWithDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening session store: %v\n", err)
		os.Exit(1)
	}

	client := tutor.NewClientWithConfig(&tutor.ClientConfig{
		Endpoint: cfg.Client.Endpoint,
	})

	ctrl := session.NewController(store, client)
	snapshot, err := store.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load saved chats: %v\n", err)
	}
	ctrl.Seed(snapshot)
	ctrl.SetNotify(func() {
		notifyProgram(chat.SessionsChangedMsg{})
	})

	theme := styles.NewTheme()
	m := chat.New(theme, ctrl)
	if cfg.UI.Markdown {
		m.EnableMarkdown(theme.GlamourStyle(cfg.UI.Theme), 76)
	}

	// Pick up edits to the sessions file made outside this process.
	watcher, err := storage.NewWatcher(store, 300*time.Millisecond, func() {
		if snap, loadErr := store.Load(); loadErr == nil {
			ctrl.ReloadSeed(snap)
		}
	})
	if err == nil {
		if watchErr := watcher.Watch(); watchErr == nil {
			defer watcher.Close()
		}
	}

	p := tea.NewProgram(m, tea.WithAltScreen())

	programMu.Lock()
	programRef = p
	programMu.Unlock()

	// Probe the proxy in the background so a dead proxy shows up in the
	// status bar instead of stalling startup.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		probeErr := client.CheckRunning(ctx)
		p.Send(chat.ProxyStatusMsg{Reachable: probeErr == nil, Err: probeErr})
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running ocepa: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// PROXY SERVER
// =============================================================================

func runServe(args *cli.ArgParser) {
	cfg := loadConfig(args)
	port := args.FlagIntOrDefault("port", cfg.Server.Port)

	if cfg.Gemini.APIKey == "" {
		fmt.Fprintln(os.Stderr, "Error: no Gemini API key configured.")
		fmt.Fprintln(os.Stderr, "Set GEMINI_API_KEY or add api_key under [gemini] in the config file.")
		os.Exit(1)
	}

	provider := gemini.NewClient(cfg.Gemini.APIKey).
		WithSystemPrompt(server.SystemPrompt)
	if cfg.Gemini.Model != "" {
		provider = provider.WithModel(cfg.Gemini.Model)
	}
	if cfg.Gemini.BaseURL != "" {
		provider = provider.WithBaseURL(cfg.Gemini.BaseURL)
	}

	srv := server.NewServer(port, provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// PLAIN CHAT REPL
// =============================================================================

func runChat(args *cli.ArgParser) {
	cfg := loadConfig(args)

	if err := cli.HandleChatCommand(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// HELP AND VERSION
// =============================================================================

func printVersion() {
	fmt.Printf("ocepa %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}

func printUsage() {
	fmt.Print(`ocepa - your personal AI tutor in the terminal

Usage:
  ocepa              Start the chat TUI
  ocepa serve        Run the Gemini proxy server
  ocepa chat         Plain line-based chat (no TUI)
  ocepa version      Print version information
  ocepa help         Show this help

Flags:
  --endpoint URL     Proxy base URL for the client (default http://127.0.0.1:8990)
  --port N           Listen port for 'serve' (default 8990)
  --no-markdown      Disable markdown rendering in the TUI

Configuration lives in ~/.ocepa/config.toml. The proxy reads the Gemini
API key from GEMINI_API_KEY.
`)
}
