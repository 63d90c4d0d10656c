// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/ocepa/ocepa-tui/internal/config"
	"github.com/ocepa/ocepa-tui/internal/model"
	"github.com/ocepa/ocepa-tui/internal/tutor"
	"github.com/ocepa/ocepa-tui/internal/ui/styles"
	"github.com/ocepa/ocepa-tui/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	replyStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for the REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt. Non-empty input is
// added to the navigable history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// REPL SESSION
// =============================================================================

// ReplSession holds the state for one interactive terminal chat.
type ReplSession struct {
	History   []model.Message
	Client    *tutor.Client
	Config    *config.Config
	StartTime time.Time
	Questions int
	InputCLI  *ChatCLI
}

// NewReplSession creates a REPL session against the configured proxy.
func NewReplSession(cfg *config.Config) *ReplSession {
	client := tutor.NewClientWithConfig(&tutor.ClientConfig{
		Endpoint: cfg.Client.Endpoint,
	})

	return &ReplSession{
		History:   make([]model.Message, 0),
		Client:    client,
		Config:    cfg,
		StartTime: time.Now(),
		InputCLI:  NewChatCLI(),
	}
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand runs the "ocepa chat" REPL until the user exits.
func HandleChatCommand(cfg *config.Config) error {
	session := NewReplSession(cfg)
	defer session.InputCLI.Close()

	ctx := context.Background()
	if err := session.Client.CheckRunning(ctx); err != nil {
		return fmt.Errorf("chat proxy is not reachable at %s. Start it with: ocepa serve", cfg.Client.Endpoint)
	}

	printWelcome(cfg)

	for {
		input, err := session.InputCLI.ReadInput(promptStyle.Render("you> "))
		if err != nil {
			if err == liner.ErrPromptAborted {
				// Ctrl+C at the prompt: blank line, keep going.
				fmt.Println()
				continue
			}
			if err == io.EOF {
				break
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if done := session.handleCommand(input); done {
				break
			}
			continue
		}

		session.ask(ctx, input)
	}

	printSummary(session)
	return nil
}

// ask sends one question and prints the full reply.
func (s *ReplSession) ask(ctx context.Context, question string) {
	history := append(append([]model.Message(nil), s.History...), model.NewUserMessage(question))

	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	text, err := s.Client.Complete(reqCtx, history)
	if err != nil {
		fmt.Println(errorStyle.Render("Sorry, I encountered an error while processing your request. Please try again."))
		return
	}

	s.History = append(history, model.NewModelMessage(text))
	s.Questions++

	fmt.Println()
	fmt.Println(replyStyle.Render(text))
	fmt.Println()
}

// handleCommand processes slash commands; returns true when the REPL should
// exit.
func (s *ReplSession) handleCommand(input string) bool {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/help", "/h":
		printHelp()
	case "/clear", "/c":
		s.History = s.History[:0]
		fmt.Println(infoStyle.Render("Conversation cleared."))
	case "/history":
		s.printHistory()
	case "/quit", "/q", "/exit":
		return true
	default:
		fmt.Println(infoStyle.Render("Unknown command. Type /help for a list."))
	}
	return false
}

// printHistory replays the conversation so far.
func (s *ReplSession) printHistory() {
	if len(s.History) == 0 {
		fmt.Println(infoStyle.Render("No messages yet."))
		return
	}
	for _, msg := range s.History {
		text := util.TruncateRunes(msg.Text, 200)
		switch msg.Role {
		case model.RoleUser:
			fmt.Println(promptStyle.Render("you: ") + text)
		case model.RoleModel:
			fmt.Println(welcomeStyle.Render("ocepa: ") + text)
		}
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

func printWelcome(cfg *config.Config) {
	fmt.Println(welcomeStyle.Render("Ocepa AI"))
	fmt.Println(infoStyle.Render("A'level science tutor. Ask anything in Biology, Chemistry, Physics or Mathematics."))
	fmt.Println(infoStyle.Render(fmt.Sprintf("Connected to %s. Type /help for commands, /quit to exit.", cfg.Client.Endpoint)))
	fmt.Println()
}

func printHelp() {
	fmt.Println(commandStyle.Render("/help") + "      Show this help")
	fmt.Println(commandStyle.Render("/clear") + "     Clear the conversation history")
	fmt.Println(commandStyle.Render("/history") + "   Replay the conversation so far")
	fmt.Println(commandStyle.Render("/quit") + "      Exit")
}

func printSummary(s *ReplSession) {
	fmt.Println()
	fmt.Println(infoStyle.Render(fmt.Sprintf(
		"Session over: %d questions in %s.",
		s.Questions,
		time.Since(s.StartTime).Round(time.Second),
	)))
}
