// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tutor provides the HTTP client for the Ocepa chat proxy.
//
// The proxy speaks a deliberately small protocol: the client POSTs the full
// message history and receives the reply as raw UTF-8 text chunks. All
// provider details (model, credential, system prompt) live on the proxy side.
package tutor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/ocepa/ocepa-tui/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the proxy client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnreachable
	ErrTypeTimeout
	ErrTypeCanceled
	ErrTypeRejected
	ErrTypeServer
	ErrTypeInvalidResponse
)

// interruptError classifies a context failure: a user-driven cancel gets
// ErrTypeCanceled, a deadline gets ErrTypeTimeout. Either way the context
// error stays reachable through Unwrap for errors.Is checks.
func interruptError(cause error) *ClientError {
	if errors.Is(cause, context.Canceled) {
		return &ClientError{Type: ErrTypeCanceled, Message: "stream canceled", Cause: cause}
	}
	return &ClientError{Type: ErrTypeTimeout, Message: "stream timed out", Cause: cause}
}

// Sentinel errors for easy checking.
var (
	ErrUnreachable = &ClientError{Type: ErrTypeUnreachable, Message: "chat proxy is not reachable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the proxy client.
type ClientConfig struct {
	// Endpoint is the proxy base URL (default: http://127.0.0.1:8990)
	Endpoint string

	// Timeout for non-streaming requests (default: 60s)
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Endpoint: "http://127.0.0.1:8990",
		Timeout:  60 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the chat proxy.
// It is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a proxy client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a proxy client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Endpoint == "" {
		config.Endpoint = "http://127.0.0.1:8990"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// chatRequest is the proxy wire format. Stream is omitted for streaming
// requests; the proxy treats an absent field as true.
type chatRequest struct {
	History []model.Message `json:"history"`
	Stream  *bool           `json:"stream,omitempty"`
}

// completeResponse is the non-streaming reply body.
type completeResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// errorResponse is the body of any non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that the proxy is reachable.
func (c *Client) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint+"/health", nil)
	if err != nil {
		return &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ErrUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeServer,
			Message: "unexpected status from proxy: " + resp.Status,
		}
	}

	return nil
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// StreamChat dispatches the history and delivers the reply as text fragments,
// called synchronously in arrival order. Fragments are cut at rune boundaries
// so a partially received multi-byte character never reaches the callback.
//
// A cancelled context ends the call with an error satisfying
// errors.Is(err, context.Canceled); no fragments are delivered afterwards.
func (c *Client) StreamChat(ctx context.Context, history []model.Message, onFragment func(string)) error {
	body, err := json.Marshal(chatRequest{History: history})
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	// No client timeout for streaming; lifetime is governed by the context.
	streamClient := &http.Client{}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return interruptError(ctx.Err())
		}
		return ErrUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readErrorResponse(resp)
	}

	return c.readStream(ctx, resp.Body, onFragment)
}

// readStream relays raw body chunks as fragments, checking the context before
// every read and holding back trailing bytes of an incomplete rune until the
// next chunk completes it.
func (c *Client) readStream(ctx context.Context, body io.Reader, onFragment func(string)) error {
	buf := make([]byte, 4096)
	var pending []byte

	for {
		select {
		case <-ctx.Done():
			return interruptError(ctx.Err())
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			complete, rest := splitIncompleteRune(pending)
			if len(complete) > 0 {
				onFragment(string(complete))
			}
			pending = append(pending[:0:0], rest...)
		}
		if err != nil {
			if err == io.EOF {
				if len(pending) > 0 {
					onFragment(string(pending))
				}
				return nil
			}
			if ctx.Err() != nil {
				return interruptError(ctx.Err())
			}
			return &ClientError{Type: ErrTypeServer, Message: "stream read failed", Cause: err}
		}
	}
}

// splitIncompleteRune splits buf so the first part ends on a rune boundary;
// the second part is the leading bytes of a rune whose tail has not arrived.
func splitIncompleteRune(buf []byte) (complete, partial []byte) {
	if len(buf) == 0 {
		return buf, nil
	}

	// Find the start byte of the final rune (at most UTFMax-1 back).
	start := len(buf) - 1
	for start > 0 && len(buf)-start < utf8.UTFMax && buf[start]&0xC0 == 0x80 {
		start--
	}

	if utf8.FullRune(buf[start:]) {
		return buf, nil
	}
	return buf[:start], buf[start:]
}

// =============================================================================
// NON-STREAMING CHAT
// =============================================================================

// Complete dispatches the history with streaming disabled and returns the
// full reply text. Used by the plain-terminal REPL.
func (c *Client) Complete(ctx context.Context, history []model.Message) (string, error) {
	stream := false
	body, err := json.Marshal(chatRequest{History: history, Stream: &stream})
	if err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		if ctx.Err() != nil {
			return "", interruptError(ctx.Err())
		}
		return "", ErrUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readErrorResponse(resp)
	}

	var result completeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	if result.Error != "" {
		return "", &ClientError{Type: ErrTypeServer, Message: result.Error}
	}

	return result.Text, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// readErrorResponse converts a non-2xx reply into a ClientError, preferring
// the proxy's {error} body over the bare status line.
func readErrorResponse(resp *http.Response) error {
	errType := ErrTypeServer
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		errType = ErrTypeRejected
	}

	var payload errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err == nil && payload.Error != "" {
		return &ClientError{Type: errType, Message: payload.Error}
	}
	return &ClientError{Type: errType, Message: "chat request failed: " + resp.Status}
}

// GetConfig returns the active configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}
