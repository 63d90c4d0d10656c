// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini provides the Google Gemini API client used by the proxy.
//
// Only the proxy talks to Gemini; the chat client never sees the API key,
// the model name, or the system prompt. The package implements the two
// generateContent variants the proxy needs: SSE streaming and one-shot.
package gemini

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ocepa/ocepa-tui/internal/model"
)

// Configuration constants for the Gemini API.
const (
	// DefaultBaseURL is the Gemini REST API base URL.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultModel is the model the proxy serves by default.
	DefaultModel = "gemini-2.5-flash"

	// DefaultTimeout is the timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps the non-streaming response body.
	MaxResponseSize = 10 * 1024 * 1024
)

var (
	// Shared HTTP client with connection pooling for one-shot requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient has no timeout; stream lifetime is governed by
	// the request context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// ErrNotConfigured indicates the API key is not set.
var ErrNotConfigured = errors.New("Gemini API key not configured")

// =============================================================================
// ERROR TYPES
// =============================================================================

// APIError is a structured error returned by the Gemini API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini API error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini API error %d: %s", e.StatusCode, e.Message)
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// Part is a single content part. Only text parts are used.
type Part struct {
	Text string `json:"text"`
}

// Content is a role-tagged message in Gemini's wire format.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// generateRequest is the body of both generateContent variants.
type generateRequest struct {
	Contents          []Content `json:"contents"`
	SystemInstruction *Content  `json:"systemInstruction,omitempty"`
}

// generateResponse is the body of a one-shot reply and of each SSE chunk.
type generateResponse struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// text returns the concatenated text parts of the first candidate.
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// ContentsFromMessages converts a chat history into Gemini contents. The
// history role tags are already Gemini's ("user"/"model"), so the mapping is
// direct.
func ContentsFromMessages(history []model.Message) []Content {
	contents := make([]Content, 0, len(history))
	for _, msg := range history {
		contents = append(contents, Content{
			Role:  string(msg.Role),
			Parts: []Part{{Text: msg.Text}},
		})
	}
	return contents
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Gemini API.
// It is safe for concurrent use.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string
}

// NewClient creates a Gemini client for the given API key.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
	}
}

// WithBaseURL overrides the API base URL. Used by tests.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimRight(url, "/")
	return c
}

// WithModel overrides the model identifier.
func (c *Client) WithModel(m string) *Client {
	if m != "" {
		c.model = m
	}
	return c
}

// WithSystemPrompt attaches a system instruction to every request.
func (c *Client) WithSystemPrompt(prompt string) *Client {
	c.systemPrompt = prompt
	return c
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// APIKeyMasked returns a redacted form of the key safe for logs.
func (c *Client) APIKeyMasked() string {
	if len(c.apiKey) < 8 {
		return "****"
	}
	return c.apiKey[:4] + "..." + c.apiKey[len(c.apiKey)-4:]
}

// =============================================================================
// REQUESTS
// =============================================================================

func (c *Client) newRequest(ctx context.Context, endpoint string, contents []Content) (*http.Request, error) {
	reqBody := generateRequest{Contents: contents}
	if c.systemPrompt != "" {
		reqBody.SystemInstruction = &Content{Parts: []Part{{Text: c.systemPrompt}}}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
	return req, nil
}

// Generate performs a one-shot generateContent call and returns the reply
// text.
func (c *Client) Generate(ctx context.Context, contents []Content) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := c.newRequest(ctx, endpoint, contents)
	if err != nil {
		return "", err
	}

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apiErrorFromBody(resp.StatusCode, body)
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return result.text(), nil
}

// StreamGenerate performs a streaming generateContent call, delivering each
// chunk's text through onText in arrival order. Chunks without text (safety
// metadata, usage stats) are skipped.
func (c *Client) StreamGenerate(ctx context.Context, contents []Content, onText func(string)) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", c.baseURL, c.model)
	req, err := c.newRequest(ctx, endpoint, contents)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return apiErrorFromBody(resp.StatusCode, body)
	}

	return c.processStream(ctx, resp.Body, onText)
}

// processStream reads SSE events off the body until EOF or cancellation.
func (c *Client) processStream(ctx context.Context, body io.Reader, onText func(string)) error {
	reader := NewSSEReader(body)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		var chunk generateResponse
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip malformed chunks
			continue
		}
		if chunk.Error != nil {
			return &APIError{
				StatusCode: chunk.Error.Code,
				Status:     chunk.Error.Status,
				Message:    chunk.Error.Message,
			}
		}

		if text := chunk.text(); text != "" {
			onText(text)
		}
	}
}

// apiErrorFromBody maps a non-200 response body to an APIError, falling back
// to the raw status when the body is not the structured error shape.
func apiErrorFromBody(statusCode int, body []byte) error {
	var result generateResponse
	if err := json.Unmarshal(body, &result); err == nil && result.Error != nil {
		return &APIError{
			StatusCode: statusCode,
			Status:     result.Error.Status,
			Message:    result.Error.Message,
		}
	}
	return &APIError{StatusCode: statusCode, Message: http.StatusText(statusCode)}
}
