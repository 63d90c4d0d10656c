// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/ocepa/ocepa-tui/internal/model"
)

func testClient(url string) *Client {
	return NewClientWithConfig(&ClientConfig{Endpoint: url, Timeout: 5 * time.Second})
}

func history(texts ...string) []model.Message {
	var msgs []model.Message
	for i, text := range texts {
		if i%2 == 0 {
			msgs = append(msgs, model.NewUserMessage(text))
		} else {
			msgs = append(msgs, model.NewModelMessage(text))
		}
	}
	return msgs
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func TestStreamChatDeliversFragmentsInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.History) != 1 || req.History[0].Text != "What is diffusion?" {
			t.Errorf("history = %+v", req.History)
		}
		if req.Stream != nil {
			t.Error("streaming request must omit the stream field")
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		flusher := w.(http.Flusher)
		for _, chunk := range []string{"Diffusion ", "is the movement ", "of particles."} {
			w.Write([]byte(chunk))
			flusher.Flush()
		}
	}))
	defer srv.Close()

	var fragments []string
	err := testClient(srv.URL).StreamChat(context.Background(), history("What is diffusion?"), func(f string) {
		fragments = append(fragments, f)
	})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}

	got := strings.Join(fragments, "")
	if got != "Diffusion is the movement of particles." {
		t.Errorf("assembled reply = %q", got)
	}
	if len(fragments) == 0 {
		t.Error("no fragments delivered")
	}
}

func TestStreamChatHoldsBackSplitRunes(t *testing.T) {
	// "é" is 0xC3 0xA9; deliver the bytes in separate flushes.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("caf\xc3"))
		flusher.Flush()
		time.Sleep(20 * time.Millisecond)
		w.Write([]byte("\xa9!"))
		flusher.Flush()
	}))
	defer srv.Close()

	var fragments []string
	err := testClient(srv.URL).StreamChat(context.Background(), history("hi"), func(f string) {
		fragments = append(fragments, f)
	})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}

	for _, f := range fragments {
		if !utf8.ValidString(f) {
			t.Errorf("fragment %q is not valid UTF-8", f)
		}
	}
	if got := strings.Join(fragments, ""); got != "café!" {
		t.Errorf("assembled reply = %q, want %q", got, "café!")
	}
}

func TestStreamChatCancellation(t *testing.T) {
	sent := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("Par"))
		flusher.Flush()
		close(sent)
		// Hold the stream open until the client goes away.
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var fragments []string
	done := make(chan error, 1)
	go func() {
		done <- testClient(srv.URL).StreamChat(ctx, history("hi"), func(f string) {
			fragments = append(fragments, f)
		})
	}()

	<-sent
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled in chain", err)
		}
		var clientErr *ClientError
		if !errors.As(err, &clientErr) {
			t.Fatalf("err = %T, want *ClientError", err)
		}
		if clientErr.Type != ErrTypeCanceled {
			t.Errorf("Type = %v, want ErrTypeCanceled", clientErr.Type)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("StreamChat did not return after cancel")
	}

	if got := strings.Join(fragments, ""); got != "Par" {
		t.Errorf("fragments before cancel = %q, want %q", got, "Par")
	}
}

func TestStreamChatConnectionDropMidStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("Hello"))
		flusher.Flush()
		// Sever the connection so the chunked body never terminates cleanly.
		panic(http.ErrAbortHandler)
	}))
	defer srv.Close()

	var fragments []string
	err := testClient(srv.URL).StreamChat(context.Background(), history("hi"), func(f string) {
		fragments = append(fragments, f)
	})
	if err == nil {
		t.Fatal("expected error from a severed stream")
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, must not look like a user cancel", err)
	}
	if got := strings.Join(fragments, ""); got != "Hello" {
		t.Errorf("fragments before drop = %q, want %q", got, "Hello")
	}
}

func TestStreamChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "The last message in history must be from the user."})
	}))
	defer srv.Close()

	err := testClient(srv.URL).StreamChat(context.Background(), history("hi", "there"), func(string) {
		t.Error("no fragments expected on a rejected request")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("err = %T, want *ClientError", err)
	}
	if clientErr.Type != ErrTypeRejected {
		t.Errorf("Type = %v, want ErrTypeRejected", clientErr.Type)
	}
	if !strings.Contains(clientErr.Message, "last message") {
		t.Errorf("Message = %q, want proxy error body", clientErr.Message)
	}
}

func TestStreamChatUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := testClient(srv.URL).StreamChat(context.Background(), history("hi"), func(string) {})
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("err = %v, want ErrUnreachable", err)
	}
}

// =============================================================================
// NON-STREAMING TESTS
// =============================================================================

func TestCompleteReturnsFullText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream == nil || *req.Stream {
			t.Error("Complete must send stream=false")
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "Mitosis produces two identical cells."})
	}))
	defer srv.Close()

	text, err := testClient(srv.URL).Complete(context.Background(), history("What is mitosis?"))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "Mitosis produces two identical cells." {
		t.Errorf("text = %q", text)
	}
}

func TestCompleteSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "Failed to get response from Gemini API."})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), history("hi"))
	if err == nil {
		t.Fatal("expected error")
	}

	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("err = %T, want *ClientError", err)
	}
	if clientErr.Type != ErrTypeServer {
		t.Errorf("Type = %v, want ErrTypeServer", clientErr.Type)
	}
}

// =============================================================================
// HEALTH TESTS
// =============================================================================

func TestCheckRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %s, want /health", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := testClient(srv.URL).CheckRunning(context.Background()); err != nil {
		t.Errorf("CheckRunning: %v", err)
	}
}

// =============================================================================
// RUNE SPLITTING TESTS
// =============================================================================

func TestSplitIncompleteRune(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		complete string
		partial  string
	}{
		{"empty", "", "", ""},
		{"ascii", "hello", "hello", ""},
		{"complete multibyte tail", "café", "café", ""},
		{"split two byte", "caf\xc3", "caf", "\xc3"},
		{"split three byte after one", "a\xe2\x82", "a", "\xe2\x82"},
		{"split four byte after three", "x\xf0\x9f\x98", "x", "\xf0\x9f\x98"},
		{"lone continuation bytes", "\x80\x80", "\x80\x80", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			complete, partial := splitIncompleteRune([]byte(tt.in))
			if string(complete) != tt.complete || string(partial) != tt.partial {
				t.Errorf("splitIncompleteRune(%q) = (%q, %q), want (%q, %q)",
					tt.in, complete, partial, tt.complete, tt.partial)
			}
		})
	}
}
