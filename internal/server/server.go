// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ocepa/ocepa-tui/internal/gemini"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is the default port for the proxy.
	DefaultPort = 8990

	// MaxRequestBodySize is the maximum size for a request body (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxMessageCount is the maximum number of messages in a history.
	MaxMessageCount = 200

	// MaxMessageLength is the maximum length of a single message text.
	MaxMessageLength = 100000

	// upstreamErrorMessage is the generic error returned to clients when the
	// provider call fails. Upstream details are logged, never forwarded.
	upstreamErrorMessage = "Failed to get response from Gemini API."

	// Version is the proxy version.
	Version = "0.1.0"
)

// validRoles is the closed set of acceptable history roles.
var validRoles = map[string]bool{
	"user":  true,
	"model": true,
}

// ============================================================================
// WIRE TYPES
// ============================================================================

// ChatMessage is one history entry in the proxy wire format.
type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ChatRequest is the body of POST /api/chat. Stream defaults to true when
// absent.
type ChatRequest struct {
	History []ChatMessage `json:"history"`
	Stream  *bool         `json:"stream"`
}

// CompleteResponse is the non-streaming reply body.
type CompleteResponse struct {
	Text string `json:"text"`
}

// validateHistory checks the structural rules every request must satisfy:
// non-empty, known roles only, bounded sizes, and a final non-empty user
// message carrying the new prompt.
func validateHistory(history []ChatMessage) error {
	if len(history) == 0 {
		return fmt.Errorf(`request body must contain a non-empty "history" array`)
	}
	if len(history) > MaxMessageCount {
		return fmt.Errorf("too many messages: maximum is %d", MaxMessageCount)
	}

	for i, msg := range history {
		if !validRoles[msg.Role] {
			return fmt.Errorf("invalid role %q at message %d: must be user or model", msg.Role, i)
		}
		if len(msg.Text) > MaxMessageLength {
			return fmt.Errorf("message %d exceeds maximum length of %d", i, MaxMessageLength)
		}
	}

	last := history[len(history)-1]
	if last.Role != "user" || last.Text == "" {
		return fmt.Errorf("the last message in history must be from the user")
	}
	return nil
}

// ============================================================================
// SERVER STATS
// ============================================================================

// ServerStats tracks proxy usage statistics.
type ServerStats struct {
	TotalRequests    int64     `json:"total_requests"`
	StreamRequests   int64     `json:"stream_requests"`
	CompleteRequests int64     `json:"complete_requests"`
	UpstreamFailures int64     `json:"upstream_failures"`
	StartTime        time.Time `json:"start_time"`
}

// NewServerStats creates a new ServerStats instance.
func NewServerStats() *ServerStats {
	return &ServerStats{
		StartTime: time.Now(),
	}
}

// RecordRequest records a request of the given kind.
func (s *ServerStats) RecordRequest(streaming bool) {
	atomic.AddInt64(&s.TotalRequests, 1)
	if streaming {
		atomic.AddInt64(&s.StreamRequests, 1)
	} else {
		atomic.AddInt64(&s.CompleteRequests, 1)
	}
}

// RecordFailure records an upstream failure.
func (s *ServerStats) RecordFailure() {
	atomic.AddInt64(&s.UpstreamFailures, 1)
}

// Snapshot returns a copy of the current stats.
func (s *ServerStats) Snapshot() ServerStats {
	return ServerStats{
		TotalRequests:    atomic.LoadInt64(&s.TotalRequests),
		StreamRequests:   atomic.LoadInt64(&s.StreamRequests),
		CompleteRequests: atomic.LoadInt64(&s.CompleteRequests),
		UpstreamFailures: atomic.LoadInt64(&s.UpstreamFailures),
		StartTime:        s.StartTime,
	}
}

// Uptime returns the proxy uptime duration.
func (s *ServerStats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// ============================================================================
// SERVER
// ============================================================================

// Provider is the upstream the proxy forwards chat histories to.
// *gemini.Client satisfies it.
type Provider interface {
	StreamGenerate(ctx context.Context, contents []gemini.Content, onText func(string)) error
	Generate(ctx context.Context, contents []gemini.Content) (string, error)
	Model() string
}

// Server is the chat proxy HTTP server.
type Server struct {
	port     int
	router   *http.ServeMux
	server   *http.Server
	provider Provider
	stats    *ServerStats
	limiter  *RateLimiter
	logger   *log.Logger

	mu sync.RWMutex
}

// NewServer creates a proxy for the given provider. If port is 0, the
// default port (8990) is used.
func NewServer(port int, provider Provider) *Server {
	if port == 0 {
		port = DefaultPort
	}

	s := &Server{
		port:     port,
		router:   http.NewServeMux(),
		provider: provider,
		stats:    NewServerStats(),
		limiter:  DefaultRateLimiter(),
		logger:   log.Default(),
	}

	s.setupRoutes()
	return s
}

// WithLogger sets a custom logger.
func (s *Server) WithLogger(logger *log.Logger) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
	return s
}

// WithRateLimiter sets a custom rate limiter.
func (s *Server) WithRateLimiter(limiter *RateLimiter) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiter = limiter
	return s
}

// Port returns the server port.
func (s *Server) Port() int {
	return s.port
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /api/chat", s.handleChat)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)
}

// Handler returns the full handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
		CORSMiddleware(DefaultCORSConfig()),
		RateLimitMiddleware(s.limiter, s.logger),
	)(s.router)
}

// ============================================================================
// CHAT HANDLER
// ============================================================================

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Printf("REQUEST_REJECTED | invalid body: %v", err)
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := validateHistory(req.History); err != nil {
		s.logger.Printf("REQUEST_REJECTED | %v", err)
		s.writeError(w, http.StatusBadRequest, upperFirst(err.Error()))
		return
	}

	contents := contentsFromWire(req.History)

	streaming := req.Stream == nil || *req.Stream
	s.stats.RecordRequest(streaming)

	if streaming {
		s.handleStreamingChat(w, r, contents)
	} else {
		s.handleCompleteChat(w, r, contents)
	}
}

// handleStreamingChat relays upstream text chunks to the client as they
// arrive. Raw UTF-8 text, no framing.
func (s *Server) handleStreamingChat(w http.ResponseWriter, r *http.Request, contents []gemini.Content) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	var wrote bool
	err := s.provider.StreamGenerate(r.Context(), contents, func(text string) {
		if !wrote {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
			wrote = true
		}
		fmt.Fprint(w, text)
		flusher.Flush()
	})

	if err != nil {
		s.stats.RecordFailure()
		s.logger.Printf("UPSTREAM_ERROR | model=%s error=%v", s.provider.Model(), err)
		if !wrote {
			s.writeError(w, http.StatusBadGateway, upstreamErrorMessage)
			return
		}
		// Chunks already went out, so sever the connection instead of
		// ending the body cleanly; a clean end would make the truncated
		// reply indistinguishable from a complete one on the client.
		panic(http.ErrAbortHandler)
	}

	if !wrote {
		// Empty reply: still commit the streaming headers.
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)
	}
}

// handleCompleteChat performs the one-shot variant and replies with JSON.
func (s *Server) handleCompleteChat(w http.ResponseWriter, r *http.Request, contents []gemini.Content) {
	text, err := s.provider.Generate(r.Context(), contents)
	if err != nil {
		s.stats.RecordFailure()
		s.logger.Printf("UPSTREAM_ERROR | model=%s error=%v", s.provider.Model(), err)
		s.writeError(w, http.StatusBadGateway, upstreamErrorMessage)
		return
	}

	s.writeJSON(w, http.StatusOK, CompleteResponse{Text: text})
}

// contentsFromWire converts wire history entries to upstream contents.
func contentsFromWire(history []ChatMessage) []gemini.Content {
	contents := make([]gemini.Content, 0, len(history))
	for _, msg := range history {
		contents = append(contents, gemini.Content{
			Role:  msg.Role,
			Parts: []gemini.Part{{Text: msg.Text}},
		})
	}
	return contents
}

// ============================================================================
// HEALTH AND STATS HANDLERS
// ============================================================================

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Model   string `json:"model"`
	Version string `json:"version"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Model:   s.provider.Model(),
		Version: Version,
	})
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	TotalRequests    int64 `json:"total_requests"`
	StreamRequests   int64 `json:"stream_requests"`
	CompleteRequests int64 `json:"complete_requests"`
	UpstreamFailures int64 `json:"upstream_failures"`
	UptimeSeconds    int64 `json:"uptime_seconds"`
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.stats.Snapshot()
	s.writeJSON(w, http.StatusOK, StatsResponse{
		TotalRequests:    stats.TotalRequests,
		StreamRequests:   stats.StreamRequests,
		CompleteRequests: stats.CompleteRequests,
		UpstreamFailures: stats.UpstreamFailures,
		UptimeSeconds:    int64(stats.Uptime().Seconds()),
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server. Blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming responses have no write deadline
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Printf("SERVER_START | addr=%s model=%s version=%s", addr, s.provider.Model(), Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the flat {"error": message} body every non-2xx reply
// carries.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// upperFirst capitalizes the first byte of an ASCII error message for client
// display.
func upperFirst(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
