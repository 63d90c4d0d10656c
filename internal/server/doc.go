// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the Ocepa chat proxy.
//
// The proxy sits between the chat client and the Gemini API so that the
// provider credential, model choice, and tutoring system prompt stay on the
// server side. The client sends a message history and receives the reply
// either as raw streamed text or as a single JSON document.
//
// # Endpoints
//
//   - POST /api/chat - Forward a chat history upstream (streaming by default)
//   - GET  /health   - Health check
//   - GET  /stats    - Usage statistics
//
// # Middleware
//
//   - Panic recovery with stack trace logging
//   - Request logging with timing information
//   - CORS headers for browser clients
//   - Per-IP rate limiting (golang.org/x/time/rate)
//
// # Usage
//
//	provider := gemini.NewClient(apiKey).WithSystemPrompt(server.SystemPrompt)
//	srv := server.NewServer(8990, provider)
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
package server
