// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for ocepa.
//
// Configuration is TOML at ~/.ocepa/config.toml, with sensible defaults,
// environment variable overrides, and validation.
//
// Environment overrides:
//   - GEMINI_API_KEY  - the upstream provider credential (never stored by default)
//   - OCEPA_ENDPOINT  - proxy endpoint the chat client talks to
//   - OCEPA_PORT      - port the proxy listens on
//   - OCEPA_DATA_DIR  - directory for persisted sessions
package config
