// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat sessions for the ocepa client.
//
// The whole session list is stored as one JSON document (chatSessions.json in
// the data directory); every save rewrites the full list atomically. An empty
// list is never persisted: when the list becomes empty the file is removed
// instead, so a stale empty snapshot can never resurrect on the next load.
//
// A fsnotify-based Watcher reports external modifications to the sessions
// file, letting a running client pick up changes written by another instance.
package storage
