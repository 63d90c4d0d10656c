// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// A ChatSession is an ordered, append-only sequence of Messages plus a display
// title. Message roles form a closed two-variant set (user/model) so branching
// logic over roles can be checked exhaustively. The trailing model message of a
// session is the only message that is ever mutated in place, and only while a
// response is streaming into it.
package model
