// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea chat view for the ocepa TUI.

The view is split into a session sidebar and a transcript pane. The
sidebar lists every saved conversation newest-first and supports
creating, selecting, renaming, and deleting sessions from the
keyboard. The transcript pane renders the active session in a
viewport, with tutor replies passed through glamour for markdown
formatting.

All conversation state lives in a session.Controller; this package
only reads registry snapshots and forwards user intent (send, cancel,
session mutations) to the controller. The controller notifies the
program of changes via tea.Program.Send, and while a reply is
streaming the view redraws on a capped-rate tick (renderLimiter in
streaming.go) so token bursts never flood the renderer.

Layout is responsive: below 80 columns the sidebar is hidden and the
transcript takes the full width.
*/
package chat
