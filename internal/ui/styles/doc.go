// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the ocepa TUI.

The package exposes an adaptive color palette (colors.go) built on Lip
Gloss AdaptiveColor so every color carries a light and a dark variant,
and a Theme (theme.go) that bundles the configured lipgloss styles for
each region of the chat screen: header, session sidebar, message
bubbles, input area, status bar.

Construct a Theme once at startup:

	theme := styles.NewTheme()
	theme.SetSize(width, height)

NewTheme probes the terminal with termenv for its color profile and
background, so styles degrade gracefully on 256-color and basic
terminals.
*/
package styles
