// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestPaletteDefinesLightAndDarkVariants(t *testing.T) {
	colors := map[string]lipgloss.AdaptiveColor{
		"Purple":        Purple,
		"Cyan":          Cyan,
		"Emerald":       Emerald,
		"Amber":         Amber,
		"Rose":          Rose,
		"TextPrimary":   TextPrimary,
		"TextSecondary": TextSecondary,
		"TextMuted":     TextMuted,
		"Surface":       Surface,
		"UserBubbleBg":  UserBubbleBg,
		"TutorBubbleBg": TutorBubbleBg,
	}

	for name, c := range colors {
		if c.Light == "" || c.Dark == "" {
			t.Errorf("%s missing a variant: light=%q dark=%q", name, c.Light, c.Dark)
		}
		if c.Light[0] != '#' || c.Dark[0] != '#' {
			t.Errorf("%s not in hex form: light=%q dark=%q", name, c.Light, c.Dark)
		}
	}
}

func TestBubbleColorsDiffer(t *testing.T) {
	if UserBubbleBg == TutorBubbleBg {
		t.Error("user and tutor bubbles share a background, sides are indistinguishable")
	}
	if UserBubbleFg == TutorBubbleFg {
		t.Error("user and tutor bubbles share a foreground")
	}
}

func TestNewThemeInitializesStyles(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme returned nil")
	}

	// A configured style renders its content back, a zero style would too,
	// so probe a property we actually set.
	if !theme.HeaderTitle.GetBold() {
		t.Error("HeaderTitle should be bold")
	}
	if !theme.SessionActive.GetBold() {
		t.Error("SessionActive should be bold")
	}
	if !theme.InputPlaceholder.GetItalic() {
		t.Error("InputPlaceholder should be italic")
	}
	if theme.Sidebar.GetBorderStyle() != lipgloss.RoundedBorder() {
		t.Error("Sidebar should carry a rounded border")
	}
}

func TestGetLayoutMode(t *testing.T) {
	theme := NewTheme()

	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{79, LayoutNarrow},
		{80, LayoutWide},
		{120, LayoutWide},
	}

	for _, tt := range tests {
		theme.SetSize(tt.width, 40)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("width %d: got mode %d, want %d", tt.width, got, tt.want)
		}
	}
}

func TestGlamourStyle(t *testing.T) {
	theme := NewTheme()

	if got := theme.GlamourStyle("dark"); got != "dark" {
		t.Errorf("explicit dark: got %q", got)
	}
	if got := theme.GlamourStyle("light"); got != "light" {
		t.Errorf("explicit light: got %q", got)
	}

	got := theme.GlamourStyle("auto")
	if theme.IsDark && got != "dark" {
		t.Errorf("auto on dark terminal: got %q", got)
	}
	if !theme.IsDark && got != "light" {
		t.Errorf("auto on light terminal: got %q", got)
	}
}
