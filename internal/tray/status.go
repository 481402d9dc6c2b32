package tray

import (
	"fmt"

	"github.com/langquence/correct-tray/internal/app"
	"github.com/langquence/correct-tray/internal/audio"
	"github.com/langquence/correct-tray/internal/config"
)

// titleFor renders the tray title for a state; the countdown shows only while listening
func titleFor(state app.State, countdown int) string {
	title := fmt.Sprintf("🎤 %s", emojiForState(state))
	if state == app.Listening && countdown > 0 {
		title += fmt.Sprintf(" %ds", countdown)
	}
	return title
}

// emojiForState returns the appropriate status emoji
func emojiForState(state app.State) string {
	switch state {
	case app.Listening:
		return "🔴" // Red - recording
	case app.Success:
		return "✅"
	case app.NoInput:
		return "🔇"
	case app.Error:
		return "⚪️" // White - error
	default:
		return "🟢" // Green - ready/idle
	}
}

func modeTitle(mode string) string {
	if mode == config.ModePushToTalk {
		return modePushToTlk
	}
	return modeToggle
}

// isSelected checks the configured device, or the system default when none is set
func isSelected(dev audio.AudioDevice, id string) bool {
	if id == "" {
		return dev.Default
	}
	return dev.ID == id
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
