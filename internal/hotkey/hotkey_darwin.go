//go:build darwin

package hotkey

import "golang.design/x/hotkey"

// Option
func modAlt() hotkey.Modifier {
	return hotkey.ModOption
}

// Command
func modSuper() hotkey.Modifier {
	return hotkey.ModCmd
}
