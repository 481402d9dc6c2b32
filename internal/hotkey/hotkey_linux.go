//go:build linux

package hotkey

import "golang.design/x/hotkey"

// modAlt is Mod1 under X11
func modAlt() hotkey.Modifier {
	return hotkey.Mod1
}

// modSuper is Mod4 under X11
func modSuper() hotkey.Modifier {
	return hotkey.Mod4
}
