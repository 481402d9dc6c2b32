package inject

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"
)

// Swapped in tests.
var (
	writeClipboard       = clipboard.WriteAll
	readClipboard        = clipboard.ReadAll
	clipboardUnsupported = func() bool { return clipboard.Unsupported }
)

type clipboardInjector struct {
	log zerolog.Logger
}

// New creates a clipboard-backed injector
func New(log zerolog.Logger) Injector {
	return &clipboardInjector{log: log}
}

// Copy replaces the clipboard contents with text
func (c *clipboardInjector) Copy(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboardUnsupported() {
		return fmt.Errorf("clipboard not supported on this system")
	}

	// Leave the clipboard alone if it already holds the text
	if current, err := readClipboard(); err == nil && current == text {
		return nil
	}

	if err := writeClipboard(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}

	c.log.Debug().Int("chars", len([]rune(text))).Msg("Copied correction to clipboard")
	return nil
}
