package inject

import "context"

// Injector hands corrected text to the desktop
type Injector interface {
	Copy(ctx context.Context, text string) error
}
