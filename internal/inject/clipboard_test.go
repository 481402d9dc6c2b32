package inject

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func stubClipboard(t *testing.T, current string, writeErr error) *[]string {
	t.Helper()

	var writes []string
	oldWrite, oldRead, oldUnsupported := writeClipboard, readClipboard, clipboardUnsupported
	clipboardUnsupported = func() bool { return false }
	writeClipboard = func(text string) error {
		if writeErr != nil {
			return writeErr
		}
		writes = append(writes, text)
		return nil
	}
	readClipboard = func() (string, error) { return current, nil }
	t.Cleanup(func() {
		writeClipboard, readClipboard, clipboardUnsupported = oldWrite, oldRead, oldUnsupported
	})
	return &writes
}

func TestCopyWritesClipboard(t *testing.T) {
	writes := stubClipboard(t, "old", nil)

	if err := New(zerolog.Nop()).Copy(context.Background(), "corrected text"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if len(*writes) != 1 || (*writes)[0] != "corrected text" {
		t.Errorf("unexpected writes: %v", *writes)
	}
}

func TestCopySkipsIdenticalText(t *testing.T) {
	writes := stubClipboard(t, "same", nil)

	if err := New(zerolog.Nop()).Copy(context.Background(), "same"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if len(*writes) != 0 {
		t.Errorf("expected no write, got %v", *writes)
	}
}

func TestCopyWrapsWriteError(t *testing.T) {
	boom := errors.New("boom")
	stubClipboard(t, "", boom)

	err := New(zerolog.Nop()).Copy(context.Background(), "text")
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestCopyHonoursCancelledContext(t *testing.T) {
	writes := stubClipboard(t, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New(zerolog.Nop()).Copy(ctx, "text"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(*writes) != 0 {
		t.Error("nothing should be written after cancellation")
	}
}

func TestCopyFailsWithoutClipboard(t *testing.T) {
	writes := stubClipboard(t, "", nil)
	clipboardUnsupported = func() bool { return true }

	if err := New(zerolog.Nop()).Copy(context.Background(), "text"); err == nil {
		t.Error("expected an error when no clipboard is available")
	}
	if len(*writes) != 0 {
		t.Error("nothing should be written without a clipboard")
	}
}
