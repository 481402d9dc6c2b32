package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsoleStatus(t *testing.T) {
	var buf bytes.Buffer
	c := newConsoleStatus(&buf)

	c.SetListening()
	c.SetCountdown(9)
	c.SetSuccess()
	c.SetNoInput() // second terminal call must not panic

	select {
	case <-c.done:
	default:
		t.Fatal("done should be closed after a terminal state")
	}

	out := buf.String()
	for _, want := range []string{"listening", " 9s left", "recorded"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestConsoleStatusError(t *testing.T) {
	var buf bytes.Buffer
	c := newConsoleStatus(&buf)

	c.SetError("microphone permission denied")
	<-c.done

	if !strings.Contains(buf.String(), "microphone permission denied") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
