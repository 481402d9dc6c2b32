package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/langquence/correct-tray/internal/app"
	"github.com/langquence/correct-tray/internal/archive"
	"github.com/langquence/correct-tray/internal/audio"
	"github.com/langquence/correct-tray/internal/correct"
	"github.com/langquence/correct-tray/internal/inject"
	"github.com/langquence/correct-tray/internal/permissions"
)

var (
	recordSeconds  int
	recordSave     bool
	recordNoSubmit bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from the microphone and submit for correction",
	Long: `Starts a capture, stops on Enter or at the recording ceiling, then
submits the WAV and prints the corrected text.

Examples:
  correctctl record                 # default ceiling from config
  correctctl record --seconds 10    # shorter ceiling
  correctctl record --save --no-submit`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().IntVar(&recordSeconds, "seconds", 0, "recording ceiling in seconds (0 = config)")
	recordCmd.Flags().BoolVar(&recordSave, "save", false, "save the recording to the archive directory")
	recordCmd.Flags().BoolVar(&recordNoSubmit, "no-submit", false, "record without calling the correction API")
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	if recordSeconds > 0 {
		cfg.Recording.MaxDurationMs = int64(recordSeconds) * 1000
	}
	if recordSave {
		cfg.Archive.Enabled = true
	}
	// The CLI prints the text instead
	cfg.Inject.CopyToClipboard = false

	backend, err := audio.NewBackend(cfg.Audio)
	if err != nil {
		printError("audio backend", err)
		return err
	}
	defer backend.Close()

	status := newConsoleStatus(os.Stderr)
	appCfg := app.Config{
		Recorder: audio.NewRecorder(audio.RecorderConfig{
			Negotiator:     audio.NewNegotiator(backend, cfg.Audio, permissions.Microphone, log),
			VolumeLogEvery: cfg.Audio.VolumeLogEvery,
			Logger:         log,
		}),
		Archiver:          archive.New(cfg.Archive.Dir, log),
		Injector:          inject.New(log),
		Devices:           backend,
		Config:            cfg,
		Logger:            log,
		StatusUpdater:     status,
		RequestPermission: permissions.RequestMicrophone,
	}
	if !recordNoSubmit {
		client, err := correct.New(cfg.API, log)
		if err != nil {
			return err
		}
		appCfg.Corrector = client
	}
	application := app.New(appCfg)

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		application.Shutdown(ctx)
	}()

	application.Toggle()
	if application.State() != app.Listening {
		return fmt.Errorf("could not start recording: %s", application.LastError())
	}
	fmt.Fprintln(os.Stderr, "Recording... press Enter to stop")

	enter := make(chan struct{})
	go func() {
		bufio.NewReader(os.Stdin).ReadString('\n')
		close(enter)
	}()

	ctx := cmd.Context()
	select {
	case <-enter:
	case <-status.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if application.IsListening() {
		application.Toggle()
	}

	if err := application.Wait(ctx); err != nil {
		return err
	}

	switch application.State() {
	case app.NoInput:
		fmt.Fprintln(os.Stderr, "No audio captured")
		return nil
	case app.Error:
		return fmt.Errorf("recording failed: %s", application.LastError())
	}

	if recordNoSubmit {
		return nil
	}
	last := application.LastCorrection()
	if last.Reason != "" {
		return fmt.Errorf("correction failed: %s", last.Reason)
	}
	fmt.Println(last.Text)
	return nil
}

// consoleStatus prints state changes to a terminal
type consoleStatus struct {
	out io.Writer

	mu       sync.Mutex
	done     chan struct{}
	finished bool
}

func newConsoleStatus(out io.Writer) *consoleStatus {
	return &consoleStatus{out: out, done: make(chan struct{})}
}

func (c *consoleStatus) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// finish marks the end of the capture; only the first call closes done
func (c *consoleStatus) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finished {
		c.finished = true
		close(c.done)
	}
}

func (c *consoleStatus) SetIdle()      {}
func (c *consoleStatus) SetListening() { c.printf("● listening\n") }

func (c *consoleStatus) SetCountdown(seconds int) {
	c.printf("\r  %2ds left ", seconds)
}

func (c *consoleStatus) SetSuccess() {
	c.printf("\n✓ recorded\n")
	c.finish()
}

func (c *consoleStatus) SetNoInput() {
	c.printf("\n∅ no input\n")
	c.finish()
}

func (c *consoleStatus) SetError(msg string) {
	c.printf("✗ %s\n", msg)
	c.finish()
}

func (c *consoleStatus) SetCorrection(text string) {}

func (c *consoleStatus) SetCorrectionFailed(reason string) {
	c.printf("✗ correction failed: %s\n", reason)
}
