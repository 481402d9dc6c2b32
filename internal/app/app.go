package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/langquence/correct-tray/internal/audio"
	"github.com/langquence/correct-tray/internal/config"
	"github.com/langquence/correct-tray/internal/correct"
	"github.com/langquence/correct-tray/internal/inject"
	"github.com/langquence/correct-tray/internal/timer"
	"github.com/rs/zerolog"
)

type Mode int

const (
	PushToTalk Mode = iota
	Toggle
)

// State is the capture lifecycle state
type State int

const (
	Idle State = iota
	Listening
	Success
	NoInput
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Listening:
		return "Listening"
	case Success:
		return "Success"
	case NoInput:
		return "NoInput"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether s only leads back to Idle.
func (s State) Terminal() bool {
	return s == Success || s == NoInput || s == Error
}

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetIdle()
	SetListening()
	SetCountdown(seconds int)
	SetSuccess()
	SetNoInput()
	SetError(msg string)
	SetCorrection(text string)
	SetCorrectionFailed(reason string)
}

// Recorder captures one session at a time
type Recorder interface {
	Start(ctx context.Context) error
	Stop() (audio.CapturedAudio, error)
	Release() error
}

// Corrector submits a framed recording
type Corrector interface {
	Correct(ctx context.Context, wav []byte) (correct.Answer, error)
}

// Archiver persists a successful recording
type Archiver interface {
	Save(captured audio.CapturedAudio) (string, error)
}

// DeviceSource enumerates and selects input devices
type DeviceSource interface {
	ListDevices() ([]audio.AudioDevice, error)
	SelectDevice(id string)
}

// Countdown is the recording ceiling timer
type Countdown interface {
	Start()
	Cancel()
}

// CorrectState is the outcome of the last submission. Reason is set on failure.
type CorrectState struct {
	Text   string
	Reason string
}

type Config struct {
	Recorder      Recorder
	Corrector     Corrector       // Optional - nil records without submitting
	Archiver      Archiver        // Optional
	Injector      inject.Injector // Optional
	Devices       DeviceSource    // Optional
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
	// RequestPermission is called after a capture was refused for lack of
	// microphone access. It must not block.
	RequestPermission func()
	// NewTimer overrides the countdown implementation.
	NewTimer func(timer.Config) Countdown
}

type App struct {
	rec      Recorder
	api      Corrector
	arc      Archiver
	inj      inject.Injector
	devices  DeviceSource
	cfg      *config.Config
	log      zerolog.Logger
	status   StatusUpdater
	askPerm  func()
	newTimer func(timer.Config) Countdown

	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
	// gen identifies the current capture; stale timer callbacks compare against it.
	gen atomic.Uint64

	mu      sync.Mutex
	state   State
	lastErr string
	timer   Countdown
	last    CorrectState
}

func New(cfg Config) *App {
	a := &App{
		rec:      cfg.Recorder,
		api:      cfg.Corrector,
		arc:      cfg.Archiver,
		inj:      cfg.Injector,
		devices:  cfg.Devices,
		cfg:      cfg.Config,
		log:      cfg.Logger,
		status:   cfg.StatusUpdater,
		askPerm:  cfg.RequestPermission,
		newTimer: cfg.NewTimer,
	}
	if a.newTimer == nil {
		log := cfg.Logger
		a.newTimer = func(c timer.Config) Countdown { return timer.New(c, log) }
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a
}

// Toggle advances the state machine: Idle starts a capture, Listening stops
// it and any terminal state returns to Idle.
func (a *App) Toggle() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.toggleLocked()
}

func (a *App) OnHotkey(pressed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	mode := PushToTalk
	if a.cfg.Mode == config.ModeToggle {
		mode = Toggle
	}

	switch mode {
	case PushToTalk:
		if pressed {
			if a.state.Terminal() {
				a.resetLocked()
			}
			if a.state == Idle {
				a.startLocked()
			}
		} else if a.state == Listening {
			a.stopLocked()
		}
	case Toggle:
		if pressed {
			a.toggleLocked()
		}
	}
}

func (a *App) toggleLocked() {
	switch {
	case a.state == Idle:
		a.startLocked()
	case a.state == Listening:
		a.stopLocked()
	case a.state.Terminal():
		a.resetLocked()
	}
}

func (a *App) startLocked() {
	a.log.Info().Msg("Start voice record")

	if err := a.rec.Start(a.ctx); err != nil {
		a.failLocked(err)
		return
	}

	gen := a.gen.Add(1)
	a.state = Listening
	a.lastErr = ""
	if a.status != nil {
		a.status.SetListening()
	}

	a.timer = a.newTimer(timer.Config{
		Ceiling:  a.cfg.Recording.MaxDuration(),
		Interval: a.cfg.Recording.TickInterval(),
		OnTick: func(remaining int) {
			if a.gen.Load() == gen && a.status != nil {
				a.status.SetCountdown(remaining)
			}
		},
		OnFinish: func() { a.onCeiling(gen) },
	})
	a.timer.Start()
}

func (a *App) onCeiling(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.gen.Load() != gen || a.state != Listening {
		return
	}
	a.log.Info().Msg("Recording ceiling reached")
	a.stopLocked()
}

func (a *App) stopLocked() {
	a.gen.Add(1)
	if a.timer != nil {
		a.timer.Cancel()
		a.timer = nil
	}

	captured, err := a.rec.Stop()
	if err != nil {
		a.log.Warn().Err(err).Msg("Audio input did not release cleanly")
	}

	if !captured.Valid() {
		a.log.Info().Msg("No audio captured")
		a.state = NoInput
		if a.status != nil {
			a.status.SetNoInput()
		}
		return
	}

	a.state = Success
	if a.status != nil {
		a.status.SetSuccess()
	}

	wav := audio.FrameWAV(captured.PCM, captured.SampleRate)
	a.log.Info().
		Int("sample_rate", captured.SampleRate).
		Int("wav_bytes", len(wav)).
		Dur("duration", captured.Duration()).
		Msg("Recording framed")

	a.pending.Add(1)
	go a.submit(captured, wav, a.cfg.Archive.Enabled, a.cfg.Inject.CopyToClipboard)
}

func (a *App) failLocked(err error) {
	a.log.Error().Err(err).Msg("Failed to start recording")
	a.state = Error
	a.lastErr = err.Error()
	if a.status != nil {
		a.status.SetError(a.lastErr)
	}

	if errors.Is(err, audio.ErrPermissionDenied) && a.askPerm != nil {
		a.askPerm()
	}
}

func (a *App) resetLocked() {
	a.state = Idle
	a.lastErr = ""
	if a.status != nil {
		a.status.SetIdle()
	}
}

// submit archives and posts one recording. It runs once per Success.
func (a *App) submit(captured audio.CapturedAudio, wav []byte, archive, copyText bool) {
	defer a.pending.Done()

	if archive && a.arc != nil {
		if path, err := a.arc.Save(captured); err != nil {
			a.log.Warn().Err(err).Msg("Failed to save recording")
		} else {
			a.log.Debug().Str("path", path).Msg("Recording archived")
		}
	}

	if a.api == nil {
		return
	}

	ctx := a.ctx
	if timeout := a.cfg.API.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	answer, err := a.api.Correct(ctx, wav)
	if err != nil {
		reason := err.Error()
		var netErr *correct.NetworkError
		if errors.As(err, &netErr) {
			a.log.Error().Int("code", netErr.Code).Str("message", netErr.Message).Msg("Correction failed")
		} else {
			a.log.Error().Err(err).Msg("Correction failed")
		}

		a.mu.Lock()
		a.last = CorrectState{Reason: reason}
		a.mu.Unlock()
		if a.status != nil {
			a.status.SetCorrectionFailed(reason)
		}
		return
	}

	a.log.Info().Str("text", answer.Text).Msg("Correction received")
	a.mu.Lock()
	a.last = CorrectState{Text: answer.Text}
	a.mu.Unlock()
	if a.status != nil {
		a.status.SetCorrection(answer.Text)
	}

	if copyText && a.inj != nil && answer.Text != "" {
		if err := a.inj.Copy(ctx, answer.Text); err != nil {
			a.log.Error().Err(err).Msg("Copy error")
		}
	}
}

// Wait blocks until in-flight submissions finish or ctx is done.
func (a *App) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown releases the audio input without submitting, cancels in-flight
// submissions and waits for them.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.gen.Add(1)
	if a.timer != nil {
		a.timer.Cancel()
		a.timer = nil
	}
	if a.state == Listening {
		a.log.Info().Msg("Discarding active recording")
	}
	if err := a.rec.Release(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to release audio input")
	}
	if a.state != Idle {
		a.resetLocked()
	}
	a.mu.Unlock()

	a.cancel()
	return a.Wait(ctx)
}

// Tray actions

func (a *App) SetMode(mode string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Mode = mode
	return a.cfg.Save()
}

func (a *App) SetDevice(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == Listening {
		return fmt.Errorf("cannot change while listening")
	}

	a.cfg.Audio.DeviceID = id
	if a.devices != nil {
		a.devices.SelectDevice(id)
	}
	return a.cfg.Save()
}

func (a *App) SetArchiveEnabled(enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Archive.Enabled = enabled
	return a.cfg.Save()
}

func (a *App) SetCopyToClipboard(enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Inject.CopyToClipboard = enabled
	return a.cfg.Save()
}

func (a *App) SetNotify(enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Notify = enabled
	return a.cfg.Save()
}

func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// LastError returns the message that put the app into Error.
func (a *App) LastError() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

func (a *App) IsListening() bool {
	return a.State() == Listening
}

func (a *App) LastCorrection() CorrectState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func (a *App) ListDevices() ([]audio.AudioDevice, error) {
	if a.devices == nil {
		return nil, fmt.Errorf("device listing not available")
	}
	return a.devices.ListDevices()
}
