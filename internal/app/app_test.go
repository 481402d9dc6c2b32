package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/langquence/correct-tray/internal/audio"
	"github.com/langquence/correct-tray/internal/config"
	"github.com/langquence/correct-tray/internal/correct"
	"github.com/langquence/correct-tray/internal/timer"
	"github.com/rs/zerolog"
)

// Mock implementations for testing
type mockRecorder struct {
	mu       sync.Mutex
	startErr error
	captured audio.CapturedAudio
	active   bool
	starts   int
	stops    int
	releases int
	ctx      context.Context
}

func (m *mockRecorder) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	if m.startErr != nil {
		return m.startErr
	}
	m.active = true
	m.ctx = ctx
	return nil
}

func (m *mockRecorder) Stop() (audio.CapturedAudio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	if !m.active {
		return audio.CapturedAudio{}, nil
	}
	m.active = false
	return m.captured, nil
}

func (m *mockRecorder) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
	m.active = false
	return nil
}

func (m *mockRecorder) isActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

type mockCorrector struct {
	mu     sync.Mutex
	answer correct.Answer
	err    error
	block  bool
	bodies [][]byte
}

func (m *mockCorrector) Correct(ctx context.Context, wav []byte) (correct.Answer, error) {
	m.mu.Lock()
	m.bodies = append(m.bodies, wav)
	block := m.block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return correct.Answer{}, &correct.NetworkError{Message: "request failed", Err: ctx.Err()}
	}
	return m.answer, m.err
}

func (m *mockCorrector) calls() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.bodies...)
}

type mockArchiver struct {
	mu    sync.Mutex
	saved []audio.CapturedAudio
}

func (m *mockArchiver) Save(captured audio.CapturedAudio) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, captured)
	return "/tmp/audio.wav", nil
}

type mockInjector struct {
	mu     sync.Mutex
	copied []string
}

func (m *mockInjector) Copy(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.copied = append(m.copied, text)
	return nil
}

type mockStatus struct {
	mu     sync.Mutex
	events []string
}

func (m *mockStatus) add(e string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *mockStatus) SetIdle()                          { m.add("idle") }
func (m *mockStatus) SetListening()                     { m.add("listening") }
func (m *mockStatus) SetCountdown(seconds int)          {}
func (m *mockStatus) SetSuccess()                       { m.add("success") }
func (m *mockStatus) SetNoInput()                       { m.add("noinput") }
func (m *mockStatus) SetError(msg string)               { m.add("error") }
func (m *mockStatus) SetCorrection(text string)         { m.add("correction:" + text) }
func (m *mockStatus) SetCorrectionFailed(reason string) { m.add("failed") }

func (m *mockStatus) has(e string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, got := range m.events {
		if got == e {
			return true
		}
	}
	return false
}

// manualTimer fires only when told to.
type manualTimer struct {
	mu        sync.Mutex
	cfg       timer.Config
	started   bool
	cancelled bool
}

func (m *manualTimer) Start() {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	if m.cfg.OnTick != nil {
		m.cfg.OnTick(int(m.cfg.Ceiling / time.Second))
	}
}

func (m *manualTimer) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = true
}

func (m *manualTimer) finish() {
	m.cfg.OnFinish()
}

type fixture struct {
	app      *App
	rec      *mockRecorder
	api      *mockCorrector
	arc      *mockArchiver
	inj      *mockInjector
	status   *mockStatus
	timers   []*manualTimer
	askedFor int
}

func newFixture(t *testing.T, mode string) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Mode = mode

	f := &fixture{
		rec: &mockRecorder{captured: audio.CapturedAudio{
			PCM:        make([]byte, 3200),
			SampleRate: 16000,
		}},
		api:    &mockCorrector{answer: correct.Answer{Text: "Corrected sentence."}},
		arc:    &mockArchiver{},
		inj:    &mockInjector{},
		status: &mockStatus{},
	}
	f.app = New(Config{
		Recorder:          f.rec,
		Corrector:         f.api,
		Archiver:          f.arc,
		Injector:          f.inj,
		Config:            cfg,
		Logger:            zerolog.Nop(),
		StatusUpdater:     f.status,
		RequestPermission: func() { f.askedFor++ },
		NewTimer: func(c timer.Config) Countdown {
			tm := &manualTimer{cfg: c}
			f.timers = append(f.timers, tm)
			return tm
		},
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		f.app.Shutdown(ctx)
	})
	return f
}

func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.app.Wait(ctx); err != nil {
		t.Fatalf("pending submissions did not finish: %v", err)
	}
}

func TestToggleLifecycle(t *testing.T) {
	f := newFixture(t, config.ModeToggle)

	if f.app.State() != Idle {
		t.Fatalf("expected Idle initially, got %v", f.app.State())
	}

	f.app.Toggle()
	if f.app.State() != Listening {
		t.Fatalf("expected Listening, got %v", f.app.State())
	}
	if len(f.timers) != 1 {
		t.Fatalf("expected a countdown to start")
	}

	f.app.Toggle()
	if f.app.State() != Success {
		t.Fatalf("expected Success, got %v", f.app.State())
	}
	if !f.timers[0].cancelled {
		t.Error("stopping should cancel the countdown")
	}

	f.wait(t)

	calls := f.api.calls()
	if len(calls) != 1 {
		t.Fatalf("expected one submission, got %d", len(calls))
	}
	if len(calls[0]) != 3200+audio.WAVHeaderSize {
		t.Errorf("expected framed WAV of %d bytes, got %d", 3200+audio.WAVHeaderSize, len(calls[0]))
	}
	if got := f.app.LastCorrection(); got.Text != "Corrected sentence." || got.Reason != "" {
		t.Errorf("unexpected correction state: %+v", got)
	}
	if !f.status.has("correction:Corrected sentence.") {
		t.Error("status should receive the correction")
	}
	if len(f.inj.copied) != 1 {
		t.Error("correction should be copied to the clipboard")
	}

	// Terminal state returns to Idle without starting a capture
	f.app.Toggle()
	if f.app.State() != Idle {
		t.Fatalf("expected Idle, got %v", f.app.State())
	}
	if f.rec.starts != 1 {
		t.Errorf("expected a single start, got %d", f.rec.starts)
	}
}

func TestStopWithoutAudioIsNoInput(t *testing.T) {
	f := newFixture(t, config.ModeToggle)
	f.rec.captured = audio.CapturedAudio{SampleRate: 44100}

	f.app.Toggle()
	f.app.Toggle()

	if f.app.State() != NoInput {
		t.Fatalf("expected NoInput, got %v", f.app.State())
	}
	f.wait(t)
	if len(f.api.calls()) != 0 {
		t.Error("empty capture must not be submitted")
	}

	f.app.Toggle()
	if f.app.State() != Idle {
		t.Errorf("expected Idle after NoInput, got %v", f.app.State())
	}
}

func TestPermissionDenied(t *testing.T) {
	f := newFixture(t, config.ModeToggle)
	f.rec.startErr = audio.ErrPermissionDenied

	f.app.Toggle()

	if f.app.State() != Error {
		t.Fatalf("expected Error, got %v", f.app.State())
	}
	if f.askedFor != 1 {
		t.Errorf("expected a permission request, got %d", f.askedFor)
	}
	if len(f.timers) != 0 {
		t.Error("no countdown without a capture")
	}
	if f.app.LastError() == "" {
		t.Error("error message should be kept")
	}
}

func TestDeviceUnavailable(t *testing.T) {
	f := newFixture(t, config.ModeToggle)
	f.rec.startErr = audio.ErrDeviceUnavailable

	f.app.Toggle()

	if f.app.State() != Error {
		t.Fatalf("expected Error, got %v", f.app.State())
	}
	if f.askedFor != 0 {
		t.Error("device failures must not request permission")
	}
	if !f.status.has("error") {
		t.Error("status should show the error")
	}

	f.app.Toggle()
	if f.app.State() != Idle {
		t.Errorf("expected Idle after Error, got %v", f.app.State())
	}
}

func TestCeilingStopsCapture(t *testing.T) {
	f := newFixture(t, config.ModeToggle)

	f.app.Toggle()
	f.timers[0].finish()

	if f.app.State() != Success {
		t.Fatalf("expected Success after ceiling, got %v", f.app.State())
	}
	f.wait(t)
	if len(f.api.calls()) != 1 {
		t.Error("ceiling stop should submit")
	}
}

func TestStaleCeilingIgnored(t *testing.T) {
	f := newFixture(t, config.ModeToggle)

	f.app.Toggle() // start
	f.app.Toggle() // stop
	f.app.Toggle() // idle
	f.app.Toggle() // start again

	f.timers[0].finish()
	if f.app.State() != Listening {
		t.Errorf("old countdown must not stop the new capture, got %v", f.app.State())
	}
}

func TestNetworkFailure(t *testing.T) {
	f := newFixture(t, config.ModeToggle)
	f.api.err = &correct.NetworkError{Code: 500, Message: "Internal Server Error"}

	f.app.Toggle()
	f.app.Toggle()
	f.wait(t)

	got := f.app.LastCorrection()
	if got.Reason == "" || got.Text != "" {
		t.Errorf("expected failure reason, got %+v", got)
	}
	if !f.status.has("failed") {
		t.Error("status should show the failed correction")
	}
	if len(f.inj.copied) != 0 {
		t.Error("nothing to copy on failure")
	}
	if len(f.api.calls()) != 1 {
		t.Error("failures are not retried")
	}
}

func TestArchiveWhenEnabled(t *testing.T) {
	f := newFixture(t, config.ModeToggle)
	f.app.cfg.Archive.Enabled = true

	f.app.Toggle()
	f.app.Toggle()
	f.wait(t)

	if len(f.arc.saved) != 1 {
		t.Fatalf("expected one archived recording, got %d", len(f.arc.saved))
	}
	if f.arc.saved[0].SampleRate != 16000 {
		t.Errorf("archived wrong rate %d", f.arc.saved[0].SampleRate)
	}
}

func TestToggleModeKeyPress(t *testing.T) {
	f := newFixture(t, config.ModeToggle)

	// First key press - should start listening
	f.app.OnHotkey(true)
	if !f.app.IsListening() {
		t.Error("App should be listening after first key press")
	}

	// Key release - should NOT stop in Toggle mode
	f.app.OnHotkey(false)
	if !f.app.IsListening() {
		t.Error("App should still be listening after key release in Toggle mode")
	}

	// Second key press - should stop
	f.app.OnHotkey(true)
	if f.app.IsListening() {
		t.Error("App should have stopped after second key press")
	}
	if f.rec.isActive() {
		t.Error("recorder should be stopped")
	}
}

func TestPushToTalkModeKeyPress(t *testing.T) {
	f := newFixture(t, config.ModePushToTalk)

	f.app.OnHotkey(false)
	if f.app.State() != Idle {
		t.Error("release while idle should do nothing")
	}

	f.app.OnHotkey(true)
	if !f.app.IsListening() {
		t.Fatal("App should be listening after key press")
	}

	// Repeated press while held is ignored
	f.app.OnHotkey(true)
	if f.rec.starts != 1 {
		t.Errorf("expected one start, got %d", f.rec.starts)
	}

	f.app.OnHotkey(false)
	if f.app.State() != Success {
		t.Fatalf("expected Success after release, got %v", f.app.State())
	}

	// Next press goes through Idle straight into a new capture
	f.app.OnHotkey(true)
	if !f.app.IsListening() {
		t.Errorf("expected Listening, got %v", f.app.State())
	}
	if f.rec.starts != 2 {
		t.Errorf("expected two starts, got %d", f.rec.starts)
	}
}

func TestShutdownReleasesWithoutSubmitting(t *testing.T) {
	f := newFixture(t, config.ModeToggle)

	f.app.Toggle()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.app.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if f.app.State() != Idle {
		t.Errorf("expected Idle after shutdown, got %v", f.app.State())
	}
	if f.rec.releases != 1 {
		t.Errorf("expected device release, got %d", f.rec.releases)
	}
	if !f.timers[0].cancelled {
		t.Error("countdown should be cancelled")
	}
	if len(f.api.calls()) != 0 {
		t.Error("shutdown must not submit the partial capture")
	}
	if f.rec.ctx.Err() == nil {
		t.Error("owner context should be cancelled")
	}
}

func TestShutdownCancelsInFlightSubmission(t *testing.T) {
	f := newFixture(t, config.ModeToggle)
	f.api.block = true

	f.app.Toggle()
	f.app.Toggle()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.app.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if f.app.LastCorrection().Reason == "" {
		t.Errorf("expected cancellation reason, got %+v", f.app.LastCorrection())
	}
	if !f.status.has("failed") {
		t.Error("cancelled submission should be reported")
	}
}

func TestSetDeviceRefusedWhileListening(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("APPDATA", dir)

	f := newFixture(t, config.ModeToggle)

	f.app.Toggle()
	if err := f.app.SetDevice("usb"); err == nil {
		t.Error("expected error while listening")
	}

	f.app.Toggle()
	if err := f.app.SetDevice("usb"); err != nil {
		t.Errorf("SetDevice: %v", err)
	}
	if f.app.cfg.Audio.DeviceID != "usb" {
		t.Error("device not stored")
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		Idle:      "Idle",
		Listening: "Listening",
		Success:   "Success",
		NoInput:   "NoInput",
		Error:     "Error",
	} {
		if s.String() != want {
			t.Errorf("expected %q, got %q", want, s.String())
		}
	}
}
