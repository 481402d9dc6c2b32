package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const defaultVolumeLogEvery = 10

// Session is one start-to-stop capture lifecycle over a negotiated device.
type Session struct {
	device        Device
	sampleRate    int
	minBufferSize int
	bufferSize    int

	recording atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}
	unwatch   func() bool

	mu   sync.Mutex
	data bytes.Buffer
}

func (s *Session) append(p []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Write(p)
	return s.data.Len()
}

func (s *Session) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Len()
}

func (s *Session) captured() CapturedAudio {
	s.mu.Lock()
	defer s.mu.Unlock()
	pcm := make([]byte, s.data.Len())
	copy(pcm, s.data.Bytes())
	return CapturedAudio{PCM: pcm, SampleRate: s.sampleRate}
}

// RecorderConfig configures a Recorder
type RecorderConfig struct {
	Negotiator *Negotiator
	// VolumeLogEvery is the number of reads between volume log lines.
	VolumeLogEvery int
	Logger         zerolog.Logger
}

// Recorder drives a single capture session at a time
type Recorder struct {
	negotiator  *Negotiator
	volumeEvery int
	log         zerolog.Logger

	mu      sync.Mutex
	session *Session
}

// NewRecorder creates a Recorder
func NewRecorder(cfg RecorderConfig) *Recorder {
	every := cfg.VolumeLogEvery
	if every <= 0 {
		every = defaultVolumeLogEvery
	}
	return &Recorder{
		negotiator:  cfg.Negotiator,
		volumeEvery: every,
		log:         cfg.Logger,
	}
}

// Start negotiates a device and begins capturing in the background. Cancelling
// ctx releases the device even mid-capture.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return ErrAlreadyRecording
	}

	neg, err := r.negotiator.Negotiate()
	if err != nil {
		return err
	}

	if err := neg.Device.Start(); err != nil {
		neg.Device.Close()
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		device:        neg.Device,
		sampleRate:    neg.SampleRate,
		minBufferSize: neg.MinBufferSize,
		bufferSize:    neg.BufferSize,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
	s.recording.Store(true)
	s.unwatch = context.AfterFunc(ctx, func() {
		r.log.Info().Msg("Owner context done, releasing audio input")
		r.release(s)
	})
	r.session = s

	go r.captureLoop(loopCtx, s)

	r.log.Info().Int("sample_rate", s.sampleRate).Msg("Recording started")
	return nil
}

func (r *Recorder) captureLoop(ctx context.Context, s *Session) {
	defer close(s.done)

	buf := make([]byte, s.minBufferSize)
	reads := 0
	for s.recording.Load() && s.device.Recording() {
		if ctx.Err() != nil {
			break
		}

		n, err := s.device.Read(buf)
		if n > 0 {
			total := s.append(buf[:n])
			reads++
			if reads%r.volumeEvery == 0 {
				r.log.Debug().
					Float64("volume", AverageVolume(buf[:n])).
					Int("total_bytes", total).
					Msg("Current volume")
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.log.Warn().Err(err).Msg("Audio read failed")
			}
			break
		}
	}

	r.log.Info().Int("total_bytes", s.size()).Msg("Recording finished")
}

// Stop ends the active session and returns everything it captured. The
// device is released before Stop returns. Without an active session the
// result is empty.
func (r *Recorder) Stop() (CapturedAudio, error) {
	r.mu.Lock()
	s := r.session
	r.session = nil
	r.mu.Unlock()

	if s == nil {
		r.log.Warn().Msg("Stop requested with no active recording")
		return CapturedAudio{}, nil
	}

	s.unwatch()
	r.finish(s)
	captured := s.captured()
	err := r.closeDevice(s)

	r.log.Info().
		Int("total_bytes", len(captured.PCM)).
		Dur("duration", captured.Duration()).
		Float64("volume", AverageVolume(captured.PCM)).
		Msg("Stop voice record")

	return captured, err
}

// Release tears down any active session and discards its audio.
func (r *Recorder) Release() error {
	r.mu.Lock()
	s := r.session
	r.session = nil
	r.mu.Unlock()

	if s == nil {
		return nil
	}
	s.unwatch()
	r.finish(s)
	return r.closeDevice(s)
}

// release is the owner-context path; it only acts if s is still current.
func (r *Recorder) release(s *Session) {
	r.mu.Lock()
	if r.session != s {
		r.mu.Unlock()
		return
	}
	r.session = nil
	r.mu.Unlock()

	r.finish(s)
	if err := r.closeDevice(s); err != nil {
		r.log.Warn().Err(err).Msg("Failed to release audio input")
	}
}

// IsRecording reports whether a session is active.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}

// finish clears the flag, cancels the loop and waits for it to exit.
func (r *Recorder) finish(s *Session) {
	s.recording.Store(false)
	s.cancel()
	<-s.done
}

func (r *Recorder) closeDevice(s *Session) error {
	stopErr := s.device.Stop()
	closeErr := s.device.Close()
	if stopErr != nil {
		return stopErr
	}
	return closeErr
}
