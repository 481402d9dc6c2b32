package audio

import (
	"errors"
	"sync"
	"time"
)

const (
	// Channels is fixed to mono.
	Channels = 1
	// BitsPerSample is fixed to signed 16-bit PCM.
	BitsPerSample = 16
	// BytesPerSample is the size of one mono frame.
	BytesPerSample = BitsPerSample / 8
)

// DefaultSampleRates is the negotiation order used when none is configured.
var DefaultSampleRates = []int{44100, 22050, 11025, 16000}

var (
	// ErrBadValue is returned by a Backend when a rate/format combination is unsupported.
	ErrBadValue = errors.New("unsupported audio parameters")
	// ErrPermissionDenied means microphone access has not been granted; no device was opened.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceUnavailable means every candidate sample rate was rejected.
	ErrDeviceUnavailable = errors.New("no compatible audio input device")
	// ErrAlreadyRecording is returned when a capture session is already active.
	ErrAlreadyRecording = errors.New("capture session already active")
)

// Backend is a platform audio-input API
type Backend interface {
	Name() string
	// MinBufferSize returns the minimum buffer size in bytes for mono 16-bit capture
	// at sampleRate, or ErrBadValue if the platform rejects the combination.
	MinBufferSize(sampleRate int) (int, error)
	Open(sampleRate, bufferSize int) (Device, error)
	ListDevices() ([]AudioDevice, error)
	// SelectDevice switches the input used by later Opens. Empty selects the system default.
	SelectDevice(id string)
	Close() error
}

// deviceSelection holds the chosen input device for a backend
type deviceSelection struct {
	mu sync.Mutex
	id string
}

func (d *deviceSelection) SelectDevice(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.id = id
}

func (d *deviceSelection) selected() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id
}

// Device is an open audio input handle
type Device interface {
	Start() error
	// Read blocks for at most one buffer and fills p with little-endian 16-bit samples.
	Read(p []byte) (int, error)
	// Recording reports whether the device is actively capturing.
	Recording() bool
	Stop() error
	Close() error
}

// AudioDevice represents an audio input device
type AudioDevice struct {
	ID      string
	Name    string
	Default bool
}

// CapturedAudio is the raw PCM produced by one completed capture session.
type CapturedAudio struct {
	PCM        []byte
	SampleRate int
}

// Valid reports whether any audio was captured.
func (c CapturedAudio) Valid() bool {
	return len(c.PCM) > 0 && c.SampleRate > 0
}

// Duration returns the playback length of the captured audio.
func (c CapturedAudio) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	samples := len(c.PCM) / BytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(c.SampleRate)
}
