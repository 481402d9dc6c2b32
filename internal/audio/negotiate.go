package audio

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Negotiated is an opened device together with the parameters it was opened with.
// Sessions must frame their output with exactly these values.
type Negotiated struct {
	Device        Device
	SampleRate    int
	MinBufferSize int // bytes per read
	BufferSize    int // bytes requested from the device
}

// Negotiator finds the first candidate sample rate the platform accepts
type Negotiator struct {
	Backend          Backend
	SampleRates      []int
	BufferMultiplier int
	// CheckPermission is consulted before any device is touched. Nil means granted.
	CheckPermission func() error
	Log             zerolog.Logger
}

// Negotiate tries each candidate rate in order and returns the first device that opens.
func (n *Negotiator) Negotiate() (*Negotiated, error) {
	if n.CheckPermission != nil {
		if err := n.CheckPermission(); err != nil {
			n.Log.Info().Err(err).Msg("No audio permission")
			if errors.Is(err, ErrPermissionDenied) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
	}

	rates := n.SampleRates
	if len(rates) == 0 {
		rates = DefaultSampleRates
	}

	for _, rate := range rates {
		minSize, err := n.Backend.MinBufferSize(rate)
		if err != nil {
			n.Log.Error().Err(err).Int("sample_rate", rate).Msg("Invalid parameter for sample rate")
			continue
		}
		if minSize <= 0 {
			n.Log.Error().Int("sample_rate", rate).Int("min_buffer", minSize).Msg("Invalid minimum buffer size")
			continue
		}

		bufferSize := minSize * n.multiplier()
		device, err := n.Backend.Open(rate, bufferSize)
		if err != nil {
			n.Log.Warn().Err(err).Int("sample_rate", rate).Msg("Failed to open input device")
			if device != nil {
				device.Close()
			}
			continue
		}

		n.Log.Info().
			Str("backend", n.Backend.Name()).
			Int("sample_rate", rate).
			Int("buffer_size", bufferSize).
			Msg("Audio input initialized")

		return &Negotiated{
			Device:        device,
			SampleRate:    rate,
			MinBufferSize: minSize,
			BufferSize:    bufferSize,
		}, nil
	}

	n.Log.Error().Ints("candidates", rates).Msg("Failed to initialize audio input with any sample rate")
	return nil, ErrDeviceUnavailable
}

func (n *Negotiator) multiplier() int {
	switch {
	case n.BufferMultiplier < 1:
		return 1
	case n.BufferMultiplier > 2:
		return 2
	default:
		return n.BufferMultiplier
	}
}
