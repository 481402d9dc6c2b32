package audio

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/langquence/correct-tray/internal/config"
)

// NewBackend builds the backend named in cfg.
func NewBackend(cfg config.AudioConfig) (Backend, error) {
	switch cfg.Backend {
	case "", config.BackendPortAudio:
		return NewPortAudio(cfg)
	case config.BackendMalgo:
		return NewMalgo(cfg)
	default:
		return nil, fmt.Errorf("unknown audio backend: %s", cfg.Backend)
	}
}

// NewNegotiator builds a Negotiator from the audio config.
func NewNegotiator(backend Backend, cfg config.AudioConfig, checkPermission func() error, log zerolog.Logger) *Negotiator {
	return &Negotiator{
		Backend:          backend,
		SampleRates:      cfg.SampleRates,
		BufferMultiplier: cfg.BufferMultiplier,
		CheckPermission:  checkPermission,
		Log:              log,
	}
}
