package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/langquence/correct-tray/internal/config"
)

const (
	malgoMinRate       = 8000
	malgoMaxRate       = 384000
	malgoPeriodMillis  = 10
	malgoPendingChunks = 64

	// Read gives up after a few silent periods so the capture loop can
	// notice a device that stopped delivering callbacks.
	malgoReadWait = 4 * malgoPeriodMillis * time.Millisecond
)

type malgoBackend struct {
	deviceSelection
	ctx *malgo.AllocatedContext
}

// NewMalgo creates a miniaudio-based backend
func NewMalgo(cfg config.AudioConfig) (Backend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	b := &malgoBackend{ctx: ctx}
	b.SelectDevice(cfg.DeviceID)
	return b, nil
}

func (m *malgoBackend) Name() string { return config.BackendMalgo }

func (m *malgoBackend) MinBufferSize(sampleRate int) (int, error) {
	if sampleRate < malgoMinRate || sampleRate > malgoMaxRate {
		return 0, fmt.Errorf("%w: %d Hz outside %d..%d", ErrBadValue, sampleRate, malgoMinRate, malgoMaxRate)
	}
	// Two periods
	frames := sampleRate * malgoPeriodMillis / 1000 * 2
	return frames * BytesPerSample, nil
}

func (m *malgoBackend) findDevice(id string) (*malgo.DeviceInfo, error) {
	infos, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for i := range infos {
		if infos[i].Name() == id {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", id)
}

func (m *malgoBackend) Open(sampleRate, bufferSize int) (Device, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = Channels
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(bufferSize / BytesPerSample)
	deviceConfig.Alsa.NoMMap = 1

	if id := m.selected(); id != "" {
		info, err := m.findDevice(id)
		if err != nil {
			return nil, err
		}
		deviceConfig.Capture.DeviceID = info.ID.Pointer()
	}

	d := &malgoDevice{
		chunks: make(chan []byte, malgoPendingChunks),
		closed: make(chan struct{}),
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			chunk := make([]byte, len(input))
			copy(chunk, input)
			select {
			case d.chunks <- chunk:
			default:
				// Reader is behind; drop rather than stall the audio thread
			}
		},
	}

	device, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize device: %w", err)
	}
	d.device = device

	return d, nil
}

func (m *malgoBackend) ListDevices() ([]AudioDevice, error) {
	infos, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]AudioDevice, 0, len(infos))
	for _, info := range infos {
		result = append(result, AudioDevice{
			ID:      info.Name(),
			Name:    info.Name(),
			Default: info.IsDefault > 0,
		})
	}
	return result, nil
}

func (m *malgoBackend) Close() error {
	err := m.ctx.Uninit()
	m.ctx.Free()
	return err
}

type malgoDevice struct {
	device  *malgo.Device
	chunks  chan []byte
	pending []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func (d *malgoDevice) Start() error {
	if err := d.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

func (d *malgoDevice) Read(p []byte) (int, error) {
	if len(d.pending) == 0 {
		select {
		case chunk := <-d.chunks:
			d.pending = chunk
		case <-d.closed:
			return 0, io.EOF
		case <-time.After(malgoReadWait):
			return 0, nil
		}
	}

	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *malgoDevice) Recording() bool {
	return d.device.IsStarted()
}

func (d *malgoDevice) Stop() error {
	if !d.device.IsStarted() {
		return nil
	}
	if err := d.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

func (d *malgoDevice) Close() error {
	d.closeOnce.Do(func() {
		close(d.closed)
		d.device.Uninit()
	})
	return nil
}
