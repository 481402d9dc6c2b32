package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/langquence/correct-tray/internal/config"
)

const minPortAudioFrames = 256

type portAudioBackend struct {
	deviceSelection
}

// NewPortAudio creates a PortAudio-based backend
func NewPortAudio(cfg config.AudioConfig) (Backend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	b := &portAudioBackend{}
	b.SelectDevice(cfg.DeviceID)
	return b, nil
}

func (p *portAudioBackend) Name() string { return config.BackendPortAudio }

func (p *portAudioBackend) inputDevice() (*portaudio.DeviceInfo, error) {
	id := p.selected()
	if id == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == id && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", id)
}

func (p *portAudioBackend) params(device *portaudio.DeviceInfo, sampleRate, frames int) portaudio.StreamParameters {
	return portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: frames,
	}
}

func (p *portAudioBackend) MinBufferSize(sampleRate int) (int, error) {
	device, err := p.inputDevice()
	if err != nil {
		return 0, err
	}

	params := p.params(device, sampleRate, portaudio.FramesPerBufferUnspecified)
	if err := portaudio.IsFormatSupported(params, []int16{}); err != nil {
		return 0, fmt.Errorf("%w: %d Hz on %s: %v", ErrBadValue, sampleRate, device.Name, err)
	}

	frames := int(math.Ceil(device.DefaultLowInputLatency.Seconds() * float64(sampleRate)))
	if frames < minPortAudioFrames {
		frames = minPortAudioFrames
	}
	return frames * BytesPerSample, nil
}

func (p *portAudioBackend) Open(sampleRate, bufferSize int) (Device, error) {
	device, err := p.inputDevice()
	if err != nil {
		return nil, err
	}

	buffer := make([]int16, bufferSize/BytesPerSample)
	stream, err := portaudio.OpenStream(p.params(device, sampleRate, len(buffer)), buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	return &portAudioDevice{stream: stream, buffer: buffer}, nil
}

func (p *portAudioBackend) ListDevices() ([]AudioDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]AudioDevice, 0, len(devices))
	defaultDevice, _ := portaudio.DefaultInputDevice()

	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, AudioDevice{
				ID:      d.Name,
				Name:    d.Name,
				Default: d == defaultDevice,
			})
		}
	}

	return result, nil
}

func (p *portAudioBackend) Close() error {
	return portaudio.Terminate()
}

type portAudioDevice struct {
	stream  *portaudio.Stream
	buffer  []int16
	pending []byte
	active  atomic.Bool
}

func (d *portAudioDevice) Start() error {
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	d.active.Store(true)
	return nil
}

// Read fills p from the stream; a device buffer larger than p is drained over
// successive calls before the stream is read again.
func (d *portAudioDevice) Read(p []byte) (int, error) {
	if len(d.pending) == 0 {
		if err := d.stream.Read(); err != nil && err != portaudio.InputOverflowed {
			return 0, err
		}
		raw := make([]byte, len(d.buffer)*BytesPerSample)
		for i, sample := range d.buffer {
			binary.LittleEndian.PutUint16(raw[i*2:], uint16(sample))
		}
		d.pending = raw
	}

	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *portAudioDevice) Recording() bool {
	return d.active.Load()
}

func (d *portAudioDevice) Stop() error {
	if !d.active.Swap(false) {
		return nil
	}
	return d.stream.Stop()
}

func (d *portAudioDevice) Close() error {
	d.active.Store(false)
	return d.stream.Close()
}
