package audio

import (
	"errors"
	"sync"
	"time"
)

// fakeBackend accepts only the rates in minBuffers and fails Open for rates in openErr.
type fakeBackend struct {
	deviceSelection
	minBuffers map[int]int
	openErr    map[int]error
	chunks     [][]byte
	// selfStop is passed to every opened device.
	selfStop   bool

	mu      sync.Mutex
	queried []int
	opened  []*fakeDevice
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) MinBufferSize(rate int) (int, error) {
	b.mu.Lock()
	b.queried = append(b.queried, rate)
	b.mu.Unlock()

	size, ok := b.minBuffers[rate]
	if !ok {
		return 0, ErrBadValue
	}
	return size, nil
}

func (b *fakeBackend) Open(rate, bufferSize int) (Device, error) {
	if err := b.openErr[rate]; err != nil {
		return nil, err
	}
	d := newFakeDevice(rate, bufferSize, b.chunks)
	d.selfStop = b.selfStop
	b.mu.Lock()
	b.opened = append(b.opened, d)
	b.mu.Unlock()
	return d, nil
}

func (b *fakeBackend) ListDevices() ([]AudioDevice, error) {
	return []AudioDevice{{ID: "fake", Name: "Fake", Default: true}}, nil
}

func (b *fakeBackend) Close() error { return nil }

// fakeDevice returns scripted chunks, then idles until stopped.
type fakeDevice struct {
	rate       int
	bufferSize int

	mu      sync.Mutex
	chunks  [][]byte
	started bool
	stopped bool
	closed  bool
	reads   int
	drained chan struct{}
	once    sync.Once

	// selfStop makes the device stop on its own once its chunks run out.
	selfStop bool
}

func newFakeDevice(rate, bufferSize int, chunks [][]byte) *fakeDevice {
	return &fakeDevice{
		rate:       rate,
		bufferSize: bufferSize,
		chunks:     append([][]byte(nil), chunks...),
		drained:    make(chan struct{}),
	}
}

func (d *fakeDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("start on closed device")
	}
	d.started = true
	return nil
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, errors.New("read on released device")
	}
	if len(d.chunks) == 0 {
		if d.selfStop {
			d.stopped = true
		}
		d.mu.Unlock()
		d.once.Do(func() { close(d.drained) })
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	chunk := d.chunks[0]
	d.chunks = d.chunks[1:]
	d.reads++
	d.mu.Unlock()

	return copy(p, chunk), nil
}

func (d *fakeDevice) Recording() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started && !d.stopped && !d.closed
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// stallingDevice reads through a malgoDevice whose callbacks never arrive,
// as happens when the input is unplugged mid-capture.
type stallingDevice struct {
	in *malgoDevice

	mu      sync.Mutex
	started bool
	stopped bool
	closed  bool
}

func newStallingDevice() *stallingDevice {
	return &stallingDevice{in: &malgoDevice{
		chunks: make(chan []byte, malgoPendingChunks),
		closed: make(chan struct{}),
	}}
}

func (d *stallingDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = true
	return nil
}

func (d *stallingDevice) Read(p []byte) (int, error) { return d.in.Read(p) }

// Recording stays true: the device never reports that it went away.
func (d *stallingDevice) Recording() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started && !d.stopped
}

func (d *stallingDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func (d *stallingDevice) Close() error {
	d.in.closeOnce.Do(func() { close(d.in.closed) })
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *stallingDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// stallingBackend opens stallingDevices at any rate.
type stallingBackend struct {
	deviceSelection

	mu     sync.Mutex
	opened []*stallingDevice
}

func (b *stallingBackend) Name() string { return "stalling" }

func (b *stallingBackend) MinBufferSize(int) (int, error) { return 64, nil }

func (b *stallingBackend) Open(int, int) (Device, error) {
	d := newStallingDevice()
	b.mu.Lock()
	b.opened = append(b.opened, d)
	b.mu.Unlock()
	return d, nil
}

func (b *stallingBackend) ListDevices() ([]AudioDevice, error) { return nil, nil }

func (b *stallingBackend) Close() error { return nil }
