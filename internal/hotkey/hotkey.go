package hotkey

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.design/x/hotkey"
)

// Manager defines the interface for global hotkey management
type Manager interface {
	Register(accel string, callback func(pressed bool)) error
	Unregister(accel string) error
	Close() error
}

type binding struct {
	hk   *hotkey.Hotkey
	stop chan struct{}
	done chan struct{}
}

type manager struct {
	log zerolog.Logger

	mu       sync.Mutex
	bindings map[string]*binding
}

// New creates a hotkey manager backed by the platform's global shortcut API
func New(log zerolog.Logger) (Manager, error) {
	return &manager{
		log:      log,
		bindings: make(map[string]*binding),
	}, nil
}

func (m *manager) Register(accel string, callback func(pressed bool)) error {
	mods, key, err := Parse(accel)
	if err != nil {
		return fmt.Errorf("invalid hotkey %q: %w", accel, err)
	}
	name := normalize(accel)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bindings[name]; ok {
		return fmt.Errorf("hotkey %q already registered", accel)
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey: %w", err)
	}

	b := &binding{hk: hk, stop: make(chan struct{}), done: make(chan struct{})}
	m.bindings[name] = b
	go m.listen(b, callback)

	m.log.Info().Str("hotkey", accel).Msg("Hotkey registered")
	return nil
}

func (m *manager) listen(b *binding, callback func(bool)) {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		case _, ok := <-b.hk.Keydown():
			if !ok {
				return
			}
			callback(true)
		case _, ok := <-b.hk.Keyup():
			if !ok {
				return
			}
			callback(false)
		}
	}
}

func (m *manager) Unregister(accel string) error {
	name := normalize(accel)

	m.mu.Lock()
	b, ok := m.bindings[name]
	delete(m.bindings, name)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return release(b)
}

func (m *manager) Close() error {
	m.mu.Lock()
	bindings := m.bindings
	m.bindings = make(map[string]*binding)
	m.mu.Unlock()

	var firstErr error
	for _, b := range bindings {
		if err := release(b); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func release(b *binding) error {
	close(b.stop)
	err := b.hk.Unregister()
	select {
	case <-b.done:
	case <-time.After(100 * time.Millisecond):
	}
	return err
}

// Parse turns an accelerator such as "Ctrl+Shift+Space" into modifiers and a key.
func Parse(accel string) ([]hotkey.Modifier, hotkey.Key, error) {
	parts := strings.Split(normalize(accel), "+")

	var mods []hotkey.Modifier
	var key hotkey.Key
	found := false

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, 0, fmt.Errorf("empty key in %q", accel)
		}
		switch part {
		case "ctrl", "control":
			mods = append(mods, hotkey.ModCtrl)
		case "shift":
			mods = append(mods, hotkey.ModShift)
		case "alt", "option", "opt":
			mods = append(mods, modAlt())
		case "cmd", "command", "super", "win", "meta":
			mods = append(mods, modSuper())
		default:
			if found {
				return nil, 0, fmt.Errorf("multiple keys in %q", accel)
			}
			k, ok := keys[part]
			if !ok {
				return nil, 0, fmt.Errorf("unknown key: %s", part)
			}
			key = k
			found = true
		}
	}

	if !found {
		return nil, 0, fmt.Errorf("no key in %q", accel)
	}
	return mods, key, nil
}

func normalize(accel string) string {
	return strings.ToLower(strings.TrimSpace(accel))
}

var keys = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "return": hotkey.KeyReturn, "enter": hotkey.KeyReturn,
	"tab": hotkey.KeyTab, "escape": hotkey.KeyEscape, "esc": hotkey.KeyEscape,

	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD, "e": hotkey.KeyE,
	"f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH, "i": hotkey.KeyI, "j": hotkey.KeyJ,
	"k": hotkey.KeyK, "l": hotkey.KeyL, "m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO,
	"p": hotkey.KeyP, "q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX, "y": hotkey.KeyY,
	"z": hotkey.KeyZ,

	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3, "4": hotkey.Key4,
	"5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7, "8": hotkey.Key8, "9": hotkey.Key9,

	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}
