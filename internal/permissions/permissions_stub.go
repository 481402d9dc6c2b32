//go:build !darwin

package permissions

// MicrophoneStatus is always Authorized off macOS.
func MicrophoneStatus() Status {
	return Authorized
}

// Microphone is a no-op on non-macOS platforms.
func Microphone() error {
	return nil
}

// RequestMicrophone is a no-op on non-macOS platforms.
func RequestMicrophone() {}
