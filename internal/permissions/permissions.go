package permissions

import "fmt"

// Status is the microphone authorization state
type Status int

const (
	NotDetermined Status = 0
	Restricted    Status = 1
	Denied        Status = 2
	Authorized    Status = 3
)

func (s Status) String() string {
	switch s {
	case NotDetermined:
		return "not determined"
	case Restricted:
		return "restricted"
	case Denied:
		return "denied"
	case Authorized:
		return "authorized"
	default:
		return fmt.Sprintf("unknown (%d)", int(s))
	}
}

// check maps a status to the error returned by Microphone.
func check(s Status) error {
	if s == Authorized {
		return nil
	}
	return fmt.Errorf("microphone access %s", s)
}
