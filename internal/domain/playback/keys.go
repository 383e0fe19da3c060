package playback

import (
	"fmt"
	"strings"
)

// Key is a keyboard action understood by the display.
type Key int

const (
	KeyUnknown Key = iota
	KeyPrev
	KeyNext
	KeyDismiss
)

func (k Key) String() string {
	switch k {
	case KeyPrev:
		return "prev"
	case KeyNext:
		return "next"
	case KeyDismiss:
		return "dismiss"
	default:
		return "unknown"
	}
}

// ParseKey accepts browser key names and short aliases.
func ParseKey(s string) (Key, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "arrowleft", "left", "prev", "previous":
		return KeyPrev, nil
	case "arrowright", "right", "next":
		return KeyNext, nil
	case "escape", "esc", "dismiss":
		return KeyDismiss, nil
	default:
		return KeyUnknown, fmt.Errorf("%w: %q", ErrUnknownKey, s)
	}
}
