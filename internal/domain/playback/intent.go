package playback

import (
	"fmt"
	"strings"

	"github.com/okian/kiosk/internal/domain/idle"
)

// Kind identifies what an Intent asks for.
type Kind string

const (
	KindSelect      Kind = "select"
	KindPrev        Kind = "prev"
	KindNext        Kind = "next"
	KindOpenDetail  Kind = "open_detail"
	KindCloseDetail Kind = "close_detail"
	KindKey         Kind = "key"
	KindActivity    Kind = "activity"

	// Produced by the timers, never by visitors.
	KindTick Kind = "tick"
	KindIdle Kind = "idle"
)

// Intent is an immutable request for a state transition.
type Intent struct {
	ID    string
	Kind  Kind
	Index int        // KindSelect
	Key   Key        // KindKey
	Input idle.Input // KindActivity
	Seq   uint64     // KindTick schedule sequence
}

// ParseKind maps the user-facing names (and a few aliases) to a Kind.
// Timer kinds cannot be requested from outside.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "select":
		return KindSelect, nil
	case "prev", "previous":
		return KindPrev, nil
	case "next":
		return KindNext, nil
	case "open_detail", "open", "detail":
		return KindOpenDetail, nil
	case "close_detail", "close":
		return KindCloseDetail, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownIntent, s)
	}
}

// FromVisitor reports whether the intent originates from a visitor.
func (in Intent) FromVisitor() bool {
	return in.Kind != KindTick && in.Kind != KindIdle
}

// QualifyingInput is the raw input that accompanies a visitor intent: taps
// and clicks are pointer presses, keys are key presses.
func (in Intent) QualifyingInput() (idle.Input, bool) {
	switch in.Kind {
	case KindSelect, KindPrev, KindNext, KindOpenDetail, KindCloseDetail:
		return idle.InputPointerDown, true
	case KindKey:
		return idle.InputKeyDown, true
	case KindActivity:
		return in.Input, true
	default:
		return "", false
	}
}
