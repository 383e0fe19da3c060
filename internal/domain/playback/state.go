// Package playback is the pure state machine behind the kiosk display: which
// event is active, whether the display loops on its own or follows a
// visitor, and whether the detail overlay is open.
//
// Machine is not safe for concurrent use; the coordinator serializes access.
package playback

import (
	"fmt"

	"github.com/okian/kiosk/internal/domain/catalog"
)

// Mode is either autonomous loop or visitor-driven interactive.
type Mode int

const (
	ModeLoop Mode = iota
	ModeInteractive
)

func (m Mode) String() string {
	switch m {
	case ModeLoop:
		return "loop"
	case ModeInteractive:
		return "interactive"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText renders the mode name in JSON.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText accepts the names MarshalText produces.
func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "loop":
		*m = ModeLoop
	case "interactive":
		*m = ModeInteractive
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, b)
	}
	return nil
}

// Stage names the three observable states of the machine.
type Stage string

const (
	StageLoop     Stage = "loop"
	StageBrowsing Stage = "interactive_browsing"
	StageDetail   Stage = "interactive_detail"
)

// State is a committed snapshot. Detail, when set, is a copy of the event
// that was active when the overlay opened.
type State struct {
	Revision    uint64
	ActiveIndex int
	Mode        Mode
	Detail      *catalog.Event
}

// AutoplayEnabled is derived, never stored: loop mode with no overlay.
func (s State) AutoplayEnabled() bool {
	return s.Mode == ModeLoop && s.Detail == nil
}

// Stage maps the state onto the three-state summary.
func (s State) Stage() Stage {
	switch {
	case s.Mode == ModeLoop:
		return StageLoop
	case s.Detail != nil:
		return StageDetail
	default:
		return StageBrowsing
	}
}

func (s State) sameAs(o State) bool {
	if s.ActiveIndex != o.ActiveIndex || s.Mode != o.Mode {
		return false
	}
	if (s.Detail == nil) != (o.Detail == nil) {
		return false
	}
	return s.Detail == nil || s.Detail.ID == o.Detail.ID
}
