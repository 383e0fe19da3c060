package playback

import (
	"fmt"

	"github.com/okian/kiosk/internal/domain/catalog"
)

// Machine owns the playback state for one catalog. Every operation either
// commits a complete new state or leaves the current one untouched.
type Machine struct {
	cat   *catalog.Catalog
	state State
}

// NewMachine starts in loop mode on the first event with the overlay closed.
// A nil or empty catalog yields a machine that refuses all navigation.
func NewMachine(cat *catalog.Catalog) *Machine {
	return &Machine{cat: cat}
}

// State returns the committed state. Detail is a private copy.
func (m *Machine) State() State {
	s := m.state
	if s.Detail != nil {
		d := *s.Detail
		s.Detail = &d
	}
	return s
}

// Catalog returns the catalog the machine navigates.
func (m *Machine) Catalog() *catalog.Catalog { return m.cat }

// Empty reports the terminal "nothing to show" condition.
func (m *Machine) Empty() bool { return m.cat.Empty() }

// AutoplayEnabled reports whether the ticker should run. An empty catalog
// never ticks.
func (m *Machine) AutoplayEnabled() bool {
	return !m.Empty() && m.state.AutoplayEnabled()
}

// SelectEvent jumps to index and closes the overlay.
func (m *Machine) SelectEvent(index int) error {
	if m.Empty() {
		return ErrEmptyCatalog
	}
	if index < 0 || index >= m.cat.Len() {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, m.cat.Len())
	}
	m.commit(State{ActiveIndex: index, Mode: ModeInteractive})
	return nil
}

// Prev steps back one event, wrapping from the first to the last.
func (m *Machine) Prev() error {
	if m.Empty() {
		return ErrEmptyCatalog
	}
	next := m.state
	next.Mode = ModeInteractive
	next.ActiveIndex = m.wrap(m.state.ActiveIndex - 1)
	m.commit(next)
	return nil
}

// Next steps forward one event, wrapping from the last to the first.
func (m *Machine) Next() error {
	if m.Empty() {
		return ErrEmptyCatalog
	}
	next := m.state
	next.Mode = ModeInteractive
	next.ActiveIndex = m.wrap(m.state.ActiveIndex + 1)
	m.commit(next)
	return nil
}

// OpenDetail shows the active event in the overlay. The overlay keeps that
// event even if the index moves later.
func (m *Machine) OpenDetail() error {
	if m.Empty() {
		return ErrEmptyCatalog
	}
	ev, _ := m.cat.At(m.state.ActiveIndex)
	next := m.state
	next.Mode = ModeInteractive
	next.Detail = &ev
	m.commit(next)
	return nil
}

// CloseDetail hides the overlay. Mode is left alone.
func (m *Machine) CloseDetail() {
	next := m.state
	next.Detail = nil
	m.commit(next)
}

// AutoplayTick advances one event while autoplay is enabled. It reports
// whether the tick was applied.
func (m *Machine) AutoplayTick() bool {
	if !m.AutoplayEnabled() {
		return false
	}
	next := m.state
	next.ActiveIndex = m.wrap(m.state.ActiveIndex + 1)
	m.commit(next)
	return true
}

// IdleElapsed closes the overlay and returns to loop mode. Idempotent.
func (m *Machine) IdleElapsed() {
	next := m.state
	next.Detail = nil
	next.Mode = ModeLoop
	m.commit(next)
}

// UserActive is the raw activity signal. Playback fields do not react to it.
func (m *Machine) UserActive() {}

// HandleKey bridges keyboard input. While the overlay is open only dismiss
// is honoured; otherwise prev and next navigate and dismiss does nothing.
// It reports whether the key was acted on.
func (m *Machine) HandleKey(k Key) (bool, error) {
	if m.state.Detail != nil {
		if k != KeyDismiss {
			return false, nil
		}
		m.CloseDetail()
		return true, nil
	}
	switch k {
	case KeyPrev:
		return true, m.Prev()
	case KeyNext:
		return true, m.Next()
	case KeyDismiss:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownKey, k)
	}
}

// Apply routes an intent to its operation. Tick intents are applied
// regardless of Seq; staleness is the caller's concern.
func (m *Machine) Apply(in Intent) error {
	switch in.Kind {
	case KindSelect:
		return m.SelectEvent(in.Index)
	case KindPrev:
		return m.Prev()
	case KindNext:
		return m.Next()
	case KindOpenDetail:
		return m.OpenDetail()
	case KindCloseDetail:
		m.CloseDetail()
		return nil
	case KindKey:
		_, err := m.HandleKey(in.Key)
		return err
	case KindActivity:
		m.UserActive()
		return nil
	case KindTick:
		m.AutoplayTick()
		return nil
	case KindIdle:
		m.IdleElapsed()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownIntent, in.Kind)
	}
}

func (m *Machine) wrap(i int) int {
	n := m.cat.Len()
	return ((i % n) + n) % n
}

// commit installs next and bumps the revision when anything changed.
func (m *Machine) commit(next State) {
	if next.sameAs(m.state) {
		return
	}
	next.Revision = m.state.Revision + 1
	m.state = next
}
