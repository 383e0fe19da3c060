package catalog

import (
	"cmp"
	"fmt"
	"slices"
)

// Catalog is an ordered, read-only sequence of events, non-decreasing by year.
// The zero value is an empty catalog.
type Catalog struct {
	events  []Event
	minYear int
	maxYear int
}

// New copies events, rejects duplicate ids and stable-sorts by year so events
// sharing a year keep their original relative order.
func New(events []Event) (*Catalog, error) {
	seen := make(map[int]struct{}, len(events))
	for _, e := range events {
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, e.ID)
		}
		seen[e.ID] = struct{}{}
	}

	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b Event) int { return cmp.Compare(a.Year, b.Year) })

	c := &Catalog{events: sorted}
	if len(sorted) > 0 {
		c.minYear = sorted[0].Year
		c.maxYear = sorted[len(sorted)-1].Year
	}
	return c, nil
}

// Len returns the number of events. Safe on a nil catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.events)
}

// Empty reports whether there is nothing to show.
func (c *Catalog) Empty() bool { return c.Len() == 0 }

// At returns the event at index i.
func (c *Catalog) At(i int) (Event, bool) {
	if i < 0 || i >= c.Len() {
		return Event{}, false
	}
	return c.events[i], true
}

// Events returns a copy of the ordered events.
func (c *Catalog) Events() []Event {
	if c == nil {
		return nil
	}
	return slices.Clone(c.events)
}

// MinYear is the year of the first event (0 when empty).
func (c *Catalog) MinYear() int {
	if c == nil {
		return 0
	}
	return c.minYear
}

// MaxYear is the year of the last event (0 when empty).
func (c *Catalog) MaxYear() int {
	if c == nil {
		return 0
	}
	return c.maxYear
}

// Position places event i on a ruler spanning [MinYear, MaxYear], as a
// fraction in [0,1]. A catalog covering a single year puts everything in the
// middle. Out-of-range indexes return 0.
func (c *Catalog) Position(i int) float64 {
	e, ok := c.At(i)
	if !ok {
		return 0
	}
	if c.maxYear == c.minYear {
		return 0.5
	}
	lo := float64(c.minYear)
	return (float64(e.Year) - lo) / (float64(c.maxYear) - lo)
}
