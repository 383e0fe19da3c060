// Package visual maps sport names to the color and icon presentation
// surfaces use. Unknown sports fall back to a default; that is never an error.
package visual

import "strings"

// Visual is the presentation hint for one sport.
type Visual struct {
	Color string `json:"color" koanf:"color"`
	Icon  string `json:"icon" koanf:"icon"`
}

// Default is used when nothing else is configured.
var Default = Visual{Color: "#888888", Icon: "trophy"}

// builtin is the table shipped with the kiosk.
var builtin = map[string]Visual{
	"football":   {Color: "#2e7d32", Icon: "soccer-ball"},
	"athletics":  {Color: "#c62828", Icon: "runner"},
	"swimming":   {Color: "#0277bd", Icon: "swimmer"},
	"tennis":     {Color: "#9e9d24", Icon: "tennis-ball"},
	"cycling":    {Color: "#ef6c00", Icon: "bicycle"},
	"basketball": {Color: "#e65100", Icon: "basketball"},
	"rowing":     {Color: "#00838f", Icon: "oar"},
	"boxing":     {Color: "#6a1b9a", Icon: "glove"},
	"skiing":     {Color: "#546e7a", Icon: "skier"},
	"gymnastics": {Color: "#ad1457", Icon: "rings"},
}

// Table resolves sports to visuals.
type Table struct {
	entries  map[string]Visual
	fallback Visual
}

// Builtin returns a copy of the shipped sport table.
func Builtin() map[string]Visual {
	out := make(map[string]Visual, len(builtin))
	for k, v := range builtin {
		out[k] = v
	}
	return out
}

// NewTable builds a Table from entries (keys are matched case-insensitively)
// and a fallback. Empty fallback fields take Default's.
func NewTable(entries map[string]Visual, fallback Visual) *Table {
	if fallback.Color == "" {
		fallback.Color = Default.Color
	}
	if fallback.Icon == "" {
		fallback.Icon = Default.Icon
	}
	t := &Table{entries: make(map[string]Visual, len(entries)), fallback: fallback}
	for k, v := range entries {
		t.entries[normalize(k)] = v
	}
	return t
}

// Resolve returns the visual for sport, or the fallback. Missing fields of a
// configured entry are filled from the fallback.
func (t *Table) Resolve(sport string) Visual {
	v, ok := t.entries[normalize(sport)]
	if !ok {
		return t.fallback
	}
	if v.Color == "" {
		v.Color = t.fallback.Color
	}
	if v.Icon == "" {
		v.Icon = t.fallback.Icon
	}
	return v
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
