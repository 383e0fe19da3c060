// Package catalog holds the immutable, chronologically ordered set of events
// shown by the kiosk and the one-shot loader that produces it.
package catalog

import "strings"

// placeholderImage is the sentinel some feeds put in place of a missing image.
const placeholderImage = "placeholder"

// Event is one record of the catalog. It is never mutated after load.
type Event struct {
	ID          int     `json:"id"`
	Year        int     `json:"year"`
	Sport       string  `json:"sport"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       *string `json:"image"`
}

// HasImage reports whether Image points at something displayable. Null,
// empty and placeholder values all mean "no image". The field itself is
// passed through untouched.
func (e Event) HasImage() bool {
	if e.Image == nil {
		return false
	}
	img := strings.ToLower(strings.TrimSpace(*e.Image))
	if img == "" || img == placeholderImage {
		return false
	}
	return !strings.HasSuffix(img, placeholderImage+".png")
}
