package service

import (
	"github.com/okian/kiosk/internal/domain/catalog"
	"github.com/okian/kiosk/internal/domain/playback"
)

// Phase tracks the one-shot catalog load.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// View is the read-only projection handed to presentation surfaces.
type View struct {
	Phase            Phase          `json:"phase"`
	Revision         uint64         `json:"revision"`
	Stage            playback.Stage `json:"stage"`
	Mode             playback.Mode  `json:"mode"`
	ActiveIndex      int            `json:"active_index"`
	Total            int            `json:"total"`
	Active           *catalog.Event `json:"active,omitempty"`
	Detail           *catalog.Event `json:"detail,omitempty"`
	AutoplayEnabled  bool           `json:"autoplay_enabled"`
	AutoplayPeriodMs int64          `json:"autoplay_period_ms"`
	IdleTimeoutMs    int64          `json:"idle_timeout_ms"`
	Error            string         `json:"error,omitempty"`
}

// Empty reports whether there is nothing to show.
func (v View) Empty() bool { return v.Total == 0 }

// sameAs compares everything except the revision.
func (v View) sameAs(o View) bool {
	a, b := v, o
	a.Revision, b.Revision = 0, 0
	a.Active, b.Active = nil, nil
	a.Detail, b.Detail = nil, nil
	return a == b && sameEvent(v.Active, o.Active) && sameEvent(v.Detail, o.Detail)
}

func sameEvent(a, b *catalog.Event) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}
