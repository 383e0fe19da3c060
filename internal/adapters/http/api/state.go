package api

import (
	"net/http"

	service "github.com/okian/kiosk/internal/app"
	"github.com/okian/kiosk/internal/domain/catalog"
	"github.com/okian/kiosk/internal/domain/visual"
)

// CatalogEvent is one event as the display needs it: the raw record plus
// its visual and where it sits on the year ruler.
type CatalogEvent struct {
	catalog.Event
	HasImage bool          `json:"has_image"`
	Position float64       `json:"position" description:"Fraction in [0,1] along the year ruler."`
	Visual   visual.Visual `json:"visual"`
}

// CatalogResponse is returned by GET /api/catalog.
type CatalogResponse struct {
	Phase   service.Phase  `json:"phase"`
	Total   int            `json:"total"`
	MinYear int            `json:"min_year"`
	MaxYear int            `json:"max_year"`
	Events  []CatalogEvent `json:"events"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Snapshot())
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	view := s.coord.Snapshot()
	cat := s.coord.Catalog()

	resp := CatalogResponse{
		Phase:   view.Phase,
		Total:   cat.Len(),
		MinYear: cat.MinYear(),
		MaxYear: cat.MaxYear(),
		Events:  make([]CatalogEvent, 0, cat.Len()),
	}
	for i, ev := range cat.Events() {
		resp.Events = append(resp.Events, CatalogEvent{
			Event:    ev,
			HasImage: ev.HasImage(),
			Position: cat.Position(i),
			Visual:   s.visuals.Resolve(ev.Sport),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
