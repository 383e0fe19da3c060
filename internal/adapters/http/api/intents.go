package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/kiosk/internal/domain/idle"
	"github.com/okian/kiosk/internal/domain/playback"
)

// IntentRequest is the body of POST /api/intents.
type IntentRequest struct {
	Intent string `json:"intent" required:"true" enum:"select,prev,next,open_detail,close_detail"`
	Index  *int   `json:"index,omitempty" description:"Target index, required for select."`
}

// KeyRequest is the body of POST /api/keys.
type KeyRequest struct {
	Key string `json:"key" required:"true" example:"ArrowLeft"`
}

// ActivityRequest is the body of POST /api/activity.
type ActivityRequest struct {
	Input string `json:"input" required:"true" enum:"pointer_move,pointer_down,touch_start,key_down,wheel"`
}

// AutoplayRequest is the body of PUT /api/autoplay.
type AutoplayRequest struct {
	PeriodMs int64 `json:"period_ms" required:"true" minimum:"1"`
}

// toIntent validates the request and builds the matching intent.
func (req IntentRequest) toIntent() (playback.Intent, error) {
	kind, err := playback.ParseKind(req.Intent)
	if err != nil {
		return playback.Intent{}, err
	}
	in := playback.Intent{Kind: kind}
	if kind == playback.KindSelect {
		if req.Index == nil {
			return playback.Intent{}, fmt.Errorf("%w: select needs an index", ErrBadRequest)
		}
		in.Index = *req.Index
	}
	return in, nil
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, in playback.Intent) {
	in.ID = requestID(r)
	view, err := s.coord.Dispatch(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	var req IntentRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	in, err := req.toIntent()
	if err != nil {
		writeError(w, err)
		return
	}
	s.dispatch(w, r, in)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %q", ErrInvalidIndex, chi.URLParam(r, "index")))
		return
	}
	s.dispatch(w, r, playback.Intent{Kind: playback.KindSelect, Index: index})
}

// handleSimple serves the intents that carry no payload.
func (s *Server) handleSimple(kind playback.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.dispatch(w, r, playback.Intent{Kind: kind})
	}
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var req KeyRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	key, err := playback.ParseKey(req.Key)
	if err != nil {
		writeError(w, err)
		return
	}
	s.dispatch(w, r, playback.Intent{Kind: playback.KindKey, Key: key})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	var req ActivityRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	input, err := idle.ParseInput(req.Input)
	if err != nil {
		writeError(w, err)
		return
	}
	s.dispatch(w, r, playback.Intent{Kind: playback.KindActivity, Input: input})
}

func (s *Server) handleAutoplay(w http.ResponseWriter, r *http.Request) {
	var req AutoplayRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	view, err := s.coord.SetAutoplayPeriod(r.Context(), time.Duration(req.PeriodMs)*time.Millisecond)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// requestID correlates an intent with the request that carried it. Empty
// lets the coordinator assign one.
func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
