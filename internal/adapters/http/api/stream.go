package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/okian/kiosk/internal/domain/idle"
	"github.com/okian/kiosk/internal/domain/playback"
	"github.com/okian/kiosk/pkg/logger"
	"github.com/okian/kiosk/pkg/metrics"
)

// wsWriteTimeout bounds a single frame write to a WebSocket client.
const wsWriteTimeout = 5 * time.Second

// handleStream pushes every committed view as a server-sent event.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, ErrStreaming)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ch := s.coord.Subscribe()
	defer s.coord.Unsubscribe(ch)
	metrics.AddSubscribers("sse", 1)
	defer metrics.AddSubscribers("sse", -1)

	snap := s.coord.Snapshot()
	since := snap.Revision
	if first, err := json.Marshal(snap); err == nil {
		fmt.Fprintf(w, "event: state\ndata: %s\n\n", first)
	}
	flusher.Flush()

	ping := time.NewTicker(s.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.quit:
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			if since > 0 {
				if staleFrame(data, since) {
					continue
				}
				since = 0
			}
			fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
			flusher.Flush()
		case <-ping.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

// ClientMessage is what a WebSocket client sends. Exactly one of Intent,
// Key or Input is expected.
type ClientMessage struct {
	Intent string `json:"intent,omitempty"`
	Index  *int   `json:"index,omitempty"`
	Key    string `json:"key,omitempty"`
	Input  string `json:"input,omitempty"`
}

// toIntent turns a client message into an intent.
func (m ClientMessage) toIntent() (playback.Intent, error) {
	switch {
	case m.Intent != "":
		return IntentRequest{Intent: m.Intent, Index: m.Index}.toIntent()
	case m.Key != "":
		key, err := playback.ParseKey(m.Key)
		if err != nil {
			return playback.Intent{}, err
		}
		return playback.Intent{Kind: playback.KindKey, Key: key}, nil
	case m.Input != "":
		input, err := idle.ParseInput(m.Input)
		if err != nil {
			return playback.Intent{}, err
		}
		return playback.Intent{Kind: playback.KindActivity, Input: input}, nil
	default:
		return playback.Intent{}, ErrEmptyEnvelope
	}
}

// handleWS bridges a WebSocket client: committed views go out as text
// frames, client messages come in as intents. Rejections are answered with
// an ErrorResponse frame on the same socket.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Error(r.Context(), "websocket accept failed", logger.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := s.coord.Subscribe()
	defer s.coord.Unsubscribe(ch)
	metrics.AddSubscribers("ws", 1)
	defer metrics.AddSubscribers("ws", -1)

	go s.readWS(ctx, cancel, conn)

	snap := s.coord.Snapshot()
	since := snap.Revision
	if err := s.writeFrame(ctx, conn, snap); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case data, ok := <-ch:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "coordinator stopped")
				return
			}
			if since > 0 {
				if staleFrame(data, since) {
					continue
				}
				since = 0
			}
			if err := s.write(ctx, conn, data); err != nil {
				return
			}
		}
	}
}

func (s *Server) readWS(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			s.logger.Debug(ctx, "websocket read ended", logger.Error(err))
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			err = fmt.Errorf("%w: %v", ErrBadRequest, err)
			if werr := s.writeFrame(ctx, conn, ErrorResponse{Code: "bad_request", Message: err.Error()}); werr != nil {
				return
			}
			continue
		}

		in, err := msg.toIntent()
		if err == nil {
			_, err = s.coord.Dispatch(ctx, in)
		}
		if err != nil {
			_, code := classify(err)
			if werr := s.writeFrame(ctx, conn, ErrorResponse{Code: code, Message: err.Error()}); werr != nil {
				return
			}
		}
	}
}

// staleFrame reports whether a frame queued while a stream was opening is
// already covered by the snapshot it opened with.
func staleFrame(data []byte, since uint64) bool {
	var head struct {
		Revision uint64 `json:"revision"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return false
	}
	return head.Revision <= since
}

func (s *Server) writeFrame(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.write(ctx, conn, data)
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		s.logger.Debug(ctx, "websocket write failed", logger.Error(err))
		return err
	}
	return nil
}
