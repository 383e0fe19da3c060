package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/okian/kiosk/internal/adapters/http/api"
	service "github.com/okian/kiosk/internal/app"
	"github.com/okian/kiosk/internal/domain/catalog"
	"github.com/okian/kiosk/internal/domain/playback"
	"github.com/okian/kiosk/internal/domain/visual"
	"github.com/okian/kiosk/pkg/clock"
	"github.com/okian/kiosk/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var epoch = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func fourEvents() *catalog.Catalog {
	cat, err := catalog.New([]catalog.Event{
		{ID: 10, Year: 2000, Sport: "tennis", Title: "Millennium final"},
		{ID: 11, Year: 1900, Sport: "football", Title: "First match"},
		{ID: 12, Year: 1950, Sport: "cycling", Title: "Mountain stage"},
		{ID: 13, Year: 2000, Sport: "curling", Title: "Stone age"},
	})
	if err != nil {
		panic(err)
	}
	return cat
}

// kiosk starts a coordinator on a fake clock, optionally loads cat and
// returns the server in front of it.
func kiosk(cat *catalog.Catalog, opts ...api.Option) (*api.Server, *service.Coordinator) {
	c := service.New(
		service.WithClock(clock.NewFake(epoch)),
		service.WithAutoplayPeriod(7*time.Second),
		service.WithIdleTimeout(14*time.Second),
	)
	if err := c.Start(context.Background()); err != nil {
		panic(err)
	}
	if cat != nil {
		if err := c.Load(context.Background(), cat); err != nil {
			panic(err)
		}
	}
	opts = append([]api.Option{api.WithLogger(logger.Get())}, opts...)
	return api.NewServer("127.0.0.1:0", c, opts...), c
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func view(w *httptest.ResponseRecorder) service.View {
	var v service.View
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func failure(w *httptest.ResponseRecorder) api.ErrorResponse {
	var e api.ErrorResponse
	So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
	return e
}

func TestStateAndCatalog(t *testing.T) {
	Convey("Given a kiosk with a loaded catalog", t, func() {
		srv, c := kiosk(fourEvents(), api.WithVisuals(visual.NewTable(visual.Builtin(), visual.Default)))
		defer c.Stop()
		h := srv.Handler()

		Convey("When the state is read", func() {
			w := do(h, http.MethodGet, "/api/state", "")

			Convey("Then it is the looping view on the earliest event", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				v := view(w)
				So(v.Phase, ShouldEqual, service.PhaseReady)
				So(v.Mode, ShouldEqual, playback.ModeLoop)
				So(v.Stage, ShouldEqual, playback.StageLoop)
				So(v.ActiveIndex, ShouldEqual, 0)
				So(v.Active.ID, ShouldEqual, 11)
				So(v.Total, ShouldEqual, 4)
				So(v.AutoplayEnabled, ShouldBeTrue)
			})
		})

		Convey("When the catalog is read", func() {
			w := do(h, http.MethodGet, "/api/catalog", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var resp api.CatalogResponse
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)

			Convey("Then events are sorted by year keeping ties stable", func() {
				So(resp.Total, ShouldEqual, 4)
				ids := []int{}
				for _, e := range resp.Events {
					ids = append(ids, e.ID)
				}
				So(ids, ShouldResemble, []int{11, 12, 10, 13})
				So(resp.MinYear, ShouldEqual, 1900)
				So(resp.MaxYear, ShouldEqual, 2000)
			})

			Convey("Then ruler positions span the year range", func() {
				So(resp.Events[0].Position, ShouldEqual, 0)
				So(resp.Events[1].Position, ShouldEqual, 0.5)
				So(resp.Events[3].Position, ShouldEqual, 1)
			})

			Convey("Then unknown sports fall back to the default visual", func() {
				So(resp.Events[0].Visual, ShouldResemble, visual.NewTable(visual.Builtin(), visual.Default).Resolve("football"))
				So(resp.Events[3].Visual, ShouldResemble, visual.Default)
			})
		})
	})
}

func TestIntents(t *testing.T) {
	Convey("Given a looping kiosk", t, func() {
		srv, c := kiosk(fourEvents())
		defer c.Stop()
		h := srv.Handler()

		Convey("When a visitor taps next", func() {
			w := do(h, http.MethodPost, "/api/next", "")

			Convey("Then the display follows the visitor", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				v := view(w)
				So(v.ActiveIndex, ShouldEqual, 1)
				So(v.Mode, ShouldEqual, playback.ModeInteractive)
				So(v.AutoplayEnabled, ShouldBeFalse)
			})

			Convey("Then prev brings it back", func() {
				v := view(do(h, http.MethodPost, "/api/prev", ""))
				So(v.ActiveIndex, ShouldEqual, 0)
			})
		})

		Convey("When prev wraps from the first event", func() {
			v := view(do(h, http.MethodPost, "/api/prev", ""))
			So(v.ActiveIndex, ShouldEqual, 3)
		})

		Convey("When an event is selected by path", func() {
			w := do(h, http.MethodPost, "/api/select/2", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(view(w).ActiveIndex, ShouldEqual, 2)
		})

		Convey("When the selected index is out of range", func() {
			before := c.Snapshot()
			w := do(h, http.MethodPost, "/api/select/9", "")

			Convey("Then it is rejected and nothing changes", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(failure(w).Code, ShouldEqual, "index_out_of_range")
				So(c.Snapshot(), ShouldResemble, before)
			})
		})

		Convey("When the index is not a number", func() {
			w := do(h, http.MethodPost, "/api/select/two", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(failure(w).Code, ShouldEqual, "bad_request")
		})

		Convey("When intents arrive as JSON", func() {
			w := do(h, http.MethodPost, "/api/intents", `{"intent":"select","index":3}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(view(w).ActiveIndex, ShouldEqual, 3)

			w = do(h, http.MethodPost, "/api/intents", `{"intent":"open_detail"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			v := view(w)
			So(v.Stage, ShouldEqual, playback.StageDetail)
			So(v.Detail.ID, ShouldEqual, 13)
		})

		Convey("When the JSON intent is malformed", func() {
			cases := map[string]string{
				`{"intent":"tick"}`:       "unknown_intent",
				`{"intent":"select"}`:     "bad_request",
				`{"intent":"next","x":1}`: "bad_request",
				`not json`:                "bad_request",
				`{"intent":"idle"}`:       "unknown_intent",
			}
			for body, code := range cases {
				w := do(h, http.MethodPost, "/api/intents", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(failure(w).Code, ShouldEqual, code)
			}
			So(c.Snapshot().Mode, ShouldEqual, playback.ModeLoop)
		})

		Convey("When the overlay is opened and closed", func() {
			open := view(do(h, http.MethodPost, "/api/detail", ""))
			closed := view(do(h, http.MethodDelete, "/api/detail", ""))

			Convey("Then the visitor keeps browsing", func() {
				So(open.Stage, ShouldEqual, playback.StageDetail)
				So(open.Detail.ID, ShouldEqual, 11)
				So(closed.Stage, ShouldEqual, playback.StageBrowsing)
				So(closed.Detail, ShouldBeNil)
				So(closed.AutoplayEnabled, ShouldBeFalse)
			})
		})
	})
}

func TestKeysAndActivity(t *testing.T) {
	Convey("Given a looping kiosk", t, func() {
		srv, c := kiosk(fourEvents())
		defer c.Stop()
		h := srv.Handler()

		Convey("When arrow keys are pressed", func() {
			v := view(do(h, http.MethodPost, "/api/keys", `{"key":"ArrowRight"}`))
			So(v.ActiveIndex, ShouldEqual, 1)
			v = view(do(h, http.MethodPost, "/api/keys", `{"key":"ArrowLeft"}`))
			So(v.ActiveIndex, ShouldEqual, 0)
			So(v.Mode, ShouldEqual, playback.ModeInteractive)
		})

		Convey("When Escape is pressed with no overlay", func() {
			before := c.Snapshot()
			w := do(h, http.MethodPost, "/api/keys", `{"key":"Escape"}`)

			Convey("Then it is accepted and ignored", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(view(w).Revision, ShouldEqual, before.Revision)
			})
		})

		Convey("When arrows are pressed with the overlay open", func() {
			do(h, http.MethodPost, "/api/detail", "")
			v := view(do(h, http.MethodPost, "/api/keys", `{"key":"ArrowRight"}`))

			Convey("Then only Escape acts", func() {
				So(v.ActiveIndex, ShouldEqual, 0)
				So(v.Stage, ShouldEqual, playback.StageDetail)
				v = view(do(h, http.MethodPost, "/api/keys", `{"key":"Escape"}`))
				So(v.Stage, ShouldEqual, playback.StageBrowsing)
			})
		})

		Convey("When an unknown key is pressed", func() {
			w := do(h, http.MethodPost, "/api/keys", `{"key":"F1"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(failure(w).Code, ShouldEqual, "unknown_key")
		})

		Convey("When activity is reported", func() {
			w := do(h, http.MethodPost, "/api/activity", `{"input":"wheel"}`)

			Convey("Then the view does not change", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(view(w).Mode, ShouldEqual, playback.ModeLoop)
				So(view(w).AutoplayEnabled, ShouldBeTrue)
			})
		})

		Convey("When the activity is not a qualifying input", func() {
			w := do(h, http.MethodPost, "/api/activity", `{"input":"blink"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(failure(w).Code, ShouldEqual, "unknown_input")
		})

		Convey("When the autoplay period changes", func() {
			w := do(h, http.MethodPut, "/api/autoplay", `{"period_ms":3000}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(view(w).AutoplayPeriodMs, ShouldEqual, 3000)

			w = do(h, http.MethodPut, "/api/autoplay", `{"period_ms":0}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(failure(w).Code, ShouldEqual, "invalid_period")
		})
	})
}

func TestUnavailableCatalog(t *testing.T) {
	Convey("Given a kiosk still loading", t, func() {
		srv, c := kiosk(nil)
		defer c.Stop()
		h := srv.Handler()

		Convey("Then health is unavailable and navigation conflicts", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			var checks api.HealthResponse
			So(json.Unmarshal(w.Body.Bytes(), &checks), ShouldBeNil)
			So(checks["catalog"].Status, ShouldEqual, "loading")

			w = do(h, http.MethodPost, "/api/next", "")
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(failure(w).Code, ShouldEqual, "not_ready")

			var resp api.CatalogResponse
			w = do(h, http.MethodGet, "/api/catalog", "")
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Phase, ShouldEqual, service.PhaseLoading)
			So(resp.Events, ShouldBeEmpty)
		})
	})

	Convey("Given a kiosk whose catalog failed to load", t, func() {
		srv, c := kiosk(nil)
		defer c.Stop()
		So(c.Fail(context.Background(), catalog.ErrFetch), ShouldBeNil)
		h := srv.Handler()

		Convey("Then every intent is an empty-catalog no-op", func() {
			for _, path := range []string{"/api/next", "/api/prev", "/api/select/0", "/api/detail"} {
				w := do(h, http.MethodPost, path, "")
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(failure(w).Code, ShouldEqual, "empty_catalog")
			}
			So(do(h, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})

	Convey("Given a kiosk with an empty catalog", t, func() {
		empty, err := catalog.New(nil)
		So(err, ShouldBeNil)
		srv, c := kiosk(empty)
		defer c.Stop()
		h := srv.Handler()

		Convey("Then it is healthy with nothing to show", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "empty")

			w = do(h, http.MethodPost, "/api/keys", `{"key":"ArrowRight"}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(view(do(h, http.MethodGet, "/api/state", "")).AutoplayEnabled, ShouldBeFalse)
		})
	})

	Convey("Given a stopped coordinator", t, func() {
		srv, c := kiosk(fourEvents())
		c.Stop()
		h := srv.Handler()

		Convey("Then intents are unavailable", func() {
			w := do(h, http.MethodPost, "/api/next", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(failure(w).Code, ShouldEqual, "stopped")
			So(do(h, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given a running kiosk", t, func() {
		srv, c := kiosk(fourEvents())
		defer c.Stop()
		h := srv.Handler()

		Convey("Then /healthz reports every check ok", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var checks api.HealthResponse
			So(json.Unmarshal(w.Body.Bytes(), &checks), ShouldBeNil)
			So(checks["catalog"].Status, ShouldEqual, "ok")
			So(checks["coordinator"].Status, ShouldEqual, "ok")
		})

		Convey("Then /stats exposes coordinator counters", func() {
			do(h, http.MethodPost, "/api/next", "")
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
			So(stats["mode"], ShouldEqual, "interactive")
		})

		Convey("Then /metrics serves the kiosk registry", func() {
			do(h, http.MethodPost, "/api/next", "")
			w := do(h, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "kiosk_")
		})

		Convey("Then /openapi.json documents the intent routes", func() {
			w := do(h, http.MethodGet, "/openapi.json", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "/api/intents")
			So(w.Body.String(), ShouldContainSubstring, "/api/select/{index}")
		})

		Convey("Then unknown routes are 404 without a display bundle", func() {
			So(do(h, http.MethodGet, "/nowhere", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

// nextState reads SSE lines until a state event arrives.
func nextState(r *bufio.Reader) (service.View, error) {
	var v service.View
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return v, err
		}
		if data, ok := strings.CutPrefix(strings.TrimRight(line, "\n"), "data: "); ok {
			return v, json.Unmarshal([]byte(data), &v)
		}
	}
}

func TestStream(t *testing.T) {
	Convey("Given a client on the event stream", t, func() {
		srv, c := kiosk(fourEvents(), api.WithPingInterval(10*time.Millisecond))
		ts := httptest.NewServer(srv.Handler())
		defer ts.Close()
		defer c.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", http.NoBody)
		So(err, ShouldBeNil)
		resp, err := ts.Client().Do(req)
		So(err, ShouldBeNil)
		defer resp.Body.Close()
		So(resp.Header.Get("Content-Type"), ShouldEqual, "text/event-stream")
		body := bufio.NewReader(resp.Body)

		Convey("Then the current view arrives first", func() {
			v, err := nextState(body)
			So(err, ShouldBeNil)
			So(v.Phase, ShouldEqual, service.PhaseReady)
			So(v.ActiveIndex, ShouldEqual, 0)

			Convey("And every commit follows", func() {
				post, err := ts.Client().Post(ts.URL+"/api/next", "application/json", http.NoBody)
				So(err, ShouldBeNil)
				post.Body.Close()

				v, err := nextState(body)
				So(err, ShouldBeNil)
				So(v.ActiveIndex, ShouldEqual, 1)
				So(v.Mode, ShouldEqual, playback.ModeInteractive)
			})
		})

		Convey("Then the coordinator stopping ends the stream", func() {
			_, err := nextState(body)
			So(err, ShouldBeNil)
			c.Stop()
			_, err = io.ReadAll(body)
			So(err, ShouldBeNil)
		})
	})
}

func TestWebSocket(t *testing.T) {
	Convey("Given a WebSocket client", t, func() {
		srv, c := kiosk(fourEvents())
		ts := httptest.NewServer(srv.Handler())
		defer ts.Close()
		defer c.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
		So(err, ShouldBeNil)
		defer conn.CloseNow()

		read := func() []byte {
			_, data, err := conn.Read(ctx)
			So(err, ShouldBeNil)
			return data
		}
		send := func(msg string) {
			So(conn.Write(ctx, websocket.MessageText, []byte(msg)), ShouldBeNil)
		}

		var first service.View
		So(json.Unmarshal(read(), &first), ShouldBeNil)
		So(first.Phase, ShouldEqual, service.PhaseReady)

		Convey("When the client sends an intent", func() {
			send(`{"intent":"select","index":2}`)

			Convey("Then the committed view is pushed back", func() {
				var v service.View
				So(json.Unmarshal(read(), &v), ShouldBeNil)
				So(v.ActiveIndex, ShouldEqual, 2)
				So(v.Mode, ShouldEqual, playback.ModeInteractive)
			})
		})

		Convey("When the client sends a key", func() {
			send(`{"key":"ArrowRight"}`)
			var v service.View
			So(json.Unmarshal(read(), &v), ShouldBeNil)
			So(v.ActiveIndex, ShouldEqual, 1)
		})

		Convey("When the client sends something invalid", func() {
			send(`{"key":"F1"}`)
			var e api.ErrorResponse
			So(json.Unmarshal(read(), &e), ShouldBeNil)
			So(e.Code, ShouldEqual, "unknown_key")

			send(`{"intent":"select","index":99}`)
			So(json.Unmarshal(read(), &e), ShouldBeNil)
			So(e.Code, ShouldEqual, "index_out_of_range")

			send(`garbage`)
			So(json.Unmarshal(read(), &e), ShouldBeNil)
			So(e.Code, ShouldEqual, "bad_request")

			send(`{}`)
			So(json.Unmarshal(read(), &e), ShouldBeNil)
			So(e.Code, ShouldEqual, "bad_request")

			Convey("Then the connection stays usable", func() {
				send(`{"intent":"next"}`)
				var v service.View
				So(json.Unmarshal(read(), &v), ShouldBeNil)
				So(v.ActiveIndex, ShouldEqual, 1)
			})
		})

		Convey("When activity is sent", func() {
			send(`{"input":"pointer_move"}`)
			send(`{"intent":"next"}`)

			Convey("Then only the navigation produces a frame", func() {
				var v service.View
				So(json.Unmarshal(read(), &v), ShouldBeNil)
				So(v.ActiveIndex, ShouldEqual, 1)
				So(v.Mode, ShouldEqual, playback.ModeInteractive)
			})
		})
	})
}

func TestShutdown(t *testing.T) {
	Convey("Given a running server with an open stream", t, func() {
		srv, c := kiosk(fourEvents())
		defer c.Stop()
		ts := httptest.NewServer(srv.Handler())
		defer ts.Close()

		resp, err := ts.Client().Get(ts.URL + "/api/stream")
		So(err, ShouldBeNil)
		defer resp.Body.Close()
		_, err = nextState(bufio.NewReader(resp.Body))
		So(err, ShouldBeNil)

		Convey("When the server shuts down", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			Convey("Then open streams are released", func() {
				So(srv.Shutdown(ctx), ShouldBeNil)
				_, err := io.ReadAll(resp.Body)
				So(err, ShouldBeNil)
			})
		})
	})
}
