package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating a manager with custom options", func() {
			registry := prometheus.NewRegistry()
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("screen"),
				WithMetricPrefix("lobby"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"kiosk": "hall-a"}),
				WithPrometheusRegistry(registry),
			)
			m.RecordIntent("next", "ok")

			Convey("Then names and labels follow the options", func() {
				So(m.RefreshInterval(), ShouldEqual, 5*time.Second)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_screen_lobby_intents_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "intent")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When zero values are passed", func() {
			m := NewManager(
				WithNamespace(""),
				WithRefreshInterval(0),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "kiosk")
				So(m.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When playback events are recorded", func() {
			m.RecordIntent("select", "ok")
			m.RecordIntent("select", "ok")
			m.RecordIntent("select", "rejected")
			m.RecordAutoplayAdvance()
			m.RecordIdleElapsed()
			m.RecordUserActivity("pointer_move")
			m.UpdatePlayback(true, 3, true, false)
			m.UpdateAutoplayPeriod(7 * time.Second)

			Convey("Then counters and gauges reflect them", func() {
				So(testutil.ToFloat64(m.intents.WithLabelValues("select", "ok")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.intents.WithLabelValues("select", "rejected")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.autoplayAdvances), ShouldEqual, 1)
				So(testutil.ToFloat64(m.idleElapsed), ShouldEqual, 1)
				So(testutil.ToFloat64(m.mode), ShouldEqual, 1)
				So(testutil.ToFloat64(m.activeIndex), ShouldEqual, 3)
				So(testutil.ToFloat64(m.detailOpen), ShouldEqual, 1)
				So(testutil.ToFloat64(m.autoplayEnabled), ShouldEqual, 0)
				So(testutil.ToFloat64(m.autoplayPeriod), ShouldEqual, 7000)
			})
		})

		Convey("When recording is disabled", func() {
			off := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
			off.RecordAutoplayAdvance()
			off.RecordCatalogLoad("ok", 5, 12)

			Convey("Then nothing moves", func() {
				So(testutil.ToFloat64(off.autoplayAdvances), ShouldEqual, 0)
				So(testutil.ToFloat64(off.catalogEvents), ShouldEqual, 0)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Then package helpers never panic", func() {
			So(func() {
				RecordIntent("prev", "ok")
				RecordAutoplayAdvance()
				RecordStaleTick()
				RecordIdleElapsed()
				RecordUserActivity("wheel")
				UpdatePlayback(false, 0, false, true)
				UpdateAutoplayPeriod(time.Second)
				RecordTransitionLatency(0.3)
				RecordCatalogLoad("ok", 3, 10)
				UpdateInbox(1, 256)
				RecordInboxDrop("full")
				AddSubscribers("sse", 1)
				AddSubscribers("sse", -1)
				RecordFrameDropped()
				RecordHTTPRequest("state", "GET", "200", 1)
				RecordError("catalog", "fetch")
			}, ShouldNotPanic)
		})

		Convey("Then the registry exposes kiosk metrics", func() {
			RecordAutoplayAdvance()
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(strings.Join(names, ","), ShouldContainSubstring, "kiosk_playback_autoplay_advances_total")
		})
	})
}
