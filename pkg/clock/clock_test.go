package clock_test

import (
	"testing"
	"time"

	"github.com/okian/kiosk/pkg/clock"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFakeClock(t *testing.T) {
	Convey("Given a fake clock", t, func() {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		fc := clock.NewFake(start)

		Convey("When timers are scheduled out of order", func() {
			var fired []string
			fc.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })
			fc.AfterFunc(1*time.Second, func() { fired = append(fired, "a") })
			fc.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })

			fc.Advance(2 * time.Second)

			Convey("Then only due timers fire, in deadline order", func() {
				So(fired, ShouldResemble, []string{"a", "b"})
				So(fc.Pending(), ShouldEqual, 1)
				So(fc.Now(), ShouldEqual, start.Add(2*time.Second))
			})
		})

		Convey("When a stopped timer reaches its deadline", func() {
			called := false
			tm := fc.AfterFunc(time.Second, func() { called = true })
			So(tm.Stop(), ShouldBeTrue)
			fc.Advance(5 * time.Second)

			Convey("Then it does not fire and a second stop reports false", func() {
				So(called, ShouldBeFalse)
				So(tm.Stop(), ShouldBeFalse)
			})
		})

		Convey("When a callback reschedules itself", func() {
			var at []time.Duration
			var rearm func()
			rearm = func() {
				at = append(at, fc.Now().Sub(start))
				fc.AfterFunc(time.Second, rearm)
			}
			fc.AfterFunc(time.Second, rearm)
			fc.Advance(3 * time.Second)

			Convey("Then every deadline inside the window fires", func() {
				So(at, ShouldResemble, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second})
			})
		})
	})
}

func TestRealClock(t *testing.T) {
	Convey("Given the real clock", t, func() {
		var c clock.Clock = clock.Real{}
		done := make(chan struct{})
		c.AfterFunc(time.Millisecond, func() { close(done) })

		Convey("Then AfterFunc fires", func() {
			select {
			case <-done:
			case <-time.After(time.Second):
				So("timeout", ShouldBeEmpty)
			}
			So(c.Now().IsZero(), ShouldBeFalse)
		})
	})
}
