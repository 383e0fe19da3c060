package visual

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTable(t *testing.T) {
	Convey("Given the builtin table with a custom fallback", t, func() {
		entries := Builtin()
		entries["Curling"] = Visual{Icon: "stone"}
		tbl := NewTable(entries, Visual{Color: "#000000"})

		Convey("Then known sports resolve case-insensitively", func() {
			So(tbl.Resolve(" FOOTBALL "), ShouldResemble, Visual{Color: "#2e7d32", Icon: "soccer-ball"})
		})

		Convey("Then unknown sports degrade to the fallback", func() {
			So(tbl.Resolve("quidditch"), ShouldResemble, Visual{Color: "#000000", Icon: Default.Icon})
			So(tbl.Resolve(""), ShouldResemble, Visual{Color: "#000000", Icon: Default.Icon})
		})

		Convey("Then partial entries borrow missing fields from the fallback", func() {
			So(tbl.Resolve("curling"), ShouldResemble, Visual{Color: "#000000", Icon: "stone"})
		})

		Convey("Then Builtin hands out a copy", func() {
			b := Builtin()
			delete(b, "football")
			So(Builtin(), ShouldContainKey, "football")
		})
	})
}
