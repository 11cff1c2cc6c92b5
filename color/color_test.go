package color

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestForStatus(t *testing.T) {
	Convey("Statuses map to distinct colors", t, func() {
		So(ForStatus("synced"), ShouldEqual, Green)
		So(ForStatus("error"), ShouldEqual, Red)
		So(ForStatus("no_log"), ShouldEqual, Yellow)
		So(ForStatus("whatever"), ShouldEqual, Gray)
	})
}
