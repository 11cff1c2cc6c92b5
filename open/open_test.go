package open

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCommand(t *testing.T) {
	Convey("Command picks the handler of each system", t, func() {
		url := "http://127.0.0.1:7717/player/tab-1"

		cmd, err := Command("linux", url)
		So(err, ShouldBeNil)
		So(cmd.Args, ShouldResemble, []string{"xdg-open", url})

		cmd, err = Command("darwin", url)
		So(err, ShouldBeNil)
		So(cmd.Args, ShouldResemble, []string{"open", url})

		cmd, err = Command("windows", url)
		So(err, ShouldBeNil)
		So(cmd.Args[1:], ShouldResemble, []string{"url.dll,FileProtocolHandler", url})

		_, err = Command("plan9", url)
		So(err, ShouldEqual, ErrUnsupported)
	})
}
