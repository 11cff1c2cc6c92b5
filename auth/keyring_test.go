package auth

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/zalando/go-keyring"
)

func TestSecret(t *testing.T) {
	keyring.MockInit()

	Convey("Given an empty keyring", t, func() {
		_ = keyring.Delete("vodsync", user)

		Convey("No secret is found", func() {
			_, err := Secret()
			So(err, ShouldEqual, ErrNoSecret)
			So(DeleteSecret(), ShouldEqual, ErrNoSecret)
		})

		Convey("A stored secret is returned", func() {
			So(SetSecret("s3cret"), ShouldBeNil)
			s, err := Secret()
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "s3cret")
			So(DeleteSecret(), ShouldBeNil)
		})

		Convey("The environment wins", func() {
			t.Setenv(EnvAdminSecret, "from-env")
			s, err := Secret()
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "from-env")
		})
	})
}
