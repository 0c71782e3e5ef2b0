package filesystem

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestApi(t *testing.T) {
	Convey("Filesystem API", t, func() {
		Convey("Should default to OsFs", func() {
			SetOsFs()
			So(API().Name(), ShouldEqual, "OsFs")
		})

		Convey("Should switch to MemMapFs", func() {
			SetMemMapFs()
			So(API().Name(), ShouldEqual, "MemMapFS")
		})
	})
}

func TestNames(t *testing.T) {
	Convey("Given a directory with a few entries", t, func() {
		SetMemMapFs()
		So(API().MkdirAll("/peers", 0o700), ShouldBeNil)
		for _, name := range []string{"server", "client-2", "client-1"} {
			So(API().WriteFile("/peers/"+name, nil, 0o600), ShouldBeNil)
		}

		Convey("Names lists them in lexical order", func() {
			names, err := Names("/peers")
			So(err, ShouldBeNil)
			So(names, ShouldResemble, []string{"client-1", "client-2", "server"})
		})

		Convey("RemoveIfExists tolerates missing files", func() {
			So(RemoveIfExists("/peers/client-1"), ShouldBeNil)
			So(RemoveIfExists("/peers/client-1"), ShouldBeNil)
			names, _ := Names("/peers")
			So(names, ShouldNotContain, "client-1")
		})
	})
}
