package info

import (
	"context"
	"runtime"
	"testing"

	"github.com/mpfront/mpfront/backend"
	"github.com/mpfront/mpfront/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

const fakeListing = `
printf 'ID_VIDEO_OUTPUTS\n\txv\tX11/Xv\n\tgl\tOpenGL\n'
printf 'ID_AUDIO_OUTPUTS\n\talsa\tALSA audio output\n'
printf 'ID_DEMUXERS\n  mkv        22 (stable)  Matroska demuxer\n'
printf 'ID_VIDEO_CODECS\nffh264    ffmpeg  working   FFmpeg H.264\n'
printf 'ID_AUDIO_CODECS\nffaac     ffmpeg  working   FFmpeg AAC\n'
printf 'ID_EXIT=NONE\n'
`

func source(t *testing.T, script string) Source {
	t.Helper()
	b, err := backend.Lookup("mplayer")
	if err != nil {
		t.Fatal(err)
	}
	return Source{Backend: b, Path: "/bin/sh", Args: []string{"-c", script}}
}

func TestReport(t *testing.T) {
	Convey("Given a report", t, func() {
		r := &Report{}
		for _, e := range []backend.Event{
			backend.Driver{Section: backend.VideoOutputs, Name: "xv"},
			backend.Driver{Section: backend.AudioOutputs, Name: "pulse"},
			backend.Demuxer{Name: "mkv", ID: 22},
			backend.Codec{Section: backend.VideoCodecs, Name: "ffh264"},
			backend.Codec{Section: backend.AudioCodecs, Name: "ffaac"},
			backend.Property{Key: "EXIT", Value: "NONE"},
			backend.Playing{},
		} {
			r.Add(e)
		}

		Convey("Rows land in their sections", func() {
			So(r.Len(), ShouldEqual, 5)
			So(r.AudioOutputs[0].Name, ShouldEqual, "pulse")
			So(r.AudioCodecs[0].Name, ShouldEqual, "ffaac")
			So(r.PropertyKeys(), ShouldResemble, []string{"EXIT"})
		})

		Convey("Filter keeps fuzzy matches only", func() {
			f := r.Filter("264")
			So(f.Len(), ShouldEqual, 1)
			So(f.VideoCodecs[0].Name, ShouldEqual, "ffh264")

			So(r.Filter("FFAAC").Len(), ShouldEqual, 1)
			So(r.Filter("").Len(), ShouldEqual, 5)
			So(r.Filter("zzz").Len(), ShouldEqual, 0)
		})
	})
}

func TestCollect(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}

	Convey("Given a fake backend listing", t, func() {
		ctx := context.Background()

		Convey("Collect parses every section", func() {
			r, err := Collect(ctx, source(t, fakeListing))
			So(err, ShouldBeNil)
			So(r.Backend, ShouldEqual, "mplayer")
			So(r.VideoOutputs, ShouldHaveLength, 2)
			So(r.AudioOutputs, ShouldHaveLength, 1)
			So(r.Demuxers, ShouldResemble, []backend.Demuxer{
				{Name: "mkv", ID: 22, Info: "(stable)", Description: "Matroska demuxer"},
			})
			So(r.VideoCodecs[0].Status, ShouldEqual, "working")
			So(r.AudioCodecs, ShouldHaveLength, 1)
			So(r.Properties["EXIT"], ShouldEqual, "NONE")
		})

		Convey("A failing exit with output is tolerated", func() {
			r, err := Collect(ctx, source(t, fakeListing+"exit 1\n"))
			So(err, ShouldBeNil)
			So(r.Len(), ShouldEqual, 6)
		})

		Convey("No output is an error", func() {
			_, err := Collect(ctx, source(t, "exit 1"))
			So(err, ShouldNotBeNil)

			_, err = Collect(ctx, source(t, "true"))
			So(err, ShouldNotBeNil)
		})

		Convey("Get caches by backend and binary", func() {
			filesystem.SetMemMapFs()
			defer filesystem.SetOsFs()

			first, err := Get(ctx, source(t, fakeListing), false)
			So(err, ShouldBeNil)
			So(first.Len(), ShouldEqual, 6)

			cached, err := Get(ctx, source(t, `printf 'ID_DEMUXERS\n  avi 3 (stable) AVI\n'`), false)
			So(err, ShouldBeNil)
			So(cached.Len(), ShouldEqual, 6)

			fresh, err := Get(ctx, source(t, `printf 'ID_DEMUXERS\n  avi 3 (stable) AVI\n'`), true)
			So(err, ShouldBeNil)
			So(fresh.Len(), ShouldEqual, 1)
		})
	})
}
