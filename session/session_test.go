package session

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/mpfront/mpfront/backend"
	"github.com/mpfront/mpfront/exitcode"
	. "github.com/smartystreets/goconvey/convey"
)

type played struct {
	media string
	event backend.Event
}

// fake runs script through /bin/sh with the media path as $1.
func fake(t *testing.T, script string) (Options, chan played) {
	t.Helper()

	mplayer, err := backend.Lookup("mplayer")
	if err != nil {
		t.Fatal(err)
	}
	b := *mplayer
	b.BaseArgs = nil

	events := make(chan played, 64)
	return Options{
		Backend:       &b,
		Path:          "/bin/sh",
		Args:          []string{"-c", script, "sh"},
		FinishTimeout: 2 * time.Second,
		OnEvent: func(media string, e backend.Event) {
			events <- played{media: media, event: e}
		},
	}, events
}

// next waits for the next property event.
func next(events <-chan played) played {
	timeout := time.After(5 * time.Second)
	for {
		select {
		case p := <-events:
			if _, ok := p.event.(backend.Property); ok {
				return p
			}
		case <-timeout:
			return played{}
		}
	}
}

func run(ctx context.Context, s *Session) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	return errc
}

func result(errc <-chan error) error {
	select {
	case err := <-errc:
		return err
	case <-time.After(10 * time.Second):
		return errors.New("session did not return")
	}
}

func TestParseCommand(t *testing.T) {
	Convey("ParseCommand", t, func() {
		Convey("Keeps the argument verbatim", func() {
			cmd, err := ParseCommand("open /tmp/my video.mp4")
			So(err, ShouldBeNil)
			So(cmd, ShouldResemble, Command{Name: Open, Arg: "/tmp/my video.mp4"})
			So(cmd.String(), ShouldEqual, "open /tmp/my video.mp4")
		})

		Convey("Accepts bare commands", func() {
			for _, name := range []string{Activate, Pause, Stop, Quit} {
				cmd, err := ParseCommand(name)
				So(err, ShouldBeNil)
				So(cmd.Name, ShouldEqual, name)
			}
		})

		Convey("Rejects malformed commands", func() {
			_, err := ParseCommand("open")
			So(err, ShouldNotBeNil)

			_, err = ParseCommand("pause now")
			So(err, ShouldNotBeNil)

			_, err = ParseCommand("rewind")
			So(errors.Is(err, ErrUnknownCommand), ShouldBeTrue)
		})
	})
}

func TestSession(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}

	Convey("Given a session with a fake backend", t, func() {
		ctx := context.Background()

		Convey("The queue plays in order and Run returns when idle", func() {
			opts, events := fake(t, `echo "ID_FILENAME=$1"`)
			s, err := New(opts, "a.mkv", "b.mkv")
			So(err, ShouldBeNil)

			So(s.Run(ctx), ShouldBeNil)
			So(next(events), ShouldResemble, played{"a.mkv", backend.Property{Key: "FILENAME", Value: "a.mkv"}})
			So(next(events), ShouldResemble, played{"b.mkv", backend.Property{Key: "FILENAME", Value: "b.mkv"}})
		})

		Convey("A failed last playback is returned", func() {
			opts, _ := fake(t, `exit 251`)
			s, err := New(opts, "a.mkv")
			So(err, ShouldBeNil)

			code, ok := exitcode.As(s.Run(ctx))
			So(ok, ShouldBeTrue)
			So(code, ShouldEqual, exitcode.HTTP404)
		})

		Convey("Commands reach the running backend", func() {
			opts, events := fake(t, `
				case "$1" in
				short) echo "ID_FILENAME=$1" ;;
				*) while read c; do echo "ANS_GOT=$c"; [ "$c" = quit ] && exit 0; done ;;
				esac`)
			opts.StayIdle = true
			activated := make(chan struct{}, 1)
			opts.OnActivate = func() { activated <- struct{}{} }

			s, err := New(opts, "long.mkv")
			So(err, ShouldBeNil)
			errc := run(ctx, s)

			s.Submit("pause")
			So(next(events).event, ShouldResemble, backend.Property{Key: "GOT", Value: "pause", Answer: true})

			s.Submit("raw seek 10")
			So(next(events).event, ShouldResemble, backend.Property{Key: "GOT", Value: "seek 10", Answer: true})

			s.Submit("activate")
			select {
			case <-activated:
			case <-time.After(5 * time.Second):
				So("activate", ShouldEqual, "handled")
			}

			s.Submit("open short")
			So(next(events).event, ShouldResemble, backend.Property{Key: "GOT", Value: "quit", Answer: true})
			So(next(events), ShouldResemble, played{"short", backend.Property{Key: "FILENAME", Value: "short"}})

			s.Submit("quit")
			So(result(errc), ShouldBeNil)

			s.Submit("stop")
		})

		Convey("Cancelling the context stops playback", func() {
			opts, _ := fake(t, `while read c; do [ "$c" = quit ] && exit 0; done`)
			s, err := New(opts, "a.mkv")
			So(err, ShouldBeNil)

			ctx, cancel := context.WithCancel(ctx)
			errc := run(ctx, s)
			time.Sleep(100 * time.Millisecond)
			cancel()
			So(result(errc), ShouldBeNil)
		})

		Convey("Without media an idle session returns at once", func() {
			opts, _ := fake(t, `true`)
			s, err := New(opts)
			So(err, ShouldBeNil)
			So(s.Run(ctx), ShouldBeNil)
		})
	})

	Convey("New requires a backend", t, func() {
		_, err := New(Options{})
		So(err, ShouldNotBeNil)
	})
}
