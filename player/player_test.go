package player

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mpfront/mpfront/backend"
	"github.com/mpfront/mpfront/exitcode"
	. "github.com/smartystreets/goconvey/convey"
)

func script(t *testing.T, body string, tweak ...func(*Options)) *Process {
	t.Helper()

	b, err := backend.Lookup("mplayer")
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Backend: b, Path: "/bin/sh", Args: []string{"-c", body}}
	for _, f := range tweak {
		f(&opts)
	}

	p, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// ipcServer answers JSON commands the way mpv's input server does and
// reports every command it received.
func ipcServer(t *testing.T) (string, <-chan []string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mpv.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	received := make(chan []string, 16)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()

				line, err := bufio.NewReader(conn).ReadBytes('\n')
				if err != nil {
					return
				}
				var request struct {
					Command []string `json:"command"`
				}
				if json.Unmarshal(line, &request) != nil {
					return
				}
				received <- request.Command

				reply := `{"error":"success"}`
				if len(request.Command) > 0 && request.Command[0] == "bogus" {
					reply = `{"error":"invalid parameter"}`
				}
				_, _ = conn.Write([]byte(`{"event":"pause"}` + "\n" + reply + "\n"))
			}()
		}
	}()

	return path, received
}

func withIPC(path string) func(*Options) {
	return func(o *Options) {
		b := *o.Backend
		b.IPCFlag = "--input-ipc-server="
		o.Backend = &b
		o.IPCPath = path
	}
}

func wait(p *Process) bool {
	select {
	case <-p.Done():
		return true
	case <-time.After(10 * time.Second):
		return false
	}
}

func collect(p *Process) []backend.Event {
	var events []backend.Event
	for {
		select {
		case e := <-p.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func last(events []backend.Event) backend.Event {
	if len(events) == 0 {
		return nil
	}
	return events[len(events)-1]
}

func TestProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}

	Convey("Given a fake backend", t, func() {
		ctx := context.Background()

		Convey("Output lines reach the parser in order", func() {
			p := script(t, `printf 'ID_LENGTH=1\nStarting playback...\r\nA:   1.5 V: 1.5\rID_EXIT=EOF\n'`)
			So(p.Start(ctx), ShouldBeNil)
			So(wait(p), ShouldBeTrue)

			events := collect(p)
			So(events, ShouldHaveLength, 6)
			So(events[0], ShouldHaveSameTypeAs, backend.Started{})
			So(events[1:], ShouldResemble, []backend.Event{
				backend.Property{Key: "LENGTH", Value: "1"},
				backend.Playing{},
				backend.Status{Position: 1.5},
				backend.Property{Key: "EXIT", Value: "EOF"},
				backend.Finished{},
			})
			So(p.Result().Failed(), ShouldBeFalse)
		})

		Convey("An exit status inside the range is kept", func() {
			p := script(t, `exit 251`)
			So(p.Start(ctx), ShouldBeNil)
			So(wait(p), ShouldBeTrue)

			So(p.Result().Code, ShouldEqual, exitcode.HTTP404)
			So(last(collect(p)), ShouldResemble, backend.Failed{
				Code:    exitcode.HTTP404,
				Message: exitcode.Describe(exitcode.HTTP404),
			})
		})

		Convey("A failure seen in the output explains a plain non-zero exit", func() {
			p := script(t, `echo "File not found: 'x.mkv'" >&2; echo "Error while decoding frame"; exit 1`)
			So(p.Start(ctx), ShouldBeNil)
			So(wait(p), ShouldBeTrue)

			result := p.Result()
			So(result.Code, ShouldEqual, exitcode.FileOpen)
			So(result.Message, ShouldContainSubstring, "x.mkv")
			So(result.Message, ShouldNotContainSubstring, "decoding")
			code, ok := exitcode.As(result.Err)
			So(ok, ShouldBeTrue)
			So(code, ShouldEqual, exitcode.FileOpen)
		})

		Convey("An unexplained non-zero exit is a crash", func() {
			p := script(t, `exit 3`)
			So(p.Start(ctx), ShouldBeNil)
			So(wait(p), ShouldBeTrue)
			So(p.Result().Code, ShouldEqual, exitcode.Crashed)
		})

		Convey("A missing binary fails to start", func() {
			p := script(t, "", func(o *Options) { o.Path = "/nonexistent/mplayer" })
			err := p.Start(ctx)
			So(err, ShouldNotBeNil)

			code, ok := exitcode.As(err)
			So(ok, ShouldBeTrue)
			So(code, ShouldEqual, exitcode.FailedToStart)
			So(p.Running(), ShouldBeFalse)
			So(last(collect(p)), ShouldHaveSameTypeAs, backend.Failed{})
		})

		Convey("Stop asks the backend to quit", func() {
			p := script(t, `while read cmd; do [ "$cmd" = quit ] && exit 0; done`)
			So(p.Start(ctx), ShouldBeNil)
			So(p.Running(), ShouldBeTrue)
			So(p.Start(ctx), ShouldEqual, ErrRunning)

			So(p.Stop(5*time.Second), ShouldBeNil)
			So(p.Running(), ShouldBeFalse)
			So(p.Result().Failed(), ShouldBeFalse)
			So(last(collect(p)), ShouldResemble, backend.Finished{})
		})

		Convey("Stop kills a backend that ignores quit", func() {
			p := script(t, `trap '' TERM; while true; do sleep 1; done`)
			So(p.Start(ctx), ShouldBeNil)

			start := time.Now()
			So(p.Stop(200*time.Millisecond), ShouldBeNil)
			So(time.Since(start), ShouldBeLessThan, 5*time.Second)
			So(p.Result().Failed(), ShouldBeFalse)
		})

		Convey("A helper holding the output open does not delay the exit", func() {
			p := script(t, `sleep 3 & echo ID_X=1; exit 0`, func(o *Options) {
				o.DrainTimeout = 200 * time.Millisecond
			})

			start := time.Now()
			So(p.Start(ctx), ShouldBeNil)
			So(wait(p), ShouldBeTrue)
			So(time.Since(start), ShouldBeLessThan, 2*time.Second)
			So(p.Running(), ShouldBeFalse)
			So(p.Result().Failed(), ShouldBeFalse)
			So(collect(p), ShouldContain, backend.Property{Key: "X", Value: "1"})
		})

		Convey("The IPC endpoint is passed to the backend", func() {
			path := filepath.Join(t.TempDir(), "mpv.sock")
			p := script(t, `echo "ID_ARG=$0"`, withIPC(path))
			So(p.Start(ctx), ShouldBeNil)
			So(wait(p), ShouldBeTrue)
			So(collect(p)[1], ShouldResemble, backend.Property{Key: "ARG", Value: "--input-ipc-server=" + path})
		})

		Convey("Commands go to the IPC endpoint of backends that have one", func() {
			path, received := ipcServer(t)
			p := script(t, `sleep 5`, withIPC(path))
			So(p.Start(ctx), ShouldBeNil)

			So(p.Write("cycle pause"), ShouldBeNil)
			So(<-received, ShouldResemble, []string{"cycle", "pause"})

			code, ok := exitcode.As(p.Write("bogus"))
			So(ok, ShouldBeTrue)
			So(code, ShouldEqual, exitcode.WriteError)

			So(p.Stop(200*time.Millisecond), ShouldBeNil)
			So(p.Running(), ShouldBeFalse)
		})

		Convey("A context deadline is a timeout", func() {
			ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
			defer cancel()

			p := script(t, `sleep 5`)
			So(p.Start(ctx), ShouldBeNil)
			So(wait(p), ShouldBeTrue)
			So(p.Result().Code, ShouldEqual, exitcode.Timedout)
		})

		Convey("Writing to a finished process is a write error", func() {
			p := script(t, `true`)
			So(p.Start(ctx), ShouldBeNil)
			So(wait(p), ShouldBeTrue)

			code, ok := exitcode.As(p.Write("pause"))
			So(ok, ShouldBeTrue)
			So(code, ShouldEqual, exitcode.WriteError)
		})

		Convey("The unterminated remainder", func() {
			body := `printf 'ID_LENGTH=3'`

			Convey("is discarded by default", func() {
				p := script(t, body)
				So(p.Start(ctx), ShouldBeNil)
				So(wait(p), ShouldBeTrue)
				So(collect(p), ShouldHaveLength, 2)
			})

			Convey("is parsed when flushing on exit", func() {
				p := script(t, body, func(o *Options) { o.FlushOnExit = true })
				So(p.Start(ctx), ShouldBeNil)
				So(wait(p), ShouldBeTrue)
				So(collect(p)[1], ShouldResemble, backend.Property{Key: "LENGTH", Value: "3"})
			})
		})

		Convey("A full event buffer drops the oldest events", func() {
			p := script(t, `printf 'ID_A=1\nID_B=2\nID_C=3\n'`, func(o *Options) { o.EventBuffer = 2 })
			So(p.Start(ctx), ShouldBeNil)
			So(wait(p), ShouldBeTrue)
			So(collect(p), ShouldResemble, []backend.Event{
				backend.Property{Key: "C", Value: "3"},
				backend.Finished{},
			})
		})

		Convey("A process can be started again after it exited", func() {
			p := script(t, `echo ID_RUN=1`)
			for i := 0; i < 2; i++ {
				So(p.Start(ctx), ShouldBeNil)
				So(wait(p), ShouldBeTrue)
			}
			So(collect(p), ShouldHaveLength, 6)
		})
	})

	Convey("New without a backend fails", t, func() {
		_, err := New(Options{})
		So(errors.Is(err, backend.ErrUnknownBackend), ShouldBeTrue)
	})
}
