package peer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const (
	testTimeout = 500 * time.Millisecond
	testRetry   = 50 * time.Millisecond
)

func tempDir(t *testing.T) string {
	t.Helper()
	// keep socket paths short
	dir, err := os.MkdirTemp("", "mpf")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func newPeer(t *testing.T, dir, id string, inbox chan<- string) *Peer {
	t.Helper()
	p, err := New(Options{
		AppID:      "mpf",
		Session:    "t",
		Dir:        dir,
		ID:         id,
		Timeout:    testTimeout,
		RetryDelay: testRetry,
		OnMessage: func(msg string) {
			if inbox != nil {
				inbox <- msg
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func receive(inbox <-chan string) string {
	select {
	case msg := <-inbox:
		return msg
	case <-time.After(5 * time.Second):
		return "<timeout>"
	}
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestElection(t *testing.T) {
	Convey("Given peers sharing a directory", t, func() {
		dir := tempDir(t)

		Convey("No role is known before the election", func() {
			p := newPeer(t, dir, "1", nil)
			So(p.Role(), ShouldEqual, Undecided)
			So(p.Dir(), ShouldEqual, filepath.Join(dir, "mpf-t"))
		})

		Convey("Five concurrent peers elect exactly one server", func() {
			peers := make([]*Peer, 5)
			for i := range peers {
				peers[i] = newPeer(t, dir, fmt.Sprint(i+1), nil)
			}

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				servers int
				errs    []error
			)
			for _, p := range peers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					server, err := p.IsServer()
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						errs = append(errs, err)
					}
					if server {
						servers++
					}
				}()
			}
			wg.Wait()

			So(errs, ShouldBeEmpty)
			So(servers, ShouldEqual, 1)
		})

		Convey("The election result is stable", func() {
			a := newPeer(t, dir, "a", nil)
			b := newPeer(t, dir, "b", nil)

			server, err := a.IsServer()
			So(err, ShouldBeNil)
			So(server, ShouldBeTrue)

			client, err := b.IsClient()
			So(err, ShouldBeNil)
			So(client, ShouldBeTrue)

			server, _ = a.IsServer()
			So(server, ShouldBeTrue)
			client, _ = b.IsClient()
			So(client, ShouldBeTrue)
			So(a.Role(), ShouldEqual, Server)
			So(b.Role(), ShouldEqual, Client)
		})

		Convey("A closed peer cannot be elected", func() {
			p := newPeer(t, dir, "1", nil)
			So(p.Close(), ShouldBeNil)
			So(p.Close(), ShouldBeNil)

			_, err := p.IsServer()
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
		})
	})
}

func TestMessaging(t *testing.T) {
	Convey("Given a server and a client", t, func() {
		dir := tempDir(t)
		serverInbox := make(chan string, 8)
		clientInbox := make(chan string, 8)

		server := newPeer(t, dir, "1", serverInbox)
		client := newPeer(t, dir, "2", clientInbox)

		ok, err := server.IsServer()
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)
		ok, err = client.IsClient()
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)

		Convey("A message reaches the server verbatim", func() {
			So(client.SendMessage("open /tmp/video.mp4", testTimeout), ShouldBeNil)
			So(receive(serverInbox), ShouldEqual, "open /tmp/video.mp4")
		})

		Convey("Unicode and empty payloads survive", func() {
			So(client.SendMessage("open /tmp/vidéo 動画.mkv", testTimeout), ShouldBeNil)
			So(receive(serverInbox), ShouldEqual, "open /tmp/vidéo 動画.mkv")

			So(client.SendMessage("", testTimeout), ShouldBeNil)
			So(receive(serverInbox), ShouldEqual, "")
		})

		Convey("The server does not send to itself", func() {
			So(server.SendMessage("activate", testTimeout), ShouldEqual, ErrNotClient)
		})

		Convey("Broadcast reaches every other peer", func() {
			third := newPeer(t, dir, "3", nil)
			_, err := third.IsClient()
			So(err, ShouldBeNil)

			n, err := third.Broadcast("activate", testTimeout)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
			So(receive(serverInbox), ShouldEqual, "activate")
			So(receive(clientInbox), ShouldEqual, "activate")
		})
	})
}

func TestHandover(t *testing.T) {
	Convey("Given a server and two clients", t, func() {
		dir := tempDir(t)
		inbox := make(chan string, 8)

		server := newPeer(t, dir, "0", nil)
		first := newPeer(t, dir, "1", inbox)
		second := newPeer(t, dir, "2", inbox)

		_, err := server.IsServer()
		So(err, ShouldBeNil)
		_, err = first.IsClient()
		So(err, ShouldBeNil)
		_, err = second.IsClient()
		So(err, ShouldBeNil)

		Convey("Closing the server promotes exactly one client", func() {
			So(server.Close(), ShouldBeNil)

			So(eventually(func() bool {
				return first.Role() == Server || second.Role() == Server
			}), ShouldBeTrue)
			So(first.Role(), ShouldEqual, Server)
			So(second.Role(), ShouldEqual, Client)

			Convey("and the remaining client reaches the new server", func() {
				So(second.SendMessage("activate", testTimeout), ShouldBeNil)
				So(receive(inbox), ShouldEqual, "activate")
			})
		})

		Convey("Stale client identities are removed", func() {
			stale := filepath.Join(server.Dir(), "client-00")
			So(os.WriteFile(stale, nil, 0o600), ShouldBeNil)

			So(server.Close(), ShouldBeNil)
			_, err := os.Stat(stale)
			So(os.IsNotExist(err), ShouldBeTrue)
			So(eventually(func() bool { return first.Role() == Server }), ShouldBeTrue)
		})
	})
}

func TestUnreachableServer(t *testing.T) {
	Convey("Given no server", t, func() {
		dir := tempDir(t)
		p := newPeer(t, dir, "1", nil)
		So(os.MkdirAll(p.Dir(), 0o700), ShouldBeNil)

		Convey("Sending fails within two attempts", func() {
			start := time.Now()
			err := p.SendMessage("activate", testTimeout)
			elapsed := time.Since(start)

			So(errors.Is(err, ErrNoServer), ShouldBeTrue)
			So(errors.Is(err, ErrUnreachable), ShouldBeTrue)
			So(elapsed, ShouldBeGreaterThanOrEqualTo, testRetry)
			So(elapsed, ShouldBeLessThan, 2*testTimeout+testRetry+200*time.Millisecond)
		})

		Convey("Sending fails while the lock is held without a listener", func() {
			lock, err := acquireLock(filepath.Join(p.Dir(), lockName))
			So(err, ShouldBeNil)
			defer lock.release()

			client, err := p.IsClient()
			So(err, ShouldBeNil)
			So(client, ShouldBeTrue)

			start := time.Now()
			err = p.SendMessage("activate", testTimeout)
			So(errors.Is(err, ErrNoServer), ShouldBeTrue)
			So(time.Since(start), ShouldBeLessThan, 2*testTimeout+testRetry+200*time.Millisecond)
		})
	})
}
