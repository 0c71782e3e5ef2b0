//go:build windows

package peer

import (
	"net"
	"path/filepath"
	"time"

	"github.com/Microsoft/go-winio"
	"github.com/mpfront/mpfront/filesystem"
)

// pipeName maps an identity path inside the peer directory onto a named pipe.
func pipeName(path string) string {
	return `\\.\pipe\` + filepath.Base(filepath.Dir(path)) + "-" + filepath.Base(path)
}

// markedListener keeps a zero-byte marker file next to the lock file so that
// identities can be found by scanning the directory.
type markedListener struct {
	net.Listener
	marker string
}

func (l *markedListener) Close() error {
	err := l.Listener.Close()
	_ = filesystem.RemoveIfExists(l.marker)
	return err
}

func listen(path string) (net.Listener, error) {
	ln, err := winio.ListenPipe(pipeName(path), nil)
	if err != nil {
		return nil, err
	}

	f, err := filesystem.API().Create(path)
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	_ = f.Close()

	return &markedListener{Listener: ln, marker: path}, nil
}

func dial(path string, timeout time.Duration) (net.Conn, error) {
	return winio.DialPipe(pipeName(path), &timeout)
}
