//go:build !windows

package peer

import (
	"net"
	"time"

	"github.com/mpfront/mpfront/filesystem"
)

// listen binds a unix socket at path, replacing a stale socket file left by a
// dead instance. Closing the listener removes the file.
func listen(path string) (net.Listener, error) {
	if err := filesystem.RemoveIfExists(path); err != nil {
		return nil, err
	}
	return net.Listen("unix", path)
}

func dial(path string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", path, timeout)
}
