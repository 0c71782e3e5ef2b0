//go:build !windows

package player

import (
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/mpfront/mpfront/filesystem"
)

func ipcEndpoint(name string) string {
	return filepath.Join(os.TempDir(), name+".sock")
}

func dialIPC(path string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", path, timeout)
}

// removeIPC deletes a socket left behind by a backend that did not clean up.
func removeIPC(path string) {
	_ = filesystem.RemoveIfExists(path)
}
