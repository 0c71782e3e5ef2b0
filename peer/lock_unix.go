//go:build !windows

package peer

import (
	"errors"
	"os"

	"github.com/mpfront/mpfront/filesystem"
	"golang.org/x/sys/unix"
)

var errLocked = errors.New("lock held by another instance")

type fileLock struct {
	f *os.File
}

// acquireLock takes a non-blocking exclusive flock on path. The lock belongs
// to the open file, so it is released when the process dies.
func acquireLock(path string) (*fileLock, error) {
	f, err := openLockFile(path)
	if err != nil {
		return nil, err
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, errLocked
		}
		return nil, err
	}

	return &fileLock{f: f}, nil
}

func (l *fileLock) release() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		_ = l.f.Close()
		return err
	}
	return l.f.Close()
}

func openLockFile(path string) (*os.File, error) {
	file, err := filesystem.API().OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	f, ok := file.(*os.File)
	if !ok {
		_ = file.Close()
		return nil, errors.New("lock file requires the OS filesystem")
	}
	return f, nil
}
