//go:build windows

package peer

import (
	"errors"
	"os"

	"github.com/mpfront/mpfront/filesystem"
	"golang.org/x/sys/windows"
)

var errLocked = errors.New("lock held by another instance")

type fileLock struct {
	f *os.File
}

func acquireLock(path string) (*fileLock, error) {
	f, err := openLockFile(path)
	if err != nil {
		return nil, err
	}

	err = windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0,
		new(windows.Overlapped),
	)
	if err != nil {
		_ = f.Close()
		if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
			return nil, errLocked
		}
		return nil, err
	}

	return &fileLock{f: f}, nil
}

func (l *fileLock) release() error {
	err := windows.UnlockFileEx(windows.Handle(l.f.Fd()), 0, 1, 0, new(windows.Overlapped))
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	return err
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
