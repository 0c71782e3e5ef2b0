//go:build !windows

package peer

import (
	"strconv"

	"golang.org/x/sys/unix"
)

func defaultSession() (string, error) {
	return strconv.Itoa(unix.Getuid()), nil
}
