//go:build windows

package peer

import (
	"strconv"

	"golang.org/x/sys/windows"
)

func defaultSession() (string, error) {
	var id uint32
	if err := windows.ProcessIdToSessionId(windows.GetCurrentProcessId(), &id); err != nil {
		return "", err
	}
	return strconv.FormatUint(uint64(id), 10), nil
}
