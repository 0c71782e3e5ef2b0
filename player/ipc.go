package player

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mpfront/mpfront/constant"
	"github.com/mpfront/mpfront/log"
)

const (
	ipcRetries    = 3
	ipcRetryDelay = 100 * time.Millisecond
	ipcDeadline   = time.Second
)

// ipcCommand is one request on mpv's JSON input server.
type ipcCommand struct {
	Command []string `json:"command"`
}

// ipcReply is either an asynchronous event or the reply to our request.
type ipcReply struct {
	Event string `json:"event"`
	Error string `json:"error"`
}

func newIPCPath() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate ipc name: %w", err)
	}
	return ipcEndpoint(constant.App + "-" + hex.EncodeToString(b)), nil
}

// sendIPC delivers command, retrying while the backend has not opened its
// endpoint yet.
func (p *Process) sendIPC(path, command string) error {
	p.ipcMu.Lock()
	defer p.ipcMu.Unlock()

	var err error
	for attempt := 0; attempt < ipcRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(ipcRetryDelay)
		}
		if err = sendIPCOnce(path, command); err == nil {
			return nil
		}
		log.Tracef("ipc %s (attempt %d): %v", path, attempt+1, err)
	}

	return fmt.Errorf("ipc command failed after %d attempts: %w", ipcRetries, err)
}

func sendIPCOnce(path, command string) error {
	conn, err := dialIPC(path, ipcDeadline)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(ipcDeadline)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}

	payload, err := json.Marshal(ipcCommand{Command: strings.Fields(command)})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	// events may arrive ahead of the reply
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var reply ipcReply
		if err := json.Unmarshal(scanner.Bytes(), &reply); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if reply.Event != "" {
			continue
		}
		if reply.Error != "" && reply.Error != "success" {
			return fmt.Errorf("mpv error: %s", reply.Error)
		}
		return nil
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return fmt.Errorf("read: connection closed before reply")
}
