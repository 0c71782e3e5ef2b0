package peer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
	"unicode/utf8"
)

// MaxMessage limits a single payload to 1MB.
const MaxMessage = 1 << 20

const (
	ack   = "ack"
	squit = "squit"
)

var ErrTooLarge = errors.New("message too large")

// writeMessage writes a 4-byte big-endian length prefix followed by msg.
func writeMessage(conn net.Conn, msg string, timeout time.Duration) error {
	if len(msg) > MaxMessage {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(msg))
	}

	frame := make([]byte, 4+len(msg))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(msg)))
	copy(frame[4:], msg)

	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// readMessage reads one framed message. Each read gets its own deadline.
func readMessage(conn net.Conn, timeout time.Duration) (string, error) {
	header := make([]byte, 4)
	if err := readFull(conn, header, timeout); err != nil {
		return "", fmt.Errorf("read length: %w", err)
	}

	length := binary.BigEndian.Uint32(header)
	if length > MaxMessage {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, length)
	}

	payload := make([]byte, length)
	if err := readFull(conn, payload, timeout); err != nil {
		return "", fmt.Errorf("read payload: %w", err)
	}
	if !utf8.Valid(payload) {
		return "", errors.New("payload is not valid UTF-8")
	}

	return string(payload), nil
}

func writeAck(conn net.Conn, timeout time.Duration) error {
	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err := io.WriteString(conn, ack)
	return err
}

// readAck waits for the raw, unframed acknowledgement.
func readAck(conn net.Conn, timeout time.Duration) error {
	buf := make([]byte, len(ack))
	if err := readFull(conn, buf, timeout); err != nil {
		return err
	}
	if string(buf) != ack {
		return fmt.Errorf("unexpected reply %q", buf)
	}
	return nil
}

// waitClosed blocks until the other side hangs up or timeout passes.
func waitClosed(conn net.Conn, timeout time.Duration) {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, _ = io.Copy(io.Discard, conn)
}

func readFull(conn net.Conn, buf []byte, timeout time.Duration) error {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err := io.ReadFull(conn, buf)
	return err
}
