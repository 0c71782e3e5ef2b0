package session

import (
	"errors"
	"fmt"
	"strings"
)

// Command names understood by a running server.
const (
	Open     = "open"
	Enqueue  = "enqueue"
	Activate = "activate"
	Pause    = "pause"
	Stop     = "stop"
	Quit     = "quit"
	Raw      = "raw"
)

var ErrUnknownCommand = errors.New("unknown command")

// Command is one request forwarded between instances, e.g. "open /tmp/a.mkv".
type Command struct {
	Name string
	Arg  string
}

func (c Command) String() string {
	if c.Arg == "" {
		return c.Name
	}
	return c.Name + " " + c.Arg
}

// ParseCommand splits msg at the first space. The argument is kept verbatim,
// so paths may contain spaces.
func ParseCommand(msg string) (Command, error) {
	name, arg, _ := strings.Cut(msg, " ")

	switch name {
	case Open, Enqueue, Raw:
		if arg == "" {
			return Command{}, fmt.Errorf("%s: missing argument", name)
		}
	case Activate, Pause, Stop, Quit:
		if arg != "" {
			return Command{}, fmt.Errorf("%s: unexpected argument %q", name, arg)
		}
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	return Command{Name: name, Arg: arg}, nil
}
