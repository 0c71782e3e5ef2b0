// Package backend turns the plain-text output of an MPlayer or MPV process
// into typed events.
//
// Each backend has its own LineConsumer. Consumers classify every line by
// pattern. Lines they do not recognise are skipped, so new backend versions
// with extra output keep working.
package backend

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mpfront/mpfront/exitcode"
)

// ErrUnknownBackend is returned for a backend name that is not registered.
var ErrUnknownBackend = errors.New("unknown backend")

// Emit receives parsed events. It is called synchronously from ParseLine.
type Emit func(Event)

// LineConsumer parses backend output one complete line at a time.
// Implementations are not safe for concurrent use.
type LineConsumer interface {
	// ParseLine handles a single terminator-stripped line and reports whether it was recognised.
	ParseLine(line string) bool
	// Reset discards parse state before a new process generation.
	Reset()
	// LastDiagnostic returns the most recent error-like line, or "".
	LastDiagnostic() string
	// Failure returns the first failure recognised in the output, or exitcode.None.
	Failure() exitcode.Code
	// FailureDetail returns the line Failure was recognised from, or "".
	FailureDetail() string
}

// Backend describes how to drive one backend program.
type Backend struct {
	Name   string
	Binary string
	// InfoArgs makes the program list its drivers, demuxers and codecs and exit.
	InfoArgs []string
	// BaseArgs are always passed before user arguments when playing media.
	BaseArgs []string
	// IPCFlag, when set, is followed by an endpoint path and makes the
	// program read commands from that endpoint instead of stdin.
	IPCFlag string
	Quit    string
	Pause   string

	newConsumer func(Emit) LineConsumer
}

// PlayArgs assembles the argument list for playing media.
func (b *Backend) PlayArgs(extra []string, media string) []string {
	args := make([]string, 0, len(b.BaseArgs)+len(extra)+1)
	args = append(args, b.BaseArgs...)
	args = append(args, extra...)
	if media != "" {
		args = append(args, media)
	}
	return args
}

// NewConsumer creates a fresh parser for this backend.
func (b *Backend) NewConsumer(emit Emit) LineConsumer {
	if emit == nil {
		emit = func(Event) {}
	}
	return b.newConsumer(emit)
}

var registry = map[string]*Backend{
	"mplayer": {
		Name:     "mplayer",
		Binary:   "mplayer",
		InfoArgs: []string{"-identify", "-vo", "help", "-ao", "help", "-demuxer", "help", "-vc", "help", "-ac", "help", "-frames", "0"},
		BaseArgs: []string{"-slave", "-identify", "-noquiet", "-nofs"},
		Quit:     "quit",
		Pause:    "pause",
		newConsumer: func(emit Emit) LineConsumer {
			return NewMPlayer(emit)
		},
	},
	"mpv": {
		Name:     "mpv",
		Binary:   "mpv",
		InfoArgs: []string{"--vo=help", "--ao=help", "--demuxer=help", "--vd=help", "--ad=help"},
		BaseArgs: []string{
			"--no-config",
			"--input-terminal=no",
			"--term-status-msg=STATUS: ${=time-pos} ${=pause}",
			"--term-playing-msg=INFO_MEDIA_TITLE=${media-title}\nINFO_LENGTH=${=duration:0}",
		},
		IPCFlag: "--input-ipc-server=",
		Quit:    "quit",
		Pause:   "cycle pause",
		newConsumer: func(emit Emit) LineConsumer {
			return NewMPV(emit)
		},
	},
}

// Lookup returns the registered backend with the given name.
func Lookup(name string) (*Backend, error) {
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return b, nil
}

// New creates the LineConsumer for the named backend.
func New(name string, emit Emit) (LineConsumer, error) {
	b, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return b.NewConsumer(emit), nil
}

// Names lists the registered backend names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
