// Package player runs an MPlayer or MPV child process and turns its merged
// stdout/stderr into backend events.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/mpfront/mpfront/backend"
	"github.com/mpfront/mpfront/exitcode"
	"github.com/mpfront/mpfront/log"
	"golang.org/x/exp/slices"
)

const (
	defaultEventBuffer  = 256
	defaultDrainTimeout = time.Second
	readChunkSize       = 4096
)

var (
	ErrRunning    = errors.New("player process already running")
	ErrNotRunning = errors.New("player process not running")
)

// Options configure a Process.
type Options struct {
	Backend *backend.Backend
	// Path overrides Backend.Binary.
	Path string
	// Args is the complete argument list, see backend.Backend.PlayArgs.
	Args       []string
	Classifier *exitcode.Classifier
	// EventBuffer bounds the event channel. When full the oldest event is dropped.
	EventBuffer int
	// FlushOnExit parses the unterminated remainder of the output at exit
	// instead of discarding it.
	FlushOnExit bool
	// DrainTimeout bounds reading the output after the backend exited. Helpers
	// still holding the output open are killed when it expires.
	DrainTimeout time.Duration
	// IPCPath fixes the input server endpoint of backends that take commands
	// over IPC. Empty picks a fresh endpoint for every run.
	IPCPath string
}

// Result is the final classification of one process run.
type Result struct {
	Code    exitcode.Code
	Message string
	Err     error
}

// Failed reports whether the run ended with a failure.
func (r Result) Failed() bool {
	return r.Code != exitcode.None
}

// Process is a restartable wrapper around one backend child process.
type Process struct {
	opts       Options
	path       string
	consumer   backend.LineConsumer
	classifier *exitcode.Classifier
	lines      LineBuffer

	events chan backend.Event
	emitMu sync.Mutex

	mu       sync.Mutex
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	ipcPath  string
	ipcMu    sync.Mutex
	done     chan struct{}
	running  bool
	stopping bool
	result   Result
}

// New prepares a Process. Nothing is spawned until Start.
func New(opts Options) (*Process, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("%w: none given", backend.ErrUnknownBackend)
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = defaultDrainTimeout
	}
	if opts.Classifier == nil {
		opts.Classifier = exitcode.NewClassifier("en")
	}

	p := &Process{
		opts:       opts,
		path:       opts.Path,
		classifier: opts.Classifier,
		events:     make(chan backend.Event, opts.EventBuffer),
		done:       make(chan struct{}),
	}
	if p.path == "" {
		p.path = opts.Backend.Binary
	}
	p.consumer = opts.Backend.NewConsumer(p.emit)
	close(p.done)

	return p, nil
}

// Events returns the channel all events of all runs are delivered on.
func (p *Process) Events() <-chan backend.Event {
	return p.events
}

// Done returns a channel closed when the current run has exited.
func (p *Process) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Running reports whether a child process is alive.
func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Result returns the classification of the last finished run.
func (p *Process) Result() Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Start spawns the backend. The context bounds the whole run: its deadline
// classifies the run as timed out, cancelling it stops the process.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrRunning
	}

	p.lines.Reset()
	p.consumer.Reset()
	p.stopping = false

	args := p.opts.Args
	ipcPath := ""
	if flag := p.opts.Backend.IPCFlag; flag != "" {
		ipcPath = p.opts.IPCPath
		if ipcPath == "" {
			path, err := newIPCPath()
			if err != nil {
				return p.failStart(err)
			}
			ipcPath = path
		}
		args = append(slices.Clone(args), flag+ipcPath)
	}

	cmd := exec.CommandContext(ctx, p.path, args...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Cancel = func() error {
		return killProcess(cmd)
	}

	r, w, err := os.Pipe()
	if err != nil {
		return p.failStart(err)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	stdin, err := cmd.StdinPipe()
	if err != nil {
		_ = r.Close()
		_ = w.Close()
		return p.failStart(err)
	}

	log.Debugf("starting %s %v", p.path, args)
	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return p.failStart(err)
	}
	// the child holds its own copy
	_ = w.Close()

	p.cmd = cmd
	p.stdin = stdin
	p.ipcPath = ipcPath
	p.running = true
	p.done = make(chan struct{})
	p.result = Result{}

	go p.drain(ctx, cmd, r, p.done)

	return nil
}

func (p *Process) failStart(err error) error {
	log.Errorf("start %s: %v", p.path, err)

	p.result = Result{
		Code:    exitcode.FailedToStart,
		Message: p.classifier.Message(exitcode.FailedToStart),
		Err:     err,
	}
	p.emit(backend.Failed{Code: p.result.Code, Message: p.result.Message})

	return &exitcode.Error{Code: exitcode.FailedToStart, Err: err}
}

// Write sends one command line to the backend, on its IPC endpoint when it
// has one and on stdin otherwise.
func (p *Process) Write(command string) error {
	p.mu.Lock()
	if !p.running || p.stdin == nil {
		p.mu.Unlock()
		return &exitcode.Error{Code: exitcode.WriteError, Err: ErrNotRunning}
	}

	if ipcPath := p.ipcPath; ipcPath != "" {
		p.mu.Unlock()
		if err := p.sendIPC(ipcPath, command); err != nil {
			return &exitcode.Error{Code: exitcode.WriteError, Err: err}
		}
		return nil
	}
	defer p.mu.Unlock()

	if _, err := io.WriteString(p.stdin, command+"\n"); err != nil {
		return &exitcode.Error{Code: exitcode.WriteError, Err: err}
	}
	return nil
}

// Stop asks the backend to quit and kills its process group if it is still
// alive after timeout. A requested stop is not reported as a failure.
func (p *Process) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.stopping = true
	cmd, done := p.cmd, p.done
	p.mu.Unlock()

	if err := p.Write(p.opts.Backend.Quit); err != nil {
		log.Debugf("send quit: %v", err)
	}

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
	}

	log.Warnf("%s did not quit within %s, killing", p.path, timeout)
	if err := killProcess(cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-done

	return nil
}

func (p *Process) drain(ctx context.Context, cmd *exec.Cmd, r *os.File, done chan struct{}) {
	defer close(done)

	p.emit(backend.Started{PID: cmd.Process.Pid})

	read := make(chan error, 1)
	go func() {
		read <- p.read(r)
	}()

	waitErr := cmd.Wait()

	var readErr error
	select {
	case readErr = <-read:
	case <-time.After(p.opts.DrainTimeout):
		log.Warnf("%s exited but its output is still open, killing leftovers", p.path)
		_ = killProcess(cmd)
		if err := r.SetReadDeadline(time.Now()); err != nil {
			_ = r.Close()
		}
		readErr = <-read
		if errors.Is(readErr, os.ErrDeadlineExceeded) || errors.Is(readErr, os.ErrClosed) {
			readErr = nil
		}
	}
	_ = r.Close()

	if line, ok := p.lines.Flush(); ok && p.opts.FlushOnExit {
		p.consumer.ParseLine(line)
	}

	p.mu.Lock()
	stopping := p.stopping
	ipcPath := p.ipcPath
	_ = p.stdin.Close()
	p.mu.Unlock()

	if ipcPath != "" && p.opts.IPCPath == "" {
		removeIPC(ipcPath)
	}

	code := p.classify(ctx, waitErr, readErr, stopping)
	result := Result{Code: code}
	if code != exitcode.None {
		p.classifier.SetDetail(p.detail(code))
		result.Message = p.classifier.Message(code)
		result.Err = &exitcode.Error{Code: code, Err: errors.Join(waitErr, readErr)}
		log.Infof("%s exited: %s", p.path, result.Message)
		p.emit(backend.Failed{Code: code, Message: result.Message})
	} else {
		log.Debugf("%s finished", p.path)
		p.emit(backend.Finished{})
	}

	p.mu.Lock()
	p.result = result
	p.running = false
	p.stdin = nil
	p.ipcPath = ""
	p.mu.Unlock()
}

// detail picks the output line explaining code: the line behind the parser's
// failure when that is what code came from, the last diagnostic otherwise.
func (p *Process) detail(code exitcode.Code) string {
	if code == p.consumer.Failure() {
		if line := p.consumer.FailureDetail(); line != "" {
			return line
		}
	}
	return p.consumer.LastDiagnostic()
}

func (p *Process) read(r io.Reader) error {
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, line := range p.lines.Feed(buf[:n]) {
				p.consumer.ParseLine(line)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (p *Process) classify(ctx context.Context, waitErr, readErr error, stopping bool) exitcode.Code {
	switch {
	case readErr != nil:
		return exitcode.ReadError
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return exitcode.Timedout
	case stopping, errors.Is(ctx.Err(), context.Canceled):
		return exitcode.None
	}

	code, _ := exitcode.FromExit(waitErr, p.consumer.Failure())
	return code
}

// emit queues e, dropping the oldest queued event when the buffer is full.
func (p *Process) emit(e backend.Event) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	for {
		select {
		case p.events <- e:
			return
		default:
		}

		select {
		case <-p.events:
		default:
		}
	}
}
