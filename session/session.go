// Package session plays a queue of media files with one backend and applies
// commands received from other instances.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/mpfront/mpfront/backend"
	"github.com/mpfront/mpfront/exitcode"
	"github.com/mpfront/mpfront/log"
	"github.com/mpfront/mpfront/player"
)

// Options configure a Session.
type Options struct {
	Backend *backend.Backend
	// Path overrides Backend.Binary.
	Path string
	// Args are extra backend arguments placed before the media path.
	Args          []string
	Classifier    *exitcode.Classifier
	EventBuffer   int
	FlushOnExit   bool
	FinishTimeout time.Duration
	// StayIdle keeps Run going after the queue is empty.
	StayIdle bool

	OnEvent    func(media string, e backend.Event)
	OnActivate func()
}

// Session owns the player process. Only Run touches it; other goroutines talk
// to the session through Submit.
type Session struct {
	opts     Options
	commands chan Command
	done     chan struct{}
	queue    []string
}

// New creates a Session with media queued for playback.
func New(opts Options, media ...string) (*Session, error) {
	if opts.Backend == nil {
		return nil, errors.New("session: no backend")
	}
	if opts.FinishTimeout <= 0 {
		opts.FinishTimeout = 5 * time.Second
	}
	if opts.OnEvent == nil {
		opts.OnEvent = func(string, backend.Event) {}
	}

	return &Session{
		opts:     opts,
		commands: make(chan Command, 16),
		done:     make(chan struct{}),
		queue:    append([]string(nil), media...),
	}, nil
}

// Submit parses msg and hands it to Run without blocking. It is meant to be
// used as the peer's message callback. Commands are dropped once Run returned
// or while the command queue is full.
func (s *Session) Submit(msg string) {
	cmd, err := ParseCommand(msg)
	if err != nil {
		log.Warnf("session: %v", err)
		return
	}

	select {
	case <-s.done:
		log.Debugf("session: dropped %s after shutdown", cmd)
	case s.commands <- cmd:
	default:
		log.Warnf("session: dropped %s, queue full", cmd)
	}
}

type playback struct {
	media   string
	process *player.Process
}

// Run plays the queue until ctx is done, a quit command arrives or, unless
// StayIdle is set, nothing is left to play. The error is the classification
// of the last playback if that one failed. Run must be called only once.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	var (
		current *playback
		lastErr error
	)

	stop := func() {
		if current == nil {
			return
		}
		if err := current.process.Stop(s.opts.FinishTimeout); err != nil {
			log.Warnf("session: stop %s: %v", current.media, err)
		}
		s.drain(current)
		current = nil
	}
	defer stop()

	for {
		for current == nil && len(s.queue) > 0 {
			media := s.queue[0]
			s.queue = s.queue[1:]

			next, err := s.start(ctx, media)
			if err != nil {
				lastErr = err
				continue
			}
			current = next
			lastErr = nil
		}

		if current == nil && !s.opts.StayIdle {
			return lastErr
		}

		var (
			events <-chan backend.Event
			done   <-chan struct{}
		)
		if current != nil {
			events = current.process.Events()
			done = current.process.Done()
		}

		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			s.opts.OnEvent(current.media, e)
		case <-done:
			s.drain(current)
			if result := current.process.Result(); result.Failed() {
				lastErr = result.Err
			}
			current = nil
		case cmd := <-s.commands:
			log.Infof("session: %s", cmd)
			switch cmd.Name {
			case Open:
				s.queue = append([]string{cmd.Arg}, s.queue...)
				stop()
			case Enqueue:
				s.queue = append(s.queue, cmd.Arg)
			case Activate:
				if s.opts.OnActivate != nil {
					s.opts.OnActivate()
				}
			case Pause:
				s.write(current, s.opts.Backend.Pause)
			case Raw:
				s.write(current, cmd.Arg)
			case Stop:
				s.queue = nil
				stop()
			case Quit:
				return nil
			}
		}
	}
}

func (s *Session) start(ctx context.Context, media string) (*playback, error) {
	p, err := player.New(player.Options{
		Backend:      s.opts.Backend,
		Path:         s.opts.Path,
		Args:         s.opts.Backend.PlayArgs(s.opts.Args, media),
		Classifier:   s.opts.Classifier,
		EventBuffer:  s.opts.EventBuffer,
		FlushOnExit:  s.opts.FlushOnExit,
		DrainTimeout: s.opts.FinishTimeout,
	})
	if err != nil {
		return nil, err
	}

	pb := &playback{media: media, process: p}
	if err := p.Start(ctx); err != nil {
		s.drain(pb)
		return nil, err
	}

	log.Infof("session: playing %s", media)
	return pb, nil
}

func (s *Session) write(pb *playback, command string) {
	if pb == nil {
		log.Debugf("session: nothing playing for %q", command)
		return
	}
	if err := pb.process.Write(command); err != nil {
		log.Warnf("session: %v", err)
	}
}

func (s *Session) drain(pb *playback) {
	for {
		select {
		case e := <-pb.process.Events():
			s.opts.OnEvent(pb.media, e)
		default:
			return
		}
	}
}
