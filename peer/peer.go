// Package peer coordinates the instances of one application within a user
// session so that exactly one of them acts as the server.
//
// Every instance shares a directory holding a lock file and one socket per
// instance. The instance holding the lock listens on "server", the others on
// "client-<id>". Clients forward their requests to the server. When the server
// closes it hands the role over to one of the clients.
package peer

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/mpfront/mpfront/filesystem"
	"github.com/mpfront/mpfront/log"
	"github.com/mpfront/mpfront/where"
)

const (
	lockName     = "server-lockfile"
	serverName   = "server"
	clientPrefix = "client-"

	DefaultTimeout    = time.Second
	DefaultRetryDelay = 250 * time.Millisecond
)

var (
	ErrNoServer    = errors.New("no server reachable")
	ErrUnreachable = errors.New("peer unreachable")
	ErrNoAck       = errors.New("message not acknowledged")
	ErrNotClient   = errors.New("peer is the server")
	ErrClosed      = errors.New("peer closed")
)

// Role is the elected role of a Peer.
type Role int

const (
	Undecided Role = iota
	Server
	Client
)

func (r Role) String() string {
	switch r {
	case Server:
		return "server"
	case Client:
		return "client"
	default:
		return "undecided"
	}
}

// Options configure a Peer. Zero values are replaced with defaults.
type Options struct {
	AppID string
	// Session separates users. Defaults to the uid, or the session id on Windows.
	Session string
	// Dir is the base directory. Defaults to the system temp directory.
	Dir string
	// ID names the client socket. Defaults to the pid.
	ID         string
	Timeout    time.Duration
	RetryDelay time.Duration
	// OnMessage receives every message except handover requests. It runs on
	// the connection goroutine after the sender got its ack and must not call
	// Close.
	OnMessage func(msg string)
}

// Peer is one instance taking part in the election.
type Peer struct {
	opts Options
	dir  string

	mu     sync.Mutex
	role   Role
	lock   *fileLock
	server net.Listener
	client net.Listener
	closed bool

	wg sync.WaitGroup
}

// New creates a Peer. No election happens until IsServer or IsClient.
func New(opts Options) (*Peer, error) {
	if opts.AppID == "" {
		return nil, errors.New("peer: empty app id")
	}
	if opts.Session == "" {
		session, err := defaultSession()
		if err != nil {
			return nil, fmt.Errorf("peer: session: %w", err)
		}
		opts.Session = session
	}
	if opts.ID == "" {
		opts.ID = strconv.Itoa(os.Getpid())
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}

	return &Peer{
		opts: opts,
		dir:  where.Peer(opts.Dir, opts.AppID, opts.Session),
	}, nil
}

// Dir returns the shared directory.
func (p *Peer) Dir() string {
	return p.dir
}

// ID returns the identity used for the client socket.
func (p *Peer) ID() string {
	return p.opts.ID
}

// Role returns the outcome of the last election without running a new one.
func (p *Peer) Role() Role {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.role
}

// IsServer runs the election and reports whether this peer is the server.
func (p *Peer) IsServer() (bool, error) {
	role, err := p.elect()
	return role == Server, err
}

// IsClient runs the election and reports whether this peer is a client.
func (p *Peer) IsClient() (bool, error) {
	role, err := p.elect()
	return role == Client, err
}

func (p *Peer) elect() (Role, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return Undecided, ErrClosed
	}
	if p.lock != nil {
		return Server, nil
	}

	if err := filesystem.API().MkdirAll(p.dir, 0o700); err != nil {
		return Undecided, fmt.Errorf("peer: create %s: %w", p.dir, err)
	}

	lock, err := acquireLock(p.path(lockName))
	switch {
	case err == nil:
		ln, err := listen(p.path(serverName))
		if err != nil {
			_ = lock.release()
			return Undecided, fmt.Errorf("peer: listen as server: %w", err)
		}

		p.lock = lock
		p.server = ln
		p.role = Server
		if p.client != nil {
			_ = p.client.Close()
			p.client = nil
		}
		p.serve(ln)
		log.Infof("peer %s: elected server in %s", p.opts.ID, p.dir)

		return Server, nil
	case errors.Is(err, errLocked):
		if p.client == nil {
			ln, err := listen(p.path(p.clientName()))
			if err != nil {
				return Undecided, fmt.Errorf("peer: listen as client: %w", err)
			}
			p.client = ln
			p.serve(ln)
		}
		p.role = Client
		log.Debugf("peer %s: client in %s", p.opts.ID, p.dir)

		return Client, nil
	default:
		return Undecided, fmt.Errorf("peer: lock: %w", err)
	}
}

// Close stops listening and releases the lock. A server then hands its role
// over to the first client that acknowledges a handover request.
func (p *Peer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	server, client, lock := p.server, p.client, p.lock
	p.server, p.client, p.lock = nil, nil, nil
	p.role = Undecided
	p.mu.Unlock()

	var errs []error
	for _, ln := range []net.Listener{server, client} {
		if ln == nil {
			continue
		}
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if lock != nil {
		if err := lock.release(); err != nil {
			errs = append(errs, err)
		}
		p.handover()
	}

	p.wg.Wait()

	return errors.Join(errs...)
}

func (p *Peer) path(name string) string {
	return filepath.Join(p.dir, name)
}

func (p *Peer) clientName() string {
	return clientPrefix + p.opts.ID
}

// listening reports whether ln is still one of our active listeners.
func (p *Peer) listening(ln net.Listener) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ln == p.server || ln == p.client
}
