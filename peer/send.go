package peer

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mpfront/mpfront/filesystem"
	"github.com/mpfront/mpfront/log"
	"github.com/samber/lo"
)

// SendMessage delivers msg to the server and returns once it acknowledged.
// Connecting is attempted at most twice, RetryDelay apart.
func (p *Peer) SendMessage(msg string, timeout time.Duration) error {
	if p.Role() == Server {
		return ErrNotClient
	}

	err := p.send(serverName, msg, timeout)
	if err != nil && errors.Is(err, ErrUnreachable) {
		return fmt.Errorf("%w: %w", ErrNoServer, err)
	}
	return err
}

// Broadcast sends msg to every other identity in the directory in parallel
// and returns how many acknowledged it.
func (p *Peer) Broadcast(msg string, timeout time.Duration) (int, error) {
	names, err := p.identities()
	if err != nil {
		return 0, err
	}

	self := p.selfNames()
	targets := lo.Reject(names, func(name string, _ int) bool {
		return lo.Contains(self, name)
	})

	var (
		wg        sync.WaitGroup
		delivered atomic.Int32
	)
	for _, name := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.send(name, msg, timeout); err != nil {
				log.Debugf("broadcast to %s: %v", name, err)
				return
			}
			delivered.Add(1)
		}()
	}
	wg.Wait()

	return int(delivered.Load()), nil
}

func (p *Peer) send(name, msg string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = p.opts.Timeout
	}

	conn, err := p.connect(name, timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := writeMessage(conn, msg, timeout); err != nil {
		return fmt.Errorf("send to %s: %w", name, err)
	}
	if err := readAck(conn, timeout); err != nil {
		return fmt.Errorf("%w by %s: %v", ErrNoAck, name, err)
	}
	return nil
}

func (p *Peer) connect(name string, timeout time.Duration) (net.Conn, error) {
	path := p.path(name)

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			time.Sleep(p.opts.RetryDelay)
		}

		var conn net.Conn
		if conn, err = dial(path, timeout); err == nil {
			return conn, nil
		}
		log.Tracef("dial %s (attempt %d): %v", path, attempt+1, err)
	}

	return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, name, err)
}

// handover asks the clients one by one to take over, in directory order.
// Clients that do not acknowledge are considered stale and removed.
func (p *Peer) handover() {
	names, err := p.identities()
	if err != nil {
		log.Warnf("handover: %v", err)
		return
	}

	own := p.clientName()
	clients := lo.Filter(names, func(name string, _ int) bool {
		return strings.HasPrefix(name, clientPrefix) && name != own
	})

	for _, name := range clients {
		if err := p.send(name, squit, p.opts.Timeout); err != nil {
			log.Infof("handover: removing stale %s: %v", name, err)
			if err := filesystem.RemoveIfExists(p.path(name)); err != nil {
				log.Warnf("handover: %v", err)
			}
			continue
		}

		log.Infof("handover: %s takes over", name)
		return
	}

	log.Debugf("handover: no client left in %s", p.dir)
}

func (p *Peer) identities() ([]string, error) {
	names, err := filesystem.Names(p.dir)
	if err != nil {
		return nil, fmt.Errorf("peer: scan %s: %w", p.dir, err)
	}
	return lo.Filter(names, func(name string, _ int) bool {
		return name == serverName || strings.HasPrefix(name, clientPrefix)
	}), nil
}

func (p *Peer) selfNames() []string {
	self := []string{p.clientName()}
	if p.Role() == Server {
		self = append(self, serverName)
	}
	return self
}
