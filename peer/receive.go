package peer

import (
	"errors"
	"net"
	"time"

	"github.com/mpfront/mpfront/log"
)

const acceptBackoff = 50 * time.Millisecond

func (p *Peer) serve(ln net.Listener) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) || !p.listening(ln) {
					return
				}
				log.Warnf("peer %s: accept: %v", p.opts.ID, err)
				time.Sleep(acceptBackoff)
				continue
			}

			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.handle(conn)
			}()
		}
	}()
}

func (p *Peer) handle(conn net.Conn) {
	defer conn.Close()

	timeout := p.opts.Timeout
	msg, err := readMessage(conn, timeout)
	if err != nil {
		log.Debugf("peer %s: receive: %v", p.opts.ID, err)
		return
	}
	if err := writeAck(conn, timeout); err != nil {
		log.Debugf("peer %s: ack: %v", p.opts.ID, err)
		return
	}
	waitClosed(conn, timeout)

	if msg == squit {
		p.takeOver()
		return
	}

	log.Tracef("peer %s: received %q", p.opts.ID, msg)
	if p.opts.OnMessage != nil {
		p.opts.OnMessage(msg)
	}
}

// takeOver re-runs the election after the server announced it is leaving.
func (p *Peer) takeOver() {
	role, err := p.elect()
	if err != nil {
		if !errors.Is(err, ErrClosed) {
			log.Warnf("peer %s: take over: %v", p.opts.ID, err)
		}
		return
	}
	log.Infof("peer %s: %s after handover", p.opts.ID, role)
}
