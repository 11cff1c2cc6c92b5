// Package dispatch routes player commands to the transport a session owns.
//
// Delivery is fire-and-forget. Failures are logged and counted, never returned:
// the next reconciliation tick converges instead of a retry here.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/vodsync/vodsync/internal/metrics"
	"github.com/vodsync/vodsync/log"
	"github.com/vodsync/vodsync/player"
	"github.com/vodsync/vodsync/session"
)

// ErrNoTransport is logged when a command needs a transport the session does not have.
var ErrNoTransport = errors.New("no player transport")

// Policy decides what happens when a transport goes away.
type Policy string

const (
	// Recreate clears the handle and resets the believed player state, so the
	// next tick replays the current song on a fresh transport.
	Recreate Policy = "recreate"
	// Drop clears the handle; commands are dropped until the next track switch.
	Drop Policy = "drop"
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(name); p {
	case Recreate, Drop:
		return p, nil
	default:
		return "", fmt.Errorf("unknown transport policy %q (want %q or %q)", name, Recreate, Drop)
	}
}

// Factory creates the transport for a session.
type Factory func(ctx context.Context, s *session.Session) (player.Transport, error)

// Dispatcher delivers commands on behalf of the session goroutine.
type Dispatcher struct {
	factory Factory
	policy  Policy
}

// New returns a dispatcher that creates transports with factory.
func New(factory Factory, policy Policy) *Dispatcher {
	if policy == "" {
		policy = Recreate
	}
	return &Dispatcher{factory: factory, policy: policy}
}

// Policy returns the configured policy.
func (d *Dispatcher) Policy() Policy {
	return d.policy
}

// Reap clears the transport of s if its surface has gone away. It reports whether it did.
func (d *Dispatcher) Reap(s *session.Session) bool {
	if s.Transport == nil {
		return false
	}

	select {
	case <-s.Transport.Done():
		d.lose(s, "lost")
		return true
	default:
		return false
	}
}

// Dispatch delivers cmd to the transport of s, creating one for a play with a track.
func (d *Dispatcher) Dispatch(ctx context.Context, s *session.Session, cmd player.Command) {
	logger := log.Session(s.ID)
	d.Reap(s)

	if s.Transport == nil {
		if cmd.Action != player.Play || cmd.TrackID == "" {
			metrics.DispatchFailuresTotal.WithLabelValues("no_transport").Inc()
			logger.Debugf("dropping %s: %v", cmd, ErrNoTransport)
			return
		}

		t, err := d.factory(ctx, s)
		if err != nil {
			metrics.DispatchFailuresTotal.WithLabelValues("create").Inc()
			if errors.Is(err, player.ErrNoSurface) {
				logger.Debugf("dropping %s: %v", cmd, err)
			} else {
				logger.Warnf("create transport: %v", err)
			}
			if d.policy == Recreate {
				s.Reset()
			}
			return
		}

		logger.Infof("%s player attached", t.Kind())
		s.Transport = t
	}

	if err := s.Transport.Send(cmd); err != nil {
		if errors.Is(err, player.ErrClosed) {
			d.lose(s, "closed")
			return
		}
		metrics.DispatchFailuresTotal.WithLabelValues("busy").Inc()
		logger.Warnf("send %s: %v", cmd, err)
		return
	}

	metrics.CommandsTotal.WithLabelValues(string(cmd.Action)).Inc()
	logger.Debugf("sent %s", cmd)
}

func (d *Dispatcher) lose(s *session.Session, reason string) {
	log.Session(s.ID).Infof("%s player gone, policy %s", s.Transport.Kind(), d.policy)
	metrics.DispatchFailuresTotal.WithLabelValues(reason).Inc()

	_ = s.Transport.Close()
	s.Transport = nil

	if d.policy == Recreate {
		s.Reset()
	}
}
