package player

import (
	"sync"

	"github.com/vodsync/vodsync/log"
)

const outboxSize = 32

// outbox serializes delivery of commands to a surface on its own goroutine.
type outbox struct {
	queue   chan Command
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newOutbox() *outbox {
	return &outbox{
		queue:   make(chan Command, outboxSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// run delivers queued commands until the outbox is closed. A delivery error is
// logged and the next command is still attempted.
func (o *outbox) run(name string, deliver func(Command) error) {
	defer close(o.stopped)
	for {
		select {
		case <-o.done:
			return
		case cmd := <-o.queue:
			if err := deliver(cmd); err != nil {
				log.Warnf("%s: deliver %s: %v", name, cmd, err)
			}
		}
	}
}

func (o *outbox) send(cmd Command) error {
	select {
	case <-o.done:
		return ErrClosed
	default:
	}

	select {
	case o.queue <- cmd:
		return nil
	default:
		return ErrBusy
	}
}

// close marks the surface gone. It reports whether this call closed it.
func (o *outbox) close() bool {
	closed := false
	o.once.Do(func() {
		close(o.done)
		closed = true
	})
	return closed
}
