// Package fake provides recording test doubles for player transports.
package fake

import (
	"sync"

	"github.com/vodsync/vodsync/player"
)

// Transport records every command it is sent.
type Transport struct {
	mu     sync.Mutex
	sent   []player.Command
	done   chan struct{}
	once   sync.Once
	closed int
	Err    error
}

// NewTransport returns an open recording transport.
func NewTransport() *Transport {
	return &Transport{done: make(chan struct{})}
}

func (t *Transport) Send(cmd player.Command) error {
	select {
	case <-t.done:
		return player.ErrClosed
	default:
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.sent = append(t.sent, cmd)
	return nil
}

func (t *Transport) Done() <-chan struct{} { return t.done }

func (t *Transport) Kind() string { return "fake" }

func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed++
	t.mu.Unlock()
	t.Vanish()
	return nil
}

// Vanish simulates the surface going away.
func (t *Transport) Vanish() {
	t.once.Do(func() { close(t.done) })
}

// Sent returns the recorded commands.
func (t *Transport) Sent() []player.Command {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]player.Command(nil), t.sent...)
}

// Reset forgets recorded commands.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = nil
}

// Closed returns how many times Close was called.
func (t *Transport) Closed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
