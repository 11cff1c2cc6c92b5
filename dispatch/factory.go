package dispatch

import (
	"context"
	"fmt"

	"github.com/vodsync/vodsync/player"
	"github.com/vodsync/vodsync/session"
)

// Embedded binds sessions to the player page connected to hub.
func Embedded(hub *player.Hub) Factory {
	return func(_ context.Context, s *session.Session) (player.Transport, error) {
		return hub.Transport(s.ID)
	}
}

// MPV starts one mpv window per session.
func MPV(binary string) Factory {
	return func(_ context.Context, _ *session.Session) (player.Transport, error) {
		m, err := player.StartMPV(binary)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// ForKind returns the factory for a configured transport kind.
func ForKind(kind string, hub *player.Hub, mpvBinary string) (Factory, error) {
	switch kind {
	case "embedded":
		return Embedded(hub), nil
	case "mpv":
		return MPV(mpvBinary), nil
	default:
		return nil, fmt.Errorf("unknown player transport %q (want \"embedded\" or \"mpv\")", kind)
	}
}
