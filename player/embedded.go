package player

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vodsync/vodsync/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// ErrNoSurface is returned when no embedded player is connected for a session.
var ErrNoSurface = errors.New("no embedded player connected")

// Message is the wire format exchanged with the embedded player page.
type Message struct {
	Type    string  `json:"type"`
	Action  Action  `json:"action,omitempty"`
	VideoID string  `json:"videoId,omitempty"`
	SeekTo  float64 `json:"seekTo"`
	Volume  int     `json:"volume,omitempty"`
}

const (
	MessageControl = "control"
	MessagePing    = "ping"
	MessagePong    = "pong"
	MessageReady   = "ready"
)

// pong is queued internally to answer a page ping.
const pong Action = "pong"

func controlMessage(cmd Command) Message {
	return Message{
		Type:    MessageControl,
		Action:  cmd.Action,
		VideoID: cmd.TrackID,
		SeekTo:  cmd.SeekTo,
		Volume:  cmd.Volume,
	}
}

// Hub tracks the embedded player pages connected per session.
// A newer connection for a session replaces the older one.
type Hub struct {
	mu       sync.Mutex
	surfaces map[string]*Surface
	upgrader websocket.Upgrader
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		surfaces: make(map[string]*Surface),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The page is served by the streaming site, not by us.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Serve upgrades r and binds the connection to sessionID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	h.Attach(sessionID, conn)
	return nil
}

// Attach binds conn to sessionID and starts its pumps.
func (h *Hub) Attach(sessionID string, conn *websocket.Conn) *Surface {
	s := &Surface{
		hub:       h,
		sessionID: sessionID,
		conn:      conn,
		box:       newOutbox(),
	}

	h.mu.Lock()
	old := h.surfaces[sessionID]
	h.surfaces[sessionID] = s
	h.mu.Unlock()

	if old != nil {
		log.Session(sessionID).Info("embedded player reconnected, replacing previous connection")
		_ = old.Close()
	}

	go s.writePump()
	go s.readPump()
	return s
}

// Transport returns the connected surface of sessionID.
func (h *Hub) Transport(sessionID string) (Transport, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.surfaces[sessionID]
	if !ok {
		return nil, ErrNoSurface
	}
	return s, nil
}

// Connected reports whether sessionID has a live surface.
func (h *Hub) Connected(sessionID string) bool {
	_, err := h.Transport(sessionID)
	return err == nil
}

// Close disconnects every surface.
func (h *Hub) Close() {
	h.mu.Lock()
	surfaces := make([]*Surface, 0, len(h.surfaces))
	for _, s := range h.surfaces {
		surfaces = append(surfaces, s)
	}
	h.mu.Unlock()

	for _, s := range surfaces {
		_ = s.Close()
	}
}

func (h *Hub) detach(s *Surface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.surfaces[s.sessionID] == s {
		delete(h.surfaces, s.sessionID)
	}
}

// Surface is one embedded player page connected over a websocket.
type Surface struct {
	hub       *Hub
	sessionID string
	conn      *websocket.Conn
	box       *outbox
}

func (s *Surface) Send(cmd Command) error { return s.box.send(cmd) }

func (s *Surface) Done() <-chan struct{} { return s.box.done }

func (s *Surface) Kind() string { return "embedded" }

// Close disconnects the page.
func (s *Surface) Close() error {
	s.box.close()
	s.hub.detach(s)
	return nil
}

func (s *Surface) readPump() {
	defer func() {
		if s.box.close() {
			log.Session(s.sessionID).Info("embedded player disconnected")
		}
		s.hub.detach(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Session(s.sessionID).Warnf("embedded player: %v", err)
			}
			return
		}

		switch msg.Type {
		case MessagePing:
			_ = s.box.send(Command{Action: pong})
		case MessageReady:
			log.Session(s.sessionID).Debug("embedded player ready")
		}
	}
}

// flush writes the control messages still queued, so a final stop reaches the
// page before the close frame.
func (s *Surface) flush() {
	for {
		select {
		case cmd := <-s.box.queue:
			if cmd.Action == pong {
				continue
			}
			if err := s.conn.WriteJSON(controlMessage(cmd)); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Surface) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(s.box.stopped)
		_ = s.conn.Close()
	}()

	for {
		select {
		case <-s.box.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.flush()
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case cmd := <-s.box.queue:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}

			msg := controlMessage(cmd)
			if cmd.Action == pong {
				msg = Message{Type: MessagePong}
			}

			if err := s.conn.WriteJSON(msg); err != nil {
				log.Session(s.sessionID).Warnf("embedded player: write %s: %v", cmd, err)
				s.box.close()
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.box.close()
				return
			}
		}
	}
}
