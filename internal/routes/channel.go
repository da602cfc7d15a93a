package routes

import (
	"errors"
	"io"
	"log"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/kresha325/FootballPro-sub001/internal/middleware"
	"github.com/kresha325/FootballPro-sub001/internal/signaling"
)

// Registry tracks the signaling channel connection of each participant
// currently connected, keyed by username. One connection per participant.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*websocket.Conn, 10)}
}

// Add registers a connection for a participant, failing if one exists.
func (r *Registry) Add(username string, ws *websocket.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[username]; exists {
		return errors.New("participant already connected")
	}
	r.conns[username] = ws
	return nil
}

// Get returns the connection for a participant, if connected.
func (r *Registry) Get(username string) (*websocket.Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.conns[username]
	return ws, ok
}

// Remove drops a participant's connection entry, but only if it still maps
// to ws (a reconnect may have raced the cleanup of the old connection).
func (r *Registry) Remove(username string, ws *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[username] == ws {
		delete(r.conns, username)
	}
}

// ChannelWS is the persistent signaling channel endpoint. It registers the
// authenticated participant so messages addressed to them are routed here,
// then relays each inbound message to its recipient's connection. Relay is
// best-effort: an offline recipient means the message is dropped with a log
// line, no acknowledgement either way.
func (h *RouteHandler) ChannelWS(ws *websocket.Conn) {
	username := middleware.GetUsernameWS(ws)
	if username == "" {
		ws.WriteClose(http.StatusUnauthorized)
		return
	}

	if err := h.channels.Add(username, ws); err != nil {
		log.Printf("channel for %s rejected: %v", username, err)
		ws.WriteClose(http.StatusConflict)
		return
	}
	defer h.channels.Remove(username, ws)
	log.Printf("channel open for %s", username)

	for {
		var msg signaling.Message
		err := websocket.JSON.Receive(ws, &msg)
		if err != nil {
			if err != io.EOF {
				log.Printf("error reading channel of %s: %v", username, err)
			}
			log.Printf("channel closed for %s", username)
			return
		}

		// the sender identity is stamped server-side, never trusted from
		// the client
		msg.From = username
		if err := msg.Validate(); err != nil {
			log.Printf("dropping message from %s: %v", username, err)
			continue
		}

		dest, ok := h.channels.Get(msg.To)
		if !ok {
			log.Printf("dropping %s from %s: recipient %s not connected", msg.Kind, username, msg.To)
			continue
		}
		if err := websocket.JSON.Send(dest, msg); err != nil {
			log.Printf("error relaying %s to %s: %v", msg.Kind, msg.To, err)
		}
	}
}
