package signaling

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"golang.org/x/net/websocket"
)

// ErrChannelNotReady is returned by Send when the channel has not been
// connected, or has been disconnected. There is no automatic reconnection;
// the caller must surface the failure and start a fresh session.
var ErrChannelNotReady = errors.New("signaling channel not connected")

// Credentials are for connecting to the jonsport server. The username doubles
// as the participant id that inbound messages are routed by.
type Credentials struct {
	BaseURL,
	Username,
	Password string
}

// Handler is invoked from the channel read loop for one inbound message.
type Handler func(Message)

// Client is a persistent websocket channel to the jonsport server. Inbound
// messages addressed to the authenticated participant are dispatched, in
// arrival order, to every handler registered for their kind.
type Client struct {
	creds Credentials

	mu       sync.Mutex
	ws       *websocket.Conn
	handlers map[Kind][]Handler

	readWg sync.WaitGroup
}

// NewClient creates a channel client. Connect must be called before Send.
func NewClient(creds Credentials) *Client {
	return &Client{
		creds:    creds,
		handlers: make(map[Kind][]Handler),
	}
}

// OnMessage registers fn for every inbound message of the given kind.
// Multiple handlers may be registered per kind; all fire, in registration
// order. Handlers run on the read loop, so a slow handler delays delivery.
func (c *Client) OnMessage(kind Kind, fn Handler) {
	c.mu.Lock()
	c.handlers[kind] = append(c.handlers[kind], fn)
	c.mu.Unlock()
}

// Connect dials the server's channel endpoint with basic auth and starts
// reading inbound messages. The server registers the authenticated username
// so that messages addressed to it are routed to this connection.
func (c *Client) Connect(ctx context.Context) error {
	cfg, err := newWsConfig(c.creds, "/channel")
	if err != nil {
		return err
	}
	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return fmt.Errorf("error dialing signaling channel: %w", err)
	}

	c.mu.Lock()
	if c.ws != nil {
		c.mu.Unlock()
		_ = ws.Close()
		return errors.New("signaling channel already connected")
	}
	c.ws = ws
	c.mu.Unlock()

	c.readWg.Go(func() {
		c.readLoop(ws)
	})
	return nil
}

// Send relays one message through the channel, best-effort. No delivery
// acknowledgement exists at this layer.
func (c *Client) Send(msg Message) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return ErrChannelNotReady
	}
	if err := websocket.JSON.Send(ws, msg); err != nil {
		return fmt.Errorf("error sending %s: %w", msg.Kind, err)
	}
	return nil
}

// Disconnect closes the channel and waits for the read loop to stop.
// Idempotent. After Disconnect, Send fails with ErrChannelNotReady.
func (c *Client) Disconnect() {
	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()
	if ws != nil {
		_ = ws.Close() // errs if already closed
	}
	c.readWg.Wait()
}

// readLoop reads messages until the connection closes or errors, dispatching
// each to the handlers for its kind.
func (c *Client) readLoop(ws *websocket.Conn) {
	for {
		var msg Message
		if err := websocket.JSON.Receive(ws, &msg); err != nil {
			if err != io.EOF && !errors.Is(err, io.ErrUnexpectedEOF) {
				log.Printf("signaling channel read ended: %v", err)
			}
			c.mu.Lock()
			if c.ws == ws {
				c.ws = nil
			}
			c.mu.Unlock()
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	c.mu.Lock()
	registered := c.handlers[msg.Kind]
	handlers := make([]Handler, len(registered))
	copy(handlers, registered)
	c.mu.Unlock()

	if len(handlers) == 0 {
		log.Printf("no handler for %s message from %s", msg.Kind, msg.From)
		return
	}
	for _, fn := range handlers {
		fn(msg)
	}
}

// newWsConfig creates a websocket.Config for the jonsport server for a
// specific endpoint, with basic auth.
func newWsConfig(c Credentials, endpoint string) (*websocket.Config, error) {
	loc := strings.Replace(c.BaseURL, "http", "ws", 1) + endpoint

	cfg, err := websocket.NewConfig(loc, "app://jonsport") // no real origin b/c we're not a browser
	if err != nil {
		return nil, err
	}

	// set basic auth for the http request that initates the ws connection
	auth := c.Username + ":" + c.Password
	auth = base64.StdEncoding.EncodeToString([]byte(auth))
	cfg.Header.Set("Authorization", "Basic "+auth)

	return cfg, nil
}
