package wsfeed

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/meridian-xr/scenelabel/internal/label"
	"github.com/meridian-xr/scenelabel/internal/transport"
)

// Vars so tests can shorten the reconnect schedule.
var (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client implements transport.Feed over a websocket connection to a relay
// room. The read loop dispatches deliveries to subscribed handlers; writes
// are serialized through one writer goroutine. On a broken connection the
// client reconnects with capped exponential backoff and re-receives the
// room snapshot; the resulting duplicate deliveries are the ingestor's
// problem by contract.
type Client struct {
	wsURL  string
	device string

	outbound chan Envelope
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.Mutex
	subs    map[int]transport.Handler
	nextSub int
	closed  bool
}

// Dial connects to relayURL (e.g. "ws://host:8090") and joins the given
// room, identifying as device. It returns after the first connection
// attempt succeeds; subsequent disconnects are repaired in the background.
func Dial(ctx context.Context, relayURL, room, device string) (*Client, error) {
	u, err := url.Parse(relayURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay url: %w", err)
	}
	u.Path = "/rooms/" + room
	u.RawQuery = url.Values{"device": {device}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		wsURL:    u.String(),
		device:   device,
		outbound: make(chan Envelope, 64),
		ctx:      runCtx,
		cancel:   cancel,
		subs:     make(map[int]transport.Handler),
	}
	c.wg.Add(1)
	go c.run(conn)
	return c, nil
}

// Put publishes an anchor record to the room.
func (c *Client) Put(ctx context.Context, a label.AnchorRecord) error {
	rec := a
	return c.send(ctx, Envelope{Op: OpPut, Record: &rec})
}

// Delete retracts an anchor record from the room.
func (c *Client) Delete(ctx context.Context, anchorID string) error {
	return c.send(ctx, Envelope{Op: OpDelete, AnchorID: anchorID})
}

func (c *Client) send(ctx context.Context, env Envelope) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return transport.ErrClosed
	}
	select {
	case c.outbound <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return transport.ErrClosed
	}
}

// Subscribe registers h for feed deliveries, including the snapshot replay
// that follows every (re)connect.
func (c *Client) Subscribe(h transport.Handler) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, transport.ErrClosed
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = h
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}, nil
}

// Close tears the connection down and stops the reconnect loop.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
	return nil
}

// run owns the connection: a writer draining outbound, a reader dispatching
// deliveries, and the reconnect loop gluing them back together.
func (c *Client) run(conn *websocket.Conn) {
	defer c.wg.Done()
	backoff := initialBackoff

	for {
		readDone := make(chan struct{})
		writeDone := make(chan struct{})
		go c.readLoop(conn, readDone)
		go c.writeLoop(conn, writeDone)

		select {
		case <-c.ctx.Done():
			conn.Close()
			return
		case <-readDone:
		case <-writeDone:
		}
		conn.Close()

		// Reconnect with capped exponential backoff plus jitter.
		for {
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(backoff + time.Duration(rand.Int63n(int64(backoff/2+1)))):
			}
			next, _, err := websocket.DefaultDialer.DialContext(c.ctx, c.wsURL, nil)
			if err == nil {
				conn = next
				backoff = initialBackoff
				break
			}
			backoff = min(backoff*2, maxBackoff)
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		c.dispatch(env)
	}
}

func (c *Client) writeLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case env := <-c.outbound:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(env); err != nil {
				// Requeue so the record survives the reconnect when there is
				// room; at-most-once from this node allows the drop.
				select {
				case c.outbound <- env:
				default:
				}
				return
			}
		}
	}
}

func (c *Client) dispatch(env Envelope) {
	c.mu.Lock()
	handlers := make([]transport.Handler, 0, len(c.subs))
	for _, h := range c.subs {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	switch env.Op {
	case OpPut, OpSnapshot:
		if env.Record == nil {
			return
		}
		for _, h := range handlers {
			if h.OnRecord != nil {
				h.OnRecord(*env.Record)
			}
		}
	case OpDelete:
		if env.AnchorID == "" {
			return
		}
		for _, h := range handlers {
			if h.OnRemove != nil {
				h.OnRemove(env.AnchorID)
			}
		}
	}
}
