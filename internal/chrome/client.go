// Package chrome is a small Chrome DevTools Protocol client: a browser-level
// connection plus per-page handles for evaluation, navigation and input.
package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	eventBuffer             = 100
)

// ConnectOptions tunes a browser connection.
type ConnectOptions struct {
	// SlowMotion delays every outgoing command.
	SlowMotion time.Duration
	// HandshakeTimeout bounds the WebSocket upgrade (default 10s).
	HandshakeTimeout time.Duration
}

// Client is a browser-level DevTools connection. Commands and events for
// attached pages travel over the same socket, tagged with a session ID.
type Client struct {
	conn       *websocket.Conn
	writeMu    sync.Mutex
	slowMotion time.Duration

	nextID  atomic.Int64
	calls   callTable
	events  eventBus
	targets targetSessions

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// outgoing is a command frame.
type outgoing struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// incoming is either a command reply (ID set) or an event (Method set).
type incoming struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *ProtocolError  `json:"error,omitempty"`
}

type reply struct {
	result json.RawMessage
	err    *ProtocolError
}

// callTable tracks commands awaiting a reply.
type callTable struct {
	mu      sync.Mutex
	waiting map[int64]chan reply
}

func (t *callTable) add(id int64) chan reply {
	ch := make(chan reply, 1)
	t.mu.Lock()
	if t.waiting == nil {
		t.waiting = make(map[int64]chan reply)
	}
	t.waiting[id] = ch
	t.mu.Unlock()
	return ch
}

func (t *callTable) remove(id int64) {
	t.mu.Lock()
	delete(t.waiting, id)
	t.mu.Unlock()
}

func (t *callTable) resolve(id int64, r reply) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.waiting[id]; ok {
		ch <- r
	}
}

// abandon closes every waiting channel.
func (t *callTable) abandon() {
	t.mu.Lock()
	for id, ch := range t.waiting {
		close(ch)
		delete(t.waiting, id)
	}
	t.mu.Unlock()
}

// eventBus fans events out to subscribers keyed "sessionID:method".
type eventBus struct {
	mu   sync.Mutex
	subs map[string][]chan json.RawMessage
}

func eventKey(sessionID, method string) string {
	return sessionID + ":" + method
}

func (b *eventBus) subscribe(key string) chan json.RawMessage {
	ch := make(chan json.RawMessage, eventBuffer)
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[string][]chan json.RawMessage)
	}
	b.subs[key] = append(b.subs[key], ch)
	b.mu.Unlock()
	return ch
}

func (b *eventBus) unsubscribe(key string, ch chan json.RawMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[key]
	for i := range subs {
		if subs[i] != ch {
			continue
		}
		b.subs[key] = append(subs[:i], subs[i+1:]...)
		if len(b.subs[key]) == 0 {
			delete(b.subs, key)
		}
		close(ch)
		return
	}
}

// publish never blocks; a subscriber with a full buffer misses the event.
func (b *eventBus) publish(key string, params json.RawMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[key] {
		select {
		case ch <- params:
		default:
		}
	}
}

// targetSessions maps target IDs to flat session IDs.
type targetSessions struct {
	mu   sync.Mutex
	byID map[string]string
}

func (s *targetSessions) get(targetID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byID[targetID]
	return id, ok
}

func (s *targetSessions) put(targetID, sessionID string) {
	s.mu.Lock()
	if s.byID == nil {
		s.byID = make(map[string]string)
	}
	s.byID[targetID] = sessionID
	s.mu.Unlock()
}

func (s *targetSessions) drop(targetID string) {
	s.mu.Lock()
	delete(s.byID, targetID)
	s.mu.Unlock()
}

func (s *targetSessions) reset() {
	s.mu.Lock()
	s.byID = nil
	s.mu.Unlock()
}

// ConnectURL dials the browser WebSocket endpoint announced by the browser
// process at startup (ws://host:port/devtools/browser/<id>).
func ConnectURL(ctx context.Context, wsURL string, opts ConnectOptions) (*Client, error) {
	if wsURL == "" {
		return nil, errors.New("empty WebSocket URL")
	}

	dialer := websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout}
	if dialer.HandshakeTimeout <= 0 {
		dialer.HandshakeTimeout = defaultHandshakeTimeout
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", wsURL, err)
	}

	c := &Client{
		conn:       conn,
		slowMotion: opts.SlowMotion,
		done:       make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Closed reports whether the connection has been closed.
func (c *Client) Closed() bool {
	return c.closed.Load()
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		err = c.conn.Close()
		c.calls.abandon()
		c.targets.reset()
	})
	return err
}

// Call sends a browser-level command and waits for the response.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return c.send(ctx, "", method, params)
}

// CallSession sends a command to an attached target session.
func (c *Client) CallSession(ctx context.Context, sessionID, method string, params interface{}) (json.RawMessage, error) {
	return c.send(ctx, sessionID, method, params)
}

func (c *Client) send(ctx context.Context, sessionID, method string, params interface{}) (json.RawMessage, error) {
	if c.Closed() {
		return nil, ErrConnectionClosed
	}

	msg := outgoing{ID: c.nextID.Add(1), SessionID: sessionID, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encoding %s params: %w", method, err)
		}
		msg.Params = raw
	}

	if c.slowMotion > 0 {
		t := time.NewTimer(c.slowMotion)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}

	wait := c.calls.add(msg.ID)
	defer c.calls.remove(msg.ID)

	c.writeMu.Lock()
	err := c.conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("sending %s: %w", method, err)
	}

	select {
	case r, ok := <-wait:
		switch {
		case !ok:
			return nil, ErrConnectionClosed
		case r.err != nil:
			return nil, r.err
		}
		return r.result, nil
	case <-c.done:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) readLoop() {
	defer c.Close()

	for {
		var msg incoming
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.ID > 0 {
			c.calls.resolve(msg.ID, reply{result: msg.Result, err: msg.Error})
		}
		if msg.Method != "" {
			c.events.publish(eventKey(msg.SessionID, msg.Method), msg.Params)
		}
	}
}

// attachToTarget returns the flat session for targetID, attaching on first use.
func (c *Client) attachToTarget(ctx context.Context, targetID string) (string, error) {
	if id, ok := c.targets.get(targetID); ok {
		return id, nil
	}

	raw, err := c.Call(ctx, "Target.attachToTarget", map[string]interface{}{
		"targetId": targetID,
		"flatten":  true,
	})
	if err != nil {
		return "", fmt.Errorf("attaching to target %s: %w", targetID, err)
	}

	var attached struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(raw, &attached); err != nil {
		return "", fmt.Errorf("decoding attach reply: %w", err)
	}

	c.targets.put(targetID, attached.SessionID)
	return attached.SessionID, nil
}

func (c *Client) forgetTarget(targetID string) {
	c.targets.drop(targetID)
}

func (c *Client) subscribeEvent(sessionID, method string) chan json.RawMessage {
	return c.events.subscribe(eventKey(sessionID, method))
}

func (c *Client) unsubscribeEvent(sessionID, method string, ch chan json.RawMessage) {
	c.events.unsubscribe(eventKey(sessionID, method), ch)
}

// SetIgnoreCertificateErrors makes the browser accept invalid TLS certificates.
func (c *Client) SetIgnoreCertificateErrors(ctx context.Context, ignore bool) error {
	if _, err := c.Call(ctx, "Security.setIgnoreCertificateErrors", map[string]interface{}{"ignore": ignore}); err != nil {
		return fmt.Errorf("setting certificate error policy: %w", err)
	}
	return nil
}

// CloseBrowser asks the browser to exit. The connection drops as a result, so a
// closed-connection error is not reported.
func (c *Client) CloseBrowser(ctx context.Context) error {
	_, err := c.Call(ctx, "Browser.close", nil)
	if err != nil && !errors.Is(err, ErrConnectionClosed) {
		return fmt.Errorf("closing browser: %w", err)
	}
	return nil
}
