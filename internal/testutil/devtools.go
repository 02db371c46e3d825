package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// FakeCall is a command received by a FakeBrowser.
type FakeCall struct {
	SessionID string
	Method    string
	Params    json.RawMessage
}

// FakeEvent is a protocol event sent on the calling session after a reply.
type FakeEvent struct {
	Method string
	Params interface{}
}

// FakeReply is the scripted answer to a FakeCall.
type FakeReply struct {
	Result interface{}
	// ErrCode and ErrMessage, when ErrMessage is set, produce a protocol error.
	ErrCode    int
	ErrMessage string
	Events     []FakeEvent
}

// FakeHandler answers one protocol method.
type FakeHandler func(call FakeCall) FakeReply

// FakeBrowser is an in-process DevTools WebSocket endpoint. Unscripted methods
// reply with an empty result; Target.attachToTarget replies with a session ID
// derived from the target ID.
type FakeBrowser struct {
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]FakeHandler
	calls    []FakeCall
	conns    []*websocket.Conn
}

// NewFakeBrowser starts a FakeBrowser that is closed when the test ends.
func NewFakeBrowser(t testing.TB) *FakeBrowser {
	t.Helper()

	fb := &FakeBrowser{handlers: make(map[string]FakeHandler)}
	fb.Handle("Target.attachToTarget", func(call FakeCall) FakeReply {
		var p struct {
			TargetID string `json:"targetId"`
		}
		_ = json.Unmarshal(call.Params, &p)
		return FakeReply{Result: map[string]string{"sessionId": "session-" + p.TargetID}}
	})

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	fb.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fb.mu.Lock()
		fb.conns = append(fb.conns, conn)
		fb.mu.Unlock()
		fb.serve(conn)
	}))
	t.Cleanup(fb.Close)

	return fb
}

// URL returns the browser WebSocket URL.
func (fb *FakeBrowser) URL() string {
	return "ws" + strings.TrimPrefix(fb.server.URL, "http") + "/devtools/browser/fake"
}

// Handle scripts the reply for method.
func (fb *FakeBrowser) Handle(method string, h FakeHandler) {
	fb.mu.Lock()
	fb.handlers[method] = h
	fb.mu.Unlock()
}

// Reply scripts a fixed result for method.
func (fb *FakeBrowser) Reply(method string, result interface{}) {
	fb.Handle(method, func(FakeCall) FakeReply { return FakeReply{Result: result} })
}

// Calls returns the commands received so far.
func (fb *FakeBrowser) Calls() []FakeCall {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]FakeCall(nil), fb.calls...)
}

// CallsTo returns the commands received for method.
func (fb *FakeBrowser) CallsTo(method string) []FakeCall {
	var out []FakeCall
	for _, c := range fb.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// DropConnections closes every open client connection.
func (fb *FakeBrowser) DropConnections() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, c := range fb.conns {
		c.Close()
	}
	fb.conns = nil
}

// Close stops the server.
func (fb *FakeBrowser) Close() {
	fb.DropConnections()
	fb.server.Close()
}

func (fb *FakeBrowser) serve(conn *websocket.Conn) {
	for {
		var req struct {
			ID        int64           `json:"id"`
			SessionID string          `json:"sessionId"`
			Method    string          `json:"method"`
			Params    json.RawMessage `json:"params"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		call := FakeCall{SessionID: req.SessionID, Method: req.Method, Params: req.Params}
		fb.mu.Lock()
		fb.calls = append(fb.calls, call)
		h := fb.handlers[req.Method]
		fb.mu.Unlock()

		reply := FakeReply{Result: map[string]interface{}{}}
		if h != nil {
			reply = h(call)
		}

		resp := map[string]interface{}{"id": req.ID}
		if reply.ErrMessage != "" {
			resp["error"] = map[string]interface{}{"code": reply.ErrCode, "message": reply.ErrMessage}
		} else {
			result := reply.Result
			if result == nil {
				result = map[string]interface{}{}
			}
			resp["result"] = result
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}

		for _, ev := range reply.Events {
			msg := map[string]interface{}{"method": ev.Method, "params": ev.Params}
			if req.SessionID != "" {
				msg["sessionId"] = req.SessionID
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}
