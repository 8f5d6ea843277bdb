package browser

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeBrowser is a DevTools endpoint that answers every command with a
// canned result and can push events
type fakeBrowser struct {
	t   *testing.T
	srv *httptest.Server

	mu      sync.Mutex
	calls   []cdpMessage
	results map[string]any
	errors  map[string]string
	silent  map[string]bool
	ws      *websocket.Conn
	ready   chan struct{}
	writeMu sync.Mutex
}

func newFakeBrowser(t *testing.T) *fakeBrowser {
	t.Helper()
	fb := &fakeBrowser{
		t: t,
		results: map[string]any{
			"Target.getTargets": map[string]any{"targetInfos": []map[string]any{
				{"targetId": "B1", "type": "browser"},
				{"targetId": "T1", "type": "page"},
			}},
			"Target.attachToTarget":      map[string]any{"sessionId": "S1"},
			"Page.getFrameTree":          map[string]any{"frameTree": map[string]any{"frame": map[string]any{"id": "T1"}}},
			"Browser.getWindowForTarget": map[string]any{"windowId": 7},
			"Page.navigate":              map[string]any{"frameId": "T1"},
		},
		errors: map[string]string{},
		silent: map[string]bool{},
		ready:  make(chan struct{}),
	}

	upgrader := websocket.Upgrader{}
	fb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		fb.mu.Lock()
		fb.ws = ws
		fb.mu.Unlock()
		close(fb.ready)
		fb.serve(ws)
	}))
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBrowser) URL() string {
	return "ws" + strings.TrimPrefix(fb.srv.URL, "http") + "/devtools/browser/fake"
}

func (fb *fakeBrowser) serve(ws *websocket.Conn) {
	for {
		var msg cdpMessage
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		fb.mu.Lock()
		fb.calls = append(fb.calls, msg)
		result, hasResult := fb.results[msg.Method]
		errText, hasErr := fb.errors[msg.Method]
		silent := fb.silent[msg.Method]
		fb.mu.Unlock()

		if silent {
			continue
		}
		reply := map[string]any{"id": msg.ID}
		if msg.SessionID != "" {
			reply["sessionId"] = msg.SessionID
		}
		switch {
		case hasErr:
			reply["error"] = map[string]any{"code": -32000, "message": errText}
		case hasResult:
			reply["result"] = result
		default:
			reply["result"] = map[string]any{}
		}
		fb.write(reply)
	}
}

func (fb *fakeBrowser) write(v any) {
	fb.writeMu.Lock()
	defer fb.writeMu.Unlock()
	fb.mu.Lock()
	ws := fb.ws
	fb.mu.Unlock()
	if err := ws.WriteJSON(v); err != nil {
		fb.t.Logf("fake browser write: %v", err)
	}
}

// event pushes a protocol event on sessionID
func (fb *fakeBrowser) event(sessionID, method string, params any) {
	<-fb.ready
	data, err := json.Marshal(params)
	if err != nil {
		fb.t.Fatalf("marshal params: %v", err)
	}
	msg := map[string]any{"method": method, "params": json.RawMessage(data)}
	if sessionID != "" {
		msg["sessionId"] = sessionID
	}
	fb.write(msg)
}

// disconnect drops the websocket from the server side
func (fb *fakeBrowser) disconnect() {
	<-fb.ready
	fb.mu.Lock()
	ws := fb.ws
	fb.mu.Unlock()
	ws.Close()
}

func (fb *fakeBrowser) Calls() []cdpMessage {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]cdpMessage(nil), fb.calls...)
}

func (fb *fakeBrowser) methods() []string {
	var out []string
	for _, c := range fb.Calls() {
		out = append(out, c.Method)
	}
	return out
}

func (fb *fakeBrowser) lastCall(method string) (cdpMessage, bool) {
	calls := fb.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Method == method {
			return calls[i], true
		}
	}
	return cdpMessage{}, false
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
