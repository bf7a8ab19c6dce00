package testing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/olahol/melody"

	"github.com/desertthunder/stereo/internal/protocol"
)

// WebSocketTestServer is a melody backed server speaking the stereo protocol at /ws.
type WebSocketTestServer struct {
	Server *httptest.Server
	Melody *melody.Melody

	mu       sync.Mutex
	received []protocol.Message
	connects int
	mute     bool
}

// NewWebSocketTestServer starts a server that decodes every inbound frame and
// passes each message to handler. Heartbeats are echoed before handler sees them.
func NewWebSocketTestServer(t *testing.T, handler func(*melody.Session, protocol.Message)) *WebSocketTestServer {
	t.Helper()

	m := melody.New()
	wsts := &WebSocketTestServer{Melody: m}

	m.HandleConnect(func(*melody.Session) {
		wsts.mu.Lock()
		wsts.connects++
		wsts.mu.Unlock()
	})

	m.HandleMessage(func(s *melody.Session, data []byte) {
		msgs, err := protocol.Decode(data)
		if err != nil {
			t.Logf("test server: %v", err)
		}
		for _, msg := range msgs {
			wsts.mu.Lock()
			wsts.received = append(wsts.received, msg)
			wsts.mu.Unlock()

			wsts.mu.Lock()
			mute := wsts.mute
			wsts.mu.Unlock()

			if hb, ok := msg.(*protocol.Heartbeat); ok && !mute {
				_ = Reply(s, hb)
			}
			if handler != nil {
				handler(s, msg)
			}
		}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if err := m.HandleRequest(w, r); err != nil {
			t.Logf("test server: %v", err)
		}
	})

	wsts.Server = httptest.NewServer(mux)
	t.Cleanup(wsts.Close)

	// Brief wait so the listener accepts before the first dial.
	time.Sleep(5 * time.Millisecond)

	return wsts
}

// URL is the WebSocket endpoint.
func (w *WebSocketTestServer) URL() string {
	return "ws" + strings.TrimPrefix(w.Server.URL, "http") + "/ws"
}

// Send writes msgs to one session as a batch.
func (w *WebSocketTestServer) Send(s *melody.Session, msgs ...protocol.Message) error {
	return Reply(s, msgs...)
}

// Reply writes msgs to s as a batch. It is meant for use inside handlers.
func Reply(s *melody.Session, msgs ...protocol.Message) error {
	data, err := protocol.EncodeBatch(msgs)
	if err != nil {
		return err
	}
	return s.Write(data)
}

// Broadcast writes msgs to every session as a batch.
func (w *WebSocketTestServer) Broadcast(msgs ...protocol.Message) error {
	data, err := protocol.EncodeBatch(msgs)
	if err != nil {
		return err
	}
	return w.Melody.Broadcast(data)
}

// DropSessions closes every open session without stopping the server.
func (w *WebSocketTestServer) DropSessions() {
	sessions, err := w.Melody.Sessions()
	if err != nil {
		return
	}
	for _, s := range sessions {
		_ = s.Close()
	}
}

// Mute stops heartbeat echoes.
func (w *WebSocketTestServer) Mute() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mute = true
}

// Received returns the messages decoded so far.
func (w *WebSocketTestServer) Received() []protocol.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]protocol.Message(nil), w.received...)
}

// Connects returns how many sessions have been opened.
func (w *WebSocketTestServer) Connects() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connects
}

// Close stops melody and the HTTP server.
func (w *WebSocketTestServer) Close() {
	_ = w.Melody.Close()
	w.Server.CloseClientConnections()
	w.Server.Close()
}

// Eventually polls cond until it holds or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
