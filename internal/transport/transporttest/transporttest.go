// Package transporttest provides an in-process fake of the Voice Future
// backend and a recording [transport.Events] implementation for tests.
package transporttest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
	"github.com/CADX03/AI-Voice-Assistant/internal/transport"
)

// Timeout bounds every wait performed by this package.
const Timeout = 2 * time.Second

// Message is one WebSocket message received by the fake backend.
type Message struct {
	Type websocket.MessageType
	Data []byte
}

// Conn is the server side of one accepted client connection.
type Conn struct {
	ws       *websocket.Conn
	ctx      context.Context
	messages chan Message
}

// Next returns the next message sent by the client, failing the test after
// [Timeout]. ok is false when the client closed the connection.
func (c *Conn) Next(t testing.TB) (msg Message, ok bool) {
	t.Helper()
	select {
	case msg, ok = <-c.messages:
		return msg, ok
	case <-time.After(Timeout):
		t.Fatal("timed out waiting for client message")
		return Message{}, false
	}
}

// WaitClosed blocks until the client side has gone away.
func (c *Conn) WaitClosed(t testing.TB) {
	t.Helper()
	deadline := time.After(Timeout)
	for {
		select {
		case _, ok := <-c.messages:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for client to close")
			return
		}
	}
}

// SendJSON writes v as a text message.
func (c *Conn) SendJSON(t testing.TB, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	c.SendText(t, string(data))
}

// SendText writes s as a text message.
func (c *Conn) SendText(t testing.TB, s string) {
	t.Helper()
	if err := c.ws.Write(c.ctx, websocket.MessageText, []byte(s)); err != nil {
		t.Fatalf("write text: %v", err)
	}
}

// SendBinary writes data as a binary message.
func (c *Conn) SendBinary(t testing.TB, data []byte) {
	t.Helper()
	if err := c.ws.Write(c.ctx, websocket.MessageBinary, data); err != nil {
		t.Fatalf("write binary: %v", err)
	}
}

// SendCommand writes a command envelope.
func (c *Conn) SendCommand(t testing.TB, cmd protocol.CommandType) {
	t.Helper()
	c.SendJSON(t, map[string]any{
		"type":    protocol.TypeCommand,
		"payload": map[string]any{"value": cmd},
	})
}

// SendData writes a data envelope carrying m.
func (c *Conn) SendData(t testing.TB, m protocol.BackendMessage) {
	t.Helper()
	c.SendJSON(t, map[string]any{"type": protocol.TypeData, "payload": m})
}

// SendAudioMetadata announces the MIME type of subsequent binary messages.
func (c *Conn) SendAudioMetadata(t testing.TB, mime string) {
	t.Helper()
	c.SendJSON(t, map[string]any{
		"type":    protocol.TypeAudio,
		"payload": map[string]any{"type": "audio_metadata", "mime_type": mime},
	})
}

// Close closes the connection from the server side.
func (c *Conn) Close(code websocket.StatusCode, reason string) {
	c.ws.Close(code, reason)
}

// Server is a fake backend. Every accepted connection is delivered on
// [Server.NextConn].
type Server struct {
	srv   *httptest.Server
	conns chan *Conn

	mu      sync.Mutex
	accepts int
}

// NewServer starts a fake backend that is shut down when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{conns: make(chan *Conn, 8)}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	ws.SetReadLimit(-1)
	s.mu.Lock()
	s.accepts++
	s.mu.Unlock()

	c := &Conn{ws: ws, ctx: r.Context(), messages: make(chan Message, 1024)}
	s.conns <- c

	defer close(c.messages)
	for {
		typ, data, err := ws.Read(r.Context())
		if err != nil {
			return
		}
		c.messages <- Message{Type: typ, Data: data}
	}
}

// URL returns the ws:// endpoint of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

// Accepts returns the number of WebSocket handshakes completed so far.
func (s *Server) Accepts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepts
}

// NextConn returns the next accepted connection, failing the test after
// [Timeout].
func (s *Server) NextConn(t testing.TB) *Conn {
	t.Helper()
	select {
	case c := <-s.conns:
		return c
	case <-time.After(Timeout):
		t.Fatal("timed out waiting for client connection")
		return nil
	}
}

// Audio is one reply delivered through [transport.Events.OnAudio].
type Audio struct {
	Data []byte
	MIME string
}

// Recorder is a [transport.Events] implementation that forwards every event
// onto a buffered channel.
type Recorder struct {
	Opens         chan struct{}
	Closes        chan error
	BackendErrors chan protocol.BackendError
	Data          chan protocol.BackendMessage
	Commands      chan protocol.CommandType
	Audio         chan Audio
}

var _ transport.Events = (*Recorder)(nil)

// NewRecorder returns a Recorder with generously buffered channels.
func NewRecorder() *Recorder {
	return &Recorder{
		Opens:         make(chan struct{}, 16),
		Closes:        make(chan error, 16),
		BackendErrors: make(chan protocol.BackendError, 16),
		Data:          make(chan protocol.BackendMessage, 64),
		Commands:      make(chan protocol.CommandType, 16),
		Audio:         make(chan Audio, 16),
	}
}

func (r *Recorder) OnOpen()                                { r.Opens <- struct{}{} }
func (r *Recorder) OnClose(err error)                      { r.Closes <- err }
func (r *Recorder) OnBackendError(e protocol.BackendError) { r.BackendErrors <- e }
func (r *Recorder) OnData(m protocol.BackendMessage)       { r.Data <- m }
func (r *Recorder) OnCommand(c protocol.CommandType)       { r.Commands <- c }
func (r *Recorder) OnAudio(data []byte, mime string)       { r.Audio <- Audio{Data: data, MIME: mime} }

// Receive waits for one value on ch, failing the test after [Timeout].
func Receive[T any](t testing.TB, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(Timeout):
		t.Fatal("timed out waiting for event")
		var zero T
		return zero
	}
}

// Eventually polls cond until it holds, failing the test after [Timeout].
func Eventually(t testing.TB, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(Timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met: %s", msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
