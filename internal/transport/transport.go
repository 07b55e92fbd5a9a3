// Package transport owns the single WebSocket connection between the client
// and the Voice Future backend.
//
// A [Transport] moves through Disconnected → Connecting → Open → Closed and
// can be flagged as ended, after which [Transport.Connect] is a no-op. The
// optional session configuration is written before the connection is
// published as Open, so no audio frame can ever precede it on the wire.
//
// Inbound messages are read on one goroutine per connection and dispatched in
// arrival order to an [Events] implementation.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.opentelemetry.io/otel/attribute"

	"github.com/CADX03/AI-Voice-Assistant/internal/observe"
	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
)

const (
	// DefaultReadLimit bounds one inbound message. Reply audio arrives as a
	// single binary message, so this is far above the library default.
	DefaultReadLimit int64 = 16 << 20

	// DefaultWriteTimeout bounds a single frame or control write.
	DefaultWriteTimeout = 5 * time.Second

	// DefaultDialTimeout bounds the WebSocket handshake plus the config write.
	DefaultDialTimeout = 10 * time.Second
)

// State is the connection state of a [Transport].
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosed
)

// String implements [fmt.Stringer].
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Events receives everything the read loop observes. Methods are called
// sequentially from the read goroutine, except OnOpen which runs on the
// goroutine that called [Transport.Connect]. Implementations may call back
// into the [Transport].
type Events interface {
	// OnOpen is called once the connection is Open.
	OnOpen()

	// OnClose is called when the connection fails or the backend closes it.
	// It is not called for a local [Transport.Disconnect].
	OnClose(err error)

	// OnBackendError reports an "error" message. The session continues.
	OnBackendError(e protocol.BackendError)

	// OnData delivers a "data" message payload.
	OnData(m protocol.BackendMessage)

	// OnCommand delivers STOP_AUDIO and EXIT commands.
	OnCommand(c protocol.CommandType)

	// OnAudio delivers one binary reply with the most recently announced
	// MIME type.
	OnAudio(data []byte, mime string)
}

// NopEvents ignores every event. Embed it to implement a subset of [Events].
type NopEvents struct{}

func (NopEvents) OnOpen()                              {}
func (NopEvents) OnClose(error)                        {}
func (NopEvents) OnBackendError(protocol.BackendError) {}
func (NopEvents) OnData(protocol.BackendMessage)       {}
func (NopEvents) OnCommand(protocol.CommandType)       {}
func (NopEvents) OnAudio([]byte, string)               {}

var _ Events = NopEvents{}

// Option is a functional option for [New].
type Option func(*Transport)

// WithConfig sets the configuration message sent on every new connection.
// Without it no config message is sent.
func WithConfig(p protocol.ConfigParams) Option {
	return func(t *Transport) { t.config = &p }
}

// WithReadLimit overrides [DefaultReadLimit].
func WithReadLimit(n int64) Option {
	return func(t *Transport) {
		if n > 0 {
			t.readLimit = n
		}
	}
}

// WithWriteTimeout overrides [DefaultWriteTimeout].
func WithWriteTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.writeTimeout = d
		}
	}
}

// WithDialTimeout overrides [DefaultDialTimeout].
func WithDialTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.dialTimeout = d
		}
	}
}

// WithLogger sets the logger. Default: [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.log = l }
}

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(t *Transport) { t.metrics = m }
}

// Transport is a reconnectable client for the backend session socket. All
// methods are safe for concurrent use.
type Transport struct {
	url          string
	events       Events
	readLimit    int64
	writeTimeout time.Duration
	dialTimeout  time.Duration
	log          *slog.Logger
	metrics      *observe.Metrics

	mu     sync.Mutex
	config *protocol.ConfigParams
	state  State
	ended  bool
	gen    uint64 // bumped by every Connect attempt and Disconnect
	conn   *websocket.Conn
	cancel context.CancelFunc
	mime   string
}

// New creates a Transport for url. events must not be nil.
func New(url string, events Events, opts ...Option) *Transport {
	t := &Transport{
		url:          url,
		events:       events,
		readLimit:    DefaultReadLimit,
		writeTimeout: DefaultWriteTimeout,
		dialTimeout:  DefaultDialTimeout,
		mime:         protocol.DefaultAudioMIME,
	}
	for _, o := range opts {
		o(t)
	}
	if t.log == nil {
		t.log = slog.Default()
	}
	if t.metrics == nil {
		t.metrics = observe.DefaultMetrics()
	}
	t.log = t.log.With("url", url)
	return t
}

// URL returns the backend endpoint.
func (t *Transport) URL() string { return t.url }

// SetConfig replaces the configuration sent on the next connection. nil
// disables the config message.
func (t *Transport) SetConfig(p *protocol.ConfigParams) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p == nil {
		t.config = nil
		return
	}
	c := *p
	t.config = &c
}

// Connect opens the connection. It returns nil without dialing when a
// connection exists or is being established, or when the transport has been
// ended. A Disconnect or End that happens while the dial is in flight wins:
// the new connection is closed and Connect returns nil.
func (t *Transport) Connect(ctx context.Context) (err error) {
	t.mu.Lock()
	if t.ended || t.state == StateConnecting || t.state == StateOpen {
		t.mu.Unlock()
		return nil
	}
	t.gen++
	gen := t.gen
	t.state = StateConnecting
	var config *protocol.ConfigParams
	if t.config != nil {
		c := *t.config
		config = &c
	}
	t.mu.Unlock()

	ctx, span := observe.StartSpan(ctx, "transport.connect")
	start := time.Now()
	defer func() {
		t.metrics.RecordConnect(ctx, time.Since(start), err)
		observe.EndSpan(span, err)
	}()

	conn, err := t.dial(ctx, config)
	if err != nil {
		t.mu.Lock()
		if t.gen == gen {
			t.state = StateDisconnected
		}
		t.mu.Unlock()
		t.metrics.RecordError(ctx, "transport")
		return err
	}

	t.mu.Lock()
	if t.gen != gen || t.ended {
		t.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "session superseded")
		span.SetAttributes(attribute.Bool("superseded", true))
		return nil
	}
	readCtx, cancel := context.WithCancel(context.Background())
	t.conn = conn
	t.cancel = cancel
	t.state = StateOpen
	t.mime = protocol.DefaultAudioMIME
	t.mu.Unlock()

	t.metrics.ActiveSessions.Add(ctx, 1)
	observe.Logger(ctx, t.log).Info("session socket open", "config", config != nil)
	t.events.OnOpen()

	go t.readLoop(readCtx, conn, gen)
	return nil
}

// dial performs the handshake and writes the config message.
func (t *Transport) dial(ctx context.Context, config *protocol.ConfigParams) (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, t.dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, t.url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial: %w", err)
	}
	conn.SetReadLimit(t.readLimit)

	if config == nil {
		return conn, nil
	}
	msg, err := protocol.ConfigMessage(*config)
	if err == nil {
		err = conn.Write(ctx, websocket.MessageText, msg)
	}
	if err != nil {
		conn.Close(websocket.StatusInternalError, "config failed")
		return nil, fmt.Errorf("transport: send config: %w", err)
	}
	return conn, nil
}

// Disconnect closes the connection if one exists. It never waits for the read
// loop, so it is safe to call from an [Events] method.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.gen++
	conn, cancel := t.conn, t.cancel
	t.conn, t.cancel = nil, nil
	t.state = StateDisconnected
	t.mu.Unlock()

	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "client disconnect")
		t.metrics.ActiveSessions.Add(context.Background(), -1)
		t.log.Info("session socket closed")
	}
	if cancel != nil {
		cancel()
	}
}

// End marks the transport as permanently ended. It does not close the
// connection; call [Transport.Disconnect] for that.
func (t *Transport) End() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ended = true
}

// Ended reports whether [Transport.End] has been called.
func (t *Transport) Ended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ended
}

// State returns the current connection state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// MIMEType returns the MIME type applied to the next binary message.
func (t *Transport) MIMEType() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mime
}

// SendAudioFrame writes frame as one binary message. When the connection is
// not Open the frame is dropped and nil is returned.
func (t *Transport) SendAudioFrame(ctx context.Context, frame []byte) error {
	conn := t.openConn()
	if conn == nil {
		t.metrics.RecordFrameDropped(ctx, "not_open")
		return nil
	}
	if err := t.write(ctx, conn, websocket.MessageBinary, frame); err != nil {
		t.metrics.RecordFrameDropped(ctx, "write_error")
		return fmt.Errorf("transport: send audio: %w", err)
	}
	t.metrics.RecordFrameSent(ctx, len(frame))
	return nil
}

// SendControl writes msg, an encoded JSON envelope, as one text message.
// When the connection is not Open the message is dropped and nil is returned.
func (t *Transport) SendControl(ctx context.Context, msg []byte) error {
	conn := t.openConn()
	if conn == nil {
		t.log.Debug("control message dropped, socket not open")
		return nil
	}
	if err := t.write(ctx, conn, websocket.MessageText, msg); err != nil {
		return fmt.Errorf("transport: send control: %w", err)
	}
	return nil
}

func (t *Transport) write(ctx context.Context, conn *websocket.Conn, typ websocket.MessageType, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.writeTimeout)
	defer cancel()
	return conn.Write(ctx, typ, data)
}

func (t *Transport) openConn() *websocket.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateOpen {
		return nil
	}
	return t.conn
}

// readLoop reads until the connection fails or ctx is cancelled by
// Disconnect.
func (t *Transport) readLoop(ctx context.Context, conn *websocket.Conn, gen uint64) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			t.handleReadError(gen, err)
			return
		}
		switch typ {
		case websocket.MessageBinary:
			t.metrics.RecordInbound(ctx, "audio")
			t.events.OnAudio(data, t.MIMEType())
		case websocket.MessageText:
			t.dispatch(ctx, data)
		}
	}
}

func (t *Transport) dispatch(ctx context.Context, data []byte) {
	switch m := protocol.Decode(data).(type) {
	case protocol.BackendError:
		t.metrics.RecordInbound(ctx, "error")
		t.metrics.RecordError(ctx, "backend")
		t.events.OnBackendError(m)
	case protocol.AudioMetadata:
		t.metrics.RecordInbound(ctx, "audio_metadata")
		t.mu.Lock()
		t.mime = m.MIMEType
		t.mu.Unlock()
		t.log.Debug("reply audio type announced", "mime", m.MIMEType)
	case protocol.Data:
		t.metrics.RecordInbound(ctx, "data")
		t.events.OnData(m.Message)
	case protocol.Command:
		t.metrics.RecordInbound(ctx, "command")
		t.events.OnCommand(m.Value)
	case protocol.Unknown:
		t.metrics.RecordInbound(ctx, "unknown")
		t.metrics.RecordError(ctx, "protocol")
		t.log.Warn("dropping unrecognized message", "type", m.Type, "reason", m.Reason)
	}
}

// handleReadError reports the end of the connection identified by gen. A
// stale generation means Disconnect already tore it down.
func (t *Transport) handleReadError(gen uint64, err error) {
	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		return
	}
	cancel := t.cancel
	t.conn, t.cancel = nil, nil
	t.state = StateClosed
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	ctx := context.Background()
	t.metrics.ActiveSessions.Add(ctx, -1)

	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		t.log.Info("backend closed session", "err", err)
	default:
		if !errors.Is(err, context.Canceled) {
			t.metrics.RecordError(ctx, "transport")
		}
		t.log.Warn("session socket failed", "err", err)
	}
	t.events.OnClose(err)
}
