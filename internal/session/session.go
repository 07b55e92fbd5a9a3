// Package session orchestrates one conversation with the Voice Future
// backend: it connects the transport, runs the capture → encode → chunk →
// send pipeline while streaming, routes inbound events to playback and to a
// [Listener], and applies the EXIT and STOP_AUDIO commands.
//
// The capture pipeline runs on two goroutines per streaming period. The
// encoder goroutine converts float32 capture blocks to LINEAR16 and hands
// immutable byte blocks to the pump goroutine, which exclusively owns the
// [chunk.Buffer] and sends full frames over the transport.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/CADX03/AI-Voice-Assistant/internal/chunk"
	"github.com/CADX03/AI-Voice-Assistant/internal/observe"
	"github.com/CADX03/AI-Voice-Assistant/internal/playback"
	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
	"github.com/CADX03/AI-Voice-Assistant/internal/transport"
	"github.com/CADX03/AI-Voice-Assistant/pkg/audio"
)

// ErrEnded is returned by [Session.StartStreaming] after the conversation
// ended.
var ErrEnded = errors.New("session: conversation ended")

// encodedBacklog is the number of encoded blocks buffered between the
// encoder and the pump (about 1 s of audio at 128 samples per block).
const encodedBacklog = 128

// State is the externally visible state of a [Session].
type State int

const (
	StateIdle State = iota
	StateConnected
	StateStreaming
	StateEnded
)

// String implements [fmt.Stringer].
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateStreaming:
		return "streaming"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Listener receives the conversation as it happens. Methods are called from
// the transport read goroutine and must not block for long.
type Listener interface {
	// OnMessage delivers one display-ready conversation record.
	OnMessage(m protocol.Message)

	// OnConversationEnd is called once when the backend sends EXIT.
	OnConversationEnd()

	// OnBackendError reports a backend "error" message.
	OnBackendError(e protocol.BackendError)
}

// ConnectionListener is optionally implemented by a [Listener] that wants to
// know when the backend drops the connection.
type ConnectionListener interface {
	OnConnectionClosed(err error)
}

// Option configures a [Session].
type Option func(*Session)

// WithConfig sets the configuration message sent when the socket opens.
func WithConfig(p protocol.ConfigParams) Option {
	return func(s *Session) { s.transportOpts = append(s.transportOpts, transport.WithConfig(p)) }
}

// WithTransportOptions passes extra options to the underlying transport.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(s *Session) { s.transportOpts = append(s.transportOpts, opts...) }
}

// WithFrameSize overrides [chunk.DefaultFrameSize].
func WithFrameSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.frameSize = n
		}
	}
}

// WithClock sets the clock used to stamp conversation records.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the logger. Default: [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Session is one conversation. All methods are safe for concurrent use.
type Session struct {
	transport     *transport.Transport
	transportOpts []transport.Option
	source        audio.Source
	player        *playback.Controller
	listener      Listener
	frameSize     int
	now           func() time.Time
	log           *slog.Logger
	metrics       *observe.Metrics

	// streamMu serializes StartStreaming and StopStreaming.
	streamMu sync.Mutex

	mu       sync.Mutex
	stream   audio.Stream
	encoder  *audio.Encoder
	cancel   context.CancelFunc
	pumpDone chan struct{}
}

var _ transport.Events = (*Session)(nil)

// New creates a Session for the backend at url. Capture comes from source and
// replies are played by player.
func New(url string, source audio.Source, player *playback.Controller, listener Listener, opts ...Option) *Session {
	s := &Session{
		source:    source,
		player:    player,
		listener:  listener,
		frameSize: chunk.DefaultFrameSize,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	topts := append([]transport.Option{
		transport.WithLogger(s.log),
		transport.WithMetrics(s.metrics),
	}, s.transportOpts...)
	s.transport = transport.New(url, s, topts...)
	return s
}

// Transport returns the underlying transport.
func (s *Session) Transport() *transport.Transport { return s.transport }

// Connect opens the socket. It is a no-op when connected or ended.
func (s *Session) Connect(ctx context.Context) error {
	return s.transport.Connect(ctx)
}

// StartStreaming connects if needed, opens the playback context (playing any
// reply that arrived early) and starts capturing. It is a no-op while
// already streaming.
func (s *Session) StartStreaming(ctx context.Context) (err error) {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	if s.transport.Ended() {
		return ErrEnded
	}
	if s.streaming() {
		return nil
	}

	ctx, span := observe.StartSpan(ctx, "session.start_streaming")
	defer func() { observe.EndSpan(span, err) }()

	if err := s.transport.Connect(ctx); err != nil {
		return fmt.Errorf("session: connect: %w", err)
	}
	if err := s.player.Open(ctx); err != nil {
		s.log.Warn("session: playback unavailable", "err", err)
	}

	stream, err := s.source.Open(ctx)
	if err != nil {
		return fmt.Errorf("session: open capture: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	encoded := make(chan []byte, encodedBacklog)
	enc := &audio.Encoder{}
	done := make(chan struct{})
	go enc.Run(runCtx, stream.Blocks(), encoded)
	go s.pump(runCtx, encoded, done)

	s.mu.Lock()
	s.stream, s.encoder, s.cancel, s.pumpDone = stream, enc, cancel, done
	s.mu.Unlock()

	observe.Logger(ctx, s.log).Info("session: streaming started")
	return nil
}

// pump owns the chunk buffer for one streaming period.
func (s *Session) pump(ctx context.Context, encoded <-chan []byte, done chan<- struct{}) {
	defer close(done)
	var buf chunk.Buffer
	for block := range encoded {
		buf.Append(block)
		for _, frame := range buf.DrainReady(s.frameSize) {
			if err := s.transport.SendAudioFrame(ctx, frame); err != nil {
				s.log.Debug("session: audio frame not sent", "err", err)
			}
		}
	}
	if n := buf.Len(); n > 0 {
		s.log.Debug("session: discarding partial frame", "bytes", n)
	}
}

// StopStreaming stops capture and waits until the encoder and pump have
// exited. The socket stays open.
func (s *Session) StopStreaming() {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	s.mu.Lock()
	stream, enc, cancel, done := s.stream, s.encoder, s.cancel, s.pumpDone
	s.stream, s.encoder, s.cancel, s.pumpDone = nil, nil, nil, nil
	s.mu.Unlock()
	if stream == nil {
		return
	}

	if err := stream.Close(); err != nil {
		s.log.Warn("session: closing capture", "err", err)
	}
	<-done
	cancel()

	if dropped := enc.Dropped(); dropped > 0 {
		s.metrics.FramesDropped.Add(context.Background(), dropped,
			metric.WithAttributes(observe.Attr("reason", "encoder_backlog")))
		s.log.Warn("session: encoder dropped blocks", "dropped", dropped)
	}
	s.log.Info("session: streaming stopped", "blocks", enc.Encoded())
}

func (s *Session) streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// Disconnect closes the socket. A passive disconnect only closes the socket;
// otherwise streaming stops and the playback context is released, so the next
// reply is held until streaming starts again.
func (s *Session) Disconnect(passive bool) {
	if !passive {
		s.StopStreaming()
		if err := s.player.Close(); err != nil {
			s.log.Warn("session: closing playback", "err", err)
		}
	}
	s.transport.Disconnect()
}

// End terminates the conversation permanently.
func (s *Session) End() {
	s.transport.End()
	s.Disconnect(false)
}

// SendData sends payload wrapped in a "data" envelope. It is dropped when the
// socket is not open.
func (s *Session) SendData(ctx context.Context, payload any) error {
	msg, err := protocol.DataMessage(payload)
	if err != nil {
		return fmt.Errorf("session: send data: %w", err)
	}
	return s.transport.SendControl(ctx, msg)
}

// State reports the current session state.
func (s *Session) State() State {
	switch {
	case s.transport.Ended():
		return StateEnded
	case s.streaming():
		return StateStreaming
	case s.transport.State() == transport.StateOpen:
		return StateConnected
	default:
		return StateIdle
	}
}

// ── transport.Events ─────────────────────────────────────────────────────────

// OnOpen implements [transport.Events].
func (s *Session) OnOpen() {
	s.log.Debug("session: socket open")
}

// OnClose implements [transport.Events].
func (s *Session) OnClose(err error) {
	s.log.Info("session: backend connection closed", "err", err)
	if cl, ok := s.listener.(ConnectionListener); ok {
		cl.OnConnectionClosed(err)
	}
}

// OnBackendError implements [transport.Events].
func (s *Session) OnBackendError(e protocol.BackendError) {
	s.log.Warn("session: backend reported error", "message", e.Message)
	s.listener.OnBackendError(e)
}

// OnData implements [transport.Events].
func (s *Session) OnData(m protocol.BackendMessage) {
	msg, ok := protocol.Process(m)
	if !ok {
		return
	}
	msg.Timestamp = s.now()
	s.listener.OnMessage(msg)
}

// OnCommand implements [transport.Events].
func (s *Session) OnCommand(c protocol.CommandType) {
	switch c {
	case protocol.CommandStopAudio:
		s.log.Debug("session: backend interrupted playback")
		s.player.Stop()
	case protocol.CommandExit:
		s.log.Info("session: backend ended the conversation")
		s.transport.End()
		s.Disconnect(true)
		s.listener.OnConversationEnd()
	}
}

// OnAudio implements [transport.Events].
func (s *Session) OnAudio(data []byte, mime string) {
	s.player.ReceiveBinary(data, mime)
}
