// Package playback plays synthesized replies from the backend.
//
// A [Controller] owns the output context (an [audio.Device]) and at most one
// playing clip. Replies that arrive before the conversation has started are
// kept as a single pending payload and played once the output opens.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/CADX03/AI-Voice-Assistant/internal/observe"
	"github.com/CADX03/AI-Voice-Assistant/pkg/audio"
	"github.com/CADX03/AI-Voice-Assistant/pkg/audio/codec"
)

// ErrNoDevice is returned by [Controller.Play] when the output is not open.
var ErrNoDevice = errors.New("playback: output not open")

// Option configures a [Controller].
type Option func(*Controller)

// WithLogger sets the logger. Default: [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

type pendingAudio struct {
	data []byte
	mime string
}

// Controller plays decoded replies on one output device, one clip at a time.
// All methods are safe for concurrent use.
type Controller struct {
	output  audio.Output
	codecs  *codec.Registry
	log     *slog.Logger
	metrics *observe.Metrics

	// playMu serializes Play, Stop and Close so that stopping the previous
	// clip and starting the next one is atomic.
	playMu sync.Mutex

	mu      sync.Mutex
	device  audio.Device
	conv    *audio.FormatConverter
	current audio.Voice
	pending *pendingAudio
	started bool
}

// New returns a Controller that opens devices on output and decodes replies
// with codecs.
func New(output audio.Output, codecs *codec.Registry, opts ...Option) *Controller {
	c := &Controller{output: output, codecs: codecs}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Open creates the output context if absent, marks the conversation as
// started and plays any pending reply.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	c.started = true
	if c.device != nil {
		c.mu.Unlock()
		return c.FlushPending()
	}
	c.mu.Unlock()

	dev, err := c.output.Open(ctx)
	if err != nil {
		return fmt.Errorf("playback: open output: %w", err)
	}

	c.mu.Lock()
	if c.device != nil {
		// Lost a race with a concurrent Open.
		c.mu.Unlock()
		_ = dev.Close()
		return c.FlushPending()
	}
	c.device = dev
	c.conv = &audio.FormatConverter{Target: dev.Format()}
	c.mu.Unlock()
	c.log.Debug("playback: output open", "format", dev.Format())

	return c.FlushPending()
}

// FlushPending decodes and plays the pending reply, if any, exactly once.
func (c *Controller) FlushPending() error {
	c.mu.Lock()
	p := c.pending
	if p == nil || c.device == nil {
		c.mu.Unlock()
		return nil
	}
	c.pending = nil
	c.mu.Unlock()

	c.log.Debug("playback: playing pending reply", "mime", p.mime, "bytes", len(p.data))
	return c.decodeAndPlay(p.data, p.mime)
}

// ReceiveBinary handles one binary reply. Without an output context the
// payload is kept as pending until [Controller.Open], unless the conversation
// already started, in which case it is dropped. With a context the payload is
// decoded and played, replacing the current clip.
func (c *Controller) ReceiveBinary(raw []byte, mime string) {
	c.mu.Lock()
	if c.device == nil {
		if !c.started {
			c.pending = &pendingAudio{data: append([]byte(nil), raw...), mime: mime}
			c.mu.Unlock()
			c.metrics.RecordPlayback(context.Background(), "pending")
			c.log.Debug("playback: reply stored until output opens", "mime", mime, "bytes", len(raw))
			return
		}
		c.mu.Unlock()
		c.metrics.RecordError(context.Background(), "ordering")
		c.log.Error("playback: reply arrived without output context, dropping", "mime", mime, "bytes", len(raw))
		return
	}
	c.mu.Unlock()

	_ = c.decodeAndPlay(raw, mime)
}

func (c *Controller) decodeAndPlay(raw []byte, mime string) error {
	ctx := context.Background()
	start := time.Now()
	clip, err := c.codecs.Decode(mime, raw)
	c.metrics.RecordDecode(ctx, codec.NormalizeMIME(mime), time.Since(start))
	if err != nil {
		c.metrics.RecordError(ctx, "decode")
		c.log.Warn("playback: dropping undecodable reply", "mime", mime, "bytes", len(raw), "err", err)
		return err
	}
	if err := c.Play(clip); err != nil {
		c.log.Warn("playback: play failed", "err", err)
		return err
	}
	return nil
}

// Play stops the current clip and starts clip. It returns as soon as the new
// clip has started.
func (c *Controller) Play(clip audio.AudioFrame) error {
	c.playMu.Lock()
	defer c.playMu.Unlock()

	c.stopLocked()

	c.mu.Lock()
	dev, conv := c.device, c.conv
	c.mu.Unlock()
	if dev == nil {
		return ErrNoDevice
	}

	v, err := dev.Play(conv.Convert(clip))
	if err != nil {
		return fmt.Errorf("playback: play: %w", err)
	}
	c.mu.Lock()
	c.current = v
	c.mu.Unlock()
	c.metrics.RecordPlayback(context.Background(), "started")

	go c.watch(v)
	return nil
}

// watch clears the current reference when v finishes on its own.
func (c *Controller) watch(v audio.Voice) {
	<-v.Done()
	c.mu.Lock()
	natural := c.current == v
	if natural {
		c.current = nil
	}
	c.mu.Unlock()
	if natural {
		c.metrics.RecordPlayback(context.Background(), "finished")
	}
}

// Stop halts the current clip. It is a no-op when nothing is playing.
func (c *Controller) Stop() {
	c.playMu.Lock()
	defer c.playMu.Unlock()
	c.stopLocked()
}

// stopLocked requires playMu.
func (c *Controller) stopLocked() {
	c.mu.Lock()
	v := c.current
	c.current = nil
	c.mu.Unlock()
	if v == nil {
		return
	}
	v.Stop()
	c.metrics.RecordPlayback(context.Background(), "interrupted")
}

// Close stops playback, releases the output context, clears pending audio and
// resets the conversation-started flag.
func (c *Controller) Close() error {
	c.playMu.Lock()
	defer c.playMu.Unlock()
	c.stopLocked()

	c.mu.Lock()
	dev := c.device
	c.device, c.conv = nil, nil
	c.pending = nil
	c.started = false
	c.mu.Unlock()

	if dev == nil {
		return nil
	}
	if err := dev.Close(); err != nil {
		return fmt.Errorf("playback: close output: %w", err)
	}
	return nil
}

// Playing reports whether a clip is currently playing.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Started reports whether the conversation has started.
func (c *Controller) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// HasPending reports whether a reply is waiting for the output to open.
func (c *Controller) HasPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// IsOpen reports whether the output context exists.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device != nil
}
