// Package mock provides in-memory mock implementations of the [audio.Source],
// [audio.Stream], [audio.Output], [audio.Device], and [audio.Voice] interfaces
// for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so that
// tests can assert on call counts and arguments, and they expose exported fields
// that the test can set to control return values.
//
// Typical usage:
//
//	src := &mock.Source{}
//	out := &mock.Output{}
//	stream, _ := src.Open(ctx)
//	src.Last().Push([]float32{0.1, 0.2})
package mock

import (
	"context"
	"sync"

	"github.com/CADX03/AI-Voice-Assistant/pkg/audio"
)

// ─── Stream ───────────────────────────────────────────────────────────────────

// Stream is a mock implementation of [audio.Stream]. Blocks are injected with
// [Stream.Push]; Close closes the Blocks channel.
type Stream struct {
	mu     sync.Mutex
	blocks chan []float32
	closed bool

	// CloseError is returned by [Stream.Close].
	CloseError error

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

// NewStream returns a Stream whose Blocks channel buffers up to size blocks.
func NewStream(size int) *Stream {
	return &Stream{blocks: make(chan []float32, size)}
}

// Blocks implements [audio.Stream].
func (s *Stream) Blocks() <-chan []float32 { return s.blocks }

// Push delivers a block to the consumer. It reports false when the stream is
// already closed.
func (s *Stream) Push(block []float32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.blocks <- block
	return true
}

// Close implements [audio.Stream]. Closes the Blocks channel on first call.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	if !s.closed {
		s.closed = true
		close(s.blocks)
	}
	return s.CloseError
}

// Closed reports whether Close has been called.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ─── Source ───────────────────────────────────────────────────────────────────

// Source is a mock implementation of [audio.Source]. Every successful Open
// returns a fresh [Stream] buffered to BufferSize (default 64).
type Source struct {
	mu sync.Mutex

	// OpenError is returned by Open when non-nil.
	OpenError error

	// BufferSize sets the Blocks buffer of streams created by Open.
	BufferSize int

	// Streams records the streams returned by Open, in order.
	Streams []*Stream
}

// Open implements [audio.Source].
func (s *Source) Open(_ context.Context) (audio.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenError != nil {
		return nil, s.OpenError
	}
	size := s.BufferSize
	if size <= 0 {
		size = 64
	}
	st := NewStream(size)
	s.Streams = append(s.Streams, st)
	return st, nil
}

// Last returns the most recently opened stream, or nil.
func (s *Source) Last() *Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Streams) == 0 {
		return nil
	}
	return s.Streams[len(s.Streams)-1]
}

// CallCountOpen returns how many streams were opened.
func (s *Source) CallCountOpen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Streams)
}

// ─── Voice ────────────────────────────────────────────────────────────────────

// Voice is a mock implementation of [audio.Voice].
type Voice struct {
	// Clip is the clip this voice was started with.
	Clip audio.AudioFrame

	mu        sync.Mutex
	once      sync.Once
	done      chan struct{}
	stopped   bool
	callStops int
	device    *Device
}

// Stop implements [audio.Voice].
func (v *Voice) Stop() {
	v.mu.Lock()
	v.callStops++
	first := !v.stopped
	v.stopped = true
	v.mu.Unlock()
	if first {
		v.finish()
	}
}

// Done implements [audio.Voice].
func (v *Voice) Done() <-chan struct{} { return v.done }

// Finish simulates natural completion of the clip.
func (v *Voice) Finish() { v.finish() }

// Stopped reports whether Stop was called.
func (v *Voice) Stopped() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopped
}

// CallCountStop records how many times Stop was called.
func (v *Voice) CallCountStop() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.callStops
}

func (v *Voice) finish() {
	v.once.Do(func() {
		v.device.release()
		close(v.done)
	})
}

// ─── Device ───────────────────────────────────────────────────────────────────

// Device is a mock implementation of [audio.Device]. It tracks how many voices
// are audible at once in MaxAudible.
type Device struct {
	mu sync.Mutex

	// FormatResult is returned by Format. Defaults to 16 kHz mono.
	FormatResult audio.Format

	// PlayError is returned by Play when non-nil.
	PlayError error

	// CloseError is returned by Close.
	CloseError error

	// Voices records every voice started by Play.
	Voices []*Voice

	// CallCountClose records how many times Close was called.
	CallCountClose int

	audible    int
	maxAudible int
}

// Format implements [audio.Device].
func (d *Device) Format() audio.Format {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FormatResult == (audio.Format{}) {
		return audio.Format{SampleRate: audio.CaptureRate, Channels: 1}
	}
	return d.FormatResult
}

// Play implements [audio.Device].
func (d *Device) Play(clip audio.AudioFrame) (audio.Voice, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.PlayError != nil {
		return nil, d.PlayError
	}
	v := &Voice{Clip: clip, done: make(chan struct{}), device: d}
	d.Voices = append(d.Voices, v)
	d.audible++
	if d.audible > d.maxAudible {
		d.maxAudible = d.audible
	}
	return v, nil
}

// Close implements [audio.Device]. Stops all voices.
func (d *Device) Close() error {
	d.mu.Lock()
	d.CallCountClose++
	voices := make([]*Voice, len(d.Voices))
	copy(voices, d.Voices)
	err := d.CloseError
	d.mu.Unlock()
	for _, v := range voices {
		v.Stop()
	}
	return err
}

// Played returns a snapshot of the voices started so far.
func (d *Device) Played() []*Voice {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Voice, len(d.Voices))
	copy(out, d.Voices)
	return out
}

// Audible returns the number of voices currently playing.
func (d *Device) Audible() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.audible
}

// MaxAudible returns the highest number of simultaneously playing voices.
func (d *Device) MaxAudible() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxAudible
}

func (d *Device) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.audible--
}

// ─── Output ───────────────────────────────────────────────────────────────────

// Output is a mock implementation of [audio.Output]. Each successful Open
// returns a fresh [Device].
type Output struct {
	mu sync.Mutex

	// OpenError is returned by Open when non-nil.
	OpenError error

	// Devices records the devices returned by Open, in order.
	Devices []*Device
}

// Open implements [audio.Output].
func (o *Output) Open(_ context.Context) (audio.Device, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.OpenError != nil {
		return nil, o.OpenError
	}
	d := &Device{}
	o.Devices = append(o.Devices, d)
	return d, nil
}

// Last returns the most recently opened device, or nil.
func (o *Output) Last() *Device {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.Devices) == 0 {
		return nil
	}
	return o.Devices[len(o.Devices)-1]
}

// CallCountOpen returns how many devices were opened.
func (o *Output) CallCountOpen() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Devices)
}
