// Package capture provides [audio.Source] implementations that stand in for
// a microphone: a recorder subprocess (e.g. arecord or ffmpeg), standard
// input, or an audio file replayed at capture speed.
//
// Every source delivers mono float32 blocks of [audio.BlockSize] samples at
// [audio.CaptureRate].
package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/CADX03/AI-Voice-Assistant/pkg/audio"
)

// Encoding names the sample format of a raw capture byte stream.
type Encoding string

const (
	// EncodingS16LE is signed 16-bit little-endian PCM.
	EncodingS16LE Encoding = "s16le"
	// EncodingF32LE is 32-bit IEEE float little-endian PCM.
	EncodingF32LE Encoding = "f32le"
)

// IsValid reports whether e is a supported encoding.
func (e Encoding) IsValid() bool {
	return e == EncodingS16LE || e == EncodingF32LE
}

// bytesPerSample returns the width of one sample in e.
func (e Encoding) bytesPerSample() int {
	if e == EncodingF32LE {
		return 4
	}
	return 2
}

// ErrBusy is returned by Open when the source already has an active stream.
var ErrBusy = errors.New("capture: source already open")

// blockStream is the shared [audio.Stream] implementation. A single
// goroutine produces blocks until it runs out of input or stop is closed.
type blockStream struct {
	blocks chan []float32
	stop   chan struct{}
	done   chan struct{}

	mu     sync.Mutex
	closed bool

	closeOnce sync.Once
	release   func() error
	closeErr  error
}

func newBlockStream(release func() error) *blockStream {
	return &blockStream{
		blocks:  make(chan []float32, 32),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		release: release,
	}
}

// Blocks implements [audio.Stream].
func (s *blockStream) Blocks() <-chan []float32 { return s.blocks }

// Close implements [audio.Stream]. It waits for the producer goroutine to
// exit, so no block is delivered after Close returns.
func (s *blockStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		if s.release != nil {
			s.closeErr = s.release()
		}
		<-s.done
	})
	return s.closeErr
}

// emit delivers block to the consumer. It reports false once the stream is
// closed and the producer should exit.
func (s *blockStream) emit(block []float32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.blocks <- block:
		return true
	case <-s.stop:
		return false
	}
}

// run starts produce on its own goroutine and closes the block channel when
// it returns.
func (s *blockStream) run(produce func()) {
	go func() {
		defer close(s.done)
		defer close(s.blocks)
		produce()
	}()
}

// readBlocks converts a raw sample byte stream into capture blocks and hands
// each to emit until emit reports false or the stream ends.
func readBlocks(r io.Reader, enc Encoding, emit func([]float32) bool) error {
	width := enc.bytesPerSample()
	buf := make([]byte, audio.BlockSize*width)
	for {
		n, err := io.ReadFull(r, buf)
		if n >= width {
			if !emit(decodeSamples(buf[:n-n%width], enc)) {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
	}
}

func decodeSamples(b []byte, enc Encoding) []float32 {
	if enc == EncodingF32LE {
		out := make([]float32, len(b)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
		}
		return out
	}
	return audio.DecodeLinear16(b)
}

// pacer throttles a producer to real time: wait blocks until the wall-clock
// length of all samples emitted so far has elapsed.
type pacer struct {
	start   time.Time
	samples int
}

func (p *pacer) wait(stop <-chan struct{}, n int) bool {
	if p.start.IsZero() {
		p.start = time.Now()
	}
	p.samples += n
	due := p.start.Add(time.Duration(p.samples) * time.Second / audio.CaptureRate)
	d := time.Until(due)
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-stop:
		return false
	}
}

// exclusive guards a source against concurrent streams.
type exclusive struct {
	mu     sync.Mutex
	active bool
}

func (e *exclusive) acquire() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active {
		return ErrBusy
	}
	e.active = true
	return nil
}

func (e *exclusive) release() {
	e.mu.Lock()
	e.active = false
	e.mu.Unlock()
}

// Command captures from a recorder subprocess writing raw mono samples at
// [audio.CaptureRate] to stdout, e.g.
//
//	arecord -q -f S16_LE -r 16000 -c 1 -t raw
//
// Each stream starts a fresh process; closing the stream kills it.
type Command struct {
	Name     string
	Args     []string
	Encoding Encoding

	guard exclusive
}

// Open implements [audio.Source].
func (c *Command) Open(ctx context.Context) (audio.Stream, error) {
	if !c.Encoding.IsValid() {
		return nil, fmt.Errorf("capture: unsupported encoding %q", c.Encoding)
	}
	if err := c.guard.acquire(); err != nil {
		return nil, err
	}

	cmd := exec.Command(c.Name, c.Args...)
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		c.guard.release()
		return nil, fmt.Errorf("capture: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		c.guard.release()
		return nil, fmt.Errorf("capture: start %s: %w", c.Name, err)
	}
	slog.Debug("capture: recorder started", "command", c.Name, "pid", cmd.Process.Pid)

	s := newBlockStream(func() error {
		return ignoreFinished(cmd.Process.Kill())
	})
	s.run(func() {
		defer c.guard.release()
		if err := readBlocks(stdout, c.Encoding, s.emit); err != nil {
			select {
			case <-s.stop:
			default:
				slog.Warn("capture: recorder read failed", "command", c.Name, "err", err)
			}
		}
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})
	return s, nil
}

func ignoreFinished(err error) error {
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Reader captures from a byte stream that cannot be interrupted, such as
// standard input. A single background goroutine reads R for the lifetime of
// the source; once its small buffer is full, samples read while no stream is
// open are discarded, the way a muted microphone discards sound.
type Reader struct {
	R        io.Reader
	Encoding Encoding

	guard exclusive
	once  sync.Once
	feed  chan []float32
}

func (r *Reader) start() {
	r.feed = make(chan []float32, 32)
	go func() {
		defer close(r.feed)
		err := readBlocks(r.R, r.Encoding, func(b []float32) bool {
			select {
			case r.feed <- b:
			default:
			}
			return true
		})
		if err != nil {
			slog.Warn("capture: reader failed", "err", err)
		}
	}()
}

// Open implements [audio.Source]. The returned stream ends when R is
// exhausted.
func (r *Reader) Open(_ context.Context) (audio.Stream, error) {
	if !r.Encoding.IsValid() {
		return nil, fmt.Errorf("capture: unsupported encoding %q", r.Encoding)
	}
	if err := r.guard.acquire(); err != nil {
		return nil, err
	}
	r.once.Do(r.start)

	s := newBlockStream(nil)
	s.run(func() {
		defer r.guard.release()
		for {
			select {
			case <-s.stop:
				return
			case b, ok := <-r.feed:
				if !ok || !s.emit(b) {
					return
				}
			}
		}
	})
	return s, nil
}
