package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CADX03/AI-Voice-Assistant/pkg/audio"
	"github.com/CADX03/AI-Voice-Assistant/pkg/audio/codec"
)

// chunkDuration is the amount of audio written per pacing step.
const chunkDuration = 20 * time.Millisecond

// ── Paced device ──────────────────────────────────────────────────────────────

// clipSink receives the PCM of one clip while it plays. Close is called once
// when the clip ends, whether it finished or was stopped.
type clipSink interface {
	io.Writer
	Close() error
}

// pacedDevice plays each clip by writing it to a sink in real time, so that
// stopping a clip truncates it the way stopping a speaker would.
type pacedDevice struct {
	format  audio.Format
	newSink func(clip audio.AudioFrame) (clipSink, error)
	onClose func() error

	mu     sync.Mutex
	voices map[*pacedVoice]struct{}
	closed bool
}

var _ audio.Device = (*pacedDevice)(nil)

func newPacedDevice(format audio.Format, newSink func(audio.AudioFrame) (clipSink, error), onClose func() error) *pacedDevice {
	return &pacedDevice{
		format:  format,
		newSink: newSink,
		onClose: onClose,
		voices:  make(map[*pacedVoice]struct{}),
	}
}

func (d *pacedDevice) Format() audio.Format { return d.format }

func (d *pacedDevice) Play(clip audio.AudioFrame) (audio.Voice, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New("playback: device closed")
	}
	sink, err := d.newSink(clip)
	if err != nil {
		return nil, err
	}
	v := &pacedVoice{stop: make(chan struct{}), done: make(chan struct{})}
	d.voices[v] = struct{}{}
	go func() {
		v.run(sink, clip)
		d.mu.Lock()
		delete(d.voices, v)
		d.mu.Unlock()
	}()
	return v, nil
}

func (d *pacedDevice) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	voices := make([]*pacedVoice, 0, len(d.voices))
	for v := range d.voices {
		voices = append(voices, v)
	}
	d.mu.Unlock()

	for _, v := range voices {
		v.Stop()
	}
	if d.onClose != nil {
		return d.onClose()
	}
	return nil
}

// pacedVoice streams one clip to its sink.
type pacedVoice struct {
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Stop interrupts the clip and waits until its sink is closed.
func (v *pacedVoice) Stop() {
	v.stopOnce.Do(func() { close(v.stop) })
	<-v.done
}

func (v *pacedVoice) Done() <-chan struct{} { return v.done }

func (v *pacedVoice) run(sink clipSink, clip audio.AudioFrame) {
	defer close(v.done)
	defer func() {
		if err := sink.Close(); err != nil {
			slog.Warn("playback: closing clip sink", "err", err)
		}
	}()

	frameBytes := 2 * max(clip.Channels, 1)
	step := int(chunkDuration * time.Duration(clip.SampleRate) / time.Second)
	step = max(step, 1) * frameBytes

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	start := time.Now()
	for off := 0; off < len(clip.Data); {
		end := min(off+step, len(clip.Data))
		if _, err := sink.Write(clip.Data[off:end]); err != nil {
			slog.Warn("playback: writing clip", "err", err)
			return
		}
		off = end

		played := audio.AudioFrame{Data: clip.Data[:off], SampleRate: clip.SampleRate, Channels: clip.Channels}
		timer.Reset(time.Until(start.Add(played.Duration())))
		select {
		case <-v.stop:
			return
		case <-timer.C:
		}
	}
}

type nopSink struct{ io.Writer }

func (nopSink) Close() error { return nil }

// ── Outputs ───────────────────────────────────────────────────────────────────

// Discard is an [audio.Output] that plays clips in real time into silence.
type Discard struct {
	// Format is the device format. Zero means 16 kHz mono.
	Format audio.Format
}

// Open implements [audio.Output].
func (o Discard) Open(_ context.Context) (audio.Device, error) {
	return newPacedDevice(defaultFormat(o.Format), func(audio.AudioFrame) (clipSink, error) {
		return nopSink{io.Discard}, nil
	}, nil), nil
}

// WAVDir is an [audio.Output] that writes every clip, as far as it was
// played, to a numbered WAV file in Dir.
type WAVDir struct {
	Dir    string
	Format audio.Format

	seq atomic.Int64
}

// Open implements [audio.Output]. The directory is created if missing.
func (o *WAVDir) Open(_ context.Context) (audio.Device, error) {
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("playback: create %s: %w", o.Dir, err)
	}
	format := defaultFormat(o.Format)
	return newPacedDevice(format, func(audio.AudioFrame) (clipSink, error) {
		n := o.seq.Add(1)
		return &wavSink{
			path:   filepath.Join(o.Dir, fmt.Sprintf("reply-%04d.wav", n)),
			format: format,
		}, nil
	}, nil), nil
}

// wavSink buffers a clip and writes it as a WAV file on Close.
type wavSink struct {
	path   string
	format audio.Format
	buf    bytes.Buffer
}

func (s *wavSink) Write(p []byte) (int, error) { return s.buf.Write(p) }

func (s *wavSink) Close() error {
	data, err := codec.EncodeWAV(audio.AudioFrame{
		Data:       s.buf.Bytes(),
		SampleRate: s.format.SampleRate,
		Channels:   s.format.Channels,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Exec is an [audio.Output] that pipes raw s16le PCM to a player process such
// as
//
//	aplay -q -f S16_LE -r 16000 -c 1 -t raw
//
// One process is started per device and killed when the device closes.
type Exec struct {
	Name   string
	Args   []string
	Format audio.Format
}

// Open implements [audio.Output].
func (o Exec) Open(_ context.Context) (audio.Device, error) {
	cmd := exec.Command(o.Name, o.Args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("playback: stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("playback: start %s: %w", o.Name, err)
	}
	slog.Debug("playback: player started", "command", o.Name, "pid", cmd.Process.Pid)

	var wmu sync.Mutex
	w := writerFunc(func(p []byte) (int, error) {
		wmu.Lock()
		defer wmu.Unlock()
		return stdin.Write(p)
	})
	return newPacedDevice(defaultFormat(o.Format), func(audio.AudioFrame) (clipSink, error) {
		return nopSink{w}, nil
	}, func() error {
		_ = stdin.Close()
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("playback: kill %s: %w", o.Name, err)
		}
		_ = cmd.Wait()
		return nil
	}), nil
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func defaultFormat(f audio.Format) audio.Format {
	if f.SampleRate <= 0 {
		f.SampleRate = audio.CaptureRate
	}
	if f.Channels <= 0 {
		f.Channels = 1
	}
	return f
}

// ── Construction from config ─────────────────────────────────────────────────

// Config selects and parameterizes an output.
type Config struct {
	// Output is one of "discard", "wavdir" or "exec".
	Output     string
	Command    string
	Args       []string
	Dir        string
	SampleRate int
}

// NewOutput builds the output described by cfg.
func NewOutput(cfg Config) (audio.Output, error) {
	format := defaultFormat(audio.Format{SampleRate: cfg.SampleRate, Channels: 1})
	switch cfg.Output {
	case "", "discard":
		return Discard{Format: format}, nil
	case "wavdir":
		if cfg.Dir == "" {
			return nil, errors.New("playback: wavdir output requires a directory")
		}
		return &WAVDir{Dir: cfg.Dir, Format: format}, nil
	case "exec":
		if cfg.Command == "" {
			return nil, errors.New("playback: exec output requires a command")
		}
		return Exec{Name: cfg.Command, Args: cfg.Args, Format: format}, nil
	default:
		return nil, fmt.Errorf("playback: unknown output %q", cfg.Output)
	}
}
