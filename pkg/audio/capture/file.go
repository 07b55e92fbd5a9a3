package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CADX03/AI-Voice-Assistant/pkg/audio"
	"github.com/CADX03/AI-Voice-Assistant/pkg/audio/codec"
)

// extMIME maps file extensions to the MIME types understood by the codec
// registry.
var extMIME = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mp3",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".pcm":  "audio/pcm",
	".raw":  "audio/pcm",
}

// File replays an audio file as if it were spoken into the microphone. The
// file is decoded on every Open, converted to 16 kHz mono and, when Realtime
// is set, delivered at capture speed.
type File struct {
	Path     string
	Realtime bool

	// Codecs decodes the file. Defaults to codec.NewRegistry(audio.CaptureRate).
	Codecs *codec.Registry

	guard exclusive
}

// Open implements [audio.Source].
func (f *File) Open(_ context.Context) (audio.Stream, error) {
	mimeType, ok := extMIME[strings.ToLower(filepath.Ext(f.Path))]
	if !ok {
		return nil, fmt.Errorf("capture: unknown audio file type %q", f.Path)
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("capture: read %s: %w", f.Path, err)
	}
	reg := f.Codecs
	if reg == nil {
		reg = codec.NewRegistry(audio.CaptureRate)
	}
	frame, err := reg.Decode(mimeType, data)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	conv := audio.FormatConverter{Target: audio.Format{SampleRate: audio.CaptureRate, Channels: 1}}
	samples := audio.DecodeLinear16(conv.Convert(frame).Data)

	if err := f.guard.acquire(); err != nil {
		return nil, err
	}
	s := newBlockStream(nil)
	s.run(func() {
		defer f.guard.release()
		var p pacer
		for off := 0; off < len(samples); off += audio.BlockSize {
			end := min(off+audio.BlockSize, len(samples))
			block := make([]float32, end-off)
			copy(block, samples[off:end])
			if !s.emit(block) {
				return
			}
			if f.Realtime && !p.wait(s.stop, len(block)) {
				return
			}
		}
	})
	return s, nil
}

// Config selects and parameterizes a capture source.
type Config struct {
	// Source is one of "command", "stdin" or "file".
	Source string

	// Path is the audio file replayed by the "file" source.
	Path string

	// Command and Args start the recorder for the "command" source.
	Command string
	Args    []string

	// Encoding of raw samples for "command" and "stdin". Defaults to s16le.
	Encoding Encoding

	// Realtime paces the "file" source at capture speed.
	Realtime bool
}

// New builds the source selected by cfg.Source.
func New(cfg Config) (audio.Source, error) {
	enc := cfg.Encoding
	if enc == "" {
		enc = EncodingS16LE
	}
	switch cfg.Source {
	case "command":
		if cfg.Command == "" {
			return nil, fmt.Errorf("capture: command source needs a command")
		}
		return &Command{Name: cfg.Command, Args: cfg.Args, Encoding: enc}, nil
	case "stdin":
		return &Reader{R: os.Stdin, Encoding: enc}, nil
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("capture: file source needs a path")
		}
		return &File{Path: cfg.Path, Realtime: cfg.Realtime}, nil
	default:
		return nil, fmt.Errorf("capture: unknown source %q", cfg.Source)
	}
}
