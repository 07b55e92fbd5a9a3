// Package codec decodes backend reply payloads into PCM [audio.AudioFrame]
// values, keyed by MIME type.
//
// The backend announces the type of the next binary message with an
// audio_metadata control message (e.g. "audio/mp3" or "audio/wav"). A
// [Registry] maps such announcements to a [Decoder]. MIME parameters and case
// are ignored, so "audio/ogg; codecs=opus" resolves to the "audio/ogg" entry.
package codec

import (
	"errors"
	"fmt"
	"mime"
	"strings"
	"sync"

	"github.com/CADX03/AI-Voice-Assistant/pkg/audio"
)

// ErrUnsupportedMIME is returned when no decoder is registered for a MIME type.
var ErrUnsupportedMIME = errors.New("codec: unsupported mime type")

// DefaultMIME is assumed for binary payloads received before any
// audio_metadata announcement.
const DefaultMIME = "audio/mp3"

// Decoder turns one complete encoded payload into PCM.
type Decoder interface {
	Decode(data []byte) (audio.AudioFrame, error)
}

// DecoderFunc adapts a function to the [Decoder] interface.
type DecoderFunc func(data []byte) (audio.AudioFrame, error)

// Decode implements [Decoder].
func (f DecoderFunc) Decode(data []byte) (audio.AudioFrame, error) { return f(data) }

// Registry maps MIME types to decoders. The zero value is empty and ready to
// use. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

// Register associates dec with each of the given MIME types, replacing any
// previous registration.
func (r *Registry) Register(dec Decoder, mimeTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decoders == nil {
		r.decoders = make(map[string]Decoder)
	}
	for _, m := range mimeTypes {
		r.decoders[NormalizeMIME(m)] = dec
	}
}

// Lookup returns the decoder for mimeType.
func (r *Registry) Lookup(mimeType string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dec, ok := r.decoders[NormalizeMIME(mimeType)]
	return dec, ok
}

// Decode decodes data as mimeType. An empty mimeType means [DefaultMIME].
func (r *Registry) Decode(mimeType string, data []byte) (audio.AudioFrame, error) {
	if mimeType == "" {
		mimeType = DefaultMIME
	}
	dec, ok := r.Lookup(mimeType)
	if !ok {
		return audio.AudioFrame{}, fmt.Errorf("%w: %q", ErrUnsupportedMIME, mimeType)
	}
	if len(data) == 0 {
		return audio.AudioFrame{}, fmt.Errorf("codec: decode %s: empty payload", NormalizeMIME(mimeType))
	}
	frame, err := safeDecode(dec, data)
	if err != nil {
		return audio.AudioFrame{}, fmt.Errorf("codec: decode %s: %w", NormalizeMIME(mimeType), err)
	}
	return frame, nil
}

// ErrDecoderPanic wraps a panic raised inside a decoder.
var ErrDecoderPanic = errors.New("codec: decoder panic")

// safeDecode reports a panic inside dec as [ErrDecoderPanic].
func safeDecode(dec Decoder, data []byte) (frame audio.AudioFrame, err error) {
	defer func() {
		if r := recover(); r != nil {
			frame, err = audio.AudioFrame{}, fmt.Errorf("%w: %v", ErrDecoderPanic, r)
		}
	}()
	return dec.Decode(data)
}

// Types returns the registered MIME types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.decoders))
	for m := range r.decoders {
		out = append(out, m)
	}
	return out
}

// NormalizeMIME lowercases mimeType and strips parameters.
func NormalizeMIME(mimeType string) string {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// NewRegistry returns a registry with the decoders for every format the
// backend is known to send. Raw L16 payloads are interpreted at pcmRate Hz
// mono.
func NewRegistry(pcmRate int) *Registry {
	r := &Registry{}
	r.Register(DecoderFunc(DecodeMP3), "audio/mp3", "audio/mpeg", "audio/mpeg3")
	r.Register(DecoderFunc(DecodeWAV), "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave")
	r.Register(PCM{Format: audio.Format{SampleRate: pcmRate, Channels: 1}}, "audio/pcm", "audio/l16")
	r.Register(DecoderFunc(DecodeOggOpus), "audio/ogg", "audio/opus")
	return r
}
