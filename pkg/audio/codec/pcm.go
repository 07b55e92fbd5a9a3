package codec

import (
	"fmt"

	"github.com/CADX03/AI-Voice-Assistant/pkg/audio"
)

// PCM decodes headerless little-endian int16 payloads of a fixed format.
type PCM struct {
	Format audio.Format
}

// Decode implements [Decoder]. The payload is copied.
func (p PCM) Decode(data []byte) (audio.AudioFrame, error) {
	if p.Format.SampleRate <= 0 || p.Format.Channels <= 0 {
		return audio.AudioFrame{}, fmt.Errorf("pcm: format not configured")
	}
	align := 2 * p.Format.Channels
	if len(data)%align != 0 {
		return audio.AudioFrame{}, fmt.Errorf("pcm: %d bytes is not a multiple of %d", len(data), align)
	}
	pcm := make([]byte, len(data))
	copy(pcm, data)
	return audio.AudioFrame{Data: pcm, SampleRate: p.Format.SampleRate, Channels: p.Format.Channels}, nil
}
