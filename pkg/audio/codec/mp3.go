package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/CADX03/AI-Voice-Assistant/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 decodes a complete MP3 payload. The result is always 16-bit
// stereo at the stream's sample rate. Corrupt frames that make go-mp3 panic
// are reported as [ErrDecoderPanic].
func DecodeMP3(data []byte) (frame audio.AudioFrame, err error) {
	defer func() {
		if r := recover(); r != nil {
			frame, err = audio.AudioFrame{}, fmt.Errorf("mp3: %w: %v", ErrDecoderPanic, r)
		}
	}()
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return audio.AudioFrame{}, fmt.Errorf("mp3: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return audio.AudioFrame{}, fmt.Errorf("mp3: read: %w", err)
	}
	// go-mp3 emits whole stereo frames; trim a torn tail if the stream was cut.
	pcm = pcm[:len(pcm)-len(pcm)%4]
	if len(pcm) == 0 {
		return audio.AudioFrame{}, fmt.Errorf("mp3: no audio frames")
	}
	return audio.AudioFrame{Data: pcm, SampleRate: dec.SampleRate(), Channels: 2}, nil
}
