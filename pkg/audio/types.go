package audio

import "time"

// AudioFrame is a block of interleaved little-endian int16 PCM. It is the unit
// handed to an output [Device] for playback and the result of decoding a
// backend reply.
type AudioFrame struct {
	// PCM audio data.
	Data []byte

	// SampleRate in Hz (e.g., 16000 for capture, 24000 or 44100 for TTS replies).
	SampleRate int

	// Channels: 1 for mono, 2 for stereo.
	Channels int

	// Timestamp marks when this frame was captured or received, relative to
	// stream start.
	Timestamp time.Duration
}

// Duration returns the playback length of the frame. It returns zero when the
// format is unset.
func (f AudioFrame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	samples := len(f.Data) / (2 * f.Channels)
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}
