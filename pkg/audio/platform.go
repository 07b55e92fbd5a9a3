// Package audio defines the audio types and device abstractions of the LABS
// streaming client.
//
// The two sides of a session are modelled as narrow interfaces:
//
//   - [Source] opens a capture [Stream] that delivers normalized float32
//     sample blocks at [CaptureRate] (the microphone side).
//   - [Output] opens a playback [Device] (the audio output context) on which
//     decoded replies are played as [Voice] nodes.
//
// Concrete implementations live in the capture package and in
// internal/playback. The package also holds the LINEAR16 sample encoder and
// PCM format helpers shared by both sides.
package audio

import (
	"context"
)

// Stream is an active capture. Blocks are delivered in capture order on the
// channel returned by [Stream.Blocks]; each block is owned by the receiver.
type Stream interface {
	// Blocks returns the channel of captured sample blocks. The channel is
	// closed when capture ends, either because the source was exhausted or
	// because Close was called.
	Blocks() <-chan []float32

	// Close stops capture and releases the underlying device. When Close
	// returns, no further blocks will be produced. It is safe to call Close
	// more than once.
	Close() error
}

// Source opens capture streams. Each call to Open corresponds to one
// microphone grant; implementations may refuse concurrent streams.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// Voice is one clip playing on a [Device].
type Voice interface {
	// Stop halts the clip immediately. When Stop returns the clip is no longer
	// audible. Stop is idempotent.
	Stop()

	// Done is closed when the clip finished naturally or was stopped.
	Done() <-chan struct{}
}

// Device is an open audio output context. A Device does not enforce a limit
// on concurrent voices; callers that need exclusive playback must stop the
// previous [Voice] before starting the next.
type Device interface {
	// Format reports the PCM format clips are played in. Clips in other
	// formats are converted before playback.
	Format() Format

	// Play starts playback of clip and returns immediately.
	Play(clip AudioFrame) (Voice, error)

	// Close releases the device. Voices still playing are stopped.
	Close() error
}

// Output creates playback devices.
type Output interface {
	Open(ctx context.Context) (Device, error)
}
