package audio

import (
	"context"
	"math"
	"sync/atomic"
)

const (
	// CaptureRate is the sample rate the backend expects for streamed input.
	CaptureRate = 16000

	// BlockSize is the number of samples a capture [Stream] delivers per block.
	BlockSize = 128
)

// ScaleSample converts a normalized sample to LINEAR16. The input is clamped
// to [-1, 1]; negative values scale by 32768, non-negative values by 32767.
// NaN maps to silence.
func ScaleSample(s float32) int16 {
	v := float64(s)
	if math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	if v < 0 {
		return int16(math.Round(v * 32768))
	}
	return int16(math.Round(v * 32767))
}

// EncodeLinear16 appends the LINEAR16 little-endian encoding of samples to dst
// and returns the extended slice. The result holds exactly 2*len(samples)
// more bytes than dst.
func EncodeLinear16(dst []byte, samples []float32) []byte {
	for _, s := range samples {
		v := uint16(ScaleSample(s))
		dst = append(dst, byte(v), byte(v>>8))
	}
	return dst
}

// DecodeLinear16 converts little-endian int16 PCM back to normalized samples.
// A trailing odd byte is ignored.
func DecodeLinear16(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		v := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		if v < 0 {
			out[i] = float32(v) / 32768
		} else {
			out[i] = float32(v) / 32767
		}
	}
	return out
}

// Encoder converts capture blocks into LINEAR16 byte blocks on a dedicated
// goroutine. It never blocks its producer: when the consumer falls behind, a
// block is dropped and counted.
type Encoder struct {
	dropped atomic.Int64
	encoded atomic.Int64
}

// Run encodes every block received on blocks and sends the result on out.
// Each emitted slice is freshly allocated and never touched again by the
// encoder. Run returns when blocks is closed or ctx is cancelled; it closes
// out before returning. After cancellation blocks is drained in the
// background until the capture closes it.
func (e *Encoder) Run(ctx context.Context, blocks <-chan []float32, out chan<- []byte) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			go Drain(blocks)
			return
		case block, ok := <-blocks:
			if !ok {
				return
			}
			if len(block) == 0 {
				continue
			}
			buf := EncodeLinear16(make([]byte, 0, 2*len(block)), block)
			select {
			case out <- buf:
				e.encoded.Add(1)
			default:
				e.dropped.Add(1)
			}
		}
	}
}

// Encoded reports how many blocks were handed to the consumer.
func (e *Encoder) Encoded() int64 { return e.encoded.Load() }

// Dropped reports how many blocks were discarded because the consumer was
// not keeping up.
func (e *Encoder) Dropped() int64 { return e.dropped.Load() }
