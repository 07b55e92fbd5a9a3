package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/CADX03/AI-Voice-Assistant/pkg/audio"
)

// wavHeader is the canonical 44-byte RIFF/WAVE header written by [EncodeWAV].
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// wavFmt is the body of a "fmt " chunk, without extension bytes.
type wavFmt struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// EncodeWAV wraps a 16-bit PCM frame in a RIFF/WAVE container.
func EncodeWAV(frame audio.AudioFrame) ([]byte, error) {
	if frame.SampleRate <= 0 || frame.Channels <= 0 {
		return nil, fmt.Errorf("wav: invalid format %s", audio.FormatOf(frame))
	}
	dataSize := uint32(len(frame.Data))
	channels := uint16(frame.Channels)
	h := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   wavFormatPCM,
		NumChannels:   channels,
		SampleRate:    uint32(frame.SampleRate),
		ByteRate:      uint32(frame.SampleRate) * uint32(channels) * 2,
		BlockAlign:    channels * 2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
	buf := bytes.NewBuffer(make([]byte, 0, 44+len(frame.Data)))
	if err := binary.Write(buf, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("wav: write header: %w", err)
	}
	buf.Write(frame.Data)
	return buf.Bytes(), nil
}

// DecodeWAV decodes a 16-bit PCM WAV payload. Chunks other than "fmt " and
// "data" are skipped, so files with LIST or fact chunks are accepted.
func DecodeWAV(data []byte) (audio.AudioFrame, error) {
	r := bytes.NewReader(data)
	var riff struct {
		ID   [4]byte
		Size uint32
		Wave [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return audio.AudioFrame{}, fmt.Errorf("wav: read header: %w", err)
	}
	if string(riff.ID[:]) != "RIFF" || string(riff.Wave[:]) != "WAVE" {
		return audio.AudioFrame{}, errors.New("wav: missing RIFF/WAVE header")
	}

	var (
		format  *wavFmt
		payload []byte
	)
	for payload == nil {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return audio.AudioFrame{}, fmt.Errorf("wav: read chunk: %w", err)
		}
		switch string(chunk.ID[:]) {
		case "fmt ":
			var f wavFmt
			if chunk.Size < 16 {
				return audio.AudioFrame{}, fmt.Errorf("wav: fmt chunk too short (%d bytes)", chunk.Size)
			}
			if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
				return audio.AudioFrame{}, fmt.Errorf("wav: read fmt: %w", err)
			}
			if _, err := r.Seek(int64(chunk.Size-16+chunk.Size%2), io.SeekCurrent); err != nil {
				return audio.AudioFrame{}, fmt.Errorf("wav: skip fmt extension: %w", err)
			}
			format = &f
		case "data":
			size := int(chunk.Size)
			if size > r.Len() {
				// Streaming encoders often leave the size unset; take what is there.
				size = r.Len()
			}
			payload = make([]byte, size)
			if _, err := io.ReadFull(r, payload); err != nil {
				return audio.AudioFrame{}, fmt.Errorf("wav: read data: %w", err)
			}
		default:
			if _, err := r.Seek(int64(chunk.Size+chunk.Size%2), io.SeekCurrent); err != nil {
				return audio.AudioFrame{}, fmt.Errorf("wav: skip %q chunk: %w", chunk.ID[:], err)
			}
		}
	}

	if format == nil {
		return audio.AudioFrame{}, errors.New("wav: missing fmt chunk")
	}
	if payload == nil {
		return audio.AudioFrame{}, errors.New("wav: missing data chunk")
	}
	if format.AudioFormat != wavFormatPCM && format.AudioFormat != wavFormatExtensible {
		return audio.AudioFrame{}, fmt.Errorf("wav: unsupported audio format %d (only PCM)", format.AudioFormat)
	}
	if format.BitsPerSample != 16 {
		return audio.AudioFrame{}, fmt.Errorf("wav: unsupported bit depth %d (only 16-bit)", format.BitsPerSample)
	}
	if format.NumChannels == 0 || format.SampleRate == 0 {
		return audio.AudioFrame{}, errors.New("wav: zero channels or sample rate")
	}

	align := 2 * int(format.NumChannels)
	payload = payload[:len(payload)-len(payload)%align]
	return audio.AudioFrame{
		Data:       payload,
		SampleRate: int(format.SampleRate),
		Channels:   int(format.NumChannels),
	}, nil
}
