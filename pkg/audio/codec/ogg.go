package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/CADX03/AI-Voice-Assistant/pkg/audio"
	"layeh.com/gopus"
)

const (
	oggPageHeaderLen = 27
	opusSampleRate   = 48000
	// 120 ms at 48 kHz, the longest Opus frame.
	opusMaxFrameSize = 5760
)

var oggCapture = []byte("OggS")

// oggPackets splits an Ogg bitstream into packets of its first logical
// stream. Packets continued across pages are reassembled.
func oggPackets(data []byte) ([][]byte, error) {
	var (
		packets [][]byte
		partial []byte
		serial  uint32
		haveSN  bool
	)
	for len(data) > 0 {
		if len(data) < oggPageHeaderLen || !bytes.Equal(data[:4], oggCapture) {
			return nil, errors.New("ogg: missing capture pattern")
		}
		sn := binary.LittleEndian.Uint32(data[14:18])
		nseg := int(data[26])
		if len(data) < oggPageHeaderLen+nseg {
			return nil, errors.New("ogg: truncated segment table")
		}
		lacing := data[oggPageHeaderLen : oggPageHeaderLen+nseg]
		body := data[oggPageHeaderLen+nseg:]

		bodyLen := 0
		for _, l := range lacing {
			bodyLen += int(l)
		}
		if len(body) < bodyLen {
			return nil, errors.New("ogg: truncated page body")
		}
		data = body[bodyLen:]

		if !haveSN {
			serial, haveSN = sn, true
		}
		if sn != serial {
			continue
		}

		off := 0
		for _, l := range lacing {
			partial = append(partial, body[off:off+int(l)]...)
			off += int(l)
			if l < 255 {
				packets = append(packets, partial)
				partial = nil
			}
		}
	}
	return packets, nil
}

// DecodeOggOpus decodes an Ogg Opus payload to 48 kHz PCM with the channel
// count announced in the OpusHead packet. Pre-skip samples are dropped.
func DecodeOggOpus(data []byte) (audio.AudioFrame, error) {
	packets, err := oggPackets(data)
	if err != nil {
		return audio.AudioFrame{}, err
	}
	if len(packets) < 2 {
		return audio.AudioFrame{}, errors.New("opus: missing header packets")
	}
	head := packets[0]
	if len(head) < 19 || string(head[:8]) != "OpusHead" {
		return audio.AudioFrame{}, errors.New("opus: missing OpusHead")
	}
	channels := int(head[9])
	if channels < 1 || channels > 2 {
		return audio.AudioFrame{}, fmt.Errorf("opus: unsupported channel count %d", channels)
	}
	preSkip := int(binary.LittleEndian.Uint16(head[10:12]))

	dec, err := gopus.NewDecoder(opusSampleRate, channels)
	if err != nil {
		return audio.AudioFrame{}, fmt.Errorf("opus: create decoder: %w", err)
	}

	var pcm []byte
	// packets[1] is OpusTags.
	for _, pkt := range packets[2:] {
		if len(pkt) == 0 {
			continue
		}
		samples, err := dec.Decode(pkt, opusMaxFrameSize, false)
		if err != nil {
			return audio.AudioFrame{}, fmt.Errorf("opus: decode: %w", err)
		}
		for _, s := range samples {
			pcm = append(pcm, byte(s), byte(uint16(s)>>8))
		}
	}

	skip := preSkip * channels * 2
	if skip > len(pcm) {
		skip = len(pcm)
	}
	return audio.AudioFrame{Data: pcm[skip:], SampleRate: opusSampleRate, Channels: channels}, nil
}
