package codec

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// oggPage builds a single Ogg page carrying the given lacing values and body.
func oggPage(serial uint32, lacing []byte, body []byte) []byte {
	var b bytes.Buffer
	b.WriteString("OggS")
	b.WriteByte(0)           // version
	b.WriteByte(0)           // header type
	b.Write(make([]byte, 8)) // granule position
	binary.Write(&b, binary.LittleEndian, serial)
	b.Write(make([]byte, 8)) // sequence + checksum
	b.WriteByte(byte(len(lacing)))
	b.Write(lacing)
	b.Write(body)
	return b.Bytes()
}

func TestOggPackets(t *testing.T) {
	t.Parallel()

	long := bytes.Repeat([]byte{7}, 300)
	var stream []byte
	stream = append(stream, oggPage(1, []byte{3, 2}, []byte("abcde"))...)
	// A 300-byte packet split over two pages: 255 on the first, 45 on the second.
	stream = append(stream, oggPage(1, []byte{255}, long[:255])...)
	stream = append(stream, oggPage(2, []byte{1}, []byte("z"))...)
	stream = append(stream, oggPage(1, []byte{45}, long[255:])...)

	packets, err := oggPackets(stream)
	if err != nil {
		t.Fatalf("oggPackets: %v", err)
	}
	if len(packets) != 3 {
		t.Fatalf("packets = %d, want 3", len(packets))
	}
	if string(packets[0]) != "abc" || string(packets[1]) != "de" {
		t.Errorf("first packets = %q, %q", packets[0], packets[1])
	}
	if !bytes.Equal(packets[2], long) {
		t.Errorf("continued packet has %d bytes, want 300", len(packets[2]))
	}
}

func TestOggPackets_Truncated(t *testing.T) {
	t.Parallel()
	page := oggPage(1, []byte{10}, []byte("short"))
	if _, err := oggPackets(page); err == nil {
		t.Fatal("expected error for truncated body")
	}
	if _, err := oggPackets([]byte("NotOgg")); err == nil {
		t.Fatal("expected error for missing capture pattern")
	}
}

func TestDecodeOggOpus_MissingHead(t *testing.T) {
	t.Parallel()
	stream := oggPage(1, []byte{4, 4}, []byte("headtags"))
	if _, err := DecodeOggOpus(stream); err == nil {
		t.Fatal("expected error for missing OpusHead")
	}
}
