package protocol

import (
	"log/slog"
	"math"
	"math/big"
	"strings"
	"time"
)

// MessageType classifies a presentable conversation record.
type MessageType string

const (
	TextSTT      MessageType = "text_stt"
	TextTTS      MessageType = "text_tts"
	TextOutput   MessageType = "text_output"
	TimestampSTT MessageType = "timestamp_stt"
	TimestampLLM MessageType = "timestamp_llm"
	TimestampTTS MessageType = "timestamp_tts"
)

// Message is one entry of the conversation log. Messages are never mutated
// after creation.
type Message struct {
	Type  MessageType `json:"type"`
	Value string      `json:"value"`
	// Timestamp is set by the session when the message is received.
	Timestamp time.Time `json:"timestamp,omitzero"`
}

type label struct {
	typ    MessageType
	prefix string
}

var (
	textLabels = map[string]label{
		"stt":    {TextSTT, "STT: "},
		"tts":    {TextTTS, "TTS: "},
		"output": {TextOutput, "Output: "},
	}
	timestampLabels = map[string]label{
		"stt": {TimestampSTT, "STT Timestamp: "},
		"llm": {TimestampLLM, "LLM Timestamp: "},
		"tts": {TimestampTTS, "TTS Timestamp: "},
	}
)

// Process maps a backend data message to a conversation record. Text values
// get a stage prefix; numeric timestamps are rendered in seconds with two
// decimals. Unknown type/subtype combinations return false and log a warning.
// The result depends only on m.
func Process(m BackendMessage) (Message, bool) {
	switch m.Type {
	case "text":
		l, ok := textLabels[m.Subtype]
		if !ok {
			slog.Warn("protocol: unknown text subtype", "subtype", m.Subtype)
			return Message{}, false
		}
		return Message{Type: l.typ, Value: l.prefix + m.Value.String()}, true

	case "timestamp":
		l, ok := timestampLabels[m.Subtype]
		if !ok {
			slog.Warn("protocol: unknown timestamp subtype", "subtype", m.Subtype)
			return Message{}, false
		}
		formatted := m.Value.String()
		if f, ok := m.Value.Float64(); ok {
			formatted = toFixed2(f) + "s"
		}
		return Message{Type: l.typ, Value: l.prefix + formatted}, true

	default:
		slog.Warn("protocol: unknown message type", "type", m.Type)
		return Message{}, false
	}
}

// toFixed2 formats f with exactly two decimals, rounding the exact binary
// value half away from zero. Magnitudes of 1e21 and above use the plain
// number form.
func toFixed2(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= 1e21 {
		return formatNumber(f)
	}
	sign := ""
	if f < 0 {
		sign, f = "-", -f
	}
	r := new(big.Rat).SetFloat64(f)
	r.Mul(r, big.NewRat(100, 1))
	r.Add(r, big.NewRat(1, 2))
	digits := new(big.Int).Quo(r.Num(), r.Denom()).String()
	if len(digits) < 3 {
		digits = strings.Repeat("0", 3-len(digits)) + digits
	}
	return sign + digits[:len(digits)-2] + "." + digits[len(digits)-2:]
}
