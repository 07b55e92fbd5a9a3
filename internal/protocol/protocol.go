// Package protocol defines the JSON control messages exchanged with the
// Voice Future backend over the session WebSocket, and the mapping of backend
// data messages to presentable conversation records.
//
// Every text frame is an envelope {"type": ..., "payload": ...}. Binary frames
// carry audio and never pass through this package.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Envelope types.
const (
	TypeConfig  = "config"
	TypeData    = "data"
	TypeError   = "error"
	TypeAudio   = "audio"
	TypeCommand = "command"
)

// Envelope is the outer shape of every JSON message on the wire.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ConfigParams selects the pipeline components the backend should use. Each
// field indexes an option catalog.
type ConfigParams struct {
	Model    int `json:"model" yaml:"model"`
	STT      int `json:"stt" yaml:"stt"`
	LLM      int `json:"llm" yaml:"llm"`
	TTS      int `json:"tts" yaml:"tts"`
	Language int `json:"language" yaml:"language"`
}

// Value is a backend message value: a string or a number. Other JSON values
// are kept as their literal text.
type Value struct {
	str   string
	num   float64
	isNum bool
}

// String returns a string value.
func String(s string) Value { return Value{str: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{num: f, isNum: true} }

// Float64 returns the numeric value and whether v is a number.
func (v Value) Float64() (float64, bool) { return v.num, v.isNum }

// String renders v as text. Numbers use the shortest representation that
// round-trips.
func (v Value) String() string {
	if v.isNum {
		return formatNumber(v.num)
	}
	return v.str
}

// formatNumber renders f in the shortest round-trip form, switching to
// exponent notation below 1e-6 and from 1e21 upward.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MarshalJSON implements [json.Marshaler].
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isNum {
		return json.Marshal(v.num)
	}
	return json.Marshal(v.str)
}

// UnmarshalJSON implements [json.Unmarshaler].
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("protocol: empty value")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("protocol: value: %w", err)
		}
		*v = String(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("protocol: value: %w", err)
		}
		*v = Number(f)
	default:
		*v = String(string(data))
	}
	return nil
}

// BackendMessage is the payload of a "data" message: a text result or a
// timing measurement from one stage of the backend pipeline.
type BackendMessage struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	Value   Value  `json:"value"`
}

// outbound is the envelope for messages this client sends.
type outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ConfigMessage encodes the session configuration message.
func ConfigMessage(p ConfigParams) ([]byte, error) {
	data, err := json.Marshal(outbound{Type: TypeConfig, Payload: p})
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal config: %w", err)
	}
	return data, nil
}

// DataMessage wraps caller data in a "data" envelope. payload is usually a
// [BackendMessage] but any JSON-encodable value is accepted.
func DataMessage(payload any) ([]byte, error) {
	data, err := json.Marshal(outbound{Type: TypeData, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal data: %w", err)
	}
	return data, nil
}
