package protocol

import (
	"encoding/json"
	"fmt"
)

// CommandType is the value of a backend "command" message.
type CommandType string

const (
	// CommandStopAudio interrupts the reply currently playing.
	CommandStopAudio CommandType = "STOP_AUDIO"
	// CommandExit ends the conversation permanently.
	CommandExit CommandType = "EXIT"
)

// DefaultAudioMIME is the type assumed for an audio_metadata message without
// a mime_type.
const DefaultAudioMIME = "audio/mp3"

// Inbound is a decoded backend text message. The concrete type is one of
// [BackendError], [AudioMetadata], [Data], [Command] or [Unknown].
type Inbound interface {
	inbound()
}

// BackendError reports a failure inside the backend pipeline. The session
// continues.
type BackendError struct {
	// Message is payload.value when it is a string, else the raw payload.
	Message string
	Payload json.RawMessage
}

// AudioMetadata announces the MIME type of the binary messages that follow.
type AudioMetadata struct {
	MIMEType string
}

// Data carries a [BackendMessage] for presentation.
type Data struct {
	Message BackendMessage
}

// Command is a control instruction from the backend.
type Command struct {
	Value CommandType
}

// Unknown is any message that does not match a known shape.
type Unknown struct {
	Type   string
	Reason string
	Raw    []byte
}

func (BackendError) inbound()  {}
func (AudioMetadata) inbound() {}
func (Data) inbound()          {}
func (Command) inbound()       {}
func (Unknown) inbound()       {}

// Decode classifies one text frame. It never fails: malformed or
// unrecognized input yields [Unknown] with a reason.
func Decode(text []byte) Inbound {
	var env Envelope
	if err := json.Unmarshal(text, &env); err != nil {
		return Unknown{Reason: fmt.Sprintf("invalid json: %v", err), Raw: text}
	}
	unknown := func(reason string) Inbound {
		return Unknown{Type: env.Type, Reason: reason, Raw: text}
	}

	switch env.Type {
	case TypeError:
		var p struct {
			Value json.RawMessage `json:"value"`
		}
		msg := string(env.Payload)
		var bare string
		if len(env.Payload) > 0 && env.Payload[0] == '"' && json.Unmarshal(env.Payload, &bare) == nil {
			msg = bare
		} else if json.Unmarshal(env.Payload, &p) == nil && len(p.Value) > 0 {
			var s string
			if json.Unmarshal(p.Value, &s) == nil {
				msg = s
			} else {
				msg = string(p.Value)
			}
		}
		return BackendError{Message: msg, Payload: env.Payload}

	case TypeAudio:
		var p struct {
			Type     string `json:"type"`
			MIMEType string `json:"mime_type"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return unknown(fmt.Sprintf("invalid audio payload: %v", err))
		}
		if p.Type != "audio_metadata" {
			return unknown(fmt.Sprintf("unsupported audio payload type %q", p.Type))
		}
		if p.MIMEType == "" {
			p.MIMEType = DefaultAudioMIME
		}
		return AudioMetadata{MIMEType: p.MIMEType}

	case TypeData:
		var m BackendMessage
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return unknown(fmt.Sprintf("invalid data payload: %v", err))
		}
		return Data{Message: m}

	case TypeCommand:
		var p struct {
			Value CommandType `json:"value"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return unknown(fmt.Sprintf("invalid command payload: %v", err))
		}
		switch p.Value {
		case CommandStopAudio, CommandExit:
			return Command{Value: p.Value}
		default:
			return unknown(fmt.Sprintf("unsupported command %q", p.Value))
		}

	default:
		return unknown("unsupported message type")
	}
}
