// Package catalog lists the pipeline components the Voice Future backend can
// run and validates [protocol.ConfigParams] against them.
//
// Every parameter is an index into one of the option tables below. The
// tables mirror the backend's registry; an index the backend does not know
// is rejected by [Validate] rather than sent over the wire.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
)

// ErrOutOfRange is returned when a parameter does not name a known option.
var ErrOutOfRange = errors.New("catalog: option out of range")

// Kind names one of the option tables.
type Kind string

const (
	KindModel    Kind = "model"
	KindSTT      Kind = "stt"
	KindLLM      Kind = "llm"
	KindTTS      Kind = "tts"
	KindLanguage Kind = "language"
)

// Kinds returns every option table in display order.
func Kinds() []Kind {
	return []Kind{KindModel, KindSTT, KindLLM, KindTTS, KindLanguage}
}

// ParseKind converts s to a [Kind]. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Kinds(), k) {
		return k, nil
	}
	return "", fmt.Errorf("catalog: unknown option kind %q", s)
}

// Option is one selectable component.
type Option struct {
	ID          int
	Name        string
	Description string
}

// Model is a preset pipeline. Defaults holds the component selection used
// when the model is picked.
type Model struct {
	Option
	Defaults protocol.ConfigParams
}

var models = []Model{
	{
		Option:   Option{ID: 0, Name: "Orion", Description: "Our prototype model with experimental features"},
		Defaults: protocol.ConfigParams{Model: 0, STT: 0, LLM: 0, TTS: 2, Language: 0},
	},
	{
		Option:   Option{ID: 1, Name: "Custom", Description: "Combine any components to create a custom model experience"},
		Defaults: protocol.ConfigParams{Model: 1, STT: 0, LLM: 0, TTS: 2, Language: 0},
	},
}

// STT IDs are not contiguous: the backend retired ID 1.
var sttOptions = []Option{
	{ID: 0, Name: "Google Speech-to-text (batch)"},
	{ID: 2, Name: "Amazon Transcribe"},
	{ID: 3, Name: "ElevenLabs Speech-to-text"},
	{ID: 4, Name: "Azure Speech-to-text"},
	{ID: 5, Name: "Faster Whisper (tiny-pt-default)"},
	{ID: 6, Name: "Faster Whisper (small-pt-MyNorthAI)"},
}

var llmOptions = []Option{
	{ID: 0, Name: "Gemini (2-0 flash)"},
	{ID: 1, Name: "ChatGPT (4o)"},
}

var ttsOptions = []Option{
	{ID: 0, Name: "Google text-to-speech"},
	{ID: 1, Name: "Amazon Polly"},
	{ID: 2, Name: "ElevenLabs text-to-speech"},
	{ID: 3, Name: "Azure Speech SDK"},
	{ID: 4, Name: "Piper TTS (pt_PT-tugão-medium)"},
	{ID: 5, Name: "Microsoft Edge TTS"},
}

var languageOptions = []Option{
	{ID: 0, Name: "Portuguese (Portugal)"},
}

// Models returns the model presets.
func Models() []Model {
	return slices.Clone(models)
}

// Options returns the options of kind k, or nil for an unknown kind.
func Options(k Kind) []Option {
	switch k {
	case KindModel:
		out := make([]Option, len(models))
		for i, m := range models {
			out[i] = m.Option
		}
		return out
	case KindSTT:
		return slices.Clone(sttOptions)
	case KindLLM:
		return slices.Clone(llmOptions)
	case KindTTS:
		return slices.Clone(ttsOptions)
	case KindLanguage:
		return slices.Clone(languageOptions)
	}
	return nil
}

// Find returns the option of kind k with the given ID.
func Find(k Kind, id int) (Option, bool) {
	opts := Options(k)
	i := slices.IndexFunc(opts, func(o Option) bool { return o.ID == id })
	if i < 0 {
		return Option{}, false
	}
	return opts[i], true
}

// Default returns the selection of the first model preset.
func Default() protocol.ConfigParams {
	return models[0].Defaults
}

// ForModel returns the preset selection of model id.
func ForModel(id int) (protocol.ConfigParams, error) {
	for _, m := range models {
		if m.ID == id {
			return m.Defaults, nil
		}
	}
	return protocol.ConfigParams{}, fmt.Errorf("%w: model %d", ErrOutOfRange, id)
}

// ── Validation ───────────────────────────────────────────────────────────────

func fields(p protocol.ConfigParams) []struct {
	kind Kind
	id   int
} {
	return []struct {
		kind Kind
		id   int
	}{
		{KindModel, p.Model},
		{KindSTT, p.STT},
		{KindLLM, p.LLM},
		{KindTTS, p.TTS},
		{KindLanguage, p.Language},
	}
}

// Validate reports every parameter of p that does not name a known option.
// Each failure wraps [ErrOutOfRange].
func Validate(p protocol.ConfigParams) error {
	var errs []error
	for _, f := range fields(p) {
		if _, ok := Find(f.kind, f.id); !ok {
			errs = append(errs, fmt.Errorf("%w: %s %d", ErrOutOfRange, f.kind, f.id))
		}
	}
	return errors.Join(errs...)
}

// Sanitize replaces every unknown parameter of p with the value from
// [Default]. Known parameters are kept.
func Sanitize(p protocol.ConfigParams) protocol.ConfigParams {
	d := Default()
	if _, ok := Find(KindModel, p.Model); !ok {
		p.Model = d.Model
	}
	if _, ok := Find(KindSTT, p.STT); !ok {
		p.STT = d.STT
	}
	if _, ok := Find(KindLLM, p.LLM); !ok {
		p.LLM = d.LLM
	}
	if _, ok := Find(KindTTS, p.TTS); !ok {
		p.TTS = d.TTS
	}
	if _, ok := Find(KindLanguage, p.Language); !ok {
		p.Language = d.Language
	}
	return p
}

// Describe renders p as a one-line summary, e.g.
// "Orion: Google Speech-to-text (batch) / Gemini (2-0 flash) / ...".
// Unknown parameters are shown as "?<id>".
func Describe(p protocol.ConfigParams) string {
	name := func(k Kind, id int) string {
		if o, ok := Find(k, id); ok {
			return o.Name
		}
		return fmt.Sprintf("?%d", id)
	}
	return fmt.Sprintf("%s: %s / %s / %s / %s",
		name(KindModel, p.Model),
		name(KindSTT, p.STT),
		name(KindLLM, p.LLM),
		name(KindTTS, p.TTS),
		name(KindLanguage, p.Language),
	)
}
