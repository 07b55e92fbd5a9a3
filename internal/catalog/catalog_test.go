package catalog_test

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/CADX03/AI-Voice-Assistant/internal/catalog"
	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
)

func TestDefault(t *testing.T) {
	t.Parallel()
	want := protocol.ConfigParams{Model: 0, STT: 0, LLM: 0, TTS: 2, Language: 0}
	if got := catalog.Default(); got != want {
		t.Errorf("Default() = %+v, want %+v", got, want)
	}
	if err := catalog.Validate(catalog.Default()); err != nil {
		t.Errorf("Validate(Default()) = %v", err)
	}
}

func TestForModel(t *testing.T) {
	t.Parallel()
	p, err := catalog.ForModel(1)
	if err != nil {
		t.Fatalf("ForModel(1): %v", err)
	}
	if p.Model != 1 || p.TTS != 2 {
		t.Errorf("ForModel(1) = %+v", p)
	}
	if _, err := catalog.ForModel(7); !errors.Is(err, catalog.ErrOutOfRange) {
		t.Errorf("ForModel(7) error = %v, want ErrOutOfRange", err)
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()
	counts := map[catalog.Kind]int{
		catalog.KindModel:    2,
		catalog.KindSTT:      6,
		catalog.KindLLM:      2,
		catalog.KindTTS:      6,
		catalog.KindLanguage: 1,
	}
	for _, k := range catalog.Kinds() {
		if got := len(catalog.Options(k)); got != counts[k] {
			t.Errorf("len(Options(%s)) = %d, want %d", k, got, counts[k])
		}
	}
	if catalog.Options("vad") != nil {
		t.Error("Options of unknown kind should be nil")
	}

	// Callers must not be able to mutate the tables.
	opts := catalog.Options(catalog.KindLLM)
	opts[0].Name = "changed"
	if o, _ := catalog.Find(catalog.KindLLM, 0); o.Name == "changed" {
		t.Error("Options returned the backing slice")
	}
}

func TestFind_STTGap(t *testing.T) {
	t.Parallel()
	if _, ok := catalog.Find(catalog.KindSTT, 1); ok {
		t.Error("STT id 1 should not exist")
	}
	o, ok := catalog.Find(catalog.KindSTT, 6)
	if !ok || o.Name != "Faster Whisper (small-pt-MyNorthAI)" {
		t.Errorf("Find(stt, 6) = (%+v, %v)", o, ok)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	err := catalog.Validate(protocol.ConfigParams{Model: 2, STT: 1, LLM: 0, TTS: 9, Language: 0})
	if !errors.Is(err, catalog.ErrOutOfRange) {
		t.Fatalf("error = %v, want ErrOutOfRange", err)
	}
	for _, want := range []string{"model 2", "stt 1", "tts 9"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
	if strings.Contains(err.Error(), "llm") {
		t.Errorf("error %q should not mention llm", err)
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()
	got := catalog.Sanitize(protocol.ConfigParams{Model: 1, STT: 1, LLM: 1, TTS: -3, Language: 4})
	want := protocol.ConfigParams{Model: 1, STT: 0, LLM: 1, TTS: 2, Language: 0}
	if got != want {
		t.Errorf("Sanitize = %+v, want %+v", got, want)
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()
	got := catalog.Describe(protocol.ConfigParams{Model: 1, STT: 4, LLM: 1, TTS: 5, Language: 0})
	want := "Custom: Azure Speech-to-text / ChatGPT (4o) / Microsoft Edge TTS / Portuguese (Portugal)"
	if got != want {
		t.Errorf("Describe = %q, want %q", got, want)
	}
	if got := catalog.Describe(protocol.ConfigParams{STT: 1, TTS: 2}); !strings.Contains(got, "?1") {
		t.Errorf("Describe with unknown stt = %q, want ?1", got)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()
	tests := []struct {
		kind    catalog.Kind
		query   string
		wantID  int
		wantErr error
	}{
		{catalog.KindModel, "orion", 0, nil},
		{catalog.KindModel, "CUSTOM", 1, nil},
		{catalog.KindTTS, "piper", 4, nil},
		{catalog.KindLLM, "chatgpt", 1, nil},
		{catalog.KindLLM, "gemeni", 0, nil},
		{catalog.KindSTT, "3", 3, nil},
		{catalog.KindSTT, "1", 0, catalog.ErrOutOfRange},
		{catalog.KindSTT, "whisper", 0, catalog.ErrNotFound},
		{catalog.KindTTS, "xyz", 0, catalog.ErrNotFound},
		{catalog.KindTTS, "  ", 0, catalog.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(string(tc.kind)+"/"+tc.query, func(t *testing.T) {
			t.Parallel()
			o, err := catalog.Lookup(tc.kind, tc.query)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if o.ID != tc.wantID {
				t.Errorf("Lookup(%q) = %+v, want id %d", tc.query, o, tc.wantID)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()
	if k, err := catalog.ParseKind(" TTS "); err != nil || k != catalog.KindTTS {
		t.Errorf("ParseKind(TTS) = (%q, %v)", k, err)
	}
	if _, err := catalog.ParseKind("vad"); err == nil {
		t.Error("ParseKind(vad) should fail")
	}
}

func TestFeedbackURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name          string
		params        protocol.ConfigParams
		stt, llm, tts string
	}{
		{"default", catalog.Default(), "Google Speech-to-text", "Gemini (2.0 Flash)", "ElevenLabs Text-to-speech"},
		{"custom", protocol.ConfigParams{STT: 2, LLM: 1, TTS: 4}, "Amazon Transcribe", "ChatGPT 4.0", "Piper TTS (pt_PT-tugão-medium)"},
		{"unknown falls back", protocol.ConfigParams{STT: 1, LLM: 9, TTS: 9}, "Google Speech-to-text", "Gemini (2.0 Flash)", "ElevenLabs Text-to-speech"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			raw := catalog.FeedbackURL(tc.params)
			u, err := url.Parse(raw)
			if err != nil {
				t.Fatalf("parse %q: %v", raw, err)
			}
			if u.Host != "docs.google.com" || !strings.HasSuffix(u.Path, "/viewform") {
				t.Errorf("unexpected form location %q", raw)
			}
			q := u.Query()
			if q.Get("usp") != "pp_url" || q.Get("entry.282068203") != "Website" {
				t.Errorf("missing fixed fields in %q", raw)
			}
			if got := q.Get("entry.1753340543"); got != tc.stt {
				t.Errorf("stt = %q, want %q", got, tc.stt)
			}
			if got := q.Get("entry.1800654359"); got != tc.llm {
				t.Errorf("llm = %q, want %q", got, tc.llm)
			}
			if got := q.Get("entry.2022851438"); got != tc.tts {
				t.Errorf("tts = %q, want %q", got, tc.tts)
			}
		})
	}
}
