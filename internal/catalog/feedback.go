package catalog

import (
	"net/url"

	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
)

const (
	feedbackForm   = "https://docs.google.com/forms/d/e/1FAIpQLSePVGPXnMtGjqAL8d1pF1b6fq416BhPSxWOraa_UdyfSW1q5w/viewform"
	feedbackSource = "Website"

	entrySource = "entry.282068203"
	entrySTT    = "entry.1753340543"
	entryLLM    = "entry.1800654359"
	entryTTS    = "entry.2022851438"
)

// The form's answer choices differ slightly from the option names.
var (
	feedbackSTT = map[int]string{
		0: "Google Speech-to-text",
		2: "Amazon Transcribe",
		3: "ElevenLabs Speech-to-text",
		4: "Azure Speech-to-text",
		5: "Faster Whisper (tiny-pt-default)",
		6: "Faster Whisper (small-pt-MyNorthAI)",
	}
	feedbackLLM = map[int]string{
		0: "Gemini (2.0 Flash)",
		1: "ChatGPT 4.0",
	}
	feedbackTTS = map[int]string{
		0: "Google Text-to-speech",
		1: "Amazon Polly",
		2: "ElevenLabs Text-to-speech",
		3: "Azure Speech SDK",
		4: "Piper TTS (pt_PT-tugão-medium)",
		5: "Microsoft Edge TTS",
	}
)

// FeedbackURL returns the feedback form link prefilled with the components
// of p. Unknown components are reported as their [Default] counterparts.
func FeedbackURL(p protocol.ConfigParams) string {
	p = Sanitize(p)
	q := url.Values{}
	q.Set("usp", "pp_url")
	q.Set(entrySource, feedbackSource)
	q.Set(entrySTT, feedbackSTT[p.STT])
	q.Set(entryLLM, feedbackLLM[p.LLM])
	q.Set(entryTTS, feedbackTTS[p.TTS])
	return feedbackForm + "?" + q.Encode()
}
