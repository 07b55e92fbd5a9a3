package config_test

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/CADX03/AI-Voice-Assistant/internal/config"
	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
)

const fullYAML = `
log_level: debug
backend:
  mode: production
  host: labs.voicefuture.pt
  secure: true
  read_limit: 33554432
  write_timeout: 3s
  dial_timeout: 15s
session:
  config:
    model: 1
    stt: 4
    llm: 1
    tts: 4
    language: 0
  frame_size: 4096
capture:
  source: file
  path: testdata/hello.wav
  realtime: true
playback:
  output: exec
  command: aplay
  args: ["-q", "-f", "S16_LE", "-r", "24000", "-c", "1", "-t", "raw"]
  sample_rate: 24000
admin:
  listen_addr: ":9090"
transcript:
  postgres_dsn: postgres://labs@localhost/labs
  export_path: out/conversation_output.json
telemetry:
  service_name: labs-cli
`

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.LogLevel != config.LogDebug {
		t.Errorf("log_level = %q", cfg.LogLevel)
	}
	b := cfg.Backend
	if b.Mode != config.ModeProduction || b.Host != "labs.voicefuture.pt" || !b.Secure {
		t.Errorf("backend = %+v", b)
	}
	if b.ReadLimit != 32<<20 || b.WriteTimeout != 3*time.Second || b.DialTimeout != 15*time.Second {
		t.Errorf("backend limits = %+v", b)
	}
	want := protocol.ConfigParams{Model: 1, STT: 4, LLM: 1, TTS: 4, Language: 0}
	if cfg.Session.Config == nil || *cfg.Session.Config != want {
		t.Errorf("session.config = %+v, want %+v", cfg.Session.Config, want)
	}
	if cfg.Session.FrameSize != 4096 {
		t.Errorf("frame_size = %d", cfg.Session.FrameSize)
	}
	if cfg.Capture.Source != "file" || cfg.Capture.Path != "testdata/hello.wav" || !cfg.Capture.Realtime {
		t.Errorf("capture = %+v", cfg.Capture)
	}
	if cfg.Playback.Output != "exec" || len(cfg.Playback.Args) != 9 || cfg.Playback.SampleRate != 24000 {
		t.Errorf("playback = %+v", cfg.Playback)
	}
	if cfg.Admin.ListenAddr != ":9090" || cfg.Telemetry.ServiceName != "labs-cli" {
		t.Errorf("admin/telemetry = %+v %+v", cfg.Admin, cfg.Telemetry)
	}
	if cfg.Transcript.ExportPath != "out/conversation_output.json" {
		t.Errorf("export_path = %q", cfg.Transcript.ExportPath)
	}
}

func TestLoadFromReader_EmptyUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	checks := []struct {
		name      string
		got, want any
	}{
		{"log_level", cfg.LogLevel, config.LogInfo},
		{"backend.mode", cfg.Backend.Mode, config.ModeDevelopment},
		{"session.frame_size", cfg.Session.FrameSize, 2048},
		{"session.sample_rate", cfg.Session.SampleRate, 16000},
		{"capture.source", cfg.Capture.Source, "command"},
		{"capture.command", cfg.Capture.Command, "arecord"},
		{"capture.encoding", cfg.Capture.Encoding, "s16le"},
		{"playback.output", cfg.Playback.Output, "discard"},
		{"playback.sample_rate", cfg.Playback.SampleRate, 16000},
		{"transcript.export_path", cfg.Transcript.ExportPath, "conversation_output.json"},
		{"telemetry.service_name", cfg.Telemetry.ServiceName, "labs"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if cfg.Session.Config != nil {
		t.Errorf("session.config = %+v, want nil", cfg.Session.Config)
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()
	for _, l := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError} {
		if !l.IsValid() {
			t.Errorf("%q.IsValid() = false", l)
		}
	}
	if config.LogLevel("trace").IsValid() {
		t.Error(`"trace".IsValid() = true`)
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	t.Parallel()
	tests := map[config.LogLevel]slog.Level{
		config.LogDebug: slog.LevelDebug,
		config.LogInfo:  slog.LevelInfo,
		config.LogWarn:  slog.LevelWarn,
		config.LogError: slog.LevelError,
		"":              slog.LevelInfo,
	}
	for in, want := range tests {
		if got := in.SlogLevel(); got != want {
			t.Errorf("%q.SlogLevel() = %v, want %v", in, got, want)
		}
	}
}
