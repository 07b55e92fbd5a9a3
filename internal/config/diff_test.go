package config_test

import (
	"slices"
	"testing"

	"github.com/CADX03/AI-Voice-Assistant/internal/config"
	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		LogLevel: config.LogInfo,
		Session:  config.SessionConfig{Config: &protocol.ConfigParams{TTS: 2}},
		Capture:  config.CaptureConfig{Command: "arecord", Args: []string{"-q"}},
	}
	clone := *cfg
	p := *cfg.Session.Config
	clone.Session.Config = &p
	clone.Capture.Args = []string{"-q"}

	d := config.Diff(cfg, &clone)
	if d.LogLevelChanged || d.SessionConfigChanged || len(d.RestartRequired) != 0 {
		t.Errorf("Diff of equal configs = %+v, want empty", d)
	}
}

func TestDiff_HotReloadable(t *testing.T) {
	t.Parallel()
	old := &config.Config{LogLevel: config.LogInfo}
	new := &config.Config{
		LogLevel: config.LogDebug,
		Session:  config.SessionConfig{Config: &protocol.ConfigParams{Model: 1, STT: 3}},
	}

	d := config.Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("log level diff = (%v, %q), want (true, debug)", d.LogLevelChanged, d.NewLogLevel)
	}
	if !d.SessionConfigChanged || d.NewSessionConfig.STT != 3 {
		t.Errorf("session config diff = %+v", d)
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("RestartRequired = %v, want none", d.RestartRequired)
	}
}

func TestDiff_SessionConfigRemoved(t *testing.T) {
	t.Parallel()
	old := &config.Config{Session: config.SessionConfig{Config: &protocol.ConfigParams{}}}
	new := &config.Config{}

	d := config.Diff(old, new)
	if !d.SessionConfigChanged || d.NewSessionConfig != nil {
		t.Errorf("diff = %+v, want changed to nil", d)
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()
	old := &config.Config{}
	new := &config.Config{
		Backend:    config.BackendConfig{URL: "ws://other/ws/call"},
		Session:    config.SessionConfig{FrameSize: 4096},
		Capture:    config.CaptureConfig{Args: []string{"-D", "hw:1"}},
		Playback:   config.PlaybackConfig{Output: "wavdir"},
		Admin:      config.AdminConfig{ListenAddr: ":9090"},
		Transcript: config.TranscriptConfig{ExportPath: "out.json"},
	}

	d := config.Diff(old, new)
	want := []string{"backend", "session", "capture", "playback", "admin", "transcript"}
	if !slices.Equal(d.RestartRequired, want) {
		t.Errorf("RestartRequired = %v, want %v", d.RestartRequired, want)
	}
}
