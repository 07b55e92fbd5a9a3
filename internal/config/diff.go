package config

import (
	"slices"

	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
)

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// SessionConfigChanged is true when session.config differs. The new
	// value applies to the next connection.
	SessionConfigChanged bool
	NewSessionConfig     *protocol.ConfigParams

	// RestartRequired lists changed sections that only take effect after a
	// restart.
	RestartRequired []string
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	if !sameParams(old.Session.Config, new.Session.Config) {
		d.SessionConfigChanged = true
		d.NewSessionConfig = new.Session.Config
	}

	if old.Backend != new.Backend {
		d.RestartRequired = append(d.RestartRequired, "backend")
	}
	if old.Session.FrameSize != new.Session.FrameSize ||
		old.Session.SampleRate != new.Session.SampleRate {
		d.RestartRequired = append(d.RestartRequired, "session")
	}
	if !sameCapture(old.Capture, new.Capture) {
		d.RestartRequired = append(d.RestartRequired, "capture")
	}
	if !samePlayback(old.Playback, new.Playback) {
		d.RestartRequired = append(d.RestartRequired, "playback")
	}
	if old.Admin != new.Admin {
		d.RestartRequired = append(d.RestartRequired, "admin")
	}
	if old.Transcript != new.Transcript {
		d.RestartRequired = append(d.RestartRequired, "transcript")
	}

	return d
}

func sameParams(a, b *protocol.ConfigParams) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameCapture(a, b CaptureConfig) bool {
	return a.Source == b.Source && a.Path == b.Path && a.Command == b.Command &&
		a.Encoding == b.Encoding && a.Realtime == b.Realtime && slices.Equal(a.Args, b.Args)
}

func samePlayback(a, b PlaybackConfig) bool {
	return a.Output == b.Output && a.Command == b.Command && a.Dir == b.Dir &&
		a.SampleRate == b.SampleRate && slices.Equal(a.Args, b.Args)
}
