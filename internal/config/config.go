// Package config provides the configuration schema, loader, and file watcher
// for the LABS streaming client.
package config

import (
	"log/slog"
	"time"

	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SlogLevel maps l to a [slog.Level]. Unknown values map to info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// BackendMode selects the fallback endpoint when no URL is configured.
type BackendMode string

const (
	// ModeDevelopment targets a backend on localhost.
	ModeDevelopment BackendMode = "development"

	// ModeProduction targets backend.host.
	ModeProduction BackendMode = "production"
)

// IsValid reports whether m is a recognised backend mode.
func (m BackendMode) IsValid() bool {
	return m == ModeDevelopment || m == ModeProduction
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	LogLevel   LogLevel         `yaml:"log_level"`
	Backend    BackendConfig    `yaml:"backend"`
	Session    SessionConfig    `yaml:"session"`
	Capture    CaptureConfig    `yaml:"capture"`
	Playback   PlaybackConfig   `yaml:"playback"`
	Admin      AdminConfig      `yaml:"admin"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// BackendConfig locates the Voice Future backend.
type BackendConfig struct {
	// URL is the full WebSocket endpoint, e.g. "wss://labs.example.com/ws/call".
	// Overridden by LABS_BACKEND_URL. When empty the endpoint is derived from
	// Mode, Host and Secure; see [ResolveBackendURL].
	URL string `yaml:"url"`

	// Mode is "development" (default) or "production".
	Mode BackendMode `yaml:"mode"`

	// Host is the host[:port] used in production mode.
	Host string `yaml:"host"`

	// Secure selects wss:// in production mode.
	Secure bool `yaml:"secure"`

	// ReadLimit bounds one inbound message in bytes. 0 uses the transport
	// default.
	ReadLimit int64 `yaml:"read_limit"`

	// WriteTimeout bounds one outbound message.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// DialTimeout bounds the handshake plus the config message.
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// SessionConfig holds the per-conversation parameters.
type SessionConfig struct {
	// Config is the component selection sent to the backend when the socket
	// opens. When nil the default model configuration is sent.
	Config *protocol.ConfigParams `yaml:"config"`

	// FrameSize is the number of bytes per binary audio message. Default 2048.
	FrameSize int `yaml:"frame_size"`

	// SampleRate is the capture rate. Only 16000 is accepted by the backend.
	SampleRate int `yaml:"sample_rate"`
}

// CaptureConfig selects the microphone source.
type CaptureConfig struct {
	// Source is "command" (default), "stdin" or "file".
	Source   string   `yaml:"source"`
	Path     string   `yaml:"path"`
	Command  string   `yaml:"command"`
	Args     []string `yaml:"args"`
	Encoding string   `yaml:"encoding"`

	// Realtime paces file sources to the capture rate.
	Realtime bool `yaml:"realtime"`
}

// PlaybackConfig selects the reply output.
type PlaybackConfig struct {
	// Output is "discard" (default), "wavdir" or "exec".
	Output     string   `yaml:"output"`
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args"`
	Dir        string   `yaml:"dir"`
	SampleRate int      `yaml:"sample_rate"`
}

// AdminConfig configures the health and metrics HTTP server.
type AdminConfig struct {
	// ListenAddr is the TCP address, e.g. ":9090". Empty disables the server.
	ListenAddr string `yaml:"listen_addr"`
}

// TranscriptConfig configures the conversation log.
type TranscriptConfig struct {
	// PostgresDSN enables the PostgreSQL store. Overridden by
	// LABS_POSTGRES_DSN. Empty keeps the log in memory.
	PostgresDSN string `yaml:"postgres_dsn"`

	// ExportPath is where the final call outcome is written. Default
	// "conversation_output.json".
	ExportPath string `yaml:"export_path"`
}

// TelemetryConfig configures OpenTelemetry resources.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name"`
}

// Defaults used by [ApplyDefaults].
const (
	DefaultFrameSize  = 2048
	DefaultSampleRate = 16000
	DefaultExportPath = "conversation_output.json"
)

// ApplyDefaults fills zero values with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if cfg.Backend.Mode == "" {
		cfg.Backend.Mode = ModeDevelopment
	}
	if cfg.Session.FrameSize == 0 {
		cfg.Session.FrameSize = DefaultFrameSize
	}
	if cfg.Session.SampleRate == 0 {
		cfg.Session.SampleRate = DefaultSampleRate
	}
	if cfg.Capture.Source == "" {
		cfg.Capture.Source = "command"
	}
	if cfg.Capture.Source == "command" && cfg.Capture.Command == "" {
		cfg.Capture.Command = "arecord"
		cfg.Capture.Args = []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "raw"}
	}
	if cfg.Capture.Encoding == "" {
		cfg.Capture.Encoding = "s16le"
	}
	if cfg.Playback.Output == "" {
		cfg.Playback.Output = "discard"
	}
	if cfg.Playback.SampleRate == 0 {
		cfg.Playback.SampleRate = DefaultSampleRate
	}
	if cfg.Transcript.ExportPath == "" {
		cfg.Transcript.ExportPath = DefaultExportPath
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "labs"
	}
}
