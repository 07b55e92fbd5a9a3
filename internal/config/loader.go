package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted by [ApplyEnv].
const (
	EnvBackendURL  = "LABS_BACKEND_URL"
	EnvBackendMode = "LABS_BACKEND_MODE"
	EnvBackendHost = "LABS_BACKEND_HOST"
	EnvPostgresDSN = "LABS_POSTGRES_DSN"
	EnvLogLevel    = "LABS_LOG_LEVEL"
)

// ErrNoBackendURL is returned by [ResolveBackendURL] in production mode when
// neither a URL nor a host is configured.
var ErrNoBackendURL = errors.New("config: no backend url or host configured")

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. Environment overrides are not applied; see
// [ApplyEnv].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. An empty document yields the default configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env") into
// the process environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with the LABS_* environment variables. lookup is
// usually [os.LookupEnv].
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvBackendURL); ok && v != "" {
		cfg.Backend.URL = v
	}
	if v, ok := lookup(EnvBackendMode); ok && v != "" {
		cfg.Backend.Mode = BackendMode(v)
	}
	if v, ok := lookup(EnvBackendHost); ok && v != "" {
		cfg.Backend.Host = v
	}
	if v, ok := lookup(EnvPostgresDSN); ok && v != "" {
		cfg.Transcript.PostgresDSN = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = LogLevel(v)
	}
}

// ResolveBackendURL returns the WebSocket endpoint for cfg: the configured URL
// when set, ws://localhost:8000/ws/call in development mode, and
// ws(s)://<host>/ws/call in production mode.
func ResolveBackendURL(cfg BackendConfig) (string, error) {
	if cfg.URL != "" {
		return cfg.URL, nil
	}
	switch cfg.Mode {
	case "", ModeDevelopment:
		return "ws://localhost:8000/ws/call", nil
	case ModeProduction:
		if cfg.Host == "" {
			return "", ErrNoBackendURL
		}
		scheme := "ws"
		if cfg.Secure {
			scheme = "wss"
		}
		return scheme + "://" + strings.TrimSuffix(cfg.Host, "/") + "/ws/call", nil
	default:
		return "", fmt.Errorf("config: backend.mode %q is invalid", cfg.Mode)
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Backend
	if cfg.Backend.Mode != "" && !cfg.Backend.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("backend.mode %q is invalid; valid values: development, production", cfg.Backend.Mode))
	}
	if u := cfg.Backend.URL; u != "" && !strings.HasPrefix(u, "ws://") && !strings.HasPrefix(u, "wss://") {
		errs = append(errs, fmt.Errorf("backend.url %q must use ws:// or wss://", u))
	}
	if cfg.Backend.ReadLimit < 0 {
		errs = append(errs, fmt.Errorf("backend.read_limit %d must not be negative", cfg.Backend.ReadLimit))
	}
	if cfg.Backend.WriteTimeout < 0 || cfg.Backend.DialTimeout < 0 {
		errs = append(errs, errors.New("backend timeouts must not be negative"))
	}

	// Session
	if n := cfg.Session.FrameSize; n != 0 && (n < 0 || n%2 != 0) {
		errs = append(errs, fmt.Errorf("session.frame_size %d must be a positive even number", n))
	}
	if sr := cfg.Session.SampleRate; sr != 0 && sr != DefaultSampleRate {
		errs = append(errs, fmt.Errorf("session.sample_rate %d is unsupported; the backend expects %d", sr, DefaultSampleRate))
	}
	if p := cfg.Session.Config; p != nil {
		if p.Model < 0 || p.STT < 0 || p.LLM < 0 || p.TTS < 0 || p.Language < 0 {
			errs = append(errs, errors.New("session.config indices must not be negative"))
		}
	}

	// Capture
	switch cfg.Capture.Source {
	case "", "command", "stdin":
	case "file":
		if cfg.Capture.Path == "" {
			errs = append(errs, errors.New("capture.path is required when source is file"))
		}
	default:
		errs = append(errs, fmt.Errorf("capture.source %q is invalid; valid values: command, stdin, file", cfg.Capture.Source))
	}
	if cfg.Capture.Source == "command" && cfg.Capture.Command == "" {
		errs = append(errs, errors.New("capture.command is required when source is command"))
	}
	switch cfg.Capture.Encoding {
	case "", "s16le", "f32le":
	default:
		errs = append(errs, fmt.Errorf("capture.encoding %q is invalid; valid values: s16le, f32le", cfg.Capture.Encoding))
	}

	// Playback
	switch cfg.Playback.Output {
	case "", "discard":
	case "wavdir":
		if cfg.Playback.Dir == "" {
			errs = append(errs, errors.New("playback.dir is required when output is wavdir"))
		}
	case "exec":
		if cfg.Playback.Command == "" {
			errs = append(errs, errors.New("playback.command is required when output is exec"))
		}
	default:
		errs = append(errs, fmt.Errorf("playback.output %q is invalid; valid values: discard, wavdir, exec", cfg.Playback.Output))
	}
	if cfg.Playback.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("playback.sample_rate %d must be positive", cfg.Playback.SampleRate))
	}

	return errors.Join(errs...)
}
