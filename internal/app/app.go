// Package app wires the streaming client together.
//
// The App struct owns the full lifecycle: New builds the capture source,
// playback output, transcript store and session from the config, Run drives
// the interactive conversation plus the admin server, and Shutdown tears
// everything down in order.
//
// For testing, inject doubles via functional options (WithSource, WithOutput,
// WithStore, WithConsoleIO). When an option is not provided, New creates the
// real implementation from the config.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/CADX03/AI-Voice-Assistant/internal/catalog"
	"github.com/CADX03/AI-Voice-Assistant/internal/config"
	"github.com/CADX03/AI-Voice-Assistant/internal/health"
	"github.com/CADX03/AI-Voice-Assistant/internal/observe"
	"github.com/CADX03/AI-Voice-Assistant/internal/playback"
	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
	"github.com/CADX03/AI-Voice-Assistant/internal/resilience"
	"github.com/CADX03/AI-Voice-Assistant/internal/session"
	"github.com/CADX03/AI-Voice-Assistant/internal/transcript"
	"github.com/CADX03/AI-Voice-Assistant/internal/transcript/postgres"
	"github.com/CADX03/AI-Voice-Assistant/internal/transport"
	"github.com/CADX03/AI-Voice-Assistant/pkg/audio"
	"github.com/CADX03/AI-Voice-Assistant/pkg/audio/capture"
	"github.com/CADX03/AI-Voice-Assistant/pkg/audio/codec"
)

// App owns all subsystem lifetimes of one conversation.
type App struct {
	cfg       *config.Config
	url       string
	sessionID string
	autoStart bool

	log     *slog.Logger
	level   *slog.LevelVar
	metrics *observe.Metrics

	// Subsystems, initialised in New and torn down in Shutdown.
	source  audio.Source
	output  audio.Output
	store   transcript.Store
	in      io.Reader
	out     io.Writer
	player  *playback.Controller
	session *session.Session
	console *Console

	checkers []health.Checker

	mu     sync.Mutex
	params protocol.ConfigParams

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSource injects a capture source instead of building one from config.
func WithSource(s audio.Source) Option {
	return func(a *App) { a.source = s }
}

// WithOutput injects a playback output instead of building one from config.
func WithOutput(o audio.Output) Option {
	return func(a *App) { a.output = o }
}

// WithStore injects a transcript store instead of creating one from config.
func WithStore(s transcript.Store) Option {
	return func(a *App) { a.store = s }
}

// WithConsoleIO sets where commands are read from and the conversation is
// printed to. Default: stdin and stdout.
func WithConsoleIO(in io.Reader, out io.Writer) Option {
	return func(a *App) { a.in, a.out = in, out }
}

// WithLevelVar lets config reloads change the log level at runtime.
func WithLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.level = v }
}

// WithLogger sets the logger. Default: [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithAutoStart starts streaming as soon as Run begins, without waiting for
// a "start" command.
func WithAutoStart(on bool) Option {
	return func(a *App) { a.autoStart = on }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. It does not contact
// the backend; that happens in Run.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.in == nil {
		a.in = os.Stdin
	}
	if a.out == nil {
		a.out = os.Stdout
	}

	url, err := config.ResolveBackendURL(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.url = url

	a.params = catalog.Default()
	if p := cfg.Session.Config; p != nil {
		a.params = *p
	}
	if err := catalog.Validate(a.params); err != nil {
		return nil, fmt.Errorf("app: session config: %w", err)
	}

	if err := a.initAudio(); err != nil {
		return nil, err
	}
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init transcript store: %w", err)
	}

	a.sessionID = transcript.NewSessionID()
	a.console = NewConsole(a.out, a.store, a.sessionID, cfg.Transcript.ExportPath, catalog.FeedbackURL(a.params), a.log)
	a.player = playback.New(a.output, codec.NewRegistry(cfg.Session.SampleRate),
		playback.WithLogger(a.log),
		playback.WithMetrics(a.metrics),
	)
	a.session = session.New(a.url, a.source, a.player, a.console,
		session.WithConfig(a.params),
		session.WithFrameSize(cfg.Session.FrameSize),
		session.WithLogger(a.log.With("session_id", a.sessionID)),
		session.WithMetrics(a.metrics),
		session.WithTransportOptions(
			transport.WithReadLimit(cfg.Backend.ReadLimit),
			transport.WithWriteTimeout(cfg.Backend.WriteTimeout),
			transport.WithDialTimeout(cfg.Backend.DialTimeout),
		),
	)
	a.checkers = append(a.checkers, health.Checker{Name: "backend", Check: a.checkBackend})

	return a, nil
}

func (a *App) initAudio() error {
	if a.source == nil {
		src, err := capture.New(capture.Config{
			Source:   a.cfg.Capture.Source,
			Path:     a.cfg.Capture.Path,
			Command:  a.cfg.Capture.Command,
			Args:     a.cfg.Capture.Args,
			Encoding: capture.Encoding(a.cfg.Capture.Encoding),
			Realtime: a.cfg.Capture.Realtime,
		})
		if err != nil {
			return fmt.Errorf("app: init capture: %w", err)
		}
		a.source = src
	}
	if a.output == nil {
		out, err := playback.NewOutput(playback.Config{
			Output:     a.cfg.Playback.Output,
			Command:    a.cfg.Playback.Command,
			Args:       a.cfg.Playback.Args,
			Dir:        a.cfg.Playback.Dir,
			SampleRate: a.cfg.Playback.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("app: init playback: %w", err)
		}
		a.output = out
	}
	return nil
}

func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	dsn := a.cfg.Transcript.PostgresDSN
	if dsn == "" {
		a.store = transcript.NewMemStore()
		return nil
	}
	pg, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return err
	}
	a.store = transcript.NewFallbackStore(pg, transcript.NewMemStore(), resilience.Config{
		Name:   "transcript",
		Logger: a.log,
	})
	a.closers = append(a.closers, func() error { pg.Close(); return nil })
	a.checkers = append(a.checkers, health.Checker{Name: "transcript", Check: pg.Ping})
	a.log.Info("transcript store connected", "kind", "postgres")
	return nil
}

// Session returns the conversation session.
func (a *App) Session() *session.Session { return a.session }

// SessionID returns the identifier the transcript is stored under.
func (a *App) SessionID() string { return a.sessionID }

// URL returns the resolved backend endpoint.
func (a *App) URL() string { return a.url }

// Params returns the component selection sent to the backend.
func (a *App) Params() protocol.ConfigParams {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.params
}

// Checkers returns the readiness checks served on /readyz.
func (a *App) Checkers() []health.Checker { return a.checkers }

func (a *App) checkBackend(_ context.Context) error {
	switch st := a.session.State(); st {
	case session.StateConnected, session.StateStreaming:
		return nil
	default:
		return fmt.Errorf("session %s", st)
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the admin endpoints (when configured) and drives the
// conversation until the backend ends it, the user quits, or ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if addr := a.cfg.Admin.ListenAddr; addr != "" {
		mux := http.NewServeMux()
		health.New(health.WithCheckers(a.checkers...)).Register(mux)
		handler := observe.Middleware(a.metrics)(mux)
		g.Go(func() error { return health.Serve(ctx, addr, handler) })
	}

	g.Go(func() error {
		defer cancel()
		return a.converse(ctx)
	})

	return g.Wait()
}

// ApplyConfig reacts to a config file change. Log level and session config
// apply immediately; the session config is sent on the next connection.
// Other sections are reported as requiring a restart.
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)

	if d.LogLevelChanged && a.level != nil {
		a.level.Set(d.NewLogLevel.SlogLevel())
		a.log.Info("log level changed", "level", d.NewLogLevel)
	}

	if d.SessionConfigChanged {
		p := catalog.Default()
		if d.NewSessionConfig != nil {
			p = *d.NewSessionConfig
		}
		if err := catalog.Validate(p); err != nil {
			a.log.Warn("ignoring session config change", "err", err)
		} else {
			a.mu.Lock()
			a.params = p
			a.mu.Unlock()
			a.session.Transport().SetConfig(&p)
			a.log.Info("session config changed; applies on next connection", "config", catalog.Describe(p))
		}
	}

	if len(d.RestartRequired) > 0 {
		a.log.Warn("config changes require a restart", "sections", d.RestartRequired)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown disconnects from the backend and closes the remaining subsystems
// in order. If ctx expires before all closers finish, the remaining closers
// are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.log.Info("shutting down", "closers", len(a.closers))

		a.session.Disconnect(false)

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				a.log.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				a.log.Warn("closer error", "index", i, "err", err)
			}
		}

		a.log.Info("shutdown complete")
	})
	return shutdownErr
}
