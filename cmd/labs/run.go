package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/CADX03/AI-Voice-Assistant/internal/app"
	"github.com/CADX03/AI-Voice-Assistant/internal/catalog"
	"github.com/CADX03/AI-Voice-Assistant/internal/config"
	"github.com/CADX03/AI-Voice-Assistant/internal/observe"
	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
)

const shutdownTimeout = 15 * time.Second

func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		sel       selectionFlags
		url       string
		autoStart bool
		watch     bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start an interactive conversation",
		Long: `Connect to the backend and hold a conversation. Type "start" to stream the
microphone, "stop" to pause and "quit" to leave. The backend may end the call
itself, in which case the call outcome is saved to transcript.export_path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}

			var pinned *protocol.ConfigParams
			if sel.set() {
				base := catalog.Default()
				if cfg.Session.Config != nil {
					base = *cfg.Session.Config
				}
				p, err := sel.apply(base)
				if err != nil {
					return err
				}
				pinned = &p
			}
			// Flags win over the file, also after a reload.
			override := func(c *config.Config) {
				if url != "" {
					c.Backend.URL = url
				}
				if pinned != nil {
					p := *pinned
					c.Session.Config = &p
				}
			}
			override(cfg)
			if err := config.Validate(cfg); err != nil {
				return err
			}

			return runConversation(cmd, g, cfg, override, autoStart, watch)
		},
	}
	sel.register(cmd)
	cmd.Flags().StringVar(&url, "url", "", "backend WebSocket URL (overrides config and LABS_BACKEND_URL)")
	cmd.Flags().BoolVar(&autoStart, "autostart", false, "start streaming immediately")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the config file when it changes")
	return cmd
}

func runConversation(cmd *cobra.Command, g *globalFlags, cfg *config.Config, override func(*config.Config), autoStart, watch bool) error {
	level := new(slog.LevelVar)
	level.Set(cfg.LogLevel.SlogLevel())
	logger := newLogger(level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	application, err := app.New(ctx, cfg,
		app.WithLevelVar(level),
		app.WithLogger(logger),
		app.WithAutoStart(autoStart),
		app.WithConsoleIO(os.Stdin, cmd.OutOrStdout()),
	)
	if err != nil {
		return err
	}

	if watch && configFileExists(g.configPath) {
		w, err := config.NewWatcher(g.configPath, application.ApplyConfig,
			config.WithEnv(os.LookupEnv),
			config.WithOverride(override),
			config.WithWatchLogger(logger),
		)
		if err != nil {
			slog.Warn("config watcher disabled", "err", err)
		} else {
			defer w.Stop()
		}
	}

	slog.Info("labs starting",
		"backend", application.URL(),
		"config", catalog.Describe(application.Params()),
		"admin_addr", cfg.Admin.ListenAddr,
	)

	runErr := application.Run(ctx)
	if runErr != nil && errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return runErr
}
