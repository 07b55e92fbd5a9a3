package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CADX03/AI-Voice-Assistant/internal/catalog"
	"github.com/CADX03/AI-Voice-Assistant/internal/config"
	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
)

const defaultConfigPath = "labs.yaml"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	envFiles   []string
}

// selectionFlags pick pipeline components by name or ID.
type selectionFlags struct {
	model, stt, llm, tts, language string
}

func (s *selectionFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&s.model, "model", "", "model preset by name or ID (e.g. orion, custom)")
	f.StringVar(&s.stt, "stt", "", "speech-to-text component by name or ID")
	f.StringVar(&s.llm, "llm", "", "language model by name or ID")
	f.StringVar(&s.tts, "tts", "", "text-to-speech component by name or ID")
	f.StringVar(&s.language, "language", "", "conversation language by name or ID")
}

func (s *selectionFlags) set() bool {
	return s.model != "" || s.stt != "" || s.llm != "" || s.tts != "" || s.language != ""
}

// apply resolves the selection on top of base. A model flag resets the other
// components to the model's presets before the explicit flags are applied.
func (s *selectionFlags) apply(base protocol.ConfigParams) (protocol.ConfigParams, error) {
	p := base
	if s.model != "" {
		o, err := catalog.Lookup(catalog.KindModel, s.model)
		if err != nil {
			return p, err
		}
		if p, err = catalog.ForModel(o.ID); err != nil {
			return p, err
		}
	}
	for _, sel := range []struct {
		kind  catalog.Kind
		value string
		dst   *int
	}{
		{catalog.KindSTT, s.stt, &p.STT},
		{catalog.KindLLM, s.llm, &p.LLM},
		{catalog.KindTTS, s.tts, &p.TTS},
		{catalog.KindLanguage, s.language, &p.Language},
	} {
		if sel.value == "" {
			continue
		}
		o, err := catalog.Lookup(sel.kind, sel.value)
		if err != nil {
			return p, err
		}
		*sel.dst = o.ID
	}
	return p, nil
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "labs",
		Short: "Voice Future LABS streaming client",
		Long: `labs talks to a Voice Future LABS backend: it streams 16 kHz microphone
audio over a WebSocket, plays the synthesized replies and prints the
conversation as it happens.

Configuration is read from labs.yaml (if present), .env files and the
LABS_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", defaultConfigPath, "path to the YAML configuration file")
	root.PersistentFlags().StringSliceVar(&g.envFiles, "env-file", []string{".env"}, "dotenv files loaded before reading LABS_* variables")

	root.AddCommand(
		newRunCmd(g),
		newOptionsCmd(),
		newValidateCmd(g),
		newFeedbackCmd(g),
	)
	return root
}

// loadConfig reads the config file, dotenv files and environment. A missing
// file at the default path yields the built-in defaults.
func loadConfig(cmd *cobra.Command, g *globalFlags) (*config.Config, error) {
	if err := config.LoadDotEnv(g.envFiles...); err != nil {
		return nil, err
	}

	cfg, err := config.Load(g.configPath)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, err = config.LoadFromReader(strings.NewReader(""))
	}
	if err != nil {
		return nil, err
	}

	config.ApplyEnv(cfg, os.LookupEnv)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	return cfg, nil
}

// configFileExists reports whether the config path names an existing file.
func configFileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func newLogger(level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
