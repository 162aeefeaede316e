// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/vakil/internal/app"
	"github.com/jeranaias/vakil/internal/assistant"
	"github.com/jeranaias/vakil/internal/config"
	"github.com/jeranaias/vakil/internal/dispatch"
	"github.com/jeranaias/vakil/internal/logging"
	"github.com/jeranaias/vakil/internal/render"
	"github.com/jeranaias/vakil/internal/session"
	"github.com/jeranaias/vakil/internal/storage"
)

// =============================================================================
// ENVIRONMENT
// =============================================================================

// Flags are the persistent command-line flags.
type Flags struct {
	ConfigPath string
	APIURL     string
	DataDir    string
	Storage    string
	Theme      string
	Verbose    bool
	Plain      bool
}

// Env holds everything a command needs once configuration is loaded.
type Env struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    storage.Store
	Registry *session.Registry
	Service  *assistant.Client
	Client   *app.Client
	Renderer *render.Renderer
	DataDir  string

	closers []func()
}

// Close releases the store and flushes the logger.
func (e *Env) Close() {
	if e == nil {
		return
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

// loadConfig resolves configuration from the file, the environment and
// then flags.
func loadConfig(f *Flags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.ConfigPath != "" {
		cfg, err = config.LoadFromPath(f.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		if cfg == nil {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "%s %v (using defaults)\n", WarningStyle.Render("[Warning]"), err)
	}

	if f.APIURL != "" {
		cfg.API.URL = f.APIURL
	}
	if f.DataDir != "" {
		cfg.Storage.Dir = f.DataDir
	}
	if f.Storage != "" {
		cfg.Storage.Backend = f.Storage
	}
	if f.Theme != "" {
		cfg.UI.Theme = f.Theme
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// NewEnv builds the client stack described by f.
func NewEnv(f *Flags) (*Env, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, err
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	env := &Env{Config: cfg, DataDir: dataDir}

	logger, syncLog, err := logging.New(logging.Options{Dir: dataDir, Verbose: f.Verbose})
	if err != nil {
		return nil, err
	}
	env.Logger = logger
	env.closers = append(env.closers, syncLog)

	store, err := storage.Open(storage.Options{Backend: cfg.Storage.Backend, Dir: dataDir})
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	env.Store = store
	env.closers = append(env.closers, func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	})

	env.Registry = session.NewRegistry(store, logger)
	if err := env.Registry.Load(); err != nil {
		logger.Warn("stored chats unreadable, starting empty", zap.Error(err))
		fmt.Fprintf(os.Stderr, "%s stored chats could not be read; starting with an empty list\n",
			WarningStyle.Render("[Warning]"))
	}

	env.Service = assistant.NewClient(cfg.API.URL).
		WithTimeout(cfg.APITimeout()).
		WithRateLimit(cfg.API.RatePerSec).
		WithLogger(logger)

	env.Client = app.New(app.Options{
		Registry: env.Registry,
		Service:  env.Service,
		Dispatch: dispatch.Config{Synthesize: cfg.Speech.Synthesize},
		Logger:   logger,
	})
	env.closers = append(env.closers, env.Client.Wait)

	theme, err := render.ParseTheme(cfg.UI.Theme)
	if err != nil {
		env.Close()
		return nil, err
	}
	tty := DetectTerminal()
	renderer, err := render.New(render.Options{
		Theme:    theme,
		WordWrap: tty.Width - 4,
		Plain:    f.Plain || !tty.StdoutTTY,
	})
	if err != nil {
		logger.Debug("markdown renderer unavailable", zap.Error(err))
		renderer, _ = render.New(render.Options{Plain: true})
	}
	env.Renderer = renderer

	logger.Debug("environment ready",
		zap.String("api_url", cfg.API.URL),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("data_dir", dataDir))
	return env, nil
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCmd builds the vakil command tree.
func NewRootCmd(version string) *cobra.Command {
	flags := &Flags{}
	var env *Env

	root := &cobra.Command{
		Use:   "vakil",
		Short: "Terminal client for the legal-assistant service",
		Long: `vakil is a chat client for the legal-assistant service.

Run without arguments to start an interactive chat. Chats are saved
locally and restored on the next start.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["env"] == "none" {
				return nil
			}
			var err error
			env, err = NewEnv(flags)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			env.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), env, cmd.OutOrStdout())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "config file (default ~/.vakil/config.toml)")
	pf.StringVar(&flags.APIURL, "api-url", "", "assistant service URL")
	pf.StringVar(&flags.DataDir, "data-dir", "", "directory for chats and logs")
	pf.StringVar(&flags.Storage, "storage", "", "storage backend: file, sqlite or memory")
	pf.StringVar(&flags.Theme, "theme", "", "markdown theme: auto, dark or light")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "log debug output to stderr")
	pf.BoolVar(&flags.Plain, "plain", false, "disable markdown styling")

	envFn := func() *Env { return env }
	root.AddCommand(
		newAskCmd(envFn),
		newSessionsCmd(envFn),
		newExportCmd(envFn),
		newKeyboardCmd(),
		newLanguagesCmd(envFn),
		newConfigCmd(envFn),
	)
	return root
}

// Execute runs the root command and reports errors on stderr.
func Execute(version string) int {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("Error:"), err)
		var verrs config.ValidateErrors
		if errors.As(err, &verrs) {
			return 2
		}
		return 1
	}
	return 0
}
