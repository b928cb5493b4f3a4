package cmd

import (
	"fmt"

	"github.com/drengskapur/repodiff/pkg/config"
	"github.com/drengskapur/repodiff/pkg/ignore"
	"github.com/drengskapur/repodiff/pkg/logging"
	"github.com/drengskapur/repodiff/pkg/pathguard"
	"github.com/drengskapur/repodiff/pkg/store"
	"github.com/drengskapur/repodiff/pkg/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	logger *zap.Logger
	cfg    *config.Config
	base   string // Canonical repository root.

	dirFlag    string
	configFlag string
	debugFlag  bool
}

// Execute builds the command tree and runs it.
func Execute(logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	return newRootCmd(&app{logger: logger}).Execute()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "repodiff",
		Short: "Exchange whole-file changes with an AI agent",
		Long: `repodiff packs selected repository files and instructions into a prompt,
then parses the agent's XML reply and writes each replaced file atomically.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVarP(&a.dirFlag, "dir", "C", ".", "repository root")
	root.PersistentFlags().StringVar(&a.configFlag, "config", "", "config file (default $XDG_CONFIG_HOME/repodiff/config.yaml)")
	root.PersistentFlags().BoolVar(&a.debugFlag, "debug", false, "enable debug logging")

	root.AddCommand(
		newScanCmd(a),
		newPromptCmd(a),
		newApplyCmd(a),
		newCleanCmd(a),
		newGroupCmd(a),
		newInstructionsCmd(a),
		newRulesCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration, rebuilds the logger when asked to and resolves
// the repository root.
func (a *app) setup() error {
	cfg, err := config.Load(config.Options{File: a.configFlag})
	if err != nil {
		return err
	}
	if a.debugFlag {
		cfg.Debug = true
	}
	a.cfg = cfg

	if cfg.Debug || cfg.LogFile != "" {
		logger, err := logging.Setup(logging.Options{
			Debug:      cfg.Debug,
			File:       cfg.LogFile,
			AppName:    config.AppName,
			AppVersion: version.Version,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.logger = logger
	}

	base, err := pathguard.CanonicalBase(a.dirFlag)
	if err != nil {
		return err
	}
	a.base = base
	a.logger.Debug("Resolved repository root", zap.String("base", base))
	return nil
}

// withStore opens the settings store, runs fn and closes it, persisting any
// changes fn made.
func (a *app) withStore(fn func(*store.Store) error) error {
	path := a.cfg.StorePath
	if path == "" {
		var err error
		if path, err = store.DefaultPath(); err != nil {
			return err
		}
	}

	s, err := store.Open(store.NewFileBackend(path), a.logger)
	if err != nil {
		return err
	}
	fnErr := fn(s)
	if err := s.Close(); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}

// overrides stacks the configured, global and per-repository ignore layers.
func (a *app) overrides(s *store.Store) (ignore.Overrides, error) {
	stored, err := s.EffectiveIgnore(a.base)
	if err != nil {
		return ignore.Overrides{}, err
	}
	return a.cfg.Ignore.Combine(stored), nil
}

// matcher compiles the effective rule set, with the .gitignore layer when
// enabled.
func (a *app) matcher(s *store.Store) (*ignore.Matcher, error) {
	o, err := a.overrides(s)
	if err != nil {
		return nil, err
	}
	m := ignore.NewMatcher(ignore.Merge(ignore.DefaultRules(), o), a.logger)
	if !a.cfg.RespectGitignore {
		return m, nil
	}

	gi, err := ignore.LoadGitignore(a.base, a.logger)
	if err != nil {
		a.logger.Warn("Ignoring unreadable .gitignore", zap.Error(err))
		return m, nil
	}
	return m.WithGitignore(gi), nil
}
