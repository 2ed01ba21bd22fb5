package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"codeqa/internal/config"
	"codeqa/internal/service"
	"codeqa/internal/slogutil"
	"codeqa/internal/version"
)

var (
	configPath  string
	projectFlag string
	repoFlag    string
	verbosity   int
	quiet       bool
	formatFlag  string
)

// errReported is returned after a failure was already printed.
var errReported = stderrors.New("reported")

var rootCmd = &cobra.Command{
	Use:   "codeqa",
	Short: "codeqa - ask questions about a codebase",
	Long: `codeqa runs static analysis tools over a project directory (dependencies,
metrics, security patterns, git history, task comments, architecture) and
answers free-text questions by picking the relevant tools.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("codeqa version {{.Version}}\n")
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default: ./.codeqa/config.* or ~/.config/codeqa/config.*)")
	pf.StringVar(&projectFlag, "project", "", "Project directory (default: workspace.localProject)")
	pf.StringVar(&repoFlag, "repo", "", `Repository to analyze: "local", a directory or a git URL`)
	pf.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Suppress all logs")
	pf.StringVar(&formatFlag, "format", string(FormatHuman), "Output format (json, human)")
}

// app is what every command needs after flags are parsed.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	svc    *service.Service
	format OutputFormat
	closer io.Closer
}

// loadConfig reads configuration and builds the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quiet {
		level = slogutil.LevelFromVerbosity(verbosity, quiet)
	}
	logger, closer, err := slogutil.Open(cmd.ErrOrStderr(), slogutil.Options{
		Format: cfg.Logging.Format,
		Level:  level,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return cfg, logger, closer, nil
}

// newApp loads configuration and builds the service.
func newApp(cmd *cobra.Command) (*app, error) {
	format, err := ParseFormat(formatFlag)
	if err != nil {
		return nil, err
	}
	cfg, logger, closer, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if projectFlag != "" {
		cfg.Workspace.LocalProject = projectFlag
	}

	var opts []service.Option
	db, err := service.OpenHistory(cfg, logger)
	if err != nil {
		logger.Warn("history disabled", "error", err.Error())
	} else if db != nil {
		opts = append(opts, service.WithHistory(db))
	}

	svc, err := service.New(cfg, logger, opts...)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		_ = closer.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, svc: svc, format: format, closer: closer}, nil
}

func (a *app) Close() {
	if err := a.svc.Close(); err != nil {
		a.logger.Warn("cleanup failed", "error", err.Error())
	}
	_ = a.closer.Close()
}

// projectPath resolves --repo (or --project) to a directory. Without either
// flag the configured local project is used.
func (a *app) projectPath(cmd *cobra.Command) (string, error) {
	if repoFlag == "" {
		return a.cfg.Workspace.LocalProject, nil
	}
	ws, err := a.svc.ResolveRepo(cmd.Context(), repoFlag)
	if err != nil {
		return "", err
	}
	return ws.Path, nil
}
