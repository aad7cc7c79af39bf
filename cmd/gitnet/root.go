package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gitnet/internal/config"
	"gitnet/internal/executor"
	"gitnet/internal/model"
	"gitnet/internal/repo"
	"gitnet/internal/slogutil"
	"gitnet/internal/version"
)

var (
	repoFlag    string
	authorsFlag string
	verbosity   int
	quietFlag   bool
	logFileFlag string
)

var rootCmd = &cobra.Command{
	Use:   "gitnet",
	Short: "gitnet - live commit graph for git repositories",
	Long: `gitnet turns the history of a git repository into a positioned commit graph
and keeps it current as the repository changes. It can print the graph, serve it
over HTTP and websockets, or answer the usual log, branch and status questions.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("gitnet version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&repoFlag, "repo", "C", ".", "Repository path")
	rootCmd.PersistentFlags().StringVar(&authorsFlag, "authors", "",
		"TOML file mapping author emails to GitHub usernames")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all logging")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Also write logs to this file (rotated)")
}

// app is the wiring shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
	exec   *executor.Executor
	svc    *repo.Service
	info   *model.RepositoryInfo
}

// setup opens the repository named by --repo, loads its configuration and
// builds the service stack. Callers must call close.
func setup(ctx context.Context) (*app, error) {
	level := slogutil.LevelFromVerbosity(verbosity, quietFlag)

	// Discovery runs with defaults; the repository's own config is read
	// once its root is known.
	bootLogger := slogutil.NewConsoleLogger(os.Stderr, level)
	probe := repo.New(executor.New(executor.Options{}, bootLogger), config.DefaultConfig(), bootLogger)
	info, err := probe.Open(ctx, repoFlag)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(info.Path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, closer, err := slogutil.FromConfig(cfg, slogutil.Options{
		Console:      os.Stderr,
		ConsoleLevel: level,
		File:         logFileFlag,
	})
	if err != nil {
		return nil, err
	}

	exec := executor.New(executor.OptionsFromConfig(cfg), logger)
	svc := repo.New(exec, cfg, logger)

	authors := authorsFlag
	if authors == "" {
		authors = cfg.AuthorsFile
	}
	if authors != "" {
		users, err := config.LoadAuthorMap(authors)
		if err != nil {
			_ = closer.Close()
			return nil, err
		}
		svc.SetGitHubUsers(users)
		logger.Debug("Loaded author map", "path", authors, "authors", len(users))
	}

	return &app{cfg: cfg, logger: logger, closer: closer, exec: exec, svc: svc, info: info}, nil
}

func (a *app) close() {
	_ = a.closer.Close()
}
