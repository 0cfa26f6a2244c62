package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/example/interview-scheduler/internal/bootstrap"
	"github.com/example/interview-scheduler/internal/config"
	"github.com/example/interview-scheduler/internal/directory"
	"github.com/example/interview-scheduler/internal/logging"
	"github.com/example/interview-scheduler/internal/persistence/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cli carries the viper instance shared by every command of one invocation.
type cli struct {
	v          *viper.Viper
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.NewViper()}

	root := &cobra.Command{
		Use:           "scheduler",
		Short:         "Interview scheduling engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.String("sqlite-path", "", "SQLite database file")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (json, text)")

	root.AddCommand(c.serveCmd())
	root.AddCommand(c.migrateCmd())
	root.AddCommand(c.configCmd())
	root.AddCommand(c.directoryCmd())
	return root
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"sqlite-path":   config.KeySQLitePath,
	"log-level":     config.KeyLogLevel,
	"log-format":    config.KeyLogFormat,
	"directory-url": config.KeyDirectoryURL,
	"webhook-url":   config.KeyNotificationWebhookURL,
}

// load binds the flags of the running command and resolves the configuration.
func (c *cli) load(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	for name, key := range flagKeys {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			if err := c.v.BindPFlag(key, flag); err != nil {
				return config.Config{}, nil, err
			}
		}
	}
	cfg, err := config.Load(c.v, config.Options{ConfigFile: c.configFile, EnvFile: c.envFile})
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the directory refresher and notification dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.load(cmd)
			if err != nil {
				return err
			}
			ctx := logging.ContextWithLogger(cmd.Context(), logger)

			engine, err := bootstrap.NewEngine(ctx, bootstrap.Options{Config: cfg, Logger: logger})
			if err != nil {
				return err
			}
			defer func() {
				if cerr := engine.Close(); cerr != nil {
					logger.Error("failed to close storage", "error", cerr)
				}
			}()
			return engine.Run(ctx)
		},
	}
	cmd.Flags().String("directory-url", "", "base URL of the user directory")
	cmd.Flags().String("webhook-url", "", "notification webhook URL")
	return cmd
}

func (c *cli) migrateCmd() *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.load(cmd)
			if err != nil {
				return err
			}
			storage, err := sqlite.OpenWithConfig(sqlite.DefaultConfig(cfg.SQLitePath), logger)
			if err != nil {
				return err
			}
			defer storage.Close()

			ctx := cmd.Context()
			if !status {
				if err := storage.Migrate(ctx); err != nil {
					return err
				}
			}
			report, err := storage.MigrationStatus(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "current version: %s\n", report.CurrentVersion)
			for _, applied := range report.Applied {
				fmt.Fprintf(out, "applied  %s  %s\n", applied.Version, applied.AppliedAt.Format("2006-01-02T15:04:05Z07:00"))
			}
			for _, pending := range report.Pending {
				fmt.Fprintf(out, "pending  %s  %s\n", pending.Version, pending.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "only report applied and pending migrations")
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.load(cmd)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func (c *cli) directoryCmd() *cobra.Command {
	dir := &cobra.Command{Use: "directory", Short: "Inspect the user directory"}
	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the directory once and print its digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.RequireDirectory(); err != nil {
				return err
			}
			client, err := directory.NewClient(cfg.DirectoryURL, cfg.DirectoryTimeout, directory.WithRateLimit(cfg.DirectoryRateLimit, 1))
			if err != nil {
				return err
			}
			breaker := directory.NewBreaker(client, directory.BreakerSettings{
				FailureThreshold: cfg.DirectoryFailureThreshold,
				OpenTimeout:      cfg.DirectoryOpenTimeout,
				CallTimeout:      cfg.DirectoryTimeout,
			}, logger)
			cache := directory.NewCache(breaker, directory.WithLogger(logger))

			snap, err := cache.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "users: %d\ndigest: %s\n", snap.Len(), snap.Digest())
			return nil
		},
	}
	refresh.Flags().String("directory-url", "", "base URL of the user directory")
	dir.AddCommand(refresh)
	return dir
}
