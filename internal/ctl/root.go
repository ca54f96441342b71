// Package ctl implements the searchvault operator CLI.
package ctl

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edvin/searchvault/internal/config"
	"github.com/edvin/searchvault/internal/db"
	"github.com/edvin/searchvault/internal/indexbackup"
	"github.com/edvin/searchvault/internal/logging"
	"github.com/edvin/searchvault/internal/model"
	"github.com/edvin/searchvault/internal/objectstore"
	"github.com/edvin/searchvault/internal/queue"
	"github.com/edvin/searchvault/internal/search"
)

// Queue is the queue API the commands use.
type Queue interface {
	SendMessage(ctx context.Context, queue string, v any) (string, error)
	Stats(ctx context.Context, queues []string) ([]model.QueueStats, error)
}

// Search is the search service API the commands use.
type Search interface {
	indexbackup.SearchIndex
	indexbackup.IndexLister
	Allowed(endpoint string) bool
}

// Env holds what the commands run against. Store is nil when no bucket
// is configured.
type Env struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Queue   Queue
	Search  Search
	Store   indexbackup.BlobStore
	Migrate func() error
	Close   func()
}

// EnvLoader builds the Env for one command invocation.
type EnvLoader func(ctx context.Context) (*Env, error)

// NewRootCmd returns the root command. load is called by each subcommand
// that needs the environment.
func NewRootCmd(stdout, stderr io.Writer, load EnvLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "searchvault",
		Short:         "Back up and restore search indexes through the snapshot queues",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.AddCommand(newMigrateCmd(stdout, load))
	cmd.AddCommand(newFanOutCmd(stdout, load))
	cmd.AddCommand(newBackupCmd(stdout, load))
	cmd.AddCommand(newRestoreCmd(stdout, load))
	cmd.AddCommand(newDrainRestoreCmd(stdout, load))
	cmd.AddCommand(newQueuesCmd(stdout, load))

	return cmd
}

// Execute runs the CLI with the process stdio and environment.
func Execute() int {
	root := NewRootCmd(os.Stdout, os.Stderr, LoadEnv)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// LoadEnv builds an Env from environment variables.
func LoadEnv(ctx context.Context) (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate("ctl"); err != nil {
		return nil, err
	}
	logger := logging.NewLogger(cfg, "searchvault")

	endpoints, err := cfg.LoadSearchEndpoints()
	if err != nil {
		return nil, err
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	env := &Env{
		Config:  cfg,
		Logger:  logger,
		Queue:   queue.New(pool),
		Search:  search.NewClient(endpoints, cfg.SearchAPIVersion),
		Migrate: func() error { return db.RunMigrations(cfg.DatabaseURL) },
		Close:   pool.Close,
	}
	if cfg.S3Bucket != "" {
		env.Store = objectstore.NewS3Store(logger, objectstore.S3Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}
	return env, nil
}

// withEnv loads the Env, runs fn and releases the Env.
func withEnv(cmd *cobra.Command, load EnvLoader, fn func(ctx context.Context, env *Env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := load(ctx)
	if err != nil {
		return err
	}
	if env.Close != nil {
		defer env.Close()
	}
	return fn(ctx, env)
}
