package ctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/edvin/searchvault/internal/indexbackup"
	"github.com/edvin/searchvault/internal/model"
	"github.com/edvin/searchvault/internal/platform"
	"github.com/edvin/searchvault/internal/search"
)

func newMigrateCmd(stdout io.Writer, load EnvLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the queue tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, load, func(_ context.Context, env *Env) error {
				if err := env.Migrate(); err != nil {
					return err
				}
				fmt.Fprintln(stdout, "queue database is up to date")
				return nil
			})
		},
	}
}

func newFanOutCmd(stdout io.Writer, load EnvLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "fanout",
		Short: "Enqueue a backup of every index on every allow-listed endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, load, func(ctx context.Context, env *Env) error {
				f := indexbackup.NewFanOut(env.Search, env.Queue, env.Config.BackupQueue, env.Logger)
				n, err := f.Run(ctx)
				fmt.Fprintf(stdout, "enqueued %d backup messages\n", n)
				return err
			})
		},
	}
}

func newBackupCmd(stdout io.Writer, load EnvLoader) *cobra.Command {
	var endpoint, index, run string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Enqueue a backup of a single index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, load, func(ctx context.Context, env *Env) error {
				if !env.Search.Allowed(endpoint) {
					return fmt.Errorf("%w: %s", search.ErrInvalidEndpoint, endpoint)
				}
				if run == "" {
					run = platform.NewRunID(time.Now())
				}
				msg := indexbackup.NewBackupMessage(run, endpoint, index)
				return send(ctx, stdout, env.Queue, env.Config.BackupQueue, msg)
			})
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Search service endpoint URL")
	cmd.Flags().StringVar(&index, "index", "", "Index name")
	cmd.Flags().StringVar(&run, "run", "", "Run id used as snapshot folder (default: now)")
	cmd.MarkFlagRequired("endpoint")
	cmd.MarkFlagRequired("index")
	return cmd
}

type restoreFlags struct {
	folder, endpoint, index, after string
}

func (f *restoreFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.folder, "folder", "", "Snapshot folder (the backup run id)")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "Search service endpoint URL to restore into")
	cmd.Flags().StringVar(&f.index, "index", "", "Index name")
	cmd.Flags().StringVar(&f.after, "after", "", "Only replay blobs with a version after this one")
	cmd.MarkFlagRequired("folder")
	cmd.MarkFlagRequired("endpoint")
	cmd.MarkFlagRequired("index")
}

func (f *restoreFlags) message(env *Env) (model.RestoreQueueMessage, error) {
	if !env.Search.Allowed(f.endpoint) {
		return model.RestoreQueueMessage{}, fmt.Errorf("%w: %s", search.ErrInvalidEndpoint, f.endpoint)
	}
	msg := model.RestoreQueueMessage{FolderName: f.folder, Endpoint: f.endpoint, IndexName: f.index}
	if f.after != "" {
		if _, err := model.ParseVersionID(f.after); err != nil {
			return model.RestoreQueueMessage{}, fmt.Errorf("--after: %w", err)
		}
		msg.LastBlobVersionID = &f.after
	}
	return msg, nil
}

func newRestoreCmd(stdout io.Writer, load EnvLoader) *cobra.Command {
	var flags restoreFlags
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Enqueue a restore of one index from a snapshot folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, load, func(ctx context.Context, env *Env) error {
				msg, err := flags.message(env)
				if err != nil {
					return err
				}
				return send(ctx, stdout, env.Queue, env.Config.RestoreQueue, msg)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newDrainRestoreCmd(stdout io.Writer, load EnvLoader) *cobra.Command {
	var flags restoreFlags
	cmd := &cobra.Command{
		Use:   "drain-restore",
		Short: "Restore one index in this process, without the queue worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, load, func(ctx context.Context, env *Env) error {
				if env.Store == nil {
					return errors.New("S3_BUCKET is required for drain-restore")
				}
				msg, err := flags.message(env)
				if err != nil {
					return err
				}
				job := indexbackup.NewRestoreJob(env.Search, env.Store, env.Logger, nil)
				n, err := indexbackup.DrainRestore(ctx, job, msg)
				if err != nil {
					return fmt.Errorf("restore stopped after %d invocations: %w", n, err)
				}
				fmt.Fprintf(stdout, "restored %s into %s/%s in %d invocations\n", msg.FolderName, msg.Endpoint, msg.IndexName, n)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newQueuesCmd(stdout io.Writer, load EnvLoader) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "queues",
		Short: "Show message counts of the backup and restore queues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, load, func(ctx context.Context, env *Env) error {
				stats, err := env.Queue.Stats(ctx, []string{env.Config.BackupQueue, env.Config.RestoreQueue})
				if err != nil {
					return err
				}
				switch output {
				case "json":
					enc := json.NewEncoder(stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(stats)
				case "table", "":
					return renderQueueTable(stdout, stats)
				default:
					return fmt.Errorf("unsupported --output: %s", output)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	return cmd
}

func send(ctx context.Context, stdout io.Writer, q Queue, queueName string, msg any) error {
	id, err := q.SendMessage(ctx, queueName, msg)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "enqueued %s on %s\n", id, queueName)
	return nil
}

func renderQueueTable(w io.Writer, stats []model.QueueStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEUE\tREADY\tIN FLIGHT\tPOISONED")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", s.Queue, s.Ready, s.InFlight, s.Poisoned)
	}
	return tw.Flush()
}
