package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/koopa0/ragline/internal/ingest"
	"github.com/koopa0/ragline/internal/storage"
)

var watchProject string

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and keep the project index in sync",
	Long: `Watch ingests every supported file under the directory, then re-ingests
files as they are created or modified until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchProject, "project", "p", "", "project identifier (alphanumeric)")
	_ = watchCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := storage.ValidateProjectID(watchProject); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	watcher := ingest.NewWatcher(a.ingestor, a.logger)
	if err := watcher.Watch(ctx, watchProject, args[0]); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
