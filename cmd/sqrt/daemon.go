package main

import (
	"context"
	"fmt"
	"time"

	"sqrt-go/internal/app"
	"sqrt-go/internal/schedule"
	"sqrt-go/internal/watch"

	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scheduled jobs until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		withWatch, _ := cmd.Flags().GetBool("watch")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		sched, err := schedule.New(a, a.ScheduledJobs(), a.Logger())
		if err != nil {
			return err
		}
		for _, e := range sched.Entries() {
			fmt.Printf("%-8s next run %s\n", e.Name, e.Next.Format(time.DateTime))
		}

		if !withWatch {
			return sched.Run(cmd.Context())
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		watchErr := make(chan error, 1)
		go func() {
			err := runWatcher(ctx, a)
			if err != nil {
				cancel()
			}
			watchErr <- err
		}()

		err = sched.Run(ctx)
		cancel()
		if werr := <-watchErr; werr != nil && err == nil {
			err = werr
		}
		return err
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run sync jobs when their input folders change",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		return runWatcher(cmd.Context(), a)
	},
}

func runWatcher(ctx context.Context, a *app.SqrtApp) error {
	w, err := watch.New(a.WatchFolders(), a, a.Filesystem(), a.WatchDebounce(), a.Logger())
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

func init() {
	daemonCmd.Flags().Bool("watch", false, "Also watch the input folders")
}
