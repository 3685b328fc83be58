package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"sqrt-go/internal/app"
	"sqrt-go/internal/location"
	"sqrt-go/internal/sqrt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync SOURCE",
	Short: "Load changed inputs of a source into the warehouse",
	Long: `Load changed inputs of a source into the warehouse.

SOURCE is one of aw, aw-android, aw-postprocess, aw-intervals, mpd, sleep,
waka, messengers, youtube, archive or all. A job that already succeeded today is skipped unless
--force is given.`,
	Args: cobra.ExactArgs(1),
	ValidArgs: append(append([]string{}, sqrt.JobNames...),
		app.StepAwAndroid, app.StepAwPostprocess, app.StepAwIntervals, app.SyncAll),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Sync(cmd.Context(), args[0], force); err != nil {
			return fmt.Errorf("sync %s: %w", args[0], err)
		}
		return nil
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Compress processed inputs into the vault",
}

var archiveRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Archive every closed group of processed files",
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if !dryRun {
			return a.RunJob(cmd.Context(), sqrt.JobArchive, true)
		}

		groups, err := a.PlanArchive(cmd.Context())
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			fmt.Println("Nothing to archive.")
			return nil
		}
		for _, g := range groups {
			fmt.Printf("%s  %d file(s)\n", a.ArchiveKey(g), len(g.Files))
			for _, f := range g.Files {
				fmt.Printf("    %s\n", f.ID())
			}
		}
		return nil
	},
}

var archiveGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Download an archive from the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		key := args[0]
		var passphrase string
		if a.ArchiveEncrypted(key) {
			if passphrase, err = readPassphrase("Archive key passphrase: ", false); err != nil {
				return err
			}
		}

		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}
		return a.GetArchive(cmd.Context(), key, passphrase, w)
	},
}

var archiveCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that the vault is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ValidateVault(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Vault OK")
		return nil
	},
}

var locationCmd = &cobra.Command{
	Use:   "location",
	Short: "Inspect location resolution",
}

var locationCheckCmd = &cobra.Command{
	Use:   "check TIMESTAMP [HOSTNAME]",
	Short: "Resolve the location of a UTC timestamp (RFC 3339)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := time.Parse(time.RFC3339, args[0])
		if err != nil {
			return fmt.Errorf("parsing timestamp: %w", err)
		}
		var hostname string
		if len(args) > 1 {
			hostname = args[1]
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := location.NewMatcherFromConfig(cfg.Location)
		if err != nil {
			return fmt.Errorf("loading location tables: %w", err)
		}
		if m == nil {
			fmt.Println("Location resolution is not configured.")
			return nil
		}

		loc, local := m.Resolve(ts.UTC(), hostname)
		if loc == "" {
			fmt.Printf("no location  %s\n", local.Format(time.DateTime))
			return nil
		}
		fmt.Printf("%s  %s\n", loc, local.Format(time.DateTime))
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View job run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No job runs recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-8s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format(time.DateTime),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolP("force", "f", false, "Run even if the job already succeeded today")

	archiveCmd.AddCommand(archiveRunCmd)
	archiveCmd.AddCommand(archiveGetCmd)
	archiveCmd.AddCommand(archiveCheckCmd)
	archiveRunCmd.Flags().Bool("dry-run", false, "Only list the archives that would be written")
	archiveGetCmd.Flags().StringP("output", "o", "", "Write the archive to a file instead of stdout")

	locationCmd.AddCommand(locationCheckCmd)

	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
}
