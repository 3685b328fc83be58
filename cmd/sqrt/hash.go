package main

import (
	"fmt"

	"sqrt-go/internal/sqrt"

	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Inspect and change the processed state of input files",
}

func updatedMarker(updated bool) string {
	if updated {
		return "[UPD]"
	}
	return "[   ]"
}

var hashCheckCmd = &cobra.Command{
	Use:   "check PATH...",
	Short: "Show whether files changed since they were processed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		for _, path := range args {
			updated, err := a.CheckHash(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("checking %s: %w", path, err)
			}
			fmt.Printf("%s %s\n", updatedMarker(updated), path)
		}
		return nil
	},
}

var hashSaveCmd = &cobra.Command{
	Use:   "save PATH...",
	Short: "Mark files as processed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		for _, path := range args {
			if err := a.SaveHash(cmd.Context(), path); err != nil {
				return fmt.Errorf("saving %s: %w", path, err)
			}
			fmt.Printf("%s %s\n", updatedMarker(false), path)
		}
		return nil
	},
}

var hashToggleCmd = &cobra.Command{
	Use:   "toggle PATH...",
	Short: "Flip files between processed and needing reprocessing",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		for _, path := range args {
			updated, err := a.ToggleHash(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("toggling %s: %w", path, err)
			}
			fmt.Printf("%s %s\n", updatedMarker(updated), path)
		}
		return nil
	},
}

var hashListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every stored hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		statuses, err := a.HashStatuses(cmd.Context())
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			fmt.Println("No hashes stored.")
			return nil
		}
		for _, s := range statuses {
			marker := "[   ]"
			switch s.State {
			case sqrt.HashUpdated:
				marker = "[UPD]"
			case sqrt.HashDeleted:
				marker = "[DEL]"
			}
			fmt.Printf("%s %s\n", marker, s.ResourceID)
		}
		return nil
	},
}

var hashCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Drop the hashes of deleted files",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.CleanupHashes(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d hash(es)\n", removed)
		return nil
	},
}

func init() {
	hashCmd.AddCommand(hashCheckCmd)
	hashCmd.AddCommand(hashSaveCmd)
	hashCmd.AddCommand(hashToggleCmd)
	hashCmd.AddCommand(hashListCmd)
	hashCmd.AddCommand(hashCleanupCmd)
}
