package main

import (
	"fmt"
	"sort"

	"sqrt-go/internal/database"

	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the warehouse database",
}

// openDatabase opens the warehouse without the schema check of newApp.
func openDatabase() (*database.SQLiteDatabase, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	return db, nil
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
		st, err := db.MigrationStatus()
		if err != nil {
			return err
		}
		fmt.Printf("Database at version %d\n", st.Current)
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		st, err := db.MigrationStatus()
		if err != nil {
			return err
		}
		fmt.Printf("Path:    %s\n", db.Path())
		fmt.Printf("Current: %d\n", st.Current)
		fmt.Printf("Latest:  %d\n", st.Latest)
		if st.Dirty {
			fmt.Println("State:   dirty (a migration failed)")
			return nil
		}
		if st.Current != st.Latest {
			return nil
		}

		counts, err := db.TableCounts(cmd.Context())
		if err != nil {
			return err
		}
		entities := make([]string, 0, len(counts))
		for e := range counts {
			entities = append(entities, e)
		}
		sort.Strings(entities)
		fmt.Println()
		for _, e := range entities {
			fmt.Printf("%-26s %d\n", e, counts[e])
		}
		return nil
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Copy the warehouse to DEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.BackupTo(args[0]); err != nil {
			return err
		}
		fmt.Printf("Database copied to %s\n", args[0])
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbBackupCmd)
}
