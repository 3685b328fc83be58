// Command generate_schema migrates an in-memory warehouse and writes the
// resulting CREATE statements, grouped per table, to a schema file.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sqrt-go/internal/database"
	"sqrt-go/internal/database/migrations"
)

const header = `-- Generated from internal/database/migrations/files/*.sql.
-- Do not edit. Run 'go generate ./internal/database' to regenerate.

`

func main() {
	out := flag.String("o", filepath.Join("internal", "database", "schema.sql"), "output file")
	flag.Parse()

	if err := run(*out); err != nil {
		fmt.Fprintf(os.Stderr, "generate_schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("generated %s\n", *out)
}

func run(out string) error {
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		return err
	}

	schema, err := dumpSchema(db)
	if err != nil {
		return err
	}
	return os.WriteFile(out, []byte(header+schema), 0644)
}

// dumpSchema lists each table or view followed by its indexes, skipping SQLite
// internals and the migration bookkeeping table.
func dumpSchema(db *sql.DB) (string, error) {
	rows, err := db.Query(`
		SELECT type, sql FROM sqlite_master
		WHERE sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		  AND tbl_name != 'schema_migrations'
		ORDER BY tbl_name, CASE type WHEN 'table' THEN 0 ELSE 1 END, name
	`)
	if err != nil {
		return "", fmt.Errorf("reading sqlite_master: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var kind, stmt string
		if err := rows.Scan(&kind, &stmt); err != nil {
			return "", fmt.Errorf("scanning schema row: %w", err)
		}
		if kind != "index" && b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(stmt)
		b.WriteString(";\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("reading schema rows: %w", err)
	}
	return b.String(), nil
}
