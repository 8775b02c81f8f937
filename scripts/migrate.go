// Command migrate applies the SQL migrations in order.
//
// Usage:
//
//	go run ./scripts/migrate.go -database-url postgres://... [-down]
//
// Applied versions are tracked in a schema_migrations table so the
// command is safe to run repeatedly.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		dir         = flag.String("dir", "migrations", "Directory containing migration files")
		down        = flag.Bool("down", false, "Roll back the most recent migration instead of applying")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open database:", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetConnMaxLifetime(time.Minute)

	if err := run(db, *dir, *down); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(db *sql.DB, dir string, down bool) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	if down {
		return rollbackLatest(db, dir, applied)
	}
	return applyPending(db, dir, applied)
}

func appliedVersions(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func applyPending(db *sql.DB, dir string, applied map[string]bool) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		version := migrationVersion(file, ".up.sql")
		if applied[version] {
			continue
		}

		if err := execInTx(db, file, func(tx *sql.Tx) error {
			_, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES ($1)`, version)
			return err
		}); err != nil {
			return fmt.Errorf("apply %s: %w", version, err)
		}
		fmt.Println("applied", version)
	}
	return nil
}

func rollbackLatest(db *sql.DB, dir string, applied map[string]bool) error {
	versions := make([]string, 0, len(applied))
	for v := range applied {
		versions = append(versions, v)
	}
	if len(versions) == 0 {
		fmt.Println("nothing to roll back")
		return nil
	}
	sort.Strings(versions)
	latest := versions[len(versions)-1]

	file := filepath.Join(dir, latest+".down.sql")
	if err := execInTx(db, file, func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM schema_migrations WHERE version = $1`, latest)
		return err
	}); err != nil {
		return fmt.Errorf("roll back %s: %w", latest, err)
	}
	fmt.Println("rolled back", latest)
	return nil
}

// execInTx runs a migration file and its bookkeeping in one transaction.
func execInTx(db *sql.DB, file string, record func(*sql.Tx) error) error {
	contents, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(contents)); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if err := record(tx); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return tx.Commit()
}

func migrationVersion(file, suffix string) string {
	return strings.TrimSuffix(filepath.Base(file), suffix)
}
