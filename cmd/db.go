package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the PostgreSQL mirror",
	Long: `Manage the PostgreSQL mirror of the attendance files.
All subcommands require DATABASE_URL.`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Args:  cobra.NoArgs,
	RunE:  runDBMigrate,
}

var dbSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push the roster, the register and the templates to PostgreSQL",
	Long: `Push the whole roster, every register entry and the identification
templates to PostgreSQL. Use this after the mirror was unreachable or when
enabling it on existing data.

Examples:
  DATABASE_URL=postgres://localhost/attendance attendance db sync`,
	Args: cobra.NoArgs,
	RunE: runDBSync,
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the mirror holds",
	Args:  cobra.NoArgs,
	RunE:  runDBStatus,
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbMigrateCmd, dbSyncCmd, dbStatusCmd)
}

func runDBMigrate(cmd *cobra.Command, args []string) error {
	a, err := startApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireDatabase(); err != nil {
		return err
	}

	applied, err := a.pool.MigrationsApplied(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Schema up to date, %d migrations applied:\n", len(applied))
	for _, v := range applied {
		fmt.Printf("  %s\n", v)
	}
	return nil
}

func runDBSync(cmd *cobra.Command, args []string) error {
	a, err := startApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireDatabase(); err != nil {
		return err
	}

	start := time.Now()
	students, entries, err := a.svc.Sync(context.Background())
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("Sync complete!\n")
	fmt.Printf("  Students: %d\n", students)
	fmt.Printf("  Entries:  %d\n", entries)
	fmt.Printf("  Duration: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func runDBStatus(cmd *cobra.Command, args []string) error {
	a, err := startApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireDatabase(); err != nil {
		return err
	}

	ctx := context.Background()
	reader, err := database.GetRegisterReader(ctx)
	if err != nil {
		return err
	}
	templates, err := database.GetTemplateStore(ctx)
	if err != nil {
		return err
	}

	students, err := reader.ListStudents(ctx)
	if err != nil {
		return err
	}
	entries, err := reader.CountEntries(ctx)
	if err != nil {
		return err
	}
	stored, err := templates.CountTemplates(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Students:  %d\n", len(students))
	fmt.Printf("Entries:   %d\n", entries)
	fmt.Printf("Templates: %d\n", stored)
	return nil
}
