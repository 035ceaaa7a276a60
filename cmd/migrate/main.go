// Command migrate runs schema operations for the backend.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"canopy/internal/config"
	"canopy/internal/database"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// connect loads the config and opens the database without applying the schema.
func connect() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, db, nil
}

var rootCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Manage the Canopy database schema",
	SilenceUsage: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending SQL migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := connect()
		if err != nil {
			return err
		}
		migrator, err := database.NewEmbeddedMigrator(db)
		if err != nil {
			return err
		}
		applied, err := migrator.Up(context.Background())
		if err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		for _, m := range applied {
			fmt.Printf("applied: %s\n", m)
		}
		fmt.Printf("sql migrations applied (%d new)\n", len(applied))
		return nil
	},
}

var autoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Sync tables with GORM AutoMigrate (refused in production-like environments)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := connect()
		if err != nil {
			return err
		}
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(context.Background(), db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		fmt.Println("automigrations applied")
		return nil
	},
}

var statusYAML bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema policy and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := connect()
		if err != nil {
			return err
		}
		status, err := database.GetSchemaStatus(context.Background(), db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}

		if statusYAML {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer func() { _ = enc.Close() }()
			return enc.Encode(status)
		}

		fmt.Printf("mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
			status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
			len(status.AppliedVersions), len(status.PendingMigrations))
		for _, m := range status.PendingMigrations {
			fmt.Printf("pending: %s\n", m)
		}
		return nil
	},
}

var downCmd = &cobra.Command{
	Use:   "down <version>",
	Short: "Revert one applied migration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		_, db, err := connect()
		if err != nil {
			return err
		}
		migrator, err := database.NewEmbeddedMigrator(db)
		if err != nil {
			return err
		}
		if err := migrator.Down(context.Background(), version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		fmt.Printf("rolled back migration %d\n", version)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate the public schema (development and test only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := connect()
		if err != nil {
			return err
		}
		if cfg.Env != "development" && cfg.Env != "test" {
			return fmt.Errorf("refusing to reset the schema in %q", cfg.Env)
		}
		if err := db.Exec("DROP SCHEMA public CASCADE; CREATE SCHEMA public;").Error; err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
		if err := db.Exec("GRANT ALL ON SCHEMA public TO public;").Error; err != nil {
			return fmt.Errorf("failed to grant schema permissions: %w", err)
		}
		fmt.Println("schema reset; run `migrate up` to recreate tables")
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusYAML, "yaml", false, "Print the status as YAML")
	rootCmd.AddCommand(upCmd, autoCmd, statusCmd, downCmd, resetCmd)
}
