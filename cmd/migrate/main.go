// Command migrate applies, inspects and rolls back the database schema.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"hongdating/internal/config"
	"hongdating/internal/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// connect loads configuration and opens the database without touching the schema.
func connect() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, db, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the HongDating database schema",
		SilenceUsage: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := connect()
			if err != nil {
				return err
			}
			defer database.Close()
			if err := database.RunMigrations(cmd.Context(), db); err != nil {
				return fmt.Errorf("sql migrations failed: %w", err)
			}
			log.Println("sql migrations applied")
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "auto",
		Short: "Run GORM automigrate for every persistent model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := connect()
			if err != nil {
				return err
			}
			defer database.Close()
			cfg.DBSchemaMode = database.SchemaModeAuto
			if err := database.ApplySchema(cmd.Context(), db, cfg); err != nil {
				return fmt.Errorf("auto schema apply failed: %w", err)
			}
			log.Println("automigrate applied")
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show schema mode and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := connect()
			if err != nil {
				return err
			}
			defer database.Close()
			status, err := database.GetSchemaStatus(cmd.Context(), db, cfg)
			if err != nil {
				return fmt.Errorf("schema status failed: %w", err)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "mode:        %s\n", status.Mode)
			_, _ = fmt.Fprintf(out, "environment: %s\n", status.Env)
			_, _ = fmt.Fprintf(out, "sql:         %t\n", status.SQL)
			_, _ = fmt.Fprintf(out, "automigrate: %t\n", status.Auto)
			_, _ = fmt.Fprintf(out, "applied:     %v\n", status.Applied)
			for _, m := range status.Pending {
				_, _ = fmt.Fprintf(out, "pending:     %06d_%s\n", m.Version, m.Name)
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "down <version>",
		Short: "Roll back one applied migration",
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
			defer database.Close()
			if err := database.RollbackMigration(cmd.Context(), db, version); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			log.Printf("rolled back migration %d", version)
			return nil
		},
	})

	return root
}
