package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/helpline/internal/config"
	"github.com/zulandar/helpline/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}
	cmd.AddCommand(newDBInitCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Helpline database",
		Long:  "Connects to the configured database, migrates all tables, and seeds the support agent roster.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "helpline.yaml", "path to Helpline config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded config from %s (driver: %s)\n", configPath, cfg.Database.Driver)

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	fmt.Fprintln(out, "Connected to database")

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintln(out, "Tables migrated")

	if err := db.SeedAgents(gormDB, db.DefaultAgentSeeds); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d support agents\n", len(db.DefaultAgentSeeds))

	return nil
}

// loadConfig reads the config file, falling back to defaults when the
// default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == "helpline.yaml" {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("load config: %w", err)
}
