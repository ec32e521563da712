package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/helpline/internal/db"
	"github.com/zulandar/helpline/internal/models"
)

func newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage the support agent roster",
	}
	cmd.AddCommand(newAgentsListCmd())
	cmd.AddCommand(newAgentsSeedCmd())
	cmd.AddCommand(newAgentsStatusCmd())
	return cmd
}

func newAgentsListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List support agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			gormDB, err := db.Connect(cfg.Database)
			if err != nil {
				return err
			}

			var agents []models.SupportAgent
			if err := gormDB.Order("id").Find(&agents).Error; err != nil {
				return fmt.Errorf("agents: list: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tSKILLS")
			for _, a := range agents {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Status, a.Skills)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "helpline.yaml", "path to Helpline config file")
	return cmd
}

func newAgentsSeedCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert the default support agent roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			gormDB, err := db.Connect(cfg.Database)
			if err != nil {
				return err
			}
			if err := db.SeedAgents(gormDB, db.DefaultAgentSeeds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d support agents\n", len(db.DefaultAgentSeeds))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "helpline.yaml", "path to Helpline config file")
	return cmd
}

func newAgentsStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status <agent-id> <available|busy|offline>",
		Short: "Set a support agent's availability",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			agentID, status := args[0], args[1]
			switch status {
			case "available", "busy", "offline":
			default:
				return fmt.Errorf("agents: status %q must be available, busy, or offline", status)
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			gormDB, err := db.Connect(cfg.Database)
			if err != nil {
				return err
			}

			result := gormDB.Model(&models.SupportAgent{}).
				Where("id = ?", agentID).
				Update("status", status)
			if result.Error != nil {
				return fmt.Errorf("agents: update %s: %w", agentID, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("agents: %s not found", agentID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", agentID, status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "helpline.yaml", "path to Helpline config file")
	return cmd
}
