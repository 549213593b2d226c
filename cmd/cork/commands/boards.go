package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/finleyb/corkboard/internal/printer"
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List workspaces and their project boards",
	RunE:  runBoards,
}

func init() {
	rootCmd.AddCommand(boardsCmd)
}

func runBoards(cmd *cobra.Command, args []string) error {
	_, _, client, _, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	workspaces, err := client.Workspaces(ctx)
	if err != nil {
		return printer.Error("Failed to list workspaces", err.Error(), []string{
			"Run 'cork login' first",
		})
	}

	if len(workspaces) == 0 {
		printer.Info("No workspaces.\n")
		return nil
	}

	for _, ws := range workspaces {
		printer.Printf("%s  (%s)\n", ws.Name, ws.ID)
		projects, err := client.Projects(ctx, ws.ID)
		if err != nil {
			printer.Warning("failed to list projects: %v\n", err)
			continue
		}
		for _, p := range projects {
			printer.Printf("  %s  (%s)\n", p.Name, p.ID)
		}
	}
	return nil
}
