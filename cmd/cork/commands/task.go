package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/finleyb/corkboard/internal/engine"
	"github.com/finleyb/corkboard/internal/printer"
	"github.com/finleyb/corkboard/internal/timespec"
	"github.com/finleyb/corkboard/pkg/board"
	"github.com/finleyb/corkboard/pkg/grid"
)

var (
	taskProject string
	taskTitle   string
	taskCol     int
	taskRow     int
	taskStatus  string
	taskDue     string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Task operations",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a task on a board at a grid cell",
	Long: `Create a task on a project's board, placed at the given grid cell.

The cell maps to an absolute canvas position using the deployment grid
geometry (overridable in corkboard.yml).

Examples:
  cork task add --project 1f3c... --title "Write docs" --col 2 --row 3`,
	RunE: runTaskAdd,
}

func init() {
	taskAddCmd.Flags().StringVar(&taskProject, "project", "", "Project ID (required)")
	taskAddCmd.Flags().StringVar(&taskTitle, "title", "", "Task title (required)")
	taskAddCmd.Flags().IntVar(&taskCol, "col", 0, "Grid column")
	taskAddCmd.Flags().IntVar(&taskRow, "row", 0, "Grid row")
	taskAddCmd.Flags().StringVar(&taskStatus, "status", string(board.StatusTodo), "Task status")
	taskAddCmd.Flags().StringVar(&taskDue, "due", "", "Due time, duration like '2h' or RFC3339")
	taskAddCmd.MarkFlagRequired("project")
	taskAddCmd.MarkFlagRequired("title")
	taskCmd.AddCommand(taskAddCmd)
	rootCmd.AddCommand(taskCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	cfg, _, client, log, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	// REST-only engine: no live socket is needed to create one task.
	eng := engine.New(taskProject, client, nil, log)
	snap, err := client.FetchBoard(ctx, taskProject)
	if err != nil {
		return printer.Error("Failed to fetch board", err.Error(), nil)
	}
	eng.Bootstrap(snap)

	var dueMs int64
	if taskDue != "" {
		dueMs, err = timespec.Parse(taskDue)
		if err != nil {
			return printer.Error("Invalid --due", err.Error(), nil)
		}
	}

	pos := grid.IndexToPosition(grid.Index{Col: taskCol, Row: taskRow}, cfg.Grid)
	m, err := eng.CreateTask(ctx, board.Task{
		Title:    taskTitle,
		Status:   board.Status(taskStatus),
		Position: pos,
		DueAtMs:  dueMs,
	})
	if err != nil {
		return printer.Error("Invalid task", err.Error(), nil)
	}

	if res := <-m.Result(); res.Err != nil {
		return printer.Error("Task creation failed", res.Err.Error(), []string{
			"The optimistic change was rolled back; re-run to retry",
		})
	}
	printer.Success("Created %q at (%d,%d)\n", taskTitle, taskCol, taskRow)
	return nil
}
