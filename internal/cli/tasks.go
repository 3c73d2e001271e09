package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewTasksCommand creates the tasks command group.
func NewTasksCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage workspace tasks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			out := cmd.OutOrStdout()
			for _, t := range ws.Tasks() {
				mark := "[ ]"
				if t.Done {
					mark = "[x]"
				}
				fmt.Fprintf(out, "%s %s  %s\n", mark, shortID(t.ID), t.Text)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add TEXT...",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			task := ws.AddTask(strings.Join(args, " "))
			fmt.Fprintf(cmd.OutOrStdout(), "Added task %s\n", shortID(task.ID))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle ID",
		Short: "Toggle a task's done state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			id := args[0]
			for _, t := range ws.Tasks() {
				if strings.HasPrefix(t.ID, id) {
					id = t.ID
					break
				}
			}
			return ws.ToggleTask(id)
		},
	})

	return cmd
}
