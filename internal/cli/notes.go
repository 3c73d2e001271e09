package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewNotesCommand creates the notes command group.
func NewNotesCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage workspace notes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			out := cmd.OutOrStdout()
			for _, n := range ws.Notes() {
				fmt.Fprintf(out, "%s  %s  %s\n", shortID(n.ID), n.UpdatedAt.Format("2006-01-02"), n.Title)
			}
			return nil
		},
	})

	addCmd := &cobra.Command{
		Use:   "add TITLE [CONTENT...]",
		Short: "Add a note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			note := ws.AddNote(args[0], strings.Join(args[1:], " "))
			fmt.Fprintf(cmd.OutOrStdout(), "Added note %s\n", shortID(note.ID))
			return nil
		},
	}
	cmd.AddCommand(addCmd)

	return cmd
}
