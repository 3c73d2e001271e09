package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quiverhq/quiver/internal/core"
	"github.com/quiverhq/quiver/internal/exporter"
)

// NewCollectionsCommand creates the collections command group.
func NewCollectionsCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"col"},
		Short:   "Manage request collections",
	}

	cmd.AddCommand(newCollectionsListCommand(configPath))
	cmd.AddCommand(newCollectionsCreateCommand(configPath))
	cmd.AddCommand(newCollectionsDeleteCommand(configPath))
	cmd.AddCommand(newCollectionsExportCommand(configPath))

	return cmd
}

func newCollectionsListCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections and their request trees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			out := cmd.OutOrStdout()
			for _, c := range ws.Tree().Snapshot() {
				fmt.Fprintf(out, "%s  (%d requests)\n", c.Name(), c.RequestCount())
				printFolders(out, c.Folders(), 1)
				printRequests(out, c.Requests(), 1)
			}
			return nil
		},
	}
}

func printFolders(out io.Writer, folders []*core.Folder, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, f := range folders {
		fmt.Fprintf(out, "%s%s/\n", indent, f.Name())
		printFolders(out, f.Folders(), depth+1)
		printRequests(out, f.Requests(), depth+1)
	}
}

func printRequests(out io.Writer, requests []*core.Request, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, r := range requests {
		fmt.Fprintf(out, "%s%-7s %s  %s\n", indent, r.Method(), r.Name(), r.URL())
	}
}

func newCollectionsCreateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			c, err := ws.CreateCollection(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created collection %q (%s)\n", c.Name(), c.ID())
			return nil
		},
	}
}

func newCollectionsDeleteCommand(configPath *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a collection and everything under it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			c, ok := findCollectionByName(ws.Tree().Snapshot(), args[0])
			if !ok {
				return core.NotFoundf("collection %q", args[0])
			}
			if !yes {
				return core.InvalidArgumentf("deleting %q removes %d requests; re-run with --yes to confirm",
					c.Name(), c.RequestCount())
			}
			return ws.DeleteCollection(c.ID())
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation")
	return cmd
}

func newCollectionsExportCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export NAME",
		Short: "Export a collection as a curl script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			c, ok := findCollectionByName(ws.Tree().Snapshot(), args[0])
			if !ok {
				return core.NotFoundf("collection %q", args[0])
			}
			fmt.Fprint(cmd.OutOrStdout(), exporter.Collection(c))
			return nil
		},
	}
}

func findCollectionByName(collections []*core.Collection, name string) (*core.Collection, bool) {
	for _, c := range collections {
		if strings.EqualFold(c.Name(), name) {
			return c, true
		}
	}
	return nil, false
}
