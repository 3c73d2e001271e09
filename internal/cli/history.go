package cli

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/quiverhq/quiver/internal/core"
	"github.com/quiverhq/quiver/internal/history"
)

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the send history",
	}

	cmd.AddCommand(newHistoryListCommand(configPath))
	cmd.AddCommand(newHistoryShowCommand(configPath))
	cmd.AddCommand(newHistoryCopyCommand(configPath))
	cmd.AddCommand(newHistoryClearCommand(configPath))

	return cmd
}

func newHistoryListCommand(configPath *string) *cobra.Command {
	var opts history.FilterOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List history entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			out := cmd.OutOrStdout()
			for _, e := range ws.History().Filter(opts) {
				status := fmt.Sprintf("%d", e.Response.Status)
				if e.Response.IsNetworkError() {
					status = "ERR"
				}
				name := e.RequestName
				if name == "" {
					name = "(unsaved)"
				}
				fmt.Fprintf(out, "%s  %s  %-7s %-4s %s  %s\n",
					shortID(e.ID),
					e.CompletedAt.Format("15:04:05"),
					e.Method,
					status,
					e.ResolvedURL,
					name,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Method, "method", "", "Filter by HTTP method")
	cmd.Flags().StringVar(&opts.StatusClass, "status", "", "Filter by status class: 2xx, 3xx, 4xx, 5xx, or network")
	cmd.Flags().StringVar(&opts.Query, "search", "", "Free-text match over URL and request name")
	return cmd
}

func newHistoryShowCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one history entry in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			e, err := findEntry(ws.History(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sent:        %s\n", e.CompletedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Request:     %s %s\n", e.Method, e.ResolvedURL)
			if e.Environment != "" {
				fmt.Fprintf(out, "Environment: %s\n", e.Environment)
			}
			for key, value := range e.SentHeaders {
				fmt.Fprintf(out, "  > %s: %s\n", key, value)
			}
			if e.SentBody != "" {
				fmt.Fprintf(out, "Body:\n%s\n", e.SentBody)
			}
			fmt.Fprintln(out)
			if e.Response.IsNetworkError() {
				fmt.Fprintf(out, "Network error: %s (%dms)\n", e.Response.StatusText, e.Response.ResponseTime)
			} else {
				fmt.Fprintf(out, "HTTP %d %s  (%dms, %d bytes)\n",
					e.Response.Status, e.Response.StatusText, e.Response.ResponseTime, e.Response.Size)
				if e.Response.Body != "" {
					fmt.Fprintln(out, e.Response.Body)
				}
			}
			if e.TestsPassed+e.TestsFailed > 0 {
				fmt.Fprintf(out, "Tests: %d passed, %d failed\n", e.TestsPassed, e.TestsFailed)
			}
			return nil
		},
	}
}

func newHistoryCopyCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "copy ID",
		Short: "Copy an entry's curl reproduction to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			e, err := findEntry(ws.History(), args[0])
			if err != nil {
				return err
			}

			command := e.Reproduction()
			if err := clipboard.WriteAll(command); err != nil {
				// No clipboard in this environment; print it instead.
				fmt.Fprintln(cmd.OutOrStdout(), command)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Copied to clipboard.")
			return nil
		},
	}
}

func newHistoryClearCommand(configPath *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the history log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return core.InvalidArgumentf("clearing history is irreversible; re-run with --yes to confirm")
			}

			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			ws.ClearHistory()
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation")
	return cmd
}

// findEntry accepts a full id or an unambiguous prefix.
func findEntry(log *history.Log, id string) (history.Entry, error) {
	if e, ok := log.Get(id); ok {
		return e, nil
	}
	var match history.Entry
	found := 0
	for _, e := range log.Entries() {
		if len(id) >= 4 && len(e.ID) >= len(id) && e.ID[:len(id)] == id {
			match = e
			found++
		}
	}
	switch found {
	case 0:
		return history.Entry{}, core.NotFoundf("history entry %s", id)
	case 1:
		return match, nil
	default:
		return history.Entry{}, core.InvalidArgumentf("id prefix %q is ambiguous", id)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
