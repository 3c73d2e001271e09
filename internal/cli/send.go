package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quiverhq/quiver/internal/core"
)

// SendOptions holds options for the send command.
type SendOptions struct {
	Headers []string
	Params  []string
	Body    string
	Type    string
	Env     string
	JSON    bool
}

// NewSendCommand creates the send command. The request runs through the
// full tab pipeline, so variables resolve against the chosen environment
// and the outcome lands in history.
func NewSendCommand(configPath *string) *cobra.Command {
	opts := &SendOptions{}

	cmd := &cobra.Command{
		Use:   "send METHOD URL",
		Short: "Send an HTTP request",
		Long:  "Send an HTTP request with variables resolved against the active environment. The outcome is recorded in history.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, *configPath, strings.ToUpper(args[0]), args[1], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Headers, "header", "H", nil, "Request headers (format: Key:Value)")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "Query parameters (format: key=value)")
	cmd.Flags().StringVarP(&opts.Body, "body", "d", "", "Request body")
	cmd.Flags().StringVar(&opts.Type, "type", "", "Body type: json, text, or form (inferred from --body when unset)")
	cmd.Flags().StringVarP(&opts.Env, "env", "e", "", "Environment name to activate for this send")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output response as JSON")

	return cmd
}

func runSend(cmd *cobra.Command, configPath, method, url string, opts *SendOptions) error {
	ws, err := openWorkspace(configPath)
	if err != nil {
		return err
	}
	defer ws.Close()

	if opts.Env != "" {
		env, ok := ws.Environments().FindByName(opts.Env)
		if !ok {
			return core.NotFoundf("environment %q", opts.Env)
		}
		if err := ws.ActivateEnvironment(env.ID()); err != nil {
			return err
		}
	}

	draft := core.RequestDraft{
		Method:   method,
		URL:      url,
		Body:     opts.Body,
		BodyType: bodyType(opts),
	}
	for _, h := range opts.Headers {
		key, value, ok := splitPair(h, ":")
		if !ok {
			continue
		}
		draft.Headers = append(draft.Headers, core.Header{Key: key, Value: value, Enabled: true})
	}
	for _, p := range opts.Params {
		key, value, ok := splitPair(p, "=")
		if !ok {
			continue
		}
		draft.Params = append(draft.Params, core.Param{Key: key, Value: value, Enabled: true})
	}

	tab := ws.Tabs().Tabs()[0]
	if err := ws.Tabs().Edit(tab.ID(), draft); err != nil {
		return err
	}

	resp, err := ws.Tabs().Send(cmd.Context(), tab.ID())
	if err != nil {
		return err
	}

	if opts.JSON {
		return outputJSON(cmd, resp)
	}
	return outputHuman(cmd, resp)
}

func bodyType(opts *SendOptions) core.BodyType {
	switch opts.Type {
	case "json":
		return core.BodyTypeJSON
	case "text":
		return core.BodyTypeText
	case "form":
		return core.BodyTypeForm
	}
	if opts.Body == "" {
		return core.BodyTypeNone
	}
	trimmed := strings.TrimSpace(opts.Body)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return core.BodyTypeJSON
	}
	return core.BodyTypeText
}

func splitPair(s, sep string) (string, string, bool) {
	idx := strings.Index(s, sep)
	if idx == -1 {
		return "", "", false
	}
	return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+len(sep):]), true
}

func outputJSON(cmd *cobra.Command, resp *core.Response) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}

func outputHuman(cmd *cobra.Command, resp *core.Response) error {
	out := cmd.OutOrStdout()

	if resp.IsNetworkError() {
		fmt.Fprintf(out, "Network error: %s\n", resp.StatusText)
		fmt.Fprintf(out, "Time: %dms\n", resp.ResponseTime)
		return nil
	}

	fmt.Fprintf(out, "HTTP %d %s\n", resp.Status, resp.StatusText)
	fmt.Fprintf(out, "Time: %dms  Size: %d bytes\n", resp.ResponseTime, resp.Size)
	fmt.Fprintln(out)

	if len(resp.Headers) > 0 {
		fmt.Fprintln(out, "Headers:")
		for key, value := range resp.Headers {
			fmt.Fprintf(out, "  %s: %s\n", key, value)
		}
		fmt.Fprintln(out)
	}

	if resp.Body != "" {
		fmt.Fprintln(out, resp.Body)
	}
	return nil
}
