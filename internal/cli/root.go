// Package cli holds the quiver command tree.
package cli

import (
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/quiverhq/quiver/internal/app"
	"github.com/quiverhq/quiver/internal/config"
	httpclient "github.com/quiverhq/quiver/internal/protocol/http"
)

// NewRootCommand creates the root command.
func NewRootCommand(version string) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "quiver",
		Short:   "Quiver - an API request workspace",
		Long:    "Quiver manages collections of API requests, environments, and the history of every send, from the command line.",
		Version: version,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Config file path")

	cmd.AddCommand(NewSendCommand(&configPath))
	cmd.AddCommand(NewEnvCommand(&configPath))
	cmd.AddCommand(NewCollectionsCommand(&configPath))
	cmd.AddCommand(NewHistoryCommand(&configPath))
	cmd.AddCommand(NewNotesCommand(&configPath))
	cmd.AddCommand(NewTasksCommand(&configPath))

	return cmd
}

// openWorkspace loads the config and assembles a workspace for one
// command invocation.
func openWorkspace(configPath string) (*app.Workspace, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "quiver",
		Level: hclog.LevelFromString(cfg.LogLevel),
	})

	clientOpts := []httpclient.Option{httpclient.WithTimeout(cfg.Timeout())}
	if !cfg.FollowRedirects {
		clientOpts = append(clientOpts, httpclient.WithNoRedirects())
	}

	return app.New(cfg, httpclient.NewClient(clientOpts...), logger)
}
