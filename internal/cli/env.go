package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quiverhq/quiver/internal/core"
)

// NewEnvCommand creates the env command group.
func NewEnvCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage environments",
	}

	cmd.AddCommand(newEnvListCommand(configPath))
	cmd.AddCommand(newEnvCreateCommand(configPath))
	cmd.AddCommand(newEnvUseCommand(configPath))
	cmd.AddCommand(newEnvSetCommand(configPath))
	cmd.AddCommand(newEnvShowCommand(configPath))

	return cmd
}

func newEnvListCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List environments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			out := cmd.OutOrStdout()
			for _, env := range ws.Environments().Snapshot() {
				marker := " "
				if env.Active() {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s  (%d variables)\n", marker, env.Name(), len(env.Variables()))
			}
			return nil
		},
	}
}

func newEnvCreateCommand(configPath *string) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			env, err := ws.CreateEnvironment(args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created environment %q (%s)\n", env.Name(), env.ID())
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Environment description")
	return cmd
}

func newEnvUseCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "use NAME",
		Short: "Activate an environment",
		Long:  "Activate an environment. Any previously active environment is deactivated; at most one is active at a time.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			env, ok := ws.Environments().FindByName(args[0])
			if !ok {
				return core.NotFoundf("environment %q", args[0])
			}
			if err := ws.ActivateEnvironment(env.ID()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active environment: %s\n", env.Name())
			return nil
		},
	}
}

func newEnvSetCommand(configPath *string) *cobra.Command {
	var (
		envName string
		secret  bool
	)

	cmd := &cobra.Command{
		Use:   "set KEY=VALUE",
		Short: "Set a variable on an environment",
		Long:  "Set a variable on the named environment, or on the active one when --env is omitted. An existing key is updated in place.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value, ok := splitPair(args[0], "=")
			if !ok || key == "" {
				return core.InvalidArgumentf("expected KEY=VALUE, got %q", args[0])
			}

			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			env, err := resolveEnv(ws.Environments(), envName)
			if err != nil {
				return err
			}
			return ws.SetVariable(env.ID(), core.Variable{
				Key:     key,
				Value:   value,
				Enabled: true,
				Secret:  secret,
			})
		},
	}

	cmd.Flags().StringVarP(&envName, "env", "e", "", "Environment name (defaults to the active one)")
	cmd.Flags().BoolVar(&secret, "secret", false, "Mask the value in listings")
	return cmd
}

func newEnvShowCommand(configPath *string) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show [NAME]",
		Short: "Show an environment's variables",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(*configPath)
			if err != nil {
				return err
			}
			defer ws.Close()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			env, err := resolveEnv(ws.Environments(), name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", env.Name())
			for _, v := range env.DisplayVariables(reveal) {
				state := ""
				if !v.Enabled {
					state = "  (disabled)"
				}
				fmt.Fprintf(out, "  %s = %s%s\n", v.Key, v.Value, state)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show secret values in clear text")
	return cmd
}

func resolveEnv(envs *core.EnvironmentSet, name string) (*core.Environment, error) {
	if name != "" {
		env, ok := envs.FindByName(name)
		if !ok {
			return nil, core.NotFoundf("environment %q", name)
		}
		return env, nil
	}
	env := envs.Active()
	if env == nil {
		names := make([]string, 0)
		for _, e := range envs.Snapshot() {
			names = append(names, e.Name())
		}
		return nil, core.InvalidArgumentf("no active environment; pick one of: %s", strings.Join(names, ", "))
	}
	return env, nil
}
