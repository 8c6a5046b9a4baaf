package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/architects-toolkit/smarthopper-ai/capability"
	"github.com/architects-toolkit/smarthopper-ai/config"
	"github.com/architects-toolkit/smarthopper-ai/interaction"
	"github.com/architects-toolkit/smarthopper-ai/internal/version"
	"github.com/architects-toolkit/smarthopper-ai/orchestrator"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:     "smarthopper",
		Short:   "SmartHopper AI core - provider registry and tool-driven AI calls",
		Version: version.Version(),
		Long: `SmartHopper AI core manages AI providers behind a trust-gated registry,
tracks per-model capabilities, and drives tool-calling conversations.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")

	withApp := func(run func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			app, err := NewApp(ctx, cfg, verbose)
			if err != nil {
				return err
			}
			defer app.Close()
			return run(ctx, app, cmd, args)
		}
	}

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List loaded providers and their trust state",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			resolvable := make(map[string]bool)
			for _, name := range app.Registry.ResolvableNames() {
				resolvable[name] = true
			}
			for _, name := range app.Registry.Names() {
				state := "untrusted"
				if resolvable[name] {
					state = "trusted"
				}
				fmt.Printf("%-12s %s\n", name, state)
			}
			return nil
		}),
	}

	modelsCmd := &cobra.Command{
		Use:   "models <provider>",
		Short: "List a provider's models and their capabilities",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			name := args[0]
			provider := app.Registry.GetProvider(name)
			if provider == nil {
				return fmt.Errorf("provider %q is unknown or not trusted", name)
			}
			app.Registry.WaitReady()
			ids := app.Models.Models(name)
			if len(ids) == 0 {
				fmt.Println("no models discovered")
				return nil
			}
			for _, id := range ids {
				caps := app.Models.RetrieveCapabilities(name, id)
				fmt.Printf("%-40s %s\n", id, strings.Join(caps.Names(), ","))
			}
			return nil
		}),
	}

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List registered tools",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			for _, t := range app.Tools.List() {
				fmt.Printf("%-16s [%s] %s\n", t.Name, t.Category, t.Description)
			}
			return nil
		}),
	}

	var revoke bool
	trustCmd := &cobra.Command{
		Use:   "trust <provider>",
		Short: "Trust a provider, or revoke trust with --revoke",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := app.Registry.SetTrusted(name, !revoke); err != nil {
				return err
			}
			if revoke {
				fmt.Printf("%s is no longer trusted\n", name)
			} else {
				fmt.Printf("%s is trusted\n", name)
			}
			return nil
		}),
	}
	trustCmd.Flags().BoolVar(&revoke, "revoke", false, "Revoke trust instead of granting it")

	var callProvider, callModel, callFilter string
	callCmd := &cobra.Command{
		Use:   "call <prompt>",
		Short: "Run a tool-enabled AI call and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
			app.Registry.WaitReady()
			history := []interaction.Interaction{
				interaction.NewUser(strings.Join(args, " ")),
			}
			ret, err := app.Orchestrator.Complete(ctx, history, orchestrator.CallOptions{
				Provider:   callProvider,
				Model:      callModel,
				Required:   capability.BasicChat,
				ToolFilter: callFilter,
			})
			if err != nil {
				return err
			}
			if !ret.Success {
				for _, m := range ret.Errors() {
					fmt.Fprintf(os.Stderr, "[%s] %s\n", m.Severity, m.Text)
				}
				return fmt.Errorf("call failed")
			}
			fmt.Println(ret.Text())
			if verbose {
				fmt.Fprintf(os.Stderr, "model=%s tokens=%d/%d finish=%s\n",
					ret.Metrics.Model, ret.Metrics.InputTokens, ret.Metrics.OutputTokens,
					ret.Metrics.FinishReason)
			}
			return nil
		}),
	}
	callCmd.Flags().StringVar(&callProvider, "provider", "", "Provider name (default: configured default)")
	callCmd.Flags().StringVar(&callModel, "model", "", "Model name (default: capability-based selection)")
	callCmd.Flags().StringVar(&callFilter, "tools", "", "Tool filter, e.g. \"+list_tools -scripting\"")

	root.AddCommand(providersCmd, modelsCmd, toolsCmd, trustCmd, callCmd)
	return root
}
