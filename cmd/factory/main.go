package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/napolitain/factory-env/internal/config"
	"github.com/napolitain/factory-env/internal/driver"
	"github.com/napolitain/factory-env/internal/logging"
	"github.com/napolitain/factory-env/internal/render"
	"github.com/napolitain/factory-env/internal/resolver"
	"github.com/napolitain/factory-env/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// app holds the flags and the configuration resolved from them
type app struct {
	configFile string
	horizon    float64
	quiet      bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "factory",
		Short: "Factory economy build/wait simulator",
		Long: `A continuous-time economy of two resource facilities and a power
facility, stepped by discrete build or wait choices.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().Float64Var(&a.horizon, "horizon", 0, "Episode length in simulated seconds (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Minimal output")

	rootCmd.AddCommand(
		a.runCmd(),
		a.compareCmd(),
		a.playCmd(),
		a.configCmd(),
	)
	return rootCmd
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(a.configFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("horizon") {
		cfg.Episode.Horizon = a.horizon
		if err := config.ValidateConfig(cfg); err != nil {
			return err
		}
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

func (a *app) newEnv() (*resolver.Env, error) {
	valuation, err := resolver.ParseValuation(a.cfg.Episode.Valuation)
	if err != nil {
		return nil, err
	}
	return resolver.New(a.cfg.Episode.Horizon,
		resolver.WithValuation(valuation),
		resolver.WithLogger(slog.Default()),
	)
}

func (a *app) runCmd() *cobra.Command {
	var policyName string
	var maxSteps int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one episode with a policy and print its trajectory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if policyName == "" {
				policyName = a.cfg.Episode.Policy
			}
			if maxSteps == 0 {
				maxSteps = a.cfg.Episode.MaxSteps
			}

			policy, err := driver.NewPolicy(policyName)
			if err != nil {
				return err
			}
			env, err := a.newEnv()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !a.quiet {
				render.Banner(out)
				render.State(out, env.State())
				fmt.Fprintln(out)
			}

			ep, err := driver.Run(cmd.Context(), env, policy, maxSteps)
			if err != nil {
				return err
			}

			if !a.quiet {
				render.Trajectory(out, ep)
				fmt.Fprintln(out)
				render.State(out, ep.Final)
			}
			render.Summary(out, ep)
			return nil
		},
	}

	cmd.Flags().StringVarP(&policyName, "policy", "p", "", "Policy: wait, round-robin, greedy or sequence:<choices>")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Step limit (overrides config)")
	return cmd
}

func (a *app) compareCmd() *cobra.Command {
	var extra []string

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run every built-in policy and rank them by final net worth",
		RunE: func(cmd *cobra.Command, _ []string) error {
			policies := driver.BuiltinPolicies()
			for _, name := range extra {
				p, err := driver.NewPolicy(name)
				if err != nil {
					return err
				}
				policies = append(policies, p)
			}

			valuation, err := resolver.ParseValuation(a.cfg.Episode.Valuation)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !a.quiet {
				render.Banner(out)
				color.New(color.FgYellow).Fprintf(out, "🔄 Comparing %d policies over %s...\n\n",
					len(policies), render.FormatTime(a.cfg.Episode.Horizon))
			}

			episodes, err := driver.CompareAll(cmd.Context(), a.cfg.Episode.Horizon, policies, a.cfg.Episode.MaxSteps,
				resolver.WithValuation(valuation), resolver.WithLogger(slog.Default()))
			if err != nil {
				return err
			}

			best := driver.Best(episodes)
			render.Comparison(out, episodes, best)
			if best != nil {
				color.New(color.FgGreen, color.Bold).Fprintf(out, "\n🏆 Best: %s (net worth %.1f)\n", best.Policy, best.FinalNetWorth)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&extra, "with", nil, "Additional policy to include, repeatable, e.g. --with sequence:p,a,b")
	return cmd
}

func (a *app) playCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Step an environment interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			valuation, err := resolver.ParseValuation(a.cfg.Episode.Valuation)
			if err != nil {
				return err
			}
			// Per-step debug logs would corrupt the terminal UI
			env, err := resolver.New(a.cfg.Episode.Horizon, resolver.WithValuation(valuation))
			if err != nil {
				return err
			}
			return tui.Run(env)
		},
	}
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := config.Dump(a.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
