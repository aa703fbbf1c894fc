package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theapemachine/qalarm"
)

// app carries what the commands share once the root pre-run has loaded the
// configuration.
type app struct {
	viper    *viper.Viper
	registry *prometheus.Registry
	metrics  *qalarm.Metrics
	config   *qalarm.Config
	sampler  *qalarm.Sampler

	cfgFile string
	stats   bool
}

type pair struct {
	gas, temp int
}

// The fixed scenarios run when qalarm is invoked without a subcommand.
var defaultScenarios = []pair{{1, 1}, {0, 1}}

func newRootCmd() *cobra.Command {
	a := &app{
		viper:    viper.New(),
		registry: prometheus.NewRegistry(),
		metrics:  qalarm.NewMetrics(),
	}

	rootCmd := &cobra.Command{
		Use:   "qalarm",
		Short: "Fail-safe gas/temperature alarm evaluated as a sampled Toffoli circuit",
		Long: `qalarm evaluates the alarm rule NOT(gas AND temperature) on a three-cell
register, repeating the circuit for a number of shots and printing the
outcome counts. Without a subcommand it runs the (1,1) and (0,1) scenarios.`,
		Args:               cobra.NoArgs,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		RunE:               a.runDefault,
		PersistentPostRunE: a.printStats,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml, toml or json)")
	flags.BoolVar(&a.stats, "stats", false, "print sampling metrics after the command")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Int("shots", qalarm.DefaultShots, "program executions per evaluation")
	flags.Int("workers", qalarm.NewConfig().Workers, "concurrent sampling workers")
	flags.Int("batch-size", qalarm.DefaultBatchSize, "shots handed to a worker at a time")

	for key, flag := range map[string]string{
		"log_level":  "log-level",
		"shots":      "shots",
		"workers":    "workers",
		"batch_size": "batch-size",
	} {
		// BindPFlag only fails for a nil flag.
		_ = a.viper.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(a.newRunCmd(), a.newQASMCmd(), a.newMitigateCmd())
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	config, err := qalarm.LoadConfig(a.viper, a.cfgFile)
	if err != nil {
		return err
	}
	if err := qalarm.SetLogLevel(config.LogLevel); err != nil {
		return err
	}
	if err := a.metrics.Register(a.registry); err != nil {
		return err
	}

	a.config = config
	a.sampler = qalarm.NewSampler(config, a.metrics)
	return nil
}

func (a *app) runDefault(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "--- Quantum alarm simulation ---")

	for _, p := range defaultScenarios {
		if err := a.evaluate(cmd.Context(), out, p); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) evaluate(ctx context.Context, out io.Writer, p pair) error {
	counts, err := a.sampler.Run(ctx, p.gas, p.temp)
	if err != nil {
		return err
	}

	label := "Danger"
	if p.gas == 1 && p.temp == 1 {
		label = "Safe"
	}

	fmt.Fprintf(out, "Input (%d,%d) %-6s -> Output Counts: %s\n", p.gas, p.temp, label, counts)
	return nil
}

func (a *app) newRunCmd() *cobra.Command {
	var p pair

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sample the alarm circuit for one pair of sensor readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.evaluate(cmd.Context(), cmd.OutOrStdout(), p)
		},
	}

	cmd.Flags().IntVar(&p.gas, "gas", 1, "gas sensor reading (1 = safe, 0 = leak)")
	cmd.Flags().IntVar(&p.temp, "temp", 1, "temperature sensor reading (1 = safe, 0 = over limit)")
	return cmd
}

func (a *app) newQASMCmd() *cobra.Command {
	var p pair

	cmd := &cobra.Command{
		Use:   "qasm",
		Short: "Print the alarm circuit as OpenQASM 2.0",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := qalarm.NewSafetyProgram(p.gas, p.temp)
			if err != nil {
				return err
			}

			qasm, err := program.QASM()
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), qasm)
			return nil
		},
	}

	cmd.Flags().IntVar(&p.gas, "gas", 1, "gas sensor reading (1 = safe, 0 = leak)")
	cmd.Flags().IntVar(&p.temp, "temp", 1, "temperature sensor reading (1 = safe, 0 = over limit)")
	return cmd
}

func (a *app) newMitigateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mitigate",
		Short: "Walk the mitigation controller through the reference scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			controller := qalarm.NewController(a.sampler, a.config.Shots)

			for i, step := range qalarm.Scenario() {
				state, err := controller.Update(ctx, step.Inputs)
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "%d. %s\n", i+1, step.Name)
				fmt.Fprintf(out, "   state:   %s\n", state)
				fmt.Fprintf(out, "   outputs: %s\n", controller.Outputs())
			}
			return nil
		},
	}
}

func (a *app) printStats(cmd *cobra.Command, args []string) error {
	if !a.stats {
		return nil
	}

	families, err := a.registry.Gather()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "--- Metrics ---")

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName() + formatLabels(m.GetLabel())

			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				fmt.Fprintf(out, "%s %g\n", name, m.GetCounter().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				fmt.Fprintf(out, "%s_count %d\n", name, h.GetSampleCount())
				fmt.Fprintf(out, "%s_sum %g\n", name, h.GetSampleSum())
			}
		}
	}
	return nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}

	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}
