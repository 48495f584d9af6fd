package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/netsim/netsim/sim/trace"

	// Protocols register themselves with the protocol registry.
	_ "github.com/netsim/netsim/sim/protocol/gossip"
	_ "github.com/netsim/netsim/sim/protocol/handel"
	_ "github.com/netsim/netsim/sim/protocol/pow"
	_ "github.com/netsim/netsim/sim/protocol/snowflake"
)

var (
	protocolName string // Registered protocol to run
	paramsPath   string // YAML file with protocol parameters
	scenarioPath string // YAML file with named scenarios
	scenarioName string // Scenario to run from scenarioPath
	seed         int64  // Seed of the run's only random source
	durationMs   int64  // Virtual time budget (ms)
	logLevel     string // Log verbosity level
	logFile      string // Optional rotated log file
	traceLevel   string // Envelope trace level
	showDefaults bool   // Print default parameters in `protocols`
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:           "netsim",
	Short:         "Deterministic discrete-event simulator for consensus network protocols",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// runCmd runs one protocol from CLI flags, a parameter file or a scenario
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a protocol simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		closer, err := setupLogging(logLevel, logFile)
		if err != nil {
			return err
		}
		// Errors are logged before returning so they reach the log file
		// before it is closed.
		defer closer.Close()
		if err := runFromFlags(cmd); err != nil {
			logrus.Errorf("%v", err)
			return err
		}
		logrus.Info("Simulation complete.")
		return nil
	},
}

// runFromFlags assembles the run options from flags and runs the simulation.
func runFromFlags(cmd *cobra.Command) error {
	if !trace.IsValidTraceLevel(traceLevel) {
		return fmt.Errorf("invalid trace level %q (none, envelopes, fields)", traceLevel)
	}
	opts := runOptions{
		Protocol:   protocolName,
		Seed:       seed,
		DurationMs: durationMs,
		TraceLevel: trace.TraceLevel(traceLevel),
	}
	if paramsPath != "" {
		var err error
		if opts.Params, err = os.ReadFile(paramsPath); err != nil {
			return fmt.Errorf("failed to read parameters: %w", err)
		}
	}
	if scenarioName != "" {
		sc, err := loadScenario(scenarioPath, scenarioName)
		if err != nil {
			return err
		}
		// Explicit flags win over the scenario.
		if err := sc.apply(&opts, cmd.Flags().Changed); err != nil {
			return err
		}
	}
	return runSimulation(opts, cmd.OutOrStdout())
}

// protocolsCmd lists the registered protocols
var protocolsCmd = &cobra.Command{
	Use:   "protocols",
	Short: "List available protocols",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listProtocols(cmd.OutOrStdout(), showDefaults)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&protocolName, "protocol", "gossip", "Protocol to simulate (see `netsim protocols`)")
	runCmd.Flags().StringVar(&paramsPath, "params", "", "YAML file with protocol parameters (unset keys keep defaults)")
	runCmd.Flags().StringVar(&scenarioPath, "scenario-file", "scenarios.yaml", "YAML file with named scenarios")
	runCmd.Flags().StringVar(&scenarioName, "scenario", "", "Scenario to run from --scenario-file")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the simulation's random source")
	runCmd.Flags().Int64Var(&durationMs, "duration", 60000, "Virtual time budget in milliseconds")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&logFile, "log-file", "", "Also write logs to this file, rotated at 10 MB")
	runCmd.Flags().StringVar(&traceLevel, "trace", "none", "Envelope trace level (none, envelopes, fields)")

	protocolsCmd.Flags().BoolVar(&showDefaults, "defaults", false, "Print each protocol's default parameters as YAML")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(protocolsCmd)
}
