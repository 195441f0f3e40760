// Package main provides the entry point for ARCSim.
// ARCSim runs multi-core ARConnect scenarios and reports the resulting
// interrupt state.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/term"

	"github.com/sarchlab/arcsim/arconnect"
	"github.com/sarchlab/arcsim/machine"
	"github.com/sarchlab/arcsim/scenario"
)

var (
	configPath = flag.String("config", "", "Path to ARConnect configuration JSON file")
	verbose    = flag.Bool("v", false, "Verbose output: log every command and interrupt line change")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: arcsim [options] <scenario.json>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	os.Exit(run(flag.Arg(0)))
}

func run(scenarioPath string) int {
	s, err := scenario.Load(scenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scenario: %v\n", err)
		return 1
	}

	config, err := resolveConfig(*configPath, s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []machine.Option{machine.WithLogger(logger)}
	if *verbose {
		opts = append(opts, machine.WithIRQTrace())
	}

	m, err := machine.New(config, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating machine: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runnerOpts := []scenario.RunnerOption{scenario.WithLogger(logger)}
	if *configPath != "" {
		runnerOpts = append(runnerOpts, scenario.WithConfigOverride())
	}

	result, err := scenario.NewRunner(m, runnerOpts...).Run(ctx, s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running scenario: %v\n", err)
		return 1
	}

	if err := writeReport(os.Stdout, m, result, term.IsTerminal(int(os.Stdout.Fd()))); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		return 1
	}

	if !result.Passed() {
		return 1
	}
	return 0
}

// resolveConfig picks the machine configuration: an explicit config file
// wins, then the scenario's own config, then the default.
func resolveConfig(path string, s *scenario.Scenario) (*arconnect.Config, error) {
	if path != "" {
		return arconnect.LoadConfig(path)
	}
	if s.Config != nil {
		return s.Config.Clone(), nil
	}
	return arconnect.DefaultConfig(), nil
}
