// Package main lists the scenarios bundled with ARCSim.
//
// Run a scenario with: go run ./cmd/arcsim <scenario.json>
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/sarchlab/arcsim/scenario"
)

var scenarioDir = flag.String("dir", "scenarios", "Directory holding scenario JSON files")

func main() {
	flag.Parse()

	if err := listScenarios(os.Stdout, *scenarioDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error listing scenarios: %v\n", err)
		os.Exit(1)
	}
}

// listScenarios prints the name, step count and description of every
// scenario file in dir, in file name order.
func listScenarios(w io.Writer, dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no scenarios in %s", dir)
	}
	sort.Strings(paths)

	for _, path := range paths {
		s, err := scenario.Load(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		fmt.Fprintf(w, "%s (%d steps): %s\n", s.Name, s.NumSteps(), s.Description)
		fmt.Fprintf(w, "  go run ./cmd/arcsim %s\n", path)
	}

	return nil
}
