package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sarchlab/arcsim/machine"
	"github.com/sarchlab/arcsim/scenario"
)

// writeReport prints the scenario outcome followed by the IDU routing, the
// pending lines of every core and the machine counters. Columns are
// tab-separated; aligned is set when the output is a terminal.
func writeReport(out io.Writer, m *machine.Machine, r *scenario.Result, aligned bool) error {
	w := out
	var tw *tabwriter.Writer
	if aligned {
		tw = tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
		w = tw
	}

	status := "PASS"
	if !r.Passed() {
		status = "FAIL"
	}

	fmt.Fprintf(w, "Scenario:\t%s\n", r.Name)
	fmt.Fprintf(w, "Result:\t%s\n", status)
	fmt.Fprintf(w, "Steps:\t%d\n", r.Steps)
	fmt.Fprintf(w, "Wall time:\t%v\n", r.WallTime)

	if len(r.Failures) > 0 {
		fmt.Fprintf(w, "\nFailures:\n")
		for _, f := range r.Failures {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}

	unit := m.Unit()
	fmt.Fprintf(w, "\nIDU enabled:\t%v\n", unit.Enabled())
	fmt.Fprintf(w, "Cirq\tMode\tDest\tMask\n")
	for _, l := range unit.Lines() {
		if l.Dest == 0 {
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t0x%08x\t0x%08x\n", l.Cirq, l.Mode.Title(), l.Dest, l.Mask)
	}

	fmt.Fprintf(w, "\nCore\tICI\tCirqs\n")
	for _, c := range m.Cores() {
		fmt.Fprintf(w, "%d\t%v\t%s\n", c.ID(), c.ICIPending(), formatCirqs(c.PendingCirqs()))
	}

	stats := r.Stats
	fmt.Fprintf(w, "\nCommands:\t%d\n", stats.Unit.Commands)
	fmt.Fprintf(w, "Errors:\t%d\n", stats.Unit.Errors)
	fmt.Fprintf(w, "ICI raised:\t%d\n", stats.Unit.ICIRaised)
	fmt.Fprintf(w, "Cirq deliveries:\t%d\n", stats.Unit.CirqDelivered)
	fmt.Fprintf(w, "Line raises:\t%d\n", stats.Raises)
	fmt.Fprintf(w, "Line lowers:\t%d\n", stats.Lowers)

	if tw != nil {
		return tw.Flush()
	}
	return nil
}

func formatCirqs(cirqs []int) string {
	if len(cirqs) == 0 {
		return "-"
	}
	parts := make([]string, len(cirqs))
	for i, c := range cirqs {
		parts[i] = fmt.Sprint(c)
	}
	return strings.Join(parts, ",")
}
