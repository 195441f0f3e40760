package scenario_test

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arcsim/arconnect"
	"github.com/sarchlab/arcsim/machine"
	"github.com/sarchlab/arcsim/scenario"
)

func mustParse(doc string) *scenario.Scenario {
	s, err := scenario.Parse([]byte(doc))
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("Runner", func() {
	var (
		m      *machine.Machine
		runner *scenario.Runner
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		m, err = machine.New(arconnect.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		runner = scenario.NewRunner(m)
		ctx = context.Background()
	})

	It("should pass the handshake scenario", func() {
		s, err := scenario.Load(filepath.Join("testdata", "handshake.json"))
		Expect(err).NotTo(HaveOccurred())

		result, err := runner.Run(ctx, s)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Failures).To(BeEmpty())
		Expect(result.Passed()).To(BeTrue())
		Expect(result.Name).To(Equal("handshake"))
		Expect(result.Steps).To(Equal(20))
		Expect(result.Stats.Unit.Commands).To(Equal(uint64(20)))
		Expect(result.Stats.Unit.Errors).To(Equal(uint64(3)))
		Expect(result.Stats.Unit.CirqDelivered).To(Equal(uint64(3)))
		Expect(result.Stats.Unit.ICIRaised).To(Equal(uint64(1)))
	})

	It("should pass the bundled boot scenario", func() {
		s, err := scenario.Load(filepath.Join("..", "scenarios", "smp_boot.json"))
		Expect(err).NotTo(HaveOccurred())

		result, err := runner.Run(ctx, s)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failures).To(BeEmpty())
	})

	It("should let exactly one core win a first-acknowledge race", func() {
		s := mustParse(`{
			"name": "race",
			"phases": [
				{"name": "setup", "steps": [
					{"core": 0, "command": "idu_enable"},
					{"core": 0, "command": "idu_set_mode", "param": 1, "data": 1},
					{"core": 0, "command": "idu_set_dest", "param": 1, "data": 15},
					{"core": 0, "command": "idu_gen_cirq", "param": 1}
				]},
				{"name": "race", "parallel": true, "steps": [
					{"core": 0, "command": "idu_check_first", "param": 1},
					{"core": 1, "command": "idu_check_first", "param": 1},
					{"core": 2, "command": "idu_check_first", "param": 1},
					{"core": 3, "command": "idu_check_first", "param": 1}
				]}
			]
		}`)

		result, err := runner.Run(ctx, s)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Passed()).To(BeTrue())

		winners := 0
		for _, c := range m.Cores() {
			v, err := c.ReadAux(arconnect.RegReadback)
			Expect(err).NotTo(HaveOccurred())
			winners += int(v)
		}
		Expect(winners).To(Equal(1))
	})

	It("should collect unmet expectations as failures", func() {
		s := mustParse(`{
			"name": "wrong",
			"phases": [
				{"name": "p", "steps": [
					{"core": 1, "command": "check_core_id", "expect": 2},
					{"core": 0, "command": "idu_gen_cirq", "param": 200},
					{"core": 0, "command": "idu_gen_cirq", "param": 0, "expect_error": "invalid_line_index"},
					{"core": 0, "command": "idu_gen_cirq", "param": 300, "expect_error": "invalid_mode"}
				], "lines": [
					{"core": 2, "level": true}
				]}
			]
		}`)

		result, err := runner.Run(ctx, s)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Passed()).To(BeFalse())
		Expect(result.Failures).To(HaveLen(5))

		Expect(result.Failures[0].Step).To(Equal(0))
		Expect(result.Failures[0].Core).To(Equal(1))
		Expect(result.Failures[0].Message).To(ContainSubstring("readback 0x1, expected 0x2"))
		Expect(result.Failures[1].Message).To(ContainSubstring("unexpected error"))
		Expect(result.Failures[2].Message).To(ContainSubstring("got none"))
		Expect(result.Failures[3].Message).To(ContainSubstring("expected error invalid_mode"))

		Expect(result.Failures[4].Step).To(Equal(-1))
		Expect(result.Failures[4].String()).To(Equal("p: core 2: ici line is false, expected true"))
		Expect(result.Failures[0].String()).To(HavePrefix("p[0]: core 1: "))
	})

	It("should refuse scenarios for another machine", func() {
		s := mustParse(`{"name": "two", "config": {"num_cores": 2}, "phases": []}`)
		_, err := runner.Run(ctx, s)
		Expect(err).To(MatchError(scenario.ErrConfigMismatch))
	})

	It("should run a scenario pinned to another machine when overridden", func() {
		s := mustParse(`{"name": "two", "config": {"num_cores": 2}, "phases": [
			{"name": "p", "steps": [{"core": 3, "command": "check_core_id", "expect": 3}]}
		]}`)

		result, err := scenario.NewRunner(m, scenario.WithConfigOverride()).Run(ctx, s)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Passed()).To(BeTrue())
	})

	It("should still check core references when overridden", func() {
		s := mustParse(`{"name": "big", "config": {"num_cores": 8}, "phases": [
			{"name": "p", "steps": [{"core": 6, "command": "idu_enable"}]}
		]}`)

		_, err := scenario.NewRunner(m, scenario.WithConfigOverride()).Run(ctx, s)
		Expect(err).To(MatchError(arconnect.ErrUnknownCore))
	})

	It("should refuse steps from unknown cores", func() {
		s := mustParse(`{"name": "far", "phases": [
			{"name": "p", "steps": [{"core": 7, "command": "idu_enable"}]}
		]}`)
		_, err := runner.Run(ctx, s)
		Expect(err).To(MatchError(arconnect.ErrUnknownCore))
		Expect(m.Stats().Unit.Commands).To(BeZero())
	})

	It("should refuse line checks of unknown common IRQs", func() {
		s := mustParse(`{"name": "far", "phases": [
			{"name": "p", "steps": [], "lines": [{"core": 0, "cirq": 32, "level": false}]}
		]}`)
		_, err := runner.Run(ctx, s)
		Expect(err).To(MatchError(arconnect.ErrInvalidLineIndex))
	})

	It("should stop when the context is canceled", func() {
		s := mustParse(`{"name": "late", "phases": [
			{"name": "p", "steps": [{"core": 0, "command": "idu_enable"}]}
		]}`)
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := runner.Run(canceled, s)
		Expect(err).To(MatchError(context.Canceled))
		Expect(m.Unit().Enabled()).To(BeFalse())
	})

	It("should log every phase", func() {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		runner = scenario.NewRunner(m, scenario.WithLogger(logger))

		s := mustParse(`{"name": "quiet", "phases": [
			{"name": "first", "steps": []},
			{"name": "second", "parallel": true, "steps": []}
		]}`)
		_, err := runner.Run(ctx, s)
		Expect(err).NotTo(HaveOccurred())

		Expect(buf.String()).To(ContainSubstring("Phase=first"))
		Expect(buf.String()).To(ContainSubstring("Phase=second"))
		Expect(buf.String()).To(ContainSubstring("Parallel=true"))
	})
})
