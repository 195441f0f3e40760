package arconnect_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arcsim/arconnect"
	"github.com/sarchlab/arcsim/irq"
)

var _ = Describe("IDU", func() {
	var (
		config      *arconnect.Config
		controllers []*irq.Controller
		recorder    *irq.Recorder
		idu         *arconnect.IDU
	)

	line := func(cirq int) int {
		return config.CirqLineBase + cirq
	}

	BeforeEach(func() {
		config = arconnect.DefaultConfig()
		var lines []arconnect.InterruptLines
		controllers, lines, recorder = newControllers(config)

		registry, err := arconnect.NewRegistry(lines)
		Expect(err).NotTo(HaveOccurred())
		idu = arconnect.NewIDU(registry, config.NumCirqs, config.CirqLineBase, discardLogger())
		idu.Enable()
	})

	Describe("Configuration", func() {
		It("should store and return the mask", func() {
			Expect(idu.SetMask(3, 0x1)).To(Succeed())
			Expect(idu.Mask(3)).To(Equal(uint32(0x1)))
		})

		It("should drop destination bits beyond the last core", func() {
			Expect(idu.SetDest(0, 0xff)).To(Succeed())
			Expect(idu.Dest(0)).To(Equal(uint32(0xf)))
		})

		It("should store the mode from the low two bits", func() {
			Expect(idu.SetMode(1, 0x30|uint32(arconnect.AllDestination))).To(Succeed())
			Expect(idu.Mode(1)).To(Equal(arconnect.AllDestination))
		})

		It("should reject an unknown mode", func() {
			Expect(idu.SetMode(1, 3)).To(MatchError(arconnect.ErrInvalidMode))
			Expect(idu.Mode(1)).To(Equal(arconnect.RoundRobin))
		})

		It("should reject line indexes beyond the table", func() {
			cirq := uint16(config.NumCirqs)
			Expect(idu.SetMask(cirq, 0)).To(MatchError(arconnect.ErrInvalidLineIndex))
			Expect(idu.SetDest(cirq, 0)).To(MatchError(arconnect.ErrInvalidLineIndex))
			Expect(idu.SetMode(cirq, 0)).To(MatchError(arconnect.ErrInvalidLineIndex))
			Expect(idu.Generate(cirq)).To(MatchError(arconnect.ErrInvalidLineIndex))
			Expect(idu.Ack(0, cirq)).To(MatchError(arconnect.ErrInvalidLineIndex))

			_, err := idu.CheckAndClearFirst(0, cirq)
			Expect(err).To(MatchError(arconnect.ErrInvalidLineIndex))

			_, err = idu.Mask(cirq)
			Expect(err).To(MatchError(arconnect.ErrInvalidLineIndex))
			_, err = idu.Dest(cirq)
			Expect(err).To(MatchError(arconnect.ErrInvalidLineIndex))
			_, err = idu.Mode(cirq)
			Expect(err).To(MatchError(arconnect.ErrInvalidLineIndex))
			_, err = idu.CheckStatus(0, cirq)
			Expect(err).To(MatchError(arconnect.ErrInvalidLineIndex))
		})

		It("should title-case mode names", func() {
			Expect(arconnect.FirstAcknowledge.Title()).To(Equal("First Acknowledge"))
			Expect(arconnect.Mode(7).String()).To(Equal("mode 7"))
		})
	})

	Describe("Round robin", func() {
		It("should alternate between destination cores", func() {
			Expect(idu.SetDest(0, 1<<1|1<<3)).To(Succeed())

			for i := 0; i < 4; i++ {
				Expect(idu.Generate(0)).To(Succeed())
			}

			Expect(recorder.Raised(line(0))).To(Equal([]int{1, 3, 1, 3}))
		})

		It("should offset the starting core by the line index", func() {
			Expect(idu.SetDest(2, 0xf)).To(Succeed())

			Expect(idu.Generate(2)).To(Succeed())
			Expect(idu.Generate(2)).To(Succeed())

			Expect(recorder.Raised(line(2))).To(Equal([]int{2, 3}))
		})

		It("should raise exactly one core per generate", func() {
			Expect(idu.SetDest(5, 0xf)).To(Succeed())
			Expect(idu.Generate(5)).To(Succeed())

			Expect(recorder.Raised(line(5))).To(HaveLen(1))
			Expect(idu.Delivered()).To(Equal(uint64(1)))
		})

		It("should fail instead of spinning on an empty destination", func() {
			Expect(idu.Generate(0)).To(MatchError(arconnect.ErrNoDestination))
			Expect(recorder.Events()).To(BeEmpty())
		})
	})

	Describe("All destination", func() {
		BeforeEach(func() {
			Expect(idu.SetMode(4, uint32(arconnect.AllDestination))).To(Succeed())
		})

		It("should raise every destination core in ascending order", func() {
			Expect(idu.SetDest(4, 1<<0|1<<2|1<<3)).To(Succeed())
			Expect(idu.Generate(4)).To(Succeed())

			Expect(recorder.Raised(line(4))).To(Equal([]int{0, 2, 3}))
			Expect(controllers[1].Level(line(4))).To(BeFalse())
		})

		It("should do nothing with an empty destination", func() {
			Expect(idu.Generate(4)).To(Succeed())
			Expect(recorder.Events()).To(BeEmpty())
		})
	})

	Describe("First acknowledge", func() {
		BeforeEach(func() {
			Expect(idu.SetMode(6, uint32(arconnect.FirstAcknowledge))).To(Succeed())
			Expect(idu.SetDest(6, 0b1110)).To(Succeed())
		})

		It("should raise every destination core", func() {
			Expect(idu.Generate(6)).To(Succeed())
			Expect(recorder.Raised(line(6))).To(Equal([]int{1, 2, 3}))
		})

		It("should let only the first checker claim the interrupt", func() {
			Expect(idu.Generate(6)).To(Succeed())

			Expect(idu.CheckAndClearFirst(2, 6)).To(BeTrue())
			Expect(idu.CheckAndClearFirst(1, 6)).To(BeFalse())
			Expect(idu.CheckAndClearFirst(3, 6)).To(BeFalse())
			Expect(idu.CheckAndClearFirst(2, 6)).To(BeFalse())
		})

		It("should arm the flags again on the next raise", func() {
			Expect(idu.Generate(6)).To(Succeed())
			Expect(idu.CheckAndClearFirst(1, 6)).To(BeTrue())

			Expect(idu.Generate(6)).To(Succeed())
			Expect(idu.CheckAndClearFirst(3, 6)).To(BeTrue())
			Expect(idu.CheckAndClearFirst(1, 6)).To(BeFalse())
		})

		It("should not flag a core outside the destination set", func() {
			Expect(idu.Generate(6)).To(Succeed())
			Expect(idu.CheckAndClearFirst(0, 6)).To(BeFalse())
		})
	})

	Describe("Acknowledge and status", func() {
		It("should lower only the caller's line", func() {
			Expect(idu.SetMode(0, uint32(arconnect.AllDestination))).To(Succeed())
			Expect(idu.SetDest(0, 0b0011)).To(Succeed())
			Expect(idu.Generate(0)).To(Succeed())

			Expect(idu.CheckStatus(0, 0)).To(BeTrue())
			Expect(idu.Ack(0, 0)).To(Succeed())

			Expect(idu.CheckStatus(0, 0)).To(BeFalse())
			Expect(idu.CheckStatus(1, 0)).To(BeTrue())
		})
	})

	Describe("Enable and disable", func() {
		It("should not deliver while disabled", func() {
			Expect(idu.SetMode(0, uint32(arconnect.AllDestination))).To(Succeed())
			Expect(idu.SetDest(0, 0xf)).To(Succeed())

			idu.Disable()
			Expect(idu.Enabled()).To(BeFalse())

			Expect(idu.Generate(0)).To(Succeed())
			Expect(recorder.Events()).To(BeEmpty())
		})

		It("should clear every line and flag on disable", func() {
			Expect(idu.SetMode(1, uint32(arconnect.FirstAcknowledge))).To(Succeed())
			Expect(idu.SetDest(1, 0xf)).To(Succeed())
			Expect(idu.SetMask(1, 1)).To(Succeed())
			Expect(idu.Generate(1)).To(Succeed())

			idu.Disable()
			idu.Enable()

			Expect(idu.Mode(1)).To(Equal(arconnect.RoundRobin))
			Expect(idu.Dest(1)).To(BeZero())
			Expect(idu.Mask(1)).To(BeZero())
			for core := arconnect.CoreID(0); core < 4; core++ {
				Expect(idu.CheckAndClearFirst(core, 1)).To(BeFalse())
			}
		})

		It("should restart round robin from a zero cursor after disable", func() {
			Expect(idu.SetDest(0, 0xf)).To(Succeed())
			Expect(idu.Generate(0)).To(Succeed())
			Expect(idu.Generate(0)).To(Succeed())

			idu.Disable()
			idu.Enable()
			recorder.Clear()

			Expect(idu.SetDest(0, 0xf)).To(Succeed())
			Expect(idu.Generate(0)).To(Succeed())
			Expect(recorder.Raised(line(0))).To(Equal([]int{0}))
		})
	})
})
