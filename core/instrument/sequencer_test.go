package instrument

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aesop-lite/control/core/fault"
	"github.com/aesop-lite/control/core/runlog"
	"github.com/aesop-lite/control/device/sim"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testConfig(dir string) Config {
	return Config{
		Address:        8,
		Events:         1000,
		FirstRun:       320,
		Runs:           3,
		Transport:      "sim",
		Boards:         []int{0, 1, 2, 3, 4, 5, 6, 7},
		ASICReset:      true,
		PMTThresholds:  [5]int{3, 4, 4, 3, 60},
		TOFThresholds:  [2]int{49, 49},
		TriggerMask:    0x06,
		TriggerWindow:  16,
		PrescaleTarget: "PMT",
		Prescale:       4,
		SettleDelay:    0,
		DataDir:        dir,
	}
}

var _ = Describe("sequencer state machine", func() {
	var s *Sequencer

	BeforeEach(func() {
		s = NewSequencer(testConfig("."), sim.New(), fault.NewPolicy(false))
	})

	It("should start in STANDBY", func() {
		Expect(s.Sm.Current()).To(Equal("STANDBY"))
	})

	It("should only accept the first bring-up phase from STANDBY", func() {
		Expect(s.Sm.Can("SYNC_CLOCK")).To(BeTrue())
		Expect(s.Sm.Can("ECHO_CLOCK")).To(BeFalse())
		Expect(s.Sm.Can("CONFIGURE_TRIGGER")).To(BeFalse())
		Expect(s.Sm.Can("START_ACTIVITY")).To(BeFalse())
	})

	It("should allow exiting without ever configuring", func() {
		Expect(s.Sm.Can("EXIT")).To(BeTrue())
	})

	It("should reject an out-of-order transition and stay put", func() {
		err := s.TryTransition(NewStartActivityTransition(320))
		Expect(err).To(HaveOccurred())
		Expect(s.Sm.Current()).To(Equal("STANDBY"))
	})

	It("should walk the full phase order during bring-up", func() {
		Expect(s.Bringup()).To(Succeed())
		Expect(s.Sm.Current()).To(Equal("CONFIGURED"))
	})
})

var _ = Describe("sequencing scenarios", func() {
	var (
		dir string
		gw  *sim.Gateway
		cfg Config
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "sequencer")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(dir) })

		gw = sim.New()
		cfg = testConfig(dir)
	})

	newSequencer := func(abortOnAnyFault bool) *Sequencer {
		return NewSequencer(cfg, gw, fault.NewPolicy(abortOnAnyFault))
	}

	parseRun := func(runNumber int) runlog.Record {
		records, err := runlog.ParseFile(filepath.Join(dir, runlog.FileName(runNumber)))
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
		return records[0]
	}

	When("everything succeeds", func() {
		It("should write one complete block per configured run", func() {
			s := newSequencer(false)
			Expect(s.Bringup()).To(Succeed())
			Expect(s.RunAll()).To(Succeed())
			Expect(s.Sm.Current()).To(Equal("DONE"))
			Expect(s.policy.Ledger().Count()).To(BeZero())
			Expect(gw.OpCount("Acquire")).To(Equal(3))

			for runNumber := 320; runNumber <= 322; runNumber++ {
				rec := parseRun(runNumber)
				Expect(rec.RunNumber).To(Equal(runNumber))
				Expect(rec.Acquired).To(BeTrue())

				for i := range runlog.ADCNames {
					want := float64(200+25*i) + float64(runNumber%10)/10
					Expect(rec.ADCMean[i]).To(BeNumerically("~", want, 1e-9))
					Expect(rec.ADCSigma[i]).To(BeNumerically("~", 10.5+float64(i), 1e-9))
				}
				Expect(rec.TOFMean).To(BeNumerically("~", 12.25+float64(runNumber%7)/100, 1e-9))
				Expect(rec.TOFSigma).To(BeNumerically("~", 0.75, 1e-9))

				for ch := 1; ch <= 5; ch++ {
					Expect(rec.ChannelRead[ch-1]).To(BeTrue())
					Expect(rec.ChannelCounts[ch-1]).To(Equal(1000 + 111*ch))
				}
				Expect(rec.FPGAConfig).To(Equal("0x48"))
			}
		})

		It("should tear the tracker down after every run, not only the last", func() {
			s := newSequencer(false)
			Expect(s.Bringup()).To(Succeed())
			Expect(s.RunAll()).To(Succeed())
			Expect(gw.OpCount("ASICPowerOff")).To(Equal(3))
			Expect(gw.OpCount("TriggerDisable")).To(Equal(3))
			// The power-on of the bring-up phase is never repeated.
			Expect(gw.OpCount("ASICPowerOn")).To(Equal(1))
		})
	})

	When("a critical phase fails", func() {
		It("should abort before any later operation", func() {
			gw.Fault = func(op string, args ...int) error {
				if op == "SetClock" {
					return errors.New("no response from PSOC")
				}
				return nil
			}
			s := newSequencer(false)
			err := s.Bringup()

			var critical *fault.CriticalError
			Expect(errors.As(err, &critical)).To(BeTrue())
			Expect(critical.Event.Phase).To(Equal("RTC set"))
			Expect(s.Sm.Current()).To(Equal("ERROR"))
			Expect(gw.Ops()).To(Equal([]string{"SetClock"}))
		})
	})

	When("a tolerated phase fails", func() {
		BeforeEach(func() {
			gw.Fault = func(op string, args ...int) error {
				if op == "Clock" {
					return errors.New("no response from PSOC")
				}
				return nil
			}
		})

		It("should count one fault and keep sequencing", func() {
			s := newSequencer(false)
			Expect(s.Bringup()).To(Succeed())
			Expect(s.Sm.Current()).To(Equal("CONFIGURED"))

			events := s.policy.Ledger().Events()
			Expect(events).To(HaveLen(1))
			Expect(events[0].Phase).To(Equal("RTC echo"))
			Expect(events[0].Class).To(Equal(fault.TOLERATED))
		})

		It("should escalate under abort-on-any-fault", func() {
			s := newSequencer(true)
			err := s.Bringup()

			var critical *fault.CriticalError
			Expect(errors.As(err, &critical)).To(BeTrue())
			Expect(s.Sm.Current()).To(Equal("ERROR"))
		})
	})

	When("every acquisition fails", func() {
		It("should still produce one block per run and finish", func() {
			cfg.Runs = 2
			gw.Fault = func(op string, args ...int) error {
				if op == "Acquire" {
					return fmt.Errorf("timeout during run %d", args[0])
				}
				return nil
			}
			s := newSequencer(false)
			Expect(s.Bringup()).To(Succeed())
			Expect(s.RunAll()).To(Succeed())
			Expect(s.Sm.Current()).To(Equal("DONE"))

			for runNumber := 320; runNumber <= 321; runNumber++ {
				rec := parseRun(runNumber)
				Expect(rec.Acquired).To(BeFalse())
				Expect(rec.FailureReason).To(ContainSubstring(fmt.Sprintf("run %d", runNumber)))
			}
			Expect(s.policy.Ledger().Count()).To(Equal(2))
		})
	})

	When("one singles channel does not respond", func() {
		It("should read the remaining four and record the gap", func() {
			cfg.Runs = 1
			gw.Fault = func(op string, args ...int) error {
				if op == "EndOfRunCount" && args[0] == 3 {
					return errors.New("no response from PSOC")
				}
				return nil
			}
			s := newSequencer(false)
			Expect(s.Bringup()).To(Succeed())
			Expect(s.RunAll()).To(Succeed())

			rec := parseRun(320)
			Expect(rec.ChannelRead).To(Equal([5]bool{true, true, false, true, true}))
			Expect(gw.OpCount("EndOfRunCount")).To(Equal(5))

			events := s.policy.Ledger().Events()
			Expect(events).To(HaveLen(1))
			Expect(events[0].Phase).To(Equal("run 320 singles readback [channel 3]"))
		})
	})

	When("no tracker boards are configured", func() {
		It("should skip every tracker operation", func() {
			cfg.Boards = nil
			cfg.Runs = 1
			s := newSequencer(false)
			Expect(s.Bringup()).To(Succeed())
			Expect(s.RunAll()).To(Succeed())
			Expect(s.policy.Ledger().Count()).To(BeZero())

			for _, op := range []string{
				"ResetFPGA", "ResetStateMachines", "SetLayerCount",
				"ASICPowerOn", "ASICPowerOff", "CalibrateInputTiming",
				"LoadASICConfig", "FPGAConfig", "TriggerDisable",
			} {
				Expect(gw.OpCount(op)).To(BeZero(), "unexpected tracker op %s", op)
			}

			rec := parseRun(320)
			Expect(rec.Acquired).To(BeTrue())
			// No tracker means no FPGA diagnostic line; the parser default
			// applies.
			Expect(rec.FPGAConfig).To(Equal("error"))
		})
	})
})

func TestSequencer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Instrument Sequencer Test Suite")
}
