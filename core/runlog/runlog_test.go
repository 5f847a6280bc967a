package runlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("run log sink", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "runlog")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(dir) })
	})

	writeBlock := func(rec *Record) {
		w, err := Open(dir, rec.RunNumber)
		Expect(err).NotTo(HaveOccurred())
		Expect(w.WriteSummary(rec)).To(Succeed())
		for i, name := range SinglesNames {
			if rec.ChannelRead[i] {
				Expect(w.WriteChannelCount(name, rec.ChannelCounts[i])).To(Succeed())
			}
		}
		if rec.FPGAConfig != "" {
			Expect(w.WriteFPGAConfig(rec.FPGAConfig)).To(Succeed())
		}
		Expect(w.Close()).To(Succeed())
	}

	It("should name files the way the analysis tooling expects", func() {
		Expect(FileName(322)).To(Equal("dataOutput_run322.txt"))
	})

	It("should round-trip a successful run record", func() {
		rec := &Record{
			RunNumber:     320,
			Acquired:      true,
			ADCMean:       [6]float64{200.4, 225.1, 250, 275.9, 300.25, 325.5},
			ADCSigma:      [6]float64{10.5, 11.5, 12.5, 13.5, 14.5, 15.5},
			TOFMean:       12.27,
			TOFSigma:      0.75,
			ChannelCounts: [5]int{1111, 1222, 1333, 1444, 1555},
			ChannelRead:   [5]bool{true, true, true, true, true},
			FPGAConfig:    "0x47",
			EndedAt:       time.Date(2024, 6, 3, 14, 5, 9, 0, time.UTC),
		}
		writeBlock(rec)

		records, err := ParseFile(filepath.Join(dir, FileName(320)))
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))

		got := records[0]
		Expect(got.RunNumber).To(Equal(320))
		Expect(got.Acquired).To(BeTrue())
		Expect(got.EndedAt).To(BeTemporally("==", rec.EndedAt))
		for i := range ADCNames {
			Expect(got.ADCMean[i]).To(BeNumerically("~", rec.ADCMean[i], 1e-9))
			Expect(got.ADCSigma[i]).To(BeNumerically("~", rec.ADCSigma[i], 1e-9))
		}
		Expect(got.TOFMean).To(BeNumerically("~", rec.TOFMean, 1e-9))
		Expect(got.TOFSigma).To(BeNumerically("~", rec.TOFSigma, 1e-9))
		Expect(got.ChannelCounts).To(Equal(rec.ChannelCounts))
		Expect(got.ChannelRead).To(Equal(rec.ChannelRead))
		Expect(got.FPGAConfig).To(Equal("0x47"))
	})

	It("should round-trip a failed acquisition", func() {
		rec := &Record{
			RunNumber:     321,
			Acquired:      false,
			FailureReason: "communication fault during acquisition run 321: timeout",
			FPGAConfig:    "error",
			EndedAt:       time.Date(2024, 6, 3, 14, 9, 0, 0, time.UTC),
		}
		writeBlock(rec)

		records, err := ParseFile(filepath.Join(dir, FileName(321)))
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
		Expect(records[0].Acquired).To(BeFalse())
		Expect(records[0].FailureReason).To(Equal(rec.FailureReason))
		Expect(records[0].FPGAConfig).To(Equal("error"))
	})

	It("should keep partial channel reads partial", func() {
		rec := &Record{
			RunNumber:     322,
			Acquired:      true,
			EndedAt:       time.Date(2024, 6, 3, 14, 12, 0, 0, time.UTC),
			ChannelCounts: [5]int{10, 0, 30, 40, 50},
			ChannelRead:   [5]bool{true, false, true, true, true},
		}
		writeBlock(rec)

		records, err := ParseFile(filepath.Join(dir, FileName(322)))
		Expect(err).NotTo(HaveOccurred())
		Expect(records[0].ChannelRead).To(Equal(rec.ChannelRead))
		Expect(records[0].ChannelCounts).To(Equal(rec.ChannelCounts))
	})

	It("should split multiple blocks in one file", func() {
		first := &Record{RunNumber: 323, Acquired: true, EndedAt: time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)}
		second := &Record{RunNumber: 323, Acquired: false, FailureReason: "timeout",
			EndedAt: time.Date(2024, 6, 3, 15, 5, 0, 0, time.UTC)}
		writeBlock(first)
		writeBlock(second)

		records, err := ParseFile(filepath.Join(dir, FileName(323)))
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))
		Expect(records[0].Acquired).To(BeTrue())
		Expect(records[1].Acquired).To(BeFalse())
	})

	It("should skip mirrored log noise before the first block", func() {
		records, err := Parse(strings.NewReader(
			"14:05:01 WARNING: fault tolerated, continuing\n" +
				"Ending the run at Mon Jun  3 14:05:09 2024\n" +
				"Acquisition failed: timeout\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
	})

	Describe("nil-safe writer", func() {
		It("should swallow every write on a nil writer", func() {
			var w *Writer
			Expect(w.WriteSummary(&Record{})).To(Succeed())
			Expect(w.WriteChannelCount("G", 1)).To(Succeed())
			Expect(w.WriteFPGAConfig("error")).To(Succeed())
			Expect(w.Close()).To(Succeed())
			Expect(w.Sink()).To(BeNil())
		})
	})
})

func TestRunlog(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Run Log Test Suite")
}
