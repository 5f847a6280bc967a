package runhook

import (
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

var _ = Describe("run log hook", func() {
	var (
		h    *Hook
		sink *strings.Builder
	)

	entry := func(level logrus.Level, msg string, fields logrus.Fields) *logrus.Entry {
		return &logrus.Entry{
			Logger:  logrus.StandardLogger(),
			Time:    time.Date(2024, 6, 3, 14, 5, 9, 0, time.UTC),
			Level:   level,
			Message: msg,
			Data:    fields,
		}
	}

	BeforeEach(func() {
		h = NewHook()
		sink = &strings.Builder{}
	})

	It("should only mirror warning and worse", func() {
		Expect(h.Levels()).To(ConsistOf(
			logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel))
	})

	It("should drop entries while no sink is attached", func() {
		Expect(h.Fire(entry(logrus.WarnLevel, "fault tolerated", nil))).To(Succeed())
		Expect(sink.String()).To(BeEmpty())
	})

	It("should write timestamped lines while attached", func() {
		h.Attach(320, sink)
		Expect(h.Fire(entry(logrus.WarnLevel, "fault tolerated", nil))).To(Succeed())
		Expect(sink.String()).To(Equal("14:05:09 WARNING: fault tolerated\n"))
	})

	It("should append sorted fields and skip the prefix", func() {
		h.Attach(320, sink)
		Expect(h.Fire(entry(logrus.ErrorLevel, "fault", logrus.Fields{
			"prefix":  "instrument",
			"channel": 3,
			"board":   1,
		}))).To(Succeed())
		Expect(sink.String()).To(Equal("14:05:09 ERROR: fault board=\"1\" channel=\"3\"\n"))
	})

	It("should flatten line breaks", func() {
		h.Attach(320, sink)
		Expect(h.Fire(entry(logrus.WarnLevel, "first\nsecond", nil))).To(Succeed())
		Expect(sink.String()).To(ContainSubstring("first second"))
	})

	It("should stop writing after detach", func() {
		h.Attach(320, sink)
		h.Detach()
		Expect(h.Fire(entry(logrus.WarnLevel, "late", nil))).To(Succeed())
		Expect(sink.String()).To(BeEmpty())
	})
})

func TestRunhook(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Run Log Hook Test Suite")
}
