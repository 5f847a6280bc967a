package bookkeeping

import (
	"testing"

	"github.com/aesop-lite/control/core/runlog"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("run catalog", func() {
	When("no DSN is configured", func() {
		It("should open as a disabled catalog", func() {
			c, err := Open("")
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Enabled()).To(BeFalse())
		})

		It("should no-op every method", func() {
			c, err := Open("")
			Expect(err).NotTo(HaveOccurred())
			Expect(c.RecordRun(&runlog.Record{RunNumber: 320}, "session", 0)).To(Succeed())
			Expect(c.Close()).To(Succeed())
		})
	})

	When("the handle is nil", func() {
		It("should still be safe to use", func() {
			var c *Catalog
			Expect(c.Enabled()).To(BeFalse())
			Expect(c.RecordRun(&runlog.Record{}, "session", 0)).To(Succeed())
			Expect(c.Close()).To(Succeed())
		})
	})
})

func TestBookkeeping(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Bookkeeping Catalog Test Suite")
}
