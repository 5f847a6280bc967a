package fault

import (
	"errors"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("fault policy", func() {
	var p *Policy

	BeforeEach(func() {
		p = NewPolicy(false)
	})

	Describe("Attempt", func() {
		When("the operation succeeds", func() {
			It("should not touch the ledger", func() {
				ok, err := p.Attempt("RTC set", CRITICAL, func() error { return nil })
				Expect(ok).To(BeTrue())
				Expect(err).NotTo(HaveOccurred())
				Expect(p.Ledger().Count()).To(Equal(0))
			})
		})

		When("a tolerated operation fails", func() {
			It("should record one event and continue", func() {
				ok, err := p.Attempt("DAC echo", TOLERATED, func() error {
					return errors.New("readback mismatch")
				})
				Expect(ok).To(BeFalse())
				Expect(err).NotTo(HaveOccurred())

				Expect(p.Ledger().Count()).To(Equal(1))
				ev := p.Ledger().Events()[0]
				Expect(ev.Phase).To(Equal("DAC echo"))
				Expect(ev.Seq).To(Equal(1))
				Expect(ev.Class).To(Equal(TOLERATED))
				Expect(ev.Message).To(ContainSubstring("readback mismatch"))
			})
		})

		When("a critical operation fails", func() {
			It("should return a CriticalError carrying the event", func() {
				ok, err := p.Attempt("RTC set", CRITICAL, func() error {
					return errors.New("no response")
				})
				Expect(ok).To(BeFalse())

				var critical *CriticalError
				Expect(errors.As(err, &critical)).To(BeTrue())
				Expect(critical.Event.Phase).To(Equal("RTC set"))
				Expect(critical.Event.Class).To(Equal(CRITICAL))
				Expect(p.Ledger().Count()).To(Equal(1))
			})
		})

		When("abort-on-any-fault is set", func() {
			It("should escalate a tolerated fault", func() {
				p = NewPolicy(true)
				_, err := p.Attempt("DAC echo", TOLERATED, func() error {
					return errors.New("readback mismatch")
				})

				var critical *CriticalError
				Expect(errors.As(err, &critical)).To(BeTrue())
				Expect(critical.Event.Class).To(Equal(TOLERATED))
			})
		})

		It("should number events sequentially across steps", func() {
			for i := 0; i < 3; i++ {
				_, err := p.Attempt(fmt.Sprintf("step %d", i), TOLERATED, func() error {
					return errors.New("fail")
				})
				Expect(err).NotTo(HaveOccurred())
			}
			events := p.Ledger().Events()
			Expect(events).To(HaveLen(3))
			for i, ev := range events {
				Expect(ev.Seq).To(Equal(i + 1))
			}
		})
	})

	Describe("AttemptEach", func() {
		It("should attempt every item despite a failing one", func() {
			var attempted []int
			ok, err := p.AttemptEach("singles readback", "channel", TOLERATED,
				[]int{1, 2, 3, 4, 5}, func(id int) error {
					attempted = append(attempted, id)
					if id == 3 {
						return errors.New("no response")
					}
					return nil
				})
			Expect(ok).To(BeFalse())
			Expect(err).NotTo(HaveOccurred())
			Expect(attempted).To(Equal([]int{1, 2, 3, 4, 5}))

			Expect(p.Ledger().Count()).To(Equal(1))
			Expect(p.Ledger().Events()[0].Phase).To(Equal("singles readback [channel 3]"))
		})

		It("should report ok when every item succeeds", func() {
			ok, err := p.AttemptEach("firmware readback", "board", TOLERATED,
				[]int{0, 1}, func(int) error { return nil })
			Expect(ok).To(BeTrue())
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Ledger().Count()).To(Equal(0))
		})

		It("should stop at the first item when the class is critical", func() {
			var attempted []int
			_, err := p.AttemptEach("reset", "board", CRITICAL,
				[]int{0, 1, 2}, func(id int) error {
					attempted = append(attempted, id)
					return errors.New("no response")
				})
			var critical *CriticalError
			Expect(errors.As(err, &critical)).To(BeTrue())
			Expect(attempted).To(Equal([]int{0}))
		})
	})

	Describe("Classification", func() {
		It("should round-trip through its string form", func() {
			for _, c := range []Classification{TOLERATED, CRITICAL} {
				Expect(ClassificationFromString(c.String())).To(Equal(c))
			}
		})
	})
})

func TestFaultPolicy(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Fault Policy Test Suite")
}
