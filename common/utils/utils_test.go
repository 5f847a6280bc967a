package utils

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Utils", func() {
	Describe("IntSliceContains", func() {
		It("should find a present element", func() {
			Expect(IntSliceContains([]int{0, 3, 7}, 3)).To(BeTrue())
		})

		It("should not find an absent element", func() {
			Expect(IntSliceContains([]int{0, 3, 7}, 5)).To(BeFalse())
		})

		It("should not find anything in an empty slice", func() {
			Expect(IntSliceContains(nil, 0)).To(BeFalse())
		})
	})

	Describe("TruncateString", func() {
		It("should leave short strings alone", func() {
			Expect(TruncateString("tracker", 20)).To(Equal("tracker"))
		})

		It("should truncate long strings to the requested rune count", func() {
			Expect(TruncateString("calibration strobe", 11)).To(Equal("calibration"))
		})

		It("should return an empty string for non-positive lengths", func() {
			Expect(TruncateString("tracker", 0)).To(Equal(""))
			Expect(TruncateString("tracker", -1)).To(Equal(""))
		})
	})
})

func TestUtils(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Component Utils Test Suite")
}
