package psoc

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("command records", func() {
	It("should encode a data-less command as one triplicated record", func() {
		raw := EncodeCommand(8, cmdEndRun, nil)
		Expect(raw).To(HaveLen(3 * recordLen))
		Expect(string(raw)).To(Equal(strings.Repeat("S4420000W", 3)))
	})

	It("should follow the command record with one record per data byte", func() {
		raw := EncodeCommand(8, cmdSetTriggerMask, []byte{0x01, 0x06})
		Expect(raw).To(HaveLen(3 * 3 * recordLen))
		Expect(string(raw)).To(Equal(
			strings.Repeat("S3622000W", 3) +
				strings.Repeat("S0121000W", 3) +
				strings.Repeat("S0622000W", 3)))
	})

	It("should pack the byte count split around the address", func() {
		// count bits 3:2 land in addressByte bits 7:6, count bits 1:0 in 1:0
		Expect(packAddressByte(8, 0)).To(Equal(byte(0x20)))
		Expect(packAddressByte(8, 3)).To(Equal(byte(0x23)))
		Expect(packAddressByte(8, 4)).To(Equal(byte(0x60)))
		Expect(packAddressByte(15, 5)).To(Equal(byte(0x7D)))
	})
})

var _ = Describe("response packets", func() {
	It("should round-trip through encode and read", func() {
		raw := EncodePacket(cmdGetRTC, []byte{30, 15, 12, 1, 3, 6, 24})
		pkt, err := ReadPacket(bytes.NewReader(raw))
		Expect(err).NotTo(HaveOccurred())
		Expect(pkt.Cmd).To(Equal(byte(cmdGetRTC)))
		Expect(pkt.Payload).To(Equal([]byte{30, 15, 12, 1, 3, 6, 24}))
	})

	It("should pad the body to a 3-byte boundary", func() {
		raw := EncodePacket(cmdTriggerStatus, []byte{1})
		Expect(len(raw) % 3).To(BeZero())
	})

	It("should skip line noise before the header", func() {
		var buf bytes.Buffer
		buf.Write([]byte{0x00, 0xDC, 0xFF, 0x17})
		buf.Write(EncodePacket(cmdGetTriggerMask, []byte{0x06}))

		pkt, err := ReadPacket(&buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(pkt.Cmd).To(Equal(byte(cmdGetTriggerMask)))
		Expect(pkt.Payload).To(Equal([]byte{0x06}))
	})

	It("should reject a corrupted trailer", func() {
		raw := EncodePacket(cmdTriggerStatus, []byte{1})
		raw[len(raw)-1] = 0x00

		_, err := ReadPacket(bytes.NewReader(raw))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("trailer"))
	})

	It("should fail cleanly on a truncated stream", func() {
		raw := EncodePacket(cmdGetRTC, []byte{30, 15, 12, 1, 3, 6, 24})
		_, err := ReadPacket(bytes.NewReader(raw[:5]))
		Expect(err).To(HaveOccurred())
	})

	It("should read consecutive packets from one stream", func() {
		var buf bytes.Buffer
		buf.Write(EncodePacket(cmdStartRun, nil))
		buf.Write(EncodePacket(cmdEndRun, make([]byte, 28)))

		first, err := ReadPacket(&buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Cmd).To(Equal(byte(cmdStartRun)))

		second, err := ReadPacket(&buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Cmd).To(Equal(byte(cmdEndRun)))
		Expect(second.Payload).To(HaveLen(28))
	})
})

func TestPsoc(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "PSOC Gateway Test Suite")
}
