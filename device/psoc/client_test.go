package psoc

import (
	"bytes"
	"io"

	"github.com/aesop-lite/control/device"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// pipePort records everything written and serves queued response bytes,
// standing in for the serial port.
type pipePort struct {
	wrote     bytes.Buffer
	responses bytes.Buffer
}

func (p *pipePort) Write(b []byte) (int, error) { return p.wrote.Write(b) }
func (p *pipePort) Read(b []byte) (int, error) {
	if p.responses.Len() == 0 {
		return 0, io.EOF
	}
	return p.responses.Read(b)
}
func (p *pipePort) Close() error { return nil }

var _ = Describe("psoc client", func() {
	var (
		port *pipePort
		c    *Client
	)

	BeforeEach(func() {
		port = &pipePort{}
		c = NewClient(Config{Path: "loopback", Baud: 115200, Address: 8})
		c.port = port
	})

	It("should frame a readback request and decode its response", func() {
		port.responses.Write(EncodePacket(cmdGetThresholdDAC, []byte{0x00, 0x31}))

		counts, err := c.PMTThreshold(2)
		Expect(err).NotTo(HaveOccurred())
		Expect(counts).To(Equal(49))
		Expect(port.wrote.Bytes()).To(Equal(EncodeCommand(8, cmdGetThresholdDAC, []byte{2})))
	})

	It("should wrap a dead line as a communication fault", func() {
		_, err := c.FirmwareVersion()
		Expect(device.IsCommError(err)).To(BeTrue())
	})

	It("should reject a response echoing the wrong command", func() {
		port.responses.Write(EncodePacket(cmdGetTOFDAC, []byte{0x00, 0x31}))

		_, err := c.PMTThreshold(2)
		Expect(device.IsMalformedError(err)).To(BeTrue())
	})

	It("should reject a response of the wrong length", func() {
		port.responses.Write(EncodePacket(cmdGetThresholdDAC, []byte{0x31}))

		_, err := c.PMTThreshold(2)
		Expect(device.IsMalformedError(err)).To(BeTrue())
	})

	It("should reject a DAC readback outside the 12-bit range", func() {
		port.responses.Write(EncodePacket(cmdGetThresholdDAC, []byte{0x10, 0x00}))

		_, err := c.PMTThreshold(2)
		Expect(device.IsMalformedError(err)).To(BeTrue())
	})

	It("should refuse to write an out-of-range trigger window", func() {
		err := c.SetTriggerWindow(300)
		Expect(device.IsMalformedError(err)).To(BeTrue())
		Expect(port.wrote.Len()).To(BeZero())
	})

	It("should forward tracker commands behind the passthrough opcode", func() {
		port.responses.Write(EncodePacket(cmdTracker, []byte{0x01}))

		version, err := c.FirmwareVersionOf(3)
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal("1"))
		Expect(port.wrote.Bytes()).To(Equal(
			EncodeCommand(8, cmdTracker, []byte{3, tkrCmdCodeVersion, 0})))
	})

	It("should validate the error list against its count byte", func() {
		port.responses.Write(EncodePacket(cmdReadErrors, []byte{2, 0x05, 0x01, 0x02}))

		_, err := c.ReadErrors()
		Expect(device.IsMalformedError(err)).To(BeTrue())
	})

	It("should decode a well-formed error list", func() {
		port.responses.Write(EncodePacket(cmdReadErrors,
			[]byte{2, 0x05, 0x01, 0x02, 0x07, 0x00, 0x00}))

		records, err := c.ReadErrors()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(Equal([]device.ErrorRecord{
			{Code: 0x05, Info1: 0x01, Info2: 0x02},
			{Code: 0x07, Info1: 0x00, Info2: 0x00},
		}))
	})

	It("should decode a run summary after draining event packets", func() {
		// Two event packets, then the end-of-run summary.
		port.responses.Write(EncodePacket(cmdStartRun, nil))
		port.responses.Write(EncodePacket(cmdStartRun, nil))
		summary := make([]byte, 28)
		// ADC mean 0: 200.4 counts, stored in tenths.
		summary[0], summary[1] = 0x07, 0xD4
		// TOF mean: 12.3 ns in tenths.
		summary[24], summary[25] = 0x00, 0x7B
		port.responses.Write(EncodePacket(cmdEndRun, summary))

		got, err := c.Acquire(320, 2, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ADCMean[0]).To(BeNumerically("~", 200.4, 1e-9))
		Expect(got.TOFMean).To(BeNumerically("~", 12.3, 1e-9))
	})
})
