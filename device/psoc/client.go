/*
 * === This file is part of AESOP-Lite Control ===
 *
 * Copyright 2019-2024 the AESOP-Lite collaboration.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package psoc implements the device gateway over the Event PSOC serial
// protocol: triplicated ASCII command records out, 3-byte-aligned binary
// packets back. One request/response at a time on a single shared port.
package psoc

import (
	"fmt"
	"io"
	"time"

	"github.com/aesop-lite/control/common/logger"
	"github.com/aesop-lite/control/device"
	"github.com/sirupsen/logrus"
	"github.com/tarm/serial"
)

var log = logger.New(logrus.StandardLogger(), "psoc")

type Config struct {
	// Path is the serial device, e.g. /dev/ttyS0 or COM7.
	Path string
	Baud int
	// Address is the bus address of the Event PSOC (other PSOCs share
	// the line).
	Address int
	// ReadTimeout bounds a single response round trip; expiry surfaces
	// as a communication fault.
	ReadTimeout time.Duration
}

type Client struct {
	cfg  Config
	port io.ReadWriteCloser
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) Connect() error {
	port, err := serial.OpenPort(&serial.Config{
		Name:        c.cfg.Path,
		Baud:        c.cfg.Baud,
		ReadTimeout: c.cfg.ReadTimeout,
	})
	if err != nil {
		return device.NewCommError("open serial port", err)
	}
	c.port = port
	log.WithField("port", c.cfg.Path).WithField("baud", c.cfg.Baud).Debug("serial port open")
	return nil
}

func (c *Client) Close() error {
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}

// send writes one command without waiting for a response. Most set
// operations are fire-and-forget on this bus, like the firmware expects.
func (c *Client) send(op string, cmd byte, data ...byte) error {
	if c.port == nil {
		return device.NewCommError(op, fmt.Errorf("serial port not open"))
	}
	if _, err := c.port.Write(EncodeCommand(c.cfg.Address, cmd, data)); err != nil {
		return device.NewCommError(op, err)
	}
	return nil
}

// request writes one command and reads back the matching response
// packet. want is the expected payload length, -1 for variable.
func (c *Client) request(op string, cmd byte, want int, data ...byte) ([]byte, error) {
	if err := c.send(op, cmd, data...); err != nil {
		return nil, err
	}
	pkt, err := ReadPacket(c.port)
	if err != nil {
		return nil, device.NewCommError(op, err)
	}
	if pkt.Cmd != cmd {
		return nil, device.NewMalformedError(op, device.MalformedIndex,
			fmt.Sprintf("response echoes command 0x%02x, want 0x%02x", pkt.Cmd, cmd))
	}
	if want >= 0 && len(pkt.Payload) != want {
		return nil, device.NewMalformedError(op, device.MalformedIndex,
			fmt.Sprintf("payload holds %d bytes, want %d", len(pkt.Payload), want))
	}
	return pkt.Payload, nil
}

// trackerSend forwards a tracker command to a board behind the PSOC.
func (c *Client) trackerSend(op string, board int, tkrCmd byte, data ...byte) error {
	payload := append([]byte{byte(board), tkrCmd, byte(len(data))}, data...)
	return c.send(op, cmdTracker, payload...)
}

// trackerRequest forwards a tracker command and reads the board's reply.
func (c *Client) trackerRequest(op string, board int, tkrCmd byte, want int, data ...byte) ([]byte, error) {
	payload := append([]byte{byte(board), tkrCmd, byte(len(data))}, data...)
	return c.request(op, cmdTracker, want, payload...)
}

func u16(b []byte) int {
	return int(b[0])<<8 | int(b[1])
}

func u24(b []byte) int {
	return int(b[0])<<16 | int(b[1])<<8 | int(b[2])
}

// --- Event controller ---

func (c *Client) SetClock(t time.Time) error {
	return c.send("RTC set", cmdSetRTC,
		byte(t.Second()), byte(t.Minute()), byte(t.Hour()),
		byte(t.Weekday()), byte(t.Day()), byte(t.Month()), byte(t.Year()%100))
}

func (c *Client) Clock() (time.Time, error) {
	const op = "RTC readback"
	b, err := c.request(op, cmdGetRTC, 7)
	if err != nil {
		return time.Time{}, err
	}
	if b[5] < 1 || b[5] > 12 || b[4] < 1 || b[4] > 31 || b[2] > 23 || b[1] > 59 || b[0] > 59 {
		return time.Time{}, device.NewMalformedError(op, device.MalformedValue,
			fmt.Sprintf("implausible date fields % x", b))
	}
	return time.Date(2000+int(b[6]), time.Month(b[5]), int(b[4]),
		int(b[2]), int(b[1]), int(b[0]), 0, time.Local), nil
}

func (c *Client) BatteryVoltage() (float64, error) {
	b, err := c.request("battery voltage readback", cmdBusVoltage, 2, 0)
	if err != nil {
		return 0, err
	}
	return float64(u16(b)) / 1000, nil // millivolts on the wire
}

func (c *Client) FirmwareVersion() (string, error) {
	b, err := c.request("firmware version readback", cmdFirmwareVersion, 2)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d", b[0], b[1]), nil
}

func (c *Client) SetPMTThreshold(channel, counts int) error {
	op := fmt.Sprintf("PMT DAC set channel %d", channel)
	if counts < 0 || counts > 0xFFF {
		return device.NewMalformedError(op, device.MalformedValue,
			fmt.Sprintf("%d outside the 12-bit DAC range", counts))
	}
	return c.send(op, cmdSetThresholdDAC, byte(channel), byte(counts>>8), byte(counts))
}

func (c *Client) PMTThreshold(channel int) (int, error) {
	op := fmt.Sprintf("PMT DAC readback channel %d", channel)
	b, err := c.request(op, cmdGetThresholdDAC, 2, byte(channel))
	if err != nil {
		return 0, err
	}
	counts := u16(b)
	if counts > 0xFFF {
		return 0, device.NewMalformedError(op, device.MalformedValue,
			fmt.Sprintf("%d outside the 12-bit DAC range", counts))
	}
	return counts, nil
}

func (c *Client) SetTOFThreshold(channel, counts int) error {
	op := fmt.Sprintf("TOF DAC set channel %d", channel)
	if counts < 0 || counts > 0xFFF {
		return device.NewMalformedError(op, device.MalformedValue,
			fmt.Sprintf("%d outside the 12-bit DAC range", counts))
	}
	return c.send(op, cmdSetTOFDAC, byte(channel), byte(counts>>8), byte(counts))
}

func (c *Client) TOFThreshold(channel int) (int, error) {
	op := fmt.Sprintf("TOF DAC readback channel %d", channel)
	b, err := c.request(op, cmdGetTOFDAC, 2, byte(channel))
	if err != nil {
		return 0, err
	}
	counts := u16(b)
	if counts > 0xFFF {
		return 0, device.NewMalformedError(op, device.MalformedValue,
			fmt.Sprintf("%d outside the 12-bit DAC range", counts))
	}
	return counts, nil
}

func (c *Client) SetTriggerMask(trigger int, mask byte) error {
	return c.send(fmt.Sprintf("trigger mask %d set", trigger),
		cmdSetTriggerMask, byte(trigger), mask)
}

func (c *Client) TriggerMask(trigger int) (byte, error) {
	b, err := c.request(fmt.Sprintf("trigger mask %d readback", trigger),
		cmdGetTriggerMask, 1, byte(trigger))
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Client) SetTriggerWindow(cycles int) error {
	const op = "trigger window set"
	if cycles < 0 || cycles > 0xFF {
		return device.NewMalformedError(op, device.MalformedValue,
			fmt.Sprintf("%d outside the 8-bit window range", cycles))
	}
	return c.send(op, cmdTriggerWindow, byte(cycles))
}

func (c *Client) SetTriggerPrescale(target string, factor int) error {
	op := fmt.Sprintf("%s trigger prescale set", target)
	code, ok := prescaleTargets[target]
	if !ok {
		return device.NewMalformedError(op, device.MalformedValue,
			fmt.Sprintf("unknown prescale target %q", target))
	}
	if factor < 0 || factor > 0xFF {
		return device.NewMalformedError(op, device.MalformedValue,
			fmt.Sprintf("%d outside the 8-bit prescale range", factor))
	}
	return c.send(op, cmdTriggerPrescale, code, byte(factor))
}

func (c *Client) TriggerEnabled() (bool, error) {
	b, err := c.request("trigger enable status", cmdTriggerStatus, 1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (c *Client) LiveCount(channel int) (int, error) {
	b, err := c.request(fmt.Sprintf("channel %d count", channel),
		cmdChannelCount, 3, byte(channel))
	if err != nil {
		return 0, err
	}
	return u24(b), nil
}

func (c *Client) EndOfRunCount(channel int) (int, error) {
	b, err := c.request(fmt.Sprintf("channel %d end-of-run count", channel),
		cmdEndOfRunCount, 3, byte(channel))
	if err != nil {
		return 0, err
	}
	return u24(b), nil
}

func (c *Client) LogicReset() error {
	// The firmware reads back 24 bits of the clock count before the
	// reset pulse; the value is not used here.
	_, err := c.request("logic reset", cmdLogicReset, 3)
	return err
}

func (c *Client) ReadErrors() ([]device.ErrorRecord, error) {
	const op = "error register readback"
	b, err := c.request(op, cmdReadErrors, -1)
	if err != nil {
		return nil, err
	}
	if len(b) < 1 || len(b) != 1+3*int(b[0]) {
		return nil, device.NewMalformedError(op, device.MalformedIndex,
			fmt.Sprintf("error list of %d bytes does not match its count byte", len(b)))
	}
	records := make([]device.ErrorRecord, 0, b[0])
	for i := 0; i < int(b[0]); i++ {
		records = append(records, device.ErrorRecord{
			Code:  b[1+3*i],
			Info1: b[2+3*i],
			Info2: b[3+3*i],
		})
	}
	return records, nil
}

var busNames = map[string]byte{
	"fpga12":   1,
	"digi25":   2,
	"analog21": 3,
	"analog33": 4,
}

func (c *Client) Telemetry() (device.Telemetry, error) {
	t := device.Telemetry{
		Voltages: make(map[string]float64),
		Currents: make(map[string]float64),
	}
	battery, err := c.BatteryVoltage()
	if err != nil {
		return t, err
	}
	t.BatteryVoltage = battery

	b, err := c.request("board temperature readback", cmdBoardTemperature, 2)
	if err != nil {
		return t, err
	}
	t.TemperatureC = float64(u16(b)) / 10

	for name, code := range busNames {
		v, err := c.request(fmt.Sprintf("bus voltage readback %s", name), cmdBusVoltage, 2, code)
		if err != nil {
			return t, err
		}
		t.Voltages[name] = float64(u16(v)) / 1000
		i, err := c.request(fmt.Sprintf("shunt current readback %s", name), cmdShuntCurrent, 2, code)
		if err != nil {
			return t, err
		}
		t.Currents[name] = float64(u16(i)) / 1000
	}
	return t, nil
}

// --- Tracker ---

func (c *Client) ResetFPGA(board int) error {
	return c.trackerSend(fmt.Sprintf("tracker FPGA reset board %d", board),
		board, tkrCmdFPGAReset)
}

func (c *Client) ResetConfig(board int) error {
	return c.trackerSend(fmt.Sprintf("tracker config reset board %d", board),
		board, tkrCmdConfigReset)
}

func (c *Client) ResetLogic() error {
	return c.trackerSend("tracker logic reset", 0, tkrCmdLogicReset)
}

func (c *Client) ResetStateMachines() error {
	return c.send("tracker state machine reset", cmdTrackerReset)
}

func (c *Client) SetLayerCount(n int) error {
	return c.trackerSend("tracker layer count set", 0, tkrCmdSetLayerCount, byte(n))
}

func (c *Client) SetTriggerSource(source int) error {
	return c.trackerSend("tracker trigger source set", 0, tkrCmdTriggerSource, byte(source))
}

func (c *Client) TriggerSource(board int) (int, error) {
	b, err := c.trackerRequest(fmt.Sprintf("tracker trigger source readback board %d", board),
		board, tkrCmdGetTriggerSource, 1)
	if err != nil {
		return 0, err
	}
	return int(b[0]), nil
}

func (c *Client) SetDualTrigger(a, b int) error {
	return c.trackerSend("tracker dual trigger set", 0, tkrCmdDualTrigger, byte(a), byte(b))
}

func (c *Client) TriggerDisable() error {
	return c.trackerSend("tracker trigger disable", 0, tkrCmdTriggerDisable)
}

func (c *Client) ASICPowerOn() error {
	return c.trackerSend("ASIC power on", 0, tkrCmdPowerOn)
}

func (c *Client) ASICPowerOff() error {
	return c.trackerSend("ASIC power off", 0, tkrCmdPowerOff)
}

func (c *Client) ASICHardReset(mask byte) error {
	return c.trackerSend("ASIC hard reset", 0, tkrCmdHardReset, mask)
}

func (c *Client) ASICSoftReset(mask byte) error {
	return c.trackerSend("ASIC soft reset", 0, tkrCmdSoftReset, mask)
}

func (c *Client) CalibrateInputTiming(board int) error {
	// Slow: the FPGA walks its ASICs one by one; the single done byte
	// only arrives once the scan is finished.
	_, err := c.request(fmt.Sprintf("input timing calibration board %d", board),
		cmdCalibrateTiming, 1, byte(board))
	return err
}

func (c *Client) LoadASICConfig(board, chip int, cfg device.ASICConfig) error {
	return c.trackerSend(fmt.Sprintf("ASIC config load board %d", board),
		board, tkrCmdLoadConfig,
		byte(chip), byte(cfg.OneShot), byte(cfg.Gain), byte(cfg.Shaping),
		byte(cfg.BufSpeed), byte(cfg.TrigDelay), byte(cfg.TrigWindow),
		byte(cfg.IOCurrent), byte(cfg.MaxClusters))
}

func (c *Client) ASICConfigOf(board, chip int) (device.ASICConfig, error) {
	b, err := c.trackerRequest(fmt.Sprintf("ASIC config readback board %d chip %d", board, chip),
		board, tkrCmdGetConfig, 8, byte(chip))
	if err != nil {
		return device.ASICConfig{}, err
	}
	return device.ASICConfig{
		OneShot:     int(b[0]),
		Gain:        int(b[1]),
		Shaping:     int(b[2]),
		BufSpeed:    int(b[3]),
		TrigDelay:   int(b[4]),
		TrigWindow:  int(b[5]),
		IOCurrent:   int(b[6]),
		MaxClusters: int(b[7]),
	}, nil
}

func (c *Client) SetThresholdDAC(board, chip, counts int, rng device.DACRange) error {
	op := fmt.Sprintf("ASIC threshold DAC set board %d", board)
	if counts < 0 || counts > 0xFF {
		return device.NewMalformedError(op, device.MalformedValue,
			fmt.Sprintf("%d outside the 8-bit DAC range", counts))
	}
	return c.trackerSend(op, board, tkrCmdSetDAC, byte(chip), byte(counts), byte(rng))
}

func (c *Client) ThresholdDAC(board, chip int) (int, error) {
	b, err := c.trackerRequest(fmt.Sprintf("ASIC threshold DAC readback board %d chip %d", board, chip),
		board, tkrCmdGetDAC, 1, byte(chip))
	if err != nil {
		return 0, err
	}
	return int(b[0]), nil
}

// maskTypes for cmdLoadASICMask.
const (
	maskTypeData    = 1
	maskTypeTrigger = 2
)

func (c *Client) loadMask(op string, board, chip, maskType int, mode device.MaskMode, channels []int) error {
	data := []byte{byte(board), byte(maskType), byte(chip), byte(mode), byte(len(channels))}
	for _, ch := range channels {
		data = append(data, byte(ch))
	}
	return c.send(op, cmdLoadASICMask, data...)
}

func (c *Client) SetDataMask(board, chip int, mode device.MaskMode, channels []int) error {
	return c.loadMask(fmt.Sprintf("data mask set board %d", board),
		board, chip, maskTypeData, mode, channels)
}

func (c *Client) DataMask(board, chip int) (uint64, error) {
	b, err := c.trackerRequest(fmt.Sprintf("data mask readback board %d chip %d", board, chip),
		board, tkrCmdGetDataMask, 8, byte(chip))
	if err != nil {
		return 0, err
	}
	var mask uint64
	for _, v := range b {
		mask = mask<<8 | uint64(v)
	}
	return mask, nil
}

func (c *Client) SetChannelTriggerMask(board, chip int, mode device.MaskMode, channels []int) error {
	return c.loadMask(fmt.Sprintf("trigger mask set board %d", board),
		board, chip, maskTypeTrigger, mode, channels)
}

func (c *Client) ChannelTriggerMask(board, chip int) (uint64, error) {
	b, err := c.trackerRequest(fmt.Sprintf("trigger mask readback board %d chip %d", board, chip),
		board, tkrCmdGetTriggerMask, 8, byte(chip))
	if err != nil {
		return 0, err
	}
	var mask uint64
	for _, v := range b {
		mask = mask<<8 | uint64(v)
	}
	return mask, nil
}

func (c *Client) FPGAConfig(board int) (string, error) {
	b, err := c.trackerRequest(fmt.Sprintf("FPGA config readback board %d", board),
		board, tkrCmdFPGAConfig, 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("0x%02x", b[0]), nil
}

func (c *Client) FirmwareVersionOf(board int) (string, error) {
	b, err := c.trackerRequest(fmt.Sprintf("tracker firmware version board %d", board),
		board, tkrCmdCodeVersion, 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", b[0]), nil
}

func (c *Client) TemperatureOf(board int) (float64, error) {
	b, err := c.trackerRequest(fmt.Sprintf("tracker temperature board %d", board),
		board, tkrCmdTemperature, 2)
	if err != nil {
		return 0, err
	}
	return float64(u16(b)) / 10, nil
}

func (c *Client) LayerTriggerCount(layer int) (int, error) {
	b, err := c.trackerRequest(fmt.Sprintf("layer %d trigger count", layer),
		layer, tkrCmdLayerTrigCount, 2)
	if err != nil {
		return 0, err
	}
	return u16(b), nil
}

func (c *Client) CalibrationStrobe(board, delay, tag int) error {
	return c.send(fmt.Sprintf("calibration strobe board %d", board),
		cmdCalStrobe, byte(board), byte(delay), byte(tag), 1)
}

func (c *Client) ReadCalibrationEvent(tag int) (device.CalibrationEvent, error) {
	op := fmt.Sprintf("calibration event readback tag %d", tag)
	b, err := c.request(op, cmdReadCalEvent, -1, byte(tag), 1)
	if err != nil {
		return device.CalibrationEvent{}, err
	}
	if len(b) < 3 {
		return device.CalibrationEvent{}, device.NewMalformedError(op, device.MalformedIndex,
			fmt.Sprintf("calibration event of %d bytes is too short", len(b)))
	}
	if int(b[0]) != tag {
		return device.CalibrationEvent{}, device.NewMalformedError(op, device.MalformedValue,
			fmt.Sprintf("event carries tag %d, want %d", b[0], tag))
	}
	return device.CalibrationEvent{
		Tag:      int(b[0]),
		Board:    int(b[1]),
		HitCount: int(b[2]),
		Raw:      append([]byte(nil), b[3:]...),
	}, nil
}

// --- Acquisition ---

// Acquire starts a bounded run, drains the per-event packets, then ends
// the run and decodes the summary. Per-event payloads are not kept; the
// plotting path is downstream of the run files, not of this client.
func (c *Client) Acquire(runNumber, events int, readTracker bool) (device.AcquisitionSummary, error) {
	op := fmt.Sprintf("acquisition run %d", runNumber)
	var sum device.AcquisitionSummary

	flag := byte(0)
	if readTracker {
		flag = 1
	}
	if err := c.send(op, cmdStartRun, byte(runNumber>>8), byte(runNumber), flag); err != nil {
		return sum, err
	}

	for seen := 0; seen < events; {
		pkt, err := ReadPacket(c.port)
		if err != nil {
			return sum, device.NewCommError(op, err)
		}
		if pkt.Cmd == cmdStartRun {
			seen++
		}
	}

	if err := c.send(op, cmdEndRun); err != nil {
		return sum, err
	}
	var pkt Packet
	for {
		var err error
		pkt, err = ReadPacket(c.port)
		if err != nil {
			return sum, device.NewCommError(op, err)
		}
		if pkt.Cmd == cmdEndRun {
			break
		}
		// Late event packets still in flight after the end-run command.
	}

	// Summary: 6 ADC means, 6 ADC sigmas, TOF mean, TOF sigma, all
	// 16-bit values in tenths of a count / tenths of a ns.
	const summaryLen = 28
	if len(pkt.Payload) != summaryLen {
		return sum, device.NewMalformedError(op, device.MalformedIndex,
			fmt.Sprintf("run summary of %d bytes, want %d", len(pkt.Payload), summaryLen))
	}
	for i := 0; i < 6; i++ {
		sum.ADCMean[i] = float64(u16(pkt.Payload[2*i:])) / 10
		sum.ADCSigma[i] = float64(u16(pkt.Payload[12+2*i:])) / 10
	}
	sum.TOFMean = float64(u16(pkt.Payload[24:])) / 10
	sum.TOFSigma = float64(u16(pkt.Payload[26:])) / 10
	return sum, nil
}

var _ device.Gateway = (*Client)(nil)
