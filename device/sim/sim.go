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

// Package sim provides a deterministic in-memory instrument, DO NOT USE
// IN FLIGHT. Registers retain written values and echo reads return them;
// the acquisition primitive synthesizes stable statistics from the run
// number. A scriptable fault hook injects failures for tests and demos.
package sim

import (
	"fmt"
	"time"

	"github.com/aesop-lite/control/device"
)

// Gateway implements device.Gateway against nothing at all.
//
// Fault, when non-nil, is consulted before every operation with the
// operation name and its integer arguments; returning a non-nil error
// makes that operation fail. A nil hook means everything succeeds.
type Gateway struct {
	Fault func(op string, args ...int) error

	trace []string

	connected      bool
	clock          time.Time
	batteryVoltage float64

	pmtDAC       [6]int // channels 1..5
	tofDAC       [3]int // channels 1..2
	triggerMasks [3]byte
	window       int
	prescale     map[string]int
	enabled      bool

	layerCount    int
	triggerSource int
	asicPowered   bool
	asicConfig    [device.NumBoards]device.ASICConfig
	thresholdDAC  [device.NumBoards]int
	dataMask      [device.NumBoards]uint64
	triggerMask   [device.NumBoards]uint64
}

func New() *Gateway {
	return &Gateway{
		batteryVoltage: 2.91,
		prescale:       make(map[string]int),
	}
}

// Ops returns the ordered trace of every operation attempted so far,
// formatted as "name(arg, arg)". Tests assert sequencing order on it.
func (g *Gateway) Ops() []string {
	out := make([]string, len(g.trace))
	copy(out, g.trace)
	return out
}

// OpCount returns how many operations matching name were attempted.
func (g *Gateway) OpCount(name string) int {
	n := 0
	for _, op := range g.trace {
		if op == name || len(op) > len(name) && op[:len(name)+1] == name+"(" {
			n++
		}
	}
	return n
}

func (g *Gateway) op(name string, args ...int) error {
	formatted := name
	if len(args) > 0 {
		formatted += "("
		for i, a := range args {
			if i > 0 {
				formatted += ", "
			}
			formatted += fmt.Sprintf("%d", a)
		}
		formatted += ")"
	}
	g.trace = append(g.trace, formatted)
	if g.Fault != nil {
		return g.Fault(name, args...)
	}
	return nil
}

func (g *Gateway) Connect() error {
	if err := g.op("Connect"); err != nil {
		return err
	}
	g.connected = true
	return nil
}

func (g *Gateway) Close() error {
	if err := g.op("Close"); err != nil {
		return err
	}
	g.connected = false
	return nil
}

func (g *Gateway) SetClock(t time.Time) error {
	if err := g.op("SetClock"); err != nil {
		return err
	}
	g.clock = t
	return nil
}

func (g *Gateway) Clock() (time.Time, error) {
	if err := g.op("Clock"); err != nil {
		return time.Time{}, err
	}
	return g.clock, nil
}

func (g *Gateway) BatteryVoltage() (float64, error) {
	if err := g.op("BatteryVoltage"); err != nil {
		return 0, err
	}
	return g.batteryVoltage, nil
}

func (g *Gateway) FirmwareVersion() (string, error) {
	if err := g.op("FirmwareVersion"); err != nil {
		return "", err
	}
	return "sim-1.0", nil
}

func (g *Gateway) SetPMTThreshold(channel, counts int) error {
	if err := g.op("SetPMTThreshold", channel, counts); err != nil {
		return err
	}
	g.pmtDAC[channel] = counts
	return nil
}

func (g *Gateway) PMTThreshold(channel int) (int, error) {
	if err := g.op("PMTThreshold", channel); err != nil {
		return 0, err
	}
	return g.pmtDAC[channel], nil
}

func (g *Gateway) SetTOFThreshold(channel, counts int) error {
	if err := g.op("SetTOFThreshold", channel, counts); err != nil {
		return err
	}
	g.tofDAC[channel] = counts
	return nil
}

func (g *Gateway) TOFThreshold(channel int) (int, error) {
	if err := g.op("TOFThreshold", channel); err != nil {
		return 0, err
	}
	return g.tofDAC[channel], nil
}

func (g *Gateway) SetTriggerMask(trigger int, mask byte) error {
	if err := g.op("SetTriggerMask", trigger, int(mask)); err != nil {
		return err
	}
	g.triggerMasks[trigger] = mask
	return nil
}

func (g *Gateway) TriggerMask(trigger int) (byte, error) {
	if err := g.op("TriggerMask", trigger); err != nil {
		return 0, err
	}
	return g.triggerMasks[trigger], nil
}

func (g *Gateway) SetTriggerWindow(cycles int) error {
	if err := g.op("SetTriggerWindow", cycles); err != nil {
		return err
	}
	g.window = cycles
	return nil
}

func (g *Gateway) SetTriggerPrescale(target string, factor int) error {
	if err := g.op("SetTriggerPrescale", factor); err != nil {
		return err
	}
	g.prescale[target] = factor
	return nil
}

func (g *Gateway) TriggerEnabled() (bool, error) {
	if err := g.op("TriggerEnabled"); err != nil {
		return false, err
	}
	return g.enabled, nil
}

func (g *Gateway) LiveCount(channel int) (int, error) {
	if err := g.op("LiveCount", channel); err != nil {
		return 0, err
	}
	return 17 * channel, nil
}

func (g *Gateway) EndOfRunCount(channel int) (int, error) {
	if err := g.op("EndOfRunCount", channel); err != nil {
		return 0, err
	}
	return 1000 + 111*channel, nil
}

func (g *Gateway) LogicReset() error {
	return g.op("LogicReset")
}

func (g *Gateway) ReadErrors() ([]device.ErrorRecord, error) {
	if err := g.op("ReadErrors"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (g *Gateway) Telemetry() (device.Telemetry, error) {
	if err := g.op("Telemetry"); err != nil {
		return device.Telemetry{}, err
	}
	return device.Telemetry{
		BatteryVoltage: g.batteryVoltage,
		TemperatureC:   23.5,
		Voltages:       map[string]float64{"fpga12": 1.2, "digi25": 2.5, "analog21": 2.1, "analog33": 3.3},
		Currents:       map[string]float64{"fpga12": 0.08, "digi25": 0.05, "analog21": 0.04, "analog33": 0.11},
	}, nil
}

func (g *Gateway) ResetFPGA(board int) error {
	return g.op("ResetFPGA", board)
}

func (g *Gateway) ResetConfig(board int) error {
	return g.op("ResetConfig", board)
}

func (g *Gateway) ResetLogic() error {
	return g.op("ResetLogic")
}

func (g *Gateway) ResetStateMachines() error {
	return g.op("ResetStateMachines")
}

func (g *Gateway) SetLayerCount(n int) error {
	if err := g.op("SetLayerCount", n); err != nil {
		return err
	}
	g.layerCount = n
	return nil
}

func (g *Gateway) SetTriggerSource(source int) error {
	if err := g.op("SetTriggerSource", source); err != nil {
		return err
	}
	g.triggerSource = source
	return nil
}

func (g *Gateway) TriggerSource(board int) (int, error) {
	if err := g.op("TriggerSource", board); err != nil {
		return 0, err
	}
	return g.triggerSource, nil
}

func (g *Gateway) SetDualTrigger(a, b int) error {
	return g.op("SetDualTrigger", a, b)
}

func (g *Gateway) TriggerDisable() error {
	if err := g.op("TriggerDisable"); err != nil {
		return err
	}
	g.enabled = false
	return nil
}

func (g *Gateway) ASICPowerOn() error {
	if err := g.op("ASICPowerOn"); err != nil {
		return err
	}
	g.asicPowered = true
	return nil
}

func (g *Gateway) ASICPowerOff() error {
	if err := g.op("ASICPowerOff"); err != nil {
		return err
	}
	g.asicPowered = false
	return nil
}

func (g *Gateway) ASICHardReset(mask byte) error {
	return g.op("ASICHardReset", int(mask))
}

func (g *Gateway) ASICSoftReset(mask byte) error {
	return g.op("ASICSoftReset", int(mask))
}

func (g *Gateway) CalibrateInputTiming(board int) error {
	return g.op("CalibrateInputTiming", board)
}

func (g *Gateway) LoadASICConfig(board, chip int, cfg device.ASICConfig) error {
	if err := g.op("LoadASICConfig", board, chip); err != nil {
		return err
	}
	// A broadcast load through board 0 configures every board slot.
	if chip == device.AllChips {
		for i := range g.asicConfig {
			g.asicConfig[i] = cfg
		}
	} else {
		g.asicConfig[board] = cfg
	}
	return nil
}

func (g *Gateway) ASICConfigOf(board, chip int) (device.ASICConfig, error) {
	if err := g.op("ASICConfigOf", board, chip); err != nil {
		return device.ASICConfig{}, err
	}
	return g.asicConfig[board], nil
}

func (g *Gateway) SetThresholdDAC(board, chip, counts int, rng device.DACRange) error {
	if err := g.op("SetThresholdDAC", board, chip, counts); err != nil {
		return err
	}
	g.thresholdDAC[board] = counts
	return nil
}

func (g *Gateway) ThresholdDAC(board, chip int) (int, error) {
	if err := g.op("ThresholdDAC", board, chip); err != nil {
		return 0, err
	}
	return g.thresholdDAC[board], nil
}

func (g *Gateway) SetDataMask(board, chip int, mode device.MaskMode, channels []int) error {
	if err := g.op("SetDataMask", board, chip); err != nil {
		return err
	}
	if mode == device.Unmask && len(channels) == 0 {
		g.dataMask[board] = 0
	}
	return nil
}

func (g *Gateway) DataMask(board, chip int) (uint64, error) {
	if err := g.op("DataMask", board, chip); err != nil {
		return 0, err
	}
	return g.dataMask[board], nil
}

func (g *Gateway) SetChannelTriggerMask(board, chip int, mode device.MaskMode, channels []int) error {
	if err := g.op("SetChannelTriggerMask", board, chip); err != nil {
		return err
	}
	if mode == device.Unmask && len(channels) == 0 {
		g.triggerMask[board] = 0
	}
	return nil
}

func (g *Gateway) ChannelTriggerMask(board, chip int) (uint64, error) {
	if err := g.op("ChannelTriggerMask", board, chip); err != nil {
		return 0, err
	}
	return g.triggerMask[board], nil
}

func (g *Gateway) FPGAConfig(board int) (string, error) {
	if err := g.op("FPGAConfig", board); err != nil {
		return "", err
	}
	return fmt.Sprintf("0x%02x", 0x40|g.layerCount), nil
}

func (g *Gateway) FirmwareVersionOf(board int) (string, error) {
	if err := g.op("FirmwareVersionOf", board); err != nil {
		return "", err
	}
	return "tkr-sim-1.0", nil
}

func (g *Gateway) TemperatureOf(board int) (float64, error) {
	if err := g.op("TemperatureOf", board); err != nil {
		return 0, err
	}
	return 21.0 + float64(board)/2, nil
}

func (g *Gateway) LayerTriggerCount(layer int) (int, error) {
	if err := g.op("LayerTriggerCount", layer); err != nil {
		return 0, err
	}
	return 42 + layer, nil
}

func (g *Gateway) CalibrationStrobe(board, delay, tag int) error {
	return g.op("CalibrationStrobe", board, delay, tag)
}

func (g *Gateway) ReadCalibrationEvent(tag int) (device.CalibrationEvent, error) {
	if err := g.op("ReadCalibrationEvent", tag); err != nil {
		return device.CalibrationEvent{}, err
	}
	return device.CalibrationEvent{Tag: tag, HitCount: 4}, nil
}

func (g *Gateway) Acquire(runNumber, events int, readTracker bool) (device.AcquisitionSummary, error) {
	tracker := 0
	if readTracker {
		tracker = 1
	}
	if err := g.op("Acquire", runNumber, events, tracker); err != nil {
		return device.AcquisitionSummary{}, err
	}

	// Stable values derived from the run number so that a given run
	// always produces the same summary.
	var sum device.AcquisitionSummary
	for i := range sum.ADCMean {
		sum.ADCMean[i] = float64(200+25*i) + float64(runNumber%10)/10
		sum.ADCSigma[i] = 10.5 + float64(i)
	}
	sum.TOFMean = 12.25 + float64(runNumber%7)/100
	sum.TOFSigma = 0.75
	g.enabled = false
	return sum, nil
}

var _ device.Gateway = (*Gateway)(nil)
