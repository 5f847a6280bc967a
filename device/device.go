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

// Package device defines the command gateway consumed by the sequencing
// engine: synchronous request/response operations addressed to the Event
// PSOC and to the tracker boards behind it. Implementations live in
// device/psoc (serial) and device/sim (simulated instrument).
package device

import (
	"time"
)

// Every gateway call is a blocking round trip over a single shared
// connection; no two calls are ever in flight concurrently. Any operation
// may fail with a CommError, readbacks additionally with a MalformedError.
type Gateway interface {
	Connect() error
	Close() error

	EventController
	Tracker
	Acquirer
}

// EventController groups the operations addressed to the Event PSOC itself:
// clock, DAC thresholds, trigger configuration and channel counters.
type EventController interface {
	SetClock(t time.Time) error
	Clock() (time.Time, error)
	BatteryVoltage() (float64, error)
	FirmwareVersion() (string, error)

	SetPMTThreshold(channel int, counts int) error
	PMTThreshold(channel int) (int, error)
	SetTOFThreshold(channel int, counts int) error
	TOFThreshold(channel int) (int, error)

	SetTriggerMask(trigger int, mask byte) error
	TriggerMask(trigger int) (byte, error)
	SetTriggerWindow(cycles int) error
	SetTriggerPrescale(target string, factor int) error
	TriggerEnabled() (bool, error)

	LiveCount(channel int) (int, error)
	EndOfRunCount(channel int) (int, error)
	LogicReset() error
	ReadErrors() ([]ErrorRecord, error)
	Telemetry() (Telemetry, error)
}

// Tracker groups the operations forwarded to the tracker boards, addressed
// by integer board id 0-7. Broadcast operations take the wildcard chip
// address AllChips.
type Tracker interface {
	ResetFPGA(board int) error
	ResetConfig(board int) error
	ResetLogic() error
	ResetStateMachines() error
	SetLayerCount(n int) error
	SetTriggerSource(source int) error
	TriggerSource(board int) (int, error)
	SetDualTrigger(a, b int) error
	TriggerDisable() error

	ASICPowerOn() error
	ASICPowerOff() error
	ASICHardReset(mask byte) error
	ASICSoftReset(mask byte) error

	CalibrateInputTiming(board int) error
	LoadASICConfig(board int, chip int, cfg ASICConfig) error
	ASICConfigOf(board int, chip int) (ASICConfig, error)
	SetThresholdDAC(board int, chip int, counts int, rng DACRange) error
	ThresholdDAC(board int, chip int) (int, error)
	SetDataMask(board int, chip int, mode MaskMode, channels []int) error
	DataMask(board int, chip int) (uint64, error)
	SetChannelTriggerMask(board int, chip int, mode MaskMode, channels []int) error
	ChannelTriggerMask(board int, chip int) (uint64, error)

	FPGAConfig(board int) (string, error)
	FirmwareVersionOf(board int) (string, error)
	TemperatureOf(board int) (float64, error)
	LayerTriggerCount(layer int) (int, error)

	CalibrationStrobe(board int, delay int, tag int) error
	ReadCalibrationEvent(tag int) (CalibrationEvent, error)
}

// Acquirer runs a bounded acquisition of a fixed number of events under a
// given run number. The per-event statistics are computed instrument-side;
// the gateway only hands back the end-of-run summary.
type Acquirer interface {
	Acquire(runNumber int, events int, readTracker bool) (AcquisitionSummary, error)
}

// AllChips is the broadcast chip address for per-board ASIC operations.
const AllChips = 31

// NumBoards is the number of addressable tracker board slots.
const NumBoards = 8

// AcquisitionSummary carries the end-of-run statistics returned by the
// acquisition primitive: per-channel pulse height means and sigmas in the
// order T1, T2, T3, T4, G, Ex, plus the TOF mean and sigma.
type AcquisitionSummary struct {
	ADCMean  [6]float64
	ADCSigma [6]float64
	TOFMean  float64
	TOFSigma float64
}

// ErrorRecord is one entry of the Event PSOC internal error FIFO.
type ErrorRecord struct {
	Code  byte
	Info1 byte
	Info2 byte
}

// Telemetry is the housekeeping snapshot of the instrument, used for
// status reporting. Not every gateway populates every field.
type Telemetry struct {
	BatteryVoltage float64
	TemperatureC   float64
	Voltages       map[string]float64
	Currents       map[string]float64
}

// CalibrationEvent is the readout of a single calibration-strobe event,
// used during single-board checkout.
type CalibrationEvent struct {
	Tag      int
	Board    int
	HitCount int
	Raw      []byte
}
