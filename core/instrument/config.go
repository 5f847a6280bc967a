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

package instrument

import (
	"fmt"
	"time"

	"github.com/aesop-lite/control/device"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// Config is the full sequencing configuration, fixed at start and never
// reloaded mid-run. Nothing reads viper after ConfigFromViper returns.
type Config struct {
	// Address is the bus address of the Event PSOC.
	Address int
	// Events is the requested event count per run.
	Events int
	// FirstRun is the run number of the first iteration; subsequent runs
	// increase by one per completed iteration.
	FirstRun int
	// Runs is the number of acquisition runs to execute.
	Runs int

	// Transport is the serial device path, or "sim" for the simulated
	// instrument.
	Transport string
	Baud      int

	// Boards lists the active tracker board ids, a subset of 0..7.
	// Empty means no tracker: bring-up and all tracker-specific run
	// steps are skipped.
	Boards []int
	// ASICReset requests a full ASIC power cycle during tracker
	// bring-up, and the matching power-off in the per-run teardown.
	ASICReset bool

	// AbortOnAnyFault escalates every fault to a sequence abort,
	// including steps that are normally tolerated.
	AbortOnAnyFault bool

	// PMTThresholds holds the DAC values for counter channels 1..5,
	// which carry the PMTs G, T3, T1, T4, T2 in that order. Channel 5
	// is configured here but deliberately never written, see the
	// threshold phase.
	PMTThresholds [5]int
	// TOFThresholds holds the DAC values for the two TOF channels.
	TOFThresholds [2]int

	// TriggerMask selects the PMT coincidence for the primary trigger.
	TriggerMask byte
	// TriggerWindow is the coincidence window width in clock cycles.
	TriggerWindow int
	// PrescaleTarget and Prescale configure the prescaled secondary
	// trigger, with SecondaryMask as its coincidence mask.
	PrescaleTarget string
	Prescale       int
	SecondaryMask  byte

	// SettleDelay is the pause between consecutive DAC writes.
	SettleDelay time.Duration

	// DataDir is where the per-run output files are written.
	DataDir string

	// BookkeepingDSN enables the MySQL run catalog when non-empty.
	BookkeepingDSN string
}

// ConfigFromViper builds and validates the immutable sequencing
// configuration from the viper keys bound at CLI startup. All validation
// failures are aggregated so a bad invocation reports everything at once.
func ConfigFromViper() (cfg Config, err error) {
	cfg = Config{
		Address:         viper.GetInt("address"),
		Events:          viper.GetInt("events"),
		FirstRun:        viper.GetInt("firstRun"),
		Runs:            viper.GetInt("runs"),
		Transport:       viper.GetString("transport"),
		Baud:            viper.GetInt("baud"),
		Boards:          viper.GetIntSlice("boards"),
		ASICReset:       viper.GetBool("asicReset"),
		AbortOnAnyFault: viper.GetBool("abortOnAnyFault"),
		TriggerWindow:   viper.GetInt("triggerWindow"),
		PrescaleTarget:  viper.GetString("prescaleTarget"),
		Prescale:        viper.GetInt("prescale"),
		SettleDelay:     viper.GetDuration("settleDelay"),
		DataDir:         viper.GetString("dataDir"),
		BookkeepingDSN:  viper.GetString("bookkeepingDsn"),
	}

	var accumulated *multierror.Error

	pmt := viper.GetIntSlice("pmtThresholds")
	if len(pmt) != len(cfg.PMTThresholds) {
		accumulated = multierror.Append(accumulated,
			fmt.Errorf("pmtThresholds must hold %d values, got %d", len(cfg.PMTThresholds), len(pmt)))
	} else {
		copy(cfg.PMTThresholds[:], pmt)
	}
	tof := viper.GetIntSlice("tofThresholds")
	if len(tof) != len(cfg.TOFThresholds) {
		accumulated = multierror.Append(accumulated,
			fmt.Errorf("tofThresholds must hold %d values, got %d", len(cfg.TOFThresholds), len(tof)))
	} else {
		copy(cfg.TOFThresholds[:], tof)
	}

	// The trigger mask registers are 8 bits wide in hardware.
	for _, mask := range []struct {
		key string
		dst *byte
	}{
		{"triggerMask", &cfg.TriggerMask},
		{"secondaryMask", &cfg.SecondaryMask},
	} {
		v := viper.GetInt(mask.key)
		if v < 0 || v > 0xFF {
			accumulated = multierror.Append(accumulated,
				fmt.Errorf("%s 0x%x does not fit the 8-bit mask register", mask.key, v))
			continue
		}
		*mask.dst = byte(v)
	}

	seen := make(map[int]bool)
	for _, board := range cfg.Boards {
		if board < 0 || board >= device.NumBoards {
			accumulated = multierror.Append(accumulated,
				fmt.Errorf("board id %d outside the addressable range 0..%d", board, device.NumBoards-1))
		}
		if seen[board] {
			accumulated = multierror.Append(accumulated,
				fmt.Errorf("board id %d listed more than once", board))
		}
		seen[board] = true
	}

	if cfg.Events <= 0 {
		accumulated = multierror.Append(accumulated, fmt.Errorf("events must be positive, got %d", cfg.Events))
	}
	if cfg.FirstRun <= 0 {
		accumulated = multierror.Append(accumulated, fmt.Errorf("firstRun must be positive, got %d", cfg.FirstRun))
	}
	if cfg.Runs < 0 {
		accumulated = multierror.Append(accumulated, fmt.Errorf("runs must not be negative, got %d", cfg.Runs))
	}
	if cfg.TriggerWindow < 0 {
		accumulated = multierror.Append(accumulated, fmt.Errorf("triggerWindow must not be negative, got %d", cfg.TriggerWindow))
	}
	if cfg.Prescale <= 0 {
		accumulated = multierror.Append(accumulated, fmt.Errorf("prescale must be positive, got %d", cfg.Prescale))
	}
	if cfg.SettleDelay < 0 {
		accumulated = multierror.Append(accumulated, fmt.Errorf("settleDelay must not be negative, got %s", cfg.SettleDelay))
	}
	if len(cfg.Transport) == 0 {
		accumulated = multierror.Append(accumulated, fmt.Errorf("transport must be a serial device path or \"sim\""))
	}

	err = accumulated.ErrorOrNil()
	return
}
