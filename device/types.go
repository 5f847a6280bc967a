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

package device

// ASICConfig is the register set loaded identically into every tracker
// ASIC during bring-up. The values are opaque to the sequencer and only
// validated at the gateway boundary; the struct is written once per
// bring-up and never mutated mid-run.
type ASICConfig struct {
	OneShot     int
	Gain        int
	Shaping     int
	BufSpeed    int
	TrigDelay   int
	TrigWindow  int
	IOCurrent   int
	MaxClusters int
}

// DefaultASICConfig returns the flight register values.
// TrigDelay is tuned to match the trigger timing from the PMTs.
func DefaultASICConfig() ASICConfig {
	return ASICConfig{
		OneShot:     0,
		Gain:        0,
		Shaping:     0,
		BufSpeed:    3,
		TrigDelay:   6,
		TrigWindow:  1,
		IOCurrent:   2,
		MaxClusters: 10,
	}
}

type DACRange int

const (
	RangeLow DACRange = iota
	RangeHigh
)

var dacRangeNames = []string{
	"low",
	"high",
}

func (r DACRange) String() string {
	if r < RangeLow || r > RangeHigh {
		return "low"
	}
	return dacRangeNames[r]
}

type MaskMode int

const (
	Unmask MaskMode = iota
	Mask
)

var maskModeNames = []string{
	"unmask",
	"mask",
}

func (m MaskMode) String() string {
	if m < Unmask || m > Mask {
		return "unmask"
	}
	return maskModeNames[m]
}
