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

// Package runlog implements the per-run result sink: one append-mode text
// file per run number holding the end-of-run summary block, plus a parser
// for reading such files back.
package runlog

import (
	"time"
)

// ADCNames is the fixed print order of the summary block. The sixth
// channel is the spare input, always last.
var ADCNames = [6]string{"T1", "T2", "T3", "T4", "G", "Ex"}

// SinglesNames maps counter channels 1..5 to their PMT names, in channel
// order. This differs from the ADC print order above.
var SinglesNames = [5]string{"G", "T3", "T1", "T4", "T2"}

// Record is the summary of one acquisition run. It is created at the
// start of a run iteration, populated incrementally as acquisition and
// readback steps succeed, persisted at the end of the iteration regardless
// of partial failure, then discarded. There is no cross-run aggregation.
type Record struct {
	RunNumber int
	Events    int

	// Acquired is false when the acquisition primitive failed; the ADC
	// and TOF fields are then unset and FailureReason holds the cause.
	Acquired      bool
	FailureReason string

	ADCMean  [6]float64
	ADCSigma [6]float64
	TOFMean  float64
	TOFSigma float64

	// ChannelRead flags which of the five singles counters were actually
	// read back; a channel whose readback faulted stays false and its
	// count line is absent from the file.
	ChannelCounts [5]int
	ChannelRead   [5]bool

	// FPGAConfig is the tracker diagnostic snapshot, present only when
	// tracker boards are active. It defaults to "error" and keeps that
	// value when the readback faults.
	FPGAConfig string

	EndedAt time.Time
}
