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

package cmd

import (
	"errors"
	"os"
	"time"

	"github.com/aesop-lite/control/core"
	"github.com/aesop-lite/control/core/fault"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// sequenceCmd represents the sequence command
var sequenceCmd = &cobra.Command{
	Use:     "sequence",
	Aliases: []string{"seq", "run"},
	Short:   "bring up the instrument and execute the configured runs",
	Long: `The sequence command drives the full acquisition sequence: clock,
thresholds, tracker bring-up and trigger configuration in fixed order,
then the configured number of runs with one output file per run.

A fault in a critical step aborts the sequence with a non-zero exit
status. Faults in echo and readback steps are logged and tolerated
unless --abortOnAnyFault is set.`,
	Run: func(cmd *cobra.Command, args []string) {
		err := core.Run()
		if err == nil {
			return
		}
		var critical *fault.CriticalError
		if errors.As(err, &critical) {
			log.WithField("phase", critical.Event.Phase).
				WithField("class", critical.Event.Class.String()).
				Error("sequence aborted on critical fault")
		} else {
			log.WithField("error", err).Error("sequence failed")
		}
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(sequenceCmd)

	sequenceCmd.Flags().Int("events", 1000, "events to acquire per run")
	sequenceCmd.Flags().Int("firstRun", 320, "run number of the first iteration")
	sequenceCmd.Flags().Int("runs", 3, "number of acquisition runs")
	sequenceCmd.Flags().IntSlice("boards", []int{0, 1, 2, 3, 4, 5, 6, 7}, "active tracker board ids (empty disables the tracker)")
	sequenceCmd.Flags().Bool("asicReset", true, "power cycle the tracker ASICs during bring-up")
	sequenceCmd.Flags().Bool("abortOnAnyFault", false, "escalate tolerated faults to sequence aborts")
	sequenceCmd.Flags().IntSlice("pmtThresholds", []int{3, 4, 4, 3, 60}, "PMT threshold DAC values for channels 1..5")
	sequenceCmd.Flags().IntSlice("tofThresholds", []int{49, 49}, "TOF threshold DAC values for channels 1..2")
	sequenceCmd.Flags().Int("triggerMask", 0x06, "primary trigger coincidence mask")
	sequenceCmd.Flags().Int("triggerWindow", 16, "trigger coincidence window in clock cycles")
	sequenceCmd.Flags().String("prescaleTarget", "PMT", "prescaled secondary trigger target (PMT or TKR)")
	sequenceCmd.Flags().Int("prescale", 4, "secondary trigger prescale factor")
	sequenceCmd.Flags().Int("secondaryMask", 0x00, "secondary trigger coincidence mask")
	sequenceCmd.Flags().Duration("settleDelay", 100*time.Millisecond, "pause between consecutive DAC writes")
	sequenceCmd.Flags().String("dataDir", ".", "directory for per-run output files")
	sequenceCmd.Flags().String("bookkeepingDsn", "", "MySQL DSN for the run catalog (empty disables bookkeeping)")

	for _, key := range []string{
		"events", "firstRun", "runs", "boards", "asicReset", "abortOnAnyFault",
		"pmtThresholds", "tofThresholds", "triggerMask", "triggerWindow",
		"prescaleTarget", "prescale", "secondaryMask", "settleDelay",
		"dataDir", "bookkeepingDsn",
	} {
		_ = viper.BindPFlag(key, sequenceCmd.Flags().Lookup(key))
	}
}
