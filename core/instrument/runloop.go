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

	"github.com/aesop-lite/control/core/fault"
	"github.com/aesop-lite/control/core/runlog"
)

// RunAll executes the configured number of acquisition runs. Run numbers
// increase by one per iteration from FirstRun, regardless of partial
// failure within an iteration; exactly one result sink block is written
// per run. Only an escalated fault terminates the loop early.
func (s *Sequencer) RunAll() error {
	for i := 0; i < s.cfg.Runs; i++ {
		runNumber := s.cfg.FirstRun + i
		if err := s.TryTransition(NewStartActivityTransition(runNumber)); err != nil {
			s.goError(err)
			return err
		}
		if err := s.doRun(runNumber); err != nil {
			s.goError(err)
			return err
		}
		if err := s.TryTransition(NewStopActivityTransition()); err != nil {
			s.goError(err)
			return err
		}
	}
	if err := s.TryTransition(NewExitTransition()); err != nil {
		s.goError(err)
		return err
	}
	return nil
}

// doRun is one run iteration: acquire, persist the summary, read back the
// singles counters and diagnostics, tear down the tracker, close the sink.
// Every step is tolerated so the record is persisted no matter what; a
// non-nil return only happens on escalation.
func (s *Sequencer) doRun(runNumber int) (err error) {
	faultsBefore := s.policy.Ledger().Count()

	rec := runlog.Record{
		RunNumber:  runNumber,
		Events:     s.cfg.Events,
		FPGAConfig: "error",
	}

	var w *runlog.Writer
	defer func() {
		if s.mirror != nil {
			s.mirror.Detach()
		}
		if cerr := w.Close(); cerr != nil {
			log.WithError(cerr).WithField("run", runNumber).Warn("cannot close run file")
		}
	}()

	if _, err = s.policy.Attempt(fmt.Sprintf("run %d file open", runNumber), fault.TOLERATED, func() error {
		var oerr error
		w, oerr = runlog.Open(s.cfg.DataDir, runNumber)
		return oerr
	}); err != nil {
		return err
	}
	if s.mirror != nil && w != nil {
		s.mirror.Attach(uint32(runNumber), w.Sink())
	}

	readTracker := len(s.cfg.Boards) > 0

	// The gateway distinguishes communication, malformed-index and
	// malformed-value faults; all three are counted and logged the same
	// way here, the error text carries the kind.
	if _, err = s.policy.Attempt(fmt.Sprintf("run %d acquisition", runNumber), fault.TOLERATED, func() error {
		summary, aerr := s.gw.Acquire(runNumber, s.cfg.Events, readTracker)
		if aerr != nil {
			rec.FailureReason = aerr.Error()
			return aerr
		}
		rec.Acquired = true
		rec.ADCMean = summary.ADCMean
		rec.ADCSigma = summary.ADCSigma
		rec.TOFMean = summary.TOFMean
		rec.TOFSigma = summary.TOFSigma
		return nil
	}); err != nil {
		return err
	}

	// The summary block is written even after a failed acquisition,
	// recording whatever values are available.
	rec.EndedAt = time.Now()
	s.logSummary(&rec)
	if werr := w.WriteSummary(&rec); werr != nil {
		log.WithError(werr).WithField("run", runNumber).Warn("cannot write run summary")
	}

	if _, err = s.policy.AttemptEach(fmt.Sprintf("run %d singles readback", runNumber), "channel",
		fault.TOLERATED, []int{1, 2, 3, 4, 5}, func(channel int) error {
			count, cerr := s.gw.EndOfRunCount(channel)
			if cerr != nil {
				return cerr
			}
			name := runlog.SinglesNames[channel-1]
			rec.ChannelCounts[channel-1] = count
			rec.ChannelRead[channel-1] = true
			log.Infof("counter for channel %s = %d", name, count)
			return w.WriteChannelCount(name, count)
		}); err != nil {
		return err
	}

	if err = s.drainErrors(fmt.Sprintf("run %d", runNumber)); err != nil {
		return err
	}

	if readTracker {
		if _, err = s.policy.Attempt(fmt.Sprintf("run %d FPGA config readback", runNumber), fault.TOLERATED, func() error {
			config, cerr := s.gw.FPGAConfig(s.cfg.Boards[0])
			if cerr != nil {
				return cerr
			}
			rec.FPGAConfig = config
			return nil
		}); err != nil {
			return err
		}
		log.Infof("tracker FPGA configuration = %s", rec.FPGAConfig)
		if werr := w.WriteFPGAConfig(rec.FPGAConfig); werr != nil {
			log.WithError(werr).WithField("run", runNumber).Warn("cannot write FPGA config line")
		}

		// Teardown runs after EVERY iteration, not only the last one, so
		// each following run starts from a powered-down tracker with no
		// re-power-on step before its acquisition. This reproduces the
		// instrument's historical behavior; see DESIGN.md before touching.
		if _, err = s.policy.Attempt(fmt.Sprintf("run %d tracker teardown", runNumber), fault.TOLERATED, func() error {
			if s.cfg.ASICReset {
				if perr := s.gw.ASICPowerOff(); perr != nil {
					return perr
				}
			}
			return s.gw.TriggerDisable()
		}); err != nil {
			return err
		}
		log.WithField("run", runNumber).
			Warn("tracker powered down mid-loop, next run starts from powered-down state")
	}

	if s.mirror != nil {
		s.mirror.Detach()
	}
	if cerr := w.Close(); cerr != nil {
		log.WithError(cerr).WithField("run", runNumber).Warn("cannot close run file")
	}
	w = nil

	if err = s.drainErrors(fmt.Sprintf("run %d close", runNumber)); err != nil {
		return err
	}

	if s.catalog.Enabled() {
		faultDelta := s.policy.Ledger().Count() - faultsBefore
		if berr := s.catalog.RecordRun(&rec, s.id.String(), faultDelta); berr != nil {
			log.WithError(berr).WithField("run", runNumber).Warn("cannot record run in catalog")
		}
	}
	return nil
}

// logSummary mirrors the summary block to the console.
func (s *Sequencer) logSummary(rec *runlog.Record) {
	log.Infof("ending the run at %s", rec.EndedAt.Format(time.ANSIC))
	if !rec.Acquired {
		log.WithField("run", rec.RunNumber).
			Warnf("acquisition failed: %s", rec.FailureReason)
		return
	}
	log.Info("average ADC values:")
	for i, name := range runlog.ADCNames {
		log.Infof("    %s = %g +- %g", name, rec.ADCMean[i], rec.ADCSigma[i])
	}
	log.Infof("    TOF = %g +- %g", rec.TOFMean, rec.TOFSigma)
}

// drainErrors reads and logs the PSOC internal error FIFO.
func (s *Sequencer) drainErrors(after string) error {
	_, err := s.policy.Attempt("error readback after "+after, fault.TOLERATED, func() error {
		records, rerr := s.gw.ReadErrors()
		if rerr != nil {
			return rerr
		}
		for _, r := range records {
			log.WithField("code", fmt.Sprintf("0x%02x", r.Code)).
				Warnf("PSOC error 0x%02x (0x%02x 0x%02x)", r.Code, r.Info1, r.Info2)
		}
		return nil
	})
	return err
}
