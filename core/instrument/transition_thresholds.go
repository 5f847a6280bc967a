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
	"errors"
	"fmt"
	"time"

	"github.com/aesop-lite/control/core/fault"
	"github.com/aesop-lite/control/core/runlog"
	"github.com/hashicorp/go-multierror"
)

func NewConfigureThresholdsTransition() Transition {
	return &ConfigureThresholdsTransition{
		baseTransition: baseTransition{name: "CONFIGURE_THRESHOLDS"},
	}
}

type ConfigureThresholdsTransition struct {
	baseTransition
}

// The thresholds gate all triggering, so any failure here is critical.
func (t ConfigureThresholdsTransition) do(s *Sequencer) (err error) {
	if s == nil {
		return errors.New("cannot transition in NIL sequencer")
	}

	_, err = s.policy.Attempt("DAC set", fault.CRITICAL, func() error {
		for ch := 1; ch <= len(s.cfg.TOFThresholds); ch++ {
			if err := s.gw.SetTOFThreshold(ch, s.cfg.TOFThresholds[ch-1]); err != nil {
				return err
			}
		}
		// Channel 5 (T2) is deliberately left at its power-up value:
		// writing it makes the DAC read back zero on the next query even
		// though the setting sticks, so the workflow skips it.
		for ch := 1; ch <= 4; ch++ {
			if err := s.gw.SetPMTThreshold(ch, s.cfg.PMTThresholds[ch-1]); err != nil {
				return err
			}
			time.Sleep(s.cfg.SettleDelay)
		}
		return nil
	})
	return err
}

func NewEchoThresholdsTransition() Transition {
	return &EchoThresholdsTransition{
		baseTransition: baseTransition{name: "ECHO_THRESHOLDS"},
	}
}

type EchoThresholdsTransition struct {
	baseTransition
}

// Readback verification. A mismatch between written and read values is
// logged but never fatal; only a communication fault is counted.
func (t EchoThresholdsTransition) do(s *Sequencer) (err error) {
	if s == nil {
		return errors.New("cannot transition in NIL sequencer")
	}

	_, err = s.policy.Attempt("DAC echo", fault.TOLERATED, func() error {
		var mismatches *multierror.Error

		for ch := 1; ch <= len(s.cfg.TOFThresholds); ch++ {
			counts, err := s.gw.TOFThreshold(ch)
			if err != nil {
				return err
			}
			log.WithField("channel", ch).Infof("TOF DAC channel %d reads %d counts", ch, counts)
			if counts != s.cfg.TOFThresholds[ch-1] {
				mismatches = multierror.Append(mismatches,
					fmt.Errorf("TOF DAC channel %d reads %d, wrote %d", ch, counts, s.cfg.TOFThresholds[ch-1]))
			}
		}
		for ch := 1; ch <= len(s.cfg.PMTThresholds); ch++ {
			counts, err := s.gw.PMTThreshold(ch)
			if err != nil {
				return err
			}
			log.WithField("channel", ch).
				WithField("pmt", runlog.SinglesNames[ch-1]).
				Infof("PMT DAC channel %d reads %d counts", ch, counts)
			// Channel 5 was never written, nothing to compare against.
			if ch <= 4 && counts != s.cfg.PMTThresholds[ch-1] {
				mismatches = multierror.Append(mismatches,
					fmt.Errorf("PMT DAC channel %d reads %d, wrote %d", ch, counts, s.cfg.PMTThresholds[ch-1]))
			}
		}

		if summary := mismatches.ErrorOrNil(); summary != nil {
			log.WithError(summary).Warn("threshold readback mismatch")
		}
		return nil
	})
	return err
}
