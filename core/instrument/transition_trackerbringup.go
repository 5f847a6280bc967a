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

	"github.com/aesop-lite/control/common/utils"
	"github.com/aesop-lite/control/core/fault"
	"github.com/aesop-lite/control/device"
)

const (
	// externalTrigger selects the PMT coincidence as the tracker trigger
	// source; the internal source is only used on the bench.
	externalTrigger = 0

	// asicResetMask addresses all five ASIC groups of a board.
	asicResetMask = 0x1F

	// probeChip is the chip whose registers are read back when verifying
	// a broadcast write.
	probeChip = 3

	// trackerThreshold is the broadcast ASIC threshold DAC setting.
	trackerThreshold = 21
)

func NewTrackerBringupTransition() Transition {
	return &TrackerBringupTransition{
		baseTransition: baseTransition{name: "TRACKER_BRINGUP"},
	}
}

type TrackerBringupTransition struct {
	baseTransition
}

// Composite critical phase: resets, trigger source, ASIC power cycle,
// per-board input timing calibration and the ASIC register load. The
// calibration loop is insulated per board, every other failure aborts.
func (t TrackerBringupTransition) do(s *Sequencer) (err error) {
	if s == nil {
		return errors.New("cannot transition in NIL sequencer")
	}
	if len(s.cfg.Boards) == 0 {
		log.Debug("no tracker boards configured, skipping tracker bring-up")
		return nil
	}
	defer utils.TimeTrack(time.Now(), "TRACKER_BRINGUP", log.WithPrefix("instrument"))

	if _, err = s.policy.Attempt("tracker reset", fault.CRITICAL, func() error {
		if err := s.gw.ResetFPGA(0x00); err != nil {
			return err
		}
		if err := s.gw.ResetConfig(0x00); err != nil {
			return err
		}
		if err := s.gw.ResetStateMachines(); err != nil {
			return err
		}
		if err := s.gw.ResetLogic(); err != nil {
			return err
		}
		return s.gw.SetLayerCount(len(s.cfg.Boards))
	}); err != nil {
		return err
	}

	if err = s.drainErrors("tracker reset"); err != nil {
		return err
	}

	// Reading layers above 1 floods the PSOC error FIFO but still
	// returns the right version, so the readback stays advisory.
	if _, err = s.policy.AttemptEach("tracker firmware readback", "board", fault.TOLERATED, s.cfg.Boards,
		func(board int) error {
			version, err := s.gw.FirmwareVersionOf(board)
			if err != nil {
				return err
			}
			log.WithField("board", board).Infof("tracker FPGA firmware version %s on board %d", version, board)
			return nil
		}); err != nil {
		return err
	}

	if err = s.drainErrors("tracker firmware readback"); err != nil {
		return err
	}

	if _, err = s.policy.Attempt("trigger source select", fault.CRITICAL, func() error {
		if err := s.gw.SetTriggerSource(externalTrigger); err != nil {
			return err
		}
		source, err := s.gw.TriggerSource(s.cfg.Boards[0])
		if err != nil {
			return err
		}
		if source != externalTrigger {
			return fmt.Errorf("trigger source reads back %d, want %d", source, externalTrigger)
		}
		log.WithField("source", source).Info("tracker trigger source selected")
		return nil
	}); err != nil {
		return err
	}

	if s.cfg.ASICReset {
		if _, err = s.policy.Attempt("ASIC power-up", fault.CRITICAL, func() error {
			if err := s.gw.ASICPowerOn(); err != nil {
				return err
			}
			if err := s.gw.ASICHardReset(asicResetMask); err != nil {
				return err
			}
			time.Sleep(s.cfg.SettleDelay)
			return s.gw.ASICSoftReset(asicResetMask)
		}); err != nil {
			return err
		}
	}

	// Slow: the FPGA walks all ASICs one by one to generate data edges
	// for its input delay calibration. One bad board must not block the
	// calibration of the others.
	if _, err = s.policy.AttemptEach("input timing calibration", "board", fault.TOLERATED, s.cfg.Boards,
		s.gw.CalibrateInputTiming); err != nil {
		return err
	}

	if _, err = s.policy.Attempt("ASIC configuration load", fault.CRITICAL, func() error {
		if err := s.gw.SetDualTrigger(0, 0); err != nil {
			return err
		}
		if err := s.gw.LoadASICConfig(s.cfg.Boards[0], device.AllChips, s.asicConfig); err != nil {
			return err
		}
		// The calibration and per-channel trigger masks stay at their
		// defaults in this workflow; the data mask is opened fully.
		for _, board := range s.cfg.Boards {
			if _, err := s.gw.ASICConfigOf(board, probeChip); err != nil {
				return err
			}
			if err := s.gw.SetThresholdDAC(board, device.AllChips, trackerThreshold, device.RangeLow); err != nil {
				return err
			}
			if _, err := s.gw.ThresholdDAC(board, probeChip); err != nil {
				return err
			}
			if err := s.gw.SetDataMask(board, device.AllChips, device.Unmask, nil); err != nil {
				return err
			}
			if _, err := s.gw.DataMask(board, 1); err != nil {
				return err
			}
			if err := s.gw.SetChannelTriggerMask(board, device.AllChips, device.Unmask, nil); err != nil {
				return err
			}
			if _, err := s.gw.ChannelTriggerMask(board, probeChip); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	// Calibration events can only be read out with a single board on the
	// string, so this check is skipped in the full stack configuration.
	if len(s.cfg.Boards) == 1 {
		if _, err = s.policy.Attempt("calibration strobe check", fault.TOLERATED, func() error {
			board := s.cfg.Boards[0]
			if err := s.gw.CalibrationStrobe(board, s.asicConfig.TrigDelay, 0); err != nil {
				return err
			}
			time.Sleep(10 * time.Millisecond)
			ev, err := s.gw.ReadCalibrationEvent(0)
			if err != nil {
				return err
			}
			log.WithField("board", board).
				WithField("hits", ev.HitCount).
				Info("calibration strobe event read")
			_, err = s.gw.ASICConfigOf(board, probeChip)
			return err
		}); err != nil {
			return err
		}
		if err = s.drainErrors("calibration strobe check"); err != nil {
			return err
		}
	}

	if _, err = s.policy.Attempt("trigger noise count", fault.TOLERATED, func() error {
		layer := s.cfg.Boards[len(s.cfg.Boards)-1]
		count, err := s.gw.LayerTriggerCount(layer)
		if err != nil {
			return err
		}
		log.WithField("layer", layer).Infof("trigger noise count on layer %d = %d", layer, count)
		return nil
	}); err != nil {
		return err
	}

	return nil
}
