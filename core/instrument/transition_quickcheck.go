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
	"time"

	"github.com/aesop-lite/control/core/fault"
)

// checkChannel is the live counter probed by the functional check.
const checkChannel = 2

func NewQuickCheckTransition() Transition {
	return &QuickCheckTransition{
		baseTransition: baseTransition{name: "QUICK_CHECK"},
	}
}

type QuickCheckTransition struct {
	baseTransition
}

// Advisory end of bring-up: probe a live counter across a logic reset
// pulse and report whether the trigger path is currently enabled.
func (t QuickCheckTransition) do(s *Sequencer) (err error) {
	if s == nil {
		return errors.New("cannot transition in NIL sequencer")
	}

	_, err = s.policy.Attempt("quick functional check", fault.TOLERATED, func() error {
		before, err := s.gw.LiveCount(checkChannel)
		if err != nil {
			return err
		}
		log.Infof("count on channel %d = %d", checkChannel, before)
		if err := s.gw.LogicReset(); err != nil {
			return err
		}
		time.Sleep(3 * s.cfg.SettleDelay)
		after, err := s.gw.LiveCount(checkChannel)
		if err != nil {
			return err
		}
		log.Infof("count on channel %d = %d after logic reset", checkChannel, after)
		enabled, err := s.gw.TriggerEnabled()
		if err != nil {
			return err
		}
		log.WithField("enabled", enabled).Info("trigger enable status before run")
		return nil
	})
	return err
}
