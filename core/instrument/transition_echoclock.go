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

func NewEchoClockTransition() Transition {
	return &EchoClockTransition{
		baseTransition: baseTransition{name: "ECHO_CLOCK"},
	}
}

type EchoClockTransition struct {
	baseTransition
}

// Purely diagnostic: the clock, the watch battery backing the i2c RTC,
// and the firmware version are read back for the log.
func (t EchoClockTransition) do(s *Sequencer) (err error) {
	if s == nil {
		return errors.New("cannot transition in NIL sequencer")
	}

	time.Sleep(s.cfg.SettleDelay)
	_, err = s.policy.Attempt("RTC echo", fault.TOLERATED, func() error {
		clock, err := s.gw.Clock()
		if err != nil {
			return err
		}
		volts, err := s.gw.BatteryVoltage()
		if err != nil {
			return err
		}
		version, err := s.gw.FirmwareVersion()
		if err != nil {
			return err
		}
		log.WithField("clock", clock.Format(time.ANSIC)).
			WithField("battery", volts).
			WithField("firmware", version).
			Info("Event PSOC clock echo")
		return nil
	})
	return err
}
