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

	"github.com/aesop-lite/control/core/fault"
)

func NewConfigureTriggerTransition() Transition {
	return &ConfigureTriggerTransition{
		baseTransition: baseTransition{name: "CONFIGURE_TRIGGER"},
	}
}

type ConfigureTriggerTransition struct {
	baseTransition
}

func (t ConfigureTriggerTransition) do(s *Sequencer) (err error) {
	if s == nil {
		return errors.New("cannot transition in NIL sequencer")
	}

	_, err = s.policy.Attempt("trigger set", fault.CRITICAL, func() error {
		log.WithField("mask", s.cfg.TriggerMask).
			Infof("setting the first trigger mask to 0x%02x", s.cfg.TriggerMask)
		if err := s.gw.SetTriggerMask(1, s.cfg.TriggerMask); err != nil {
			return err
		}
		if err := s.gw.SetTriggerWindow(s.cfg.TriggerWindow); err != nil {
			return err
		}
		log.WithField("prescale", s.cfg.Prescale).
			WithField("target", s.cfg.PrescaleTarget).
			Infof("setting the %s trigger prescale to %d", s.cfg.PrescaleTarget, s.cfg.Prescale)
		if err := s.gw.SetTriggerPrescale(s.cfg.PrescaleTarget, s.cfg.Prescale); err != nil {
			return err
		}
		log.WithField("mask", s.cfg.SecondaryMask).
			Infof("setting the second trigger mask to 0x%02x", s.cfg.SecondaryMask)
		return s.gw.SetTriggerMask(2, s.cfg.SecondaryMask)
	})
	return err
}

func NewEchoTriggerTransition() Transition {
	return &EchoTriggerTransition{
		baseTransition: baseTransition{name: "ECHO_TRIGGER"},
	}
}

type EchoTriggerTransition struct {
	baseTransition
}

func (t EchoTriggerTransition) do(s *Sequencer) (err error) {
	if s == nil {
		return errors.New("cannot transition in NIL sequencer")
	}

	_, err = s.policy.Attempt("trigger echo", fault.TOLERATED, func() error {
		for _, trigger := range []int{1, 2} {
			mask, err := s.gw.TriggerMask(trigger)
			if err != nil {
				return err
			}
			log.WithField("trigger", trigger).
				Infof("trigger mask %d is set to 0x%02x", trigger, mask)
		}
		return nil
	})
	return err
}
