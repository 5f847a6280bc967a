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
)

func NewStartActivityTransition(runNumber int) Transition {
	return &StartActivityTransition{
		baseTransition: baseTransition{name: "START_ACTIVITY"},
		runNumber:      runNumber,
	}
}

type StartActivityTransition struct {
	baseTransition
	runNumber int
}

func (t StartActivityTransition) do(s *Sequencer) (err error) {
	if s == nil {
		return errors.New("cannot transition in NIL sequencer")
	}
	s.currentRunNumber = t.runNumber
	log.WithField("run", t.runNumber).
		WithField("events", s.cfg.Events).
		Info("starting acquisition run")
	return nil
}

func NewStopActivityTransition() Transition {
	return &StopActivityTransition{
		baseTransition: baseTransition{name: "STOP_ACTIVITY"},
	}
}

type StopActivityTransition struct {
	baseTransition
}

func (t StopActivityTransition) do(s *Sequencer) (err error) {
	if s == nil {
		return errors.New("cannot transition in NIL sequencer")
	}
	log.WithField("run", s.currentRunNumber).Info("acquisition run complete")
	return nil
}

func NewExitTransition() Transition {
	return &ExitTransition{
		baseTransition: baseTransition{name: "EXIT"},
	}
}

type ExitTransition struct {
	baseTransition
}

func (t ExitTransition) do(s *Sequencer) (err error) {
	if s == nil {
		return errors.New("cannot transition in NIL sequencer")
	}
	log.WithField("faults", s.policy.Ledger().Count()).Info("sequencing done")
	return nil
}
