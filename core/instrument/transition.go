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

// Transition is one sequencing phase. do runs the phase's gateway calls
// wrapped by the fault policy; returning a non-nil error cancels the FSM
// event and leaves the machine in the source state.
type Transition interface {
	eventName() string
	check() error
	do(*Sequencer) error
}

type baseTransition struct {
	name string
}

func (t baseTransition) check() (err error) {
	return nil
}

func (t baseTransition) eventName() string {
	return t.name
}

// GoErrorTransition parks the FSM in ERROR after a critical fault.
func NewGoErrorTransition(cause error) Transition {
	return &GoErrorTransition{
		baseTransition: baseTransition{name: "GO_ERROR"},
		cause:          cause,
	}
}

type GoErrorTransition struct {
	baseTransition
	cause error
}

func (t GoErrorTransition) do(s *Sequencer) (err error) {
	if s == nil {
		return errors.New("cannot transition in NIL sequencer")
	}
	if t.cause != nil {
		log.WithError(t.cause).Error("sequencing aborted")
	}
	return nil
}
