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

// Package fault implements the fault classification policy of the
// sequencing engine. Every logical step against the instrument runs
// through Policy.Attempt, which contains a failure at the granularity of
// one step: a CRITICAL step's failure unwinds the whole sequence, a
// TOLERATED one is counted in the ledger and execution continues with the
// affected value treated as absent.
package fault

import (
	"fmt"

	"github.com/aesop-lite/control/common/logger"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "fault")

// Event is the ledger entry for one caught fault. Seq is the 1-based
// ordinal of the fault among all faults so far, equal to the ledger count
// at the time of capture.
type Event struct {
	Phase   string
	Seq     int
	Class   Classification
	Message string
}

func (e Event) String() string {
	return fmt.Sprintf("fault #%d (%s) during %s: %s", e.Seq, e.Class, e.Phase, e.Message)
}

// CriticalError wraps the Event which terminated sequencing, either
// because its step was CRITICAL or because abort-on-any-fault is set.
// It unwinds to core.Run; nothing below main ever exits the process.
type CriticalError struct {
	Event Event
}

func (e *CriticalError) Error() string {
	return fmt.Sprintf("critical %s", e.Event.String())
}

// Ledger is the append-only process-wide fault log. Events are never
// removed and the count never decreases.
type Ledger struct {
	events []Event
}

func (l *Ledger) append(e Event) {
	l.events = append(l.events, e)
}

func (l *Ledger) Count() int {
	return len(l.events)
}

func (l *Ledger) Events() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Policy wraps every sequencing step with the classification rules of the
// instrument. The zero value is not usable, construct with NewPolicy.
type Policy struct {
	ledger          *Ledger
	abortOnAnyFault bool
}

func NewPolicy(abortOnAnyFault bool) *Policy {
	return &Policy{
		ledger:          &Ledger{},
		abortOnAnyFault: abortOnAnyFault,
	}
}

func (p *Policy) Ledger() *Ledger {
	return p.ledger
}

// Attempt runs op as one logical step named step. On success it returns
// (true, nil). On failure it appends one Event to the ledger and logs it;
// if class is CRITICAL, or abort-on-any-fault is set, it returns a
// *CriticalError for the caller to unwind with, otherwise (false, nil) so
// the caller continues with its fallback.
func (p *Policy) Attempt(step string, class Classification, op func() error) (ok bool, err error) {
	opErr := op()
	if opErr == nil {
		return true, nil
	}

	ev := Event{
		Phase:   step,
		Seq:     p.ledger.Count() + 1,
		Class:   class,
		Message: opErr.Error(),
	}
	p.ledger.append(ev)

	entry := log.WithField("phase", ev.Phase).
		WithField("seq", ev.Seq).
		WithField("class", ev.Class.String())

	if class == CRITICAL || p.abortOnAnyFault {
		entry.WithError(opErr).Error("critical fault, aborting sequence")
		return false, &CriticalError{Event: ev}
	}
	entry.WithError(opErr).Warn("fault tolerated, continuing")
	return false, nil
}

// AttemptEach runs op once per id, each wrapped as its own step so that a
// single item's fault never aborts the remaining items. unit names the
// kind of id ("board", "channel") for the ledger. Escalation via CRITICAL
// classification or abort-on-any-fault still unwinds immediately.
// ok reports whether every item succeeded.
func (p *Policy) AttemptEach(step string, unit string, class Classification, ids []int, op func(id int) error) (ok bool, err error) {
	ok = true
	for _, id := range ids {
		id := id
		itemOk, itemErr := p.Attempt(fmt.Sprintf("%s [%s %d]", step, unit, id), class, func() error {
			return op(id)
		})
		if itemErr != nil {
			return false, itemErr
		}
		if !itemOk {
			ok = false
		}
	}
	return ok, nil
}
