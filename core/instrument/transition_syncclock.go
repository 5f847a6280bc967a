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

	"github.com/aesop-lite/control/common/utils"
	"github.com/aesop-lite/control/core/fault"
)

func NewSyncClockTransition() Transition {
	return &SyncClockTransition{
		baseTransition: baseTransition{name: "SYNC_CLOCK"},
	}
}

type SyncClockTransition struct {
	baseTransition
}

func (t SyncClockTransition) do(s *Sequencer) (err error) {
	if s == nil {
		return errors.New("cannot transition in NIL sequencer")
	}
	defer utils.TimeTrack(time.Now(), "SYNC_CLOCK", log.WithPrefix("instrument"))

	// Setting the RTC is known to fail on the first attempt after a PSOC
	// reboot; that failure is critical because every later timestamp
	// would be meaningless.
	_, err = s.policy.Attempt("RTC set", fault.CRITICAL, func() error {
		return s.gw.SetClock(time.Now())
	})
	return err
}
