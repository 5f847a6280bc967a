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

// Package instrument implements the phased bring-up and multi-run
// acquisition sequencer for the AESOP-Lite Event PSOC instrument. The
// bring-up is a linear progression through named phases, each wrapped by
// the fault policy; the run loop then executes the configured number of
// acquisition runs, one result sink block per run.
package instrument

import (
	"context"
	"errors"

	"github.com/aesop-lite/control/common/logger"
	"github.com/aesop-lite/control/common/logger/runhook"
	"github.com/aesop-lite/control/common/utils/uid"
	"github.com/aesop-lite/control/core/bookkeeping"
	"github.com/aesop-lite/control/core/fault"
	"github.com/aesop-lite/control/device"
	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "instrument")

// Sequencer drives the instrument through bring-up and the run loop.
// All gateway traffic is strictly sequential: one request/response in
// flight, phases in fixed order, runs in run-number order. There is no
// concurrency anywhere in the sequencing path.
type Sequencer struct {
	Sm *fsm.FSM

	id     uid.ID
	cfg    Config
	gw     device.Gateway
	policy *fault.Policy

	mirror  *runhook.Hook
	catalog *bookkeeping.Catalog

	asicConfig       device.ASICConfig
	currentRunNumber int
}

func NewSequencer(cfg Config, gw device.Gateway, policy *fault.Policy) *Sequencer {
	s := &Sequencer{
		id:         uid.New(),
		cfg:        cfg,
		gw:         gw,
		policy:     policy,
		asicConfig: device.DefaultASICConfig(),
	}

	s.Sm = fsm.NewFSM(
		"STANDBY",
		fsm.Events{
			{Name: "SYNC_CLOCK", Src: []string{"STANDBY"}, Dst: "CLOCK_SET"},
			{Name: "ECHO_CLOCK", Src: []string{"CLOCK_SET"}, Dst: "CLOCK_CHECKED"},
			{Name: "CONFIGURE_THRESHOLDS", Src: []string{"CLOCK_CHECKED"}, Dst: "THRESHOLDS_SET"},
			{Name: "ECHO_THRESHOLDS", Src: []string{"THRESHOLDS_SET"}, Dst: "THRESHOLDS_CHECKED"},
			{Name: "TRACKER_BRINGUP", Src: []string{"THRESHOLDS_CHECKED"}, Dst: "TRACKER_READY"},
			{Name: "CONFIGURE_TRIGGER", Src: []string{"TRACKER_READY"}, Dst: "TRIGGER_SET"},
			{Name: "ECHO_TRIGGER", Src: []string{"TRIGGER_SET"}, Dst: "TRIGGER_CHECKED"},
			{Name: "QUICK_CHECK", Src: []string{"TRIGGER_CHECKED"}, Dst: "CONFIGURED"},
			{Name: "START_ACTIVITY", Src: []string{"CONFIGURED"}, Dst: "RUNNING"},
			{Name: "STOP_ACTIVITY", Src: []string{"RUNNING"}, Dst: "CONFIGURED"},
			{Name: "EXIT", Src: []string{"CONFIGURED", "STANDBY"}, Dst: "DONE"},
			{Name: "GO_ERROR", Src: []string{"STANDBY", "CLOCK_SET", "CLOCK_CHECKED", "THRESHOLDS_SET",
				"THRESHOLDS_CHECKED", "TRACKER_READY", "TRIGGER_SET", "TRIGGER_CHECKED",
				"CONFIGURED", "RUNNING"}, Dst: "ERROR"},
		},
		fsm.Callbacks{
			"before_event": func(_ context.Context, e *fsm.Event) {
				log.WithFields(logrus.Fields{
					"event":   e.Event,
					"src":     e.Src,
					"dst":     e.Dst,
					"session": s.id.String(),
				}).Debug("sequencer.sm starting transition")

				if len(e.Args) == 0 {
					e.Cancel(errors.New("transition missing in FSM event"))
					return
				}
				transition, ok := e.Args[0].(Transition)
				if !ok {
					e.Cancel(errors.New("transition wrapping error"))
					return
				}
				if transition.eventName() == e.Event {
					transErr := transition.do(s)
					if transErr != nil {
						e.Cancel(transErr)
					}
				}
			},
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.WithFields(logrus.Fields{
					"event":   e.Event,
					"src":     e.Src,
					"dst":     e.Dst,
					"session": s.id.String(),
				}).Debug("sequencer.sm entering state")
			},
		},
	)
	return s
}

// Id returns the session id minted for this sequencer instance.
func (s *Sequencer) Id() uid.ID {
	if s == nil {
		return uid.NilID()
	}
	return s.id
}

func (s *Sequencer) CurrentRunNumber() int {
	return s.currentRunNumber
}

// SetMirror attaches the log hook which copies WARN+ entries into the
// open run file while a run is in progress.
func (s *Sequencer) SetMirror(h *runhook.Hook) {
	s.mirror = h
}

// SetCatalog attaches the optional run bookkeeping catalog.
func (s *Sequencer) SetCatalog(c *bookkeeping.Catalog) {
	s.catalog = c
}

// TryTransition verifies and executes a single transition. The fault
// policy inside the transition's do decides whether a failing gateway
// call cancels the event; a cancelled event leaves the FSM in its source
// state and surfaces the error here.
func (s *Sequencer) TryTransition(t Transition) (err error) {
	err = t.check()
	if err != nil {
		return err
	}
	return s.Sm.Event(context.Background(), t.eventName(), t)
}

// Bringup walks the fixed phase order of the instrument. Any critical
// fault aborts before the run loop; the FSM is parked in ERROR.
func (s *Sequencer) Bringup() error {
	transitions := []Transition{
		NewSyncClockTransition(),
		NewEchoClockTransition(),
		NewConfigureThresholdsTransition(),
		NewEchoThresholdsTransition(),
		NewTrackerBringupTransition(),
		NewConfigureTriggerTransition(),
		NewEchoTriggerTransition(),
		NewQuickCheckTransition(),
	}
	for _, t := range transitions {
		if err := s.TryTransition(t); err != nil {
			s.goError(err)
			return err
		}
	}
	log.WithField("session", s.id.String()).
		WithField("faults", s.policy.Ledger().Count()).
		Info("instrument configured")
	return nil
}

func (s *Sequencer) goError(cause error) {
	if goErr := s.TryTransition(NewGoErrorTransition(cause)); goErr != nil {
		log.WithError(goErr).Warn("cannot transition to ERROR")
	}
}
