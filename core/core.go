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

// Package core wires the sequencing engine to its collaborators: it
// builds the validated configuration, opens the device gateway, attaches
// the run log mirror and the optional bookkeeping catalog, and drives
// bring-up followed by the run loop.
package core

import (
	"time"

	"github.com/aesop-lite/control/common/logger"
	"github.com/aesop-lite/control/common/logger/runhook"
	"github.com/aesop-lite/control/core/bookkeeping"
	"github.com/aesop-lite/control/core/fault"
	"github.com/aesop-lite/control/core/instrument"
	"github.com/aesop-lite/control/device"
	"github.com/aesop-lite/control/device/psoc"
	"github.com/aesop-lite/control/device/sim"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "core")

// NewGateway builds the device gateway selected by the configuration:
// the simulated instrument for transport "sim", the serial PSOC client
// otherwise. The gateway is returned unconnected.
func NewGateway(cfg instrument.Config) device.Gateway {
	if cfg.Transport == "sim" {
		return sim.New()
	}
	return psoc.NewClient(psoc.Config{
		Path:        cfg.Transport,
		Baud:        cfg.Baud,
		Address:     cfg.Address,
		ReadTimeout: 2 * time.Second,
	})
}

// Run executes the full sequence: bring-up phases in fixed order, then
// the configured number of acquisition runs. It returns nil on normal
// completion and the escalated fault otherwise; the caller owns the
// process exit status.
func Run() error {
	cfg, err := instrument.ConfigFromViper()
	if err != nil {
		return err
	}

	gw := NewGateway(cfg)
	if err = gw.Connect(); err != nil {
		return err
	}
	defer func() {
		if cerr := gw.Close(); cerr != nil {
			log.WithError(cerr).Warn("cannot close gateway")
		}
	}()

	catalog, err := bookkeeping.Open(cfg.BookkeepingDSN)
	if err != nil {
		return err
	}
	defer catalog.Close()

	mirror := runhook.NewHook()
	logrus.AddHook(mirror)

	policy := fault.NewPolicy(cfg.AbortOnAnyFault)
	seq := instrument.NewSequencer(cfg, gw, policy)
	seq.SetMirror(mirror)
	seq.SetCatalog(catalog)

	log.WithField("session", seq.Id().String()).
		WithField("transport", cfg.Transport).
		WithField("runs", cfg.Runs).
		Infof("entering sequencing at %s", time.Now().Format(time.ANSIC))

	if err = seq.Bringup(); err != nil {
		return err
	}
	if err = seq.RunAll(); err != nil {
		return err
	}

	log.WithField("faults", policy.Ledger().Count()).Info("all runs complete")
	return nil
}
