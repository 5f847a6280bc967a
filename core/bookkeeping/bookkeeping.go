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

// Package bookkeeping records run metadata in the ground-segment MySQL
// catalog. It is optional: with an empty DSN every method is a no-op, so
// the run loop stays linear whether or not a database is reachable.
package bookkeeping

import (
	"github.com/aesop-lite/control/common/logger"
	"github.com/aesop-lite/control/core/runlog"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "bookkeeping")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_number   INT          NOT NULL,
	session_id   VARCHAR(32)  NOT NULL,
	events       INT          NOT NULL,
	acquired     BOOLEAN      NOT NULL,
	failure      TEXT,
	tof_mean     DOUBLE,
	tof_sigma    DOUBLE,
	fpga_config  VARCHAR(64),
	fault_count  INT          NOT NULL,
	ended_at     DATETIME,
	PRIMARY KEY (run_number, session_id)
)`

// Catalog is a nil-safe handle to the run catalog.
type Catalog struct {
	db *sqlx.DB
}

// Open connects to the catalog. An empty DSN returns a disabled catalog
// and no error.
func Open(dsn string) (*Catalog, error) {
	if dsn == "" {
		return &Catalog{}, nil
	}
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug("run catalog connected")
	return &Catalog{db: db}, nil
}

func (c *Catalog) Enabled() bool {
	return c != nil && c.db != nil
}

// RecordRun upserts the summary of one completed run iteration.
func (c *Catalog) RecordRun(rec *runlog.Record, sessionID string, faultDelta int) error {
	if !c.Enabled() {
		return nil
	}
	_, err := c.db.Exec(
		`REPLACE INTO runs
			(run_number, session_id, events, acquired, failure,
			 tof_mean, tof_sigma, fpga_config, fault_count, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunNumber, sessionID, rec.Events, rec.Acquired, rec.FailureReason,
		rec.TOFMean, rec.TOFSigma, rec.FPGAConfig, faultDelta, rec.EndedAt)
	return err
}

func (c *Catalog) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.db.Close()
}
