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

package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileName returns the sink file name for a run number. The name is fixed
// by the downstream analysis tooling, do not change it.
func FileName(runNumber int) string {
	return fmt.Sprintf("dataOutput_run%d.txt", runNumber)
}

// Writer appends one summary block to the sink file of a single run.
// All methods are nil-safe so the run loop stays linear even when the
// file could not be opened.
type Writer struct {
	f    *os.File
	path string
}

// Open opens (creating if needed) the sink file for runNumber in dir, in
// append mode.
func Open(dir string, runNumber int) (*Writer, error) {
	path := filepath.Join(dir, FileName(runNumber))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &Writer{f: f, path: path}, nil
}

func (w *Writer) Path() string {
	if w == nil {
		return ""
	}
	return w.path
}

// Sink exposes the underlying file handle for the log mirror hook.
func (w *Writer) Sink() io.Writer {
	if w == nil || w.f == nil {
		return nil
	}
	return w.f
}

// WriteSummary writes the timestamped header and the ADC/TOF value lines.
// When the record's acquisition failed, the value lines are replaced by a
// single failure line so the block count per run stays one either way.
func (w *Writer) WriteSummary(rec *Record) error {
	if w == nil || w.f == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w.f, "Ending the run at %s\n", rec.EndedAt.Format("Mon Jan _2 15:04:05 2006")); err != nil {
		return err
	}
	if !rec.Acquired {
		_, err := fmt.Fprintf(w.f, "Acquisition failed: %s\n", rec.FailureReason)
		return err
	}
	if _, err := fmt.Fprintln(w.f, "Average ADC values:"); err != nil {
		return err
	}
	for i, name := range ADCNames {
		if _, err := fmt.Fprintf(w.f, "%7s: %g +- %g\n", name, rec.ADCMean[i], rec.ADCSigma[i]); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w.f, "%7s: %g +- %g\n", "TOF2", rec.TOFMean, rec.TOFSigma)
	return err
}

// WriteChannelCount appends one singles-count line.
func (w *Writer) WriteChannelCount(name string, count int) error {
	if w == nil || w.f == nil {
		return nil
	}
	_, err := fmt.Fprintf(w.f, "Counter for channel: %s = %d\n", name, count)
	return err
}

// WriteFPGAConfig appends the tracker diagnostic line.
func (w *Writer) WriteFPGAConfig(config string) error {
	if w == nil || w.f == nil {
		return nil
	}
	_, err := fmt.Fprintf(w.f, "Tracker FPGA configuration: %s\n", config)
	return err
}

func (w *Writer) Close() error {
	if w == nil || w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
