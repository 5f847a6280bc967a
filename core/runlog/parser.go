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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Parse reads back the summary blocks of a sink file. A new block starts
// at every "Ending the run at" header; the run number is not part of the
// block (it is encoded in the file name), so callers reading a single-run
// file should set it themselves if they need it.
func Parse(r io.Reader) ([]Record, error) {
	var records []Record
	var cur *Record

	adcIndex := make(map[string]int, len(ADCNames))
	for i, name := range ADCNames {
		adcIndex[name] = i
	}
	singlesIndex := make(map[string]int, len(SinglesNames))
	for i, name := range SinglesNames {
		singlesIndex[name] = i
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "Ending the run at "):
			if cur != nil {
				records = append(records, *cur)
			}
			cur = &Record{FPGAConfig: "error"}
			ts := strings.TrimPrefix(line, "Ending the run at ")
			endedAt, err := time.Parse("Mon Jan _2 15:04:05 2006", ts)
			if err != nil {
				return nil, fmt.Errorf("bad timestamp %q: %w", ts, err)
			}
			cur.EndedAt = endedAt

		case cur == nil:
			// Preamble noise (mirrored log lines before the first block).
			continue

		case strings.HasPrefix(line, "Acquisition failed: "):
			cur.Acquired = false
			cur.FailureReason = strings.TrimPrefix(line, "Acquisition failed: ")

		case strings.HasPrefix(line, "Counter for channel: "):
			rest := strings.TrimPrefix(line, "Counter for channel: ")
			name, value, found := strings.Cut(rest, " = ")
			if !found {
				return nil, fmt.Errorf("bad counter line %q", line)
			}
			i, ok := singlesIndex[strings.TrimSpace(name)]
			if !ok {
				return nil, fmt.Errorf("unknown counter channel %q", name)
			}
			count, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("bad count in %q: %w", line, err)
			}
			cur.ChannelCounts[i] = count
			cur.ChannelRead[i] = true

		case strings.HasPrefix(line, "Tracker FPGA configuration: "):
			cur.FPGAConfig = strings.TrimPrefix(line, "Tracker FPGA configuration: ")

		case strings.Contains(line, " +- "):
			name, mean, sigma, err := parseValueLine(line)
			if err != nil {
				return nil, err
			}
			if name == "TOF2" {
				cur.TOFMean = mean
				cur.TOFSigma = sigma
				cur.Acquired = true
				continue
			}
			i, ok := adcIndex[name]
			if !ok {
				return nil, fmt.Errorf("unknown ADC channel %q", name)
			}
			cur.ADCMean[i] = mean
			cur.ADCSigma[i] = sigma
			cur.Acquired = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if cur != nil {
		records = append(records, *cur)
	}
	return records, nil
}

// ParseFile parses a single-run sink file and fills in the run number
// from the file name.
func ParseFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := Parse(f)
	if err != nil {
		return nil, err
	}

	var runNumber int
	if n, _ := fmt.Sscanf(filepath.Base(path), "dataOutput_run%d.txt", &runNumber); n == 1 {
		for i := range records {
			records[i].RunNumber = runNumber
		}
	}
	return records, nil
}

func parseValueLine(line string) (name string, mean, sigma float64, err error) {
	label, values, found := strings.Cut(line, ": ")
	if !found {
		return "", 0, 0, fmt.Errorf("bad value line %q", line)
	}
	name = strings.TrimSpace(label)
	m, s, found := strings.Cut(values, " +- ")
	if !found {
		return "", 0, 0, fmt.Errorf("bad value line %q", line)
	}
	mean, err = strconv.ParseFloat(strings.TrimSpace(m), 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("bad mean in %q: %w", line, err)
	}
	sigma, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("bad sigma in %q: %w", line, err)
	}
	return name, mean, sigma, nil
}
