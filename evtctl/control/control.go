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

// Package control handles the details of direct instrument calls made on
// behalf of CLI subcommands.
package control

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aesop-lite/control/common/logger"
	"github.com/aesop-lite/control/core"
	"github.com/aesop-lite/control/core/instrument"
	"github.com/aesop-lite/control/device"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var log = logger.New(logrus.StandardLogger(), "evtctl")

type RunFunc func(*cobra.Command, []string)

type ControlCall func(gw device.Gateway, cfg instrument.Config, cmd *cobra.Command, args []string, o io.Writer) error

// WrapCall builds the validated configuration, connects the gateway and
// runs the wrapped call against it. Output is buffered so partial tables
// never reach the terminal on error.
func WrapCall(call ControlCall) RunFunc {
	return func(cmd *cobra.Command, args []string) {
		cfg, err := instrument.ConfigFromViper()
		if err != nil {
			log.WithPrefix(cmd.Use).
				WithField("error", err).
				Fatal("invalid configuration")
			os.Exit(1)
		}

		gw := core.NewGateway(cfg)
		if err = gw.Connect(); err != nil {
			log.WithPrefix(cmd.Use).
				WithField("transport", cfg.Transport).
				WithField("error", err).
				Fatal("cannot connect to instrument")
			os.Exit(1)
		}
		defer func() {
			if cerr := gw.Close(); cerr != nil {
				log.WithPrefix(cmd.Use).WithError(cerr).Warn("cannot close gateway")
			}
		}()

		var out strings.Builder
		if err = call(gw, cfg, cmd, args, &out); err != nil {
			var fields logrus.Fields
			if logrus.GetLevel() == logrus.DebugLevel {
				fields = logrus.Fields{"error": err}
			}
			log.WithPrefix(cmd.Use).
				WithFields(fields).
				Fatal("command finished with error")
			os.Exit(1)
		}

		fmt.Print(out.String())
	}
}

// WrapOfflineCall runs a call that only needs the validated
// configuration, without touching the instrument.
func WrapOfflineCall(call ControlCall) RunFunc {
	return func(cmd *cobra.Command, args []string) {
		cfg, err := instrument.ConfigFromViper()
		if err != nil {
			log.WithPrefix(cmd.Use).
				WithField("error", err).
				Fatal("invalid configuration")
			os.Exit(1)
		}

		var out strings.Builder
		if err = call(nil, cfg, cmd, args, &out); err != nil {
			log.WithPrefix(cmd.Use).
				WithField("error", err).
				Fatal("command finished with error")
			os.Exit(1)
		}
		fmt.Print(out.String())
	}
}

// GetStatus reads back the live state of the Event PSOC and, when boards
// are configured, a per-board tracker summary.
func GetStatus(gw device.Gateway, cfg instrument.Config, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	clock, err := gw.Clock()
	if err != nil {
		return err
	}
	version, err := gw.FirmwareVersion()
	if err != nil {
		return err
	}
	telemetry, err := gw.Telemetry()
	if err != nil {
		return err
	}
	enabled, err := gw.TriggerEnabled()
	if err != nil {
		return err
	}
	mask, err := gw.TriggerMask(1)
	if err != nil {
		return err
	}

	skew := time.Since(clock).Round(time.Second)
	_, _ = fmt.Fprintf(o, "instrument clock:  %s (skew %s)\n", clock.Format(time.ANSIC), skew)
	_, _ = fmt.Fprintf(o, "firmware version:  %s\n", green(version))
	_, _ = fmt.Fprintf(o, "battery voltage:   %s\n", formatVoltage(telemetry.BatteryVoltage))
	_, _ = fmt.Fprintf(o, "board temperature: %s\n", green(fmt.Sprintf("%.1f C", telemetry.TemperatureC)))
	_, _ = fmt.Fprintf(o, "trigger enabled:   %s\n", colorBool(enabled))
	_, _ = fmt.Fprintf(o, "trigger mask:      %s\n", green(fmt.Sprintf("0x%02x", mask)))

	names := make([]string, 0, len(telemetry.Voltages))
	for name := range telemetry.Voltages {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%.3f V", telemetry.Voltages[name]),
			fmt.Sprintf("%.3f A", telemetry.Currents[name]),
		})
	}
	_, _ = fmt.Fprintln(o)
	drawTable([]string{"bus", "voltage", "current"}, rows, o)

	if len(cfg.Boards) == 0 {
		return nil
	}

	rows = rows[:0]
	for _, board := range cfg.Boards {
		fpgaVersion, verr := gw.FirmwareVersionOf(board)
		if verr != nil {
			fpgaVersion = red("unreadable")
		}
		temperature := red("unreadable")
		if t, terr := gw.TemperatureOf(board); terr == nil {
			temperature = fmt.Sprintf("%.1f C", t)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", board),
			fpgaVersion,
			temperature,
		})
	}
	_, _ = fmt.Fprintln(o)
	drawTable([]string{"board", "firmware", "temperature"}, rows, o)
	return nil
}

// GetPlan echoes the effective run plan: the validated configuration the
// sequence command would execute right now.
func GetPlan(gw device.Gateway, cfg instrument.Config, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}

	switch format {
	case "yaml":
		var raw []byte
		if raw, err = yaml.Marshal(planDocument(cfg)); err != nil {
			return err
		}
		_, err = o.Write(raw)
		return err
	case "table":
		lastRun := cfg.FirstRun + cfg.Runs - 1
		rows := [][]string{
			{"transport", cfg.Transport},
			{"runs", fmt.Sprintf("%d..%d (%d)", cfg.FirstRun, lastRun, cfg.Runs)},
			{"events per run", fmt.Sprintf("%d", cfg.Events)},
			{"tracker boards", formatBoards(cfg.Boards)},
			{"ASIC power cycle", fmt.Sprintf("%t", cfg.ASICReset)},
			{"abort on any fault", fmt.Sprintf("%t", cfg.AbortOnAnyFault)},
			{"PMT thresholds", formatInts(cfg.PMTThresholds[:])},
			{"TOF thresholds", formatInts(cfg.TOFThresholds[:])},
			{"trigger mask", fmt.Sprintf("0x%02x", cfg.TriggerMask)},
			{"trigger window", fmt.Sprintf("%d cycles", cfg.TriggerWindow)},
			{"prescale", fmt.Sprintf("%s / %d", cfg.PrescaleTarget, cfg.Prescale)},
			{"secondary mask", fmt.Sprintf("0x%02x", cfg.SecondaryMask)},
			{"data directory", cfg.DataDir},
			{"bookkeeping", formatBookkeeping(cfg.BookkeepingDSN)},
		}
		drawTable([]string{"setting", "value"}, rows, o)
		return nil
	default:
		return fmt.Errorf("unknown format %q, want table or yaml", format)
	}
}

// planDocument is the yaml shape of the plan output. Field order follows
// the bring-up sequence rather than the Config declaration.
func planDocument(cfg instrument.Config) any {
	return struct {
		Transport       string        `yaml:"transport"`
		Address         int           `yaml:"address"`
		FirstRun        int           `yaml:"firstRun"`
		Runs            int           `yaml:"runs"`
		Events          int           `yaml:"events"`
		Boards          []int         `yaml:"boards"`
		ASICReset       bool          `yaml:"asicReset"`
		AbortOnAnyFault bool          `yaml:"abortOnAnyFault"`
		PMTThresholds   []int         `yaml:"pmtThresholds"`
		TOFThresholds   []int         `yaml:"tofThresholds"`
		TriggerMask     int           `yaml:"triggerMask"`
		TriggerWindow   int           `yaml:"triggerWindow"`
		PrescaleTarget  string        `yaml:"prescaleTarget"`
		Prescale        int           `yaml:"prescale"`
		SecondaryMask   int           `yaml:"secondaryMask"`
		SettleDelay     time.Duration `yaml:"settleDelay"`
		DataDir         string        `yaml:"dataDir"`
	}{
		Transport:       cfg.Transport,
		Address:         cfg.Address,
		FirstRun:        cfg.FirstRun,
		Runs:            cfg.Runs,
		Events:          cfg.Events,
		Boards:          cfg.Boards,
		ASICReset:       cfg.ASICReset,
		AbortOnAnyFault: cfg.AbortOnAnyFault,
		PMTThresholds:   cfg.PMTThresholds[:],
		TOFThresholds:   cfg.TOFThresholds[:],
		TriggerMask:     int(cfg.TriggerMask),
		TriggerWindow:   cfg.TriggerWindow,
		PrescaleTarget:  cfg.PrescaleTarget,
		Prescale:        cfg.Prescale,
		SecondaryMask:   int(cfg.SecondaryMask),
		SettleDelay:     cfg.SettleDelay,
		DataDir:         cfg.DataDir,
	}
}
