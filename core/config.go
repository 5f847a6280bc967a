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

package core

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func setDefaults() error {
	viper.Set("component", "evtctl")

	viper.SetDefault("address", 8)
	viper.SetDefault("events", 1000)
	viper.SetDefault("firstRun", 320)
	viper.SetDefault("runs", 3)
	viper.SetDefault("transport", "/dev/ttyS0")
	viper.SetDefault("baud", 115200)
	viper.SetDefault("boards", []int{0, 1, 2, 3, 4, 5, 6, 7})
	viper.SetDefault("asicReset", true)
	viper.SetDefault("abortOnAnyFault", false)
	viper.SetDefault("pmtThresholds", []int{3, 4, 4, 3, 60})
	viper.SetDefault("tofThresholds", []int{49, 49})
	viper.SetDefault("triggerMask", 0x06)
	viper.SetDefault("triggerWindow", 16)
	viper.SetDefault("prescaleTarget", "PMT")
	viper.SetDefault("prescale", 4)
	viper.SetDefault("secondaryMask", 0x00)
	viper.SetDefault("settleDelay", 100*time.Millisecond)
	viper.SetDefault("dataDir", ".")
	viper.SetDefault("bookkeepingDsn", "")
	viper.SetDefault("verbose", false)
	return nil
}

// Bind environment variables with the prefix EVTCTL
// e.g. EVTCTL_TRANSPORT
func bindEnvironmentVariables() {
	viper.SetEnvPrefix("EVTCTL")
	viper.AutomaticEnv()
}

// NewConfig seeds the configuration defaults. CLI flags are bound on top
// of these by the command layer before Run is called.
func NewConfig() (err error) {
	if err = setDefaults(); err != nil {
		return
	}
	bindEnvironmentVariables()

	if viper.GetBool("verbose") {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return
}
