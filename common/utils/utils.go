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

package utils

import (
	"fmt"
	"regexp"
	"runtime"
	"time"
	"unicode/utf8"

	"github.com/aesop-lite/control/common/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func TimeTrack(start time.Time, name string, log *logrus.Entry) {
	if !viper.GetBool("verbose") {
		return
	}

	if log == nil {
		log = logger.New(logrus.StandardLogger(), "debug").WithPrefix("debug")
	}
	elapsed := time.Since(start)
	log.Debugf("%s took %s", name, elapsed)
}

func TimeTrackFunction(start time.Time, log *logrus.Entry) {
	// Skip this function, and fetch the PC and file for its parent.
	pc, _, _, _ := runtime.Caller(1)

	// Retrieve a function object this functions parent.
	funcObj := runtime.FuncForPC(pc)

	// Regex to extract just the function name (and not the module path).
	runtimeFunc := regexp.MustCompile(`^.*\.(.*)$`)
	name := runtimeFunc.ReplaceAllString(funcObj.Name(), "$1")
	log = log.WithField("method", funcObj.Name())

	TimeTrack(start, name, log)
}

func NewUnixTimestamp() string {
	return fmt.Sprintf("%f", float64(time.Now().UnixNano())/1e9)
}

func IntSliceContains(s []int, n int) bool {
	for _, a := range s {
		if a == n {
			return true
		}
	}
	return false
}

func TruncateString(str string, length int) string {
	if length <= 0 {
		return ""
	}

	if utf8.RuneCountInString(str) < length {
		return str
	}

	return string([]rune(str)[:length])
}
