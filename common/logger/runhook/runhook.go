/*
 * === This file is part of AESOP-Lite Control ===
 *
 * Copyright 2020-2024 the AESOP-Lite collaboration.
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

// Package runhook provides a logrus hook which mirrors log entries into
// the output file of the acquisition run currently in progress, so that
// faults raised mid-run are recorded next to the run summary they affect.
package runhook

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const MAX_MESSAGE_SIZE = 1024

var mirroredLevels = []logrus.Level{
	logrus.PanicLevel,
	logrus.FatalLevel,
	logrus.ErrorLevel,
	logrus.WarnLevel,
}

var lineBreaksRe = regexp.MustCompile(`\r?\n`)

// Hook is attached to the standard logger once at startup and stays
// registered for the lifetime of the process. It only writes while a run
// sink is attached; between runs every entry is dropped.
type Hook struct {
	mu  sync.Mutex
	w   io.Writer
	run uint32
}

func NewHook() *Hook {
	return &Hook{}
}

// Attach directs mirrored entries to w until Detach is called.
// The sink is whatever file handle the run loop currently holds open,
// the hook never opens or closes anything itself.
func (h *Hook) Attach(runNumber uint32, w io.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.w = w
	h.run = runNumber
}

func (h *Hook) Detach() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.w = nil
	h.run = 0
}

func (h *Hook) Levels() []logrus.Level {
	return mirroredLevels
}

func (h *Hook) Fire(e *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.w == nil {
		return nil
	}

	var message strings.Builder
	message.WriteString(e.Message)

	extraFields := make(sort.StringSlice, 0)
	for k, v := range e.Data {
		if k == "prefix" {
			continue
		}
		var vStr string
		switch v := v.(type) {
		case string:
			vStr = v
		case []byte:
			vStr = string(v[:])
		case fmt.Stringer:
			vStr = v.String()
		default:
			vStr = fmt.Sprintf("%v", v)
		}
		extraFields = append(extraFields, fmt.Sprintf(" %s=\"%s\"", k, vStr))
	}
	extraFields.Sort()
	for _, v := range extraFields {
		message.WriteString(v)
	}

	messageStr := lineBreaksRe.ReplaceAllString(message.String(), " ")
	if len(messageStr) > MAX_MESSAGE_SIZE {
		messageStr = messageStr[:MAX_MESSAGE_SIZE]
	}

	line := fmt.Sprintf("%s %s: %s\n",
		e.Time.Format("15:04:05"),
		strings.ToUpper(e.Level.String()),
		messageStr)
	_, err := h.w.Write([]byte(line))
	if err != nil {
		return fmt.Errorf("run log hook error: %s", err.Error())
	}
	return nil
}
