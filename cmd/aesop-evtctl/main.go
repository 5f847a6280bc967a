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

package main

import (
	"os"

	"github.com/aesop-lite/control/evtctl/cmd"
	log "github.com/sirupsen/logrus"
	"github.com/teo/logrus-prefixed-formatter"
)

func init() {
	log.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp: true,
		SpacePadding:  20,
		PrefixPadding: 12,

		// Needed for colored stdout/stderr in GoLand, IntelliJ, etc.
		ForceColors:     true,
		ForceFormatting: true,
	})
	log.SetOutput(os.Stdout)
}

func main() {
	cmd.Execute()
}
