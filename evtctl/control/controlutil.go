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

package control

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	green  = color.New(color.FgHiGreen).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
	red    = color.New(color.FgHiRed).SprintFunc()
	grey   = color.New(color.FgWhite).SprintFunc()
)

func colorBool(v bool) string {
	if v {
		return green("yes")
	}
	return red("no")
}

// formatVoltage colors the battery voltage by how close the pack is to
// its cutoff.
func formatVoltage(v float64) string {
	formatted := fmt.Sprintf("%.3f V", v)
	switch {
	case v >= 3.6:
		return green(formatted)
	case v >= 3.3:
		return yellow(formatted)
	default:
		return red(formatted)
	}
}

func formatBoards(boards []int) string {
	if len(boards) == 0 {
		return grey("none (tracker disabled)")
	}
	return formatInts(boards)
}

func formatInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}

func formatBookkeeping(dsn string) string {
	if len(dsn) == 0 {
		return grey("disabled")
	}
	return green("enabled")
}

func drawTable(headers []string, rows [][]string, o io.Writer) {
	table := tablewriter.NewWriter(o)
	table.SetHeader(headers)
	table.SetBorder(false)
	fg := tablewriter.Colors{tablewriter.Bold, tablewriter.FgYellowColor}
	fgColSlice := make([]tablewriter.Colors, len(headers))
	for i := 0; i < len(headers); i++ {
		fgColSlice[i] = fg
	}
	table.SetHeaderColor(fgColSlice...)

	table.AppendBulk(rows)
	table.Render()
}
