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

package cmd

import (
	"github.com/aesop-lite/control/evtctl/control"
	"github.com/spf13/cobra"
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:     "plan",
	Aliases: []string{"p"},
	Short:   "show the effective run plan",
	Long: `The plan command prints the validated configuration the sequence
command would execute, without touching the instrument. Useful to check
what a settings file and flag combination actually resolves to.`,
	Run:  control.WrapOfflineCall(control.GetPlan),
	Args: cobra.NoArgs,
}

func init() {
	planCmd.Flags().StringP("format", "o", "table", "output format (table or yaml)")
	rootCmd.AddCommand(planCmd)
}
