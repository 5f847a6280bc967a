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
	"fmt"
	"time"

	"github.com/aesop-lite/control/common/product"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// aboutCmd represents the about command
var aboutCmd = &cobra.Command{
	Use:     "about",
	Aliases: []string{},
	Short:   fmt.Sprintf("about %s", product.NAME),
	Long:    `The about command shows some basic information on this utility.`,
	Run: func(*cobra.Command, []string) {
		color.Set(color.FgHiWhite)
		fmt.Print(product.PRETTY_SHORTNAME + " *** ")
		color.Set(color.FgHiGreen)
		fmt.Printf("The %s\n", product.PRETTY_FULLNAME)
		color.Unset()
		fmt.Printf(`
version:   %s
config:    %s
transport: %s
`,
			color.HiGreenString(viper.GetString("version")),
			color.HiGreenString(func() string {
				if len(viper.ConfigFileUsed()) > 0 {
					return viper.ConfigFileUsed()
				}
				return "builtin"
			}()),
			color.HiGreenString(viper.GetString("transport")))

		color.Set(color.FgHiBlue)
		fmt.Printf("\nCopyright 2019-%d the AESOP-Lite collaboration.\n"+
			"This program is free software: you can redistribute it and/or modify \n"+
			"it under the terms of the GNU General Public License as published by \n"+
			"the Free Software Foundation, either version 3 of the License, or \n"+
			"(at your option) any later version.\n", time.Now().Year())
		color.Unset()
	},
}

func init() {
	rootCmd.AddCommand(aboutCmd)
}
