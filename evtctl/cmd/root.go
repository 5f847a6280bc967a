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

// Package cmd contains all the entry points for command line
// subcommands, following library convention.
package cmd

import (
	"fmt"
	"os"
	"path"

	"github.com/aesop-lite/control/common/logger"
	"github.com/aesop-lite/control/common/product"
	"github.com/aesop-lite/control/core"
	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logger.New(logrus.StandardLogger(), product.NAME)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   product.NAME,
	Short: product.PRETTY_FULLNAME,
	Long: fmt.Sprintf(`%s is a command line program for sequencing the %s
payload: instrument bring-up through the Event PSOC, followed by a fixed
number of acquisition runs.`, product.NAME, product.PRETTY_FULLNAME),
}

func GetRootCmd() *cobra.Command { // Used for docs generator
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.WithField("error", err).Fatal("cannot run command")
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	viper.Set("version", product.VERSION)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("configuration file (default $HOME/.config/%s/settings.yaml)", product.NAME))
	rootCmd.PersistentFlags().StringP("transport", "t", "/dev/ttyS0", "serial device path, or \"sim\" for the simulated instrument")
	rootCmd.PersistentFlags().Int("baud", 115200, "serial line baud rate")
	rootCmd.PersistentFlags().Int("address", 8, "Event PSOC bus address")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "show verbose output for debug purposes")

	_ = viper.BindPFlag("transport", rootCmd.PersistentFlags().Lookup("transport"))
	_ = viper.BindPFlag("baud", rootCmd.PersistentFlags().Lookup("baud"))
	_ = viper.BindPFlag("address", rootCmd.PersistentFlags().Lookup("address"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig seeds the defaults, then layers the settings file, the
// environment and the bound flags on top.
func initConfig() {
	if err := core.NewConfig(); err != nil {
		log.WithField("error", err).Error("cannot set up configuration")
		os.Exit(1)
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			log.WithField("error", err).Error("cannot find configuration file")
			os.Exit(1)
		}

		// Search config in .config/aesop-evtctl directory with name "settings.yaml"
		viper.AddConfigPath(path.Join(home, ".config/"+product.NAME))
		viper.SetConfigName("settings")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.WithField("file", viper.ConfigFileUsed()).
			Debug("configuration loaded")
	}

	if viper.GetBool("verbose") {
		logrus.SetLevel(logrus.DebugLevel)
	}
}
