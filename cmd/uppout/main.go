/*
 * main.go, part of uppout.
 *
 * Copyright 2026 The uppout Authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//uppout reads the output directories of UppASD simulations.
package main

import (
	"fmt"
	"os"

	"github.com/rmera/uppout"
	"github.com/rmera/uppout/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgPath string
	simid   string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "uppout",
	Short: "Read and check UppASD output directories",
	Long: `uppout reads the output files of UppASD spin dynamics and Monte Carlo runs.

A run is the set of files <prefix>.<simid>.out in one directory, where simid
is the 8 character identifier of the simulation. If --simid is not given, the
directory must hold a single simid.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("simid") {
			cfg.Simid = simid
		}
		level, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return err
		}
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		uppout.SetLogger(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "uppout.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVarP(&simid, "simid", "s", "", "simulation identifier (8 characters)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(summaryCmd, validateCmd, shellsCmd, collectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
