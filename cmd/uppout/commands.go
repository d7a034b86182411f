/*
 * commands.go, part of uppout.
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

package main

import (
	"fmt"

	"github.com/rmera/uppout"
	"github.com/rmera/uppout/collect"
	"github.com/rmera/uppout/shell"
	"github.com/rmera/uppout/validate"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary [dir]",
	Short: "Print the files, atom counts and box of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := uppout.Open(args[0], cfg.Simid)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), r.Summary())
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check a run for duplicated atoms and bonds, and count mismatches",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := uppout.Open(args[0], cfg.Simid)
		if err != nil {
			return err
		}
		rep, err := validate.CheckRun(r, cfg.ValidateOptions())
		if rep != nil && !rep.Empty() {
			fmt.Fprint(cmd.OutOrStdout(), rep.String())
			return fmt.Errorf("%s: %d violations", r, len(rep.Violations))
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no problems found\n", r)
		return nil
	},
}

var (
	shellAtoms    []int
	shellCutoff   float64
	shellClassify bool
)

var shellsCmd = &cobra.Command{
	Use:   "shells [dir]",
	Short: "Group the neighbours of some atoms into shells by distance",
	Long: `Groups the neighbours of each atom given with --atom into coordination
shells, using the positions in the coord file. With --classify, the
neighbour list in the struct file is summarized instead, by neighbour type,
distance and exchange coupling.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := uppout.Open(args[0], cfg.Simid)
		if err != nil {
			return err
		}
		o, periodic := cfg.ShellOptions()
		if cmd.Flags().Changed("cutoff") {
			o.Cutoff = shellCutoff
		}
		out := cmd.OutOrStdout()
		if shellClassify {
			st, err := r.Struct()
			if err != nil {
				return err
			}
			for _, a := range shellAtoms {
				groups, err := shell.Classify(st, a, 4, 6)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "atom %d\n", a)
				for _, g := range groups {
					fmt.Fprintf(out, "  type %d: %d at %.4f, J %.6g\n", g.Type, g.Count, g.Dist, g.Jexch)
				}
			}
			return nil
		}
		for _, a := range shellAtoms {
			shells, err := shell.FromRun(r, a, periodic, o)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "atom %d\n", a)
			for _, s := range shells {
				fmt.Fprintf(out, "  %s\n", s)
			}
		}
		return nil
	},
}

var (
	collectOut      string
	collectQuantity string
	collectWorkers  int
)

var collectCmd = &cobra.Command{
	Use:   "collect [root] [template]",
	Short: "Aggregate a quantity over run directories named after a parameter",
	Long: `Reads every directory in root whose name matches template, which has one
{name} placeholder, for instance T{temp}. The parameter values are taken from
the directory names. The table is printed as CSV, or written with --out
(.csv or .json, optionally .gz or .zst).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 2 {
			cfg.Collect.Template = args[1]
		}
		if cfg.Collect.Template == "" {
			return fmt.Errorf("no directory template given")
		}
		if cmd.Flags().Changed("quantity") {
			cfg.Collect.Quantity = collectQuantity
		}
		if cmd.Flags().Changed("workers") {
			cfg.Collect.Workers = collectWorkers
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		o, q, err := cfg.CollectOptions()
		if err != nil {
			return err
		}
		ds, err := collect.Collect(args[0], cfg.Collect.Template, q, o)
		if ds != nil {
			for _, d := range ds.Diagnostics {
				fmt.Fprintln(cmd.ErrOrStderr(), d)
			}
		}
		if err != nil {
			return err
		}
		if collectOut != "" {
			return ds.WriteFile(collectOut)
		}
		return ds.Table().WriteCSV(cmd.OutOrStdout())
	},
}

func init() {
	shellsCmd.Flags().IntSliceVarP(&shellAtoms, "atom", "a", []int{1}, "reference atom numbers")
	shellsCmd.Flags().Float64Var(&shellCutoff, "cutoff", 3.0, "neighbour search radius")
	shellsCmd.Flags().BoolVar(&shellClassify, "classify", false, "summarize the struct file neighbour list")

	collectCmd.Flags().StringVarP(&collectOut, "out", "o", "", "output file")
	collectCmd.Flags().StringVarP(&collectQuantity, "quantity", "q", "averages", "averages, cumulants or totenergy")
	collectCmd.Flags().IntVarP(&collectWorkers, "workers", "j", 1, "runs processed at the same time")
}
