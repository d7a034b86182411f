/*
 * schema.go, part of uppout.
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

//Package schema holds the column layouts of the UppASD output files, keyed by
//the file prefix (the part of the file name before the simulation id).
//The registry is a set of constants: nothing in it changes after start-up.
package schema

import (
	"sort"

	"github.com/rmera/uppout/table"
)

//Prefix is the file-type tag that precedes the simulation id in an output file name.
type Prefix string

const (
	Averages      Prefix = "averages"
	Cumulants     Prefix = "cumulants"
	Coord         Prefix = "coord"
	Restart       Prefix = "restart"
	MCInitial     Prefix = "mcinitial"
	Struct        Prefix = "struct"
	TotEnergy     Prefix = "totenergy"
	StdEnergy     Prefix = "stdenergy"
	ProjAverages  Prefix = "projavgs"
	ProjCumulants Prefix = "projcumulants"
)

//Layout describes how to read one kind of output file.
type Layout struct {
	Prefix Prefix
	//Columns are the columns kept in the table, in file order.
	Columns []table.Column
	//Skip is the number of leading fields on each data line that are discarded.
	//Restart files start every line with the iteration number, for instance.
	Skip int
	//TitleRow is true if the first non-comment line may be a row of column titles.
	TitleRow bool
	//Comment starts a comment/header line.
	Comment string
}

//Fields returns the number of whitespace-separated fields expected on a data line.
func (L Layout) Fields() int { return L.Skip + len(L.Columns) }

//Names returns the column names of the layout.
func (L Layout) Names() []string {
	ret := make([]string, len(L.Columns))
	for i, c := range L.Columns {
		ret[i] = c.Name
	}
	return ret
}

//Column returns the column with the given name.
func (L Layout) Column(name string) (table.Column, bool) {
	for _, c := range L.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return table.Column{}, false
}

//NewTable returns an empty table with the columns of the layout.
func (L Layout) NewTable() *table.Table {
	return table.New(L.Columns...)
}

var (
	averagesCols = []table.Column{table.I("iter"), table.F("Mx"), table.F("My"), table.F("Mz"), table.F("M"), table.F("M_stdv")}

	cumulantsCols = []table.Column{table.I("iter"), table.F("M"), table.F("M2"), table.F("M4"), table.F("Binder"),
		table.F("chi"), table.F("Cv"), table.F("E"), table.F("E_exch"), table.F("E_lsf")}

	coordCols = []table.Column{table.I("at_num"), table.F("x"), table.F("y"), table.F("z"), table.I("at_type"), table.I("at_num_cell")}

	restartCols = []table.Column{table.I("ens_num"), table.I("at_num"), table.F("mom"), table.F("mx"), table.F("my"), table.F("mz")}

	structCols = []table.Column{table.I("at1_num"), table.I("at2_num"), table.I("at1_type"), table.I("at2_type"),
		table.F("rx"), table.F("ry"), table.F("rz"), table.F("Jexch"), table.F("dist")}

	energyCols = []table.Column{table.I("iter"), table.F("tot"), table.F("exch"), table.F("aniso"), table.F("DM"),
		table.F("PD"), table.F("BiqDM"), table.F("BQ"), table.F("dip"), table.F("Zeeman"), table.F("LSF"),
		table.F("chir"), table.F("ring"), table.F("sa")}

	projAvgsCols = []table.Column{table.I("iter"), table.I("proj"), table.F("M"), table.F("M_stdv"), table.F("Mx"), table.F("My"), table.F("Mz")}

	projCumulantsCols = []table.Column{table.I("iter"), table.I("proj"), table.F("M"), table.F("M2"), table.F("M4"), table.F("Binder"), table.F("chi")}
)

var registry = map[Prefix]Layout{
	Averages:      {Prefix: Averages, Columns: averagesCols, TitleRow: true, Comment: "#"},
	Cumulants:     {Prefix: Cumulants, Columns: cumulantsCols, TitleRow: true, Comment: "#"},
	Coord:         {Prefix: Coord, Columns: coordCols, Comment: "#"},
	Restart:       {Prefix: Restart, Columns: restartCols, Skip: 1, Comment: "#"},
	MCInitial:     {Prefix: MCInitial, Columns: restartCols, Skip: 1, Comment: "#"},
	Struct:        {Prefix: Struct, Columns: structCols, Comment: "#"},
	TotEnergy:     {Prefix: TotEnergy, Columns: energyCols, TitleRow: true, Comment: "#"},
	StdEnergy:     {Prefix: StdEnergy, Columns: energyCols, TitleRow: true, Comment: "#"},
	ProjAverages:  {Prefix: ProjAverages, Columns: projAvgsCols, TitleRow: true, Comment: "#"},
	ProjCumulants: {Prefix: ProjCumulants, Columns: projCumulantsCols, TitleRow: true, Comment: "#"},
}

//Lookup returns the layout registered for the prefix. The returned layout
//shares nothing with the registry.
func Lookup(p Prefix) (Layout, bool) {
	L, ok := registry[p]
	if !ok {
		return Layout{}, false
	}
	cols := make([]table.Column, len(L.Columns))
	copy(cols, L.Columns)
	L.Columns = cols
	return L, true
}

//Known returns true if there is a layout for the prefix.
func Known(p Prefix) bool {
	_, ok := registry[p]
	return ok
}

//Prefixes returns all registered prefixes, sorted.
func Prefixes() []Prefix {
	ret := make([]Prefix, 0, len(registry))
	for p := range registry {
		ret = append(ret, p)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}
