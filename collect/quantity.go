/*
 * quantity.go, part of uppout.
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

package collect

import (
	"fmt"

	"github.com/rmera/uppout"
	"github.com/rmera/uppout/schema"
	"github.com/rmera/uppout/table"
	"gonum.org/v1/gonum/stat"
)

//Quantity is what is extracted from each run. Compute must return one value
//per column.
type Quantity struct {
	Name    string
	Columns []string
	Compute func(r *uppout.Run) ([]float64, error)
}

//Window selects the rows of a time series that are summarized into one value
//per column. A zero Step takes the last row. Otherwise the mean over rows
//Start, Start+Step, ... before End is used; End <= 0 means the last row.
type Window struct {
	Start, End, Step int
}

//Last is the window with only the last row.
var Last = Window{}

//Reduce summarizes the given columns of t over the window.
func (W Window) Reduce(t *table.Table, cols []string) ([]float64, error) {
	if t.Empty() {
		return nil, fmt.Errorf("collect: no data rows in %s", t.Source())
	}
	ret := make([]float64, len(cols))
	if W.Step == 0 {
		for i, c := range cols {
			ret[i] = t.Float(c, t.Len()-1)
		}
		return ret, nil
	}
	sel := t.Slice(W.Start, W.End, W.Step)
	if sel.Empty() {
		return nil, fmt.Errorf("collect: window %+v selects no rows of %s (%d rows)", W, t.Source(), t.Len())
	}
	for i, c := range cols {
		ret[i] = stat.Mean(sel.Col(c), nil)
	}
	return ret, nil
}

//fromPrefix builds a quantity that reduces some columns of the file of prefix p.
//names are the column names in the result, in the same order as cols.
func fromPrefix(p schema.Prefix, w Window, cols, names []string) Quantity {
	return Quantity{
		Name:    string(p),
		Columns: names,
		Compute: func(r *uppout.Run) ([]float64, error) {
			t, err := r.Read(p)
			if err != nil {
				return nil, err
			}
			return w.Reduce(t, cols)
		},
	}
}

//nonIter returns the columns of the layout of p other than iter.
func nonIter(p schema.Prefix) []string {
	L, _ := schema.Lookup(p)
	var ret []string
	for _, n := range L.Names() {
		if n != "iter" {
			ret = append(ret, n)
		}
	}
	return ret
}

//Averages gives the magnetization of each run: Mx, My, Mz, M and M_std.
func Averages(w Window) Quantity {
	return fromPrefix(schema.Averages, w,
		[]string{"Mx", "My", "Mz", "M", "M_stdv"},
		[]string{"Mx", "My", "Mz", "M", "M_std"})
}

//Cumulants gives every cumulants column except iter.
func Cumulants(w Window) Quantity {
	c := nonIter(schema.Cumulants)
	return fromPrefix(schema.Cumulants, w, c, c)
}

//Energy gives every totenergy column except iter.
func Energy(w Window) Quantity {
	c := nonIter(schema.TotEnergy)
	return fromPrefix(schema.TotEnergy, w, c, c)
}

//ByName returns the quantity called name: averages, cumulants or totenergy.
func ByName(name string, w Window) (Quantity, error) {
	switch name {
	case "averages":
		return Averages(w), nil
	case "cumulants":
		return Cumulants(w), nil
	case "totenergy", "energy":
		return Energy(w), nil
	}
	return Quantity{}, fmt.Errorf("collect: unknown quantity %q", name)
}
