/*
 * neighbors.go, part of uppout.
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

package shell

import (
	"fmt"
	"math"
	"sort"

	"github.com/rmera/uppout"
	"github.com/rmera/uppout/table"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

//Neighbor is one entry of the neighbour list of an atom in a struct file.
type Neighbor struct {
	Num   int
	Type  int
	R     r3.Vec //bond vector
	Jexch float64
	Dist  float64
}

//Neighbors returns the neighbours of atom atNum listed in a struct table, in
//file order. An atom without entries gives an AtomNotFound error.
func Neighbors(st *table.Table, atNum int) ([]Neighbor, error) {
	sel := st.Where("at1_num", float64(atNum))
	if sel.Empty() {
		return nil, uppout.NewError(uppout.AtomNotFound, st.Source(), fmt.Sprintf("no neighbours for atom %d", atNum))
	}
	ret := make([]Neighbor, sel.Len())
	for i := range ret {
		ret[i] = Neighbor{
			Num:   sel.Int("at2_num", i),
			Type:  sel.Int("at2_type", i),
			R:     r3.Vec{X: sel.Float("rx", i), Y: sel.Float("ry", i), Z: sel.Float("rz", i)},
			Jexch: sel.Float("Jexch", i),
			Dist:  sel.Float("dist", i),
		}
	}
	return ret, nil
}

//Group is a set of neighbours of the same type, with the same distance and
//exchange coupling after rounding.
type Group struct {
	Type  int
	Dist  float64 //mean of the unrounded distances
	Jexch float64 //mean of the unrounded couplings
	Count int
}

//bucket rounds v to the given number of decimals. A negative number of
//decimals leaves v as it is.
func bucket(v float64, decimals int) float64 {
	if decimals < 0 {
		return v
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

//Classify groups the neighbours of atNum by neighbour type, distance rounded to
//distDecimals and coupling rounded to jDecimals. Groups are sorted by type,
//then distance, then coupling.
func Classify(st *table.Table, atNum int, distDecimals, jDecimals int) ([]Group, error) {
	nb, err := Neighbors(st, atNum)
	if err != nil {
		return nil, err
	}
	type key struct {
		typ  int
		d, j float64
	}
	type acc struct {
		d, j []float64
	}
	groups := map[key]*acc{}
	var keys []key
	for _, n := range nb {
		k := key{n.Type, bucket(n.Dist, distDecimals), bucket(n.Jexch, jDecimals)}
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
			keys = append(keys, k)
		}
		a.d = append(a.d, n.Dist)
		a.j = append(a.j, n.Jexch)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.typ != b.typ {
			return a.typ < b.typ
		}
		if a.d != b.d {
			return a.d < b.d
		}
		return a.j < b.j
	})
	ret := make([]Group, len(keys))
	for i, k := range keys {
		a := groups[k]
		ret[i] = Group{Type: k.typ, Dist: stat.Mean(a.d, nil), Jexch: stat.Mean(a.j, nil), Count: len(a.d)}
	}
	return ret, nil
}
