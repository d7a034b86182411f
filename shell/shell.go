/*
 * shell.go, part of uppout.
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

//Package shell groups the neighbours of an atom into shells of approximately
//equal distance, using minimum-image distances along periodic axes. It also
//classifies the neighbour lists of UppASD struct files.
package shell

import (
	"fmt"
	"math"
	"sort"

	"github.com/rmera/uppout"
	"github.com/rmera/uppout/table"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

//Atom is a numbered position. Basis is the number of the site within the
//unit cell (at_num_cell), 0 if unknown.
type Atom struct {
	Num   int
	Pos   r3.Vec
	Basis int
}

//Cell is the simulation box. Distances along an axis marked periodic, with a
//positive length, follow the minimum image convention.
type Cell struct {
	Lengths  [3]float64
	Periodic [3]bool
}

//Representative selects the distance that represents a shell.
type Representative int

const (
	Mean  Representative = iota //mean of the member distances
	First                       //distance of the closest member
)

//Options for Analyze.
type Options struct {
	//Cutoff is the search radius. It must be positive.
	Cutoff float64
	//Tolerance is the gap between consecutive sorted distances that starts a
	//new shell. If it is not positive, TolFraction times the shortest
	//neighbour distance is used.
	Tolerance      float64
	TolFraction    float64
	Representative Representative
}

//DefaultOptions returns options with the given cutoff, an automatic tolerance
//of 1% of the nearest neighbour distance and mean representatives.
func DefaultOptions(cutoff float64) Options {
	return Options{Cutoff: cutoff, TolFraction: 0.01, Representative: Mean}
}

//Shell is a group of neighbours at about the same distance from the reference atom.
type Shell struct {
	Index     int //1 for the nearest shell
	Distance  float64
	Members   []int     //atom numbers, by increasing distance and then number
	Distances []float64 //distance of each member
}

//Len returns the number of atoms in the shell.
func (S Shell) Len() int { return len(S.Members) }

func (S Shell) String() string {
	return fmt.Sprintf("shell %d: %d atoms at %.6g", S.Index, len(S.Members), S.Distance)
}

//Distance returns the distance between a and b in the cell.
func (C Cell) Distance(a, b r3.Vec) float64 {
	return r3.Norm(C.Delta(a, b))
}

//Delta returns the minimum image of b-a.
func (C Cell) Delta(a, b r3.Vec) r3.Vec {
	d := [3]float64{b.X - a.X, b.Y - a.Y, b.Z - a.Z}
	for i := range d {
		if L := C.Lengths[i]; C.Periodic[i] && L > 0 {
			d[i] -= L * math.Round(d[i]/L)
		}
	}
	return r3.Vec{X: d[0], Y: d[1], Z: d[2]}
}

type neighbour struct {
	num int
	d   float64
}

//Analyze returns the shells of neighbours of atom ref within o.Cutoff. An atom
//without neighbours gives zero shells and no error. The result doesn't depend
//on the order of atoms.
func Analyze(ref int, atoms []Atom, cell Cell, o Options) ([]Shell, error) {
	if !(o.Cutoff > 0) {
		return nil, uppout.NewError(uppout.InvalidCutoff, "", fmt.Sprintf("cutoff must be positive, got %g", o.Cutoff))
	}
	center, ok := find(ref, atoms)
	if !ok {
		return nil, uppout.NewError(uppout.AtomNotFound, "", fmt.Sprintf("atom %d not in the coordinates", ref))
	}
	var nb []neighbour
	for _, a := range atoms {
		if a.Num == ref {
			continue
		}
		if d := cell.Distance(center, a.Pos); d <= o.Cutoff {
			nb = append(nb, neighbour{a.Num, d})
		}
	}
	if len(nb) == 0 {
		return nil, nil
	}
	sort.Slice(nb, func(i, j int) bool {
		if nb[i].d != nb[j].d {
			return nb[i].d < nb[j].d
		}
		return nb[i].num < nb[j].num
	})
	tol := o.Tolerance
	if !(tol > 0) {
		tol = o.TolFraction * nearest(nb)
	}
	var shells []Shell
	cur := Shell{Index: 1}
	for i, n := range nb {
		if i > 0 {
			if gap := n.d - nb[i-1].d; gap > 0 && gap >= tol {
				shells = append(shells, cur.finish(o.Representative))
				cur = Shell{Index: len(shells) + 1}
			}
		}
		cur.Members = append(cur.Members, n.num)
		cur.Distances = append(cur.Distances, n.d)
	}
	shells = append(shells, cur.finish(o.Representative))
	return shells, nil
}

func (S Shell) finish(r Representative) Shell {
	if r == First {
		S.Distance = S.Distances[0]
	} else {
		S.Distance = stat.Mean(S.Distances, nil)
	}
	return S
}

//nearest returns the shortest non-zero distance in nb, or 0.
func nearest(nb []neighbour) float64 {
	for _, n := range nb {
		if n.d > 0 {
			return n.d
		}
	}
	return 0
}

func find(num int, atoms []Atom) (r3.Vec, bool) {
	for _, a := range atoms {
		if a.Num == num {
			return a.Pos, true
		}
	}
	return r3.Vec{}, false
}

//AnalyzeMany runs Analyze for each atom in refs. The i-th element of the
//result belongs to refs[i]. It stops at the first error.
func AnalyzeMany(refs []int, atoms []Atom, cell Cell, o Options) ([][]Shell, error) {
	ret := make([][]Shell, len(refs))
	for i, ref := range refs {
		s, err := Analyze(ref, atoms, cell, o)
		if err != nil {
			return nil, err
		}
		ret[i] = s
	}
	return ret, nil
}

//gapTolerance is the difference below which two coordinates are taken as equal
//when guessing the lattice spacing.
const gapTolerance = 1e-6

//CellFromAtoms guesses the periodic cell of a lattice from its sites. The
//copies of one basis site are a lattice spacing apart, so along each axis the
//length is the span of the coordinates of a basis site plus the smallest
//spacing between its distinct coordinate values. The largest length over the
//basis sites is used. Atoms with Basis 0 are taken as one basis site. Axes
//along which no basis site has two distinct coordinates get a zero length.
func CellFromAtoms(atoms []Atom, periodic [3]bool) Cell {
	c := Cell{Periodic: periodic}
	if len(atoms) == 0 {
		return c
	}
	byBasis := map[int][]r3.Vec{}
	for _, a := range atoms {
		byBasis[a.Basis] = append(byBasis[a.Basis], a.Pos)
	}
	for ax := 0; ax < 3; ax++ {
		for _, pos := range byBasis {
			vals := make([]float64, len(pos))
			for i, p := range pos {
				vals[i] = [3]float64{p.X, p.Y, p.Z}[ax]
			}
			sort.Float64s(vals)
			gap := math.Inf(1)
			for i := 1; i < len(vals); i++ {
				if d := vals[i] - vals[i-1]; d > gapTolerance && d < gap {
					gap = d
				}
			}
			if math.IsInf(gap, 1) {
				continue
			}
			if l := floats.Max(vals) - floats.Min(vals) + gap; l > c.Lengths[ax] {
				c.Lengths[ax] = l
			}
		}
	}
	return c
}

//AtomsFromTable returns the atoms of a coord table. Basis is taken from the
//at_num_cell column, if present.
func AtomsFromTable(coord *table.Table) []Atom {
	nums := coord.Ints("at_num")
	if len(nums) == 0 {
		return nil
	}
	var basis []int
	if coord.Has("at_num_cell") {
		basis = coord.Ints("at_num_cell")
	}
	xyz := coord.Dense("x", "y", "z")
	ret := make([]Atom, len(nums))
	for i, n := range nums {
		r := xyz.RawRowView(i)
		ret[i] = Atom{Num: n, Pos: r3.Vec{X: r[0], Y: r[1], Z: r[2]}}
		if basis != nil {
			ret[i].Basis = basis[i]
		}
	}
	return ret
}

//FromRun analyzes the neighbours of ref in the coord file of r. The cell is
//guessed with CellFromAtoms.
func FromRun(r *uppout.Run, ref int, periodic [3]bool, o Options) ([]Shell, error) {
	coord, err := r.Coord()
	if err != nil {
		return nil, err
	}
	atoms := AtomsFromTable(coord)
	return Analyze(ref, atoms, CellFromAtoms(atoms, periodic), o)
}
