/*
 * geometry.go, part of uppout.
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

package validate

import (
	"math"
	"sort"

	"github.com/rmera/uppout/table"
	"gonum.org/v1/gonum/spatial/r3"
)

//positions returns the coordinates of every row of coord.
func positions(coord *table.Table) []r3.Vec {
	x, y, z := coord.Col("x"), coord.Col("y"), coord.Col("z")
	ret := make([]r3.Vec, len(x))
	for i := range ret {
		ret[i] = r3.Vec{X: x[i], Y: y[i], Z: z[i]}
	}
	return ret
}

type cellKey [3]int64

func keyOf(p r3.Vec, size float64) cellKey {
	return cellKey{int64(math.Floor(p.X / size)), int64(math.Floor(p.Y / size)), int64(math.Floor(p.Z / size))}
}

//unionFind over row indexes.
type unionFind []int

func newUnionFind(n int) unionFind {
	u := make(unionFind, n)
	for i := range u {
		u[i] = i
	}
	return u
}

func (U unionFind) find(i int) int {
	for U[i] != i {
		U[i] = U[U[i]]
		i = U[i]
	}
	return i
}

func (U unionFind) union(i, j int) {
	ri, rj := U.find(i), U.find(j)
	if ri == rj {
		return
	}
	if ri < rj {
		U[rj] = ri
	} else {
		U[ri] = rj
	}
}

//sameSites groups the rows whose positions are within tol of each other,
//directly or through a chain of such pairs. Only groups of two or more
//rows are returned, each sorted, ordered by their first row.
func sameSites(pos []r3.Vec, tol float64) [][]int {
	u := newUnionFind(len(pos))
	if tol <= 0 {
		first := make(map[r3.Vec]int, len(pos))
		for i, p := range pos {
			if j, ok := first[p]; ok {
				u.union(i, j)
				continue
			}
			first[p] = i
		}
	} else {
		grid := make(map[cellKey][]int, len(pos))
		for i, p := range pos {
			k := keyOf(p, tol)
			for dx := int64(-1); dx <= 1; dx++ {
				for dy := int64(-1); dy <= 1; dy++ {
					for dz := int64(-1); dz <= 1; dz++ {
						for _, j := range grid[cellKey{k[0] + dx, k[1] + dy, k[2] + dz}] {
							if r3.Norm(r3.Sub(p, pos[j])) <= tol {
								u.union(i, j)
							}
						}
					}
				}
			}
			grid[k] = append(grid[k], i)
		}
	}
	groups := map[int][]int{}
	for i := range pos {
		r := u.find(i)
		groups[r] = append(groups[r], i)
	}
	var ret [][]int
	for _, g := range groups {
		if len(g) > 1 {
			ret = append(ret, g)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i][0] < ret[j][0] })
	return ret
}

func duplicateSites(coord *table.Table, tol float64, R *Report) {
	nums := coord.Ints("at_num")
	pos := positions(coord)
	for _, g := range sameSites(pos, tol) {
		atoms := make([]int, len(g))
		for i, row := range g {
			atoms[i] = nums[row]
		}
		atoms = sortedCopy(atoms)
		p := pos[g[0]]
		R.add(DuplicateAtom, coord.Source(), atoms, "atoms %v share the site (%g, %g, %g)", atoms, p.X, p.Y, p.Z)
	}
}

//positive is true if the first non-zero component of v is positive.
func positive(v r3.Vec) bool {
	switch {
	case v.X != 0:
		return v.X > 0
	case v.Y != 0:
		return v.Y > 0
	}
	return v.Z >= 0
}

//canonical returns the bond from a1 to a2 with vector r with the lower atom
//number first, and whether the record runs in the reverse of that direction.
func canonical(a1, a2 int, r r3.Vec) ([2]int, r3.Vec, bool) {
	rev := a1 > a2 || (a1 == a2 && !positive(r))
	if rev {
		a1, a2 = a2, a1
		r = r3.Scale(-1, r)
	}
	return [2]int{a1, a2}, r, rev
}

//sameVector is true if no component of a and b differs by more than tol.
//A tol <= 0 requires equal vectors.
func sameVector(a, b r3.Vec, tol float64) bool {
	if tol <= 0 {
		return a == b
	}
	d := r3.Sub(a, b)
	return math.Abs(d.X) <= tol && math.Abs(d.Y) <= tol && math.Abs(d.Z) <= tol
}

type bondRecord struct {
	row int //1-based
	r   r3.Vec
	rev bool
}

//duplicateBonds reports bonds listed more than once in the same direction.
//A bond and its reverse (a2 to a1 with the opposite vector) are both expected
//in a struct file and are not duplicates. Bonds of the same atom pair are the
//same bond if their vectors, pointing from the lower atom number, are within
//tol per component, directly or through a chain of such bonds.
func duplicateBonds(st *table.Table, tol float64, R *Report) {
	a1s, a2s := st.Ints("at1_num"), st.Ints("at2_num")
	rx, ry, rz := st.Col("rx"), st.Col("ry"), st.Col("rz")
	var order [][2]int
	pairs := map[[2]int][]bondRecord{}
	for i := range a1s {
		k, r, rev := canonical(a1s[i], a2s[i], r3.Vec{X: rx[i], Y: ry[i], Z: rz[i]})
		if _, ok := pairs[k]; !ok {
			order = append(order, k)
		}
		pairs[k] = append(pairs[k], bondRecord{i + 1, r, rev})
	}
	for _, k := range order {
		recs := pairs[k]
		u := newUnionFind(len(recs))
		for i := range recs {
			for j := 0; j < i; j++ {
				if sameVector(recs[i].r, recs[j].r, tol) {
					u.union(i, j)
				}
			}
		}
		//roots are the lowest index of their group, so groups come in row order.
		var roots []int
		groups := map[int]*[2][]int{}
		for i, rec := range recs {
			root := u.find(i)
			g, ok := groups[root]
			if !ok {
				g = &[2][]int{}
				groups[root] = g
				roots = append(roots, root)
			}
			d := 0
			if rec.rev {
				d = 1
			}
			g[d] = append(g[d], rec.row)
		}
		for _, root := range roots {
			for d, rows := range groups[root] {
				if len(rows) < 2 {
					continue
				}
				from, to := k[0], k[1]
				if d == 1 {
					from, to = to, from
				}
				R.add(DuplicateBond, st.Source(), []int{k[0], k[1]}, "bond %d-%d is listed %d times, rows %v", from, to, len(rows), rows)
			}
		}
	}
}
