/*
 * fixture.go, part of uppout.
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

//Package fixture writes synthetic UppASD run directories for tests.
//The lattice is bcc (or B2 with two types) with Cells^3 cubic cells of side
//Lattice, two atoms per cell, periodic along all axes.
package fixture

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rmera/uppout"
	"github.com/rmera/uppout/schema"
)

//Options controls the run written by Write.
type Options struct {
	Simid       string
	Cells       int //cells per axis
	Types       int //1 (bcc) or 2 (B2)
	Ensembles   int
	Lattice     float64
	Iterations  int //rows in the time series files
	M           float64
	Omit        []schema.Prefix
	Compression uppout.Compression
	//CorruptHeader makes the struct header declare one atom more than written.
	CorruptHeader bool
}

//DefaultOptions returns a 3x3x3 bcc lattice with one ensemble.
func DefaultOptions() Options {
	return Options{
		Simid:      "fixture1",
		Cells:      3,
		Types:      1,
		Ensembles:  1,
		Lattice:    1.0,
		Iterations: 5,
		M:          0.9,
	}
}

//Atom is one site of the fixture lattice.
type Atom struct {
	Num     int
	Pos     [3]float64
	Type    int
	NumCell int
	cell    [3]int
	basis   int
}

//Shell distances and exchange couplings written to the struct file,
//in units of the lattice constant for the distances.
var (
	Shell1Dist = math.Sqrt(3) / 2
	Shell2Dist = 1.0
	Shell1J    = 1.0
	Shell2J    = 0.5
)

//Atoms returns the lattice sites for o.
func Atoms(o Options) []Atom {
	n := o.Cells
	var ret []Atom
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				for b := 0; b < 2; b++ {
					off := 0.5 * float64(b)
					typ := 1
					if o.Types == 2 {
						typ = b + 1
					}
					ret = append(ret, Atom{
						Num:     len(ret) + 1,
						Pos:     [3]float64{(float64(i) + off) * o.Lattice, (float64(j) + off) * o.Lattice, (float64(k) + off) * o.Lattice},
						Type:    typ,
						NumCell: b + 1,
						cell:    [3]int{i, j, k},
						basis:   b,
					})
				}
			}
		}
	}
	return ret
}

type bond struct {
	a1, a2 Atom
	r      [3]float64
	j      float64
}

//neighbours returns the first two shells of every atom, in lattice units.
func neighbours(atoms []Atom, o Options) []bond {
	n := o.Cells
	index := func(c [3]int, b int) Atom {
		for i := range c {
			c[i] = ((c[i] % n) + n) % n
		}
		return atoms[((c[0]*n+c[1])*n+c[2])*2+b]
	}
	var ret []bond
	for _, a := range atoms {
		//first shell: the 8 sites of the other basis atom.
		for _, sx := range []int{-1, 1} {
			for _, sy := range []int{-1, 1} {
				for _, sz := range []int{-1, 1} {
					s := [3]int{sx, sy, sz}
					var c [3]int
					for i := range c {
						//from a corner atom, the centre atoms at -1/2 belong to the previous cell.
						if a.basis == 0 {
							c[i] = a.cell[i] + (s[i]-1)/2
						} else {
							c[i] = a.cell[i] + (s[i]+1)/2
						}
					}
					r := [3]float64{0.5 * float64(sx) * o.Lattice, 0.5 * float64(sy) * o.Lattice, 0.5 * float64(sz) * o.Lattice}
					ret = append(ret, bond{a, index(c, 1-a.basis), r, Shell1J})
				}
			}
		}
		//second shell: the 6 equivalent sites of the neighbouring cells.
		for ax := 0; ax < 3; ax++ {
			for _, s := range []int{-1, 1} {
				c := a.cell
				c[ax] += s
				var r [3]float64
				r[ax] = float64(s) * o.Lattice
				ret = append(ret, bond{a, index(c, a.basis), r, Shell2J})
			}
		}
	}
	return ret
}

//Write writes the output files of the run described by o into dir, which
//must exist.
func Write(dir string, o Options) error {
	omit := map[schema.Prefix]bool{}
	for _, p := range o.Omit {
		omit[p] = true
	}
	atoms := Atoms(o)
	writers := []struct {
		p schema.Prefix
		f func(w io.Writer) error
	}{
		{schema.Coord, func(w io.Writer) error { return writeCoord(w, atoms) }},
		{schema.Struct, func(w io.Writer) error { return writeStruct(w, atoms, o) }},
		{schema.Restart, func(w io.Writer) error { return writeRestart(w, atoms, o, false) }},
		{schema.MCInitial, func(w io.Writer) error { return writeRestart(w, atoms, o, true) }},
		{schema.Averages, func(w io.Writer) error { return writeAverages(w, o) }},
		{schema.Cumulants, func(w io.Writer) error { return writeCumulants(w, o) }},
		{schema.TotEnergy, func(w io.Writer) error { return writeEnergy(w, o, 1) }},
		{schema.StdEnergy, func(w io.Writer) error { return writeEnergy(w, o, 0.01) }},
		{schema.ProjAverages, func(w io.Writer) error { return writeProjAverages(w, o) }},
		{schema.ProjCumulants, func(w io.Writer) error { return writeProjCumulants(w, o) }},
	}
	for _, wr := range writers {
		if omit[wr.p] {
			continue
		}
		if err := writeFile(dir, FileName(wr.p, o.Simid, o.Compression), o.Compression, wr.f); err != nil {
			return err
		}
	}
	return nil
}

//FileName returns the name UppASD gives the file of prefix p.
func FileName(p schema.Prefix, simid string, c uppout.Compression) string {
	name := fmt.Sprintf("%s.%s.out", p, simid)
	if c != uppout.None {
		name += "." + string(c)
	}
	return name
}

func writeFile(dir, name string, c uppout.Compression, f func(w io.Writer) error) error {
	fout, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer fout.Close()
	var w io.Writer = fout
	var closer func() error
	switch c {
	case uppout.Gzip:
		gz := gzip.NewWriter(fout)
		w, closer = gz, gz.Close
	case uppout.Zstd:
		zs, err := zstd.NewWriter(fout)
		if err != nil {
			return err
		}
		w, closer = zs, zs.Close
	}
	bw := bufio.NewWriter(w)
	if err := f(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if closer != nil {
		if err := closer(); err != nil {
			return err
		}
	}
	return fout.Close()
}

func writeCoord(w io.Writer, atoms []Atom) error {
	for _, a := range atoms {
		if _, err := fmt.Fprintf(w, "%8d %14.8f %14.8f %14.8f %4d %4d\n", a.Num, a.Pos[0], a.Pos[1], a.Pos[2], a.Type, a.NumCell); err != nil {
			return err
		}
	}
	return nil
}

func writeStruct(w io.Writer, atoms []Atom, o Options) error {
	natoms := len(atoms)
	if o.CorruptHeader {
		natoms++
	}
	fmt.Fprintf(w, "# Neighbour list, UppASD fixture\n")
	fmt.Fprintf(w, "# Number of atoms: %d\n", natoms)
	fmt.Fprintf(w, "# Number of atom types: %d\n", types(o))
	fmt.Fprintf(w, "# Number of atoms in cell: 2\n")
	fmt.Fprintf(w, "#  iatom  jatom  itype  jtype  rx  ry  rz  Jij  |rij|\n")
	for _, b := range neighbours(atoms, o) {
		d := math.Sqrt(b.r[0]*b.r[0] + b.r[1]*b.r[1] + b.r[2]*b.r[2])
		if _, err := fmt.Fprintf(w, "%6d %6d %3d %3d %12.6f %12.6f %12.6f %12.6f %12.6f\n",
			b.a1.Num, b.a2.Num, b.a1.Type, b.a2.Type, b.r[0], b.r[1], b.r[2], b.j, d); err != nil {
			return err
		}
	}
	return nil
}

func writeRestart(w io.Writer, atoms []Atom, o Options, initial bool) error {
	iter := (o.Iterations - 1) * 100
	if initial {
		iter = 0
	}
	fmt.Fprintf(w, "################################################################################\n")
	fmt.Fprintf(w, "# File type: R\n")
	fmt.Fprintf(w, "# Simulation type: MC\n")
	fmt.Fprintf(w, "# Number of atoms: %d\n", len(atoms))
	fmt.Fprintf(w, "# Number of ensembles: %d\n", o.Ensembles)
	fmt.Fprintf(w, "################################################################################\n")
	for e := 1; e <= o.Ensembles; e++ {
		for _, a := range atoms {
			//ensembles tilt the moments a little differently.
			th := 0.1 * float64(e) * float64(a.basis+1)
			if _, err := fmt.Fprintf(w, "%8d %8d %8d %14.8f %14.8f %14.8f %14.8f\n",
				iter, e, a.Num, 2.2, math.Sin(th), 0.0, math.Cos(th)); err != nil {
				return err
			}
		}
	}
	return nil
}

func types(o Options) int {
	if o.Types == 2 {
		return 2
	}
	return 1
}

//Mz returns the z magnetization written at row k of the averages file.
func Mz(o Options, k int) float64 { return o.M - 0.01*float64(k) }

func writeAverages(w io.Writer, o Options) error {
	fmt.Fprintf(w, "     Iter        <M>_x        <M>_y        <M>_z          <M>       M_{stdv}\n")
	for k := 0; k < o.Iterations; k++ {
		mz := Mz(o, k)
		m := math.Sqrt(0.01*0.01 + 0.02*0.02 + mz*mz)
		if _, err := fmt.Fprintf(w, "%8d %14.8E %14.8E %14.8E %14.8E %14.8E\n", k*100, 0.01, 0.02, mz, m, 0.001*float64(k+1)); err != nil {
			return err
		}
	}
	return nil
}

func writeCumulants(w io.Writer, o Options) error {
	fmt.Fprintf(w, "#  Iter  <M>  <M^2>  <M^4>  U_{Binder}  \\chi  C_v(tot)  <E>  <E_{exc}>  <E_{lsf}>\n")
	for k := 0; k < o.Iterations; k++ {
		m := Mz(o, k)
		if _, err := fmt.Fprintf(w, "%8d %14.8f %14.8f %14.8f %14.8f %14.8f %14.8f %14.8f %14.8f %14.8f\n",
			k*100, m, m*m, m*m*m*m, 0.66, 0.1, 0.2, -1.0, -1.0, 0.0); err != nil {
			return err
		}
	}
	return nil
}

//energy terms, in column order after iter.
var energyTerms = []float64{-2.0, -1.9, -0.05, 0, 0, 0, 0, 0, -0.05, 0, 0, 0, 0}

func writeEnergy(w io.Writer, o Options, scale float64) error {
	fmt.Fprintf(w, "# Iter  Tot  Exc  Ani  DM  PD  BiqDM  BQ  Dip  Zeeman  LSF  Chir  Ring  SA\n")
	for k := 0; k < o.Iterations; k++ {
		fmt.Fprintf(w, "%8d", k*100)
		for _, e := range energyTerms {
			fmt.Fprintf(w, " %14.6E", math.Abs(scale)*e*(1+0.001*float64(k)))
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func writeProjAverages(w io.Writer, o Options) error {
	fmt.Fprintf(w, "# Iter  Proj  <M>  M_{stdv}  <M_x>  <M_y>  <M_z>\n")
	for k := 0; k < o.Iterations; k++ {
		for p := 1; p <= types(o); p++ {
			m := Mz(o, k) * float64(p)
			if _, err := fmt.Fprintf(w, "%8d %4d %14.8f %14.8f %14.8f %14.8f %14.8f\n", k*100, p, m, 0.001, 0.0, 0.0, m); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeProjCumulants(w io.Writer, o Options) error {
	fmt.Fprintf(w, "# Iter  Proj  <M>  <M^2>  <M^4>  U_{Binder}  \\chi\n")
	for k := 0; k < o.Iterations; k++ {
		for p := 1; p <= types(o); p++ {
			m := Mz(o, k) * float64(p)
			if _, err := fmt.Fprintf(w, "%8d %4d %14.8f %14.8f %14.8f %14.8f %14.8f\n", k*100, p, m, m*m, m*m*m*m, 0.66, 0.1); err != nil {
				return err
			}
		}
	}
	return nil
}
