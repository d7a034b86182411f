/*
 * validate.go, part of uppout.
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

//Package validate checks the structural consistency of the lattice described
//by the coord, struct and restart files of a run. All the problems found are
//reported together, and the tables checked are never modified.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rmera/uppout"
	"github.com/rmera/uppout/schema"
	"github.com/rmera/uppout/table"
	"go.uber.org/zap"
)

//Options for Check.
type Options struct {
	//AtomTolerance is the distance at or below which two atoms are taken to
	//occupy the same site.
	AtomTolerance float64
	//BondTolerance is the per-component tolerance when comparing bond vectors.
	BondTolerance float64
}

//DefaultOptions returns tolerances of 1e-4 length units for both atoms and bonds.
func DefaultOptions() Options {
	return Options{AtomTolerance: 1e-4, BondTolerance: 1e-4}
}

//Kind of a consistency violation.
type Kind int

const (
	TypeOutOfRange Kind = iota + 1
	DuplicateAtomNumber
	DuplicateAtom
	UnknownBondAtom
	BondTypeMismatch
	DuplicateBond
	CountMismatch
)

func (K Kind) String() string {
	switch K {
	case TypeOutOfRange:
		return "type out of range"
	case DuplicateAtomNumber:
		return "duplicate atom number"
	case DuplicateAtom:
		return "duplicate atom"
	case UnknownBondAtom:
		return "unknown bond atom"
	case BondTypeMismatch:
		return "bond type mismatch"
	case DuplicateBond:
		return "duplicate bond"
	case CountMismatch:
		return "count mismatch"
	}
	return fmt.Sprintf("Kind(%d)", int(K))
}

//Violation is one inconsistency.
type Violation struct {
	Kind    Kind
	File    string //the file where the problem shows, if known
	Atoms   []int  //atom numbers involved, sorted
	Message string
}

func (V Violation) String() string {
	s := V.Kind.String() + ": " + V.Message
	if V.File != "" {
		s += " (" + V.File + ")"
	}
	return s
}

//Report holds every violation found by Check, in the order the checks run.
type Report struct {
	Violations []Violation
}

//Empty returns true if no violation was found.
func (R *Report) Empty() bool { return len(R.Violations) == 0 }

//ByKind returns the violations of the given kind.
func (R *Report) ByKind(k Kind) []Violation {
	var ret []Violation
	for _, v := range R.Violations {
		if v.Kind == k {
			ret = append(ret, v)
		}
	}
	return ret
}

//Err returns nil for an empty report, and otherwise an *uppout.Error of kind
//ConsistencyViolation whose details are all the violations.
func (R *Report) Err() error {
	if R.Empty() {
		return nil
	}
	details := make([]string, len(R.Violations))
	for i, v := range R.Violations {
		details[i] = v.String()
	}
	return uppout.NewError(uppout.ConsistencyViolation, "", fmt.Sprintf("%d violations", len(details)), details...)
}

func (R *Report) String() string {
	if R.Empty() {
		return "no violations"
	}
	var b strings.Builder
	for _, v := range R.Violations {
		b.WriteString(v.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func (R *Report) add(k Kind, file string, atoms []int, format string, args ...interface{}) {
	R.Violations = append(R.Violations, Violation{Kind: k, File: file, Atoms: atoms, Message: fmt.Sprintf(format, args...)})
}

//Input is the data checked. Coord is required, Struct and Restart may be nil.
type Input struct {
	Coord   *table.Table
	Struct  *table.Table
	Restart *table.Table
}

//Check runs every consistency check on in and returns the report. If there are
//violations, the error is the one returned by Report.Err. Other errors (a missing
//coord table, a header count that is not a number) come with a nil report.
func Check(in Input, o Options) (*Report, error) {
	if in.Coord == nil {
		return nil, uppout.NewError(uppout.PrefixUnavailable, "", "coord data are required")
	}
	structDecl, err := uppout.DeclaredIn(in.Struct)
	if err != nil {
		return nil, err
	}
	restartDecl, err := uppout.DeclaredIn(in.Restart)
	if err != nil {
		return nil, err
	}
	R := &Report{}
	atoms := newAtomIndex(in.Coord, R)
	checkTypes(in.Coord, structDecl, restartDecl, R)
	duplicateSites(in.Coord, o.AtomTolerance, R)
	if in.Struct != nil {
		checkBonds(in.Struct, in.Coord, atoms, R)
		duplicateBonds(in.Struct, o.BondTolerance, R)
	}
	checkCounts(in, structDecl, restartDecl, R)
	if !R.Empty() {
		uppout.Logger().Warn("consistency violations", zap.String("coord", in.Coord.Source()), zap.Int("violations", len(R.Violations)))
	}
	return R, R.Err()
}

//CheckRun checks the coord file of r, and its struct and restart files if present.
func CheckRun(r *uppout.Run, o Options) (*Report, error) {
	var in Input
	var err error
	if in.Coord, err = r.Coord(); err != nil {
		return nil, err
	}
	if r.Has(schema.Struct) {
		if in.Struct, err = r.Struct(); err != nil {
			return nil, err
		}
	}
	if r.Has(schema.Restart) {
		if in.Restart, err = r.Restart(); err != nil {
			return nil, err
		}
	}
	return Check(in, o)
}

//atomIndex maps atom numbers to their coord row.
type atomIndex map[int]int

func newAtomIndex(coord *table.Table, R *Report) atomIndex {
	idx := make(atomIndex, coord.Len())
	nums := coord.Ints("at_num")
	for i, n := range nums {
		if j, ok := idx[n]; ok {
			R.add(DuplicateAtomNumber, coord.Source(), []int{n}, "atom %d is listed in rows %d and %d", n, j+1, i+1)
			continue
		}
		idx[n] = i
	}
	return idx
}

//declaredTypes returns the number of types from the headers, or the
//number of distinct types in coord.
func declaredTypes(coord *table.Table, decls ...uppout.Declared) int {
	for _, d := range decls {
		if d.Types != uppout.Undeclared {
			return d.Types
		}
	}
	return coord.NUnique("at_type")
}

func checkTypes(coord *table.Table, sd, rd uppout.Declared, R *Report) {
	ntypes := declaredTypes(coord, sd, rd)
	nums := coord.Ints("at_num")
	for i, t := range coord.Ints("at_type") {
		if t < 1 || t > ntypes {
			R.add(TypeOutOfRange, coord.Source(), []int{nums[i]}, "atom %d has type %d, valid types are 1 to %d", nums[i], t, ntypes)
		}
	}
}

//checkBonds checks that bonds refer to atoms in coord, with the types coord gives them.
func checkBonds(st, coord *table.Table, atoms atomIndex, R *Report) {
	for i := 0; i < st.Len(); i++ {
		for _, side := range [2]string{"at1", "at2"} {
			n := st.Int(side+"_num", i)
			row, ok := atoms[n]
			if !ok {
				R.add(UnknownBondAtom, st.Source(), []int{n}, "bond in row %d refers to atom %d, which is not in coord", i+1, n)
				continue
			}
			if ct, bt := coord.Int("at_type", row), st.Int(side+"_type", i); ct != bt {
				R.add(BondTypeMismatch, st.Source(), []int{n}, "row %d gives type %d for atom %d, coord gives %d", i+1, bt, n, ct)
			}
		}
	}
}

func checkCounts(in Input, sd, rd uppout.Declared, R *Report) {
	coord := in.Coord
	natoms := coord.Len()
	ncell := coord.NUnique("at_num_cell")
	ntypes := coord.NUnique("at_type")
	headers := []struct {
		d    uppout.Declared
		file string
	}{{sd, source(in.Struct)}, {rd, source(in.Restart)}}
	for _, h := range headers {
		if h.d.Atoms != uppout.Undeclared && h.d.Atoms != natoms {
			R.add(CountMismatch, h.file, nil, "header declares %d atoms, coord has %d", h.d.Atoms, natoms)
		}
		if h.d.AtomsCell != uppout.Undeclared && h.d.AtomsCell != ncell {
			R.add(CountMismatch, h.file, nil, "header declares %d atoms per cell, coord has %d", h.d.AtomsCell, ncell)
		}
		if h.d.Types != uppout.Undeclared && h.d.Types != ntypes {
			R.add(CountMismatch, h.file, nil, "header declares %d atom types, coord has %d", h.d.Types, ntypes)
		}
		if h.d.Ensembles != uppout.Undeclared && in.Restart != nil {
			if nens := in.Restart.NUnique("ens_num"); h.d.Ensembles != nens {
				R.add(CountMismatch, h.file, nil, "header declares %d ensembles, restart has %d", h.d.Ensembles, nens)
			}
		}
	}
	if ncell > 0 && natoms%ncell != 0 {
		R.add(CountMismatch, coord.Source(), nil, "%d atoms is not a multiple of %d atoms per cell", natoms, ncell)
	}
	if in.Restart != nil {
		nens := in.Restart.NUnique("ens_num")
		if in.Restart.Len() != natoms*nens {
			R.add(CountMismatch, source(in.Restart), nil, "restart has %d rows, expected %d atoms x %d ensembles", in.Restart.Len(), natoms, nens)
		}
	}
}

func source(t *table.Table) string {
	if t == nil {
		return ""
	}
	return t.Source()
}

func sortedCopy(s []int) []int {
	ret := append([]int(nil), s...)
	sort.Ints(ret)
	return ret
}
