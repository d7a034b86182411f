/*
 * validate_test.go, part of uppout.
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
	"errors"
	"strings"
	"testing"

	"github.com/rmera/uppout"
	"github.com/rmera/uppout/internal/fixture"
	"github.com/rmera/uppout/schema"
	"github.com/rmera/uppout/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTable(t *testing.T, p schema.Prefix) *table.Table {
	t.Helper()
	L, ok := schema.Lookup(p)
	require.True(t, ok)
	tab := L.NewTable()
	tab.SetSource(string(p))
	return tab
}

type site struct {
	num     int
	x, y, z float64
	typ     int
	cell    int
}

func coordOf(t *testing.T, sites ...site) *table.Table {
	tab := newTable(t, schema.Coord)
	for _, s := range sites {
		require.NoError(t, tab.Append(table.IntValue(s.num), table.FloatValue(s.x), table.FloatValue(s.y),
			table.FloatValue(s.z), table.IntValue(s.typ), table.IntValue(s.cell)))
	}
	return tab
}

func addBond(t *testing.T, st *table.Table, a1, a2, t1, t2 int, rx, ry, rz float64) {
	require.NoError(t, st.Append(table.IntValue(a1), table.IntValue(a2), table.IntValue(t1), table.IntValue(t2),
		table.FloatValue(rx), table.FloatValue(ry), table.FloatValue(rz), table.FloatValue(1), table.FloatValue(1)))
}

func openFixture(t *testing.T, mod func(o *fixture.Options)) *uppout.Run {
	t.Helper()
	dir := t.TempDir()
	o := fixture.DefaultOptions()
	if mod != nil {
		mod(&o)
	}
	require.NoError(t, fixture.Write(dir, o))
	r, err := uppout.Open(dir, "")
	require.NoError(t, err)
	return r
}

func TestCleanRun(t *testing.T) {
	for _, types := range []int{1, 2} {
		r := openFixture(t, func(o *fixture.Options) {
			o.Types = types
			o.Ensembles = 2
		})
		rep, err := CheckRun(r, DefaultOptions())
		require.NoError(t, err)
		assert.True(t, rep.Empty(), rep.String())
	}
}

func TestCorruptedHeader(t *testing.T) {
	r := openFixture(t, func(o *fixture.Options) { o.CorruptHeader = true })
	rep, err := CheckRun(r, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, uppout.ErrConsistencyViolation))
	cm := rep.ByKind(CountMismatch)
	require.Len(t, cm, 1)
	assert.Contains(t, cm[0].Message, "declares 55 atoms, coord has 54")
	assert.True(t, strings.HasPrefix(cm[0].File, r.Dir()))

	var e *uppout.Error
	require.True(t, errors.As(err, &e))
	require.Len(t, e.Details(), 1)
	assert.Contains(t, e.Details()[0], "55 atoms")
}

func TestDuplicateAtoms(t *testing.T) {
	coord := coordOf(t,
		site{1, 0, 0, 0, 1, 1},
		site{2, 0, 0, 5e-5, 1, 1},
		site{3, 1, 0, 0, 1, 1},
		site{4, 1.00015, 0, 0, 1, 1}, //just above the tolerance
		site{5, 2, 2, 2, 1, 1},
		site{6, 2, 2, 2, 1, 1},
		site{7, 2, 2, 2, 1, 1},
	)
	rep, err := Check(Input{Coord: coord}, DefaultOptions())
	require.Error(t, err)
	dups := rep.ByKind(DuplicateAtom)
	require.Len(t, dups, 2)
	assert.Equal(t, []int{1, 2}, dups[0].Atoms)
	assert.Equal(t, []int{5, 6, 7}, dups[1].Atoms)
	assert.Equal(t, 7, coord.Len(), "atoms must not be merged")

	//with a zero tolerance only exact copies are duplicates.
	rep, _ = Check(Input{Coord: coord}, Options{})
	dups = rep.ByKind(DuplicateAtom)
	require.Len(t, dups, 1)
	assert.Equal(t, []int{5, 6, 7}, dups[0].Atoms)
}

func TestDuplicatesOrderIndependent(t *testing.T) {
	coord := coordOf(t,
		site{4, 1, 0, 0, 1, 1},
		site{9, 0, 0, 0, 1, 1},
		site{2, 1, 0, 0.00001, 1, 1},
	)
	rep, err := Check(Input{Coord: coord}, DefaultOptions())
	require.Error(t, err)
	dups := rep.ByKind(DuplicateAtom)
	require.Len(t, dups, 1)
	assert.Equal(t, []int{2, 4}, dups[0].Atoms)
}

func TestTypesAndNumbers(t *testing.T) {
	coord := coordOf(t,
		site{1, 0, 0, 0, 1, 1},
		site{2, 0.5, 0.5, 0.5, 3, 2},
		site{2, 1, 1, 1, 0, 1},
	)
	st := newTable(t, schema.Struct)
	st.SetHeader("number of atom types", "2")
	rep, err := Check(Input{Coord: coord, Struct: st}, DefaultOptions())
	require.Error(t, err)
	out := rep.ByKind(TypeOutOfRange)
	require.Len(t, out, 2)
	assert.Equal(t, []int{2}, out[0].Atoms)
	assert.Contains(t, out[0].Message, "type 3")
	require.Len(t, rep.ByKind(DuplicateAtomNumber), 1)
	//3 distinct types against 2 declared, and 3 atoms in cells of 2.
	assert.Len(t, rep.ByKind(CountMismatch), 2)
}

func TestBonds(t *testing.T) {
	coord := coordOf(t,
		site{1, 0, 0, 0, 1, 1},
		site{2, 0.5, 0.5, 0.5, 2, 2},
	)
	st := newTable(t, schema.Struct)
	addBond(t, st, 1, 2, 1, 2, 0.5, 0.5, 0.5)
	addBond(t, st, 2, 1, 2, 1, -0.5, -0.5, -0.5) //the reverse, fine
	addBond(t, st, 1, 2, 1, 2, 0.5, -0.5, 0.5)   //another image, fine
	addBond(t, st, 1, 2, 1, 2, 0.50001, 0.5, 0.5)
	addBond(t, st, 1, 3, 1, 1, 1, 0, 0)
	addBond(t, st, 2, 1, 1, 1, -0.5, 0.5, -0.5)
	rep, err := Check(Input{Coord: coord, Struct: st}, DefaultOptions())
	require.Error(t, err)

	dup := rep.ByKind(DuplicateBond)
	require.Len(t, dup, 1)
	assert.Equal(t, []int{1, 2}, dup[0].Atoms)
	assert.Contains(t, dup[0].Message, "rows [1 4]")

	unk := rep.ByKind(UnknownBondAtom)
	require.Len(t, unk, 1)
	assert.Equal(t, []int{3}, unk[0].Atoms)

	mis := rep.ByKind(BondTypeMismatch)
	require.Len(t, mis, 1)
	assert.Contains(t, mis[0].Message, "row 6")
}

func TestBondTolerance(t *testing.T) {
	coord := coordOf(t,
		site{1, 0, 0, 0, 1, 1},
		site{2, 0.5, 0.5, 0.5, 1, 2},
	)
	st := newTable(t, schema.Struct)
	//2e-5 apart, on both sides of 0.50005.
	addBond(t, st, 1, 2, 1, 1, 0.50004, 0.5, 0.5)
	addBond(t, st, 1, 2, 1, 1, 0.50006, 0.5, 0.5)
	addBond(t, st, 1, 2, 1, 1, 0.5003, 0.5, 0.5)
	rep, err := Check(Input{Coord: coord, Struct: st}, DefaultOptions())
	require.Error(t, err)
	dup := rep.ByKind(DuplicateBond)
	require.Len(t, dup, 1)
	assert.Contains(t, dup[0].Message, "listed 2 times, rows [1 2]")

	rep, err = Check(Input{Coord: coord, Struct: st}, Options{AtomTolerance: 1e-4})
	require.NoError(t, err)
	assert.True(t, rep.Empty())
}

func TestSelfImageBonds(t *testing.T) {
	//in a one-atom periodic cell an atom is its own neighbour, both ways.
	coord := coordOf(t, site{1, 0, 0, 0, 1, 1})
	st := newTable(t, schema.Struct)
	addBond(t, st, 1, 1, 1, 1, 1, 0, 0)
	addBond(t, st, 1, 1, 1, 1, -1, 0, 0)
	rep, err := Check(Input{Coord: coord, Struct: st}, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, rep.Empty())
	addBond(t, st, 1, 1, 1, 1, -1, 0, 0)
	rep, _ = Check(Input{Coord: coord, Struct: st}, DefaultOptions())
	assert.Len(t, rep.ByKind(DuplicateBond), 1)
}

func TestRestartCounts(t *testing.T) {
	coord := coordOf(t,
		site{1, 0, 0, 0, 1, 1},
		site{2, 0.5, 0.5, 0.5, 1, 2},
		site{3, 1, 0, 0, 1, 1},
	)
	restart := newTable(t, schema.Restart)
	restart.SetHeader("number of ensembles", "2")
	for e := 1; e <= 2; e++ {
		for a := 1; a <= 3; a++ {
			if e == 2 && a == 3 {
				continue
			}
			require.NoError(t, restart.Append(table.IntValue(e), table.IntValue(a), table.FloatValue(2.2),
				table.FloatValue(0), table.FloatValue(0), table.FloatValue(1)))
		}
	}
	rep, err := Check(Input{Coord: coord, Restart: restart}, DefaultOptions())
	require.Error(t, err)
	cm := rep.ByKind(CountMismatch)
	require.Len(t, cm, 2)
	assert.Contains(t, cm[0].Message, "not a multiple")
	assert.Contains(t, cm[1].Message, "restart has 5 rows, expected 3 atoms x 2 ensembles")
	assert.Equal(t, 5, restart.Len())
}

func TestErrors(t *testing.T) {
	_, err := Check(Input{}, DefaultOptions())
	assert.True(t, errors.Is(err, uppout.ErrPrefixUnavailable))

	coord := coordOf(t, site{1, 0, 0, 0, 1, 1})
	st := newTable(t, schema.Struct)
	st.SetHeader("number of atoms", "one")
	rep, err := Check(Input{Coord: coord, Struct: st}, DefaultOptions())
	assert.Nil(t, rep)
	assert.True(t, errors.Is(err, uppout.ErrMalformedRecord))

	r := openFixture(t, func(o *fixture.Options) { o.Omit = []schema.Prefix{schema.Coord} })
	_, err = CheckRun(r, DefaultOptions())
	assert.True(t, errors.Is(err, uppout.ErrPrefixUnavailable))
}
