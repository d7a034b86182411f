/*
 * header.go, part of uppout.
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

package uppout

import (
	"fmt"
	"strconv"

	"github.com/rmera/uppout/table"
)

//Undeclared is the value of a count that a header doesn't give.
const Undeclared = -1

//Declared holds the counts written in the '#' header of a struct or restart
//file. Counts not present in the header are Undeclared.
type Declared struct {
	Atoms     int
	AtomsCell int
	Types     int
	Ensembles int
}

//Header keys accepted for each count, after lowercasing and collapsing blanks.
var (
	atomsKeys     = []string{"number of atoms", "natoms", "na"}
	atomsCellKeys = []string{"number of atoms in cell", "atoms in cell", "atoms per cell", "natoms cell", "nacell"}
	typesKeys     = []string{"number of atom types", "number of types", "atom types", "ntypes", "nt"}
	ensKeys       = []string{"number of ensembles", "ensembles", "mensemble", "nens"}
)

func noDeclared() Declared {
	return Declared{Undeclared, Undeclared, Undeclared, Undeclared}
}

//Any returns true if at least one count is declared.
func (D Declared) Any() bool {
	return D.Atoms != Undeclared || D.AtomsCell != Undeclared || D.Types != Undeclared || D.Ensembles != Undeclared
}

//merge fills the undeclared counts of D with those of o.
func (D Declared) merge(o Declared) Declared {
	if D.Atoms == Undeclared {
		D.Atoms = o.Atoms
	}
	if D.AtomsCell == Undeclared {
		D.AtomsCell = o.AtomsCell
	}
	if D.Types == Undeclared {
		D.Types = o.Types
	}
	if D.Ensembles == Undeclared {
		D.Ensembles = o.Ensembles
	}
	return D
}

//DeclaredIn reads the counts declared in the header of t. A nil table declares
//nothing. A count that is present but not a non-negative integer gives a
//MalformedRecord error.
func DeclaredIn(t *table.Table) (Declared, error) {
	D := noDeclared()
	if t == nil {
		return D, nil
	}
	targets := []struct {
		keys []string
		dst  *int
	}{
		{atomsKeys, &D.Atoms},
		{atomsCellKeys, &D.AtomsCell},
		{typesKeys, &D.Types},
		{ensKeys, &D.Ensembles},
	}
	for _, tg := range targets {
		for _, k := range tg.keys {
			v, ok := t.Header(k)
			if !ok {
				continue
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				e := NewError(MalformedRecord, t.Source(), fmt.Sprintf("header %q: %q is not a count", k, v))
				e.column = k
				return noDeclared(), e
			}
			*tg.dst = n
			break
		}
	}
	return D, nil
}
