/*
 * run.go, part of uppout.
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
	"sort"
	"strings"

	"github.com/rmera/uppout/schema"
	"github.com/rmera/uppout/table"
	"go.uber.org/zap"
)

//Box is the axis-aligned bounding box of the atomic positions.
type Box struct {
	Min [3]float64
	Max [3]float64
}

//Lengths returns the extent of the box along each axis.
func (B Box) Lengths() [3]float64 {
	return [3]float64{B.Max[0] - B.Min[0], B.Max[1] - B.Min[1], B.Max[2] - B.Min[2]}
}

//Metadata are the counts of a run, derived from its coord and restart files.
type Metadata struct {
	NumAtoms     int
	NumAtomsCell int
	NumAtomTypes int
	NumEnsembles int //0 if the run has no restart file
	Box          Box
}

//Run is the output of one simulation: a directory and a simulation id.
//A Run is not safe for concurrent use.
type Run struct {
	dir      *Directory
	id       Identity
	prefixes []schema.Prefix
	meta     *Metadata
}

//Open resolves the run in dir. If simid is empty, the directory must contain
//output of only one simulation.
func Open(dir, simid string) (*Run, error) {
	D, err := Scan(dir)
	if err != nil {
		return nil, err
	}
	return D.Open(simid)
}

//Open resolves a run in the already scanned directory D.
func (D *Directory) Open(simid string) (*Run, error) {
	id, prefixes, err := D.Resolve(simid)
	if err != nil {
		return nil, errDecorate(err, "Open")
	}
	return &Run{dir: D, id: id, prefixes: prefixes}, nil
}

//Identity returns the simulation id of the run.
func (R *Run) Identity() Identity { return R.id }

//Dir returns the path of the run directory.
func (R *Run) Dir() string { return R.dir.Path }

//Prefixes returns the prefixes of the files present for the run, sorted.
func (R *Run) Prefixes() []schema.Prefix {
	return append([]schema.Prefix(nil), R.prefixes...)
}

//Has returns true if the run has a file with the given prefix.
func (R *Run) Has(p schema.Prefix) bool {
	i := sort.Search(len(R.prefixes), func(i int) bool { return R.prefixes[i] >= p })
	return i < len(R.prefixes) && R.prefixes[i] == p
}

//Path returns the path of the file with the given prefix.
func (R *Run) Path(p schema.Prefix) (string, error) {
	f, ok := R.dir.File(p, R.id)
	if !ok {
		return "", NewError(PrefixUnavailable, R.dir.Path, fmt.Sprintf("no %s file for simid %q", p, string(R.id)))
	}
	return R.dir.FilePath(f), nil
}

//Read parses the file with the given prefix. The prefix must have a layout
//in the schema registry and a file in the run.
func (R *Run) Read(p schema.Prefix) (*table.Table, error) {
	L, ok := schema.Lookup(p)
	if !ok {
		return nil, NewError(UnknownPrefix, R.dir.Path, fmt.Sprintf("no layout for prefix %q", p))
	}
	f, ok := R.dir.File(p, R.id)
	if !ok {
		return nil, NewError(PrefixUnavailable, R.dir.Path, fmt.Sprintf("no %s file for simid %q", p, string(R.id)))
	}
	path := R.dir.FilePath(f)
	t, err := parseFile(path, f.Compression, L)
	if err != nil {
		Logger().Error("reading output file", zap.String("file", path), zap.String("prefix", string(p)), zap.Error(err))
		return nil, errDecorate(err, "Read")
	}
	Logger().Debug("read output file", zap.String("file", path), zap.Int("rows", t.Len()))
	return t, nil
}

func (R *Run) Averages() (*table.Table, error)  { return R.Read(schema.Averages) }
func (R *Run) Cumulants() (*table.Table, error) { return R.Read(schema.Cumulants) }
func (R *Run) Coord() (*table.Table, error)     { return R.Read(schema.Coord) }
func (R *Run) Restart() (*table.Table, error)   { return R.Read(schema.Restart) }
func (R *Run) MCInitial() (*table.Table, error) { return R.Read(schema.MCInitial) }
func (R *Run) Struct() (*table.Table, error)    { return R.Read(schema.Struct) }
func (R *Run) TotEnergy() (*table.Table, error) { return R.Read(schema.TotEnergy) }
func (R *Run) StdEnergy() (*table.Table, error) { return R.Read(schema.StdEnergy) }

//Energy returns the total energy contributions, with their standard deviations
//joined on iter as columns with a _std suffix (tot_std, exch_std, ...).
func (R *Run) Energy() (*table.Table, error) {
	tot, err := R.TotEnergy()
	if err != nil {
		return nil, errDecorate(err, "Energy")
	}
	std, err := R.StdEnergy()
	if err != nil {
		return nil, errDecorate(err, "Energy")
	}
	return table.LeftJoin(tot, std, "iter", "_std")
}

//byProjection splits the table of prefix p by its proj column.
func (R *Run) byProjection(p schema.Prefix) (map[int]*table.Table, error) {
	t, err := R.Read(p)
	if err != nil {
		return nil, err
	}
	keys, groups := t.GroupBy("proj")
	ret := make(map[int]*table.Table, len(keys))
	for i, k := range keys {
		ret[int(k)] = groups[i]
	}
	return ret, nil
}

//ProjAverages returns the type-projected averages, keyed by projection.
func (R *Run) ProjAverages() (map[int]*table.Table, error) { return R.byProjection(schema.ProjAverages) }

//ProjCumulants returns the type-projected cumulants, keyed by projection.
func (R *Run) ProjCumulants() (map[int]*table.Table, error) {
	return R.byProjection(schema.ProjCumulants)
}

//FinalConfigs returns the final configuration of each ensemble, in order of
//appearance in the restart file. Each table has the restart columns (without
//ens_num) followed by the coord columns of the atom.
func (R *Run) FinalConfigs() ([]*table.Table, error) {
	restart, err := R.Restart()
	if err != nil {
		return nil, errDecorate(err, "FinalConfigs")
	}
	coord, err := R.Coord()
	if err != nil {
		return nil, errDecorate(err, "FinalConfigs")
	}
	_, groups := restart.GroupBy("ens_num")
	ret := make([]*table.Table, 0, len(groups))
	for _, g := range groups {
		c, err := table.LeftJoin(g.Drop("ens_num"), coord, "at_num", "_coord")
		if err != nil {
			return nil, err
		}
		ret = append(ret, c)
	}
	return ret, nil
}

//AtomType returns the type of atom atNum, from the coord file.
func (R *Run) AtomType(atNum int) (int, error) {
	coord, err := R.Coord()
	if err != nil {
		return 0, errDecorate(err, "AtomType")
	}
	sel := coord.Where("at_num", float64(atNum))
	if sel.Empty() {
		return 0, NewError(AtomNotFound, coord.Source(), fmt.Sprintf("atom %d not in coord data", atNum))
	}
	return sel.Int("at_type", 0), nil
}

//Metadata returns the counts and box of the run. They are computed from the
//coord file (and the restart file, if present) the first time, and cached.
func (R *Run) Metadata() (Metadata, error) {
	if R.meta != nil {
		return *R.meta, nil
	}
	coord, err := R.Coord()
	if err != nil {
		return Metadata{}, errDecorate(err, "Metadata")
	}
	m := Metadata{
		NumAtoms:     coord.Len(),
		NumAtomsCell: coord.NUnique("at_num_cell"),
		NumAtomTypes: coord.NUnique("at_type"),
	}
	if coord.Len() > 0 {
		for i, ax := range []string{"x", "y", "z"} {
			m.Box.Min[i], m.Box.Max[i] = coord.Range(ax)
		}
	}
	if R.Has(schema.Restart) {
		restart, err := R.Restart()
		if err != nil {
			return Metadata{}, errDecorate(err, "Metadata")
		}
		m.NumEnsembles = restart.NUnique("ens_num")
	}
	R.meta = &m
	return m, nil
}

//Declared returns the counts declared in the headers of the struct and restart
//files of the run, the struct file taking precedence. Missing files declare
//nothing.
func (R *Run) Declared() (Declared, error) {
	D := noDeclared()
	for _, p := range []schema.Prefix{schema.Struct, schema.Restart} {
		if !R.Has(p) {
			continue
		}
		t, err := R.Read(p)
		if err != nil {
			return noDeclared(), errDecorate(err, "Declared")
		}
		d, err := DeclaredIn(t)
		if err != nil {
			return noDeclared(), errDecorate(err, "Declared")
		}
		D = D.merge(d)
	}
	return D, nil
}

//String returns the directory and simulation id of the run.
func (R *Run) String() string {
	return fmt.Sprintf("%s [%s]", R.dir.Path, string(R.id))
}

//Summary returns a human-readable description of the run. Counts that can't
//be computed are left out.
func (R *Run) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Directory: %s\n", R.dir.Path)
	fmt.Fprintf(&b, "Simid:     %q\n", string(R.id))
	ps := make([]string, len(R.prefixes))
	for i, p := range R.prefixes {
		ps[i] = string(p)
	}
	fmt.Fprintf(&b, "Files:     %s\n", strings.Join(ps, ", "))
	m, err := R.Metadata()
	if err != nil {
		fmt.Fprintf(&b, "Metadata:  unavailable (%v)\n", err)
		return b.String()
	}
	fmt.Fprintf(&b, "Atoms:     %d (%d per cell, %d types)\n", m.NumAtoms, m.NumAtomsCell, m.NumAtomTypes)
	fmt.Fprintf(&b, "Ensembles: %d\n", m.NumEnsembles)
	l := m.Box.Lengths()
	fmt.Fprintf(&b, "Box:       x [%g, %g] y [%g, %g] z [%g, %g] (%g x %g x %g)\n",
		m.Box.Min[0], m.Box.Max[0], m.Box.Min[1], m.Box.Max[1], m.Box.Min[2], m.Box.Max[2], l[0], l[1], l[2])
	return b.String()
}
