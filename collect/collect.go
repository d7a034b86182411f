/*
 * collect.go, part of uppout.
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

//Package collect aggregates one quantity over many run directories whose
//names encode a parameter, such as a set of runs at different temperatures.
//
//Each candidate directory is processed on its own, and a failing run is
//recorded as a diagnostic instead of stopping the aggregation. The result
//is sorted by parameter value, with duplicated values kept and flagged.
package collect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/rmera/uppout"
	"github.com/rmera/uppout/schema"
	"github.com/rmera/uppout/table"
	"github.com/rmera/uppout/validate"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//Options for Collect.
type Options struct {
	//Simid is used for every run. If empty, each directory must hold a single simid,
	//unless Latest is set.
	Simid string
	//Latest picks, in each directory, the simid of the newest file of LatestPrefix
	//(averages by default).
	Latest       bool
	LatestPrefix schema.Prefix
	//SkipStructure doesn't require the coord file, and leaves Row.Meta nil.
	SkipStructure bool
	//Validate runs the consistency checks on each run, a run with violations fails.
	Validate        bool
	ValidateOptions validate.Options
	//Workers is the number of runs processed at the same time. 0 or 1 means serially.
	Workers int
	//Strict stops at the first failing run, and returns its error.
	Strict bool
}

//DefaultOptions processes runs serially, requiring coord files, without validation.
func DefaultOptions() Options {
	return Options{LatestPrefix: schema.Averages, ValidateOptions: validate.DefaultOptions(), Workers: 1}
}

//DiagnosticKind classifies the diagnostics of an aggregation.
type DiagnosticKind int

const (
	FailedRun DiagnosticKind = iota + 1
	DuplicateParameterValue
)

func (D DiagnosticKind) String() string {
	switch D {
	case FailedRun:
		return "failed run"
	case DuplicateParameterValue:
		return "duplicate parameter value"
	}
	return fmt.Sprintf("DiagnosticKind(%d)", int(D))
}

//Diagnostic is a problem found while aggregating. It isn't an error: the
//aggregation goes on.
type Diagnostic struct {
	Kind  DiagnosticKind
	Dirs  []string //directory names involved
	Param float64  //for DuplicateParameterValue
	Err   error    //for FailedRun
}

func (D Diagnostic) String() string {
	switch D.Kind {
	case FailedRun:
		return fmt.Sprintf("%s %s: %v", D.Kind, strings.Join(D.Dirs, ", "), D.Err)
	case DuplicateParameterValue:
		return fmt.Sprintf("%s %g: %s", D.Kind, D.Param, strings.Join(D.Dirs, ", "))
	}
	return D.Kind.String()
}

//Row is the result for one run.
type Row struct {
	Param    float64
	Raw      string //parameter text, as in the directory name
	Dir      string //directory name
	Path     string
	Identity uppout.Identity
	Values   []float64
	Meta     *uppout.Metadata
}

//Dataset is the aggregated result. Rows are sorted by parameter, and runs
//with equal parameter values by directory name.
type Dataset struct {
	Param       string
	Columns     []string
	Rows        []Row
	Diagnostics []Diagnostic
}

func (D *Dataset) diagnostics(k DiagnosticKind) []Diagnostic {
	var ret []Diagnostic
	for _, d := range D.Diagnostics {
		if d.Kind == k {
			ret = append(ret, d)
		}
	}
	return ret
}

//Failed returns the FailedRun diagnostics.
func (D *Dataset) Failed() []Diagnostic { return D.diagnostics(FailedRun) }

//Duplicates returns the DuplicateParameterValue diagnostics.
func (D *Dataset) Duplicates() []Diagnostic { return D.diagnostics(DuplicateParameterValue) }

//Params returns the parameter of each row.
func (D *Dataset) Params() []float64 {
	ret := make([]float64, len(D.Rows))
	for i, r := range D.Rows {
		ret[i] = r.Param
	}
	return ret
}

//Table returns the dataset as a table with the parameter, the values and a
//"dir" label column. If the parameter name clashes with a value column, the
//parameter column is called "param".
func (D *Dataset) Table() *table.Table {
	pname := D.Param
	if pname == "dir" || slices.Contains(D.Columns, pname) {
		pname = "param"
	}
	cols := []table.Column{table.F(pname)}
	for _, c := range D.Columns {
		cols = append(cols, table.F(c))
	}
	cols = append(cols, table.L("dir"))
	t := table.New(cols...)
	vals := make([]table.Value, len(cols))
	for _, r := range D.Rows {
		vals[0] = table.FloatValue(r.Param)
		for i, v := range r.Values {
			vals[i+1] = table.FloatValue(v)
		}
		vals[len(vals)-1] = table.LabelValue(r.Dir)
		if err := t.Append(vals...); err != nil {
			panic(err)
		}
	}
	return t
}

type candidate struct {
	name string
	raw  string
}

type result struct {
	row Row
	err error
}

//Collect computes q for every immediate subdirectory of root whose name
//matches template. Runs that fail are recorded as FailedRun diagnostics. If
//there were candidates but all of them failed, the error is NoRunsAggregated
//(the dataset, with its diagnostics, is returned anyway). No candidates at all
//give an empty dataset and no error.
func Collect(root, template string, q Quantity, o Options) (*Dataset, error) {
	tmpl, err := Compile(template)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("collect: reading %s: %w", root, err)
	}
	var cands []candidate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if raw, ok := tmpl.Match(e.Name()); ok {
			cands = append(cands, candidate{e.Name(), raw})
		}
	}
	log := uppout.Logger()
	log.Debug("collecting", zap.String("root", root), zap.String("template", template), zap.Int("candidates", len(cands)))

	results := make([]result, len(cands))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(o.Workers, 1))
	for i, c := range cands {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = processRun(filepath.Join(root, c.name), c, q, o)
			if o.Strict && results[i].err != nil {
				return results[i].err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds := &Dataset{Param: tmpl.Param(), Columns: append([]string(nil), q.Columns...)}
	var failures []string
	for i, res := range results {
		if res.err != nil {
			log.Warn("skipping run", zap.String("dir", cands[i].name), zap.Error(res.err))
			ds.Diagnostics = append(ds.Diagnostics, Diagnostic{Kind: FailedRun, Dirs: []string{cands[i].name}, Err: res.err})
			failures = append(failures, res.err.Error())
			continue
		}
		ds.Rows = append(ds.Rows, res.row)
	}
	sort.SliceStable(ds.Rows, func(i, j int) bool {
		a, b := ds.Rows[i], ds.Rows[j]
		if a.Param != b.Param {
			return a.Param < b.Param
		}
		return a.Dir < b.Dir
	})
	for i := 0; i < len(ds.Rows); {
		j := i + 1
		for j < len(ds.Rows) && ds.Rows[j].Param == ds.Rows[i].Param {
			j++
		}
		if j-i > 1 {
			dirs := make([]string, 0, j-i)
			for _, r := range ds.Rows[i:j] {
				dirs = append(dirs, r.Dir)
			}
			log.Warn("duplicate parameter value", zap.Float64(ds.Param, ds.Rows[i].Param), zap.Strings("dirs", dirs))
			ds.Diagnostics = append(ds.Diagnostics, Diagnostic{Kind: DuplicateParameterValue, Dirs: dirs, Param: ds.Rows[i].Param})
		}
		i = j
	}
	if len(cands) > 0 && len(ds.Rows) == 0 {
		return ds, uppout.NewError(uppout.NoRunsAggregated, root, fmt.Sprintf("all %d runs matching %q failed", len(cands), template), failures...)
	}
	return ds, nil
}

//processRun computes one row. Errors are decorated with the directory name.
func processRun(path string, c candidate, q Quantity, o Options) result {
	fail := func(err error) result {
		return result{err: fmt.Errorf("%s: %w", c.name, err)}
	}
	param, err := Value(c.raw)
	if err != nil {
		return fail(err)
	}
	simid := o.Simid
	if o.Latest {
		p := o.LatestPrefix
		if p == "" {
			p = schema.Averages
		}
		id, err := uppout.LatestIdentity(path, p)
		if err != nil {
			return fail(err)
		}
		simid = string(id)
	}
	r, err := uppout.Open(path, simid)
	if err != nil {
		return fail(err)
	}
	row := Row{Param: param, Raw: c.raw, Dir: c.name, Path: path, Identity: r.Identity()}
	if !o.SkipStructure {
		m, err := r.Metadata()
		if err != nil {
			return fail(err)
		}
		row.Meta = &m
	}
	if o.Validate {
		if _, err := validate.CheckRun(r, o.ValidateOptions); err != nil {
			return fail(err)
		}
	}
	vals, err := q.Compute(r)
	if err != nil {
		return fail(err)
	}
	if len(vals) != len(q.Columns) {
		return fail(fmt.Errorf("quantity %s gave %d values for %d columns", q.Name, len(vals), len(q.Columns)))
	}
	row.Values = vals
	return result{row: row}
}
