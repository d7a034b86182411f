/*
 * collect_test.go, part of uppout.
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
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rmera/uppout"
	"github.com/rmera/uppout/internal/fixture"
	"github.com/rmera/uppout/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

//makeRuns writes one fixture run per directory name under a new root.
func makeRuns(t *testing.T, mod func(name string, o *fixture.Options), names ...string) string {
	t.Helper()
	root := t.TempDir()
	for i, n := range names {
		dir := filepath.Join(root, n)
		require.NoError(t, os.Mkdir(dir, 0o755))
		o := fixture.DefaultOptions()
		o.Cells = 2
		o.M = 0.9 - 0.1*float64(i)
		if mod != nil {
			mod(n, &o)
		}
		require.NoError(t, fixture.Write(dir, o))
	}
	return root
}

func TestDuplicateParameters(t *testing.T) {
	root := makeRuns(t, nil, "T100", "T200", "T100.0")
	ds, err := Collect(root, "T{temp}", Averages(Last), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "temp", ds.Param)
	assert.Equal(t, []float64{100, 100, 200}, ds.Params())
	assert.Equal(t, "T100", ds.Rows[0].Dir)
	assert.Equal(t, "T100.0", ds.Rows[1].Dir)
	assert.Equal(t, "100.0", ds.Rows[1].Raw)
	require.Len(t, ds.Duplicates(), 1)
	d := ds.Duplicates()[0]
	assert.Equal(t, 100.0, d.Param)
	assert.Equal(t, []string{"T100", "T100.0"}, d.Dirs)
	assert.Empty(t, ds.Failed())
	assert.Contains(t, d.String(), "T100, T100.0")
}

func TestPartialFailure(t *testing.T) {
	root := makeRuns(t, func(name string, o *fixture.Options) {
		if name == "T3" {
			o.Omit = []schema.Prefix{schema.Coord}
		}
	}, "T1", "T2", "T3", "T4", "T5")
	ds, err := Collect(root, "T{temp}", Averages(Last), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 4, 5}, ds.Params())
	failed := ds.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, []string{"T3"}, failed[0].Dirs)
	assert.True(t, errors.Is(failed[0].Err, uppout.ErrPrefixUnavailable))
	for _, r := range ds.Rows {
		require.NotNil(t, r.Meta)
		assert.Equal(t, 16, r.Meta.NumAtoms)
	}

	//the same run passes when the structure isn't needed.
	o := DefaultOptions()
	o.SkipStructure = true
	ds, err = Collect(root, "T{temp}", Averages(Last), o)
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 5)
	assert.Nil(t, ds.Rows[2].Meta)

	o.Strict = true
	o.SkipStructure = false
	_, err = Collect(root, "T{temp}", Averages(Last), o)
	assert.True(t, errors.Is(err, uppout.ErrPrefixUnavailable))
}

func TestWorkers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	names := []string{"h0.5", "h0.1", "h0.3", "h0.2", "h0.4", "h0.05", "h0.25"}
	root := makeRuns(t, nil, names...)
	serial, err := Collect(root, "h{field}", Cumulants(Window{Start: 1, Step: 1}), DefaultOptions())
	require.NoError(t, err)
	o := DefaultOptions()
	o.Workers = 4
	parallel, err := Collect(root, "h{field}", Cumulants(Window{Start: 1, Step: 1}), o)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(serial.Rows, parallel.Rows))
	assert.Equal(t, []float64{0.05, 0.1, 0.2, 0.25, 0.3, 0.4, 0.5}, parallel.Params())
}

func TestAllFail(t *testing.T) {
	root := makeRuns(t, func(_ string, o *fixture.Options) { o.Omit = []schema.Prefix{schema.Averages} }, "T1", "T2")
	ds, err := Collect(root, "T{temp}", Averages(Last), DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, uppout.ErrNoRunsAggregated))
	require.NotNil(t, ds)
	assert.Len(t, ds.Failed(), 2)
	var e *uppout.Error
	require.True(t, errors.As(err, &e))
	assert.Len(t, e.Details(), 2)
}

func TestNoCandidates(t *testing.T) {
	root := makeRuns(t, nil, "other")
	require.NoError(t, os.WriteFile(filepath.Join(root, "T5"), nil, 0o644)) //a file, not a directory
	ds, err := Collect(root, "T{temp}", Averages(Last), DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, ds.Rows)
	assert.Empty(t, ds.Diagnostics)
	assert.Equal(t, 0, ds.Table().Len())
}

func TestBadParameter(t *testing.T) {
	root := makeRuns(t, nil, "T10", "Tabc", "TNaN", "TInf", "T-inf", "T5")
	ds, err := Collect(root, "T{temp}", Averages(Last), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 10}, ds.Params())
	var dirs []string
	for _, d := range ds.Failed() {
		dirs = append(dirs, d.Dirs...)
	}
	assert.ElementsMatch(t, []string{"Tabc", "TNaN", "TInf", "T-inf"}, dirs)
	for _, bad := range []string{"NaN", "+Inf", "infinity", "1e400"} {
		_, err := Value(bad)
		assert.Error(t, err, bad)
	}
	v, err := Value("2.5e2")
	require.NoError(t, err)
	assert.Equal(t, 250.0, v)
}

func TestTemplate(t *testing.T) {
	for _, bad := range []string{"run", "{a}_{b}", "T{1x}"} {
		_, err := Compile(bad)
		assert.Error(t, err, bad)
	}
	tm, err := Compile("run.{T}K")
	require.NoError(t, err)
	assert.Equal(t, "T", tm.Param())
	v, ok := tm.Match("run.300K")
	require.True(t, ok)
	assert.Equal(t, "300", v)
	_, ok = tm.Match("runx300K")
	assert.False(t, ok)
	_, ok = tm.Match("run.K")
	assert.False(t, ok)
	_, err = Collect(t.TempDir(), "run", Averages(Last), DefaultOptions())
	assert.Error(t, err)
}

func TestWindow(t *testing.T) {
	root := makeRuns(t, nil, "T1")
	o := fixture.DefaultOptions()
	o.M = 0.9

	ds, err := Collect(root, "T{temp}", Averages(Last), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"Mx", "My", "Mz", "M", "M_std"}, ds.Columns)
	assert.InDelta(t, fixture.Mz(o, o.Iterations-1), ds.Rows[0].Values[2], 1e-8)
	assert.InDelta(t, 0.005, ds.Rows[0].Values[4], 1e-12)

	w := Window{Start: 1, End: 4, Step: 2}
	ds, err = Collect(root, "T{temp}", Averages(w), DefaultOptions())
	require.NoError(t, err)
	want := (fixture.Mz(o, 1) + fixture.Mz(o, 3)) / 2
	assert.InDelta(t, want, ds.Rows[0].Values[2], 1e-8)

	_, err = Collect(root, "T{temp}", Averages(Window{Start: 10, Step: 1}), Options{Strict: true})
	assert.Error(t, err)
}

func TestQuantities(t *testing.T) {
	root := makeRuns(t, nil, "T1")
	for _, name := range []string{"averages", "cumulants", "totenergy"} {
		q, err := ByName(name, Last)
		require.NoError(t, err)
		ds, err := Collect(root, "T{temp}", q, DefaultOptions())
		require.NoError(t, err, name)
		require.Len(t, ds.Rows, 1)
		assert.Len(t, ds.Rows[0].Values, len(q.Columns))
	}
	c, _ := ByName("cumulants", Last)
	assert.Equal(t, []string{"M", "M2", "M4", "Binder", "chi", "Cv", "E", "E_exch", "E_lsf"}, c.Columns)
	_, err := ByName("nope", Last)
	assert.Error(t, err)

	bad := Quantity{Name: "bad", Columns: []string{"a", "b"}, Compute: func(r *uppout.Run) ([]float64, error) { return []float64{1}, nil }}
	ds, err := Collect(root, "T{temp}", bad, DefaultOptions())
	assert.True(t, errors.Is(err, uppout.ErrNoRunsAggregated))
	assert.Len(t, ds.Failed(), 1)
}

func TestIdentityOptions(t *testing.T) {
	root := makeRuns(t, func(_ string, o *fixture.Options) { o.Simid = "olderrun" }, "T1")
	dir := filepath.Join(root, "T1")
	o := fixture.DefaultOptions()
	o.Cells = 2
	o.Simid = "newerrun"
	o.M = 0.5
	require.NoError(t, fixture.Write(dir, o))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "averages.olderrun.out"), old, old))

	_, err := Collect(root, "T{temp}", Averages(Last), DefaultOptions())
	assert.True(t, errors.Is(err, uppout.ErrNoRunsAggregated))

	opts := DefaultOptions()
	opts.Latest = true
	ds, err := Collect(root, "T{temp}", Averages(Last), opts)
	require.NoError(t, err)
	assert.Equal(t, uppout.Identity("newerrun"), ds.Rows[0].Identity)
	assert.InDelta(t, fixture.Mz(o, o.Iterations-1), ds.Rows[0].Values[2], 1e-8)

	opts = DefaultOptions()
	opts.Simid = "olderrun"
	ds, err = Collect(root, "T{temp}", Averages(Last), opts)
	require.NoError(t, err)
	assert.Equal(t, uppout.Identity("olderrun"), ds.Rows[0].Identity)
}

func TestValidateRuns(t *testing.T) {
	root := makeRuns(t, func(name string, o *fixture.Options) { o.CorruptHeader = name == "T2" }, "T1", "T2")
	o := DefaultOptions()
	o.Validate = true
	ds, err := Collect(root, "T{temp}", Averages(Last), o)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, ds.Params())
	require.Len(t, ds.Failed(), 1)
	assert.True(t, errors.Is(ds.Failed()[0].Err, uppout.ErrConsistencyViolation))
}

func TestTableAndWrite(t *testing.T) {
	root := makeRuns(t, nil, "T300", "T100")
	ds, err := Collect(root, "T{temp}", Averages(Last), DefaultOptions())
	require.NoError(t, err)
	tab := ds.Table()
	assert.Equal(t, []string{"temp", "Mx", "My", "Mz", "M", "M_std", "dir"}, tab.Names())
	assert.Equal(t, []float64{100, 300}, tab.Col("temp"))
	assert.Equal(t, "T300", tab.Label("dir", 1))

	out := t.TempDir()
	var plain bytes.Buffer
	require.NoError(t, tab.WriteCSV(&plain))
	require.NoError(t, ds.WriteFile(filepath.Join(out, "m.csv")))
	got, err := os.ReadFile(filepath.Join(out, "m.csv"))
	require.NoError(t, err)
	assert.Equal(t, plain.String(), string(got))
	assert.True(t, strings.HasPrefix(string(got), "temp,Mx,"))

	require.NoError(t, ds.WriteFile(filepath.Join(out, "m.csv.gz")))
	f, err := os.Open(filepath.Join(out, "m.csv.gz"))
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	got, err = io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, plain.String(), string(got))

	require.NoError(t, ds.WriteFile(filepath.Join(out, "m.json.zst")))
	raw, err := os.ReadFile(filepath.Join(out, "m.json.zst"))
	require.NoError(t, err)
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	js, err := dec.DecodeAll(raw, nil)
	require.NoError(t, err)
	var doc struct {
		Columns []struct{ Name string }
		Rows    [][]interface{}
	}
	require.NoError(t, json.Unmarshal(js, &doc))
	assert.Len(t, doc.Rows, 2)
	assert.Equal(t, "temp", doc.Columns[0].Name)
}

func TestParamClash(t *testing.T) {
	ds := &Dataset{Param: "M", Columns: []string{"M"}, Rows: []Row{{Param: 1, Dir: "M1", Values: []float64{0.5}}}}
	assert.Equal(t, []string{"param", "M", "dir"}, ds.Table().Names())
}
