/*
 * ops.go, part of uppout.
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

package table

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
)

//emptyLike returns an empty table with the columns, header and source of t.
func (t *Table) emptyLike(cols []Column) *Table {
	ret := New(cols...)
	for k, v := range t.header {
		ret.header[k] = v
	}
	ret.source = t.source
	return ret
}

//appendFrom copies row i of src into t. Columns are matched by name, so
//src may have more columns than t.
func (t *Table) appendFrom(src *Table, i int) {
	for j, c := range t.cols {
		k := src.index[c.Name]
		if c.Kind == Label {
			t.labels[j] = append(t.labels[j], src.labels[k][i])
		} else {
			t.nums[j] = append(t.nums[j], src.nums[k][i])
		}
	}
	t.rows++
}

//Select returns a new table with the given rows, in the given order.
func (t *Table) Select(rows []int) *Table {
	ret := t.emptyLike(t.cols)
	for _, i := range rows {
		t.checkRow(i)
		ret.appendFrom(t, i)
	}
	return ret
}

//Slice returns the rows start, start+step, ... up to (not including) end.
//An end <= 0 or beyond the table means "until the last row". A step <= 0 is taken as 1.
func (t *Table) Slice(start, end, step int) *Table {
	if step <= 0 {
		step = 1
	}
	if end <= 0 || end > t.rows {
		end = t.rows
	}
	if start < 0 {
		start = 0
	}
	var rows []int
	for i := start; i < end; i += step {
		rows = append(rows, i)
	}
	return t.Select(rows)
}

//Filter returns the rows for which keep returns true, in their original order.
func (t *Table) Filter(keep func(r Record) bool) *Table {
	var rows []int
	for i := 0; i < t.rows; i++ {
		if keep(t.Row(i)) {
			rows = append(rows, i)
		}
	}
	return t.Select(rows)
}

//Where returns the rows where the numeric column name equals v.
func (t *Table) Where(name string, v float64) *Table {
	j := t.col(name)
	var rows []int
	for i, w := range t.nums[j] {
		if w == v {
			rows = append(rows, i)
		}
	}
	return t.Select(rows)
}

//GroupBy splits the table by the distinct values of a numeric column. The
//groups are returned in order of first appearance, together with their keys.
func (t *Table) GroupBy(name string) ([]float64, []*Table) {
	keys := t.Unique(name)
	groups := make([]*Table, len(keys))
	for k, v := range keys {
		groups[k] = t.Where(name, v)
	}
	return keys, groups
}

//Keep returns a table with only the given columns, in the given order.
func (t *Table) Keep(names ...string) *Table {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = t.cols[t.col(n)]
	}
	ret := t.emptyLike(cols)
	for i := 0; i < t.rows; i++ {
		ret.appendFrom(t, i)
	}
	return ret
}

//Drop returns a table without the given columns.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var keep []string
	for _, c := range t.cols {
		if !drop[c.Name] {
			keep = append(keep, c.Name)
		}
	}
	return t.Keep(keep...)
}

//Rename returns a copy of the table with column oldname called newname.
func (t *Table) Rename(oldname, newname string) *Table {
	ret := t.Keep(t.Names()...)
	j := ret.col(oldname)
	if _, ok := ret.index[newname]; ok && newname != oldname {
		panic("table: rename would duplicate column " + newname)
	}
	delete(ret.index, oldname)
	ret.cols[j].Name = newname
	ret.index[newname] = j
	return ret
}

//SortBy returns a copy of the table with rows ordered by the numeric column
//name, ascending. The sort is stable, so equal keys keep their relative order.
func (t *Table) SortBy(name string) *Table {
	j := t.col(name)
	rows := make([]int, t.rows)
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool { return t.nums[j][rows[a]] < t.nums[j][rows[b]] })
	return t.Select(rows)
}

//LeftJoin joins right into left on the numeric column key. Every left row is
//kept, in order; the first right row with a matching key provides the values of
//the right columns, which are missing (NaN, or empty labels) when there is no match.
//Right columns whose name clashes with a left column get suffix appended.
func LeftJoin(left, right *Table, key, suffix string) (*Table, error) {
	if !left.Has(key) || !right.Has(key) {
		return nil, fmt.Errorf("table: join key %q missing", key)
	}
	cols := left.Columns()
	type rc struct {
		src int
		dst string
	}
	var extra []rc
	for k, c := range right.cols {
		if c.Name == key {
			continue
		}
		name := c.Name
		if left.Has(name) {
			name += suffix
		}
		cols = append(cols, Column{name, c.Kind})
		extra = append(extra, rc{k, name})
	}
	ret := left.emptyLike(cols)
	kr := right.col(key)
	firstrow := make(map[float64]int, right.rows)
	for i := right.rows - 1; i >= 0; i-- {
		firstrow[right.nums[kr][i]] = i
	}
	kl := left.col(key)
	nl := len(left.cols)
	for i := 0; i < left.rows; i++ {
		for j := range left.cols {
			if left.cols[j].Kind == Label {
				ret.labels[j] = append(ret.labels[j], left.labels[j][i])
			} else {
				ret.nums[j] = append(ret.nums[j], left.nums[j][i])
			}
		}
		r, ok := firstrow[left.nums[kl][i]]
		for e, x := range extra {
			j := nl + e
			switch {
			case ret.cols[j].Kind == Label && ok:
				ret.labels[j] = append(ret.labels[j], right.labels[x.src][r])
			case ret.cols[j].Kind == Label:
				ret.labels[j] = append(ret.labels[j], "")
			case ok:
				ret.nums[j] = append(ret.nums[j], right.nums[x.src][r])
			default:
				ret.nums[j] = append(ret.nums[j], math.NaN())
			}
		}
		ret.rows++
	}
	return ret, nil
}

//WriteCSV writes the table as CSV, with a first row of column names.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return err
	}
	rec := make([]string, len(t.cols))
	for i := 0; i < t.rows; i++ {
		for j, c := range t.cols {
			rec[j] = t.At(c.Name, i).String()
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

//MarshalJSON encodes the table as its columns and an array of rows.
func (t *Table) MarshalJSON() ([]byte, error) {
	type col struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	cols := make([]col, len(t.cols))
	for i, c := range t.cols {
		cols[i] = col{c.Name, c.Kind.String()}
	}
	rows := make([][]interface{}, t.rows)
	for i := range rows {
		rows[i] = make([]interface{}, len(t.cols))
		for j, c := range t.cols {
			v := t.At(c.Name, i)
			switch {
			case c.Kind == Label:
				rows[i][j] = v.String()
			case math.IsNaN(v.Float()) || math.IsInf(v.Float(), 0):
				rows[i][j] = nil
			case c.Kind == Int:
				rows[i][j] = v.Int()
			default:
				rows[i][j] = v.Float()
			}
		}
	}
	return json.Marshal(struct {
		Source  string            `json:"source,omitempty"`
		Header  map[string]string `json:"header,omitempty"`
		Columns []col             `json:"columns"`
		Rows    [][]interface{}   `json:"rows"`
	}{t.source, t.header, cols, rows})
}
