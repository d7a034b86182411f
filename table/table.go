/*
 * table.go, part of uppout.
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

//Package table implements the tabular dataset returned by the uppout parsers.
//A Table has a fixed, ordered set of typed columns and an ordered sequence of rows.
//Row order is the order of the source file, and it is never changed by the package
//unless a method explicitly says so. Rows are not deduplicated.
//
//Numeric values (Int and Float columns) are stored column-major as float64, so
//whole columns can be handed to gonum without copying element by element.
package table

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//Kind is the semantic type of a column.
type Kind int

const (
	Int Kind = iota
	Float
	Label
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case Label:
		return "label"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

//Column describes one column of a table.
type Column struct {
	Name string
	Kind Kind
}

//I returns an Int column with the given name.
func I(name string) Column { return Column{name, Int} }

//F returns a Float column with the given name.
func F(name string) Column { return Column{name, Float} }

//L returns a Label column with the given name.
func L(name string) Column { return Column{name, Label} }

//Value is one typed cell of a table.
type Value struct {
	kind Kind
	f    float64
	s    string
}

//IntValue, FloatValue and LabelValue build Values of the respective kind.
func IntValue(i int) Value { return Value{kind: Int, f: float64(i)} }
func FloatValue(f float64) Value { return Value{kind: Float, f: f} }
func LabelValue(s string) Value { return Value{kind: Label, s: s, f: math.NaN()} }
func (v Value) Kind() Kind { return v.kind }
func (v Value) Float() float64 { return v.f }
func (v Value) Int() int { return toInt(v.f) }
func (v Value) IsNumeric() bool { return v.kind != Label }

//Missing is true for a numeric value that is NaN, such as the right columns
//of an unmatched LeftJoin row.
func (v Value) Missing() bool { return v.kind != Label && math.IsNaN(v.f) }

//toInt rounds f to an int. NaN and infinities give 0.
func toInt(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Round(f))
}

//Equal reports whether v and w have the same kind and content.
func (v Value) Equal(w Value) bool {
	if v.kind != w.kind {
		return false
	}
	if v.kind == Label {
		return v.s == w.s
	}
	return v.f == w.f
}

//String returns the textual form of the value. Floats use the shortest
//representation that round-trips. A missing Int is the empty string.
func (v Value) String() string {
	switch v.kind {
	case Int:
		if v.Missing() {
			return ""
		}
		return strconv.Itoa(v.Int())
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	}
	return v.s
}

//Field is a named value inside a Record.
type Field struct {
	Name  string
	Value Value
}

//Record is one row of a table, with the fields in column order.
type Record []Field

//Get returns the value of the field with the given name.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

//Table is an ordered sequence of records sharing a fixed set of columns.
type Table struct {
	cols   []Column
	index  map[string]int
	nums   [][]float64 //column-major; nil for label columns
	labels [][]string  //column-major; nil for numeric columns
	rows   int
	header map[string]string
	source string
}

//New returns an empty table with the given columns. It panics if two columns
//share a name, since that can only be a programming error.
func New(cols ...Column) *Table {
	t := &Table{
		cols:   make([]Column, len(cols)),
		index:  make(map[string]int, len(cols)),
		nums:   make([][]float64, len(cols)),
		labels: make([][]string, len(cols)),
		header: map[string]string{},
	}
	copy(t.cols, cols)
	for i, c := range cols {
		if _, ok := t.index[c.Name]; ok {
			panic("table: duplicate column " + c.Name)
		}
		t.index[c.Name] = i
		if c.Kind == Label {
			t.labels[i] = []string{}
		} else {
			t.nums[i] = []float64{}
		}
	}
	return t
}

//Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

//Empty is true if the table has no rows.
func (t *Table) Empty() bool { return t.rows == 0 }

//Columns returns a copy of the column descriptors.
func (t *Table) Columns() []Column {
	ret := make([]Column, len(t.cols))
	copy(ret, t.cols)
	return ret
}

//Names returns the column names, in order.
func (t *Table) Names() []string {
	ret := make([]string, len(t.cols))
	for i, c := range t.cols {
		ret[i] = c.Name
	}
	return ret
}

//Has returns true if the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

//Source returns the path of the file the table was read from, if any.
func (t *Table) Source() string { return t.source }

//SetSource records the path of the file the table was read from.
func (t *Table) SetSource(path string) { t.source = path }

//Header returns the value for key in the header collected from the source
//file, if present.
func (t *Table) Header(key string) (string, bool) {
	v, ok := t.header[key]
	return v, ok
}

//HeaderKeys returns the header keys sorted.
func (t *Table) HeaderKeys() []string {
	ret := make([]string, 0, len(t.header))
	for k := range t.header {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

//SetHeader sets a header entry.
func (t *Table) SetHeader(key, value string) { t.header[key] = value }

func (t *Table) col(name string) int {
	i, ok := t.index[name]
	if !ok {
		panic(fmt.Sprintf("table: no column %q", name))
	}
	return i
}

func (t *Table) checkRow(i int) {
	if i < 0 || i >= t.rows {
		panic(fmt.Sprintf("table: row %d out of range [0,%d)", i, t.rows))
	}
}

//Append adds a row. The number and kinds of the values must match the columns.
func (t *Table) Append(vals ...Value) error {
	if len(vals) != len(t.cols) {
		return fmt.Errorf("table: %d values given, %d columns", len(vals), len(t.cols))
	}
	for i, v := range vals {
		if (v.kind == Label) != (t.cols[i].Kind == Label) {
			return fmt.Errorf("table: column %s is %s, value is %s", t.cols[i].Name, t.cols[i].Kind, v.kind)
		}
	}
	for i, v := range vals {
		if t.cols[i].Kind == Label {
			t.labels[i] = append(t.labels[i], v.s)
			continue
		}
		f := v.f
		if t.cols[i].Kind == Int {
			f = math.Round(f)
		}
		t.nums[i] = append(t.nums[i], f)
	}
	t.rows++
	return nil
}

//At returns the value in the given column and row. It panics if either is out of range.
func (t *Table) At(name string, i int) Value {
	j := t.col(name)
	t.checkRow(i)
	switch t.cols[j].Kind {
	case Label:
		return LabelValue(t.labels[j][i])
	case Int:
		return Value{kind: Int, f: t.nums[j][i]}
	}
	return FloatValue(t.nums[j][i])
}

//Float returns the numeric value in the given column and row.
func (t *Table) Float(name string, i int) float64 {
	j := t.col(name)
	t.checkRow(i)
	if t.nums[j] == nil {
		return math.NaN()
	}
	return t.nums[j][i]
}

//Int returns the value in the given column and row as an int, 0 if it is missing.
func (t *Table) Int(name string, i int) int {
	return toInt(t.Float(name, i))
}

//Label returns the textual value in the given column and row.
func (t *Table) Label(name string, i int) string {
	return t.At(name, i).String()
}

//Col returns a copy of the numeric column name. Label columns give NaNs.
func (t *Table) Col(name string) []float64 {
	j := t.col(name)
	ret := make([]float64, t.rows)
	if t.nums[j] == nil {
		for i := range ret {
			ret[i] = math.NaN()
		}
		return ret
	}
	copy(ret, t.nums[j])
	return ret
}

//Ints returns a copy of the column name converted to ints. Missing values give 0.
func (t *Table) Ints(name string) []int {
	c := t.Col(name)
	ret := make([]int, len(c))
	for i, v := range c {
		ret[i] = toInt(v)
	}
	return ret
}

//Row returns the ith row as a Record.
func (t *Table) Row(i int) Record {
	t.checkRow(i)
	r := make(Record, len(t.cols))
	for j, c := range t.cols {
		r[j] = Field{c.Name, t.At(c.Name, i)}
	}
	return r
}

//Unique returns the distinct values of a numeric column in order of first appearance.
func (t *Table) Unique(name string) []float64 {
	j := t.col(name)
	seen := make(map[float64]bool)
	var ret []float64
	for _, v := range t.nums[j] {
		if !seen[v] {
			seen[v] = true
			ret = append(ret, v)
		}
	}
	return ret
}

//NUnique returns the number of distinct values in a numeric column.
func (t *Table) NUnique(name string) int {
	return len(t.Unique(name))
}

//Range returns the minimum and maximum of a numeric column. It returns NaNs
//for an empty table.
func (t *Table) Range(name string) (min, max float64) {
	j := t.col(name)
	if t.rows == 0 || t.nums[j] == nil {
		return math.NaN(), math.NaN()
	}
	return floats.Min(t.nums[j]), floats.Max(t.nums[j])
}

//Mean returns the arithmetic mean of a numeric column.
func (t *Table) Mean(name string) float64 {
	j := t.col(name)
	if t.rows == 0 || t.nums[j] == nil {
		return math.NaN()
	}
	return stat.Mean(t.nums[j], nil)
}

//Last returns the last row.
func (t *Table) Last() (Record, bool) {
	if t.rows == 0 {
		return nil, false
	}
	return t.Row(t.rows - 1), true
}

//Dense returns a rows x len(names) gonum matrix with the given numeric columns.
//If no names are given, all numeric columns are used.
func (t *Table) Dense(names ...string) *mat.Dense {
	if len(names) == 0 {
		for _, c := range t.cols {
			if c.Kind != Label {
				names = append(names, c.Name)
			}
		}
	}
	if t.rows == 0 || len(names) == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(t.rows, len(names), nil)
	for k, n := range names {
		d.SetCol(k, t.Col(n))
	}
	return d
}
