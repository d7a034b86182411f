/*
 * template.go, part of uppout.
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
	"fmt"
	"math"
	"regexp"
	"strconv"
)

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

//Template matches directory names against a pattern with exactly one
//{name} placeholder, such as "T{temp}K" or "run_{field}".
type Template struct {
	text  string
	param string
	re    *regexp.Regexp
}

//Compile parses a directory name template. The placeholder matches one or
//more characters other than '/'.
func Compile(template string) (*Template, error) {
	locs := placeholder.FindAllStringSubmatchIndex(template, -1)
	if len(locs) != 1 {
		return nil, fmt.Errorf("collect: template %q must have exactly one {name} placeholder, it has %d", template, len(locs))
	}
	l := locs[0]
	expr := "^" + regexp.QuoteMeta(template[:l[0]]) + "([^/]+)" + regexp.QuoteMeta(template[l[1]:]) + "$"
	return &Template{text: template, param: template[l[2]:l[3]], re: regexp.MustCompile(expr)}, nil
}

//Param returns the name of the placeholder.
func (T *Template) Param() string { return T.param }

func (T *Template) String() string { return T.text }

//Match returns the text matched by the placeholder in name.
func (T *Template) Match(name string) (string, bool) {
	m := T.re.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

//Value parses the text matched by the placeholder as a finite number.
func Value(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("collect: parameter %q is not a finite number", raw)
	}
	return v, nil
}
