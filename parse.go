/*
 * parse.go, part of uppout.
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
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rmera/uppout/schema"
	"github.com/rmera/uppout/table"
)

//maxLine is the longest line the parser accepts.
const maxLine = 1 << 20

//fileCloser closes a decompressor and then the file under it.
type fileCloser struct {
	io.Reader
	closers []func() error
}

func (F *fileCloser) Close() error {
	var err error
	for _, c := range F.closers {
		if e := c(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

//openOutput opens path, decompressing it according to c.
func openOutput(path string, c Compression) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch c {
	case Gzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("uppout: gzip %s: %w", path, err)
		}
		return &fileCloser{gz, []func() error{gz.Close, f.Close}}, nil
	case Zstd:
		zs, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("uppout: zstd %s: %w", path, err)
		}
		return &fileCloser{zs, []func() error{func() error { zs.Close(); return nil }, f.Close}}, nil
	}
	return f, nil
}

//parseNumber parses a number as written by Fortran programs, which may use D
//instead of E for the exponent.
func parseNumber(s string) (float64, error) {
	if strings.ContainsAny(s, "dD") {
		s = strings.NewReplacer("d", "e", "D", "e").Replace(s)
	}
	return strconv.ParseFloat(s, 64)
}

//normKey lowercases a header key and collapses its blanks.
func normKey(k string) string {
	return strings.ToLower(strings.Join(strings.Fields(k), " "))
}

//headerPair returns the key and value of a "# key: value" line. The comment
//marker has already been removed.
func headerPair(s string) (string, string, bool) {
	i := strings.Index(s, ":")
	if i < 0 {
		return "", "", false
	}
	k, v := normKey(s[:i]), strings.TrimSpace(s[i+1:])
	if k == "" || v == "" {
		return "", "", false
	}
	return k, v, true
}

//ParseTable reads data laid out as L from r. name is only used in errors,
//and as the source of the returned table.
func ParseTable(r io.Reader, L schema.Layout, name string) (*table.Table, error) {
	t := L.NewTable()
	t.SetSource(name)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	vals := make([]table.Value, len(L.Columns))
	lineno := 0
	first := true
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if L.Comment != "" && strings.HasPrefix(line, L.Comment) {
			if k, v, ok := headerPair(strings.TrimPrefix(line, L.Comment)); ok {
				t.SetHeader(k, v)
			}
			continue
		}
		fields := strings.Fields(line)
		if first {
			first = false
			if _, err := parseNumber(fields[0]); L.TitleRow && err != nil {
				continue
			}
		}
		if len(fields) != L.Fields() {
			return nil, malformed(name, lineno, "", fmt.Sprintf("%d fields, expected %d", len(fields), L.Fields()))
		}
		for j, c := range L.Columns {
			text := fields[L.Skip+j]
			if c.Kind == table.Label {
				vals[j] = table.LabelValue(text)
				continue
			}
			f, err := parseNumber(text)
			if err != nil {
				return nil, malformed(name, lineno, c.Name, fmt.Sprintf("can't parse %q", text))
			}
			if c.Kind == table.Int {
				if f != math.Trunc(f) || math.IsInf(f, 0) {
					return nil, malformed(name, lineno, c.Name, fmt.Sprintf("%q is not an integer", text))
				}
				vals[j] = table.IntValue(int(f))
				continue
			}
			vals[j] = table.FloatValue(f)
		}
		if err := t.Append(vals...); err != nil {
			//can't happen, the values were built from the layout.
			panic(err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("uppout: reading %s line %d: %w", name, lineno+1, err)
	}
	return t, nil
}

//ParseFile reads the file at path, laid out as L. Files ending in .gz or .zst
//are decompressed.
func ParseFile(path string, L schema.Layout) (*table.Table, error) {
	c := None
	switch {
	case strings.HasSuffix(path, ".gz"):
		c = Gzip
	case strings.HasSuffix(path, ".zst"):
		c = Zstd
	}
	return parseFile(path, c, L)
}

func parseFile(path string, c Compression, L schema.Layout) (*table.Table, error) {
	rc, err := openOutput(path, c)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ParseTable(rc, L, path)
}
