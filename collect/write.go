/*
 * write.go, part of uppout.
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
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

//WriteFile writes the dataset table to path, as JSON if the name ends in
//.json and as CSV otherwise. A further .gz or .zst suffix compresses the output.
func (D *Dataset) WriteFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	var w io.Writer = f
	name := path
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz := gzip.NewWriter(f)
		defer closeInto(gz, &err)
		w, name = gz, strings.TrimSuffix(path, ".gz")
	case strings.HasSuffix(path, ".zst"):
		zs, zerr := zstd.NewWriter(f)
		if zerr != nil {
			return zerr
		}
		defer closeInto(zs, &err)
		w, name = zs, strings.TrimSuffix(path, ".zst")
	}
	if strings.HasSuffix(name, ".json") {
		return json.NewEncoder(w).Encode(D.Table())
	}
	return D.Table().WriteCSV(w)
}

//closeInto closes c, keeping the first error in err.
func closeInto(c io.Closer, err *error) {
	if cerr := c.Close(); *err == nil {
		*err = cerr
	}
}
