/*
 * resolve.go, part of uppout.
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
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rmera/uppout/schema"
	"go.uber.org/zap"
)

//IdentityLen is the length of a simulation id.
const IdentityLen = 8

//Identity is the simulation id shared by all the output files of one run.
type Identity string

//ParseIdentity checks that s is a valid simulation id: exactly 8 bytes, no dots.
//Spaces are allowed and kept.
func ParseIdentity(s string) (Identity, error) {
	if len(s) != IdentityLen {
		return "", NewError(InvalidIdentity, "", fmt.Sprintf("%q has %d characters, need %d", s, len(s), IdentityLen))
	}
	if strings.Contains(s, ".") {
		return "", NewError(InvalidIdentity, "", fmt.Sprintf("%q contains a dot", s))
	}
	return Identity(s), nil
}

//Compression of an output file.
type Compression string

const (
	None Compression = ""
	Gzip Compression = "gz"
	Zstd Compression = "zst"
)

var suffixes = []struct {
	ext string
	c   Compression
}{
	{".out", None},
	{".out.gz", Gzip},
	{".out.zst", Zstd},
}

//OutputFile is one output file found in a directory.
type OutputFile struct {
	Name        string
	Prefix      schema.Prefix
	Token       Identity
	Compression Compression
	ModTime     time.Time
}

//Directory is the set of output files found in a directory. It is built
//once by Scan and not modified afterwards.
type Directory struct {
	Path  string
	Files []OutputFile //sorted by name
}

//splitName returns the prefix, token and compression of an output file name.
//ok is false for files that are not UppASD output.
func splitName(name string) (prefix string, token string, c Compression, ok bool) {
	base := ""
	for _, s := range suffixes {
		if strings.HasSuffix(name, s.ext) {
			base = strings.TrimSuffix(name, s.ext)
			c = s.c
			ok = true
		}
	}
	if !ok {
		return "", "", None, false
	}
	parts := strings.Split(base, ".")
	if len(parts) != 2 || parts[0] == "" || len(parts[1]) != IdentityLen {
		return "", "", None, false
	}
	return parts[0], parts[1], c, true
}

//Scan lists dir and returns the UppASD output files in it. Subdirectories and
//files that don't follow the <prefix>.<simid>.out naming are ignored.
func Scan(dir string) (*Directory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("uppout: scanning %s: %w", dir, err)
	}
	D := &Directory{Path: dir}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		prefix, token, c, ok := splitName(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("uppout: scanning %s: %w", dir, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		D.Files = append(D.Files, OutputFile{
			Name:        e.Name(),
			Prefix:      schema.Prefix(prefix),
			Token:       Identity(token),
			Compression: c,
			ModTime:     info.ModTime(),
		})
	}
	sort.Slice(D.Files, func(i, j int) bool { return D.Files[i].Name < D.Files[j].Name })
	return D, nil
}

//Tokens returns the distinct simulation ids in the directory, sorted.
func (D *Directory) Tokens() []Identity {
	seen := map[Identity]bool{}
	var ret []Identity
	for _, f := range D.Files {
		if !seen[f.Token] {
			seen[f.Token] = true
			ret = append(ret, f.Token)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

//Prefixes returns the sorted prefixes of the files carrying id.
func (D *Directory) Prefixes(id Identity) []schema.Prefix {
	seen := map[schema.Prefix]bool{}
	var ret []schema.Prefix
	for _, f := range D.Files {
		if f.Token == id && !seen[f.Prefix] {
			seen[f.Prefix] = true
			ret = append(ret, f.Prefix)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

//File returns the file with the given prefix and id. An uncompressed file is
//preferred over compressed ones, and gzip over zstd.
func (D *Directory) File(p schema.Prefix, id Identity) (OutputFile, bool) {
	var best OutputFile
	found := false
	rank := map[Compression]int{None: 0, Gzip: 1, Zstd: 2}
	for _, f := range D.Files {
		if f.Prefix != p || f.Token != id {
			continue
		}
		if !found || rank[f.Compression] < rank[best.Compression] {
			best = f
			found = true
		}
	}
	return best, found
}

//FilePath returns the full path of f in D.
func (D *Directory) FilePath(f OutputFile) string {
	return filepath.Join(D.Path, f.Name)
}

//Resolve decides the simulation id of the run in D. If simid is not empty it
//must be a valid id present in the directory. Otherwise the directory must
//contain exactly one distinct id. It returns the id and the prefixes available
//for it.
func (D *Directory) Resolve(simid string) (Identity, []schema.Prefix, error) {
	if simid != "" {
		id, err := ParseIdentity(simid)
		if err != nil {
			return "", nil, err
		}
		prefixes := D.Prefixes(id)
		if len(prefixes) == 0 {
			return "", nil, NewError(IdentityNotFound, D.Path, fmt.Sprintf("no output files for simid %q", simid))
		}
		Logger().Debug("simid given", zap.String("dir", D.Path), zap.String("simid", simid))
		return id, prefixes, nil
	}
	tokens := D.Tokens()
	switch len(tokens) {
	case 0:
		return "", nil, NewError(IdentityNotFound, D.Path, "no UppASD output files")
	case 1:
		Logger().Debug("simid detected", zap.String("dir", D.Path), zap.String("simid", string(tokens[0])))
		return tokens[0], D.Prefixes(tokens[0]), nil
	}
	details := make([]string, len(tokens))
	for i, t := range tokens {
		details[i] = fmt.Sprintf("%q", string(t))
	}
	return "", nil, NewError(AmbiguousIdentity, D.Path, fmt.Sprintf("%d simids found, give one explicitly", len(tokens)), details...)
}

//Resolve scans dir and resolves its simulation id. See Directory.Resolve.
func Resolve(dir, simid string) (Identity, []schema.Prefix, error) {
	D, err := Scan(dir)
	if err != nil {
		return "", nil, err
	}
	return D.Resolve(simid)
}

//LatestIdentity returns the id of the most recently modified file with the given
//prefix in dir. Ties go to the greatest id.
func LatestIdentity(dir string, p schema.Prefix) (Identity, error) {
	D, err := Scan(dir)
	if err != nil {
		return "", err
	}
	var best *OutputFile
	for i, f := range D.Files {
		if f.Prefix != p {
			continue
		}
		if best == nil || f.ModTime.After(best.ModTime) || (f.ModTime.Equal(best.ModTime) && f.Token > best.Token) {
			best = &D.Files[i]
		}
	}
	if best == nil {
		return "", NewError(IdentityNotFound, dir, fmt.Sprintf("no %s files", p))
	}
	return best.Token, nil
}
