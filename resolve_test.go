/*
 * resolve_test.go, part of uppout.
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

package uppout_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rmera/uppout"
	"github.com/rmera/uppout/internal/fixture"
	"github.com/rmera/uppout/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRun(t *testing.T, dir string, mod func(o *fixture.Options)) fixture.Options {
	t.Helper()
	o := fixture.DefaultOptions()
	if mod != nil {
		mod(&o)
	}
	require.NoError(t, fixture.Write(dir, o))
	return o
}

func TestResolveSingleIdentity(t *testing.T) {
	dir := t.TempDir()
	writeRun(t, dir, nil)
	//noise that must be ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inpsd.dat"), []byte("simid fixture1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "coord.toolong99.out"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "averages.subdir00.out"), 0o755))

	id, prefixes, err := uppout.Resolve(dir, "")
	require.NoError(t, err)
	assert.Equal(t, uppout.Identity("fixture1"), id)
	assert.Empty(t, cmp.Diff(schema.Prefixes(), prefixes))
}

func TestResolveAmbiguous(t *testing.T) {
	dir := t.TempDir()
	writeRun(t, dir, func(o *fixture.Options) { o.Simid = "run00001" })
	writeRun(t, dir, func(o *fixture.Options) {
		o.Simid = "run 0002"
		o.Omit = []schema.Prefix{schema.Averages, schema.Cumulants, schema.TotEnergy, schema.StdEnergy,
			schema.ProjAverages, schema.ProjCumulants, schema.MCInitial}
	})

	_, err := uppout.Open(dir, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, uppout.ErrAmbiguousIdentity))
	var e *uppout.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, []string{`"run 0002"`, `"run00001"`}, e.Details())

	r, err := uppout.Open(dir, "run 0002")
	require.NoError(t, err)
	assert.Equal(t, uppout.Identity("run 0002"), r.Identity())
	assert.Equal(t, []schema.Prefix{schema.Coord, schema.Restart, schema.Struct}, r.Prefixes())
	assert.False(t, r.Has(schema.Averages))

	r, err = uppout.Open(dir, "run00001")
	require.NoError(t, err)
	assert.Equal(t, schema.Prefixes(), r.Prefixes())
}

func TestResolveErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := uppout.Open(dir, "")
	assert.True(t, errors.Is(err, uppout.ErrIdentityNotFound))

	writeRun(t, dir, nil)
	_, err = uppout.Open(dir, "short")
	assert.True(t, errors.Is(err, uppout.ErrInvalidIdentity))
	_, err = uppout.Open(dir, "fix.ure1")
	assert.True(t, errors.Is(err, uppout.ErrInvalidIdentity))
	_, err = uppout.Open(dir, "zzzzzzzz")
	assert.True(t, errors.Is(err, uppout.ErrIdentityNotFound))
	assert.Equal(t, uppout.IdentityNotFound, uppout.KindOf(err))

	_, err = uppout.Open(filepath.Join(dir, "nope"), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseIdentity(t *testing.T) {
	id, err := uppout.ParseIdentity("  T300  ")
	require.NoError(t, err)
	assert.Equal(t, uppout.Identity("  T300  "), id)
	_, err = uppout.ParseIdentity("T300")
	assert.Equal(t, uppout.InvalidIdentity, uppout.KindOf(err))
}

func TestFilePreference(t *testing.T) {
	D := &uppout.Directory{Path: "/x", Files: []uppout.OutputFile{
		{Name: "coord.abcdefgh.out.gz", Prefix: schema.Coord, Token: "abcdefgh", Compression: uppout.Gzip},
		{Name: "coord.abcdefgh.out", Prefix: schema.Coord, Token: "abcdefgh", Compression: uppout.None},
		{Name: "coord.abcdefgh.out.zst", Prefix: schema.Coord, Token: "abcdefgh", Compression: uppout.Zstd},
		{Name: "struct.abcdefgh.out.zst", Prefix: schema.Struct, Token: "abcdefgh", Compression: uppout.Zstd},
		{Name: "struct.abcdefgh.out.gz", Prefix: schema.Struct, Token: "abcdefgh", Compression: uppout.Gzip},
	}}
	f, ok := D.File(schema.Coord, "abcdefgh")
	require.True(t, ok)
	assert.Equal(t, "coord.abcdefgh.out", f.Name)
	f, ok = D.File(schema.Struct, "abcdefgh")
	require.True(t, ok)
	assert.Equal(t, uppout.Gzip, f.Compression)
	_, ok = D.File(schema.Restart, "abcdefgh")
	assert.False(t, ok)
	assert.Equal(t, []schema.Prefix{schema.Coord, schema.Struct}, D.Prefixes("abcdefgh"))
}

func TestLatestIdentity(t *testing.T) {
	dir := t.TempDir()
	writeRun(t, dir, func(o *fixture.Options) { o.Simid = "newerrun" })
	writeRun(t, dir, func(o *fixture.Options) { o.Simid = "olderrun" })
	old := time.Now().Add(-time.Hour)
	newer := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "averages.olderrun.out"), old, old))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "averages.newerrun.out"), newer, newer))

	id, err := uppout.LatestIdentity(dir, schema.Averages)
	require.NoError(t, err)
	assert.Equal(t, uppout.Identity("newerrun"), id)

	_, err = uppout.LatestIdentity(dir, "nosuchprefix")
	assert.True(t, errors.Is(err, uppout.ErrIdentityNotFound))
}
