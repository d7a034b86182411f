/*
 * doc.go, part of uppout.
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

/*
Package uppout reads the output of UppASD, an atomistic spin-dynamics and
Monte Carlo code, into typed tables.

UppASD writes one file per quantity, named <prefix>.<simid>.out, where simid is
an 8-character tag of the simulation (it may contain spaces). A directory can
hold the output of several simulations. Open resolves which files belong to one
run and returns a Run, from which each file can be read on demand:

	r, err := uppout.Open("fe_bcc/T300", "")
	if err != nil {
		//AmbiguousIdentity if the directory holds more than one simid.
	}
	avr, err := r.Averages()
	meta, err := r.Metadata() //atoms, atoms per cell, types, ensembles, box

Files compressed with gzip (.out.gz) or zstd (.out.zst) are read transparently.

Sub-packages:

	schema    column layouts per prefix
	table     the tabular dataset returned by the readers
	validate  structural consistency checks on coord, struct and restart data
	shell     neighbour shells from coordinates, with periodic boundaries
	collect   aggregation of a quantity over many run directories

Every error returned is, or wraps, an *Error with a Kind that can be tested
with errors.Is against the Err* sentinels.

The library logs through zap. It is silent unless SetLogger is called.
*/
package uppout
