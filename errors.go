/*
 * errors.go, part of uppout.
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
	"errors"
	"fmt"
	"strings"
)

//Kind classifies the errors returned by uppout and its sub-packages.
type Kind int

const (
	//AmbiguousIdentity: several simulation ids in a directory and none was given.
	AmbiguousIdentity Kind = iota + 1
	//IdentityNotFound: no output file carries the requested (or any) simulation id.
	IdentityNotFound
	//InvalidIdentity: a simulation id that is not exactly 8 characters long, or contains a dot.
	InvalidIdentity
	//PrefixUnavailable: the run has no file for the requested prefix.
	PrefixUnavailable
	//UnknownPrefix: there is no layout registered for the prefix.
	UnknownPrefix
	//MalformedRecord: a line that doesn't fit the layout of its file.
	MalformedRecord
	//ConsistencyViolation: one or more structural inconsistencies. Details lists all of them.
	ConsistencyViolation
	//InvalidCutoff: a non-positive neighbour search radius.
	InvalidCutoff
	//AtomNotFound: an atom number that is not in the coordinate data.
	AtomNotFound
	//NoRunsAggregated: every candidate directory of an aggregation failed.
	NoRunsAggregated
)

var kindNames = map[Kind]string{
	AmbiguousIdentity:    "ambiguous run identity",
	IdentityNotFound:     "run identity not found",
	InvalidIdentity:      "invalid run identity",
	PrefixUnavailable:    "prefix unavailable for this run",
	UnknownPrefix:        "unknown prefix",
	MalformedRecord:      "malformed record",
	ConsistencyViolation: "consistency violation",
	InvalidCutoff:        "invalid cutoff",
	AtomNotFound:         "atom not found",
	NoRunsAggregated:     "no runs aggregated",
}

func (K Kind) String() string {
	if s, ok := kindNames[K]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(K))
}

//Error is the error type of the library. Besides the message it carries the file
//involved (if any), the line and column for parse errors, a list of details
//(conflicting ids, every violation found) and a "decoration" with the chain of
//functions the error went through.
type Error struct {
	kind     Kind
	message  string
	filename string
	line     int    //1-based, 0 if not applicable
	column   string //column name, for parse errors
	details  []string
	deco     []string
}

//NewError returns an error of the given kind. Details are copied.
func NewError(kind Kind, filename, message string, details ...string) *Error {
	e := &Error{kind: kind, message: message, filename: filename}
	if len(details) > 0 {
		e.details = append([]string(nil), details...)
	}
	return e
}

func malformed(filename string, line int, column, message string) *Error {
	return &Error{kind: MalformedRecord, filename: filename, line: line, column: column, message: message}
}

func (E *Error) Error() string {
	var b strings.Builder
	b.WriteString(E.kind.String())
	if E.filename != "" {
		fmt.Fprintf(&b, " in %q", E.filename)
	}
	if E.line > 0 {
		fmt.Fprintf(&b, " line %d", E.line)
	}
	if E.column != "" {
		fmt.Fprintf(&b, " column %s", E.column)
	}
	if E.message != "" {
		b.WriteString(": ")
		b.WriteString(E.message)
	}
	if len(E.details) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(E.details, "; "))
		b.WriteString("]")
	}
	return b.String()
}

//Kind returns the kind of the error.
func (E *Error) Kind() Kind { return E.kind }

//FileName returns the file associated with the error, or the empty string.
func (E *Error) FileName() string { return E.filename }

//Line returns the 1-based line of a MalformedRecord error, or 0.
func (E *Error) Line() int { return E.line }

//Column returns the column name of a MalformedRecord error.
func (E *Error) Column() string { return E.column }

//Details returns a copy of the details of the error.
func (E *Error) Details() []string { return append([]string(nil), E.details...) }

//Decorate adds the name of a caller (and, optionally, some information, as
//"Caller: info") to the error and returns the current decoration. An empty
//string only returns the decoration.
func (E *Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

//Is makes every *Error match the sentinel of its kind, so errors.Is(err, ErrAmbiguousIdentity)
//works through any amount of wrapping.
func (E *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.kind == E.kind && t.message == "" && t.filename == ""
}

//Sentinels, one per Kind, for use with errors.Is.
var (
	ErrAmbiguousIdentity    = &Error{kind: AmbiguousIdentity}
	ErrIdentityNotFound     = &Error{kind: IdentityNotFound}
	ErrInvalidIdentity      = &Error{kind: InvalidIdentity}
	ErrPrefixUnavailable    = &Error{kind: PrefixUnavailable}
	ErrUnknownPrefix        = &Error{kind: UnknownPrefix}
	ErrMalformedRecord      = &Error{kind: MalformedRecord}
	ErrConsistencyViolation = &Error{kind: ConsistencyViolation}
	ErrInvalidCutoff        = &Error{kind: InvalidCutoff}
	ErrAtomNotFound         = &Error{kind: AtomNotFound}
	ErrNoRunsAggregated     = &Error{kind: NoRunsAggregated}
)

//KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return 0
}

//errDecorate decorates err with caller if it is an *Error, and returns it.
func errDecorate(err error, caller string) error {
	var e *Error
	if errors.As(err, &e) {
		e.Decorate(caller)
	}
	return err
}
