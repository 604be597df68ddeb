// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "fmt"

// origin identifies where a Line came from: the file it was read from
// (by index into the assembler's file table), its line number within
// that file, and, for lines produced by include expansion or macro
// expansion, the line that caused the expansion.
type origin struct {
	fileIndex int
	lineNo    int
	parent    int // 0 if not nested
}

// A Line is an immutable unit of preprocessed source text together with
// its origin. The preprocessor produces new Lines rather than mutating
// existing ones (SPEC_FULL.md §3).
type Line struct {
	origin origin
	text   string
}

// Diagnostic is a pipeline error (source loader, preprocessor,
// tokenizer): per-line, resynchronizing. See SPEC_FULL.md §7 channel 1.
type Diagnostic struct {
	File string
	Line int
	Msg  string
}

func (d *Diagnostic) Error() string {
	if d.File != "" {
		return fmt.Sprintf("%s:%d: %s", d.File, d.Line, d.Msg)
	}
	return fmt.Sprintf("line %d: %s", d.Line, d.Msg)
}

// CompileError is a per-instruction error raised by the address
// resolver & compiler pass: label not found, invalid jump offset,
// illegal destination addressing mode, byte mode forbidden. See
// SPEC_FULL.md §7 channel 2.
type CompileError struct {
	File string
	Line int
	Msg  string
}

func (e *CompileError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// AssembleError aggregates every diagnostic and compile error collected
// during an assembly attempt. The pipeline never stops at the first
// error; it resynchronizes and keeps collecting (SPEC_FULL.md §7).
type AssembleError struct {
	Diagnostics []*Diagnostic
	Errors      []*CompileError
}

func (e *AssembleError) Error() string {
	n := len(e.Diagnostics) + len(e.Errors)
	return fmt.Sprintf("assembly failed with %d error(s)", n)
}

func (e *AssembleError) empty() bool {
	return len(e.Diagnostics) == 0 && len(e.Errors) == 0
}
