// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements an MSP430 macro assembler: a multi-pass
// translator from a line-oriented assembly dialect to a segmented
// binary image.
package asm

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Option is a bitmask of flags controlling an Assemble call.
type Option uint

const (
	// Verbose enables progress output to the out writer during assembly.
	Verbose Option = 1 << iota
	// PanicOnRecursionLimit turns a macro expansion recursion-limit
	// overrun into a panic instead of a diagnostic, so tests can assert
	// on it deterministically (spec §4.2, §5).
	PanicOnRecursionLimit
)

// DefaultOrigin is the load address used when a caller doesn't override it.
const DefaultOrigin = 0x1000

const defaultOrigin = DefaultOrigin

// Assembly is the result of a successful or partially successful
// assembly attempt.
type Assembly struct {
	Code        []byte
	Listing     string
	Labels      map[string]int
	Diagnostics []*Diagnostic
	Errors      []*CompileError
}

// ReadFrom reads a binary image previously produced by writeImage.
func (a *Assembly) ReadFrom(r io.Reader) (n int64, err error) {
	a.Code, err = io.ReadAll(r)
	n = int64(len(a.Code))
	if n > 0x10000 {
		return n, fmt.Errorf("image exceeded 64K size")
	}
	return n, err
}

// WriteTo saves the assembled binary image to w.
func (a *Assembly) WriteTo(w io.Writer) (n int64, err error) {
	nn, err := w.Write(a.Code)
	return int64(nn), err
}

// ok reports whether the assembly produced no diagnostics or compile
// errors.
func (a *Assembly) ok() bool {
	return len(a.Diagnostics) == 0 && len(a.Errors) == 0
}

// AssembleFile reads a file containing MSP430 assembly, assembles it,
// and writes a binary image (.bin) and a listing (.lst) alongside it.
func AssembleFile(path string, origin uint16, options Option, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	assembly, err := assemble(string(data), filepath.Base(path), filepath.Dir(path), origin, out, options)
	if err != nil {
		return err
	}
	if !assembly.ok() {
		for _, d := range assembly.Diagnostics {
			fmt.Fprintln(out, d.Error())
		}
		for _, e := range assembly.Errors {
			fmt.Fprintln(out, e.Error())
		}
		return fmt.Errorf("assembly of '%s' failed", path)
	}

	ext := filepath.Ext(path)
	prefix := path[:len(path)-len(ext)]

	binFile, err := os.OpenFile(prefix+".bin", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer binFile.Close()
	if _, err := assembly.WriteTo(binFile); err != nil {
		return err
	}

	lstFile, err := os.OpenFile(prefix+".lst", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer lstFile.Close()
	if _, err := lstFile.WriteString(assembly.Listing); err != nil {
		return err
	}

	fmt.Fprintf(out, "Assembled '%s' to produce '%s' and '%s'.\n",
		filepath.Base(path), filepath.Base(prefix+".bin"), filepath.Base(prefix+".lst"))
	return nil
}

// Assemble assembles MSP430 source text read from r into a binary
// image, running the full pipeline of spec §2: load/include → define
// substitution → macro expansion → tokenize → parse → resolve →
// compile → merge segments → render listing.
func Assemble(r io.Reader, filename string, origin uint16, out io.Writer, options Option) (*Assembly, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return assemble(string(data), filename, ".", origin, out, options)
}

func assemble(source, filename, dir string, origin uint16, out io.Writer, options Option) (*Assembly, error) {
	if out == nil {
		out = os.Stdout
	}
	verbose := options&Verbose != 0

	ld := newLoader(dir)
	lines := ld.Load(source, filename)
	if verbose {
		fmt.Fprintf(out, "loaded %d line(s) from '%s'\n", len(lines), filename)
	}

	pp := &preprocessor{files: ld.files, PanicOnRecursionLimit: options&PanicOnRecursionLimit != 0}
	lines = pp.Defines(lines)
	lines = pp.Macros(lines)

	tz := newTokenizer(ld.files)
	tokens := tz.Tokenize(lines)

	ps := newParser(ld.files)
	instrs := ps.Parse(tokens)

	diags := append(append([]*Diagnostic{}, pp.diags...), tz.diags...)
	diags = append(diags, ps.diags...)

	a := &Assembly{Diagnostics: diags}
	if len(diags) > 0 {
		return a, nil
	}

	addrs, labels := assignAddresses(origin, instrs)
	a.Labels = labels

	segments, postfix, errs := compileInstructions(instrs, addrs, labels)
	if len(errs) > 0 {
		a.Errors = errs
		return a, nil
	}

	image := buildImage(segments, postfix, origin)
	a.Code = writeImage(image)
	a.Listing = Listing(instrs, addrs, labels)

	if verbose {
		fmt.Fprintf(out, "assembled %d byte(s) across %d segment(s)\n", len(a.Code), len(image))
	}
	return a, nil
}
