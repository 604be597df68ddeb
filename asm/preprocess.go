// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reDefine     = regexp.MustCompile(`^\s*\.define\s+"([^"]*)"\s*,?\s*([A-Za-z_][A-Za-z0-9_]*)\s*$`)
	reMacroStart = regexp.MustCompile(`^\s*\.macro\s+([A-Za-z_][A-Za-z0-9_]*)\(([^)]*)\)\s*$`)
	reMacroEnd   = regexp.MustCompile(`^\s*\.endmacro\s*$`)
	reInvoke     = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\(([^)]*)\)\s*$`)
)

const maxMacroPasses = 128

// macro is a stored macro body: an ordered parameter list and the
// unexpanded Lines between .macro and .endmacro.
type macro struct {
	name   string
	params []string
	lines  []Line
}

// key returns the name|arity identity used for macro lookup (spec §3:
// name and arity overload).
func (m *macro) key() string {
	return macroKey(m.name, len(m.params))
}

func macroKey(name string, arity int) string {
	return name + "|" + strconv.Itoa(arity)
}

// preprocessor runs the defines pass and the macro pass over a Line
// list, accumulating diagnostics along the way. PanicOnRecursionLimit
// mirrors spec §4.2/§5's reserved test-only mode that turns a macro
// recursion-limit overrun into a hard failure instead of a diagnostic
// plus `nop` substitution.
type preprocessor struct {
	diags                 []*Diagnostic
	files                 []string
	PanicOnRecursionLimit bool
}

func (p *preprocessor) addDiag(l Line, format string, args ...any) {
	p.diags = append(p.diags, &Diagnostic{
		File: p.fileName(l.origin.fileIndex),
		Line: l.origin.lineNo,
		Msg:  fmt.Sprintf(format, args...),
	})
}

func (p *preprocessor) fileName(idx int) string {
	if idx >= 0 && idx < len(p.files) {
		return p.files[idx]
	}
	return ""
}

// Defines substitutes every `[NAME]` occurrence with the value bound by
// a preceding `.define "value", NAME` line. Malformed defines are
// diagnostics and the defining line is dropped from the output.
func (p *preprocessor) Defines(lines []Line) []Line {
	defines := make(map[string]string)
	out := make([]Line, 0, len(lines))

	for _, l := range lines {
		trimmed := strings.TrimSpace(l.text)
		if strings.HasPrefix(trimmed, ".define") {
			m := reDefine.FindStringSubmatch(l.text)
			if m == nil {
				p.addDiag(l, "malformed .define directive")
				continue
			}
			defines[m[2]] = m[1]
			continue
		}

		text := l.text
		if strings.Contains(text, "[") {
			for name, val := range defines {
				text = strings.ReplaceAll(text, "["+name+"]", val)
			}
		}
		out = append(out, Line{origin: l.origin, text: text})
	}
	return out
}

// Macros expands `.macro name(params) ... .endmacro` definitions and
// their invocations, iterating to a fixed point (spec §4.2).
func (p *preprocessor) Macros(lines []Line) []Line {
	macros := make(map[string]*macro)

	lines = p.collectMacroDefs(lines, macros)

	for pass := 0; pass < maxMacroPasses; pass++ {
		expanded, changed := p.expandOnePass(lines, macros)
		lines = expanded
		if !changed {
			return lines
		}
	}

	if p.PanicOnRecursionLimit {
		panic("macro recursion limit reached")
	}
	p.addDiag(Line{origin: origin{}}, "macro recursion limit reached (%d passes)", maxMacroPasses)
	return p.nopUnexpandedInvocations(lines, macros)
}

// nopUnexpandedInvocations replaces any line that still looks like a
// recognized macro invocation with a nop, once the pass bound is
// exceeded, so a non-terminating expansion doesn't leak raw macro-call
// syntax into the instruction stream (spec §4.2, §8).
func (p *preprocessor) nopUnexpandedInvocations(lines []Line, macros map[string]*macro) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		trimmed := strings.TrimSpace(l.text)
		if m := reInvoke.FindStringSubmatch(trimmed); m != nil {
			args := splitArgs(m[2])
			if _, ok := macros[macroKey(m[1], len(args))]; ok {
				out = append(out, Line{origin: l.origin, text: "nop"})
				continue
			}
		}
		out = append(out, l)
	}
	return out
}

func (p *preprocessor) collectMacroDefs(lines []Line, macros map[string]*macro) []Line {
	var out []Line
	var cur *macro
	for _, l := range lines {
		trimmed := strings.TrimSpace(l.text)
		switch {
		case reMacroStart.MatchString(trimmed):
			if cur != nil {
				p.addDiag(l, "nested macro definition")
				continue
			}
			m := reMacroStart.FindStringSubmatch(trimmed)
			params := splitArgs(m[2])
			cur = &macro{name: m[1], params: params}

		case reMacroEnd.MatchString(trimmed):
			if cur == nil {
				p.addDiag(l, "unmatched .endmacro")
				continue
			}
			macros[cur.key()] = cur
			cur = nil

		case cur != nil:
			cur.lines = append(cur.lines, Line{
				origin: origin{fileIndex: l.origin.fileIndex, lineNo: l.origin.lineNo, parent: l.origin.lineNo},
				text:   l.text,
			})

		default:
			out = append(out, l)
		}
	}
	if cur != nil {
		p.addDiag(Line{origin: origin{}}, "unclosed macro '%s'", cur.name)
	}
	return out
}

func (p *preprocessor) expandOnePass(lines []Line, macros map[string]*macro) ([]Line, bool) {
	var out []Line
	changed := false

	for _, l := range lines {
		trimmed := strings.TrimSpace(l.text)
		m := reInvoke.FindStringSubmatch(trimmed)
		if m == nil {
			out = append(out, l)
			continue
		}

		name := m[1]
		args := splitArgs(m[2])
		def, ok := macros[macroKey(name, len(args))]
		if !ok {
			// Not a recognized macro invocation. If no macro of this
			// name exists at any arity, pass the line through
			// unchanged; otherwise it is an arity mismatch, which is
			// diagnosed and replaced with a nop.
			if !anyMacroNamed(macros, name) {
				out = append(out, l)
				continue
			}
			p.addDiag(l, "unknown macro '%s' with %d argument(s)", name, len(args))
			out = append(out, Line{origin: l.origin, text: "nop"})
			changed = true
			continue
		}

		changed = true
		out = append(out, Line{origin: l.origin, text: ".push_locblk"})
		out = append(out, Line{origin: l.origin, text: ".dbgbrk"})
		out = append(out, Line{origin: l.origin, text: ";!! Macro invocation: " + trimmed})
		for _, bl := range def.lines {
			text := bl.text
			for i, param := range def.params {
				text = strings.ReplaceAll(text, "{"+param+"}", args[i])
			}
			out = append(out, Line{
				origin: origin{fileIndex: bl.origin.fileIndex, lineNo: bl.origin.lineNo, parent: l.origin.lineNo},
				text:   text,
			})
		}
		out = append(out, Line{origin: l.origin, text: ".pop_locblk"})
		out = append(out, Line{origin: l.origin, text: ".dbgbrk"})
	}

	return out, changed
}

func anyMacroNamed(macros map[string]*macro, name string) bool {
	for _, m := range macros {
		if m.name == name {
			return true
		}
	}
	return false
}

func splitArgs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}
