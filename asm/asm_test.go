// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strings"
	"testing"
)

func assembleOK(t *testing.T, src string) *Assembly {
	t.Helper()
	a, err := Assemble(strings.NewReader(src), "test.s", defaultOrigin, nil, 0)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(a.Diagnostics) > 0 {
		t.Fatalf("unexpected diagnostics: %v", a.Diagnostics)
	}
	if len(a.Errors) > 0 {
		t.Fatalf("unexpected compile errors: %v", a.Errors)
	}
	return a
}

// firstSegmentWords extracts the words of the first segment in a
// binary image (skipping the 4-byte header), for assertions against
// the instruction words a test cares about.
func firstSegmentWords(t *testing.T, code []byte) []uint16 {
	t.Helper()
	if len(code) < 8 || code[0] != 0xFF || code[1] != 0xFF {
		t.Fatalf("malformed image header")
	}
	length := int(code[6])<<8 | int(code[7])
	words := make([]uint16, 0, length/2)
	for i := 0; i < length; i += 2 {
		off := 8 + i
		words = append(words, uint16(code[off])<<8|uint16(code[off+1]))
	}
	return words
}

func TestMovSPAndReti(t *testing.T) {
	a := assembleOK(t, "mov #0x4400 sp\nreti\n")
	words := firstSegmentWords(t, a.Code)
	if len(words) < 2 || words[0] != 0x4031 || words[1] != 0x4400 {
		t.Fatalf("got %04X, want [4031 4400]", words)
	}
}

func TestSwpbEncoding(t *testing.T) {
	a := assembleOK(t, "swpb r5\n")
	words := firstSegmentWords(t, a.Code)
	if len(words) != 1 || words[0] != 0x1085 {
		t.Fatalf("got %04X, want [1085]", words)
	}
}

func TestMacroExpansionMatchesDirectForm(t *testing.T) {
	expanded := assembleOK(t, ".macro test(a,b)\nmov {a} {b}\n.endmacro\ntest(r5, r6)\n")
	direct := assembleOK(t, "mov r5 r6\n")
	if string(expanded.Code) != string(direct.Code) {
		t.Fatalf("macro-expanded code %x != direct code %x", expanded.Code, direct.Code)
	}
}

func TestMacroRecursionLimitDiagnostic(t *testing.T) {
	src := ".macro test(a,b)\ntest(b, a)\n.endmacro\ntest(r5, r6)\n"
	a, err := Assemble(strings.NewReader(src), "test.s", defaultOrigin, nil, 0)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(a.Diagnostics) == 0 {
		t.Fatalf("expected a recursion-limit diagnostic, got none")
	}
}

func TestMacroRecursionLimitPanicsInPanicMode(t *testing.T) {
	src := ".macro test(a,b)\ntest(b, a)\n.endmacro\ntest(r5, r6)\n"
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic in PanicOnRecursionLimit mode")
		}
	}()
	_, _ = Assemble(strings.NewReader(src), "test.s", defaultOrigin, nil, PanicOnRecursionLimit)
}

func TestJumpForwardOffset(t *testing.T) {
	// jmp 0x10 from origin 0x0000: offset field = (0x10 - 0x00 - 2)/2 = 7.
	a, err := Assemble(strings.NewReader("jmp 0x10\n"), "test.s", 0x0000, nil, 0)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(a.Diagnostics) > 0 || len(a.Errors) > 0 {
		t.Fatalf("unexpected errors: diags=%v errs=%v", a.Diagnostics, a.Errors)
	}
	words := firstSegmentWords(t, a.Code)
	if len(words) != 1 || words[0] != 0x3C07 {
		t.Fatalf("got %04X, want [3C07]", words)
	}
}

func TestConstantGeneratorImmediateEmitsNoExtensionWord(t *testing.T) {
	a := assembleOK(t, "mov #0 r5\n")
	words := firstSegmentWords(t, a.Code)
	if len(words) != 1 {
		t.Fatalf("expected a single word (no extension word) for #0, got %04X", words)
	}
}

func TestUnknownMnemonicIsDiagnostic(t *testing.T) {
	a, err := Assemble(strings.NewReader("frobnicate r1\n"), "test.s", defaultOrigin, nil, 0)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(a.Diagnostics) == 0 {
		t.Fatalf("expected a diagnostic for an unknown mnemonic")
	}
}

func TestLabelNotFoundIsCompileError(t *testing.T) {
	a, err := Assemble(strings.NewReader("mov #missing r5\n"), "test.s", defaultOrigin, nil, 0)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(a.Errors) == 0 {
		t.Fatalf("expected a compile error for a missing label")
	}
}

func TestIncludeCycleSuppressed(t *testing.T) {
	ld := newLoader(".")
	ld.stack = append(ld.stack, "looped.s")
	lines := ld.include("looped.s", 0, 1)
	if lines != nil {
		t.Fatalf("expected an already-active include to be silently suppressed, got %d line(s)", len(lines))
	}
}

func TestSegmentMergeIdempotence(t *testing.T) {
	segs := []Segment{
		{Start: 0x1000, Words: []uint16{0x4031}},
		{Start: 0x1002, Words: []uint16{0x4400}},
		{Start: 0x2000, Words: []uint16{0x1300}},
	}
	merged := mergeSegments(segs)
	for i := 0; i+1 < len(merged); i++ {
		if merged[i].end() == merged[i+1].Start {
			t.Fatalf("adjacent unmerged segments remain at index %d", i)
		}
	}
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged segments, got %d", len(merged))
	}
}

func TestHcfRewritesToJmpZero(t *testing.T) {
	a := assembleOK(t, "hcf\n")
	words := firstSegmentWords(t, a.Code)
	if len(words) != 1 {
		t.Fatalf("expected a single jump word for hcf")
	}
	if words[0]&0xE000 != 0x2000 {
		t.Fatalf("expected a jump-class word, got %04X", words[0])
	}
}

func TestRetRewritesToMovIndirectAutoToPC(t *testing.T) {
	expanded := assembleOK(t, "ret\n")
	direct := assembleOK(t, "mov @sp+ pc\n")
	if string(expanded.Code) != string(direct.Code) {
		t.Fatalf("ret %x != mov @sp+,pc %x", expanded.Code, direct.Code)
	}
}

func TestByteModeSuffixRejectedOnSwpb(t *testing.T) {
	a, err := Assemble(strings.NewReader("swpb.b r5\n"), "test.s", defaultOrigin, nil, 0)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(a.Diagnostics) == 0 {
		t.Fatalf("expected a diagnostic rejecting byte mode on swpb")
	}
}

func TestByteModeImmediatePacksHighByte(t *testing.T) {
	// mov.b #0x80, r5 -- the emulator loads a byte-mode immediate from
	// the extension word's first stored byte (its high byte, given the
	// big-endian word layout), so the assembler must pack the literal
	// there rather than in the low byte (spec §4.5.1).
	a := assembleOK(t, "mov.b #0x80 r5\n")
	words := firstSegmentWords(t, a.Code)
	if len(words) != 2 || words[1] != 0x8000 {
		t.Fatalf("got %04X, want an extension word of 8000", words)
	}
}

func TestDefineSubstitution(t *testing.T) {
	a := assembleOK(t, ".define \"5\", FIVE\nmov #[FIVE] r4\n")
	words := firstSegmentWords(t, a.Code)
	if len(words) != 2 || words[1] != 5 {
		t.Fatalf("got %04X, want an extension word of 5", words)
	}
}
