// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strings"

	"github.com/beevik/msp430/cpu"
)

// InstructionKind identifies an Instruction's variant (spec §3).
type InstructionKind int

const (
	InstJump InstructionKind = iota
	InstSingle
	InstDouble
	InstReti
	InstPadding
	InstListingComment
	InstCString8
	InstInterrupt
)

// Instruction is a tagged variant (spec §9) carrying its origin Line,
// attached labels, and the payload for whichever Kind it is.
type Instruction struct {
	Kind   InstructionKind
	Origin Line
	File   string // resolved display name of Origin's source file
	Labels []string

	Name       string // canonical mnemonic, for listing/disassembly round-trip
	Bits       uint16 // opcode/condition field from cpu.InstructionSet
	ByteMode   bool
	Src        Operand
	Dst        Operand
	JumpTarget LabelReference

	Text   string // CString8Data payload
	Vector int    // Interrupt vector number
	Target LabelReference
}

// numWords reports the instruction's contribution to the running PC
// (spec §4.5 pass 1). Padding, ListingComment, and Interrupt
// instructions contribute zero code words.
func (in *Instruction) numWords() int {
	switch in.Kind {
	case InstJump, InstReti:
		return 1
	case InstSingle:
		return 1 + in.Src.numExtWords()
	case InstDouble:
		return 1 + in.Src.numExtWords() + in.Dst.numExtWords()
	case InstCString8:
		return (len(in.Text) + 1 + 1) / 2 // payload plus NUL terminator, packed 2 bytes/word
	default:
		return 0
	}
}

// compile resolves this instruction against the final label map and PC
// and emits its code words (spec §4.5 pass 2). pc is the address of
// this instruction's own first word.
func (in *Instruction) compile(labels map[string]int, pc uint16) ([]uint16, error) {
	switch in.Kind {
	case InstJump:
		return in.compileJump(labels, pc)
	case InstSingle:
		return in.compileSingle(labels, pc)
	case InstDouble:
		return in.compileDouble(labels, pc)
	case InstReti:
		def := cpu.Instructions().Lookup("RETI")
		return []uint16{0x1000 | (def.Bits() << 7)}, nil
	case InstCString8:
		return cstringWords(in.Text), nil
	case InstPadding, InstListingComment, InstInterrupt:
		return nil, nil
	}
	return nil, fmt.Errorf("unhandled instruction kind %v", in.Kind)
}

func (in *Instruction) compileJump(labels map[string]int, pc uint16) ([]uint16, error) {
	target, err := in.JumpTarget.resolve(labels)
	if err != nil {
		return nil, &CompileError{File: in.file(), Line: in.line(), Msg: err.Error()}
	}
	if !in.JumpTarget.IsLabel {
		// A numeric jump argument is a byte offset from this
		// instruction's own address.
		target += int(pc)
	}
	diff := target - int(pc) - 2
	if diff%2 != 0 {
		return nil, &CompileError{File: in.file(), Line: in.line(), Msg: "jump target is not word-aligned"}
	}
	offset := diff / 2
	if offset < -512 || offset > 511 {
		return nil, &CompileError{File: in.file(), Line: in.line(), Msg: "jump target out of range"}
	}
	field := uint16(offset) & 0x3FF
	word := 0x2000 | (in.Bits << 10) | field
	return []uint16{word}, nil
}

func (in *Instruction) compileSingle(labels map[string]int, pc uint16) ([]uint16, error) {
	src, err := in.Src.encodeSource(pc, labels, in.ByteMode)
	if err != nil {
		return nil, &CompileError{File: in.file(), Line: in.line(), Msg: err.Error()}
	}
	bw := uint16(0)
	if in.ByteMode {
		bw = 1
	}
	word := 0x1000 | (in.Bits << 7) | (bw << 6) | (src.mode << 4) | src.reg
	words := []uint16{word}
	if src.hasExt {
		words = append(words, src.ext)
	}
	return words, nil
}

func (in *Instruction) compileDouble(labels map[string]int, pc uint16) ([]uint16, error) {
	src, err := in.Src.encodeSource(pc, labels, in.ByteMode)
	if err != nil {
		return nil, &CompileError{File: in.file(), Line: in.line(), Msg: err.Error()}
	}
	dst, err := in.Dst.encodeDest(pc, labels)
	if err != nil {
		return nil, &CompileError{File: in.file(), Line: in.line(), Msg: err.Error()}
	}
	bw := uint16(0)
	if in.ByteMode {
		bw = 1
	}
	word := (in.Bits << 12) | (src.reg << 8) | (dst.mode << 7) | (bw << 6) | (src.mode << 4) | dst.reg
	words := []uint16{word}
	if src.hasExt {
		words = append(words, src.ext)
	}
	if dst.hasExt {
		words = append(words, dst.ext)
	}
	return words, nil
}

func (in *Instruction) file() string { return in.File }
func (in *Instruction) line() int    { return in.Origin.origin.lineNo }

func cstringWords(s string) []uint16 {
	b := append([]byte(s), 0)
	words := make([]uint16, 0, (len(b)+1)/2)
	for i := 0; i < len(b); i += 2 {
		if i+1 < len(b) {
			words = append(words, uint16(b[i])<<8|uint16(b[i+1]))
		} else {
			words = append(words, uint16(b[i])<<8)
		}
	}
	return words
}

// emulatedDef is one row of the emulated (pseudo) instruction table
// (spec §6.2): a fixed rewrite from a pseudo-mnemonic to a real
// instruction plus synthesized operands.
type emulatedDef struct {
	name       string
	hasArg     bool
	byteModeOK bool
	build      func(arg Operand) (target string, src, dst Operand, isJump bool, jumpTarget LabelReference)
}

func regOperand(reg int) Operand { return Operand{Kind: OperandRegDirect, Reg: reg} }
func immOperand(v int) Operand   { return Operand{Kind: OperandImmediate, Ref: litRef(v)} }

var emulatedDefs = map[string]emulatedDef{
	"ADC": {name: "ADC", hasArg: true, byteModeOK: true, build: func(a Operand) (string, Operand, Operand, bool, LabelReference) {
		return "ADDC", immOperand(0), a, false, LabelReference{}
	}},
	"DADC": {name: "DADC", hasArg: true, byteModeOK: true, build: func(a Operand) (string, Operand, Operand, bool, LabelReference) {
		return "DADD", immOperand(0), a, false, LabelReference{}
	}},
	"SBC": {name: "SBC", hasArg: true, byteModeOK: true, build: func(a Operand) (string, Operand, Operand, bool, LabelReference) {
		return "SUBC", immOperand(0), a, false, LabelReference{}
	}},
	"DEC": {name: "DEC", hasArg: true, byteModeOK: true, build: func(a Operand) (string, Operand, Operand, bool, LabelReference) {
		return "SUB", immOperand(1), a, false, LabelReference{}
	}},
	"DECD": {name: "DECD", hasArg: true, byteModeOK: true, build: func(a Operand) (string, Operand, Operand, bool, LabelReference) {
		return "SUB", immOperand(2), a, false, LabelReference{}
	}},
	"INC": {name: "INC", hasArg: true, byteModeOK: true, build: func(a Operand) (string, Operand, Operand, bool, LabelReference) {
		return "ADD", immOperand(1), a, false, LabelReference{}
	}},
	"INCD": {name: "INCD", hasArg: true, byteModeOK: true, build: func(a Operand) (string, Operand, Operand, bool, LabelReference) {
		return "ADD", immOperand(2), a, false, LabelReference{}
	}},
	"INV": {name: "INV", hasArg: true, byteModeOK: true, build: func(a Operand) (string, Operand, Operand, bool, LabelReference) {
		return "XOR", immOperand(-1), a, false, LabelReference{}
	}},
	"RLA": {name: "RLA", hasArg: true, byteModeOK: true, build: func(a Operand) (string, Operand, Operand, bool, LabelReference) {
		return "ADD", a, a, false, LabelReference{}
	}},
	"RLC": {name: "RLC", hasArg: true, byteModeOK: true, build: func(a Operand) (string, Operand, Operand, bool, LabelReference) {
		return "ADDC", a, a, false, LabelReference{}
	}},
	"CLR": {name: "CLR", hasArg: true, byteModeOK: true, build: func(a Operand) (string, Operand, Operand, bool, LabelReference) {
		return "MOV", immOperand(0), a, false, LabelReference{}
	}},
	"TST": {name: "TST", hasArg: true, byteModeOK: true, build: func(a Operand) (string, Operand, Operand, bool, LabelReference) {
		return "CMP", immOperand(0), a, false, LabelReference{}
	}},
	"BR": {name: "BR", hasArg: true, byteModeOK: true, build: func(a Operand) (string, Operand, Operand, bool, LabelReference) {
		return "MOV", a, regOperand(cpu.PC), false, LabelReference{}
	}},
	"POP": {name: "POP", hasArg: true, byteModeOK: true, build: func(a Operand) (string, Operand, Operand, bool, LabelReference) {
		return "MOV", Operand{Kind: OperandRegIndirectAuto, Reg: cpu.SP}, a, false, LabelReference{}
	}},
	"RET": {name: "RET", hasArg: false, byteModeOK: true, build: func(Operand) (string, Operand, Operand, bool, LabelReference) {
		return "MOV", Operand{Kind: OperandRegIndirectAuto, Reg: cpu.SP}, regOperand(cpu.PC), false, LabelReference{}
	}},
	"NOP": {name: "NOP", hasArg: false, byteModeOK: true, build: func(Operand) (string, Operand, Operand, bool, LabelReference) {
		return "MOV", immOperand(0), regOperand(cpu.CG), false, LabelReference{}
	}},
	"CLRC": {name: "CLRC", hasArg: false, byteModeOK: true, build: func(Operand) (string, Operand, Operand, bool, LabelReference) {
		return "BIC", immOperand(1), regOperand(cpu.SR), false, LabelReference{}
	}},
	"CLRZ": {name: "CLRZ", hasArg: false, byteModeOK: true, build: func(Operand) (string, Operand, Operand, bool, LabelReference) {
		return "BIC", immOperand(2), regOperand(cpu.SR), false, LabelReference{}
	}},
	"CLRN": {name: "CLRN", hasArg: false, byteModeOK: true, build: func(Operand) (string, Operand, Operand, bool, LabelReference) {
		return "BIC", immOperand(4), regOperand(cpu.SR), false, LabelReference{}
	}},
	"DINT": {name: "DINT", hasArg: false, byteModeOK: true, build: func(Operand) (string, Operand, Operand, bool, LabelReference) {
		return "BIC", immOperand(8), regOperand(cpu.SR), false, LabelReference{}
	}},
	"SETC": {name: "SETC", hasArg: false, byteModeOK: true, build: func(Operand) (string, Operand, Operand, bool, LabelReference) {
		return "BIS", immOperand(1), regOperand(cpu.SR), false, LabelReference{}
	}},
	"SETZ": {name: "SETZ", hasArg: false, byteModeOK: true, build: func(Operand) (string, Operand, Operand, bool, LabelReference) {
		return "BIS", immOperand(2), regOperand(cpu.SR), false, LabelReference{}
	}},
	"SETN": {name: "SETN", hasArg: false, byteModeOK: true, build: func(Operand) (string, Operand, Operand, bool, LabelReference) {
		return "BIS", immOperand(4), regOperand(cpu.SR), false, LabelReference{}
	}},
	"EINT": {name: "EINT", hasArg: false, byteModeOK: true, build: func(Operand) (string, Operand, Operand, bool, LabelReference) {
		return "BIS", immOperand(8), regOperand(cpu.SR), false, LabelReference{}
	}},
	"HCF": {name: "HCF", hasArg: false, byteModeOK: false, build: func(Operand) (string, Operand, Operand, bool, LabelReference) {
		return "JMP", Operand{}, Operand{}, true, litRef(0)
	}},
}

// lookupEmulated returns the rewrite rule for a pseudo-mnemonic
// spelling (case-insensitive), or false if name is not one.
func lookupEmulated(name string) (emulatedDef, bool) {
	d, ok := emulatedDefs[strings.ToUpper(name)]
	return d, ok
}
