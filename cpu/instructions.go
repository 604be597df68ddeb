// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "strings"

// Class identifies the word-layout family an instruction belongs to
// (spec §4.5.2).
type Class byte

const (
	ClassDouble Class = iota // [op:4][src:4][Ad:1][bw:1][As:2][dst:4]
	ClassSingle               // [0001][op:3][bw:1][As:2][src:4]
	ClassJump                 // [001][cond:3][offset:10]
)

// an opsym is an internal symbol identifying a real MSP430 instruction,
// independent of its textual mnemonic (several mnemonics, e.g. JNE/JNZ,
// alias the same symbol).
type opsym byte

const (
	symMOV opsym = iota
	symADD
	symADDC
	symSUBC
	symSUB
	symCMP
	symDADD
	symBIT
	symBIC
	symBIS
	symXOR
	symAND
	symRRC
	symSWPB
	symRRA
	symSXT
	symPUSH
	symCALL
	symRETI
	symJNE
	symJEQ
	symJNC
	symJC
	symJN
	symJGE
	symJL
	symJMP
)

// instDef is a single row of the process-wide instruction-info table:
// the canonical name, its word-layout class, the fixed opcode bits
// within that class, and whether a .b byte-mode suffix is legal.
type instDef struct {
	sym        opsym
	name       string // canonical (first-listed) mnemonic
	class      Class
	bits       uint16 // 4-bit double-op code, 3-bit single-op code, or 3-bit jump condition
	byteModeOK bool
}

// defs is the hard-coded table from spec §4.5.2.
var defs = []instDef{
	{symMOV, "MOV", ClassDouble, 0x4, true},
	{symADD, "ADD", ClassDouble, 0x5, true},
	{symADDC, "ADDC", ClassDouble, 0x6, true},
	{symSUBC, "SUBC", ClassDouble, 0x7, true},
	{symSUB, "SUB", ClassDouble, 0x8, true},
	{symCMP, "CMP", ClassDouble, 0x9, true},
	{symDADD, "DADD", ClassDouble, 0xA, true},
	{symBIT, "BIT", ClassDouble, 0xB, true},
	{symBIC, "BIC", ClassDouble, 0xC, true},
	{symBIS, "BIS", ClassDouble, 0xD, true},
	{symXOR, "XOR", ClassDouble, 0xE, true},
	{symAND, "AND", ClassDouble, 0xF, true},

	{symRRC, "RRC", ClassSingle, 0x0, true},
	{symSWPB, "SWPB", ClassSingle, 0x1, false},
	{symRRA, "RRA", ClassSingle, 0x2, true},
	{symSXT, "SXT", ClassSingle, 0x3, false},
	{symPUSH, "PUSH", ClassSingle, 0x4, true},
	{symCALL, "CALL", ClassSingle, 0x5, false},
	{symRETI, "RETI", ClassSingle, 0x6, false},

	{symJNE, "JNE", ClassJump, 0x0, false},
	{symJEQ, "JEQ", ClassJump, 0x1, false},
	{symJNC, "JNC", ClassJump, 0x2, false},
	{symJC, "JC", ClassJump, 0x3, false},
	{symJN, "JN", ClassJump, 0x4, false},
	{symJGE, "JGE", ClassJump, 0x5, false},
	{symJL, "JL", ClassJump, 0x6, false},
	{symJMP, "JMP", ClassJump, 0x7, false},
}

// aliases maps every recognized mnemonic spelling, including alternate
// jump spellings, to the symbol it shares encoding with.
var aliases = map[string]opsym{
	"JNZ": symJNE,
	"JZ":  symJEQ,
	"JLO": symJNC,
	"JHS": symJC,
}

// InstructionSet is the process-wide, lazily initialized table of real
// MSP430 instruction definitions. It is read-only after construction;
// spec §5 permits this because the whole core is single-threaded.
type InstructionSet struct {
	bySymbol map[opsym]*instDef
	byName   map[string]*instDef // canonical name -> def
	byAlias  map[string]*instDef // any recognized spelling -> def
	single   map[uint16]*instDef // opcode bits -> def, single-operand class
	double   map[uint16]*instDef // opcode bits -> def, double-operand class
	jump     map[uint16]*instDef // condition bits -> def, jump class
}

// Lookup returns the instruction definition for a mnemonic spelling
// (case-insensitive), or nil if unrecognized.
func (s *InstructionSet) Lookup(name string) *instDef {
	return s.byAlias[strings.ToUpper(name)]
}

// LookupSingle returns the single-operand instruction whose 3-bit
// opcode field is 'bits'.
func (s *InstructionSet) LookupSingle(bits uint16) *instDef {
	return s.single[bits]
}

// LookupDouble returns the double-operand instruction whose 4-bit
// opcode field is 'bits'.
func (s *InstructionSet) LookupDouble(bits uint16) *instDef {
	return s.double[bits]
}

// LookupJump returns the jump instruction whose 3-bit condition field
// is 'bits'.
func (s *InstructionSet) LookupJump(bits uint16) *instDef {
	return s.jump[bits]
}

// Name returns the canonical mnemonic for a definition.
func (d *instDef) Name() string { return d.name }

// Class returns the word-layout class for a definition.
func (d *instDef) Class() Class { return d.class }

// Bits returns the opcode/condition field value for a definition.
func (d *instDef) Bits() uint16 { return d.bits }

// ByteModeOK reports whether a .b suffix is legal for a definition.
func (d *instDef) ByteModeOK() bool { return d.byteModeOK }

func newInstructionSet() *InstructionSet {
	s := &InstructionSet{
		bySymbol: make(map[opsym]*instDef, len(defs)),
		byName:   make(map[string]*instDef, len(defs)),
		byAlias:  make(map[string]*instDef, len(defs)+len(aliases)),
		single:   make(map[uint16]*instDef),
		double:   make(map[uint16]*instDef),
		jump:     make(map[uint16]*instDef),
	}
	for i := range defs {
		d := &defs[i]
		s.bySymbol[d.sym] = d
		s.byName[d.name] = d
		s.byAlias[d.name] = d
		switch d.class {
		case ClassSingle:
			s.single[d.bits] = d
		case ClassDouble:
			s.double[d.bits] = d
		case ClassJump:
			s.jump[d.bits] = d
		}
	}
	for alias, sym := range aliases {
		s.byAlias[alias] = s.bySymbol[sym]
	}
	return s
}

var instructionSet *InstructionSet

// Instructions returns the lazily initialized, process-wide instruction
// table (spec §5, §9). Safe to call repeatedly; initialization happens
// once.
func Instructions() *InstructionSet {
	if instructionSet == nil {
		instructionSet = newInstructionSet()
	}
	return instructionSet
}
