// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements an MSP430 instruction disassembler: a word
// stream is decoded into a rendered mnemonic-and-operand line, with the
// emulated-instruction reverse table preferring short forms where one
// exists (spec §4.7).
package disasm

import (
	"fmt"
	"strings"

	"github.com/beevik/msp430/cpu"
)

// registerNames gives the conventional alias for the four specialized
// registers; general-purpose registers render as rN.
var registerNames = map[int]string{
	cpu.PC: "pc",
	cpu.SP: "sp",
	cpu.SR: "sr",
	cpu.CG: "cg",
}

func registerText(reg int) string {
	if name, ok := registerNames[reg]; ok {
		return name
	}
	return fmt.Sprintf("r%d", reg)
}

// FormatRegisters renders the general-purpose registers and status
// flags for a debugger register dump.
func FormatRegisters(r *cpu.Registers) string {
	var b strings.Builder
	for i := 0; i < 16; i++ {
		fmt.Fprintf(&b, "%-3s=%04X ", registerText(i), r.R[i])
		if i%4 == 3 {
			b.WriteByte('\n')
		}
	}
	fmt.Fprintf(&b, "flags: C=%v Z=%v N=%v V=%v CPUOff=%v",
		boolFlag(r.C()), boolFlag(r.Z()), boolFlag(r.N()), boolFlag(r.V()), boolFlag(r.CPUOff()))
	return b.String()
}

func boolFlag(v bool) int {
	if v {
		return 1
	}
	return 0
}

// Labels maps an address to the label name that should be printed in
// its place, when known (spec §4.7).
type Labels map[uint16]string

func (l Labels) lookup(addr uint16) string {
	if l == nil {
		return ""
	}
	return l[addr]
}

func (l Labels) render(addr uint16) string {
	if name := l.lookup(addr); name != "" {
		return name
	}
	return fmt.Sprintf("0x%X", addr)
}

// operand is a decoded addressing-mode operand, rendered independently
// of the instruction it belongs to.
type operand struct {
	mode uint16
	reg  int
	ext  uint16
}

// hasExtWord reports whether this operand's mode/register combination
// consumes an extension word, mirroring the constant-generator special
// cases the assembler encodes (asm/operand.go's cgSpecials table).
// Mode 2 (register indirect) never has one; mode 1 (indexed) always
// does except the #1 special; mode 3 (autoincrement) only does for the
// general PC-relative immediate form, not the #-1/#8 specials or a
// genuine @Rn+.
func (op operand) hasExtWord() bool {
	switch op.mode {
	case 1:
		return op.reg != cpu.CG
	case 3:
		return op.reg == cpu.PC
	default:
		return false
	}
}

// render formats the operand as assembly text. addr is the address of
// the instruction's own opcode word, needed to recover the symbolic
// addressing mode's original target. dest distinguishes a destination
// position, where mode0/CG can only mean a literal write to R3 (the
// constant-generator #0 reading is source-only, since immediates are
// never legal destinations).
// byteMode recovers a non-special immediate's value from its extension
// word's high byte (bits 8-15), symmetric with asm/operand.go's
// encodeSource packing.
func (op operand) render(addr uint16, labels Labels, dest bool, byteMode bool) string {
	switch {
	case op.mode == 0 && op.reg == cpu.CG && !dest:
		return "#0"
	case op.mode == 0:
		return registerText(op.reg)
	case op.mode == 1 && op.reg == cpu.PC:
		target := addr + 2 + op.ext
		return labels.render(target)
	case op.mode == 1 && op.reg == cpu.SR:
		return "&" + labels.render(op.ext)
	case op.mode == 1 && op.reg == cpu.CG:
		return "#1"
	case op.mode == 1:
		return fmt.Sprintf("0x%X(%s)", op.ext, registerText(op.reg))
	case op.mode == 2 && op.reg == cpu.CG:
		return "#2"
	case op.mode == 2 && op.reg == cpu.SR:
		return "#4"
	case op.mode == 2:
		return "@" + registerText(op.reg)
	case op.mode == 3 && op.reg == cpu.CG:
		return "#-1"
	case op.mode == 3 && op.reg == cpu.SR:
		return "#8"
	case op.mode == 3 && op.reg == cpu.PC:
		v := op.ext
		if byteMode {
			v = v >> 8
		}
		return fmt.Sprintf("#0x%X", v)
	default:
		return "@" + registerText(op.reg) + "+"
	}
}

// decodeOperand reconstructs an operand from its As/Ad field and
// register field, consuming an extension word from words[0] if the
// mode requires one. It reports how many words (0 or 1) it consumed.
func decodeOperand(mode uint16, reg int, words []uint16) (operand, int) {
	op := operand{mode: mode, reg: reg}
	if op.hasExtWord() && len(words) > 0 {
		op.ext = words[0]
		return op, 1
	}
	return op, 0
}

// Disassemble decodes the instruction at 'addr' in memory 'm', applies
// the emulated-instruction reverse table to prefer short forms, and
// returns the rendered line plus the address of the next instruction
// (spec §4.7).
func Disassemble(m cpu.Memory, addr uint16, labels Labels) (line string, next uint16) {
	word, err := m.LoadWord(addr)
	if err != nil {
		return fmt.Sprintf("!!!unaligned word at 0x%X", addr), addr + 1
	}

	if word == 0 {
		return "", addr + 2
	}

	switch {
	case word&0xFC00 == 0x1000:
		line, next = disassembleSingle(m, addr, word, labels)
	case word&0xE000 == 0x2000:
		line, next = disassembleJump(addr, word, labels)
	default:
		line, next = disassembleDouble(m, addr, word, labels)
	}
	return lowerMnemonic(reverseRewrite(line)), next
}

// lowerMnemonic lowercases just the leading mnemonic[.b] token, leaving
// operand text (in particular label names) untouched, to match the
// dialect's lowercase mnemonic convention.
func lowerMnemonic(line string) string {
	i := strings.IndexByte(line, ' ')
	if i < 0 {
		return strings.ToLower(line)
	}
	return strings.ToLower(line[:i]) + line[i:]
}

func extWords(m cpu.Memory, addr uint16, n int) []uint16 {
	if n == 0 {
		return nil
	}
	w, _ := m.LoadWord(addr)
	return []uint16{w}
}

func disassembleSingle(m cpu.Memory, addr uint16, word uint16, labels Labels) (string, uint16) {
	bits := (word >> 7) & 0x7
	bw := (word>>6)&1 != 0
	as := (word >> 4) & 0x3
	reg := int(word & 0xF)

	def := cpu.Instructions().LookupSingle(bits)
	pc := addr + 2
	op, consumed := decodeOperand(as, reg, extWords(m, pc, wantExt(as, reg)))
	pc += uint16(consumed) * 2

	name := "???"
	if def != nil {
		name = def.Name()
	}
	suffix := ""
	if bw {
		suffix = ".b"
	}
	return fmt.Sprintf("%s%s %s", name, suffix, op.render(addr, labels, false, bw)), pc
}

func disassembleDouble(m cpu.Memory, addr uint16, word uint16, labels Labels) (string, uint16) {
	bits := word >> 12
	srcReg := int((word >> 8) & 0xF)
	ad := (word >> 7) & 1
	bw := (word>>6)&1 != 0
	as := (word >> 4) & 0x3
	dstReg := int(word & 0xF)

	def := cpu.Instructions().LookupDouble(bits)
	pc := addr + 2

	src, consumed := decodeOperand(as, srcReg, extWords(m, pc, wantExt(as, srcReg)))
	pc += uint16(consumed) * 2

	dst, consumed := decodeOperand(ad, dstReg, extWords(m, pc, wantExt(ad, dstReg)))
	pc += uint16(consumed) * 2

	name := "???"
	if def != nil {
		name = def.Name()
	}
	suffix := ""
	if bw {
		suffix = ".b"
	}
	return fmt.Sprintf("%s%s %s,%s", name, suffix, src.render(addr, labels, false, bw), dst.render(addr, labels, true, bw)), pc
}

func disassembleJump(addr uint16, word uint16, labels Labels) (string, uint16) {
	cond := (word >> 10) & 0x7
	field := word & 0x3FF
	offset := int(field)
	if offset > 511 {
		offset -= 1024
	}
	target := uint16(int(addr) + 2 + offset*2)

	def := cpu.Instructions().LookupJump(cond)
	name := "???"
	if def != nil {
		name = def.Name()
	}
	// Without a label, the operand is the byte offset from this
	// instruction's own address, the form the assembler accepts.
	arg := labels.lookup(target)
	if arg == "" {
		rel := offset*2 + 2
		if rel < 0 {
			arg = fmt.Sprintf("-0x%X", -rel)
		} else {
			arg = fmt.Sprintf("0x%X", rel)
		}
	}
	return fmt.Sprintf("%s %s", name, arg), addr + 2
}

// wantExt reports whether the given mode/register combination requires
// an extension word, so the caller knows whether to load one before
// decoding.
func wantExt(mode uint16, reg int) int {
	op := operand{mode: mode, reg: reg}
	if op.hasExtWord() {
		return 1
	}
	return 0
}
