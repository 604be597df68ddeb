// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu implements the MSP430 instruction set and emulator: 16
// specialized registers, a 64 KiB byte-addressed memory, and a
// fetch-decode-execute step function.
package cpu

import (
	"fmt"
	"io"
)

// ExecutionErrorCode identifies the kind of fault that stopped a Step.
type ExecutionErrorCode byte

// Execution fault codes (spec §7, channel 3).
const (
	ErrUnalignedPC ExecutionErrorCode = iota
	ErrUnalignedSP
	ErrUnalignedMemory
	ErrOutOfBounds
	ErrByteAccessOnSR
	ErrStackOverflow
	ErrUnimplemented
)

var executionErrorText = map[ExecutionErrorCode]string{
	ErrUnalignedPC:     "PC misaligned",
	ErrUnalignedSP:     "SP misaligned",
	ErrUnalignedMemory: "unaligned word access",
	ErrOutOfBounds:     "memory access out of bounds",
	ErrByteAccessOnSR:  "byte access on SR is not permitted",
	ErrStackOverflow:   "stack overflow",
	ErrUnimplemented:   "unimplemented instruction",
}

// ExecutionError is a fatal fault raised by Step. Execution of the
// current instruction is abandoned; the caller decides whether to reset.
type ExecutionError struct {
	Code ExecutionErrorCode
	Detail string
}

func (e *ExecutionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("execution error: %s: %s", executionErrorText[e.Code], e.Detail)
	}
	return "execution error: " + executionErrorText[e.Code]
}

func execErr(code ExecutionErrorCode) error {
	return &ExecutionError{Code: code}
}

func execErrf(code ExecutionErrorCode, format string, args ...any) error {
	return &ExecutionError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// wtKind identifies the kind of location an instruction's result is
// written back to (spec §4.6 "write targets").
type wtKind byte

const (
	wtRegister wtKind = iota
	wtMemory
	wtVoid
)

// WriteTarget abstracts where a decoded operand's result is written
// back to: a register, a memory address, or nowhere (constant-generator
// sources, and results discarded by CMP/BIT).
type WriteTarget struct {
	kind wtKind
	reg  int
	addr uint16
}

// Config holds the emulator's external-interface configurables (spec
// §6.4).
type Config struct {
	// Silent suppresses debug/trace logging.
	Silent bool

	// SpecialInterrupts enables recognition of the reserved
	// system-call-style trap at PC == 0x0010.
	SpecialInterrupts bool

	// InputFunction and OutputFunction are injected I/O callbacks.
	// NewCPU installs defaults that return an unimplemented-instruction
	// error.
	InputFunction  func() (uint16, error)
	OutputFunction func(uint16) error
}

// CPU represents a single emulated MSP430 core bound to a Memory.
type CPU struct {
	Reg    Registers
	Mem    Memory
	Steps  uint64 // instructions executed; this core makes no cycle-timing claims
	Config Config

	debugger  *Debugger
	storeByte func(cpu *CPU, addr uint16, v byte)
	log       io.Writer
}

// NewCPU creates an emulated MSP430 CPU bound to the specified memory.
func NewCPU(m Memory) *CPU {
	c := &CPU{
		Mem:       m,
		storeByte: (*CPU).storeByteNormal,
	}
	c.Config.InputFunction = func() (uint16, error) {
		return 0, execErrf(ErrUnimplemented, "no input function defined")
	}
	c.Config.OutputFunction = func(uint16) error {
		return execErrf(ErrUnimplemented, "no output function defined")
	}
	c.Reg.Init()
	return c
}

// AttachDebugger installs a breakpoint debugger on the CPU.
func (c *CPU) AttachDebugger(d *Debugger) {
	c.debugger = d
	if d != nil {
		c.storeByte = (*CPU).storeByteDebugger
	} else {
		c.storeByte = (*CPU).storeByteNormal
	}
}

// SetLogWriter directs verbose step tracing to w. Tracing is additionally
// gated by Config.Silent.
func (c *CPU) SetLogWriter(w io.Writer) {
	c.log = w
}

func (c *CPU) logf(format string, args ...any) {
	if c.log != nil && !c.Config.Silent {
		fmt.Fprintf(c.log, format, args...)
	}
}

// SetPC sets the program counter. PC must be word-aligned.
func (c *CPU) SetPC(addr uint16) error {
	if addr&1 != 0 {
		return execErr(ErrUnalignedPC)
	}
	c.Reg.R[PC] = addr
	if c.debugger != nil {
		c.debugger.onUpdatePC(c, addr)
	}
	return nil
}

// SetSP sets the stack pointer. SP must be word-aligned.
func (c *CPU) SetSP(addr uint16) error {
	if addr&1 != 0 {
		return execErr(ErrUnalignedSP)
	}
	c.Reg.R[SP] = addr
	return nil
}

func (c *CPU) storeByteNormal(addr uint16, v byte) {
	c.Mem.StoreByte(addr, v)
}

func (c *CPU) storeByteDebugger(addr uint16, v byte) {
	c.Mem.StoreByte(addr, v)
	c.debugger.onDataStore(c, addr, v)
}

func (c *CPU) storeWord(addr uint16, v uint16) error {
	if err := c.Mem.StoreWord(addr, v); err != nil {
		return execErrf(ErrUnalignedMemory, "store at $%04X", addr)
	}
	c.storeByte(c, addr, byte(v>>8))
	c.storeByte(c, addr+1, byte(v))
	return nil
}

func (c *CPU) loadWord(addr uint16) (uint16, error) {
	v, err := c.Mem.LoadWord(addr)
	if err != nil {
		return 0, execErrf(ErrUnalignedMemory, "load at $%04X", addr)
	}
	return v, nil
}

// fetchWord reads the word at PC and advances PC by 2. PC is guaranteed
// aligned by construction (every assignment to PC in this CPU goes
// through SetPC or a post-increment of 2).
func (c *CPU) fetchWord() (uint16, error) {
	w, err := c.loadWord(c.Reg.R[PC])
	if err != nil {
		return 0, err
	}
	c.Reg.R[PC] += 2
	return w, nil
}

func (c *CPU) readWT(wt WriteTarget, byteMode bool) uint16 {
	switch wt.kind {
	case wtRegister:
		if wt.reg == CG {
			return 0
		}
		v := c.Reg.R[wt.reg]
		if byteMode {
			return v & 0xFF
		}
		return v
	case wtMemory:
		if byteMode {
			return uint16(c.Mem.LoadByte(wt.addr))
		}
		v, _ := c.loadWord(wt.addr)
		return v
	default:
		return 0
	}
}

func (c *CPU) writeWT(wt WriteTarget, v uint16, byteMode bool) error {
	switch wt.kind {
	case wtVoid:
		return nil
	case wtRegister:
		if wt.reg == CG {
			return nil // writes to the constant generator are discarded
		}
		if wt.reg == SR && byteMode {
			return execErr(ErrByteAccessOnSR)
		}
		if byteMode {
			c.Reg.R[wt.reg] = c.Reg.R[wt.reg]&0xFF00 | v&0xFF
		} else {
			c.Reg.R[wt.reg] = v
		}
		if wt.reg == PC {
			return c.SetPC(c.Reg.R[PC])
		}
		if wt.reg == SP {
			return c.SetSP(c.Reg.R[SP])
		}
		return nil
	case wtMemory:
		if byteMode {
			c.storeByte(c, wt.addr, byte(v))
			return nil
		}
		return c.storeWord(wt.addr, v)
	}
	return nil
}

// effectiveAddr computes the effective address for an indexed operand,
// folding in the symbolic (reg==PC) and absolute (reg==SR) special
// cases described in spec §4.5.1. pcStart is the address of the
// instruction's own opcode word.
func effectiveAddr(reg int, ext uint16, pcStart uint16) uint16 {
	switch reg {
	case PC:
		return pcStart + 2 + ext
	case SR:
		return ext
	default:
		return 0 // filled by caller using the live register value
	}
}

// decodeOperand decodes a single addressing-mode field (As for sources
// and single-operand instructions, or the register-direct/indexed
// choice for a destination) and returns its value plus a WriteTarget
// for instructions that write back to it.
func (c *CPU) decodeOperand(as uint16, reg int, byteMode bool, pcStart uint16) (uint16, WriteTarget, error) {
	// Constant-generator special cases (spec §4.5.1 table): CG (R3) at
	// any As, or SR (R2) at As=10/11, supply a literal with no
	// extension word and no writable location.
	if reg == CG {
		switch as {
		case 0:
			return 0, WriteTarget{kind: wtVoid}, nil
		case 1:
			return 1, WriteTarget{kind: wtVoid}, nil
		case 2:
			return 2, WriteTarget{kind: wtVoid}, nil
		case 3:
			return 0xFFFF, WriteTarget{kind: wtVoid}, nil
		}
	}
	if reg == SR {
		switch as {
		case 2:
			return 4, WriteTarget{kind: wtVoid}, nil
		case 3:
			return 8, WriteTarget{kind: wtVoid}, nil
		}
	}

	switch as {
	case 0: // register direct
		if reg == SR && byteMode {
			return 0, WriteTarget{}, execErr(ErrByteAccessOnSR)
		}
		v := c.Reg.R[reg]
		if byteMode {
			v &= 0xFF
		}
		return v, WriteTarget{kind: wtRegister, reg: reg}, nil

	case 1: // indexed / symbolic / absolute
		ext, err := c.fetchWord()
		if err != nil {
			return 0, WriteTarget{}, err
		}
		addr := effectiveAddr(reg, ext, pcStart)
		if reg != PC && reg != SR {
			addr = c.Reg.R[reg] + ext
		}
		v := c.loadOperandMem(addr, byteMode)
		return v, WriteTarget{kind: wtMemory, addr: addr}, nil

	case 2: // register indirect
		addr := c.Reg.R[reg]
		v := c.loadOperandMem(addr, byteMode)
		return v, WriteTarget{kind: wtMemory, addr: addr}, nil

	default: // 3: register indirect autoincrement
		addr := c.Reg.R[reg]
		v := c.loadOperandMem(addr, byteMode)
		inc := uint16(2)
		if byteMode && reg != PC && reg != SP {
			inc = 1
		}
		c.Reg.R[reg] += inc
		return v, WriteTarget{kind: wtMemory, addr: addr}, nil
	}
}

func (c *CPU) loadOperandMem(addr uint16, byteMode bool) uint16 {
	if byteMode {
		return uint16(c.Mem.LoadByte(addr))
	}
	v, _ := c.loadWord(addr)
	return v
}

// push pushes a word onto the stack, predecrementing SP.
func (c *CPU) push(v uint16) error {
	sp := c.Reg.R[SP] - 2
	if err := c.SetSP(sp); err != nil {
		return execErr(ErrStackOverflow)
	}
	return c.storeWord(sp, v)
}

// pop pops a word from the stack, postincrementing SP.
func (c *CPU) pop() (uint16, error) {
	v, err := c.loadWord(c.Reg.R[SP])
	if err != nil {
		return 0, err
	}
	if err := c.SetSP(c.Reg.R[SP] + 2); err != nil {
		return 0, err
	}
	return v, nil
}

// Step fetches, decodes, and executes one instruction.
func (c *CPU) Step() error {
	pcStart := c.Reg.R[PC]

	if pcStart == 0x0010 && c.Config.SpecialInterrupts {
		return execErrf(ErrUnimplemented, "special interrupt trap at $0010")
	}

	word, err := c.fetchWord()
	if err != nil {
		return err
	}

	c.Steps++

	switch {
	case word&0xE000 == 0x2000: // 001xxxxxxxxxxxxx -> jump
		return c.executeJump(word, pcStart)
	case word&0xFC00 == 0x1000: // 000100xxxxxxxxxx -> single-operand
		return c.executeSingle(word, pcStart)
	default:
		return c.executeDouble(word, pcStart)
	}
}

func (c *CPU) executeJump(word uint16, pcStart uint16) error {
	cond := (word >> 10) & 0x7
	offsetField := word & 0x3FF
	offset := int32(offsetField)
	if offsetField >= 512 {
		offset -= 1024
	}
	target := uint16(int32(c.Reg.R[PC]) + offset*2)

	def := Instructions().LookupJump(cond)
	c.logf("jump %s -> $%04X\n", def.Name(), target)

	take := false
	switch def.sym {
	case symJNE:
		take = !c.Reg.Z()
	case symJEQ:
		take = c.Reg.Z()
	case symJNC:
		take = !c.Reg.C()
	case symJC:
		take = c.Reg.C()
	case symJN:
		take = c.Reg.N()
	case symJGE:
		take = c.Reg.N() == c.Reg.V()
	case symJL:
		take = c.Reg.N() != c.Reg.V()
	case symJMP:
		take = true
	}
	if take {
		return c.SetPC(target)
	}
	return nil
}

func (c *CPU) executeSingle(word uint16, pcStart uint16) error {
	bits := (word >> 7) & 0x7
	byteMode := word&0x40 != 0
	as := (word >> 4) & 0x3
	reg := int(word & 0xF)

	def := Instructions().LookupSingle(bits)
	if def == nil {
		return execErrf(ErrUnimplemented, "single-operand opcode %X", bits)
	}
	if byteMode && !def.byteModeOK {
		return execErrf(ErrUnimplemented, "%s does not support byte mode", def.name)
	}

	val, wt, err := c.decodeOperand(as, reg, byteMode, pcStart)
	if err != nil {
		return err
	}
	c.logf("%s %s\n", def.name, RegisterName(reg))

	switch def.sym {
	case symRRC:
		carryIn := uint16(0)
		if c.Reg.C() {
			carryIn = 1
		}
		mask := uint16(0xFFFF)
		signBit := uint16(0x8000)
		if byteMode {
			mask = 0xFF
			signBit = 0x80
		}
		newC := val&1 != 0
		result := (val >> 1) | (carryIn * (signBit))
		result &= mask
		c.Reg.SetC(newC)
		c.Reg.updateNZ(result, byteMode)
		c.Reg.SetV(false)
		return c.writeWT(wt, result, byteMode)

	case symSWPB:
		result := val<<8 | val>>8
		return c.writeWT(wt, result, false)

	case symRRA:
		mask := uint16(0xFFFF)
		signBit := uint16(0x8000)
		if byteMode {
			mask = 0xFF
			signBit = 0x80
		}
		newC := val&1 != 0
		result := (val >> 1) | (val & signBit)
		result &= mask
		c.Reg.SetC(newC)
		c.Reg.updateNZ(result, byteMode)
		c.Reg.SetV(false)
		return c.writeWT(wt, result, byteMode)

	case symSXT:
		result := val & 0xFF
		if result&0x80 != 0 {
			result |= 0xFF00
		}
		c.Reg.updateNZ(result, false)
		c.Reg.SetV(false)
		c.Reg.SetC(result != 0)
		return c.writeWT(wt, result, false)

	case symPUSH:
		if byteMode {
			val &= 0xFF
		}
		return c.push(val)

	case symCALL:
		if err := c.push(c.Reg.R[PC]); err != nil {
			return err
		}
		return c.SetPC(val)

	case symRETI:
		return execErrf(ErrUnimplemented, "RETI")

	default:
		return execErrf(ErrUnimplemented, "%s", def.name)
	}
}

func (c *CPU) executeDouble(word uint16, pcStart uint16) error {
	bits := (word >> 12) & 0xF
	srcReg := int((word >> 8) & 0xF)
	ad := (word >> 7) & 0x1
	byteMode := word&0x40 != 0
	as := (word >> 4) & 0x3
	dstReg := int(word & 0xF)

	def := Instructions().LookupDouble(bits)
	if def == nil {
		return execErrf(ErrUnimplemented, "double-operand opcode %X", bits)
	}

	srcVal, _, err := c.decodeOperand(as, srcReg, byteMode, pcStart)
	if err != nil {
		return err
	}
	dstVal, dstWT, err := c.decodeOperand(ad, dstReg, byteMode, pcStart)
	if err != nil {
		return err
	}
	c.logf("%s %s,%s\n", def.name, RegisterName(srcReg), RegisterName(dstReg))

	mask := uint16(0xFFFF)
	signBit := uint16(0x8000)
	if byteMode {
		mask = 0xFF
		signBit = 0x80
	}

	switch def.sym {
	case symMOV:
		return c.writeWT(dstWT, srcVal&mask, byteMode)

	case symADD, symADDC:
		carryIn := uint16(0)
		if def.sym == symADDC && c.Reg.C() {
			carryIn = 1
		}
		full := uint32(srcVal&mask) + uint32(dstVal&mask) + uint32(carryIn)
		result := uint16(full) & mask
		c.Reg.SetC(full&(uint32(mask)+1) != 0)
		c.Reg.SetV((srcVal&signBit) == (dstVal&signBit) && (result&signBit) != (srcVal&signBit))
		c.Reg.updateNZ(result, byteMode)
		return c.writeWT(dstWT, result, byteMode)

	case symSUB, symSUBC:
		borrowIn := uint32(1)
		if def.sym == symSUBC && !c.Reg.C() {
			borrowIn = 0
		}
		full := uint32(dstVal&mask) + uint32(^srcVal&mask) + borrowIn
		result := uint16(full) & mask
		c.Reg.SetC(full&(uint32(mask)+1) != 0)
		c.Reg.SetV((srcVal&signBit) != (dstVal&signBit) && (result&signBit) == (srcVal&signBit))
		c.Reg.updateNZ(result, byteMode)
		return c.writeWT(dstWT, result, byteMode)

	case symCMP:
		full := uint32(dstVal&mask) + uint32(^srcVal&mask) + 1
		result := uint16(full) & mask
		c.Reg.SetC(full&(uint32(mask)+1) != 0)
		c.Reg.SetV((srcVal&signBit) != (dstVal&signBit) && (result&signBit) == (srcVal&signBit))
		c.Reg.updateNZ(result, byteMode)
		return nil // CMP discards its result

	case symDADD:
		return execErrf(ErrUnimplemented, "DADD")

	case symBIT:
		result := srcVal & dstVal & mask
		c.Reg.updateNZ(result, byteMode)
		c.Reg.SetC(!c.Reg.Z())
		c.Reg.SetV(false)
		return nil // BIT discards its result

	case symBIC:
		result := dstVal &^ srcVal & mask
		return c.writeWT(dstWT, result, byteMode)

	case symBIS:
		result := (dstVal | srcVal) & mask
		return c.writeWT(dstWT, result, byteMode)

	case symXOR:
		result := (srcVal ^ dstVal) & mask
		c.Reg.updateNZ(result, byteMode)
		c.Reg.SetC(!c.Reg.Z())
		c.Reg.SetV(srcVal&signBit != 0 && dstVal&signBit != 0)
		return c.writeWT(dstWT, result, byteMode)

	case symAND:
		result := srcVal & dstVal & mask
		c.Reg.updateNZ(result, byteMode)
		c.Reg.SetC(!c.Reg.Z())
		c.Reg.SetV(false)
		return c.writeWT(dstWT, result, byteMode)
	}
	return execErrf(ErrUnimplemented, "%s", def.name)
}
