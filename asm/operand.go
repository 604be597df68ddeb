// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"

	"github.com/beevik/msp430/cpu"
)

// OperandKind identifies an Operand's addressing-mode variant (spec
// §4.5.1).
type OperandKind int

const (
	OperandRegDirect OperandKind = iota
	OperandIndexed
	OperandRegIndirect
	OperandRegIndirectAuto
	OperandSymbolic
	OperandAbsolute
	OperandImmediate
)

// LabelReference is either an immediate numeric literal or a label
// name awaiting resolution against the address map built by pass 1 of
// the resolver (spec §9: deferred binding, no in-place mutation).
type LabelReference struct {
	IsLabel bool
	Name    string
	Value   int
}

func litRef(v int) LabelReference         { return LabelReference{Value: v} }
func labelRef(name string) LabelReference { return LabelReference{IsLabel: true, Name: name} }

func (r LabelReference) resolve(labels map[string]int) (int, error) {
	if !r.IsLabel {
		return r.Value, nil
	}
	v, ok := labels[r.Name]
	if !ok {
		return 0, fmt.Errorf("label '%s' not found", r.Name)
	}
	return v, nil
}

// Operand is a tagged variant (spec §9) carrying the addressing-mode
// identity, the register field, and an unresolved value where the mode
// requires one.
type Operand struct {
	Kind OperandKind
	Reg  int
	Ref  LabelReference
}

// encoded is the result of resolving an Operand to its bit-level
// contribution: the As/Ad field, the register field, and an optional
// extension word.
type encoded struct {
	mode   uint16
	reg    uint16
	ext    uint16
	hasExt bool
}

var cgSpecials = map[int]encoded{
	0:  {mode: 0, reg: uint16(cpu.CG)},
	1:  {mode: 1, reg: uint16(cpu.CG)},
	2:  {mode: 2, reg: uint16(cpu.CG)},
	4:  {mode: 2, reg: uint16(cpu.SR)},
	8:  {mode: 3, reg: uint16(cpu.SR)},
	-1: {mode: 3, reg: uint16(cpu.CG)},
}

// encodeSource resolves this Operand as an instruction's source,
// producing its As field, register field, and optional extension word
// (spec §4.5.1). pcStart is the address of the instruction's own
// opcode word, per the recorded interpretation of the "pc" term in the
// symbolic-addressing formula (see DESIGN.md). byteMode controls how a
// non-special immediate's value is packed into its extension word: in
// byte mode the emulator loads that word's high byte (cpu/memory.go's
// big-endian LoadByte), so the value is shifted into bits 8-15 there
// instead of stored in the low byte.
func (op Operand) encodeSource(pcStart uint16, labels map[string]int, byteMode bool) (encoded, error) {
	switch op.Kind {
	case OperandRegDirect:
		return encoded{mode: 0, reg: uint16(op.Reg)}, nil

	case OperandIndexed:
		off, err := op.Ref.resolve(labels)
		if err != nil {
			return encoded{}, err
		}
		return encoded{mode: 1, reg: uint16(op.Reg), ext: uint16(off), hasExt: true}, nil

	case OperandRegIndirect:
		return encoded{mode: 2, reg: uint16(op.Reg)}, nil

	case OperandRegIndirectAuto:
		return encoded{mode: 3, reg: uint16(op.Reg)}, nil

	case OperandSymbolic:
		target, err := op.Ref.resolve(labels)
		if err != nil {
			return encoded{}, err
		}
		ext := uint16(target) - (pcStart + 2)
		return encoded{mode: 1, reg: uint16(cpu.PC), ext: ext, hasExt: true}, nil

	case OperandAbsolute:
		target, err := op.Ref.resolve(labels)
		if err != nil {
			return encoded{}, err
		}
		return encoded{mode: 1, reg: uint16(cpu.SR), ext: uint16(target), hasExt: true}, nil

	case OperandImmediate:
		v, err := op.Ref.resolve(labels)
		if err != nil {
			return encoded{}, err
		}
		// The constant-generator shortcut only applies to literal
		// immediates: pass 1 fixes numExtWords before labels resolve,
		// so a label-valued immediate always reserves one ext word.
		if !op.Ref.IsLabel {
			if e, ok := cgSpecials[v]; ok {
				return e, nil
			}
		}
		ext := uint16(v)
		if byteMode {
			ext = uint16(byte(v)) << 8
		}
		return encoded{mode: 3, reg: uint16(cpu.PC), ext: ext, hasExt: true}, nil
	}
	return encoded{}, fmt.Errorf("unhandled operand kind %v", op.Kind)
}

// encodeDest resolves this Operand as an instruction's destination.
// Only register-direct and indexed (which subsumes symbolic/absolute)
// addressing are legal destinations (spec §4.5.1); indirect,
// autoincrement, and immediate destinations are compile errors.
func (op Operand) encodeDest(pcStart uint16, labels map[string]int) (encoded, error) {
	switch op.Kind {
	case OperandRegDirect:
		return encoded{mode: 0, reg: uint16(op.Reg)}, nil

	case OperandIndexed:
		off, err := op.Ref.resolve(labels)
		if err != nil {
			return encoded{}, err
		}
		return encoded{mode: 1, reg: uint16(op.Reg), ext: uint16(off), hasExt: true}, nil

	case OperandSymbolic:
		target, err := op.Ref.resolve(labels)
		if err != nil {
			return encoded{}, err
		}
		ext := uint16(target) - (pcStart + 2)
		return encoded{mode: 1, reg: uint16(cpu.PC), ext: ext, hasExt: true}, nil

	case OperandAbsolute:
		target, err := op.Ref.resolve(labels)
		if err != nil {
			return encoded{}, err
		}
		return encoded{mode: 1, reg: uint16(cpu.SR), ext: uint16(target), hasExt: true}, nil

	default:
		return encoded{}, fmt.Errorf("illegal addressing mode for destination")
	}
}

// numExtWords reports how many extension words this Operand
// contributes, without requiring label resolution (pass 1 only needs
// the count, not the value).
func (op Operand) numExtWords() int {
	switch op.Kind {
	case OperandRegDirect, OperandRegIndirect, OperandRegIndirectAuto:
		return 0
	case OperandImmediate:
		if !op.Ref.IsLabel {
			if _, ok := cgSpecials[op.Ref.Value]; ok {
				return 0
			}
		}
		return 1
	default:
		return 1
	}
}
