// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm

import (
	"testing"

	"github.com/beevik/msp430/cpu"
)

func TestDisassembleSwpb(t *testing.T) {
	m := cpu.NewFlatMemory()
	m.StoreWord(0x0010, 0x1085)

	line, next := Disassemble(m, 0x0010, nil)
	if line != "swpb r5" {
		t.Fatalf("got %q, want %q", line, "swpb r5")
	}
	if next != 0x0012 {
		t.Fatalf("got next=0x%X, want 0x0012", next)
	}
}

func TestDisassembleRetCollapsesFromMov(t *testing.T) {
	m := cpu.NewFlatMemory()
	// mov @sp+,pc: op=MOV(4), srcReg=SP(1), Ad=0, bw=0, As=3(autoincrement), dstReg=PC(0).
	word := uint16(4<<12 | 1<<8 | 0<<7 | 0<<6 | 3<<4 | 0)
	m.StoreWord(0x0010, word)

	line, _ := Disassemble(m, 0x0010, nil)
	if line != "ret" {
		t.Fatalf("got %q, want %q", line, "ret")
	}
}

func TestDisassembleMovImmediateWithExtensionWord(t *testing.T) {
	m := cpu.NewFlatMemory()
	m.StoreWord(0x1000, 0x4031) // mov #N,sp
	m.StoreWord(0x1002, 0x4400)

	line, next := Disassemble(m, 0x1000, nil)
	if line != "mov #0x4400,sp" {
		t.Fatalf("got %q, want %q", line, "mov #0x4400,sp")
	}
	if next != 0x1004 {
		t.Fatalf("got next=0x%X, want 0x1004", next)
	}
}

func TestDisassembleJumpForwardOffsetWithLabel(t *testing.T) {
	m := cpu.NewFlatMemory()
	m.StoreWord(0x0000, 0x3C07) // jmp 0x10 from origin 0.

	labels := Labels{0x10: "loop"}
	line, next := Disassemble(m, 0x0000, labels)
	if line != "jmp loop" {
		t.Fatalf("got %q, want %q", line, "jmp loop")
	}
	if next != 0x0002 {
		t.Fatalf("got next=0x%X, want 0x0002", next)
	}
}

func TestDisassembleJumpWithoutLabelPrintsOffset(t *testing.T) {
	m := cpu.NewFlatMemory()
	m.StoreWord(0x0000, 0x3C07)

	line, _ := Disassemble(m, 0x0000, nil)
	if line != "jmp 0x10" {
		t.Fatalf("got %q, want %q", line, "jmp 0x10")
	}
}

func TestDisassemblePaddingWordIsSkipped(t *testing.T) {
	m := cpu.NewFlatMemory()
	line, next := Disassemble(m, 0x0000, nil)
	if line != "" {
		t.Fatalf("expected an empty line for a zero (padding) word, got %q", line)
	}
	if next != 0x0002 {
		t.Fatalf("got next=0x%X, want 0x0002", next)
	}
}

func TestDisassembleClrCollapsesFromMovZero(t *testing.T) {
	m := cpu.NewFlatMemory()
	// mov #0,r6: src mode0/CG (#0 special), dst register direct r6.
	word := uint16(4<<12 | cpu.CG<<8 | 0<<7 | 0<<6 | 0<<4 | 6)
	m.StoreWord(0x0010, word)

	line, _ := Disassemble(m, 0x0010, nil)
	if line != "clr r6" {
		t.Fatalf("got %q, want %q", line, "clr r6")
	}
}

func TestDisassembleNopCollapsesFromMovZeroToCG(t *testing.T) {
	m := cpu.NewFlatMemory()
	// mov #0,r3: src mode0/CG (#0 special), dst register direct r3 (CG, write discarded).
	word := uint16(4<<12 | cpu.CG<<8 | 0<<7 | 0<<6 | 0<<4 | cpu.CG)
	m.StoreWord(0x0010, word)

	line, _ := Disassemble(m, 0x0010, nil)
	if line != "nop" {
		t.Fatalf("got %q, want %q", line, "nop")
	}
}

func TestDisassembleByteModeImmediateRecoversHighByte(t *testing.T) {
	// mov.b #0x80,r5: the assembler packs a byte-mode immediate into the
	// extension word's high byte, so the disassembler must shift it back
	// down rather than rendering the raw word.
	m := cpu.NewFlatMemory()
	word := uint16(4<<12 | cpu.PC<<8 | 0<<7 | 1<<6 | 3<<4 | 5)
	m.StoreWord(0x0010, word)
	m.StoreWord(0x0012, 0x8000)

	line, _ := Disassemble(m, 0x0010, nil)
	if line != "mov.b #0x80,r5" {
		t.Fatalf("got %q, want %q", line, "mov.b #0x80,r5")
	}
}

func TestDisassembleUnknownOpcodeRendersPlaceholder(t *testing.T) {
	// Jump-class words are fully covered by the condition table (3 bits,
	// 8 entries), so exercise the placeholder through a crafted
	// double-operand opcode of 0x0, which isn't a valid op in that class
	// (double-operand opcodes start at 0x4 per the table).
	m := cpu.NewFlatMemory()
	word := uint16(0<<12 | 0<<8 | 0<<7 | 0<<6 | 0<<4 | 5)
	m.StoreWord(0x0010, word)

	line, _ := Disassemble(m, 0x0010, nil)
	if line == "" {
		t.Fatalf("expected a non-empty placeholder rendering")
	}
}
