package cpu_test

import (
	"testing"

	"github.com/beevik/msp430/cpu"
)

func loadCPU(t *testing.T, origin uint16, words ...uint16) *cpu.CPU {
	t.Helper()
	mem := cpu.NewFlatMemory()
	addr := origin
	for _, w := range words {
		if err := mem.StoreWord(addr, w); err != nil {
			t.Fatalf("failed to store test program: %v", err)
		}
		addr += 2
	}
	c := cpu.NewCPU(mem)
	if err := c.SetPC(origin); err != nil {
		t.Fatalf("failed to set PC: %v", err)
	}
	return c
}

func stepCPU(t *testing.T, c *cpu.CPU, steps int) {
	t.Helper()
	for i := 0; i < steps; i++ {
		if err := c.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func expectPC(t *testing.T, c *cpu.CPU, pc uint16) {
	t.Helper()
	if c.Reg.R[cpu.PC] != pc {
		t.Errorf("PC incorrect. exp: $%04X, got: $%04X", pc, c.Reg.R[cpu.PC])
	}
}

func expectReg(t *testing.T, c *cpu.CPU, reg int, v uint16) {
	t.Helper()
	if c.Reg.R[reg] != v {
		t.Errorf("r%d incorrect. exp: $%04X, got: $%04X", reg, v, c.Reg.R[reg])
	}
}

func expectMemWord(t *testing.T, c *cpu.CPU, addr uint16, v uint16) {
	t.Helper()
	got, err := c.Mem.LoadWord(addr)
	if err != nil {
		t.Fatalf("load word at $%04X: %v", addr, err)
	}
	if got != v {
		t.Errorf("memory at $%04X incorrect. exp: $%04X, got: $%04X", addr, v, got)
	}
}

// mov #imm, dst encodes as MOV (0100) with src=R0/PC, As=11 (indirect
// autoincrement), destination register direct.
func movImmToReg(imm uint16, dst int) (uint16, uint16) {
	word := uint16(0x4000) | uint16(cpu.PC)<<8 | 0x3<<4 | uint16(dst)
	return word, imm
}

func TestMovImmediateToRegister(t *testing.T) {
	op, imm := movImmToReg(0x1234, 5)
	c := loadCPU(t, 0x1000, op, imm)
	stepCPU(t, c, 1)

	expectReg(t, c, 5, 0x1234)
	expectPC(t, c, 0x1004)
}

func TestMovImmediateSetsSP(t *testing.T) {
	// mov #0x4400, sp  — immediate source via PC autoincrement, dest sp (r1)
	op, imm := movImmToReg(0x4400, cpu.SP)
	c := loadCPU(t, 0x1000, op, imm)
	stepCPU(t, c, 1)

	expectReg(t, c, cpu.SP, 0x4400)
}

func TestAddWordSetsFlags(t *testing.T) {
	// mov #0x7FFF, r4
	op1, imm1 := movImmToReg(0x7FFF, 4)
	// mov #1, r5 via constant generator (As=01 on CG register)
	op2 := uint16(0x4000) | uint16(cpu.CG)<<8 | 0x1<<4 | 5
	// add r4, r5
	op3 := uint16(0x5000) | uint16(4)<<8 | 5

	c := loadCPU(t, 0x1000, op1, imm1, op2, op3)
	stepCPU(t, c, 3)

	expectReg(t, c, 5, 0x8000)
	if !c.Reg.N() {
		t.Error("expected N set after signed overflow into negative range")
	}
	if !c.Reg.V() {
		t.Error("expected V set on signed overflow")
	}
	if c.Reg.Z() {
		t.Error("did not expect Z set")
	}
}

func TestCmpDiscardsResult(t *testing.T) {
	op1, imm1 := movImmToReg(5, 4)
	// mov #5,r5 then cmp r5,r4: a concrete equal comparison of two
	// registers holding 5
	op2, imm2 := movImmToReg(5, 5)
	op3 := uint16(0x9000) | uint16(5)<<8 | 4

	c := loadCPU(t, 0x1000, op1, imm1, op2, imm2, op3)
	stepCPU(t, c, 3)

	expectReg(t, c, 4, 5) // CMP must not modify the destination
	if !c.Reg.Z() {
		t.Error("expected Z set for equal operands")
	}
	if !c.Reg.C() {
		t.Error("expected C set (no borrow) for equal operands")
	}
}

func TestSwpbSwapsBytes(t *testing.T) {
	op1, imm1 := movImmToReg(0x1085, 5)
	op2 := uint16(0x1080) | 5 // swpb r5

	c := loadCPU(t, 0x1000, op1, imm1, op2)
	stepCPU(t, c, 2)

	expectReg(t, c, 5, 0x8510)
}

func TestPushDecrementsSPAndStores(t *testing.T) {
	op1, imm1 := movImmToReg(0x2000, cpu.SP) // mov #0x2000, sp
	op2, imm2 := movImmToReg(0x1234, 4)      // mov #0x1234, r4
	op3 := uint16(0x1200) | 4                // push r4

	c := loadCPU(t, 0x1000, op1, imm1, op2, imm2, op3)
	stepCPU(t, c, 3)

	expectReg(t, c, cpu.SP, 0x1FFE)
	expectMemWord(t, c, 0x1FFE, 0x1234)
}

func TestJumpOffsetArithmetic(t *testing.T) {
	// jmp 2 words forward: jump opcode 111, offset field encodes a
	// positive word-count added to the PC after fetch.
	jmp := uint16(0x3C00) | uint16(2&0x3FF) // JMP, offset=2 words

	c := loadCPU(t, 0x1000, jmp)
	stepCPU(t, c, 1)

	// PC after fetch is 0x1002; +2*2 = 0x1006
	expectPC(t, c, 0x1006)
}

func TestJumpBackwardOffsetIsNegative(t *testing.T) {
	offsetField := uint16(1024 - 2) // represents -2 words
	jmp := uint16(0x3C00) | offsetField

	c := loadCPU(t, 0x1000, jmp)
	stepCPU(t, c, 1)

	// PC after fetch is 0x1002; -2*2 = 0x0FFE
	expectPC(t, c, 0x0FFE)
}

func TestUnalignedPCIsFatal(t *testing.T) {
	mem := cpu.NewFlatMemory()
	c := cpu.NewCPU(mem)
	if err := c.SetPC(0x1001); err == nil {
		t.Error("expected SetPC to reject an odd address")
	}
}

func TestByteModeReadOfSRIsRejected(t *testing.T) {
	// mov.b sr, r5: As=0 (register direct) on R2/SR in byte mode must
	// fault the same way a byte-mode write to SR already does.
	word := uint16(0x4040) | uint16(cpu.SR)<<8 | 0<<4 | 5
	c := loadCPU(t, 0x1000, word)

	err := c.Step()
	if err == nil {
		t.Fatalf("expected byte-mode read of SR to fail")
	}
	var execErr *cpu.ExecutionError
	if ee, ok := err.(*cpu.ExecutionError); ok {
		execErr = ee
	}
	if execErr == nil || execErr.Code != cpu.ErrByteAccessOnSR {
		t.Fatalf("expected ErrByteAccessOnSR, got %v", err)
	}
}

func TestByteModeMovTakesFirstStoredByte(t *testing.T) {
	// mov.b #imm, r5 -- in byte mode the operand is loaded from the
	// extension word's first stored byte ($1256's $12), not its low
	// byte, reflecting the big-endian word layout's HILO immediate
	// quirk.
	op := uint16(0x4040) | uint16(cpu.PC)<<8 | 0x3<<4 | 5
	imm := uint16(0x1256)

	c := loadCPU(t, 0x1000, op, imm)
	stepCPU(t, c, 1)

	expectReg(t, c, 5, 0x0012)
}
