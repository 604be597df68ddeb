// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/msp430/cpu"
)

// Listing renders the three-section plain-text trace of spec §6.3:
// a sorted label table, a per-instruction code-with-bytes table (blank
// line at segment breaks), and a line-to-address map for top-level
// source lines.
func Listing(instrs []*Instruction, addrs []uint16, labels map[string]int) string {
	var b strings.Builder

	b.WriteString("|Labels|\n")
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "%s\t0x%04X\n", name, uint16(labels[name]))
	}

	b.WriteString("\n|Code|\n")
	for i, in := range instrs {
		switch in.Kind {
		case InstPadding:
			b.WriteString("\n")
			continue
		case InstListingComment:
			fmt.Fprintf(&b, ";!!%s\n", in.Text)
			continue
		case InstInterrupt:
			continue
		}

		words, err := in.compile(labels, addrs[i])
		if err != nil || len(words) == 0 {
			continue
		}
		src := formatInstructionSource(in)
		fmt.Fprintf(&b, "0x%04X\t%s\t%s\t%s\n", addrs[i], wordString(words), src, strings.Join(in.Labels, ","))
	}

	b.WriteString("\n|Line Map|\n")
	for i, in := range instrs {
		if in.Origin.origin.parent != 0 || in.Origin.origin.lineNo == 0 {
			continue
		}
		words, err := in.compile(labels, addrs[i])
		if err != nil || len(words) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%d\t0x%04X\t%s\n", in.Origin.origin.lineNo, addrs[i], wordString(words))
	}

	return b.String()
}

// formatInstructionSource renders an Instruction's canonical assembly
// text (mnemonic, mode suffix, operands), used as the listing's
// source column.
func formatInstructionSource(in *Instruction) string {
	suffix := ""
	if in.ByteMode {
		suffix = ".b"
	}

	switch in.Kind {
	case InstJump:
		return strings.ToLower(in.Name) + " " + renderJumpTarget(in.JumpTarget)
	case InstReti:
		return "reti"
	case InstSingle:
		return strings.ToLower(in.Name) + suffix + " " + renderOperand(in.Src)
	case InstDouble:
		return strings.ToLower(in.Name) + suffix + " " + renderOperand(in.Src) + "," + renderOperand(in.Dst)
	case InstCString8:
		return ".cstr8 \"" + in.Text + "\""
	default:
		return ""
	}
}

func renderJumpTarget(ref LabelReference) string {
	if ref.IsLabel {
		return ref.Name
	}
	return "0x" + strconv.FormatInt(int64(uint16(ref.Value)), 16)
}

func renderRef(ref LabelReference) string {
	if ref.IsLabel {
		return ref.Name
	}
	return strconv.Itoa(ref.Value)
}

func renderOperand(op Operand) string {
	switch op.Kind {
	case OperandRegDirect:
		return registerText(op.Reg)
	case OperandIndexed:
		return renderRef(op.Ref) + "(" + registerText(op.Reg) + ")"
	case OperandRegIndirect:
		return "@" + registerText(op.Reg)
	case OperandRegIndirectAuto:
		return "@" + registerText(op.Reg) + "+"
	case OperandSymbolic:
		return renderRef(op.Ref)
	case OperandAbsolute:
		return "&" + renderRef(op.Ref)
	case OperandImmediate:
		return "#" + renderRef(op.Ref)
	}
	return ""
}

func registerText(reg int) string {
	switch reg {
	case cpu.PC:
		return "pc"
	case cpu.SP:
		return "sp"
	case cpu.SR:
		return "sr"
	case cpu.CG:
		return "cg"
	default:
		return "r" + strconv.Itoa(reg)
	}
}
