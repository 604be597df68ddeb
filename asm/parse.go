// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strings"

	"github.com/beevik/msp430/cpu"
)

// parser is the stream automaton of spec §4.4: it consumes the flat
// Token list produced by the tokenizer and emits an Instruction list,
// resynchronizing at the next LineStart whenever a line fails to
// parse.
type parser struct {
	files []string
	diags []*Diagnostic

	tokens []Token
	pos    int

	curOrigin     origin
	pendingLabels []string
	dataMode      bool

	out []*Instruction
}

func newParser(files []string) *parser {
	return &parser{files: files}
}

func (p *parser) addDiag(format string, args ...any) {
	p.diags = append(p.diags, &Diagnostic{
		File: p.fileName(p.curOrigin.fileIndex),
		Line: p.curOrigin.lineNo,
		Msg:  fmt.Sprintf(format, args...),
	})
}

func (p *parser) fileName(idx int) string {
	if idx >= 0 && idx < len(p.files) {
		return p.files[idx]
	}
	return ""
}

// Parse runs the automaton over tokens and returns the instruction
// list (diagnostics are collected on p.diags).
func (p *parser) Parse(tokens []Token) []*Instruction {
	p.tokens = tokens
	p.pos = 0

	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		switch tok.Kind {
		case TokLineStart:
			p.curOrigin = tok.Origin
			p.pos++

		case TokLabel:
			p.pendingLabels = append(p.pendingLabels, tok.Text)
			p.pos++

		case TokDbgBreak:
			p.emit(&Instruction{Kind: InstPadding})
			p.pos++

		case TokListingComment:
			p.emit(&Instruction{Kind: InstListingComment, Text: tok.Text})
			p.pos++

		case TokDataMode:
			p.dataMode = true
			p.pos++

		case TokInterrupt:
			p.parseInterrupt(tok)

		case TokCString8Data:
			p.parseCString8(tok)

		case TokMnemonic:
			p.parseMnemonic(tok)

		default:
			p.addDiag("unexpected token")
			p.resync()
		}
	}

	return p.out
}

func (p *parser) parseInterrupt(tok Token) {
	p.pos++
	if p.pos >= len(p.tokens) || p.tokens[p.pos].Kind != TokLabelVal {
		p.addDiag("'.interrupt' requires a target label")
		p.resync()
		return
	}
	target := p.tokens[p.pos].Text
	p.pos++
	p.emit(&Instruction{Kind: InstInterrupt, Vector: tok.Value, Target: labelRef(target)})
}

func (p *parser) parseCString8(tok Token) {
	p.pos++
	for _, r := range tok.Text {
		if r > 0xFF {
			p.addDiag("character out of 8-bit range in .cstr8")
			p.resync()
			return
		}
	}
	p.emit(&Instruction{Kind: InstCString8, Text: tok.Text})
}

func (p *parser) parseMnemonic(tok Token) {
	name := tok.Text
	p.pos++

	byteMode, hasMode := false, false
	if p.pos < len(p.tokens) && p.tokens[p.pos].Kind == TokModeIndicator {
		byteMode = p.tokens[p.pos].Value == 1
		hasMode = true
		p.pos++
	}

	upper := strings.ToUpper(name)

	if jumpMnemonics[name] {
		if hasMode {
			p.addDiag("byte mode not supported for jump instructions")
			p.resync()
			return
		}
		ref, err := p.consumeValueOrLabel()
		if err != nil {
			p.addDiag("%s", err)
			p.resync()
			return
		}
		def := cpu.Instructions().Lookup(upper)
		p.emit(&Instruction{Kind: InstJump, Name: def.Name(), Bits: def.Bits(), JumpTarget: ref})
		return
	}

	if upper == "RETI" {
		p.emit(&Instruction{Kind: InstReti, Name: "RETI"})
		return
	}

	if edef, ok := lookupEmulated(name); ok {
		p.parseEmulated(edef, byteMode, hasMode)
		return
	}

	def := cpu.Instructions().Lookup(upper)
	if def == nil {
		p.addDiag("unknown mnemonic '%s'", name)
		p.resync()
		return
	}
	if hasMode && !def.ByteModeOK() {
		p.addDiag("%s does not support byte mode", def.Name())
		p.resync()
		return
	}

	switch def.Class() {
	case cpu.ClassSingle:
		src, err := p.parseOperandArg()
		if err != nil {
			p.addDiag("%s", err)
			p.resync()
			return
		}
		p.emit(&Instruction{Kind: InstSingle, Name: def.Name(), Bits: def.Bits(), ByteMode: byteMode, Src: src})

	case cpu.ClassDouble:
		src, err := p.parseOperandArg()
		if err != nil {
			p.addDiag("%s", err)
			p.resync()
			return
		}
		dst, err := p.parseOperandArg()
		if err != nil {
			p.addDiag("%s", err)
			p.resync()
			return
		}
		p.emit(&Instruction{Kind: InstDouble, Name: def.Name(), Bits: def.Bits(), ByteMode: byteMode, Src: src, Dst: dst})

	default:
		p.addDiag("'%s' must be written with the jump mnemonic form", name)
		p.resync()
	}
}

// parseEmulated handles a pseudo-mnemonic: it parses the (optional)
// single argument, synthesizes the real instruction and operands from
// the rewrite table (spec §6.2), and emits the real instruction with
// the real instruction's canonical mnemonic as Name, so the listing
// shows the expansion.
func (p *parser) parseEmulated(edef emulatedDef, byteMode, hasMode bool) {
	if hasMode && !edef.byteModeOK {
		p.addDiag("%s does not support byte mode", edef.name)
		p.resync()
		return
	}

	var arg Operand
	if edef.hasArg {
		var err error
		arg, err = p.parseOperandArg()
		if err != nil {
			p.addDiag("%s", err)
			p.resync()
			return
		}
	}

	target, src, dst, isJump, jumpTarget := edef.build(arg)

	if isJump {
		def := cpu.Instructions().Lookup(target)
		p.emit(&Instruction{Kind: InstJump, Name: def.Name(), Bits: def.Bits(), JumpTarget: jumpTarget})
		return
	}

	def := cpu.Instructions().Lookup(target)
	switch def.Class() {
	case cpu.ClassSingle:
		p.emit(&Instruction{Kind: InstSingle, Name: def.Name(), Bits: def.Bits(), ByteMode: byteMode, Src: src})
	default:
		p.emit(&Instruction{Kind: InstDouble, Name: def.Name(), Bits: def.Bits(), ByteMode: byteMode, Src: src, Dst: dst})
	}
}

// parseOperandArg consumes one argument-marker token and its following
// value(s), returning the built Operand.
func (p *parser) parseOperandArg() (Operand, error) {
	if p.pos >= len(p.tokens) {
		return Operand{}, fmt.Errorf("expected operand")
	}
	marker := p.tokens[p.pos].Kind
	switch marker {
	case TokArgRegDirect, TokArgIndexed, TokArgRegIndirect, TokArgRegIndirectAuto,
		TokArgSymbolic, TokArgImmediate, TokArgAbsolute:
		p.pos++
		return p.parseOperand(marker)
	default:
		return Operand{}, fmt.Errorf("expected operand")
	}
}

func (p *parser) parseOperand(marker TokenKind) (Operand, error) {
	switch marker {
	case TokArgRegDirect:
		reg, err := p.consumeValue()
		return Operand{Kind: OperandRegDirect, Reg: reg}, err

	case TokArgIndexed:
		ref, err := p.consumeValueOrLabel()
		if err != nil {
			return Operand{}, err
		}
		reg, err := p.consumeValue()
		return Operand{Kind: OperandIndexed, Reg: reg, Ref: ref}, err

	case TokArgRegIndirect:
		reg, err := p.consumeValue()
		return Operand{Kind: OperandRegIndirect, Reg: reg}, err

	case TokArgRegIndirectAuto:
		reg, err := p.consumeValue()
		return Operand{Kind: OperandRegIndirectAuto, Reg: reg}, err

	case TokArgSymbolic:
		ref, err := p.consumeValueOrLabel()
		return Operand{Kind: OperandSymbolic, Ref: ref}, err

	case TokArgImmediate:
		ref, err := p.consumeValueOrLabel()
		return Operand{Kind: OperandImmediate, Ref: ref}, err

	case TokArgAbsolute:
		ref, err := p.consumeValueOrLabel()
		return Operand{Kind: OperandAbsolute, Ref: ref}, err
	}
	return Operand{}, fmt.Errorf("unrecognized operand marker")
}

func (p *parser) consumeValue() (int, error) {
	if p.pos >= len(p.tokens) || p.tokens[p.pos].Kind != TokValue {
		return 0, fmt.Errorf("malformed operand")
	}
	v := p.tokens[p.pos].Value
	p.pos++
	return v, nil
}

func (p *parser) consumeValueOrLabel() (LabelReference, error) {
	if p.pos >= len(p.tokens) {
		return LabelReference{}, fmt.Errorf("malformed operand")
	}
	tok := p.tokens[p.pos]
	switch tok.Kind {
	case TokValue:
		p.pos++
		return litRef(tok.Value), nil
	case TokLabelVal:
		p.pos++
		return labelRef(tok.Text), nil
	default:
		return LabelReference{}, fmt.Errorf("malformed operand")
	}
}

// resync skips to the next LineStart token, per spec §7's
// resynchronizing recovery policy.
func (p *parser) resync() {
	for p.pos < len(p.tokens) && p.tokens[p.pos].Kind != TokLineStart {
		p.pos++
	}
}

func (p *parser) emit(in *Instruction) {
	in.Origin = Line{origin: p.curOrigin}
	in.File = p.fileName(p.curOrigin.fileIndex)
	in.Labels = p.pendingLabels
	p.pendingLabels = nil
	p.out = append(p.out, in)
}
