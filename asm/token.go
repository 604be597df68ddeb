// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenKind identifies a Token's variant within the tokenizer's closed
// token set (spec §3).
type TokenKind int

const (
	TokLineStart TokenKind = iota
	TokDbgBreak
	TokListingComment
	TokLabel
	TokLabelVal
	TokMnemonic
	TokModeIndicator
	TokValue
	TokArgRegDirect
	TokArgIndexed
	TokArgRegIndirect
	TokArgRegIndirectAuto
	TokArgSymbolic
	TokArgImmediate
	TokArgAbsolute
	TokDataMode
	TokCString8Data
	TokInterrupt
)

// Token is a single element of the tokenizer's output stream. Only the
// fields relevant to Kind are meaningful; this is a tagged variant
// (spec §9) realized as a struct with a discriminant rather than an
// inheritance hierarchy.
type Token struct {
	Kind   TokenKind
	Text   string // Label/LabelVal/Mnemonic/ListingComment/CString8Data payload
	Value  int    // Value(int), ModeIndicator byte-flag, Interrupt vector
	Origin origin
}

var jumpMnemonics = map[string]bool{
	"jmp": true, "jne": true, "jnz": true, "jeq": true, "jz": true,
	"jnc": true, "jlo": true, "jc": true, "jhs": true, "jn": true,
	"jge": true, "jl": true,
}

var registerAliases = map[string]int{
	"pc": 0, "sp": 1, "sr": 2, "cg": 3,
}

// tokenizer runs the single left-to-right pass of spec §4.3 over a
// preprocessed Line list, producing a flat Token stream.
type tokenizer struct {
	diags []*Diagnostic
	files []string

	dataMode    bool
	prefixStack []string
	prefixGen   int

	text []Token
	data []Token
}

func newTokenizer(files []string) *tokenizer {
	t := &tokenizer{files: files}
	t.prefixStack = []string{t.newPrefix()}
	return t
}

func (t *tokenizer) newPrefix() string {
	t.prefixGen++
	return "$" + strconv.Itoa(t.prefixGen) + "$"
}

func (t *tokenizer) currentPrefix() string {
	return t.prefixStack[len(t.prefixStack)-1]
}

func (t *tokenizer) addDiag(o origin, format string, args ...any) {
	file := ""
	if o.fileIndex >= 0 && o.fileIndex < len(t.files) {
		file = t.files[o.fileIndex]
	}
	t.diags = append(t.diags, &Diagnostic{File: file, Line: o.lineNo, Msg: fmt.Sprintf(format, args...)})
}

func (t *tokenizer) emit(tok Token) {
	if t.dataMode {
		t.data = append(t.data, tok)
	} else {
		t.text = append(t.text, tok)
	}
}

// Tokenize runs the full tokenizer pass and returns the combined token
// stream (data-mode tokens appended after text-mode tokens, preceded by
// a DbgBreak/DataMode marker pair, with consecutive duplicate LineStart
// tokens collapsed).
func (t *tokenizer) Tokenize(lines []Line) []Token {
	for _, l := range lines {
		t.tokenizeLine(l)
	}

	out := t.text
	if len(t.data) > 0 {
		out = append(out, Token{Kind: TokDbgBreak}, Token{Kind: TokDataMode})
		out = append(out, t.data...)
	}
	return collapseLineStarts(out)
}

func collapseLineStarts(toks []Token) []Token {
	out := make([]Token, 0, len(toks))
	for i, tok := range toks {
		if tok.Kind == TokLineStart && i > 0 && toks[i-1].Kind == TokLineStart {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func (t *tokenizer) tokenizeLine(l Line) {
	t.emit(Token{Kind: TokLineStart, Origin: l.origin})

	line := stripComment(l.text)
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == "":
		return

	case strings.HasPrefix(strings.TrimSpace(l.text), ";!!"):
		msg := strings.TrimPrefix(strings.TrimSpace(l.text), ";!!")
		t.emit(Token{Kind: TokListingComment, Text: msg, Origin: l.origin})
		return

	case trimmed == ".dbgbrk":
		t.emit(Token{Kind: TokDbgBreak, Origin: l.origin})
		return

	case trimmed == ".data":
		if t.dataMode {
			t.addDiag(l.origin, "already in .data mode")
		}
		t.dataMode = true
		return

	case trimmed == ".text":
		if !t.dataMode {
			t.addDiag(l.origin, "already in .text mode")
		}
		t.dataMode = false
		return

	case trimmed == ".locblk":
		t.prefixStack = []string{t.newPrefix()}
		return

	case trimmed == ".push_locblk":
		t.prefixStack = append(t.prefixStack, t.newPrefix())
		return

	case trimmed == ".pop_locblk":
		if len(t.prefixStack) <= 1 {
			t.prefixStack = []string{t.newPrefix()}
		} else {
			t.prefixStack = t.prefixStack[:len(t.prefixStack)-1]
		}
		return
	}

	if idx := findLabelColon(trimmed); idx >= 0 {
		labelText := trimmed[:idx]
		rest := strings.TrimSpace(trimmed[idx+1:])
		if !validLabel(labelText) {
			t.addDiag(l.origin, "invalid label '%s'", labelText)
			return
		}
		t.emit(Token{Kind: TokLabel, Text: t.mangle(labelText), Origin: l.origin})
		if rest == "" {
			return
		}
		trimmed = rest
	}

	if t.dataMode && strings.HasPrefix(trimmed, ".cstr8") {
		text := strings.TrimSpace(strings.TrimPrefix(trimmed, ".cstr8"))
		text = unquote(text)
		t.emit(Token{Kind: TokCString8Data, Text: text, Origin: l.origin})
		return
	}

	if strings.HasPrefix(trimmed, ".interrupt") {
		fields := strings.Fields(strings.TrimPrefix(trimmed, ".interrupt"))
		if len(fields) != 2 {
			t.addDiag(l.origin, "malformed .interrupt directive")
			return
		}
		vec, err := parseIntLiteral(fields[0])
		if err != nil {
			t.addDiag(l.origin, "invalid interrupt vector '%s'", fields[0])
			return
		}
		t.emit(Token{Kind: TokInterrupt, Value: vec, Origin: l.origin})
		t.emit(Token{Kind: TokLabelVal, Text: t.mangle(fields[1]), Origin: l.origin})
		return
	}

	t.tokenizeInstruction(trimmed, l.origin)
}

func (t *tokenizer) tokenizeInstruction(trimmed string, o origin) {
	fields := splitInstructionFields(trimmed)
	if len(fields) == 0 {
		return
	}

	mnemField := fields[0]
	name := mnemField
	byteMode, hasMode := false, false
	if dot := strings.LastIndex(mnemField, "."); dot >= 0 {
		suffix := strings.ToLower(mnemField[dot+1:])
		if suffix == "b" || suffix == "w" {
			name = mnemField[:dot]
			byteMode = suffix == "b"
			hasMode = true
		}
	}
	lname := strings.ToLower(name)

	t.emit(Token{Kind: TokMnemonic, Text: lname, Origin: o})
	if hasMode {
		v := 0
		if byteMode {
			v = 1
		}
		t.emit(Token{Kind: TokModeIndicator, Value: v, Origin: o})
	}

	args := fields[1:]

	if jumpMnemonics[lname] {
		if len(args) != 1 {
			t.addDiag(o, "jump instruction '%s' requires one argument", lname)
			return
		}
		t.tokenizeJumpArg(args[0], o)
		return
	}

	for _, a := range args {
		t.tokenizeArg(a, o)
	}
}

func (t *tokenizer) tokenizeJumpArg(arg string, o origin) {
	arg = strings.TrimSpace(arg)
	if v, err := parseIntLiteral(arg); err == nil {
		t.emit(Token{Kind: TokValue, Value: v, Origin: o})
		return
	}
	t.emit(Token{Kind: TokLabelVal, Text: t.mangle(arg), Origin: o})
}

// tokenizeArg implements the argument parser of spec §4.3.
func (t *tokenizer) tokenizeArg(arg string, o origin) {
	arg = strings.TrimSpace(arg)

	if reg, ok := parseRegisterName(arg); ok {
		t.emit(Token{Kind: TokArgRegDirect, Origin: o})
		t.emit(Token{Kind: TokValue, Value: reg, Origin: o})
		return
	}

	if strings.HasPrefix(arg, "@") {
		body := arg[1:]
		auto := strings.HasSuffix(body, "+")
		body = strings.TrimSuffix(body, "+")
		reg, ok := parseRegisterName(body)
		if !ok {
			t.addDiag(o, "invalid indirect register '%s'", arg)
			return
		}
		kind := TokArgRegIndirect
		if auto {
			kind = TokArgRegIndirectAuto
		}
		t.emit(Token{Kind: kind, Origin: o})
		t.emit(Token{Kind: TokValue, Value: reg, Origin: o})
		return
	}

	if strings.HasPrefix(arg, "#") {
		body := arg[1:]
		if v, err := parseIntLiteral(body); err == nil {
			t.emit(Token{Kind: TokArgImmediate, Origin: o})
			t.emit(Token{Kind: TokValue, Value: v, Origin: o})
			return
		}
		t.emit(Token{Kind: TokArgImmediate, Origin: o})
		t.emit(Token{Kind: TokLabelVal, Text: t.mangle(body), Origin: o})
		return
	}

	if strings.HasPrefix(arg, "&") {
		body := arg[1:]
		if v, err := parseIntLiteral(body); err == nil {
			t.emit(Token{Kind: TokArgAbsolute, Origin: o})
			t.emit(Token{Kind: TokValue, Value: v, Origin: o})
			return
		}
		t.emit(Token{Kind: TokArgAbsolute, Origin: o})
		t.emit(Token{Kind: TokLabelVal, Text: t.mangle(body), Origin: o})
		return
	}

	if open := strings.IndexByte(arg, '('); open >= 0 && strings.HasSuffix(arg, ")") {
		base := arg[:open]
		regText := arg[open+1 : len(arg)-1]
		reg, ok := parseRegisterName(regText)
		if !ok {
			t.addDiag(o, "invalid indexed register '%s'", arg)
			return
		}
		t.emit(Token{Kind: TokArgIndexed, Origin: o})
		if v, err := parseIntLiteral(base); err == nil {
			t.emit(Token{Kind: TokValue, Value: v, Origin: o})
		} else {
			t.emit(Token{Kind: TokLabelVal, Text: t.mangle(base), Origin: o})
		}
		t.emit(Token{Kind: TokValue, Value: reg, Origin: o})
		return
	}

	if v, err := parseIntLiteral(arg); err == nil {
		t.emit(Token{Kind: TokArgSymbolic, Origin: o})
		t.emit(Token{Kind: TokValue, Value: v, Origin: o})
		return
	}

	if validLabel(arg) {
		t.emit(Token{Kind: TokArgSymbolic, Origin: o})
		t.emit(Token{Kind: TokLabelVal, Text: t.mangle(arg), Origin: o})
		return
	}

	t.addDiag(o, "malformed operand '%s'", arg)
}

// mangle rewrites a $-prefixed label reference with the current local
// block prefix, per spec §4.3's final bullet.
func (t *tokenizer) mangle(name string) string {
	if strings.HasPrefix(name, "$") {
		return t.currentPrefix() + name
	}
	return name
}

func parseRegisterName(s string) (int, bool) {
	ls := strings.ToLower(s)
	if n, ok := registerAliases[ls]; ok {
		return n, true
	}
	if len(ls) >= 2 && ls[0] == 'r' {
		if n, err := strconv.Atoi(ls[1:]); err == nil && n >= 0 && n <= 15 {
			return n, true
		}
	}
	return 0, false
}

func parseIntLiteral(s string) (int, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	var v int64
	var err error
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		v, err = strconv.ParseInt(s[2:], 16, 32)
	case strings.HasPrefix(s, "$"):
		v, err = strconv.ParseInt(s[1:], 16, 32)
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		v, err = strconv.ParseInt(s[2:], 2, 32)
	default:
		v, err = strconv.ParseInt(s, 10, 32)
	}
	if err != nil {
		return 0, err
	}
	if neg {
		v = -v
	}
	return int(v), nil
}

func validLabel(s string) bool {
	if s == "" || !labelStartChar(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !labelChar(s[i]) {
			return false
		}
	}
	return true
}

func findLabelColon(s string) int {
	quote := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			continue
		}
		if c == ':' {
			return i
		}
	}
	return -1
}

func stripComment(s string) string {
	quote := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			continue
		}
		if c == ';' {
			if strings.HasPrefix(s[i:], ";!!") {
				return s // preserve ;!! listing-comment lines whole
			}
			return s[:i]
		}
	}
	return s
}

func splitInstructionFields(s string) []string {
	s = strings.ReplaceAll(s, ",", " ")
	return strings.Fields(s)
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
