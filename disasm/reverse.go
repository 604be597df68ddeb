// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm

import "regexp"

// reverseRule is one row of the emulated-instruction reverse table
// (spec §4.7, §9): a regex matched against a raw rendering, a
// replacement template expanded via Go's own $1/${name} backreference
// support, and an optional symmetry constraint for rewrites like RLA
// that require two operands to read identically (RE2 forbids
// backreferences within the pattern itself, so the equality is checked
// after the match rather than inside it).
type reverseRule struct {
	re        *regexp.Regexp
	template  string
	symmetric bool // if true, submatch groups 2 and 3 must be equal
}

// reverseTable is generated once from the emulated-instruction table in
// asm/instruction.go: each entry is the inverse of one emulatedDefs
// build rule.
var reverseTable = []reverseRule{
	{regexp.MustCompile(`^ADDC(\.b)? #0,(.+)$`), "ADC$1 $2", false},
	{regexp.MustCompile(`^DADD(\.b)? #0,(.+)$`), "DADC$1 $2", false},
	{regexp.MustCompile(`^SUBC(\.b)? #0,(.+)$`), "SBC$1 $2", false},
	{regexp.MustCompile(`^SUB(\.b)? #1,(.+)$`), "DEC$1 $2", false},
	{regexp.MustCompile(`^SUB(\.b)? #2,(.+)$`), "DECD$1 $2", false},
	{regexp.MustCompile(`^ADD(\.b)? #1,(.+)$`), "INC$1 $2", false},
	{regexp.MustCompile(`^ADD(\.b)? #2,(.+)$`), "INCD$1 $2", false},
	{regexp.MustCompile(`^XOR(\.b)? #-1,(.+)$`), "INV$1 $2", false},
	{regexp.MustCompile(`^ADD(\.b)? (.+),(.+)$`), "RLA$1 $2", true},
	{regexp.MustCompile(`^ADDC(\.b)? (.+),(.+)$`), "RLC$1 $2", true},
	{regexp.MustCompile(`^MOV(\.b)? #0,(.+)$`), "CLR$1 $2", false},
	{regexp.MustCompile(`^CMP(\.b)? #0,(.+)$`), "TST$1 $2", false},
	{regexp.MustCompile(`^MOV(\.b)? (.+),pc$`), "BR$1 $2", false},
	{regexp.MustCompile(`^MOV(\.b)? @sp\+,(.+)$`), "POP$1 $2", false},
	{regexp.MustCompile(`^MOV @sp\+,pc$`), "RET", false},
	{regexp.MustCompile(`^MOV #0,cg$`), "NOP", false},
	{regexp.MustCompile(`^BIC #1,sr$`), "CLRC", false},
	{regexp.MustCompile(`^BIC #2,sr$`), "CLRZ", false},
	{regexp.MustCompile(`^BIC #4,sr$`), "CLRN", false},
	{regexp.MustCompile(`^BIC #8,sr$`), "DINT", false},
	{regexp.MustCompile(`^BIS #1,sr$`), "SETC", false},
	{regexp.MustCompile(`^BIS #2,sr$`), "SETZ", false},
	{regexp.MustCompile(`^BIS #4,sr$`), "SETN", false},
	{regexp.MustCompile(`^BIS #8,sr$`), "EINT", false},
	{regexp.MustCompile(`^JMP 0x0$`), "HCF", false},
}

// reverseRewrite applies every applicable rule in the reverse table and
// keeps the shortest resulting rendering, preferring the original line
// when no rule applies or none produces anything shorter (spec §4.7).
func reverseRewrite(line string) string {
	best := line
	for _, rule := range reverseTable {
		m := rule.re.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		if rule.symmetric && submatch(line, m, 2) != submatch(line, m, 3) {
			continue
		}
		candidate := string(rule.re.ExpandString(nil, rule.template, line, m))
		if len(candidate) < len(best) {
			best = candidate
		}
	}
	return best
}

// submatch returns the text of numbered capture group 'n' from a
// FindStringSubmatchIndex result, or "" if that group did not
// participate in the match.
func submatch(line string, m []int, n int) string {
	if 2*n+1 >= len(m) || m[2*n] < 0 {
		return ""
	}
	return line[m[2*n]:m[2*n+1]]
}
