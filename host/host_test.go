// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"bytes"
	"strings"
	"testing"
)

// run feeds a sequence of commands to a fresh Host non-interactively
// and returns everything written to its output.
func run(t *testing.T, commands ...string) string {
	t.Helper()
	h := New()
	var out bytes.Buffer
	h.RunCommands(strings.NewReader(strings.Join(commands, "\n")), &out, false)
	return out.String()
}

func TestRegisterNameParsesAliasesAndIndices(t *testing.T) {
	cases := []struct {
		key  string
		want int
		ok   bool
	}{
		{".", 0, true},
		{"pc", 0, true},
		{"sp", 1, true},
		{"sr", 2, true},
		{"cg", 3, true},
		{"r0", 0, true},
		{"r15", 15, true},
		{"r16", 0, false},
		{"rx", 0, false},
		{"bogus", 0, false},
	}
	for _, c := range cases {
		got, ok := registerName(c.key)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("registerName(%q) = (%d, %v), want (%d, %v)", c.key, got, ok, c.want, c.ok)
		}
	}
}

func TestCodeStringFormatsArbitraryLengths(t *testing.T) {
	cases := []struct {
		in   []byte
		want string
	}{
		{nil, ""},
		{[]byte{0x12}, "12"},
		{[]byte{0x12, 0x34}, "12 34"},
		{[]byte{0x12, 0x34, 0x56, 0x78}, "12 34 56 78"},
	}
	for _, c := range cases {
		if got := codeString(c.in); got != c.want {
			t.Errorf("codeString(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSetRegisterByName(t *testing.T) {
	out := run(t, "set r4 0x1234", "registers")
	if !strings.Contains(out, "r4 =1234") {
		t.Errorf("expected r4 =1234 in output, got:\n%s", out)
	}
}

func TestSetRegisterRejectsOutOfRange(t *testing.T) {
	out := run(t, "set r20 5")
	if !strings.Contains(out, "not found") {
		t.Errorf("expected an error for an out-of-range register, got:\n%s", out)
	}
}

func TestMemorySetAndDump(t *testing.T) {
	out := run(t, "memory set 0x2000 0xAA 0xBB 0xCC", "memory dump 0x2000 3")
	if !strings.Contains(out, "AA") || !strings.Contains(out, "BB") || !strings.Contains(out, "CC") {
		t.Errorf("expected dumped bytes in output, got:\n%s", out)
	}
}

func TestBreakpointAddListRemove(t *testing.T) {
	out := run(t, "breakpoint add 0x1000", "breakpoint list", "breakpoint remove 0x1000", "breakpoint list")
	if strings.Count(out, "0x1000") < 2 {
		t.Errorf("expected breakpoint address to appear before removal, got:\n%s", out)
	}
}

func TestDataBreakpointConditionalAdd(t *testing.T) {
	out := run(t, "databreakpoint add 0x2000 0x05", "databreakpoint list")
	if !strings.Contains(out, "0x05") {
		t.Errorf("expected the conditional value in the listing, got:\n%s", out)
	}
}

func TestEvaluateArithmeticOnRegister(t *testing.T) {
	out := run(t, "set pc 0x1000", "evaluate pc+4")
	if !strings.Contains(out, "0x1004") {
		t.Errorf("expected evaluate to add 4 to pc, got:\n%s", out)
	}
}

func TestAnnotateAppearsInDisassembly(t *testing.T) {
	out := run(t, "annotate 0x1000 entry point", "disassemble 0x1000 1")
	if !strings.Contains(out, "entry point") {
		t.Errorf("expected annotation to appear in disassembly, got:\n%s", out)
	}
}

func TestUnknownCommandReportsError(t *testing.T) {
	out := run(t, "boguscommand")
	if !strings.Contains(out, "Command not found") {
		t.Errorf("expected a not-found message, got:\n%s", out)
	}
}

func TestSetSilentToggle(t *testing.T) {
	out := run(t, "set silent false")
	if !strings.Contains(out, "Setting updated") {
		t.Errorf("expected setting update confirmation, got:\n%s", out)
	}
}
