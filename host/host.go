// Copyright 2018 Brett Vickers.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host implements an interactive command console for the
// MSP430 emulator: a 64 KiB memory, a CPU core, a built-in assembler,
// and a debugger with address and data breakpoints.
//
// Within the host it is possible to assemble and load machine code
// into memory, step through and run code, set address and data
// breakpoints, dump and edit memory, disassemble code, manipulate CPU
// registers, and evaluate arbitrary expressions.
package host

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/beevik/cmd"
	"github.com/beevik/msp430/asm"
	"github.com/beevik/msp430/cpu"
	"github.com/beevik/msp430/disasm"
)

type displayFlags uint8

const (
	displayRegisters displayFlags = 1 << iota
	displaySteps
	displayAnnotations

	displayAll = displayRegisters | displaySteps | displayAnnotations
)

type state byte

const (
	stateProcessingCommands state = iota
	stateRunning
	stateBreakpoint
	stateStepOverBreakpoint
)

// A Host represents a fully emulated MSP430 system: 64 KiB of memory,
// a built-in assembler, a built-in debugger, and other useful tools.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	mem         *cpu.FlatMemory
	cpu         *cpu.CPU
	debugger    *cpu.Debugger
	lastCmd     *cmd.Selection
	state       state
	exprParser  *exprParser
	labels      map[string]int
	settings    *settings
	annotations map[uint16]string
}

// New creates a new MSP430 host environment.
func New() *Host {
	h := &Host{
		state:       stateProcessingCommands,
		exprParser:  newExprParser(),
		settings:    newSettings(),
		annotations: make(map[uint16]string),
	}

	h.mem = cpu.NewFlatMemory()
	h.cpu = cpu.NewCPU(h.mem)
	h.cpu.Config.Silent = true

	h.debugger = cpu.NewDebugger(newDebugHandler(h))
	h.cpu.AttachDebugger(h.debugger)

	return h
}

// RunCommands accepts host commands from a reader and writes the
// results to a writer. If the commands are interactive, a prompt is
// displayed while the host waits for the next command.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	h.input = bufio.NewScanner(r)
	h.output = bufio.NewWriter(w)
	h.interactive = interactive

	if interactive {
		h.println()
	}

	h.displayPC()

	for {
		h.prompt()

		line, err := h.getLine()
		if err != nil {
			break
		}

		var c cmd.Selection
		if line != "" {
			c, err = cmds.Lookup(line)
			switch {
			case err == cmd.ErrNotFound:
				h.println("Command not found.")
				continue
			case err == cmd.ErrAmbiguous:
				h.println("Command is ambiguous.")
				continue
			case err != nil:
				h.printf("ERROR: %v.\n", err)
				continue
			}
		} else if h.lastCmd != nil {
			c = *h.lastCmd
		}

		if c.Command == nil {
			continue
		}
		h.lastCmd = &c

		handler := c.Command.Data.(func(*Host, cmd.Selection) error)
		err = handler(h, c)
		if err != nil {
			break
		}
	}
}

// Break interrupts a running CPU.
func (h *Host) Break() {
	h.println()

	if h.state == stateRunning {
		h.displayPC()
	}
	if h.state == stateProcessingCommands {
		h.prompt()
	}
	h.state = stateProcessingCommands
}

func (h *Host) Write(p []byte) (n int, err error) {
	return h.output.Write(p)
}

func (h *Host) print(args ...interface{}) {
	fmt.Fprint(h.output, args...)
}

func (h *Host) printf(format string, args ...interface{}) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...interface{}) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return h.input.Text(), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.printf("* ")
		h.flush()
	}
}

func (h *Host) displayPC() {
	if h.interactive {
		d, _ := h.disassemble(h.cpu.Reg.R[cpu.PC], displayAll)
		h.println(d)
	}
}

func (h *Host) cmdAnnotate(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	var annotation string
	if len(c.Args) >= 2 {
		annotation = strings.Join(c.Args[1:], " ")
	}

	if annotation == "" {
		delete(h.annotations, addr)
		h.printf("Annotation removed at 0x%04X.\n", addr)
	} else {
		h.annotations[addr] = annotation
		h.printf("Annotation added at 0x%04X.\n", addr)
	}

	return nil
}

func (h *Host) cmdAssemble(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	filename := c.Args[0]
	if filepath.Ext(filename) == "" {
		filename += ".s"
	}

	file, err := os.Open(filename)
	if err != nil {
		h.printf("Failed to open '%s': %v\n", filepath.Base(filename), err)
		return nil
	}
	defer file.Close()

	assembly, err := asm.Assemble(file, filepath.Base(filename), asm.DefaultOrigin, h, 0)
	if err != nil {
		h.printf("Failed to assemble '%s': %v\n", filepath.Base(filename), err)
		return nil
	}
	if len(assembly.Diagnostics) > 0 || len(assembly.Errors) > 0 {
		h.printf("Failed to assemble '%s':\n", filepath.Base(filename))
		for _, d := range assembly.Diagnostics {
			h.println(d.Error())
		}
		for _, e := range assembly.Errors {
			h.println(e.Error())
		}
		return nil
	}

	ext := filepath.Ext(filename)
	prefix := filename[:len(filename)-len(ext)]

	if out, err := os.OpenFile(prefix+".bin", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600); err == nil {
		assembly.WriteTo(out)
		out.Close()
	}
	if out, err := os.OpenFile(prefix+".lst", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600); err == nil {
		out.WriteString(assembly.Listing)
		out.Close()
	}

	h.loadAssembly(assembly)
	h.printf("Assembled '%s' and loaded the result.\n", filepath.Base(filename))
	return nil
}

func (h *Host) cmdBreakpointList(c cmd.Selection) error {
	h.println("Addr   Enabled")
	h.println("------ -------")
	for _, b := range h.debugger.GetBreakpoints() {
		h.printf("0x%04X %v\n", b.Address, !b.Disabled)
	}
	return nil
}

func (h *Host) cmdBreakpointAdd(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.debugger.AddBreakpoint(addr)
	h.printf("Breakpoint added at 0x%04X.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointRemove(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	if h.debugger.GetBreakpoint(addr) == nil {
		h.printf("No breakpoint was set on 0x%04X.\n", addr)
		return nil
	}

	h.debugger.RemoveBreakpoint(addr)
	h.printf("Breakpoint at 0x%04X removed.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointEnable(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := h.debugger.GetBreakpoint(addr)
	if b == nil {
		h.printf("No breakpoint was set on 0x%04X.\n", addr)
		return nil
	}

	b.Disabled = false
	h.printf("Breakpoint at 0x%04X enabled.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointDisable(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := h.debugger.GetBreakpoint(addr)
	if b == nil {
		h.printf("No breakpoint was set on 0x%04X.\n", addr)
		return nil
	}

	b.Disabled = true
	h.printf("Breakpoint at 0x%04X disabled.\n", addr)
	return nil
}

func (h *Host) cmdDataBreakpointList(c cmd.Selection) error {
	h.println("Addr   Enabled  Value")
	h.println("------ -------  -----")
	for _, b := range h.debugger.GetDataBreakpoints() {
		if b.Conditional {
			h.printf("0x%04X %-5v    0x%02X\n", b.Address, !b.Disabled, b.Value)
		} else {
			h.printf("0x%04X %-5v    <none>\n", b.Address, !b.Disabled)
		}
	}
	return nil
}

func (h *Host) cmdDataBreakpointAdd(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	if len(c.Args) > 1 {
		value, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.debugger.AddConditionalDataBreakpoint(addr, byte(value))
		h.printf("Conditional data breakpoint added at 0x%04X for value 0x%02X.\n", addr, value)
	} else {
		h.debugger.AddDataBreakpoint(addr)
		h.printf("Data breakpoint added at 0x%04X.\n", addr)
	}

	return nil
}

func (h *Host) cmdDataBreakpointRemove(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	if h.debugger.GetDataBreakpoint(addr) == nil {
		h.printf("No data breakpoint was set on 0x%04X.\n", addr)
		return nil
	}

	h.debugger.RemoveDataBreakpoint(addr)
	h.printf("Data breakpoint at 0x%04X removed.\n", addr)
	return nil
}

func (h *Host) cmdDataBreakpointEnable(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := h.debugger.GetDataBreakpoint(addr)
	if b == nil {
		h.printf("No data breakpoint was set on 0x%04X.\n", addr)
		return nil
	}

	b.Disabled = false
	h.printf("Data breakpoint at 0x%04X enabled.\n", addr)
	return nil
}

func (h *Host) cmdDataBreakpointDisable(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := h.debugger.GetDataBreakpoint(addr)
	if b == nil {
		h.printf("No data breakpoint was set on 0x%04X.\n", addr)
		return nil
	}

	b.Disabled = true
	h.printf("Data breakpoint at 0x%04X disabled.\n", addr)
	return nil
}

func (h *Host) cmdDisassemble(c cmd.Selection) error {
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	var addr uint16
	switch c.Args[0] {
	case "$":
		addr = h.settings.NextDisasmAddr
		if addr == 0 {
			addr = h.cpu.Reg.R[cpu.PC]
		}
	case ".":
		addr = h.cpu.Reg.R[cpu.PC]
	default:
		a, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	lines := h.settings.DisasmLines
	if len(c.Args) > 1 {
		l, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		lines = int(l)
	}

	for i := 0; i < lines; i++ {
		d, next := h.disassemble(addr, displayAnnotations)
		h.println(d)
		addr = next
	}

	h.settings.NextDisasmAddr = addr
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", lines)}
	return nil
}

func (h *Host) cmdExports(c cmd.Selection) error {
	if len(h.labels) == 0 {
		h.println("No labels known.")
		return nil
	}
	for name, addr := range h.labels {
		h.printf("%-24s 0x%04X\n", name, uint16(addr))
	}
	return nil
}

func (h *Host) cmdEvaluate(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	expr := strings.Join(c.Args, " ")
	v, err := h.parseExpr(expr)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.printf("0x%04X\n", v)
	return nil
}

func (h *Host) cmdHelp(c cmd.Selection) error {
	switch {
	case len(c.Args) == 0:
		h.displayCommands(cmds)
	default:
		s, err := cmds.Lookup(strings.Join(c.Args, " "))
		if err != nil {
			h.printf("%v\n", err)
		} else {
			h.displayHelpText(s.Command)
			if s.Command.Description != "" {
				h.printf("\nDescription:\n%s\n", s.Command.Description)
			} else if s.Command.Brief != "" {
				h.printf("\nDescription:\n%s.\n", s.Command.Brief)
			}
		}
	}
	return nil
}

func (h *Host) cmdLoad(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	filename := c.Args[0]
	if filepath.Ext(filename) == "" {
		filename += ".bin"
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		h.printf("Failed to open '%s': %v\n", filepath.Base(filename), err)
		return nil
	}

	segments, startupPC, err := asm.ReadImage(data)
	if err != nil {
		h.printf("Failed to parse '%s': %v\n", filepath.Base(filename), err)
		return nil
	}

	for _, seg := range segments {
		for i, w := range seg.Words {
			h.mem.StoreWord(seg.Start+uint16(i*2), w)
		}
	}

	h.cpu.SetPC(startupPC)
	h.printf("Loaded '%s'; PC set to 0x%04X.\n", filepath.Base(filename), startupPC)
	return nil
}

func (h *Host) cmdMemoryDump(c cmd.Selection) error {
	var addr uint16
	if len(c.Args) > 0 {
		switch c.Args[0] {
		case "$":
			addr = h.settings.NextMemDumpAddr
		case ".":
			addr = h.cpu.Reg.R[cpu.PC]
		default:
			a, err := h.parseExpr(c.Args[0])
			if err != nil {
				h.printf("%v\n", err)
				return nil
			}
			addr = a
		}
	} else {
		addr = h.settings.NextMemDumpAddr
	}

	bytes := uint16(h.settings.MemDumpBytes)
	if len(c.Args) >= 2 {
		b, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		bytes = b
	}

	h.dumpMemory(addr, bytes)

	h.settings.NextMemDumpAddr = addr + bytes
	return nil
}

func (h *Host) cmdMemorySet(c cmd.Selection) error {
	if len(c.Args) < 2 {
		h.displayHelpText(c.Command)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	for _, a := range c.Args[1:] {
		v, err := h.parseExpr(a)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.mem.StoreByte(addr, byte(v))
		addr++
	}

	h.printf("Memory updated.\n")
	return nil
}

func (h *Host) cmdQuit(c cmd.Selection) error {
	return errors.New("exiting program")
}

func (h *Host) cmdRegisters(c cmd.Selection) error {
	d, _ := h.disassemble(h.cpu.Reg.R[cpu.PC], displayAll)
	h.println(d)
	return nil
}

func (h *Host) cmdRun(c cmd.Selection) error {
	if len(c.Args) > 0 {
		pc, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.cpu.SetPC(pc)
	}

	h.printf("Running from 0x%04X. Press ctrl-C to break.\n", h.cpu.Reg.R[cpu.PC])

	h.state = stateRunning
	for h.state == stateRunning {
		h.step()
	}
	h.state = stateProcessingCommands

	h.settings.NextDisasmAddr = h.cpu.Reg.R[cpu.PC]
	return nil
}

func (h *Host) cmdSet(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)

	case 1:
		h.displayHelpText(c.Command)

	default:
		key, value := strings.ToLower(c.Args[0]), strings.Join(c.Args[1:], " ")
		v, errV := h.exprParser.Parse(value, h)

		if errV == nil {
			if reg, ok := registerName(key); ok {
				h.cpu.Reg.R[reg] = uint16(v)
				h.printf("Register %s set to 0x%04X.\n", strings.ToUpper(key), uint16(v))
				return nil
			}
		}

		var err error
		switch h.settings.Kind(key) {
		case reflect.Invalid:
			err = fmt.Errorf("setting '%s' not found", key)
		case reflect.Bool:
			var b bool
			b, err = stringToBool(value)
			if err == nil {
				err = h.settings.Set(key, b)
			}
		default:
			err = errV
			if err == nil {
				err = h.settings.Set(key, v)
			}
		}

		if err == nil {
			h.println("Setting updated.")
			h.onSettingsUpdate()
		} else {
			h.printf("%v\n", err)
		}
	}

	return nil
}

func (h *Host) onSettingsUpdate() {
	h.exprParser.hexMode = h.settings.HexMode
	h.cpu.Config.Silent = h.settings.Silent
	h.cpu.Config.SpecialInterrupts = h.settings.SpecialInterrupts
}

func (h *Host) cmdStepIn(c cmd.Selection) error {
	count := 1
	if len(c.Args) > 0 {
		n, err := h.parseExpr(c.Args[0])
		if err == nil {
			count = int(n)
		}
	}

	h.state = stateRunning
	for i := count - 1; i >= 0 && h.state == stateRunning; i-- {
		h.step()
		switch {
		case i == h.settings.MaxStepLines:
			h.println("...")
		case i < h.settings.MaxStepLines:
			h.displayPC()
		}
	}
	h.state = stateProcessingCommands

	h.settings.NextDisasmAddr = h.cpu.Reg.R[cpu.PC]
	return nil
}

func (h *Host) cmdStepOver(c cmd.Selection) error {
	count := 1
	if len(c.Args) > 0 {
		n, err := h.parseExpr(c.Args[0])
		if err == nil {
			count = int(n)
		}
	}

	h.state = stateRunning
	for i := count - 1; i >= 0 && h.state == stateRunning; i-- {
		h.stepOver()
		switch {
		case i == h.settings.MaxStepLines:
			h.println("...")
		case i < h.settings.MaxStepLines:
			h.displayPC()
		}
	}
	h.state = stateProcessingCommands

	h.settings.NextDisasmAddr = h.cpu.Reg.R[cpu.PC]
	return nil
}

// registerName maps a setting key to a register index, if it names one.
func registerName(key string) (int, bool) {
	switch key {
	case ".", "pc":
		return cpu.PC, true
	case "sp":
		return cpu.SP, true
	case "sr":
		return cpu.SR, true
	case "cg":
		return cpu.CG, true
	}
	if len(key) > 1 && key[0] == 'r' {
		n := 0
		for _, c := range key[1:] {
			if c < '0' || c > '9' {
				return 0, false
			}
			n = n*10 + int(c-'0')
		}
		if n >= 0 && n < 16 {
			return n, true
		}
	}
	return 0, false
}

func (h *Host) loadAssembly(a *asm.Assembly) {
	segments, startupPC, err := asm.ReadImage(a.Code)
	if err != nil {
		h.printf("Failed to load assembled image: %v\n", err)
		return
	}
	for _, seg := range segments {
		for i, w := range seg.Words {
			h.mem.StoreWord(seg.Start+uint16(i*2), w)
		}
	}
	h.labels = a.Labels
	h.cpu.SetPC(startupPC)
}

func (h *Host) step() {
	h.cpu.Step()
}

func (h *Host) stepOver() {
	line, next := disasm.Disassemble(h.cpu.Mem, h.cpu.Reg.R[cpu.PC], nil)
	if !strings.HasPrefix(line, "call ") {
		h.cpu.Step()
		return
	}

	// Place a step-over breakpoint on the instruction following the
	// call. Either modify an already existing breakpoint on that
	// instruction, or create a temporary one.
	tmpBreakpointCreated := false
	b := h.debugger.GetBreakpoint(next)
	if b == nil {
		b = h.debugger.AddBreakpoint(next)
		tmpBreakpointCreated = true
	}
	b.StepOver = true

	for h.state == stateRunning {
		h.step()
	}
	b.StepOver = false

	if h.state == stateStepOverBreakpoint {
		h.state = stateRunning
	}

	if tmpBreakpointCreated {
		h.debugger.RemoveBreakpoint(next)
	}
}

func (h *Host) parseExpr(expr string) (uint16, error) {
	v, err := h.exprParser.Parse(expr, h)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		v = 0x10000 + v
	}
	return uint16(v), nil
}

func (h *Host) disassemble(addr uint16, flags displayFlags) (str string, next uint16) {
	labels := make(disasm.Labels, len(h.labels))
	for name, a := range h.labels {
		labels[uint16(a)] = name
	}

	var line string
	line, next = disasm.Disassemble(h.cpu.Mem, addr, labels)

	l := next - addr
	b := make([]byte, l)
	h.cpu.Mem.LoadBytes(addr, b)

	str = fmt.Sprintf("0x%04X-   %-10s    %-20s", addr, codeString(b), line)

	if (flags & displayRegisters) != 0 {
		str += " " + disasm.FormatRegisters(&h.cpu.Reg)
	}

	if (flags & displaySteps) != 0 {
		str += fmt.Sprintf(" steps=%-12d", h.cpu.Steps)
	}

	if (flags & displayAnnotations) != 0 {
		if anno, ok := h.annotations[addr]; ok {
			str += " ; " + anno
		}
	}

	return str, next
}

func (h *Host) dumpMemory(addr0, bytes uint16) {
	addr1 := addr0 + bytes - 1
	if addr1 < addr0 {
		addr1 = 0xFFFF
	}

	buf := []byte("    -" + strings.Repeat(" ", 35))

	if addr1-addr0 < 8 {
		addrToBuf(addr0, buf[0:4])
		for a, c1, c2 := addr0, 6, 32; a <= addr1; a, c1, c2 = a+1, c1+3, c2+1 {
			m := h.cpu.Mem.LoadByte(a)
			byteToBuf(m, buf[c1:c1+2])
			buf[c2] = toPrintableChar(m)
		}
		h.println(string(buf))
		return
	}

	start := uint32(addr0) & 0xFFF8
	stop := (uint32(addr1) + 8) & 0xFFFF8
	if stop > 0x10000 {
		stop = 0x10000
	}

	a := uint16(start)
	for r := start; r < stop; r += 8 {
		addrToBuf(a, buf[0:4])
		for c1, c2 := 6, 32; c1 < 29; c1, c2, a = c1+3, c2+1, a+1 {
			if a >= addr0 && a <= addr1 {
				m := h.cpu.Mem.LoadByte(a)
				byteToBuf(m, buf[c1:c1+2])
				buf[c2] = toPrintableChar(m)
			} else {
				buf[c1] = ' '
				buf[c1+1] = ' '
				buf[c2] = ' '
			}
		}
		h.println(string(buf))
	}
}

func (h *Host) displayHelpText(c *cmd.Command) {
	if c.Usage != "" {
		h.printf("Syntax: %s\n", c.Usage)
	} else {
		h.println("<no help text>")
	}
}

func (h *Host) displayCommands(commands *cmd.Tree) {
	h.printf("%s commands:\n", commands.Name)
	for _, c := range commands.Commands {
		if c.Brief != "" {
			h.printf("    %-15s  %s\n", c.Name, c.Brief)
		}
	}
}

func (h *Host) resolveIdentifier(s string) (int64, error) {
	s = strings.ToLower(s)

	if reg, ok := registerName(s); ok {
		return int64(h.cpu.Reg.R[reg]), nil
	}

	if addr, ok := h.labels[s]; ok {
		return int64(addr), nil
	}

	return 0, fmt.Errorf("identifier '%s' not found", s)
}

func (h *Host) onBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	if b.StepOver {
		h.state = stateStepOverBreakpoint
	} else {
		h.state = stateBreakpoint
		h.printf("Breakpoint hit at 0x%04X.\n", b.Address)
		h.displayPC()
	}
}

func (h *Host) onDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	h.printf("Data breakpoint hit on address 0x%04X.\n", b.Address)
	h.state = stateBreakpoint
	h.displayPC()
}
