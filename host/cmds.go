// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import "github.com/beevik/cmd"

var cmds *cmd.Tree

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "msp430"})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "help",
		Description: "Display help for a command.",
		Usage:       "help [<command>]",
		Data:        (*Host).cmdHelp,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "annotate",
		Brief: "Annotate an address",
		Description: "Provide a code annotation at a memory address." +
			" When disassembling code at this address, the annotation will" +
			" be displayed.",
		Usage: "annotate <address> <string>",
		Data:  (*Host).cmdAnnotate,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "assemble",
		Brief: "Assemble a file and load the result",
		Description: "Run the assembler on the specified file," +
			" writing a .bin image and .lst listing alongside it, and" +
			" load the result into memory.",
		Usage: "assemble <filename>",
		Data:  (*Host).cmdAssemble,
	})

	// Breakpoint commands.
	bp := root.AddSubtree(cmd.TreeDescriptor{Name: "breakpoint", Brief: "Breakpoint commands"})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:        "list",
		Brief:       "List breakpoints",
		Description: "List all current breakpoints.",
		Usage:       "breakpoint list",
		Data:        (*Host).cmdBreakpointList,
	})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:  "add",
		Brief: "Add a breakpoint",
		Description: "Add a breakpoint at the specified address." +
			" The breakpoint starts enabled.",
		Usage: "breakpoint add <address>",
		Data:  (*Host).cmdBreakpointAdd,
	})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:        "remove",
		Brief:       "Remove a breakpoint",
		Description: "Remove a breakpoint at the specified address.",
		Usage:       "breakpoint remove <address>",
		Data:        (*Host).cmdBreakpointRemove,
	})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:        "enable",
		Brief:       "Enable a breakpoint",
		Description: "Enable a previously added breakpoint.",
		Usage:       "breakpoint enable <address>",
		Data:        (*Host).cmdBreakpointEnable,
	})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:  "disable",
		Brief: "Disable a breakpoint",
		Description: "Disable a previously added breakpoint. This" +
			" prevents it from stopping a run.",
		Usage: "breakpoint disable <address>",
		Data:  (*Host).cmdBreakpointDisable,
	})

	// Data breakpoint commands.
	db := root.AddSubtree(cmd.TreeDescriptor{Name: "databreakpoint", Brief: "Data breakpoint commands"})
	db.AddCommand(cmd.CommandDescriptor{
		Name:        "list",
		Brief:       "List data breakpoints",
		Description: "List all current data breakpoints.",
		Usage:       "databreakpoint list",
		Data:        (*Host).cmdDataBreakpointList,
	})
	db.AddCommand(cmd.CommandDescriptor{
		Name:  "add",
		Brief: "Add a data breakpoint",
		Description: "Add a data breakpoint at the specified address." +
			" When the CPU stores a byte there, the breakpoint stops the" +
			" CPU. Optionally a byte value may be specified, so the" +
			" breakpoint only stops when that value is stored.",
		Usage: "databreakpoint add <address> [<value>]",
		Data:  (*Host).cmdDataBreakpointAdd,
	})
	db.AddCommand(cmd.CommandDescriptor{
		Name:        "remove",
		Brief:       "Remove a data breakpoint",
		Description: "Remove a data breakpoint at the specified address.",
		Usage:       "databreakpoint remove <address>",
		Data:        (*Host).cmdDataBreakpointRemove,
	})
	db.AddCommand(cmd.CommandDescriptor{
		Name:        "enable",
		Brief:       "Enable a data breakpoint",
		Description: "Enable a previously added data breakpoint.",
		Usage:       "databreakpoint enable <address>",
		Data:        (*Host).cmdDataBreakpointEnable,
	})
	db.AddCommand(cmd.CommandDescriptor{
		Name:        "disable",
		Brief:       "Disable a data breakpoint",
		Description: "Disable a previously added data breakpoint.",
		Usage:       "databreakpoint disable <address>",
		Data:        (*Host).cmdDataBreakpointDisable,
	})

	root.AddCommand(cmd.CommandDescriptor{
		Name:  "disassemble",
		Brief: "Disassemble code",
		Description: "Disassemble machine code starting at the requested" +
			" address. The number of instruction lines to disassemble may" +
			" be given as an option. If no address is given, disassembly" +
			" continues from where the last disassembly left off.",
		Usage: "disassemble [<address>] [<lines>]",
		Data:  (*Host).cmdDisassemble,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "evaluate",
		Brief:       "Evaluate an expression",
		Description: "Evaluate an integer expression, resolving registers and labels.",
		Usage:       "evaluate <expression>",
		Data:        (*Host).cmdEvaluate,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "exports",
		Brief: "List known labels",
		Description: "Display every label known from the most recently" +
			" assembled or loaded source, with its resolved address.",
		Usage: "exports",
		Data:  (*Host).cmdExports,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "load",
		Brief: "Load a binary image",
		Description: "Load a previously assembled binary image into the" +
			" emulated system's memory and set the program counter to the" +
			" image's startup segment.",
		Usage: "load <filename>",
		Data:  (*Host).cmdLoad,
	})

	// Memory commands.
	me := root.AddSubtree(cmd.TreeDescriptor{Name: "memory", Brief: "Memory commands"})
	me.AddCommand(cmd.CommandDescriptor{
		Name:  "dump",
		Brief: "Dump memory at address",
		Description: "Dump the contents of memory starting from the" +
			" specified address. The number of bytes to dump may be" +
			" given as an option. If no address is given, the dump" +
			" continues from where the last dump left off.",
		Usage: "memory dump [<address>] [<bytes>]",
		Data:  (*Host).cmdMemoryDump,
	})
	me.AddCommand(cmd.CommandDescriptor{
		Name:  "set",
		Brief: "Set memory at address",
		Description: "Set the contents of memory starting from the" +
			" specified address. The values to assign are a series of" +
			" space-separated byte expressions.",
		Usage: "memory set <address> <byte> [<byte> ...]",
		Data:  (*Host).cmdMemorySet,
	})

	root.AddCommand(cmd.CommandDescriptor{
		Name:        "quit",
		Brief:       "Quit the program",
		Description: "Quit the program.",
		Usage:       "quit",
		Data:        (*Host).cmdQuit,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "registers",
		Brief: "Display register contents",
		Description: "Display the current contents of all 16 CPU registers" +
			" and status flags, and disassemble the instruction at the" +
			" current program counter.",
		Usage: "registers",
		Data:  (*Host).cmdRegisters,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "run",
		Brief: "Run the CPU",
		Description: "Run the CPU until a breakpoint is hit or until the" +
			" user types Ctrl-C.",
		Usage: "run",
		Data:  (*Host).cmdRun,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "set",
		Brief: "Set a configuration variable or register",
		Description: "Set the value of a configuration variable or a CPU" +
			" register. Type set without arguments to display the current" +
			" values of all configuration variables.",
		Usage: "set [<var> <value>]",
		Data:  (*Host).cmdSet,
	})

	// Step commands.
	st := root.AddSubtree(cmd.TreeDescriptor{Name: "step", Brief: "Step the debugger"})
	st.AddCommand(cmd.CommandDescriptor{
		Name:  "in",
		Brief: "Step into next instruction",
		Description: "Step the CPU by a single instruction, stepping into" +
			" a CALL if one is executed. The number of steps may be given" +
			" as an option.",
		Usage: "step in [<count>]",
		Data:  (*Host).cmdStepIn,
	})
	st.AddCommand(cmd.CommandDescriptor{
		Name:  "over",
		Brief: "Step over next instruction",
		Description: "Step the CPU by a single instruction, running a" +
			" called subroutine to completion rather than stepping into" +
			" it. The number of steps may be given as an option.",
		Usage: "step over [<count>]",
		Data:  (*Host).cmdStepOver,
	})

	// Shortcuts.
	root.AddShortcut("a", "assemble")
	root.AddShortcut("b", "breakpoint")
	root.AddShortcut("bp", "breakpoint")
	root.AddShortcut("ba", "breakpoint add")
	root.AddShortcut("br", "breakpoint remove")
	root.AddShortcut("bl", "breakpoint list")
	root.AddShortcut("be", "breakpoint enable")
	root.AddShortcut("bd", "breakpoint disable")
	root.AddShortcut("d", "disassemble")
	root.AddShortcut("db", "databreakpoint")
	root.AddShortcut("dbp", "databreakpoint")
	root.AddShortcut("dbl", "databreakpoint list")
	root.AddShortcut("dba", "databreakpoint add")
	root.AddShortcut("dbr", "databreakpoint remove")
	root.AddShortcut("dbe", "databreakpoint enable")
	root.AddShortcut("dbd", "databreakpoint disable")
	root.AddShortcut("e", "evaluate")
	root.AddShortcut("m", "memory dump")
	root.AddShortcut("ms", "memory set")
	root.AddShortcut("r", "registers")
	root.AddShortcut("s", "step over")
	root.AddShortcut("si", "step in")
	root.AddShortcut("?", "help")
	root.AddShortcut(".", "registers")

	cmds = root
}
