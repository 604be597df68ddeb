// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command msp430dbg is the interactive MSP430 debug console: it wraps
// host.Host with a command-line loop, raw-terminal Ctrl-C handling, and
// optional command-file batch execution, mirroring the cross-assembler
// debugger CLI this toolchain's host package is modeled on.
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/beevik/msp430/host"
	"github.com/beevik/term"
)

func main() {
	h := host.New()

	oldState, rawErr := term.MakeRawInput(int(os.Stdin.Fd()))
	if rawErr == nil {
		defer term.Restore(int(os.Stdin.Fd()), oldState)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go handleInterrupt(h, c)

	args := os.Args[1:]
	for _, filename := range args {
		file, err := os.Open(filename)
		if err != nil {
			exitOnError(err)
		}
		h.RunCommands(file, os.Stdout, false)
		file.Close()
	}

	h.RunCommands(os.Stdin, os.Stdout, true)
}

func handleInterrupt(h *host.Host, c chan os.Signal) {
	for {
		<-c
		h.Break()
	}
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
