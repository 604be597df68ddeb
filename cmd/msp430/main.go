// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command msp430 is a batch assembler: it reads MSP430 source from
// stdin and writes a base64-encoded binary image to stdout, or
// <FAILURE> on a failed assembly (spec §6.5). It is pure glue over the
// asm package, intended to be driven by an external collaborator
// rather than a human.
package main

import (
	"bytes"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/beevik/msp430/asm"
)

func main() {
	debug := flag.Bool("debug", false, "dump the image as hex before the base64 encoding")
	list := flag.Bool("list", false, "print the assembly listing before the image")
	flag.Parse()

	source, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fail()
	}

	assembly, err := asm.Assemble(bytes.NewReader(source), "stdin", asm.DefaultOrigin, os.Stderr, 0)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fail()
	}

	if len(assembly.Diagnostics) > 0 || len(assembly.Errors) > 0 {
		for _, d := range assembly.Diagnostics {
			fmt.Fprintln(os.Stderr, d.Error())
		}
		for _, e := range assembly.Errors {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		fail()
	}

	if *list {
		fmt.Println(assembly.Listing)
	}

	if *debug {
		for i, b := range assembly.Code {
			if i > 0 && i%16 == 0 {
				fmt.Println()
			}
			fmt.Printf("%02X ", b)
		}
		fmt.Println()
	}

	fmt.Println(base64.StdEncoding.EncodeToString(assembly.Code))
}

func fail() {
	fmt.Println("<FAILURE>")
	os.Exit(1)
}
