// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// Character-class predicates shared by the tokenizer (spec §4.3).

func alpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func decimal(c byte) bool {
	return c >= '0' && c <= '9'
}

// Label syntax per the MSP430 dialect: ^[A-Za-z$_][A-Za-z0-9$_]*$.
func labelStartChar(c byte) bool {
	return alpha(c) || c == '_' || c == '$'
}

func labelChar(c byte) bool {
	return alpha(c) || decimal(c) || c == '_' || c == '$'
}
