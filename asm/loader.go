// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var reInclude = regexp.MustCompile(`^\s*\.include\s+(\S+)\s*$`)

// loader loads and flattens .include directives into a single ordered
// Line list, stamping each line's origin and synthesizing a
// not-found marker line in place of an unresolvable include. Cycles are
// silently suppressed: an already-active file is simply skipped.
type loader struct {
	files []string // fileIndex -> display name
	dir   string    // base directory for resolving relative includes
	stack []string  // active resolved (dir-joined) paths, for cycle suppression
}

func newLoader(dir string) *loader {
	return &loader{dir: dir}
}

// fileIndex returns the index of name in the file table, adding it if
// necessary.
func (ld *loader) fileIndex(name string) int {
	for i, f := range ld.files {
		if f == name {
			return i
		}
	}
	ld.files = append(ld.files, name)
	return len(ld.files) - 1
}

// Load takes the root source text (named rootName) and returns the
// fully flattened, include-resolved line list.
func (ld *loader) Load(text string, rootName string) []Line {
	idx := ld.fileIndex(rootName)
	return ld.loadText(text, idx, 0)
}

func (ld *loader) loadText(text string, fileIndex int, parentLine int) []Line {
	var lines []Line
	scanner := bufio.NewScanner(strings.NewReader(text))
	row := 1
	for scanner.Scan() {
		raw := strings.TrimRight(scanner.Text(), " \t\r")
		if m := reInclude.FindStringSubmatch(raw); m != nil {
			lines = append(lines, ld.include(m[1], fileIndex, row)...)
		} else {
			lines = append(lines, Line{
				origin: origin{fileIndex: fileIndex, lineNo: row, parent: parentLine},
				text:   raw,
			})
		}
		row++
	}
	return lines
}

func (ld *loader) include(path string, fromFile int, fromLine int) []Line {
	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(ld.dir, resolved)
	}

	for _, active := range ld.stack {
		if active == resolved {
			return nil // cycle: silently include nothing
		}
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return []Line{{
			origin: origin{fileIndex: fromFile, lineNo: fromLine, parent: fromLine},
			text:   "!!!File '" + path + "' not found",
		}}
	}

	ld.stack = append(ld.stack, resolved)
	defer func() { ld.stack = ld.stack[:len(ld.stack)-1] }()

	idx := ld.fileIndex(path)
	var out []Line
	out = append(out, Line{origin: origin{fileIndex: idx, lineNo: 0, parent: fromLine}, text: ".push_locblk"})
	out = append(out, Line{origin: origin{fileIndex: idx, lineNo: 0, parent: fromLine}, text: ".dbgbrk"})
	out = append(out, ld.loadText(string(data), idx, fromLine)...)
	out = append(out, Line{origin: origin{fileIndex: idx, lineNo: 0, parent: fromLine}, text: ".dbgbrk"})
	out = append(out, Line{origin: origin{fileIndex: idx, lineNo: 0, parent: fromLine}, text: ".pop_locblk"})
	return out
}
