// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// Segment is a contiguous run of code/data words starting at a fixed
// address (spec §3).
type Segment struct {
	Start uint16
	Words []uint16
}

func (s Segment) end() uint16 { return s.Start + uint16(len(s.Words)*2) }

// assignAddresses is pass 1 of spec §4.5: walk the instruction list
// once, mapping every instruction to its PC and every attached label to
// that PC.
func assignAddresses(origin uint16, instrs []*Instruction) (addrs []uint16, labels map[string]int) {
	addrs = make([]uint16, len(instrs))
	labels = make(map[string]int)

	pc := origin
	for i, in := range instrs {
		addrs[i] = pc
		for _, lbl := range in.Labels {
			labels[lbl] = int(pc)
		}
		pc += uint16(2 * in.numWords())
	}
	return addrs, labels
}

// compileInstructions is pass 2 of spec §4.5: compile every instruction
// against the final label map, accumulating code into segments and
// buffering interrupt vectors into a postfix segment list. Compile
// errors are collected, not fatal; the pass always runs to completion.
func compileInstructions(instrs []*Instruction, addrs []uint16, labels map[string]int) (segments, postfix []Segment, errs []*CompileError) {
	var cur *Segment

	flush := func() {
		if cur != nil && len(cur.Words) > 0 {
			segments = append(segments, *cur)
		}
		cur = nil
	}

	for i, in := range instrs {
		pc := addrs[i]

		switch in.Kind {
		case InstPadding:
			flush()

		case InstInterrupt:
			target, err := in.Target.resolve(labels)
			if err != nil {
				errs = append(errs, &CompileError{File: in.File, Line: in.line(), Msg: err.Error()})
				continue
			}
			postfix = append(postfix, Segment{Start: uint16(in.Vector), Words: []uint16{uint16(target)}})

		case InstListingComment:
			// zero bytes, no segment effect

		default:
			words, err := in.compile(labels, pc)
			if err != nil {
				if ce, ok := err.(*CompileError); ok {
					errs = append(errs, ce)
				} else {
					errs = append(errs, &CompileError{File: in.File, Line: in.line(), Msg: err.Error()})
				}
				continue
			}
			if len(words) == 0 {
				continue
			}
			if cur == nil {
				cur = &Segment{Start: pc}
			}
			cur.Words = append(cur.Words, words...)
		}
	}
	flush()

	return segments, postfix, errs
}

// buildImage runs §4.5's final assembly steps: append the startup
// vector, append deferred interrupt segments, sort by start address,
// and merge adjacent segments to a fixed point.
func buildImage(segments, postfix []Segment, startupPC uint16) []Segment {
	all := make([]Segment, 0, len(segments)+len(postfix)+1)
	all = append(all, segments...)
	all = append(all, postfix...)
	all = append(all, Segment{Start: 0xFFFE, Words: []uint16{startupPC}})

	sortSegments(all)
	return mergeSegments(all)
}

func sortSegments(segs []Segment) {
	for i := 1; i < len(segs); i++ {
		for j := i; j > 0 && segs[j-1].Start > segs[j].Start; j-- {
			segs[j-1], segs[j] = segs[j], segs[j-1]
		}
	}
}

// mergeSegments repeatedly merges adjacent segments where the
// preceding segment's end equals the next segment's start, until a
// fixed point is reached (spec §4.5 step 4, §8 "segment merge
// idempotence").
func mergeSegments(segs []Segment) []Segment {
	for {
		merged := false
		out := make([]Segment, 0, len(segs))
		i := 0
		for i < len(segs) {
			if i+1 < len(segs) && segs[i].end() == segs[i+1].Start {
				combined := Segment{
					Start: segs[i].Start,
					Words: append(append([]uint16{}, segs[i].Words...), segs[i+1].Words...),
				}
				out = append(out, combined)
				i += 2
				merged = true
				continue
			}
			out = append(out, segs[i])
			i++
		}
		segs = out
		if !merged {
			return segs
		}
	}
}
