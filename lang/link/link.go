// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package link resolves a lang/asm token stream's labels and encodes it to
// raw bytecode in two passes: the first computes every label's byte
// position, the second emits bytes against those positions. This is
// component E of the CORE, spec.md §4.E.
package link

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set"
	lru "github.com/hashicorp/golang-lru"

	"github.com/probechain/lllc/lang/asm"
	"github.com/probechain/lllc/lang/lllerr"
	"github.com/probechain/lllc/lang/opcodes"
)

// maxProgramSize is the largest program this linker can address: labels are
// always encoded as a 2-byte offset (spec.md §4.E), so no program can exceed
// 65535 bytes.
const maxProgramSize = 0xffff

// subCacheSize bounds how many distinct embedded sub-programs the linker
// memoizes the encoding of. A single compilation rarely nests more than a
// handful of `lll` forms; this just keeps pass 1 (which sizes a sub-program)
// and pass 2 (which emits it) from walking the same sub-program twice.
const subCacheSize = 256

// Linker resolves labels and encodes one top-level token stream to bytes.
type Linker struct {
	subCache *lru.Cache
}

// New creates a Linker with a fresh sub-program encoding cache.
func New() *Linker {
	c, err := lru.New(subCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which subCacheSize
		// never is.
		panic(err)
	}
	return &Linker{subCache: c}
}

// Encode resolves labels in toks and returns the final bytecode.
func (l *Linker) Encode(toks []asm.Token) ([]byte, error) {
	if err := validateLabels(toks); err != nil {
		return nil, err
	}
	positions, size, err := l.computePositions(toks, 0)
	if err != nil {
		return nil, err
	}
	if size > maxProgramSize {
		return nil, fmt.Errorf("link: %w", lllerr.New(lllerr.EncoderFailure, "program is %d bytes, exceeds the %d-byte addressable limit", size, maxProgramSize))
	}
	out, err := l.emit(toks, positions)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// validateLabels walks the full token tree (including embedded
// sub-programs) and rejects a program where a label is referenced but never
// defined, or defined more than once. Defined-but-unreferenced labels are
// not an error — spec.md §4.D's templates sometimes emit a label a
// particular branch never reaches.
func validateLabels(toks []asm.Token) error {
	defined := mapset.NewSet()
	referenced := mapset.NewSet()
	var walk func([]asm.Token) error
	walk = func(ts []asm.Token) error {
		for i := 0; i < len(ts); i++ {
			t := ts[i]
			switch t.Kind {
			case asm.KindLabel:
				if isDefinition(ts, i) {
					if defined.Contains(t.Label) {
						return fmt.Errorf("link: %w", lllerr.New(lllerr.EncoderFailure, "label %q is defined more than once", t.Label))
					}
					defined.Add(t.Label)
				} else {
					referenced.Add(t.Label)
				}
			case asm.KindSubProgram:
				if err := walk(t.Sub); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(toks); err != nil {
		return err
	}
	missing := referenced.Difference(defined)
	if missing.Cardinality() > 0 {
		names := make([]string, 0, missing.Cardinality())
		for _, m := range missing.ToSlice() {
			names = append(names, m.(string))
		}
		return fmt.Errorf("link: %w", lllerr.New(lllerr.EncoderFailure, "undefined label(s): %s", strings.Join(names, ", ")))
	}
	return nil
}

// isDefinition reports whether the label token at index i is immediately
// followed by a marker (JUMPDEST or BLANK) — spec.md §4.E's rule for
// distinguishing a 0-byte label definition from a 3-byte label reference.
func isDefinition(ts []asm.Token, i int) bool {
	return i+1 < len(ts) && ts[i+1].Kind == asm.KindMarker
}

// computePositions is linker pass 1: it returns the byte offset of every
// label definition (relative to base) and the total encoded size of toks.
func (l *Linker) computePositions(toks []asm.Token, base int) (map[string]int, int, error) {
	positions := map[string]int{}
	pos := base
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch t.Kind {
		case asm.KindMnemonic:
			n, err := mnemonicSize(t.Mnemonic)
			if err != nil {
				return nil, 0, err
			}
			pos += n

		case asm.KindImmediate:
			pos++

		case asm.KindLabel:
			if isDefinition(toks, i) {
				positions[t.Label] = pos
			} else {
				pos += 3 // implicit PUSH2 + 2-byte address
			}

		case asm.KindMarker:
			if t.Marker == asm.MarkerJumpdest {
				pos++
			}
			// BLANK is zero bytes.

		case asm.KindSubProgram:
			sub, err := l.encodeCached(t.Sub)
			if err != nil {
				return nil, 0, err
			}
			subPositions, _, err := l.computePositions(t.Sub, pos)
			if err != nil {
				return nil, 0, err
			}
			for k, v := range subPositions {
				positions[k] = v
			}
			pos += len(sub)
		}
	}
	return positions, pos, nil
}

// emit is linker pass 2: given every label's resolved position, write the
// final byte sequence.
func (l *Linker) emit(toks []asm.Token, positions map[string]int) ([]byte, error) {
	var out []byte
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch t.Kind {
		case asm.KindMnemonic:
			b, err := encodeMnemonic(t.Mnemonic)
			if err != nil {
				return nil, err
			}
			out = append(out, b...)

		case asm.KindImmediate:
			out = append(out, t.Immediate)

		case asm.KindLabel:
			if isDefinition(toks, i) {
				continue
			}
			addr, ok := positions[t.Label]
			if !ok {
				return nil, fmt.Errorf("link: %w", lllerr.New(lllerr.EncoderFailure, "unresolved label %q", t.Label))
			}
			out = append(out, opcodes.PushOpcodeBase+2, byte(addr>>8), byte(addr))

		case asm.KindMarker:
			if t.Marker == asm.MarkerJumpdest {
				info, _ := opcodes.Lookup("JUMPDEST")
				out = append(out, info.Byte)
			}

		case asm.KindSubProgram:
			sub, err := l.encodeCached(t.Sub)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
	}
	return out, nil
}

// encodeCached recursively encodes a sub-program, memoizing on its token
// content so that the same embedded program encoded more than once (pass 1
// sizes it, pass 2 emits it) is only walked once. This is the linker's
// "compute and cache" step, spec.md §4.E.
func (l *Linker) encodeCached(toks []asm.Token) ([]byte, error) {
	key := cacheKey(toks)
	if v, ok := l.subCache.Get(key); ok {
		return v.([]byte), nil
	}
	if err := validateLabels(toks); err != nil {
		return nil, err
	}
	positions, _, err := l.computePositions(toks, 0)
	if err != nil {
		return nil, err
	}
	out, err := l.emit(toks, positions)
	if err != nil {
		return nil, err
	}
	l.subCache.Add(key, out)
	return out, nil
}

// cacheKey builds a canonical string for a token stream. Token trees
// produced by lang/asm are plain data with no cycles, so a straightforward
// textual rendering is a safe, deterministic cache key.
func cacheKey(toks []asm.Token) string {
	var b strings.Builder
	var walk func([]asm.Token)
	walk = func(ts []asm.Token) {
		for _, t := range ts {
			fmt.Fprintf(&b, "%d|%s|%d|%s|%d;", t.Kind, t.Mnemonic, t.Immediate, t.Label, t.Marker)
			if t.Kind == asm.KindSubProgram {
				b.WriteByte('[')
				walk(t.Sub)
				b.WriteByte(']')
			}
		}
	}
	walk(toks)
	return b.String()
}

// mnemonicSize returns the encoded byte width of a mnemonic token: 1 for
// every recognized mnemonic, PUSH<k> included (its k immediate bytes arrive
// as separate KindImmediate tokens, which the caller counts once each).
func mnemonicSize(name string) (int, error) {
	if _, ok := opcodes.Lookup(name); ok {
		return 1, nil
	}
	return 0, fmt.Errorf("link: %w", lllerr.New(lllerr.EncoderFailure, "unrecognized mnemonic %q", name))
}

// encodeMnemonic returns the opcode byte(s) for a mnemonic token: a single
// byte for a real opcode or any PUSH/DUP/SWAP pseudo-op (the PUSH<k>
// immediates themselves arrive as separate KindImmediate tokens immediately
// after).
func encodeMnemonic(name string) ([]byte, error) {
	info, ok := opcodes.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("link: %w", lllerr.New(lllerr.EncoderFailure, "unrecognized mnemonic %q", name))
	}
	if !info.Pseudo {
		return []byte{info.Byte}, nil
	}
	family, width, ok := pseudoWidth(name)
	if !ok {
		return nil, fmt.Errorf("link: %w", lllerr.New(lllerr.EncoderFailure, "malformed pseudo-mnemonic %q", name))
	}
	switch family {
	case "PUSH":
		return []byte{opcodes.PushOpcodeBase + byte(width)}, nil
	case "DUP":
		return []byte{opcodes.DupOpcodeBase + byte(width)}, nil
	case "SWAP":
		return []byte{opcodes.SwapOpcodeBase + byte(width)}, nil
	default:
		return nil, fmt.Errorf("link: %w", lllerr.New(lllerr.EncoderFailure, "unrecognized pseudo-mnemonic family %q", family))
	}
}

func pseudoWidth(name string) (family string, width int, ok bool) {
	upper := strings.ToUpper(name)
	for _, f := range [...]string{"PUSH", "DUP", "SWAP"} {
		if strings.HasPrefix(upper, f) && len(upper) > len(f) {
			n := 0
			for _, c := range upper[len(f):] {
				if c < '0' || c > '9' {
					return "", 0, false
				}
				n = n*10 + int(c-'0')
			}
			return f, n, true
		}
	}
	return "", 0, false
}
