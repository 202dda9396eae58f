// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package asm lowers an LLL tree into a flat sequence of symbolic assembly
// tokens, tracking the abstract operand-stack height so that stack-relative
// operations (DUP/SWAP) resolve to concrete offsets. This is component D of
// the CORE, spec.md §4.D.
package asm

import "fmt"

// Kind tags which field of a Token is meaningful. spec.md §9 recommends a
// tagged variant over the reference implementation's heterogeneous list;
// this is that variant.
type Kind int

const (
	// KindMnemonic is a real opcode or a PUSH<k>/DUP<k>/SWAP<k> pseudo-op.
	KindMnemonic Kind = iota
	// KindImmediate is a single byte (0-255) following a PUSH<k>.
	KindImmediate
	// KindLabel is a symbolic label, either a definition (immediately
	// followed by a KindMarker token) or a reference.
	KindLabel
	// KindMarker is JUMPDEST or the zero-width BLANK sentinel.
	KindMarker
	// KindSubProgram is a nested, independently-encoded embedded program
	// (produced by the `lll` construct).
	KindSubProgram
)

// MarkerKind distinguishes the two zero/low-width markers a label
// definition can precede.
type MarkerKind int

const (
	MarkerJumpdest MarkerKind = iota
	MarkerBlank
)

func (m MarkerKind) String() string {
	if m == MarkerBlank {
		return "BLANK"
	}
	return "JUMPDEST"
}

// Token is one element of the assembly stream spec.md §3 describes.
type Token struct {
	Kind      Kind
	Mnemonic  string     // KindMnemonic
	Immediate byte       // KindImmediate
	Label     string     // KindLabel
	Marker    MarkerKind // KindMarker
	Sub       []Token    // KindSubProgram
}

func Mnem(name string) Token         { return Token{Kind: KindMnemonic, Mnemonic: name} }
func Imm(b byte) Token               { return Token{Kind: KindImmediate, Immediate: b} }
func Lbl(label string) Token         { return Token{Kind: KindLabel, Label: label} }
func Mark(kind MarkerKind) Token     { return Token{Kind: KindMarker, Marker: kind} }
func SubProgram(toks []Token) Token  { return Token{Kind: KindSubProgram, Sub: toks} }

func (t Token) String() string {
	switch t.Kind {
	case KindMnemonic:
		return t.Mnemonic
	case KindImmediate:
		return fmt.Sprintf("0x%02x", t.Immediate)
	case KindLabel:
		return t.Label
	case KindMarker:
		return t.Marker.String()
	case KindSubProgram:
		return fmt.Sprintf("<subprogram:%d tokens>", len(t.Sub))
	default:
		return "<invalid token>"
	}
}

// push returns the PUSH<k> mnemonic token for a k-byte immediate.
func push(k int) Token { return Mnem(fmt.Sprintf("PUSH%d", k)) }

// dup returns the DUP<k> mnemonic token.
func dup(k int) Token { return Mnem(fmt.Sprintf("DUP%d", k)) }

// swap returns the SWAP<k> mnemonic token.
func swap(k int) Token { return Mnem(fmt.Sprintf("SWAP%d", k)) }
