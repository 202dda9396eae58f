// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package link

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/probechain/lllc/lang/asm"
	"github.com/probechain/lllc/lang/lll"
)

func compile(t *testing.T, node *lll.Node) []byte {
	t.Helper()
	toks, err := asm.NewGenerator().Compile(node)
	require.NoError(t, err)
	out, err := New().Encode(toks)
	require.NoError(t, err)
	return out
}

// S1: tree `42` => bytes `60 2a`.
func TestScenarioS1Literal(t *testing.T) {
	require.Equal(t, []byte{0x60, 0x2a}, compile(t, lll.IntFromInt64(42)))
}

// S2: tree `(add 1 2)` => bytes `60 02 60 01 01`.
func TestScenarioS2Add(t *testing.T) {
	node := lll.Sym("add", 1, lll.IntFromInt64(1), lll.IntFromInt64(2))
	require.Equal(t, []byte{0x60, 0x02, 0x60, 0x01, 0x01}, compile(t, node))
}

// S4: tree `(with x 5 (add x 1))` => push 5; push 1; dup2; add; swap1; pop.
func TestScenarioS4With(t *testing.T) {
	body := lll.Sym("add", 1, &lll.Node{Symbol: "x", Valency: 1}, lll.IntFromInt64(1))
	node := lll.Sym("with", 1, &lll.Node{Symbol: "x", Valency: 1}, lll.IntFromInt64(5), body)
	require.Equal(t, []byte{0x60, 0x05, 0x60, 0x01, 0x81, 0x01, 0x90, 0x50}, compile(t, node))
}

// S5: tree `(assert 1)` => `60 01 15 58 57` (push 1; iszero; pc; jumpi).
func TestScenarioS5Assert(t *testing.T) {
	node := lll.Sym("assert", 0, lll.IntFromInt64(1))
	require.Equal(t, []byte{0x60, 0x01, 0x15, 0x58, 0x57}, compile(t, node))
}

// TestIfJumpdestIsReachable checks the two-arm `if`'s JUMPDEST lands where
// the label reference actually points, exercising the two-pass resolution
// end to end without assuming one particular byte-counting convention.
func TestIfJumpdestIsReachable(t *testing.T) {
	node := lll.Sym("if", 0, lll.IntFromInt64(1), lll.Sym("seq", 0))
	bytecode := compile(t, node)

	// The label reference is the only PUSH2 (0x61) in this program; its
	// 2-byte big-endian operand must address a JUMPDEST (0x5b) byte.
	var refIdx = -1
	for i, b := range bytecode {
		if b == 0x61 {
			refIdx = i
			break
		}
	}
	require.NotEqual(t, -1, refIdx)
	require.LessOrEqual(t, refIdx+3, len(bytecode))
	addr := int(bytecode[refIdx+1])<<8 | int(bytecode[refIdx+2])
	require.Less(t, addr, len(bytecode))
	require.Equal(t, byte(0x5b), bytecode[addr])
}

// TestClampCompareConstantFold covers testable property 6.
func TestClampCompareConstantFold(t *testing.T) {
	holds := lll.Sym("uclamplt", 1, lll.IntFromInt64(3), lll.IntFromInt64(5))
	require.Equal(t, []byte{0x60, 0x03}, compile(t, holds))

	fails := lll.Sym("uclamplt", 1, lll.IntFromInt64(5), lll.IntFromInt64(3))
	require.Equal(t, []byte{0xfe}, compile(t, fails))

	// A negative x fails the fold's implicit 0 <= x half even though
	// unsigned -1 (2^256-1) is not "< 5" either way: both conditions must
	// hold for the fold to keep x, matching the original's 0 <= x < bound.
	negative := lll.Sym("uclamplt", 1, lll.IntFromInt64(-1), lll.IntFromInt64(5))
	require.Equal(t, []byte{0xfe}, compile(t, negative))

	// uclample(5, 5): the fold always checks strict 0 <= x < bound, even
	// for the le-variants, so x == bound folds to INVALID.
	equalBound := lll.Sym("uclample", 1, lll.IntFromInt64(5), lll.IntFromInt64(5))
	require.Equal(t, []byte{0xfe}, compile(t, equalBound))
}

// TestDerivedComparisonRewrite covers testable property 5: le(a,b) and
// iszero(gt(a,b)) must produce identical byte sequences.
func TestDerivedComparisonRewrite(t *testing.T) {
	a, b := lll.IntFromInt64(7), lll.IntFromInt64(9)
	le := compile(t, lll.Sym("le", 1, a, b))
	iszeroGt := compile(t, lll.Sym("iszero", 1, lll.Sym("gt", 1, a, b)))
	require.Equal(t, iszeroGt, le)
}

func TestUndefinedLabelFails(t *testing.T) {
	toks := []asm.Token{asm.Lbl("_sym_nope"), asm.Mnem("JUMP")}
	_, err := New().Encode(toks)
	require.Error(t, err)
}

func TestDuplicateLabelDefinitionFails(t *testing.T) {
	toks := []asm.Token{
		asm.Lbl("_sym_1"), asm.Mark(asm.MarkerJumpdest),
		asm.Lbl("_sym_1"), asm.Mark(asm.MarkerJumpdest),
	}
	_, err := New().Encode(toks)
	require.Error(t, err)
}

func TestEncoderIsDeterministic(t *testing.T) {
	node := lll.Sym("with", 1, &lll.Node{Symbol: "x", Valency: 1}, lll.IntFromInt64(5),
		lll.Sym("add", 1, &lll.Node{Symbol: "x", Valency: 1}, lll.IntFromInt64(1)))
	first := compile(t, node)
	second := compile(t, node)
	require.Equal(t, first, second)
}

func TestSubProgramEncodedOnceAndCached(t *testing.T) {
	inner := lll.IntFromInt64(7)
	outer := lll.IntFromInt64(0)
	node := lll.Sym("lll", 1, inner, outer)
	toks, err := asm.NewGenerator().Compile(node)
	require.NoError(t, err)
	l := New()
	bytecode, err := l.Encode(toks)
	require.NoError(t, err)
	require.NotEmpty(t, bytecode)
	// The inner program `7` encodes as PUSH1 0x07: emitted exactly once, and
	// its encoding is the single cache entry shared by both passes.
	require.Equal(t, 1, bytes.Count(bytecode, []byte{0x60, 0x07}))
	require.Equal(t, 1, l.subCache.Len())
}
