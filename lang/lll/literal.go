// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package lll

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/probechain/lllc/lang/lllerr"
)

var (
	minLiteral = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255)) // -2^255
	maxLiteral = new(big.Int).Lsh(big.NewInt(1), 256)                   // 2^256 (exclusive bound)
	modulus    = new(big.Int).Lsh(big.NewInt(1), 256)                   // 2^256
)

// Reduce validates that v falls within spec.md §4.D's literal range,
// [-2^255, 2^256), and returns v mod 2^256 as a uint256.Int — the same
// 256-bit type the retrieved go-ethereum EVM interpreter uses for stack
// words, so the rest of the pipeline never has to juggle math/big sign
// bits once a literal has passed through here.
func Reduce(v *big.Int) (*uint256.Int, error) {
	if v.Cmp(minLiteral) < 0 {
		return nil, lllerr.New(lllerr.LiteralRange, "value too low: %s", v.String())
	}
	if v.Cmp(maxLiteral) >= 0 {
		return nil, lllerr.New(lllerr.LiteralRange, "value too high: %s", v.String())
	}
	reduced := new(big.Int).Mod(v, modulus)
	u, overflow := uint256.FromBig(reduced)
	if overflow {
		// Unreachable given the range check above; guarded defensively
		// because uint256.FromBig's overflow flag is the only signal it
		// gives for a value that doesn't fit in 256 bits.
		return nil, lllerr.New(lllerr.LiteralRange, "value does not fit in 256 bits: %s", v.String())
	}
	return u, nil
}

// MinimalBytes returns the minimal big-endian byte encoding of v, per
// spec.md testable property 4: length >= 1, and v == 0 encodes as a single
// zero byte.
func MinimalBytes(v *uint256.Int) []byte {
	b := v.Bytes() // big-endian, no leading zero padding; empty for zero
	if len(b) == 0 {
		return []byte{0}
	}
	return b
}
