// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package lll

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReduceRange(t *testing.T) {
	min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
	max := new(big.Int).Lsh(big.NewInt(1), 256)

	_, err := Reduce(min)
	require.NoError(t, err)

	_, err = Reduce(new(big.Int).Sub(min, big.NewInt(1)))
	require.Error(t, err)

	_, err = Reduce(new(big.Int).Sub(max, big.NewInt(1)))
	require.NoError(t, err)

	_, err = Reduce(max)
	require.Error(t, err)
}

func TestReduceWrapsNegatives(t *testing.T) {
	u, err := Reduce(big.NewInt(-1))
	require.NoError(t, err)
	want := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	require.Equal(t, 0, u.ToBig().Cmp(want))
}

func TestMinimalBytesZero(t *testing.T) {
	u, err := Reduce(big.NewInt(0))
	require.NoError(t, err)
	require.Equal(t, []byte{0}, MinimalBytes(u))
}

func TestMinimalBytesNonzero(t *testing.T) {
	u, err := Reduce(big.NewInt(42))
	require.NoError(t, err)
	require.Equal(t, []byte{42}, MinimalBytes(u))

	u, err = Reduce(big.NewInt(256))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0}, MinimalBytes(u))
}

func TestFromListBuildsNestedTree(t *testing.T) {
	n := FromList([]Atom{"add", 1, []Atom{"mul", 2, 3}})
	require.Equal(t, "add", n.Symbol)
	require.Len(t, n.Args, 2)
	require.True(t, n.Args[0].Int)
	require.Equal(t, "mul", n.Args[1].Symbol)
}
