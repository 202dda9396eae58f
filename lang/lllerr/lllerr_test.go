// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package lllerr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewHasNoPosition(t *testing.T) {
	err := New(BindingTooDeep, "k=%d exceeds 16", 20)
	require.Equal(t, "binding too deep: k=20 exceeds 16", err.Error())
}

func TestAtIncludesPosition(t *testing.T) {
	err := At(Pos{File: "a.lll", Line: 4, Column: 9}, MalformedNode, "bad arity")
	require.Equal(t, "a.lll:4:9: malformed node: bad arity", err.Error())
}

func TestKindStrings(t *testing.T) {
	require.Equal(t, "literal out of range", LiteralRange.String())
	require.Equal(t, "invalid break", InvalidBreak.String())
	require.Equal(t, "encoder failure", EncoderFailure.String())
}

func TestCompileErrorSatisfiesErrorInterface(t *testing.T) {
	var err error = New(MalformedNode, "x")
	require.Error(t, err)
}
