// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package opcodes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupCaseInsensitive(t *testing.T) {
	a, ok := Lookup("add")
	require.True(t, ok)
	b, ok := Lookup("ADD")
	require.True(t, ok)
	require.Equal(t, a, b)
	require.Equal(t, byte(0x01), a.Byte)
	require.Equal(t, 2, a.InArity)
	require.Equal(t, 1, a.OutArity)
}

func TestLookupPseudoWidths(t *testing.T) {
	push7, ok := Lookup("PUSH7")
	require.True(t, ok)
	require.True(t, push7.Pseudo)
	require.Equal(t, 0, push7.InArity)
	require.Equal(t, 1, push7.OutArity)

	dup3, ok := Lookup("DUP3")
	require.True(t, ok)
	require.Equal(t, 3, dup3.InArity)
	require.Equal(t, 1, dup3.OutArity)

	swap16, ok := Lookup("SWAP16")
	require.True(t, ok)
	require.Equal(t, 17, swap16.InArity)
	require.Equal(t, 17, swap16.OutArity)
}

func TestLookupBreakIsPseudo(t *testing.T) {
	info, ok := Lookup("break")
	require.True(t, ok)
	require.True(t, info.Pseudo)
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Lookup("NOTANOPCODE")
	require.False(t, ok)
	_, ok = Lookup("PUSH0extra")
	require.False(t, ok)
	_, ok = Lookup("DUP")
	require.True(t, ok) // bare family name resolves via the pseudo map
}

func TestIsReal(t *testing.T) {
	require.True(t, IsReal("JUMPDEST"))
	require.False(t, IsReal("PUSH1"))
	require.False(t, IsReal("DUP1"))
}

func TestAllSortedByByte(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		require.LessOrEqual(t, all[i-1].Info.Byte, all[i].Info.Byte)
	}
}

func TestSurchargeOpcodesPresent(t *testing.T) {
	for _, name := range []string{"CALL", "SSTORE", "SUICIDE", "SELFDESTRUCT"} {
		_, ok := Lookup(name)
		require.True(t, ok, "%s must be in the table", name)
	}
}
