// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package symbol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFreshIsUniqueAndScoped(t *testing.T) {
	a := New()
	first := a.Fresh()
	second := a.Fresh()
	require.NotEqual(t, first, second)

	b := New()
	require.Equal(t, first, b.Fresh(), "a fresh allocator restarts its own counter")
}

func TestFreshFormat(t *testing.T) {
	a := New()
	require.Equal(t, "_sym_1", a.Fresh())
	require.Equal(t, "_sym_2", a.Fresh())
}

func TestIsLabel(t *testing.T) {
	require.True(t, IsLabel("_sym_1"))
	require.False(t, IsLabel("add"))
	require.False(t, IsLabel(""))
}
