// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeStringNames(t *testing.T) {
	require.Equal(t, "SYMBOL", SYMBOL.String())
	require.Equal(t, "INT", INT.String())
	require.Equal(t, "LPAREN", LPAREN.String())
	require.Equal(t, "RPAREN", RPAREN.String())
	require.Equal(t, "EOF", EOF.String())
	require.Equal(t, "ILLEGAL", ILLEGAL.String())
}

func TestPositionString(t *testing.T) {
	p := Position{File: "foo.lll", Line: 3, Column: 7}
	require.Equal(t, "foo.lll:3:7", p.String())
}

func TestTokenString(t *testing.T) {
	tok := Token{Type: SYMBOL, Literal: "add", Pos: Position{File: "foo.lll", Line: 1, Column: 2}}
	require.Contains(t, tok.String(), "add")
	require.Contains(t, tok.String(), "SYMBOL")
}
