// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package lll defines the LLL tree: the input to the gas estimator and the
// assembly generator. A node is either an integer literal or a symbolic
// operator/identifier, carries an ordered list of child nodes, and a
// precomputed valency (0 or 1) — the number of 256-bit words it leaves on
// the operand stack once evaluated.
package lll

import (
	"fmt"
	"math/big"

	"github.com/probechain/lllc/lang/lllerr"
)

// Node is one node of an LLL tree.
//
// Exactly one of Value (an integer literal) or Symbol (an opcode mnemonic,
// pseudo-form keyword, or bound identifier) is meaningful; Int reports
// which. Args are evaluated left-to-right by the surrounding construct
// unless the construct says otherwise (opcode invocations lower their
// children in reverse — see lang/asm).
type Node struct {
	Symbol  string   // meaningful when Int == false
	Value   *big.Int // meaningful when Int == true
	Int     bool
	Args    []*Node
	Valency int // 0 or 1

	Pos lllerr.Pos // zero unless produced by lang/parser
}

// Int creates an integer literal node. Valency is always 1 for a literal.
func Int(v *big.Int) *Node {
	return &Node{Int: true, Value: new(big.Int).Set(v), Valency: 1}
}

// IntFromInt64 is a convenience constructor for small literals in tests and
// hand-built trees.
func IntFromInt64(v int64) *Node {
	return Int(big.NewInt(v))
}

// Sym creates a symbolic node (an opcode, pseudo-op, or identifier
// reference) with the given children and valency.
func Sym(symbol string, valency int, args ...*Node) *Node {
	return &Node{Symbol: symbol, Valency: valency, Args: args}
}

// String renders a node as a parenthesized s-expression, mainly for debug
// output and test failure messages.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Int {
		return n.Value.String()
	}
	if len(n.Args) == 0 {
		return n.Symbol
	}
	s := "(" + n.Symbol
	for _, a := range n.Args {
		s += " " + a.String()
	}
	return s + ")"
}

// Atom is one element of the nested-list shape accepted by FromList: either
// a *big.Int / int / string literal, or a []Atom sublist.
type Atom interface{}

// FromList builds a Node tree from a nested list of literals and symbols,
// the same shape the surface parser produces and the shape the compiler's
// own derived-comparison and ceil32 rewrites build by hand. The first
// element of a list names the operator. Every node FromList builds has
// valency 1, including forms such as seq/with/if/set/pass/repeat/break/
// assert whose real valency depends on context; every use site in this
// compiler builds expression trees, and callers that need valency 0 set
// Node.Valency directly after the call.
func FromList(list []Atom) *Node {
	if len(list) == 0 {
		panic("lll.FromList: empty list")
	}
	head, ok := list[0].(string)
	if !ok {
		panic(fmt.Sprintf("lll.FromList: list head must be a symbol, got %T", list[0]))
	}
	n := &Node{Symbol: head, Valency: 1}
	for _, elem := range list[1:] {
		n.Args = append(n.Args, fromAtom(elem))
	}
	return n
}

func fromAtom(a Atom) *Node {
	switch v := a.(type) {
	case *Node:
		return v
	case *big.Int:
		return Int(v)
	case int:
		return IntFromInt64(int64(v))
	case int64:
		return IntFromInt64(v)
	case string:
		return &Node{Symbol: v, Valency: 1}
	case []Atom:
		return FromList(v)
	default:
		panic(fmt.Sprintf("lll.FromList: unsupported atom type %T", a))
	}
}
