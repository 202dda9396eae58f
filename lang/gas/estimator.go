// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package gas computes a static upper bound on the execution cost of an LLL
// tree, using the same opcode cost table the assembly generator lowers
// against. It is an independent analysis: callers may run it without ever
// invoking lang/asm, and vice versa (spec.md §7).
package gas

import (
	"fmt"

	"github.com/probechain/lllc/lang/lll"
	"github.com/probechain/lllc/lang/lllerr"
	"github.com/probechain/lllc/lang/opcodes"
)

// popGas is the base gas of a single POP, used to price the stack cleanup a
// `break` performs before jumping out of a loop (spec.md §4.C).
var popGas = func() int {
	info, _ := opcodes.Lookup("POP")
	return info.Gas
}()

// Estimate returns a static upper bound on the gas cost of evaluating node.
// depth is the current nesting level of the estimator's own call stack,
// threaded through so that `break` can account for the cleanup POPs it
// performs at its actual nesting depth.
func Estimate(node *lll.Node, depth int) (int, error) {
	switch {
	case node.Int:
		return 3, nil

	case isOpcodeForm(node.Symbol):
		return estimateOpcode(node, depth)

	case node.Symbol == "if":
		return estimateIf(node, depth)

	case node.Symbol == "with":
		return estimateWith(node, depth)

	case node.Symbol == "repeat":
		return estimateRepeat(node, depth)

	case node.Symbol == "seq":
		return estimateSeq(node, depth)

	case node.Symbol != "":
		// Any other symbolic form (pass, set, break's siblings inside a
		// binding, bound-variable references, ...) is priced as a flat
		// small constant, matching the reference estimator's catch-all.
		return 3, nil

	default:
		return 0, fmt.Errorf("gas: %w", lllerr.New(lllerr.MalformedNode, "node has neither a value nor a symbol"))
	}
}

func isOpcodeForm(symbol string) bool {
	if symbol == "" {
		return false
	}
	_, ok := opcodes.Lookup(symbol)
	return ok
}

func estimateOpcode(node *lll.Node, depth int) (int, error) {
	info, _ := opcodes.Lookup(node.Symbol)

	total := info.Gas
	// Children are costed right-to-left, mirroring the reverse evaluation
	// order the assembly generator uses for opcode invocations.
	for i := len(node.Args) - 1; i >= 0; i-- {
		reverseIdx := len(node.Args) - 1 - i
		c, err := Estimate(node.Args[i], depth+reverseIdx)
		if err != nil {
			return 0, err
		}
		total += c
	}

	switch node.Symbol {
	case "CALL", "call":
		// Worst-case surcharge applies unless the value argument is
		// provably the literal 0 — a computed (symbolic) value argument
		// is exactly the case this is meant to bound, not exempt
		// (original_source/viper/compile_lll.py:25: `code.args[2].value != 0`,
		// which is true for any non-literal AST node).
		if len(node.Args) > 2 && (!node.Args[2].Int || node.Args[2].Value.Sign() != 0) {
			total += 34000
		}
	case "SSTORE", "sstore":
		if len(node.Args) > 1 && (!node.Args[1].Int || node.Args[1].Value.Sign() != 0) {
			total += 15000
		}
	case "SUICIDE", "suicide", "SELFDESTRUCT", "selfdestruct":
		total += 25000
	case "BREAK", "break":
		total += popGas * depth
	}

	return total, nil
}

func estimateIf(node *lll.Node, depth int) (int, error) {
	switch len(node.Args) {
	case 2:
		c0, err := Estimate(node.Args[0], depth+1)
		if err != nil {
			return 0, err
		}
		c1, err := Estimate(node.Args[1], depth+1)
		if err != nil {
			return 0, err
		}
		return c0 + c1 + 17, nil
	case 3:
		c0, err := Estimate(node.Args[0], depth+1)
		if err != nil {
			return 0, err
		}
		c1, err := Estimate(node.Args[1], depth+1)
		if err != nil {
			return 0, err
		}
		c2, err := Estimate(node.Args[2], depth+1)
		if err != nil {
			return 0, err
		}
		if c1 > c2 {
			return c0 + c1 + 31, nil
		}
		return c0 + c2 + 31, nil
	default:
		return 0, fmt.Errorf("gas: %w", lllerr.New(lllerr.MalformedNode, "if statement must have 2 or 3 child elements, got %d", len(node.Args)))
	}
}

func estimateWith(node *lll.Node, depth int) (int, error) {
	if len(node.Args) != 3 {
		return 0, fmt.Errorf("gas: %w", lllerr.New(lllerr.MalformedNode, "with expects 3 arguments, got %d", len(node.Args)))
	}
	c1, err := Estimate(node.Args[1], depth+1)
	if err != nil {
		return 0, err
	}
	c2, err := Estimate(node.Args[2], depth+1)
	if err != nil {
		return 0, err
	}
	return c1 + c2 + 5, nil
}

func estimateRepeat(node *lll.Node, depth int) (int, error) {
	if len(node.Args) != 4 {
		return 0, fmt.Errorf("gas: %w", lllerr.New(lllerr.MalformedNode, "repeat expects 4 arguments, got %d", len(node.Args)))
	}
	if !node.Args[2].Int {
		return 0, fmt.Errorf("gas: %w", lllerr.New(lllerr.MalformedNode, "repeat's round count must be a literal integer"))
	}
	body, err := Estimate(node.Args[3], depth+1)
	if err != nil {
		return 0, err
	}
	n := node.Args[2].Value.Int64()
	return (body+50)*int(n) + 30, nil
}

func estimateSeq(node *lll.Node, depth int) (int, error) {
	total := 0
	for _, c := range node.Args {
		cost, err := Estimate(c, depth+1)
		if err != nil {
			return 0, err
		}
		total += cost
	}
	return total, nil
}
