// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package lllerr defines the error type shared by every stage of the LLL
// compiler (gas estimation, assembly generation, linking). Every failure is
// fatal to the compilation it occurred in; there is no recovery path.
package lllerr

import "fmt"

// Kind categorizes a compile failure.
type Kind int

const (
	// LiteralRange: an integer literal fell outside [-2^255, 2^256).
	LiteralRange Kind = iota
	// BindingTooDeep: a `with`/`set` reference needs a DUP/SWAP offset > 16.
	BindingTooDeep
	// InvalidBreak: `break` appeared outside of any enclosing `repeat`.
	InvalidBreak
	// MalformedNode: wrong arity, unknown symbolic value, or similar shape error.
	MalformedNode
	// EncoderFailure: the linker encountered a token it could not resolve.
	EncoderFailure
)

func (k Kind) String() string {
	switch k {
	case LiteralRange:
		return "literal out of range"
	case BindingTooDeep:
		return "binding too deep"
	case InvalidBreak:
		return "invalid break"
	case MalformedNode:
		return "malformed node"
	case EncoderFailure:
		return "encoder failure"
	default:
		return "unknown error"
	}
}

// Pos is a source position, populated only when the originating node came
// from the surface-syntax reader (lang/parser). A zero Pos is not itself an
// error; trees built directly via lll.FromList never carry one.
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) String() string {
	if p.File == "" && p.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// CompileError is returned by every CORE component on failure.
type CompileError struct {
	Kind    Kind
	Message string
	Pos     Pos
}

func (e *CompileError) Error() string {
	if s := e.Pos.String(); s != "" {
		return fmt.Sprintf("%s: %s: %s", s, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New constructs a CompileError with no position information.
func New(kind Kind, format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// At constructs a CompileError carrying the given source position.
func At(pos Pos, kind Kind, format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos}
}
