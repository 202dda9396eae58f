// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package symbol allocates fresh label tokens for one compilation.
//
// The reference LLL compiler keeps a process-wide counter, so label tokens
// leak between independent compilations (spec.md §9). This Allocator is
// instead owned by a single lang/asm.Generator call, matching the
// concurrency model in spec.md §5: "Multiple independent compilations may
// run concurrently only if each owns its own symbol counter."
package symbol

import "fmt"

// Allocator hands out unique label tokens scoped to one compilation.
type Allocator struct {
	next int
}

// New creates an allocator starting from symbol 1.
func New() *Allocator {
	return &Allocator{}
}

// Fresh returns a new, previously unused label token of the form "_sym_<n>".
func (a *Allocator) Fresh() string {
	a.next++
	return fmt.Sprintf("_sym_%d", a.next)
}

// IsLabel reports whether tok has the shape of a label token produced by
// Fresh, as opposed to a mnemonic, marker, or immediate byte.
func IsLabel(tok string) bool {
	return len(tok) > 5 && tok[:5] == "_sym_"
}
