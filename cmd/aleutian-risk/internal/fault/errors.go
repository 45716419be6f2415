// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package fault

import (
	"errors"
	"fmt"
)

// Sentinel errors for tree construction and preprocessing.
var (
	// ErrInput marks malformed source models: unresolved references,
	// cyclic gate definitions, empty formulas.
	ErrInput = errors.New("invalid fault-tree input")

	// ErrInvariant marks states that indicate a bug in the engine, not
	// in the input: an unexpected gate type after normalization, a
	// missing index, a mutation of a terminal gate.
	ErrInvariant = errors.New("fault-tree invariant violated")
)

// CycleError reports a cyclic gate reference found during traversal.
type CycleError struct {
	// GateIndex is the index of the gate that closes the cycle.
	GateIndex int
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic reference through gate %d", e.GateIndex)
}

// Unwrap returns the sentinel error.
func (e *CycleError) Unwrap() error {
	return ErrInput
}

// UnresolvedError reports a name that could not be resolved to an
// event or gate during translation.
type UnresolvedError struct {
	Name string
}

// Error implements the error interface.
func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved reference %q", e.Name)
}

// Unwrap returns the sentinel error.
func (e *UnresolvedError) Unwrap() error {
	return ErrInput
}

// invariantf builds an ErrInvariant with a formatted diagnostic.
func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
