// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for model construction.
var (
	// ErrParse marks malformed or schema-invalid model documents.
	ErrParse = errors.New("invalid model document")

	// ErrValue marks out-of-range numbers: probabilities outside
	// [0,1], non-monotone histogram intervals, negative weights.
	ErrValue = errors.New("invalid model value")

	// ErrDuplicate marks a name defined more than once.
	ErrDuplicate = errors.New("duplicate definition")
)

// parsef builds an ErrParse with a formatted diagnostic.
func parsef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

// valuef builds an ErrValue with a formatted diagnostic.
func valuef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValue, fmt.Sprintf(format, args...))
}
