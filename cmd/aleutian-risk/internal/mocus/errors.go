// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mocus

import (
	"fmt"

	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/fault"
)

// invariantf builds a fault.ErrInvariant diagnostic. Any invariant
// failure here points at a preprocessing bug.
func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", fault.ErrInvariant, fmt.Sprintf(format, args...))
}
