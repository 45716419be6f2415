// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package model holds the source fault-tree model: named gates with
// Boolean formulas, basic events with probability expressions, house
// events, and common-cause failure groups, together with the OPSA-MEF
// XML reader that produces them.
//
// The model is the input side of the engine. It keeps names and
// declaration order; the indexed representation used by the analyses
// lives in the fault package.
package model
