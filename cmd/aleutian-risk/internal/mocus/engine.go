// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package mocus generates the minimal cut sets of a preprocessed
// fault tree.
//
// # Description
//
// The engine expands the canonical AND/OR graph bottom-up: the cut-set
// family of an OR gate is the union of its children's families, the
// family of an AND gate the pairwise-union product. Candidates larger
// than the order limit are discarded the moment they are formed, and
// supersets are eliminated after every union or product, so the
// working families stay minimal throughout.
//
// Module gates are expanded once and memoized; the module invariant
// (no shared basic events) guarantees the cached family is valid in
// every context.
//
// # Failure Semantics
//
// Generate aborts with a diagnostic if the graph still holds an
// un-normalized gate type, a constant leaf, or a cycle — all of which
// indicate a preprocessing bug, not bad input. An empty family is a
// legitimate result.
package mocus

import (
	"slices"

	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/fault"
)

// CutSet is a sorted set of signed basic-event indices. A negative
// literal is the complement of the event with that absolute index.
type CutSet []int

// Result is the outcome of cut-set generation.
type Result struct {
	// Sets holds the minimal cut sets ordered by size, then
	// lexicographically. No set is a superset of another.
	Sets []CutSet

	// MaxOrder is the largest observed cut-set cardinality.
	MaxOrder int

	// Distribution counts cut sets by order; Distribution[k] is the
	// number of sets of size k, for k in [0, MaxOrder].
	Distribution []int
}

// Generate computes the minimal cut sets of the preprocessed tree,
// honoring the order limit.
func Generate(t *fault.Tree, limitOrder int) (*Result, error) {
	e := &engine{tree: t, limit: limitOrder, memo: make(map[int][]CutSet)}

	var sets []CutSet
	switch t.Top().State() {
	case fault.StateNull:
		sets = nil
	case fault.StateUnity:
		sets = []CutSet{{}}
	default:
		var err error
		sets, err = e.expand(t.TopIndex())
		if err != nil {
			return nil, err
		}
	}
	return summarize(sets), nil
}

func summarize(sets []CutSet) *Result {
	res := &Result{Sets: sets}
	for _, s := range sets {
		if len(s) > res.MaxOrder {
			res.MaxOrder = len(s)
		}
	}
	res.Distribution = make([]int, res.MaxOrder+1)
	for _, s := range sets {
		res.Distribution[len(s)]++
	}
	return res
}

type engine struct {
	tree    *fault.Tree
	limit   int
	memo    map[int][]CutSet
	onStack map[int]bool
}

// expand returns the minimal cut-set family of one gate, memoized.
func (e *engine) expand(index int) ([]CutSet, error) {
	if family, ok := e.memo[index]; ok {
		return family, nil
	}
	if e.onStack == nil {
		e.onStack = make(map[int]bool)
	}
	if e.onStack[index] {
		return nil, &fault.CycleError{GateIndex: index}
	}
	e.onStack[index] = true
	defer delete(e.onStack, index)

	g := e.tree.Gate(index)
	families := make([][]CutSet, 0, len(g.Children()))
	for _, c := range g.Children() {
		child := c
		if child < 0 {
			child = -child
		}
		switch {
		case e.tree.IsGateIndex(child):
			if c < 0 {
				return nil, invariantf("complemented gate child %d survived preprocessing", c)
			}
			sub, err := e.expand(child)
			if err != nil {
				return nil, err
			}
			families = append(families, sub)
		case e.tree.Basic(child) != nil:
			families = append(families, []CutSet{{c}})
		default:
			return nil, invariantf("constant leaf %d survived preprocessing", child)
		}
	}

	var family []CutSet
	switch g.Type() {
	case fault.TypeOr:
		for _, f := range families {
			family = append(family, f...)
		}
		family = minimize(family)
	case fault.TypeAnd:
		family = []CutSet{{}}
		for _, f := range families {
			family = e.product(family, f)
			if len(family) == 0 {
				break
			}
		}
	default:
		return nil, invariantf("gate %d of type %v survived preprocessing", index, g.Type())
	}

	e.memo[index] = family
	return family, nil
}

// product combines two families set-by-set, discarding candidates
// above the order limit or carrying a complement pair, and keeps only
// the minimal results.
func (e *engine) product(left, right []CutSet) []CutSet {
	var result []CutSet
	for _, a := range left {
		for _, b := range right {
			if u, ok := union(a, b, e.limit); ok {
				result = append(result, u)
			}
		}
	}
	return minimize(result)
}

// union merges two sorted literal sets. Reports false when the merge
// exceeds the order limit or contains both a literal and its
// complement.
func union(a, b CutSet, limit int) (CutSet, bool) {
	merged := make(CutSet, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			merged = append(merged, a[i])
			i++
			j++
		case a[i] < b[j]:
			merged = append(merged, a[i])
			i++
		default:
			merged = append(merged, b[j])
			j++
		}
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)
	if len(merged) > limit {
		return nil, false
	}
	for k := range merged {
		if _, ok := slices.BinarySearch(merged, -merged[k]); ok {
			return nil, false // contradictory set has probability zero
		}
	}
	return merged, true
}

// minimize drops duplicates and supersets. Sets are ordered by size
// then lexicographically, so every potential subset is examined
// before its supersets.
func minimize(sets []CutSet) []CutSet {
	slices.SortFunc(sets, compareSets)
	sets = slices.CompactFunc(sets, slices.Equal)

	result := sets[:0:0]
	for _, s := range sets {
		minimal := true
		for _, kept := range result {
			if len(kept) > len(s) {
				break // result is size-ordered; no subset can follow
			}
			if subset(kept, s) {
				minimal = false
				break
			}
		}
		if minimal {
			result = append(result, s)
		}
	}
	return result
}

// compareSets orders by cardinality first, then lexicographically.
func compareSets(a, b CutSet) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return slices.Compare(a, b)
}

// subset reports whether every literal of a is in b. Both sets are
// sorted.
func subset(a, b CutSet) bool {
	i := 0
	for _, v := range b {
		if i == len(a) {
			return true
		}
		if a[i] == v {
			i++
		}
	}
	return i == len(a)
}
