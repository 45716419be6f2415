// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package fault

import "slices"

// Preprocess rewrites the tree into its canonical analysis form:
// only AND and OR gates, complements only as negative basic-event
// children, constants substituted, same-type single-parent gates
// coalesced, and independent modules flagged.
//
// If simplification collapses the whole tree, the top gate ends in a
// terminal state (Null or Unity) and the graph below it is empty.
func Preprocess(t *Tree) error {
	if err := t.CheckCycles(); err != nil {
		return err
	}
	p := &preprocessor{tree: t}
	if err := p.normalizeGates(); err != nil {
		return err
	}
	if err := p.propagateConstants(); err != nil {
		return err
	}
	if p.done() {
		return nil
	}
	p.propagateComplements()
	if err := p.propagateConstants(); err != nil {
		return err
	}
	if p.done() {
		return nil
	}
	p.coalesceGates()
	if err := p.propagateConstants(); err != nil {
		return err
	}
	if p.done() {
		return nil
	}
	p.detectModules()
	return p.verify()
}

type preprocessor struct {
	tree *Tree
}

// done reports whether the top gate collapsed to a terminal state.
func (p *preprocessor) done() bool {
	return p.tree.Top().State() != StateNormal
}

// reachable returns the indices of all gates reachable from the top,
// in ascending index order for deterministic iteration.
func (p *preprocessor) reachable() []int {
	seen := make(map[int]bool)
	var walk func(index int)
	walk = func(index int) {
		if seen[index] {
			return
		}
		seen[index] = true
		for _, c := range p.tree.Gate(index).Children() {
			if child := abs(c); p.tree.IsGateIndex(child) {
				walk(child)
			}
		}
	}
	walk(p.tree.TopIndex())
	indices := make([]int, 0, len(seen))
	for i := range seen {
		indices = append(indices, i)
	}
	slices.Sort(indices)
	return indices
}

// normalizeGates desugars the compound gate types. XOR becomes an OR
// of two signed AND gates, ATLEAST an OR over all k-combinations,
// NAND and NOR a NOT over a fresh AND or OR. Afterwards only AND, OR,
// NOT, and NULL types occur.
func (p *preprocessor) normalizeGates() error {
	for _, index := range p.reachable() {
		g := p.tree.Gate(index)
		if g.State() != StateNormal {
			continue // collapsed during translation; constants handle it
		}
		switch g.Type() {
		case TypeXor:
			if len(g.Children()) != 2 {
				return invariantf("xor gate %d has %d children", index, len(g.Children()))
			}
			a, b := g.Children()[0], g.Children()[1]
			left := p.tree.NewGate(TypeAnd)
			left.AddChild(a)
			left.AddChild(-b)
			right := p.tree.NewGate(TypeAnd)
			right.AddChild(-a)
			right.AddChild(b)
			g.EraseAllChildren()
			g.SetType(TypeOr)
			g.AddChild(left.Index())
			g.AddChild(right.Index())

		case TypeAtleast:
			if err := p.expandAtleast(g); err != nil {
				return err
			}

		case TypeNand:
			inner := p.tree.NewGate(TypeAnd)
			for _, c := range g.Children() {
				inner.AddChild(c)
			}
			g.EraseAllChildren()
			g.SetType(TypeNot)
			g.AddChild(inner.Index())

		case TypeNor:
			inner := p.tree.NewGate(TypeOr)
			for _, c := range g.Children() {
				inner.AddChild(c)
			}
			g.EraseAllChildren()
			g.SetType(TypeNot)
			g.AddChild(inner.Index())
		}
	}
	return nil
}

// expandAtleast rewrites a k-of-n vote gate into an OR over the AND
// of every k-combination of its children. The degenerate votes fold
// directly into OR and AND.
func (p *preprocessor) expandAtleast(g *Gate) error {
	k := g.VoteNumber()
	children := slices.Clone(g.Children())
	n := len(children)
	switch {
	case k <= 1:
		g.SetType(TypeOr)
		return nil
	case k == n:
		g.SetType(TypeAnd)
		return nil
	case k > n:
		g.Nullify() // can never collect enough votes
		return nil
	}
	g.EraseAllChildren()
	g.SetType(TypeOr)
	for _, combo := range combinations(children, k) {
		and := p.tree.NewGate(TypeAnd)
		for _, c := range combo {
			and.AddChild(c)
		}
		g.AddChild(and.Index())
	}
	return nil
}

// combinations enumerates all k-element subsets of items in a stable
// order.
func combinations(items []int, k int) [][]int {
	var result [][]int
	combo := make([]int, 0, k)
	var build func(start int)
	build = func(start int) {
		if len(combo) == k {
			result = append(result, slices.Clone(combo))
			return
		}
		for i := start; i <= len(items)-(k-len(combo)); i++ {
			combo = append(combo, items[i])
			build(i + 1)
			combo = combo[:len(combo)-1]
		}
	}
	build(0)
	return result
}

// propagateConstants substitutes Boolean constants (house events and
// gates collapsed to a terminal state) into their parents, iterating
// to a fixpoint.
func (p *preprocessor) propagateConstants() error {
	for changed := true; changed; {
		changed = false
		for _, index := range p.reachable() {
			g := p.tree.Gate(index)
			if g.State() != StateNormal {
				continue
			}
			step, err := p.absorbConstants(g)
			if err != nil {
				return err
			}
			changed = changed || step
		}
	}
	return nil
}

// absorbConstants removes or applies every constant-valued child of
// one gate. Reports whether anything changed.
func (p *preprocessor) absorbConstants(g *Gate) (bool, error) {
	changed := false
	for _, c := range slices.Clone(g.Children()) {
		value, known := p.constantValue(c)
		if !known {
			continue
		}
		changed = true
		switch g.Type() {
		case TypeAnd:
			if !value {
				g.Nullify()
				return true, nil
			}
			g.EraseChild(c)
			if len(g.Children()) == 0 {
				g.MakeUnity()
				return true, nil
			}
		case TypeOr:
			if value {
				g.MakeUnity()
				return true, nil
			}
			g.EraseChild(c)
			if len(g.Children()) == 0 {
				g.Nullify()
				return true, nil
			}
		case TypeNot:
			if value {
				g.Nullify()
			} else {
				g.MakeUnity()
			}
			return true, nil
		case TypeNull:
			if value {
				g.MakeUnity()
			} else {
				g.Nullify()
			}
			return true, nil
		default:
			return false, invariantf("gate %d of type %v survived normalization", g.Index(), g.Type())
		}
	}
	return changed, nil
}

// constantValue resolves a signed child index to a Boolean value when
// the child is a constant node or a terminal-state gate.
func (p *preprocessor) constantValue(child int) (value, known bool) {
	index := abs(child)
	if p.tree.IsGateIndex(index) {
		switch p.tree.Gate(index).State() {
		case StateNull:
			value = false
		case StateUnity:
			value = true
		default:
			return false, false
		}
	} else if c := p.tree.ConstantNode(index); c != nil {
		value = c.State()
	} else {
		return false, false
	}
	if child < 0 {
		value = !value
	}
	return value, true
}

// propagateComplements pushes every NOT down to the leaves. First
// NOT and NULL gates are dissolved into sign bits on their parents'
// child edges, then each remaining negative gate child is replaced by
// a De Morgan complement gate (cached, so shared gates share their
// complement).
func (p *preprocessor) propagateComplements() {
	p.resolveTop()
	for changed := true; changed; {
		changed = false
		for _, index := range p.reachable() {
			g := p.tree.Gate(index)
			if g.State() != StateNormal {
				continue
			}
			for _, c := range slices.Clone(g.Children()) {
				child := abs(c)
				if !p.tree.IsGateIndex(child) {
					continue
				}
				h := p.tree.Gate(child)
				if h.State() != StateNormal {
					continue // constant propagation picks it up
				}
				switch h.Type() {
				case TypeNot:
					x := h.Children()[0]
					if c > 0 {
						g.SwapChild(c, -x)
					} else {
						g.SwapChild(c, x)
					}
					changed = true
				case TypeNull:
					x := h.Children()[0]
					if c > 0 {
						g.SwapChild(c, x)
					} else {
						g.SwapChild(c, -x)
					}
					changed = true
				}
			}
		}
	}

	complements := make(map[int]int)
	for changed := true; changed; {
		changed = false
		for _, index := range p.reachable() {
			g := p.tree.Gate(index)
			if g.State() != StateNormal {
				continue
			}
			for _, c := range slices.Clone(g.Children()) {
				child := -c
				if c >= 0 || !p.tree.IsGateIndex(child) {
					continue
				}
				if p.tree.Gate(child).State() != StateNormal {
					continue
				}
				g.SwapChild(c, p.complementOf(child, complements))
				changed = true
			}
		}
	}
}

// resolveTop unwraps NOT and NULL top gates so that the top is always
// an AND or OR gate (possibly with a single signed child).
func (p *preprocessor) resolveTop() {
	for {
		top := p.tree.Top()
		if top.State() != StateNormal || (top.Type() != TypeNot && top.Type() != TypeNull) {
			return
		}
		x := top.Children()[0]
		if top.Type() == TypeNot {
			x = -x
		}
		if p.tree.IsGateIndex(abs(x)) && x > 0 {
			p.tree.SetTopIndex(x)
			continue
		}
		wrapper := p.tree.NewGate(TypeOr)
		wrapper.AddChild(x)
		p.tree.SetTopIndex(wrapper.Index())
	}
}

// complementOf returns the index of the De Morgan complement of the
// given AND or OR gate, creating and caching it on first use.
func (p *preprocessor) complementOf(index int, cache map[int]int) int {
	if comp, ok := cache[index]; ok {
		return comp
	}
	g := p.tree.Gate(index)
	flipped := TypeOr
	if g.Type() == TypeOr {
		flipped = TypeAnd
	}
	comp := p.tree.NewGate(flipped)
	for _, c := range g.Children() {
		comp.AddChild(-c)
	}
	cache[index] = comp.Index()
	cache[comp.Index()] = index
	return comp.Index()
}

// coalesceGates absorbs same-type child gates that have exactly one
// parent and dissolves single-child pass-through gates, iterating to
// a fixpoint.
func (p *preprocessor) coalesceGates() {
	for changed := true; changed; {
		changed = false
		p.tree.RefreshParents()
		for _, index := range p.reachable() {
			g := p.tree.Gate(index)
			if g.State() != StateNormal {
				continue
			}
			for _, c := range slices.Clone(g.Children()) {
				if c < 0 || !p.tree.IsGateIndex(c) {
					continue
				}
				h := p.tree.Gate(c)
				if h.State() != StateNormal {
					continue
				}
				switch {
				case len(h.Children()) == 1:
					g.SwapChild(c, h.Children()[0])
					changed = true
				case h.Type() == g.Type() && len(h.Parents()) == 1 && !h.IsModule():
					g.JoinGate(h)
					changed = true
				}
			}
			if changed {
				break // children sets shifted; recompute parents
			}
		}
	}
}

// verify checks the post-preprocessing invariants: every reachable
// gate is a populated AND or OR, and negative children reference only
// basic events.
func (p *preprocessor) verify() error {
	for _, index := range p.reachable() {
		g := p.tree.Gate(index)
		if g.State() != StateNormal {
			continue
		}
		if g.Type() != TypeAnd && g.Type() != TypeOr {
			return invariantf("gate %d kept type %v after preprocessing", index, g.Type())
		}
		if len(g.Children()) == 0 {
			return invariantf("gate %d has no children after preprocessing", index)
		}
		for _, c := range g.Children() {
			if c < 0 && p.tree.IsGateIndex(-c) {
				return invariantf("gate %d keeps complemented gate child %d", index, c)
			}
		}
	}
	return nil
}
