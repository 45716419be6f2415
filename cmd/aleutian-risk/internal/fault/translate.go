// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package fault

import (
	"fmt"

	"github.com/AleutianAI/AleutianRisk/cmd/aleutian-risk/internal/model"
)

// Translation ties an indexed tree to the source events behind its
// leaf indices. Basic events take indices 1..B in declaration order,
// house-event constants B+1..B+H, and gates start at B+H+1.
type Translation struct {
	Tree *Tree

	// Basics holds the source basic events; Basics[i-1] backs leaf
	// index i.
	Basics []*model.BasicEvent

	// IndexOf resolves an event or gate name to its index.
	IndexOf map[string]int

	houses []*model.HouseEvent
}

// Event returns the source basic event behind a leaf index, or nil
// for constants and gates.
func (tr *Translation) Event(index int) *model.BasicEvent {
	if index >= 1 && index <= len(tr.Basics) {
		return tr.Basics[index-1]
	}
	return nil
}

// NameOf returns the source name behind a leaf index.
func (tr *Translation) NameOf(index int) string {
	if e := tr.Event(index); e != nil {
		return e.Name
	}
	if h := index - len(tr.Basics); h >= 1 && h <= len(tr.houses) {
		return tr.houses[h-1].Name
	}
	return ""
}

// Translate flattens one source fault tree into an indexed Tree.
//
// Every basic and house event of the model receives a leaf index,
// every named gate an indexed gate; nested anonymous formulas become
// fresh gates. The ccf map substitutes basic-event references that
// belong to expanded common-cause groups with their expansion
// formulas; pass nil when CCF analysis is off.
func Translate(ft *model.FaultTree, m *model.Model, ccf map[string]*model.Formula) (*Translation, error) {
	tr := &Translation{IndexOf: make(map[string]int)}

	for _, name := range m.BasicOrder() {
		tr.Basics = append(tr.Basics, m.BasicEvents[name])
		tr.IndexOf[name] = len(tr.Basics)
	}
	offset := len(tr.Basics)
	for _, name := range m.HouseOrder() {
		tr.houses = append(tr.houses, m.HouseEvents[name])
		tr.IndexOf[name] = offset + len(tr.houses)
	}

	tr.Tree = NewTree(offset + len(tr.houses) + 1)
	for i := range tr.Basics {
		tr.Tree.AddBasic(NewBasicEvent(i + 1))
	}
	for i, h := range tr.houses {
		tr.Tree.AddConstant(NewConstant(offset+i+1, h.State))
	}

	b := &builder{
		tree:  tr.Tree,
		tr:    tr,
		ccf:   ccf,
		named: make(map[string]*Gate),
	}
	for _, name := range ft.GateOrder {
		gate := b.tree.NewGate(gateTypeOf(ft.Gates[name].Formula.Op))
		tr.IndexOf[name] = gate.Index()
		b.named[name] = gate
	}
	for _, name := range ft.GateOrder {
		if err := b.fill(b.named[name], ft.Gates[name].Formula); err != nil {
			return nil, err
		}
	}

	top := ft.TopGate()
	if top == "" {
		return nil, &UnresolvedError{Name: ft.Name + " top event"}
	}
	tr.Tree.SetTopIndex(tr.IndexOf[top])
	tr.Tree.RefreshParents()
	return tr, nil
}

type builder struct {
	tree *Tree
	tr   *Translation
	ccf  map[string]*model.Formula

	named    map[string]*Gate
	ccfGates map[string]int
}

// fill resolves the arguments of one formula into signed children of
// the gate.
func (b *builder) fill(g *Gate, f *model.Formula) error {
	g.SetVoteNumber(f.VoteNumber)
	for _, ref := range f.Refs {
		index, err := b.resolve(ref)
		if err != nil {
			return err
		}
		g.AddChild(index)
	}
	for _, sub := range f.Subs {
		index, err := b.subgate(sub)
		if err != nil {
			return err
		}
		g.AddChild(index)
	}
	if g.Type() == TypeNot || g.Type() == TypeNull {
		if len(g.Children()) != 1 && g.State() == StateNormal {
			return fmt.Errorf("%w: %v gate takes one argument, got %d",
				ErrInput, g.Type(), len(g.Children()))
		}
	}
	return nil
}

// subgate converts a nested anonymous formula into a signed child
// index. A bare single-reference pass-through or negation folds into
// the sign bit instead of creating a gate.
func (b *builder) subgate(f *model.Formula) (int, error) {
	if len(f.Subs) == 0 && len(f.Refs) == 1 {
		index, err := b.resolve(f.Refs[0])
		if err != nil {
			return 0, err
		}
		switch f.Op {
		case model.OpNull:
			return index, nil
		case model.OpNot:
			return -index, nil
		}
	}
	gate := b.tree.NewGate(gateTypeOf(f.Op))
	if err := b.fill(gate, f); err != nil {
		return 0, err
	}
	return gate.Index(), nil
}

// resolve maps a name to an index: named gates first, then CCF
// expansions, then basic and house events.
func (b *builder) resolve(name string) (int, error) {
	if g, ok := b.named[name]; ok {
		return g.Index(), nil
	}
	if formula, ok := b.ccf[name]; ok {
		return b.ccfGate(name, formula)
	}
	if index, ok := b.tr.IndexOf[name]; ok {
		return index, nil
	}
	return 0, &UnresolvedError{Name: name}
}

// ccfGate builds (once) the gate replacing a CCF group member.
func (b *builder) ccfGate(name string, formula *model.Formula) (int, error) {
	if b.ccfGates == nil {
		b.ccfGates = make(map[string]int)
	}
	if index, ok := b.ccfGates[name]; ok {
		return index, nil
	}
	gate := b.tree.NewGate(gateTypeOf(formula.Op))
	b.ccfGates[name] = gate.Index()
	if err := b.fill(gate, formula); err != nil {
		return 0, err
	}
	return gate.Index(), nil
}

// gateTypeOf maps a formula operator to the indexed gate type.
func gateTypeOf(op string) GateType {
	switch op {
	case model.OpAnd:
		return TypeAnd
	case model.OpOr:
		return TypeOr
	case model.OpAtleast:
		return TypeAtleast
	case model.OpXor:
		return TypeXor
	case model.OpNot:
		return TypeNot
	case model.OpNand:
		return TypeNand
	case model.OpNor:
		return TypeNor
	default:
		return TypeNull
	}
}
