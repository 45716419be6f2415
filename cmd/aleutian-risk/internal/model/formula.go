// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

import "fmt"

// Formula operators accepted in gate definitions.
const (
	OpAnd     = "and"
	OpOr      = "or"
	OpAtleast = "atleast"
	OpXor     = "xor"
	OpNot     = "not"
	OpNand    = "nand"
	OpNor     = "nor"
	OpNull    = "null"
)

// Formula is one Boolean operator over named event references and
// nested anonymous formulas.
type Formula struct {
	Op         string
	VoteNumber int // k for atleast

	// Refs are named references to gates, basic events, or house
	// events, in declaration order. Resolution happens during
	// indexing, so a reference's kind is not fixed here.
	Refs []string

	// Subs are nested anonymous formulas; each becomes a fresh gate
	// during indexing.
	Subs []*Formula
}

// Gate is a named internal node of the source tree.
type Gate struct {
	Name    string
	Formula *Formula
}

// FaultTree is one named tree: a set of gate definitions.
type FaultTree struct {
	Name      string
	Gates     map[string]*Gate
	GateOrder []string
}

// TopGate returns the gate that no other gate references — the top
// event. When several gates qualify the first declared wins; an empty
// tree returns "".
func (ft *FaultTree) TopGate() string {
	referenced := make(map[string]bool)
	for _, name := range ft.GateOrder {
		for _, ref := range ft.Gates[name].Formula.AllRefs() {
			referenced[ref] = true
		}
	}
	for _, name := range ft.GateOrder {
		if !referenced[name] {
			return name
		}
	}
	if len(ft.GateOrder) > 0 {
		return ft.GateOrder[0]
	}
	return ""
}

// AllRefs returns every name referenced by the formula and its nested
// formulas.
func (f *Formula) AllRefs() []string {
	refs := append([]string(nil), f.Refs...)
	for _, sub := range f.Subs {
		refs = append(refs, sub.AllRefs()...)
	}
	return refs
}

// Model is the complete parsed input: fault trees plus the event and
// CCF tables shared between them.
type Model struct {
	FaultTrees []*FaultTree

	BasicEvents map[string]*BasicEvent
	HouseEvents map[string]*HouseEvent
	CCFGroups   []*CCFGroup

	basicOrder []string
	houseOrder []string
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{
		BasicEvents: make(map[string]*BasicEvent),
		HouseEvents: make(map[string]*HouseEvent),
	}
}

// AddBasicEvent registers a basic event, keeping declaration order.
func (m *Model) AddBasicEvent(b *BasicEvent) error {
	if _, dup := m.BasicEvents[b.Name]; dup {
		return parsefDup(b.Name)
	}
	m.BasicEvents[b.Name] = b
	m.basicOrder = append(m.basicOrder, b.Name)
	return nil
}

// AddHouseEvent registers a house event, keeping declaration order.
func (m *Model) AddHouseEvent(h *HouseEvent) error {
	if _, dup := m.HouseEvents[h.Name]; dup {
		return parsefDup(h.Name)
	}
	m.HouseEvents[h.Name] = h
	m.houseOrder = append(m.houseOrder, h.Name)
	return nil
}

// BasicOrder returns basic-event names in declaration order. The
// order fixes the leaf index assignment, which makes analyses
// deterministic for a fixed input.
func (m *Model) BasicOrder() []string { return m.basicOrder }

// HouseOrder returns house-event names in declaration order.
func (m *Model) HouseOrder() []string { return m.houseOrder }

func parsefDup(name string) error {
	return fmt.Errorf("%w: %q", ErrDuplicate, name)
}
