// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Parse reads an OPSA-MEF model document.
//
// Recognized definitions: define-fault-tree with nested define-gate
// bodies (and|or|atleast|xor|not|nand|nor|null or a bare reference),
// define-basic-event with a probability expression, define-house-event
// with a Boolean constant, and define-CCF-group (beta-factor).
// Event definitions may appear inside a fault tree or in model-data.
//
// missionTime is the horizon used to convert exponential failure
// rates into probabilities.
func Parse(r io.Reader, missionTime float64) (*Model, error) {
	var root xmlNode
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if root.XMLName.Local != "opsa-mef" {
		return nil, parsef("root element is %q, want opsa-mef", root.XMLName.Local)
	}

	m := NewModel()
	p := &parser{model: m, missionTime: missionTime}
	for i := range root.Children {
		if err := p.definition(&root.Children[i]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ParseFiles reads several model documents into one merged model.
// Splitting a model across files (the tree in one, the basic events
// in another) is the common layout for benchmark suites.
func ParseFiles(paths []string, missionTime float64) (*Model, error) {
	merged := NewModel()
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("reading model %s: %w", path, err)
		}
		m, err := Parse(file, missionTime)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", path, err)
		}
		if err := merged.merge(m); err != nil {
			return nil, fmt.Errorf("model %s: %w", path, err)
		}
	}
	return merged, nil
}

// merge folds another model's definitions into this one.
func (m *Model) merge(other *Model) error {
	m.FaultTrees = append(m.FaultTrees, other.FaultTrees...)
	m.CCFGroups = append(m.CCFGroups, other.CCFGroups...)
	for _, name := range other.BasicOrder() {
		if err := m.AddBasicEvent(other.BasicEvents[name]); err != nil {
			return err
		}
	}
	for _, name := range other.HouseOrder() {
		if err := m.AddHouseEvent(other.HouseEvents[name]); err != nil {
			return err
		}
	}
	return nil
}

// xmlNode is a generic element used to walk the document without a
// fixed schema struct per formula shape.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:",any"`
}

func (n *xmlNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

type parser struct {
	model       *Model
	missionTime float64
}

func (p *parser) definition(n *xmlNode) error {
	switch n.XMLName.Local {
	case "define-fault-tree":
		return p.faultTree(n)
	case "model-data":
		for i := range n.Children {
			if err := p.definition(&n.Children[i]); err != nil {
				return err
			}
		}
		return nil
	case "define-basic-event":
		return p.basicEvent(n)
	case "define-house-event":
		return p.houseEvent(n)
	case "define-CCF-group":
		return p.ccfGroup(n)
	case "label", "attributes":
		return nil // annotations carry no analysis semantics
	default:
		return parsef("unexpected element <%s>", n.XMLName.Local)
	}
}

func (p *parser) faultTree(n *xmlNode) error {
	name, ok := n.attr("name")
	if !ok {
		return parsef("define-fault-tree without a name")
	}
	ft := &FaultTree{Name: name, Gates: make(map[string]*Gate)}
	for i := range n.Children {
		child := &n.Children[i]
		if child.XMLName.Local != "define-gate" {
			if err := p.definition(child); err != nil {
				return err
			}
			continue
		}
		gate, err := p.gate(child)
		if err != nil {
			return err
		}
		if _, dup := ft.Gates[gate.Name]; dup {
			return parsefDup(gate.Name)
		}
		ft.Gates[gate.Name] = gate
		ft.GateOrder = append(ft.GateOrder, gate.Name)
	}
	p.model.FaultTrees = append(p.model.FaultTrees, ft)
	return nil
}

func (p *parser) gate(n *xmlNode) (*Gate, error) {
	name, ok := n.attr("name")
	if !ok {
		return nil, parsef("define-gate without a name")
	}
	body := firstElement(n, "label", "attributes")
	if body == nil {
		return nil, parsef("gate %q has no formula", name)
	}
	formula, err := p.formula(body)
	if err != nil {
		return nil, fmt.Errorf("gate %q: %w", name, err)
	}
	return &Gate{Name: name, Formula: formula}, nil
}

// formula parses one operator element, or a bare event reference
// which becomes a single-child pass-through.
func (p *parser) formula(n *xmlNode) (*Formula, error) {
	op := n.XMLName.Local
	if isEventRef(op) {
		ref, ok := n.attr("name")
		if !ok {
			return nil, parsef("<%s> without a name", op)
		}
		return &Formula{Op: OpNull, Refs: []string{ref}}, nil
	}

	switch op {
	case OpAnd, OpOr, OpAtleast, OpXor, OpNot, OpNand, OpNor, OpNull:
	default:
		return nil, parsef("unknown formula operator <%s>", op)
	}

	f := &Formula{Op: op}
	if op == OpAtleast {
		min, ok := n.attr("min")
		if !ok {
			return nil, parsef("atleast without a min attribute")
		}
		k, err := strconv.Atoi(min)
		if err != nil || k < 1 {
			return nil, valuef("atleast min %q", min)
		}
		f.VoteNumber = k
	}

	for i := range n.Children {
		child := &n.Children[i]
		local := child.XMLName.Local
		switch {
		case isEventRef(local):
			ref, ok := child.attr("name")
			if !ok {
				return nil, parsef("<%s> without a name", local)
			}
			f.Refs = append(f.Refs, ref)
		default:
			sub, err := p.formula(child)
			if err != nil {
				return nil, err
			}
			f.Subs = append(f.Subs, sub)
		}
	}
	if len(f.Refs)+len(f.Subs) == 0 {
		return nil, parsef("<%s> formula has no arguments", op)
	}
	return f, nil
}

func isEventRef(local string) bool {
	switch local {
	case "event", "gate", "basic-event", "house-event":
		return true
	}
	return false
}

func (p *parser) basicEvent(n *xmlNode) error {
	name, ok := n.attr("name")
	if !ok {
		return parsef("define-basic-event without a name")
	}
	body := firstElement(n, "label", "attributes")
	if body == nil {
		return parsef("basic event %q has no probability expression", name)
	}
	expr, err := p.expression(body)
	if err != nil {
		return fmt.Errorf("basic event %q: %w", name, err)
	}
	return p.model.AddBasicEvent(&BasicEvent{Name: name, Expr: expr})
}

func (p *parser) houseEvent(n *xmlNode) error {
	name, ok := n.attr("name")
	if !ok {
		return parsef("define-house-event without a name")
	}
	body := firstElement(n, "label", "attributes")
	if body == nil || body.XMLName.Local != "constant" {
		return parsef("house event %q needs a <constant>", name)
	}
	value, ok := body.attr("value")
	if !ok {
		return parsef("house event %q constant without a value", name)
	}
	state, err := parseBool(value)
	if err != nil {
		return fmt.Errorf("house event %q: %w", name, err)
	}
	return p.model.AddHouseEvent(&HouseEvent{Name: name, State: state})
}

// expression parses a probability expression element.
func (p *parser) expression(n *xmlNode) (Expression, error) {
	switch n.XMLName.Local {
	case "float":
		v, err := n.floatAttr("value")
		if err != nil {
			return nil, err
		}
		if v < 0 || v > 1 {
			return nil, valuef("probability %v outside [0,1]", v)
		}
		return ConstantProb(v), nil
	case "exponential":
		args, err := floatArgs(n, 1)
		if err != nil {
			return nil, err
		}
		return Exponential{Lambda: args[0], Time: p.missionTime}, nil
	case "uniform-deviate":
		args, err := floatArgs(n, 2)
		if err != nil {
			return nil, err
		}
		return Uniform{Lower: args[0], Upper: args[1]}, nil
	case "triangular-deviate":
		args, err := floatArgs(n, 3)
		if err != nil {
			return nil, err
		}
		return Triangular{Lower: args[0], Mode: args[1], Upper: args[2]}, nil
	case "normal-deviate":
		args, err := floatArgs(n, 2)
		if err != nil {
			return nil, err
		}
		return Normal{Mean: args[0], Sigma: args[1]}, nil
	case "lognormal-deviate":
		args, err := floatArgs(n, 2)
		if err != nil {
			return nil, err
		}
		return LogNormal{Mu: args[0], Sigma: args[1]}, nil
	case "gamma-deviate":
		args, err := floatArgs(n, 2)
		if err != nil {
			return nil, err
		}
		return Gamma{Shape: args[0], Scale: args[1]}, nil
	case "beta-deviate":
		args, err := floatArgs(n, 2)
		if err != nil {
			return nil, err
		}
		return Beta{Alpha: args[0], B: args[1]}, nil
	case "weibull-deviate":
		args, err := floatArgs(n, 2)
		if err != nil {
			return nil, err
		}
		return Weibull{Shape: args[0], Scale: args[1]}, nil
	case "histogram":
		return p.histogram(n)
	default:
		return nil, parsef("unknown expression <%s>", n.XMLName.Local)
	}
}

func (p *parser) histogram(n *xmlNode) (Expression, error) {
	lower, err := n.floatAttr("lower")
	if err != nil {
		return nil, err
	}
	intervals := []float64{lower}
	var weights []float64
	for i := range n.Children {
		bin := &n.Children[i]
		if bin.XMLName.Local != "bin" {
			return nil, parsef("histogram holds <%s>, want <bin>", bin.XMLName.Local)
		}
		upper, err := bin.floatAttr("upper")
		if err != nil {
			return nil, err
		}
		weight, err := bin.floatAttr("weight")
		if err != nil {
			return nil, err
		}
		if upper <= intervals[len(intervals)-1] {
			return nil, valuef("histogram intervals must be strictly increasing")
		}
		if weight < 0 {
			return nil, valuef("histogram weight %v is negative", weight)
		}
		intervals = append(intervals, upper)
		weights = append(weights, weight)
	}
	if len(weights) == 0 {
		return nil, parsef("histogram without bins")
	}
	return Histogram{Intervals: intervals, Weights: weights}, nil
}

// firstElement returns the first child that is not one of the skipped
// annotation elements.
func firstElement(n *xmlNode, skip ...string) *xmlNode {
	for i := range n.Children {
		local := n.Children[i].XMLName.Local
		skipped := false
		for _, s := range skip {
			if local == s {
				skipped = true
				break
			}
		}
		if !skipped {
			return &n.Children[i]
		}
	}
	return nil
}

func (n *xmlNode) floatAttr(name string) (float64, error) {
	raw, ok := n.attr(name)
	if !ok {
		return 0, parsef("<%s> without a %s attribute", n.XMLName.Local, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, valuef("<%s> %s=%q is not a number", n.XMLName.Local, name, raw)
	}
	return v, nil
}

// floatArgs collects exactly count <float value=""/> children.
func floatArgs(n *xmlNode, count int) ([]float64, error) {
	var args []float64
	for i := range n.Children {
		child := &n.Children[i]
		if child.XMLName.Local != "float" {
			continue // mission-time and other markers are positional no-ops
		}
		v, err := child.floatAttr("value")
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	if len(args) != count {
		return nil, parsef("<%s> takes %d float arguments, got %d",
			n.XMLName.Local, count, len(args))
	}
	return args, nil
}

// parseBool accepts the config lexicon: 1|true|0|false, case
// sensitive.
func parseBool(raw string) (bool, error) {
	switch raw {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, valuef("boolean %q, want 1|true|0|false", raw)
}
