// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

import "fmt"

// CCFGroup models correlated failures of a set of basic events with
// the beta-factor model: a fraction beta of each member's failure
// probability is attributed to a single shared common-cause event.
type CCFGroup struct {
	Name    string
	Model   string // only "beta-factor" is supported
	Members []string
	Prob    Expression // per-member total failure probability
	Beta    float64
}

// Expand rewrites every member into an OR of an independent part and
// the group's common-cause event, registering the new basic events on
// the model. The returned map feeds the indexing step: a reference to
// a member resolves to the expansion formula instead of the original
// event.
func (g *CCFGroup) Expand(m *Model) (map[string]*Formula, error) {
	if g.Model != "beta-factor" {
		return nil, parsef("CCF group %q uses unsupported model %q", g.Name, g.Model)
	}
	if g.Beta < 0 || g.Beta > 1 {
		return nil, valuef("CCF group %q beta %v outside [0,1]", g.Name, g.Beta)
	}
	p := g.Prob.Nominal()

	common := &BasicEvent{
		Name: g.Name + ".common",
		Expr: ConstantProb(g.Beta * p),
	}
	if err := m.AddBasicEvent(common); err != nil {
		return nil, err
	}

	expansions := make(map[string]*Formula, len(g.Members))
	for _, member := range g.Members {
		if _, ok := m.BasicEvents[member]; !ok {
			return nil, parsef("CCF group %q member %q is not a basic event", g.Name, member)
		}
		independent := &BasicEvent{
			Name: member + ".ind",
			Expr: ConstantProb((1 - g.Beta) * p),
		}
		if err := m.AddBasicEvent(independent); err != nil {
			return nil, err
		}
		expansions[member] = &Formula{
			Op:   OpOr,
			Refs: []string{independent.Name, common.Name},
		}
	}
	return expansions, nil
}

// ExpandCCF expands every CCF group of the model and merges the
// member substitution maps.
func (m *Model) ExpandCCF() (map[string]*Formula, error) {
	expansions := make(map[string]*Formula)
	for _, group := range m.CCFGroups {
		sub, err := group.Expand(m)
		if err != nil {
			return nil, fmt.Errorf("expanding CCF: %w", err)
		}
		for member, formula := range sub {
			if _, dup := expansions[member]; dup {
				return nil, parsef("basic event %q belongs to more than one CCF group", member)
			}
			expansions[member] = formula
		}
	}
	return expansions, nil
}

// ccfGroup parses a define-CCF-group element.
func (p *parser) ccfGroup(n *xmlNode) error {
	name, ok := n.attr("name")
	if !ok {
		return parsef("define-CCF-group without a name")
	}
	modelName, ok := n.attr("model")
	if !ok {
		return parsef("CCF group %q without a model attribute", name)
	}
	group := &CCFGroup{Name: name, Model: modelName}

	for i := range n.Children {
		child := &n.Children[i]
		switch child.XMLName.Local {
		case "members":
			for j := range child.Children {
				member := &child.Children[j]
				ref, ok := member.attr("name")
				if !ok {
					return parsef("CCF group %q member without a name", name)
				}
				group.Members = append(group.Members, ref)
			}
		case "distribution":
			body := firstElement(child)
			if body == nil {
				return parsef("CCF group %q has an empty distribution", name)
			}
			expr, err := p.expression(body)
			if err != nil {
				return fmt.Errorf("CCF group %q: %w", name, err)
			}
			group.Prob = expr
		case "factor":
			body := firstElement(child)
			if body == nil {
				return parsef("CCF group %q has an empty factor", name)
			}
			beta, err := body.floatAttr("value")
			if err != nil {
				return err
			}
			group.Beta = beta
		case "label", "attributes":
		default:
			return parsef("CCF group %q holds unexpected <%s>", name, child.XMLName.Local)
		}
	}
	if len(group.Members) < 2 {
		return parsef("CCF group %q needs at least two members", name)
	}
	if group.Prob == nil {
		return parsef("CCF group %q without a distribution", name)
	}
	p.model.CCFGroups = append(p.model.CCFGroups, group)
	return nil
}
