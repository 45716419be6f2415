// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package fault

// detectModules finds the independent modules of the tree.
//
// A DFS from the top assigns Euler-tour timestamps to every node;
// leaves record a timestamp on every encounter, gates record enter and
// exit plus a last-visit slot for re-encounters. A gate is an
// independent module iff the timestamps of all its descendants lie
// strictly inside its own enter/exit interval: any reference from
// outside the subtree stamps a descendant outside that window.
func (p *preprocessor) detectModules() {
	p.tree.ClearVisits()
	p.assignTiming(0, p.tree.Top())
	intervals := make(map[int][2]int)
	p.findModules(p.tree.Top(), intervals)
}

// assignTiming walks the graph depth-first assigning visit times.
// Returns the running clock.
func (p *preprocessor) assignTiming(time int, g *Gate) int {
	time++
	if g.Visit(time) {
		return time // finished gate re-encountered; do not descend
	}
	for _, c := range g.Children() {
		index := abs(c)
		if p.tree.IsGateIndex(index) {
			time = p.assignTiming(time, p.tree.Gate(index))
		} else {
			time++
			p.tree.visitNode(index).Visit(time)
		}
	}
	time++
	g.Visit(time) // exit time
	return time
}

// findModules computes, bottom-up and memoized, the minimum and
// maximum visit times over each gate's descendants, and flags gates
// whose descendants are confined to their own interval. The top gate
// is trivially independent and is left unflagged.
func (p *preprocessor) findModules(g *Gate, intervals map[int][2]int) (min, max int) {
	if iv, ok := intervals[g.Index()]; ok {
		return iv[0], iv[1]
	}
	min, max = g.ExitTime(), 0
	for _, c := range g.Children() {
		index := abs(c)
		var cmin, cmax int
		if p.tree.IsGateIndex(index) {
			child := p.tree.Gate(index)
			cmin, cmax = p.findModules(child, intervals)
			if child.EnterTime() < cmin {
				cmin = child.EnterTime()
			}
			if child.LastVisit() > cmax {
				cmax = child.LastVisit()
			}
		} else {
			n := p.tree.visitNode(index)
			cmin, cmax = n.EnterTime(), n.LastVisit()
		}
		if cmin < min {
			min = cmin
		}
		if cmax > max {
			max = cmax
		}
	}
	intervals[g.Index()] = [2]int{min, max}
	if g.Index() != p.tree.TopIndex() && !g.IsModule() &&
		min > g.EnterTime() && max < g.ExitTime() {
		g.TurnModule()
	}
	return min, max
}
