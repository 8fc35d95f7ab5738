// Package hierarchy arranges distribution boards into a supply forest from
// their supply_from edges, detects cycles and orphans, and rolls up the
// cumulative downstream load per node.
package hierarchy

import (
	"fmt"
	"sort"

	"github.com/afriplan/takeoff/pkg/common"
	"github.com/afriplan/takeoff/pkg/logger"
)

// Node is one board in the supply forest.
type Node struct {
	Unit        string  `json:"unit"`
	Board       string  `json:"board"`
	Depth       int     `json:"depth"`
	OwnW        float64 `json:"own_w"`
	DownstreamW float64 `json:"downstream_w"`
	Children    []*Node `json:"children,omitempty"`

	// Orphan marks a node whose declared feeder could not be resolved.
	Orphan bool `json:"orphan,omitempty"`
	// CycleCut marks a node whose feeder edge was severed to break a cycle.
	CycleCut bool `json:"cycle_cut,omitempty"`
}

// Hierarchy is the supply forest with everything that went wrong while
// building it. Orphans and cycle members stay in the forest as roots;
// nothing is dropped.
type Hierarchy struct {
	Roots    []*Node    `json:"roots"`
	Orphans  []string   `json:"orphans,omitempty"`
	Cycles   [][]string `json:"cycles,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
}

type nodeKey struct {
	unit  string
	board string
}

// Build constructs the supply forest for the merged project.
func Build(project common.Project) Hierarchy {
	nodes := map[nodeKey]*Node{}
	boards := map[nodeKey]common.Board{}
	supplyFed := map[nodeKey]bool{}

	var keys []nodeKey
	for _, u := range project.Units {
		for _, b := range u.Boards {
			key := nodeKey{unit: u.Unit, board: common.NormalizeName(b.Name)}
			if _, ok := nodes[key]; ok {
				continue
			}
			nodes[key] = &Node{Unit: u.Unit, Board: b.Name, OwnW: boardWattage(b)}
			boards[key] = b
			keys = append(keys, key)
		}
		for _, s := range u.SupplyPoints {
			if s.FeedsBoard != "" {
				supplyFed[nodeKey{unit: u.Unit, board: common.NormalizeName(s.FeedsBoard)}] = true
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].unit != keys[j].unit {
			return keys[i].unit < keys[j].unit
		}
		return keys[i].board < keys[j].board
	})

	h := Hierarchy{}
	parent := map[nodeKey]nodeKey{}
	hasParent := map[nodeKey]bool{}

	// Resolve feeder edges. Sub-board feeds declared on circuits win over
	// the child's own supply_from when both exist and agree anyway.
	for _, key := range keys {
		b := boards[key]
		if b.SupplyFrom == "" || supplyFed[key] {
			continue
		}
		feeder, ok := resolveFeeder(key, b.SupplyFrom, nodes)
		if !ok {
			nodes[key].Orphan = true
			h.Orphans = append(h.Orphans, qualifiedName(key))
			h.Warnings = append(h.Warnings, fmt.Sprintf(
				"board %s declares unknown feeder %q, kept as orphan root", qualifiedName(key), b.SupplyFrom))
			continue
		}
		parent[key] = feeder
		hasParent[key] = true
	}

	// Sever back edges so the forest stays acyclic
	for _, cycle := range findCycles(keys, parent, hasParent) {
		cut := cycle[len(cycle)-1]
		delete(parent, cut)
		hasParent[cut] = false
		nodes[cut].CycleCut = true

		var names []string
		for _, k := range cycle {
			names = append(names, qualifiedName(k))
		}
		h.Cycles = append(h.Cycles, names)
		h.Warnings = append(h.Warnings, fmt.Sprintf(
			"supply cycle %v broken at %s", names, qualifiedName(cut)))
	}

	for _, key := range keys {
		if hasParent[key] {
			p := nodes[parent[key]]
			p.Children = append(p.Children, nodes[key])
		} else {
			h.Roots = append(h.Roots, nodes[key])
		}
	}

	for _, root := range h.Roots {
		annotate(root, 0)
	}

	logger.Info("[Hierarchy] Built supply forest",
		"roots", len(h.Roots), "orphans", len(h.Orphans), "cycles", len(h.Cycles))
	return h
}

// TotalDownstreamW sums the downstream load over all roots.
func (h *Hierarchy) TotalDownstreamW() float64 {
	var total float64
	for _, r := range h.Roots {
		total += r.DownstreamW
	}
	return total
}

func resolveFeeder(child nodeKey, supplyFrom string, nodes map[nodeKey]*Node) (nodeKey, bool) {
	norm := common.NormalizeName(supplyFrom)

	// same unit first, then anywhere on site
	sameUnit := nodeKey{unit: child.unit, board: norm}
	if _, ok := nodes[sameUnit]; ok && sameUnit != child {
		return sameUnit, true
	}
	var (
		found nodeKey
		count int
	)
	for key := range nodes {
		if key.board == norm && key != child {
			found = key
			count++
		}
	}
	if count == 1 {
		return found, true
	}
	return nodeKey{}, false
}

func findCycles(keys []nodeKey, parent map[nodeKey]nodeKey, hasParent map[nodeKey]bool) [][]nodeKey {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := map[nodeKey]int{}
	var cycles [][]nodeKey

	for _, start := range keys {
		if color[start] != white {
			continue
		}
		var path []nodeKey
		k := start
		for {
			if color[k] == grey {
				// walked back into the current path: everything from the
				// first occurrence of k is the cycle
				for i, p := range path {
					if p == k {
						cycles = append(cycles, path[i:])
						break
					}
				}
				break
			}
			if color[k] == black {
				break
			}
			color[k] = grey
			path = append(path, k)
			if !hasParent[k] {
				break
			}
			k = parent[k]
		}
		for _, p := range path {
			color[p] = black
		}
	}
	return cycles
}

func annotate(n *Node, depth int) float64 {
	n.Depth = depth
	sort.Slice(n.Children, func(i, j int) bool { return n.Children[i].Board < n.Children[j].Board })

	n.DownstreamW = n.OwnW
	for _, c := range n.Children {
		n.DownstreamW += annotate(c, depth+1)
	}
	return n.DownstreamW
}

func boardWattage(b common.Board) float64 {
	var total float64
	for _, c := range b.Circuits {
		total += c.WattageW
	}
	return total
}

func qualifiedName(k nodeKey) string {
	if k.unit == "" {
		return k.board
	}
	return k.unit + "/" + k.board
}
