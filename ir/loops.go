package ir

import (
	"sort"

	yb "github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph/flow"
	"gonum.org/v1/gonum/graph/simple"
)

// Loop is a natural loop: a header block that dominates every block of the
// loop, entered through back edges from its latches.
type Loop struct {
	Header  BlockID
	Latches []BlockID
	Blocks  []BlockID
}

// Contains reports whether the block id is part of the loop.
func (l *Loop) Contains(id BlockID) bool {
	_, found := slices.BinarySearch(l.Blocks, id)
	return found
}

// Loops returns the natural loops of fn, one per header, ordered by header
// block. Nested loops are returned alongside their parents.
func Loops(fn *Function) []*Loop {
	if fn == nil || len(fn.Blocks) == 0 {
		return nil
	}

	// Most functions have no cycles at all; skip the dominator tree for those.
	cfg := yb.New(len(fn.Blocks))
	for _, b := range fn.Blocks {
		for _, s := range b.Succs {
			cfg.Add(int(b.ID), int(s))
		}
	}
	if yb.Acyclic(cfg) {
		return nil
	}

	dom := newDominators(fn)

	byHeader := make(map[BlockID]*Loop)
	for _, b := range fn.Blocks {
		if !dom.reachable(b.ID) {
			continue
		}
		for _, s := range b.Succs {
			if !dom.dominates(s, b.ID) {
				continue
			}
			l, ok := byHeader[s]
			if !ok {
				l = &Loop{Header: s}
				byHeader[s] = l
			}
			if !slices.Contains(l.Latches, b.ID) {
				l.Latches = append(l.Latches, b.ID)
			}
		}
	}

	loops := make([]*Loop, 0, len(byHeader))
	for _, l := range byHeader {
		l.Blocks = loopBody(fn, l)
		slices.Sort(l.Latches)
		loops = append(loops, l)
	}
	sort.Slice(loops, func(i, j int) bool { return loops[i].Header < loops[j].Header })

	return loops
}

// loopBody collects the header plus every block that reaches a latch
// without passing through the header.
func loopBody(fn *Function, l *Loop) []BlockID {
	in := map[BlockID]bool{l.Header: true}
	work := append([]BlockID(nil), l.Latches...)
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		if in[id] {
			continue
		}
		in[id] = true
		work = append(work, fn.Blocks[id].Preds...)
	}

	body := make([]BlockID, 0, len(in))
	for id := range in {
		body = append(body, id)
	}
	slices.Sort(body)
	return body
}

// dominators wraps gonum's dominator tree over the block graph of a
// function, rooted at its entry block.
type dominators struct {
	entry BlockID
	tree  flow.DominatorTree
}

func newDominators(fn *Function) *dominators {
	g := simple.NewDirectedGraph()
	for _, b := range fn.Blocks {
		g.AddNode(simple.Node(b.ID))
	}
	for _, b := range fn.Blocks {
		for _, s := range b.Succs {
			// simple graphs reject self edges; a block always dominates itself.
			if s == b.ID {
				continue
			}
			g.SetEdge(g.NewEdge(simple.Node(b.ID), simple.Node(s)))
		}
	}

	entry := fn.Blocks[0].ID
	return &dominators{
		entry: entry,
		tree:  flow.Dominators(g.Node(int64(entry)), g),
	}
}

func (d *dominators) reachable(id BlockID) bool {
	return id == d.entry || d.tree.DominatorOf(int64(id)) != nil
}

// dominates reports whether every path from the entry to b passes through a.
func (d *dominators) dominates(a, b BlockID) bool {
	if a == b {
		return true
	}
	for n := d.tree.DominatorOf(int64(b)); n != nil; n = d.tree.DominatorOf(n.ID()) {
		if BlockID(n.ID()) == a {
			return true
		}
	}
	return false
}
