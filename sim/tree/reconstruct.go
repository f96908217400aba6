package tree

import (
	"fmt"
	"slices"
)

// Reconstructed returns the tree restricted to observed tips: extant tips
// that survived incomplete sampling, plus sampled ancestors. Subtrees with
// no observed tip are pruned and nodes left with a single child, including
// ancestor-sampling dummies, are collapsed into their child's branch.
// Ages are preserved. The result is computed once and cached; an empty tree
// is returned when nothing was observed.
func (t *Tree) Reconstructed() (*Tree, error) {
	if !t.frozen {
		return nil, fmt.Errorf("reconstructed tree requires a frozen tree")
	}
	if t.reconstructed == nil {
		t.reconstructed = t.reconstruct()
	}
	return t.reconstructed, nil
}

// collapsed is a node reached by skipping single-child ancestors, with the
// history of the skipped branches folded in.
type collapsed struct {
	id          NodeID
	startState  int
	transitions []Transition
}

func (t *Tree) reconstruct() *Tree {
	rec := &Tree{
		nStates:    t.nStates,
		root:       NoNode,
		withOrigin: t.withOrigin,
		living:     make([][]NodeID, t.nStates),
		ancestors:  make(map[string][]AncestorSample),
		frozen:     true,
		stopTime:   t.stopTime,
	}
	if t.IsEmpty() {
		return rec
	}

	keep := make([]bool, len(t.nodes))
	for _, id := range t.Postorder() {
		n := &t.nodes[id]
		if n.IsTip() {
			keep[id] = n.Observed()
			continue
		}
		for _, c := range n.Children {
			if keep[c] {
				keep[id] = true
				break
			}
		}
	}
	if !keep[t.seed] {
		return rec
	}

	descend := func(id NodeID) collapsed {
		out := collapsed{id: id, startState: t.nodes[id].StartState}
		for {
			n := &t.nodes[id]
			out.transitions = append(out.transitions, n.Transitions...)
			kept := NoNode
			count := 0
			for _, c := range n.Children {
				if keep[c] {
					kept = c
					count++
				}
			}
			if count != 1 {
				out.id = id
				return out
			}
			id = kept
		}
	}

	type frame struct {
		c      collapsed
		parent NodeID
	}
	var stack []frame
	if t.withOrigin {
		stack = append(stack, frame{c: collapsed{id: t.seed, startState: t.nodes[t.seed].StartState}, parent: NoNode})
	} else {
		top := descend(t.seed)
		top.startState = t.nodes[top.id].State
		top.transitions = nil
		stack = append(stack, frame{c: top, parent: NoNode})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		src := &t.nodes[f.c.id]

		birth := src.End
		if f.parent != NoNode {
			birth = rec.nodes[f.parent].End
		} else if t.withOrigin {
			birth = src.Birth
		}
		id := rec.addNode(src.Label, f.parent, f.c.startState, birth)
		n := &rec.nodes[id]
		n.State = src.State
		n.End = src.End
		n.Alive = src.Alive
		n.Extinct = src.Extinct
		n.Sampled = src.Sampled
		n.SampledAncestor = src.SampledAncestor
		n.OnAncestorLineage = src.OnAncestorLineage
		n.Transitions = append([]Transition(nil), f.c.transitions...)

		var kids []NodeID
		for _, c := range src.Children {
			if keep[c] {
				kids = append(kids, c)
			}
		}
		n.Dummy = src.Dummy && len(kids) == 2
		for _, c := range slices.Backward(kids) {
			stack = append(stack, frame{c: descend(c), parent: id})
		}
	}

	rec.root = rec.firstSplit()
	for i := range rec.nodes {
		n := &rec.nodes[i]
		if len(n.Children) == 2 && !n.Dummy {
			rec.speciations++
		}
	}
	for label, events := range t.ancestors {
		rec.ancestors[label] = append([]AncestorSample(nil), events...)
	}
	return rec
}

// firstSplit walks down from the seed to the first branching node.
// Ancestor-sampling dummies are passed through along their continuing child,
// so the root matches the first speciation of the complete tree.
func (t *Tree) firstSplit() NodeID {
	if t.IsEmpty() {
		return NoNode
	}
	id := t.seed
	for {
		n := &t.nodes[id]
		switch {
		case len(n.Children) == 0:
			return NoNode
		case len(n.Children) == 1:
			id = n.Children[0]
		case n.Dummy:
			id = n.Children[0]
			if t.nodes[id].SampledAncestor {
				id = n.Children[1]
			}
		default:
			return id
		}
	}
}
