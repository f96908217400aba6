// Package tree holds the phylogenetic tree grown by the simulator.
//
// Nodes live in an arena and are addressed by NodeID; parents are stored as
// IDs, never pointers, so pruning and copying need no cycle handling. Time
// runs forward from 0 at the seed node (origin or root); ages are measured
// back from the stop time once the tree is frozen.
//
// Only the simulator mutates a Tree (see grow.go). After Freeze the tree is
// read-only and exposes counts, ages, a reconstructed view, the ancestor
// sampling table and a Newick rendering.
package tree

import (
	"fmt"
	"math"
	"slices"
)

// NodeID indexes a node in its tree's arena.
type NodeID int

// NoNode marks an absent parent or root.
const NoNode NodeID = -1

// Transition records an anagenetic state change along a branch.
type Transition struct {
	Time float64
	From int
	To   int
}

// AncestorSample records one ancestor-sampling event along a lineage.
type AncestorSample struct {
	Time     float64
	Parent   string // label of the node the lineage descends from ("" at the seed)
	Ancestor string // label of the zero-length sampled-ancestor tip
}

// Node is one branch of the tree, ending at the node itself.
type Node struct {
	ID       NodeID
	Label    string
	Parent   NodeID
	Children []NodeID

	StartState int // state at Birth
	State      int // state at End (current state while alive)
	Birth      float64
	End        float64 // meaningful once the lineage stopped or the tree froze

	Alive             bool // growing lineage; extant tip once frozen
	Extinct           bool
	Sampled           bool // false when thinned by incomplete sampling
	SampledAncestor   bool // zero-length tip from an ancestor-sampling splice
	Dummy             bool // splice point above a sampled ancestor
	OnAncestorLineage bool // continuing lineage below a splice

	Transitions []Transition
}

// IsTip reports whether the node has no children.
func (n *Node) IsTip() bool { return len(n.Children) == 0 }

// Length is the branch length (End - Birth).
func (n *Node) Length() float64 { return n.End - n.Birth }

// Observed reports whether the tip would appear in the reconstructed tree.
func (n *Node) Observed() bool {
	if !n.IsTip() {
		return false
	}
	return n.SampledAncestor || (n.Alive && n.Sampled)
}

// Tree is a growing or frozen phylogeny.
type Tree struct {
	nStates    int
	nodes      []Node
	seed       NodeID
	root       NodeID
	withOrigin bool

	living [][]NodeID // per-state living lineages
	pos    []int      // position of each living node within its state list

	frozen      bool
	stopTime    float64
	speciations int
	nextLabel   int
	nextSA      int
	nextDummy   int

	ancestors map[string][]AncestorSample

	reconstructed *Tree
}

// New creates a tree with one living lineage in startState. When withOrigin
// is false the tree starts at a root that has already split into two
// lineages, both in startState.
func New(nStates, startState int, withOrigin bool) (*Tree, error) {
	if nStates < 1 {
		return nil, fmt.Errorf("tree needs at least one state, got %d", nStates)
	}
	if startState < 0 || startState >= nStates {
		return nil, fmt.Errorf("start state %d out of range for %d state(s)", startState, nStates)
	}
	t := &Tree{
		nStates:    nStates,
		root:       NoNode,
		withOrigin: withOrigin,
		living:     make([][]NodeID, nStates),
		ancestors:  make(map[string][]AncestorSample),
	}
	if withOrigin {
		o := t.addNode("origin", NoNode, startState, 0)
		t.seed = o
		c := t.addNode(t.newLabel(), o, startState, 0)
		t.makeAlive(c)
		return t, nil
	}
	r := t.addNode("root", NoNode, startState, 0)
	t.seed, t.root = r, r
	t.speciations = 1
	for i := 0; i < 2; i++ {
		c := t.addNode(t.newLabel(), r, startState, 0)
		t.makeAlive(c)
	}
	return t, nil
}

// NumStates returns the number of discrete states.
func (t *Tree) NumStates() int { return t.nStates }

// NumNodes returns the number of nodes in the arena.
func (t *Tree) NumNodes() int { return len(t.nodes) }

// Node returns a copy of node id.
func (t *Tree) Node(id NodeID) Node { return t.nodes[id] }

// Seed returns the first node: the origin, or the root when there is no origin.
func (t *Tree) Seed() NodeID {
	if len(t.nodes) == 0 {
		return NoNode
	}
	return t.seed
}

// Root returns the first branching node, or NoNode if none exists.
func (t *Tree) Root() NodeID { return t.root }

// WithOrigin reports whether the tree starts at an origin.
func (t *Tree) WithOrigin() bool { return t.withOrigin }

// Frozen reports whether growth has stopped.
func (t *Tree) Frozen() bool { return t.frozen }

// StopTime is the forward time at which growth stopped (the tree height).
func (t *Tree) StopTime() float64 { return t.stopTime }

// IsEmpty reports whether the tree has no nodes, as for a reconstructed
// tree with no observed tips.
func (t *Tree) IsEmpty() bool { return len(t.nodes) == 0 }

// NumSpeciations counts branching events, including a root start.
func (t *Tree) NumSpeciations() int { return t.speciations }

// Age returns the age of the end of node id, measured back from the stop time.
func (t *Tree) Age(id NodeID) float64 { return t.stopTime - t.nodes[id].End }

// OriginAge returns the age of the origin, if the tree has one.
func (t *Tree) OriginAge() (float64, bool) {
	if !t.withOrigin || t.IsEmpty() {
		return math.NaN(), false
	}
	return t.stopTime - t.nodes[t.seed].Birth, true
}

// RootAge returns the age of the first branching event, if one happened.
func (t *Tree) RootAge() (float64, bool) {
	if t.root == NoNode {
		return math.NaN(), false
	}
	return t.stopTime - t.nodes[t.root].End, true
}

// Counts summarizes the terminal nodes of a tree.
type Counts struct {
	Extant               int
	ExtantSampled        int
	Extinct              int
	SampledAncestors     int
	ExtantByState        []int
	ExtantSampledByState []int
	ExtinctByState       []int
	SampledAncByState    []int
}

// Counts tallies terminal nodes overall and per state.
func (t *Tree) Counts() Counts {
	c := Counts{
		ExtantByState:        make([]int, t.nStates),
		ExtantSampledByState: make([]int, t.nStates),
		ExtinctByState:       make([]int, t.nStates),
		SampledAncByState:    make([]int, t.nStates),
	}
	for i := range t.nodes {
		n := &t.nodes[i]
		if !n.IsTip() {
			continue
		}
		switch {
		case n.SampledAncestor:
			c.SampledAncestors++
			c.SampledAncByState[n.State]++
		case n.Alive:
			c.Extant++
			c.ExtantByState[n.State]++
			if n.Sampled {
				c.ExtantSampled++
				c.ExtantSampledByState[n.State]++
			}
		case n.Extinct:
			c.Extinct++
			c.ExtinctByState[n.State]++
		}
	}
	return c
}

// Tips returns the IDs of all terminal nodes in preorder.
func (t *Tree) Tips() []NodeID {
	var out []NodeID
	for _, id := range t.Preorder() {
		if t.nodes[id].IsTip() {
			out = append(out, id)
		}
	}
	return out
}

// PathLength sums branch lengths from the seed's birth down to the end of node id.
func (t *Tree) PathLength(id NodeID) float64 {
	total := 0.0
	for cur := id; cur != NoNode; cur = t.nodes[cur].Parent {
		total += t.nodes[cur].Length()
	}
	return total
}

// AncestorSamples returns a copy of the ancestor-sampling table, keyed by
// lineage label, with events in the order they happened.
func (t *Tree) AncestorSamples() map[string][]AncestorSample {
	out := make(map[string][]AncestorSample, len(t.ancestors))
	for k, v := range t.ancestors {
		out[k] = append([]AncestorSample(nil), v...)
	}
	return out
}

// Preorder returns node IDs parents-first, children in insertion order.
func (t *Tree) Preorder() []NodeID {
	if t.IsEmpty() {
		return nil
	}
	out := make([]NodeID, 0, len(t.nodes))
	stack := []NodeID{t.seed}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, id)
		ch := t.nodes[id].Children
		for i := len(ch) - 1; i >= 0; i-- {
			stack = append(stack, ch[i])
		}
	}
	return out
}

// Postorder returns node IDs children-first, children left to right.
func (t *Tree) Postorder() []NodeID {
	if t.IsEmpty() {
		return nil
	}
	// Visiting parents first while pushing children left to right, then
	// reversing, puts every child before its parent.
	stack := []NodeID{t.seed}
	out := make([]NodeID, 0, len(t.nodes))
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, id)
		stack = append(stack, t.nodes[id].Children...)
	}
	slices.Reverse(out)
	return out
}

func (t *Tree) addNode(label string, parent NodeID, state int, birth float64) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{
		ID:         id,
		Label:      label,
		Parent:     parent,
		StartState: state,
		State:      state,
		Birth:      birth,
		End:        birth,
		Sampled:    true,
	})
	t.pos = append(t.pos, -1)
	if parent != NoNode {
		t.nodes[parent].Children = append(t.nodes[parent].Children, id)
	}
	return id
}

func (t *Tree) newLabel() string {
	t.nextLabel++
	return fmt.Sprintf("nd%d", t.nextLabel)
}
