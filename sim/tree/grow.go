package tree

import "fmt"

// Census returns the number of living lineages in each state.
func (t *Tree) Census() []int {
	out := make([]int, t.nStates)
	for s, ids := range t.living {
		out[s] = len(ids)
	}
	return out
}

// NumAlive returns the number of living lineages.
func (t *Tree) NumAlive() int {
	n := 0
	for _, ids := range t.living {
		n += len(ids)
	}
	return n
}

// LivingInState returns the k-th living lineage in state s. The order is
// deterministic for a given event history.
func (t *Tree) LivingInState(s, k int) NodeID {
	return t.living[s][k]
}

// Living returns all living lineages, state by state.
func (t *Tree) Living() []NodeID {
	var out []NodeID
	for _, ids := range t.living {
		out = append(out, ids...)
	}
	return out
}

// Speciate ends living lineage id at time tm and starts two daughter
// lineages in states s1 and s2.
func (t *Tree) Speciate(id NodeID, tm float64, s1, s2 int) (NodeID, NodeID, error) {
	if err := t.checkGrowing(id, s1, s2); err != nil {
		return NoNode, NoNode, err
	}
	t.removeLiving(id)
	n := &t.nodes[id]
	n.End = tm
	n.Alive = false
	if t.root == NoNode {
		t.root = id
	}
	t.speciations++

	a := t.addNode(t.newLabel(), id, s1, tm)
	t.makeAlive(a)
	b := t.addNode(t.newLabel(), id, s2, tm)
	t.makeAlive(b)
	return a, b, nil
}

// GoExtinct ends living lineage id at time tm as an extinct tip.
func (t *Tree) GoExtinct(id NodeID, tm float64) error {
	if err := t.checkGrowing(id); err != nil {
		return err
	}
	t.removeLiving(id)
	n := &t.nodes[id]
	n.End = tm
	n.Alive = false
	n.Extinct = true
	return nil
}

// Transition changes the state of living lineage id at time tm and records
// the change on the node.
func (t *Tree) Transition(id NodeID, tm float64, to int) error {
	if err := t.checkGrowing(id, to); err != nil {
		return err
	}
	n := &t.nodes[id]
	from := n.State
	if from == to {
		return nil
	}
	t.removeLiving(id)
	n.State = to
	n.Transitions = append(n.Transitions, Transition{Time: tm, From: from, To: to})
	t.makeAlive(id)
	return nil
}

// SampleAncestor splices an ancestor-sampling point into living lineage id
// at time tm. The node becomes a two-child dummy node: one child is a
// zero-length sampled-ancestor tip, the other continues the lineage with
// its label and state. It returns the sampled-ancestor and continuing nodes.
func (t *Tree) SampleAncestor(id NodeID, tm float64) (NodeID, NodeID, error) {
	if err := t.checkGrowing(id); err != nil {
		return NoNode, NoNode, err
	}
	state := t.nodes[id].State
	label := t.nodes[id].Label
	parentLabel := ""
	if p := t.nodes[id].Parent; p != NoNode {
		parentLabel = t.nodes[p].Label
	}

	t.nextDummy++
	t.nextSA++
	saLabel := fmt.Sprintf("sa%d", t.nextSA)

	n := &t.nodes[id]
	n.End = tm
	n.Alive = false
	n.Dummy = true
	n.Label = fmt.Sprintf("dummy%d", t.nextDummy)

	sa := t.addNode(saLabel, id, state, tm)
	t.nodes[sa].SampledAncestor = true

	cont := t.addNode(label, id, state, tm)
	t.nodes[cont].OnAncestorLineage = true
	t.replaceLiving(id, cont)

	t.ancestors[label] = append(t.ancestors[label], AncestorSample{
		Time:     tm,
		Parent:   parentLabel,
		Ancestor: saLabel,
	})
	return sa, cont, nil
}

// Freeze stops growth at time tm. Every living lineage becomes an extant
// tip ending at tm.
func (t *Tree) Freeze(tm float64) {
	for _, ids := range t.living {
		for _, id := range ids {
			t.nodes[id].End = tm
		}
	}
	t.stopTime = tm
	t.frozen = true
	t.reconstructed = nil
}

// MarkUnsampled flags extant tip id as removed by incomplete sampling. The
// tip stays in the complete tree.
func (t *Tree) MarkUnsampled(id NodeID) {
	t.nodes[id].Sampled = false
	t.reconstructed = nil
}

func (t *Tree) checkGrowing(id NodeID, states ...int) error {
	if t.frozen {
		return fmt.Errorf("tree is frozen")
	}
	if id < 0 || int(id) >= len(t.nodes) || !t.nodes[id].Alive {
		return fmt.Errorf("node %d is not a living lineage", id)
	}
	for _, s := range states {
		if s < 0 || s >= t.nStates {
			return fmt.Errorf("state %d out of range for %d state(s)", s, t.nStates)
		}
	}
	return nil
}

func (t *Tree) makeAlive(id NodeID) {
	n := &t.nodes[id]
	n.Alive = true
	t.pos[id] = len(t.living[n.State])
	t.living[n.State] = append(t.living[n.State], id)
}

// removeLiving swap-removes id from its state list.
func (t *Tree) removeLiving(id NodeID) {
	s := t.nodes[id].State
	ids := t.living[s]
	i := t.pos[id]
	last := ids[len(ids)-1]
	ids[i] = last
	t.pos[last] = i
	t.living[s] = ids[:len(ids)-1]
	t.pos[id] = -1
}

// replaceLiving puts newID in oldID's slot, keeping list order stable.
func (t *Tree) replaceLiving(oldID, newID NodeID) {
	s := t.nodes[oldID].State
	i := t.pos[oldID]
	t.living[s][i] = newID
	t.pos[newID] = i
	t.pos[oldID] = -1
	t.nodes[newID].Alive = true
}
