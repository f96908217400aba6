package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallTree grows origin -> nd1, which splits at t=1 into nd2 and nd3;
// nd2 dies at t=2 and the tree is frozen at t=3.
func smallTree(t *testing.T) *Tree {
	t.Helper()
	tr, err := New(1, 0, true)
	require.NoError(t, err)
	nd1 := tr.LivingInState(0, 0)
	a, _, err := tr.Speciate(nd1, 1, 0, 0)
	require.NoError(t, err)
	require.NoError(t, tr.GoExtinct(a, 2))
	tr.Freeze(3)
	return tr
}

func TestNew_Seeds(t *testing.T) {
	o, err := New(2, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 1, o.NumAlive())
	assert.Equal(t, []int{0, 1}, o.Census())
	assert.Equal(t, NoNode, o.Root())
	assert.Equal(t, "origin", o.Node(o.Seed()).Label)
	assert.Zero(t, o.NumSpeciations())

	r, err := New(2, 0, false)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, r.Census())
	assert.Equal(t, r.Seed(), r.Root())
	assert.Equal(t, 1, r.NumSpeciations())

	_, err = New(2, 2, true)
	assert.Error(t, err)
	_, err = New(0, 0, true)
	assert.Error(t, err)
}

func TestTree_AgesCountsAndNewick(t *testing.T) {
	tr := smallTree(t)

	age, ok := tr.OriginAge()
	require.True(t, ok)
	assert.Equal(t, 3.0, age)
	age, ok = tr.RootAge()
	require.True(t, ok)
	assert.Equal(t, 2.0, age)

	c := tr.Counts()
	assert.Equal(t, 1, c.Extant)
	assert.Equal(t, 1, c.ExtantSampled)
	assert.Equal(t, 1, c.Extinct)
	assert.Zero(t, c.SampledAncestors)
	assert.Equal(t, 1, tr.NumSpeciations())

	assert.Equal(t, "((nd2:1,nd3:2)nd1:1)origin;", tr.Newick(false))
}

func TestTree_GrowingOnFrozenTreeFails(t *testing.T) {
	tr := smallTree(t)
	tips := tr.Tips()
	require.Len(t, tips, 2)
	_, _, err := tr.Speciate(tips[1], 4, 0, 0)
	assert.Error(t, err)
	assert.Error(t, tr.GoExtinct(tips[1], 4))
}

func TestTransition_MovesLineageBetweenStates(t *testing.T) {
	tr, err := New(2, 0, false)
	require.NoError(t, err)
	nd1 := tr.LivingInState(0, 0)

	require.NoError(t, tr.Transition(nd1, 0.5, 1))
	assert.Equal(t, []int{1, 1}, tr.Census())
	assert.Equal(t, nd1, tr.LivingInState(1, 0))
	assert.Equal(t, []Transition{{Time: 0.5, From: 0, To: 1}}, tr.Node(nd1).Transitions)

	// same state is a no-op
	require.NoError(t, tr.Transition(nd1, 0.6, 1))
	assert.Len(t, tr.Node(nd1).Transitions, 1)

	assert.Error(t, tr.Transition(nd1, 0.7, 2))

	tr.Freeze(1)
	assert.Equal(t, "(nd1[&state=1]:1,nd2[&state=0]:1)root[&state=0];", tr.Newick(true))
}

func TestSampleAncestor_PreservesPathLengths(t *testing.T) {
	// GIVEN a lineage sampled as an ancestor at t=1 that later splits at t=2
	tr, err := New(1, 0, true)
	require.NoError(t, err)
	nd1 := tr.LivingInState(0, 0)
	sa, cont, err := tr.SampleAncestor(nd1, 1)
	require.NoError(t, err)
	assert.Equal(t, cont, tr.LivingInState(0, 0))
	assert.Equal(t, 1, tr.NumAlive())

	a, b, err := tr.Speciate(cont, 2, 0, 0)
	require.NoError(t, err)
	tr.Freeze(4)

	// THEN the splice does not change any root-to-tip distance
	assert.Equal(t, 4.0, tr.PathLength(a))
	assert.Equal(t, 4.0, tr.PathLength(b))
	assert.Equal(t, 1.0, tr.PathLength(sa))
	saNode := tr.Node(sa)
	assert.Zero(t, saNode.Length())

	// AND the splice point is a labelled dummy above the sampled ancestor
	dummy := tr.Node(nd1)
	assert.True(t, dummy.Dummy)
	assert.Equal(t, "dummy1", dummy.Label)
	assert.Equal(t, "nd1", tr.Node(cont).Label)
	assert.True(t, tr.Node(cont).OnAncestorLineage)
	assert.Equal(t, cont, tr.Root())
	assert.Equal(t, 1, tr.NumSpeciations())

	// AND the ancestor table records the event under the lineage label
	assert.Equal(t, map[string][]AncestorSample{
		"nd1": {{Time: 1, Parent: "origin", Ancestor: "sa1"}},
	}, tr.AncestorSamples())
	assert.Equal(t, 1, tr.Counts().SampledAncestors)
}

func TestReconstructed_PrunesExtinctAndCollapses(t *testing.T) {
	tr := smallTree(t)

	rec, err := tr.Reconstructed()
	require.NoError(t, err)
	assert.Equal(t, "(nd3:3)origin;", rec.Newick(false))
	assert.Equal(t, NoNode, rec.Root())
	age, ok := rec.OriginAge()
	require.True(t, ok)
	assert.Equal(t, 3.0, age)
	assert.Equal(t, 1, rec.Counts().Extant)
	assert.Zero(t, rec.Counts().Extinct)

	// calling again returns the cached tree
	again, err := tr.Reconstructed()
	require.NoError(t, err)
	assert.Same(t, rec, again)
}

func TestReconstructed_MergesTransitionsAcrossCollapsedNodes(t *testing.T) {
	tr, err := New(2, 0, true)
	require.NoError(t, err)
	nd1 := tr.LivingInState(0, 0)
	require.NoError(t, tr.Transition(nd1, 0.5, 1))
	a, _, err := tr.Speciate(nd1, 1, 1, 1)
	require.NoError(t, err)
	require.NoError(t, tr.GoExtinct(a, 1.5))
	tr.Freeze(2)

	rec, err := tr.Reconstructed()
	require.NoError(t, err)
	tips := rec.Tips()
	require.Len(t, tips, 1)
	tip := rec.Node(tips[0])
	assert.Equal(t, "nd3", tip.Label)
	assert.Equal(t, 0, tip.StartState)
	assert.Equal(t, 1, tip.State)
	assert.Equal(t, 0.0, tip.Birth)
	assert.Equal(t, []Transition{{Time: 0.5, From: 0, To: 1}}, tip.Transitions)
}

func TestReconstructed_KeepsSampledAncestorSplice(t *testing.T) {
	tr, err := New(1, 0, true)
	require.NoError(t, err)
	_, cont, err := tr.SampleAncestor(tr.LivingInState(0, 0), 1)
	require.NoError(t, err)
	_, _, err = tr.Speciate(cont, 2, 0, 0)
	require.NoError(t, err)
	tr.Freeze(4)

	rec, err := tr.Reconstructed()
	require.NoError(t, err)
	assert.Equal(t, "((sa1:0,(nd2:2,nd3:2)nd1:1)dummy1:1)origin;", rec.Newick(false))

	// the splice point is not a branching event: both trees root at the speciation
	age, ok := rec.RootAge()
	require.True(t, ok)
	assert.Equal(t, 2.0, age)
	fullAge, ok := tr.RootAge()
	require.True(t, ok)
	assert.Equal(t, fullAge, age)
	assert.Equal(t, "nd1", rec.Node(rec.Root()).Label)
	assert.Equal(t, 1, rec.NumSpeciations())
	assert.Len(t, rec.AncestorSamples()["nd1"], 1)
}

func TestReconstructed_DropsUnsampledTips(t *testing.T) {
	tr, err := New(1, 0, false)
	require.NoError(t, err)
	tr.Freeze(2)
	tips := tr.Tips()
	require.Len(t, tips, 2)
	tr.MarkUnsampled(tips[0])

	c := tr.Counts()
	assert.Equal(t, 2, c.Extant)
	assert.Equal(t, 1, c.ExtantSampled)

	rec, err := tr.Reconstructed()
	require.NoError(t, err)
	assert.Equal(t, "nd2;", rec.Newick(false))
	assert.Equal(t, NoNode, rec.Root())
}

func TestReconstructed_EmptyWhenNothingObserved(t *testing.T) {
	tr, err := New(1, 0, true)
	require.NoError(t, err)
	_, err = tr.Reconstructed()
	assert.Error(t, err, "unfrozen tree")

	require.NoError(t, tr.GoExtinct(tr.LivingInState(0, 0), 1))
	tr.Freeze(1)
	rec, err := tr.Reconstructed()
	require.NoError(t, err)
	assert.True(t, rec.IsEmpty())
	assert.Equal(t, ";", rec.Newick(false))
	_, ok := rec.OriginAge()
	assert.False(t, ok)
}
