package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible batch.
// Two batches with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical trees, regardless of worker count.
type SimulationKey uint64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed uint64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemBatch is the RNG subsystem for batch-level draws.
	// Uses master seed directly.
	SubsystemBatch = "batch"
)

// SubsystemReplicate returns the subsystem name for replicate r of sample s.
func SubsystemReplicate(s, r int) string {
	return fmt.Sprintf("replicate_%d_%d", s, r)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG streams per subsystem.
//
// Derivation formula:
//   - For SubsystemBatch: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Every call builds a fresh stream, so ForSubsystem is safe for concurrent
// use; each replicate worker owns the *rand.Rand it receives.
type PartitionedRNG struct {
	key SimulationKey
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	derived := uint64(p.key)
	if name != SubsystemBatch {
		derived ^= fnv1a64(name)
	}
	return rand.New(rand.NewPCG(derived, fnv1a64(name)))
}

// ForReplicate returns the stream for replicate r of sample s.
func (p *PartitionedRNG) ForReplicate(s, r int) *rand.Rand {
	return p.ForSubsystem(SubsystemReplicate(s, r))
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
