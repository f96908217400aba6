// Package sim provides the simulation driver that grows phylogenetic trees
// under state-dependent speciation-extinction (SSE) processes.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - simulator.go: one attempt at growing a tree (the Gillespie loop), thinning and conditioning
//   - event.go: the sampled event and the single switch that applies it to the tree
//   - replicate.go: rejection sampling around attempts, bounded by the runtime limit
//
// batch.go fans replicates out over worker goroutines; config.go validates
// the batch options; rng.go derives one deterministic stream per replicate.
//
// # Architecture
//
// The sim package drives; the model lives in sub-packages:
//   - sim/params/: rates, sampling probabilities and the epoch-aware ParameterManager
//   - sim/events/: EventHandler (total rates, event sampling), ProbabilityHandler, Stash
//   - sim/tree/: the arena tree, growth mutators, reconstruction and Newick output
//   - sim/trace/: attempt records and their summary
//   - sim/simerr/: configuration and runtime error types
//
// # Time
//
// Forward time starts at 0 at the origin (or root). An age is stop time minus
// forward time. Epoch boundaries are given as ages and converted to forward
// times from seed_age, so every replicate sees the same epoch schedule
// whatever its stop condition.
package sim
