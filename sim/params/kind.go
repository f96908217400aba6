package params

import (
	"fmt"
	"strings"
)

// EventKind tags what happens to a lineage when a rate fires.
// The set is closed; the driver switches on it exhaustively.
type EventKind int

const (
	// WithinRegionSpeciation splits a lineage into two daughters (cladogenesis).
	WithinRegionSpeciation EventKind = iota
	// BetweenRegionSpeciation is an asymmetric cladogenetic split, typically
	// with daughters in different states.
	BetweenRegionSpeciation
	// Extinction kills the lineage.
	Extinction
	// AnageneticTransition changes the lineage state along a branch.
	AnageneticTransition
	// AncestorSampling samples the lineage as a fossil without ending it.
	AncestorSampling
)

var eventKindNames = map[EventKind]string{
	WithinRegionSpeciation:  "w",
	BetweenRegionSpeciation: "bw",
	Extinction:              "e",
	AnageneticTransition:    "t",
	AncestorSampling:        "s",
}

// validEventKinds maps accepted spellings (short and long) to kinds.
var validEventKinds = map[string]EventKind{
	"w":                         WithinRegionSpeciation,
	"within_region_speciation":  WithinRegionSpeciation,
	"speciation":                WithinRegionSpeciation,
	"bw":                        BetweenRegionSpeciation,
	"between_region_speciation": BetweenRegionSpeciation,
	"asymmetric_speciation":     BetweenRegionSpeciation,
	"e":                         Extinction,
	"extinction":                Extinction,
	"t":                         AnageneticTransition,
	"transition":                AnageneticTransition,
	"s":                         AncestorSampling,
	"ancestor_sampling":         AncestorSampling,
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// IsSpeciation reports whether the kind produces two daughter lineages.
func (k EventKind) IsSpeciation() bool {
	return k == WithinRegionSpeciation || k == BetweenRegionSpeciation
}

// NumStates is the length of the state tuple a rate of this kind carries:
// (parent, daughter1, daughter2) for speciation, (from, to) for transitions,
// and (state) for extinction and ancestor sampling.
func (k EventKind) NumStates() int {
	switch k {
	case WithinRegionSpeciation, BetweenRegionSpeciation:
		return 3
	case AnageneticTransition:
		return 2
	default:
		return 1
	}
}

// ParseEventKind converts a configuration string into an EventKind.
func ParseEventKind(s string) (EventKind, error) {
	k, ok := validEventKinds[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown event kind %q; valid: w, bw, e, t, s", s)
	}
	return k, nil
}
