package query

import (
	"context"
	"fmt"

	"github.com/clinvoc/termgraph/concept"
)

// maxSimplifyRounds bounds the upward breadth-first expansion; positions
// still unresolved when the budget runs out keep their original concept.
const maxSimplifyRounds = 10

// Simplification maps one input concept occurrence to its chosen ancestor.
// AncestorID equals ConceptID when no single unambiguous match was found.
type Simplification struct {
	ConceptID  concept.ID
	AncestorID concept.ID
}

// posState tracks the resolution of one input position.
type posState int

const (
	posSearching posState = iota
	posMatched
	posAmbiguous
	posExhausted
)

// position is the per-input-occurrence bookkeeping: its current candidate
// frontier and the matches accumulated across all rounds so far. Duplicate
// input concepts get independent positions so the output keeps one row per
// occurrence.
type position struct {
	state      posState
	candidates concept.Set
	matches    concept.Set
}

// Simplifier maps concepts to the closest unambiguous ancestor within an
// arbitrary target set by level-wise upward expansion.
type Simplifier struct {
	res *Resolver
}

// NewSimplifier returns a simplifier expanding parents through the given
// resolver.
func NewSimplifier(r *Resolver) *Simplifier {
	return &Simplifier{res: r}
}

// Simplify finds, for each input concept occurrence, the single member of
// targets reachable by the fewest upward is-a hops. A position that ever
// accumulates more than one match — at any level, across rounds — keeps its
// original concept, as does a position whose expansion dead-ends or exceeds
// the round budget. A concept already in targets matches itself immediately.
// The output has exactly one row per input occurrence, in input order.
func (s *Simplifier) Simplify(ctx context.Context, ids []concept.ID, targets concept.Set, opts ...Option) ([]Simplification, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	o := applyOptions(opts)
	tables, err := resolveTables(ctx, s.res.store, o)
	if err != nil {
		return nil, err
	}

	positions := make([]position, len(ids))
	for i, id := range ids {
		positions[i] = position{
			state:      posSearching,
			candidates: concept.NewSet(id),
			matches:    concept.NewSet(),
		}
	}

	// Nothing can ever match an empty target set; skip straight to
	// keep-original without walking the hierarchy.
	if !targets.IsEmpty() {
		if err := s.resolve(ctx, positions, targets, tables, o); err != nil {
			return nil, err
		}
	}

	out := make([]Simplification, len(ids))
	for i, id := range ids {
		out[i] = Simplification{ConceptID: id, AncestorID: id}
		if positions[i].state == posMatched {
			out[i].AncestorID = positions[i].matches.Slice()[0]
		}
	}
	return out, nil
}

// resolve advances every position one breadth-first round at a time until
// all are resolved or the round budget is exhausted.
func (s *Simplifier) resolve(ctx context.Context, positions []position, targets concept.Set, tables []string, o options) error {
	for round := 0; round < maxSimplifyRounds; round++ {
		// Mark phase: record candidate hits against the target set and
		// advance each position's state machine. Matches accumulate
		// across rounds; a second distinct match at any level makes the
		// position permanently ambiguous.
		unresolved := 0
		for i := range positions {
			p := &positions[i]
			if p.state != posSearching {
				continue
			}
			p.matches.AddAll(p.candidates.Intersect(targets))
			switch {
			case p.matches.Len() > 1:
				p.state = posAmbiguous
			case p.matches.Len() == 1:
				p.state = posMatched
			default:
				unresolved++
			}
		}
		if unresolved == 0 {
			return nil
		}

		// Expand phase: replace each unresolved position's candidates
		// with their direct parents. One batched lookup covers the
		// whole frontier; the fan-out map keeps per-candidate
		// attribution so duplicate parent paths can still surface new
		// ambiguous matches.
		frontier := concept.NewSet()
		for i := range positions {
			if positions[i].state == posSearching {
				frontier.AddAll(positions[i].candidates)
			}
		}
		parentsOf, err := s.res.partnerFanOut(ctx, frontier, concept.IsA, tables, options{activeOnly: o.activeOnly})
		if err != nil {
			return fmt.Errorf("expanding parents at round %d: %w", round, err)
		}
		for i := range positions {
			p := &positions[i]
			if p.state != posSearching {
				continue
			}
			next := concept.NewSet()
			for _, c := range p.candidates.Slice() {
				next.AddAll(parentsOf[c])
			}
			if next.IsEmpty() {
				p.state = posExhausted
				continue
			}
			p.candidates = next
		}
	}
	return nil
}
