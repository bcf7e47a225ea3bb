package query

import (
	"context"
	"fmt"

	"github.com/clinvoc/termgraph/concept"
	"github.com/clinvoc/termgraph/store"
)

// Resolver answers related-concept lookups for a given relation type and
// direction, either one hop at a time or saturating to a fixed point.
type Resolver struct {
	store *store.Store
}

// NewResolver returns a resolver reading from the given snapshot store.
func NewResolver(s *store.Store) *Resolver {
	return &Resolver{store: s}
}

// RelatedConcepts returns the concepts related to anchors through edges of
// the given type. Options select edge tables, direction, recursion and
// active-only filtering. Empty anchors yield an empty set without touching
// the store.
func (r *Resolver) RelatedConcepts(ctx context.Context, anchors concept.Set, typeID concept.ID, opts ...Option) (concept.Set, error) {
	return r.related(ctx, anchors, typeID, applyOptions(opts))
}

func (r *Resolver) related(ctx context.Context, anchors concept.Set, typeID concept.ID, o options) (concept.Set, error) {
	if typeID == 0 {
		return concept.Set{}, ErrNoRelationType
	}
	if anchors.IsEmpty() {
		return concept.Set{}, nil
	}
	tables, err := resolveTables(ctx, r.store, o)
	if err != nil {
		return concept.Set{}, err
	}

	if !o.recursive {
		return r.oneHop(ctx, anchors, typeID, tables, o)
	}

	// Saturating fixed point: re-query with the grown anchor set until a
	// pass adds nothing new. The concept universe is finite and the set
	// only grows, so this terminates even on relation cycles.
	found := concept.NewSet()
	grown := anchors
	for {
		related, err := r.oneHop(ctx, grown, typeID, tables, o)
		if err != nil {
			return concept.Set{}, err
		}
		found.AddAll(related)
		next := grown.Union(related)
		if next.Len() == grown.Len() {
			return found, nil
		}
		grown = next
	}
}

// oneHop unions the partner sets from every requested edge table.
func (r *Resolver) oneHop(ctx context.Context, anchors concept.Set, typeID concept.ID, tables []string, o options) (concept.Set, error) {
	out := concept.NewSet()
	ids := anchors.Slice()
	for _, table := range tables {
		pairs, err := r.store.Partners(ctx, table, ids, typeID, o.reverse, o.activeOnly)
		if err != nil {
			return concept.Set{}, fmt.Errorf("resolving related concepts in %q: %w", table, err)
		}
		for _, p := range pairs {
			out.Add(p.Partner)
		}
	}
	return out, nil
}

// partnerFanOut maps each anchor to its one-hop partner set across the
// requested tables; used where per-anchor attribution matters (the
// simplifier's parent expansion).
func (r *Resolver) partnerFanOut(ctx context.Context, anchors concept.Set, typeID concept.ID, tables []string, o options) (map[concept.ID]concept.Set, error) {
	out := make(map[concept.ID]concept.Set)
	ids := anchors.Slice()
	for _, table := range tables {
		pairs, err := r.store.Partners(ctx, table, ids, typeID, o.reverse, o.activeOnly)
		if err != nil {
			return nil, fmt.Errorf("resolving partner fan-out in %q: %w", table, err)
		}
		for _, p := range pairs {
			s := out[p.Anchor]
			s.Add(p.Partner)
			out[p.Anchor] = s
		}
	}
	return out, nil
}
