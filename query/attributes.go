package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/clinvoc/termgraph/concept"
	"github.com/clinvoc/termgraph/store"
)

// Attributes answers attribute-membership tests and single-hop attribute
// retrieval for concept sets.
type Attributes struct {
	store *store.Store
}

// NewAttributes returns an attribute query facade over the given store.
func NewAttributes(s *store.Store) *Attributes {
	return &Attributes{store: s}
}

// AttributeRow is one edge of a concept enriched with display terms for its
// source, destination and relation type.
type AttributeRow struct {
	EdgeSet         string
	SourceID        concept.ID
	SourceTerm      string
	TypeID          concept.ID
	TypeTerm        string
	DestinationID   concept.ID
	DestinationTerm string
	Group           int
	Active          bool
	EffectiveTime   string
}

// HasAttributes reports, per input position, whether the (source,
// destination, type) triple exists as an edge in any requested table.
// Shorter input vectors are recycled to the longest as a broadcast join; the
// output always has exactly the broadcast length, preserving input order and
// duplicates. Active-only filtering is honoured only when the snapshot is
// known to contain inactive rows.
func (a *Attributes) HasAttributes(ctx context.Context, sources, destinations, types []concept.ID, opts ...Option) ([]bool, error) {
	if len(sources) == 0 || len(destinations) == 0 || len(types) == 0 {
		return nil, nil
	}
	o := applyOptions(opts)
	tables, err := resolveTables(ctx, a.store, o)
	if err != nil {
		return nil, err
	}

	activeOnly := o.activeOnly
	if activeOnly {
		hasInactive, err := a.store.HasInactiveRows(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading snapshot flags: %w", err)
		}
		activeOnly = hasInactive
	}

	n := len(sources)
	if len(destinations) > n {
		n = len(destinations)
	}
	if len(types) > n {
		n = len(types)
	}

	wanted := make([]store.Triple, n)
	dedup := make(map[store.Triple]struct{}, n)
	for i := 0; i < n; i++ {
		t := store.Triple{
			SourceID:      sources[i%len(sources)],
			DestinationID: destinations[i%len(destinations)],
			TypeID:        types[i%len(types)],
		}
		wanted[i] = t
		dedup[t] = struct{}{}
	}
	distinct := make([]store.Triple, 0, len(dedup))
	for t := range dedup {
		distinct = append(distinct, t)
	}

	found := make(map[store.Triple]bool, len(distinct))
	for _, table := range tables {
		hits, err := a.store.HasTriples(ctx, table, distinct, activeOnly)
		if err != nil {
			return nil, fmt.Errorf("matching attributes in %q: %w", table, err)
		}
		for t := range hits {
			found[t] = true
		}
	}

	out := make([]bool, n)
	for i, t := range wanted {
		out[i] = found[t]
	}
	return out, nil
}

// ConceptAttributes returns every edge touching the given concepts as either
// source or destination, one hop only, enriched with display terms. Edges
// from the source join precede edges from the destination join, per table.
func (a *Attributes) ConceptAttributes(ctx context.Context, ids []concept.ID, opts ...Option) ([]AttributeRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	o := applyOptions(opts)
	tables, err := resolveTables(ctx, a.store, o)
	if err != nil {
		return nil, err
	}

	terms := make(map[concept.ID]string)
	termOf := func(id concept.ID) (string, error) {
		if t, ok := terms[id]; ok {
			return t, nil
		}
		t, err := a.store.PreferredTerm(ctx, id)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return "", err
		}
		terms[id] = t
		return t, nil
	}

	var out []AttributeRow
	for _, table := range tables {
		edges, err := a.store.ConceptEdges(ctx, table, ids, o.activeOnly)
		if err != nil {
			return nil, fmt.Errorf("retrieving attributes in %q: %w", table, err)
		}
		for _, e := range edges {
			row := AttributeRow{
				EdgeSet:       table,
				SourceID:      e.SourceID,
				TypeID:        e.TypeID,
				DestinationID: e.DestinationID,
				Group:         e.Group,
				Active:        e.Active,
				EffectiveTime: e.EffectiveTime,
			}
			if row.SourceTerm, err = termOf(e.SourceID); err != nil {
				return nil, err
			}
			if row.TypeTerm, err = termOf(e.TypeID); err != nil {
				return nil, err
			}
			if row.DestinationTerm, err = termOf(e.DestinationID); err != nil {
				return nil, err
			}
			out = append(out, row)
		}
	}
	return out, nil
}
