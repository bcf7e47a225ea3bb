package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/clinvoc/termgraph/concept"
	"github.com/clinvoc/termgraph/store"
)

// Closure is a precomputed ancestor/descendant reachability table for the
// is-a relation over a bounded concept subset, indexed both ways for fast
// lookup. It is immutable once built; callers are responsible for rebuilding
// it if the underlying relationship tables change.
type Closure struct {
	rows         []store.ClosureRow
	byDescendant map[concept.ID]concept.Set
	byAncestor   map[concept.ID]concept.Set
}

// NewClosure indexes a set of closure rows, e.g. rows loaded back from the
// store. Reflexive rows are dropped.
func NewClosure(rows []store.ClosureRow) *Closure {
	c := &Closure{
		byDescendant: make(map[concept.ID]concept.Set),
		byAncestor:   make(map[concept.ID]concept.Set),
	}
	for _, r := range rows {
		if r.AncestorID == r.DescendantID {
			continue
		}
		c.add(r)
	}
	sort.Slice(c.rows, func(i, j int) bool {
		if c.rows[i].DescendantID != c.rows[j].DescendantID {
			return c.rows[i].DescendantID < c.rows[j].DescendantID
		}
		return c.rows[i].AncestorID < c.rows[j].AncestorID
	})
	return c
}

func (c *Closure) add(r store.ClosureRow) {
	c.rows = append(c.rows, r)
	d := c.byDescendant[r.DescendantID]
	d.Add(r.AncestorID)
	c.byDescendant[r.DescendantID] = d
	a := c.byAncestor[r.AncestorID]
	a.Add(r.DescendantID)
	c.byAncestor[r.AncestorID] = a
}

// Ancestors returns every ancestor of id recorded in the closure.
func (c *Closure) Ancestors(id concept.ID) concept.Set {
	return c.byDescendant[id]
}

// Descendants returns every descendant of id recorded in the closure.
func (c *Closure) Descendants(id concept.ID) concept.Set {
	return c.byAncestor[id]
}

// Rows returns the closure rows sorted by (descendant, ancestor).
func (c *Closure) Rows() []store.ClosureRow {
	return c.rows
}

// Len returns the number of closure rows.
func (c *Closure) Len() int {
	return len(c.rows)
}

// ClosureBuilder precomputes transitive is-a closures over a restricted
// concept subset via iterative self-join.
type ClosureBuilder struct {
	store *store.Store
}

// NewClosureBuilder returns a builder reading from the given snapshot store.
func NewClosureBuilder(s *store.Store) *ClosureBuilder {
	return &ClosureBuilder{store: s}
}

// Build computes the full transitive closure of the is-a relation restricted
// to subset. Seeding edges are those touching the subset on either side; the
// final table keeps only rows whose both endpoints belong to the subset.
// Cycles in malformed source data are not rejected: every vertex on a cycle
// ends up a mutual ancestor and descendant of the others, and reflexive rows
// are never emitted.
func (b *ClosureBuilder) Build(ctx context.Context, subset concept.Set, opts ...Option) (*Closure, error) {
	if subset.IsEmpty() {
		return NewClosure(nil), nil
	}
	o := applyOptions(opts)
	tables, err := resolveTables(ctx, b.store, o)
	if err != nil {
		return nil, err
	}

	type pair struct {
		descendant concept.ID
		ancestor   concept.ID
	}

	pairs := make(map[pair]struct{})
	// ancestorsOf holds the current working set keyed by descendant, the
	// "middle vertex" index for the self-join.
	ancestorsOf := make(map[concept.ID]concept.Set)
	insert := func(p pair) {
		if p.descendant == p.ancestor {
			return
		}
		if _, ok := pairs[p]; ok {
			return
		}
		pairs[p] = struct{}{}
		s := ancestorsOf[p.descendant]
		s.Add(p.ancestor)
		ancestorsOf[p.descendant] = s
	}

	ids := subset.Slice()
	for _, table := range tables {
		edges, err := b.store.IsAEdges(ctx, table, ids, o.activeOnly)
		if err != nil {
			return nil, fmt.Errorf("seeding closure from %q: %w", table, err)
		}
		for _, e := range edges {
			insert(pair{descendant: e.ChildID, ancestor: e.ParentID})
		}
	}

	// Self-join to a fixed point: join the working set to itself on the
	// middle vertex (child→mid, mid→parent) until the row count stops
	// growing.
	for {
		before := len(pairs)
		var derived []pair
		for p := range pairs {
			for _, grand := range ancestorsOf[p.ancestor].Slice() {
				np := pair{descendant: p.descendant, ancestor: grand}
				if np.descendant == np.ancestor {
					continue
				}
				if _, ok := pairs[np]; !ok {
					derived = append(derived, np)
				}
			}
		}
		for _, np := range derived {
			insert(np)
		}
		if len(pairs) == before {
			break
		}
	}

	// Restrict both sides to the requested subset.
	var rows []store.ClosureRow
	for p := range pairs {
		if subset.Contains(p.descendant) && subset.Contains(p.ancestor) {
			rows = append(rows, store.ClosureRow{AncestorID: p.ancestor, DescendantID: p.descendant})
		}
	}
	return NewClosure(rows), nil
}
