//go:build cgo

package query

import (
	"context"
	"testing"

	"github.com/clinvoc/termgraph/concept"
)

func TestBuildTransitiveClosure(t *testing.T) {
	s := newTestStore(t)
	b := NewClosureBuilder(s)

	subset := concept.NewSet(catFlu, catDisease, infection, disease, finding)
	c, err := b.Build(context.Background(), subset, ActiveOnly())
	if err != nil {
		t.Fatalf("building closure: %v", err)
	}

	mustSet(t, c.Ancestors(catFlu), nil, catDisease, infection, disease, finding)
	mustSet(t, c.Ancestors(catDisease), nil, disease, finding)
	mustSet(t, c.Descendants(disease), nil, catDisease, infection, catFlu)

	// root is outside the subset: no row may mention it even though the
	// seeding edges touch it.
	if c.Ancestors(finding).Len() != 0 {
		t.Fatalf("expected no in-subset ancestors of finding, got %v", c.Ancestors(finding).Slice())
	}
	for _, r := range c.Rows() {
		if r.AncestorID == root || r.DescendantID == root {
			t.Fatalf("closure row mentions concept outside the subset: %+v", r)
		}
		if r.AncestorID == r.DescendantID {
			t.Fatalf("reflexive closure row: %+v", r)
		}
		if !subset.Contains(r.AncestorID) || !subset.Contains(r.DescendantID) {
			t.Fatalf("closure row outside subset: %+v", r)
		}
	}
}

// Every closure row must be witnessed by a chain of one-hop is-a edges.
func TestClosureRowsAreReachable(t *testing.T) {
	s := newTestStore(t)
	b := NewClosureBuilder(s)
	r := NewResolver(s)
	ctx := context.Background()

	subset := concept.NewSet(catFlu, catDisease, infection, disease, finding, root)
	c, err := b.Build(ctx, subset, ActiveOnly())
	if err != nil {
		t.Fatalf("building closure: %v", err)
	}
	for _, row := range c.Rows() {
		live, err := r.RelatedConcepts(ctx, concept.NewSet(row.DescendantID),
			concept.IsA, Recursive(), ActiveOnly())
		if err != nil {
			t.Fatalf("live resolution: %v", err)
		}
		if !live.Contains(row.AncestorID) {
			t.Fatalf("closure row (%d,%d) has no live is-a chain", row.AncestorID, row.DescendantID)
		}
	}
}

func TestClosureEmptySubset(t *testing.T) {
	b := NewClosureBuilder(newTestStore(t))

	c, err := b.Build(context.Background(), concept.NewSet())
	if err != nil {
		t.Fatalf("building empty closure: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty closure, got %d rows", c.Len())
	}
}

func TestClosureToleratesCycles(t *testing.T) {
	b := NewClosureBuilder(newTestStore(t))

	c, err := b.Build(context.Background(), concept.NewSet(cycleA, cycleB), ActiveOnly())
	if err != nil {
		t.Fatalf("building closure over cycle: %v", err)
	}

	// Cycle members become mutual ancestors/descendants; reflexive rows
	// are still never stored.
	mustSet(t, c.Ancestors(cycleA), nil, cycleB)
	mustSet(t, c.Ancestors(cycleB), nil, cycleA)
	if c.Len() != 2 {
		t.Fatalf("expected exactly the two mutual rows, got %d", c.Len())
	}
}

func TestClosureRowsSortedAndPersistable(t *testing.T) {
	s := newTestStore(t)
	b := NewClosureBuilder(s)
	ctx := context.Background()

	subset := concept.NewSet(catFlu, catDisease, infection, disease)
	c, err := b.Build(ctx, subset, ActiveOnly())
	if err != nil {
		t.Fatalf("building closure: %v", err)
	}
	rows := c.Rows()
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		if cur.DescendantID < prev.DescendantID ||
			(cur.DescendantID == prev.DescendantID && cur.AncestorID <= prev.AncestorID) {
			t.Fatalf("rows not strictly sorted at %d: %+v then %+v", i, prev, cur)
		}
	}

	// Round trip through the store's closure tables.
	if err := s.SaveClosure(ctx, "subset", rows); err != nil {
		t.Fatalf("saving closure: %v", err)
	}
	loaded, err := s.LoadClosure(ctx, "subset")
	if err != nil {
		t.Fatalf("loading closure: %v", err)
	}
	reloaded := NewClosure(loaded)
	if reloaded.Len() != c.Len() {
		t.Fatalf("round trip changed row count: %d vs %d", reloaded.Len(), c.Len())
	}
	if !reloaded.Ancestors(catFlu).Equal(c.Ancestors(catFlu)) {
		t.Fatal("round trip changed ancestor sets")
	}
}
