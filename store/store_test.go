//go:build cgo

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/clinvoc/termgraph/concept"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Test graph: a small disease hierarchy plus one attribute edge.
//
//	root
//	└── finding
//	    └── disease
//	        ├── catDisease
//	        └── dogDisease
//
// catDisease additionally has a finding-site edge to bodySite.
const (
	root       concept.ID = 138875005
	finding    concept.ID = 404684003
	disease    concept.ID = 64572001
	catDisease concept.ID = 1001
	dogDisease concept.ID = 1002
	bodySite   concept.ID = 2001

	findingSite concept.ID = 363698007
)

func seedSnapshot(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	concepts := []Concept{
		{ID: root, Active: true, EffectiveTime: "20020131"},
		{ID: finding, Active: true, EffectiveTime: "20020131"},
		{ID: disease, Active: true, EffectiveTime: "20020131"},
		{ID: catDisease, Active: true, EffectiveTime: "20090731"},
		{ID: dogDisease, Active: true, EffectiveTime: "20090731"},
		{ID: bodySite, Active: true, EffectiveTime: "20020131"},
	}
	if err := s.InsertConcepts(ctx, concepts); err != nil {
		t.Fatalf("inserting concepts: %v", err)
	}

	rels := []Relationship{
		{ID: 1, SourceID: finding, DestinationID: root, TypeID: concept.IsA, Active: true, EffectiveTime: "20020131"},
		{ID: 2, SourceID: disease, DestinationID: finding, TypeID: concept.IsA, Active: true, EffectiveTime: "20020131"},
		{ID: 3, SourceID: catDisease, DestinationID: disease, TypeID: concept.IsA, Active: true, EffectiveTime: "20090731"},
		{ID: 4, SourceID: dogDisease, DestinationID: disease, TypeID: concept.IsA, Active: true, EffectiveTime: "20090731"},
		{ID: 5, SourceID: catDisease, DestinationID: bodySite, TypeID: findingSite, Active: true, EffectiveTime: "20090731"},
		// A historically retired is-a edge.
		{ID: 6, SourceID: dogDisease, DestinationID: finding, TypeID: concept.IsA, Active: false, EffectiveTime: "20020131"},
	}
	if err := s.InsertRelationships(ctx, EdgeSetInferred, rels); err != nil {
		t.Fatalf("inserting relationships: %v", err)
	}
	if err := s.SetHasInactiveRows(ctx, true); err != nil {
		t.Fatalf("setting meta: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Schema / construction / metadata
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	s := newTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "dir")
	s, err := New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

func TestHasInactiveRowsFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	has, err := s.HasInactiveRows(ctx)
	if err != nil {
		t.Fatalf("reading flag: %v", err)
	}
	if has {
		t.Fatal("fresh snapshot should not report inactive rows")
	}
	if err := s.SetHasInactiveRows(ctx, true); err != nil {
		t.Fatalf("setting flag: %v", err)
	}
	has, err = s.HasInactiveRows(ctx)
	if err != nil || !has {
		t.Fatalf("expected flag true, got %v err %v", has, err)
	}
}

// ---------------------------------------------------------------------------
// Concepts
// ---------------------------------------------------------------------------

func TestConceptRoundTrip(t *testing.T) {
	s := newTestStore(t)
	seedSnapshot(t, s)
	ctx := context.Background()

	c, err := s.Concept(ctx, disease)
	if err != nil {
		t.Fatalf("getting concept: %v", err)
	}
	if c.ID != disease || !c.Active || c.EffectiveTime != "20020131" {
		t.Fatalf("unexpected concept row: %+v", c)
	}

	ok, err := s.HasConcept(ctx, disease)
	if err != nil || !ok {
		t.Fatalf("HasConcept(disease) = %v, %v", ok, err)
	}
	ok, err = s.HasConcept(ctx, 999999)
	if err != nil || ok {
		t.Fatalf("HasConcept(unknown) = %v, %v", ok, err)
	}

	if _, err := s.Concept(ctx, 999999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	n, err := s.ConceptCount(ctx)
	if err != nil || n != 6 {
		t.Fatalf("ConceptCount = %d, %v", n, err)
	}
}

// ---------------------------------------------------------------------------
// Relationship lookups
// ---------------------------------------------------------------------------

func TestPartnersForward(t *testing.T) {
	s := newTestStore(t)
	seedSnapshot(t, s)

	pairs, err := s.Partners(context.Background(), EdgeSetInferred,
		[]concept.ID{catDisease}, concept.IsA, false, true)
	if err != nil {
		t.Fatalf("querying partners: %v", err)
	}
	if len(pairs) != 1 || pairs[0] != (Pair{Anchor: catDisease, Partner: disease}) {
		t.Fatalf("unexpected pairs: %+v", pairs)
	}
}

func TestPartnersReverse(t *testing.T) {
	s := newTestStore(t)
	seedSnapshot(t, s)

	pairs, err := s.Partners(context.Background(), EdgeSetInferred,
		[]concept.ID{disease}, concept.IsA, true, true)
	if err != nil {
		t.Fatalf("querying partners: %v", err)
	}
	got := concept.NewSet()
	for _, p := range pairs {
		if p.Anchor != disease {
			t.Fatalf("unexpected anchor: %+v", p)
		}
		got.Add(p.Partner)
	}
	if !got.Equal(concept.NewSet(catDisease, dogDisease)) {
		t.Fatalf("expected children of disease, got %v", got.Slice())
	}
}

func TestPartnersActiveOnlyIgnoresInactiveEdges(t *testing.T) {
	s := newTestStore(t)
	seedSnapshot(t, s)
	ctx := context.Background()

	// dogDisease has an inactive is-a edge to finding.
	pairs, err := s.Partners(ctx, EdgeSetInferred, []concept.ID{dogDisease}, concept.IsA, false, true)
	if err != nil {
		t.Fatalf("querying partners: %v", err)
	}
	for _, p := range pairs {
		if p.Partner == finding {
			t.Fatal("active-only lookup returned an inactive edge")
		}
	}

	// Opting into inactive edges surfaces it.
	pairs, err = s.Partners(ctx, EdgeSetInferred, []concept.ID{dogDisease}, concept.IsA, false, false)
	if err != nil {
		t.Fatalf("querying partners: %v", err)
	}
	found := false
	for _, p := range pairs {
		if p.Partner == finding {
			found = true
		}
	}
	if !found {
		t.Fatal("expected inactive edge when activeOnly is off")
	}
}

func TestPartnersDropsUnresolvedPartners(t *testing.T) {
	s := newTestStore(t)
	seedSnapshot(t, s)
	ctx := context.Background()

	// Edge pointing at a concept that does not exist in the snapshot.
	err := s.InsertRelationships(ctx, EdgeSetInferred, []Relationship{
		{ID: 7, SourceID: catDisease, DestinationID: 424242, TypeID: concept.IsA, Active: true},
	})
	if err != nil {
		t.Fatalf("inserting malformed edge: %v", err)
	}

	pairs, err := s.Partners(ctx, EdgeSetInferred, []concept.ID{catDisease}, concept.IsA, false, true)
	if err != nil {
		t.Fatalf("querying partners: %v", err)
	}
	for _, p := range pairs {
		if p.Partner == 424242 {
			t.Fatal("unresolved partner should have been dropped")
		}
	}
	if len(pairs) != 1 {
		t.Fatalf("expected only the resolvable partner, got %+v", pairs)
	}
}

func TestPartnersEmptyAnchors(t *testing.T) {
	s := newTestStore(t)
	seedSnapshot(t, s)

	pairs, err := s.Partners(context.Background(), EdgeSetInferred, nil, concept.IsA, false, true)
	if err != nil {
		t.Fatalf("querying partners: %v", err)
	}
	if pairs != nil {
		t.Fatalf("expected no pairs, got %+v", pairs)
	}
}

func TestPartnersUnknownEdgeSet(t *testing.T) {
	s := newTestStore(t)
	seedSnapshot(t, s)

	_, err := s.Partners(context.Background(), "no-such-table",
		[]concept.ID{disease}, concept.IsA, false, true)
	if !errors.Is(err, ErrUnknownEdgeSet) {
		t.Fatalf("expected ErrUnknownEdgeSet, got %v", err)
	}
}

func TestPartnersChunksLargeAnchorSets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// More anchors than fit in one IN list.
	n := maxInParams + 37
	concepts := []Concept{{ID: 1, Active: true}}
	rels := make([]Relationship, 0, n)
	anchors := make([]concept.ID, 0, n)
	for i := 0; i < n; i++ {
		id := concept.ID(1000 + i)
		concepts = append(concepts, Concept{ID: id, Active: true})
		rels = append(rels, Relationship{
			ID: uint64(i + 1), SourceID: id, DestinationID: 1,
			TypeID: concept.IsA, Active: true,
		})
		anchors = append(anchors, id)
	}
	if err := s.InsertConcepts(ctx, concepts); err != nil {
		t.Fatalf("inserting concepts: %v", err)
	}
	if err := s.InsertRelationships(ctx, EdgeSetInferred, rels); err != nil {
		t.Fatalf("inserting relationships: %v", err)
	}

	pairs, err := s.Partners(ctx, EdgeSetInferred, anchors, concept.IsA, false, true)
	if err != nil {
		t.Fatalf("querying partners: %v", err)
	}
	if len(pairs) != n {
		t.Fatalf("expected %d pairs across chunks, got %d", n, len(pairs))
	}
}

func TestEdgeSets(t *testing.T) {
	s := newTestStore(t)
	seedSnapshot(t, s)
	ctx := context.Background()

	err := s.InsertRelationships(ctx, EdgeSetStated, []Relationship{
		{ID: 1, SourceID: catDisease, DestinationID: disease, TypeID: concept.IsA, Active: true},
	})
	if err != nil {
		t.Fatalf("inserting stated edge: %v", err)
	}

	names, err := s.EdgeSets(ctx)
	if err != nil {
		t.Fatalf("listing edge sets: %v", err)
	}
	if len(names) != 2 || names[0] != EdgeSetInferred || names[1] != EdgeSetStated {
		t.Fatalf("unexpected edge sets: %v", names)
	}
}

func TestHasTriples(t *testing.T) {
	s := newTestStore(t)
	seedSnapshot(t, s)

	triples := []Triple{
		{catDisease, disease, concept.IsA},   // present
		{catDisease, bodySite, findingSite},  // present
		{dogDisease, bodySite, findingSite},  // absent
		{dogDisease, finding, concept.IsA},   // present but inactive
	}
	found, err := s.HasTriples(context.Background(), EdgeSetInferred, triples, true)
	if err != nil {
		t.Fatalf("checking triples: %v", err)
	}
	if !found[triples[0]] || !found[triples[1]] {
		t.Fatalf("expected present triples to be found: %v", found)
	}
	if found[triples[2]] {
		t.Fatal("absent triple reported present")
	}
	if found[triples[3]] {
		t.Fatal("inactive triple reported present under active-only")
	}

	// Without active-only the retired edge counts.
	found, err = s.HasTriples(context.Background(), EdgeSetInferred, triples, false)
	if err != nil {
		t.Fatalf("checking triples: %v", err)
	}
	if !found[triples[3]] {
		t.Fatal("inactive triple should be present without active-only")
	}
}

func TestConceptEdges(t *testing.T) {
	s := newTestStore(t)
	seedSnapshot(t, s)

	edges, err := s.ConceptEdges(context.Background(), EdgeSetInferred,
		[]concept.ID{disease}, true)
	if err != nil {
		t.Fatalf("querying concept edges: %v", err)
	}
	// disease as source: 1 edge (is-a finding); as destination: 2 (cat, dog).
	if len(edges) != 3 {
		t.Fatalf("expected 3 edges, got %d: %+v", len(edges), edges)
	}
	// Source joins come first.
	if edges[0].SourceID != disease {
		t.Fatalf("expected source join first, got %+v", edges[0])
	}
}

func TestIsAEdgesRestrictedToSubset(t *testing.T) {
	s := newTestStore(t)
	seedSnapshot(t, s)

	edges, err := s.IsAEdges(context.Background(), EdgeSetInferred,
		[]concept.ID{catDisease, disease}, true)
	if err != nil {
		t.Fatalf("querying is-a edges: %v", err)
	}
	// Edges touching {catDisease, disease}: cat→disease, dog→disease,
	// disease→finding. The finding-site edge is not is-a.
	want := map[IsAEdge]bool{
		{catDisease, disease}: true,
		{dogDisease, disease}: true,
		{disease, finding}:    true,
	}
	if len(edges) != len(want) {
		t.Fatalf("expected %d edges, got %+v", len(want), edges)
	}
	for _, e := range edges {
		if !want[e] {
			t.Fatalf("unexpected edge %+v", e)
		}
	}
}

// ---------------------------------------------------------------------------
// Descriptions and term search
// ---------------------------------------------------------------------------

func seedDescriptions(t *testing.T, s *Store) {
	t.Helper()
	descs := []Description{
		{ID: 11, ConceptID: disease, Term: "Disease (disorder)", TypeID: concept.FullySpecifiedName, Active: true, EffectiveTime: "20020131"},
		{ID: 12, ConceptID: disease, Term: "Disease", TypeID: concept.Synonym, Active: true, EffectiveTime: "20020131"},
		{ID: 13, ConceptID: disease, Term: "Disorder", TypeID: concept.Synonym, Active: true, EffectiveTime: "20090731"},
		{ID: 14, ConceptID: disease, Term: "Sickness", TypeID: concept.Synonym, Active: false, EffectiveTime: "20190131"},
		{ID: 15, ConceptID: catDisease, Term: "Feline disease (disorder)", TypeID: concept.FullySpecifiedName, Active: true, EffectiveTime: "20090731"},
	}
	if err := s.InsertDescriptions(context.Background(), descs); err != nil {
		t.Fatalf("inserting descriptions: %v", err)
	}
}

func TestPreferredTerm(t *testing.T) {
	s := newTestStore(t)
	seedSnapshot(t, s)
	seedDescriptions(t, s)
	ctx := context.Background()

	// Most recent active synonym wins; the newer inactive one does not.
	term, err := s.PreferredTerm(ctx, disease)
	if err != nil {
		t.Fatalf("preferred term: %v", err)
	}
	if term != "Disorder" {
		t.Fatalf("expected most recent active synonym, got %q", term)
	}

	// FSN fallback when no synonym exists.
	term, err = s.PreferredTerm(ctx, catDisease)
	if err != nil {
		t.Fatalf("preferred term fallback: %v", err)
	}
	if term != "Feline disease (disorder)" {
		t.Fatalf("expected FSN fallback, got %q", term)
	}

	if _, err := s.PreferredTerm(ctx, dogDisease); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for concept without terms, got %v", err)
	}
}

func TestFullySpecifiedName(t *testing.T) {
	s := newTestStore(t)
	seedSnapshot(t, s)
	seedDescriptions(t, s)

	fsn, err := s.FullySpecifiedName(context.Background(), disease)
	if err != nil {
		t.Fatalf("fsn: %v", err)
	}
	if fsn != "Disease (disorder)" {
		t.Fatalf("unexpected FSN %q", fsn)
	}
}

func TestSearchTerms(t *testing.T) {
	s := newTestStore(t)
	seedSnapshot(t, s)
	seedDescriptions(t, s)

	hits, err := s.SearchTerms(context.Background(), "feline", 10)
	if err != nil {
		t.Fatalf("searching terms: %v", err)
	}
	if len(hits) != 1 || hits[0].ConceptID != catDisease {
		t.Fatalf("unexpected hits: %+v", hits)
	}

	hits, err = s.SearchTerms(context.Background(), "", 10)
	if err != nil || hits != nil {
		t.Fatalf("empty query should return nothing, got %+v, %v", hits, err)
	}
}

// Re-importing a snapshot rewrites existing description rows; the FTS index
// must follow: the old term stops matching, the new term matches once, and
// unchanged rows do not accumulate duplicate index entries.
func TestSearchTermsAfterReimport(t *testing.T) {
	s := newTestStore(t)
	seedSnapshot(t, s)
	seedDescriptions(t, s)
	ctx := context.Background()

	// Second import: the FSN of catDisease changes, the others are rewritten
	// unchanged.
	reimport := []Description{
		{ID: 11, ConceptID: disease, Term: "Disease (disorder)", TypeID: concept.FullySpecifiedName, Active: true, EffectiveTime: "20020131"},
		{ID: 15, ConceptID: catDisease, Term: "Cat disease (disorder)", TypeID: concept.FullySpecifiedName, Active: true, EffectiveTime: "20240101"},
	}
	if err := s.InsertDescriptions(ctx, reimport); err != nil {
		t.Fatalf("re-importing descriptions: %v", err)
	}

	hits, err := s.SearchTerms(ctx, "feline", 10)
	if err != nil {
		t.Fatalf("searching replaced term: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("replaced term still matches: %+v", hits)
	}

	hits, err = s.SearchTerms(ctx, "cat", 10)
	if err != nil {
		t.Fatalf("searching new term: %v", err)
	}
	if len(hits) != 1 || hits[0].ConceptID != catDisease || hits[0].Term != "Cat disease (disorder)" {
		t.Fatalf("unexpected hits for new term: %+v", hits)
	}

	hits, err = s.SearchTerms(ctx, "disease", 10)
	if err != nil {
		t.Fatalf("searching unchanged term: %v", err)
	}
	for i, h := range hits {
		for _, other := range hits[i+1:] {
			if h.DescriptionID == other.DescriptionID {
				t.Fatalf("duplicate index entry for description %d: %+v", h.DescriptionID, hits)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Closure persistence
// ---------------------------------------------------------------------------

func TestClosureRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rows := []ClosureRow{
		{AncestorID: disease, DescendantID: catDisease},
		{AncestorID: disease, DescendantID: dogDisease},
		{AncestorID: finding, DescendantID: catDisease},
	}
	if err := s.SaveClosure(ctx, "diseases", rows); err != nil {
		t.Fatalf("saving closure: %v", err)
	}

	got, err := s.LoadClosure(ctx, "diseases")
	if err != nil {
		t.Fatalf("loading closure: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("expected %d rows, got %d", len(rows), len(got))
	}

	names, err := s.Closures(ctx)
	if err != nil || len(names) != 1 || names[0] != "diseases" {
		t.Fatalf("unexpected closure list: %v, %v", names, err)
	}

	// Re-saving replaces rather than appends.
	if err := s.SaveClosure(ctx, "diseases", rows[:1]); err != nil {
		t.Fatalf("re-saving closure: %v", err)
	}
	got, err = s.LoadClosure(ctx, "diseases")
	if err != nil || len(got) != 1 {
		t.Fatalf("expected replaced closure with 1 row, got %d, %v", len(got), err)
	}

	if err := s.DeleteClosure(ctx, "diseases"); err != nil {
		t.Fatalf("deleting closure: %v", err)
	}
	if _, err := s.LoadClosure(ctx, "diseases"); !errors.Is(err, ErrClosureNotFound) {
		t.Fatalf("expected ErrClosureNotFound after delete, got %v", err)
	}
	if err := s.DeleteClosure(ctx, "diseases"); !errors.Is(err, ErrClosureNotFound) {
		t.Fatalf("expected ErrClosureNotFound on double delete, got %v", err)
	}
}

func TestEmptyClosureRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveClosure(ctx, "empty", nil); err != nil {
		t.Fatalf("saving empty closure: %v", err)
	}
	got, err := s.LoadClosure(ctx, "empty")
	if err != nil {
		t.Fatalf("loading empty closure: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected 0 rows, got %d", len(got))
	}
}

func TestSaveClosureRejectsEmptyName(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveClosure(context.Background(), "", nil); err == nil {
		t.Fatal("expected error for empty closure name")
	}
}
