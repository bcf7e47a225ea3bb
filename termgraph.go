// Package termgraph is a query engine for a clinical terminology encoded as
// a directed, typed, versioned relationship graph: related-concept lookup,
// transitive ancestor/descendant resolution, attribute matching and
// simplification of concepts onto an arbitrary target set.
//
// A snapshot is loaded once (see the rf2 package) and queried many times;
// every query is a pure function of its inputs and the immutable snapshot,
// so independent queries may run concurrently.
package termgraph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clinvoc/termgraph/concept"
	"github.com/clinvoc/termgraph/query"
	"github.com/clinvoc/termgraph/rf2"
	"github.com/clinvoc/termgraph/store"
)

// Terminology is the main entry point: one open snapshot plus its query
// facades. Safe for concurrent readers.
type Terminology struct {
	cfg        Config
	store      *store.Store
	resolver   *query.Resolver
	hierarchy  *query.Hierarchy
	attributes *query.Attributes
	simplifier *query.Simplifier
	closures   *query.ClosureBuilder
}

// Open opens (or creates) the snapshot database named by cfg and wires up
// the query engine.
func Open(cfg Config) (*Terminology, error) {
	if cfg.SearchLimit < 0 {
		return nil, fmt.Errorf("%w: negative search limit", ErrInvalidConfig)
	}
	if cfg.SearchLimit == 0 {
		cfg.SearchLimit = DefaultConfig().SearchLimit
	}

	s, err := store.New(cfg.resolveDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	resolver := query.NewResolver(s)
	return &Terminology{
		cfg:        cfg,
		store:      s,
		resolver:   resolver,
		hierarchy:  query.NewHierarchy(resolver),
		attributes: query.NewAttributes(s),
		simplifier: query.NewSimplifier(resolver),
		closures:   query.NewClosureBuilder(s),
	}, nil
}

// Close cleanly shuts down the underlying snapshot database.
func (t *Terminology) Close() error {
	return t.store.Close()
}

// Store returns the underlying store for diagnostic access.
func (t *Terminology) Store() *store.Store {
	return t.store
}

// defaults prepends the session-level option defaults so per-call options
// can still override them.
func (t *Terminology) defaults(opts []query.Option) []query.Option {
	base := make([]query.Option, 0, len(opts)+2)
	if t.cfg.ActiveOnly {
		base = append(base, query.ActiveOnly())
	}
	if len(t.cfg.EdgeTables) > 0 {
		base = append(base, query.On(t.cfg.EdgeTables...))
	}
	return append(base, opts...)
}

// --- Traversal ---

// RelatedConcepts returns the concepts related to anchors through edges of
// the given relation type. See query.Resolver.
func (t *Terminology) RelatedConcepts(ctx context.Context, anchors concept.Set, typeID concept.ID, opts ...query.Option) (concept.Set, error) {
	return t.resolver.RelatedConcepts(ctx, anchors, typeID, t.defaults(opts)...)
}

// Parents returns the direct is-a parents of the given concepts.
func (t *Terminology) Parents(ctx context.Context, ids concept.Set, opts ...query.Option) (concept.Set, error) {
	return t.hierarchy.Parents(ctx, ids, t.defaults(opts)...)
}

// Children returns the direct is-a children of the given concepts.
func (t *Terminology) Children(ctx context.Context, ids concept.Set, opts ...query.Option) (concept.Set, error) {
	return t.hierarchy.Children(ctx, ids, t.defaults(opts)...)
}

// Ancestors returns every transitive is-a ancestor of the given concepts,
// via a precomputed closure when one is supplied with query.UseClosure.
func (t *Terminology) Ancestors(ctx context.Context, ids concept.Set, opts ...query.Option) (concept.Set, error) {
	return t.hierarchy.Ancestors(ctx, ids, t.defaults(opts)...)
}

// Descendants returns every transitive is-a descendant of the given concepts.
func (t *Terminology) Descendants(ctx context.Context, ids concept.Set, opts ...query.Option) (concept.Set, error) {
	return t.hierarchy.Descendants(ctx, ids, t.defaults(opts)...)
}

// --- Attributes ---

// HasAttributes reports, per broadcast position, whether the (source,
// destination, type) triple exists as an edge.
func (t *Terminology) HasAttributes(ctx context.Context, sources, destinations, types []concept.ID, opts ...query.Option) ([]bool, error) {
	return t.attributes.HasAttributes(ctx, sources, destinations, types, t.defaults(opts)...)
}

// ConceptAttributes returns every single-hop edge touching the given
// concepts, enriched with display terms.
func (t *Terminology) ConceptAttributes(ctx context.Context, ids []concept.ID, opts ...query.Option) ([]query.AttributeRow, error) {
	return t.attributes.ConceptAttributes(ctx, ids, t.defaults(opts)...)
}

// --- Simplification ---

// Simplify maps each input concept occurrence to the single unambiguous
// nearest ancestor within targets, keeping the original concept on
// ambiguity, dead ends or budget exhaustion.
func (t *Terminology) Simplify(ctx context.Context, ids []concept.ID, targets concept.Set, opts ...query.Option) ([]query.Simplification, error) {
	return t.simplifier.Simplify(ctx, ids, targets, t.defaults(opts)...)
}

// --- Transitive closures ---

// BuildClosure precomputes the is-a transitive closure over subset.
func (t *Terminology) BuildClosure(ctx context.Context, subset concept.Set, opts ...query.Option) (*query.Closure, error) {
	return t.closures.Build(ctx, subset, t.defaults(opts)...)
}

// SaveClosure persists a built closure under the given name. There is no
// automatic invalidation: rebuild after reloading the snapshot.
func (t *Terminology) SaveClosure(ctx context.Context, name string, c *query.Closure) error {
	return t.store.SaveClosure(ctx, name, c.Rows())
}

// LoadClosure retrieves a previously saved closure.
func (t *Terminology) LoadClosure(ctx context.Context, name string) (*query.Closure, error) {
	rows, err := t.store.LoadClosure(ctx, name)
	if err != nil {
		return nil, err
	}
	return query.NewClosure(rows), nil
}

// --- Terms ---

// PreferredTerm returns the display term for a concept.
func (t *Terminology) PreferredTerm(ctx context.Context, id concept.ID) (string, error) {
	return t.store.PreferredTerm(ctx, id)
}

// SemanticTag returns the semantic tag of a concept's fully specified name
// (e.g. "disorder"), or "" when the concept has no tagged FSN.
func (t *Terminology) SemanticTag(ctx context.Context, id concept.ID) (string, error) {
	fsn, err := t.store.FullySpecifiedName(ctx, id)
	if err != nil {
		return "", err
	}
	return concept.SemanticTag(fsn), nil
}

// SearchTerms runs a full-text query against description terms.
func (t *Terminology) SearchTerms(ctx context.Context, q string) ([]store.TermHit, error) {
	return t.store.SearchTerms(ctx, q, t.cfg.SearchLimit)
}

// --- Loading ---

// ImportRF2 loads an RF2 snapshot directory (concepts, descriptions,
// inferred and stated relationships) into the store, replacing rows that
// already exist.
func (t *Terminology) ImportRF2(ctx context.Context, dir string) (*rf2.Stats, error) {
	slog.Info("importing RF2 snapshot", "dir", dir)
	stats, err := rf2.Load(ctx, t.store, dir)
	if err != nil {
		return nil, fmt.Errorf("importing RF2 snapshot: %w", err)
	}
	slog.Info("RF2 import complete",
		"concepts", stats.Concepts,
		"descriptions", stats.Descriptions,
		"relationships", stats.Relationships,
		"has_inactive", stats.HasInactive)
	return stats, nil
}

// ImportSubsetXLSX reads a concept subset (one concept id per row, first
// column, every sheet) from a spreadsheet, validating each identifier.
func (t *Terminology) ImportSubsetXLSX(path string) (concept.Set, error) {
	return rf2.ReadSubsetXLSX(path)
}
