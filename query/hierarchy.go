package query

import (
	"context"

	"github.com/clinvoc/termgraph/concept"
)

// Hierarchy answers parent/child/ancestor/descendant queries over the is-a
// relation. Ancestor and descendant queries use a precomputed closure when
// one is supplied via UseClosure, and fall back to live recursive traversal
// otherwise.
type Hierarchy struct {
	res *Resolver
}

// NewHierarchy returns a hierarchy query facade over the given resolver.
func NewHierarchy(r *Resolver) *Hierarchy {
	return &Hierarchy{res: r}
}

// Parents returns the direct is-a parents of the given concepts.
func (h *Hierarchy) Parents(ctx context.Context, ids concept.Set, opts ...Option) (concept.Set, error) {
	o := applyOptions(opts)
	o.reverse, o.recursive = false, false
	return h.run(ctx, ids, o)
}

// Children returns the direct is-a children of the given concepts.
func (h *Hierarchy) Children(ctx context.Context, ids concept.Set, opts ...Option) (concept.Set, error) {
	o := applyOptions(opts)
	o.reverse, o.recursive = true, false
	return h.run(ctx, ids, o)
}

// Ancestors returns every transitive is-a ancestor of the given concepts.
func (h *Hierarchy) Ancestors(ctx context.Context, ids concept.Set, opts ...Option) (concept.Set, error) {
	o := applyOptions(opts)
	o.reverse, o.recursive = false, true
	return h.run(ctx, ids, o)
}

// Descendants returns every transitive is-a descendant of the given concepts.
func (h *Hierarchy) Descendants(ctx context.Context, ids concept.Set, opts ...Option) (concept.Set, error) {
	o := applyOptions(opts)
	o.reverse, o.recursive = true, true
	return h.run(ctx, ids, o)
}

func (h *Hierarchy) run(ctx context.Context, ids concept.Set, o options) (concept.Set, error) {
	if ids.IsEmpty() {
		return concept.Set{}, nil
	}

	var result concept.Set
	if o.recursive && o.closure != nil {
		// Fast path: direct closure lookup instead of live traversal.
		result = concept.NewSet()
		for _, id := range ids.Slice() {
			if o.reverse {
				result.AddAll(o.closure.Descendants(id))
			} else {
				result.AddAll(o.closure.Ancestors(id))
			}
		}
	} else {
		var err error
		result, err = h.res.related(ctx, ids, concept.IsA, o)
		if err != nil {
			return concept.Set{}, err
		}
	}

	// A concept is never its own parent/child/ancestor/descendant in the
	// output unless the caller asked for self-inclusion.
	if o.includeSelf {
		return result.Union(ids), nil
	}
	return result.Without(ids), nil
}
