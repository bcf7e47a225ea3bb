// Package query implements the read-only query primitives over a loaded
// terminology snapshot: single and multi-hop relationship traversal,
// transitive closure construction, ancestor/descendant queries, attribute
// matching and ancestor simplification. All operations are pure with respect
// to the snapshot; independent invocations are safe to run concurrently.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/clinvoc/termgraph/store"
)

var (
	// ErrNoEdgeTables is returned when a query resolves to zero edge
	// tables, either because none were named and the snapshot is empty or
	// because an explicit list was empty.
	ErrNoEdgeTables = errors.New("query: no edge tables to query")

	// ErrNoRelationType is returned when a traversal is requested without
	// a relation type.
	ErrNoRelationType = errors.New("query: no relation type given")
)

// Option configures a single query invocation.
type Option func(*options)

type options struct {
	tables      []string
	reverse     bool
	recursive   bool
	activeOnly  bool
	includeSelf bool
	closure     *Closure
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// On restricts the query to the named edge tables. Without it every edge
// table in the snapshot is consulted.
func On(tables ...string) Option {
	return func(o *options) { o.tables = append(o.tables, tables...) }
}

// Reverse flips the traversal direction: anchors match the destination side
// of edges and partners are sources.
func Reverse() Option {
	return func(o *options) { o.reverse = true }
}

// Recursive saturates the traversal: partners of partners are followed
// until no new concept appears.
func Recursive() Option {
	return func(o *options) { o.recursive = true }
}

// ActiveOnly ignores inactive edges entirely, even where an otherwise
// identical inactive edge exists.
func ActiveOnly() Option {
	return func(o *options) { o.activeOnly = true }
}

// IncludeInactive opts back into historical edges, overriding an earlier
// ActiveOnly (e.g. a session-level default).
func IncludeInactive() Option {
	return func(o *options) { o.activeOnly = false }
}

// IncludeSelf unions the input concepts into the result instead of
// removing them.
func IncludeSelf() Option {
	return func(o *options) { o.includeSelf = true }
}

// UseClosure answers ancestor/descendant queries from a precomputed
// transitive closure instead of live recursive traversal.
func UseClosure(c *Closure) Option {
	return func(o *options) { o.closure = c }
}

// resolveTables expands an option table list to concrete edge table names,
// defaulting to every table in the snapshot. It fails eagerly when nothing
// is left to query or an explicitly named table is unknown.
func resolveTables(ctx context.Context, st *store.Store, o options) ([]string, error) {
	known, err := st.EdgeSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing edge tables: %w", err)
	}
	if len(o.tables) == 0 {
		if len(known) == 0 {
			return nil, ErrNoEdgeTables
		}
		return known, nil
	}
	knownSet := make(map[string]bool, len(known))
	for _, k := range known {
		knownSet[k] = true
	}
	for _, t := range o.tables {
		if !knownSet[t] {
			return nil, fmt.Errorf("%q: %w", t, store.ErrUnknownEdgeSet)
		}
	}
	return o.tables, nil
}
