package termgraph

import (
	"errors"

	"github.com/clinvoc/termgraph/query"
	"github.com/clinvoc/termgraph/store"
)

var (
	// ErrConceptNotFound is returned when a concept id does not exist in
	// the loaded snapshot.
	ErrConceptNotFound = store.ErrNotFound

	// ErrUnknownEdgeTable is returned when a query names an edge table
	// the snapshot does not contain.
	ErrUnknownEdgeTable = store.ErrUnknownEdgeSet

	// ErrNoEdgeTables is returned when a query resolves to zero edge
	// tables (e.g. an empty snapshot).
	ErrNoEdgeTables = query.ErrNoEdgeTables

	// ErrNoRelationType is returned when a traversal is requested without
	// a relation type.
	ErrNoRelationType = query.ErrNoRelationType

	// ErrClosureNotFound is returned when loading a closure that was
	// never saved.
	ErrClosureNotFound = store.ErrClosureNotFound

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("termgraph: invalid configuration")
)
