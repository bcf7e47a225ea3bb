// Package store provides read-mostly SQLite persistence for a terminology
// snapshot: concepts, description terms, typed relationship edge tables and
// optional precomputed transitive closures. The store is the sole source of
// truth for the query engine; it is built once by a loader and treated as
// immutable afterwards.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/clinvoc/termgraph/concept"
)

var (
	// ErrNotFound is returned when a concept or description id does not
	// exist in the snapshot.
	ErrNotFound = errors.New("store: not found")

	// ErrUnknownEdgeSet is returned when a query names an edge table the
	// snapshot does not contain.
	ErrUnknownEdgeSet = errors.New("store: unknown edge table")

	// ErrClosureNotFound is returned when loading a closure that was never
	// saved.
	ErrClosureNotFound = errors.New("store: closure not found")
)

// Canonical edge table names produced by the RF2 loader.
const (
	EdgeSetInferred = "inferred"
	EdgeSetStated   = "stated"
)

// metaHasInactive is the snapshot_meta key recording whether the loaded
// snapshot contains inactive rows; active-only filtering is a no-op when it
// does not.
const metaHasInactive = "has_inactive_rows"

// maxInParams caps the size of a single IN (...) list; larger id sets are
// chunked across several statements to stay under SQLite's bind limit.
const maxInParams = 500

// Concept represents a row in the concepts table.
type Concept struct {
	ID            concept.ID
	Active        bool
	EffectiveTime string
	ModuleID      concept.ID
}

// Description represents a row in the descriptions table.
type Description struct {
	ID            uint64
	ConceptID     concept.ID
	Term          string
	TypeID        concept.ID
	Language      string
	Active        bool
	EffectiveTime string
}

// Relationship represents one typed edge. The edge table it belongs to is
// supplied separately on insert and query.
type Relationship struct {
	ID            uint64
	SourceID      concept.ID
	DestinationID concept.ID
	TypeID        concept.ID
	Group         int
	Active        bool
	EffectiveTime string
}

// Pair is one (anchor, partner) hit from a relationship lookup.
type Pair struct {
	Anchor  concept.ID
	Partner concept.ID
}

// Triple is an exact (source, destination, type) edge key.
type Triple struct {
	SourceID      concept.ID
	DestinationID concept.ID
	TypeID        concept.ID
}

// IsAEdge is one hierarchical child→parent edge.
type IsAEdge struct {
	ChildID  concept.ID
	ParentID concept.ID
}

// ClosureRow materializes that AncestorID reaches DescendantID through one
// or more is-a edges. Reflexive rows are never stored.
type ClosureRow struct {
	AncestorID   concept.ID
	DescendantID concept.ID
}

// TermHit is one full-text search result over description terms.
type TermHit struct {
	ConceptID     concept.ID
	DescriptionID uint64
	Term          string
	TypeID        concept.ID
}

// Store wraps the SQLite database holding one terminology snapshot.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a snapshot database at the given path and
// initialises the schema including the FTS5 term index.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Snapshot metadata ---

// SetMeta stores a snapshot-level key/value flag.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshot_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Meta retrieves a snapshot-level flag; missing keys yield "".
func (s *Store) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM snapshot_meta WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// SetHasInactiveRows records whether the snapshot carries inactive rows.
func (s *Store) SetHasInactiveRows(ctx context.Context, has bool) error {
	v := "false"
	if has {
		v = "true"
	}
	return s.SetMeta(ctx, metaHasInactive, v)
}

// HasInactiveRows reports whether the snapshot carries inactive rows.
// Active-only query filters are meaningful only when it does.
func (s *Store) HasInactiveRows(ctx context.Context) (bool, error) {
	v, err := s.Meta(ctx, metaHasInactive)
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

// --- Concepts ---

// InsertConcepts writes a batch of concept rows in one transaction,
// replacing rows that already exist.
func (s *Store) InsertConcepts(ctx context.Context, rows []Concept) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO concepts (id, active, effective_time, module_id)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range rows {
		if _, err := stmt.ExecContext(ctx, int64(c.ID), boolInt(c.Active), c.EffectiveTime, int64(c.ModuleID)); err != nil {
			return fmt.Errorf("inserting concept %d: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// HasConcept reports whether id exists in the snapshot.
func (s *Store) HasConcept(ctx context.Context, id concept.ID) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM concepts WHERE id = ?", int64(id)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Concept retrieves a single concept row.
func (s *Store) Concept(ctx context.Context, id concept.ID) (*Concept, error) {
	c := &Concept{}
	var cid, mod int64
	var active int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, active, effective_time, module_id FROM concepts WHERE id = ?
	`, int64(id)).Scan(&cid, &active, &c.EffectiveTime, &mod)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("concept %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	c.ID = concept.ID(cid)
	c.Active = active != 0
	c.ModuleID = concept.ID(mod)
	return c, nil
}

// ConceptCount returns the number of concepts in the snapshot.
func (s *Store) ConceptCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM concepts").Scan(&n)
	return n, err
}

// --- Descriptions ---

// InsertDescriptions writes a batch of description rows in one transaction.
// Existing rows are upserted rather than replaced: REPLACE would delete the
// old row without firing the delete trigger (recursive_triggers is off),
// stranding the old term's tokens in the FTS index.
func (s *Store) InsertDescriptions(ctx context.Context, rows []Description) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO descriptions
			(id, concept_id, term, type_id, language, active, effective_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			concept_id = excluded.concept_id,
			term = excluded.term,
			type_id = excluded.type_id,
			language = excluded.language,
			active = excluded.active,
			effective_time = excluded.effective_time
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range rows {
		lang := d.Language
		if lang == "" {
			lang = "en"
		}
		if _, err := stmt.ExecContext(ctx, int64(d.ID), int64(d.ConceptID), d.Term,
			int64(d.TypeID), lang, boolInt(d.Active), d.EffectiveTime); err != nil {
			return fmt.Errorf("inserting description %d: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// PreferredTerm returns the display term for a concept: the most recently
// effective active synonym, falling back to the fully specified name.
func (s *Store) PreferredTerm(ctx context.Context, id concept.ID) (string, error) {
	var term string
	err := s.db.QueryRowContext(ctx, `
		SELECT term FROM descriptions
		WHERE concept_id = ? AND type_id = ? AND active = 1
		ORDER BY effective_time DESC, id ASC LIMIT 1
	`, int64(id), int64(concept.Synonym)).Scan(&term)
	if err == nil {
		return term, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	return s.FullySpecifiedName(ctx, id)
}

// FullySpecifiedName returns the active FSN of a concept.
func (s *Store) FullySpecifiedName(ctx context.Context, id concept.ID) (string, error) {
	var term string
	err := s.db.QueryRowContext(ctx, `
		SELECT term FROM descriptions
		WHERE concept_id = ? AND type_id = ? AND active = 1
		ORDER BY effective_time DESC, id ASC LIMIT 1
	`, int64(id), int64(concept.FullySpecifiedName)).Scan(&term)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("term for concept %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return term, nil
}

// SearchTerms runs a full-text query against description terms and returns
// up to limit hits ranked by FTS5 relevance.
func (s *Store) SearchTerms(ctx context.Context, query string, limit int) ([]TermHit, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.concept_id, d.id, d.term, d.type_id
		FROM descriptions_fts f
		JOIN descriptions d ON d.id = f.rowid
		WHERE descriptions_fts MATCH ? AND d.active = 1
		ORDER BY f.rank LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching terms: %w", err)
	}
	defer rows.Close()

	var hits []TermHit
	for rows.Next() {
		var h TermHit
		var cid, did, tid int64
		if err := rows.Scan(&cid, &did, &h.Term, &tid); err != nil {
			return nil, err
		}
		h.ConceptID = concept.ID(cid)
		h.DescriptionID = uint64(did)
		h.TypeID = concept.ID(tid)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// --- Relationships ---

// InsertRelationships writes a batch of edges into the named edge table in
// one transaction.
func (s *Store) InsertRelationships(ctx context.Context, edgeSet string, rows []Relationship) error {
	if edgeSet == "" {
		return fmt.Errorf("inserting relationships: empty edge table name")
	}
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO relationships
			(id, edge_set, source_id, destination_id, type_id, relationship_group, active, effective_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, int64(r.ID), edgeSet, int64(r.SourceID),
			int64(r.DestinationID), int64(r.TypeID), r.Group, boolInt(r.Active), r.EffectiveTime); err != nil {
			return fmt.Errorf("inserting relationship %d: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// EdgeSets returns the names of the edge tables present in the snapshot.
func (s *Store) EdgeSets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT edge_set FROM relationships ORDER BY edge_set")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// ensureEdgeSet rejects queries against edge tables the snapshot does not
// contain, so a misspelt table name fails loudly instead of matching nothing.
func (s *Store) ensureEdgeSet(ctx context.Context, edgeSet string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM relationships WHERE edge_set = ? LIMIT 1", edgeSet).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%q: %w", edgeSet, ErrUnknownEdgeSet)
	}
	return err
}

// Partners returns the (anchor, partner) pairs of every edge in edgeSet with
// the given type whose anchor side is in anchors. With reverse false the
// anchor side is the source and partners are destinations; with reverse true
// the roles swap. When activeOnly is set the active flag is part of the
// lookup key, so inactive edges are never considered. Partners that do not
// resolve to a known concept are dropped.
func (s *Store) Partners(ctx context.Context, edgeSet string, anchors []concept.ID, typeID concept.ID, reverse, activeOnly bool) ([]Pair, error) {
	if len(anchors) == 0 {
		return nil, nil
	}
	if err := s.ensureEdgeSet(ctx, edgeSet); err != nil {
		return nil, err
	}

	anchorCol, partnerCol := "source_id", "destination_id"
	if reverse {
		anchorCol, partnerCol = partnerCol, anchorCol
	}

	var pairs []Pair
	for _, chunk := range chunkIDs(anchors) {
		q := fmt.Sprintf(`
			SELECT r.%s, r.%s FROM relationships r
			JOIN concepts c ON c.id = r.%s
			WHERE r.edge_set = ? AND r.type_id = ? AND r.%s IN (%s)`,
			anchorCol, partnerCol, partnerCol, anchorCol, placeholders(len(chunk)))
		args := make([]any, 0, len(chunk)+3)
		args = append(args, edgeSet, int64(typeID))
		for _, id := range chunk {
			args = append(args, int64(id))
		}
		if activeOnly {
			q += " AND r.active = 1"
		}

		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("querying partners in %q: %w", edgeSet, err)
		}
		for rows.Next() {
			var a, p int64
			if err := rows.Scan(&a, &p); err != nil {
				rows.Close()
				return nil, err
			}
			pairs = append(pairs, Pair{Anchor: concept.ID(a), Partner: concept.ID(p)})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return pairs, nil
}

// HasTriples reports which of the given (source, destination, type) triples
// exist as edges in edgeSet. Only present triples appear in the result map.
func (s *Store) HasTriples(ctx context.Context, edgeSet string, triples []Triple, activeOnly bool) (map[Triple]bool, error) {
	if len(triples) == 0 {
		return nil, nil
	}
	if err := s.ensureEdgeSet(ctx, edgeSet); err != nil {
		return nil, err
	}

	found := make(map[Triple]bool)
	for start := 0; start < len(triples); start += maxInParams / 3 {
		end := start + maxInParams/3
		if end > len(triples) {
			end = len(triples)
		}
		chunk := triples[start:end]

		values := strings.TrimSuffix(strings.Repeat("(?,?,?),", len(chunk)), ",")
		q := fmt.Sprintf(`
			SELECT DISTINCT source_id, destination_id, type_id FROM relationships
			WHERE edge_set = ?
			  AND (source_id, destination_id, type_id) IN (VALUES %s)`, values)
		if activeOnly {
			q += " AND active = 1"
		}
		args := make([]any, 0, len(chunk)*3+1)
		args = append(args, edgeSet)
		for _, t := range chunk {
			args = append(args, int64(t.SourceID), int64(t.DestinationID), int64(t.TypeID))
		}

		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("checking triples in %q: %w", edgeSet, err)
		}
		for rows.Next() {
			var src, dst, typ int64
			if err := rows.Scan(&src, &dst, &typ); err != nil {
				rows.Close()
				return nil, err
			}
			found[Triple{concept.ID(src), concept.ID(dst), concept.ID(typ)}] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return found, nil
}

// ConceptEdges returns every edge in edgeSet where any of the given ids is
// the source, followed by every edge where any is the destination. An edge
// between two of the ids appears twice, once per join.
func (s *Store) ConceptEdges(ctx context.Context, edgeSet string, ids []concept.ID, activeOnly bool) ([]Relationship, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if err := s.ensureEdgeSet(ctx, edgeSet); err != nil {
		return nil, err
	}

	var out []Relationship
	for _, col := range []string{"source_id", "destination_id"} {
		for _, chunk := range chunkIDs(ids) {
			q := fmt.Sprintf(`
				SELECT id, source_id, destination_id, type_id, relationship_group, active, effective_time
				FROM relationships
				WHERE edge_set = ? AND %s IN (%s)`, col, placeholders(len(chunk)))
			if activeOnly {
				q += " AND active = 1"
			}
			q += " ORDER BY id"
			args := make([]any, 0, len(chunk)+1)
			args = append(args, edgeSet)
			for _, id := range chunk {
				args = append(args, int64(id))
			}

			rows, err := s.db.QueryContext(ctx, q, args...)
			if err != nil {
				return nil, fmt.Errorf("querying concept edges in %q: %w", edgeSet, err)
			}
			for rows.Next() {
				var r Relationship
				var rid, src, dst, typ int64
				var active int
				if err := rows.Scan(&rid, &src, &dst, &typ, &r.Group, &active, &r.EffectiveTime); err != nil {
					rows.Close()
					return nil, err
				}
				r.ID = uint64(rid)
				r.SourceID = concept.ID(src)
				r.DestinationID = concept.ID(dst)
				r.TypeID = concept.ID(typ)
				r.Active = active != 0
				out = append(out, r)
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return nil, err
			}
			rows.Close()
		}
	}
	return out, nil
}

// IsAEdges returns the child→parent pairs of every is-a edge in edgeSet
// touching the given subset on either side.
func (s *Store) IsAEdges(ctx context.Context, edgeSet string, subset []concept.ID, activeOnly bool) ([]IsAEdge, error) {
	if len(subset) == 0 {
		return nil, nil
	}
	if err := s.ensureEdgeSet(ctx, edgeSet); err != nil {
		return nil, err
	}

	var out []IsAEdge
	for _, chunk := range chunkIDs(subset) {
		ph := placeholders(len(chunk))
		q := fmt.Sprintf(`
			SELECT DISTINCT source_id, destination_id FROM relationships
			WHERE edge_set = ? AND type_id = ?
			  AND (source_id IN (%s) OR destination_id IN (%s))`, ph, ph)
		if activeOnly {
			q += " AND active = 1"
		}
		args := make([]any, 0, 2*len(chunk)+2)
		args = append(args, edgeSet, int64(concept.IsA))
		for _, id := range chunk {
			args = append(args, int64(id))
		}
		for _, id := range chunk {
			args = append(args, int64(id))
		}

		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("querying is-a edges in %q: %w", edgeSet, err)
		}
		for rows.Next() {
			var child, parent int64
			if err := rows.Scan(&child, &parent); err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, IsAEdge{ChildID: concept.ID(child), ParentID: concept.ID(parent)})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// --- Closures ---

// SaveClosure persists a built transitive closure under the given name,
// replacing any previous closure with that name.
func (s *Store) SaveClosure(ctx context.Context, name string, rows []ClosureRow) error {
	if name == "" {
		return fmt.Errorf("saving closure: empty name")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM closure_rows WHERE closure = ?", name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO closures (name) VALUES (?)
		ON CONFLICT(name) DO UPDATE SET built_at = CURRENT_TIMESTAMP
	`, name); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO closure_rows (closure, ancestor_id, descendant_id)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, name, int64(r.AncestorID), int64(r.DescendantID)); err != nil {
			return fmt.Errorf("inserting closure row (%d,%d): %w", r.AncestorID, r.DescendantID, err)
		}
	}
	return tx.Commit()
}

// LoadClosure retrieves a previously saved closure by name.
func (s *Store) LoadClosure(ctx context.Context, name string) ([]ClosureRow, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM closures WHERE name = ?", name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%q: %w", name, ErrClosureNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ancestor_id, descendant_id FROM closure_rows
		WHERE closure = ? ORDER BY descendant_id, ancestor_id
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClosureRow
	for rows.Next() {
		var a, d int64
		if err := rows.Scan(&a, &d); err != nil {
			return nil, err
		}
		out = append(out, ClosureRow{AncestorID: concept.ID(a), DescendantID: concept.ID(d)})
	}
	return out, rows.Err()
}

// Closures lists the names of saved closures.
func (s *Store) Closures(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM closures ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// DeleteClosure removes a saved closure and its rows.
func (s *Store) DeleteClosure(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM closures WHERE name = ?", name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%q: %w", name, ErrClosureNotFound)
	}
	return nil
}

// --- helpers ---

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// chunkIDs splits ids into slices of at most maxInParams elements.
func chunkIDs(ids []concept.ID) [][]concept.ID {
	var chunks [][]concept.ID
	for start := 0; start < len(ids); start += maxInParams {
		end := start + maxInParams
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// placeholders returns "?,?,...,?" with n placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
