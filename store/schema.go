package store

// schemaSQL is the DDL for a terminology snapshot database. Relationship
// rows from every edge table (inferred, stated, ...) share one physical
// table keyed by edge_set; the three composite indexes match the three join
// keys the query engine uses: (anchor=source, type), (anchor=destination,
// type) and the full (source, destination, type) triple. The active flag is
// part of the first two indexes so an active-only lookup never touches
// inactive rows.
const schemaSQL = `
-- Snapshot-level flags and provenance (e.g. whether inactive rows exist)
CREATE TABLE IF NOT EXISTS snapshot_meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Concept inventory; partner lookups join against this table so that
-- edges pointing at unknown concepts are dropped rather than surfaced.
CREATE TABLE IF NOT EXISTS concepts (
    id INTEGER PRIMARY KEY,
    active INTEGER NOT NULL DEFAULT 1,
    effective_time TEXT NOT NULL DEFAULT '',
    module_id INTEGER NOT NULL DEFAULT 0
);

-- Term texts. type_id distinguishes fully specified names from synonyms.
CREATE TABLE IF NOT EXISTS descriptions (
    id INTEGER PRIMARY KEY,
    concept_id INTEGER NOT NULL,
    term TEXT NOT NULL,
    type_id INTEGER NOT NULL,
    language TEXT NOT NULL DEFAULT 'en',
    active INTEGER NOT NULL DEFAULT 1,
    effective_time TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_descriptions_concept
    ON descriptions(concept_id, type_id, active);

-- Typed edges across all named edge tables.
CREATE TABLE IF NOT EXISTS relationships (
    id INTEGER NOT NULL,
    edge_set TEXT NOT NULL,
    source_id INTEGER NOT NULL,
    destination_id INTEGER NOT NULL,
    type_id INTEGER NOT NULL,
    relationship_group INTEGER NOT NULL DEFAULT 0,
    active INTEGER NOT NULL DEFAULT 1,
    effective_time TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (edge_set, id)
);

CREATE INDEX IF NOT EXISTS idx_rel_source
    ON relationships(edge_set, source_id, type_id, active);
CREATE INDEX IF NOT EXISTS idx_rel_destination
    ON relationships(edge_set, destination_id, type_id, active);
CREATE INDEX IF NOT EXISTS idx_rel_triple
    ON relationships(edge_set, source_id, destination_id, type_id);

-- Named precomputed transitive closures. The registry row keeps an empty
-- closure distinguishable from a missing one.
CREATE TABLE IF NOT EXISTS closures (
    name TEXT PRIMARY KEY,
    built_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS closure_rows (
    closure TEXT NOT NULL REFERENCES closures(name) ON DELETE CASCADE,
    ancestor_id INTEGER NOT NULL,
    descendant_id INTEGER NOT NULL,
    PRIMARY KEY (closure, descendant_id, ancestor_id)
);

CREATE INDEX IF NOT EXISTS idx_closure_ancestor
    ON closure_rows(closure, ancestor_id);

-- Full-text search over description terms via FTS5
CREATE VIRTUAL TABLE IF NOT EXISTS descriptions_fts USING fts5(
    term,
    content='descriptions',
    content_rowid='id',
    tokenize='porter unicode61'
);

-- FTS triggers to keep index in sync
CREATE TRIGGER IF NOT EXISTS descriptions_ai AFTER INSERT ON descriptions BEGIN
    INSERT INTO descriptions_fts(rowid, term) VALUES (new.id, new.term);
END;
CREATE TRIGGER IF NOT EXISTS descriptions_ad AFTER DELETE ON descriptions BEGIN
    INSERT INTO descriptions_fts(descriptions_fts, rowid, term) VALUES ('delete', old.id, old.term);
END;
CREATE TRIGGER IF NOT EXISTS descriptions_au AFTER UPDATE ON descriptions BEGIN
    INSERT INTO descriptions_fts(descriptions_fts, rowid, term) VALUES ('delete', old.id, old.term);
    INSERT INTO descriptions_fts(rowid, term) VALUES (new.id, new.term);
END;
`
