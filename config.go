package termgraph

import (
	"os"
	"path/filepath"
)

// Config holds all configuration for a terminology query session.
type Config struct {
	// DBPath is the full path to the snapshot SQLite database file.
	// If empty, defaults to ~/.termgraph/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "termgraph". The file will be <DBName>.db inside the
	// storage directory (~/.termgraph/ or working dir).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.termgraph/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// EdgeTables restricts every query to the named edge tables
	// (e.g. "inferred", "stated"). Empty means all tables in the snapshot.
	EdgeTables []string `json:"edge_tables" yaml:"edge_tables"`

	// ActiveOnly makes queries ignore inactive edges by default; callers
	// opt back into historical edges per query with IncludeInactive.
	ActiveOnly bool `json:"active_only" yaml:"active_only"`

	// SearchLimit caps the number of term search hits returned.
	SearchLimit int `json:"search_limit" yaml:"search_limit"`
}

// DefaultConfig returns a Config with sensible defaults: the current
// release graph only (active edges), every edge table, database stored in
// ~/.termgraph/termgraph.db.
func DefaultConfig() Config {
	return Config{
		DBName:      "termgraph",
		StorageDir:  "home",
		ActiveOnly:  true,
		SearchLimit: 50,
	}
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "termgraph"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		dir := filepath.Join(home, ".termgraph")
		return filepath.Join(dir, name+".db")
	}
}
