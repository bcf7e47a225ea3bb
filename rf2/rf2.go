// Package rf2 loads a terminology release in RF2 snapshot format — the
// tab-separated concept, description and relationship files of a SNOMED CT
// distribution — into a snapshot store, along with concept subsets shipped
// as spreadsheets.
package rf2

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/clinvoc/termgraph/concept"
	"github.com/clinvoc/termgraph/store"
)

// batchSize is the number of rows inserted per transaction.
const batchSize = 5000

// File name prefixes of the RF2 snapshot files we consume.
const (
	prefixConcept      = "sct2_Concept_"
	prefixDescription  = "sct2_Description_"
	prefixRelationship = "sct2_Relationship_"
	prefixStated       = "sct2_StatedRelationship_"
)

// Stats summarises a completed load.
type Stats struct {
	Concepts      int64
	Descriptions  int64
	Relationships int64
	HasInactive   bool
}

// Load walks dir for RF2 snapshot files and loads them into the store:
// concepts and descriptions into their tables, inferred and stated
// relationship files into the "inferred" and "stated" edge tables. It
// records whether any inactive row was seen so active-only filtering can be
// skipped on snapshots without history.
func Load(ctx context.Context, s *store.Store, dir string) (*Stats, error) {
	var conceptFiles, descriptionFiles, inferredFiles, statedFiles []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".txt") {
			return nil
		}
		switch {
		case strings.HasPrefix(d.Name(), prefixConcept):
			conceptFiles = append(conceptFiles, path)
		case strings.HasPrefix(d.Name(), prefixDescription):
			descriptionFiles = append(descriptionFiles, path)
		case strings.HasPrefix(d.Name(), prefixStated):
			statedFiles = append(statedFiles, path)
		case strings.HasPrefix(d.Name(), prefixRelationship):
			inferredFiles = append(inferredFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	if len(conceptFiles) == 0 && len(descriptionFiles) == 0 &&
		len(inferredFiles) == 0 && len(statedFiles) == 0 {
		return nil, fmt.Errorf("no RF2 snapshot files found under %s", dir)
	}

	stats := &Stats{}
	for _, f := range conceptFiles {
		if err := loadConcepts(ctx, s, f, stats); err != nil {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	for _, f := range descriptionFiles {
		if err := loadDescriptions(ctx, s, f, stats); err != nil {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	for _, f := range inferredFiles {
		if err := loadRelationships(ctx, s, f, store.EdgeSetInferred, stats); err != nil {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	for _, f := range statedFiles {
		if err := loadRelationships(ctx, s, f, store.EdgeSetStated, stats); err != nil {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	if err := s.SetHasInactiveRows(ctx, stats.HasInactive); err != nil {
		return nil, fmt.Errorf("recording snapshot flags: %w", err)
	}
	return stats, nil
}

// forEachRow streams the tab-separated rows of an RF2 file, skipping the
// header line. fields is the minimum column count a row must have.
func forEachRow(path string, fields int, fn func(cols []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	// Description terms can be long; give the scanner room.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		if line == 1 {
			// Header row ("id<TAB>effectiveTime<TAB>...").
			continue
		}
		text := sc.Text()
		if text == "" {
			continue
		}
		cols := strings.Split(text, "\t")
		if len(cols) < fields {
			slog.Warn("skipping malformed RF2 row", "file", filepath.Base(path), "line", line, "columns", len(cols))
			continue
		}
		if err := fn(cols); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return sc.Err()
}

func parseID(s string) (concept.ID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing id %q: %w", s, err)
	}
	return concept.ID(n), nil
}

// RF2 columns: id effectiveTime active moduleId definitionStatusId
func loadConcepts(ctx context.Context, s *store.Store, path string, stats *Stats) error {
	batch := make([]store.Concept, 0, batchSize)
	flush := func() error {
		if err := s.InsertConcepts(ctx, batch); err != nil {
			return err
		}
		stats.Concepts += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	err := forEachRow(path, 5, func(cols []string) error {
		id, err := parseID(cols[0])
		if err != nil {
			return err
		}
		moduleID, err := parseID(cols[3])
		if err != nil {
			return err
		}
		active := cols[2] == "1"
		if !active {
			stats.HasInactive = true
		}
		batch = append(batch, store.Concept{
			ID:            id,
			Active:        active,
			EffectiveTime: cols[1],
			ModuleID:      moduleID,
		})
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return flush()
}

// RF2 columns: id effectiveTime active moduleId conceptId languageCode
// typeId term caseSignificanceId
func loadDescriptions(ctx context.Context, s *store.Store, path string, stats *Stats) error {
	batch := make([]store.Description, 0, batchSize)
	flush := func() error {
		if err := s.InsertDescriptions(ctx, batch); err != nil {
			return err
		}
		stats.Descriptions += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	err := forEachRow(path, 9, func(cols []string) error {
		id, err := parseID(cols[0])
		if err != nil {
			return err
		}
		conceptID, err := parseID(cols[4])
		if err != nil {
			return err
		}
		typeID, err := parseID(cols[6])
		if err != nil {
			return err
		}
		active := cols[2] == "1"
		if !active {
			stats.HasInactive = true
		}
		batch = append(batch, store.Description{
			ID:            uint64(id),
			ConceptID:     conceptID,
			Term:          cols[7],
			TypeID:        typeID,
			Language:      cols[5],
			Active:        active,
			EffectiveTime: cols[1],
		})
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return flush()
}

// RF2 columns: id effectiveTime active moduleId sourceId destinationId
// relationshipGroup typeId characteristicTypeId modifierId
func loadRelationships(ctx context.Context, s *store.Store, path, edgeSet string, stats *Stats) error {
	batch := make([]store.Relationship, 0, batchSize)
	flush := func() error {
		if err := s.InsertRelationships(ctx, edgeSet, batch); err != nil {
			return err
		}
		stats.Relationships += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	err := forEachRow(path, 10, func(cols []string) error {
		id, err := parseID(cols[0])
		if err != nil {
			return err
		}
		sourceID, err := parseID(cols[4])
		if err != nil {
			return err
		}
		destinationID, err := parseID(cols[5])
		if err != nil {
			return err
		}
		group, err := strconv.Atoi(cols[6])
		if err != nil {
			return fmt.Errorf("parsing relationship group %q: %w", cols[6], err)
		}
		typeID, err := parseID(cols[7])
		if err != nil {
			return err
		}
		active := cols[2] == "1"
		if !active {
			stats.HasInactive = true
		}
		batch = append(batch, store.Relationship{
			ID:            uint64(id),
			SourceID:      sourceID,
			DestinationID: destinationID,
			TypeID:        typeID,
			Group:         group,
			Active:        active,
			EffectiveTime: cols[1],
		})
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return flush()
}
