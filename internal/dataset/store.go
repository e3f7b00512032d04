// Package dataset backs the canned-dataset data source: a small SQLite store
// of reference rows seeded from YAML files, matched against a query by
// keyword overlap. The pipeline shapes the returned rows with the model; this
// package only stores and looks them up.
package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"widgetforge/internal/config"
	"widgetforge/internal/logging"
)

// Store holds the canned reference datasets.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	seedDir string
}

// seedFile is the on-disk YAML shape of one dataset.
type seedFile struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Rows        []seedRow `yaml:"rows"`
}

type seedRow struct {
	Keywords []string       `yaml:"keywords"`
	Data     map[string]any `yaml:"data"`
}

const schema = `
CREATE TABLE IF NOT EXISTS datasets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	description TEXT
);
CREATE TABLE IF NOT EXISTS dataset_rows (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset_id INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	keywords TEXT NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dataset_rows_dataset ON dataset_rows(dataset_id);
`

// NewStore opens (or creates) the store. An empty path selects an in-memory
// database. When cfg.SeedDir is set, its YAML files are loaded immediately.
func NewStore(cfg config.DatasetConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create dataset directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Dataset("failed to set sqlite busy_timeout: %v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize dataset schema: %w", err)
	}

	s := &Store{db: db, seedDir: cfg.SeedDir}
	if cfg.SeedDir != "" {
		if err := s.LoadSeedDir(cfg.SeedDir); err != nil {
			logging.Dataset("seed load failed (continuing with empty store): %v", err)
		}
	}

	logging.Dataset("store ready (path=%s seeds=%s)", path, cfg.SeedDir)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadSeedDir loads every .yaml/.yml file in dir, replacing any dataset of
// the same name.
func (s *Store) LoadSeedDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read seed directory %s: %w", dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := s.LoadSeedFile(filepath.Join(dir, entry.Name())); err != nil {
			logging.Dataset("skipping seed %s: %v", entry.Name(), err)
			continue
		}
		loaded++
	}
	logging.Dataset("loaded %d seed files from %s", loaded, dir)
	return nil
}

// LoadSeedFile loads one YAML seed file, replacing the dataset it names.
func (s *Store) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	if seed.Name == "" {
		return fmt.Errorf("seed file %s has no dataset name", path)
	}

	return s.replaceDataset(seed)
}

func (s *Store) replaceDataset(seed seedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM dataset_rows WHERE dataset_id IN (SELECT id FROM datasets WHERE name = ?)`, seed.Name); err != nil {
		return fmt.Errorf("failed to clear old rows: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM datasets WHERE name = ?`, seed.Name); err != nil {
		return fmt.Errorf("failed to clear old dataset: %w", err)
	}

	res, err := tx.Exec(`INSERT INTO datasets (name, description) VALUES (?, ?)`, seed.Name, seed.Description)
	if err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}
	datasetID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read dataset id: %w", err)
	}

	for _, row := range seed.Rows {
		payload, err := json.Marshal(row.Data)
		if err != nil {
			return fmt.Errorf("failed to encode row: %w", err)
		}
		keywords := normalizeTerms(row.Keywords)
		if _, err := tx.Exec(`INSERT INTO dataset_rows (dataset_id, keywords, payload) VALUES (?, ?, ?)`,
			datasetID, strings.Join(keywords, " "), string(payload)); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	logging.Dataset("dataset %q loaded with %d rows", seed.Name, len(seed.Rows))
	return nil
}

// maxLookupRows bounds how many rows a lookup hands to the model.
const maxLookupRows = 12

// Lookup returns the best-matching rows for the query terms, with the name of
// the dataset they came from. Matching is keyword overlap: each row scores one
// point per query term present in its keyword list, the dataset with the
// highest total wins, and its matching rows are returned best-first.
func (s *Store) Lookup(ctx context.Context, entities []string, query string) ([]map[string]any, string, error) {
	terms := normalizeTerms(append(append([]string{}, entities...), strings.Fields(query)...))
	if len(terms) == 0 {
		return nil, "", nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.name, r.keywords, r.payload
		FROM dataset_rows r
		JOIN datasets d ON d.id = r.dataset_id`)
	if err != nil {
		return nil, "", fmt.Errorf("dataset lookup failed: %w", err)
	}
	defer rows.Close()

	type scored struct {
		dataset string
		score   int
		payload string
	}
	var matches []scored
	totals := map[string]int{}

	for rows.Next() {
		var dataset, keywords, payload string
		if err := rows.Scan(&dataset, &keywords, &payload); err != nil {
			return nil, "", fmt.Errorf("dataset scan failed: %w", err)
		}
		score := overlap(terms, keywords)
		if score == 0 {
			continue
		}
		matches = append(matches, scored{dataset: dataset, score: score, payload: payload})
		totals[dataset] += score
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("dataset lookup failed: %w", err)
	}
	if len(matches) == 0 {
		return nil, "", nil
	}

	best := ""
	for name, total := range totals {
		if best == "" || total > totals[best] {
			best = name
		}
	}

	var selected []scored
	for _, m := range matches {
		if m.dataset == best {
			selected = append(selected, m)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool { return selected[i].score > selected[j].score })
	if len(selected) > maxLookupRows {
		selected = selected[:maxLookupRows]
	}

	out := make([]map[string]any, 0, len(selected))
	for _, m := range selected {
		var row map[string]any
		if err := json.Unmarshal([]byte(m.payload), &row); err != nil {
			continue
		}
		out = append(out, row)
	}

	logging.Dataset("lookup %v matched %d rows in %q", terms, len(out), best)
	return out, best, nil
}

// normalizeTerms lowercases, strips punctuation and drops short/duplicate
// terms.
func normalizeTerms(raw []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range raw {
		t = strings.ToLower(strings.TrimFunc(t, func(r rune) bool {
			return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
		}))
		if len(t) < 3 || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// overlap counts how many terms appear in the space-joined keyword list.
func overlap(terms []string, keywords string) int {
	set := map[string]bool{}
	for _, k := range strings.Fields(keywords) {
		set[k] = true
	}
	score := 0
	for _, t := range terms {
		if set[t] {
			score++
		}
	}
	return score
}
