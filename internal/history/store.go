package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tayloree/bhtscan/internal/detect"
	_ "modernc.org/sqlite"
)

// excerptRunes is how much of the detected text an entry keeps.
const excerptRunes = 500

var (
	// ErrNotFound is returned when no entry matches an ID.
	ErrNotFound = errors.New("history entry not found")
	// ErrAmbiguousID is returned when an ID prefix matches several entries.
	ErrAmbiguousID = errors.New("history entry id is ambiguous")
)

// Entry is one saved scan.
type Entry struct {
	ID          string    `json:"id" yaml:"id"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
	Source      string    `json:"source" yaml:"source"`
	Name        string    `json:"name,omitempty" yaml:"name,omitempty"`
	ContainsBHT bool      `json:"containsBHT" yaml:"containsBHT"`
	Confidence  string    `json:"confidence" yaml:"confidence"`
	Matches     []string  `json:"matches" yaml:"matches"`
	Excerpt     string    `json:"excerpt" yaml:"excerpt"`
}

// NewEntry builds an unsaved entry from a detection result.
func NewEntry(source, name string, res detect.Result) Entry {
	matches := res.Matches
	if matches == nil {
		matches = []string{}
	}
	return Entry{
		Source:      source,
		Name:        name,
		ContainsBHT: res.ContainsBHT,
		Confidence:  string(res.Confidence),
		Matches:     matches,
		Excerpt:     truncateRunes(res.DetectedText, excerptRunes),
	}
}

// Stats summarizes the history.
type Stats struct {
	Total      int `json:"total" yaml:"total"`
	WithBHT    int `json:"withBHT" yaml:"withBHT"`
	WithoutBHT int `json:"withoutBHT" yaml:"withoutBHT"`
	Percentage int `json:"percentage" yaml:"percentage"`
}

// Store persists scan history in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id           TEXT PRIMARY KEY,
			created_at   INTEGER NOT NULL,
			source       TEXT NOT NULL,
			name         TEXT NOT NULL DEFAULT '',
			contains_bht INTEGER NOT NULL,
			confidence   TEXT NOT NULL,
			matches      TEXT NOT NULL,
			excerpt      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS scans_created_at ON scans (created_at DESC)`,
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create scans table: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add saves e, assigning an ID and timestamp when they are unset.
func (s *Store) Add(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Matches == nil {
		e.Matches = []string{}
	}

	matches, err := json.Marshal(e.Matches)
	if err != nil {
		return Entry{}, fmt.Errorf("encode matches: %w", err)
	}

	const q = `INSERT INTO scans
		(id, created_at, source, name, contains_bht, confidence, matches, excerpt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q,
		e.ID, e.CreatedAt.UnixMilli(), e.Source, e.Name, boolToInt(e.ContainsBHT),
		e.Confidence, string(matches), e.Excerpt,
	); err != nil {
		return Entry{}, fmt.Errorf("insert scan: %w", err)
	}
	e.CreatedAt = time.UnixMilli(e.CreatedAt.UnixMilli())
	return e, nil
}

// List returns entries newest first, filtered by q.
func (s *Store) List(ctx context.Context, q Query) ([]Entry, error) {
	where := ""
	switch q.Verdict {
	case WithBHT:
		where = " WHERE contains_bht = 1"
	case WithoutBHT:
		where = " WHERE contains_bht = 0"
	}

	rows, err := s.db.QueryContext(ctx, selectColumns+where+` ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	search := strings.ToLower(strings.TrimSpace(q.Search))
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if search != "" && !matchesContain(e.Matches, search) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	return out, nil
}

// Get returns the entry whose ID equals or starts with id.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id = ? DESC LIMIT 2`,
		id, escapeLike(id)+"%", id)
	if err != nil {
		return Entry{}, fmt.Errorf("get scan: %w", err)
	}
	defer rows.Close()

	var found []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return Entry{}, err
		}
		if e.ID == id {
			return e, nil
		}
		found = append(found, e)
	}
	if err := rows.Err(); err != nil {
		return Entry{}, fmt.Errorf("get scan: %w", err)
	}

	switch len(found) {
	case 0:
		return Entry{}, ErrNotFound
	case 1:
		return found[0], nil
	default:
		return Entry{}, ErrAmbiguousID
	}
}

// Delete removes the entry identified by id (or a unique prefix of it).
func (s *Store) Delete(ctx context.Context, id string) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, e.ID); err != nil {
		return fmt.Errorf("delete scan: %w", err)
	}
	return nil
}

// Clear removes every entry and reports how many were deleted.
func (s *Store) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scans`)
	if err != nil {
		return 0, fmt.Errorf("clear scans: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear scans: %w", err)
	}
	return int(n), nil
}

// Stats counts entries by verdict.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(contains_bht), 0) FROM scans`,
	).Scan(&st.Total, &st.WithBHT)
	if err != nil {
		return Stats{}, fmt.Errorf("scan stats: %w", err)
	}
	return computeStats(st.Total, st.WithBHT), nil
}

// StatsOf computes the same summary over an in-memory slice.
func StatsOf(entries []Entry) Stats {
	with := 0
	for _, e := range entries {
		if e.ContainsBHT {
			with++
		}
	}
	return computeStats(len(entries), with)
}

func computeStats(total, with int) Stats {
	st := Stats{Total: total, WithBHT: with, WithoutBHT: total - with}
	if total > 0 {
		st.Percentage = int(math.Round(float64(with) / float64(total) * 100))
	}
	return st
}

const selectColumns = `SELECT id, created_at, source, name, contains_bht, confidence, matches, excerpt FROM scans`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e         Entry
		createdAt int64
		contains  int
		matches   string
	)
	if err := row.Scan(&e.ID, &createdAt, &e.Source, &e.Name, &contains, &e.Confidence, &matches, &e.Excerpt); err != nil {
		return Entry{}, fmt.Errorf("scan row: %w", err)
	}
	e.CreatedAt = time.UnixMilli(createdAt)
	e.ContainsBHT = contains != 0
	if err := json.Unmarshal([]byte(matches), &e.Matches); err != nil {
		return Entry{}, fmt.Errorf("decode matches for %s: %w", e.ID, err)
	}
	if e.Matches == nil {
		e.Matches = []string{}
	}
	return e, nil
}

func matchesContain(matches []string, search string) bool {
	for _, m := range matches {
		if strings.Contains(strings.ToLower(m), search) {
			return true
		}
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes s for a LIKE pattern using backslash as the escape.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
