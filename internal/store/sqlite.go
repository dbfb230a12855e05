package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pankaj-dahiya-devops/shiftleft/internal/analysis"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// SQLiteStore persists results as JSON documents alongside the indexed columns
// List filters on.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path cannot be empty")
	}

	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// SQLite only supports a single writer; one connection also keeps
	// ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize sqlite schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		status TEXT NOT NULL,
		repository TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_tenant ON analyses(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Store(ctx context.Context, r *models.AnalysisResult) error {
	if r == nil || r.ID == "" {
		return errors.New("store: result must have an id")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode analysis %s: %w", r.ID, err)
	}
	repo := ""
	if r.Metadata.Source != nil {
		repo = r.Metadata.Source.RepositoryURL
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, tenant_id, status, repository, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			status = excluded.status,
			repository = excluded.repository,
			created_at = excluded.created_at,
			payload = excluded.payload
	`, r.ID, r.Metadata.TenantID, string(r.Status), repo, r.Metadata.Timestamp.UnixNano(), string(payload))
	if err != nil {
		return fmt.Errorf("save analysis %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Fetch(ctx context.Context, id string) (*models.AnalysisResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM analyses WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, analysis.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load analysis %s: %w", id, err)
	}
	return decodeResult(id, []byte(payload))
}

func (s *SQLiteStore) List(ctx context.Context, filter analysis.ListFilter) ([]*models.AnalysisResult, error) {
	var (
		where []string
		args  []any
	)
	if filter.TenantID != "" {
		where = append(where, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Repository != "" {
		where = append(where, "repository = ?")
		args = append(args, filter.Repository)
	}

	query := "SELECT id, payload FROM analyses"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	out := []*models.AnalysisResult{}
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan analysis row: %w", err)
		}
		r, err := decodeResult(id, []byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete analysis %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete analysis %s: %w", id, err)
	}
	if n == 0 {
		return analysis.ErrNotFound
	}
	return nil
}

func decodeResult(id string, data []byte) (*models.AnalysisResult, error) {
	var r models.AnalysisResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", id, err)
	}
	return &r, nil
}
