// Package store persists named mail-merge templates in PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTemplateNotFound indicates the named template does not exist.
var ErrTemplateNotFound = errors.New("template not found")

// Template is a stored template with its attached assets.
type Template struct {
	Name        string    `json:"name"`
	Content     string    `json:"template_content"`
	CSS         string    `json:"template_css"`
	Logo        string    `json:"logo,omitempty"`
	Signature   string    `json:"signature,omitempty"`
	ServiceName string    `json:"service_name,omitempty"`
	TableID     string    `json:"table_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// schema creates the templates table on first run.
const schema = `
CREATE TABLE IF NOT EXISTS templates (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) UNIQUE NOT NULL,
    content TEXT NOT NULL,
    css TEXT DEFAULT '',
    logo TEXT,
    signature TEXT,
    service_name TEXT,
    table_id VARCHAR(255),
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_templates_name ON templates(name);
CREATE INDEX IF NOT EXISTS idx_templates_updated_at ON templates(updated_at DESC);
`

// Store provides template persistence backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for the given database URL and ensures the schema
// exists.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring templates schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Save upserts a template by name.
func (s *Store) Save(ctx context.Context, tpl Template) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO templates (name, content, css, logo, signature, service_name, table_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			content = EXCLUDED.content,
			css = EXCLUDED.css,
			logo = EXCLUDED.logo,
			signature = EXCLUDED.signature,
			service_name = EXCLUDED.service_name,
			table_id = EXCLUDED.table_id,
			updated_at = NOW()`,
		SafeName(tpl.Name), tpl.Content, tpl.CSS, tpl.Logo, tpl.Signature, tpl.ServiceName, tpl.TableID)
	if err != nil {
		return fmt.Errorf("saving template %q: %w", tpl.Name, err)
	}
	return nil
}

// Load returns the template with the given name.
func (s *Store) Load(ctx context.Context, name string) (Template, error) {
	var tpl Template
	err := s.pool.QueryRow(ctx, `
		SELECT name, content, COALESCE(css, ''), COALESCE(logo, ''),
		       COALESCE(signature, ''), COALESCE(service_name, ''),
		       COALESCE(table_id, ''), updated_at
		FROM templates WHERE name = $1`,
		SafeName(name)).Scan(
		&tpl.Name, &tpl.Content, &tpl.CSS, &tpl.Logo,
		&tpl.Signature, &tpl.ServiceName, &tpl.TableID, &tpl.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	if err != nil {
		return Template{}, fmt.Errorf("loading template %q: %w", name, err)
	}
	return tpl, nil
}

// List returns the names of all stored templates, most recently updated
// first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM templates ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning template name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes the template with the given name.
func (s *Store) Delete(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM templates WHERE name = $1`, SafeName(name))
	if err != nil {
		return fmt.Errorf("deleting template %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	return nil
}

// SafeName reduces a user-supplied template name to letters, digits,
// spaces, hyphens, and underscores, then folds spaces to underscores.
// Names are keys, so lookup and save must agree on this normalization.
func SafeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	safe := strings.TrimRight(b.String(), " ")
	return strings.ReplaceAll(safe, " ", "_")
}
