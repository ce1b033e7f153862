// Package deploystore persists deployment history in a local SQLite
// database. Webapp tools use it to find the bucket and distribution a
// project deployed to; list_deployments exposes it to the agent.
package deploystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"serverless-mcp/internal/logging"
)

// ErrNotFound reports that no deployment matches the query.
var ErrNotFound = errors.New("no deployment recorded")

// Deployment is one recorded deployment attempt.
type Deployment struct {
	ID           string
	Project      string
	Tool         string // tool that performed it (sam_deploy, deploy_webapp, ...)
	StackName    string
	Region       string
	Bucket       string // S3 bucket for frontend assets, when applicable
	Distribution string // CloudFront distribution id, when applicable
	DomainName   string // CloudFront domain, when applicable
	Status       string // succeeded or failed
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS deployments (
	id            TEXT PRIMARY KEY,
	project       TEXT NOT NULL,
	tool          TEXT NOT NULL,
	stack_name    TEXT NOT NULL DEFAULT '',
	region        TEXT NOT NULL DEFAULT '',
	bucket        TEXT NOT NULL DEFAULT '',
	distribution  TEXT NOT NULL DEFAULT '',
	domain_name   TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	error         TEXT NOT NULL DEFAULT '',
	started_at    INTEGER NOT NULL,
	finished_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deployments_project ON deployments(project, started_at DESC);
`

// Open creates or opens the database under dir and applies the schema.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	path := filepath.Join(dir, "deployments.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// SQLite allows one writer; the MCP server is effectively
	// single-session but the HTTP transport is not.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logging.For(logging.CategoryStore).Info("deployment store opened", zap.String("path", path))
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Record inserts d, assigning an id when empty, and returns the id.
func (s *Store) Record(ctx context.Context, d Deployment) (string, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.FinishedAt.IsZero() {
		d.FinishedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deployments
		(id, project, tool, stack_name, region, bucket, distribution, domain_name, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Project, d.Tool, d.StackName, d.Region, d.Bucket, d.Distribution, d.DomainName,
		d.Status, d.Error, d.StartedAt.UnixMilli(), d.FinishedAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("record deployment: %w", err)
	}
	return d.ID, nil
}

// Latest returns the most recent successful deployment of project.
func (s *Store) Latest(ctx context.Context, project string) (*Deployment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project, tool, stack_name, region, bucket, distribution, domain_name, status, error, started_at, finished_at
		FROM deployments
		WHERE project = ? AND status = 'succeeded'
		ORDER BY started_at DESC LIMIT 1`, project)
	return scanDeployment(row)
}

// List returns up to limit deployments, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Deployment, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project, tool, stack_name, region, bucket, distribution, domain_name, status, error, started_at, finished_at
		FROM deployments
		ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	defer rows.Close()

	var out []Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// UpdateDomain records the custom domain configured for a project's latest
// deployment.
func (s *Store) UpdateDomain(ctx context.Context, id, domain string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE deployments SET domain_name = ? WHERE id = ?`, domain, id)
	if err != nil {
		return fmt.Errorf("update domain: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDeployment(row scanner) (*Deployment, error) {
	var d Deployment
	var started, finished int64
	err := row.Scan(&d.ID, &d.Project, &d.Tool, &d.StackName, &d.Region, &d.Bucket,
		&d.Distribution, &d.DomainName, &d.Status, &d.Error, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan deployment: %w", err)
	}
	d.StartedAt = time.UnixMilli(started).UTC()
	d.FinishedAt = time.UnixMilli(finished).UTC()
	return &d, nil
}
