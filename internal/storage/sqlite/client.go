package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/knowledge-gate/backend/internal/storage/models"
	"github.com/knowledge-gate/backend/pkg/logger"
)

// Client is the local audit log of routing decisions. The vector store
// remains the source of truth for knowledge entries; this records only
// what was decided and why.
type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("sqlite client initialized", zap.String("path", dbPath))
	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		submission_type TEXT NOT NULL,
		source TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT,
		relevance REAL,
		completeness REAL,
		credibility REAL,
		composite REAL,
		stored_id TEXT,
		pending_id TEXT,
		duplicate_count INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_status ON decisions(status);
	CREATE INDEX IF NOT EXISTS idx_decisions_created ON decisions(created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("sqlite schema initialized")
	return nil
}

func (c *Client) InsertDecision(d *models.Decision) error {
	query := `
		INSERT INTO decisions (id, submission_type, source, status, reason,
			relevance, completeness, credibility, composite,
			stored_id, pending_id, duplicate_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		d.ID,
		d.SubmissionType,
		d.Source,
		d.Status,
		d.Reason,
		d.Relevance,
		d.Completeness,
		d.Credibility,
		d.Composite,
		d.StoredID,
		d.PendingID,
		d.DuplicateCount,
		d.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}

	logger.Debug("decision recorded",
		zap.String("id", d.ID),
		zap.String("status", d.Status),
	)
	return nil
}

func (c *Client) ListDecisions(limit int) ([]models.Decision, error) {
	query := `
		SELECT id, submission_type, source, status, reason,
			relevance, completeness, credibility, composite,
			stored_id, pending_id, duplicate_count, created_at
		FROM decisions
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	decisions := make([]models.Decision, 0)
	for rows.Next() {
		var d models.Decision
		var createdAt int64
		err := rows.Scan(
			&d.ID,
			&d.SubmissionType,
			&d.Source,
			&d.Status,
			&d.Reason,
			&d.Relevance,
			&d.Completeness,
			&d.Credibility,
			&d.Composite,
			&d.StoredID,
			&d.PendingID,
			&d.DuplicateCount,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		d.CreatedAt = time.Unix(createdAt, 0).UTC()
		decisions = append(decisions, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decisions: %w", err)
	}
	return decisions, nil
}
