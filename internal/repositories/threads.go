package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/acs/internal/models"
)

// ThreadFilter narrows a cached listing. Empty fields match everything.
type ThreadFilter struct {
	Search string
	Type   string
	Status string
	Limit  int
	Offset int
}

// ThreadCacheRepository keeps read-only copies of threads returned by the list endpoint.
type ThreadCacheRepository struct {
	db *sql.DB
}

// NewThreadCacheRepository creates a new [ThreadCacheRepository] with the given database connection
func NewThreadCacheRepository(db *sql.DB) *ThreadCacheRepository {
	return &ThreadCacheRepository{db: db}
}

// SaveAll upserts threads in one transaction and returns how many were written.
func (r *ThreadCacheRepository) SaveAll(threads []models.Thread) (int, error) {
	query := `
		INSERT INTO threads (id, user_id, title, type, status, last_content_id, last_content_status, created_at, updated_at, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			title = excluded.title,
			type = excluded.type,
			status = excluded.status,
			last_content_id = excluded.last_content_id,
			last_content_status = excluded.last_content_status,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			cached_at = excluded.cached_at
	`

	written := 0
	err := inTx(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		now := time.Now()
		for _, t := range threads {
			if t.ID == "" {
				continue
			}
			var lastID, lastStatus string
			if t.LastContent != nil {
				lastID, lastStatus = t.LastContent.ID, string(t.LastContent.Status)
			}
			if _, err := stmt.Exec(t.ID, t.UserID, t.Title, string(t.Type), string(t.Status),
				lastID, lastStatus, nullable(t.CreatedAt), nullable(t.UpdatedAt), now); err != nil {
				return fmt.Errorf("failed to cache thread %s: %w", t.ID, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// List returns cached threads matching f, most recently updated first, with the total match count.
func (r *ThreadCacheRepository) List(f ThreadFilter) ([]models.Thread, int, error) {
	where := " WHERE 1 = 1"
	args := []any{}
	if f.Search != "" {
		where += " AND title LIKE ?"
		args = append(args, "%"+f.Search+"%")
	}
	if f.Type != "" {
		where += " AND type = ?"
		args = append(args, f.Type)
	}
	if f.Status != "" {
		where += " AND status = ?"
		args = append(args, f.Status)
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM threads"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count threads: %w", err)
	}

	query := `SELECT id, user_id, title, type, status, last_content_id, last_content_status, created_at, updated_at
		FROM threads` + where + " ORDER BY updated_at DESC, id ASC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, max(f.Offset, 0))
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query threads: %w", err)
	}
	defer rows.Close()

	var threads []models.Thread
	for rows.Next() {
		var (
			t                    models.Thread
			typ, status          string
			lastID, lastStatus   string
			createdAt, updatedAt sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &typ, &status, &lastID, &lastStatus, &createdAt, &updatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan thread: %w", err)
		}
		t.Type = models.ContentType(typ)
		t.Status = models.ThreadStatus(status)
		t.CreatedAt = optional(createdAt)
		t.UpdatedAt = optional(updatedAt)
		if lastID != "" {
			t.LastContent = &models.Content{ID: lastID, ThreadID: t.ID, Status: models.ContentStatus(lastStatus)}
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}
	return threads, total, nil
}

// Clear drops every cached thread.
func (r *ThreadCacheRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM threads`); err != nil {
		return fmt.Errorf("failed to clear thread cache: %w", err)
	}
	return nil
}
