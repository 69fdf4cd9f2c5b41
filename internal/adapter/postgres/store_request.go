package postgres

import (
	"context"
	"fmt"

	"github.com/wikifarm/farmd/internal/domain"
	"github.com/wikifarm/farmd/internal/domain/request"
)

const requestColumns = `id, dbname, sitename, language, category, private, url, requester, reason, status, comment, submitted_at`

func scanRequest(row scannable) (request.Request, error) {
	var r request.Request
	err := row.Scan(&r.ID, &r.DBName, &r.Sitename, &r.Language, &r.Category,
		&r.Private, &r.URL, &r.Requester, &r.Reason, &r.Status, &r.Comment, &r.SubmittedAt)
	return r, err
}

func (s *Store) CreateRequest(ctx context.Context, req *request.Request) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO requests (dbname, sitename, language, category, private, url, requester, reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		req.DBName, req.Sitename, req.Language, req.Category,
		req.Private, req.URL, req.Requester, req.Reason).Scan(&id)
	if err != nil {
		// The partial unique index on (dbname) WHERE status = 'pending'
		// rejects a second pending request for the same wiki.
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("submit request for %s: %w", req.DBName, domain.ErrDuplicatePending)
		}
		return 0, wrapErr(err, "submit request for %s", req.DBName)
	}
	return id, nil
}

func (s *Store) GetRequest(ctx context.Context, id int64) (*request.Request, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)

	r, err := scanRequest(row)
	if err != nil {
		return nil, wrapErr(err, "get request %d", id)
	}
	return &r, nil
}

func (s *Store) GetPendingRequest(ctx context.Context, id int64) (*request.Request, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = $1 AND status = 'pending'`, id)

	r, err := scanRequest(row)
	if err != nil {
		return nil, wrapErr(err, "get pending request %d", id)
	}
	return &r, nil
}

func (s *Store) ListRequests(ctx context.Context, status request.Status) ([]request.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY submitted_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err, "list requests")
	}
	defer rows.Close()

	var requests []request.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// ResolveRequest transitions a pending request to a terminal status. The
// status guard in the WHERE clause makes the transition conditional: a
// request resolved concurrently loses the race and reports ErrAlreadyResolved.
func (s *Store) ResolveRequest(ctx context.Context, id int64, status request.Status, comment string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE requests SET status = $2, comment = $3
		 WHERE id = $1 AND status = 'pending'`,
		id, status, comment)
	if err != nil {
		return wrapErr(err, "resolve request %d", id)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return wrapErr(err, "resolve request %d", id)
	}
	if !exists {
		return fmt.Errorf("resolve request %d: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("resolve request %d: %w", id, domain.ErrAlreadyResolved)
}

func (s *Store) AddComment(ctx context.Context, c *request.Comment) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO request_comments (request_id, author, body)
		 SELECT $1, $2, $3 WHERE EXISTS (SELECT 1 FROM requests WHERE id = $1)`,
		c.RequestID, c.Author, c.Text)
	if err != nil {
		return wrapErr(err, "add comment to request %d", c.RequestID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("add comment to request %d: %w", c.RequestID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) ListComments(ctx context.Context, requestID int64) ([]request.Comment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT request_id, author, body, created_at
		 FROM request_comments WHERE request_id = $1
		 ORDER BY created_at ASC`, requestID)
	if err != nil {
		return nil, wrapErr(err, "list comments for request %d", requestID)
	}
	defer rows.Close()

	var comments []request.Comment
	for rows.Next() {
		var c request.Comment
		if err := rows.Scan(&c.RequestID, &c.Author, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
