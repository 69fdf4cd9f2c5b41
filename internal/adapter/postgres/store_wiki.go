package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wikifarm/farmd/internal/domain"
	"github.com/wikifarm/farmd/internal/domain/wiki"
)

const wikiColumns = `dbname, sitename, language, category, private, closed, inactive, url, settings, created_at`

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

func scanWiki(row scannable) (wiki.Wiki, error) {
	var w wiki.Wiki
	var settingsJSON []byte
	err := row.Scan(&w.DBName, &w.Sitename, &w.Language, &w.Category,
		&w.Private, &w.Closed, &w.Inactive, &w.URL, &settingsJSON, &w.CreatedAt)
	if err != nil {
		return w, err
	}
	if settingsJSON != nil {
		if err := json.Unmarshal(settingsJSON, &w.Settings); err != nil {
			return w, fmt.Errorf("decode settings for %s: %w", w.DBName, err)
		}
	}
	return w, nil
}

func (s *Store) CreateWiki(ctx context.Context, req wiki.CreateRequest) (*wiki.Wiki, error) {
	settings := req.Settings
	if settings == nil {
		settings = map[string]json.RawMessage{}
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO wikis (dbname, sitename, language, category, private, url, settings)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+wikiColumns,
		req.DBName, req.Sitename, req.Language, req.Category, req.Private, req.URL, settingsJSON)

	w, err := scanWiki(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create wiki %s: %w", req.DBName, domain.ErrAlreadyExists)
		}
		return nil, wrapErr(err, "create wiki %s", req.DBName)
	}
	return &w, nil
}

func (s *Store) GetWiki(ctx context.Context, dbname string) (*wiki.Wiki, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+wikiColumns+` FROM wikis WHERE dbname = $1`, dbname)

	w, err := scanWiki(row)
	if err != nil {
		return nil, wrapErr(err, "get wiki %s", dbname)
	}
	return &w, nil
}

func (s *Store) ListWikiNames(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT dbname FROM wikis ORDER BY dbname ASC`)
	if err != nil {
		return nil, wrapErr(err, "list wiki names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan wiki name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) ListWikis(ctx context.Context) ([]wiki.Wiki, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+wikiColumns+` FROM wikis ORDER BY dbname ASC`)
	if err != nil {
		return nil, wrapErr(err, "list wikis")
	}
	defer rows.Close()

	var wikis []wiki.Wiki
	for rows.Next() {
		w, err := scanWiki(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wiki: %w", err)
		}
		wikis = append(wikis, w)
	}
	return wikis, rows.Err()
}

// UpdateWikiSettings merges partial into the stored overlay inside a
// transaction, holding a row lock so concurrent merges on the same wiki are
// serialized. Keys with nil values are removed from the overlay.
func (s *Store) UpdateWikiSettings(ctx context.Context, dbname string, partial map[string]json.RawMessage) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapErr(err, "update settings %s: begin", dbname)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var settingsJSON []byte
	err = tx.QueryRow(ctx,
		`SELECT settings FROM wikis WHERE dbname = $1 FOR UPDATE`, dbname).Scan(&settingsJSON)
	if err != nil {
		return wrapErr(err, "update settings %s", dbname)
	}

	current := map[string]json.RawMessage{}
	if settingsJSON != nil {
		if err := json.Unmarshal(settingsJSON, &current); err != nil {
			return fmt.Errorf("update settings %s: decode: %w", dbname, err)
		}
	}

	for key, value := range partial {
		if value == nil {
			delete(current, key)
			continue
		}
		current[key] = value
	}

	merged, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("update settings %s: encode: %w", dbname, err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE wikis SET settings = $2 WHERE dbname = $1`, dbname, merged); err != nil {
		return wrapErr(err, "update settings %s", dbname)
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapErr(err, "update settings %s: commit", dbname)
	}
	return nil
}

func (s *Store) UpdateWikiFlags(ctx context.Context, dbname string, update wiki.FlagsUpdate) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE wikis SET
		     private  = COALESCE($2, private),
		     closed   = COALESCE($3, closed),
		     inactive = COALESCE($4, inactive)
		 WHERE dbname = $1`,
		dbname, update.Private, update.Closed, update.Inactive)
	return execExpectOne(tag, err, "update flags %s", dbname)
}

func (s *Store) DeleteWiki(ctx context.Context, dbname string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM wikis WHERE dbname = $1`, dbname)
	return execExpectOne(tag, err, "delete wiki %s", dbname)
}
