package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wikifarm/farmd/internal/domain"
	"github.com/wikifarm/farmd/internal/domain/namespace"
)

const namespaceColumns = `dbname, namespace_id, name, searchable, subpages, content, protection, aliases`

func scanNamespace(row scannable) (namespace.Namespace, error) {
	var ns namespace.Namespace
	var aliasesJSON []byte
	err := row.Scan(&ns.DBName, &ns.ID, &ns.Name, &ns.Searchable,
		&ns.Subpages, &ns.Content, &ns.Protection, &aliasesJSON)
	if err != nil {
		return ns, err
	}
	if aliasesJSON != nil {
		if err := json.Unmarshal(aliasesJSON, &ns.Aliases); err != nil {
			return ns, fmt.Errorf("decode aliases for namespace %d: %w", ns.ID, err)
		}
	}
	return ns, nil
}

func (s *Store) ListNamespaces(ctx context.Context, dbname string) ([]namespace.Namespace, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+namespaceColumns+` FROM namespace_overrides
		 WHERE dbname = $1 ORDER BY namespace_id ASC`, dbname)
	if err != nil {
		return nil, wrapErr(err, "list namespaces for %s", dbname)
	}
	defer rows.Close()

	var namespaces []namespace.Namespace
	for rows.Next() {
		ns, err := scanNamespace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan namespace: %w", err)
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces, rows.Err()
}

func (s *Store) GetNamespace(ctx context.Context, dbname string, id int) (*namespace.Namespace, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+namespaceColumns+` FROM namespace_overrides
		 WHERE dbname = $1 AND namespace_id = $2`, dbname, id)

	ns, err := scanNamespace(row)
	if err != nil {
		return nil, wrapErr(err, "get namespace %s/%d", dbname, id)
	}
	return &ns, nil
}

func (s *Store) CreateNamespace(ctx context.Context, ns *namespace.Namespace) error {
	aliasesJSON, err := marshalAliases(ns.Aliases)
	if err != nil {
		return fmt.Errorf("create namespace %s/%d: %w", ns.DBName, ns.ID, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO namespace_overrides (dbname, namespace_id, name, searchable, subpages, content, protection, aliases)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ns.DBName, ns.ID, ns.Name, ns.Searchable, ns.Subpages, ns.Content, ns.Protection, aliasesJSON)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create namespace %s/%d: %w", ns.DBName, ns.ID, domain.ErrAlreadyExists)
		}
		return wrapErr(err, "create namespace %s/%d", ns.DBName, ns.ID)
	}
	return nil
}

func (s *Store) UpdateNamespace(ctx context.Context, ns *namespace.Namespace) error {
	aliasesJSON, err := marshalAliases(ns.Aliases)
	if err != nil {
		return fmt.Errorf("update namespace %s/%d: %w", ns.DBName, ns.ID, err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE namespace_overrides
		 SET name = $3, searchable = $4, subpages = $5, content = $6, protection = $7, aliases = $8
		 WHERE dbname = $1 AND namespace_id = $2`,
		ns.DBName, ns.ID, ns.Name, ns.Searchable, ns.Subpages, ns.Content, ns.Protection, aliasesJSON)
	return execExpectOne(tag, err, "update namespace %s/%d", ns.DBName, ns.ID)
}

func (s *Store) DeleteNamespace(ctx context.Context, dbname string, id int) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM namespace_overrides WHERE dbname = $1 AND namespace_id = $2`, dbname, id)
	return execExpectOne(tag, err, "delete namespace %s/%d", dbname, id)
}

func (s *Store) MaxNamespaceID(ctx context.Context, dbname string) (int, error) {
	var maxID int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(namespace_id), 0) FROM namespace_overrides WHERE dbname = $1`,
		dbname).Scan(&maxID)
	if err != nil {
		return 0, wrapErr(err, "max namespace id for %s", dbname)
	}
	return maxID, nil
}

// marshalAliases encodes an alias list, mapping nil to an empty JSON array so
// the column never holds SQL NULL.
func marshalAliases(aliases []string) ([]byte, error) {
	if aliases == nil {
		aliases = []string{}
	}
	data, err := json.Marshal(aliases)
	if err != nil {
		return nil, fmt.Errorf("encode aliases: %w", err)
	}
	return data, nil
}
