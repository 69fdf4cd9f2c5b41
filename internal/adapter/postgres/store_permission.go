package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wikifarm/farmd/internal/domain/permission"
)

const groupColumns = `dbname, group_name, permissions, addgroups, removegroups`

func scanGroup(row scannable) (permission.Group, error) {
	var g permission.Group
	var permsJSON, addJSON, removeJSON []byte
	if err := row.Scan(&g.DBName, &g.Name, &permsJSON, &addJSON, &removeJSON); err != nil {
		return g, err
	}
	if err := json.Unmarshal(permsJSON, &g.Permissions); err != nil {
		return g, fmt.Errorf("decode permissions for group %s: %w", g.Name, err)
	}
	if err := json.Unmarshal(addJSON, &g.AddGroups); err != nil {
		return g, fmt.Errorf("decode addgroups for group %s: %w", g.Name, err)
	}
	if err := json.Unmarshal(removeJSON, &g.RemoveGroups); err != nil {
		return g, fmt.Errorf("decode removegroups for group %s: %w", g.Name, err)
	}
	return g, nil
}

func (s *Store) ListGroups(ctx context.Context, dbname string) ([]permission.Group, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+groupColumns+` FROM permission_overrides
		 WHERE dbname = $1 ORDER BY group_name ASC`, dbname)
	if err != nil {
		return nil, wrapErr(err, "list groups for %s", dbname)
	}
	defer rows.Close()

	var groups []permission.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *Store) GetGroup(ctx context.Context, dbname, group string) (*permission.Group, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+groupColumns+` FROM permission_overrides
		 WHERE dbname = $1 AND group_name = $2`, dbname, group)

	g, err := scanGroup(row)
	if err != nil {
		return nil, wrapErr(err, "get group %s/%s", dbname, group)
	}
	return &g, nil
}

func (s *Store) UpsertGroup(ctx context.Context, g *permission.Group) error {
	perms := g.Permissions
	if perms == nil {
		perms = map[string]bool{}
	}
	permsJSON, err := json.Marshal(perms)
	if err != nil {
		return fmt.Errorf("encode permissions for group %s: %w", g.Name, err)
	}
	addJSON, err := marshalAliases(g.AddGroups)
	if err != nil {
		return fmt.Errorf("upsert group %s/%s: %w", g.DBName, g.Name, err)
	}
	removeJSON, err := marshalAliases(g.RemoveGroups)
	if err != nil {
		return fmt.Errorf("upsert group %s/%s: %w", g.DBName, g.Name, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO permission_overrides (dbname, group_name, permissions, addgroups, removegroups)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (dbname, group_name) DO UPDATE
		 SET permissions = EXCLUDED.permissions,
		     addgroups = EXCLUDED.addgroups,
		     removegroups = EXCLUDED.removegroups`,
		g.DBName, g.Name, permsJSON, addJSON, removeJSON)
	if err != nil {
		return wrapErr(err, "upsert group %s/%s", g.DBName, g.Name)
	}
	return nil
}

func (s *Store) DeleteGroup(ctx context.Context, dbname, group string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM permission_overrides WHERE dbname = $1 AND group_name = $2`, dbname, group)
	return execExpectOne(tag, err, "delete group %s/%s", dbname, group)
}
