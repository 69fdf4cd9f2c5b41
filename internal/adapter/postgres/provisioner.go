package postgres

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/pressly/goose/v3"
	"golang.org/x/sync/semaphore"

	"github.com/wikifarm/farmd/internal/config"
	"github.com/wikifarm/farmd/internal/domain"
)

//go:embed tenantschema/*.sql
var tenantSchema embed.FS

// Provisioner implements provisioner.Gateway against a PostgreSQL cluster:
// one database per wiki, populated with the embedded tenant schema. A
// weighted semaphore bounds how many CREATE DATABASE operations run at once.
type Provisioner struct {
	adminDSN string
	sem      *semaphore.Weighted
}

// NewProvisioner creates a Provisioner from config. The admin DSN must
// connect as a role with CREATEDB on the tenant cluster.
func NewProvisioner(cfg config.Provisioner) *Provisioner {
	limit := cfg.MaxConcurrent
	if limit < 1 {
		limit = 1
	}
	return &Provisioner{
		adminDSN: cfg.AdminDSN,
		sem:      semaphore.NewWeighted(int64(limit)),
	}
}

// CreateStorage creates the wiki's database. Idempotence is observed at the
// existence check: a database already present reports domain.ErrAlreadyExists
// so a retried approval can distinguish "done" from "failed".
func (p *Provisioner) CreateStorage(ctx context.Context, dbname string) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("create storage %s: %w", dbname, err)
	}
	defer p.sem.Release(1)

	conn, err := pgx.Connect(ctx, p.adminDSN)
	if err != nil {
		return fmt.Errorf("create storage %s: connect: %w", dbname, domain.ErrProvisioning)
	}
	defer func() { _ = conn.Close(ctx) }()

	var exists bool
	err = conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, dbname).Scan(&exists)
	if err != nil {
		return fmt.Errorf("create storage %s: check: %v: %w", dbname, err, domain.ErrProvisioning)
	}
	if exists {
		return fmt.Errorf("create storage %s: %w", dbname, domain.ErrAlreadyExists)
	}

	// CREATE DATABASE cannot be parameterised; the identifier is quoted and
	// has already passed the dbname grammar.
	quoted := pgx.Identifier{dbname}.Sanitize()
	if _, err := conn.Exec(ctx, fmt.Sprintf(`CREATE DATABASE %s TEMPLATE template0 ENCODING 'UTF8'`, quoted)); err != nil {
		return fmt.Errorf("create storage %s: %v: %w", dbname, err, domain.ErrProvisioning)
	}

	slog.Info("tenant database created", "dbname", dbname)
	return nil
}

// PopulateStorage applies the embedded tenant schema to the wiki's database.
// Goose tracks applied versions inside the tenant database itself, so a
// retried populate is a no-op for versions already applied.
func (p *Provisioner) PopulateStorage(ctx context.Context, dbname string) error {
	dsn, err := p.tenantDSN(dbname)
	if err != nil {
		return fmt.Errorf("populate storage %s: %w", dbname, err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(tenantSchema)

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("populate storage %s: open: %v: %w", dbname, err, domain.ErrProvisioning)
	}
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("populate storage %s: dialect: %w", dbname, err)
	}

	if err := goose.UpContext(ctx, db, "tenantschema"); err != nil {
		return fmt.Errorf("populate storage %s: %v: %w", dbname, err, domain.ErrProvisioning)
	}

	slog.Info("tenant schema applied", "dbname", dbname)
	return nil
}

// DropStorage removes the wiki's database. Missing databases are not an
// error: the operation is best-effort and retry-tolerant.
func (p *Provisioner) DropStorage(ctx context.Context, dbname string) error {
	conn, err := pgx.Connect(ctx, p.adminDSN)
	if err != nil {
		return fmt.Errorf("drop storage %s: connect: %w", dbname, domain.ErrProvisioning)
	}
	defer func() { _ = conn.Close(ctx) }()

	quoted := pgx.Identifier{dbname}.Sanitize()
	if _, err := conn.Exec(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS %s WITH (FORCE)`, quoted)); err != nil {
		return fmt.Errorf("drop storage %s: %v: %w", dbname, err, domain.ErrProvisioning)
	}

	slog.Info("tenant database dropped", "dbname", dbname)
	return nil
}

// tenantDSN rewrites the admin DSN to point at the wiki's database.
func (p *Provisioner) tenantDSN(dbname string) (string, error) {
	u, err := url.Parse(p.adminDSN)
	if err != nil {
		return "", fmt.Errorf("parse admin dsn: %w", err)
	}
	u.Path = "/" + dbname
	return u.String(), nil
}
