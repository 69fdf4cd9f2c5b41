// Package database defines the registry store port (interface).
package database

import (
	"context"
	"encoding/json"

	"github.com/wikifarm/farmd/internal/domain/namespace"
	"github.com/wikifarm/farmd/internal/domain/permission"
	"github.com/wikifarm/farmd/internal/domain/request"
	"github.com/wikifarm/farmd/internal/domain/wiki"
)

// Store is the port interface over the registry's five tables: wikis,
// requests, comments, namespace overrides and permission overrides.
//
// All mutating wiki-scoped operations are atomic per identifier: the
// implementation serializes concurrent read-modify-write cycles on the same
// dbname (row locks in SQL, a keyed mutex in memory).
type Store interface {
	// --- Wikis ---

	// CreateWiki inserts a new registry record. Fails with
	// domain.ErrAlreadyExists when the identifier is taken.
	CreateWiki(ctx context.Context, req wiki.CreateRequest) (*wiki.Wiki, error)

	// GetWiki returns the record or domain.ErrNotFound.
	GetWiki(ctx context.Context, dbname string) (*wiki.Wiki, error)

	// ListWikiNames returns all identifiers. Order is stable within one
	// snapshot.
	ListWikiNames(ctx context.Context) ([]string, error)

	// ListWikis returns all full records, for registry export.
	ListWikis(ctx context.Context) ([]wiki.Wiki, error)

	// UpdateWikiSettings merges partial into the wiki's settings overlay:
	// given keys override, absent keys are untouched, nil values delete the
	// key. The merge is atomic with respect to concurrent updates on the
	// same wiki.
	UpdateWikiSettings(ctx context.Context, dbname string, partial map[string]json.RawMessage) error

	// UpdateWikiFlags applies lifecycle flag changes.
	UpdateWikiFlags(ctx context.Context, dbname string, update wiki.FlagsUpdate) error

	// DeleteWiki removes the registry record, including its namespace and
	// permission overrides.
	DeleteWiki(ctx context.Context, dbname string) error

	// --- Creation requests ---

	// CreateRequest inserts a pending request and returns its id. Fails with
	// domain.ErrDuplicatePending when a pending request for the same dbname
	// exists; the check and insert are atomic.
	CreateRequest(ctx context.Context, req *request.Request) (int64, error)

	// GetRequest returns the request or domain.ErrNotFound.
	GetRequest(ctx context.Context, id int64) (*request.Request, error)

	// GetPendingRequest returns the request only while it is still pending.
	GetPendingRequest(ctx context.Context, id int64) (*request.Request, error)

	// ListRequests returns requests with the given status (all statuses when
	// empty), newest first.
	ListRequests(ctx context.Context, status request.Status) ([]request.Request, error)

	// ResolveRequest conditionally transitions a pending request to the given
	// terminal status, recording the resolution comment. Returns
	// domain.ErrAlreadyResolved when the request exists but is no longer
	// pending, domain.ErrNotFound when it does not exist.
	ResolveRequest(ctx context.Context, id int64, status request.Status, comment string) error

	// AddComment appends to a request's thread regardless of status.
	AddComment(ctx context.Context, c *request.Comment) error

	// ListComments returns a request's thread ordered by timestamp ascending.
	ListComments(ctx context.Context, requestID int64) ([]request.Comment, error)

	// --- Namespace overrides ---

	ListNamespaces(ctx context.Context, dbname string) ([]namespace.Namespace, error)
	GetNamespace(ctx context.Context, dbname string, id int) (*namespace.Namespace, error)

	// CreateNamespace fails with domain.ErrAlreadyExists when (dbname, id) is
	// taken.
	CreateNamespace(ctx context.Context, ns *namespace.Namespace) error

	UpdateNamespace(ctx context.Context, ns *namespace.Namespace) error
	DeleteNamespace(ctx context.Context, dbname string, id int) error

	// MaxNamespaceID returns the highest namespace id in use for the wiki,
	// 0 when none.
	MaxNamespaceID(ctx context.Context, dbname string) (int, error)

	// --- Permission overrides ---

	ListGroups(ctx context.Context, dbname string) ([]permission.Group, error)
	GetGroup(ctx context.Context, dbname, group string) (*permission.Group, error)
	UpsertGroup(ctx context.Context, g *permission.Group) error
	DeleteGroup(ctx context.Context, dbname, group string) error
}
