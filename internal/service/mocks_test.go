package service

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/wikifarm/farmd/internal/adapter/otel"
	"github.com/wikifarm/farmd/internal/domain"
	"github.com/wikifarm/farmd/internal/domain/extension"
	"github.com/wikifarm/farmd/internal/domain/namespace"
	"github.com/wikifarm/farmd/internal/domain/permission"
	"github.com/wikifarm/farmd/internal/domain/request"
	"github.com/wikifarm/farmd/internal/domain/setting"
	"github.com/wikifarm/farmd/internal/domain/wiki"
	"github.com/wikifarm/farmd/internal/port/auditsink"
	"github.com/wikifarm/farmd/internal/port/cache"
	"github.com/wikifarm/farmd/internal/port/database"
	"github.com/wikifarm/farmd/internal/port/provisioner"
)

// Ensure mock types implement their interfaces at compile time.
var (
	_ database.Store      = (*mockStore)(nil)
	_ provisioner.Gateway = (*mockProvisioner)(nil)
	_ auditsink.Sink      = (*mockSink)(nil)
	_ cache.Cache         = (*mockCache)(nil)
)

type nsKey struct {
	dbname string
	id     int
}

type groupKey struct {
	dbname string
	group  string
}

// mockStore is an in-memory database.Store.
type mockStore struct {
	mu         sync.Mutex
	wikis      map[string]wiki.Wiki
	requests   map[int64]request.Request
	comments   map[int64][]request.Comment
	namespaces map[nsKey]namespace.Namespace
	groups     map[groupKey]permission.Group
	nextID     int64
}

func newMockStore() *mockStore {
	return &mockStore{
		wikis:      make(map[string]wiki.Wiki),
		requests:   make(map[int64]request.Request),
		comments:   make(map[int64][]request.Comment),
		namespaces: make(map[nsKey]namespace.Namespace),
		groups:     make(map[groupKey]permission.Group),
	}
}

func (m *mockStore) CreateWiki(_ context.Context, req wiki.CreateRequest) (*wiki.Wiki, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.wikis[req.DBName]; ok {
		return nil, fmt.Errorf("create wiki %s: %w", req.DBName, domain.ErrAlreadyExists)
	}
	w := wiki.Wiki{
		DBName:    req.DBName,
		Sitename:  req.Sitename,
		Language:  req.Language,
		Category:  req.Category,
		Private:   req.Private,
		URL:       req.URL,
		Settings:  maps.Clone(req.Settings),
		CreatedAt: time.Now().UTC(),
	}
	m.wikis[req.DBName] = w
	return &w, nil
}

func (m *mockStore) GetWiki(_ context.Context, dbname string) (*wiki.Wiki, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wikis[dbname]
	if !ok {
		return nil, fmt.Errorf("get wiki %s: %w", dbname, domain.ErrNotFound)
	}
	w.Settings = maps.Clone(w.Settings)
	return &w, nil
}

func (m *mockStore) ListWikiNames(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.wikis))
	for name := range m.wikis {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *mockStore) ListWikis(_ context.Context) ([]wiki.Wiki, error) {
	names, _ := m.ListWikiNames(context.Background())
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]wiki.Wiki, 0, len(names))
	for _, name := range names {
		out = append(out, m.wikis[name])
	}
	return out, nil
}

func (m *mockStore) UpdateWikiSettings(_ context.Context, dbname string, partial map[string]json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wikis[dbname]
	if !ok {
		return fmt.Errorf("update settings for %s: %w", dbname, domain.ErrNotFound)
	}
	if w.Settings == nil {
		w.Settings = make(map[string]json.RawMessage)
	}
	for key, value := range partial {
		if value == nil {
			delete(w.Settings, key)
			continue
		}
		w.Settings[key] = value
	}
	m.wikis[dbname] = w
	return nil
}

func (m *mockStore) UpdateWikiFlags(_ context.Context, dbname string, update wiki.FlagsUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wikis[dbname]
	if !ok {
		return fmt.Errorf("update flags for %s: %w", dbname, domain.ErrNotFound)
	}
	if update.Private != nil {
		w.Private = *update.Private
	}
	if update.Closed != nil {
		w.Closed = *update.Closed
	}
	if update.Inactive != nil {
		w.Inactive = *update.Inactive
	}
	m.wikis[dbname] = w
	return nil
}

func (m *mockStore) DeleteWiki(_ context.Context, dbname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.wikis[dbname]; !ok {
		return fmt.Errorf("delete wiki %s: %w", dbname, domain.ErrNotFound)
	}
	delete(m.wikis, dbname)
	return nil
}

func (m *mockStore) CreateRequest(_ context.Context, req *request.Request) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.DBName == req.DBName && r.Status == request.StatusPending {
			return 0, fmt.Errorf("submit request for %s: %w", req.DBName, domain.ErrDuplicatePending)
		}
	}
	m.nextID++
	stored := *req
	stored.ID = m.nextID
	m.requests[stored.ID] = stored
	return stored.ID, nil
}

func (m *mockStore) GetRequest(_ context.Context, id int64) (*request.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("get request %d: %w", id, domain.ErrNotFound)
	}
	return &r, nil
}

func (m *mockStore) GetPendingRequest(_ context.Context, id int64) (*request.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != request.StatusPending {
		return nil, fmt.Errorf("get pending request %d: %w", id, domain.ErrNotFound)
	}
	return &r, nil
}

func (m *mockStore) ListRequests(_ context.Context, status request.Status) ([]request.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []request.Request
	for _, r := range m.requests {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockStore) ResolveRequest(_ context.Context, id int64, status request.Status, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return fmt.Errorf("resolve request %d: %w", id, domain.ErrNotFound)
	}
	if r.Status != request.StatusPending {
		return fmt.Errorf("resolve request %d: %w", id, domain.ErrAlreadyResolved)
	}
	r.Status = status
	r.Comment = comment
	m.requests[id] = r
	return nil
}

func (m *mockStore) AddComment(_ context.Context, c *request.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[c.RequestID]; !ok {
		return fmt.Errorf("add comment to request %d: %w", c.RequestID, domain.ErrNotFound)
	}
	m.comments[c.RequestID] = append(m.comments[c.RequestID], *c)
	return nil
}

func (m *mockStore) ListComments(_ context.Context, requestID int64) ([]request.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]request.Comment(nil), m.comments[requestID]...), nil
}

func (m *mockStore) ListNamespaces(_ context.Context, dbname string) ([]namespace.Namespace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []namespace.Namespace
	for key, ns := range m.namespaces {
		if key.dbname == dbname {
			out = append(out, ns)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) GetNamespace(_ context.Context, dbname string, id int) (*namespace.Namespace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.namespaces[nsKey{dbname, id}]
	if !ok {
		return nil, fmt.Errorf("get namespace %d for %s: %w", id, dbname, domain.ErrNotFound)
	}
	return &ns, nil
}

func (m *mockStore) CreateNamespace(_ context.Context, ns *namespace.Namespace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := nsKey{ns.DBName, ns.ID}
	if _, ok := m.namespaces[key]; ok {
		return fmt.Errorf("create namespace %d for %s: %w", ns.ID, ns.DBName, domain.ErrAlreadyExists)
	}
	m.namespaces[key] = *ns
	return nil
}

func (m *mockStore) UpdateNamespace(_ context.Context, ns *namespace.Namespace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := nsKey{ns.DBName, ns.ID}
	if _, ok := m.namespaces[key]; !ok {
		return fmt.Errorf("update namespace %d for %s: %w", ns.ID, ns.DBName, domain.ErrNotFound)
	}
	m.namespaces[key] = *ns
	return nil
}

func (m *mockStore) DeleteNamespace(_ context.Context, dbname string, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := nsKey{dbname, id}
	if _, ok := m.namespaces[key]; !ok {
		return fmt.Errorf("delete namespace %d for %s: %w", id, dbname, domain.ErrNotFound)
	}
	delete(m.namespaces, key)
	return nil
}

func (m *mockStore) MaxNamespaceID(_ context.Context, dbname string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	maxID := 0
	for key := range m.namespaces {
		if key.dbname == dbname && key.id > maxID {
			maxID = key.id
		}
	}
	return maxID, nil
}

func (m *mockStore) ListGroups(_ context.Context, dbname string) ([]permission.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []permission.Group
	for key, g := range m.groups {
		if key.dbname == dbname {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockStore) GetGroup(_ context.Context, dbname, group string) (*permission.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupKey{dbname, group}]
	if !ok {
		return nil, fmt.Errorf("get group %s for %s: %w", group, dbname, domain.ErrNotFound)
	}
	return &g, nil
}

func (m *mockStore) UpsertGroup(_ context.Context, g *permission.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[groupKey{g.DBName, g.Name}] = *g
	return nil
}

func (m *mockStore) DeleteGroup(_ context.Context, dbname, group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := groupKey{dbname, group}
	if _, ok := m.groups[key]; !ok {
		return fmt.Errorf("delete group %s for %s: %w", group, dbname, domain.ErrNotFound)
	}
	delete(m.groups, key)
	return nil
}

// mockProvisioner records provisioning calls and injects failures.
type mockProvisioner struct {
	mu          sync.Mutex
	created     []string
	populated   []string
	dropped     []string
	createErr   error
	populateErr error
	dropErr     error
}

func (m *mockProvisioner) CreateStorage(_ context.Context, dbname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, name := range m.created {
		if name == dbname {
			return fmt.Errorf("create storage %s: %w", dbname, domain.ErrAlreadyExists)
		}
	}
	m.created = append(m.created, dbname)
	return nil
}

func (m *mockProvisioner) PopulateStorage(_ context.Context, dbname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.populateErr != nil {
		return m.populateErr
	}
	m.populated = append(m.populated, dbname)
	return nil
}

func (m *mockProvisioner) DropStorage(_ context.Context, dbname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dropErr != nil {
		return m.dropErr
	}
	m.dropped = append(m.dropped, dbname)
	return nil
}

// mockSink records emitted audit events.
type mockSink struct {
	mu     sync.Mutex
	events []auditsink.Event
}

func (m *mockSink) Emit(_ context.Context, ev auditsink.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockSink) actions() []auditsink.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]auditsink.Action, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.Action
	}
	return out
}

// mockCache is a map-backed cache without eviction.
type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	return data, ok, nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// testEnv bundles one full service graph over the mocks.
type testEnv struct {
	store       *mockStore
	prov        *mockProvisioner
	sink        *mockSink
	cache       *mockCache
	registry    *RegistryService
	requests    *RequestService
	overrides   *OverrideService
	namespaces  *NamespaceService
	permissions *PermissionService
	activation  *ActivationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	metrics, err := otel.NewMetrics()
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	env := &testEnv{
		store: newMockStore(),
		prov:  &mockProvisioner{},
		sink:  &mockSink{},
		cache: newMockCache(),
	}

	exts := extension.DefaultCatalog()
	defaults := map[string]json.RawMessage{
		"wmgUseCite":            json.RawMessage("true"),
		"wmgUseParserFunctions": json.RawMessage("true"),
		"wmgUseWikiEditor":      json.RawMessage("true"),
	}

	env.registry = NewRegistryService(env.store, env.prov, env.sink, env.cache, metrics, RegistryConfig{
		BaseDomain:      "wiki.example.org",
		Categories:      []string{"uncategorised", "community", "gaming"},
		CacheTTL:        time.Minute,
		InitialSettings: defaults,
	})
	env.requests = NewRequestService(env.store, env.registry, env.sink, metrics)
	env.overrides = NewOverrideService(env.store, env.registry, env.sink, setting.DefaultCatalog(), exts, defaults)
	env.namespaces = NewNamespaceService(env.store, env.registry, env.sink)
	env.permissions = NewPermissionService(env.store, env.registry, env.sink)
	env.activation = NewActivationService(env.store, env.overrides)
	return env
}
