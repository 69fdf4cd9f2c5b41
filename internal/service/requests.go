package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wikifarm/farmd/internal/adapter/otel"
	"github.com/wikifarm/farmd/internal/domain"
	"github.com/wikifarm/farmd/internal/domain/request"
	"github.com/wikifarm/farmd/internal/domain/wiki"
	"github.com/wikifarm/farmd/internal/port/auditsink"
	"github.com/wikifarm/farmd/internal/port/database"
)

// RequestService runs the wiki creation request workflow: submission,
// review comments, and the approve/decline resolution path that ends in a
// provisioned, registered wiki.
type RequestService struct {
	store    database.Store
	registry *RegistryService
	audit    auditsink.Sink
	metrics  *otel.Metrics
	locks    *keyedLocks
}

// NewRequestService creates a new RequestService.
func NewRequestService(store database.Store, registry *RegistryService, audit auditsink.Sink, metrics *otel.Metrics) *RequestService {
	return &RequestService{
		store:    store,
		registry: registry,
		audit:    audit,
		metrics:  metrics,
		locks:    newKeyedLocks(),
	}
}

// Submit validates and queues a creation request. The requested identifier
// is sanitized before any uniqueness checks, so "TestWiki 123" and
// "testwiki123" land on the same pending slot.
func (s *RequestService) Submit(ctx context.Context, requester string, data request.SubmitData) (*request.Request, error) {
	if data.Sitename == "" || data.Language == "" || data.Reason == "" {
		return nil, fmt.Errorf("submit request: sitename, language and reason are required: %w", domain.ErrValidation)
	}
	if data.Category == "" {
		data.Category = wiki.DefaultCategory
	}
	if !slices.Contains(s.registry.categories, data.Category) {
		return nil, fmt.Errorf("submit request: unknown category %q: %w", data.Category, domain.ErrValidation)
	}

	dbname, err := wiki.SanitizeDBName(data.DBName)
	if err != nil {
		return nil, fmt.Errorf("submit request: %w", err)
	}
	data.DBName = dbname

	exists, err := s.registry.Exists(ctx, dbname)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("submit request: wiki %s already exists: %w", dbname, domain.ErrAlreadyExists)
	}

	req := &request.Request{
		DBName:      dbname,
		Sitename:    data.Sitename,
		Language:    data.Language,
		Category:    data.Category,
		Private:     data.Private,
		URL:         wiki.GenerateURL(dbname, s.registry.baseDomain),
		Requester:   requester,
		Reason:      data.Reason,
		Status:      request.StatusPending,
		SubmittedAt: time.Now().UTC(),
	}
	req.ID, err = s.store.CreateRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	s.metrics.RequestsSubmitted.Add(ctx, 1)
	s.audit.Emit(ctx, auditsink.Event{
		Action: auditsink.ActionRequestSubmitted,
		Actor:  requester,
		Target: dbname,
		Params: map[string]any{"request_id": req.ID, "sitename": req.Sitename},
	})
	return req, nil
}

// Get returns a single request.
func (s *RequestService) Get(ctx context.Context, id int64) (*request.Request, error) {
	return s.store.GetRequest(ctx, id)
}

// List returns requests, optionally filtered by status, newest first.
func (s *RequestService) List(ctx context.Context, status request.Status) ([]request.Request, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("list requests: unknown status %q: %w", status, domain.ErrValidation)
	}
	return s.store.ListRequests(ctx, status)
}

// Approve provisions the requested wiki and marks the request approved.
// The request is resolved only after storage and the registry record both
// exist, so a provisioning failure leaves it pending for a retry.
func (s *RequestService) Approve(ctx context.Context, actor string, id int64, comment string) (*wiki.Wiki, error) {
	unlock := s.locks.Lock(requestLockKey(id))
	defer unlock()

	req, err := s.store.GetPendingRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	w, err := s.provision(ctx, req)
	if err != nil {
		s.metrics.ProvisionFailures.Add(ctx, 1)
		return nil, err
	}

	if err := s.store.ResolveRequest(ctx, id, request.StatusApproved, comment); err != nil {
		// The wiki exists but the request stayed pending; a later retry
		// of Approve will find the registry record and only resolve.
		return nil, fmt.Errorf("approve request %d: wiki created but request not resolved: %w", id, err)
	}

	s.metrics.RequestsApproved.Add(ctx, 1)
	s.audit.Emit(ctx, auditsink.Event{
		Action: auditsink.ActionRequestApproved,
		Actor:  actor,
		Target: req.DBName,
		Params: map[string]any{"request_id": id, "comment": comment},
	})
	return w, nil
}

// provision registers the requested wiki, which provisions its storage on
// the way. Every step tolerates a prior partial run of itself.
func (s *RequestService) provision(ctx context.Context, req *request.Request) (*wiki.Wiki, error) {
	start := time.Now()

	w, err := s.registry.Create(ctx, req.Requester, wiki.CreateRequest{
		DBName:   req.DBName,
		Sitename: req.Sitename,
		Language: req.Language,
		Category: req.Category,
		Private:  req.Private,
		URL:      req.URL,
	})
	if err != nil {
		if !isAlreadyExists(err) {
			return nil, fmt.Errorf("provision %s: %w", req.DBName, err)
		}
		w, err = s.registry.Get(ctx, req.DBName)
		if err != nil {
			return nil, fmt.Errorf("provision %s: %w", req.DBName, err)
		}
	}

	s.metrics.ProvisionDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("dbname", req.DBName)))
	return w, nil
}

// Decline marks a pending request declined with a reviewer comment.
func (s *RequestService) Decline(ctx context.Context, actor string, id int64, comment string) error {
	unlock := s.locks.Lock(requestLockKey(id))
	defer unlock()

	if err := s.store.ResolveRequest(ctx, id, request.StatusDeclined, comment); err != nil {
		return err
	}

	s.metrics.RequestsDeclined.Add(ctx, 1)
	s.audit.Emit(ctx, auditsink.Event{
		Action: auditsink.ActionRequestDeclined,
		Actor:  actor,
		Target: fmt.Sprintf("request/%d", id),
		Params: map[string]any{"request_id": id, "comment": comment},
	})
	return nil
}

// AddComment appends a discussion comment to a request's thread.
func (s *RequestService) AddComment(ctx context.Context, author string, id int64, text string) (*request.Comment, error) {
	if text == "" {
		return nil, fmt.Errorf("add comment: empty text: %w", domain.ErrValidation)
	}

	c := &request.Comment{
		RequestID: id,
		Author:    author,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AddComment(ctx, c); err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, auditsink.Event{
		Action: auditsink.ActionRequestCommented,
		Actor:  author,
		Target: fmt.Sprintf("request/%d", id),
		Params: map[string]any{"request_id": id},
	})
	return c, nil
}

// ListComments returns a request's comment thread oldest first.
func (s *RequestService) ListComments(ctx context.Context, id int64) ([]request.Comment, error) {
	if _, err := s.store.GetRequest(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, id)
}

func requestLockKey(id int64) string {
	return fmt.Sprintf("request/%d", id)
}
