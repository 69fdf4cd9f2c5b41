// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists indicates an entity with the same identifier already exists.
var ErrAlreadyExists = errors.New("already exists")

// ErrDuplicatePending indicates a pending creation request already exists for
// the same wiki identifier.
var ErrDuplicatePending = errors.New("a pending request for this wiki already exists")

// ErrAlreadyResolved indicates the request has already been approved or declined.
var ErrAlreadyResolved = errors.New("request already resolved")

// ErrInvalidIdentifier indicates a wiki identifier that does not satisfy the
// identifier grammar even after sanitisation.
var ErrInvalidIdentifier = errors.New("invalid wiki identifier")

// ErrUnknownExtension indicates an extension name absent from the catalog.
var ErrUnknownExtension = errors.New("unknown extension")

// ErrUnmetRequirement indicates a required extension is not enabled.
var ErrUnmetRequirement = errors.New("required extension not enabled")

// ErrConflict indicates a conflicting extension is enabled, or a concurrent
// modification conflict.
var ErrConflict = errors.New("conflict")

// ErrValidation indicates a value that fails validation for its declared kind.
var ErrValidation = errors.New("validation failed")

// ErrProvisioning wraps failures of the provisioner gateway. Approvals that
// fail with it leave the request pending and may be retried as-is.
var ErrProvisioning = errors.New("provisioning failed")

// ErrStoreUnavailable indicates the registry's backing storage cannot be
// reached. Transient; callers may retry with backoff.
var ErrStoreUnavailable = errors.New("registry store unavailable")

// ErrProtectedGroup indicates an attempt to delete a default permission group.
var ErrProtectedGroup = errors.New("default permission group cannot be deleted")
