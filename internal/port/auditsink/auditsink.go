// Package auditsink defines the audit event port (interface).
package auditsink

import (
	"context"
	"time"
)

// Action identifies what happened.
type Action string

// Audit actions emitted by the core.
const (
	ActionWikiCreated       Action = "wiki-created"
	ActionWikiDeleted       Action = "wiki-deleted"
	ActionWikiFlagsChanged  Action = "wiki-flags-changed"
	ActionRequestSubmitted  Action = "request-submitted"
	ActionRequestApproved   Action = "request-approved"
	ActionRequestDeclined   Action = "request-declined"
	ActionRequestCommented  Action = "request-commented"
	ActionExtensionEnabled  Action = "extension-enabled"
	ActionExtensionDisabled Action = "extension-disabled"
	ActionSettingChanged    Action = "setting-changed"
	ActionNamespaceAdded    Action = "namespace-added"
	ActionNamespaceUpdated  Action = "namespace-updated"
	ActionNamespaceDeleted  Action = "namespace-deleted"
	ActionGroupUpdated      Action = "permission-group-updated"
	ActionGroupDeleted      Action = "permission-group-deleted"
	ActionStorageDropFailed Action = "storage-drop-failed"
)

// Event is one audit record. Actor is the caller identity passed through for
// attribution; Target is the wiki identifier the action applies to.
type Event struct {
	ID        string         `json:"id"`
	Action    Action         `json:"action"`
	Actor     string         `json:"actor"`
	Target    string         `json:"target"`
	Params    map[string]any `json:"params,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Sink receives audit events. Emit is fire-and-forget: the core never blocks
// on delivery confirmation and never fails an operation over a sink error.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}
