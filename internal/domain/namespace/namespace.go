// Package namespace defines per-wiki custom namespace overrides.
package namespace

import (
	"fmt"

	"github.com/wikifarm/farmd/internal/domain"
)

// MinCustomID is the lowest id available to custom namespaces; everything
// below is reserved for the host application's built-in namespaces.
const MinCustomID = 3000

// Namespace is one custom namespace override for a wiki. ID is always even:
// the odd id+1 is the namespace's implicit talk companion and must not
// collide with another namespace's primary id.
type Namespace struct {
	DBName     string   `json:"dbname"`
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Searchable bool     `json:"searchable"`
	Subpages   bool     `json:"subpages"`
	Content    bool     `json:"content"`
	Protection string   `json:"protection,omitempty"`
	Aliases    []string `json:"aliases,omitempty"`
}

// CreateRequest holds the caller-supplied fields of a new namespace.
// Searchable and Subpages default to true when omitted.
type CreateRequest struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Searchable *bool    `json:"searchable,omitempty"`
	Subpages   *bool    `json:"subpages,omitempty"`
	Content    bool     `json:"content"`
	Protection string   `json:"protection,omitempty"`
	Aliases    []string `json:"aliases,omitempty"`
}

// UpdateRequest carries optional field changes. Nil fields are left untouched.
type UpdateRequest struct {
	Name       *string   `json:"name,omitempty"`
	Searchable *bool     `json:"searchable,omitempty"`
	Subpages   *bool     `json:"subpages,omitempty"`
	Content    *bool     `json:"content,omitempty"`
	Protection *string   `json:"protection,omitempty"`
	Aliases    *[]string `json:"aliases,omitempty"`
}

// TalkID returns the id of the namespace's implicit talk companion.
func (n Namespace) TalkID() int {
	return n.ID + 1
}

// TalkName returns the conventional name of the talk companion.
func (n Namespace) TalkName() string {
	return n.Name + "_talk"
}

// ValidateID rejects ids below MinCustomID and odd ids.
func ValidateID(id int) error {
	if id < MinCustomID {
		return fmt.Errorf("namespace id %d below %d: %w", id, MinCustomID, domain.ErrValidation)
	}
	if id%2 != 0 {
		return fmt.Errorf("namespace id %d must be even (odd ids are talk companions): %w", id, domain.ErrValidation)
	}
	return nil
}

// NextID returns the next free even id at or above MinCustomID, given the
// highest id currently in use (0 when none).
func NextID(maxInUse int) int {
	next := maxInUse + 1
	if next < MinCustomID {
		next = MinCustomID
	}
	if next%2 != 0 {
		next++
	}
	return next
}
