// Package wiki defines the registry record for one wiki in the farm.
package wiki

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/wikifarm/farmd/internal/domain"
)

// DBNamePrefix is prepended when a sanitised identifier starts with a digit.
const DBNamePrefix = "wiki_"

// MaxDBNameLen is the identifier length cap (MySQL/Postgres identifier limit).
const MaxDBNameLen = 64

// Wiki is one registered wiki instance. DBName is globally unique and
// immutable once created; CreatedAt is set once by the store.
type Wiki struct {
	DBName    string                     `json:"dbname"`
	Sitename  string                     `json:"sitename"`
	Language  string                     `json:"language"`
	Category  string                     `json:"category"`
	Private   bool                       `json:"private"`
	Closed    bool                       `json:"closed"`
	Inactive  bool                       `json:"inactive"`
	URL       string                     `json:"url"`
	Settings  map[string]json.RawMessage `json:"settings,omitempty"`
	CreatedAt time.Time                  `json:"created_at"`
}

// CreateRequest holds the fields required to register a wiki directly,
// bypassing the request queue.
type CreateRequest struct {
	DBName   string                     `json:"dbname"`
	Sitename string                     `json:"sitename"`
	Language string                     `json:"language"`
	Category string                     `json:"category"`
	Private  bool                       `json:"private"`
	URL      string                     `json:"url"`
	Settings map[string]json.RawMessage `json:"settings,omitempty"`
}

// FlagsUpdate carries optional lifecycle flag changes. Nil fields are left
// untouched.
type FlagsUpdate struct {
	Private  *bool `json:"private,omitempty"`
	Closed   *bool `json:"closed,omitempty"`
	Inactive *bool `json:"inactive,omitempty"`
}

// DefaultCategory is assigned when no category is given.
const DefaultCategory = "uncategorised"

var dbnameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// ValidDBName reports whether name satisfies the identifier grammar.
func ValidDBName(name string) bool {
	return dbnameRegex.MatchString(name)
}

// SanitizeDBName normalises a candidate identifier: lowercase, strip
// everything outside [a-z0-9_], prefix with DBNamePrefix when the first
// character is a digit, truncate to MaxDBNameLen. Idempotent for any input
// whose sanitised form is valid. Returns ErrInvalidIdentifier when nothing
// usable remains.
func SanitizeDBName(name string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return "", fmt.Errorf("sanitize %q: %w", name, domain.ErrInvalidIdentifier)
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = DBNamePrefix + s
	}
	if len(s) > MaxDBNameLen {
		s = s[:MaxDBNameLen]
	}
	if !ValidDBName(s) {
		return "", fmt.Errorf("sanitize %q: %w", name, domain.ErrInvalidIdentifier)
	}
	return s, nil
}

// GenerateURL builds the canonical URL for a wiki from its identifier and the
// farm's base domain.
func GenerateURL(dbname, baseDomain string) string {
	if baseDomain == "" {
		baseDomain = "wiki.local"
	}
	return fmt.Sprintf("https://%s.%s", dbname, baseDomain)
}
