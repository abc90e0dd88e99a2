// Package common holds small value types shared by the domain packages.
package common

import (
	"strings"

	"github.com/google/uuid"
)

// SessionID identifies one user session in the session store.
type SessionID string

// NewSessionID returns a fresh random session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// ParseSessionID validates s as a session identifier.
func ParseSessionID(s string) (SessionID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return SessionID(id.String()), true
}

func (s SessionID) String() string { return string(s) }

// EntryName is the catalog identifier of a protein, e.g. "adrb2_human".
type EntryName = string

// NormalizeEntryNames lower-cases, trims, and deduplicates names, keeping the
// first occurrence order. Empty names are dropped.
func NormalizeEntryNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
