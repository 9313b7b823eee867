// Package visibility decides which posts a caller may see. A post is public
// once it is marked visible and its publication date has arrived; staff see
// everything.
package visibility

import (
	"time"

	"blogcore/internal/domain/models"
)

type Scope int

const (
	ScopePublicOnly Scope = iota
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	default:
		return "public_only"
	}
}

// DateOf drops the clock part of t, keeping the calendar day as seen in t's
// own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsPublic reports whether post is public on the day of asOf.
func IsPublic(post models.Post, asOf time.Time) bool {
	if !post.IsVisible {
		return false
	}
	return !DateOf(post.PublicationDate).After(DateOf(asOf))
}

// ScopeFor maps the caller's privilege to a query scope.
func ScopeFor(privileged bool) Scope {
	if privileged {
		return ScopeAll
	}
	return ScopePublicOnly
}

// Filter renders scope as a store filter evaluated against asOf.
func Filter(scope Scope, asOf time.Time) models.PostFilter {
	if scope == ScopeAll {
		return models.PostFilter{}
	}

	today := DateOf(asOf)
	return models.PostFilter{PublicAsOf: &today}
}
