package models

import "strings"

// Visibility governs which viewers may read a post
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityFollowers Visibility = "followers"
)

// AllVisibilities lists every label, in the order owners see them
var AllVisibilities = []Visibility{VisibilityPublic, VisibilityPrivate, VisibilityFollowers}

// ParseVisibility maps user input to a Visibility. Empty input defaults to public.
func ParseVisibility(s string) (Visibility, bool) {
	switch Visibility(strings.ToLower(strings.TrimSpace(s))) {
	case "", VisibilityPublic:
		return VisibilityPublic, true
	case VisibilityPrivate:
		return VisibilityPrivate, true
	case VisibilityFollowers:
		return VisibilityFollowers, true
	}
	return "", false
}
