package models

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultTagCategory = "general"
	BrandTagCategory   = "brand"
	MaxTags            = 20
	MaxTagNameLength   = 40
)

// Tag is a normalized (name, category) pair attached to a post
type Tag struct {
	Name     string `bson:"name" json:"name"`
	Category string `bson:"category" json:"category"`
}

// ParseTag accepts "name" or "category:name"
func ParseTag(raw string) Tag {
	if category, name, ok := strings.Cut(raw, ":"); ok {
		return Tag{Name: name, Category: category}
	}
	return Tag{Name: raw}
}

// ParseTagList splits a comma separated form value into tags
func ParseTagList(raw string) []Tag {
	var tags []Tag
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		tags = append(tags, ParseTag(part))
	}
	return tags
}

// NormalizeTags trims and lowercases tags, defaults the category, drops
// empty names and duplicates, and caps the list length. Order is kept.
func NormalizeTags(tags []Tag) []Tag {
	out := make([]Tag, 0, len(tags))
	seen := make(map[Tag]struct{}, len(tags))

	for _, t := range tags {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t.Name), "#")))
		if name == "" {
			continue
		}
		if utf8.RuneCountInString(name) > MaxTagNameLength {
			name = string([]rune(name)[:MaxTagNameLength])
		}

		category := strings.ToLower(strings.TrimSpace(t.Category))
		if category == "" {
			category = DefaultTagCategory
		}

		tag := Tag{Name: name, Category: category}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)

		if len(out) == MaxTags {
			break
		}
	}
	return out
}
