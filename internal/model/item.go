package model

import (
	"strings"
)

const (
	// MaxTags is the maximum number of tags of an item.
	MaxTags = 10
	// MaxTagLength is the maximum length of a tag.
	MaxTagLength = 20
)

type (
	// An Item represents a meme record and the rendered API response.
	Item struct {
		Base `msgpack:",inline" storm:"inline"`

		OwnerID     string   `json:"owner_id"    msgpack:"owner_id"    storm:"index"`
		Title       string   `json:"title"       msgpack:"title"`
		Description string   `json:"description" msgpack:"description"`
		Tags        []string `json:"tags"        msgpack:"tags"`
		Asset       Asset    `json:"asset"       msgpack:"asset"`
		Active      bool     `json:"active"      msgpack:"active"      storm:"index"`
		Stats       Stats    `json:"stats"       msgpack:"stats"`
	}

	// Stats are the aggregated decisions of an item.
	// TotalDecisions always equals Likes + Dislikes.
	Stats struct {
		TotalDecisions int64 `json:"total_decisions" msgpack:"total_decisions"`
		Likes          int64 `json:"likes"           msgpack:"likes"`
		Dislikes       int64 `json:"dislikes"        msgpack:"dislikes"`
	}

	// An ItemPatch lists the mutable fields of an item. Nil fields are left untouched.
	ItemPatch struct {
		Title       *string
		Description *string
		Tags        []string
		Asset       *Asset
		Active      *bool
	}
)

// Apply counts the given decision direction.
func (s *Stats) Apply(d Direction) {
	s.TotalDecisions++
	switch d {
	case DirectionLike:
		s.Likes++
	case DirectionDislike:
		s.Dislikes++
	}
}

// Consistent reports whether the counters respect their invariant.
func (s Stats) Consistent() bool {
	return s.TotalDecisions == s.Likes+s.Dislikes
}

// IsOwnedBy returns true if the item belongs to the given user.
func (m *Item) IsOwnedBy(userID string) bool {
	return userID != "" && m.OwnerID == userID
}

// VisibleTo returns true if the given user can read the item.
func (m *Item) VisibleTo(userID string) bool {
	return m.Active || m.IsOwnedBy(userID)
}

// Apply patches the item. It returns true when something changed.
func (p ItemPatch) Apply(m *Item) bool {
	var changed bool
	if p.Title != nil {
		m.Title = *p.Title
		changed = true
	}
	if p.Description != nil {
		m.Description = *p.Description
		changed = true
	}
	if p.Tags != nil {
		m.Tags = NormalizeTags(p.Tags)
		changed = true
	}
	if p.Asset != nil {
		m.Asset = *p.Asset
		changed = true
	}
	if p.Active != nil {
		m.Active = *p.Active
		changed = true
	}
	return changed
}

// NormalizeTags trims and lower-cases tags and drops the blank ones.
// Duplicates are kept.
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		normalized = append(normalized, tag)
	}
	return normalized
}
