package serializer

import "github.com/mdouchement/memeswipe/internal/model"

// Item serializes the render of an item with its creator.
func Item(m *model.Item, creator *model.User) map[string]any {
	r := map[string]any{
		"id":          m.ID,
		"title":       m.Title,
		"description": m.Description,
		"image_url":   m.Asset.Address,
		"tags":        tags(m.Tags),
		"active":      m.Active,
		"stats": map[string]any{
			"total_decisions": m.Stats.TotalDecisions,
			"likes":           m.Stats.Likes,
			"dislikes":        m.Stats.Dislikes,
		},
		"created_by": Creator(creator),
	}

	if m.Asset.ContentType != "" {
		r["image"] = map[string]any{
			"content_type": m.Asset.ContentType,
			"size":         m.Asset.Size,
			"width":        m.Asset.Width,
			"height":       m.Asset.Height,
			"blurhash":     m.Asset.BlurHash,
		}
	}
	if m.CreatedAt != nil {
		r["created_at"] = m.CreatedAt.UTC()
	}
	if m.UpdatedAt != nil {
		r["updated_at"] = m.UpdatedAt.UTC()
	}
	return r
}

// Items serializes the render of items.
// Creators are looked up by owner id.
func Items(m []*model.Item, creators map[string]*model.User) []map[string]any {
	items := make([]map[string]any, len(m))
	for i, item := range m {
		items[i] = Item(item, creators[item.OwnerID])
	}
	return items
}

func tags(t []string) []string {
	if t == nil {
		return []string{}
	}
	return t
}
