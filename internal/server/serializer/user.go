package serializer

import "github.com/mdouchement/memeswipe/internal/model"

// User serializes the render of a user.
func User(m *model.User) map[string]any {
	r := map[string]any{
		"id":       m.ID,
		"username": m.Username,
		"email":    m.Email,
		"name":     m.Name,
	}
	if m.CreatedAt != nil {
		r["created_at"] = m.CreatedAt.UTC()
	}
	if m.UpdatedAt != nil {
		r["updated_at"] = m.UpdatedAt.UTC()
	}
	return r
}

// Creator serializes the public render of a user.
func Creator(m *model.User) map[string]any {
	if m == nil {
		return nil
	}

	return map[string]any{
		"id":       m.ID,
		"username": m.Username,
		"name":     m.Name,
	}
}
