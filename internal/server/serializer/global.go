package serializer

// Global serialize the given render to the general API response format.
func Global(render any) map[string]any {
	return map[string]any{
		"success": true,
		"data":    render,
	}
}
