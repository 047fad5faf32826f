package model_test

import (
	"testing"

	"github.com/mdouchement/memeswipe/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeTags(t *testing.T) {
	tags := model.NormalizeTags([]string{" Funny ", "", "CATS", "cats", "  "})
	assert.Equal(t, []string{"funny", "cats", "cats"}, tags)
}

func TestStatsApply(t *testing.T) {
	var stats model.Stats
	stats.Apply(model.DirectionLike)
	stats.Apply(model.DirectionDislike)
	stats.Apply(model.DirectionLike)

	assert.Equal(t, model.Stats{TotalDecisions: 3, Likes: 2, Dislikes: 1}, stats)
	assert.True(t, stats.Consistent())
}

func TestParseDirection(t *testing.T) {
	for in, expected := range map[string]model.Direction{
		"like":    model.DirectionLike,
		"RIGHT":   model.DirectionLike,
		"dislike": model.DirectionDislike,
		" left ":  model.DirectionDislike,
	} {
		d, ok := model.ParseDirection(in)
		assert.True(t, ok, in)
		assert.Equal(t, expected, d, in)
	}

	_, ok := model.ParseDirection("up")
	assert.False(t, ok)
	assert.False(t, model.Direction("up").Valid())
}

func TestItemPatch(t *testing.T) {
	item := &model.Item{Title: "old", Tags: []string{"a"}, Active: true}
	title := "new"
	inactive := false

	assert.False(t, model.ItemPatch{}.Apply(item))
	assert.True(t, model.ItemPatch{Title: &title, Tags: []string{"B"}, Active: &inactive}.Apply(item))
	assert.Equal(t, "new", item.Title)
	assert.Equal(t, []string{"b"}, item.Tags)
	assert.False(t, item.Active)
}

func TestItemVisibility(t *testing.T) {
	item := &model.Item{OwnerID: "owner", Active: false}
	assert.True(t, item.VisibleTo("owner"))
	assert.False(t, item.VisibleTo("other"))
	assert.False(t, item.IsOwnedBy(""))

	item.Active = true
	assert.True(t, item.VisibleTo("other"))
}

func TestIsDirectHandle(t *testing.T) {
	assert.True(t, model.IsDirectHandle("https://example.com/a.png"))
	assert.True(t, model.IsDirectHandle("http://localhost:5000/uploads/a.png"))
	assert.False(t, model.IsDirectHandle("memes/0f8fad5b"))
	assert.False(t, model.IsDirectHandle("ftp://example.com/a.png"))
	assert.False(t, model.Asset{Handle: "memes/x"}.IsDirect())
}
