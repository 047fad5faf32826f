package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/memeswipe/internal/database"
	"github.com/mdouchement/memeswipe/internal/model"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/mdouchement/memeswipe/internal/server/serializer"
	"github.com/mdouchement/memeswipe/internal/service"
)

// meme contains all meme handlers.
type meme struct {
	db            database.Client
	content       *service.Content
	feed          *service.Feed
	decisions     *service.Decisions
	maxUploadSize int64
}

///// Feed
////
//

// Feed renders a random page of the memes the current user has not swiped yet.
func (h *meme) Feed(c echo.Context) error {
	page, limit, err := pagination(c)
	if err != nil {
		return err
	}

	feed, err := h.feed.Page(c.Request().Context(), currentUser(c).ID, page, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Global(echo.Map{
		"memes": serializer.Items(feed.Items, h.creators(feed.Items)),
		"pagination": echo.Map{
			"page":     feed.Page,
			"limit":    feed.Limit,
			"has_more": feed.HasMore,
		},
	}))
}

///// Create
////
//

// Create handles a new meme given as an uploaded image or an image URL.
func (h *meme) Create(c echo.Context) error {
	params, err := bindMeme(c, h.maxUploadSize)
	if err != nil {
		return err
	}

	user := currentUser(c)
	item, err := h.content.Create(c.Request().Context(), user.ID, params.create())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, serializer.Global(echo.Map{
		"meme": serializer.Item(item, user),
	}))
}

///// Mine
////
//

// Mine renders the memes of the current user, newest first.
func (h *meme) Mine(c echo.Context) error {
	page, limit, err := pagination(c)
	if err != nil {
		return err
	}

	user := currentUser(c)
	owned, err := h.content.ListOwned(c.Request().Context(), user.ID, page, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Global(echo.Map{
		"memes": serializer.Items(owned.Items, map[string]*model.User{user.ID: user}),
		"pagination": echo.Map{
			"page":  owned.Page,
			"limit": owned.Limit,
			"total": owned.Total,
			"pages": owned.Pages,
		},
	}))
}

///// Liked & Disliked
////
//

// Liked renders the memes liked by the current user, most recent first.
func (h *meme) Liked(c echo.Context) error {
	return h.decided(c, model.DirectionLike)
}

// Disliked renders the memes disliked by the current user, most recent first.
func (h *meme) Disliked(c echo.Context) error {
	return h.decided(c, model.DirectionDislike)
}

func (h *meme) decided(c echo.Context, direction model.Direction) error {
	items, err := h.decisions.ListDecided(c.Request().Context(), currentUser(c).ID, string(direction))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Global(echo.Map{
		"memes": serializer.Items(items, h.creators(items)),
	}))
}

///// Show
////
//

// Show renders a meme.
func (h *meme) Show(c echo.Context) error {
	item, err := h.content.Get(c.Request().Context(), c.Param("id"), currentUser(c).ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Global(echo.Map{
		"meme": serializer.Item(item, h.creators([]*model.Item{item})[item.OwnerID]),
	}))
}

///// Update
////
//

// Update patches a meme of the current user.
func (h *meme) Update(c echo.Context) error {
	params, err := bindMeme(c, h.maxUploadSize)
	if err != nil {
		return err
	}

	user := currentUser(c)
	item, err := h.content.Update(c.Request().Context(), c.Param("id"), user.ID, params.update())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Global(echo.Map{
		"meme": serializer.Item(item, user),
	}))
}

///// Delete
////
//

// Delete removes a meme of the current user with its swipes and image.
func (h *meme) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.content.Delete(c.Request().Context(), id, currentUser(c).ID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Global(echo.Map{
		"id":      id,
		"message": "Meme deleted successfully.",
	}))
}

///// Swipe
////
//

type swipeParams struct {
	Direction string `json:"direction" validate:"required"`
}

// Swipe records the decision of the current user on a meme.
func (h *meme) Swipe(c echo.Context) error {
	var params swipeParams
	if err := c.Bind(&params); err != nil {
		return err
	}
	if err := c.Validate(params); err != nil {
		return err
	}

	item, err := h.decisions.Submit(c.Request().Context(), currentUser(c).ID, c.Param("id"), params.Direction)
	if err != nil {
		return err
	}

	direction, _ := model.ParseDirection(params.Direction)
	return c.JSON(http.StatusOK, serializer.Global(echo.Map{
		"meme_id":   item.ID,
		"direction": direction,
		"stats":     serializer.Item(item, nil)["stats"],
	}))
}

///// Helpers
////
//

func pagination(c echo.Context) (page, limit int, err error) {
	err = echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("limit", &limit).
		BindError()
	if err != nil {
		return 0, 0, mserror.InvalidInput("page and limit must be integers.")
	}
	return page, limit, nil
}

// creators returns the owners of the given items indexed by id.
// Unknown owners are skipped.
func (h *meme) creators(items []*model.Item) map[string]*model.User {
	creators := map[string]*model.User{}
	for _, item := range items {
		if _, ok := creators[item.OwnerID]; ok {
			continue
		}

		user, err := h.db.FindUser(item.OwnerID)
		if err != nil {
			creators[item.OwnerID] = nil
			continue
		}
		creators[item.OwnerID] = user
	}
	return creators
}
