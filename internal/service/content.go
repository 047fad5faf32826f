package service

import (
	"context"
	"math"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/memeswipe/internal/database"
	"github.com/mdouchement/memeswipe/internal/metrics"
	"github.com/mdouchement/memeswipe/internal/model"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/mdouchement/memeswipe/internal/validation"
	"github.com/sirupsen/logrus"
)

// DefaultOwnedLimit is the page size of the owner's listing.
const DefaultOwnedLimit = 10

type (
	// Content manages the lifecycle of items and of their image.
	//
	// The database and the asset store are distinct systems. Writes are ordered so that a failure
	// leaves at worst an orphaned asset, and the asset written by a failed operation is deleted once.
	// When that compensation fails too, the asset is reported as inconsistent in logs and metrics.
	Content struct {
		db       database.Client
		assets   Assets
		validate *validation.Validator
		log      logrus.FieldLogger
		metrics  *metrics.Metrics
		maxLimit int
	}

	// CreateParams are used to create an item.
	CreateParams struct {
		Title       string   `json:"title"       validate:"required,max=100"`
		Description string   `json:"description" validate:"required,max=500"`
		Tags        []string `json:"tags"        validate:"max=10,dive,max=20"`
		Image       Image    `json:"-"`
	}

	// UpdateParams are used to update an item. Nil fields are left untouched.
	UpdateParams struct {
		Title       *string  `json:"title"       validate:"omitnil,min=1,max=100"`
		Description *string  `json:"description" validate:"omitnil,min=1,max=500"`
		Tags        []string `json:"tags"        validate:"omitnil,max=10,dive,max=20"`
		Active      *bool    `json:"active"`
		Image       *Image   `json:"-"`
	}

	// An OwnedPage is a page of the owner's items, newest first.
	OwnedPage struct {
		Items []*model.Item
		Page  int
		Limit int
		Total int
		Pages int
	}
)

// NewContent returns a new Content.
// A maxLimit below DefaultOwnedLimit falls back to MaxFeedLimit.
func NewContent(db database.Client, assets Assets, log logrus.FieldLogger, m *metrics.Metrics, maxLimit int) *Content {
	if maxLimit < DefaultOwnedLimit {
		maxLimit = MaxFeedLimit
	}

	return &Content{
		db:       db,
		assets:   assets,
		validate: validation.New(),
		log:      log.WithField("service", "content"),
		metrics:  m,
		maxLimit: maxLimit,
	}
}

// Create stores the image then inserts the item.
// The stored image is deleted when the insert fails.
func (s *Content) Create(ctx context.Context, ownerID string, params CreateParams) (*model.Item, error) {
	params.Tags = model.NormalizeTags(params.Tags)
	if err := s.validate.Validate(params); err != nil {
		return nil, err
	}
	if params.Image.IsZero() {
		return nil, mserror.InvalidInput("Either upload an image file or provide an image URL.")
	}

	id := uuid.Must(uuid.NewV4()).String()
	asset, err := s.acquire(ctx, id, params.Image)
	if err != nil {
		return nil, err
	}

	item := &model.Item{
		Base:        model.Base{ID: id},
		OwnerID:     ownerID,
		Title:       params.Title,
		Description: params.Description,
		Tags:        params.Tags,
		Asset:       asset,
		Active:      true,
	}
	if err = s.db.CreateItem(item); err != nil {
		if len(params.Image.Data) > 0 {
			s.release(ctx, StageCreateItem, id, asset.Handle)
		}
		return nil, staged(err, StageCreateItem, "could not create item")
	}

	s.log.WithFields(logrus.Fields{"item_id": id, "owner_id": ownerID}).Debug("item created")
	return item, nil
}

// Get returns the item. Inactive items are only visible to their owner.
func (s *Content) Get(ctx context.Context, id, viewerID string) (*model.Item, error) {
	item, err := s.db.FindItem(id)
	if err != nil {
		return nil, staged(notFound(err, s.db.IsNotFound, "Meme not found."), StageFindItem, "could not find item")
	}
	if !item.VisibleTo(viewerID) {
		return nil, mserror.NotFound("Meme not found.").WithStage(StageFindItem)
	}

	resolve(ctx, s.assets, s.log, []*model.Item{item})
	return item, nil
}

// Update patches the item owned by ownerID.
// A new image is stored first, then the row is updated, then the previous image is deleted.
func (s *Content) Update(ctx context.Context, id, ownerID string, params UpdateParams) (*model.Item, error) {
	if params.Tags != nil {
		params.Tags = model.NormalizeTags(params.Tags)
	}
	if err := s.validate.Validate(params); err != nil {
		return nil, err
	}

	current, err := s.db.FindOwnedItem(id, ownerID)
	if err != nil {
		return nil, staged(err, StageFindItem, "could not find item")
	}

	patch := model.ItemPatch{
		Title:       params.Title,
		Description: params.Description,
		Tags:        params.Tags,
		Active:      params.Active,
	}

	uploaded := params.Image != nil && len(params.Image.Data) > 0
	if params.Image != nil && !params.Image.IsZero() {
		asset, err := s.acquire(ctx, uuid.Must(uuid.NewV4()).String(), *params.Image)
		if err != nil {
			return nil, err
		}
		patch.Asset = &asset
	}

	item, err := s.db.UpdateItem(id, ownerID, patch)
	if err != nil {
		if uploaded {
			s.release(ctx, StageUpdateItem, id, patch.Asset.Handle)
		}
		return nil, staged(err, StageUpdateItem, "could not update item")
	}

	if patch.Asset != nil && current.Asset.Handle != patch.Asset.Handle {
		s.release(ctx, StageDeleteOldAsset, id, current.Asset.Handle)
	}

	s.log.WithFields(logrus.Fields{"item_id": id, "owner_id": ownerID}).Debug("item updated")
	return item, nil
}

// Delete removes the decisions of the item, its image and finally its row.
// The item is deactivated first so no decision can be recorded meanwhile.
func (s *Content) Delete(ctx context.Context, id, ownerID string) error {
	inactive := false
	item, err := s.db.UpdateItem(id, ownerID, model.ItemPatch{Active: &inactive})
	if err != nil {
		return staged(err, StageDeactivateItem, "could not deactivate item")
	}

	n, err := s.db.DeleteDecisionsByItem(id)
	if err != nil {
		return staged(err, StageDeleteDecisions, "could not delete decisions")
	}

	if err = s.assets.Delete(ctx, item.Asset.Handle); err != nil {
		return staged(err, StageDeleteAsset, "could not delete image")
	}

	if err = s.db.DeleteItem(id, ownerID); err != nil {
		return staged(err, StageDeleteItem, "could not delete item")
	}

	s.log.WithFields(logrus.Fields{"item_id": id, "owner_id": ownerID, "decisions": n}).Debug("item deleted")
	return nil
}

// ListOwned returns a page of the owner's items, newest first.
func (s *Content) ListOwned(ctx context.Context, ownerID string, page, limit int) (*OwnedPage, error) {
	page, limit = clamp(page, limit, DefaultOwnedLimit, s.maxLimit)

	items, total, err := s.db.FindItemsByOwner(ownerID, (page-1)*limit, limit)
	if err != nil {
		return nil, staged(err, StageFindItem, "could not list items")
	}
	resolve(ctx, s.assets, s.log, items)

	return &OwnedPage{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// acquire returns the asset of the image, storing it under key when raw bytes are given.
// A failed or timed-out upload is compensated before returning.
func (s *Content) acquire(ctx context.Context, key string, image Image) (model.Asset, error) {
	if len(image.Data) == 0 {
		asset, err := s.assets.Link(image.URL)
		if err != nil {
			return model.Asset{}, staged(err, StageStoreAsset, "invalid image URL")
		}
		return asset, nil
	}

	asset, err := s.assets.Store(ctx, key, image.Data)
	if err != nil {
		if asset.Handle != "" {
			s.release(ctx, StageStoreAsset, key, asset.Handle)
		}
		return model.Asset{}, staged(err, StageStoreAsset, "could not store image")
	}
	return asset, nil
}

// release deletes an asset the item no longer references. It is attempted once.
func (s *Content) release(ctx context.Context, stage, itemID, handle string) {
	err := s.assets.Delete(context.WithoutCancel(ctx), handle)
	s.metrics.Compensation(stage, err)
	if err == nil {
		return
	}

	err = mserror.Wrap(err, mserror.KindInconsistent, "asset left behind").WithStage(stage)
	s.log.WithError(err).WithFields(logrus.Fields{
		"stage":   stage,
		"item_id": itemID,
		"handle":  handle,
	}).Error("compensation failed")
}
