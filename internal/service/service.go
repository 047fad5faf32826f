// Package service implements the memeswipe operations on top of the database and the asset stores.
package service

import (
	"context"

	"github.com/mdouchement/memeswipe/internal/model"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Operation stages reported in errors and logs.
const (
	StageStoreAsset      = "store_asset"
	StageCreateItem      = "create_item"
	StageFindItem        = "find_item"
	StageUpdateItem      = "update_item"
	StageDeleteOldAsset  = "delete_old_asset"
	StageDeactivateItem  = "deactivate_item"
	StageDeleteDecisions = "delete_decisions"
	StageDeleteAsset     = "delete_asset"
	StageDeleteItem      = "delete_item"
	StageFindDecision    = "find_decision"
	StageRecordDecision  = "record_decision"
	StageFindDecisions   = "find_decisions"
	StageSampleItems     = "sample_items"
)

// resolveConcurrency bounds the asset lookups run for one page.
const resolveConcurrency = 8

type (
	// Assets stores, resolves and deletes item images.
	Assets interface {
		// Store uploads data under key. On failure the returned asset carries the handle the upload may have reached.
		Store(ctx context.Context, key string, data []byte) (model.Asset, error)
		// Link returns the asset of a caller-supplied image URL.
		Link(raw string) (model.Asset, error)
		// Resolve returns the current address of the handle.
		Resolve(ctx context.Context, handle string) (string, error)
		// Delete removes the asset behind the handle.
		Delete(ctx context.Context, handle string) error
	}

	// An Image is the image given for an item: either raw bytes to store or a URL.
	Image struct {
		Data []byte
		URL  string
	}
)

// IsZero returns true when no image is given.
func (i Image) IsZero() bool {
	return len(i.Data) == 0 && i.URL == ""
}

// staged returns err tagged with the stage which failed.
// Errors without a kind are reported as internal errors.
func staged(err error, stage, message string) error {
	var mserr *mserror.MSError
	if errors.As(err, &mserr) {
		if mserr.Stage() == "" {
			mserr.WithStage(stage)
		}
		return err
	}
	return mserror.Wrap(err, mserror.KindInternal, message).WithStage(stage)
}

// notFound maps a database miss to a not_found error.
func notFound(err error, isNotFound func(error) bool, message string) error {
	if isNotFound(err) {
		return mserror.NotFound(message)
	}
	return err
}

// resolve refreshes the address of the remote assets of items.
// A failed lookup keeps the stored address.
func resolve(ctx context.Context, assets Assets, log logrus.FieldLogger, items []*model.Item) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)

	for _, item := range items {
		if item.Asset.Handle == "" || item.Asset.IsDirect() {
			continue
		}

		item := item
		g.Go(func() error {
			address, err := assets.Resolve(ctx, item.Asset.Handle)
			if err != nil {
				log.WithError(err).WithFields(logrus.Fields{
					"item_id": item.ID,
					"handle":  item.Asset.Handle,
				}).Warn("could not resolve asset address")
				return nil
			}
			item.Asset.Address = address
			return nil
		})
	}

	_ = g.Wait() // Workers never fail.
}

func clamp(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
