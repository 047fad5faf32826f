package service

import (
	"context"

	"github.com/mdouchement/memeswipe/internal/database"
	"github.com/mdouchement/memeswipe/internal/model"
	"github.com/sirupsen/logrus"
)

// Feed paging defaults.
const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
)

type (
	// Feed serves random pages of the items a user has not decided on yet.
	Feed struct {
		db           database.Client
		assets       Assets
		log          logrus.FieldLogger
		defaultLimit int
		maxLimit     int
	}

	// A FeedPage is a page of undecided items.
	// HasMore is true when the page is full, more items may exist.
	FeedPage struct {
		Items   []*model.Item
		Page    int
		Limit   int
		HasMore bool
	}
)

// NewFeed returns a new Feed.
func NewFeed(db database.Client, assets Assets, log logrus.FieldLogger, defaultLimit, maxLimit int) *Feed {
	if defaultLimit <= 0 {
		defaultLimit = DefaultFeedLimit
	}
	if maxLimit < defaultLimit {
		maxLimit = max(MaxFeedLimit, defaultLimit)
	}

	return &Feed{
		db:           db,
		assets:       assets,
		log:          log.WithField("service", "feed"),
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Page returns the given page of the user's feed.
func (s *Feed) Page(ctx context.Context, userID string, page, limit int) (*FeedPage, error) {
	page, limit = clamp(page, limit, s.defaultLimit, s.maxLimit)

	excluded, err := s.db.DecidedItemIDs(userID)
	if err != nil {
		return nil, staged(err, StageFindDecisions, "could not find decisions")
	}

	items, err := s.db.SampleItems(excluded, (page-1)*limit, limit)
	if err != nil {
		return nil, staged(err, StageSampleItems, "could not sample items")
	}
	resolve(ctx, s.assets, s.log, items)

	return &FeedPage{
		Items:   items,
		Page:    page,
		Limit:   limit,
		HasMore: len(items) == limit,
	}, nil
}
