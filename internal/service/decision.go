package service

import (
	"context"

	"github.com/mdouchement/memeswipe/internal/database"
	"github.com/mdouchement/memeswipe/internal/metrics"
	"github.com/mdouchement/memeswipe/internal/model"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/sirupsen/logrus"
)

// Decision outcomes reported in metrics.
const (
	outcomeRecorded       = "recorded"
	outcomeAlreadyDecided = "already_decided"
	outcomeRejected       = "rejected"
	outcomeFailed         = "failed"
)

// Decisions records the like/dislike verdicts of users.
// A user decides at most once per item, the verdict is final.
type Decisions struct {
	db      database.Client
	assets  Assets
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// NewDecisions returns a new Decisions.
func NewDecisions(db database.Client, assets Assets, log logrus.FieldLogger, m *metrics.Metrics) *Decisions {
	return &Decisions{
		db:      db,
		assets:  assets,
		log:     log.WithField("service", "decisions"),
		metrics: m,
	}
}

// Submit records the user's decision on the item and returns the item with its updated statistics.
func (s *Decisions) Submit(ctx context.Context, userID, itemID, direction string) (*model.Item, error) {
	item, err := s.submit(userID, itemID, direction)

	label := "invalid"
	if d, ok := model.ParseDirection(direction); ok {
		label = string(d)
	}

	switch {
	case err == nil:
		s.metrics.Decision(label, outcomeRecorded)
		s.log.WithFields(logrus.Fields{"user_id": userID, "item_id": itemID, "direction": label}).Debug("decision recorded")
	case mserror.Is(err, mserror.KindAlreadyDecided):
		s.metrics.Decision(label, outcomeAlreadyDecided)
	case mserror.Is(err, mserror.KindNotFound), mserror.Is(err, mserror.KindInvalidInput):
		s.metrics.Decision(label, outcomeRejected)
	default:
		s.metrics.Decision(label, outcomeFailed)
	}
	return item, err
}

func (s *Decisions) submit(userID, itemID, direction string) (*model.Item, error) {
	item, err := s.db.FindItem(itemID)
	if err != nil {
		return nil, staged(notFound(err, s.db.IsNotFound, "Meme not found."), StageFindItem, "could not find item")
	}
	if !item.Active {
		return nil, mserror.NotFound("Meme not found.").WithStage(StageFindItem)
	}

	d, ok := model.ParseDirection(direction)
	if !ok {
		return nil, mserror.InvalidInput("Direction must be like or dislike.")
	}

	decided, err := s.db.HasDecided(userID, itemID)
	if err != nil {
		return nil, staged(err, StageFindDecision, "could not check decision")
	}
	if decided {
		return nil, mserror.AlreadyDecided("You already swiped on this meme.")
	}

	// The ledger insert is the arbiter, the check above only spares a write transaction.
	item, err = s.db.RecordDecision(model.NewDecision(userID, itemID, d))
	if err != nil {
		return nil, staged(err, StageRecordDecision, "could not record decision")
	}
	return item, nil
}

// ListDecided returns the active items the user decided on in the given direction, most recent first.
func (s *Decisions) ListDecided(ctx context.Context, userID, direction string) ([]*model.Item, error) {
	d, ok := model.ParseDirection(direction)
	if !ok {
		return nil, mserror.InvalidInput("Direction must be like or dislike.")
	}

	ids, err := s.db.FindDecidedItemIDs(userID, d)
	if err != nil {
		return nil, staged(err, StageFindDecisions, "could not find decisions")
	}

	items, err := s.db.FindItemsByIDs(ids)
	if err != nil {
		return nil, staged(err, StageFindItem, "could not find items")
	}
	resolve(ctx, s.assets, s.log, items)
	return items, nil
}
