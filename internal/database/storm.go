package database

import (
	"math/rand"
	"sort"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/codec/msgpack"
	"github.com/asdine/storm/v3/q"
	"github.com/gofrs/uuid"
	"github.com/mdouchement/memeswipe/internal/model"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

type strm struct {
	db *storm.DB
}

// StormCodec is the format used to store data in the database.
var StormCodec = storm.Codec(msgpack.Codec)

var models = []any{&model.User{}, &model.Item{}, &model.Decision{}}

// StormInit initializes Storm database.
func StormInit(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	for _, m := range models {
		if err := db.Init(m); err != nil {
			return errors.Wrapf(err, "could not init %T index", m)
		}
	}
	return nil
}

// StormReIndex reindex Storm database.
func StormReIndex(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	for _, m := range models {
		if err := db.ReIndex(m); err != nil {
			return errors.Wrapf(err, "could not ReIndex %T", m)
		}
	}
	return nil
}

// StormOpen returns a new Storm database connection.
func StormOpen(database string) (Client, error) {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}

	return &strm{
		db: db,
	}, nil
}

// Save inserts or updates the entry in database with the given model.
func (c *strm) Save(m model.Model) error {
	if m.GetID() == "" {
		m.SetID(uuid.Must(uuid.NewV4()).String())
	}
	model.Touch(m, time.Now().UTC())

	return errors.Wrap(c.db.Save(m), "could not save the model")
}

// Delete deletes the entry in database with the given model.
func (c *strm) Delete(m model.Model) error {
	return errors.Wrap(c.db.DeleteStruct(m), "could not delete the model")
}

// Close the database.
func (c *strm) Close() error {
	return c.db.Close()
}

// IsNotFound returns true if err is a not found error.
func (c *strm) IsNotFound(err error) bool {
	return errors.Cause(err) == storm.ErrNotFound
}

// IsAlreadyExists returns true if err is an already exists error.
func (c *strm) IsAlreadyExists(err error) bool {
	return errors.Cause(err) == storm.ErrAlreadyExists
}

////////////////////
//                //
// Users          //
//                //
////////////////////

// FindUser returns the user for the given id (UUID).
func (c *strm) FindUser(id string) (*model.User, error) {
	var user model.User
	if err := c.db.One("ID", id, &user); err != nil {
		return nil, errors.Wrap(err, "find user by id")
	}
	return &user, nil
}

// FindUserByMail returns the user for the given email.
func (c *strm) FindUserByMail(email string) (*model.User, error) {
	var user model.User
	if err := c.db.One("Email", email, &user); err != nil {
		return nil, errors.Wrap(err, "find user by mail")
	}
	return &user, nil
}

// FindUserByUsername returns the user for the given username.
func (c *strm) FindUserByUsername(username string) (*model.User, error) {
	var user model.User
	if err := c.db.One("Username", username, &user); err != nil {
		return nil, errors.Wrap(err, "find user by username")
	}
	return &user, nil
}

////////////////////
//                //
// Items          //
//                //
////////////////////

// CreateItem inserts the given item.
func (c *strm) CreateItem(item *model.Item) error {
	if item.ID == "" {
		item.ID = uuid.Must(uuid.NewV4()).String()
	}

	tx, err := c.db.Begin(true)
	if err != nil {
		return errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback()

	var existing model.Item
	err = tx.One("ID", item.ID, &existing)
	if err == nil {
		return errors.Wrap(storm.ErrAlreadyExists, "could not create item")
	}
	if !c.IsNotFound(err) {
		return errors.Wrap(err, "could not check item existence")
	}

	model.Touch(item, time.Now().UTC())
	if err = tx.Save(item); err != nil {
		return errors.Wrap(err, "could not save item")
	}

	return errors.Wrap(tx.Commit(), "could not commit item creation")
}

// FindItem returns the item for the given id (UUID).
func (c *strm) FindItem(id string) (*model.Item, error) {
	var item model.Item
	if err := c.db.One("ID", id, &item); err != nil {
		return nil, errors.Wrap(err, "could not find item")
	}
	return &item, nil
}

// FindOwnedItem returns the item for the given id if it belongs to the given owner.
func (c *strm) FindOwnedItem(id, ownerID string) (*model.Item, error) {
	return c.findOwnedItem(c.db, id, ownerID)
}

func (c *strm) findOwnedItem(node storm.Node, id, ownerID string) (*model.Item, error) {
	var item model.Item
	if err := node.One("ID", id, &item); err != nil {
		if c.IsNotFound(err) {
			return nil, mserror.NotFound("Item not found.")
		}
		return nil, errors.Wrap(err, "could not find item")
	}

	if !item.IsOwnedBy(ownerID) {
		return nil, mserror.Forbidden("You can only modify your own items.")
	}
	return &item, nil
}

// UpdateItem applies the patch on the item owned by the given owner.
// The read-modify-write runs in a write transaction so it can't overwrite a concurrent decision count.
func (c *strm) UpdateItem(id, ownerID string, patch model.ItemPatch) (*model.Item, error) {
	tx, err := c.db.Begin(true)
	if err != nil {
		return nil, errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback()

	item, err := c.findOwnedItem(tx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if !patch.Apply(item) {
		return item, nil
	}

	model.Touch(item, time.Now().UTC())
	if err = tx.Save(item); err != nil {
		return nil, errors.Wrap(err, "could not save item")
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "could not commit item update")
	}
	return item, nil
}

// DeleteItem deletes the item owned by the given owner.
func (c *strm) DeleteItem(id, ownerID string) error {
	tx, err := c.db.Begin(true)
	if err != nil {
		return errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback()

	item, err := c.findOwnedItem(tx, id, ownerID)
	if err != nil {
		return err
	}

	if err = tx.DeleteStruct(item); err != nil {
		return errors.Wrap(err, "could not delete item")
	}

	return errors.Wrap(tx.Commit(), "could not commit item deletion")
}

// SampleItems returns a random set of active items whose id is not excluded.
func (c *strm) SampleItems(exclude map[string]struct{}, offset, limit int) ([]*model.Item, error) {
	items := make([]*model.Item, 0)
	err := c.db.Select(q.Eq("Active", true)).Find(&items)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find active items")
	}

	candidates := items[:0]
	for _, item := range items {
		if _, excluded := exclude[item.ID]; excluded {
			continue
		}
		candidates = append(candidates, item)
	}

	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	size := min(offset+limit, len(candidates))
	if offset >= size {
		return []*model.Item{}, nil
	}
	return candidates[offset:size], nil
}

// FindItemsByOwner returns the items of the given owner, newest first, and the total count.
// Items are ordered in memory: storm's sorter does not compare *time.Time values.
func (c *strm) FindItemsByOwner(ownerID string, offset, limit int) ([]*model.Item, int, error) {
	items := make([]*model.Item, 0)
	err := c.db.Find("OwnerID", ownerID, &items)
	if err != nil && !c.IsNotFound(err) {
		return nil, 0, errors.Wrap(err, "could not find items by owner")
	}

	sort.SliceStable(items, func(i, j int) bool {
		return newer(items[i], items[j])
	})

	total := len(items)
	offset = min(max(offset, 0), total)
	end := total
	if limit > 0 {
		end = min(offset+limit, total)
	}
	return items[offset:end], total, nil
}

// newer returns true if a was created after b. Ties are broken by descending id.
func newer(a, b *model.Item) bool {
	var ta, tb time.Time
	if a.CreatedAt != nil {
		ta = *a.CreatedAt
	}
	if b.CreatedAt != nil {
		tb = *b.CreatedAt
	}

	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return a.ID > b.ID
}

// FindItemsByIDs returns the active items for the given ids, in the given order.
func (c *strm) FindItemsByIDs(ids []string) ([]*model.Item, error) {
	if len(ids) == 0 {
		return []*model.Item{}, nil
	}

	found := make([]*model.Item, 0, len(ids))
	err := c.db.Select(q.In("ID", ids), q.Eq("Active", true)).Find(&found)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find items by ids")
	}

	index := make(map[string]*model.Item, len(found))
	for _, item := range found {
		index[item.ID] = item
	}

	items := make([]*model.Item, 0, len(found))
	for _, id := range ids {
		if item, ok := index[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

////////////////////
//                //
// Decisions      //
//                //
////////////////////

// HasDecided returns true if the user already decided on the item.
func (c *strm) HasDecided(userID, itemID string) (bool, error) {
	var decision model.Decision
	err := c.db.One("Key", model.DecisionKey(userID, itemID), &decision)
	if err != nil {
		if c.IsNotFound(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "could not find decision")
	}
	return true, nil
}

// DecidedItemIDs returns the set of item ids the user already decided on.
func (c *strm) DecidedItemIDs(userID string) (map[string]struct{}, error) {
	decisions := make([]*model.Decision, 0)
	err := c.db.Find("UserID", userID, &decisions)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find decisions by user id")
	}

	ids := make(map[string]struct{}, len(decisions))
	for _, decision := range decisions {
		ids[decision.ItemID] = struct{}{}
	}
	return ids, nil
}

// RecordDecision inserts the decision and counts it in the item statistics within a single transaction.
// The unique Key index rejects a second decision for the same (user, item) pair,
// bbolt serializing write transactions makes the insert the exclusivity gate.
func (c *strm) RecordDecision(decision *model.Decision) (*model.Item, error) {
	if !decision.Direction.Valid() {
		return nil, mserror.InvalidInput("Direction must be like or dislike.")
	}

	tx, err := c.db.Begin(true)
	if err != nil {
		return nil, errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback()

	var item model.Item
	if err = tx.One("ID", decision.ItemID, &item); err != nil {
		if c.IsNotFound(err) {
			return nil, mserror.NotFound("Item not found.")
		}
		return nil, errors.Wrap(err, "could not find item")
	}
	if !item.Active {
		return nil, mserror.NotFound("Item not found.")
	}

	decision.Key = model.DecisionKey(decision.UserID, decision.ItemID)
	if decision.ID == "" {
		// ULIDs sort by creation time, the ledger relies on it for recency ordering.
		decision.ID = ulid.Make().String()
	}
	model.Touch(decision, time.Now().UTC())

	if err = tx.Save(decision); err != nil {
		if c.IsAlreadyExists(err) {
			return nil, mserror.AlreadyDecided("Already decided on this item.")
		}
		return nil, errors.Wrap(err, "could not save decision")
	}

	item.Stats.Apply(decision.Direction)
	if err = tx.Save(&item); err != nil {
		return nil, errors.Wrap(err, "could not save item statistics")
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "could not commit decision")
	}
	return &item, nil
}

// FindDecidedItemIDs returns the ids of the items decided in the given direction, most recent first.
func (c *strm) FindDecidedItemIDs(userID string, direction model.Direction) ([]string, error) {
	decisions := make([]*model.Decision, 0)
	err := c.db.Select(q.Eq("UserID", userID), q.Eq("Direction", direction)).OrderBy("ID").Reverse().Find(&decisions)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find decisions")
	}

	ids := make([]string, len(decisions))
	for i, decision := range decisions {
		ids[i] = decision.ItemID
	}
	return ids, nil
}

// DeleteDecisionsByItem deletes all the decisions referencing the item.
func (c *strm) DeleteDecisionsByItem(itemID string) (int, error) {
	tx, err := c.db.Begin(true)
	if err != nil {
		return 0, errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback()

	n, err := tx.Select(q.Eq("ItemID", itemID)).Count(&model.Decision{})
	if err != nil && !c.IsNotFound(err) {
		return 0, errors.Wrap(err, "could not count decisions")
	}
	if n == 0 {
		return 0, nil
	}

	err = tx.Select(q.Eq("ItemID", itemID)).Delete(&model.Decision{})
	if err != nil && !c.IsNotFound(err) {
		return 0, errors.Wrap(err, "could not delete decisions")
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "could not commit decisions deletion")
	}
	return n, nil
}
