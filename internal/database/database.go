package database

import (
	"github.com/mdouchement/memeswipe/internal/model"
)

type (
	// A Client can interacts with the database.
	Client interface {
		// Save inserts or updates the entry in database with the given model.
		Save(m model.Model) error
		// Delete deletes the entry in database with the given model.
		Delete(m model.Model) error
		// Close the database.
		Close() error
		// IsNotFound returns true if err is a not found error.
		IsNotFound(err error) bool
		// IsAlreadyExists returns true if err is an already exists error.
		IsAlreadyExists(err error) bool

		UserInteraction
		ItemInteraction
		DecisionInteraction
	}

	// An UserInteraction defines all the methods used to interact with a user record.
	UserInteraction interface {
		// FindUser returns the user for the given id (UUID).
		FindUser(id string) (*model.User, error)
		// FindUserByMail returns the user for the given email.
		FindUserByMail(email string) (*model.User, error)
		// FindUserByUsername returns the user for the given username.
		FindUserByUsername(username string) (*model.User, error)
	}

	// An ItemInteraction defines all the methods used to interact with item records.
	ItemInteraction interface {
		// CreateItem inserts the given item.
		CreateItem(item *model.Item) error
		// FindItem returns the item for the given id (UUID).
		FindItem(id string) (*model.Item, error)
		// FindOwnedItem returns the item for the given id if it belongs to the given owner.
		// It fails with a forbidden error otherwise.
		FindOwnedItem(id, ownerID string) (*model.Item, error)
		// UpdateItem applies the patch on the item owned by the given owner.
		UpdateItem(id, ownerID string, patch model.ItemPatch) (*model.Item, error)
		// DeleteItem deletes the item owned by the given owner.
		DeleteItem(id, ownerID string) error
		// SampleItems returns a random set of active items whose id is not excluded.
		// The sample holds offset+limit items from which the first offset ones are skipped.
		SampleItems(exclude map[string]struct{}, offset, limit int) ([]*model.Item, error)
		// FindItemsByOwner returns the items of the given owner, newest first, and the total count.
		FindItemsByOwner(ownerID string, offset, limit int) ([]*model.Item, int, error)
		// FindItemsByIDs returns the active items for the given ids, in the given order.
		// Missing or inactive items are skipped.
		FindItemsByIDs(ids []string) ([]*model.Item, error)
	}

	// A DecisionInteraction defines all the methods used to interact with the decision ledger.
	DecisionInteraction interface {
		// HasDecided returns true if the user already decided on the item.
		HasDecided(userID, itemID string) (bool, error)
		// DecidedItemIDs returns the set of item ids the user already decided on.
		DecidedItemIDs(userID string) (map[string]struct{}, error)
		// RecordDecision inserts the decision and counts it in the item statistics within
		// a single transaction. The insert is the only arbiter of duplicates.
		RecordDecision(decision *model.Decision) (*model.Item, error)
		// FindDecidedItemIDs returns the ids of the items decided in the given direction, most recent first.
		FindDecidedItemIDs(userID string, direction model.Direction) ([]string, error)
		// DeleteDecisionsByItem deletes all the decisions referencing the item and returns how many were removed.
		DeleteDecisionsByItem(itemID string) (int, error)
	}
)
