package model

import (
	"strings"
)

// A Direction is the verdict of a decision.
type Direction string

const (
	// DirectionLike is a right swipe.
	DirectionLike Direction = "like"
	// DirectionDislike is a left swipe.
	DirectionDislike Direction = "dislike"
)

// ParseDirection returns the direction for the given value.
// Legacy swipe values "right" and "left" are accepted.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "like", "right":
		return DirectionLike, true
	case "dislike", "left":
		return DirectionDislike, true
	}
	return "", false
}

// Valid returns true for like and dislike.
func (d Direction) Valid() bool {
	return d == DirectionLike || d == DirectionDislike
}

// A Decision represents a user's verdict on an item. There is at most one per (user, item).
type Decision struct {
	Base `msgpack:",inline" storm:"inline"`

	// Key is unique per (user, item) and acts as the exclusivity gate on insert.
	Key       string    `json:"-"         msgpack:"key"       storm:"unique"`
	UserID    string    `json:"user_id"   msgpack:"user_id"   storm:"index"`
	ItemID    string    `json:"item_id"   msgpack:"item_id"   storm:"index"`
	Direction Direction `json:"direction" msgpack:"direction"`
}

// NewDecision returns a decision for the given parameters.
func NewDecision(userID, itemID string, direction Direction) *Decision {
	return &Decision{
		Key:       DecisionKey(userID, itemID),
		UserID:    userID,
		ItemID:    itemID,
		Direction: direction,
	}
}

// DecisionKey returns the unique key of a (user, item) pair.
func DecisionKey(userID, itemID string) string {
	return userID + "/" + itemID
}
