package model

// CollectionState is where an item sits in a user's collection.
type CollectionState string

const (
	StateOwned     CollectionState = "owned"
	StateWanted    CollectionState = "wanted"
	StateCompleted CollectionState = "completed"
)

func (s CollectionState) Valid() bool {
	switch s {
	case StateOwned, StateWanted, StateCompleted:
		return true
	}
	return false
}

// CollectionEntry records one item's state for one user.
// (UserID, ItemID) is unique in storage.
type CollectionEntry struct {
	UserID string          `json:"userId" db:"user_id"`
	ItemID string          `json:"itemId" db:"item_id"`
	State  CollectionState `json:"state"  db:"state"`
}
