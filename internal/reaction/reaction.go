// Package reaction holds the per-message toggles: who reacted with which
// kind, and whether the message is pinned. Every transition is strict;
// repeating one is an input error rather than a silent no-op.
package reaction

import (
	"github.com/lalith-99/streams/internal/apperr"
	"github.com/lalith-99/streams/internal/models"
)

// React records userID's reaction of the given kind.
func React(msg *models.Message, userID int, kind models.ReactKind) error {
	if err := ValidateKind(kind); err != nil {
		return err
	}
	slot := msg.Reaction(kind)
	if slot == nil {
		// Messages restored from older snapshots may lack a slot.
		msg.Reacts = append(msg.Reacts, models.Reaction{Kind: kind, Users: models.IDs{userID}})
		return nil
	}
	if !slot.Users.Add(userID) {
		return apperr.Input("already reacted to message %d", msg.ID)
	}
	return nil
}

// Unreact withdraws userID's reaction of the given kind.
func Unreact(msg *models.Message, userID int, kind models.ReactKind) error {
	if err := ValidateKind(kind); err != nil {
		return err
	}
	slot := msg.Reaction(kind)
	if slot == nil || !slot.Users.Remove(userID) {
		return apperr.Input("no reaction to message %d to remove", msg.ID)
	}
	return nil
}

// HasReacted reports whether userID holds a reaction of kind on msg.
func HasReacted(msg *models.Message, userID int, kind models.ReactKind) bool {
	slot := msg.Reaction(kind)
	return slot != nil && slot.Users.Has(userID)
}

// ValidateKind fails for reaction kinds that do not exist.
func ValidateKind(kind models.ReactKind) error {
	if !kind.Valid() {
		return apperr.Input("react_id %d is not a valid reaction", kind)
	}
	return nil
}

// Pin marks msg as pinned.
func Pin(msg *models.Message) error {
	if msg.Pinned {
		return apperr.Input("message %d is already pinned", msg.ID)
	}
	msg.Pinned = true
	return nil
}

// Unpin clears the pinned flag.
func Unpin(msg *models.Message) error {
	if !msg.Pinned {
		return apperr.Input("message %d is not pinned", msg.ID)
	}
	msg.Pinned = false
	return nil
}
