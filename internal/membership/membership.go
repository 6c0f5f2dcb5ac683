// Package membership decides who may act on a channel or DM and applies
// membership changes. Every mutating method validates completely before
// it changes anything, so a returned error means nothing happened.
//
// Validity is always checked before membership: an unknown container id
// is an input error, while a known container the user is not in is an
// access error.
package membership

import (
	"github.com/lalith-99/streams/internal/apperr"
	"github.com/lalith-99/streams/internal/models"
	"github.com/lalith-99/streams/internal/repository"
)

// Engine answers permission questions against the live store.
type Engine struct {
	users    repository.UserRepository
	channels repository.ChannelRepository
	dms      repository.DMRepository
}

func New(users repository.UserRepository, channels repository.ChannelRepository, dms repository.DMRepository) *Engine {
	return &Engine{users: users, channels: channels, dms: dms}
}

// User resolves an active (not removed) user.
func (e *Engine) User(id int) (*models.User, error) {
	u := e.users.Get(id)
	if u == nil || u.Removed {
		return nil, apperr.Input("u_id %d does not refer to a valid user", id)
	}
	return u, nil
}

// Channel resolves a channel id.
func (e *Engine) Channel(id int) (*models.Channel, error) {
	ch := e.channels.Get(id)
	if ch == nil {
		return nil, apperr.Input("channel_id %d does not refer to a valid channel", id)
	}
	return ch, nil
}

// DM resolves a DM id.
func (e *Engine) DM(id int) (*models.DM, error) {
	dm := e.dms.Get(id)
	if dm == nil {
		return nil, apperr.Input("dm_id %d does not refer to a valid DM", id)
	}
	return dm, nil
}

// MemberChannel resolves a channel the user may read and write.
func (e *Engine) MemberChannel(userID, channelID int) (*models.Channel, error) {
	ch, err := e.Channel(channelID)
	if err != nil {
		return nil, err
	}
	if !ch.Members.Has(userID) {
		return nil, apperr.Access("not a member of channel %d", channelID)
	}
	return ch, nil
}

// MemberDM resolves a DM the user may read and write.
func (e *Engine) MemberDM(userID, dmID int) (*models.DM, error) {
	dm, err := e.DM(dmID)
	if err != nil {
		return nil, err
	}
	if !dm.Members.Has(userID) {
		return nil, apperr.Access("not a member of DM %d", dmID)
	}
	return dm, nil
}

// CanAdministerChannel is true for channel owners, and for global owners
// who are members of the channel.
func CanAdministerChannel(actor *models.User, ch *models.Channel) bool {
	if ch.Owners.Has(actor.ID) {
		return true
	}
	return actor.IsGlobalOwner() && ch.Members.Has(actor.ID)
}

// OwnsChannel is true for channel owners only.
func OwnsChannel(actor *models.User, ch *models.Channel) bool {
	return ch.Owners.Has(actor.ID)
}

// CanAdministerDM is true only for the DM's creator-owner.
func CanAdministerDM(actor *models.User, dm *models.DM) bool {
	return dm.HasCreator() && dm.CreatorID == actor.ID
}

// Join adds actor to a channel. Private channels admit global owners only.
func (e *Engine) Join(actor *models.User, ch *models.Channel) error {
	if ch.Members.Has(actor.ID) {
		return apperr.Input("already a member of channel %d", ch.ID)
	}
	if !ch.IsPublic && !actor.IsGlobalOwner() {
		return apperr.Access("channel %d is private", ch.ID)
	}
	ch.Members.Add(actor.ID)
	return nil
}

// Invite adds target to a channel actor belongs to.
func (e *Engine) Invite(actor, target *models.User, ch *models.Channel) error {
	if ch.Members.Has(target.ID) {
		return apperr.Input("user %d is already a member of channel %d", target.ID, ch.ID)
	}
	if !ch.Members.Has(actor.ID) {
		return apperr.Access("not a member of channel %d", ch.ID)
	}
	ch.Members.Add(target.ID)
	return nil
}

// Leave removes userID from the channel, dropping owner status with it.
// A sole owner may leave; the channel is then ownerless.
func Leave(userID int, ch *models.Channel) error {
	if !ch.Members.Has(userID) {
		return apperr.Access("not a member of channel %d", ch.ID)
	}
	ch.Members.Remove(userID)
	ch.Owners.Remove(userID)
	return nil
}

// AddOwner promotes a channel member.
func (e *Engine) AddOwner(actor *models.User, targetID int, ch *models.Channel) error {
	if _, err := e.User(targetID); err != nil {
		return err
	}
	if !ch.Members.Has(targetID) {
		return apperr.Input("user %d is not a member of channel %d", targetID, ch.ID)
	}
	if ch.Owners.Has(targetID) {
		return apperr.Input("user %d is already an owner of channel %d", targetID, ch.ID)
	}
	if !CanAdministerChannel(actor, ch) {
		return apperr.Access("no owner permissions in channel %d", ch.ID)
	}
	ch.Owners.Add(targetID)
	return nil
}

// RemoveOwner demotes a channel owner. The last owner cannot be removed.
func (e *Engine) RemoveOwner(actor *models.User, targetID int, ch *models.Channel) error {
	if _, err := e.User(targetID); err != nil {
		return err
	}
	if !ch.Owners.Has(targetID) {
		return apperr.Input("user %d is not an owner of channel %d", targetID, ch.ID)
	}
	if len(ch.Owners) == 1 {
		return apperr.Input("user %d is the only owner of channel %d", targetID, ch.ID)
	}
	if !CanAdministerChannel(actor, ch) {
		return apperr.Access("no owner permissions in channel %d", ch.ID)
	}
	ch.Owners.Remove(targetID)
	return nil
}

// LeaveDM removes userID from the DM. A leaving creator takes ownership
// with them; it is never reassigned and the name is kept.
func LeaveDM(userID int, dm *models.DM) error {
	if !dm.Members.Has(userID) {
		return apperr.Access("not a member of DM %d", dm.ID)
	}
	dm.Members.Remove(userID)
	if dm.CreatorID == userID {
		dm.CreatorID = 0
	}
	return nil
}

// CheckRemoveDM fails unless actor is the DM's creator-owner and still
// a member.
func CheckRemoveDM(actor *models.User, dm *models.DM) error {
	if !CanAdministerDM(actor, dm) || !dm.Members.Has(actor.ID) {
		return apperr.Access("only the creator of DM %d can remove it", dm.ID)
	}
	return nil
}

// GlobalOwnerCount counts active global owners.
func (e *Engine) GlobalOwnerCount() int {
	n := 0
	for _, u := range e.users.All() {
		if !u.Removed && u.IsGlobalOwner() {
			n++
		}
	}
	return n
}

// GuardLastGlobalOwner fails when target is the only global owner left.
// Demotion and removal share this rule.
func (e *Engine) GuardLastGlobalOwner(target *models.User) error {
	if target.IsGlobalOwner() && e.GlobalOwnerCount() == 1 {
		return apperr.Input("user %d is the only global owner", target.ID)
	}
	return nil
}

// Scrub erases userID from every channel and DM: memberships and
// ownerships go, authored messages are re-attributed to RemovedUserID,
// and DM message bodies are blanked to RemovedUserText.
func (e *Engine) Scrub(userID int) {
	for _, ch := range e.channels.All() {
		ch.Members.Remove(userID)
		ch.Owners.Remove(userID)
		for _, m := range ch.Messages {
			if m.AuthorID == userID {
				m.AuthorID = models.RemovedUserID
			}
		}
	}
	for _, dm := range e.dms.All() {
		dm.Members.Remove(userID)
		if dm.CreatorID == userID {
			dm.CreatorID = 0
		}
		for _, m := range dm.Messages {
			if m.AuthorID == userID {
				m.AuthorID = models.RemovedUserID
				m.Body = models.RemovedUserText
			}
		}
	}
}

// InAnyContainer reports whether userID belongs to at least one channel
// or DM.
func (e *Engine) InAnyContainer(userID int) bool {
	for _, ch := range e.channels.All() {
		if ch.Members.Has(userID) {
			return true
		}
	}
	for _, dm := range e.dms.All() {
		if dm.Members.Has(userID) {
			return true
		}
	}
	return false
}
