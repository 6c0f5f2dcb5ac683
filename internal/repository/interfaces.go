package repository

import (
	"context"

	"github.com/lalith-99/streams/internal/models"
)

// The entity repositories below are in-memory and never block, so unlike
// SnapshotStore they take no context. Callers serialize access; the
// implementations do no locking of their own.
//
// Lookups return nil (or false) when the id is unknown. List methods
// return an empty slice, never nil, so JSON renders [] instead of null.

// UserRepository holds every account ever registered, removed ones included.
type UserRepository interface {
	// Add assigns the next sequential id to u and stores it.
	Add(u *models.User) *models.User
	Get(id int) *models.User
	ByEmail(email string) *models.User
	ByHandle(handle string) *models.User
	// All returns users in registration order.
	All() []*models.User
}

// ChannelRepository holds channels in creation order.
type ChannelRepository interface {
	Add(ch *models.Channel) *models.Channel
	Get(id int) *models.Channel
	All() []*models.Channel
}

// DMRepository holds DMs in creation order.
type DMRepository interface {
	Add(dm *models.DM) *models.DM
	Get(id int) *models.DM
	All() []*models.DM
	Delete(id int)
}

// MessageIndex maps message ids to the container holding them and hands
// out the global message id sequence.
type MessageIndex interface {
	// NextID reserves the next message id. Ids are never reused.
	NextID() int
	Put(messageID int, ref models.ContainerRef)
	Lookup(messageID int) (models.ContainerRef, bool)
	Delete(messageID int)
}

// NotificationRepository stores each user's feed newest first.
type NotificationRepository interface {
	Push(userID int, n models.Notification)
	// Recent returns at most limit notifications, newest first.
	Recent(userID int, limit int) []models.Notification
}

// ResetCodeRepository holds outstanding password-reset codes.
type ResetCodeRepository interface {
	Put(code string, userID int)
	// Take returns the user the code belongs to and forgets the code.
	Take(code string) (int, bool)
	// DropUser forgets every code issued to userID.
	DropUser(userID int)
}

// Store bundles the repositories that make up one workspace, plus
// whole-store serialization for the snapshot loop.
type Store interface {
	Users() UserRepository
	Channels() ChannelRepository
	DMs() DMRepository
	Messages() MessageIndex
	Notifications() NotificationRepository
	ResetCodes() ResetCodeRepository

	Export() ([]byte, error)
	Import(data []byte) error
	Reset()
}

// SnapshotStore persists the opaque output of Store.Export.
type SnapshotStore interface {
	Save(ctx context.Context, data []byte) error
	// Load returns nil, nil when nothing has been saved yet.
	Load(ctx context.Context) ([]byte, error)
}
