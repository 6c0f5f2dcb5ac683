package memory

import (
	"encoding/json"
	"fmt"

	"github.com/lalith-99/streams/internal/models"
	"github.com/lalith-99/streams/internal/repository"
)

// state is everything one workspace holds. It is the unit of
// serialization; the message index is derived and rebuilt on Import.
type state struct {
	Users         []*models.User                `json:"users"`
	Channels      []*models.Channel             `json:"channels"`
	DMs           []*models.DM                  `json:"dms"`
	Notifications map[int][]models.Notification `json:"notifications"`
	ResetCodes    map[string]int                `json:"reset_codes"`

	LastUserID    int `json:"last_user_id"`
	LastChannelID int `json:"last_channel_id"`
	LastDMID      int `json:"last_dm_id"`
	LastMessageID int `json:"last_message_id"`

	index map[int]models.ContainerRef
}

func newState() *state {
	return &state{
		Users:         make([]*models.User, 0),
		Channels:      make([]*models.Channel, 0),
		DMs:           make([]*models.DM, 0),
		Notifications: make(map[int][]models.Notification),
		ResetCodes:    make(map[string]int),
		index:         make(map[int]models.ContainerRef),
	}
}

// Store is the in-memory workspace. It is not safe for concurrent use;
// the service layer holds one lock around every operation.
type Store struct {
	st *state
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) Users() repository.UserRepository                 { return userStore{s} }
func (s *Store) Channels() repository.ChannelRepository           { return channelStore{s} }
func (s *Store) DMs() repository.DMRepository                     { return dmStore{s} }
func (s *Store) Messages() repository.MessageIndex                { return indexStore{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationStore{s} }
func (s *Store) ResetCodes() repository.ResetCodeRepository       { return resetStore{s} }

// Export encodes the whole store as JSON.
func (s *Store) Export() ([]byte, error) {
	data, err := json.Marshal(s.st)
	if err != nil {
		return nil, fmt.Errorf("encode store: %w", err)
	}
	return data, nil
}

// Import replaces the store's contents with a previous Export. On error
// the current contents are left untouched.
func (s *Store) Import(data []byte) error {
	next := newState()
	if err := json.Unmarshal(data, next); err != nil {
		return fmt.Errorf("decode store: %w", err)
	}
	if next.Notifications == nil {
		next.Notifications = make(map[int][]models.Notification)
	}
	if next.ResetCodes == nil {
		next.ResetCodes = make(map[string]int)
	}
	next.rebuildIndex()
	s.st = next
	return nil
}

// Reset empties the store, restarting every id sequence.
func (s *Store) Reset() {
	s.st = newState()
}

// rebuildIndex walks channels, then DMs, in creation order. When two
// containers claim the same message id the first one wins.
func (st *state) rebuildIndex() {
	st.index = make(map[int]models.ContainerRef)
	for _, ch := range st.Channels {
		for _, m := range ch.Messages {
			st.claim(m.ID, models.ContainerRef{Kind: models.KindChannel, ID: ch.ID})
		}
	}
	for _, dm := range st.DMs {
		for _, m := range dm.Messages {
			st.claim(m.ID, models.ContainerRef{Kind: models.KindDM, ID: dm.ID})
		}
	}
}

func (st *state) claim(id int, ref models.ContainerRef) {
	if _, taken := st.index[id]; !taken {
		st.index[id] = ref
	}
	if id > st.LastMessageID {
		st.LastMessageID = id
	}
}
