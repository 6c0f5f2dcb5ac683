package memory

import (
	"github.com/lalith-99/streams/internal/models"
)

type userStore struct{ s *Store }

func (r userStore) Add(u *models.User) *models.User {
	st := r.s.st
	st.LastUserID++
	u.ID = st.LastUserID
	st.Users = append(st.Users, u)
	return u
}

func (r userStore) Get(id int) *models.User {
	for _, u := range r.s.st.Users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (r userStore) ByEmail(email string) *models.User {
	for _, u := range r.s.st.Users {
		if !u.Removed && u.Email == email {
			return u
		}
	}
	return nil
}

func (r userStore) ByHandle(handle string) *models.User {
	for _, u := range r.s.st.Users {
		if !u.Removed && u.Handle == handle {
			return u
		}
	}
	return nil
}

func (r userStore) All() []*models.User {
	out := make([]*models.User, len(r.s.st.Users))
	copy(out, r.s.st.Users)
	return out
}

type channelStore struct{ s *Store }

func (r channelStore) Add(ch *models.Channel) *models.Channel {
	st := r.s.st
	st.LastChannelID++
	ch.ID = st.LastChannelID
	if ch.Messages == nil {
		ch.Messages = make([]*models.Message, 0)
	}
	st.Channels = append(st.Channels, ch)
	return ch
}

func (r channelStore) Get(id int) *models.Channel {
	for _, ch := range r.s.st.Channels {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

func (r channelStore) All() []*models.Channel {
	out := make([]*models.Channel, len(r.s.st.Channels))
	copy(out, r.s.st.Channels)
	return out
}

type dmStore struct{ s *Store }

func (r dmStore) Add(dm *models.DM) *models.DM {
	st := r.s.st
	st.LastDMID++
	dm.ID = st.LastDMID
	if dm.Messages == nil {
		dm.Messages = make([]*models.Message, 0)
	}
	st.DMs = append(st.DMs, dm)
	return dm
}

func (r dmStore) Get(id int) *models.DM {
	for _, dm := range r.s.st.DMs {
		if dm.ID == id {
			return dm
		}
	}
	return nil
}

func (r dmStore) All() []*models.DM {
	out := make([]*models.DM, len(r.s.st.DMs))
	copy(out, r.s.st.DMs)
	return out
}

// Delete drops the DM and unindexes its messages.
func (r dmStore) Delete(id int) {
	st := r.s.st
	for i, dm := range st.DMs {
		if dm.ID != id {
			continue
		}
		for _, m := range dm.Messages {
			if ref, ok := st.index[m.ID]; ok && ref.Kind == models.KindDM && ref.ID == id {
				delete(st.index, m.ID)
			}
		}
		st.DMs = append(st.DMs[:i], st.DMs[i+1:]...)
		return
	}
}

type indexStore struct{ s *Store }

func (r indexStore) NextID() int {
	r.s.st.LastMessageID++
	return r.s.st.LastMessageID
}

func (r indexStore) Put(messageID int, ref models.ContainerRef) {
	r.s.st.index[messageID] = ref
}

func (r indexStore) Lookup(messageID int) (models.ContainerRef, bool) {
	ref, ok := r.s.st.index[messageID]
	return ref, ok
}

func (r indexStore) Delete(messageID int) {
	delete(r.s.st.index, messageID)
}

type notificationStore struct{ s *Store }

func (r notificationStore) Push(userID int, n models.Notification) {
	feed := r.s.st.Notifications[userID]
	r.s.st.Notifications[userID] = append([]models.Notification{n}, feed...)
}

func (r notificationStore) Recent(userID int, limit int) []models.Notification {
	feed := r.s.st.Notifications[userID]
	if len(feed) > limit {
		feed = feed[:limit]
	}
	out := make([]models.Notification, len(feed))
	copy(out, feed)
	return out
}

type resetStore struct{ s *Store }

func (r resetStore) Put(code string, userID int) {
	r.s.st.ResetCodes[code] = userID
}

func (r resetStore) Take(code string) (int, bool) {
	id, ok := r.s.st.ResetCodes[code]
	if ok {
		delete(r.s.st.ResetCodes, code)
	}
	return id, ok
}

func (r resetStore) DropUser(userID int) {
	for code, id := range r.s.st.ResetCodes {
		if id == userID {
			delete(r.s.st.ResetCodes, code)
		}
	}
}
