package models

// GlobalRole is a user's workspace-wide permission. The numeric values
// are the permission ids clients send to the admin endpoint.
type GlobalRole int

const (
	RoleOwner  GlobalRole = 1
	RoleMember GlobalRole = 2
)

// Valid reports whether r is one of the known permission ids.
func (r GlobalRole) Valid() bool {
	return r == RoleOwner || r == RoleMember
}

// RemovedUserID replaces the author of every message written by a user
// an admin removed. It never collides with a real id (those start at 1).
const RemovedUserID = -1

// RemovedUserText is the anonymized name, and the body of removed users'
// DM messages.
const RemovedUserText = "Removed user"

// User is a registered account. Removed users stay in the store so their
// id never gets reused and their profile still resolves.
type User struct {
	ID            int        `json:"u_id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"password_hash"`
	NameFirst     string     `json:"name_first"`
	NameLast      string     `json:"name_last"`
	Handle        string     `json:"handle_str"`
	ProfileImgURL string     `json:"profile_img_url"`
	Role          GlobalRole `json:"permission_id"`
	Removed       bool       `json:"removed"`
	SessionIDs    []string   `json:"sessions"`
}

// HasSession reports whether the session is still open.
func (u *User) HasSession(sessionID string) bool {
	for _, s := range u.SessionIDs {
		if s == sessionID {
			return true
		}
	}
	return false
}

// CloseSession drops one session. It is a no-op for unknown sessions.
func (u *User) CloseSession(sessionID string) {
	for i, s := range u.SessionIDs {
		if s == sessionID {
			u.SessionIDs = append(u.SessionIDs[:i], u.SessionIDs[i+1:]...)
			return
		}
	}
}

// IsGlobalOwner reports whether u administers the whole workspace.
func (u *User) IsGlobalOwner() bool {
	return u.Role == RoleOwner
}

// Channel is a named, optionally public room. Owners is always a subset
// of Members.
type Channel struct {
	ID       int        `json:"channel_id"`
	Name     string     `json:"name"`
	IsPublic bool       `json:"is_public"`
	Owners   IDs        `json:"owner_members"`
	Members  IDs        `json:"all_members"`
	Messages []*Message `json:"messages"`
	Standup  *Standup   `json:"standup,omitempty"`
}

// DM is a direct-message group. CreatorID is zero once the creator leaves.
type DM struct {
	ID        int        `json:"dm_id"`
	Name      string     `json:"name"`
	CreatorID int        `json:"owner"`
	Members   IDs        `json:"members"`
	Messages  []*Message `json:"messages"`
}

// HasCreator reports whether the DM still has its creator-owner.
func (d *DM) HasCreator() bool {
	return d.CreatorID != 0
}

// Message is one post in a channel or DM. Containers keep their messages
// newest first.
type Message struct {
	ID       int        `json:"message_id"`
	AuthorID int        `json:"u_id"`
	Body     string     `json:"message"`
	TimeSent int64      `json:"time_sent"`
	Reacts   []Reaction `json:"reacts"`
	Pinned   bool       `json:"is_pinned"`
}

// ReactKind identifies a reaction. Only ReactLike exists today.
type ReactKind int

const ReactLike ReactKind = 1

// ReactKinds lists every kind a message carries a slot for.
var ReactKinds = []ReactKind{ReactLike}

// Valid reports whether k is a known reaction kind.
func (k ReactKind) Valid() bool {
	for _, known := range ReactKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Reaction records which users reacted with one kind.
type Reaction struct {
	Kind  ReactKind `json:"react_id"`
	Users IDs       `json:"u_ids"`
}

// NewMessage returns a message with an empty slot per reaction kind.
func NewMessage(id, authorID int, body string, timeSent int64) *Message {
	reacts := make([]Reaction, 0, len(ReactKinds))
	for _, k := range ReactKinds {
		reacts = append(reacts, Reaction{Kind: k, Users: IDs{}})
	}
	return &Message{
		ID:       id,
		AuthorID: authorID,
		Body:     body,
		TimeSent: timeSent,
		Reacts:   reacts,
	}
}

// Reaction returns the slot for kind, or nil.
func (m *Message) Reaction(kind ReactKind) *Reaction {
	for i := range m.Reacts {
		if m.Reacts[i].Kind == kind {
			return &m.Reacts[i]
		}
	}
	return nil
}

// Notification is one entry in a user's feed. Exactly one of ChannelID
// and DMID is set; the other is -1.
type Notification struct {
	ChannelID int    `json:"channel_id"`
	DMID      int    `json:"dm_id"`
	Text      string `json:"notification_message"`
}

// Standup is the buffer of an active standup period.
type Standup struct {
	StarterID  int      `json:"starter_id"`
	TimeFinish int64    `json:"time_finish"`
	Lines      []string `json:"lines"`
}
