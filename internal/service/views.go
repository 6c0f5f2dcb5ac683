package service

import (
	"github.com/lalith-99/streams/internal/models"
	"github.com/lalith-99/streams/internal/reaction"
)

// The view types are what operations return and what the API encodes.
// They never share memory with the store.

type AuthResult struct {
	Token      string `json:"token"`
	AuthUserID int    `json:"auth_user_id"`
}

type UserView struct {
	UID           int    `json:"u_id"`
	Email         string `json:"email"`
	NameFirst     string `json:"name_first"`
	NameLast      string `json:"name_last"`
	Handle        string `json:"handle_str"`
	ProfileImgURL string `json:"profile_img_url"`
}

type ChannelSummary struct {
	ChannelID int    `json:"channel_id"`
	Name      string `json:"name"`
}

type ChannelDetails struct {
	Name         string     `json:"name"`
	IsPublic     bool       `json:"is_public"`
	OwnerMembers []UserView `json:"owner_members"`
	AllMembers   []UserView `json:"all_members"`
}

type DMSummary struct {
	DMID int    `json:"dm_id"`
	Name string `json:"name"`
}

type DMDetails struct {
	Name    string     `json:"name"`
	Members []UserView `json:"members"`
}

type ReactView struct {
	ReactID           int   `json:"react_id"`
	UIDs              []int `json:"u_ids"`
	IsThisUserReacted bool  `json:"is_this_user_reacted"`
}

type MessageView struct {
	MessageID int         `json:"message_id"`
	UID       int         `json:"u_id"`
	Message   string      `json:"message"`
	TimeSent  int64       `json:"time_sent"`
	Reacts    []ReactView `json:"reacts"`
	IsPinned  bool        `json:"is_pinned"`
}

type MessagePage struct {
	Messages []MessageView `json:"messages"`
	Start    int           `json:"start"`
	End      int           `json:"end"`
}

type StandupStatus struct {
	IsActive   bool   `json:"is_active"`
	TimeFinish *int64 `json:"time_finish"`
}

// StatPoint is one sample; the count key is named after its metric
// ("num_channels_joined", "num_messages_exist", ...).
type StatPoint map[string]int64

type UserStats struct {
	ChannelsJoined  []StatPoint `json:"channels_joined"`
	DMsJoined       []StatPoint `json:"dms_joined"`
	MessagesSent    []StatPoint `json:"messages_sent"`
	InvolvementRate float64     `json:"involvement_rate"`
}

type WorkspaceStats struct {
	ChannelsExist   []StatPoint `json:"channels_exist"`
	DMsExist        []StatPoint `json:"dms_exist"`
	MessagesExist   []StatPoint `json:"messages_exist"`
	UtilizationRate float64     `json:"utilization_rate"`
}

func userView(u *models.User) UserView {
	return UserView{
		UID:           u.ID,
		Email:         u.Email,
		NameFirst:     u.NameFirst,
		NameLast:      u.NameLast,
		Handle:        u.Handle,
		ProfileImgURL: u.ProfileImgURL,
	}
}

func (s *Service) userViews(ids models.IDs) []UserView {
	out := make([]UserView, 0, len(ids))
	for _, id := range ids {
		if u := s.store.Users().Get(id); u != nil {
			out = append(out, userView(u))
		}
	}
	return out
}

func messageView(m *models.Message, viewerID int) MessageView {
	reacts := make([]ReactView, 0, len(m.Reacts))
	for _, r := range m.Reacts {
		reacts = append(reacts, ReactView{
			ReactID:           int(r.Kind),
			UIDs:              []int(r.Users.Clone()),
			IsThisUserReacted: reaction.HasReacted(m, viewerID, r.Kind),
		})
	}
	return MessageView{
		MessageID: m.ID,
		UID:       m.AuthorID,
		Message:   m.Body,
		TimeSent:  m.TimeSent,
		Reacts:    reacts,
		IsPinned:  m.Pinned,
	}
}

func messageViews(msgs []*models.Message, viewerID int) []MessageView {
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageView(m, viewerID))
	}
	return out
}
