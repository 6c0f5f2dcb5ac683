package service

import (
	"context"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/apperr"
	"github.com/lalith-99/streams/internal/membership"
	"github.com/lalith-99/streams/internal/models"
	"github.com/lalith-99/streams/internal/notify"
	"github.com/lalith-99/streams/internal/pagination"
	"github.com/lalith-99/streams/internal/stats"
)

const maxChannelNameLen = 20

func channelTarget(ch *models.Channel) notify.Target {
	return notify.Target{Ref: models.ContainerRef{Kind: models.KindChannel, ID: ch.ID}, Name: ch.Name}
}

// CreateChannel makes the caller the first owner and member of a new
// channel.
func (s *Service) CreateChannel(ctx context.Context, actorID int, name string, isPublic bool) (int, error) {
	var id int
	err := s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		if n := utf8.RuneCountInString(name); n < 1 || n > maxChannelNameLen {
			return apperr.Input("channel name must be between 1 and %d characters", maxChannelNameLen)
		}
		ch := s.store.Channels().Add(&models.Channel{
			Name:     name,
			IsPublic: isPublic,
			Owners:   models.IDs{actor.ID},
			Members:  models.IDs{actor.ID},
		})
		fx.user(stats.ChannelsJoined, actor.ID, 1)
		fx.workspace(stats.ChannelsExist, 1)
		s.logger.Info("channel created", zap.Int("channel_id", ch.ID), zap.Int("u_id", actor.ID))
		id = ch.ID
		return nil
	})
	return id, err
}

// ListChannels lists the channels the caller belongs to.
func (s *Service) ListChannels(ctx context.Context, actorID int) ([]ChannelSummary, error) {
	return s.listChannels(ctx, actorID, false)
}

// ListAllChannels lists every channel, private ones included.
func (s *Service) ListAllChannels(ctx context.Context, actorID int) ([]ChannelSummary, error) {
	return s.listChannels(ctx, actorID, true)
}

func (s *Service) listChannels(ctx context.Context, actorID int, all bool) ([]ChannelSummary, error) {
	var out []ChannelSummary
	err := s.do(ctx, func(fx *effects) error {
		if _, err := s.actor(actorID); err != nil {
			return err
		}
		out = make([]ChannelSummary, 0)
		for _, ch := range s.store.Channels().All() {
			if all || ch.Members.Has(actorID) {
				out = append(out, ChannelSummary{ChannelID: ch.ID, Name: ch.Name})
			}
		}
		return nil
	})
	return out, err
}

func (s *Service) ChannelDetails(ctx context.Context, actorID, channelID int) (ChannelDetails, error) {
	var out ChannelDetails
	err := s.do(ctx, func(fx *effects) error {
		if _, err := s.actor(actorID); err != nil {
			return err
		}
		ch, err := s.members.MemberChannel(actorID, channelID)
		if err != nil {
			return err
		}
		out = ChannelDetails{
			Name:         ch.Name,
			IsPublic:     ch.IsPublic,
			OwnerMembers: s.userViews(ch.Owners),
			AllMembers:   s.userViews(ch.Members),
		}
		return nil
	})
	return out, err
}

// Invite adds another user to a channel the caller is in and notifies
// them.
func (s *Service) Invite(ctx context.Context, actorID, channelID, userID int) error {
	return s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		target, err := s.members.User(userID)
		if err != nil {
			return err
		}
		ch, err := s.members.Channel(channelID)
		if err != nil {
			return err
		}
		if err := s.members.Invite(actor, target, ch); err != nil {
			return err
		}
		fx.user(stats.ChannelsJoined, target.ID, 1)
		fx.deliver(notify.Added(actor, target.ID, channelTarget(ch)))
		return nil
	})
}

func (s *Service) Join(ctx context.Context, actorID, channelID int) error {
	return s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		ch, err := s.members.Channel(channelID)
		if err != nil {
			return err
		}
		if err := s.members.Join(actor, ch); err != nil {
			return err
		}
		fx.user(stats.ChannelsJoined, actor.ID, 1)
		return nil
	})
}

func (s *Service) Leave(ctx context.Context, actorID, channelID int) error {
	return s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		ch, err := s.members.Channel(channelID)
		if err != nil {
			return err
		}
		if err := membership.Leave(actor.ID, ch); err != nil {
			return err
		}
		fx.user(stats.ChannelsJoined, actor.ID, -1)
		return nil
	})
}

func (s *Service) AddOwner(ctx context.Context, actorID, channelID, userID int) error {
	return s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		ch, err := s.members.Channel(channelID)
		if err != nil {
			return err
		}
		return s.members.AddOwner(actor, userID, ch)
	})
}

func (s *Service) RemoveOwner(ctx context.Context, actorID, channelID, userID int) error {
	return s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		ch, err := s.members.Channel(channelID)
		if err != nil {
			return err
		}
		return s.members.RemoveOwner(actor, userID, ch)
	})
}

// ChannelMessages returns one page of a channel's history, newest first.
func (s *Service) ChannelMessages(ctx context.Context, actorID, channelID, start int) (MessagePage, error) {
	var out MessagePage
	err := s.do(ctx, func(fx *effects) error {
		if _, err := s.actor(actorID); err != nil {
			return err
		}
		ch, err := s.members.MemberChannel(actorID, channelID)
		if err != nil {
			return err
		}
		out, err = page(ch.Messages, start, actorID)
		return err
	})
	return out, err
}

func page(msgs []*models.Message, start, viewerID int) (MessagePage, error) {
	p, err := pagination.Window(msgs, start)
	if err != nil {
		return MessagePage{}, err
	}
	return MessagePage{
		Messages: messageViews(p.Items, viewerID),
		Start:    p.Start,
		End:      p.End,
	}, nil
}
