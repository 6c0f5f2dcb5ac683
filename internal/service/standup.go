package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/apperr"
	"github.com/lalith-99/streams/internal/models"
)

// StartStandup opens a standup in a channel for length seconds and
// returns when it finishes. At that point the buffered lines are posted
// as one message from the caller.
func (s *Service) StartStandup(ctx context.Context, actorID, channelID, length int) (int64, error) {
	var finish int64
	err := s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		ch, err := s.members.Channel(channelID)
		if err != nil {
			return err
		}
		if length < 0 {
			return apperr.Input("length %d is negative", length)
		}
		if ch.Standup != nil {
			return apperr.Input("a standup is already running in channel %d", ch.ID)
		}
		if !ch.Members.Has(actor.ID) {
			return apperr.Access("not a member of channel %d", ch.ID)
		}

		finish = fx.at.Unix() + int64(length)
		ch.Standup = &models.Standup{StarterID: actor.ID, TimeFinish: finish, Lines: []string{}}
		s.armStandup(ch.ID, ch.Standup)
		s.logger.Info("standup started", zap.Int("channel_id", ch.ID), zap.Int("length", length))
		return nil
	})
	return finish, err
}

// armStandup schedules the close of su. Callers hold the lock.
func (s *Service) armStandup(channelID int, su *models.Standup) {
	delay := time.Unix(su.TimeFinish, 0).Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	gen := s.generation
	s.schedule(delay, func() { s.finishStandup(channelID, su, gen) })
}

func (s *Service) finishStandup(channelID int, su *models.Standup, gen int) {
	_ = s.do(context.Background(), func(fx *effects) error {
		if s.generation != gen {
			return nil
		}
		ch := s.store.Channels().Get(channelID)
		if ch == nil || ch.Standup != su {
			return nil
		}
		ch.Standup = nil

		if len(su.Lines) == 0 {
			return nil
		}
		starter := s.store.Users().Get(su.StarterID)
		if starter == nil || starter.Removed {
			s.logger.Warn("standup summary dropped", zap.Int("channel_id", channelID))
			return nil
		}
		s.post(fx, starter, container{ch: ch}, s.store.Messages().NextID(), strings.Join(su.Lines, "\n"), fx.at)
		return nil
	})
}

func (s *Service) StandupActive(ctx context.Context, actorID, channelID int) (StandupStatus, error) {
	var out StandupStatus
	err := s.do(ctx, func(fx *effects) error {
		if _, err := s.actor(actorID); err != nil {
			return err
		}
		ch, err := s.members.MemberChannel(actorID, channelID)
		if err != nil {
			return err
		}
		if ch.Standup != nil {
			finish := ch.Standup.TimeFinish
			out = StandupStatus{IsActive: true, TimeFinish: &finish}
		}
		return nil
	})
	return out, err
}

// StandupSend buffers one line as "<handle>: <text>".
func (s *Service) StandupSend(ctx context.Context, actorID, channelID int, text string) error {
	return s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		ch, err := s.members.Channel(channelID)
		if err != nil {
			return err
		}
		if utf8.RuneCountInString(text) > MaxMessageLen {
			return apperr.Input("message must be at most %d characters", MaxMessageLen)
		}
		if ch.Standup == nil {
			return apperr.Input("no standup is running in channel %d", ch.ID)
		}
		if !ch.Members.Has(actor.ID) {
			return apperr.Access("not a member of channel %d", ch.ID)
		}
		ch.Standup.Lines = append(ch.Standup.Lines, actor.Handle+": "+text)
		return nil
	})
}
