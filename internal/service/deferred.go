package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/apperr"
	"github.com/lalith-99/streams/internal/models"
)

// SendLater validates a channel message now and posts it at timeSent
// (unix seconds). The message id is reserved immediately and returned.
func (s *Service) SendLater(ctx context.Context, actorID, channelID int, text string, timeSent int64) (int, error) {
	return s.sendLater(ctx, actorID, models.ContainerRef{Kind: models.KindChannel, ID: channelID}, text, timeSent)
}

// SendLaterDM is SendLater for a DM.
func (s *Service) SendLaterDM(ctx context.Context, actorID, dmID int, text string, timeSent int64) (int, error) {
	return s.sendLater(ctx, actorID, models.ContainerRef{Kind: models.KindDM, ID: dmID}, text, timeSent)
}

func (s *Service) sendLater(ctx context.Context, actorID int, ref models.ContainerRef, text string, timeSent int64) (int, error) {
	var id int
	var delay time.Duration
	var gen int
	err := s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		if ref.Kind == models.KindChannel {
			_, err = s.members.MemberChannel(actor.ID, ref.ID)
		} else {
			_, err = s.members.MemberDM(actor.ID, ref.ID)
		}
		if err != nil {
			return err
		}
		if err := validBody(text); err != nil {
			return err
		}
		if timeSent < fx.at.Unix() {
			return apperr.Input("time_sent %d is in the past", timeSent)
		}
		id = s.store.Messages().NextID()
		delay = time.Unix(timeSent, 0).Sub(fx.at)
		gen = s.generation
		return nil
	})
	if err != nil {
		return 0, err
	}

	if delay < 0 {
		delay = 0
	}
	s.schedule(delay, func() {
		s.deliverLater(actorID, ref, id, text, time.Unix(timeSent, 0), gen)
	})
	s.logger.Debug("message scheduled",
		zap.Int("message_id", id),
		zap.Int64("time_sent", timeSent),
	)
	return id, nil
}

// deliverLater posts a scheduled message. It drops the message when the
// store was cleared, the container or author is gone, or (when
// configured) the author is no longer a member.
func (s *Service) deliverLater(authorID int, ref models.ContainerRef, id int, text string, sentAt time.Time, gen int) {
	err := s.do(context.Background(), func(fx *effects) error {
		if s.generation != gen {
			return errDropped
		}
		author := s.store.Users().Get(authorID)
		if author == nil || author.Removed {
			return errDropped
		}
		c, ok := s.resolve(ref)
		if !ok {
			return errDropped
		}
		if s.opts.RevalidateDeferredSend && !c.members().Has(author.ID) {
			return errDropped
		}
		s.post(fx, author, c, id, text, sentAt)
		return nil
	})
	if err != nil {
		s.logger.Warn("scheduled message dropped",
			zap.Int("message_id", id),
			zap.Stringer("container", ref.Kind),
			zap.Int("container_id", ref.ID),
		)
	}
}

var errDropped = apperr.Input("scheduled message target is gone")
