package service

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/apperr"
	"github.com/lalith-99/streams/internal/membership"
	"github.com/lalith-99/streams/internal/models"
	"github.com/lalith-99/streams/internal/notify"
	"github.com/lalith-99/streams/internal/reaction"
	"github.com/lalith-99/streams/internal/stats"
)

// container is a channel or DM seen through the operations messages need.
type container struct {
	ch *models.Channel
	dm *models.DM
}

func (c container) target() notify.Target {
	if c.ch != nil {
		return channelTarget(c.ch)
	}
	return dmTarget(c.dm)
}

func (c container) members() models.IDs {
	if c.ch != nil {
		return c.ch.Members
	}
	return c.dm.Members
}

func (c container) messages() *[]*models.Message {
	if c.ch != nil {
		return &c.ch.Messages
	}
	return &c.dm.Messages
}

// ownedBy reports whether actor may edit, remove or pin any message in
// the container. Global ownership does not count here.
func (c container) ownedBy(actor *models.User) bool {
	if c.ch != nil {
		return membership.OwnsChannel(actor, c.ch)
	}
	return membership.CanAdministerDM(actor, c.dm)
}

// resolve finds the container behind ref, or ok=false if it is gone.
func (s *Service) resolve(ref models.ContainerRef) (container, bool) {
	switch ref.Kind {
	case models.KindChannel:
		if ch := s.store.Channels().Get(ref.ID); ch != nil {
			return container{ch: ch}, true
		}
	case models.KindDM:
		if dm := s.store.DMs().Get(ref.ID); dm != nil {
			return container{dm: dm}, true
		}
	}
	return container{}, false
}

// located is a message together with where it lives.
type located struct {
	container
	msg *models.Message
}

// locate finds a message in a container the actor belongs to. Both an
// unknown id and a message outside the actor's containers are input
// errors.
func (s *Service) locate(actor *models.User, messageID int) (located, error) {
	notFound := apperr.Input("message_id %d does not refer to a valid message in a channel or DM you have joined", messageID)

	ref, ok := s.store.Messages().Lookup(messageID)
	if !ok {
		return located{}, notFound
	}
	c, ok := s.resolve(ref)
	if !ok || !c.members().Has(actor.ID) {
		return located{}, notFound
	}
	for _, m := range *c.messages() {
		if m.ID == messageID {
			return located{container: c, msg: m}, nil
		}
	}
	return located{}, notFound
}

func (l located) remove(s *Service) {
	msgs := l.messages()
	for i, m := range *msgs {
		if m.ID == l.msg.ID {
			*msgs = append((*msgs)[:i], (*msgs)[i+1:]...)
			break
		}
	}
	s.store.Messages().Delete(l.msg.ID)
}

func validBody(text string) error {
	n := utf8.RuneCountInString(text)
	if n < 1 || n > MaxMessageLen {
		return apperr.Input("message must be between 1 and %d characters", MaxMessageLen)
	}
	return nil
}

// post prepends a message to c with the given id and runs the tag scan.
// Length limits are the caller's job.
func (s *Service) post(fx *effects, author *models.User, c container, id int, text string, sentAt time.Time) *models.Message {
	msg := models.NewMessage(id, author.ID, text, sentAt.Unix())
	msgs := c.messages()
	*msgs = append([]*models.Message{msg}, *msgs...)

	ref := c.target().Ref
	s.store.Messages().Put(id, ref)

	fx.user(stats.MessagesSent, author.ID, 1)
	fx.workspace(stats.MessagesExist, 1)
	if d, ok := notify.Tagged(s.store.Users(), c.members(), author, c.target(), text); ok {
		fx.deliver(d)
	}
	s.logger.Debug("message posted",
		zap.Int("message_id", id),
		zap.Stringer("container", ref.Kind),
		zap.Int("container_id", ref.ID),
	)
	return msg
}

func (s *Service) SendMessage(ctx context.Context, actorID, channelID int, text string) (int, error) {
	var id int
	err := s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		ch, err := s.members.MemberChannel(actor.ID, channelID)
		if err != nil {
			return err
		}
		if err := validBody(text); err != nil {
			return err
		}
		id = s.post(fx, actor, container{ch: ch}, s.store.Messages().NextID(), text, fx.at).ID
		return nil
	})
	return id, err
}

func (s *Service) SendDM(ctx context.Context, actorID, dmID int, text string) (int, error) {
	var id int
	err := s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		dm, err := s.members.MemberDM(actor.ID, dmID)
		if err != nil {
			return err
		}
		if err := validBody(text); err != nil {
			return err
		}
		id = s.post(fx, actor, container{dm: dm}, s.store.Messages().NextID(), text, fx.at).ID
		return nil
	})
	return id, err
}

// EditMessage replaces a message body. An empty body removes the
// message. Only the author or someone who administers the container may
// edit.
func (s *Service) EditMessage(ctx context.Context, actorID, messageID int, text string) error {
	return s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		l, err := s.locate(actor, messageID)
		if err != nil {
			return err
		}
		if utf8.RuneCountInString(text) > MaxMessageLen {
			return apperr.Input("message must be at most %d characters", MaxMessageLen)
		}
		if l.msg.AuthorID != actor.ID && !l.ownedBy(actor) {
			return apperr.Access("not allowed to edit message %d", messageID)
		}

		if text == "" {
			l.remove(s)
			fx.workspace(stats.MessagesExist, -1)
			return nil
		}
		l.msg.Body = text
		if d, ok := notify.Tagged(s.store.Users(), l.members(), actor, l.target(), text); ok {
			fx.deliver(d)
		}
		return nil
	})
}

func (s *Service) RemoveMessage(ctx context.Context, actorID, messageID int) error {
	return s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		l, err := s.locate(actor, messageID)
		if err != nil {
			return err
		}
		if l.msg.AuthorID != actor.ID && !l.ownedBy(actor) {
			return apperr.Access("not allowed to remove message %d", messageID)
		}
		l.remove(s)
		fx.workspace(stats.MessagesExist, -1)
		return nil
	})
}

// ShareMessage posts a copy of a message the caller can see into one
// channel (dmID -1) or one DM (channelID -1), optionally followed by a
// comment.
func (s *Service) ShareMessage(ctx context.Context, actorID, ogMessageID int, text string, channelID, dmID int) (int, error) {
	var id int
	err := s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		if (channelID == -1) == (dmID == -1) {
			return apperr.Input("exactly one of channel_id and dm_id must be -1")
		}

		var dest container
		if channelID != -1 {
			ch, err := s.members.Channel(channelID)
			if err != nil {
				return err
			}
			dest = container{ch: ch}
		} else {
			dm, err := s.members.DM(dmID)
			if err != nil {
				return err
			}
			dest = container{dm: dm}
		}

		og, err := s.locate(actor, ogMessageID)
		if err != nil {
			return err
		}
		if utf8.RuneCountInString(text) > MaxMessageLen {
			return apperr.Input("message must be at most %d characters", MaxMessageLen)
		}
		if !dest.members().Has(actor.ID) {
			return apperr.Access("not a member of the %s you are sharing to", dest.target().Ref.Kind)
		}

		body := og.msg.Body
		if text != "" {
			body += " " + text
		}
		id = s.post(fx, actor, dest, s.store.Messages().NextID(), body, fx.at).ID
		return nil
	})
	return id, err
}

func (s *Service) React(ctx context.Context, actorID, messageID int, kind models.ReactKind) error {
	return s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		if err := reaction.ValidateKind(kind); err != nil {
			return err
		}
		l, err := s.locate(actor, messageID)
		if err != nil {
			return err
		}
		if err := reaction.React(l.msg, actor.ID, kind); err != nil {
			return err
		}
		if d, ok := notify.Reacted(actor, l.msg.AuthorID, l.target()); ok {
			fx.deliver(d)
		}
		return nil
	})
}

func (s *Service) Unreact(ctx context.Context, actorID, messageID int, kind models.ReactKind) error {
	return s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		if err := reaction.ValidateKind(kind); err != nil {
			return err
		}
		l, err := s.locate(actor, messageID)
		if err != nil {
			return err
		}
		return reaction.Unreact(l.msg, actor.ID, kind)
	})
}

func (s *Service) Pin(ctx context.Context, actorID, messageID int) error {
	return s.setPinned(ctx, actorID, messageID, reaction.Pin)
}

func (s *Service) Unpin(ctx context.Context, actorID, messageID int) error {
	return s.setPinned(ctx, actorID, messageID, reaction.Unpin)
}

func (s *Service) setPinned(ctx context.Context, actorID, messageID int, apply func(*models.Message) error) error {
	return s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		l, err := s.locate(actor, messageID)
		if err != nil {
			return err
		}
		if !l.ownedBy(actor) {
			if s.opts.PinDeniedAsAccess {
				return apperr.Access("no owner permissions for message %d", messageID)
			}
			return apperr.Input("no owner permissions for message %d", messageID)
		}
		return apply(l.msg)
	})
}
