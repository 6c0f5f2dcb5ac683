package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/apperr"
	"github.com/lalith-99/streams/internal/membership"
	"github.com/lalith-99/streams/internal/models"
	"github.com/lalith-99/streams/internal/notify"
	"github.com/lalith-99/streams/internal/stats"
)

func dmTarget(dm *models.DM) notify.Target {
	return notify.Target{Ref: models.ContainerRef{Kind: models.KindDM, ID: dm.ID}, Name: dm.Name}
}

// CreateDM opens a DM between the caller and userIDs. The name is every
// member's handle, sorted and comma separated, and never changes.
func (s *Service) CreateDM(ctx context.Context, actorID int, userIDs []int) (int, error) {
	var id int
	err := s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}

		members := models.IDs{actor.ID}
		handles := []string{actor.Handle}
		for _, uid := range userIDs {
			u, err := s.members.User(uid)
			if err != nil {
				return err
			}
			if !members.Add(uid) {
				return apperr.Input("u_ids contains user %d more than once", uid)
			}
			handles = append(handles, u.Handle)
		}
		sort.Strings(handles)

		dm := s.store.DMs().Add(&models.DM{
			Name:      strings.Join(handles, ", "),
			CreatorID: actor.ID,
			Members:   members,
		})

		target := dmTarget(dm)
		for _, uid := range members {
			fx.user(stats.DMsJoined, uid, 1)
			if uid != actor.ID {
				fx.deliver(notify.Added(actor, uid, target))
			}
		}
		fx.workspace(stats.DMsExist, 1)

		s.logger.Info("dm created", zap.Int("dm_id", dm.ID), zap.Int("members", len(members)))
		id = dm.ID
		return nil
	})
	return id, err
}

func (s *Service) ListDMs(ctx context.Context, actorID int) ([]DMSummary, error) {
	var out []DMSummary
	err := s.do(ctx, func(fx *effects) error {
		if _, err := s.actor(actorID); err != nil {
			return err
		}
		out = make([]DMSummary, 0)
		for _, dm := range s.store.DMs().All() {
			if dm.Members.Has(actorID) {
				out = append(out, DMSummary{DMID: dm.ID, Name: dm.Name})
			}
		}
		return nil
	})
	return out, err
}

func (s *Service) DMDetails(ctx context.Context, actorID, dmID int) (DMDetails, error) {
	var out DMDetails
	err := s.do(ctx, func(fx *effects) error {
		if _, err := s.actor(actorID); err != nil {
			return err
		}
		dm, err := s.members.MemberDM(actorID, dmID)
		if err != nil {
			return err
		}
		out = DMDetails{Name: dm.Name, Members: s.userViews(dm.Members)}
		return nil
	})
	return out, err
}

func (s *Service) LeaveDM(ctx context.Context, actorID, dmID int) error {
	return s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		dm, err := s.members.DM(dmID)
		if err != nil {
			return err
		}
		if err := membership.LeaveDM(actor.ID, dm); err != nil {
			return err
		}
		fx.user(stats.DMsJoined, actor.ID, -1)
		return nil
	})
}

// RemoveDM deletes a DM and its messages. Only the creator may do this.
func (s *Service) RemoveDM(ctx context.Context, actorID, dmID int) error {
	return s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		dm, err := s.members.DM(dmID)
		if err != nil {
			return err
		}
		if err := membership.CheckRemoveDM(actor, dm); err != nil {
			return err
		}

		for _, uid := range dm.Members {
			fx.user(stats.DMsJoined, uid, -1)
		}
		fx.workspace(stats.DMsExist, -1)
		if n := len(dm.Messages); n > 0 {
			fx.workspace(stats.MessagesExist, -n)
		}
		s.store.DMs().Delete(dm.ID)

		s.logger.Info("dm removed", zap.Int("dm_id", dm.ID), zap.Int("u_id", actor.ID))
		return nil
	})
}

func (s *Service) DMMessages(ctx context.Context, actorID, dmID, start int) (MessagePage, error) {
	var out MessagePage
	err := s.do(ctx, func(fx *effects) error {
		if _, err := s.actor(actorID); err != nil {
			return err
		}
		dm, err := s.members.MemberDM(actorID, dmID)
		if err != nil {
			return err
		}
		out, err = page(dm.Messages, start, actorID)
		return err
	})
	return out, err
}
