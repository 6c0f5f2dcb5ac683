package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/apperr"
	"github.com/lalith-99/streams/internal/models"
)

// ChangePermission sets a user's global role. Only global owners may do
// this, and the last global owner cannot be demoted.
func (s *Service) ChangePermission(ctx context.Context, actorID, userID int, role models.GlobalRole) error {
	return s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		target, err := s.members.User(userID)
		if err != nil {
			return err
		}
		if !role.Valid() {
			return apperr.Input("permission_id %d is not valid", role)
		}
		if !actor.IsGlobalOwner() {
			return apperr.Access("only global owners can change permissions")
		}
		if role == models.RoleMember {
			if err := s.members.GuardLastGlobalOwner(target); err != nil {
				return err
			}
		}
		target.Role = role
		s.logger.Info("permission changed",
			zap.Int("u_id", target.ID),
			zap.Int("permission_id", int(role)),
			zap.Int("by", actor.ID),
		)
		return nil
	})
}

// RemoveUser deletes a user from the workspace. The account record stays,
// anonymized, so the id is never reused and old references resolve.
func (s *Service) RemoveUser(ctx context.Context, actorID, userID int) error {
	return s.do(ctx, func(fx *effects) error {
		actor, err := s.actor(actorID)
		if err != nil {
			return err
		}
		target, err := s.members.User(userID)
		if err != nil {
			return err
		}
		if !actor.IsGlobalOwner() {
			return apperr.Access("only global owners can remove users")
		}
		if err := s.members.GuardLastGlobalOwner(target); err != nil {
			return err
		}

		s.members.Scrub(target.ID)
		s.store.ResetCodes().DropUser(target.ID)

		target.Removed = true
		target.NameFirst = "Removed"
		target.NameLast = "user"
		target.Email = ""
		target.Handle = ""
		target.SessionIDs = nil

		s.logger.Info("user removed", zap.Int("u_id", target.ID), zap.Int("by", actor.ID))
		return nil
	})
}
