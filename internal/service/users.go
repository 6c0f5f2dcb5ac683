package service

import (
	"context"
	"unicode/utf8"

	"github.com/lalith-99/streams/internal/apperr"
)

// Profile returns any user's profile. Removed users still resolve, with
// their anonymized fields.
func (s *Service) Profile(ctx context.Context, actorID, userID int) (UserView, error) {
	var out UserView
	err := s.do(ctx, func(fx *effects) error {
		if _, err := s.actor(actorID); err != nil {
			return err
		}
		u := s.store.Users().Get(userID)
		if u == nil {
			return apperr.Input("u_id %d does not refer to a valid user", userID)
		}
		out = userView(u)
		return nil
	})
	return out, err
}

// AllUsers lists every active user in registration order.
func (s *Service) AllUsers(ctx context.Context, actorID int) ([]UserView, error) {
	var out []UserView
	err := s.do(ctx, func(fx *effects) error {
		if _, err := s.actor(actorID); err != nil {
			return err
		}
		out = make([]UserView, 0)
		for _, u := range s.store.Users().All() {
			if !u.Removed {
				out = append(out, userView(u))
			}
		}
		return nil
	})
	return out, err
}

func (s *Service) SetName(ctx context.Context, actorID int, nameFirst, nameLast string) error {
	return s.do(ctx, func(fx *effects) error {
		u, err := s.actor(actorID)
		if err != nil {
			return err
		}
		if err := validName("name_first", nameFirst); err != nil {
			return err
		}
		if err := validName("name_last", nameLast); err != nil {
			return err
		}
		u.NameFirst, u.NameLast = nameFirst, nameLast
		return nil
	})
}

// SetEmail changes the caller's email. Any address already on an active
// account, the caller's own included, is rejected.
func (s *Service) SetEmail(ctx context.Context, actorID int, email string) error {
	return s.do(ctx, func(fx *effects) error {
		u, err := s.actor(actorID)
		if err != nil {
			return err
		}
		if err := validEmail(email); err != nil {
			return err
		}
		if s.store.Users().ByEmail(email) != nil {
			return apperr.Input("email %q is already in use", email)
		}
		u.Email = email
		return nil
	})
}

// SetHandle changes the caller's handle: 3 to 20 letters and digits, not
// in use by anyone.
func (s *Service) SetHandle(ctx context.Context, actorID int, handle string) error {
	return s.do(ctx, func(fx *effects) error {
		u, err := s.actor(actorID)
		if err != nil {
			return err
		}
		n := utf8.RuneCountInString(handle)
		if n < minHandleLen || n > maxHandleLen {
			return apperr.Input("handle must be between %d and %d characters", minHandleLen, maxHandleLen)
		}
		for _, r := range handle {
			if !isAlnum(r) {
				return apperr.Input("handle must contain only letters and digits")
			}
		}
		if s.store.Users().ByHandle(handle) != nil {
			return apperr.Input("handle %q is already in use", handle)
		}
		u.Handle = handle
		return nil
	})
}
