package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/apperr"
	"github.com/lalith-99/streams/internal/auth"
	"github.com/lalith-99/streams/internal/models"
	"github.com/lalith-99/streams/internal/stats"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

const (
	minPasswordLen = 6
	maxNameLen     = 50
	maxHandleLen   = 20
	minHandleLen   = 3
)

// Identity is a resolved token.
type Identity struct {
	UserID    int
	SessionID string
}

func validEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return apperr.Input("email %q is not valid", email)
	}
	return nil
}

func validPassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return apperr.Input("password must be at least %d characters", minPasswordLen)
	}
	return nil
}

func validName(field, name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > maxNameLen {
		return apperr.Input("%s must be between 1 and %d characters", field, maxNameLen)
	}
	return nil
}

// baseHandle lowercases first+last, keeps letters and digits, and cuts
// the result to maxHandleLen.
func baseHandle(first, last string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(first + last) {
		if isAlnum(r) {
			b.WriteRune(r)
		}
	}
	runes := []rune(b.String())
	if len(runes) > maxHandleLen {
		runes = runes[:maxHandleLen]
	}
	return string(runes)
}

// isAlnum reports whether r is an ASCII letter or digit. Handles are
// ASCII only.
func isAlnum(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}

// uniqueHandle appends the smallest integer suffix, starting at 0, that
// makes base unused.
func (s *Service) uniqueHandle(base string) string {
	if s.store.Users().ByHandle(base) == nil {
		return base
	}
	for i := 0; ; i++ {
		candidate := base + strconv.Itoa(i)
		if s.store.Users().ByHandle(candidate) == nil {
			return candidate
		}
	}
}

func (s *Service) openSession(u *models.User) (string, error) {
	sessionID := uuid.NewString()
	token, err := auth.GenerateToken(u.ID, sessionID, s.opts.JWTSecret, s.opts.TokenTTL)
	if err != nil {
		return "", err
	}
	u.SessionIDs = append(u.SessionIDs, sessionID)
	return token, nil
}

// Register creates an account and logs it in. The first account in the
// workspace becomes a global owner.
func (s *Service) Register(ctx context.Context, email, password, nameFirst, nameLast string) (AuthResult, error) {
	if err := validEmail(email); err != nil {
		return AuthResult{}, err
	}
	if err := validPassword(password); err != nil {
		return AuthResult{}, err
	}
	if err := validName("name_first", nameFirst); err != nil {
		return AuthResult{}, err
	}
	if err := validName("name_last", nameLast); err != nil {
		return AuthResult{}, err
	}

	hash, err := auth.HashPassword(password, s.opts.PasswordCost)
	if err != nil {
		return AuthResult{}, err
	}

	var res AuthResult
	err = s.do(ctx, func(fx *effects) error {
		if s.store.Users().ByEmail(email) != nil {
			return apperr.Input("email %q is already registered", email)
		}

		first := len(s.store.Users().All()) == 0
		role := models.RoleMember
		if first {
			role = models.RoleOwner
		}

		u := s.store.Users().Add(&models.User{
			Email:         email,
			PasswordHash:  hash,
			NameFirst:     nameFirst,
			NameLast:      nameLast,
			Handle:        s.uniqueHandle(baseHandle(nameFirst, nameLast)),
			ProfileImgURL: s.opts.BaseURL + "static/default.jpg",
			Role:          role,
		})
		token, err := s.openSession(u)
		if err != nil {
			return err
		}

		for _, m := range stats.UserMetrics {
			fx.user(m, u.ID, 0)
		}
		if first {
			for _, m := range stats.WorkspaceMetrics {
				fx.workspace(m, 0)
			}
		}

		s.logger.Info("user registered", zap.Int("u_id", u.ID), zap.String("handle", u.Handle))
		res = AuthResult{Token: token, AuthUserID: u.ID}
		return nil
	})
	return res, err
}

// Login opens a new session. The password check runs outside the lock.
func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	s.mu.Lock()
	var userID int
	var hash string
	if u := s.store.Users().ByEmail(email); u != nil {
		userID, hash = u.ID, u.PasswordHash
	}
	s.mu.Unlock()

	if userID == 0 {
		return AuthResult{}, apperr.Input("email %q is not registered", email)
	}
	ok, err := auth.CheckPassword(hash, password)
	if err != nil {
		return AuthResult{}, err
	}
	if !ok {
		return AuthResult{}, apperr.Input("incorrect password")
	}

	var res AuthResult
	err = s.do(ctx, func(fx *effects) error {
		u := s.store.Users().Get(userID)
		if u == nil || u.Removed || u.PasswordHash != hash {
			return apperr.Input("incorrect password")
		}
		token, err := s.openSession(u)
		if err != nil {
			return err
		}
		res = AuthResult{Token: token, AuthUserID: u.ID}
		return nil
	})
	return res, err
}

// Logout closes the session the token belongs to.
func (s *Service) Logout(ctx context.Context, id Identity) error {
	return s.do(ctx, func(fx *effects) error {
		u, err := s.actor(id.UserID)
		if err != nil {
			return err
		}
		u.CloseSession(id.SessionID)
		return nil
	})
}

// Authenticate resolves a token to an open session of an active user.
// Every failure is an access error.
func (s *Service) Authenticate(token string) (Identity, error) {
	claims, err := auth.ParseToken(token, s.opts.JWTSecret)
	if err != nil {
		return Identity{}, apperr.Access("invalid token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.store.Users().Get(claims.UserID)
	if u == nil || u.Removed || !u.HasSession(claims.SessionID) {
		return Identity{}, apperr.Access("invalid token")
	}
	return Identity{UserID: u.ID, SessionID: claims.SessionID}, nil
}

// RequestPasswordReset issues a reset code and logs the user out
// everywhere. Unknown emails succeed silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	return s.do(ctx, func(fx *effects) error {
		u := s.store.Users().ByEmail(email)
		if u == nil {
			return nil
		}
		code := uuid.NewString()
		s.store.ResetCodes().Put(code, u.ID)
		u.SessionIDs = nil
		fx.resets = append(fx.resets, resetMail{email: u.Email, code: code})
		return nil
	})
}

// ResetPassword consumes a reset code and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, code, newPassword string) error {
	if err := validPassword(newPassword); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.opts.PasswordCost)
	if err != nil {
		return err
	}
	return s.do(ctx, func(fx *effects) error {
		userID, ok := s.store.ResetCodes().Take(code)
		if !ok {
			return apperr.Input("reset code is not valid")
		}
		u := s.store.Users().Get(userID)
		if u == nil || u.Removed {
			return apperr.Input("reset code is not valid")
		}
		u.PasswordHash = hash
		s.logger.Info("password reset", zap.Int("u_id", u.ID))
		return nil
	})
}
