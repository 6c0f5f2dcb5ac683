package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes with bcrypt at the given cost. Pass
// bcrypt.DefaultCost outside tests.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. A malformed hash
// is an error; a plain mismatch is not.
func CheckPassword(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare password: %w", err)
	}
	return true, nil
}

// ResetMailer delivers password-reset codes.
type ResetMailer interface {
	SendResetCode(ctx context.Context, email, code string) error
}

// LogMailer writes reset codes to the log instead of sending mail. It is
// the default until an SMTP relay is configured.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendResetCode(_ context.Context, email, code string) error {
	m.logger.Info("password reset requested",
		zap.String("email", email),
		zap.String("reset_code", code),
	)
	return nil
}
