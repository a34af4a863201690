package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ventry/auth-api/internal/mailer"
	"github.com/ventry/auth-api/internal/models"
	"github.com/ventry/auth-api/internal/store"
)

const (
	exclusiveCodeLength   = 8
	exclusiveCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ExclusiveService issues and redeems the codes that unlock exclusive access.
// Codes never expire and stay valid after redemption; issuing a new code
// replaces the previous one.
type ExclusiveService struct {
	users           store.UserStore
	mailer          mailer.Mailer
	deliveryTimeout time.Duration
}

func NewExclusiveService(users store.UserStore, m mailer.Mailer, deliveryTimeout time.Duration) *ExclusiveService {
	return &ExclusiveService{users: users, mailer: m, deliveryTimeout: deliveryTimeout}
}

// GenerateExclusiveCode returns a random uppercase alphanumeric code.
func GenerateExclusiveCode() (string, error) {
	max := big.NewInt(int64(len(exclusiveCodeAlphabet)))
	code := make([]byte, exclusiveCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		code[i] = exclusiveCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// Issue stores a fresh code for user and tries to email it. A failed
// delivery is reported through sent, never as an error.
func (s *ExclusiveService) Issue(ctx context.Context, user *models.User) (code string, sent bool, err error) {
	code, err = GenerateExclusiveCode()
	if err != nil {
		return "", false, err
	}

	if _, err := s.users.Update(ctx, user.ID, store.UserUpdate{ExclusiveCode: &code}); err != nil {
		return "", false, fmt.Errorf("failed to store exclusive code: %w", err)
	}
	user.ExclusiveCode = &code

	deliveryCtx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	defer cancel()

	if err := s.mailer.Send(deliveryCtx, exclusiveCodeMessage(user.Email, code)); err != nil {
		slog.Warn("exclusive code email not sent", "user_id", user.ID.String(), "error", err)
		return code, false, nil
	}
	return code, true, nil
}

// Redeem unlocks exclusive access when code equals the stored one.
func (s *ExclusiveService) Redeem(ctx context.Context, user *models.User, code string) (*models.User, error) {
	if code == "" {
		return nil, validationf("Exclusive code is required")
	}
	if user.ExclusiveCode == nil || *user.ExclusiveCode != code {
		return nil, ErrInvalidExclusiveCode
	}

	granted := true
	updated, err := s.users.Update(ctx, user.ID, store.UserUpdate{ExclusiveAccess: &granted})
	if err != nil {
		return nil, fmt.Errorf("failed to grant exclusive access: %w", err)
	}
	return updated, nil
}

func exclusiveCodeMessage(to, code string) mailer.Message {
	text := fmt.Sprintf(`Hello,

Thank you for requesting exclusive access to Ventry!

Your exclusive access code is: %s

Please enter this code in the application to unlock premium features.

Best regards,
The Ventry Team
`, code)

	html := fmt.Sprintf(`<html>
  <body style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; border: 1px solid #ddd; border-radius: 5px; padding: 20px;">
      <h2 style="color: #1B3154;">Your Exclusive Access Code</h2>
      <p>Hello,</p>
      <p>Thank you for requesting exclusive access to Ventry!</p>
      <p>Your exclusive access code is:</p>
      <div style="background-color: #f7f7f7; padding: 15px; border-radius: 4px; font-size: 24px; text-align: center; letter-spacing: 5px; font-weight: bold; color: #1B3154;">%s</div>
      <p>Please enter this code in the application to unlock premium features.</p>
      <p>Best regards,<br>The Ventry Team</p>
    </div>
  </body>
</html>`, code)

	return mailer.Message{
		To:      to,
		Subject: "Your Exclusive Access Code for Ventry",
		Text:    text,
		HTML:    html,
	}
}
