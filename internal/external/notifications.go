package external

import (
	"crypto/subtle"
	"fmt"
	"strings"

	apperrors "luxtravel/internal/errors"
	"luxtravel/internal/models"
)

// NotificationVerifier authenticates payment gateway webhooks.
type NotificationVerifier interface {
	VerifyNotification(n *models.PaymentNotificationPayload) error
}

// TeamSlugVerifier accepts notifications addressed to TeamSlug. An empty TeamSlug accepts everything.
type TeamSlugVerifier struct {
	TeamSlug string
}

func (v TeamSlugVerifier) VerifyNotification(n *models.PaymentNotificationPayload) error {
	if v.TeamSlug != "" && n.TeamSlug != v.TeamSlug {
		return fmt.Errorf("notification for team %q: %w", n.TeamSlug, apperrors.ErrUnauthorized)
	}
	return nil
}

// NotificationToken is the token the gateway attaches to a notification.
func (pc *PaymentClient) NotificationToken(n *models.PaymentNotificationPayload) string {
	return pc.GenerateToken(map[string]string{
		"OrderId":   n.OrderID,
		"PaymentId": n.PaymentID,
		"Status":    n.Status,
	})
}

// VerifyNotification checks the team slug and the token of a notification.
func (pc *PaymentClient) VerifyNotification(n *models.PaymentNotificationPayload) error {
	if err := (TeamSlugVerifier{TeamSlug: pc.teamSlug}).VerifyNotification(n); err != nil {
		return err
	}
	expected := pc.NotificationToken(n)
	got := strings.ToLower(strings.TrimSpace(n.Token))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
		return fmt.Errorf("notification for order %s has an invalid token: %w", n.OrderID, apperrors.ErrUnauthorized)
	}
	return nil
}

// NewNotificationVerifier signs notifications in http mode and checks only the team slug otherwise.
func NewNotificationVerifier(cfg PaymentConfig) NotificationVerifier {
	if cfg.Mode == "http" {
		return NewPaymentClient(cfg)
	}
	return TeamSlugVerifier{TeamSlug: cfg.TeamSlug}
}
