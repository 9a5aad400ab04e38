// Package push delivers Web Push notifications for economy events.
package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/duetlabs/duet/internal/model"
)

// ErrSubscriptionGone signals the push service rejected the subscription as
// expired or unsubscribed; the caller should drop it.
var ErrSubscriptionGone = errors.New("push subscription gone")

type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

type Service struct {
	publicKey  string
	privateKey string
	subscriber string
	logger     *slog.Logger
}

func NewService(publicKey, privateKey, subscriber string, logger *slog.Logger) *Service {
	return &Service{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		logger:     logger,
	}
}

// Configured reports whether VAPID keys are set. An unconfigured service turns
// every send into a no-op so the rest of the app does not need to care.
func (s *Service) Configured() bool {
	return s.publicKey != "" && s.privateKey != ""
}

func (s *Service) PublicKey() string {
	return s.publicKey
}

func (s *Service) Send(sub model.PushSubscription, p Payload) error {
	if !s.Configured() {
		return nil
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotification(body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             3600,
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}
