package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bountyboard/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// NotificationService dispatches push notifications through an HTTP
// gateway. Dispatch is fire-and-forget: a failed delivery is logged and
// metered, never surfaced to callers.
type NotificationService struct {
	gatewayURL string
	apiKey     string
	client     *http.Client
	limiter    *rate.Limiter
	log        *logrus.Logger
}

// PushTokenLookup resolves a user's device push token.
type PushTokenLookup func(ctx context.Context, userID string) (string, error)

// NewNotificationService creates the dispatcher. An empty gatewayURL
// disables dispatch entirely.
func NewNotificationService(gatewayURL, apiKey string) *NotificationService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return &NotificationService{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(20), 40), // 20 pushes/s, burst 40
		log:        logger,
	}
}

type pushPayload struct {
	To    string                 `json:"to"`
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// NotifyAsync dispatches in the background and never blocks the caller.
func (s *NotificationService) NotifyAsync(pushToken, title, body string, data map[string]interface{}) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := s.Notify(ctx, pushToken, title, body, data); err != nil {
			s.log.WithFields(logrus.Fields{
				"title": title,
				"error": err,
			}).Warn("push dispatch failed")
			GetMetrics().RecordNotification("error")
			return
		}
		GetMetrics().RecordNotification("ok")
	}()
}

// Notify sends one push notification synchronously.
func (s *NotificationService) Notify(ctx context.Context, pushToken, title, body string, data map[string]interface{}) error {
	if s.gatewayURL == "" {
		return fmt.Errorf("push gateway not configured")
	}
	if pushToken == "" {
		return fmt.Errorf("user has no push token")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(pushPayload{
		To:    pushToken,
		Title: title,
		Body:  body,
		Data:  data,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned %d", resp.StatusCode)
	}

	s.log.WithField("title", title).Debug("push dispatched")
	return nil
}

// HunterNotifier resolves a hunter's push token and announces the
// acceptance. It satisfies the coordinator's notifier dependency.
type HunterNotifier struct {
	pushes *NotificationService
	users  *UserService
}

// NewHunterNotifier wires token lookup to push dispatch.
func NewHunterNotifier(pushes *NotificationService, users *UserService) *HunterNotifier {
	return &HunterNotifier{pushes: pushes, users: users}
}

// NotifyAccepted tells the hunter their request was accepted. Token
// lookup runs in the background so the acceptance path never waits on
// the users table.
func (n *HunterNotifier) NotifyAccepted(hunterID models.ID, bounty *models.Bounty) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		user, err := n.users.GetUser(ctx, hunterID)
		if err != nil {
			n.pushes.log.WithFields(logrus.Fields{
				"hunter_id": hunterID.String(),
				"error":     err,
			}).Warn("push token lookup failed")
			GetMetrics().RecordNotification("error")
			return
		}

		n.pushes.NotifyAsync(user.PushToken, "Your request was accepted!",
			fmt.Sprintf("You're on: %s", bounty.Title),
			map[string]interface{}{
				"type":      "request_accepted",
				"bounty_id": bounty.ID.String(),
			})
	}()
}
