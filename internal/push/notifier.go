package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/duetlabs/duet/internal/model"
	"github.com/duetlabs/duet/internal/store"
)

// Notifier fans economy events out to a user's push subscriptions, dropping
// subscriptions the push service reports as gone.
type Notifier struct {
	service *Service
	subs    *store.PushStore
	users   *store.UserStore
	logger  *slog.Logger
}

func NewNotifier(service *Service, subs *store.PushStore, users *store.UserStore, logger *slog.Logger) *Notifier {
	return &Notifier{service: service, subs: subs, users: users, logger: logger}
}

func (n *Notifier) TaskCreated(recipientID int64, task *model.Task) {
	n.send(recipientID, Payload{
		Title: "New task",
		Body:  fmt.Sprintf("%q was assigned to you", task.Title),
		URL:   "/tasks",
	})
}

func (n *Notifier) TaskCompleted(recipientID int64, task *model.Task) {
	n.send(recipientID, Payload{
		Title: "Task completed",
		Body:  fmt.Sprintf("%q is done and waiting for your rating", task.Title),
		URL:   "/tasks",
	})
}

func (n *Notifier) TaskEvaluated(recipientID int64, task *model.Task, rating int) {
	n.send(recipientID, Payload{
		Title: "Task rated",
		Body:  fmt.Sprintf("%q earned you %d bonus stars", task.Title, rating),
		URL:   "/tasks",
	})
}

func (n *Notifier) RewardRedeemed(recipientID int64, reward *model.Reward) {
	n.send(recipientID, Payload{
		Title: "Reward redeemed",
		Body:  fmt.Sprintf("Your partner redeemed %q", reward.Title),
		URL:   "/rewards",
	})
}

func (n *Notifier) send(userID int64, p Payload) {
	if n == nil || !n.service.Configured() {
		return
	}

	subs, err := n.subs.ListByUser(userID)
	if err != nil {
		n.logger.Error("list push subscriptions", "user_id", userID, "error", err)
		return
	}

	for _, sub := range subs {
		err := n.service.Send(sub, p)
		if errors.Is(err, ErrSubscriptionGone) {
			if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
				n.logger.Error("drop stale subscription", "error", err)
			}
			continue
		}
		if err != nil {
			n.logger.Error("send push", "user_id", userID, "error", err)
		}
	}
}
