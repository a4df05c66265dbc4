// Package relay implements the message relay core: draft validation,
// persist-then-fan-out, and best-effort delivery to every live session
// of both participants.
package relay

import (
	"bookchat/contract"
	"bookchat/domain"
	"bookchat/errors"
	"bookchat/observability"
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

type Service struct {
	log          *slog.Logger
	registry     contract.IRegistry
	store        contract.IMessageStore
	validate     *validator.Validate
	textRule     string
	strictSender bool
	metrics      *observability.Metrics
}

func NewService(log *slog.Logger, registry contract.IRegistry, store contract.IMessageStore,
	maxMessageLength int, strictSender bool, metrics *observability.Metrics) *Service {
	return &Service{
		log:          log,
		registry:     registry,
		store:        store,
		validate:     validator.New(),
		textRule:     fmt.Sprintf("max=%d", maxMessageLength),
		strictSender: strictSender,
		metrics:      metrics,
	}
}

// HandleDraft processes one send_message event from the origin session.
// The returned error is one of the relay error kinds; the transport layer
// reports it to the origin only. Nothing is persisted or delivered when an
// error is returned.
func (s *Service) HandleDraft(ctx context.Context, origin contract.Session, draft domain.DraftMessage) error {
	if s.strictSender && draft.Sender != origin.Identity() {
		s.metrics.RejectedMessages.Inc()
		return fmt.Errorf("%w: declared %q, connected as %q",
			errors.ErrSenderMismatch, draft.Sender, origin.Identity())
	}

	if err := s.validate.Var(draft.Text, s.textRule); err != nil {
		s.metrics.RejectedMessages.Inc()
		return fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err)
	}

	stored, err := s.store.Store(ctx, draft)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	s.metrics.MessagesStored.Inc()

	s.Deliver(stored)
	return nil
}

// Deliver pushes a stored message to the union of the sender's and the
// receiver's live sessions. The union is keyed by session ID so a session
// reachable through both participants (self-message) still receives exactly
// one push. A failed push is logged and counted; the message is already
// durable, so delivery stays best-effort and other sessions are unaffected.
func (s *Service) Deliver(msg domain.StoredMessage) {
	targets := make(map[string]contract.Session)
	for _, sess := range s.registry.SessionsFor(msg.Sender.ID) {
		targets[sess.ID()] = sess
	}
	for _, sess := range s.registry.SessionsFor(msg.Receiver.ID) {
		targets[sess.ID()] = sess
	}

	for _, sess := range targets {
		if err := sess.Deliver(msg); err != nil {
			s.metrics.DeliveryFailures.Inc()
			s.log.Warn("Failed to push message to session",
				"message_id", msg.ID,
				"session_id", sess.ID(),
				"identity", sess.Identity(),
				"error", err)
			continue
		}
		s.metrics.Deliveries.Inc()
	}
}
