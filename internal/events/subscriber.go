package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/mealkitclub/storefront/internal/event"
	"github.com/mealkitclub/storefront/internal/subscription"
)

// CartStatusSubscriber applies order-platform cart status changes to
// the persisted cart records and to any live menu session. Once a cart
// reaches PROCESS or ORDER_PLACED the week locks against edits.
type CartStatusSubscriber struct {
	subscriber events.Subscriber
	records    subscription.CartRecordRepo
	sessions   *subscription.SessionRegistry
	logger     apt.Logger
}

func NewCartStatusSubscriber(
	subscriber events.Subscriber,
	records subscription.CartRecordRepo,
	sessions *subscription.SessionRegistry,
	logger apt.Logger,
) *CartStatusSubscriber {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &CartStatusSubscriber{
		subscriber: subscriber,
		records:    records,
		sessions:   sessions,
		logger:     logger,
	}
}

func (s *CartStatusSubscriber) Start(ctx context.Context) error {
	s.logger.Info("Starting CartStatusSubscriber for topic: " + event.OrderCartsTopic)

	if err := s.subscriber.Subscribe(ctx, event.OrderCartsTopic, s.handleEvent); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", event.OrderCartsTopic, err)
	}

	return nil
}

func (s *CartStatusSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var evt event.OrderCartStatusEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Errorf("Failed to unmarshal cart status event: %v", err)
		return nil
	}

	if evt.EventType != event.EventOrderCartStatusChanged {
		return nil
	}

	return s.handleStatusChanged(ctx, &evt)
}

func (s *CartStatusSubscriber) handleStatusChanged(ctx context.Context, evt *event.OrderCartStatusEvent) error {
	orderCartID, err := uuid.Parse(evt.OrderCartID)
	if err != nil {
		s.logger.Errorf("Invalid order_cart_id in status event: %v", err)
		return nil
	}

	if err := s.records.SetStatus(ctx, orderCartID, evt.NewStatus); err != nil {
		s.logger.Errorf("Failed to update cart record status: %v", err)
		return err
	}

	occurrenceID, err := s.resolveOccurrence(ctx, evt, orderCartID)
	if err != nil {
		s.logger.Errorf("Cannot resolve occurrence for cart %s: %v", orderCartID, err)
		return nil
	}
	if occurrenceID == uuid.Nil {
		return nil
	}

	applied := s.sessions.ApplyStatus(occurrenceID, evt.NewStatus)
	if applied > 0 {
		s.logger.Infof("Applied status %s to %d live session(s) for occurrence %s",
			evt.NewStatus, applied, occurrenceID)
	}

	return nil
}

// resolveOccurrence prefers the occurrence id carried by the event and
// falls back to the persisted record for older producers.
func (s *CartStatusSubscriber) resolveOccurrence(ctx context.Context, evt *event.OrderCartStatusEvent, orderCartID uuid.UUID) (uuid.UUID, error) {
	if evt.OccurrenceID != "" {
		return uuid.Parse(evt.OccurrenceID)
	}

	record, err := s.records.FindByOrderCartID(ctx, orderCartID)
	if err != nil {
		return uuid.Nil, err
	}
	if record == nil {
		return uuid.Nil, nil
	}
	return record.OccurrenceID, nil
}
