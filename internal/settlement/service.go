// Package settlement consumes asynchronous gateway callbacks and applies
// them to pending payments.
package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/mkulima/sokoni/internal/apperr"
	kafkax "github.com/mkulima/sokoni/internal/kafka"
	"github.com/mkulima/sokoni/internal/orders"
	"github.com/mkulima/sokoni/internal/payments"
	"github.com/mkulima/sokoni/internal/redisx"
)

type Settler interface {
	ApplySettlement(ctx context.Context, cb orders.SettlementCallbackPayload) (*payments.Payment, error)
}

// Dedup remembers event ids that were fully processed. Seen short-circuits
// redelivery; Mark must only be called once processing succeeded, so a
// transient failure stays eligible for retry.
type Dedup interface {
	Seen(ctx context.Context, eventID string) bool
	Mark(ctx context.Context, eventID string)
}

// RedisDedup keys processed events in redis with a bounded TTL.
type RedisDedup struct {
	Client *redis.Client
}

func (d RedisDedup) Seen(ctx context.Context, eventID string) bool {
	ok, _ := redisx.Exists(ctx, d.Client, fmt.Sprintf(redisx.KeySettlementDedup, eventID))
	return ok
}

func (d RedisDedup) Mark(ctx context.Context, eventID string) {
	_ = d.Client.Set(ctx, fmt.Sprintf(redisx.KeySettlementDedup, eventID), "1", redisx.TTLDedup).Err()
}

type Service struct {
	Payments Settler
	Dedup    Dedup // may be nil, Settle is idempotent on its own
}

// HandleCallback is wired as the consumer handler for the payment
// callback topic.
func (s *Service) HandleCallback(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventPaymentCallback {
		return nil
	}

	if s.Dedup != nil && s.Dedup.Seen(ctx, env.EventID) {
		return nil
	}

	cb, err := kafkax.UnwrapPayload[orders.SettlementCallbackPayload](env.Payload)
	if err != nil {
		return err
	}
	if cb.TransactionID == "" {
		log.Printf("settlement callback without transaction id, event=%s", env.EventID)
		return nil
	}

	p, err := s.Payments.ApplySettlement(ctx, cb)
	if err != nil {
		// Unknown transaction: commit and move on, a retry will never
		// make it appear.
		if errors.Is(err, apperr.ErrNotFound) {
			log.Printf("settlement for unknown transaction %s dropped", cb.TransactionID)
			return nil
		}
		// Transient failure: leave the event unmarked so the broker's
		// redelivery gets a real retry.
		return err
	}
	if s.Dedup != nil {
		s.Dedup.Mark(ctx, env.EventID)
	}
	log.Printf("settled transaction %s: order=%s status=%s", p.TransactionID, p.OrderID, p.Status)
	return nil
}
