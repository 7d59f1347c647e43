// Package notify emits workflow events to Redis pub/sub. Delivery is
// best-effort and never blocks or fails the workflow.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	EventOrderNew       = "order.new"
	EventOrderStatus    = "order.status"
	EventOrderCancelled = "order.cancelled"
	EventTicketCreated  = "ticket.created"
	EventTicketUpdated  = "ticket.updated"
	EventBillCreated    = "bill.created"
	EventBillPaid       = "bill.paid"
	EventPaymentRefund  = "payment.refunded"
)

type Publisher struct {
	rdb     *redis.Client
	channel string
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb, channel: "mesa.events"}
}

type envelope struct {
	Event     string      `json:"event"`
	TenantID  int64       `json:"tenant_id"`
	Payload   interface{} `json:"payload,omitempty"`
	EmittedAt time.Time   `json:"emitted_at"`
}

// Publish fires the event and only logs on failure.
func (p *Publisher) Publish(ctx context.Context, event string, tenantID int64, payload interface{}) {
	if p == nil || p.rdb == nil {
		return
	}

	body, err := json.Marshal(envelope{
		Event:     event,
		TenantID:  tenantID,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("notify: marshal %s failed: %v", event, err)
		return
	}

	if err := p.rdb.Publish(ctx, p.channel, body).Err(); err != nil {
		log.Printf("notify: publish %s failed: %v", event, err)
	}
}
