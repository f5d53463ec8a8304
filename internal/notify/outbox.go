// Package notify delivers team and customer notifications over Slack or a
// simulated email outbox.
package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/capability"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/privacy"
	"github.com/sells-group/complaint-cli/internal/resilience"
)

// Message is one delivered outbox entry.
type Message struct {
	ID         string
	From       string
	To         string
	Subject    string
	TicketLink string
	Body       string
	SentAt     time.Time
}

// Outbox simulates email delivery by recording messages in memory.
type Outbox struct {
	mu     sync.Mutex
	sent   []Message
	sender string
	now    func() time.Time
}

// OutboxOption configures an Outbox.
type OutboxOption func(*Outbox)

// WithSender sets the From address of delivered messages.
func WithSender(from string) OutboxOption {
	return func(o *Outbox) { o.sender = from }
}

var _ capability.Notifier = (*Outbox)(nil)

// NewOutbox creates an empty outbox.
func NewOutbox(opts ...OutboxOption) *Outbox {
	o := &Outbox{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Notify records the message. A recipient without an address is fatal.
func (o *Outbox) Notify(ctx context.Context, n capability.Notification) (model.DeliveryStatus, error) {
	if err := ctx.Err(); err != nil {
		return model.DeliveryFailed, err
	}
	to := strings.TrimSpace(n.Recipient)
	if to == "" {
		return model.DeliveryFailed, resilience.NewFatalError(eris.New("notify: empty recipient"), "invalid notification")
	}

	msg := Message{
		ID:         uuid.NewString(),
		From:       o.sender,
		To:         to,
		Subject:    n.Subject,
		TicketLink: n.TicketLink,
		Body:       n.Summary,
		SentAt:     o.now().UTC(),
	}

	o.mu.Lock()
	o.sent = append(o.sent, msg)
	o.mu.Unlock()

	zap.L().Info("notify: outbox delivered",
		zap.String("message_id", msg.ID),
		zap.String("to", privacy.RedactContact(to)),
	)
	return model.DeliverySent, nil
}

// Sent returns a copy of the delivered messages.
func (o *Outbox) Sent() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.sent...)
}
