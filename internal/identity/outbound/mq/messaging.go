// Package mq publishes authentication lifecycle audit events.
package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lendfast/dealready/internal/identity/usecase"
	"github.com/lendfast/dealready/internal/pkg/instrument"
	"github.com/lendfast/dealready/internal/pkg/messaging"
	"go.opentelemetry.io/otel/codes"
)

// Audit event destinations. Consumers subscribe per event.
const (
	DestinationSignedIn      = "auth.signed_in"
	DestinationSignedOut     = "auth.signed_out"
	DestinationMFAEnrolled   = "auth.mfa_enrolled"
	DestinationMFAUnenrolled = "auth.mfa_unenrolled"
)

const keyOfCorrelationID string = "cID"

// AuditMessage is the wire form of an authentication audit event.
type AuditMessage struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	FactorID   string    `json:"factor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
	now    func() time.Time
}

func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins, now: time.Now}
}

func (m *Messaging) PublishSignedIn(ctx context.Context, msg usecase.AuthEvent) error {
	return m.publish(ctx, "PublishSignedIn", DestinationSignedIn, msg)
}

func (m *Messaging) PublishSignedOut(ctx context.Context, msg usecase.AuthEvent) error {
	return m.publish(ctx, "PublishSignedOut", DestinationSignedOut, msg)
}

func (m *Messaging) PublishMFAEnrolled(ctx context.Context, msg usecase.AuthEvent) error {
	return m.publish(ctx, "PublishMFAEnrolled", DestinationMFAEnrolled, msg)
}

func (m *Messaging) PublishMFAUnenrolled(ctx context.Context, msg usecase.AuthEvent) error {
	return m.publish(ctx, "PublishMFAUnenrolled", DestinationMFAUnenrolled, msg)
}

func (m *Messaging) publish(ctx context.Context, op, destination string, msg usecase.AuthEvent) error {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, op)
	defer span.End()

	body, err := json.Marshal(AuditMessage{
		UserID:     msg.UserID,
		Email:      msg.Email,
		FactorID:   msg.FactorID,
		OccurredAt: m.now(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, destination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(msg.UserID),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
