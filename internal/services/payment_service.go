package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// PaymentProcessor captures a one-off story unlock payment and returns the
// processor's charge reference.
type PaymentProcessor interface {
	Capture(ctx context.Context, userID uuid.UUID, paymentMethodID string) (string, error)
}

// StubPayments accepts every payment. It stands in until a processor
// integration exists.
type StubPayments struct{}

func (StubPayments) Capture(_ context.Context, userID uuid.UUID, paymentMethodID string) (string, error) {
	ref := "stub_" + uuid.NewString()
	slog.Info("payment captured by stub processor",
		"user_id", userID.String(),
		"has_payment_method", paymentMethodID != "",
		"reference", ref,
	)
	return ref, nil
}
