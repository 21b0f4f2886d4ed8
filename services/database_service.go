package services

import (
	"context"

	"datatrans/entity"
)

// Database is the external repository owning payment records. A save is atomic
// and visible to the next load; the processor does a single commit write per
// terminal outcome so either optimistic or pessimistic concurrency control on
// the caller's side works.
type Database interface {
	WriteLogMessage(data Data) error

	// GetPayment returns (nil, nil) when no record exists for the reference.
	GetPayment(ctx context.Context, refno string) (*entity.Payment, error)
	CreatePayment(ctx context.Context, payment *entity.Payment) error
	SavePayment(ctx context.Context, payment *entity.Payment) error

	// SaveNotification keeps the raw callback in the persistent payment log.
	SaveNotification(ctx context.Context, notification *entity.Notification) error
}

type Data interface {
	DataType() string
}
