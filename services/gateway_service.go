package services

import (
	"context"

	"datatrans/entity"
)

// GatewayAPI covers the merchant-initiated transaction calls against the
// gateway: capture of a prior authorization, release of an authorization and
// refund of a settled payment. Each call is synchronous and returns the remote
// transaction state reported by the gateway; failures are final for the
// current attempt, retries are an operator concern.
type GatewayAPI interface {
	Settle(ctx context.Context, payment *entity.Payment) (string, error)
	CancelAuthorization(ctx context.Context, payment *entity.Payment) (string, error)
	Refund(ctx context.Context, payment *entity.Payment) (string, error)
}
