package services

import (
	"context"
	"net/url"

	"datatrans/entity"
)

// Payments is the gateway integration: it builds the signed offsite redirect
// for an order and processes the gateway's return/notify callbacks.
type Payments interface {
	BuildRedirect(ctx context.Context, order *entity.Order) (*entity.PaymentRequest, error)
	ProcessCallback(ctx context.Context, kind entity.CallbackKind, form url.Values) *entity.CallbackResult
}
