package internal

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"datatrans/config"
	"datatrans/entity"
	"datatrans/services"
)

const aliasMissingMessage = "No alias was provided with the payment. " +
	"Ensure that the necessary option is selected or use a different payment provider."

// Payments integrates the shop with the Datatrans offsite gateway: it builds
// the signed redirect request for a checkout attempt and processes the
// gateway's return and notify callbacks. Fine-grained locking per reference
// number keeps concurrent callbacks for the same payment serialized while
// different payments are processed in parallel.
type Payments struct {
	conf     *config.Config
	database services.Database
	logger   services.LogHandler
	notifier services.UserNotifier
	gateway  services.GatewayAPI
	signer   *Signer
	locks    sync.Map // map[string]*sync.Mutex for per-reference locking
	now      func() time.Time
}

// NewPayments creates the payment service. With security level 2 the signature
// engine is built here, so missing key material fails at boot instead of on
// the first checkout.
func NewPayments(conf *config.Config) (*Payments, error) {
	p := &Payments{
		conf: conf,
		now:  time.Now,
	}
	if conf.Gateway.SecurityLevel == 2 {
		signer, err := NewSigner(conf)
		if err != nil {
			return nil, fmt.Errorf("signature engine: %w", err)
		}
		p.signer = signer
	}
	return p, nil
}

func (p *Payments) SetDatabase(database services.Database) {
	p.database = database
}

func (p *Payments) SetLogger(logger services.LogHandler) {
	p.logger = logger
}

func (p *Payments) SetNotifier(notifier services.UserNotifier) {
	p.notifier = notifier
}

func (p *Payments) SetGatewayAPI(gateway services.GatewayAPI) {
	p.gateway = gateway
}

// SetClock replaces the time source, used by tests.
func (p *Payments) SetClock(now func() time.Time) {
	p.now = now
}

// Signer exposes the signature engine so the transaction client can sign its
// requests with the same key selection.
func (p *Payments) Signer() *Signer {
	return p.signer
}

// lockRef acquires a lock for a specific reference number so the two callback
// paths for the same payment cannot interleave.
func (p *Payments) lockRef(refno string) *sync.Mutex {
	value, _ := p.locks.LoadOrStore(refno, &sync.Mutex{})
	mutex := value.(*sync.Mutex)
	mutex.Lock()
	return mutex
}

// unlockRef releases the lock and removes the mutex from the map to prevent
// unbounded growth.
func (p *Payments) unlockRef(refno string, mutex *sync.Mutex) {
	mutex.Unlock()
	p.locks.Delete(refno)
}

// BuildRedirect prepares the signed parameter set for the offsite redirect.
// A pending payment record is created and saved before signing when none
// exists yet, so the reference number signed over is stable end-to-end.
func (p *Payments) BuildRedirect(ctx context.Context, order *entity.Order) (*entity.PaymentRequest, error) {
	gateway := &p.conf.Gateway
	if gateway.MerchantID == "" || gateway.ServiceURL == "" {
		return nil, fmt.Errorf("merchant not configured")
	}
	if order == nil || order.ID == "" {
		return nil, fmt.Errorf("order without identifier")
	}
	if p.database == nil {
		return nil, fmt.Errorf("database not set")
	}

	amount, err := entity.ToMinorUnits(order.Total, order.Currency)
	if err != nil {
		return nil, fmt.Errorf("order %s amount: %w", order.ID, err)
	}

	mutex := p.lockRef(order.ID)
	defer p.unlockRef(order.ID, mutex)

	payment, err := p.database.GetPayment(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("load payment %s: %w", order.ID, err)
	}
	if payment == nil {
		payment = entity.NewPayment(order.ID, amount, order.Currency, p.now())
		if err = p.database.CreatePayment(ctx, payment); err != nil {
			return nil, fmt.Errorf("create payment %s: %w", order.ID, err)
		}
		p.logger.Info(fmt.Sprintf("payment %s created pending, amount %d %s", payment.RefNo, amount, order.Currency))
	} else {
		if payment.Status.Final() {
			return nil, fmt.Errorf("payment %s already completed with status %s", payment.RefNo, payment.Status)
		}
		if payment.Amount != amount || payment.Currency != order.Currency {
			payment.Amount = amount
			payment.Currency = order.Currency
			if err = p.database.SavePayment(ctx, payment); err != nil {
				return nil, fmt.Errorf("save payment %s: %w", payment.RefNo, err)
			}
		}
	}

	request := &entity.PaymentRequest{
		ServiceURL:  gateway.ServiceURL,
		MerchantID:  gateway.MerchantID,
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		RefNo:       payment.RefNo,
		RequestType: wireRequestType(gateway.RequestType),
		UseAlias:    gateway.UseAlias,
		SuccessURL:  p.returnURL("success"),
		ErrorURL:    p.returnURL("error"),
		CancelURL:   p.returnURL("cancel"),
	}

	switch gateway.SecurityLevel {
	case 1:
		request.Sign = gateway.Sign
	case 2:
		request.Sign2 = p.signer.Sign(strconv.FormatInt(payment.Amount, 10), payment.Currency, payment.RefNo)
	}

	p.logger.Debug(fmt.Sprintf("redirect for payment %s: %s", payment.RefNo, request.FormValues().Encode()))
	return request, nil
}

// wireRequestType maps the configured request type to the value sent with the
// redirect. The conditional flow authorizes only; settlement is a separate
// call made when the callback arrives. With "ignore" the gateway admin
// setting decides and no value is sent.
func wireRequestType(requestType string) string {
	switch requestType {
	case config.RequestTypeAutoSettle:
		return config.RequestTypeAutoSettle
	case config.RequestTypeAuthorize, config.RequestTypeConditional:
		return config.RequestTypeAuthorize
	}
	return ""
}

func (p *Payments) returnURL(result string) string {
	return p.conf.Gateway.ReturnBase + "/return/" + result
}

// ProcessCallback validates one inbound callback and, on success, drives the
// payment record to its terminal state. Validation is fail-closed and
// short-circuits on the first failure; no validation failure ever touches the
// record. The kind only selects what is reported back to the caller.
func (p *Payments) ProcessCallback(ctx context.Context, kind entity.CallbackKind, form url.Values) *entity.CallbackResult {
	notification := entity.ParseNotification(form)

	if notification.IsEmpty() || notification.RefNo == "" {
		p.logger.Warn(fmt.Sprintf("%s callback without reference number", kind))
		return p.result(kind, entity.OutcomeMalformedCallback)
	}

	if err := p.database.SaveNotification(ctx, notification); err != nil {
		p.logger.Error("save callback", err)
	}

	mutex := p.lockRef(notification.RefNo)
	defer p.unlockRef(notification.RefNo, mutex)

	payment, err := p.database.GetPayment(ctx, notification.RefNo)
	if err != nil {
		p.logger.Error(fmt.Sprintf("load payment %s", notification.RefNo), err)
		return p.result(kind, entity.OutcomeUnknownReference)
	}
	if payment == nil {
		p.logger.Warn(fmt.Sprintf("%s callback for unknown reference %s", kind, notification.RefNo))
		return p.result(kind, entity.OutcomeUnknownReference)
	}

	// Remote decline and user cancellation are terminal for this callback but
	// leave the record pending; the checkout flow decides about a retry.
	if notification.Status == entity.CallbackError {
		p.logger.Warn(fmt.Sprintf("gateway returned error code %s (%s) with details %q for payment %s",
			notification.ErrorCode, notification.ErrorText(), notification.ErrorDetail, payment.RefNo))
		p.tellUser(kind, entity.OutcomeGatewayError)
		return p.result(kind, entity.OutcomeGatewayError)
	}
	if notification.Status == entity.CallbackCancel {
		p.logger.Info(fmt.Sprintf("user cancelled the authorisation process for payment %s", payment.RefNo))
		p.tellUser(kind, entity.OutcomeUserCancelled)
		return p.result(kind, entity.OutcomeUserCancelled)
	}

	// Guards against downgrade: a callback claiming a weaker security level
	// than configured could otherwise strip the signature check.
	configuredLevel := strconv.Itoa(p.conf.Gateway.SecurityLevel)
	if notification.SecurityLevel == "" || notification.SecurityLevel != configuredLevel {
		p.logger.Warn(fmt.Sprintf("security level mismatch for payment %s: got %q, configured %s",
			payment.RefNo, notification.SecurityLevel, configuredLevel))
		return p.result(kind, entity.OutcomeSecurityLevelMismatch)
	}

	// The signature is recomputed from what the gateway reports, never from
	// locally cached values.
	if p.conf.Gateway.SecurityLevel == 2 {
		if !p.signer.Verify(notification.Sign2, notification.Amount, notification.Currency, notification.UppTransactionID) {
			p.logger.Warn(fmt.Sprintf("non matching signs for payment %s (error code %s: %s)",
				payment.RefNo, notification.ErrorCode, notification.ErrorDetail))
			return p.result(kind, entity.OutcomeInvalidSignature)
		}
	}

	if notification.Status != entity.CallbackSuccess {
		p.logger.Warn(fmt.Sprintf("unexpected status %q for payment %s after validation", notification.Status, payment.RefNo))
		return p.result(kind, entity.OutcomeProtocolViolation)
	}

	// Both callback paths can deliver the same terminal result, in any order
	// and more than once. A record that is already final is acknowledged
	// without another commit.
	if payment.Status.Final() {
		p.logger.Info(fmt.Sprintf("payment %s already %s, ignoring duplicate %s callback", payment.RefNo, payment.Status, kind))
		return p.result(kind, entity.OutcomeAlreadyProcessed)
	}

	// The gateway's reported amount is authoritative; with level 2 it is
	// covered by the verified signature.
	if amount, err := strconv.ParseInt(notification.Amount, 10, 64); err == nil && amount > 0 {
		payment.Amount = amount
	}
	if notification.Currency != "" {
		payment.Currency = notification.Currency
	}
	// Merged before the settlement branch: the transaction client needs the
	// gateway transaction id from this callback to act on the authorization.
	payment.MergeDetails(notification.Details())

	if p.conf.Gateway.UseAlias && notification.AliasCC == "" {
		if done := p.recoverMissingAlias(ctx, kind, payment, notification); done != nil {
			return done
		}
	}

	if p.conf.Gateway.RequestType == config.RequestTypeConditional {
		return p.settle(ctx, kind, payment, notification)
	}

	status := entity.StatusAuthorized
	outcome := entity.OutcomeAuthorized
	if p.conf.Gateway.RequestType == config.RequestTypeAutoSettle {
		status = entity.StatusCaptured
		outcome = entity.OutcomeCaptured
	}
	if err = p.commit(ctx, payment, notification, status); err != nil {
		p.logger.Error(fmt.Sprintf("commit payment %s", payment.RefNo), err)
		return p.result(kind, entity.OutcomeProtocolViolation)
	}
	p.tellUser(kind, outcome)
	return p.result(kind, outcome)
}

// recoverMissingAlias handles a success response that lacks the requested
// stored-card token. With the conditional flow the money is only authorized,
// so the authorization is released; with immediate settlement the payment is
// refunded instead. Either way, a confirmed rollback ends the attempt with a
// user-facing warning. If the rollback is not confirmed the payment is kept:
// a successful payment without recurrence is preferred over no payment.
// Returns nil when processing should continue as a regular success.
func (p *Payments) recoverMissingAlias(ctx context.Context, kind entity.CallbackKind, payment *entity.Payment, notification *entity.Notification) *entity.CallbackResult {
	gateway := &p.conf.Gateway

	if gateway.RequestType == config.RequestTypeConditional {
		state, err := p.gateway.CancelAuthorization(ctx, payment)
		if err == nil && state == gateway.CancelledState {
			if err = p.cancel(ctx, payment, notification, state); err != nil {
				p.logger.Error(fmt.Sprintf("cancel payment %s", payment.RefNo), err)
			}
			p.tellUser(kind, entity.OutcomeAliasMissing)
			return p.result(kind, entity.OutcomeAliasMissing)
		}
		p.logger.Warn(fmt.Sprintf("alias missing but authorization cancelling failed for payment %s", payment.RefNo))
		return nil
	}

	state, err := p.gateway.Refund(ctx, payment)
	if err == nil && state == gateway.RefundedState {
		if err = p.cancel(ctx, payment, notification, state); err != nil {
			p.logger.Error(fmt.Sprintf("refund payment %s", payment.RefNo), err)
		}
		p.tellUser(kind, entity.OutcomeAliasMissing)
		return p.result(kind, entity.OutcomeAliasMissing)
	}
	p.logger.Warn(fmt.Sprintf("alias missing but payment refund failed for payment %s", payment.RefNo))
	return nil
}

// settle completes a conditional payment with the settlement call. An
// authorization that cannot be settled is a payment failure, never a silent
// partial success.
func (p *Payments) settle(ctx context.Context, kind entity.CallbackKind, payment *entity.Payment, notification *entity.Notification) *entity.CallbackResult {
	state, err := p.gateway.Settle(ctx, payment)
	if err != nil || state != p.conf.Gateway.SettledState {
		if err != nil {
			p.logger.Error(fmt.Sprintf("settlement request for payment %s", payment.RefNo), err)
		} else {
			p.logger.Warn(fmt.Sprintf("authorization succeeded but settlement of payment %s ended in state %q", payment.RefNo, state))
		}
		payment.MergeDetails(notification.Details())
		if commitErr := payment.Commit(entity.StatusFailed, notification.RemoteID(), state, p.now()); commitErr != nil {
			p.logger.Error(fmt.Sprintf("commit payment %s", payment.RefNo), commitErr)
		} else if saveErr := p.database.SavePayment(ctx, payment); saveErr != nil {
			p.logger.Error(fmt.Sprintf("save payment %s", payment.RefNo), saveErr)
		}
		p.tellUser(kind, entity.OutcomeSettlementFailed)
		return p.result(kind, entity.OutcomeSettlementFailed)
	}

	if err = p.commit(ctx, payment, notification, entity.StatusCaptured); err != nil {
		p.logger.Error(fmt.Sprintf("commit payment %s", payment.RefNo), err)
		return p.result(kind, entity.OutcomeProtocolViolation)
	}
	p.tellUser(kind, entity.OutcomeCaptured)
	return p.result(kind, entity.OutcomeCaptured)
}

// commit applies the terminal transition and persists the record once.
func (p *Payments) commit(ctx context.Context, payment *entity.Payment, notification *entity.Notification, status entity.PaymentStatus) error {
	payment.MergeDetails(notification.Details())
	if err := payment.Commit(status, notification.RemoteID(), notification.RemoteState(), p.now()); err != nil {
		return err
	}
	if err := p.database.SavePayment(ctx, payment); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	p.logger.Info(fmt.Sprintf("payment %s committed %s, remote id %s", payment.RefNo, status, secret(payment.RemoteID)))
	return nil
}

// cancel rolls a successful-but-unusable payment back to cancelled state.
func (p *Payments) cancel(ctx context.Context, payment *entity.Payment, notification *entity.Notification, remoteState string) error {
	payment.MergeDetails(notification.Details())
	if err := payment.Commit(entity.StatusCancelled, notification.RemoteID(), remoteState, p.now()); err != nil {
		return err
	}
	if err := p.database.SavePayment(ctx, payment); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	p.logger.Info(fmt.Sprintf("payment %s cancelled, remote state %s", payment.RefNo, remoteState))
	return nil
}

// result builds the callback response. Only the browser return path gets a
// redirect target; rejected callbacks carry no internal detail either way.
func (p *Payments) result(kind entity.CallbackKind, outcome entity.Outcome) *entity.CallbackResult {
	r := &entity.CallbackResult{Outcome: outcome}
	if kind == entity.KindReturn && !outcome.Rejected() {
		if outcome.Succeeded() {
			r.RedirectURL = p.conf.Gateway.ResumeURL
		} else {
			r.RedirectURL = p.conf.Gateway.FailureURL
		}
	}
	return r
}

// tellUser emits the end-user message for the browser return path. The notify
// path has no user present.
func (p *Payments) tellUser(kind entity.CallbackKind, outcome entity.Outcome) {
	if kind != entity.KindReturn || p.notifier == nil {
		return
	}
	switch outcome {
	case entity.OutcomeAuthorized, entity.OutcomeCaptured, entity.OutcomeAlreadyProcessed:
		p.notifier.Message("Payment was processed successfully")
	case entity.OutcomeAliasMissing:
		p.notifier.Warning(aliasMissingMessage)
	case entity.OutcomeUserCancelled:
		p.notifier.Warning("The payment was cancelled")
	default:
		p.notifier.Failure("There was a problem while processing your payment")
	}
}

func secret(some string) string {
	if len(some) > 5 {
		return fmt.Sprintf("%s***", some[0:5])
	}
	if some == "" {
		return "?"
	}
	return "***"
}
