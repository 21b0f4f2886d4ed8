package entity

// Outcome classifies the result of processing one gateway callback. Expected
// protocol branches are values, not errors, so callers can tell "reject the
// request" from "record a failed payment" from "log and ignore".
type Outcome string

const (
	// Success terminals.
	OutcomeAuthorized       Outcome = "authorized"
	OutcomeCaptured         Outcome = "captured"
	OutcomeAlreadyProcessed Outcome = "already_processed"

	// Validation rejections; the payment record is never touched.
	OutcomeMalformedCallback     Outcome = "malformed_callback"
	OutcomeUnknownReference      Outcome = "unknown_reference"
	OutcomeSecurityLevelMismatch Outcome = "security_level_mismatch"
	OutcomeInvalidSignature      Outcome = "invalid_signature"

	// Remote terminal results.
	OutcomeGatewayError      Outcome = "gateway_error"
	OutcomeUserCancelled     Outcome = "user_cancelled"
	OutcomeSettlementFailed  Outcome = "settlement_failed"
	OutcomeAliasMissing      Outcome = "alias_missing"
	OutcomeProtocolViolation Outcome = "protocol_violation"
)

// Rejected reports whether the callback failed validation and must be answered
// with a generic 400, leaking no internal detail.
func (o Outcome) Rejected() bool {
	switch o {
	case OutcomeMalformedCallback, OutcomeUnknownReference,
		OutcomeSecurityLevelMismatch, OutcomeInvalidSignature:
		return true
	}
	return false
}

// Succeeded reports whether the checkout attempt ended in a recorded payment.
func (o Outcome) Succeeded() bool {
	switch o {
	case OutcomeAuthorized, OutcomeCaptured, OutcomeAlreadyProcessed:
		return true
	}
	return false
}

// CallbackResult is returned by the callback processor. RedirectURL is set for
// the browser return path only: the resume-checkout page after a successful
// payment, the failure page otherwise.
type CallbackResult struct {
	Outcome     Outcome
	RedirectURL string
}
