package entity

import (
	"net/url"
	"strconv"
)

// PaymentRequest is the signed parameter set for the offsite redirect. The
// caller renders it as an auto-submitting POST form targeting ServiceURL.
type PaymentRequest struct {
	ServiceURL string `json:"service_url"`

	MerchantID string `json:"merchantId"`
	// Amount in minor units (e.g. "1000" = 10.00 EUR)
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	// RefNo correlates the redirect with the gateway's callbacks; it is the
	// payment record's reference number.
	RefNo string `json:"refno"`
	// RequestType is forwarded unless the gateway admin setting decides.
	RequestType string `json:"reqtype,omitempty"`
	UseAlias    bool   `json:"use_alias,omitempty"`

	// Sign is the static merchant control sign, security level 1 only.
	Sign string `json:"sign,omitempty"`
	// Sign2 is the computed HMAC signature, security level 2 only.
	Sign2 string `json:"sign2,omitempty"`

	SuccessURL string `json:"successUrl"`
	ErrorURL   string `json:"errorUrl"`
	CancelURL  string `json:"cancelUrl"`
}

// FormValues returns the POST fields in wire format. Fields that are empty
// for the configured security level are left out entirely.
func (r *PaymentRequest) FormValues() url.Values {
	values := url.Values{}
	values.Set("merchantId", r.MerchantID)
	values.Set("amount", strconv.FormatInt(r.Amount, 10))
	values.Set("currency", r.Currency)
	values.Set("refno", r.RefNo)
	values.Set("successUrl", r.SuccessURL)
	values.Set("errorUrl", r.ErrorURL)
	values.Set("cancelUrl", r.CancelURL)
	if r.RequestType != "" {
		values.Set("reqtype", r.RequestType)
	}
	if r.UseAlias {
		values.Set("useAlias", "yes")
	}
	if r.Sign != "" {
		values.Set("sign", r.Sign)
	}
	if r.Sign2 != "" {
		values.Set("sign2", r.Sign2)
	}
	return values
}
