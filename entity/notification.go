package entity

import "net/url"

// CallbackKind tells which delivery path a gateway callback arrived on. The
// kind only decides what is sent back to the caller; validation and state
// handling are identical for both.
type CallbackKind string

const (
	// KindReturn is the browser redirect the customer follows back to the shop.
	KindReturn CallbackKind = "return"
	// KindNotify is the server-to-server notification, delivered at least once.
	KindNotify CallbackKind = "notify"
)

// Callback status values reported by the gateway.
const (
	CallbackSuccess = "success"
	CallbackError   = "error"
	CallbackCancel  = "cancel"
)

// detailFields are copied verbatim from a validated callback into the payment
// record. No further validation, these are informational.
var detailFields = []string{
	"uppCustomerTitle",
	"uppCustomerName",
	"uppCustomerFirstName",
	"uppCustomerLastName",
	"uppCustomerStreet",
	"uppCustomerStreet2",
	"uppCustomerCity",
	"uppCustomerCountry",
	"uppCustomerZipCode",
	"uppCustomerPhone",
	"uppCustomerFax",
	"uppCustomerEmail",
	"uppCustomerGender",
	"uppCustomerBirthDate",
	"uppCustomerLanguage",
	"aliasCC",
	"maskedCC",
	"expy",
	"expm",
	"pmethod",
	"testOnly",
	"authorizationCode",
	"responseCode",
	"uppTransactionId",
}

// Notification is the body of an inbound gateway callback, return or notify.
// It is untrusted input until the processor has validated it.
type Notification struct {
	Status   string `bson:"status"`
	RefNo    string `bson:"refno"`
	Amount   string `bson:"amount"` // minor units, signed as-is
	Currency string `bson:"currency"`

	UppTransactionID  string `bson:"upp_transaction_id"`
	AuthorizationCode string `bson:"authorization_code"`
	ResponseMessage   string `bson:"response_message"`
	ErrorCode         string `bson:"error_code"`
	ErrorDetail       string `bson:"error_detail"`

	SecurityLevel string `bson:"security_level"`
	Sign2         string `bson:"sign2"`
	AliasCC       string `bson:"alias_cc"`

	raw url.Values
}

// ParseNotification reads a callback body from its POST form values.
func ParseNotification(values url.Values) *Notification {
	return &Notification{
		Status:            values.Get("status"),
		RefNo:             values.Get("refno"),
		Amount:            values.Get("amount"),
		Currency:          values.Get("currency"),
		UppTransactionID:  values.Get("uppTransactionId"),
		AuthorizationCode: values.Get("authorizationCode"),
		ResponseMessage:   values.Get("responseMessage"),
		ErrorCode:         values.Get("errorCode"),
		ErrorDetail:       values.Get("errorDetail"),
		SecurityLevel:     values.Get("security_level"),
		Sign2:             values.Get("sign2"),
		AliasCC:           values.Get("aliasCC"),
		raw:               values,
	}
}

// IsEmpty reports whether the callback carried no usable data at all.
func (n *Notification) IsEmpty() bool {
	return len(n.raw) == 0
}

// RemoteID returns the identifier to store as the remote transaction id.
// The authorization code is preferred; older gateway revisions only sent the
// transaction id.
func (n *Notification) RemoteID() string {
	if n.AuthorizationCode != "" {
		return n.AuthorizationCode
	}
	return n.UppTransactionID
}

// RemoteState returns the human-readable remote state string for the record.
func (n *Notification) RemoteState() string {
	if n.ResponseMessage != "" {
		return n.ResponseMessage
	}
	return n.Status
}

// Details extracts the informational fields present in the callback.
func (n *Notification) Details() map[string]string {
	details := make(map[string]string)
	for _, key := range detailFields {
		if value := n.raw.Get(key); value != "" {
			details[key] = value
		}
	}
	return details
}

// errorCodes maps the gateway's numeric error codes to log text.
var errorCodes = map[string]string{
	"1001": "required parameter missing",
	"1002": "incorrect parameter format",
	"1003": "parameter value out of range",
	"1004": "invalid card number",
	"1007": "access denied by sign control, parameter sign invalid",
	"1008": "merchant disabled by the gateway",
	"1400": "invalid expiry date",
	"1403": "transaction declined by acquirer",
	"2000": "access denied, sign not valid",
	"3000": "denied by card issuer",
	"3001": "declined by fraud management",
	"3006": "card limit exceeded",
}

// ErrorText translates the callback's error code into readable text.
func (n *Notification) ErrorText() string {
	if text, ok := errorCodes[n.ErrorCode]; ok {
		return text
	}
	return "unknown error"
}

// DataType implements the log data interface; raw callbacks are kept in the
// persistent payment log.
func (n *Notification) DataType() string {
	return "callback"
}
