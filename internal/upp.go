package internal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"datatrans/config"
	"datatrans/entity"
	"datatrans/services"
)

// Transaction request types for merchant-initiated calls.
const (
	reqTypeSettle = "COA" // settlement of a prior authorization
	reqTypeCancel = "DOA" // release of a prior authorization
	reqTypeRefund = "COC" // credit of a settled payment
)

// UppClient performs merchant-initiated transaction requests (settle, cancel,
// refund) against the gateway's transaction endpoint. Calls are synchronous
// and blocking; a failure is final for the current attempt.
type UppClient struct {
	conf       *config.Config
	logger     services.LogHandler
	signer     *Signer
	httpClient *http.Client
}

// NewUppClient creates the transaction client with a configured HTTP client.
// The client includes timeouts and connection pooling for reliable external
// API calls. The signer may be nil for security levels below 2.
func NewUppClient(conf *config.Config, signer *Signer) *UppClient {
	return &UppClient{
		conf:   conf,
		signer: signer,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				DisableKeepAlives:   false,
			},
		},
	}
}

func (c *UppClient) SetLogger(logger services.LogHandler) {
	c.logger = logger
}

// Settle captures a previously authorized payment.
func (c *UppClient) Settle(ctx context.Context, payment *entity.Payment) (string, error) {
	return c.request(ctx, reqTypeSettle, payment)
}

// CancelAuthorization releases a previously authorized payment.
func (c *UppClient) CancelAuthorization(ctx context.Context, payment *entity.Payment) (string, error) {
	return c.request(ctx, reqTypeCancel, payment)
}

// Refund credits a settled payment back to the customer.
func (c *UppClient) Refund(ctx context.Context, payment *entity.Payment) (string, error) {
	return c.request(ctx, reqTypeRefund, payment)
}

// request posts one transaction request and returns the remote transaction
// state from the response. The transaction id of the original authorization
// identifies the transaction to act on.
func (c *UppClient) request(ctx context.Context, reqType string, payment *entity.Payment) (string, error) {
	gateway := &c.conf.Gateway

	amount := strconv.FormatInt(payment.Amount, 10)
	transactionID := payment.RemoteID
	if transactionID == "" {
		transactionID = payment.Details["uppTransactionId"]
	}
	if transactionID == "" {
		return "", fmt.Errorf("payment %s has no gateway transaction id", payment.RefNo)
	}

	form := url.Values{}
	form.Set("merchantId", gateway.MerchantID)
	form.Set("reqtype", reqType)
	form.Set("refno", payment.RefNo)
	form.Set("uppTransactionId", transactionID)
	form.Set("amount", amount)
	form.Set("currency", payment.Currency)
	if c.signer != nil {
		form.Set("sign2", c.signer.Sign(amount, payment.Currency, transactionID))
	}

	c.logger.Debug(fmt.Sprintf("%s request for payment %s, transaction %s", reqType, payment.RefNo, secret(transactionID)))

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", gateway.TransactionURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("request timeout or cancelled: %w", ctx.Err())
		}
		return "", fmt.Errorf("post request: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Error("close response body", err)
		}
	}(response.Body)

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway answered %s", response.Status)
	}

	return c.readResponse(body)
}

// readResponse parses the form-encoded transaction response. An error status
// carries the gateway's error code; anything else reports the transaction
// state reached.
func (c *UppClient) readResponse(body []byte) (string, error) {
	params, err := url.ParseQuery(string(body))
	if err != nil {
		c.logger.Warn(fmt.Sprintf("unrecognized response: %s", string(body)))
		return "", fmt.Errorf("parse response: %w", err)
	}

	if params.Get("status") == entity.CallbackError {
		return "", fmt.Errorf("code %s: %s", params.Get("errorCode"), params.Get("errorDetail"))
	}

	state := params.Get("responseMessage")
	if state == "" {
		state = params.Get("status")
	}
	c.logger.Debug(fmt.Sprintf("transaction response state %q", state))
	return state, nil
}
