// Package stripeterminal drives Stripe Terminal readers on a tenant's
// connected Stripe account.
package stripeterminal

import (
	"context"
	"errors"
	"net/http"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
)

type Reader struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	DeviceType string `json:"device_type"`
	Status     string `json:"status"`
	Serial     string `json:"serial_number"`
}

type Intent struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// Intent statuses the payment records care about.
const (
	IntentSucceeded = string(stripe.PaymentIntentStatusSucceeded)
	IntentCanceled  = string(stripe.PaymentIntentStatusCanceled)
)

type Client struct {
	api *client.API
}

// NewClient uses the platform secret key; every call is made on behalf of
// the connected account passed to it. backends may be nil.
func NewClient(secretKey string, backends *stripe.Backends) *Client {
	return &Client{api: client.New(secretKey, backends)}
}

// ConnectionToken returns the secret a Terminal SDK uses to reach the account.
func (c *Client) ConnectionToken(ctx context.Context, account string) (string, error) {
	params := &stripe.TerminalConnectionTokenParams{}
	params.Context = ctx
	params.SetStripeAccount(account)

	tok, err := c.api.TerminalConnectionTokens.New(params)
	if err != nil {
		return "", mapError(err)
	}
	return tok.Secret, nil
}

func (c *Client) ListReaders(ctx context.Context, account string) ([]Reader, error) {
	params := &stripe.TerminalReaderListParams{}
	params.Context = ctx
	params.SetStripeAccount(account)

	var out []Reader
	it := c.api.TerminalReaders.List(params)
	for it.Next() {
		r := it.TerminalReader()
		out = append(out, Reader{
			ID:         r.ID,
			Label:      r.Label,
			DeviceType: string(r.DeviceType),
			Status:     string(r.Status),
			Serial:     r.SerialNumber,
		})
	}
	if err := it.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// CreatePaymentIntent creates a card-present intent captured automatically.
// amount is in minor units.
func (c *Client) CreatePaymentIntent(
	ctx context.Context,
	account string,
	amount int64,
	currency string,
	metadata map[string]string,
) (*Intent, error) {

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card_present"}),
		CaptureMethod:      stripe.String(string(stripe.PaymentIntentCaptureMethodAutomatic)),
	}
	params.Context = ctx
	params.SetStripeAccount(account)
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, mapError(err)
	}
	return toIntent(pi), nil
}

// ProcessOnReader hands the intent to the reader, which prompts for the card.
func (c *Client) ProcessOnReader(ctx context.Context, account, readerID, intentID string) error {
	params := &stripe.TerminalReaderProcessPaymentIntentParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx
	params.SetStripeAccount(account)

	_, err := c.api.TerminalReaders.ProcessPaymentIntent(readerID, params)
	return mapError(err)
}

func (c *Client) GetPaymentIntent(ctx context.Context, account, intentID string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.SetStripeAccount(account)

	pi, err := c.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, mapError(err)
	}
	return toIntent(pi), nil
}

func (c *Client) CancelPaymentIntent(ctx context.Context, account, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	params.SetStripeAccount(account)

	_, err := c.api.PaymentIntents.Cancel(intentID, params)
	return mapError(err)
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:       pi.ID,
		Amount:   pi.Amount,
		Currency: string(pi.Currency),
		Status:   string(pi.Status),
	}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	var se *stripe.Error
	if !errors.As(err, &se) {
		return httperr.Wrap(httperr.KindUpstreamTransient, "transport_error", err)
	}

	switch {
	case se.HTTPStatusCode == http.StatusUnauthorized || se.HTTPStatusCode == http.StatusForbidden:
		return httperr.Wrap(httperr.KindUpstreamAuth, "session_expired", err)
	case se.HTTPStatusCode == http.StatusNotFound:
		return httperr.Wrap(httperr.KindNotFound, "provider_resource_not_found", err)
	case se.HTTPStatusCode == http.StatusTooManyRequests || se.HTTPStatusCode >= 500:
		return httperr.Wrap(httperr.KindUpstreamTransient, "provider_unavailable", err)
	default:
		return httperr.Wrap(httperr.KindValidation, "provider_rejected", err)
	}
}
