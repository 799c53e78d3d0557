package readerconnect

import "encoding/json"

const (
	envelopeMessage = "MESSAGE"
	defaultChannel  = "1"

	payloadPaymentRequest  = "PAYMENT_REQUEST"
	payloadCancelRequest   = "CANCEL_PAYMENT_REQUEST"
	payloadPaymentProgress = "PAYMENT_PROGRESS_RESPONSE"
	payloadPaymentResult   = "PAYMENT_RESULT_RESPONSE"

	tippingDefault = "DEFAULT"
)

type envelope struct {
	Type      string          `json:"type"`
	LinkID    string          `json:"linkId,omitempty"`
	ChannelID string          `json:"channelId,omitempty"`
	MessageID string          `json:"messageId"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type paymentRequestPayload struct {
	Type            string `json:"type"`
	AccessToken     string `json:"accessToken"`
	ExpiresAt       int64  `json:"expiresAt"`
	InternalTraceID string `json:"internalTraceId"`
	Amount          int64  `json:"amount"`
	TippingType     string `json:"tippingType"`
}

type cancelPayload struct {
	Type            string `json:"type"`
	InternalTraceID string `json:"internalTraceId"`
}

type inboundPayload struct {
	Type               string          `json:"type"`
	PaymentProgress    string          `json:"paymentProgress"`
	Message            string          `json:"message"`
	ResultStatus       string          `json:"resultStatus"`
	ResultPayload      json.RawMessage `json:"resultPayload"`
	ResultErrorMessage string          `json:"resultErrorMessage"`
}

// ResultStatus is the terminal outcome reported by the reader.
type ResultStatus string

const (
	ResultCompleted ResultStatus = "COMPLETED"
	ResultFailed    ResultStatus = "FAILED"
	ResultCanceled  ResultStatus = "CANCELED"
)

type Progress struct {
	TraceID string
	Status  string
	Message string
}

type Result struct {
	TraceID      string
	Status       ResultStatus
	Payload      json.RawMessage
	ErrorMessage string
}

// PaymentRequest is expressed in major units; it is sent in minor units.
type PaymentRequest struct {
	Amount    float64
	Currency  string
	Reference string
	// TraceID is generated when empty.
	TraceID string
}
