// Package readerconnect drives card readers over the Reader Connect WebSocket.
//
// A Session owns one socket for a (tenant, link) pair. Outbound payment requests
// are correlated with their progress and result frames by message id; a single
// read pump per socket keeps frames for one message in arrival order.
package readerconnect

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/ids"
	"github.com/BruksfildServices01/salon-platform/internal/money"
	"github.com/BruksfildServices01/salon-platform/internal/obs"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

type PaymentState string

const (
	PaymentRequested  PaymentState = "requested"
	PaymentInProgress PaymentState = "in_progress"
	PaymentCompleted  PaymentState = "completed"
	PaymentFailed     PaymentState = "failed"
	PaymentCanceled   PaymentState = "canceled"
)

// PaymentSession tracks one request sent on this socket. It lives only in memory.
type PaymentSession struct {
	TraceID   string
	MessageID string
	Amount    int64
	Currency  string
	Reference string
	State     PaymentState
	ExpiresAt time.Time
	UpdatedAt time.Time
}

var (
	ErrNotConnected  = httperr.New(httperr.KindUpstreamTransient, "not_connected")
	ErrInvalidAmount = httperr.New(httperr.KindValidation, "invalid_amount")
)

type Config struct {
	// BaseURL is the links endpoint; the socket lives at {BaseURL}/{linkId}/ws.
	BaseURL              string
	ChannelID            string
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	RequestTTL           time.Duration
	DialTimeout          time.Duration
	// SettledTTL is how long a finished payment stays readable through Payment.
	SettledTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "wss://reader-connect.zettle.com/v1/links"
	}
	if c.ChannelID == "" {
		c.ChannelID = defaultChannel
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = 5
	}
	if c.RequestTTL <= 0 {
		c.RequestTTL = time.Hour
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 15 * time.Second
	}
	if c.SettledTTL <= 0 {
		c.SettledTTL = 10 * time.Minute
	}
	return c
}

// Timer is the handle of a scheduled reconnect.
type Timer interface {
	Stop() bool
}

type SessionOption func(*Session)

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithAfterFunc replaces time.AfterFunc for reconnect scheduling.
func WithAfterFunc(fn func(d time.Duration, f func()) Timer) SessionOption {
	return func(s *Session) { s.afterFunc = fn }
}

type handler struct {
	traceID    string
	onProgress func(Progress)
	onResult   func(Result)
}

type Session struct {
	tenantID string
	linkID   string
	cfg      Config
	dialer   Dialer
	log      logrus.FieldLogger

	now       func() time.Time
	afterFunc func(time.Duration, func()) Timer

	// dialMu serializes dials so Connect and a scheduled reconnect never race.
	dialMu sync.Mutex

	mu          sync.Mutex
	state       State
	conn        Conn
	accessToken string
	attempts    int
	closed      bool
	stale       bool
	pending     Timer
	handlers    map[string]*handler
	payments    map[string]*PaymentSession
	onStale     func(*Session)
}

func NewSession(
	tenantID, linkID, accessToken string,
	dialer Dialer,
	cfg Config,
	log logrus.FieldLogger,
	opts ...SessionOption,
) *Session {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}

	s := &Session{
		tenantID:    tenantID,
		linkID:      linkID,
		cfg:         cfg.withDefaults(),
		dialer:      dialer,
		log:         log.WithFields(logrus.Fields{"tenant_id": tenantID, "link_id": linkID}),
		now:         time.Now,
		afterFunc:   func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) },
		state:       StateDisconnected,
		accessToken: accessToken,
		handlers:    make(map[string]*handler),
		payments:    make(map[string]*PaymentSession),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) TenantID() string { return s.tenantID }
func (s *Session) LinkID() string   { return s.linkID }

func (s *Session) URL() string {
	return s.cfg.BaseURL + "/" + s.linkID + "/ws"
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stale reports that reconnects were exhausted; the session will not recover by itself.
func (s *Session) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// SetAccessToken replaces the bearer used for the next dial and payment request.
func (s *Session) SetAccessToken(token string) {
	s.mu.Lock()
	s.accessToken = token
	s.mu.Unlock()
}

// Connect opens the socket and returns once it is usable. Dial failures are
// returned as-is; automatic reconnects only follow an unexpected close.
func (s *Session) Connect(ctx context.Context) error {
	s.dialMu.Lock()
	defer s.dialMu.Unlock()

	s.mu.Lock()
	if s.state == StateConnected {
		s.mu.Unlock()
		return nil
	}
	s.closed = false
	s.stopPendingLocked()
	s.state = StateConnecting
	token := s.accessToken
	s.mu.Unlock()

	return s.dial(ctx, token)
}

func (s *Session) dial(ctx context.Context, token string) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
	defer cancel()

	conn, err := s.dialer.Dial(ctx, s.URL(), header)

	s.mu.Lock()
	if err != nil {
		s.state = StateDisconnected
		s.mu.Unlock()
		return httperr.Wrap(httperr.KindUpstreamTransient, "reader_connect_failed", err)
	}
	if s.closed {
		s.state = StateDisconnected
		s.mu.Unlock()
		_ = conn.Close()
		return ErrNotConnected
	}
	s.conn = conn
	s.state = StateConnected
	s.attempts = 0
	s.stale = false
	s.mu.Unlock()

	s.log.Info("reader connected")
	go s.readPump(conn)
	return nil
}

func (s *Session) readPump(conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			s.handleClose(conn, err)
			return
		}
		s.Dispatch(data)
	}
}

func (s *Session) handleClose(conn Conn, cause error) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.state = StateDisconnected
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.log.WithError(cause).Warn("reader connection closed")
	s.scheduleReconnect()
}

func (s *Session) scheduleReconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if s.attempts >= s.cfg.MaxReconnectAttempts {
		s.stale = true
		s.state = StateDisconnected
		dropped := len(s.handlers)
		s.handlers = make(map[string]*handler)
		onStale := s.onStale
		s.mu.Unlock()

		obs.ReaderReconnects.WithLabelValues("exhausted").Inc()
		s.log.WithField("pending_requests", dropped).Error("reader reconnect attempts exhausted")
		if onStale != nil {
			onStale(s)
		}
		return
	}

	s.attempts++
	attempt := s.attempts
	delay := s.cfg.ReconnectDelay * time.Duration(attempt)
	s.pending = s.afterFunc(delay, s.reconnect)
	s.mu.Unlock()

	obs.ReaderReconnects.WithLabelValues("scheduled").Inc()
	s.log.WithFields(logrus.Fields{
		"attempt": attempt,
		"max":     s.cfg.MaxReconnectAttempts,
		"delay":   delay.String(),
	}).Info("reader reconnect scheduled")
}

func (s *Session) reconnect() {
	s.dialMu.Lock()
	defer s.dialMu.Unlock()

	s.mu.Lock()
	s.pending = nil
	if s.closed || s.state == StateConnected {
		s.mu.Unlock()
		return
	}
	s.state = StateConnecting
	token := s.accessToken
	s.mu.Unlock()

	if err := s.dial(context.Background(), token); err != nil {
		s.log.WithError(err).Warn("reader reconnect failed")
		s.scheduleReconnect()
	}
}

func (s *Session) stopPendingLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

// SendPaymentRequest registers the callbacks and sends the request without
// waiting for the reader. onResult runs at most once.
func (s *Session) SendPaymentRequest(
	req PaymentRequest,
	onProgress func(Progress),
	onResult func(Result),
) (string, error) {
	if req.Amount <= 0 {
		return "", ErrInvalidAmount
	}

	s.mu.Lock()
	if s.state != StateConnected || s.conn == nil {
		s.mu.Unlock()
		return "", ErrNotConnected
	}

	conn := s.conn
	now := s.now()
	messageID := uuid.NewString()
	traceID := req.TraceID
	if traceID == "" {
		traceID = ids.New()
	}
	amount := money.MinorUnits(req.Amount)
	expiresAt := now.Add(s.cfg.RequestTTL)

	data, err := s.encode(messageID, paymentRequestPayload{
		Type:            payloadPaymentRequest,
		AccessToken:     s.accessToken,
		ExpiresAt:       expiresAt.UnixMilli(),
		InternalTraceID: traceID,
		Amount:          amount,
		TippingType:     tippingDefault,
	})
	if err != nil {
		s.mu.Unlock()
		return "", err
	}

	s.evictLocked(now)
	s.handlers[messageID] = &handler{
		traceID:    traceID,
		onProgress: onProgress,
		onResult:   onResult,
	}
	s.payments[traceID] = &PaymentSession{
		TraceID:   traceID,
		MessageID: messageID,
		Amount:    amount,
		Currency:  req.Currency,
		Reference: req.Reference,
		State:     PaymentRequested,
		ExpiresAt: expiresAt,
		UpdatedAt: now,
	}
	s.mu.Unlock()

	if err := conn.WriteMessage(data); err != nil {
		s.mu.Lock()
		delete(s.handlers, messageID)
		delete(s.payments, traceID)
		s.mu.Unlock()
		return "", httperr.Wrap(httperr.KindUpstreamTransient, "not_connected", err)
	}

	s.log.WithFields(logrus.Fields{
		"trace_id":   traceID,
		"message_id": messageID,
		"amount":     amount,
	}).Info("payment request sent")

	return traceID, nil
}

// CancelPayment asks the reader to abort the request with traceID. The reader
// answers with a CANCELED result on the original message when it complies.
func (s *Session) CancelPayment(traceID string) error {
	s.mu.Lock()
	if s.state != StateConnected || s.conn == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}
	conn := s.conn
	s.mu.Unlock()

	data, err := s.encode(uuid.NewString(), cancelPayload{
		Type:            payloadCancelRequest,
		InternalTraceID: traceID,
	})
	if err != nil {
		return err
	}

	if err := conn.WriteMessage(data); err != nil {
		return httperr.Wrap(httperr.KindUpstreamTransient, "not_connected", err)
	}

	s.log.WithField("trace_id", traceID).Info("payment cancel sent")
	return nil
}

// Payment returns a snapshot of the tracked request.
func (s *Session) Payment(traceID string) (PaymentSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[traceID]
	if !ok {
		return PaymentSession{}, false
	}
	return *p, true
}

// Disconnect closes the socket, cancels any pending reconnect and drops all
// registered handlers.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.closed = true
	s.stopPendingLocked()
	conn := s.conn
	s.conn = nil
	s.state = StateDisconnected
	s.handlers = make(map[string]*handler)
	s.payments = make(map[string]*PaymentSession)
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
		s.log.Info("reader disconnected")
	}
}

func (s *Session) encode(messageID string, payload any) ([]byte, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Type:      envelopeMessage,
		LinkID:    s.linkID,
		ChannelID: s.cfg.ChannelID,
		MessageID: messageID,
		Payload:   p,
	})
}

// Dispatch routes one inbound frame. Frames that cannot be parsed or are not
// addressed to a known request are logged and dropped.
func (s *Session) Dispatch(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		obs.ReaderFrames.WithLabelValues("malformed").Inc()
		s.log.WithError(err).Warn("dropping malformed reader frame")
		return
	}

	if env.Type != envelopeMessage || len(env.Payload) == 0 {
		obs.ReaderFrames.WithLabelValues("ignored").Inc()
		s.log.WithField("type", env.Type).Debug("ignoring reader frame")
		return
	}

	var p inboundPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		obs.ReaderFrames.WithLabelValues("malformed").Inc()
		s.log.WithError(err).Warn("dropping reader frame with malformed payload")
		return
	}

	switch p.Type {
	case payloadPaymentProgress:
		obs.ReaderFrames.WithLabelValues("progress").Inc()
		s.handleProgress(env.MessageID, p)
	case payloadPaymentResult:
		obs.ReaderFrames.WithLabelValues("result").Inc()
		s.handleResult(env.MessageID, p)
	default:
		obs.ReaderFrames.WithLabelValues("ignored").Inc()
		s.log.WithField("payload_type", p.Type).Debug("unknown reader message type")
	}
}

func (s *Session) handleProgress(messageID string, p inboundPayload) {
	s.mu.Lock()
	h := s.handlers[messageID]
	if h != nil {
		if ps := s.payments[h.traceID]; ps != nil && ps.State == PaymentRequested {
			ps.State = PaymentInProgress
			ps.UpdatedAt = s.now()
		}
	}
	s.mu.Unlock()

	if h == nil {
		s.log.WithField("message_id", messageID).Debug("progress for unknown message")
		return
	}
	if h.onProgress != nil {
		h.onProgress(Progress{
			TraceID: h.traceID,
			Status:  p.PaymentProgress,
			Message: p.Message,
		})
	}
}

func (s *Session) handleResult(messageID string, p inboundPayload) {
	status := ResultStatus(p.ResultStatus)

	s.mu.Lock()
	h := s.handlers[messageID]
	if h != nil {
		delete(s.handlers, messageID)
		if ps := s.payments[h.traceID]; ps != nil {
			ps.State = paymentStateFor(status)
			ps.UpdatedAt = s.now()
		}
	}
	s.evictLocked(s.now())
	s.mu.Unlock()

	if h == nil {
		s.log.WithField("message_id", messageID).Debug("result for unknown message")
		return
	}

	s.log.WithFields(logrus.Fields{
		"trace_id": h.traceID,
		"status":   status,
	}).Info("payment result received")

	if h.onResult != nil {
		h.onResult(Result{
			TraceID:      h.traceID,
			Status:       status,
			Payload:      p.ResultPayload,
			ErrorMessage: p.ResultErrorMessage,
		})
	}
}

func (p *PaymentSession) settled() bool {
	switch p.State {
	case PaymentCompleted, PaymentFailed, PaymentCanceled:
		return true
	}
	return false
}

// evictLocked forgets payments settled more than SettledTTL ago and requests
// past their expiry. An expired request loses its handler too, so a late
// result is dropped like any unknown message.
func (s *Session) evictLocked(now time.Time) {
	for traceID, ps := range s.payments {
		switch {
		case ps.settled():
			if now.Sub(ps.UpdatedAt) < s.cfg.SettledTTL {
				continue
			}
		case now.Before(ps.ExpiresAt):
			continue
		default:
			delete(s.handlers, ps.MessageID)
		}
		delete(s.payments, traceID)
	}
}

func paymentStateFor(status ResultStatus) PaymentState {
	switch status {
	case ResultCompleted:
		return PaymentCompleted
	case ResultCanceled:
		return PaymentCanceled
	default:
		return PaymentFailed
	}
}
