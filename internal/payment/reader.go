// Package payment starts and tracks card-present payments on a tenant's
// readers and records every attempt as a models.Payment.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/ids"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/money"
	"github.com/BruksfildServices01/salon-platform/internal/readerconnect"
)

// callbackTimeout bounds the store writes made from the reader's read loop.
const callbackTimeout = 10 * time.Second

var (
	ErrPaymentNotFound = httperr.New(httperr.KindNotFound, "payment_not_found")
	ErrInvalidAmount   = httperr.New(httperr.KindValidation, "invalid_amount")
	ErrReaderOffline   = httperr.New(httperr.KindUpstreamTransient, "reader_not_connected")
)

type Tokens interface {
	AccessToken(ctx context.Context, tenantID, kind string) (string, error)
}

// Sessions is implemented by *readerconnect.Registry.
type Sessions interface {
	GetOrCreate(tenantID, linkID, accessToken string) *readerconnect.Session
	Get(tenantID, linkID string) (*readerconnect.Session, bool)
	Remove(tenantID, linkID string)
}

type Store interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByReference(ctx context.Context, tenantID, reference string) (*models.Payment, error)
	UpdateProgress(ctx context.Context, reference, progress string) error
	Finish(ctx context.Context, reference, status, errMsg, payload string, at time.Time) (bool, error)
	ListForAppointment(ctx context.Context, tenantID string, appointmentID uint) ([]models.Payment, error)
}

type StartInput struct {
	Amount        float64
	Currency      string
	Reference     string
	AppointmentID *uint
}

type ReaderService struct {
	tokens   Tokens
	sessions Sessions
	store    Store
	now      func() time.Time
	log      logrus.FieldLogger
}

func NewReaderService(tokens Tokens, sessions Sessions, store Store, log logrus.FieldLogger) *ReaderService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ReaderService{
		tokens:   tokens,
		sessions: sessions,
		store:    store,
		now:      time.Now,
		log:      log.WithField("component", "payment"),
	}
}

// StartReaderPayment sends a payment request to the reader behind linkID and
// returns the pending record. The outcome arrives asynchronously and is
// written to the same record.
func (s *ReaderService) StartReaderPayment(
	ctx context.Context,
	tenantID string,
	linkID string,
	in StartInput,
) (*models.Payment, error) {

	if in.Amount <= 0 || money.MinorUnits(in.Amount) <= 0 {
		return nil, ErrInvalidAmount
	}
	if in.Currency == "" {
		in.Currency = "NOK"
	}

	token, err := s.tokens.AccessToken(ctx, tenantID, models.ProviderZettle)
	if err != nil {
		return nil, err
	}

	session := s.sessions.GetOrCreate(tenantID, linkID, token)
	if session.State() != readerconnect.StateConnected {
		if err := session.Connect(ctx); err != nil {
			return nil, err
		}
	}

	traceID := ids.New()
	p := &models.Payment{
		TenantID:      tenantID,
		AppointmentID: in.AppointmentID,
		Provider:      models.ProviderZettle,
		Reference:     traceID,
		ReaderID:      linkID,
		Amount:        money.MinorUnits(in.Amount),
		Currency:      in.Currency,
		Status:        models.PaymentPending,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"link_id":   linkID,
		"trace_id":  traceID,
	})

	_, err = session.SendPaymentRequest(
		readerconnect.PaymentRequest{
			Amount:    in.Amount,
			Currency:  in.Currency,
			Reference: in.Reference,
			TraceID:   traceID,
		},
		func(pr readerconnect.Progress) { s.onProgress(log, pr) },
		func(r readerconnect.Result) { s.onResult(log, r) },
	)
	if err != nil {
		s.finish(log, traceID, models.PaymentFailed, err.Error(), "")
		p.Status = models.PaymentFailed
		p.ErrorMessage = err.Error()
		if errors.Is(err, readerconnect.ErrNotConnected) {
			return p, ErrReaderOffline
		}
		return p, err
	}

	log.WithField("amount", p.Amount).Info("reader payment started")
	return p, nil
}

func (s *ReaderService) onProgress(log logrus.FieldLogger, pr readerconnect.Progress) {
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	if err := s.store.UpdateProgress(ctx, pr.TraceID, pr.Status); err != nil {
		log.WithError(err).Warn("failed to record payment progress")
	}
}

func (s *ReaderService) onResult(log logrus.FieldLogger, r readerconnect.Result) {
	status := models.PaymentFailed
	switch r.Status {
	case readerconnect.ResultCompleted:
		status = models.PaymentCompleted
	case readerconnect.ResultCanceled:
		status = models.PaymentCanceled
	}

	var payload string
	if len(r.Payload) > 0 && json.Valid(r.Payload) {
		payload = string(r.Payload)
	}

	s.finish(log, r.TraceID, status, r.ErrorMessage, payload)
}

func (s *ReaderService) finish(log logrus.FieldLogger, traceID, status, errMsg, payload string) {
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	ok, err := s.store.Finish(ctx, traceID, status, errMsg, payload, s.now())
	if err != nil {
		log.WithError(err).Error("failed to record payment result")
		return
	}
	if !ok {
		log.WithField("status", status).Debug("payment already settled")
		return
	}
	log.WithField("status", status).Info("reader payment settled")
}

// CancelReaderPayment asks the reader to abort. The record changes only when
// the reader confirms with a CANCELED result.
func (s *ReaderService) CancelReaderPayment(ctx context.Context, tenantID, linkID, traceID string) error {
	p, err := s.GetPayment(ctx, tenantID, traceID)
	if err != nil {
		return err
	}
	if p.ReaderID != linkID {
		return ErrPaymentNotFound
	}
	if p.Status != models.PaymentPending && p.Status != models.PaymentInProgress {
		return httperr.ErrBusiness("payment_not_open")
	}

	session, ok := s.sessions.Get(tenantID, linkID)
	if !ok || session.State() != readerconnect.StateConnected {
		return ErrReaderOffline
	}
	return session.CancelPayment(traceID)
}

func (s *ReaderService) GetPayment(ctx context.Context, tenantID, reference string) (*models.Payment, error) {
	p, err := s.store.GetByReference(ctx, tenantID, reference)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (s *ReaderService) ListForAppointment(ctx context.Context, tenantID string, appointmentID uint) ([]models.Payment, error) {
	return s.store.ListForAppointment(ctx, tenantID, appointmentID)
}

// DisconnectReader closes the live socket for the link, if any.
func (s *ReaderService) DisconnectReader(tenantID, linkID string) {
	s.sessions.Remove(tenantID, linkID)
	s.log.WithFields(logrus.Fields{"tenant_id": tenantID, "link_id": linkID}).Info("reader session removed")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPaymentNotFound
	}
	return err
}
