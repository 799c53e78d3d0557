package payment

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/money"
	"github.com/BruksfildServices01/salon-platform/internal/stripeterminal"
)

// Terminal is implemented by *stripeterminal.Client.
type Terminal interface {
	ConnectionToken(ctx context.Context, account string) (string, error)
	ListReaders(ctx context.Context, account string) ([]stripeterminal.Reader, error)
	CreatePaymentIntent(ctx context.Context, account string, amount int64, currency string, metadata map[string]string) (*stripeterminal.Intent, error)
	ProcessOnReader(ctx context.Context, account, readerID, intentID string) error
	GetPaymentIntent(ctx context.Context, account, intentID string) (*stripeterminal.Intent, error)
	CancelPaymentIntent(ctx context.Context, account, intentID string) error
}

// Accounts resolves the tenant's connected Stripe account.
type Accounts interface {
	Connection(ctx context.Context, tenantID, kind string) (*models.PaymentProvider, error)
}

type TerminalInput struct {
	ReaderID      string
	Amount        float64
	Currency      string
	AppointmentID *uint
}

type TerminalService struct {
	terminal        Terminal
	accounts        Accounts
	store           Store
	defaultCurrency string
	now             func() time.Time
	log             logrus.FieldLogger
}

func NewTerminalService(
	terminal Terminal,
	accounts Accounts,
	store Store,
	defaultCurrency string,
	log logrus.FieldLogger,
) *TerminalService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if defaultCurrency == "" {
		defaultCurrency = "nok"
	}
	return &TerminalService{
		terminal:        terminal,
		accounts:        accounts,
		store:           store,
		defaultCurrency: strings.ToLower(defaultCurrency),
		now:             time.Now,
		log:             log.WithField("component", "terminal"),
	}
}

func (s *TerminalService) account(ctx context.Context, tenantID string) (string, error) {
	conn, err := s.accounts.Connection(ctx, tenantID, models.ProviderStripeConnect)
	if err != nil {
		return "", err
	}
	if conn.ProviderAccountID == "" {
		return "", httperr.New(httperr.KindUpstreamAuth, "provider_not_connected")
	}
	return conn.ProviderAccountID, nil
}

func (s *TerminalService) ConnectionToken(ctx context.Context, tenantID string) (string, error) {
	acct, err := s.account(ctx, tenantID)
	if err != nil {
		return "", err
	}
	return s.terminal.ConnectionToken(ctx, acct)
}

func (s *TerminalService) Readers(ctx context.Context, tenantID string) ([]stripeterminal.Reader, error) {
	acct, err := s.account(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.terminal.ListReaders(ctx, acct)
}

// Start creates a card-present PaymentIntent and pushes it to the reader.
func (s *TerminalService) Start(ctx context.Context, tenantID string, in TerminalInput) (*models.Payment, error) {
	amount := money.MinorUnits(in.Amount)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if in.ReaderID == "" {
		return nil, httperr.New(httperr.KindValidation, "reader_required")
	}
	currency := strings.ToLower(in.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}

	acct, err := s.account(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	meta := map[string]string{"tenant_id": tenantID}
	if in.AppointmentID != nil {
		meta["appointment_id"] = strconv.FormatUint(uint64(*in.AppointmentID), 10)
	}

	intent, err := s.terminal.CreatePaymentIntent(ctx, acct, amount, currency, meta)
	if err != nil {
		return nil, err
	}

	p := &models.Payment{
		TenantID:      tenantID,
		AppointmentID: in.AppointmentID,
		Provider:      models.ProviderStripeConnect,
		Reference:     intent.ID,
		ReaderID:      in.ReaderID,
		Amount:        amount,
		Currency:      strings.ToUpper(currency),
		Status:        models.PaymentPending,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"reader_id": in.ReaderID,
		"intent_id": intent.ID,
	})

	if err := s.terminal.ProcessOnReader(ctx, acct, in.ReaderID, intent.ID); err != nil {
		log.WithError(err).Warn("reader refused payment intent")
		if _, ferr := s.store.Finish(ctx, intent.ID, models.PaymentFailed, err.Error(), "", s.now()); ferr != nil {
			log.WithError(ferr).Error("failed to record payment result")
		}
		return nil, err
	}

	if err := s.store.UpdateProgress(ctx, intent.ID, "processing"); err != nil {
		log.WithError(err).Warn("failed to record payment progress")
	}
	p.Status = models.PaymentInProgress
	p.Progress = "processing"

	log.WithField("amount", amount).Info("terminal payment started")
	return p, nil
}

// Sync refreshes an open record from the PaymentIntent's current status.
func (s *TerminalService) Sync(ctx context.Context, tenantID, intentID string) (*models.Payment, error) {
	p, err := s.lookup(ctx, tenantID, intentID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PaymentPending && p.Status != models.PaymentInProgress {
		return p, nil
	}

	acct, err := s.account(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	intent, err := s.terminal.GetPaymentIntent(ctx, acct, intentID)
	if err != nil {
		return nil, err
	}

	var status string
	switch intent.Status {
	case stripeterminal.IntentSucceeded:
		status = models.PaymentCompleted
	case stripeterminal.IntentCanceled:
		status = models.PaymentCanceled
	default:
		return p, nil
	}

	if _, err := s.store.Finish(ctx, intentID, status, "", "", s.now()); err != nil {
		return nil, err
	}
	return s.lookup(ctx, tenantID, intentID)
}

func (s *TerminalService) Cancel(ctx context.Context, tenantID, intentID string) error {
	p, err := s.lookup(ctx, tenantID, intentID)
	if err != nil {
		return err
	}
	if p.Status != models.PaymentPending && p.Status != models.PaymentInProgress {
		return httperr.ErrBusiness("payment_not_open")
	}

	acct, err := s.account(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := s.terminal.CancelPaymentIntent(ctx, acct, intentID); err != nil {
		return err
	}

	_, err = s.store.Finish(ctx, intentID, models.PaymentCanceled, "", "", s.now())
	return err
}

func (s *TerminalService) lookup(ctx context.Context, tenantID, intentID string) (*models.Payment, error) {
	p, err := s.store.GetByReference(ctx, tenantID, intentID)
	if err != nil {
		return nil, notFound(err)
	}
	if p.Provider != models.ProviderStripeConnect {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}
