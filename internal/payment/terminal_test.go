package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/infra/repository"
	"github.com/BruksfildServices01/salon-platform/internal/logging"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/stripeterminal"
	"github.com/BruksfildServices01/salon-platform/internal/testdb"
)

type fakeTerminal struct {
	intents    map[string]*stripeterminal.Intent
	processErr error
	processed  []string
	canceled   []string
	accounts   []string
}

func newFakeTerminal() *fakeTerminal {
	return &fakeTerminal{intents: map[string]*stripeterminal.Intent{}}
}

func (f *fakeTerminal) ConnectionToken(_ context.Context, account string) (string, error) {
	f.accounts = append(f.accounts, account)
	return "pst_" + account, nil
}

func (f *fakeTerminal) ListReaders(_ context.Context, account string) ([]stripeterminal.Reader, error) {
	f.accounts = append(f.accounts, account)
	return []stripeterminal.Reader{{ID: "tmr_1", Status: "online"}}, nil
}

func (f *fakeTerminal) CreatePaymentIntent(_ context.Context, account string, amount int64, currency string, _ map[string]string) (*stripeterminal.Intent, error) {
	f.accounts = append(f.accounts, account)
	pi := &stripeterminal.Intent{ID: "pi_" + string(rune('0'+len(f.intents)+1)), Amount: amount, Currency: currency, Status: "requires_payment_method"}
	f.intents[pi.ID] = pi
	return pi, nil
}

func (f *fakeTerminal) ProcessOnReader(_ context.Context, _, readerID, intentID string) error {
	if f.processErr != nil {
		return f.processErr
	}
	f.processed = append(f.processed, readerID+":"+intentID)
	return nil
}

func (f *fakeTerminal) GetPaymentIntent(_ context.Context, _, intentID string) (*stripeterminal.Intent, error) {
	return f.intents[intentID], nil
}

func (f *fakeTerminal) CancelPaymentIntent(_ context.Context, _, intentID string) error {
	f.canceled = append(f.canceled, intentID)
	f.intents[intentID].Status = stripeterminal.IntentCanceled
	return nil
}

type fakeAccounts struct {
	account string
}

func (f fakeAccounts) Connection(context.Context, string, string) (*models.PaymentProvider, error) {
	if f.account == "" {
		return nil, httperr.New(httperr.KindUpstreamAuth, "provider_not_connected")
	}
	return &models.PaymentProvider{Provider: models.ProviderStripeConnect, ProviderAccountID: f.account}, nil
}

func newTerminalService(t *testing.T, term *fakeTerminal) *TerminalService {
	t.Helper()
	store := repository.NewPaymentGormRepository(testdb.Open(t))
	return NewTerminalService(term, fakeAccounts{account: "acct_1"}, store, "NOK", logging.Discard())
}

func TestTerminalStartAndSync(t *testing.T) {
	term := newFakeTerminal()
	svc := newTerminalService(t, term)
	ctx := context.Background()
	apptID := uint(3)

	p, err := svc.Start(ctx, "t1", TerminalInput{ReaderID: "tmr_1", Amount: 450, AppointmentID: &apptID})
	require.NoError(t, err)

	assert.Equal(t, "pi_1", p.Reference)
	assert.Equal(t, models.ProviderStripeConnect, p.Provider)
	assert.Equal(t, int64(45000), p.Amount)
	assert.Equal(t, "NOK", p.Currency)
	assert.Equal(t, models.PaymentInProgress, p.Status)
	assert.Equal(t, []string{"tmr_1:pi_1"}, term.processed)
	assert.Equal(t, "nok", term.intents["pi_1"].Currency)

	// Still processing on the reader.
	got, err := svc.Sync(ctx, "t1", "pi_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentInProgress, got.Status)

	term.intents["pi_1"].Status = stripeterminal.IntentSucceeded
	got, err = svc.Sync(ctx, "t1", "pi_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)

	err = svc.Cancel(ctx, "t1", "pi_1")
	assert.True(t, httperr.IsBusiness(err, "payment_not_open"))
}

func TestTerminalStartReaderRefuses(t *testing.T) {
	term := newFakeTerminal()
	term.processErr = httperr.New(httperr.KindValidation, "provider_rejected")
	svc := newTerminalService(t, term)
	ctx := context.Background()

	_, err := svc.Start(ctx, "t1", TerminalInput{ReaderID: "tmr_1", Amount: 10})
	assert.True(t, httperr.IsBusiness(err, "provider_rejected"))

	p, err := svc.store.GetByReference(ctx, "t1", "pi_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, p.Status)
}

func TestTerminalCancel(t *testing.T) {
	term := newFakeTerminal()
	svc := newTerminalService(t, term)
	ctx := context.Background()

	_, err := svc.Start(ctx, "t1", TerminalInput{ReaderID: "tmr_1", Amount: 10})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, "t1", "pi_1"))
	assert.Equal(t, []string{"pi_1"}, term.canceled)

	p, err := svc.store.GetByReference(ctx, "t1", "pi_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCanceled, p.Status)

	assert.ErrorIs(t, svc.Cancel(ctx, "t2", "pi_1"), ErrPaymentNotFound)
}

func TestTerminalValidation(t *testing.T) {
	svc := newTerminalService(t, newFakeTerminal())
	ctx := context.Background()

	_, err := svc.Start(ctx, "t1", TerminalInput{ReaderID: "tmr_1", Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Start(ctx, "t1", TerminalInput{Amount: 10})
	assert.True(t, httperr.IsBusiness(err, "reader_required"))
}

func TestTerminalAccountPassthrough(t *testing.T) {
	term := newFakeTerminal()
	svc := newTerminalService(t, term)
	ctx := context.Background()

	secret, err := svc.ConnectionToken(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "pst_acct_1", secret)

	readers, err := svc.Readers(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, readers, 1)
	assert.Equal(t, []string{"acct_1", "acct_1"}, term.accounts)

	svc.accounts = fakeAccounts{}
	_, err = svc.ConnectionToken(ctx, "t1")
	assert.True(t, httperr.IsBusiness(err, "provider_not_connected"))
}
