package invoices

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/kudibooks-backend/internal/credentials"
	"github.com/angelmondragon/kudibooks-backend/internal/quota"
	"github.com/angelmondragon/kudibooks-backend/internal/tasks"
	"github.com/angelmondragon/kudibooks-backend/pkg/config"
	"github.com/angelmondragon/kudibooks-backend/pkg/db"
	"github.com/angelmondragon/kudibooks-backend/pkg/db/dbtest"
	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
	"github.com/angelmondragon/kudibooks-backend/pkg/payments"
	"github.com/angelmondragon/kudibooks-backend/pkg/security"
)

type fakeGateway struct {
	mu       sync.Mutex
	linkFn   func(payments.Credentials, payments.LinkRequest) (*payments.PaymentLink, error)
	verifyFn func(payments.Credentials, payments.VerifyRequest) (*payments.Transaction, error)
	links    []payments.LinkRequest
}

func (g *fakeGateway) CreatePaymentLink(_ context.Context, creds payments.Credentials, req payments.LinkRequest) (*payments.PaymentLink, error) {
	g.mu.Lock()
	g.links = append(g.links, req)
	g.mu.Unlock()
	if g.linkFn != nil {
		return g.linkFn(creds, req)
	}
	return &payments.PaymentLink{URL: "https://checkout.example/" + req.Reference, ProviderReference: "acc_" + req.Reference}, nil
}

func (g *fakeGateway) VerifyTransaction(_ context.Context, creds payments.Credentials, req payments.VerifyRequest) (*payments.Transaction, error) {
	if g.verifyFn != nil {
		return g.verifyFn(creds, req)
	}
	return nil, errors.New("verify not stubbed")
}

type fixture struct {
	svc      *Service
	conn     *gorm.DB
	gateway  *fakeGateway
	taskRepo *tasks.Repository
	tenant   *models.Tenant
}

func newFixture(t *testing.T, plan enums.Plan, platform config.PaymentsConfig) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "invoices-test", Output: io.Discard})

	quotaSvc, err := quota.NewService(quota.NewRepository(conn))
	require.NoError(t, err)
	sealer, err := security.NewSealer("MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=")
	require.NoError(t, err)
	resolver, err := credentials.NewResolver(credentials.ResolverParams{
		Repo:            credentials.NewRepository(conn),
		Sealer:          sealer,
		Platform:        credentials.PlatformCredentials(platform),
		DefaultProvider: enums.PaymentProviderPaystack,
		Logger:          logg,
	})
	require.NoError(t, err)

	taskRepo := tasks.NewRepository(conn)
	gateway := &fakeGateway{}
	svc, err := NewService(ServiceParams{
		Repo:        NewRepository(conn),
		Tx:          db.Wrap(conn),
		Quota:       quotaSvc,
		Credentials: resolver,
		Gateway:     gateway,
		Tasks:       tasks.NewDispatcher(taskRepo, logg, 5),
		Logger:      logg,
		CallbackURL: "https://app.example/paid",
	})
	require.NoError(t, err)

	return &fixture{
		svc:      svc,
		conn:     conn,
		gateway:  gateway,
		taskRepo: taskRepo,
		tenant:   dbtest.SeedTenant(t, conn, plan),
	}
}

func platformPaystack() config.PaymentsConfig {
	return config.PaymentsConfig{PaystackSecretKey: "sk_test_platform"}
}

func (f *fixture) create(t *testing.T, amount string) *CreateResult {
	t.Helper()
	a := decimal.RequireFromString(amount)
	res, err := f.svc.Create(context.Background(), CreateInput{
		TenantID: f.tenant.ID,
		Customer: CustomerInput{Name: "Ada Obi", Email: "ada@example.com", Phone: "+2348030000000"},
		Amount:   &a,
		Currency: "NGN",
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) countTasks(t *testing.T, kind enums.TaskKind) int64 {
	t.Helper()
	n, err := f.taskRepo.CountByState(context.Background(), kind, enums.TaskStatePending)
	require.NoError(t, err)
	return n
}

func (f *fixture) usage(t *testing.T) int {
	t.Helper()
	var tenant models.Tenant
	require.NoError(t, f.conn.Where("id = ?", f.tenant.ID).First(&tenant).Error)
	return tenant.UsageCount
}

func (f *fixture) move(t *testing.T, id string, to enums.InvoiceStatus) *StatusResult {
	t.Helper()
	res, err := f.svc.UpdateStatus(context.Background(), StatusUpdate{
		InvoiceID: id,
		TenantID:  &f.tenant.ID,
		To:        to,
		Source:    enums.StatusSourceManual,
	})
	require.NoError(t, err)
	return res
}

func TestCreatePersistsPendingInvoice(t *testing.T) {
	f := newFixture(t, enums.PlanFree, platformPaystack())
	res := f.create(t, "50000")

	require.NotNil(t, res.Invoice)
	assert.True(t, ValidInvoiceID(res.Invoice.ID))
	assert.Equal(t, enums.InvoiceStatusPending, res.Invoice.Status)
	assert.Equal(t, res.Invoice.ID, res.Invoice.PaymentReference)
	assert.Equal(t, enums.PaymentProviderPaystack, res.Invoice.Provider)
	assert.Equal(t, 4, res.RemainingQuota)
	assert.False(t, res.TenantOwnedCredentials)
	require.NotNil(t, res.PaymentLink)
	assert.Equal(t, "https://checkout.example/"+res.Invoice.ID, *res.PaymentLink)
	assert.Empty(t, res.PaymentLinkError)
	assert.Equal(t, 1, f.usage(t))

	stored, err := f.svc.Get(context.Background(), f.tenant.ID, res.Invoice.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(50000)))
	require.NotNil(t, stored.ProviderReference)
	assert.Equal(t, "acc_"+res.Invoice.ID, *stored.ProviderReference)

	assert.EqualValues(t, 1, f.countTasks(t, enums.TaskKindRenderInvoicePDF))
	render, err := f.taskRepo.FindByDedupeKey(context.Background(), nil, "render:"+res.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Invoice.ID, *render.InvoiceID)

	history, err := f.svc.History(context.Background(), f.tenant.ID, res.Invoice.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].FromStatus)
	assert.Equal(t, enums.InvoiceStatusPending, history[0].ToStatus)

	require.Len(t, f.gateway.links, 1)
	assert.Equal(t, "https://app.example/paid", f.gateway.links[0].CallbackURL)
	assert.Equal(t, "ada@example.com", f.gateway.links[0].Customer.Email)
}

func TestCreateQuotaBoundary(t *testing.T) {
	f := newFixture(t, enums.PlanFree, platformPaystack())
	for i := 0; i < 5; i++ {
		f.create(t, "100")
	}
	a := decimal.NewFromInt(100)
	_, err := f.svc.Create(context.Background(), CreateInput{
		TenantID: f.tenant.ID,
		Customer: CustomerInput{Name: "Late Customer"},
		Amount:   &a,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeQuotaExceeded), "got %v", err)
	details := pkgerrors.As(err).Details().(map[string]any)
	assert.Equal(t, "Upgrade to the starter plan to send up to 50 invoices per month", details["upgrade_hint"])

	var count int64
	require.NoError(t, f.conn.Model(&models.Invoice{}).Count(&count).Error)
	assert.EqualValues(t, 5, count)
	assert.Equal(t, 5, f.usage(t))
}

func TestCreateWithoutCredentialsDoesNotConsumeQuota(t *testing.T) {
	f := newFixture(t, enums.PlanFree, config.PaymentsConfig{})
	a := decimal.NewFromInt(100)
	_, err := f.svc.Create(context.Background(), CreateInput{
		TenantID: f.tenant.ID,
		Customer: CustomerInput{Name: "Ada"},
		Amount:   &a,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodePaymentNotConfigured), "got %v", err)
	assert.Equal(t, 0, f.usage(t))
	assert.EqualValues(t, 0, f.countTasks(t, enums.TaskKindRenderInvoicePDF))
}

func TestCreateSurvivesProviderFailure(t *testing.T) {
	f := newFixture(t, enums.PlanFree, platformPaystack())
	f.gateway.linkFn = func(payments.Credentials, payments.LinkRequest) (*payments.PaymentLink, error) {
		return nil, context.DeadlineExceeded
	}
	res := f.create(t, "2500.50")

	assert.Nil(t, res.PaymentLink)
	assert.NotEmpty(t, res.PaymentLinkError)
	stored, err := f.svc.Get(context.Background(), f.tenant.ID, res.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusPending, stored.Status)
	assert.Nil(t, stored.PaymentLink)
	assert.Equal(t, 1, f.usage(t))

	f.gateway.linkFn = nil
	regenerated, err := f.svc.RegeneratePaymentLink(context.Background(), f.tenant.ID, res.Invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, regenerated.PaymentLink)
}

func TestCreateDerivesAmountFromLines(t *testing.T) {
	f := newFixture(t, enums.PlanStarter, platformPaystack())
	res, err := f.svc.Create(context.Background(), CreateInput{
		TenantID: f.tenant.ID,
		Customer: CustomerInput{Name: "Bisi"},
		Lines: []LineInput{
			{Description: "Ankara fabric", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.RequireFromString("4500")},
			{Description: "Delivery", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("1500.25")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "15000.25", res.Invoice.Amount.StringFixed(2))
	assert.Equal(t, enums.CurrencyNGN, res.Invoice.Currency)

	stored, err := f.svc.Get(context.Background(), f.tenant.ID, res.Invoice.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
	assert.Equal(t, 1, stored.Lines[0].Position)
	assert.Equal(t, "Ankara fabric", stored.Lines[0].Description)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, enums.PlanFree, platformPaystack())
	zero := decimal.Zero
	fraction := decimal.RequireFromString("10.005")

	cases := []CreateInput{
		{TenantID: f.tenant.ID, Customer: CustomerInput{Name: "A"}, Amount: &zero},
		{TenantID: f.tenant.ID, Customer: CustomerInput{Name: "A"}, Amount: &fraction},
		{TenantID: f.tenant.ID, Customer: CustomerInput{Name: "A"}},
		{TenantID: f.tenant.ID, Amount: &fraction},
		{TenantID: f.tenant.ID, Customer: CustomerInput{Name: "A"}, Lines: []LineInput{{Description: "x", Quantity: decimal.Zero, UnitPrice: decimal.NewFromInt(1)}}},
		{TenantID: f.tenant.ID, Customer: CustomerInput{Name: "A"}, Lines: []LineInput{{Description: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(-1)}}},
		{TenantID: f.tenant.ID, Customer: CustomerInput{Name: "A"}, Amount: &fraction, Currency: "BTC"},
	}
	for i, in := range cases {
		_, err := f.svc.Create(context.Background(), in)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "case %d: %v", i, err)
	}
	assert.Equal(t, 0, f.usage(t))
}

func TestPendingCannotJumpToPaid(t *testing.T) {
	f := newFixture(t, enums.PlanFree, platformPaystack())
	res := f.create(t, "100")

	_, err := f.svc.UpdateStatus(context.Background(), StatusUpdate{
		InvoiceID: res.Invoice.ID,
		TenantID:  &f.tenant.ID,
		To:        enums.InvoiceStatusPaid,
		Source:    enums.StatusSourceManual,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "got %v", err)
}

func TestManualConfirmationFlow(t *testing.T) {
	f := newFixture(t, enums.PlanFree, platformPaystack())
	res := f.create(t, "100")

	awaiting := f.move(t, res.Invoice.ID, enums.InvoiceStatusAwaitingConfirmation)
	assert.Equal(t, enums.InvoiceStatusPending, awaiting.From)
	assert.EqualValues(t, 0, f.countTasks(t, enums.TaskKindVerifyPayment))

	paid := f.move(t, res.Invoice.ID, enums.InvoiceStatusPaid)
	require.NotNil(t, paid.Invoice.PaidAt)
	assert.EqualValues(t, 1, f.countTasks(t, enums.TaskKindSendNotification))

	task, err := f.taskRepo.FindByDedupeKey(context.Background(), nil, "notify:invoice_receipt:"+res.Invoice.ID)
	require.NoError(t, err)
	assert.Contains(t, string(task.Payload), `"channel":"email"`)

	for _, to := range []enums.InvoiceStatus{enums.InvoiceStatusFailed, enums.InvoiceStatusAwaitingConfirmation, enums.InvoiceStatusPending} {
		_, err := f.svc.UpdateStatus(context.Background(), StatusUpdate{InvoiceID: res.Invoice.ID, To: to, Source: enums.StatusSourceManual})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "paid -> %s", to)
	}

	history, err := f.svc.History(context.Background(), f.tenant.ID, res.Invoice.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestCancelClearsPaymentLink(t *testing.T) {
	f := newFixture(t, enums.PlanFree, platformPaystack())
	res := f.create(t, "100")
	require.NotNil(t, res.PaymentLink)

	f.move(t, res.Invoice.ID, enums.InvoiceStatusFailed)
	stored, err := f.svc.Get(context.Background(), f.tenant.ID, res.Invoice.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PaymentLink)
	assert.EqualValues(t, 0, f.countTasks(t, enums.TaskKindSendNotification))
}

func TestConcurrentConfirmationAppliesOnce(t *testing.T) {
	f := newFixture(t, enums.PlanFree, platformPaystack())
	res := f.create(t, "100")
	f.move(t, res.Invoice.ID, enums.InvoiceStatusAwaitingConfirmation)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.UpdateStatus(context.Background(), StatusUpdate{
				InvoiceID: res.Invoice.ID,
				To:        enums.InvoiceStatusPaid,
				Source:    enums.StatusSourceManual,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 3, rejected)
	assert.EqualValues(t, 1, f.countTasks(t, enums.TaskKindSendNotification))
}

func TestUpdateStatusIsTenantScoped(t *testing.T) {
	f := newFixture(t, enums.PlanFree, platformPaystack())
	res := f.create(t, "100")
	other := uuid.New()
	_, err := f.svc.UpdateStatus(context.Background(), StatusUpdate{
		InvoiceID: res.Invoice.ID,
		TenantID:  &other,
		To:        enums.InvoiceStatusAwaitingConfirmation,
		Source:    enums.StatusSourceManual,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestFailureNotificationFallsBackToSMS(t *testing.T) {
	f := newFixture(t, enums.PlanFree, platformPaystack())
	a := decimal.NewFromInt(100)
	res, err := f.svc.Create(context.Background(), CreateInput{
		TenantID: f.tenant.ID,
		Customer: CustomerInput{Name: "Chidi", Phone: "+2348031111111"},
		Amount:   &a,
	})
	require.NoError(t, err)
	f.move(t, res.Invoice.ID, enums.InvoiceStatusAwaitingConfirmation)
	f.move(t, res.Invoice.ID, enums.InvoiceStatusFailed)

	task, err := f.taskRepo.FindByDedupeKey(context.Background(), nil, "notify:payment_failed:"+res.Invoice.ID)
	require.NoError(t, err)
	assert.Contains(t, string(task.Payload), `"channel":"sms"`)
	assert.Contains(t, string(task.Payload), "+2348031111111")
}

func TestNotificationSkippedWithoutContact(t *testing.T) {
	f := newFixture(t, enums.PlanFree, platformPaystack())
	a := decimal.NewFromInt(100)
	res, err := f.svc.Create(context.Background(), CreateInput{
		TenantID: f.tenant.ID,
		Customer: CustomerInput{Name: "Walk-in"},
		Amount:   &a,
	})
	require.NoError(t, err)
	f.move(t, res.Invoice.ID, enums.InvoiceStatusAwaitingConfirmation)
	f.move(t, res.Invoice.ID, enums.InvoiceStatusPaid)
	assert.EqualValues(t, 0, f.countTasks(t, enums.TaskKindSendNotification))
}

func TestConfirmWithProviderSuccessWalksToPaid(t *testing.T) {
	f := newFixture(t, enums.PlanFree, platformPaystack())
	res := f.create(t, "50000")
	f.gateway.verifyFn = func(creds payments.Credentials, req payments.VerifyRequest) (*payments.Transaction, error) {
		assert.Equal(t, "sk_test_platform", creds.SecretKey)
		assert.Equal(t, res.Invoice.ID, req.Reference)
		return &payments.Transaction{Reference: req.Reference, Kind: payments.EventKindSuccess, Amount: decimal.NewFromInt(50000), Currency: "NGN"}, nil
	}

	inv, err := f.svc.ConfirmWithProvider(context.Background(), &f.tenant.ID, res.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusPaid, inv.Status)

	history, err := f.svc.History(context.Background(), f.tenant.ID, res.Invoice.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, enums.StatusSourceVerification, history[1].Source)
	assert.Equal(t, enums.InvoiceStatusAwaitingConfirmation, history[1].ToStatus)
	assert.Equal(t, enums.InvoiceStatusPaid, history[2].ToStatus)
	assert.EqualValues(t, 1, f.countTasks(t, enums.TaskKindSendNotification))

	again, err := f.svc.ConfirmWithProvider(context.Background(), &f.tenant.ID, res.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusPaid, again.Status)
}

func TestConfirmWithProviderOutcomes(t *testing.T) {
	f := newFixture(t, enums.PlanStarter, platformPaystack())
	kind := payments.EventKindPending
	amount := decimal.NewFromInt(100)
	f.gateway.verifyFn = func(_ payments.Credentials, req payments.VerifyRequest) (*payments.Transaction, error) {
		return &payments.Transaction{Reference: req.Reference, Kind: kind, Amount: amount, Currency: "NGN"}, nil
	}

	res := f.create(t, "100")
	_, err := f.svc.ConfirmWithProvider(context.Background(), nil, res.Invoice.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.True(t, pkgerrors.MetadataFor(pkgerrors.CodeDependency).Retryable)

	kind = payments.EventKindSuccess
	amount = decimal.NewFromInt(90)
	_, err = f.svc.ConfirmWithProvider(context.Background(), nil, res.Invoice.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	kind = payments.EventKindAbandoned
	inv, err := f.svc.ConfirmWithProvider(context.Background(), nil, res.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusFailed, inv.Status)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	f := newFixture(t, enums.PlanStarter, platformPaystack())
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		f.svc.clock = func() time.Time { return at }
		ids = append(ids, f.create(t, "100").Invoice.ID)
	}
	f.move(t, ids[0], enums.InvoiceStatusFailed)

	page, err := f.svc.List(context.Background(), f.tenant.ID, ListParams{Params: paginationParams(2, "")})
	require.NoError(t, err)
	require.Len(t, page.Invoices, 2)
	assert.Equal(t, ids[4], page.Invoices[0].ID)
	assert.Equal(t, ids[3], page.Invoices[1].ID)
	require.NotEmpty(t, page.NextCursor)

	next, err := f.svc.List(context.Background(), f.tenant.ID, ListParams{Params: paginationParams(2, page.NextCursor)})
	require.NoError(t, err)
	require.Len(t, next.Invoices, 2)
	assert.Equal(t, ids[2], next.Invoices[0].ID)

	failed := enums.InvoiceStatusFailed
	filtered, err := f.svc.List(context.Background(), f.tenant.ID, ListParams{Status: &failed})
	require.NoError(t, err)
	require.Len(t, filtered.Invoices, 1)
	assert.Equal(t, ids[0], filtered.Invoices[0].ID)
	assert.Empty(t, filtered.NextCursor)

	_, err = f.svc.List(context.Background(), f.tenant.ID, ListParams{Params: paginationParams(2, "%%%")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.List(context.Background(), f.tenant.ID, ListParams{Params: paginationParams(2, page.NextCursor), Status: &failed})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "cursor from unfiltered listing must not apply to a status filter")
}

func TestEnqueueStaleVerifications(t *testing.T) {
	f := newFixture(t, enums.PlanFree, platformPaystack())
	start := time.Now().UTC()
	f.svc.clock = func() time.Time { return start }
	stale := f.create(t, "100")
	f.move(t, stale.Invoice.ID, enums.InvoiceStatusAwaitingConfirmation)
	fresh := f.create(t, "100")

	f.svc.clock = func() time.Time { return start.Add(time.Hour) }
	f.move(t, fresh.Invoice.ID, enums.InvoiceStatusAwaitingConfirmation)

	queued, err := f.svc.EnqueueStaleVerifications(context.Background(), 30*time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, queued)

	queued, err = f.svc.EnqueueStaleVerifications(context.Background(), 30*time.Minute, 10)
	require.NoError(t, err)
	assert.Zero(t, queued, "same hour bucket is deduplicated")
	assert.EqualValues(t, 1, f.countTasks(t, enums.TaskKindVerifyPayment))
}

func TestSetDocumentURL(t *testing.T) {
	f := newFixture(t, enums.PlanFree, platformPaystack())
	res := f.create(t, "100")
	require.NoError(t, f.svc.SetDocumentURL(context.Background(), res.Invoice.ID, "https://docs.example/a.pdf"))
	stored, err := f.svc.Get(context.Background(), f.tenant.ID, res.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://docs.example/a.pdf", *stored.DocumentURL)

	err = f.svc.SetDocumentURL(context.Background(), "INV-missing", "x")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRepositoryCreateMapsDuplicateReferenceToConflict(t *testing.T) {
	f := newFixture(t, enums.PlanFree, platformPaystack())
	repo := NewRepository(f.conn)
	ctx := context.Background()

	build := func(id string) *models.Invoice {
		return &models.Invoice{
			ID:               id,
			TenantID:         f.tenant.ID,
			CustomerName:     "Ada Obi",
			Amount:           decimal.NewFromInt(500),
			Currency:         enums.CurrencyNGN,
			Status:           enums.InvoiceStatusPending,
			Provider:         enums.PaymentProviderPaystack,
			PaymentReference: "INV-SHARED",
		}
	}
	require.NoError(t, repo.Create(ctx, nil, build("INV-A")))

	err := repo.Create(ctx, nil, build("INV-B"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	other := build("INV-C")
	other.Provider = enums.PaymentProviderFlutterwave
	require.NoError(t, repo.Create(ctx, nil, other), "references are unique per provider")
}
