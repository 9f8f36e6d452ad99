package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/renpay/renpay-backend/internal/mailer"
	"github.com/renpay/renpay-backend/internal/orders"
	"github.com/renpay/renpay-backend/internal/subscriptions"
	"github.com/renpay/renpay-backend/internal/users"
	"github.com/renpay/renpay-backend/internal/wallet"
	"github.com/renpay/renpay-backend/pkg/db/models"
	"github.com/renpay/renpay-backend/pkg/enums"
)

type fakeUserRepo struct {
	users map[string]*models.User
	err   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (f *fakeUserRepo) WithTx(tx *gorm.DB) users.Repository { return f }

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := f.users[users.NormalizeEmail(email)]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetOrCreate(ctx context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	normalized := users.NormalizeEmail(email)
	if u, ok := f.users[normalized]; ok {
		return u, nil
	}
	u := &models.User{ID: uuid.New(), Email: normalized, Name: normalized}
	f.users[normalized] = u
	return u, nil
}

type fakeWalletService struct {
	overview     *wallet.Overview
	topUpEntry   *models.WalletLedger
	creditResult *wallet.CaptureCreditResult
	payResult    *wallet.PayOrdersResult
	err          error

	topUpInput  *wallet.TopUpInput
	creditInput *wallet.CaptureCreditInput
	payInput    *wallet.PayOrdersInput
}

func (f *fakeWalletService) Get(ctx context.Context, userID uuid.UUID) (*wallet.Overview, error) {
	return f.overview, f.err
}

func (f *fakeWalletService) TopUp(ctx context.Context, input wallet.TopUpInput) (*models.WalletLedger, error) {
	f.topUpInput = &input
	return f.topUpEntry, f.err
}

func (f *fakeWalletService) CreditFromCapture(ctx context.Context, input wallet.CaptureCreditInput) (*wallet.CaptureCreditResult, error) {
	f.creditInput = &input
	return f.creditResult, f.err
}

func (f *fakeWalletService) PayOrders(ctx context.Context, input wallet.PayOrdersInput) (*wallet.PayOrdersResult, error) {
	f.payInput = &input
	return f.payResult, f.err
}

type fakeOrdersService struct {
	order *models.Order
	list  []models.Order
	err   error

	createInput *orders.CreateOrderInput
	statusInput *orders.UpdateStatusInput
	deletedNum  string
}

func (f *fakeOrdersService) Create(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	f.createInput = &input
	return f.order, f.err
}

func (f *fakeOrdersService) List(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return f.list, f.err
}

func (f *fakeOrdersService) UpdateStatus(ctx context.Context, input orders.UpdateStatusInput) (*models.Order, error) {
	f.statusInput = &input
	return f.order, f.err
}

func (f *fakeOrdersService) Delete(ctx context.Context, userID uuid.UUID, orderNumber string) error {
	f.deletedNum = orderNumber
	return f.err
}

type fakeSubscriptionsService struct {
	sub *models.Subscription
	err error

	activateInput *subscriptions.ActivatePayPalInput
	internalPlan  enums.SubscriptionPlan
}

func (f *fakeSubscriptionsService) ActivatePayPal(ctx context.Context, input subscriptions.ActivatePayPalInput) (*models.Subscription, error) {
	f.activateInput = &input
	return f.sub, f.err
}

func (f *fakeSubscriptionsService) Get(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return f.sub, f.err
}

func (f *fakeSubscriptionsService) CreateInternal(ctx context.Context, userID uuid.UUID, plan enums.SubscriptionPlan) (*models.Subscription, error) {
	f.internalPlan = plan
	return f.sub, f.err
}

type fakeMailer struct {
	status Status
	sentTo string
}

// Status aliases the mailer result so the fake can be configured inline.
type Status = mailer.Status

func (f *fakeMailer) SendOrdersPaid(ctx context.Context, to string, result *wallet.PayOrdersResult) mailer.Status {
	f.sentTo = to
	return f.status
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return envelope
}
