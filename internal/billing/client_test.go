package billing

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endurancevpn/vpnbot/internal/config"
	"github.com/endurancevpn/vpnbot/internal/logger"
	"github.com/endurancevpn/vpnbot/internal/models"
)

func init() {
	logger.Billing = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.BillingConfig{
		ShopID:    "shop",
		SecretKey: "secret",
		APIURL:    srv.URL,
		ReturnURL: "https://t.me/bot",
	})
}

func TestCreateBill(t *testing.T) {
	var gotReq createPaymentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("Idempotence-Key"))
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "shop", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(paymentResponse{
			ID:     "pay-1",
			Status: paymentStatusPending,
			Confirmation: &Confirmation{
				Type:            "redirect",
				ConfirmationURL: "https://yookassa.test/confirm/pay-1",
			},
			CreatedAt: time.Now(),
		})
	})

	vpn := &models.Vpn{ID: 5}
	tariff := &models.Tariff{ID: 1, Price: 100, Days: 30}

	bill, err := client.CreateBill(context.Background(), vpn, tariff, 77, 42)
	require.NoError(t, err)

	assert.Equal(t, "pay-1", bill.ID)
	assert.Equal(t, "https://yookassa.test/confirm/pay-1", bill.ConfirmationURL)
	assert.Equal(t, 30, bill.TariffDays)
	assert.Equal(t, 1, client.PendingCount(5))

	assert.Equal(t, "100.00", gotReq.Amount.Value)
	assert.Equal(t, "RUB", gotReq.Amount.Currency)
	assert.Equal(t, "VPN на 30 дней", gotReq.Description)
	assert.Equal(t, "5", gotReq.Metadata["vpn_id"])
	assert.Equal(t, "42", gotReq.Metadata["chat_id"])
	assert.Equal(t, "77", gotReq.Metadata["message_id"])
}

func TestCreateBillServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.CreateBill(context.Background(),
		&models.Vpn{ID: 1}, &models.Tariff{ID: 1, Price: 100, Days: 30}, 1, 1)
	require.Error(t, err)
	assert.Equal(t, 0, client.PendingCount(1))
}

func TestCheckPendingBillsSucceeded(t *testing.T) {
	status := paymentStatusSucceeded
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/payments/pay-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(paymentResponse{ID: "pay-1", Status: status})
	})

	expires := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	vpn := &models.Vpn{ID: 5, Status: models.VpnStatusTrial, ExpiresAt: expires}
	user := &models.User{ID: 2, TelegramID: 42}

	client.mu.Lock()
	client.pending[5] = []Bill{{ID: "pay-1", TariffID: 1, TariffDays: 30}}
	client.mu.Unlock()

	got, err := client.CheckPendingBills(context.Background(), user, vpn)
	require.NoError(t, err)

	assert.Equal(t, models.VpnStatusPaid, got.Status)
	// Extension counts from the remaining trial time, not from now.
	assert.Equal(t, expires.AddDate(0, 0, 30), got.ExpiresAt)
	assert.Equal(t, 0, client.PendingCount(5))
}

func TestCheckPendingBillsStillPending(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(paymentResponse{ID: "pay-1", Status: paymentStatusPending})
	})

	vpn := &models.Vpn{ID: 5, Status: models.VpnStatusTrial, ExpiresAt: time.Now().Add(time.Hour)}
	client.mu.Lock()
	client.pending[5] = []Bill{{ID: "pay-1", TariffDays: 30}}
	client.mu.Unlock()

	got, err := client.CheckPendingBills(context.Background(), &models.User{TelegramID: 1}, vpn)
	require.NoError(t, err)

	assert.Equal(t, models.VpnStatusTrial, got.Status)
	assert.Equal(t, 1, client.PendingCount(5))
}

func TestCheckPendingBillsExpiresTrial(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no bills should be polled")
	})

	vpn := &models.Vpn{ID: 5, Status: models.VpnStatusTrial, ExpiresAt: time.Now().Add(-time.Hour)}
	got, err := client.CheckPendingBills(context.Background(), &models.User{TelegramID: 1}, vpn)
	require.NoError(t, err)
	assert.Equal(t, models.VpnStatusExpired, got.Status)
}

func TestCheckPendingBillsKeepsBillOnTransportError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	vpn := &models.Vpn{ID: 5, Status: models.VpnStatusPaid, ExpiresAt: time.Now().Add(time.Hour)}
	client.mu.Lock()
	client.pending[5] = []Bill{{ID: "pay-1", TariffDays: 30}}
	client.mu.Unlock()

	got, err := client.CheckPendingBills(context.Background(), &models.User{TelegramID: 1}, vpn)
	require.NoError(t, err)
	assert.Equal(t, models.VpnStatusPaid, got.Status)
	assert.Equal(t, 1, client.PendingCount(5))
}
