package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/endurancevpn/vpnbot/internal/models"
)

func trialUserWithVpn(expires time.Time) *models.UserWithVpn {
	return &models.UserWithVpn{
		User: &models.User{ID: 2, TelegramID: 42, Name: "Alice", Status: models.UserStatusExecuted},
		Vpn:  &models.Vpn{ID: 5, UserID: 2, Status: models.VpnStatusTrial, ExpiresAt: expires},
	}
}

func TestProfileTrialRender(t *testing.T) {
	f := newFixture(t)
	c := newTestContext(42)

	expires := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	data := trialUserWithVpn(expires)

	f.store.On("UserWithVpn", mock.Anything, int64(42)).Return(data, nil).Once()
	f.biller.On("CheckPendingBills", mock.Anything, data.User, data.Vpn).Return(data.Vpn, nil).Once()
	f.store.On("UpdateVpn", mock.Anything, data.Vpn).Return(nil).Once()

	require.NoError(t, f.bot.handleProfile(c))

	got := c.lastSent(t).text
	assert.Contains(t, got, "Ваше имя: Alice")
	assert.Contains(t, got, "Ваш ID: 2")
	assert.Contains(t, got, "Пробный")
	assert.Contains(t, got, "10.01.2024")

	f.store.AssertExpectations(t)
	f.biller.AssertExpectations(t)
}

func TestProfileRenderIdempotent(t *testing.T) {
	f := newFixture(t)

	expires := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	data := trialUserWithVpn(expires)

	f.store.On("UserWithVpn", mock.Anything, int64(42)).Return(data, nil).Twice()
	f.biller.On("CheckPendingBills", mock.Anything, data.User, data.Vpn).Return(data.Vpn, nil).Twice()
	f.store.On("UpdateVpn", mock.Anything, data.Vpn).Return(nil).Twice()

	first := newTestContext(42)
	require.NoError(t, f.bot.handleProfile(first))
	second := newTestContext(42)
	require.NoError(t, f.bot.handleProfile(second))

	assert.Equal(t, first.lastSent(t).text, second.lastSent(t).text)
}

func TestProfileNoVpn(t *testing.T) {
	f := newFixture(t)
	c := newTestContext(42)

	data := &models.UserWithVpn{
		User: &models.User{ID: 2, TelegramID: 42, Name: "Alice", Status: models.UserStatusCreated},
	}
	f.store.On("UserWithVpn", mock.Anything, int64(42)).Return(data, nil).Once()

	require.NoError(t, f.bot.handleProfile(c))
	assert.Contains(t, c.lastSent(t).text, msgVpnNone)

	// No billing check and no persist when there is nothing to reconcile.
	f.biller.AssertNotCalled(t, "CheckPendingBills", mock.Anything, mock.Anything, mock.Anything)
	f.store.AssertNotCalled(t, "UpdateVpn", mock.Anything, mock.Anything)
}

func TestProfilePendingUser(t *testing.T) {
	f := newFixture(t)
	c := newTestContext(42)

	data := trialUserWithVpn(time.Now().Add(24 * time.Hour))
	data.User.Status = models.UserStatusPending

	f.store.On("UserWithVpn", mock.Anything, int64(42)).Return(data, nil).Once()
	f.biller.On("CheckPendingBills", mock.Anything, data.User, data.Vpn).Return(data.Vpn, nil).Once()
	f.store.On("UpdateVpn", mock.Anything, data.Vpn).Return(nil).Once()

	require.NoError(t, f.bot.handleProfile(c))
	assert.Contains(t, c.lastSent(t).text, msgVpnPending)
}

func TestProfilePersistsBillingMutation(t *testing.T) {
	f := newFixture(t)
	c := newTestContext(42)

	data := trialUserWithVpn(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	mutated := *data.Vpn
	mutated.Status = models.VpnStatusPaid
	mutated.ExpiresAt = data.Vpn.ExpiresAt.AddDate(0, 0, 30)

	f.store.On("UserWithVpn", mock.Anything, int64(42)).Return(data, nil).Once()
	f.biller.On("CheckPendingBills", mock.Anything, data.User, data.Vpn).Return(&mutated, nil).Once()
	f.store.On("UpdateVpn", mock.Anything, &mutated).Return(nil).Once()

	require.NoError(t, f.bot.handleProfile(c))

	got := c.lastSent(t).text
	assert.Contains(t, got, "Оплачен")
	assert.Contains(t, got, "09.02.2024")

	f.store.AssertExpectations(t)
}

func TestProfileUnregistered(t *testing.T) {
	f := newFixture(t)
	c := newTestContext(42)

	f.store.On("UserWithVpn", mock.Anything, int64(42)).Return(nil, nil).Once()

	require.NoError(t, f.bot.handleProfile(c))
	assert.Equal(t, msgGreetNew, c.lastSent(t).text)
}

func TestRenderVpnStatusExpired(t *testing.T) {
	user := &models.User{Status: models.UserStatusExecuted}
	vpn := &models.Vpn{Status: models.VpnStatusExpired}
	assert.Equal(t, msgVpnExpired, renderVpnStatus(user, vpn))
}
