package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/endurancevpn/vpnbot/internal/billing"
	"github.com/endurancevpn/vpnbot/internal/models"
)

func TestBuyShowsTariffMenu(t *testing.T) {
	f := newFixture(t)
	c := newTestContext(42)

	tariffs := []models.Tariff{
		{ID: 1, Price: 100, Days: 30},
		{ID: 2, Price: 250, Days: 90},
	}
	f.store.On("ListTariffs", mock.Anything).Return(tariffs, nil).Once()

	require.NoError(t, f.bot.handleBuy(c))

	sent := c.lastSent(t)
	assert.Equal(t, msgChooseTariff, sent.text)
	require.NotNil(t, sent.markup)
	// Two tariffs plus the cancel row.
	require.Len(t, sent.markup.InlineKeyboard, 3)
	assert.Equal(t, "100₽ на 30 дней", sent.markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "250₽ на 90 дней", sent.markup.InlineKeyboard[1][0].Text)
}

func TestPayCallbackCreatesBill(t *testing.T) {
	f := newFixture(t)
	c := newTestContext(42)
	c.callback = &tele.Callback{Data: "\\ftariff|1"}

	tariff := &models.Tariff{ID: 1, Price: 100, Days: 30}
	data := trialUserWithVpn(time.Now().Add(24 * time.Hour))
	bill := &billing.Bill{ID: "pay-1", ConfirmationURL: "https://yookassa.test/confirm"}

	f.store.On("TariffByID", mock.Anything, int64(1)).Return(tariff, nil).Once()
	f.store.On("UserWithVpn", mock.Anything, int64(42)).Return(data, nil).Once()
	f.biller.On("CreateBill", mock.Anything, data.Vpn, tariff, 77, int64(42)).Return(bill, nil).Once()

	require.NoError(t, f.bot.handlePayCallback(c))

	require.Len(t, c.edited, 1)
	assert.Contains(t, c.edited[0].text, "100₽")
	assert.Contains(t, c.edited[0].text, "30")
	require.NotNil(t, c.edited[0].markup)
	assert.Equal(t, "https://yookassa.test/confirm", c.edited[0].markup.InlineKeyboard[0][0].URL)

	f.biller.AssertExpectations(t)
}

func TestPayCallbackWithoutVpn(t *testing.T) {
	f := newFixture(t)
	c := newTestContext(42)
	c.callback = &tele.Callback{Data: "\\ftariff|1"}

	tariff := &models.Tariff{ID: 1, Price: 100, Days: 30}
	data := &models.UserWithVpn{User: &models.User{ID: 2, TelegramID: 42}}

	f.store.On("TariffByID", mock.Anything, int64(1)).Return(tariff, nil).Once()
	f.store.On("UserWithVpn", mock.Anything, int64(42)).Return(data, nil).Once()

	require.NoError(t, f.bot.handlePayCallback(c))
	assert.Equal(t, msgVpnNone, c.lastSent(t).text)
	f.biller.AssertNotCalled(t, "CreateBill",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBackTariff(t *testing.T) {
	f := newFixture(t)
	c := newTestContext(42)
	c.callback = &tele.Callback{Data: "\\fback_tariff"}

	f.store.On("ListTariffs", mock.Anything).Return([]models.Tariff{{ID: 1, Price: 100, Days: 30}}, nil).Once()

	require.NoError(t, f.bot.handleBackTariff(c))
	require.Len(t, c.edited, 1)
	assert.Equal(t, msgChooseTariff, c.edited[0].text)
}

func TestCancelBuyDeletesMessage(t *testing.T) {
	f := newFixture(t)
	c := newTestContext(42)

	require.NoError(t, f.bot.handleCancelBuy(c))
	assert.True(t, c.deleted)
}

func TestMsgBill(t *testing.T) {
	got := msgBill(100, 30)
	assert.Contains(t, got, "100₽")
	assert.Contains(t, got, "30 дней")
}
