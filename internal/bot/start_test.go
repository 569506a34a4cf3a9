package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/endurancevpn/vpnbot/internal/models"
)

func TestStartUnregistered(t *testing.T) {
	f := newFixture(t)
	c := newTestContext(42)

	f.store.On("UserByTelegramID", mock.Anything, int64(42)).Return(nil, nil).Once()

	require.NoError(t, f.bot.handleStart(c))
	sent := c.lastSent(t)
	assert.Equal(t, msgGreetNew, sent.text)
	require.NotNil(t, sent.markup)
	assert.Equal(t, btnRegister, sent.markup.ReplyKeyboard[0][0].Text)
}

func TestStartGreetsByStatus(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		status   models.UserStatus
		firstBtn string
	}{
		{models.UserStatusCreated, btnTrial},
		{models.UserStatusPending, btnProfile},
		{models.UserStatusExecuted, btnBuy},
	}
	for _, tc := range cases {
		c := newTestContext(42)
		user := &models.User{ID: 2, TelegramID: 42, Name: "Alice", Status: tc.status}
		f.store.On("UserByTelegramID", mock.Anything, int64(42)).Return(user, nil).Once()

		require.NoError(t, f.bot.handleStart(c))
		sent := c.lastSent(t)
		assert.Equal(t, msgGreet("Alice"), sent.text)
		require.NotNil(t, sent.markup)
		assert.Equal(t, tc.firstBtn, sent.markup.ReplyKeyboard[0][0].Text,
			"keyboard for status %s", tc.status)
	}
}

func TestInformation(t *testing.T) {
	f := newFixture(t)
	c := newTestContext(42)

	require.NoError(t, f.bot.handleInformation(c))
	assert.Equal(t, msgInformation, c.lastSent(t).text)
}

func TestInstructionReadsFile(t *testing.T) {
	f := newFixture(t)
	c := newTestContext(42)

	require.NoError(t, f.bot.handleInstruction(c))
	assert.Contains(t, c.lastSent(t).text, "WireGuard")
}

func TestPendingUsersList(t *testing.T) {
	f := newFixture(t)
	c := newTestContext(1)

	users := []models.User{
		{ID: 2, TelegramID: 42, Name: "Alice", Status: models.UserStatusPending},
		{ID: 3, TelegramID: 43, Name: "Bob", Status: models.UserStatusPending},
	}
	f.store.On("ListPendingUsers", mock.Anything).Return(users, nil).Once()

	require.NoError(t, f.bot.handlePendingUsers(c))
	got := c.lastSent(t).text
	assert.Contains(t, got, "Alice")
	assert.Contains(t, got, "Bob")
}

func TestPendingUsersEmpty(t *testing.T) {
	f := newFixture(t)
	c := newTestContext(1)

	f.store.On("ListPendingUsers", mock.Anything).Return([]models.User{}, nil).Once()

	require.NoError(t, f.bot.handlePendingUsers(c))
	assert.Equal(t, msgNoPendingUsers, c.lastSent(t).text)
}
