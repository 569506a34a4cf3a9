package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	tele "gopkg.in/telebot.v4"

	"github.com/endurancevpn/vpnbot/internal/billing"
	"github.com/endurancevpn/vpnbot/internal/config"
	"github.com/endurancevpn/vpnbot/internal/models"
	"github.com/endurancevpn/vpnbot/internal/telegram/state"
)

// testContext implements the slice of tele.Context the handlers touch.
// The embedded nil interface panics loudly if a handler reaches for
// anything unstubbed.
type testContext struct {
	tele.Context

	sender   *tele.User
	chat     *tele.Chat
	text     string
	callback *tele.Callback
	message  *tele.Message
	kv       map[string]any

	sent    []sentMessage
	edited  []sentMessage
	deleted bool
}

type sentMessage struct {
	text   string
	markup *tele.ReplyMarkup
}

func newTestContext(telegramID int64) *testContext {
	return &testContext{
		sender:  &tele.User{ID: telegramID},
		chat:    &tele.Chat{ID: telegramID},
		message: &tele.Message{ID: 77, Chat: &tele.Chat{ID: telegramID}},
		kv:      map[string]any{},
	}
}

func (c *testContext) Sender() *tele.User      { return c.sender }
func (c *testContext) Chat() *tele.Chat        { return c.chat }
func (c *testContext) Text() string            { return c.text }
func (c *testContext) Message() *tele.Message  { return c.message }
func (c *testContext) Callback() *tele.Callback { return c.callback }
func (c *testContext) Update() tele.Update     { return tele.Update{ID: 1} }

func (c *testContext) Set(key string, v any) { c.kv[key] = v }
func (c *testContext) Get(key string) any    { return c.kv[key] }

func (c *testContext) Send(what any, opts ...any) error {
	c.sent = append(c.sent, capture(what, opts))
	return nil
}

func (c *testContext) Edit(what any, opts ...any) error {
	c.edited = append(c.edited, capture(what, opts))
	return nil
}

func (c *testContext) Delete() error { c.deleted = true; return nil }

func (c *testContext) Respond(resp ...*tele.CallbackResponse) error { return nil }

func capture(what any, opts []any) sentMessage {
	msg := sentMessage{}
	if s, ok := what.(string); ok {
		msg.text = s
	}
	for _, opt := range opts {
		switch v := opt.(type) {
		case *tele.SendOptions:
			msg.markup = v.ReplyMarkup
		case *tele.ReplyMarkup:
			msg.markup = v
		}
	}
	return msg
}

func (c *testContext) lastSent(t *testing.T) sentMessage {
	t.Helper()
	if len(c.sent) == 0 {
		t.Fatal("nothing was sent")
	}
	return c.sent[len(c.sent)-1]
}

// Collaborator mocks.

type mockStore struct{ mock.Mock }

func userArg(args mock.Arguments, i int) *models.User {
	if v := args.Get(i); v != nil {
		return v.(*models.User)
	}
	return nil
}

func (m *mockStore) CreateUser(ctx context.Context, telegramID int64, name string) (*models.User, error) {
	args := m.Called(ctx, telegramID, name)
	return userArg(args, 0), args.Error(1)
}

func (m *mockStore) UserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	args := m.Called(ctx, telegramID)
	return userArg(args, 0), args.Error(1)
}

func (m *mockStore) UserWithVpn(ctx context.Context, telegramID int64) (*models.UserWithVpn, error) {
	args := m.Called(ctx, telegramID)
	if v := args.Get(0); v != nil {
		return v.(*models.UserWithVpn), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) ListPendingUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) UpdateVpn(ctx context.Context, vpn *models.Vpn) error {
	return m.Called(ctx, vpn).Error(0)
}

func (m *mockStore) TariffByID(ctx context.Context, id int64) (*models.Tariff, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Tariff), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) ListTariffs(ctx context.Context) ([]models.Tariff, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]models.Tariff), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockBiller struct{ mock.Mock }

func (m *mockBiller) CreateBill(ctx context.Context, vpn *models.Vpn, tariff *models.Tariff, messageID int, chatID int64) (*billing.Bill, error) {
	args := m.Called(ctx, vpn, tariff, messageID, chatID)
	if v := args.Get(0); v != nil {
		return v.(*billing.Bill), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBiller) CheckPendingBills(ctx context.Context, user *models.User, vpn *models.Vpn) (*models.Vpn, error) {
	args := m.Called(ctx, user, vpn)
	if v := args.Get(0); v != nil {
		return v.(*models.Vpn), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockProvisioner struct{ mock.Mock }

func (m *mockProvisioner) CreateVPN(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

type fixture struct {
	bot     *Bot
	store   *mockStore
	biller  *mockBiller
	prov    *mockProvisioner
	fsm     state.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  &mockStore{},
		biller: &mockBiller{},
		prov:   &mockProvisioner{},
		fsm:    state.NewMemoryManager(),
	}
	cfg := &config.Config{InstructionPath: "testdata/instruction.txt"}
	f.bot = New(cfg, f.store, f.biller, f.prov, f.fsm)
	return f
}

func TestRegistryWiring(t *testing.T) {
	f := newFixture(t)
	reg := f.bot.Registry()

	for _, name := range []string{"/start", "/register", "/profile", "/trial", "/buy", "/instruction", "/information", "/pending"} {
		if _, _, ok := reg.LookupCommand(name); !ok {
			t.Errorf("command %s not registered", name)
		}
	}
	for _, label := range []string{btnRegister, btnProfile, btnTrial, btnBuy, btnInstruction, btnInformation} {
		if _, _, ok := reg.LookupCommand(label); !ok {
			t.Errorf("button %q does not route to a command", label)
		}
	}
	for _, key := range []string{cbTariff, cbBackTariff, cbCancelBuy} {
		if _, ok := reg.GetCallback(key); !ok {
			t.Errorf("callback %q not registered", key)
		}
	}

	_, cmd, _ := reg.LookupCommand("/pending")
	if !cmd.AdminOnly || !cmd.Hidden {
		t.Error("/pending must be admin-only and hidden")
	}
}
