// Package bot wires the VPN bot's flows: registration, profile, trial
// provisioning, tariff purchase and the admin view over pending requests.
package bot

import (
	"context"

	"github.com/endurancevpn/vpnbot/internal/billing"
	"github.com/endurancevpn/vpnbot/internal/config"
	"github.com/endurancevpn/vpnbot/internal/models"
	tg "github.com/endurancevpn/vpnbot/internal/telegram"
	"github.com/endurancevpn/vpnbot/internal/telegram/commands"
	"github.com/endurancevpn/vpnbot/internal/telegram/router"
	"github.com/endurancevpn/vpnbot/internal/telegram/state"
)

// Store is the subset of the storage layer the handlers depend on.
type Store interface {
	CreateUser(ctx context.Context, telegramID int64, name string) (*models.User, error)
	UserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	UserWithVpn(ctx context.Context, telegramID int64) (*models.UserWithVpn, error)
	ListPendingUsers(ctx context.Context) ([]models.User, error)
	UpdateVpn(ctx context.Context, vpn *models.Vpn) error
	TariffByID(ctx context.Context, id int64) (*models.Tariff, error)
	ListTariffs(ctx context.Context) ([]models.Tariff, error)
}

// Biller creates bills and reconciles pending payments.
type Biller interface {
	CreateBill(ctx context.Context, vpn *models.Vpn, tariff *models.Tariff, messageID int, chatID int64) (*billing.Bill, error)
	CheckPendingBills(ctx context.Context, user *models.User, vpn *models.Vpn) (*models.Vpn, error)
}

// Provisioner requests VPN creation from the provisioning service.
type Provisioner interface {
	CreateVPN(ctx context.Context, user *models.User) error
}

// Bot holds flow dependencies. All handlers are methods on it.
type Bot struct {
	cfg       *config.Config
	store     Store
	billing   Biller
	provision Provisioner
	fsm       state.Manager
}

// New assembles a Bot from its collaborators.
func New(cfg *config.Config, store Store, biller Biller, prov Provisioner, fsm state.Manager) *Bot {
	return &Bot{
		cfg:       cfg,
		store:     store,
		billing:   biller,
		provision: prov,
		fsm:       fsm,
	}
}

// Registry builds the command/callback registry for this bot.
func (b *Bot) Registry() *tg.Registry {
	reg := tg.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     b.handleStart,
		Description: "Начать работу с ботом",
	})
	reg.RegisterCommand("/register", commands.Command{
		Handler:     b.handleRegister,
		Description: "Зарегистрироваться",
		Aliases:     []string{btnRegister},
	})
	reg.RegisterCommand("/profile", commands.Command{
		Handler:     b.handleProfile,
		Description: "Профиль и статус VPN",
		Aliases:     []string{btnProfile},
	})
	reg.RegisterCommand("/trial", commands.Command{
		Handler:     b.handleTrial,
		Description: "Запросить пробный VPN",
		Aliases:     []string{btnTrial},
	})
	reg.RegisterCommand("/buy", commands.Command{
		Handler:     b.handleBuy,
		Description: "Продлить VPN",
		Aliases:     []string{btnBuy},
	})
	reg.RegisterCommand("/instruction", commands.Command{
		Handler:     b.handleInstruction,
		Description: "Инструкция по подключению",
		Aliases:     []string{btnInstruction},
	})
	reg.RegisterCommand("/information", commands.Command{
		Handler:     b.handleInformation,
		Description: "Информация о сервисе",
		Aliases:     []string{btnInformation},
	})
	reg.RegisterCommand("/pending", commands.Command{
		Handler:     b.handlePendingUsers,
		Description: "Заявки в обработке",
		AdminOnly:   true,
		Hidden:      true,
	})

	_ = reg.RegisterCallback(cbTariff, b.handlePayCallback)
	_ = reg.RegisterCallback(cbBackTariff, b.handleBackTariff)
	_ = reg.RegisterCallback(cbCancelBuy, b.handleCancelBuy)

	state.RegisterHandler(state.AwaitingName, b.handleRegisterName)

	return reg
}

// TelegramRunOptions produces the runtime wiring consumed by RunTelegram.
func (b *Bot) TelegramRunOptions() tg.RunOptions {
	reg := b.Registry()

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: b.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(reg))
	routes = append(routes, router.TextRoute(b.fsm, reg, router.TextOptions{
		UnknownText: b.handleStart,
	}))

	return tg.RunOptions{
		Config:      b.cfg,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(b.cfg, nil),
		Routes:      routes,
	}
}

func (b *Bot) trialDays() int {
	return int(b.cfg.TrialWindow().Hours() / 24)
}
