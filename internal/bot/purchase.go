package bot

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/endurancevpn/vpnbot/internal/logger"
	"github.com/endurancevpn/vpnbot/internal/telegram/callbacks"
	tghelpers "github.com/endurancevpn/vpnbot/internal/telegram/helpers"
)

// handleBuy shows the inline tariff menu.
func (b *Bot) handleBuy(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	tariffs, err := b.store.ListTariffs(ctx)
	if err != nil {
		logger.Error(ctx, "service.tariffs", "buy.list_failed", logger.Err(err))
		return tghelpers.SendText(c, msgSupport)
	}
	return tghelpers.SendText(c, msgChooseTariff, tariffsKeyboard(tariffs))
}

// handlePayCallback creates a bill for the chosen tariff and swaps the
// menu for a payment link.
func (b *Bot) handlePayCallback(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	tariffID, err := callbacks.PayloadInt64(c)
	if err != nil {
		logger.Warn(ctx, "billing", "pay.bad_payload", logger.Err(err))
		return nil
	}

	tariff, err := b.store.TariffByID(ctx, tariffID)
	if err != nil || tariff == nil {
		logger.Error(ctx, "service.tariffs", "pay.tariff_missing",
			slog.Int64("tariff_id", tariffID),
			logger.Err(err),
		)
		return tghelpers.SendText(c, msgSupport)
	}

	data, err := b.store.UserWithVpn(ctx, c.Sender().ID)
	if err != nil || data == nil || data.User == nil {
		logger.Error(ctx, "service.users", "pay.load_failed", logger.Err(err))
		return tghelpers.SendText(c, msgSupport)
	}
	if data.Vpn == nil {
		return tghelpers.SendText(c, msgVpnNone)
	}

	msg := c.Message()
	bill, err := b.billing.CreateBill(ctx, data.Vpn, tariff, msg.ID, msg.Chat.ID)
	if err != nil {
		logger.Error(ctx, "billing", "pay.bill_failed",
			slog.Int64("user_id", data.User.ID),
			slog.Int64("tariff_id", tariff.ID),
			logger.Err(err),
		)
		return tghelpers.SendText(c, msgSupport)
	}

	logger.Info(ctx, "billing", "pay.bill_created",
		slog.Int64("user_id", data.User.ID),
		slog.String("bill_id", bill.ID),
	)
	return c.Edit(msgBill(tariff.Price, tariff.Days), payKeyboard(bill.ConfirmationURL))
}

// handleBackTariff re-renders the tariff menu in place.
func (b *Bot) handleBackTariff(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	tariffs, err := b.store.ListTariffs(ctx)
	if err != nil {
		logger.Error(ctx, "service.tariffs", "buy.list_failed", logger.Err(err))
		return tghelpers.SendText(c, msgSupport)
	}
	return c.Edit(msgChooseTariff, tariffsKeyboard(tariffs))
}

// handleCancelBuy removes the purchase message entirely.
func (b *Bot) handleCancelBuy(c tele.Context) error {
	return c.Delete()
}
