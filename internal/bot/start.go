package bot

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/endurancevpn/vpnbot/internal/logger"
	tghelpers "github.com/endurancevpn/vpnbot/internal/telegram/helpers"
)

// handleStart greets a registered user by name with a keyboard matching
// their status, or invites an unregistered one to register.
func (b *Bot) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	user, err := b.store.UserByTelegramID(ctx, c.Sender().ID)
	if err != nil {
		logger.Error(ctx, "service.users", "start.lookup_failed", logger.Err(err))
		return tghelpers.SendText(c, msgSupport)
	}
	if user == nil {
		return tghelpers.SendText(c, msgGreetNew, newUserKeyboard())
	}

	logger.Debug(ctx, "service.users", "start.greet",
		slog.Int64("user_id", user.ID),
		slog.String("user_status", string(user.Status)),
	)
	return tghelpers.SendText(c, msgGreet(user.Name), keyboardFor(user.Status))
}
