package bot

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/endurancevpn/vpnbot/internal/logger"
	"github.com/endurancevpn/vpnbot/internal/models"
	tghelpers "github.com/endurancevpn/vpnbot/internal/telegram/helpers"
)

// handleTrial asks the provisioning service for a trial VPN. Only users in
// the created status may request one; the provisioning service flips the
// user's status itself, so nothing is persisted here.
func (b *Bot) handleTrial(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	user, err := b.store.UserByTelegramID(ctx, c.Sender().ID)
	if err != nil {
		logger.Error(ctx, "service.vpns", "trial.lookup_failed", logger.Err(err))
		return tghelpers.SendText(c, msgSupport)
	}
	if user == nil {
		return tghelpers.SendText(c, msgGreetNew, newUserKeyboard())
	}

	logger.Info(ctx, "service.vpns", "trial.requested",
		slog.Int64("user_id", user.ID),
		slog.String("user_status", string(user.Status)),
	)
	if err := tghelpers.SendText(c, msgTrialIntro(b.trialDays())); err != nil {
		return err
	}

	if user.Status != models.UserStatusCreated {
		return tghelpers.SendText(c, msgAlreadyHasVpn, executedUserKeyboard())
	}

	if err := b.provision.CreateVPN(ctx, user); err != nil {
		logger.Error(ctx, "provision", "trial.provision_failed",
			slog.Int64("user_id", user.ID),
			logger.Err(err),
		)
		return tghelpers.SendText(c, msgSupport)
	}

	return tghelpers.SendText(c, msgTrialRequested, pendingUserKeyboard())
}
