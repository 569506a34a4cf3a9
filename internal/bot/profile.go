package bot

import (
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/endurancevpn/vpnbot/internal/logger"
	"github.com/endurancevpn/vpnbot/internal/models"
	tghelpers "github.com/endurancevpn/vpnbot/internal/telegram/helpers"
)

// handleProfile renders the user's profile and VPN status. Pending bills
// are reconciled first, so a confirmed payment or an elapsed trial shows
// up immediately; the (possibly mutated) vpn row is always persisted.
func (b *Bot) handleProfile(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	data, err := b.store.UserWithVpn(ctx, c.Sender().ID)
	if err != nil {
		logger.Error(ctx, "service.users", "profile.load_failed", logger.Err(err))
		return tghelpers.SendText(c, msgSupport)
	}
	if data == nil || data.User == nil {
		return tghelpers.SendText(c, msgGreetNew, newUserKeyboard())
	}

	user, vpn := data.User, data.Vpn

	var sb strings.Builder
	fmt.Fprintf(&sb, "Ваше имя: %s\nВаш ID: %d\n", user.Name, user.ID)

	if vpn == nil {
		sb.WriteString(msgVpnNone)
		return tghelpers.SendText(c, sb.String())
	}

	vpn, err = b.billing.CheckPendingBills(ctx, user, vpn)
	if err != nil {
		logger.Error(ctx, "billing", "profile.bill_check_failed", logger.Err(err))
		return tghelpers.SendText(c, msgSupport)
	}

	sb.WriteString(renderVpnStatus(user, vpn))

	if err := b.store.UpdateVpn(ctx, vpn); err != nil {
		logger.Error(ctx, "service.vpns", "profile.persist_failed",
			slog.Int64("vpn_id", vpn.ID),
			logger.Err(err),
		)
		return tghelpers.SendText(c, msgSupport)
	}

	return tghelpers.SendText(c, sb.String())
}

func renderVpnStatus(user *models.User, vpn *models.Vpn) string {
	switch {
	case user.Status == models.UserStatusPending:
		return msgVpnPending
	case vpn.Status == models.VpnStatusPaid:
		return fmt.Sprintf("Статус вашего VPN: \"Оплачен\"\nСрок действия заканчивается: %s",
			vpn.ExpiresAt.Format(expiryFormat))
	case vpn.Status == models.VpnStatusExpired:
		return msgVpnExpired
	case vpn.Status == models.VpnStatusTrial:
		return fmt.Sprintf("Статус вашего VPN: \"Пробный\"\nСрок действия заканчивается: %s",
			vpn.ExpiresAt.Format(expiryFormat))
	default:
		return msgVpnNone
	}
}
