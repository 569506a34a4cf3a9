package bot

import (
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/endurancevpn/vpnbot/internal/logger"
	tghelpers "github.com/endurancevpn/vpnbot/internal/telegram/helpers"
)

// handlePendingUsers lists users whose provisioning request is still in
// flight. Registered as admin-only.
func (b *Bot) handlePendingUsers(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	users, err := b.store.ListPendingUsers(ctx)
	if err != nil {
		logger.Error(ctx, "service.users", "pending.list_failed", logger.Err(err))
		return tghelpers.SendText(c, msgSupport)
	}
	if len(users) == 0 {
		return tghelpers.SendText(c, msgNoPendingUsers)
	}

	var sb strings.Builder
	sb.WriteString("Заявки в обработке:\n")
	for _, u := range users {
		fmt.Fprintf(&sb, "%d — %s (tg %d)\n", u.ID, u.Name, u.TelegramID)
	}

	logger.Info(ctx, "service.users", "pending.listed",
		slog.Int("pending_count", len(users)),
	)
	return tghelpers.SendText(c, sb.String())
}
