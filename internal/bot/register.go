package bot

import (
	"errors"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/endurancevpn/vpnbot/internal/logger"
	"github.com/endurancevpn/vpnbot/internal/storage"
	tghelpers "github.com/endurancevpn/vpnbot/internal/telegram/helpers"
	"github.com/endurancevpn/vpnbot/internal/telegram/keyboard"
	"github.com/endurancevpn/vpnbot/internal/telegram/state"
)

const maxNameLen = 15

// validateName checks a connection name: at most 15 characters, and no
// "/" or "@" (both break the generated client config).
func validateName(name string) string {
	if len([]rune(name)) > maxNameLen {
		return msgNameTooLong
	}
	if strings.ContainsAny(name, "/@") {
		return msgNameBadChars
	}
	return ""
}

// handleRegister starts the registration conversation unless the identity
// is already known.
func (b *Bot) handleRegister(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	telegramID := c.Sender().ID

	user, err := b.store.UserByTelegramID(ctx, telegramID)
	if err != nil {
		logger.Error(ctx, "service.users", "register.lookup_failed", logger.Err(err))
		return tghelpers.SendText(c, msgSupport)
	}
	if user != nil {
		return tghelpers.SendText(c, msgAlreadyRegistered)
	}

	b.fsm.SetState(telegramID, state.AwaitingName)
	return tghelpers.SendText(c, msgAskName, keyboard.RemoveKeyboard())
}

// handleRegisterName consumes the next text message while awaiting a name.
// Validation failures keep the conversation open; the user may retry
// indefinitely.
func (b *Bot) handleRegisterName(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	telegramID := c.Sender().ID
	name := strings.TrimSpace(c.Text())

	if reason := validateName(name); reason != "" {
		logger.Warn(ctx, "service.users", "register.name_rejected",
			slog.Int64("user_id", telegramID),
			slog.Int("name_len", len([]rune(name))),
		)
		return tghelpers.SendText(c, reason)
	}

	user, err := b.store.CreateUser(ctx, telegramID, name)
	if err != nil {
		b.fsm.ClearState(telegramID)
		if errors.Is(err, storage.ErrDuplicateIdentity) {
			return tghelpers.SendText(c, msgAlreadyRegistered)
		}
		logger.Error(ctx, "service.users", "register.create_failed", logger.Err(err))
		return tghelpers.SendText(c, msgSupport)
	}

	b.fsm.ClearState(telegramID)
	return tghelpers.SendText(c, msgRegistered(user.Name), createdUserKeyboard())
}
