package bot

import (
	"os"

	tele "gopkg.in/telebot.v4"

	"github.com/endurancevpn/vpnbot/internal/logger"
	tghelpers "github.com/endurancevpn/vpnbot/internal/telegram/helpers"
)

// handleInstruction replies with the connection instruction file verbatim.
func (b *Bot) handleInstruction(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	data, err := os.ReadFile(b.cfg.InstructionPath)
	if err != nil {
		logger.Error(ctx, "tg", "instruction.read_failed", logger.Err(err))
		return tghelpers.SendText(c, msgSupport)
	}
	return tghelpers.SendText(c, string(data))
}

func (b *Bot) handleInformation(c tele.Context) error {
	return tghelpers.SendText(c, msgInformation)
}
