package bot

import (
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/endurancevpn/vpnbot/internal/models"
	"github.com/endurancevpn/vpnbot/internal/telegram/keyboard"
)

// Reply keyboard button labels. These double as command aliases in the
// registry, so pressing a button routes like typing the command.
const (
	btnRegister    = "Регистрация"
	btnProfile     = "МойПрофиль"
	btnTrial       = "ПробнаяВерсия"
	btnBuy         = "ПродлитьVPN"
	btnInstruction = "Инструкция"
	btnInformation = "Информация"
)

// Inline callback keys.
const (
	cbTariff     = "tariff"
	cbBackTariff = "back_tariff"
	cbCancelBuy  = "cancel_buy"
)

func newUserKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{btnRegister},
		[]string{btnInformation},
	)
}

func createdUserKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{btnTrial, btnBuy},
		[]string{btnProfile},
		[]string{btnInstruction, btnInformation},
	)
}

func pendingUserKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{btnProfile},
		[]string{btnInstruction, btnInformation},
	)
}

func executedUserKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{btnBuy, btnProfile},
		[]string{btnInstruction, btnInformation},
	)
}

// keyboardFor picks the reply keyboard matching the user's lifecycle status.
func keyboardFor(status models.UserStatus) *tele.ReplyMarkup {
	switch status {
	case models.UserStatusPending:
		return pendingUserKeyboard()
	case models.UserStatusExecuted:
		return executedUserKeyboard()
	default:
		return createdUserKeyboard()
	}
}

func tariffsKeyboard(tariffs []models.Tariff) *tele.ReplyMarkup {
	buttons := make([]keyboard.InlineBtn, 0, len(tariffs)+1)
	for _, t := range tariffs {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   fmt.Sprintf("%d₽ на %d дней", t.Price, t.Days),
			Unique: cbTariff,
			Data:   strconv.FormatInt(t.ID, 10),
		})
	}
	buttons = append(buttons, keyboard.InlineBtn{Text: "Отмена", Unique: cbCancelBuy})
	return keyboard.InlineButtons(buttons)
}

func payKeyboard(confirmationURL string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	pay := markup.URL("Оплатить", confirmationURL)
	back := markup.Data("Назад", cbBackTariff)
	cancel := markup.Data("Отмена", cbCancelBuy)
	markup.Inline(markup.Row(pay), markup.Row(back, cancel))
	return markup
}
