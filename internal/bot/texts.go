package bot

import "fmt"

// User-facing texts. The bot speaks Russian; handlers format these with
// user and tariff data.
const (
	msgGreetNew          = "Привет! Нужен VPN? Зарегистрируйся!"
	msgAlreadyRegistered = "Вы уже зарегистрированы!"
	msgAskName           = "Укажите имя"
	msgNameTooLong       = "Имя слишком длинное, попробуй еще."
	msgNameBadChars      = "Имя содержит не допустимые символы, попробуй еще."

	msgVpnNone    = "Статус вашего VPN: Не создан"
	msgVpnPending = "Статус вашего VPN: В обработке"
	msgVpnExpired = "Статус вашего VPN: \"Истек\""

	msgTrialRequested = "Получили Ваш запрос.\nОжидайте формирования настроек.\nОбычно занимает около 5 минут."
	msgSupport        = "Что-то пошло не так, обратитесь в техническую поддержку @endurancevpnsupport"
	msgAlreadyHasVpn  = "Для вас уже создан VPN"

	msgChooseTariff = "Выберите тарифный план:"
	msgInformation  = "Информация"

	msgNoPendingUsers = "Нет заявок в обработке"
)

// expiryFormat renders expiry dates the way users expect: day.month.year.
const expiryFormat = "02.01.2006"

func msgGreet(name string) string {
	return fmt.Sprintf("Привет, %s! Что делаем?", name)
}

func msgRegistered(name string) string {
	return fmt.Sprintf("Регистрация завершена, %s!", name)
}

func msgTrialIntro(days int) string {
	return fmt.Sprintf("Пробная версия выдается на %d дн.\nСтатус твоего аккаунта можно посмотреть\nпо кнопке \"МойПрофиль\"", days)
}

func msgBill(price, days int) string {
	return fmt.Sprintf("Ваш счет на сумму %d₽ на %d дней.\nСчет действителен до конца дня.", price, days)
}
