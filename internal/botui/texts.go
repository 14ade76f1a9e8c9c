package botui

import (
	"fmt"
	"strings"

	"github.com/nkaliyev/tengebot/internal/ledger"
	"github.com/nkaliyev/tengebot/internal/wizard"
)

const divider = "━━━━━━━━━━━━━━━━━━\n"

const (
	msgResetDone = "🔄 <b>Данные очищены!</b>\n\n" +
		"Все транзакции удалены.\n" +
		"Счета и категории сохранены.\n\n" +
		"Отправь сумму чтобы начать заново! 💰"
	msgResetFailed = "❌ Ошибка очистки данных. Попробуй /start снова."

	msgProfileRecreated = "🗑 <b>Профиль пересоздан!</b>\n\n" +
		"Все старые данные удалены.\n" +
		"Создан новый профиль со стандартными счетами и категориями.\n\n" +
		"Отправь сумму чтобы начать! 💰"
	msgProfileDeleteFailed = "❌ Ошибка создания профиля. Попробуй /start снова."

	msgContinue = "✅ Отлично! Просто отправь сумму чтобы добавить транзакцию. 💰"

	msgResolveFailed = "❌ Что-то пошло не так. Попробуй ещё раз."

	msgSaveFailed = "❌ Ошибка сохранения"

	msgBalanceEmpty = "💳 У вас пока нет счетов.\n\nОтправь /start чтобы пересоздать профиль."
)

func msgWelcomeNew(displayName string) string {
	return fmt.Sprintf(
		"✅ Добро пожаловать, <b>%s</b>!\n\n"+
			"Я создал тебе профиль со стандартными счетами и категориями.",
		displayName)
}

func msgWelcome(firstName string) string {
	return fmt.Sprintf(`👋 <b>%s</b>, я Tengebot!

<b>Быстрый старт:</b>
Просто отправь <b>сумму</b> (например <code>5000</code>) и выбери тип операции.

<b>Команды:</b>
/balance — Балансы счетов
/help — Полная справка

💰 Начни прямо сейчас — отправь число!`, firstName)
}

func msgWelcomeBack(firstName string) string {
	return fmt.Sprintf(`👋 С возвращением, <b>%s</b>!

Твой профиль уже настроен. Просто отправь сумму чтобы добавить транзакцию.

<b>Или выбери действие:</b>`, firstName)
}

const msgHelp = `📖 <b>Справка по Tengebot</b>

<b>Быстрый ввод:</b>
Просто отправь число — это сумма твоей операции.
Например: <code>2500</code>

<b>Типы операций:</b>
📉 <b>Расход</b> — деньги потрачены
📈 <b>Доход</b> — деньги получены
🔄 <b>Перевод</b> — между своими счетами
🤝 <b>Долги</b> — дал/взял в долг

<b>Команды:</b>
/start — Начать работу / Сбросить
/balance — Балансы всех счетов
/help — Эта справка

<b>Примеры:</b>
<code>500</code> → Расход → Еда → Kaspi
<code>100000</code> → Доход → Зарплата`

// operationHeader is the kind line of the saved-transaction summary.
func operationHeader(kind ledger.OperationKind) string {
	switch kind {
	case ledger.OpIncome:
		return "📈 Доход"
	case ledger.OpTransfer:
		return "🔄 Перевод"
	case ledger.OpLend:
		return "📤 Дал в долг"
	case ledger.OpBorrow:
		return "📥 Взял в долг"
	default:
		return "📉 Расход"
	}
}

// accountBalanceLine renders one account with its balance. Liabilities are
// shown negative: their stored balance grows positive as the debt grows.
func accountBalanceLine(a ledger.Account) string {
	display := wizard.FormatTenge(a.Balance)
	if a.Kind == ledger.AccountLiability {
		b := a.Balance
		if b < 0 {
			b = -b
		}
		display = "-" + wizard.FormatTenge(b)
	}
	return fmt.Sprintf("%s %s: <b>%s</b>", a.Icon, a.Name, display)
}

// renderBalance formats the grouped balance summary the way /balance
// shows it.
func renderBalance(s *ledger.BalanceSummary) string {
	var sb strings.Builder
	sb.WriteString("💰 <b>Ваши балансы</b>\n\n")

	section := func(title string, accounts []ledger.Account) {
		if len(accounts) == 0 {
			return
		}
		sb.WriteString(title + "\n")
		for _, a := range accounts {
			sb.WriteString("  " + accountBalanceLine(a) + "\n")
		}
		sb.WriteString("\n")
	}

	section("💳 <b>Счета:</b>", s.Money)
	section("💳 <b>Кредитные:</b>", s.Credit)
	section("🏦 <b>Накопления:</b>", s.Savings)
	section("📥 <b>Мне должны:</b>", s.Receivables)
	section("📤 <b>Я должен:</b>", s.Liabilities)

	sb.WriteString(divider)
	fmt.Fprintf(&sb, "💵 Доступно: <b>%s</b>\n", wizard.FormatTenge(s.Available))
	if s.Saved > 0 {
		fmt.Fprintf(&sb, "🏦 Накоплено: <b>%s</b>\n", wizard.FormatTenge(s.Saved))
	}
	if s.OwedToMe > 0 {
		fmt.Fprintf(&sb, "📥 Мне должны: <b>%s</b>\n", wizard.FormatTenge(s.OwedToMe))
	}
	if s.IOwe > 0 {
		fmt.Fprintf(&sb, "📤 Я должен: <b>-%s</b>\n", wizard.FormatTenge(s.IOwe))
	}

	net := s.NetWorth()
	sign := ""
	if net >= 0 {
		sign = "+"
	}
	fmt.Fprintf(&sb, "\n💎 Чистый капитал: <b>%s%s</b>", sign, wizard.FormatTenge(net))

	return sb.String()
}

// renderSaved formats the confirmation shown after a transaction is
// recorded. categoryName may be empty; accounts carry refreshed balances.
func renderSaved(kind ledger.OperationKind, amount int64, categoryName string, accounts []ledger.Account) string {
	var sb strings.Builder
	sb.WriteString("✅ <b>Сохранено!</b>\n\n")
	fmt.Fprintf(&sb, "%s: <b>%s</b>\n", operationHeader(kind), wizard.FormatTenge(amount))
	if categoryName != "" {
		fmt.Fprintf(&sb, "📁 Категория: %s\n", categoryName)
	}
	sb.WriteString(divider)
	for _, a := range accounts {
		sb.WriteString(accountBalanceLine(a) + "\n")
	}
	sb.WriteString("\n💡 <i>Отправь новую сумму для следующей транзакции</i>")
	return sb.String()
}
