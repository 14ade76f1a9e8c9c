package wizard

import (
	"fmt"

	"github.com/Rhymond/go-money"

	"github.com/nkaliyev/tengebot/internal/ledger"
)

func init() {
	// Whole tenge, space-grouped, symbol after the amount.
	money.AddCurrency("KZT", "₸", "1 $", ".", " ", 0)
}

// FormatTenge renders a whole tenge amount, e.g. 12500 into "12 500 ₸".
func FormatTenge(amount int64) string {
	return money.New(amount, "KZT").Display()
}

// Button labels.
const (
	btnExpense   = "📉 Расход"
	btnIncome    = "📈 Доход"
	btnTransfer  = "🔄 Перевод"
	btnDebt      = "🤝 Долги"
	btnCancel    = "❌ Отмена"
	btnBack      = "◀️ Назад"
	btnCustom    = "✍️ Другое"
	btnNewDebtor = "➕ Новый человек"
	btnLent      = "📤 Дал в долг"
	btnBorrowed  = "📥 Взял в долг"
)

// Callback-answer toasts.
const (
	NoticeCanceled   = "❌ Отменено"
	NoticeInProgress = "🚧 В разработке"
	NoticeBadToken   = "⚠️ Не получилось разобрать кнопку, отправь сумму заново"
	NoticeStale      = "⚠️ Выбор устарел, вернул на шаг назад"
)

func msgAmountHint() string {
	return "❌ Не понял сумму\n\nОтправь число, например: <code>5000</code>, <code>2 000</code> или <code>2.5k</code>"
}

func msgAmountRange() string {
	return fmt.Sprintf("❌ Сумма должна быть от 1 до %s", FormatTenge(ledger.MaxAmount))
}

func msgKind(amount int64) string {
	return fmt.Sprintf("💰 Сумма: <b>%s</b>\n\nВыберите тип операции:", FormatTenge(amount))
}

func kindHeader(k Kind, amount int64) string {
	switch k {
	case KindIncome:
		return fmt.Sprintf("📈 Доход: <b>%s</b>", FormatTenge(amount))
	case KindTransfer:
		return fmt.Sprintf("🔄 Перевод: <b>%s</b>", FormatTenge(amount))
	case KindDebt:
		return fmt.Sprintf("🤝 Долг: <b>%s</b>", FormatTenge(amount))
	case KindLend:
		return fmt.Sprintf("%s: <b>%s</b>", btnLent, FormatTenge(amount))
	case KindBorrow:
		return fmt.Sprintf("%s: <b>%s</b>", btnBorrowed, FormatTenge(amount))
	default:
		return fmt.Sprintf("📉 Расход: <b>%s</b>", FormatTenge(amount))
	}
}

func msgCategory(k Kind, amount int64) string {
	return kindHeader(k, amount) + "\n\nВыберите категорию:"
}

func msgAccount(k Kind, amount int64, categoryName string) string {
	question := "Откуда списать?"
	if k == KindIncome {
		question = "Куда зачислить?"
	}
	header := kindHeader(k, amount)
	if categoryName != "" {
		header += "\n📁 " + categoryName
	}
	return header + "\n\n" + question
}

func msgTransferSource(amount int64) string {
	return kindHeader(KindTransfer, amount) + "\n\nОткуда перевести?"
}

func msgTransferDestination(amount int64, sourceName string) string {
	header := kindHeader(KindTransfer, amount)
	if sourceName != "" {
		header += "\n📤 Откуда: " + sourceName
	}
	return header + "\n\nКуда перевести?"
}

func msgDebtDirection(amount int64) string {
	return kindHeader(KindDebt, amount) + "\n\nВыберите направление:"
}

func msgDebtSource(k Kind, amount int64) string {
	question := "С какого счёта?"
	if k == KindBorrow {
		question = "На какой счёт?"
	}
	return kindHeader(k, amount) + "\n\n" + question
}

func msgDebtCounterparty(k Kind, amount int64, sourceName string, empty bool) string {
	header := kindHeader(k, amount)
	if sourceName != "" {
		header += "\n💳 " + sourceName
	}
	if empty {
		return header + "\n\nПока нет людей в списке, добавь нового:"
	}
	question := "Кому?"
	if k == KindBorrow {
		question = "У кого?"
	}
	return header + "\n\n" + question
}

func msgEmptyCategories() string {
	return "⚠️ Нет категорий\n\nСначала добавь категории, потом возвращайся."
}

func msgEmptyAccounts() string {
	return "⚠️ Нет счетов\n\nСначала добавь счёт, потом возвращайся."
}

func msgEmptyDestinations() string {
	return "⚠️ Нужен второй счёт\n\nПереводить пока некуда."
}

func accountLabel(a ledger.Account) string {
	return fmt.Sprintf("%s %s (%s)", a.Icon, a.Name, FormatTenge(a.Balance))
}

func categoryLabel(c ledger.Category) string {
	return fmt.Sprintf("%s %s", c.Icon, c.Name)
}
