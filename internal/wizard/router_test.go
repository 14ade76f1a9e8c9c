package wizard_test

import (
	"context"
	"strings"
	"testing"

	"github.com/nkaliyev/tengebot/internal/ledger"
	"github.com/nkaliyev/tengebot/internal/wizard"
)

type stubCatalog struct {
	accounts       []ledger.Account
	categories     []ledger.Category
	counterparties map[ledger.DebtDirection][]ledger.Account
}

func (s *stubCatalog) MoneyAccounts(_ context.Context, _ string) ([]ledger.Account, error) {
	return s.accounts, nil
}

func (s *stubCatalog) Categories(_ context.Context, _ string, kind ledger.CategoryKind, _ bool) ([]ledger.Category, error) {
	var out []ledger.Category
	for _, c := range s.categories {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubCatalog) Counterparties(_ context.Context, _ string, direction ledger.DebtDirection) ([]ledger.Account, error) {
	return s.counterparties[direction], nil
}

func (s *stubCatalog) FindAccount(_ context.Context, _, accountID string) (*ledger.Account, error) {
	for _, a := range s.accounts {
		if a.ID == accountID {
			found := a
			return &found, nil
		}
	}
	for _, list := range s.counterparties {
		for _, a := range list {
			if a.ID == accountID {
				found := a
				return &found, nil
			}
		}
	}
	return nil, ledger.ErrNotFound
}

func (s *stubCatalog) FindCategory(_ context.Context, _, categoryID string) (*ledger.Category, error) {
	for _, c := range s.categories {
		if c.ID == categoryID {
			found := c
			return &found, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func testCatalog() *stubCatalog {
	return &stubCatalog{
		accounts: []ledger.Account{
			{ID: "kaspi1", Name: "Kaspi Gold", Icon: "💳", Kind: ledger.AccountAsset, Balance: 125000},
			{ID: "cash01", Name: "Наличные", Icon: "💵", Kind: ledger.AccountAsset, Balance: 8000},
		},
		categories: []ledger.Category{
			{ID: "food01", Name: "Продукты", Icon: "🛒", Kind: ledger.CategoryExpense},
			{ID: "cafe01", Name: "Кафе", Icon: "🍔", Kind: ledger.CategoryExpense},
			{ID: "sal001", Name: "Зарплата", Icon: "💰", Kind: ledger.CategoryIncome},
		},
		counterparties: map[ledger.DebtDirection][]ledger.Account{
			ledger.DebtLent: {
				{ID: "aibek1", Name: "Айбек", Icon: "📥", Kind: ledger.AccountReceivable, Balance: 5000},
			},
			ledger.DebtBorrowed: {
				{ID: "berik1", Name: "Берик", Icon: "📤", Kind: ledger.AccountLiability, Balance: 20000},
			},
		},
	}
}

func findButton(t *testing.T, p *wizard.Prompt, labelPrefix string) wizard.Button {
	t.Helper()
	for _, row := range p.Keyboard {
		for _, b := range row {
			if strings.HasPrefix(b.Label, labelPrefix) {
				return b
			}
		}
	}
	t.Fatalf("no button starting with %q in keyboard %+v", labelPrefix, p.Keyboard)
	return wizard.Button{}
}

// press decodes nothing itself: it advances the router with the button's
// token exactly the way the chat surface would.
func press(t *testing.T, r *wizard.Router, b wizard.Button) *wizard.Outcome {
	t.Helper()
	out, err := r.Advance(context.Background(), "profile-1", b.Token)
	if err != nil {
		t.Fatalf("Advance(%q) returned error: %v", b.Token, err)
	}
	return out
}

func TestBeginOpensKindPrompt(t *testing.T) {
	r := wizard.NewRouter(testCatalog())

	prompt, err := r.Begin(context.Background(), "profile-1", "5 000", 42)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if !strings.Contains(prompt.Text, "5 000 ₸") {
		t.Errorf("prompt text %q does not echo the amount", prompt.Text)
	}
	if !strings.Contains(prompt.Text, "Выберите тип операции") {
		t.Errorf("prompt text %q does not ask for a kind", prompt.Text)
	}
	if len(prompt.Keyboard) != 3 {
		t.Fatalf("kind keyboard has %d rows, want 3", len(prompt.Keyboard))
	}
	if len(prompt.Keyboard[0]) != 2 || len(prompt.Keyboard[1]) != 2 {
		t.Errorf("kind rows are not paired: %+v", prompt.Keyboard)
	}

	st, err := wizard.Decode(findButton(t, prompt, "📉 Расход").Token)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if st.Kind != wizard.KindExpense || st.Amount != 5000 || st.MessageID != 42 {
		t.Errorf("expense button state = %+v", st)
	}
}

func TestBeginAnswersHintsInsteadOfErrors(t *testing.T) {
	r := wizard.NewRouter(testCatalog())

	prompt, err := r.Begin(context.Background(), "profile-1", "привет", 1)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if prompt.Keyboard != nil {
		t.Errorf("hint prompt should carry no keyboard: %+v", prompt.Keyboard)
	}
	if !strings.Contains(prompt.Text, "Не понял сумму") {
		t.Errorf("hint text = %q", prompt.Text)
	}

	prompt, err = r.Begin(context.Background(), "profile-1", "1000000000", 1)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if !strings.Contains(prompt.Text, "от 1 до 999 999 999") {
		t.Errorf("range hint text = %q", prompt.Text)
	}
}

func TestExpenseFlowEndToEnd(t *testing.T) {
	r := wizard.NewRouter(testCatalog())
	ctx := context.Background()

	prompt, err := r.Begin(ctx, "profile-1", "2500", 42)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}

	out := press(t, r, findButton(t, prompt, "📉 Расход"))
	if out.Prompt == nil || !strings.Contains(out.Prompt.Text, "Выберите категорию") {
		t.Fatalf("expected category prompt, got %+v", out)
	}

	out = press(t, r, findButton(t, out.Prompt, "🛒 Продукты"))
	if out.Prompt == nil || !strings.Contains(out.Prompt.Text, "Откуда списать?") {
		t.Fatalf("expected account prompt, got %+v", out)
	}
	if !strings.Contains(out.Prompt.Text, "Продукты") {
		t.Errorf("account prompt does not echo the category: %q", out.Prompt.Text)
	}

	out = press(t, r, findButton(t, out.Prompt, "💳 Kaspi Gold"))
	if out.Operation == nil {
		t.Fatalf("expected a finalized operation, got %+v", out)
	}
	op := out.Operation
	if op.Kind != ledger.OpExpense || op.Amount != 2500 {
		t.Errorf("operation = %+v", op)
	}
	if op.CategoryID != "food01" || op.SourceAccountID != "kaspi1" || op.ProfileID != "profile-1" {
		t.Errorf("operation references = %+v", op)
	}
}

func TestTransferFlowExcludesSourceFromDestinations(t *testing.T) {
	r := wizard.NewRouter(testCatalog())
	ctx := context.Background()

	prompt, err := r.Begin(ctx, "profile-1", "70000", 7)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}

	out := press(t, r, findButton(t, prompt, "🔄 Перевод"))
	if out.Prompt == nil || !strings.Contains(out.Prompt.Text, "Откуда перевести?") {
		t.Fatalf("expected source prompt, got %+v", out)
	}

	out = press(t, r, findButton(t, out.Prompt, "💳 Kaspi Gold"))
	if out.Prompt == nil || !strings.Contains(out.Prompt.Text, "Куда перевести?") {
		t.Fatalf("expected destination prompt, got %+v", out)
	}
	for _, row := range out.Prompt.Keyboard {
		for _, b := range row {
			if strings.HasPrefix(b.Label, "💳 Kaspi Gold") {
				t.Errorf("source account offered as destination: %+v", out.Prompt.Keyboard)
			}
		}
	}

	out = press(t, r, findButton(t, out.Prompt, "💵 Наличные"))
	if out.Operation == nil {
		t.Fatalf("expected a finalized operation, got %+v", out)
	}
	op := out.Operation
	if op.Kind != ledger.OpTransfer || op.SourceAccountID != "kaspi1" || op.DestinationAccountID != "cash01" {
		t.Errorf("operation = %+v", op)
	}
}

func TestBorrowFlowEndToEnd(t *testing.T) {
	r := wizard.NewRouter(testCatalog())
	ctx := context.Background()

	prompt, err := r.Begin(ctx, "profile-1", "20к", 9)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}

	out := press(t, r, findButton(t, prompt, "🤝 Долги"))
	if out.Prompt == nil || !strings.Contains(out.Prompt.Text, "Выберите направление") {
		t.Fatalf("expected direction prompt, got %+v", out)
	}

	out = press(t, r, findButton(t, out.Prompt, "📥 Взял в долг"))
	if out.Prompt == nil || !strings.Contains(out.Prompt.Text, "На какой счёт?") {
		t.Fatalf("expected debt source prompt, got %+v", out)
	}

	out = press(t, r, findButton(t, out.Prompt, "💵 Наличные"))
	if out.Prompt == nil || !strings.Contains(out.Prompt.Text, "У кого?") {
		t.Fatalf("expected counterparty prompt, got %+v", out)
	}

	out = press(t, r, findButton(t, out.Prompt, "📤 Берик"))
	if out.Operation == nil {
		t.Fatalf("expected a finalized operation, got %+v", out)
	}
	op := out.Operation
	if op.Kind != ledger.OpBorrow || op.Amount != 20000 {
		t.Errorf("operation = %+v", op)
	}
	if op.SourceAccountID != "cash01" || op.DestinationAccountID != "berik1" {
		t.Errorf("operation references = %+v", op)
	}
}

func TestLendFlowOffersNewCounterparty(t *testing.T) {
	r := wizard.NewRouter(testCatalog())
	ctx := context.Background()

	prompt, err := r.Begin(ctx, "profile-1", "5000", 9)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	out := press(t, r, findButton(t, prompt, "🤝 Долги"))
	out = press(t, r, findButton(t, out.Prompt, "📤 Дал в долг"))
	out = press(t, r, findButton(t, out.Prompt, "💳 Kaspi Gold"))

	if out.Prompt == nil || !strings.Contains(out.Prompt.Text, "Кому?") {
		t.Fatalf("expected counterparty prompt, got %+v", out)
	}
	findButton(t, out.Prompt, "📥 Айбек")

	out = press(t, r, findButton(t, out.Prompt, "➕ Новый человек"))
	if out.Notice != wizard.NoticeInProgress || !out.Alert {
		t.Errorf("new counterparty should answer with an alert, got %+v", out)
	}
}

func TestBackReturnsToPreviousStep(t *testing.T) {
	r := wizard.NewRouter(testCatalog())
	ctx := context.Background()

	prompt, err := r.Begin(ctx, "profile-1", "2500", 42)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	out := press(t, r, findButton(t, prompt, "📉 Расход"))
	out = press(t, r, findButton(t, out.Prompt, "🛒 Продукты"))
	if !strings.Contains(out.Prompt.Text, "Откуда списать?") {
		t.Fatalf("expected account prompt, got %q", out.Prompt.Text)
	}

	// Account -> category -> kind, amount preserved the whole way.
	out = press(t, r, findButton(t, out.Prompt, "◀️ Назад"))
	if out.Prompt == nil || !strings.Contains(out.Prompt.Text, "Выберите категорию") {
		t.Fatalf("back did not return to categories, got %+v", out)
	}
	out = press(t, r, findButton(t, out.Prompt, "◀️ Назад"))
	if out.Prompt == nil || !strings.Contains(out.Prompt.Text, "Выберите тип операции") {
		t.Fatalf("back did not return to kinds, got %+v", out)
	}
	if !strings.Contains(out.Prompt.Text, "2 500 ₸") {
		t.Errorf("amount lost on the way back: %q", out.Prompt.Text)
	}
}

func TestCancelDeletesWizardMessage(t *testing.T) {
	r := wizard.NewRouter(testCatalog())

	prompt, err := r.Begin(context.Background(), "profile-1", "100", 1)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	out := press(t, r, findButton(t, prompt, "❌ Отмена"))
	if !out.DeleteMessage {
		t.Errorf("cancel should delete the message, got %+v", out)
	}
	if out.Notice != wizard.NoticeCanceled {
		t.Errorf("cancel notice = %q", out.Notice)
	}
	if out.Prompt != nil || out.Operation != nil {
		t.Errorf("cancel produced extra effects: %+v", out)
	}
}

// Only the kind keyboard shows the cancel button, but a cancel token
// pressed on an older message must still be honored at any step.
func TestCancelTokenHonoredMidFlow(t *testing.T) {
	r := wizard.NewRouter(testCatalog())

	tok, err := wizard.Encode(wizard.State{
		Amount:     100,
		Kind:       wizard.KindExpense,
		CategoryID: "food01",
		Action:     wizard.ActionCancel,
	})
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	out, err := r.Advance(context.Background(), "profile-1", tok)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if !out.DeleteMessage || out.Notice != wizard.NoticeCanceled {
		t.Errorf("mid-flow cancel outcome = %+v", out)
	}
}

func TestFinalizeTokenWithMissingFieldsIsDropped(t *testing.T) {
	r := wizard.NewRouter(testCatalog())

	tok, err := wizard.Encode(wizard.State{Amount: 100, Kind: wizard.KindExpense, Finalize: true})
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	out, err := r.Advance(context.Background(), "profile-1", tok)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if out.Notice != wizard.NoticeBadToken {
		t.Errorf("notice = %q, want bad token notice", out.Notice)
	}
	if out.Prompt != nil || out.Operation != nil || out.DeleteMessage {
		t.Errorf("incomplete finalize produced effects: %+v", out)
	}
}

func TestCustomCategoryAnswersWithAlert(t *testing.T) {
	r := wizard.NewRouter(testCatalog())
	ctx := context.Background()

	prompt, err := r.Begin(ctx, "profile-1", "100", 1)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	out := press(t, r, findButton(t, prompt, "📈 Доход"))
	out = press(t, r, findButton(t, out.Prompt, "✍️ Другое"))
	if out.Notice != wizard.NoticeInProgress || !out.Alert {
		t.Errorf("custom category should answer with an alert, got %+v", out)
	}
}

func TestAdvanceShrugsOffGarbageTokens(t *testing.T) {
	r := wizard.NewRouter(testCatalog())

	out, err := r.Advance(context.Background(), "profile-1", "not a token")
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if out.Notice != wizard.NoticeBadToken {
		t.Errorf("notice = %q, want bad token notice", out.Notice)
	}
	if out.Prompt != nil || out.Operation != nil || out.DeleteMessage {
		t.Errorf("garbage token produced effects: %+v", out)
	}
}

func TestEmptyCategoriesShowExplicitState(t *testing.T) {
	cat := testCatalog()
	cat.categories = nil
	r := wizard.NewRouter(cat)
	ctx := context.Background()

	prompt, err := r.Begin(ctx, "profile-1", "100", 1)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	out := press(t, r, findButton(t, prompt, "📉 Расход"))
	if out.Prompt == nil || !strings.Contains(out.Prompt.Text, "Нет категорий") {
		t.Fatalf("expected empty-state text, got %+v", out)
	}
	// Still navigable: the keyboard offers a way back.
	findButton(t, out.Prompt, "◀️ Назад")
}

func TestEmptyAccountsShowExplicitState(t *testing.T) {
	cat := testCatalog()
	cat.accounts = nil
	r := wizard.NewRouter(cat)
	ctx := context.Background()

	prompt, err := r.Begin(ctx, "profile-1", "100", 1)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	out := press(t, r, findButton(t, prompt, "🔄 Перевод"))
	if out.Prompt == nil || !strings.Contains(out.Prompt.Text, "Нет счетов") {
		t.Fatalf("expected empty-state text, got %+v", out)
	}
	findButton(t, out.Prompt, "◀️ Назад")
}

func TestTransferWithSingleAccountHasNoDestination(t *testing.T) {
	cat := testCatalog()
	cat.accounts = cat.accounts[:1]
	r := wizard.NewRouter(cat)
	ctx := context.Background()

	prompt, err := r.Begin(ctx, "profile-1", "100", 1)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	out := press(t, r, findButton(t, prompt, "🔄 Перевод"))
	out = press(t, r, findButton(t, out.Prompt, "💳 Kaspi Gold"))
	if out.Prompt == nil || !strings.Contains(out.Prompt.Text, "Нужен второй счёт") {
		t.Fatalf("expected empty destinations text, got %+v", out)
	}
	findButton(t, out.Prompt, "◀️ Назад")
}

func TestFinalizeWithDeletedAccountDropsBackOneStep(t *testing.T) {
	cat := testCatalog()
	r := wizard.NewRouter(cat)
	ctx := context.Background()

	prompt, err := r.Begin(ctx, "profile-1", "2500", 42)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	out := press(t, r, findButton(t, prompt, "📉 Расход"))
	out = press(t, r, findButton(t, out.Prompt, "🛒 Продукты"))
	finalize := findButton(t, out.Prompt, "💳 Kaspi Gold")

	// The account disappears between the keyboard being drawn and pressed.
	cat.accounts = cat.accounts[1:]

	out = press(t, r, finalize)
	if out.Operation != nil {
		t.Fatalf("operation recorded against a deleted account: %+v", out.Operation)
	}
	if out.Notice != wizard.NoticeStale {
		t.Errorf("notice = %q, want stale notice", out.Notice)
	}
	if out.Prompt == nil || !strings.Contains(out.Prompt.Text, "Откуда списать?") {
		t.Fatalf("expected to drop back to the account step, got %+v", out)
	}
}

func TestFinalizeWithDeletedCategoryDropsToCategoryStep(t *testing.T) {
	cat := testCatalog()
	r := wizard.NewRouter(cat)
	ctx := context.Background()

	prompt, err := r.Begin(ctx, "profile-1", "2500", 42)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	out := press(t, r, findButton(t, prompt, "📉 Расход"))
	out = press(t, r, findButton(t, out.Prompt, "🛒 Продукты"))
	finalize := findButton(t, out.Prompt, "💳 Kaspi Gold")

	cat.categories = cat.categories[1:]

	out = press(t, r, finalize)
	if out.Operation != nil {
		t.Fatalf("operation recorded against a deleted category: %+v", out.Operation)
	}
	if out.Prompt == nil || !strings.Contains(out.Prompt.Text, "Выберите категорию") {
		t.Fatalf("expected to drop back to the category step, got %+v", out)
	}
}
