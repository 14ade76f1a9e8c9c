package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/nkaliyev/tengebot/internal/ledger"
	"github.com/nkaliyev/tengebot/internal/logger"
)

// Catalog is the read surface the router draws keyboards from.
type Catalog interface {
	MoneyAccounts(ctx context.Context, profileID string) ([]ledger.Account, error)
	Categories(ctx context.Context, profileID string, kind ledger.CategoryKind, frequentOnly bool) ([]ledger.Category, error)
	Counterparties(ctx context.Context, profileID string, direction ledger.DebtDirection) ([]ledger.Account, error)
	FindAccount(ctx context.Context, profileID, accountID string) (*ledger.Account, error)
	FindCategory(ctx context.Context, profileID, categoryID string) (*ledger.Category, error)
}

var _ Catalog = (*ledger.Directory)(nil)

// Button is one inline keyboard button.
type Button struct {
	Label string
	Token string
}

// Prompt is a wizard message: text plus an inline keyboard.
type Prompt struct {
	Text     string
	Keyboard [][]Button
}

// Outcome tells the chat surface what to do after a button press. At most
// one of Prompt, Operation and DeleteMessage is set; Notice rides along as
// the callback answer.
type Outcome struct {
	Prompt        *Prompt
	Operation     *ledger.Operation
	Notice        string
	Alert         bool
	DeleteMessage bool
}

// Router drives the wizard. Free text starts it, tokens advance it; all
// state lives inside the tokens themselves.
type Router struct {
	catalog Catalog
}

func NewRouter(catalog Catalog) *Router {
	return &Router{catalog: catalog}
}

type renderFunc func(*Router, context.Context, string, State) (*Prompt, error)

// stepSpec declares how one step behaves: the renderer that draws its
// keyboard and the back action that keyboard offers. Terminal steps draw
// no keyboard; the router passes through them only on entry and exit.
type stepSpec struct {
	terminal bool
	back     Action
	render   renderFunc
}

// flow is assigned in init: the renderer method expressions reach
// backRow, which reads flow, so a package-level literal would be an
// initialization cycle.
var flow map[Step]stepSpec

func init() {
	flow = map[Step]stepSpec{
		StepAmount:              {terminal: true},
		StepKind:                {render: (*Router).renderKind},
		StepCategory:            {back: ActionBackToKind, render: (*Router).renderCategory},
		StepAccount:             {back: ActionBackToCategory, render: (*Router).renderAccount},
		StepTransferSource:      {back: ActionBackToKind, render: (*Router).renderTransferSource},
		StepTransferDestination: {back: ActionBackToSource, render: (*Router).renderTransferDestination},
		StepDebtDirection:       {back: ActionBackToKind, render: (*Router).renderDebtDirection},
		StepDebtSource:          {back: ActionBackToDirection, render: (*Router).renderDebtSource},
		StepDebtCounterparty:    {back: ActionBackToSource, render: (*Router).renderDebtCounterparty},
		StepFinalized:           {terminal: true},
	}
}

// keyboard accumulates rows and the first token encoding error, so
// renderers stay free of per-button error plumbing.
type keyboard struct {
	rows [][]Button
	err  error
}

func (k *keyboard) button(label string, st State) Button {
	tok, err := Encode(st)
	if err != nil && k.err == nil {
		k.err = fmt.Errorf("button %q: %w", label, err)
	}
	return Button{Label: label, Token: tok}
}

func (k *keyboard) row(buttons ...Button) {
	k.rows = append(k.rows, buttons)
}

func (k *keyboard) backRow(st State) {
	action := flow[st.Step()].back
	if action == ActionNone {
		return
	}
	k.row(k.button(btnBack, backState(st, action)))
}

func (k *keyboard) done() ([][]Button, error) {
	if k.err != nil {
		return nil, k.err
	}
	return k.rows, nil
}

// backState builds the token a back button carries. Only the fields the
// earlier step needs survive, so the reissued token is never larger than
// the one that brought us here.
func backState(st State, action Action) State {
	back := State{Amount: st.Amount, MessageID: st.MessageID, Action: action}
	if action == ActionBackToCategory || action == ActionBackToSource {
		back.Kind = st.Kind
	}
	return back
}

// reduceForBack rebuilds the earlier state a back action returns to.
func reduceForBack(st State) State {
	back := State{Amount: st.Amount, MessageID: st.MessageID}
	switch st.Action {
	case ActionBackToCategory, ActionBackToSource:
		back.Kind = st.Kind
	case ActionBackToDirection:
		back.Kind = KindDebt
	}
	return back
}

// Begin handles free chat text. Valid amounts open the wizard on the kind
// step; anything else answers with a format hint instead of an error.
func (r *Router) Begin(ctx context.Context, profileID, text string, messageID int64) (*Prompt, error) {
	amount, err := ParseAmount(text)
	switch {
	case errors.Is(err, ErrAmountRange):
		return &Prompt{Text: msgAmountRange()}, nil
	case err != nil:
		return &Prompt{Text: msgAmountHint()}, nil
	}
	return r.renderStep(ctx, profileID, State{Amount: amount, MessageID: messageID})
}

// Advance handles a pressed button. Undecodable or stale tokens degrade
// into notices and re-prompts; they never surface as errors to the chat.
func (r *Router) Advance(ctx context.Context, profileID, token string) (*Outcome, error) {
	log := logger.FromContext(ctx)

	st, err := Decode(token)
	if err != nil {
		log.Warn().Err(err).Str("profile_id", profileID).Msg("Dropping callback with undecodable token")
		return &Outcome{Notice: NoticeBadToken}, nil
	}

	switch st.Action {
	case ActionCancel:
		return &Outcome{Notice: NoticeCanceled, DeleteMessage: true}, nil
	case ActionCustomCategory, ActionNewCounterparty:
		return &Outcome{Notice: NoticeInProgress, Alert: true}, nil
	case ActionBackToKind, ActionBackToCategory, ActionBackToSource, ActionBackToDirection:
		prompt, err := r.renderStep(ctx, profileID, reduceForBack(st))
		if err != nil {
			return nil, fmt.Errorf("Advance: %w", err)
		}
		return &Outcome{Prompt: prompt}, nil
	}

	if st.Finalize {
		return r.finalize(ctx, profileID, st)
	}

	prompt, err := r.renderStep(ctx, profileID, st)
	if err != nil {
		return nil, fmt.Errorf("Advance: %w", err)
	}
	return &Outcome{Prompt: prompt}, nil
}

func (r *Router) renderStep(ctx context.Context, profileID string, st State) (*Prompt, error) {
	st.Action = ActionNone
	step := st.Step()
	spec := flow[step]
	if spec.render == nil {
		return nil, fmt.Errorf("renderStep: no renderer for step %s", step)
	}
	return spec.render(r, ctx, profileID, st)
}

// finalize validates a completed wizard and hands the operation to the
// caller. References picked minutes ago may be gone by now; those drop
// the user back one step instead of recording against ghosts.
func (r *Router) finalize(ctx context.Context, profileID string, st State) (*Outcome, error) {
	if !st.complete() || st.Kind.Operation() == "" {
		log := logger.FromContext(ctx)
		log.Warn().
			Str("profile_id", profileID).
			Str("step", st.Step().String()).
			Msg("Dropping finalize token with missing fields")
		return &Outcome{Notice: NoticeBadToken}, nil
	}

	reduced, ok, err := r.checkRefs(ctx, profileID, st)
	if err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}
	if !ok {
		prompt, err := r.renderStep(ctx, profileID, reduced)
		if err != nil {
			return nil, fmt.Errorf("finalize: %w", err)
		}
		return &Outcome{Prompt: prompt, Notice: NoticeStale}, nil
	}

	op := st.operation(profileID)
	return &Outcome{Operation: &op}, nil
}

// checkRefs verifies every id the state references still resolves. On the
// first missing one it clears that field and everything chosen after it,
// returning the reduced state and ok=false.
func (r *Router) checkRefs(ctx context.Context, profileID string, st State) (State, bool, error) {
	if st.CategoryID != "" {
		if _, err := r.catalog.FindCategory(ctx, profileID, st.CategoryID); err != nil {
			if !errors.Is(err, ledger.ErrNotFound) {
				return st, false, fmt.Errorf("checkRefs: %w", err)
			}
			st.CategoryID, st.CategoryName = "", ""
			st.SourceID, st.DestinationID, st.Finalize = "", "", false
			return st, false, nil
		}
	}
	if st.SourceID != "" {
		if _, err := r.catalog.FindAccount(ctx, profileID, st.SourceID); err != nil {
			if !errors.Is(err, ledger.ErrNotFound) {
				return st, false, fmt.Errorf("checkRefs: %w", err)
			}
			st.SourceID, st.AccountName = "", ""
			st.DestinationID, st.Finalize = "", false
			return st, false, nil
		}
	}
	if st.DestinationID != "" {
		if _, err := r.catalog.FindAccount(ctx, profileID, st.DestinationID); err != nil {
			if !errors.Is(err, ledger.ErrNotFound) {
				return st, false, fmt.Errorf("checkRefs: %w", err)
			}
			st.DestinationID, st.Finalize = "", false
			return st, false, nil
		}
	}
	return st, true, nil
}

func (r *Router) renderKind(ctx context.Context, profileID string, st State) (*Prompt, error) {
	base := State{Amount: st.Amount, MessageID: st.MessageID}
	expense, income, transfer, debt := base, base, base, base
	expense.Kind = KindExpense
	income.Kind = KindIncome
	transfer.Kind = KindTransfer
	debt.Kind = KindDebt

	var kb keyboard
	kb.row(kb.button(btnExpense, expense), kb.button(btnIncome, income))
	kb.row(kb.button(btnTransfer, transfer), kb.button(btnDebt, debt))
	kb.row(kb.button(btnCancel, State{Action: ActionCancel}))
	rows, err := kb.done()
	if err != nil {
		return nil, fmt.Errorf("renderKind: %w", err)
	}
	return &Prompt{Text: msgKind(st.Amount), Keyboard: rows}, nil
}

func (r *Router) renderCategory(ctx context.Context, profileID string, st State) (*Prompt, error) {
	cats, err := r.catalog.Categories(ctx, profileID, st.Kind.Category(), false)
	if err != nil {
		return nil, fmt.Errorf("renderCategory: listing categories: %w", err)
	}

	var kb keyboard
	if len(cats) == 0 {
		kb.backRow(st)
		rows, err := kb.done()
		if err != nil {
			return nil, fmt.Errorf("renderCategory: %w", err)
		}
		return &Prompt{Text: msgEmptyCategories(), Keyboard: rows}, nil
	}

	row := make([]Button, 0, 2)
	for _, c := range cats {
		next := State{
			Amount:       st.Amount,
			Kind:         st.Kind,
			CategoryID:   c.ID,
			CategoryName: c.Name,
			MessageID:    st.MessageID,
		}
		row = append(row, kb.button(categoryLabel(c), next))
		if len(row) == 2 {
			kb.row(row...)
			row = make([]Button, 0, 2)
		}
	}
	if len(row) > 0 {
		kb.row(row...)
	}
	kb.row(kb.button(btnCustom, State{Action: ActionCustomCategory}))
	kb.backRow(st)
	rows, err := kb.done()
	if err != nil {
		return nil, fmt.Errorf("renderCategory: %w", err)
	}
	return &Prompt{Text: msgCategory(st.Kind, st.Amount), Keyboard: rows}, nil
}

func (r *Router) renderAccount(ctx context.Context, profileID string, st State) (*Prompt, error) {
	accounts, err := r.catalog.MoneyAccounts(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("renderAccount: listing accounts: %w", err)
	}
	if st.CategoryName == "" && st.CategoryID != "" {
		cat, err := r.catalog.FindCategory(ctx, profileID, st.CategoryID)
		if err != nil && !errors.Is(err, ledger.ErrNotFound) {
			return nil, fmt.Errorf("renderAccount: %w", err)
		}
		if err == nil {
			st.CategoryName = cat.Name
		}
	}

	var kb keyboard
	if len(accounts) == 0 {
		kb.backRow(st)
		rows, err := kb.done()
		if err != nil {
			return nil, fmt.Errorf("renderAccount: %w", err)
		}
		return &Prompt{Text: msgEmptyAccounts(), Keyboard: rows}, nil
	}

	for _, a := range accounts {
		next := State{
			Amount:       st.Amount,
			Kind:         st.Kind,
			CategoryID:   st.CategoryID,
			CategoryName: st.CategoryName,
			SourceID:     a.ID,
			Finalize:     true,
			MessageID:    st.MessageID,
		}
		kb.row(kb.button(accountLabel(a), next))
	}
	kb.backRow(st)
	rows, err := kb.done()
	if err != nil {
		return nil, fmt.Errorf("renderAccount: %w", err)
	}
	return &Prompt{Text: msgAccount(st.Kind, st.Amount, st.CategoryName), Keyboard: rows}, nil
}

func (r *Router) renderTransferSource(ctx context.Context, profileID string, st State) (*Prompt, error) {
	accounts, err := r.catalog.MoneyAccounts(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("renderTransferSource: listing accounts: %w", err)
	}

	var kb keyboard
	if len(accounts) == 0 {
		kb.backRow(st)
		rows, err := kb.done()
		if err != nil {
			return nil, fmt.Errorf("renderTransferSource: %w", err)
		}
		return &Prompt{Text: msgEmptyAccounts(), Keyboard: rows}, nil
	}

	for _, a := range accounts {
		next := State{
			Amount:      st.Amount,
			Kind:        KindTransfer,
			SourceID:    a.ID,
			AccountName: a.Name,
			MessageID:   st.MessageID,
		}
		kb.row(kb.button(accountLabel(a), next))
	}
	kb.backRow(st)
	rows, err := kb.done()
	if err != nil {
		return nil, fmt.Errorf("renderTransferSource: %w", err)
	}
	return &Prompt{Text: msgTransferSource(st.Amount), Keyboard: rows}, nil
}

func (r *Router) renderTransferDestination(ctx context.Context, profileID string, st State) (*Prompt, error) {
	accounts, err := r.catalog.MoneyAccounts(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("renderTransferDestination: listing accounts: %w", err)
	}
	if st.AccountName == "" {
		src, err := r.catalog.FindAccount(ctx, profileID, st.SourceID)
		if err != nil && !errors.Is(err, ledger.ErrNotFound) {
			return nil, fmt.Errorf("renderTransferDestination: %w", err)
		}
		if err == nil {
			st.AccountName = src.Name
		}
	}

	var kb keyboard
	var listed int
	for _, a := range accounts {
		if a.ID == st.SourceID {
			continue
		}
		next := State{
			Amount:        st.Amount,
			Kind:          KindTransfer,
			SourceID:      st.SourceID,
			AccountName:   st.AccountName,
			DestinationID: a.ID,
			Finalize:      true,
			MessageID:     st.MessageID,
		}
		kb.row(kb.button(accountLabel(a), next))
		listed++
	}
	if listed == 0 {
		kb.backRow(st)
		rows, err := kb.done()
		if err != nil {
			return nil, fmt.Errorf("renderTransferDestination: %w", err)
		}
		return &Prompt{Text: msgEmptyDestinations(), Keyboard: rows}, nil
	}
	kb.backRow(st)
	rows, err := kb.done()
	if err != nil {
		return nil, fmt.Errorf("renderTransferDestination: %w", err)
	}
	return &Prompt{Text: msgTransferDestination(st.Amount, st.AccountName), Keyboard: rows}, nil
}

func (r *Router) renderDebtDirection(ctx context.Context, profileID string, st State) (*Prompt, error) {
	lend := State{Amount: st.Amount, Kind: KindLend, MessageID: st.MessageID}
	borrow := State{Amount: st.Amount, Kind: KindBorrow, MessageID: st.MessageID}

	var kb keyboard
	kb.row(kb.button(btnLent, lend))
	kb.row(kb.button(btnBorrowed, borrow))
	kb.backRow(st)
	rows, err := kb.done()
	if err != nil {
		return nil, fmt.Errorf("renderDebtDirection: %w", err)
	}
	return &Prompt{Text: msgDebtDirection(st.Amount), Keyboard: rows}, nil
}

func (r *Router) renderDebtSource(ctx context.Context, profileID string, st State) (*Prompt, error) {
	accounts, err := r.catalog.MoneyAccounts(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("renderDebtSource: listing accounts: %w", err)
	}

	var kb keyboard
	if len(accounts) == 0 {
		kb.backRow(st)
		rows, err := kb.done()
		if err != nil {
			return nil, fmt.Errorf("renderDebtSource: %w", err)
		}
		return &Prompt{Text: msgEmptyAccounts(), Keyboard: rows}, nil
	}

	for _, a := range accounts {
		next := State{
			Amount:      st.Amount,
			Kind:        st.Kind,
			SourceID:    a.ID,
			AccountName: a.Name,
			MessageID:   st.MessageID,
		}
		kb.row(kb.button(accountLabel(a), next))
	}
	kb.backRow(st)
	rows, err := kb.done()
	if err != nil {
		return nil, fmt.Errorf("renderDebtSource: %w", err)
	}
	return &Prompt{Text: msgDebtSource(st.Kind, st.Amount), Keyboard: rows}, nil
}

func (r *Router) renderDebtCounterparty(ctx context.Context, profileID string, st State) (*Prompt, error) {
	people, err := r.catalog.Counterparties(ctx, profileID, st.Kind.Direction())
	if err != nil {
		return nil, fmt.Errorf("renderDebtCounterparty: listing counterparties: %w", err)
	}
	if st.AccountName == "" {
		src, err := r.catalog.FindAccount(ctx, profileID, st.SourceID)
		if err != nil && !errors.Is(err, ledger.ErrNotFound) {
			return nil, fmt.Errorf("renderDebtCounterparty: %w", err)
		}
		if err == nil {
			st.AccountName = src.Name
		}
	}

	var kb keyboard
	for _, p := range people {
		next := State{
			Amount:        st.Amount,
			Kind:          st.Kind,
			SourceID:      st.SourceID,
			AccountName:   st.AccountName,
			DestinationID: p.ID,
			Finalize:      true,
			MessageID:     st.MessageID,
		}
		kb.row(kb.button(accountLabel(p), next))
	}
	kb.row(kb.button(btnNewDebtor, State{Action: ActionNewCounterparty}))
	kb.backRow(st)
	rows, err := kb.done()
	if err != nil {
		return nil, fmt.Errorf("renderDebtCounterparty: %w", err)
	}
	text := msgDebtCounterparty(st.Kind, st.Amount, st.AccountName, len(people) == 0)
	return &Prompt{Text: text, Keyboard: rows}, nil
}
