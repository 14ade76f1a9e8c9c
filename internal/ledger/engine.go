package ledger

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/nkaliyev/tengebot/internal/logger"
)

// Engine turns a finalized operation into one transaction record plus
// signed balance deltas.
//
// The record is written first; deltas are applied afterwards, one account
// at a time, with no rollback. A delta failure after the record therefore
// leaves a detectable inconsistency, which is logged with the transaction
// id and returned as an error. That limitation is inherited from the data
// model: balances are running sums, never recomputed from history.
type Engine struct {
	accounts     AccountStore
	transactions TransactionStore
}

// NewEngine creates an engine over the given stores.
func NewEngine(accounts AccountStore, transactions TransactionStore) *Engine {
	return &Engine{
		accounts:     accounts,
		transactions: transactions,
	}
}

// balanceDelta is one leg of the sign table.
type balanceDelta struct {
	accountID string
	delta     int64
}

// deltas expands an operation per the sign table:
//
//	expense   source −A
//	income    source +A
//	transfer  source −A, destination +A
//	lend      source −A, receivable counterparty +A
//	borrow    source +A, liability counterparty +A
//
// Borrow credits both legs: the asset gains cash while the liability
// account tracks the amount owed as a positive magnitude.
func (op Operation) deltas() []balanceDelta {
	switch op.Kind {
	case OpExpense:
		return []balanceDelta{{op.SourceAccountID, -op.Amount}}
	case OpIncome:
		return []balanceDelta{{op.SourceAccountID, op.Amount}}
	case OpTransfer, OpLend:
		return []balanceDelta{
			{op.SourceAccountID, -op.Amount},
			{op.DestinationAccountID, op.Amount},
		}
	case OpBorrow:
		return []balanceDelta{
			{op.SourceAccountID, op.Amount},
			{op.DestinationAccountID, op.Amount},
		}
	}
	return nil
}

// validate rejects operations missing fields their kind requires. Reaching
// here with an incomplete operation is a routing bug, not user error.
func (op Operation) validate() error {
	if op.ProfileID == "" {
		return fmt.Errorf("operation has no profile id")
	}
	if op.Amount < 1 || op.Amount > MaxAmount {
		return fmt.Errorf("amount %d outside 1..%d", op.Amount, MaxAmount)
	}
	switch op.Kind {
	case OpExpense, OpIncome:
		if op.CategoryID == "" {
			return fmt.Errorf("%s operation has no category", op.Kind)
		}
		if op.SourceAccountID == "" {
			return fmt.Errorf("%s operation has no account", op.Kind)
		}
	case OpTransfer:
		if op.SourceAccountID == "" || op.DestinationAccountID == "" {
			return fmt.Errorf("transfer operation is missing a leg")
		}
		if op.SourceAccountID == op.DestinationAccountID {
			return fmt.Errorf("transfer legs reference the same account %s", op.SourceAccountID)
		}
	case OpLend, OpBorrow:
		if op.SourceAccountID == "" {
			return fmt.Errorf("%s operation has no source account", op.Kind)
		}
		if op.DestinationAccountID == "" {
			return fmt.Errorf("%s operation has no counterparty account", op.Kind)
		}
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
	return nil
}

// transaction builds the persisted record for an operation. Debts are
// stored as transfers with the debt flag; borrow swaps the legs so money
// flows from the liability account into the asset.
func (op Operation) transaction() *Transaction {
	tx := &Transaction{
		ID:        uuid.NewString(),
		ProfileID: op.ProfileID,
		Date:      op.Date,
		Amount:    op.Amount,
		CreatedAt: time.Now().UTC(),
	}
	if tx.Date == (civil.Date{}) {
		tx.Date = civil.DateOf(time.Now())
	}

	switch op.Kind {
	case OpExpense:
		tx.Kind = TransactionExpense
		tx.CategoryID = op.CategoryID
		tx.AccountID = op.SourceAccountID
	case OpIncome:
		tx.Kind = TransactionIncome
		tx.CategoryID = op.CategoryID
		tx.AccountID = op.SourceAccountID
	case OpTransfer:
		tx.Kind = TransactionTransfer
		tx.FromAccountID = op.SourceAccountID
		tx.ToAccountID = op.DestinationAccountID
	case OpLend:
		tx.Kind = TransactionTransfer
		tx.Debt = true
		tx.DebtDirection = DebtLent
		tx.FromAccountID = op.SourceAccountID
		tx.ToAccountID = op.DestinationAccountID
	case OpBorrow:
		tx.Kind = TransactionTransfer
		tx.Debt = true
		tx.DebtDirection = DebtBorrowed
		tx.FromAccountID = op.DestinationAccountID
		tx.ToAccountID = op.SourceAccountID
	}
	return tx
}

// Record validates the operation, writes its transaction, and applies the
// balance deltas.
func (e *Engine) Record(ctx context.Context, op Operation) (*Transaction, error) {
	log := logger.FromContext(ctx)

	if err := op.validate(); err != nil {
		return nil, fmt.Errorf("Record: invalid operation: %w", err)
	}

	tx := op.transaction()
	if err := e.transactions.InsertTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("Record: inserting transaction: %w", err)
	}

	for _, d := range op.deltas() {
		if err := e.accounts.AdjustBalance(ctx, op.ProfileID, d.accountID, d.delta); err != nil {
			log.Error().
				Err(err).
				Str("transaction_id", tx.ID).
				Str("account_id", d.accountID).
				Int64("delta", d.delta).
				Msg("Balance update failed after transaction was recorded; balances are now inconsistent")
			return nil, fmt.Errorf("Record: adjusting balance of %s: %w", d.accountID, err)
		}
	}

	log.Info().
		Str("transaction_id", tx.ID).
		Str("kind", string(op.Kind)).
		Int64("amount", op.Amount).
		Msg("Transaction recorded")

	return tx, nil
}

// CreateCounterparty lazily creates the per-person debt account used as the
// second leg of a lend or borrow.
func (e *Engine) CreateCounterparty(ctx context.Context, profileID, name string, direction DebtDirection) (*Account, error) {
	id, err := NewShortID()
	if err != nil {
		return nil, fmt.Errorf("CreateCounterparty: %w", err)
	}

	icon := "📥"
	if direction == DebtBorrowed {
		icon = "📤"
	}

	account := &Account{
		ID:        id,
		ProfileID: profileID,
		Name:      name,
		Icon:      icon,
		Kind:      direction.Counterparty(),
		Balance:   0,
		SortOrder: 99,
	}
	if err := e.accounts.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("CreateCounterparty: creating account: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("account_id", account.ID).
		Str("kind", string(account.Kind)).
		Msg("Counterparty account created")

	return account, nil
}
