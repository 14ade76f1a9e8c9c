package ledger

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"
)

// MaxAmount is the upper bound for a single transaction, in whole tenge.
const MaxAmount int64 = 999_999_999

// ErrNotFound is returned by stores when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// AccountKind classifies an account for listing and summary grouping.
type AccountKind string

const (
	AccountAsset      AccountKind = "asset"
	AccountSavings    AccountKind = "savings"
	AccountReceivable AccountKind = "receivable"
	AccountLiability  AccountKind = "liability"
)

// CategoryKind splits categories between the expense and income flows.
type CategoryKind string

const (
	CategoryExpense CategoryKind = "expense"
	CategoryIncome  CategoryKind = "income"
)

// TransactionKind is the persisted transaction type. Debts are stored as
// transfers with the Debt flag and a direction.
type TransactionKind string

const (
	TransactionExpense  TransactionKind = "expense"
	TransactionIncome   TransactionKind = "income"
	TransactionTransfer TransactionKind = "transfer"
)

// DebtDirection distinguishes money lent out (tracked on a receivable
// account) from money borrowed (tracked on a liability account).
type DebtDirection string

const (
	DebtLent     DebtDirection = "lent"
	DebtBorrowed DebtDirection = "borrowed"
)

// Counterparty returns the account kind that holds debts of this direction.
func (d DebtDirection) Counterparty() AccountKind {
	if d == DebtLent {
		return AccountReceivable
	}
	return AccountLiability
}

// OperationKind is the five-way operation selected in the entry wizard.
type OperationKind string

const (
	OpExpense  OperationKind = "expense"
	OpIncome   OperationKind = "income"
	OpTransfer OperationKind = "transfer"
	OpLend     OperationKind = "lend"
	OpBorrow   OperationKind = "borrow"
)

// Debt reports whether the operation is one of the two debt kinds.
func (k OperationKind) Debt() bool {
	return k == OpLend || k == OpBorrow
}

// Direction maps a debt operation to its direction. Zero value for non-debt.
func (k OperationKind) Direction() DebtDirection {
	switch k {
	case OpLend:
		return DebtLent
	case OpBorrow:
		return DebtBorrowed
	}
	return ""
}

// Profile is one bot user. ChatID is the Telegram chat/user id the profile
// is keyed by; ID is the internal identity everything else references.
type Profile struct {
	ID          string
	ChatID      int64
	DisplayName string
	Currency    string
	Timezone    string
	CreatedAt   time.Time
}

// Account is a balance-carrying bucket: a money account, a savings pot, or a
// per-person debt account. Balance is the running sum of deltas applied by
// the engine, in whole tenge; liability balances grow positive as debt grows.
type Account struct {
	ID          string
	ProfileID   string
	Name        string
	Icon        string
	Kind        AccountKind
	Balance     int64
	CreditLimit int64
	Hidden      bool
	SortOrder   int
}

// Credit reports whether the account belongs in the credit bucket of
// balance summaries.
func (a Account) Credit() bool {
	return a.CreditLimit > 0
}

// Category labels expense and income transactions.
type Category struct {
	ID        string
	ProfileID string
	Name      string
	Icon      string
	Kind      CategoryKind
	Frequent  bool
	SortOrder int
}

// Transaction is one recorded financial event. Append-only: the engine
// creates exactly one per finalized wizard and never mutates or deletes it.
type Transaction struct {
	ID            string
	ProfileID     string
	Date          civil.Date
	Kind          TransactionKind
	Amount        int64
	CategoryID    string
	AccountID     string
	FromAccountID string
	ToAccountID   string
	Debt          bool
	DebtDirection DebtDirection
	CreatedAt     time.Time
}

// Operation is a finalized wizard state handed to the engine: the five-way
// kind plus every account/category reference the kind requires.
type Operation struct {
	ProfileID            string
	Kind                 OperationKind
	Amount               int64
	CategoryID           string
	SourceAccountID      string
	DestinationAccountID string
	Date                 civil.Date
}
