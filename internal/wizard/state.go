package wizard

import (
	"github.com/nkaliyev/tengebot/internal/ledger"
)

// Kind is the operation code carried in tokens. Debt starts as the
// undirected "debt" and becomes "lend" or "brw" once the user picks a
// direction, so the direction survives the round trip without an extra key.
type Kind string

const (
	KindNone     Kind = ""
	KindExpense  Kind = "exp"
	KindIncome   Kind = "inc"
	KindTransfer Kind = "trf"
	KindDebt     Kind = "debt"
	KindLend     Kind = "lend"
	KindBorrow   Kind = "brw"
)

// Valid reports whether the code is one this codec emits.
func (k Kind) Valid() bool {
	switch k {
	case KindNone, KindExpense, KindIncome, KindTransfer, KindDebt, KindLend, KindBorrow:
		return true
	}
	return false
}

// Operation maps a token code to the ledger operation kind. Undirected
// debt has no operation yet and maps to the zero value.
func (k Kind) Operation() ledger.OperationKind {
	switch k {
	case KindExpense:
		return ledger.OpExpense
	case KindIncome:
		return ledger.OpIncome
	case KindTransfer:
		return ledger.OpTransfer
	case KindLend:
		return ledger.OpLend
	case KindBorrow:
		return ledger.OpBorrow
	}
	return ""
}

// Category returns the category kind this operation draws from.
func (k Kind) Category() ledger.CategoryKind {
	if k == KindIncome {
		return ledger.CategoryIncome
	}
	return ledger.CategoryExpense
}

// Direction maps a directed debt code to the ledger direction.
func (k Kind) Direction() ledger.DebtDirection {
	if k == KindBorrow {
		return ledger.DebtBorrowed
	}
	return ledger.DebtLent
}

// Action is a non-selection button press.
type Action string

const (
	ActionNone Action = ""
	// ActionCancel is accepted at any step; only the kind keyboard shows
	// the button, but a cancel token from an older message still works.
	ActionCancel          Action = "cancel"
	ActionCustomCategory  Action = "custom_cat"
	ActionNewCounterparty Action = "new_counterparty"
	ActionBackToKind      Action = "back_to_type"
	ActionBackToCategory  Action = "back_to_cat"
	ActionBackToSource    Action = "back_to_src"
	ActionBackToDirection Action = "back_to_dir"
)

// Valid reports whether the action is one this codec emits.
func (a Action) Valid() bool {
	switch a {
	case ActionNone, ActionCancel, ActionCustomCategory, ActionNewCounterparty,
		ActionBackToKind, ActionBackToCategory, ActionBackToSource, ActionBackToDirection:
		return true
	}
	return false
}

// State is the in-flight wizard, carried entirely inside tokens. Which
// fields are set determines the step; nothing is stored server-side.
type State struct {
	Amount        int64
	Kind          Kind
	CategoryID    string
	CategoryName  string
	SourceID      string
	DestinationID string
	AccountName   string
	MessageID     int64
	Action        Action
	Finalize      bool
}

// Step names what the user is being asked next.
type Step int

const (
	StepAmount Step = iota
	StepKind
	StepCategory
	StepAccount
	StepTransferSource
	StepTransferDestination
	StepDebtDirection
	StepDebtSource
	StepDebtCounterparty
	StepFinalized
)

// AllSteps enumerates every declared step, terminal included.
var AllSteps = []Step{
	StepAmount,
	StepKind,
	StepCategory,
	StepAccount,
	StepTransferSource,
	StepTransferDestination,
	StepDebtDirection,
	StepDebtSource,
	StepDebtCounterparty,
	StepFinalized,
}

func (s Step) String() string {
	switch s {
	case StepAmount:
		return "amount"
	case StepKind:
		return "kind"
	case StepCategory:
		return "category"
	case StepAccount:
		return "account"
	case StepTransferSource:
		return "transfer_source"
	case StepTransferDestination:
		return "transfer_destination"
	case StepDebtDirection:
		return "debt_direction"
	case StepDebtSource:
		return "debt_source"
	case StepDebtCounterparty:
		return "debt_counterparty"
	case StepFinalized:
		return "finalized"
	}
	return "unknown"
}

// Step derives the wizard's position from the fields present.
func (st State) Step() Step {
	if st.Finalize {
		return StepFinalized
	}
	switch st.Kind {
	case KindNone:
		return StepKind
	case KindExpense, KindIncome:
		if st.CategoryID == "" {
			return StepCategory
		}
		return StepAccount
	case KindTransfer:
		if st.SourceID == "" {
			return StepTransferSource
		}
		return StepTransferDestination
	case KindDebt:
		return StepDebtDirection
	case KindLend, KindBorrow:
		if st.SourceID == "" {
			return StepDebtSource
		}
		return StepDebtCounterparty
	}
	return StepKind
}

// complete reports whether every field the kind requires for finalization
// is present.
func (st State) complete() bool {
	if st.Amount < 1 || st.SourceID == "" {
		return false
	}
	switch st.Kind {
	case KindExpense, KindIncome:
		return st.CategoryID != ""
	case KindTransfer:
		return st.DestinationID != "" && st.DestinationID != st.SourceID
	case KindLend, KindBorrow:
		return st.DestinationID != ""
	}
	return false
}

// operation converts a complete finalized state into the engine's input.
func (st State) operation(profileID string) ledger.Operation {
	op := ledger.Operation{
		ProfileID:       profileID,
		Kind:            st.Kind.Operation(),
		Amount:          st.Amount,
		SourceAccountID: st.SourceID,
	}
	switch st.Kind {
	case KindExpense, KindIncome:
		op.CategoryID = st.CategoryID
	default:
		op.DestinationAccountID = st.DestinationID
	}
	return op
}
