package wizard_test

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nkaliyev/tengebot/internal/wizard"
)

func TestTokenRoundTrip(t *testing.T) {
	states := []wizard.State{
		{Amount: 5000, MessageID: 42},
		{Amount: 5000, Kind: wizard.KindExpense, MessageID: 42},
		{Amount: 2500, Kind: wizard.KindExpense, CategoryID: "c1a2b3", CategoryName: "Продукты", MessageID: 42},
		{Amount: 2500, Kind: wizard.KindIncome, CategoryID: "c1a2b3", SourceID: "a9z8y7", Finalize: true},
		{Amount: 70000, Kind: wizard.KindTransfer, SourceID: "a9z8y7", AccountName: "Kaspi Gold", MessageID: 7},
		{Amount: 70000, Kind: wizard.KindTransfer, SourceID: "a9z8y7", DestinationID: "b1c2d3", Finalize: true},
		{Amount: 300, Kind: wizard.KindDebt, MessageID: 9},
		{Amount: 300, Kind: wizard.KindLend, SourceID: "a9z8y7", DestinationID: "p0q1r2", Finalize: true},
		{Amount: 300, Kind: wizard.KindBorrow, SourceID: "a9z8y7", MessageID: 9},
		{Action: wizard.ActionCancel},
		{Action: wizard.ActionCustomCategory},
		{Action: wizard.ActionNewCounterparty},
		{Amount: 5000, Action: wizard.ActionBackToKind, MessageID: 42},
		{Amount: 5000, Kind: wizard.KindExpense, Action: wizard.ActionBackToCategory, MessageID: 42},
		{Amount: 5000, Kind: wizard.KindTransfer, Action: wizard.ActionBackToSource},
		{Amount: 5000, Action: wizard.ActionBackToDirection},
	}
	for _, st := range states {
		tok, err := wizard.Encode(st)
		if err != nil {
			t.Fatalf("Encode(%+v) returned error: %v", st, err)
		}
		if len(tok) > wizard.MaxTokenBytes {
			t.Fatalf("Encode(%+v) = %d bytes, exceeds limit", st, len(tok))
		}
		got, err := wizard.Decode(tok)
		if err != nil {
			t.Fatalf("Decode(%q) returned error: %v", tok, err)
		}
		if got != st {
			t.Errorf("round trip changed state:\n  in  %+v\n  out %+v\n  tok %s", st, got, tok)
		}
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	st := wizard.State{
		Amount:       12500,
		Kind:         wizard.KindExpense,
		CategoryID:   "c1a2b3",
		CategoryName: "Кафе",
		MessageID:    118,
	}
	first, err := wizard.Encode(st)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	second, err := wizard.Encode(st)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if first != second {
		t.Errorf("Encode not deterministic: %q vs %q", first, second)
	}

	decoded, err := wizard.Decode(first)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	again, err := wizard.Encode(decoded)
	if err != nil {
		t.Fatalf("Encode of decoded state returned error: %v", err)
	}
	if again != first {
		t.Errorf("decode/encode not stable: %q vs %q", again, first)
	}
}

func TestEncodeTruncatesNamesToTenRunes(t *testing.T) {
	st := wizard.State{
		Amount:       100,
		Kind:         wizard.KindExpense,
		CategoryID:   "c1a2b3",
		CategoryName: "Продуктовые закупки",
		MessageID:    5,
	}
	tok, err := wizard.Encode(st)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	got, err := wizard.Decode(tok)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if n := utf8.RuneCountInString(got.CategoryName); n > 10 {
		t.Errorf("category name kept %d runes, want at most 10 (%q)", n, got.CategoryName)
	}
	if !strings.HasPrefix(st.CategoryName, got.CategoryName) {
		t.Errorf("truncated name %q is not a prefix of %q", got.CategoryName, st.CategoryName)
	}
	if got.CategoryID != st.CategoryID {
		t.Errorf("category id changed: got %q, want %q", got.CategoryID, st.CategoryID)
	}
}

func TestEncodeShedsNamesBeforeMessageID(t *testing.T) {
	// A ten-rune Cyrillic name cannot fit alongside a full finalize state,
	// so the name goes first while ids, amount and message id stay.
	st := wizard.State{
		Amount:       50000,
		Kind:         wizard.KindExpense,
		CategoryID:   "c1a2b3",
		CategoryName: "Развлечения",
		SourceID:     "a9z8y7",
		Finalize:     true,
		MessageID:    42,
	}
	tok, err := wizard.Encode(st)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if len(tok) > wizard.MaxTokenBytes {
		t.Fatalf("token is %d bytes, exceeds limit: %s", len(tok), tok)
	}
	got, err := wizard.Decode(tok)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if got.CategoryName != "" {
		t.Errorf("expected category name to be shed, kept %q", got.CategoryName)
	}
	if got.Amount != st.Amount || got.CategoryID != st.CategoryID || got.SourceID != st.SourceID || !got.Finalize {
		t.Errorf("identifying fields did not survive reduction: %+v", got)
	}
	if got.MessageID != st.MessageID {
		t.Errorf("message id shed before names: %+v", got)
	}
}

func TestEncodeShedsMessageIDUnderWorstCaseDigits(t *testing.T) {
	st := wizard.State{
		Amount:       999999999,
		Kind:         wizard.KindExpense,
		CategoryID:   "c1a2b3",
		CategoryName: "Развлечения",
		SourceID:     "a9z8y7",
		Finalize:     true,
		MessageID:    123456789,
	}
	tok, err := wizard.Encode(st)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if len(tok) > wizard.MaxTokenBytes {
		t.Fatalf("token is %d bytes, exceeds limit: %s", len(tok), tok)
	}
	got, err := wizard.Decode(tok)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if got.CategoryName != "" || got.MessageID != 0 {
		t.Errorf("expected both name and message id to be shed: %+v", got)
	}
	if got.Amount != st.Amount || got.CategoryID != st.CategoryID || got.SourceID != st.SourceID || !got.Finalize {
		t.Errorf("identifying fields did not survive reduction: %+v", got)
	}
}

func TestEncodeFailsLoudlyOnOversizedIdentifiers(t *testing.T) {
	st := wizard.State{
		Amount:        999999999,
		Kind:          wizard.KindTransfer,
		SourceID:      "3f8e2a6c-9d41-4b7a-b1c5-2e6f8a9d0c3b",
		DestinationID: "7a1b3c5d-2e4f-4a6b-8c0d-9e1f3a5b7c9d",
		Finalize:      true,
	}
	if _, err := wizard.Encode(st); !errors.Is(err, wizard.ErrTokenTooLong) {
		t.Errorf("Encode error = %v, want ErrTokenTooLong", err)
	}
}

func TestTokenFitsCallbackLimit(t *testing.T) {
	// Every reachable token shape at its worst: nine-digit amount, nine-digit
	// message id, ten-rune Cyrillic names, full-length short ids.
	const (
		amount = int64(999999999)
		msg    = int64(999999999)
		catID  = "zzzzzz"
		srcID  = "yyyyyy"
		dstID  = "xxxxxx"
		name   = "Развлечени"
	)
	shapes := map[string]wizard.State{
		"kind selection":     {Amount: amount, Kind: wizard.KindExpense, MessageID: msg},
		"category selection": {Amount: amount, Kind: wizard.KindExpense, CategoryID: catID, CategoryName: name, MessageID: msg},
		"expense finalize":   {Amount: amount, Kind: wizard.KindExpense, CategoryID: catID, CategoryName: name, SourceID: srcID, Finalize: true, MessageID: msg},
		"income finalize":    {Amount: amount, Kind: wizard.KindIncome, CategoryID: catID, CategoryName: name, SourceID: srcID, Finalize: true, MessageID: msg},
		"transfer source":    {Amount: amount, Kind: wizard.KindTransfer, SourceID: srcID, AccountName: name, MessageID: msg},
		"transfer finalize":  {Amount: amount, Kind: wizard.KindTransfer, SourceID: srcID, AccountName: name, DestinationID: dstID, Finalize: true, MessageID: msg},
		"debt direction":     {Amount: amount, Kind: wizard.KindDebt, MessageID: msg},
		"debt source":        {Amount: amount, Kind: wizard.KindLend, SourceID: srcID, AccountName: name, MessageID: msg},
		"borrow source":      {Amount: amount, Kind: wizard.KindBorrow, SourceID: srcID, AccountName: name, MessageID: msg},
		"lend finalize":      {Amount: amount, Kind: wizard.KindLend, SourceID: srcID, AccountName: name, DestinationID: dstID, Finalize: true, MessageID: msg},
		"borrow finalize":    {Amount: amount, Kind: wizard.KindBorrow, SourceID: srcID, AccountName: name, DestinationID: dstID, Finalize: true, MessageID: msg},
		"cancel":             {Action: wizard.ActionCancel},
		"custom category":    {Action: wizard.ActionCustomCategory},
		"new counterparty":   {Action: wizard.ActionNewCounterparty},
		"back to kind":       {Amount: amount, Action: wizard.ActionBackToKind, MessageID: msg},
		"back to category":   {Amount: amount, Kind: wizard.KindExpense, Action: wizard.ActionBackToCategory, MessageID: msg},
		"back to source":     {Amount: amount, Kind: wizard.KindBorrow, Action: wizard.ActionBackToSource, MessageID: msg},
		"back to direction":  {Amount: amount, Action: wizard.ActionBackToDirection, MessageID: msg},
	}
	for label, st := range shapes {
		tok, err := wizard.Encode(st)
		if err != nil {
			t.Errorf("%s: Encode returned error: %v", label, err)
			continue
		}
		if len(tok) > wizard.MaxTokenBytes {
			t.Errorf("%s: token is %d bytes, exceeds %d: %s", label, len(tok), wizard.MaxTokenBytes, tok)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "not json", data: "add_expense:5000"},
		{name: "broken json", data: `{"a":5000`},
		{name: "no fields", data: `{}`},
		{name: "foreign keys only", data: `{"onb":"done"}`},
		{name: "negative amount", data: `{"a":-5}`},
		{name: "unknown kind", data: `{"a":5,"t":"xyz"}`},
		{name: "unknown action", data: `{"a":5,"action":"explode"}`},
		{name: "amount is a string", data: `{"a":"5000"}`},
		{name: "oversized payload", data: `{"a":1,"t":"exp","cn":"` + strings.Repeat("x", 64) + `"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := wizard.Decode(tc.data); !errors.Is(err, wizard.ErrBadToken) {
				t.Errorf("Decode(%q) error = %v, want ErrBadToken", tc.data, err)
			}
		})
	}
}
