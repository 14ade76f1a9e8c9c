package notion

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"

	"github.com/nkaliyev/tengebot/internal/ledger"
)

// TransactionNames carries the resolved display names a transaction
// references. Empty entries are left out of the page.
type TransactionNames struct {
	Category    string
	Account     string
	FromAccount string
	ToAccount   string
}

// TransactionProperties converts a ledger transaction to the Notion
// transaction database schema: Description (title), Transaction ID, Date,
// Amount, Kind, Category, Account, From Account, To Account, Debt,
// Debt Direction, Created At.
func TransactionProperties(tx ledger.Transaction, names TransactionNames) notionapi.Properties {
	props := notionapi.Properties{
		"Description":    titleProperty(pageTitle(tx, names)),
		"Transaction ID": richTextProperty(tx.ID),
		"Date":           dateProperty(tx.Date),
		"Amount": notionapi.NumberProperty{
			Number: float64(tx.Amount),
		},
		"Kind": selectProperty(string(tx.Kind)),
		"Debt": notionapi.CheckboxProperty{
			Checkbox: tx.Debt,
		},
	}

	if names.Category != "" {
		props["Category"] = selectProperty(names.Category)
	}
	if names.Account != "" {
		props["Account"] = selectProperty(names.Account)
	}
	if names.FromAccount != "" {
		props["From Account"] = selectProperty(names.FromAccount)
	}
	if names.ToAccount != "" {
		props["To Account"] = selectProperty(names.ToAccount)
	}
	if tx.Debt {
		props["Debt Direction"] = selectProperty(string(tx.DebtDirection))
	}
	if !tx.CreatedAt.IsZero() {
		created := notionapi.Date(tx.CreatedAt)
		props["Created At"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &created},
		}
	}

	return props
}

// pageTitle builds the human label shown in Notion. Debts name the
// counterparty, transfers both legs, everything else the category.
func pageTitle(tx ledger.Transaction, names TransactionNames) string {
	switch {
	case tx.Debt && tx.DebtDirection == ledger.DebtLent && names.ToAccount != "":
		return "Дал в долг: " + names.ToAccount
	case tx.Debt && tx.DebtDirection == ledger.DebtBorrowed && names.FromAccount != "":
		return "Взял в долг: " + names.FromAccount
	case tx.Kind == ledger.TransactionTransfer && names.FromAccount != "" && names.ToAccount != "":
		return names.FromAccount + " → " + names.ToAccount
	case names.Category != "":
		return names.Category
	}
	return string(tx.Kind)
}

func titleProperty(content string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Title: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{
					Content: content,
				},
			},
		},
	}
}

func richTextProperty(content string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{
					Content: content,
				},
			},
		},
	}
}

func selectProperty(name string) notionapi.SelectProperty {
	return notionapi.SelectProperty{
		Select: notionapi.Option{
			Name: name,
		},
	}
}

func dateProperty(d civil.Date) notionapi.DateProperty {
	start := notionapi.Date(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC))
	return notionapi.DateProperty{
		Date: &notionapi.DateObject{Start: &start},
	}
}

// extractTransactionID reads the ledger transaction id back out of a
// Notion page. Pages created outside the sync have none.
func extractTransactionID(page notionapi.Page) string {
	prop, ok := page.Properties["Transaction ID"]
	if !ok {
		return ""
	}
	richText, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(richText.RichText) == 0 {
		return ""
	}
	return richText.RichText[0].PlainText
}
