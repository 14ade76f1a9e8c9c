package profile

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/nkaliyev/tengebot/internal/ledger"
)

// DefaultAccount is one seed account from defaults.yaml.
type DefaultAccount struct {
	Name        string             `yaml:"name"`
	Icon        string             `yaml:"icon"`
	Kind        ledger.AccountKind `yaml:"kind"`
	CreditLimit int64              `yaml:"credit_limit"`
}

// DefaultCategory is one seed category from defaults.yaml.
type DefaultCategory struct {
	Name     string `yaml:"name"`
	Icon     string `yaml:"icon"`
	Frequent bool   `yaml:"frequent"`
}

// Defaults describes what a freshly created profile starts with. Sort order
// follows list position.
type Defaults struct {
	Currency          string            `yaml:"currency"`
	Timezone          string            `yaml:"timezone"`
	Accounts          []DefaultAccount  `yaml:"accounts"`
	ExpenseCategories []DefaultCategory `yaml:"expense_categories"`
	IncomeCategories  []DefaultCategory `yaml:"income_categories"`
}

// BuiltinDefaults is the seed set used when no defaults file is configured:
// three everyday accounts and the usual expense/income categories, with the
// most common ones marked frequent.
func BuiltinDefaults() *Defaults {
	return &Defaults{
		Currency: "KZT",
		Timezone: "Asia/Almaty",
		Accounts: []DefaultAccount{
			{Name: "Kaspi Gold", Icon: "💳", Kind: ledger.AccountAsset},
			{Name: "Наличные", Icon: "💵", Kind: ledger.AccountAsset},
			{Name: "Halyk Bank", Icon: "🏦", Kind: ledger.AccountAsset},
		},
		ExpenseCategories: []DefaultCategory{
			{Name: "Продукты", Icon: "🛒", Frequent: true},
			{Name: "Кафе", Icon: "🍔", Frequent: true},
			{Name: "Транспорт", Icon: "🚕", Frequent: true},
			{Name: "Дом", Icon: "🏠"},
			{Name: "Здоровье", Icon: "💊"},
			{Name: "Развлечения", Icon: "🎮"},
			{Name: "Одежда", Icon: "👕"},
			{Name: "Подписки", Icon: "📱"},
		},
		IncomeCategories: []DefaultCategory{
			{Name: "Зарплата", Icon: "💰", Frequent: true},
			{Name: "Фриланс", Icon: "💻", Frequent: true},
			{Name: "Подарки", Icon: "🎁"},
		},
	}
}

// LoadDefaults reads a defaults.yaml. An empty path returns the builtin set.
// Missing currency, timezone or account kinds fall back to the builtin
// values so a partial file stays usable.
func LoadDefaults(path string) (*Defaults, error) {
	if path == "" {
		return BuiltinDefaults(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadDefaults: reading %s: %w", path, err)
	}

	var d Defaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("LoadDefaults: parsing %s: %w", path, err)
	}

	if d.Currency == "" {
		d.Currency = "KZT"
	}
	if d.Timezone == "" {
		d.Timezone = "Asia/Almaty"
	}
	for i := range d.Accounts {
		if d.Accounts[i].Kind == "" {
			d.Accounts[i].Kind = ledger.AccountAsset
		}
	}

	return &d, nil
}
