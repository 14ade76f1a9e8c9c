package profile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/nkaliyev/tengebot/internal/ledger"
	"github.com/nkaliyev/tengebot/internal/logger"
)

// Service resolves Telegram chats to profiles, creating and seeding new
// ones on first contact. Resolved profiles are cached by chat id so the
// hot path of every update does not hit the store.
type Service struct {
	store    Store
	defaults *Defaults
	cache    *cache.Cache
}

// New creates a profile service. A nil defaults falls back to the builtin
// seed set.
func New(store Store, defaults *Defaults) *Service {
	if defaults == nil {
		defaults = BuiltinDefaults()
	}
	return &Service{
		store:    store,
		defaults: defaults,
		cache:    cache.New(24*time.Hour, 48*time.Hour),
	}
}

func cacheKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// Resolve returns the profile for a chat, creating and seeding one when the
// chat is new. The second result reports whether this call created it.
func (s *Service) Resolve(ctx context.Context, chatID int64, displayName string) (*ledger.Profile, bool, error) {
	if cached, found := s.cache.Get(cacheKey(chatID)); found {
		return cached.(*ledger.Profile), false, nil
	}

	p, err := s.store.GetProfileByChatID(ctx, chatID)
	switch {
	case err == nil:
		s.cache.Set(cacheKey(chatID), p, cache.DefaultExpiration)
		return p, false, nil
	case errors.Is(err, ledger.ErrNotFound):
		p, err = s.create(ctx, chatID, displayName)
		if err != nil {
			return nil, false, err
		}
		return p, true, nil
	default:
		return nil, false, fmt.Errorf("Resolve: looking up chat %d: %w", chatID, err)
	}
}

// Reset deletes the profile's transactions and zeroes every balance,
// keeping accounts and categories in place.
func (s *Service) Reset(ctx context.Context, profileID string) error {
	if err := s.store.DeleteTransactions(ctx, profileID); err != nil {
		return fmt.Errorf("Reset: deleting transactions: %w", err)
	}
	if err := s.store.ZeroBalances(ctx, profileID); err != nil {
		return fmt.Errorf("Reset: zeroing balances: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("profile_id", profileID).
		Msg("Profile data reset")

	return nil
}

// Delete removes the profile and everything it owns, then recreates a
// fresh seeded profile for the same chat. Deletion order matters:
// transactions reference accounts and categories, so they go first.
func (s *Service) Delete(ctx context.Context, p *ledger.Profile) (*ledger.Profile, error) {
	if err := s.store.DeleteTransactions(ctx, p.ID); err != nil {
		return nil, fmt.Errorf("Delete: deleting transactions: %w", err)
	}
	if err := s.store.DeleteAccounts(ctx, p.ID); err != nil {
		return nil, fmt.Errorf("Delete: deleting accounts: %w", err)
	}
	if err := s.store.DeleteCategories(ctx, p.ID); err != nil {
		return nil, fmt.Errorf("Delete: deleting categories: %w", err)
	}
	if err := s.store.DeleteProfile(ctx, p.ID); err != nil {
		return nil, fmt.Errorf("Delete: deleting profile: %w", err)
	}
	s.cache.Delete(cacheKey(p.ChatID))

	fresh, err := s.create(ctx, p.ChatID, p.DisplayName)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("old_profile_id", p.ID).
		Str("profile_id", fresh.ID).
		Msg("Profile deleted and recreated")

	return fresh, nil
}

// create inserts the profile, seeds its defaults, and caches it.
func (s *Service) create(ctx context.Context, chatID int64, displayName string) (*ledger.Profile, error) {
	p := &ledger.Profile{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		DisplayName: displayName,
		Currency:    s.defaults.Currency,
		Timezone:    s.defaults.Timezone,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("create: inserting profile: %w", err)
	}
	if err := s.seed(ctx, p.ID); err != nil {
		return nil, err
	}
	s.cache.Set(cacheKey(chatID), p, cache.DefaultExpiration)

	log := logger.FromContext(ctx)
	log.Info().
		Str("profile_id", p.ID).
		Int64("chat_id", chatID).
		Int("accounts", len(s.defaults.Accounts)).
		Int("categories", len(s.defaults.ExpenseCategories)+len(s.defaults.IncomeCategories)).
		Msg("Profile created and seeded")

	return p, nil
}

// seed creates the default accounts and categories. Sort order follows the
// position in the defaults lists.
func (s *Service) seed(ctx context.Context, profileID string) error {
	for i, a := range s.defaults.Accounts {
		id, err := ledger.NewShortID()
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		account := &ledger.Account{
			ID:          id,
			ProfileID:   profileID,
			Name:        a.Name,
			Icon:        a.Icon,
			Kind:        a.Kind,
			CreditLimit: a.CreditLimit,
			SortOrder:   i + 1,
		}
		if err := s.store.CreateAccount(ctx, account); err != nil {
			return fmt.Errorf("seed: creating account %s: %w", a.Name, err)
		}
	}

	if err := s.seedCategories(ctx, profileID, ledger.CategoryExpense, s.defaults.ExpenseCategories); err != nil {
		return err
	}
	return s.seedCategories(ctx, profileID, ledger.CategoryIncome, s.defaults.IncomeCategories)
}

func (s *Service) seedCategories(ctx context.Context, profileID string, kind ledger.CategoryKind, defaults []DefaultCategory) error {
	for i, c := range defaults {
		id, err := ledger.NewShortID()
		if err != nil {
			return fmt.Errorf("seedCategories: %w", err)
		}
		category := &ledger.Category{
			ID:        id,
			ProfileID: profileID,
			Name:      c.Name,
			Icon:      c.Icon,
			Kind:      kind,
			Frequent:  c.Frequent,
			SortOrder: i + 1,
		}
		if err := s.store.CreateCategory(ctx, category); err != nil {
			return fmt.Errorf("seedCategories: creating category %s: %w", c.Name, err)
		}
	}
	return nil
}
