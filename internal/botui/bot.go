package botui

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nkaliyev/tengebot/internal/ledger"
	"github.com/nkaliyev/tengebot/internal/logger"
	"github.com/nkaliyev/tengebot/internal/profile"
	"github.com/nkaliyev/tengebot/internal/telegram"
	"github.com/nkaliyev/tengebot/internal/wizard"
)

// Messenger is the outbound Telegram surface the handlers send through.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) (*telegram.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string, showAlert bool) error
}

var _ Messenger = (*telegram.Client)(nil)

// Commands is the menu the bot registers on startup.
func Commands() []telegram.BotCommand {
	return []telegram.BotCommand{
		{Command: "start", Description: "🏠 Начать"},
		{Command: "balance", Description: "💰 Балансы счетов"},
		{Command: "help", Description: "❓ Справка"},
	}
}

// Actions carried by the /start options keyboard. These are not wizard
// tokens; the callback handler peels them off before the wizard sees
// anything.
const (
	actionResetData     = "reset_data"
	actionDeleteProfile = "delete_profile"
	actionContinue      = "continue"
)

type menuAction struct {
	Action string `json:"action"`
}

// Bot owns the chat-facing behavior: commands, free-text wizard entry and
// callback handling. Outbound sends share one rate limiter so a burst of
// updates cannot trip Telegram's flood control.
type Bot struct {
	messenger Messenger
	profiles  *profile.Service
	router    *wizard.Router
	engine    *ledger.Engine
	directory *ledger.Directory
	limiter   *rate.Limiter
}

// New wires the bot over its services.
func New(messenger Messenger, profiles *profile.Service, router *wizard.Router, engine *ledger.Engine, directory *ledger.Directory) *Bot {
	return &Bot{
		messenger: messenger,
		profiles:  profiles,
		router:    router,
		engine:    engine,
		directory: directory,
		limiter:   rate.NewLimiter(rate.Every(50*time.Millisecond), 5),
	}
}

// HandleUpdate is the dispatcher entry point for both polling and webhook
// modes. It never returns an error: every failure is answered in chat and
// logged.
func (b *Bot) HandleUpdate(ctx context.Context, upd telegram.Update) {
	switch {
	case upd.Message != nil && upd.Message.Text != "":
		b.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	log := logger.FromContext(ctx)

	p, created, err := b.profiles.Resolve(ctx, msg.Chat.ID, msg.From.DisplayName())
	if err != nil {
		log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Resolving profile failed")
		b.send(ctx, msg.Chat.ID, msgResolveFailed, nil)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		switch commandName(text) {
		case "start":
			b.handleStart(ctx, msg.Chat.ID, msg.From, p, created)
			return
		case "balance":
			b.handleBalance(ctx, msg.Chat.ID, p.ID)
			return
		case "help":
			b.send(ctx, msg.Chat.ID, msgHelp, nil)
			return
		}
		// Unknown commands fall through to the amount parser, which
		// answers with the format hint.
	}

	prompt, err := b.router.Begin(ctx, p.ID, text, msg.MessageID)
	if err != nil {
		log.Error().Err(err).Str("profile_id", p.ID).Msg("Opening wizard failed")
		b.send(ctx, msg.Chat.ID, msgResolveFailed, nil)
		return
	}
	b.send(ctx, msg.Chat.ID, prompt.Text, markup(prompt.Keyboard))
}

// commandName extracts the bare command: "/start@tengebot extra" -> "start".
func commandName(text string) string {
	command := strings.TrimPrefix(text, "/")
	if i := strings.IndexByte(command, ' '); i >= 0 {
		command = command[:i]
	}
	if i := strings.IndexByte(command, '@'); i >= 0 {
		command = command[:i]
	}
	return command
}

func (b *Bot) handleStart(ctx context.Context, chatID int64, from *telegram.User, p *ledger.Profile, created bool) {
	name := p.DisplayName
	if from != nil && from.FirstName != "" {
		name = from.FirstName
	}

	if created {
		b.send(ctx, chatID, msgWelcomeNew(p.DisplayName), nil)
		b.send(ctx, chatID, msgWelcome(name), nil)
		return
	}
	b.send(ctx, chatID, msgWelcomeBack(name), optionsKeyboard())
}

func (b *Bot) handleBalance(ctx context.Context, chatID int64, profileID string) {
	summary, err := b.directory.Summary(ctx, profileID)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("profile_id", profileID).Msg("Building balance summary failed")
		b.send(ctx, chatID, msgResolveFailed, nil)
		return
	}
	if summary.Empty() {
		b.send(ctx, chatID, msgBalanceEmpty, nil)
		return
	}
	b.send(ctx, chatID, renderBalance(summary), nil)
}

func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	log := logger.FromContext(ctx)

	if cb.Message == nil {
		// Button on a message too old for Telegram to reference.
		b.answer(ctx, cb.ID, wizard.NoticeBadToken, false)
		return
	}
	chatID := cb.Message.Chat.ID

	p, _, err := b.profiles.Resolve(ctx, chatID, cb.From.DisplayName())
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Resolving profile failed")
		b.answer(ctx, cb.ID, msgResolveFailed, true)
		return
	}

	var menu menuAction
	if err := json.Unmarshal([]byte(cb.Data), &menu); err == nil {
		switch menu.Action {
		case actionResetData, actionDeleteProfile, actionContinue:
			b.handleMenuAction(ctx, cb, p, menu.Action)
			return
		}
	}

	outcome, err := b.router.Advance(ctx, p.ID, cb.Data)
	if err != nil {
		log.Error().Err(err).Str("profile_id", p.ID).Msg("Advancing wizard failed")
		b.answer(ctx, cb.ID, msgResolveFailed, true)
		return
	}

	switch {
	case outcome.DeleteMessage:
		b.deleteMessage(ctx, chatID, cb.Message.MessageID)
		b.answer(ctx, cb.ID, outcome.Notice, outcome.Alert)
	case outcome.Operation != nil:
		b.recordOperation(ctx, cb, *outcome.Operation)
	case outcome.Prompt != nil:
		b.edit(ctx, chatID, cb.Message.MessageID, outcome.Prompt.Text, markup(outcome.Prompt.Keyboard))
		b.answer(ctx, cb.ID, outcome.Notice, outcome.Alert)
	default:
		b.answer(ctx, cb.ID, outcome.Notice, outcome.Alert)
	}
}

// recordOperation runs the finalized operation through the engine and
// replaces the wizard message with the confirmation.
func (b *Bot) recordOperation(ctx context.Context, cb *telegram.CallbackQuery, op ledger.Operation) {
	if _, err := b.engine.Record(ctx, op); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("profile_id", op.ProfileID).Msg("Recording transaction failed")
		b.answer(ctx, cb.ID, msgSaveFailed, true)
		return
	}

	b.edit(ctx, cb.Message.Chat.ID, cb.Message.MessageID, b.savedText(ctx, op), nil)
	b.answer(ctx, cb.ID, "✅ Сохранено!", false)
}

// savedText builds the confirmation with refreshed balances. Lookup
// failures degrade to a shorter confirmation; the transaction itself is
// already recorded.
func (b *Bot) savedText(ctx context.Context, op ledger.Operation) string {
	log := logger.FromContext(ctx)

	var categoryName string
	if op.CategoryID != "" {
		cat, err := b.directory.FindCategory(ctx, op.ProfileID, op.CategoryID)
		if err != nil {
			log.Warn().Err(err).Str("category_id", op.CategoryID).Msg("Refreshing category for confirmation failed")
		} else {
			categoryName = cat.Name
		}
	}

	var accounts []ledger.Account
	for _, id := range []string{op.SourceAccountID, op.DestinationAccountID} {
		if id == "" {
			continue
		}
		account, err := b.directory.FindAccount(ctx, op.ProfileID, id)
		if err != nil {
			log.Warn().Err(err).Str("account_id", id).Msg("Refreshing balance for confirmation failed")
			continue
		}
		accounts = append(accounts, *account)
	}

	return renderSaved(op.Kind, op.Amount, categoryName, accounts)
}

func (b *Bot) handleMenuAction(ctx context.Context, cb *telegram.CallbackQuery, p *ledger.Profile, action string) {
	log := logger.FromContext(ctx)
	chatID := cb.Message.Chat.ID

	switch action {
	case actionContinue:
		b.edit(ctx, chatID, cb.Message.MessageID, msgContinue, nil)
	case actionResetData:
		if err := b.profiles.Reset(ctx, p.ID); err != nil {
			log.Error().Err(err).Str("profile_id", p.ID).Msg("Resetting profile data failed")
			b.edit(ctx, chatID, cb.Message.MessageID, msgResetFailed, nil)
			break
		}
		b.edit(ctx, chatID, cb.Message.MessageID, msgResetDone, nil)
	case actionDeleteProfile:
		if _, err := b.profiles.Delete(ctx, p); err != nil {
			log.Error().Err(err).Str("profile_id", p.ID).Msg("Recreating profile failed")
			b.edit(ctx, chatID, cb.Message.MessageID, msgProfileDeleteFailed, nil)
			break
		}
		b.edit(ctx, chatID, cb.Message.MessageID, msgProfileRecreated, nil)
	}
	b.answer(ctx, cb.ID, "", false)
}

// optionsKeyboard is the /start menu for returning users.
func optionsKeyboard() *telegram.InlineKeyboardMarkup {
	row := func(text, action string) []telegram.InlineKeyboardButton {
		data, _ := json.Marshal(menuAction{Action: action})
		return []telegram.InlineKeyboardButton{{Text: text, CallbackData: string(data)}}
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		row("🔄 Очистить все данные", actionResetData),
		row("🗑 Удалить профиль и создать новый", actionDeleteProfile),
		row("✅ Всё ок, продолжаю", actionContinue),
	}}
}

// markup converts a wizard keyboard to the wire format.
func markup(keyboard [][]wizard.Button) *telegram.InlineKeyboardMarkup {
	if len(keyboard) == 0 {
		return nil
	}
	rows := make([][]telegram.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]telegram.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, telegram.InlineKeyboardButton{Text: btn.Label, CallbackData: btn.Token})
		}
		rows = append(rows, buttons)
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// Outbound helpers. Failures are logged, never surfaced to handlers:
// there is nothing better to do with a failed send than note it.

func (b *Bot) send(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) {
	if err := b.limiter.Wait(ctx); err != nil {
		return
	}
	if _, err := b.messenger.SendMessage(ctx, chatID, text, keyboard); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Sending message failed")
	}
}

func (b *Bot) edit(ctx context.Context, chatID, messageID int64, text string, keyboard *telegram.InlineKeyboardMarkup) {
	if err := b.limiter.Wait(ctx); err != nil {
		return
	}
	if err := b.messenger.EditMessageText(ctx, chatID, messageID, text, keyboard); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Int64("chat_id", chatID).Int64("message_id", messageID).Msg("Editing message failed")
	}
}

func (b *Bot) deleteMessage(ctx context.Context, chatID, messageID int64) {
	if err := b.limiter.Wait(ctx); err != nil {
		return
	}
	if err := b.messenger.DeleteMessage(ctx, chatID, messageID); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Int64("chat_id", chatID).Int64("message_id", messageID).Msg("Deleting message failed")
	}
}

func (b *Bot) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := b.messenger.AnswerCallbackQuery(ctx, callbackID, text, alert); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Answering callback failed")
	}
}
