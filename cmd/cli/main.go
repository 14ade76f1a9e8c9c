package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/nkaliyev/tengebot/internal/config"
	"github.com/nkaliyev/tengebot/internal/export"
	"github.com/nkaliyev/tengebot/internal/ledger"
	"github.com/nkaliyev/tengebot/internal/logger"
	"github.com/nkaliyev/tengebot/internal/profile"
	"github.com/nkaliyev/tengebot/internal/store/bigquery"
	"github.com/nkaliyev/tengebot/internal/store/bolt"
	"github.com/nkaliyev/tengebot/internal/wizard"
)

// store is the storage surface the CLI commands share.
type store interface {
	ledger.AccountStore
	ledger.CategoryStore
	ledger.TransactionStore
	profile.Store
	Close() error
}

func main() {
	log := logger.New("cli")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "wizard":
		runWizard(log)
	case "balance":
		runBalance(log)
	case "seed":
		runSeed(log)
	case "add-counterparty":
		runAddCounterparty(log)
	case "export":
		runExport(log)
	case "reset":
		runReset(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Tengebot CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  wizard    Record transactions interactively in the terminal")
	fmt.Println("  balance   Print a profile's account balances")
	fmt.Println("  seed      Create and seed a profile for a chat id")
	fmt.Println("  add-counterparty")
	fmt.Println("            Create a debt account for a person you lend to or borrow from")
	fmt.Println("  export    Dump a profile's transactions as JSONL")
	fmt.Println("  reset     Delete a profile's transactions and zero its balances")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nStorage is configured through the environment (STORE_BACKEND, ...).")
	fmt.Println("Run 'cli <command> -h' for more information on a command.")
}

func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) store {
	switch cfg.Backend {
	case config.BackendBigQuery:
		if cfg.ProjectID == "" {
			log.Fatal().Msg("BIGQUERY_PROJECT_ID is required for the bigquery backend")
		}
		st, err := bigquery.New(ctx, cfg.ProjectID, cfg.DatasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Opening BigQuery store failed")
		}
		return st
	case config.BackendBolt:
		st, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.BoltPath).Msg("Opening bolt store failed")
		}
		return st
	}
	log.Fatal().Str("backend", string(cfg.Backend)).Msg("Unknown STORE_BACKEND")
	return nil
}

// resolveProfile maps a Telegram chat id to its profile.
func resolveProfile(ctx context.Context, st store, chatID int64, log zerolog.Logger) *ledger.Profile {
	if chatID == 0 {
		log.Fatal().Msg("Error: -chat-id is required")
	}
	p, err := st.GetProfileByChatID(ctx, chatID)
	if err != nil {
		log.Fatal().Err(err).Int64("chat_id", chatID).Msg("Resolving profile failed")
	}
	return p
}

// runWizard drives the same step router the bot uses, with stdin standing
// in for button presses.
func runWizard(log zerolog.Logger) {
	fs := flag.NewFlagSet("wizard", flag.ExitOnError)
	chatID := fs.Int64("chat-id", 0, "Telegram chat id of the profile")
	fs.Parse(os.Args[2:])

	ctx := logger.WithContext(context.Background(), log)

	cfg := config.Load()
	st := openStore(ctx, cfg, log)
	defer st.Close()

	p := resolveProfile(ctx, st, *chatID, log)

	directory := ledger.NewDirectory(st, st)
	engine := ledger.NewEngine(st, st)
	router := wizard.NewRouter(directory)

	scanner := bufio.NewScanner(os.Stdin)
	color.Cyan("Amount to record (q to quit):")
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "q" || text == "quit" {
			return
		}

		prompt, err := router.Begin(ctx, p.ID, text, 0)
		if err != nil {
			log.Fatal().Err(err).Msg("Opening wizard failed")
		}

		for prompt != nil {
			printPrompt(prompt)
			if len(prompt.Keyboard) == 0 {
				break
			}

			if !scanner.Scan() {
				return
			}
			choice, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
			buttons := flatten(prompt.Keyboard)
			if err != nil || choice < 1 || choice > len(buttons) {
				color.Yellow("Pick a number between 1 and %d.", len(buttons))
				continue
			}

			outcome, err := router.Advance(ctx, p.ID, buttons[choice-1].Token)
			if err != nil {
				log.Fatal().Err(err).Msg("Advancing wizard failed")
			}

			switch {
			case outcome.DeleteMessage:
				color.Yellow(stripTags(outcome.Notice))
				prompt = nil
			case outcome.Operation != nil:
				tx, err := engine.Record(ctx, *outcome.Operation)
				if err != nil {
					log.Fatal().Err(err).Msg("Recording transaction failed")
				}
				color.Green("Recorded %s of %s (%s)", tx.Kind, wizard.FormatTenge(tx.Amount), tx.ID)
				prompt = nil
			default:
				if outcome.Notice != "" {
					color.Yellow(stripTags(outcome.Notice))
				}
				prompt = outcome.Prompt
			}
		}

		color.Cyan("\nAmount to record (q to quit):")
	}
}

// stripTags drops the HTML the chat prompts carry for Telegram.
func stripTags(s string) string {
	return strings.NewReplacer(
		"<b>", "", "</b>", "",
		"<i>", "", "</i>", "",
		"<code>", "", "</code>", "",
	).Replace(s)
}

func flatten(keyboard [][]wizard.Button) []wizard.Button {
	var buttons []wizard.Button
	for _, row := range keyboard {
		buttons = append(buttons, row...)
	}
	return buttons
}

func printPrompt(prompt *wizard.Prompt) {
	fmt.Println()
	fmt.Println(stripTags(prompt.Text))
	for i, b := range flatten(prompt.Keyboard) {
		fmt.Printf("  %d) %s\n", i+1, b.Label)
	}
}

func runBalance(log zerolog.Logger) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	chatID := fs.Int64("chat-id", 0, "Telegram chat id of the profile")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg := config.Load()
	st := openStore(ctx, cfg, log)
	defer st.Close()

	p := resolveProfile(ctx, st, *chatID, log)

	summary, err := ledger.NewDirectory(st, st).Summary(ctx, p.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("Building balance summary failed")
	}
	if summary.Empty() {
		fmt.Println("No visible accounts.")
		return
	}

	header := color.New(color.FgCyan, color.Bold)
	section := func(title string, accounts []ledger.Account) {
		if len(accounts) == 0 {
			return
		}
		header.Println(title)
		for _, a := range accounts {
			balance := a.Balance
			if a.Kind == ledger.AccountLiability && balance > 0 {
				balance = -balance
			}
			line := fmt.Sprintf("  %-20s %15s", a.Name, wizard.FormatTenge(balance))
			if balance < 0 {
				color.Red(line)
			} else {
				color.Green(line)
			}
		}
	}

	section("Accounts", summary.Money)
	section("Credit", summary.Credit)
	section("Savings", summary.Savings)
	section("Owed to me", summary.Receivables)
	section("I owe", summary.Liabilities)

	fmt.Println()
	header.Printf("Net worth: %s\n", wizard.FormatTenge(summary.NetWorth()))
}

func runExport(log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	chatID := fs.Int64("chat-id", 0, "Telegram chat id of the profile")
	sinceStr := fs.String("since", "", "Only transactions on or after this date (YYYY-MM-DD)")
	out := fs.String("out", "", "Output file path (defaults to stdout)")
	gcsURI := fs.String("gcs", "", "Optional gs://bucket/object destination to upload the file to")
	fs.Parse(os.Args[2:])

	if *gcsURI != "" && *out == "" {
		log.Fatal().Msg("Error: -gcs requires -out (the upload reads the written file)")
	}

	var since civil.Date
	if *sinceStr != "" {
		parsed, err := civil.ParseDate(*sinceStr)
		if err != nil {
			log.Fatal().Err(err).Str("since", *sinceStr).Msg("Error: invalid -since, expected YYYY-MM-DD")
		}
		since = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg := config.Load()
	st := openStore(ctx, cfg, log)
	defer st.Close()

	p := resolveProfile(ctx, st, *chatID, log)

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal().Err(err).Str("path", *out).Msg("Creating output file failed")
		}
		defer f.Close()
		w = f
	}

	lines, err := export.New(st).Export(ctx, p.ID, since, w)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	if *out != "" {
		color.Green("Exported %d transaction(s) to %s", lines, *out)
	}

	if *gcsURI != "" {
		if err := export.Upload(ctx, *gcsURI, *out); err != nil {
			log.Fatal().Err(err).Str("gcs_uri", *gcsURI).Msg("Upload failed")
		}
		color.Green("Uploaded to %s", *gcsURI)
	}
}

// runSeed creates a fresh seeded profile for a chat id, so the local Bolt
// backend can be exercised without going through Telegram.
func runSeed(log zerolog.Logger) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	chatID := fs.Int64("chat-id", 0, "Telegram chat id to key the profile by")
	name := fs.String("name", "local", "Display name of the profile")
	fs.Parse(os.Args[2:])

	if *chatID == 0 {
		log.Fatal().Msg("Error: -chat-id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg := config.Load()
	st := openStore(ctx, cfg, log)
	defer st.Close()

	defaults, err := profile.LoadDefaults(cfg.DefaultsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Loading profile defaults failed")
	}

	p, created, err := profile.New(st, defaults).Resolve(ctx, *chatID, *name)
	if err != nil {
		log.Fatal().Err(err).Msg("Seeding profile failed")
	}
	if !created {
		color.Yellow("Profile %q already exists for chat %d.", p.DisplayName, *chatID)
		return
	}
	color.Green("Profile %q created and seeded for chat %d.", p.DisplayName, *chatID)
}

// runAddCounterparty creates the per-person debt account the wizard's
// counterparty keyboard lists. The chat flow only picks existing people,
// so new ones are added here.
func runAddCounterparty(log zerolog.Logger) {
	fs := flag.NewFlagSet("add-counterparty", flag.ExitOnError)
	chatID := fs.Int64("chat-id", 0, "Telegram chat id of the profile")
	name := fs.String("name", "", "Name of the person")
	direction := fs.String("direction", "lent", "lent (they owe you) or borrowed (you owe them)")
	fs.Parse(os.Args[2:])

	if *name == "" {
		log.Fatal().Msg("Error: -name is required")
	}
	var dir ledger.DebtDirection
	switch *direction {
	case "lent":
		dir = ledger.DebtLent
	case "borrowed":
		dir = ledger.DebtBorrowed
	default:
		log.Fatal().Str("direction", *direction).Msg("Error: -direction must be lent or borrowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg := config.Load()
	st := openStore(ctx, cfg, log)
	defer st.Close()

	p := resolveProfile(ctx, st, *chatID, log)

	account, err := ledger.NewEngine(st, st).CreateCounterparty(ctx, p.ID, *name, dir)
	if err != nil {
		log.Fatal().Err(err).Msg("Creating counterparty failed")
	}
	color.Green("Counterparty %q created (%s, %s).", account.Name, account.Kind, account.ID)
}

func runReset(log zerolog.Logger) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	chatID := fs.Int64("chat-id", 0, "Telegram chat id of the profile")
	confirm := fs.Bool("yes", false, "Actually delete; without it the command only prints what it would do")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg := config.Load()
	st := openStore(ctx, cfg, log)
	defer st.Close()

	p := resolveProfile(ctx, st, *chatID, log)

	if !*confirm {
		color.Yellow("Would delete all transactions of %q and zero its account balances. Re-run with -yes.", p.DisplayName)
		return
	}

	defaults, err := profile.LoadDefaults(cfg.DefaultsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Loading profile defaults failed")
	}
	if err := profile.New(st, defaults).Reset(ctx, p.ID); err != nil {
		log.Fatal().Err(err).Msg("Reset failed")
	}
	color.Green("Profile %q reset: transactions deleted, balances zeroed.", p.DisplayName)
}
