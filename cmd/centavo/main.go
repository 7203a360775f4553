package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"centavo/internal/domain/rule"
	"centavo/internal/domain/transaction"
	"centavo/internal/ledger"
)

const usage = `Centavo - local-first personal finance ledger

Usage:
  centavo <command> [options]

Commands:
  summary           Monthly summary, category ranking and installment tunnel
  missions          List today's missions
  complete-mission  Mark a mission as completed
  add               Record a transaction
  add-rule          Register a categorization rule
  export            Export every transaction (csv or json)
  reset             Wipe local data for the active user

Examples:
  # Current month overview
  centavo summary

  # Overview for a specific month
  centavo summary --month=2025-02

  # Record an expense (category is resolved automatically)
  centavo add --title="Mercado Central" --amount=150.50 --type=expense

  # Record an installment purchase
  centavo add --title="Notebook" --amount=400 --type=expense --installment=2/10

  # Always categorize gym charges as Saúde
  centavo add-rule --keyword=academia --category=Saúde

  # Export the full ledger
  centavo export --format=csv > ledger.csv`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "-h" || command == "--help" {
		fmt.Println(usage)
		return
	}

	ctx := context.Background()
	deps, err := buildDependencies(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer deps.Close()

	userID := deps.Config.User.ID
	if userID == "" {
		log.Fatal("CENTAVO_USER_ID is required")
	}
	if err := deps.Store.Load(ctx, userID); err != nil {
		if errors.Is(err, ledger.ErrUnauthorized) {
			log.Fatal("Session expired: check REMOTE_API_KEY")
		}
		log.Fatalf("Failed to load ledger: %v", err)
	}
	deps.Missions.SetUser(userID)

	switch command {
	case "summary":
		runSummary(ctx, deps, os.Args[2:])
	case "missions":
		runMissions(ctx, deps)
	case "complete-mission":
		runCompleteMission(ctx, deps, os.Args[2:])
	case "add":
		runAdd(ctx, deps, os.Args[2:])
	case "add-rule":
		runAddRule(ctx, deps, os.Args[2:])
	case "export":
		runExport(ctx, deps, os.Args[2:])
	case "reset":
		runReset(ctx, deps)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func parseMonth(fs *flag.FlagSet, args []string) time.Time {
	monthStr := fs.String("month", "", "Calendar month as YYYY-MM (default: current)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *monthStr == "" {
		return time.Now()
	}
	month, err := time.Parse("2006-01", *monthStr)
	if err != nil {
		log.Fatalf("Invalid month %q: expected YYYY-MM", *monthStr)
	}
	return month
}

func runSummary(ctx context.Context, deps *Dependencies, args []string) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	month := parseMonth(fs, args)

	store := deps.Store
	version := store.Version()
	txs := store.Transactions()

	summary := deps.Reports.Summary(version, txs, month)
	fmt.Printf("Resumo de %s\n", month.Format("2006-01"))
	fmt.Printf("  Receitas:  %s\n", summary.Income.StringFixed(2))
	fmt.Printf("  Despesas:  %s\n", summary.Expenses.StringFixed(2))
	fmt.Printf("  Saldo:     %s\n", summary.Balance.StringFixed(2))

	ranking := deps.Reports.Ranking(version, txs, month, 5)
	if len(ranking) > 0 {
		fmt.Println("\nMaiores categorias de despesa:")
		for i, entry := range ranking {
			fmt.Printf("  %d. %-20s %s\n", i+1, entry.Category, entry.Total.StringFixed(2))
		}
	}

	riskFraction, err := decimal.NewFromString(deps.Config.Report.RiskFraction)
	if err != nil {
		log.Fatalf("Invalid REPORT_RISK_FRACTION: %v", err)
	}
	tunnel := deps.Reports.Tunnel(version, txs, month, deps.Config.Report.InstallmentHorizon, riskFraction)
	fmt.Println("\nTúnel de parcelas:")
	for _, bucket := range tunnel {
		marker := ""
		if bucket.HighRisk {
			marker = "  [alto comprometimento]"
		}
		fmt.Printf("  %s  %s%s\n", month.AddDate(0, bucket.Offset, 0).Format("2006-01"), bucket.Total.StringFixed(2), marker)
	}
}

func runMissions(ctx context.Context, deps *Dependencies) {
	snap := deps.Store.MissionSnapshot(deps.Reports, time.Now())
	missions := deps.Missions.Evaluate(ctx, snap)

	if len(missions) == 0 {
		fmt.Println("Nenhuma missão disponível hoje.")
		return
	}
	fmt.Println("Missões de hoje:")
	for _, m := range missions {
		status := " "
		if m.IsCompleted {
			status = "x"
		}
		fmt.Printf("  [%s] %-18s %s (+%d XP)\n", status, m.ID, m.Title, m.XP)
	}

	prog := deps.Store.Progression()
	fmt.Printf("\nNível %d - %d XP\n", prog.Level, prog.XP)
}

func runCompleteMission(ctx context.Context, deps *Dependencies, args []string) {
	fs := flag.NewFlagSet("complete-mission", flag.ExitOnError)
	id := fs.String("id", "", "Mission id (see `centavo missions`)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *id == "" {
		log.Fatal("--id is required")
	}

	if err := deps.Missions.Complete(ctx, *id); err != nil {
		log.Fatalf("Failed to complete mission: %v", err)
	}
	deps.Queue.Wait()
	fmt.Printf("Missão %s concluída.\n", *id)
}

func runAdd(ctx context.Context, deps *Dependencies, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	title := fs.String("title", "", "Transaction title")
	amountStr := fs.String("amount", "", "Amount (sign is derived from --type)")
	txType := fs.String("type", transaction.TypeExpense, "income or expense")
	categoryName := fs.String("category", "", "Category (resolved automatically when empty)")
	account := fs.String("account", "", "Account name")
	dateStr := fs.String("date", "", "Date as YYYY-MM-DD (default: today)")
	installment := fs.String("installment", "", `Installment descriptor, e.g. "2/10"`)
	recurring := fs.Bool("recurring", false, "Mark as a recurring entry")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	amount, err := decimal.NewFromString(*amountStr)
	if err != nil {
		log.Fatalf("Invalid amount %q", *amountStr)
	}

	params := transaction.CreateParams{
		Title:       *title,
		Amount:      amount,
		Type:        *txType,
		Category:    *categoryName,
		Account:     *account,
		Recurring:   *recurring,
		Installment: *installment,
	}
	if *dateStr != "" {
		date, err := time.Parse(time.DateOnly, *dateStr)
		if err != nil {
			log.Fatalf("Invalid date %q: expected YYYY-MM-DD", *dateStr)
		}
		params.Date = &date
	}

	created, err := deps.Store.AddTransaction(params)
	if err != nil {
		log.Fatalf("Failed to add transaction: %v", err)
	}
	deps.Queue.Wait()

	fmt.Printf("Registrado: %s  %s  (%s)\n", created.Title, created.Amount.StringFixed(2), created.Category)
}

func runAddRule(ctx context.Context, deps *Dependencies, args []string) {
	fs := flag.NewFlagSet("add-rule", flag.ExitOnError)
	keyword := fs.String("keyword", "", "Keyword to match in transaction titles")
	categoryName := fs.String("category", "", "Category to assign")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	created, err := deps.Store.AddRule(rule.CreateParams{Keyword: *keyword, Category: *categoryName})
	if err != nil {
		log.Fatalf("Failed to add rule: %v", err)
	}
	deps.Queue.Wait()

	fmt.Printf("Regra criada: %q -> %s\n", created.Keyword, created.Category)
}

func runExport(ctx context.Context, deps *Dependencies, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "csv", "csv or json")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	switch *format {
	case "csv":
		if err := deps.Store.ExportCSV(os.Stdout); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
	case "json":
		if err := deps.Store.ExportJSON(os.Stdout); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
	default:
		log.Fatalf("Unknown format %q: must be csv or json", *format)
	}
}

func runReset(ctx context.Context, deps *Dependencies) {
	if err := deps.Store.ResetData(ctx); err != nil {
		log.Fatalf("Reset failed: %v", err)
	}
	fmt.Println("Dados locais apagados.")
}
