package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"contas/internal/amqp"
	"contas/internal/analytics"
	"contas/internal/backend"
	"contas/internal/bills"
	"contas/internal/config"
	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/query"
)

func main() {
	_ = godotenv.Load()

	// Bills print to stdout, diagnostics stay on stderr.
	logger := log.New(log.Config{
		Component: "contas",
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
	})
	log.SetDefault(logger)

	var (
		month   = flag.String("month", query.MonthAuto, "month filter: all, auto or YYYY-MM")
		status  = flag.String("status", "all", "status filter: all, pending, overdue or protocoled")
		company = flag.String("company", "all", "counterparty filter key")
		search  = flag.String("search", "", "free-text search")
	)
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "backend init failed:", err)
		os.Exit(1)
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}

	// With the sqlite backend, writes are mirrored to the remote store by
	// the worker; AMQP is optional and its absence only disables sync.
	var pub bills.Publisher
	if backendCfg.Type == backend.SQLiteBackend && cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue, cfg.AMQPDeleteQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without sync", "error", err)
		} else {
			defer amqpClient.Close()
			pub = amqpClient
		}
	}

	repo := bills.NewRepository(res.Store, nil, pub)
	if err := repo.Load(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "load bills failed:", err)
		os.Exit(1)
	}

	engine := query.NewEngine(nil)
	result := engine.Apply(repo.Snapshot(), query.Filter{
		Status:  query.StatusFilter(*status),
		Month:   *month,
		Company: *company,
		Search:  *search,
	})

	printBills(result, time.Now())
	printSummary(repo.Stats())
	printTimeline(analytics.NewAggregator(nil).MonthlyTimeline(repo.Snapshot()))
}

func printBills(result query.Result, now time.Time) {
	if result.Month != "all" {
		fmt.Printf("Contas de %s\n\n", core.MonthLabelPTBR(result.Month))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VENCIMENTO\tEMPRESA\tCONTA\tVALOR\tSTATUS")
	for _, b := range result.Bills {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			b.DueDate, b.CompanyLabel(), b.DisplayLabel(),
			b.Amount.FormatBRL(), core.Status(b, now))
	}
	w.Flush()

	fmt.Printf("\n%d contas (%d pendentes, %d vencidas, %d protocoladas)\n",
		result.Counts.All, result.Counts.Pending, result.Counts.Overdue, result.Counts.Protocoled)
}

func printSummary(stats bills.Stats) {
	fmt.Printf("\nEm aberto: %s\n", stats.Outstanding.FormatBRL())
}

func printTimeline(points []analytics.MonthPoint) {
	if len(points) == 0 {
		return
	}
	fmt.Println("\nLinha do tempo:")
	for _, p := range points {
		fmt.Printf("  %-20s pago %s, pendente %s\n",
			p.Label, p.Paid.FormatBRL(), p.Pending.FormatBRL())
	}
}
