// mailprune audits a Gmail mailbox and reports which senders generate the
// most ignored mail.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/huangsam/mailprune/internal/app"
	"github.com/huangsam/mailprune/internal/audit"
	"github.com/huangsam/mailprune/internal/cache"
	"github.com/huangsam/mailprune/internal/config"
	"github.com/huangsam/mailprune/internal/mail"
	"github.com/huangsam/mailprune/internal/report"
)

const usage = `Usage: mailprune <command> [flags]

Commands:
  audit       Fetch mailbox metadata and rebuild the noise report
  report      Generate the full audit and cleanup report
  summary     Show mailbox-wide statistics
  engagement  Group senders by open-rate tier
  sender      Show stats for senders matching a pattern
  categories  Estimate unread counts per Gmail category
  serve       Run the HTTP API with the periodic scheduler
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := dispatch(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(command string, args []string) error {
	switch command {
	case "audit":
		return runAudit(args)
	case "report":
		return runReport(args)
	case "summary":
		return runView(args, report.RenderSummary)
	case "engagement":
		return runEngagement(args)
	case "categories":
		return runView(args, report.RenderCategories)
	case "sender":
		return runSender(args)
	case "serve":
		return app.Run()
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// loadCLIConfig loads configuration and applies the logging setup shared by
// every command.
func loadCLIConfig(verbose bool) (*config.Config, error) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runAudit(args []string) error {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	maxEmails := fs.Int("max-emails", 0, "number of recent messages to audit (0 uses config)")
	query := fs.String("query", "", "mailbox search query (empty uses config)")
	verbose := fs.Bool("verbose", false, "enable progress logging")
	fs.Parse(args)

	cfg, err := loadCLIConfig(*verbose)
	if err != nil {
		return err
	}
	if *maxEmails > 0 {
		cfg.Audit.MaxEmails = *maxEmails
	}
	if *query != "" {
		cfg.Audit.Query = *query
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := newPool(ctx, cfg)
	if errors.Is(err, mail.ErrNoCredentials) {
		return fmt.Errorf("no Gmail credentials found; set GMAIL_CLIENT_ID, GMAIL_CLIENT_SECRET and either GMAIL_REFRESH_TOKEN or a token file (see tools/get_token.go)")
	}
	if err != nil {
		return fmt.Errorf("connect to mailbox: %w", err)
	}
	defer pool.Close()

	svc := audit.NewService(
		audit.NewFetcher(pool, cfg.Audit.FetchWorkers, cfg.Audit.MaxRetries),
		cache.NewStore(cfg.Audit.CachePath),
		report.NewStore(cfg.Audit.ReportPath),
	)

	result, err := svc.Run(ctx, cfg.Audit.MaxEmails, cfg.Audit.Query)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	fmt.Printf("Audited %d messages (%d cached, %d fetched, %d pruned) in %.1fs\n",
		result.Listed, result.CacheHits, result.Fetched, result.Pruned, result.Duration.Seconds())
	fmt.Printf("Tracked %d senders\n\n", len(result.Aggregates))
	fmt.Print(report.RenderTop(result.Aggregates, 20))
	return nil
}

func newPool(ctx context.Context, cfg *config.Config) (*mail.Pool, error) {
	if cfg.Gmail.UseIMAP {
		return mail.NewIMAPPool(&cfg.Gmail, cfg.Audit.PoolSize)
	}
	return mail.NewGmailPool(ctx, &cfg.Gmail, cfg.Audit.PoolSize)
}

// loadReport loads the saved report for the read-only commands.
func loadReport(verbose bool) ([]audit.SenderAggregate, error) {
	cfg, err := loadCLIConfig(verbose)
	if err != nil {
		return nil, err
	}

	aggregates := report.NewStore(cfg.Audit.ReportPath).Load()
	if len(aggregates) == 0 {
		return nil, fmt.Errorf("no audit data found; run 'mailprune audit' first")
	}
	return aggregates, nil
}

func runReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	top := fs.Int("top", 20, "number of senders to show")
	verbose := fs.Bool("verbose", false, "enable progress logging")
	fs.Parse(args)

	aggregates, err := loadReport(*verbose)
	if err != nil {
		return err
	}
	fmt.Print(report.RenderReport(aggregates, *top))
	return nil
}

func runEngagement(args []string) error {
	fs := flag.NewFlagSet("engagement", flag.ExitOnError)
	tier := fs.String("tier", "all", "tier to show: high, medium, low, zero, or all")
	verbose := fs.Bool("verbose", false, "enable progress logging")
	fs.Parse(args)

	var only report.Tier
	switch *tier {
	case "all", "":
	case string(report.TierHigh), string(report.TierMedium), string(report.TierLow), string(report.TierZero):
		only = report.Tier(*tier)
	default:
		return fmt.Errorf("unknown tier %q (want high, medium, low, zero, or all)", *tier)
	}

	aggregates, err := loadReport(*verbose)
	if err != nil {
		return err
	}
	fmt.Print(report.RenderEngagement(aggregates, only))
	return nil
}

func runView(args []string, render func([]audit.SenderAggregate) string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "enable progress logging")
	fs.Parse(args)

	aggregates, err := loadReport(*verbose)
	if err != nil {
		return err
	}
	fmt.Print(render(aggregates))
	return nil
}

func runSender(args []string) error {
	fs := flag.NewFlagSet("sender", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "enable progress logging")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: mailprune sender <pattern>")
	}

	aggregates, err := loadReport(*verbose)
	if err != nil {
		return err
	}
	fmt.Print(report.RenderSender(aggregates, fs.Arg(0)))
	return nil
}
