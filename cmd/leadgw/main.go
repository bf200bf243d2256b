package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/toitureai/leadgw/internal/ai"
	"github.com/toitureai/leadgw/internal/api"
	"github.com/toitureai/leadgw/internal/config"
	"github.com/toitureai/leadgw/internal/devis"
	"github.com/toitureai/leadgw/internal/docuseal"
	"github.com/toitureai/leadgw/internal/email"
	"github.com/toitureai/leadgw/internal/errlog"
	"github.com/toitureai/leadgw/internal/lead"
	"github.com/toitureai/leadgw/internal/lock"
	"github.com/toitureai/leadgw/internal/log"
	"github.com/toitureai/leadgw/internal/outbox"
	"github.com/toitureai/leadgw/internal/report"
	"github.com/toitureai/leadgw/internal/scheduler"
	"github.com/toitureai/leadgw/internal/signing"
	"github.com/toitureai/leadgw/internal/storage"
	"github.com/toitureai/leadgw/internal/turnstile"
)

const version = "0.1.0"

func main() {
	// Secrets usually arrive through ${VAR} interpolation in the config
	// file; a local .env feeds them during development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "serve":
		os.Exit(runServe(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "report":
		os.Exit(runReportNoun(args))
	case "version":
		fmt.Printf("leadgw version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`leadgw - Roofing lead intake and quote automation backend

Usage:
  leadgw <command> [flags]

Commands:
  serve             Run the HTTP API, outbox worker and report scheduler
  config check      Validate the configuration file
  config show       Print the effective configuration (secrets redacted)
  report run        Generate a monthly report from the command line
  version           Show version information
  help              Show this help message

Common flags:
  --config <path>   Path to the YAML configuration file (default: ./config.yaml)
`)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = "./config.yaml"
	}
	return config.Load(path)
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("leadgw starting", "version", version)

	pidLock, err := lock.AcquirePIDLock(cfg.Service.PIDFile)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)",
			"path", cfg.Service.PIDFile, "error", err)
		return 1
	}
	defer pidLock.Release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenSQLite(ctx, cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer db.Close()

	files, err := storage.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		logger.Error("failed to open document store", "dir", cfg.Storage.Dir, "error", err)
		return 1
	}

	leads := lead.NewRepo(db)
	sender := email.NewSendGridSender(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	box := outbox.New(db, sender, leads)
	failures := errlog.NewRecorder(db, box, cfg.SendGrid.AdminEmail)

	var qualifier api.Qualifier
	var drafter devis.LineDrafter
	if cfg.GenAI.APIKey != "" {
		llm, err := ai.NewClient(ctx, cfg.GenAI.APIKey, cfg.GenAI.Model)
		if err != nil {
			logger.Error("failed to initialize genai client", "error", err)
			return 1
		}
		qualifier = llm
		drafter = llm
	} else {
		logger.Warn("genai disabled, using deterministic scoring and quote lines")
	}

	var dsClient *docuseal.Client
	var requester devis.SignatureRequester
	var submissions api.SubmissionReader
	if cfg.DocuSeal.APIKey != "" {
		dsClient = docuseal.NewClient(cfg.DocuSeal.APIKey, cfg.DocuSeal.BaseURL)
		submissions = dsClient
		if cfg.DocuSeal.TemplateID > 0 {
			requester = docuseal.NewSender(dsClient, cfg.DocuSeal.TemplateID)
		} else {
			logger.Warn("docuseal template_id not set, quotes will not be sent for signature")
		}
	} else {
		logger.Warn("docuseal disabled, signature webhooks will be rejected")
	}

	quotes := devis.NewService(leads, devis.NewRepo(db), drafter, files, box, requester)

	var signature api.SignatureService
	if dsClient != nil {
		signature = docuseal.NewService(quotes.Repo(), quotes, dsClient)
	}

	loc, err := time.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		logger.Error("invalid report timezone", "tz", cfg.Report.Timezone, "error", err)
		return 1
	}
	reports := report.NewService(report.NewRepo(db), files, box, cfg.SendGrid.AdminEmail, loc)
	sched := scheduler.New(reports, failures, cfg.Report.Day, cfg.Report.Hour, loc)

	server := api.New(api.Config{
		Listen:         cfg.Service.Listen,
		APIKey:         cfg.Security.APIKey,
		WebhookSecret:  cfg.Security.WebhookSecret,
		DocuSealSecret: cfg.DocuSeal.WebhookSecret,
		CronSecret:     cfg.Security.CronSecret,
		WebsiteURL:     cfg.Service.WebsiteURL,
		APIBaseURL:     cfg.Service.APIBaseURL,
		HotThreshold:   cfg.Leads.HotThreshold,
		AdminEmail:     cfg.SendGrid.AdminEmail,
	}, leads, qualifier, turnstile.New(cfg.Turnstile.SecretKey),
		signing.New(cfg.Security.TrackingSecret), box, quotes, signature, submissions,
		reports, failures)

	box.Start(ctx)
	defer box.Stop()
	sched.Start(ctx)
	defer sched.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			logger.Error("API server failed", "error", err)
			cancel()
			return 1
		}
	}

	logger.Info("leadgw stopped")
	return 0
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: leadgw config <check|show> [--config <path>]")
		return 1
	}
	action := args[0]
	fs := flag.NewFlagSet("config "+action, flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	switch action {
	case "check":
		fmt.Println("Configuration OK")
		return 0
	case "show":
		redacted := *cfg
		redacted.Security = config.SecurityConfig{
			WebhookSecret:  redact(cfg.Security.WebhookSecret),
			TrackingSecret: redact(cfg.Security.TrackingSecret),
			CronSecret:     redact(cfg.Security.CronSecret),
			APIKey:         redact(cfg.Security.APIKey),
		}
		redacted.SendGrid.APIKey = redact(cfg.SendGrid.APIKey)
		redacted.GenAI.APIKey = redact(cfg.GenAI.APIKey)
		redacted.DocuSeal.APIKey = redact(cfg.DocuSeal.APIKey)
		redacted.DocuSeal.WebhookSecret = redact(cfg.DocuSeal.WebhookSecret)
		redacted.Turnstile.SecretKey = redact(cfg.Turnstile.SecretKey)

		out, err := yaml.Marshal(&redacted)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render configuration: %v\n", err)
			return 1
		}
		fmt.Print(string(out))
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func runReportNoun(args []string) int {
	if len(args) < 1 || args[0] != "run" {
		fmt.Fprintln(os.Stderr, "Usage: leadgw report run [--config <path>] [--mois N --annee N]")
		return 1
	}
	fs := flag.NewFlagSet("report run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	mois := fs.Int("mois", 0, "Report month (1-12, default: previous month)")
	annee := fs.Int("annee", 0, "Report year")
	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}
	log.Setup(cfg.Service.LogLevel)

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	files, err := storage.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open document store: %v\n", err)
		return 1
	}
	loc, err := time.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid report timezone: %v\n", err)
		return 1
	}

	leads := lead.NewRepo(db)
	sender := email.NewSendGridSender(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	box := outbox.New(db, sender, leads)
	box.Start(ctx)
	defer box.Stop()

	reports := report.NewService(report.NewRepo(db), files, box, cfg.SendGrid.AdminEmail, loc)
	rec, err := reports.Generate(ctx, *mois, *annee)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Report generation failed: %v\n", err)
		return 1
	}

	fmt.Printf("Rapport %d-%02d genere: %s\n", rec.Annee, rec.Mois, rec.URLPDF)
	return 0
}
