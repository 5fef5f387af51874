package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/thesavant42/sqlihunter/internal/api"
	"github.com/thesavant42/sqlihunter/internal/config"
	"github.com/thesavant42/sqlihunter/internal/db"
	"github.com/thesavant42/sqlihunter/internal/filter"
	"github.com/thesavant42/sqlihunter/internal/intake"
	"github.com/thesavant42/sqlihunter/internal/logging"
	"github.com/thesavant42/sqlihunter/internal/models"
	"github.com/thesavant42/sqlihunter/internal/output"
	"github.com/thesavant42/sqlihunter/internal/pipeline"
	"github.com/thesavant42/sqlihunter/internal/scanner"
	"github.com/thesavant42/sqlihunter/internal/ui"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	cfg, err := config.LoadFromOS()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		ui.PrintError(os.Stderr, err.Error())
		return exitUsage
	}

	logger, err := logging.New(logging.Options{
		Verbose:    cfg.Verbose,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		ui.PrintError(os.Stderr, fmt.Sprintf("Failed to open log file: %v", err))
		return exitUsage
	}
	defer logger.Close()

	interactive := isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stdin.Fd())

	// Handle --history before anything touches the network
	if cfg.History {
		return showHistory(cfg)
	}

	ui.PrintBanner(os.Stdout)

	domains, warnings, err := intake.Load(cfg.Domain, cfg.ListFile)
	for _, w := range warnings {
		ui.PrintWarning(os.Stderr, w.String())
		logger.Debug("skipping domain input", "line", w.Line, "input", w.Input, "reason", w.Reason)
	}
	if err != nil {
		if errors.Is(err, intake.ErrNoDomains) {
			ui.PrintError(os.Stderr, "no valid domains supplied (use -d example.com or -l domains.txt)")
		} else {
			ui.PrintError(os.Stderr, err.Error())
		}
		return exitUsage
	}

	if cfg.UseProxy {
		logger.Info("routing traffic through SOCKS5 proxy", "addr", cfg.ProxyAddr)
	}

	client, err := api.NewWaybackClientWithOptions(logger.Logger, api.ClientOptions{
		Timeout:   cfg.Timeout(),
		ProxyAddr: cfg.EffectiveProxyAddr(),
		MaxPages:  cfg.MaxPages,
		PageDelay: cfg.Delay(),
	})
	if err != nil {
		ui.PrintError(os.Stderr, err.Error())
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	filterOpts := filter.DefaultOptions()
	filterOpts.SkipStatic = cfg.SkipStatic
	filterOpts.SkipTrackingOnly = cfg.SkipTracking

	writer := output.NewWriter(cfg.OutputRoot)
	runner := &pipeline.Runner{
		Fetcher: client,
		Filter:  filter.New(filterOpts),
		Writer:  writer,
		Composer: scanner.Composer{
			Binary:    cfg.ScannerBinary,
			ProxyURL:  api.ProxyURL(cfg.EffectiveProxyAddr()),
			ExtraArgs: cfg.ScannerArgs,
		},
		Executor:     scanner.ExecExecutor{},
		Logger:       logger.Logger,
		Delay:        cfg.Delay(),
		Out:          os.Stdout,
		PrintCommand: ui.PrintCommand,
	}

	switch {
	case cfg.NoPrompt:
		runner.Confirmer = scanner.Always(false)
	case cfg.AutoRun:
		runner.Confirmer = scanner.Always(true)
	case interactive:
		runner.Confirmer = ui.NewConfirmer()
	default:
		logger.Info("stdin is not a terminal, scanner commands will only be printed")
		runner.Confirmer = scanner.Always(false)
	}

	if interactive {
		runner.Spin = func(title string, action func()) error {
			err := ui.RunWithSpinner(os.Stdout, title, action)
			if errors.Is(err, ui.ErrInterrupted) {
				// The terminal is in raw mode while the spinner runs, so
				// ctrl+c arrives as a key press instead of SIGINT
				stop()
			}
			return err
		}
		runner.Wait = ui.WaitWithSpinner
	}

	if cfg.DBPath != "" {
		database, err := db.New(cfg.DBPath)
		if err != nil {
			logger.Warn("run ledger disabled", "path", cfg.DBPath, "err", err)
		} else {
			defer database.Close()
			runner.Ledger = database
		}
	}

	logger.Info("starting", "domains", len(domains), "output", writer.Root(), "delay", cfg.Delay())

	summary, err := runner.Run(ctx, domains)
	ui.PrintRunSummary(os.Stdout, summary.Runs)
	if err != nil {
		logger.Error("run aborted", "err", err)
		return exitFailed
	}

	if code := summary.ExitCode(); code != exitOK {
		ui.PrintError(os.Stderr, "no domain completed its pipeline")
		return code
	}
	ui.PrintSuccess(os.Stdout, fmt.Sprintf("Done: %d of %d domains completed", summary.Succeeded(), len(summary.Runs)))
	return exitOK
}

func showHistory(cfg *config.Config) int {
	if cfg.DBPath == "" {
		ui.PrintError(os.Stderr, "-history needs a run ledger (-db)")
		return exitUsage
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		ui.PrintError(os.Stderr, fmt.Sprintf("Failed to open run ledger: %v", err))
		return exitFailed
	}
	defer database.Close()

	domain := intake.Normalize(cfg.Domain)
	stats, err := database.GetDomainRunStats(domain)
	if err != nil {
		ui.PrintError(os.Stderr, err.Error())
		return exitFailed
	}
	runs, err := database.GetScanRuns(models.RunFilter{Domain: domain})
	if err != nil {
		ui.PrintError(os.Stderr, err.Error())
		return exitFailed
	}

	ui.PrintDomainStats(os.Stdout, stats)
	ui.PrintRunHistory(os.Stdout, runs)
	return exitOK
}
