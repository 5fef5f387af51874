// Package pipeline runs the per-domain harvest: archive fetch, URL
// filtering, output bundle, scanner command.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/thesavant42/sqlihunter/internal/api"
	"github.com/thesavant42/sqlihunter/internal/filter"
	"github.com/thesavant42/sqlihunter/internal/logging"
	"github.com/thesavant42/sqlihunter/internal/models"
	"github.com/thesavant42/sqlihunter/internal/output"
	"github.com/thesavant42/sqlihunter/internal/scanner"
)

// Fetcher returns the archived records for a domain and its subdomains
type Fetcher interface {
	FetchDomain(ctx context.Context, domain string) ([]models.CDXRecord, error)
}

// Ledger persists finished runs
type Ledger interface {
	RecordRun(run *models.ScanRun, records []models.CDXRecord, cleaned []string) error
}

// SpinFunc shows progress while action runs
type SpinFunc func(title string, action func()) error

// WaitFunc blocks for d or until ctx is done
type WaitFunc func(ctx context.Context, d time.Duration) error

// Runner holds everything a run needs. Fetcher, Filter and Writer are
// required; the rest are optional. A nil Logger discards output.
type Runner struct {
	Fetcher   Fetcher
	Filter    *filter.Filter
	Writer    *output.Writer
	Composer  scanner.Composer
	Executor  scanner.Executor
	Confirmer scanner.Confirmer // nil means never execute
	Ledger    Ledger
	Logger    *log.Logger

	Delay time.Duration // pause between archive requests
	Spin  SpinFunc
	Wait  WaitFunc

	// Out receives commands that were not executed
	Out          io.Writer
	PrintCommand func(w io.Writer, domain, command string)

	Now func() time.Time
}

// Summary collects the outcome of every processed domain
type Summary struct {
	Runs []models.ScanRun
}

// Succeeded returns how many domains completed their pipeline
func (s Summary) Succeeded() int {
	n := 0
	for _, r := range s.Runs {
		if r.Status.Succeeded() {
			n++
		}
	}
	return n
}

// ExitCode is 0 when at least one domain completed and 1 otherwise
func (s Summary) ExitCode() int {
	if s.Succeeded() > 0 {
		return 0
	}
	return 1
}

// Run processes domains one after another. Per-domain failures are recorded
// in the summary and never stop the run; only ctx cancellation and an
// operator abort at the prompt do.
func (r *Runner) Run(ctx context.Context, domains []string) (Summary, error) {
	var summary Summary
	r.defaults()

	for i, domain := range domains {
		if i > 0 {
			if err := r.wait(ctx); err != nil {
				return summary, err
			}
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		r.Logger.Info("processing domain", "domain", domain, "position", fmt.Sprintf("%d/%d", i+1, len(domains)))
		run, err := r.ProcessDomain(ctx, domain)
		summary.Runs = append(summary.Runs, run)
		if err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// ProcessDomain runs fetch, filter, write and compose for one domain.
// Failures are reported through the returned run; the error is non-nil only
// when the operator aborted at the confirmation prompt.
func (r *Runner) ProcessDomain(ctx context.Context, domain string) (models.ScanRun, error) {
	r.defaults()
	run := models.ScanRun{
		Domain:    domain,
		StartedAt: r.now(),
	}

	records, err := r.fetch(ctx, domain)
	if err != nil {
		r.Logger.Error("archive fetch failed", "domain", domain, "err", err)
		run.Status = models.RunFetchFailed
		run.Error = err.Error()
		r.record(&run, nil, nil)
		return run, nil
	}

	rawURLs := models.RecordURLs(records)
	cleaned := r.Filter.Clean(rawURLs)
	run.RawCount = len(rawURLs)
	run.CleanCount = len(cleaned)
	r.Logger.Info("filtered archive urls", "domain", domain, "raw", run.RawCount, "candidates", run.CleanCount)

	bundle, err := r.write(domain, run.StartedAt, rawURLs, cleaned)
	if bundle != nil {
		run.OutputDir = bundle.Dir
		run.RawFile = bundle.RawPath()
		run.CleanedFile = bundle.CleanedPath()
	}
	if err != nil {
		r.Logger.Error("failed to write output", "domain", domain, "err", err)
		run.Status = models.RunWriteFailed
		run.Error = err.Error()
		r.record(&run, records, cleaned)
		return run, nil
	}
	r.Logger.Info("wrote output bundle", "domain", domain, "dir", bundle.Dir)

	cmd, err := r.Composer.Compose(bundle.CleanedPath(), len(cleaned))
	if errors.Is(err, scanner.ErrNoTargets) {
		r.Logger.Warn("no urls with query parameters, skipping scanner", "domain", domain)
		run.Status = models.RunEmpty
		r.record(&run, records, cleaned)
		return run, nil
	}
	if err != nil {
		r.Logger.Error("failed to compose scanner command", "domain", domain, "err", err)
		run.Status = models.RunCompleted
		run.Error = err.Error()
		r.record(&run, records, cleaned)
		return run, nil
	}

	run.Command = cmd.String()
	run.Status = models.RunCompleted
	err = r.execute(ctx, &run, cmd)
	if errors.Is(err, scanner.ErrAborted) {
		r.Logger.Warn("run aborted at the prompt", "domain", domain)
		run.Error = err.Error()
		r.record(&run, records, cleaned)
		return run, err
	}
	if err != nil {
		r.Logger.Error("scanner failed", "domain", domain, "err", err)
		run.Error = err.Error()
	}

	r.record(&run, records, cleaned)
	return run, nil
}

func (r *Runner) fetch(ctx context.Context, domain string) ([]models.CDXRecord, error) {
	if r.Spin == nil {
		return r.Fetcher.FetchDomain(ctx, domain)
	}

	var records []models.CDXRecord
	var fetchErr error
	err := r.Spin(fmt.Sprintf("Querying the Wayback Machine for *.%s...", domain), func() {
		records, fetchErr = r.Fetcher.FetchDomain(ctx, domain)
	})
	if err != nil {
		return nil, err
	}
	return records, fetchErr
}

func (r *Runner) write(domain string, startedAt time.Time, rawURLs, cleaned []string) (*output.Bundle, error) {
	bundle, err := r.Writer.Create(domain, startedAt)
	if err != nil {
		return nil, err
	}
	if err := bundle.WriteRaw(rawURLs); err != nil {
		return bundle, err
	}
	if err := bundle.WriteCleaned(cleaned); err != nil {
		return bundle, err
	}
	return bundle, nil
}

// execute asks the confirmer and runs cmd when accepted. A declined or
// unconfirmed command is printed for manual use.
func (r *Runner) execute(ctx context.Context, run *models.ScanRun, cmd scanner.Command) error {
	if r.Confirmer == nil || r.Executor == nil {
		r.printCommand(run.Domain, run.Command)
		return nil
	}

	ok, err := r.Confirmer.Confirm(run.Domain, cmd, run.RawCount, run.CleanCount)
	if err != nil {
		r.printCommand(run.Domain, run.Command)
		if errors.Is(err, scanner.ErrAborted) {
			return err
		}
		return fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		r.Logger.Info("scanner declined", "domain", run.Domain)
		r.printCommand(run.Domain, run.Command)
		return nil
	}

	r.Logger.Info("starting scanner", "domain", run.Domain, "command", run.Command)
	run.Executed = true
	return r.Executor.Execute(ctx, cmd)
}

func (r *Runner) printCommand(domain, command string) {
	if r.Out == nil {
		return
	}
	if r.PrintCommand != nil {
		r.PrintCommand(r.Out, domain, command)
		return
	}
	fmt.Fprintln(r.Out, command)
}

func (r *Runner) record(run *models.ScanRun, records []models.CDXRecord, cleaned []string) {
	if r.Ledger == nil {
		return
	}
	if err := r.Ledger.RecordRun(run, records, cleaned); err != nil {
		r.Logger.Warn("failed to record run", "domain", run.Domain, "err", err)
	}
}

func (r *Runner) wait(ctx context.Context) error {
	if r.Delay <= 0 {
		return nil
	}
	r.Logger.Debug("rate limit pause", "delay", r.Delay)
	if r.Wait != nil {
		return r.Wait(ctx, r.Delay)
	}
	return api.Sleep(ctx, r.Delay)
}

func (r *Runner) defaults() {
	if r.Logger == nil {
		r.Logger = logging.Discard()
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
