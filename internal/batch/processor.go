// File: internal/batch/processor.go
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/mamamind47/dsl-autofill/internal/config"
	"github.com/mamamind47/dsl-autofill/internal/paths"
	"github.com/mamamind47/dsl-autofill/internal/workflow"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// FileRunner processes one file through the portal. Satisfied by
// workflow.Runner; tests substitute a scripted fake.
type FileRunner interface {
	ProcessFile(ctx context.Context, filename, sourceDir string) (workflow.Outcome, error)
}

// Summary tallies the outcomes of one batch run.
type Summary struct {
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int
	Duplicates int
}

// SuccessRate returns the fraction of files that went through, in percent.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}

// Processor walks a variant's inbox and pushes every eligible file through
// the runner, journaling each outcome and relocating the file to the
// completed or failed bin.
type Processor struct {
	runner  FileRunner
	journal *Journal
	limiter *rate.Limiter
	layout  paths.Layout
	variant string
	files   config.FilesConfig
	log     *zap.Logger
	now     func() time.Time
}

// NewProcessor wires a processor for one variant. interItemDelay paces the
// portal between files.
func NewProcessor(runner FileRunner, journal *Journal, layout paths.Layout, variant string, files config.FilesConfig, interItemDelay time.Duration, log *zap.Logger) *Processor {
	return &Processor{
		runner:  runner,
		journal: journal,
		limiter: rate.NewLimiter(rate.Every(interItemDelay), 1),
		layout:  layout,
		variant: variant,
		files:   files,
		log:     log.Named("batch"),
		now:     time.Now,
	}
}

// Run processes the whole inbox. It stops early only on a fatal runner error
// or a cancelled context; per file failures are journaled and the run moves
// on. The session delimiters are written even when the run aborts.
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	inbox := p.layout.Inbox(p.variant)
	names, err := ListFiles(inbox, p.files)
	if err != nil {
		return Summary{}, err
	}
	if len(names) == 0 {
		p.log.Warn("No eligible files found", zap.String("inbox", inbox))
		return Summary{}, nil
	}

	summary := Summary{Total: len(names)}
	p.log.Info("Starting batch run",
		zap.String("variant", p.variant),
		zap.Int("files", summary.Total))

	if err := p.journal.Begin(); err != nil {
		return Summary{}, err
	}
	defer func() {
		if err := p.journal.End(summary.Succeeded, summary.Total); err != nil {
			p.log.Error("Failed to close result logs", zap.Error(err))
		}
	}()

	for i, name := range names {
		// Pace the portal between files. The first file goes immediately.
		if err := p.limiter.Wait(ctx); err != nil {
			return summary, err
		}

		p.log.Info("Processing",
			zap.Int("index", i+1),
			zap.Int("total", summary.Total),
			zap.String("file", name))

		outcome, err := p.runner.ProcessFile(ctx, name, inbox)
		if err != nil {
			p.log.Error("Batch aborted", zap.String("file", name), zap.Error(err))
			return summary, fmt.Errorf("processing %s: %w", name, err)
		}

		p.record(name, inbox, outcome, &summary)
	}

	p.log.Info("Batch run finished",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("duplicates", summary.Duplicates),
		zap.Float64("success_rate", summary.SuccessRate()))
	return summary, nil
}

// record journals one outcome and relocates the file. Bookkeeping failures
// are logged but never stop the batch.
func (p *Processor) record(name, inbox string, outcome workflow.Outcome, summary *Summary) {
	log := p.log.With(zap.String("file", name), zap.Stringer("outcome", outcome))

	switch outcome {
	case workflow.OutcomeSuccess:
		summary.Succeeded++
		p.journalOrLog(log, p.journal.Success(name))
		p.move(log, name, inbox, p.layout.Completed(p.variant))

	case workflow.OutcomeDuplicate:
		// An already completed item counts as a success for the tally, and
		// additionally lands in duplicate.log for the operator to review.
		summary.Succeeded++
		summary.Duplicates++
		p.journalOrLog(log, p.journal.Duplicate(name))
		p.journalOrLog(log, p.journal.Success(name))
		p.move(log, name, inbox, p.layout.Completed(p.variant))

	case workflow.OutcomeNoMatch:
		summary.Skipped++
		p.journalOrLog(log, p.journal.Failed(name))
		p.move(log, name, inbox, p.layout.Failed(p.variant))

	default:
		summary.Failed++
		p.journalOrLog(log, p.journal.Failed(name))
		p.move(log, name, inbox, p.layout.Failed(p.variant))
	}
}

func (p *Processor) journalOrLog(log *zap.Logger, err error) {
	if err != nil {
		log.Error("Failed to journal outcome", zap.Error(err))
	}
}

func (p *Processor) move(log *zap.Logger, name, sourceDir, destDir string) {
	dest, err := MoveFile(name, sourceDir, destDir, p.now())
	if err != nil {
		log.Error("Failed to relocate file", zap.Error(err))
		return
	}
	log.Info("File relocated", zap.String("dest", dest))
}
