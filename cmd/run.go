// -- cmd/run.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamamind47/dsl-autofill/internal/accounts"
	"github.com/mamamind47/dsl-autofill/internal/batch"
	"github.com/mamamind47/dsl-autofill/internal/browser"
	"github.com/mamamind47/dsl-autofill/internal/config"
	"github.com/mamamind47/dsl-autofill/internal/observability"
	"github.com/mamamind47/dsl-autofill/internal/paths"
	"github.com/mamamind47/dsl-autofill/internal/workflow"
)

const shutdownTimeout = 15 * time.Second

// newDisburseCmd creates the `disburse` command.
func newDisburseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disburse",
		Short: "Confirm loan disbursement requests for every file in the disbursement inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), workflow.NewDisbursementVariant, paths.DisbursementDir)
		},
	}
}

// newSignContractCmd creates the `sign-contract` command.
func newSignContractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign-contract",
		Short: "Submit contract signing documents for every file in the sign-contract inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), workflow.NewSignContractVariant, paths.SignContractDir)
		},
	}
}

// storeCredentials adapts the account store to the workflow's credential
// source.
type storeCredentials struct {
	store *accounts.Store
}

func (s storeCredentials) Current() (workflow.Credentials, error) {
	acct, err := s.store.Current()
	if err != nil {
		return workflow.Credentials{}, err
	}
	return workflow.Credentials{
		Label:    acct.Name,
		Username: acct.Username,
		Password: acct.Password,
	}, nil
}

// runBatch wires the browser, the workflow runner and the batch processor
// together and drains the inbox for one variant.
func runBatch(ctx context.Context, makeVariant func(*config.Config) workflow.Variant, inboxDir string) error {
	logger := observability.GetLogger()
	cfg := loadedConfig

	layout, err := paths.Resolve()
	if err != nil {
		return fmt.Errorf("resolving application directory: %w", err)
	}
	if err := layout.EnsureDirs(); err != nil {
		return fmt.Errorf("preparing working directories: %w", err)
	}

	store, err := accounts.Open(layout.Accounts())
	if err != nil {
		return fmt.Errorf("opening account store: %w", err)
	}
	if store.Len() == 0 {
		return fmt.Errorf("no accounts configured; run %q first", "autofill users")
	}
	if err := store.TouchCurrent(); err != nil {
		return fmt.Errorf("recording account use: %w", err)
	}

	variant := makeVariant(cfg)
	acct, _ := store.Current()
	logger.Info("Starting batch run",
		zap.String("feature", variant.Name),
		zap.String("account", acct.Name),
		zap.String("inbox", layout.Inbox(inboxDir)))

	manager, err := browser.NewManager(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("starting browser: %w", err)
	}
	logger.Info("Browser ready", zap.Bool("attached", manager.Attached()))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Error during browser shutdown", zap.Error(err))
		}
	}()

	session, err := manager.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("opening browser session: %w", err)
	}
	defer session.Close()

	runner := workflow.NewRunner(session, storeCredentials{store: store}, variant, cfg, logger)
	runner.SetScreenshotDir(layout.Screenshots())
	journal := batch.NewJournal(
		layout.LogFile("success.log"),
		layout.LogFile("failed.log"),
		layout.LogFile("duplicate.log"),
	)
	processor := batch.NewProcessor(runner, journal, layout, inboxDir, cfg.Files, cfg.Timing.InterItemDelay, logger)

	summary, err := processor.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Batch run aborted", zap.String("feature", variant.Name))
			return fmt.Errorf("batch run aborted by user signal")
		}
		logger.Error("Batch run failed", zap.Error(err), zap.String("feature", variant.Name))
		return err
	}

	logger.Info("Batch run completed",
		zap.String("feature", variant.Name),
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))

	if summary.Total == 0 {
		fmt.Printf("\n%s: no files to process in %s\n", variant.Title, layout.Inbox(inboxDir))
		return nil
	}
	fmt.Printf("\n%s complete: %d/%d succeeded (%.0f%%), %d duplicates, %d skipped, %d failed\n",
		variant.Title, summary.Succeeded, summary.Total, summary.SuccessRate(),
		summary.Duplicates, summary.Skipped, summary.Failed)
	return nil
}
