// File: internal/workflow/runner.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mamamind47/dsl-autofill/internal/config"
	"go.uber.org/zap"
)

// ErrAuthFailed means the portal login could not be completed after all
// retries. The batch run cannot continue without a session.
var ErrAuthFailed = errors.New("portal authentication failed")

// searchResultWait bounds the wait for the results table after a search.
const searchResultWait = 5 * time.Second

// buttonProbeTimeout bounds the caption check on the row action button.
const buttonProbeTimeout = 3 * time.Second

// noResultSelectors mark an empty search result.
const noResultSelectors = ".no-data, .empty-result"

// Credentials is one set of portal login credentials.
type Credentials struct {
	Label    string
	Username string
	Password string
}

// CredentialSource supplies the credentials for the active account.
type CredentialSource interface {
	Current() (Credentials, error)
}

// Runner drives one workflow variant through the portal, one file at a time.
// It logs in lazily on the first file and keeps the session for the rest of
// the batch.
type Runner struct {
	page     Page
	creds    CredentialSource
	variant  Variant
	login    LoginLocators
	loginURL string
	timing   config.TimingConfig
	log      *zap.Logger

	// screenshotDir, when set, receives a viewport capture for every file
	// whose flow fails partway.
	screenshotDir string

	authenticated bool
}

// NewRunner builds a runner for one variant on an open page.
func NewRunner(page Page, creds CredentialSource, variant Variant, cfg *config.Config, log *zap.Logger) *Runner {
	return &Runner{
		page:     page,
		creds:    creds,
		variant:  variant,
		login:    DefaultLoginLocators(),
		loginURL: cfg.Portal.LoginURL,
		timing:   cfg.Timing,
		log:      log.Named(variant.Name),
	}
}

// ProcessFile runs the full portal flow for one file. The returned error is
// non nil only when the batch cannot continue: failed authentication or a
// cancelled context. Per file step failures come back as OutcomeError with a
// nil error and are logged here.
func (r *Runner) ProcessFile(ctx context.Context, filename, sourceDir string) (Outcome, error) {
	log := r.log.With(zap.String("file", filename))
	log.Info("Processing file")

	if err := r.ensureReady(ctx); err != nil {
		// Only auth exhaustion and cancellation may abort the batch. A
		// failed return to the list page fails this file alone.
		if ctx.Err() != nil || errors.Is(err, ErrAuthFailed) {
			return OutcomeError, err
		}
		log.Warn("Could not reach the list page", zap.Error(err))
		r.captureFailure(ctx, filename, log)
		return OutcomeError, nil
	}

	outcome, err := r.runFlow(ctx, filename, sourceDir, log)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeError, ctx.Err()
		}
		log.Warn("File flow failed", zap.Error(err))
		r.captureFailure(ctx, filename, log)
		return OutcomeError, nil
	}
	return outcome, nil
}

// SetScreenshotDir enables failure screenshots, written into dir.
func (r *Runner) SetScreenshotDir(dir string) { r.screenshotDir = dir }

// captureFailure saves a screenshot of the page the flow died on. Best
// effort only; a capture problem never affects the outcome.
func (r *Runner) captureFailure(ctx context.Context, filename string, log *zap.Logger) {
	if r.screenshotDir == "" {
		return
	}
	shot, err := r.page.Screenshot(ctx)
	if err != nil {
		log.Debug("Failure screenshot unavailable", zap.Error(err))
		return
	}

	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	name := fmt.Sprintf("%s_%s.png", stem, time.Now().Format("20060102_150405"))
	path := filepath.Join(r.screenshotDir, name)
	if err := os.WriteFile(path, shot, 0o644); err != nil {
		log.Warn("Could not write failure screenshot", zap.Error(err))
		return
	}
	log.Info("Failure screenshot saved", zap.String("path", path))
}

// ensureReady makes sure we have a logged in session sitting on the variant's
// list page.
func (r *Runner) ensureReady(ctx context.Context) error {
	if !r.authenticated {
		if err := r.authenticate(ctx); err != nil {
			return err
		}
		return nil
	}

	// Subsequent files: return to the list page only if something navigated
	// away. The portal keeps the search form state otherwise.
	current, err := r.page.Location(ctx)
	if err == nil && strings.Contains(current, r.variant.ListURL) {
		return nil
	}
	r.log.Info("Returning to list page", zap.String("url", r.variant.ListURL))
	if err := r.openListPage(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to reopen list page: %w", err)
	}
	return nil
}

// authenticate logs into the portal and lands on the variant's list page.
// Transient failures are retried with a fixed backoff.
func (r *Runner) authenticate(ctx context.Context) error {
	creds, err := r.creds.Current()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	var lastErr error
	for attempt := 1; attempt <= r.timing.LoginRetries; attempt++ {
		if attempt > 1 {
			r.log.Info("Retrying login",
				zap.Int("attempt", attempt),
				zap.Int("max", r.timing.LoginRetries))
			if err := sleepCtx(ctx, r.timing.LoginRetryBackoff); err != nil {
				return err
			}
		}

		if err := r.loginOnce(ctx, creds); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			r.log.Warn("Login attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		r.authenticated = true
		r.log.Info("Login complete", zap.String("account", creds.Label))
		return nil
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrAuthFailed, r.timing.LoginRetries, lastErr)
}

// loginOnce performs a single login attempt and navigates to the list page.
func (r *Runner) loginOnce(ctx context.Context, creds Credentials) error {
	r.log.Info("Opening login page")
	if err := r.page.Navigate(ctx, r.loginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}
	if !r.page.Exists(ctx, r.login.Username.Selector, r.timing.PageLoad) {
		return fmt.Errorf("login form did not appear within %s", r.timing.PageLoad)
	}
	// The login form animates in after the first paint.
	if err := sleepCtx(ctx, r.timing.StepPause); err != nil {
		return err
	}

	if err := r.page.Type(ctx, r.login.Username, creds.Username, true); err != nil {
		return err
	}
	if err := r.page.Type(ctx, r.login.Password, creds.Password, true); err != nil {
		return err
	}
	if err := r.page.Click(ctx, r.login.Submit); err != nil {
		return err
	}

	// The portal redirects away from the login URL once the session is up.
	// A slow redirect is not fatal: the list page load below still has to
	// succeed either way.
	if err := r.page.WaitURLLeft(ctx, r.loginURL, r.timing.LoginRedirectWait); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.log.Warn("Login redirect is taking long, continuing", zap.Error(err))
	}

	return r.openListPage(ctx)
}

// openListPage navigates to the variant's list page and waits for its search
// form to render.
func (r *Runner) openListPage(ctx context.Context) error {
	if err := r.page.Navigate(ctx, r.variant.ListURL); err != nil {
		return fmt.Errorf("failed to open %s: %w", r.variant.ListURL, err)
	}
	if !r.page.Exists(ctx, r.variant.Locators.CategoryRadio.Selector, r.timing.PageLoad) {
		return fmt.Errorf("list page did not render within %s", r.timing.PageLoad)
	}
	return nil
}

// runFlow executes the search, consent and upload steps for one file.
func (r *Runner) runFlow(ctx context.Context, filename, sourceDir string, log *zap.Logger) (Outcome, error) {
	loc := r.variant.Locators

	if err := r.page.Click(ctx, loc.CategoryRadio); err != nil {
		return OutcomeError, err
	}

	// The portal matches items by the bare name, without the extension.
	searchText := strings.TrimSuffix(filename, filepath.Ext(filename))
	if err := r.page.Type(ctx, loc.SearchInput, searchText, true); err != nil {
		return OutcomeError, err
	}
	if err := r.page.Click(ctx, loc.SearchButton); err != nil {
		return OutcomeError, err
	}

	// Wait for either a result row, an empty result marker or the completed
	// banner. A timeout here just means the probes below decide.
	waitFor := []string{loc.RowActionButton.Selector, noResultSelectors}
	if r.variant.CompletedTextSelector != "" {
		waitFor = append(waitFor, r.variant.CompletedTextSelector)
	}
	r.page.WaitAny(ctx, searchResultWait, waitFor...)
	if ctx.Err() != nil {
		return OutcomeError, ctx.Err()
	}

	// The same row button serves both captions, so the caption text is the
	// only way to tell a fresh item from one whose consent is already done.
	hasNewItem := r.page.ButtonWithText(ctx, loc.RowActionButton.Selector, r.variant.NewItemCaption, buttonProbeTimeout)
	hasImport := false
	if r.variant.ImportCaption != "" {
		hasImport = r.page.ButtonWithText(ctx, loc.RowActionButton.Selector, r.variant.ImportCaption, buttonProbeTimeout)
	}

	if !hasNewItem && !hasImport {
		if r.variant.CompletedText != "" &&
			r.page.TextVisible(ctx, r.variant.CompletedTextSelector, r.variant.CompletedText) {
			log.Info("Portal reports the item as already completed")
			return OutcomeDuplicate, nil
		}
		log.Warn("No matching item found")
		return OutcomeNoMatch, nil
	}

	// A fresh item takes priority when both captions somehow match.
	if hasNewItem {
		log.Info("New item found, running consent flow",
			zap.String("caption", r.variant.NewItemCaption))
		if err := r.page.Click(ctx, loc.RowActionButton); err != nil {
			return OutcomeError, err
		}
		if err := r.tickConsentBoxes(ctx, r.page); err != nil {
			return OutcomeError, err
		}
		if err := r.page.Click(ctx, loc.ConsentConfirm); err != nil {
			return OutcomeError, err
		}
		if err := r.page.Click(ctx, loc.GoToUpload); err != nil {
			return OutcomeError, err
		}
	} else {
		log.Info("Consent already done, going straight to upload",
			zap.String("caption", r.variant.ImportCaption))
		if err := r.page.Click(ctx, loc.RowActionButton); err != nil {
			return OutcomeError, err
		}
	}

	absPath, err := filepath.Abs(filepath.Join(sourceDir, filename))
	if err != nil {
		return OutcomeError, fmt.Errorf("failed to resolve file path: %w", err)
	}
	if err := r.page.Upload(ctx, loc.FileInput, absPath); err != nil {
		return OutcomeError, err
	}
	if err := r.page.Click(ctx, loc.UploadConfirm); err != nil {
		return OutcomeError, err
	}
	if err := r.page.Click(ctx, loc.BackToStart); err != nil {
		return OutcomeError, err
	}

	log.Info("File uploaded and confirmed")
	return OutcomeSuccess, nil
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
