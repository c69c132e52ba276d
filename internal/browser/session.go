// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/mamamind47/dsl-autofill/internal/config"
	"github.com/mamamind47/dsl-autofill/internal/workflow"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// pollInterval is the cadence for DOM condition polling.
	pollInterval = 150 * time.Millisecond
	// overlaySettle is a short pause after a loading overlay clears, giving
	// the page's change detection time to re-enable controls.
	overlaySettle = 500 * time.Millisecond
)

// Session wraps a single browser tab and exposes the page operations the
// portal workflows need. All methods honor the caller's context in addition
// to the tab's own lifetime.
type Session struct {
	id     string
	logger *zap.Logger
	timing config.TimingConfig

	// ctx is the primary chromedp context bound to the tab.
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	onClose   func()
}

func newSession(allocatorCtx context.Context, timing config.TimingConfig, logger *zap.Logger) *Session {
	id := uuid.New().String()
	ctx, cancel := chromedp.NewContext(allocatorCtx)

	return &Session{
		id:     id,
		logger: logger.Named("session").With(zap.String("session_id", id)),
		timing: timing,
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns the unique identifier of this session.
func (s *Session) ID() string { return s.id }

// Close releases the tab. Safe to call multiple times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing session.")
		s.cancel()
		if s.onClose != nil {
			s.onClose()
		}
	})
}

// run executes chromedp actions against the tab, bounded by opCtx.
func (s *Session) run(opCtx context.Context, actions ...chromedp.Action) error {
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("session is closed: %w", err)
	}
	combined, cancel := CombineContext(s.ctx, opCtx)
	defer cancel()
	return chromedp.Run(combined, actions...)
}

// Navigate loads url and waits for the document body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))

	opCtx, cancel := context.WithTimeout(ctx, s.timing.PageLoad)
	defer cancel()

	err := s.run(opCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if opCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return fmt.Errorf("navigation to %s timed out after %v: %w", url, s.timing.PageLoad, err)
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Click activates the element described by loc, using the strategy the
// locator calls for. A short pause follows every click so the page can
// react before the next step.
func (s *Session) Click(ctx context.Context, loc workflow.Locator) error {
	s.logger.Debug("Clicking.", zap.String("element", loc.Label), zap.String("selector", loc.Selector))

	var err error
	switch loc.Strategy {
	case workflow.DirectClick:
		err = s.clickJS(ctx, loc.Selector)
	case workflow.AutoClick:
		// A lingering overlay is worth waiting out but not fatal; the JS
		// click below cannot be swallowed by it anyway.
		if !s.waitOverlayGone(ctx) {
			s.logger.Warn("Loading overlay did not clear in time, clicking anyway.",
				zap.String("element", loc.Label))
		}
		if serr := sleepContext(ctx, overlaySettle); serr != nil {
			return serr
		}
		err = s.clickJS(ctx, loc.Selector)
	default:
		opCtx, cancel := context.WithTimeout(ctx, s.timing.ElementWait)
		err = s.run(opCtx,
			chromedp.WaitVisible(loc.Selector, chromedp.ByQuery),
			chromedp.Click(loc.Selector, chromedp.ByQuery),
		)
		cancel()
		if err != nil && ctx.Err() == nil {
			// Custom components sometimes intercept the synthetic mouse
			// event. One retry from page script before giving up.
			s.logger.Debug("Standard click failed, retrying via script.",
				zap.String("element", loc.Label), zap.Error(err))
			err = s.clickJS(ctx, loc.Selector)
		}
	}
	if err != nil {
		return fmt.Errorf("click %s (%s): %w", loc.Label, loc.Selector, err)
	}
	return sleepContext(ctx, s.timing.StepPause)
}

// clickJS waits for the element to exist and clicks it from page script.
// Works for inputs the portal hides behind styled labels, which a regular
// click cannot reach.
func (s *Session) clickJS(ctx context.Context, selector string) error {
	opCtx, cancel := context.WithTimeout(ctx, s.timing.ElementWait)
	defer cancel()

	expr := fmt.Sprintf("document.querySelector(%s).click()", jsString(selector))
	return s.run(opCtx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Evaluate(expr, nil),
	)
}

// Type enters text into the element described by loc.
func (s *Session) Type(ctx context.Context, loc workflow.Locator, text string, clearFirst bool) error {
	s.logger.Debug("Typing.", zap.String("element", loc.Label))

	opCtx, cancel := context.WithTimeout(ctx, s.timing.ElementWait)
	defer cancel()

	actions := []chromedp.Action{
		chromedp.WaitVisible(loc.Selector, chromedp.ByQuery),
	}
	if clearFirst {
		actions = append(actions, chromedp.SetValue(loc.Selector, "", chromedp.ByQuery))
	}
	actions = append(actions, chromedp.SendKeys(loc.Selector, text, chromedp.ByQuery))

	if err := s.run(opCtx, actions...); err != nil {
		return fmt.Errorf("type into %s (%s): %w", loc.Label, loc.Selector, err)
	}
	return nil
}

// Upload attaches absPath to the file input described by loc. The input is
// hidden on the portal, so only element presence is required.
func (s *Session) Upload(ctx context.Context, loc workflow.Locator, absPath string) error {
	s.logger.Debug("Uploading file.", zap.String("element", loc.Label), zap.String("path", absPath))

	opCtx, cancel := context.WithTimeout(ctx, s.timing.ElementWait)
	defer cancel()

	err := s.run(opCtx,
		chromedp.WaitReady(loc.Selector, chromedp.ByQuery),
		chromedp.SetUploadFiles(loc.Selector, []string{absPath}, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("upload via %s (%s): %w", loc.Label, loc.Selector, err)
	}
	// Give the page time to register the file before confirming.
	return sleepContext(ctx, s.timing.UploadSettle)
}

// Exists reports whether selector matches an element within timeout.
func (s *Session) Exists(ctx context.Context, selector string, timeout time.Duration) bool {
	expr := fmt.Sprintf("document.querySelector(%s) !== null", jsString(selector))
	return s.pollBool(ctx, timeout, expr)
}

// ButtonWithText reports whether any element matching selector contains the
// given text, polling until timeout.
func (s *Session) ButtonWithText(ctx context.Context, selector, text string, timeout time.Duration) bool {
	expr := fmt.Sprintf(
		"Array.from(document.querySelectorAll(%s)).some(function(el) { return el.textContent.indexOf(%s) !== -1; })",
		jsString(selector), jsString(text))
	return s.pollBool(ctx, timeout, expr)
}

// TextVisible reports whether an element matching selector currently
// contains the given text. Single check, no waiting.
func (s *Session) TextVisible(ctx context.Context, selector, text string) bool {
	expr := fmt.Sprintf(
		"Array.from(document.querySelectorAll(%s)).some(function(el) { return el.textContent.indexOf(%s) !== -1; })",
		jsString(selector), jsString(text))

	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(expr, &ok)); err != nil {
		return false
	}
	return ok
}

// WaitAny polls until at least one of the selectors matches an element,
// returning false on timeout.
func (s *Session) WaitAny(ctx context.Context, timeout time.Duration, selectors ...string) bool {
	quoted := make([]string, len(selectors))
	for i, sel := range selectors {
		quoted[i] = jsString(sel)
	}
	expr := fmt.Sprintf(
		"[%s].some(function(sel) { return document.querySelector(sel) !== null; })",
		strings.Join(quoted, ", "))
	return s.pollBool(ctx, timeout, expr)
}

// Screenshot captures the current viewport as a PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return buf, nil
}

// Location returns the tab's current URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("reading current location: %w", err)
	}
	return url, nil
}

// WaitURLLeft waits until the tab's URL no longer contains prefix.
func (s *Session) WaitURLLeft(ctx context.Context, prefix string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		url, err := s.Location(ctx)
		if err != nil {
			return err
		}
		if !strings.Contains(url, prefix) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("still on %s after %v", url, timeout)
		}
		if err := sleepContext(ctx, pollInterval); err != nil {
			return err
		}
	}
}

// waitOverlayGone polls until no loading overlay is visible on the page.
func (s *Session) waitOverlayGone(ctx context.Context) bool {
	quoted := make([]string, len(workflow.OverlaySelectors))
	for i, sel := range workflow.OverlaySelectors {
		quoted[i] = jsString(sel)
	}
	expr := fmt.Sprintf(
		"[%s].every(function(sel) { var el = document.querySelector(sel); return el === null || el.offsetParent === null; })",
		strings.Join(quoted, ", "))
	return s.pollBool(ctx, s.timing.ElementWait, expr)
}

// pollBool evaluates expr repeatedly until it yields true or timeout expires.
func (s *Session) pollBool(ctx context.Context, timeout time.Duration, expr string) bool {
	deadline := time.Now().Add(timeout)
	for {
		var ok bool
		if err := s.run(ctx, chromedp.Evaluate(expr, &ok)); err == nil && ok {
			return true
		}
		if ctx.Err() != nil || s.ctx.Err() != nil || time.Now().After(deadline) {
			return false
		}
		if err := sleepContext(ctx, pollInterval); err != nil {
			return false
		}
	}
}

// jsString renders s as a JavaScript string literal. The portal selectors
// contain double quotes, so naive quoting is not enough.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
