// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/mamamind47/dsl-autofill/internal/config"
)

// Manager handles the lifecycle of the Chrome process driving the portal.
// It either attaches to an already running Chrome over the DevTools protocol
// or launches its own instance.
type Manager struct {
	logger *zap.Logger
	cfg    *config.Config

	// allocatorCtx manages the browser process. All session contexts are
	// derived from this.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// attached is true when we joined an existing Chrome rather than
	// launching one.
	attached bool

	// wg tracks active sessions for a graceful shutdown.
	wg sync.WaitGroup
}

const browserStartTimeout = 30 * time.Second

// NewManager initializes the browser manager and verifies the browser is
// responsive. With attach enabled it tries the configured debugger first and
// falls back to launching a fresh instance.
func NewManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}

	if cfg.Browser.Attach {
		if err := m.attachExisting(ctx); err == nil {
			return m, nil
		} else {
			m.logger.Warn("Could not attach to a running Chrome, launching a new instance.",
				zap.String("debugger_url", cfg.Browser.DebuggerURL),
				zap.Error(err))
		}
	}

	if err := m.launchBrowser(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

// attachExisting connects to a Chrome exposing a DevTools endpoint.
func (m *Manager) attachExisting(ctx context.Context) error {
	m.logger.Info("Attaching to running Chrome.", zap.String("debugger_url", m.cfg.Browser.DebuggerURL))

	allocCtx, cancel := chromedp.NewRemoteAllocator(ctx, m.cfg.Browser.DebuggerURL)
	if err := m.verifyResponsive(allocCtx); err != nil {
		cancel()
		return err
	}

	m.allocatorCtx = allocCtx
	m.allocatorCancel = cancel
	m.attached = true
	m.logger.Info("Attached to existing browser.")
	return nil
}

// launchBrowser prepares allocator options and starts the browser process.
func (m *Manager) launchBrowser(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator...")

	opts := m.buildAllocatorOptions()
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)

	if err := m.verifyResponsive(allocCtx); err != nil {
		cancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.allocatorCtx = allocCtx
	m.allocatorCancel = cancel
	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

// verifyResponsive runs a trivial task in a throwaway tab to confirm the
// browser is alive.
func (m *Manager) verifyResponsive(allocCtx context.Context) error {
	testCtx, cancelTest := context.WithTimeout(allocCtx, browserStartTimeout)
	testCtx, cancelTestCtx := chromedp.NewContext(testCtx)
	defer cancelTestCtx()
	defer cancelTest()

	return chromedp.Run(testCtx, chromedp.Navigate("about:blank"))
}

// buildAllocatorOptions assembles the flags for a browser instance that the
// portal will not flag as automated.
func (m *Manager) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	// The defaults are spelled out rather than taken from
	// chromedp.DefaultExecAllocatorOptions, which includes the
	// "enable-automation" flag the portal can detect.
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", m.cfg.Browser.Headless),
		// The portal checks navigator.webdriver.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-gpu", m.cfg.Browser.Headless),
		chromedp.WindowSize(m.cfg.Browser.WindowWidth, m.cfg.Browser.WindowHeight),
	}

	// Flags required for running inside containers.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}

// NewSession opens a new tab and wraps it in a Session.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	if m.allocatorCtx == nil {
		return nil, fmt.Errorf("browser manager is not initialized")
	}

	s := newSession(m.allocatorCtx, m.cfg.Timing, m.logger)
	m.wg.Add(1)
	s.onClose = m.wg.Done

	m.logger.Info("New session created.", zap.String("session_id", s.ID()))
	return s, nil
}

// Attached reports whether the manager joined an existing browser. An
// attached browser is left running at shutdown.
func (m *Manager) Attached() bool { return m.attached }

// Shutdown waits for active sessions to complete and then terminates the
// browser process, unless we attached to one owned by the user.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated. Waiting for active sessions to complete...")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All sessions have completed.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	if m.allocatorCancel != nil {
		if m.attached {
			m.logger.Info("Detaching from user owned browser.")
		} else {
			m.logger.Info("Shutting down browser process...")
		}
		m.allocatorCancel()
		<-m.allocatorCtx.Done()
	}
	return nil
}
