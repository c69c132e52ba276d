// File: internal/workflow/page.go
package workflow

import (
	"context"
	"time"
)

// Page abstracts the browser operations the workflows need. The production
// implementation drives Chrome over CDP; tests substitute a scripted fake.
type Page interface {
	// Navigate loads a URL and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error

	// Click activates an element according to the locator's click strategy.
	Click(ctx context.Context, loc Locator) error

	// Type fills a text input, optionally clearing it first.
	Type(ctx context.Context, loc Locator, text string, clearFirst bool) error

	// Upload attaches a local file to a file input element.
	Upload(ctx context.Context, loc Locator, absPath string) error

	// Exists reports whether an element is present within the timeout.
	Exists(ctx context.Context, selector string, timeout time.Duration) bool

	// ButtonWithText reports whether any element matching the selector
	// contains the given text within the timeout.
	ButtonWithText(ctx context.Context, selector, text string, timeout time.Duration) bool

	// TextVisible reports whether any element matching the selector contains
	// the given text right now.
	TextVisible(ctx context.Context, selector, text string) bool

	// WaitAny blocks until at least one of the selectors is present or the
	// timeout elapses. It reports whether anything showed up.
	WaitAny(ctx context.Context, timeout time.Duration, selectors ...string) bool

	// Location returns the current page URL.
	Location(ctx context.Context) (string, error)

	// WaitURLLeft blocks until the current URL no longer contains prefix.
	// Returns an error on timeout.
	WaitURLLeft(ctx context.Context, prefix string, timeout time.Duration) error

	// Screenshot captures the current viewport as a PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}
