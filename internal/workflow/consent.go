// File: internal/workflow/consent.go
package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// consentProbeTimeout bounds the existence check for the optional second
// address checkbox. The consent page is already rendered by this point, so a
// short probe is enough.
const consentProbeTimeout = 2 * time.Second

// tickConsentBoxes checks every checkbox on the consent page. The page comes
// in two shapes: two boxes (address, contract) or three (address, second
// address, contract), and the contract box sits in a different section in
// each shape. A single probe for the optional box decides which fixed
// sequence to run; the first failed click aborts the rest.
func (r *Runner) tickConsentBoxes(ctx context.Context, page Page) error {
	loc := r.variant.Locators

	steps := []Locator{loc.ConsentAddress1, loc.ConsentContract2}
	if page.Exists(ctx, loc.ConsentAddress2.Selector, consentProbeTimeout) {
		r.log.Info("Consent page shows three checkboxes")
		steps = []Locator{loc.ConsentAddress1, loc.ConsentAddress2, loc.ConsentContract3}
	} else {
		r.log.Info("Consent page shows two checkboxes")
	}

	for i, step := range steps {
		if err := page.Click(ctx, step); err != nil {
			return fmt.Errorf("consent checkbox %d/%d (%s): %w", i+1, len(steps), step.Label, err)
		}
		r.log.Debug("Ticked consent checkbox",
			zap.Int("step", i+1),
			zap.Int("total", len(steps)),
			zap.String("label", step.Label))
	}
	return nil
}
