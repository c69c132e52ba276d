// File: internal/workflow/outcome.go
package workflow

// Outcome classifies what happened to a single file.
type Outcome int

const (
	// OutcomeSuccess means the full flow ran through the upload confirmation.
	OutcomeSuccess Outcome = iota
	// OutcomeDuplicate means the portal already shows the item as completed,
	// so there was nothing left to submit.
	OutcomeDuplicate
	// OutcomeNoMatch means the search returned no actionable row.
	OutcomeNoMatch
	// OutcomeError means a step failed partway through the flow.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeNoMatch:
		return "no-match"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}
