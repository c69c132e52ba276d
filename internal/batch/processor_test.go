// File: internal/batch/processor_test.go
package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mamamind47/dsl-autofill/internal/paths"
	"github.com/mamamind47/dsl-autofill/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeFileRunner returns a scripted outcome per filename.
type fakeFileRunner struct {
	outcomes map[string]workflow.Outcome
	errs     map[string]error
	seen     []string
}

func (f *fakeFileRunner) ProcessFile(ctx context.Context, filename, sourceDir string) (workflow.Outcome, error) {
	f.seen = append(f.seen, filename)
	if err := f.errs[filename]; err != nil {
		return workflow.OutcomeError, err
	}
	return f.outcomes[filename], nil
}

func newTestProcessor(t *testing.T, runner FileRunner) (*Processor, paths.Layout) {
	t.Helper()
	layout := paths.NewLayout(t.TempDir())
	require.NoError(t, layout.EnsureDirs())
	journal := NewJournal(
		layout.LogFile("success.log"),
		layout.LogFile("failed.log"),
		layout.LogFile("duplicate.log"),
	)
	p := NewProcessor(runner, journal, layout, paths.DisbursementDir, testFilesCfg, 0, zap.NewNop())
	return p, layout
}

func TestProcessorRunOutcomes(t *testing.T) {
	runner := &fakeFileRunner{outcomes: map[string]workflow.Outcome{
		"a.pdf": workflow.OutcomeSuccess,
		"b.pdf": workflow.OutcomeError,
		"c.pdf": workflow.OutcomeNoMatch,
		"d.pdf": workflow.OutcomeDuplicate,
	}}
	p, layout := newTestProcessor(t, runner)

	inbox := layout.Inbox(paths.DisbursementDir)
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"} {
		touch(t, filepath.Join(inbox, name))
	}

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 4, Succeeded: 2, Failed: 1, Skipped: 1, Duplicates: 1}, summary)
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"}, runner.seen)

	// Successes and duplicates land in completed/, the rest in failed/.
	for _, name := range []string{"a.pdf", "d.pdf"} {
		_, err := os.Stat(filepath.Join(layout.Completed(paths.DisbursementDir), name))
		assert.NoError(t, err, name)
	}
	for _, name := range []string{"b.pdf", "c.pdf"} {
		_, err := os.Stat(filepath.Join(layout.Failed(paths.DisbursementDir), name))
		assert.NoError(t, err, name)
	}
	// The inbox is drained.
	left, err := ListFiles(inbox, testFilesCfg)
	require.NoError(t, err)
	assert.Empty(t, left)

	// Journals carry the expected entries.
	success, err := os.ReadFile(layout.LogFile("success.log"))
	require.NoError(t, err)
	assert.Contains(t, string(success), "a.pdf ")
	assert.Contains(t, string(success), "d.pdf ")
	assert.Contains(t, string(success), "(Success: 2/4)")

	failed, err := os.ReadFile(layout.LogFile("failed.log"))
	require.NoError(t, err)
	assert.Contains(t, string(failed), "b.pdf ")
	assert.Contains(t, string(failed), "c.pdf ")

	dup, err := os.ReadFile(layout.LogFile("duplicate.log"))
	require.NoError(t, err)
	assert.Contains(t, string(dup), "d.pdf ")
	assert.Contains(t, string(dup), "DUPLICATE_ACTION")
}

func TestProcessorEmptyInbox(t *testing.T) {
	runner := &fakeFileRunner{}
	p, layout := newTestProcessor(t, runner)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
	assert.Empty(t, runner.seen)

	// No session delimiters for a run that never started.
	_, err = os.Stat(layout.LogFile("success.log"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProcessorFatalErrorAbortsRun(t *testing.T) {
	fatal := errors.New("portal authentication failed")
	runner := &fakeFileRunner{
		outcomes: map[string]workflow.Outcome{},
		errs:     map[string]error{"a.pdf": fatal},
	}
	p, layout := newTestProcessor(t, runner)

	inbox := layout.Inbox(paths.DisbursementDir)
	touch(t, filepath.Join(inbox, "a.pdf"))
	touch(t, filepath.Join(inbox, "b.pdf"))

	summary, err := p.Run(context.Background())
	require.ErrorIs(t, err, fatal)
	assert.Equal(t, []string{"a.pdf"}, runner.seen, "run must stop at the fatal file")
	assert.Equal(t, 2, summary.Total)

	// Files stay put when the run aborts before reaching them.
	_, statErr := os.Stat(filepath.Join(inbox, "b.pdf"))
	assert.NoError(t, statErr)

	// The session end delimiter is still written.
	success, readErr := os.ReadFile(layout.LogFile("success.log"))
	require.NoError(t, readErr)
	assert.Contains(t, string(success), "SESSION END")
	assert.Contains(t, string(success), "(Success: 0/2)")
}

func TestProcessorCancelledContext(t *testing.T) {
	runner := &fakeFileRunner{errs: map[string]error{"a.pdf": context.Canceled}}
	p, layout := newTestProcessor(t, runner)
	touch(t, filepath.Join(layout.Inbox(paths.DisbursementDir), "a.pdf"))

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarySuccessRate(t *testing.T) {
	assert.Equal(t, 0.0, Summary{}.SuccessRate())
	assert.InDelta(t, 50.0, Summary{Total: 4, Succeeded: 2}.SuccessRate(), 0.001)
	assert.InDelta(t, 100.0, Summary{Total: 3, Succeeded: 3}.SuccessRate(), 0.001)
}
