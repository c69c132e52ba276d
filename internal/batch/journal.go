// File: internal/batch/journal.go
package batch

import (
	"fmt"
	"os"
	"time"
)

const journalTimeLayout = "2006-01-02 15:04:05"

// Journal keeps the append only result logs of batch runs: success.log,
// failed.log and duplicate.log next to the binary. Entries from earlier runs
// are preserved; each run is framed by session delimiters.
type Journal struct {
	successPath   string
	failedPath    string
	duplicatePath string
	now           func() time.Time

	// duplicate.log only gets a session header once the first duplicate of
	// the run shows up, so runs without duplicates leave it untouched.
	duplicateOpened bool
}

// NewJournal builds a journal writing to the given log file paths.
func NewJournal(successPath, failedPath, duplicatePath string) *Journal {
	return &Journal{
		successPath:   successPath,
		failedPath:    failedPath,
		duplicatePath: duplicatePath,
		now:           time.Now,
	}
}

// Begin writes the session start delimiter to the success and failed logs.
func (j *Journal) Begin() error {
	line := fmt.Sprintf("==================== SESSION START: %s ====================\n",
		j.now().Format(journalTimeLayout))
	if err := appendLine(j.successPath, line); err != nil {
		return err
	}
	return appendLine(j.failedPath, line)
}

// End writes the session end delimiter, including the success tally, to every
// log that participated in the run.
func (j *Journal) End(succeeded, total int) error {
	line := fmt.Sprintf("==================== SESSION END: %s (Success: %d/%d) ====================\n\n",
		j.now().Format(journalTimeLayout), succeeded, total)
	if err := appendLine(j.successPath, line); err != nil {
		return err
	}
	if err := appendLine(j.failedPath, line); err != nil {
		return err
	}
	if j.duplicateOpened {
		return appendLine(j.duplicatePath, line)
	}
	return nil
}

// Success records a successfully processed file.
func (j *Journal) Success(filename string) error {
	return appendLine(j.successPath, j.entry(filename, ""))
}

// Failed records a failed or skipped file.
func (j *Journal) Failed(filename string) error {
	return appendLine(j.failedPath, j.entry(filename, ""))
}

// Duplicate records a file whose portal item was already completed. The
// session header is written lazily on the first duplicate.
func (j *Journal) Duplicate(filename string) error {
	if !j.duplicateOpened {
		header := fmt.Sprintf("==================== SESSION START: %s ====================\n",
			j.now().Format(journalTimeLayout))
		if err := appendLine(j.duplicatePath, header); err != nil {
			return err
		}
		j.duplicateOpened = true
	}
	return appendLine(j.duplicatePath, j.entry(filename, " - DUPLICATE_ACTION"))
}

func (j *Journal) entry(filename, suffix string) string {
	return fmt.Sprintf("%s %s%s\n", filename, j.now().Format(journalTimeLayout), suffix)
}

// appendLine opens, appends and closes in one shot so a crash mid run loses
// at most the current line.
func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open result log %s: %w", path, err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to result log %s: %w", path, err)
	}
	return f.Close()
}
