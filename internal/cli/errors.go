package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	bperrors "github.com/randalmurphal/repoback/internal/errors"
)

// PrintError prints an error with appropriate formatting.
// If the error is a BackupError, it uses the user-friendly format.
// Otherwise, it prints a simple error message.
func PrintError(w io.Writer, err error) {
	if be := bperrors.AsBackupError(err); be != nil {
		_, _ = fmt.Fprintln(w, be.UserMessage())
		if verbose {
			_, _ = fmt.Fprintf(w, "\nCode: %s\n", be.Code)
		}
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if be := bperrors.AsBackupError(err); be != nil {
		return be.ExitCode()
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
