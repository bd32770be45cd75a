// Package errors provides structured error types for repoback.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for repoback.
const (
	// Configuration errors
	CodeConfigInvalid Code = "CONFIG_INVALID"

	// Execution-plan errors, raised before any entity runs
	CodeDependencyCycle     Code = "DEPENDENCY_CYCLE"
	CodeCollaboratorMissing Code = "COLLABORATOR_MISSING"

	// Storage errors abort the whole run
	CodeStorageFailed Code = "STORAGE_FAILED"

	// Per-entity errors
	CodeEntityFailed  Code = "ENTITY_FAILED"
	CodeLabelConflict Code = "LABEL_CONFLICT"
	CodeGitFailed     Code = "GIT_FAILED"
)

// Category groups error codes for exit status mapping.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryConfig
	CategoryPlan
	CategoryStorage
	CategoryEntity
	CategoryConflict
)

// codeCategories maps error codes to their categories.
var codeCategories = map[Code]Category{
	CodeConfigInvalid:       CategoryConfig,
	CodeDependencyCycle:     CategoryPlan,
	CodeCollaboratorMissing: CategoryPlan,
	CodeStorageFailed:       CategoryStorage,
	CodeEntityFailed:        CategoryEntity,
	CodeLabelConflict:       CategoryConflict,
	CodeGitFailed:           CategoryEntity,
}

// ExitCode returns the process exit status for a category.
func (c Category) ExitCode() int {
	switch c {
	case CategoryConfig:
		return 2
	case CategoryPlan:
		return 3
	case CategoryStorage:
		return 4
	case CategoryEntity:
		return 5
	case CategoryConflict:
		return 6
	default:
		return 1
	}
}

// BackupError is the structured error type for repoback.
type BackupError struct {
	Code   Code   `json:"code"`
	What   string `json:"what"`
	Why    string `json:"why,omitempty"`
	Fix    string `json:"fix,omitempty"`
	Entity string `json:"entity,omitempty"`
	Cause  error  `json:"-"`
}

// Error implements the error interface.
func (e *BackupError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *BackupError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly message for CLI output.
func (e *BackupError) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString("\n\nCause: ")
		b.WriteString(e.Cause.Error())
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// Category returns the error category.
func (e *BackupError) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryUnknown
}

// ExitCode returns the process exit status for this error.
func (e *BackupError) ExitCode() int {
	return e.Category().ExitCode()
}

// MarshalJSON implements json.Marshaler.
func (e *BackupError) MarshalJSON() ([]byte, error) {
	type alias BackupError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// Is reports whether target is a BackupError with the same code.
func (e *BackupError) Is(target error) bool {
	t, ok := target.(*BackupError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *BackupError) WithCause(err error) *BackupError {
	return &BackupError{
		Code:   e.Code,
		What:   e.What,
		Why:    e.Why,
		Fix:    e.Fix,
		Entity: e.Entity,
		Cause:  err,
	}
}

// Sentinels for errors.Is matching by code.
var (
	ErrConfig              = &BackupError{Code: CodeConfigInvalid}
	ErrDependencyCycle     = &BackupError{Code: CodeDependencyCycle}
	ErrCollaboratorMissing = &BackupError{Code: CodeCollaboratorMissing}
	ErrStorage             = &BackupError{Code: CodeStorageFailed}
	ErrEntity              = &BackupError{Code: CodeEntityFailed}
	ErrConflict            = &BackupError{Code: CodeLabelConflict}
	ErrGit                 = &BackupError{Code: CodeGitFailed}
)

// --- Error constructors ---

// ConfigInvalid returns an error for an invalid configuration value.
func ConfigInvalid(field, reason string) *BackupError {
	return &BackupError{
		Code: CodeConfigInvalid,
		What: fmt.Sprintf("invalid configuration: %s", field),
		Why:  reason,
		Fix:  "Check the config file, REPOBACK_* environment variables and flags",
	}
}

// DependencyCycle returns an error naming the entities that could not be ordered.
func DependencyCycle(remaining []string) *BackupError {
	names := append([]string(nil), remaining...)
	sort.Strings(names)
	return &BackupError{
		Code: CodeDependencyCycle,
		What: "circular dependency detected",
		Why:  fmt.Sprintf("unresolved entities: %s", strings.Join(names, ", ")),
	}
}

// CollaboratorMissing returns an error for a strategy whose required service was not supplied.
func CollaboratorMissing(entity, collaborator string) *BackupError {
	return &BackupError{
		Code:   CodeCollaboratorMissing,
		What:   fmt.Sprintf("entity %s requires %s", entity, collaborator),
		Why:    fmt.Sprintf("no %s was supplied", collaborator),
		Fix:    "Configure the hosting provider and token, or disable the entity",
		Entity: entity,
	}
}

// Storage wraps a storage failure for an entity. Storage failures abort the run.
func Storage(entity string, cause error) *BackupError {
	return &BackupError{
		Code:   CodeStorageFailed,
		What:   fmt.Sprintf("storage failure for %s", entity),
		Fix:    "Check that the data path points at a complete backup",
		Entity: entity,
		Cause:  cause,
	}
}

// Entity wraps a failure while processing a single entity type.
func Entity(entity, step string, cause error) *BackupError {
	return &BackupError{
		Code:   CodeEntityFailed,
		What:   fmt.Sprintf("%s: %s failed", entity, step),
		Entity: entity,
		Cause:  cause,
	}
}

// EntitiesFailed combines the failures of several entity types into one
// error, reported after every entity type has run.
func EntitiesFailed(names []string, causes []error) *BackupError {
	return &BackupError{
		Code:  CodeEntityFailed,
		What:  fmt.Sprintf("%d entity type(s) failed", len(names)),
		Why:   strings.Join(names, ", "),
		Fix:   "Re-run with --only for the failed entities after fixing the cause",
		Cause: errors.Join(causes...),
	}
}

// Conflict returns a label conflict error.
func Conflict(policy string, names []string) *BackupError {
	return &BackupError{
		Code:   CodeLabelConflict,
		What:   fmt.Sprintf("label conflict (%s)", policy),
		Why:    fmt.Sprintf("conflicting labels: %s", strings.Join(names, ", ")),
		Fix:    "Choose another labels.conflict_strategy (skip, overwrite, delete-all)",
		Entity: "labels",
	}
}

// Git wraps a git repository service failure.
func Git(op string, cause error) *BackupError {
	return &BackupError{
		Code:   CodeGitFailed,
		What:   fmt.Sprintf("git %s failed", op),
		Entity: "git_repository",
		Cause:  cause,
	}
}

// AsBackupError attempts to convert an error to a BackupError.
// Returns nil if the error is not a BackupError.
func AsBackupError(err error) *BackupError {
	var be *BackupError
	if errors.As(err, &be) {
		return be
	}
	return nil
}

// Wrap wraps a generic error into a BackupError with unknown code.
func Wrap(err error, what string) *BackupError {
	return &BackupError{
		Code:  Code("UNKNOWN"),
		What:  what,
		Cause: err,
	}
}
