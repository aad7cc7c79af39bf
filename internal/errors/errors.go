package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// SpawnFailed indicates the git binary could not be started (missing binary, bad working dir)
	SpawnFailed ErrorCode = "SPAWN_FAILED"
	// CommandFailed indicates git ran but exited non-zero
	CommandFailed ErrorCode = "COMMAND_FAILED"
	// OutputTooLarge indicates the command output crossed the size ceiling
	OutputTooLarge ErrorCode = "OUTPUT_TOO_LARGE"
	// Timeout indicates the command was killed after its deadline
	Timeout ErrorCode = "TIMEOUT"
	// InvalidRepository indicates the path is not a git working tree
	InvalidRepository ErrorCode = "INVALID_REPOSITORY"
	// ValidationFailed indicates a request was rejected before anything was spawned
	ValidationFailed ErrorCode = "VALIDATION_FAILED"
	// NotFound indicates the requested object does not exist
	NotFound ErrorCode = "NOT_FOUND"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
	Tool        string        `json:"tool,omitempty"`
}

// GitNetError represents an error with code, message, and suggestions
type GitNetError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new GitNetError
func New(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *GitNetError {
	return &GitNetError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Error implements the error interface
func (e *GitNetError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *GitNetError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *GitNetError) WithDetails(details interface{}) *GitNetError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first GitNetError in err's chain,
// or InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var gerr *GitNetError
	if stderrors.As(err, &gerr) {
		return gerr.Code
	}
	return InternalError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	var gerr *GitNetError
	return stderrors.As(err, &gerr) && gerr.Code == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	SpawnFailed: {
		{
			Type:        InstallTool,
			Tool:        "git",
			Description: "Install git and make sure it is on PATH",
			URL:         "https://git-scm.com/downloads",
		},
	},
	InvalidRepository: {
		{
			Type:        RunCommand,
			Command:     "git status",
			Safe:        true,
			Description: "Verify the path is inside a git working tree",
		},
		{
			Type:        RunCommand,
			Command:     "git init",
			Safe:        false,
			Description: "Initialize a git repository",
		},
	},
	OutputTooLarge: {
		{
			Type:        RunCommand,
			Command:     "gitnet log --limit 200",
			Safe:        true,
			Description: "Request a smaller page of history",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
