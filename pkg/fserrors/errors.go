// Package fserrors defines the closed error taxonomy shared by every
// filesystem implementation. Callers can classify failures with errors.As
// plus the Code field, or with the Is* predicates, without depending on
// which backend produced them.
package fserrors

import (
	"errors"
	"fmt"
)

// Code identifies one condition in the error taxonomy.
type Code string

const (
	CodeResourceNotFound     Code = "RESOURCE_NOT_FOUND"
	CodeFileExpected         Code = "FILE_EXPECTED"
	CodeDirectoryExpected    Code = "DIRECTORY_EXPECTED"
	CodeFileExists           Code = "FILE_EXISTS"
	CodeDirectoryExists      Code = "DIRECTORY_EXISTS"
	CodeDestinationExists    Code = "DESTINATION_EXISTS"
	CodeDirectoryNotEmpty    Code = "DIRECTORY_NOT_EMPTY"
	CodeRemoveRoot           Code = "REMOVE_ROOT"
	CodeResourceReadOnly     Code = "RESOURCE_READ_ONLY"
	CodeResourceInvalid      Code = "RESOURCE_INVALID"
	CodePermissionDenied     Code = "PERMISSION_DENIED"
	CodeInsufficientStorage  Code = "INSUFFICIENT_STORAGE"
	CodeRemoteConnection     Code = "REMOTE_CONNECTION"
	CodeOperationTimeout     Code = "OPERATION_TIMEOUT"
	CodeFilesystemClosed     Code = "FILESYSTEM_CLOSED"
	CodeUnsupported          Code = "UNSUPPORTED"
	CodeIllegalBackReference Code = "ILLEGAL_BACK_REFERENCE"
	CodeInvalidCharsInPath   Code = "INVALID_CHARS_IN_PATH"
	CodeInvalidPath          Code = "INVALID_PATH"
	CodeMissingNamespace     Code = "MISSING_INFO_NAMESPACE"
	CodeCreateFailed         Code = "CREATE_FAILED"
	CodeBulkCopyFailed       Code = "BULK_COPY_FAILED"
	CodeParseError           Code = "PARSE_ERROR"
)

// Category groups codes for logging and retry policy.
type Category string

const (
	CategoryResource  Category = "resource"
	CategoryOperation Category = "operation"
	CategoryPath      Category = "path"
	CategoryState     Category = "state"
	CategoryCreate    Category = "create"
)

// Error is the concrete type behind every condition in the taxonomy.
// Path is set for resource-scoped errors, Op for operation-scoped ones.
type Error struct {
	Code  Code
	Path  string
	Op    string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	msg := e.render()
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target carries the same code, so that
// errors.Is(err, &Error{Code: CodeResourceNotFound}) works regardless of
// path or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Category classifies the code.
func (e *Error) Category() Category {
	switch e.Code {
	case CodeResourceNotFound, CodeFileExpected, CodeDirectoryExpected,
		CodeFileExists, CodeDirectoryExists, CodeDestinationExists,
		CodeDirectoryNotEmpty, CodeResourceReadOnly, CodeResourceInvalid,
		CodeRemoveRoot:
		return CategoryResource
	case CodeIllegalBackReference, CodeInvalidCharsInPath, CodeInvalidPath:
		return CategoryPath
	case CodeFilesystemClosed, CodeMissingNamespace:
		return CategoryState
	case CodeCreateFailed, CodeParseError:
		return CategoryCreate
	default:
		return CategoryOperation
	}
}

// Retryable reports whether the condition is transient. Only remote
// connection failures and timeouts qualify.
func (e *Error) Retryable() bool {
	return e.Code == CodeRemoteConnection || e.Code == CodeOperationTimeout
}

func (e *Error) render() string {
	if e.Msg != "" {
		return e.Msg
	}
	switch e.Code {
	case CodeResourceNotFound:
		return fmt.Sprintf("resource '%s' not found", e.Path)
	case CodeFileExpected:
		return fmt.Sprintf("path '%s' should be a file", e.Path)
	case CodeDirectoryExpected:
		return fmt.Sprintf("path '%s' should be a directory", e.Path)
	case CodeFileExists:
		return fmt.Sprintf("resource '%s' exists", e.Path)
	case CodeDirectoryExists:
		return fmt.Sprintf("directory '%s' exists", e.Path)
	case CodeDestinationExists:
		return fmt.Sprintf("destination '%s' exists", e.Path)
	case CodeDirectoryNotEmpty:
		return fmt.Sprintf("directory '%s' is not empty", e.Path)
	case CodeRemoveRoot:
		return "root directory may not be removed"
	case CodeResourceReadOnly:
		return fmt.Sprintf("resource '%s' is read only", e.Path)
	case CodeResourceInvalid:
		return fmt.Sprintf("resource '%s' is invalid for this operation", e.Path)
	case CodePermissionDenied:
		return fmt.Sprintf("permission denied in '%s'", e.Op)
	case CodeInsufficientStorage:
		return fmt.Sprintf("insufficient storage space in '%s'", e.Op)
	case CodeRemoteConnection:
		return fmt.Sprintf("remote connection error in '%s'", e.Op)
	case CodeOperationTimeout:
		return fmt.Sprintf("operation '%s' timed out", e.Op)
	case CodeFilesystemClosed:
		return "attempt to use a closed filesystem"
	case CodeUnsupported:
		return fmt.Sprintf("not supported: '%s'", e.Op)
	case CodeIllegalBackReference:
		return fmt.Sprintf("path '%s' contains back-references outside of filesystem", e.Path)
	case CodeInvalidCharsInPath:
		return fmt.Sprintf("path '%s' contains invalid characters", e.Path)
	case CodeInvalidPath:
		return fmt.Sprintf("path '%s' is invalid", e.Path)
	case CodeMissingNamespace:
		return fmt.Sprintf("namespace '%s' is not in info", e.Op)
	case CodeCreateFailed:
		return "unable to create filesystem"
	case CodeBulkCopyFailed:
		return "one or more copy tasks failed"
	case CodeParseError:
		return "unable to parse filesystem URL"
	default:
		return string(e.Code)
	}
}

// Constructors. One per code, so call sites stay terse and messages
// stay consistent.

func NotFound(path string) *Error {
	return &Error{Code: CodeResourceNotFound, Path: path}
}

func FileExpected(path string) *Error {
	return &Error{Code: CodeFileExpected, Path: path}
}

func DirectoryExpected(path string) *Error {
	return &Error{Code: CodeDirectoryExpected, Path: path}
}

func FileExists(path string) *Error {
	return &Error{Code: CodeFileExists, Path: path}
}

func DirectoryExists(path string) *Error {
	return &Error{Code: CodeDirectoryExists, Path: path}
}

func DestinationExists(path string) *Error {
	return &Error{Code: CodeDestinationExists, Path: path}
}

func DirectoryNotEmpty(path string) *Error {
	return &Error{Code: CodeDirectoryNotEmpty, Path: path}
}

func RemoveRoot() *Error {
	return &Error{Code: CodeRemoveRoot, Path: "/"}
}

func ReadOnly(path string) *Error {
	return &Error{Code: CodeResourceReadOnly, Path: path}
}

func ResourceInvalid(path string) *Error {
	return &Error{Code: CodeResourceInvalid, Path: path}
}

func PermissionDenied(op string, cause error) *Error {
	return &Error{Code: CodePermissionDenied, Op: op, Cause: cause}
}

func InsufficientStorage(op string, cause error) *Error {
	return &Error{Code: CodeInsufficientStorage, Op: op, Cause: cause}
}

func RemoteConnection(op string, cause error) *Error {
	return &Error{Code: CodeRemoteConnection, Op: op, Cause: cause}
}

func Timeout(op string, cause error) *Error {
	return &Error{Code: CodeOperationTimeout, Op: op, Cause: cause}
}

func Closed() *Error {
	return &Error{Code: CodeFilesystemClosed}
}

func Unsupported(op string) *Error {
	return &Error{Code: CodeUnsupported, Op: op}
}

func IllegalBackReference(path string) *Error {
	return &Error{Code: CodeIllegalBackReference, Path: path}
}

func InvalidChars(path string) *Error {
	return &Error{Code: CodeInvalidCharsInPath, Path: path}
}

func InvalidPath(path, msg string) *Error {
	return &Error{Code: CodeInvalidPath, Path: path, Msg: msg}
}

func MissingNamespace(namespace string) *Error {
	return &Error{Code: CodeMissingNamespace, Op: namespace}
}

func CreateFailed(msg string, cause error) *Error {
	return &Error{Code: CodeCreateFailed, Msg: msg, Cause: cause}
}

func BulkCopyFailed(cause error) *Error {
	return &Error{Code: CodeBulkCopyFailed, Cause: cause}
}

func ParseError(msg string) *Error {
	return &Error{Code: CodeParseError, Msg: msg}
}

// Predicates for the conditions callers branch on most often.

func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func IsNotFound(err error) bool      { return HasCode(err, CodeResourceNotFound) }
func IsReadOnly(err error) bool      { return HasCode(err, CodeResourceReadOnly) }
func IsClosed(err error) bool        { return HasCode(err, CodeFilesystemClosed) }
func IsUnsupported(err error) bool   { return HasCode(err, CodeUnsupported) }
func IsDirNotEmpty(err error) bool   { return HasCode(err, CodeDirectoryNotEmpty) }
func IsDirExpected(err error) bool   { return HasCode(err, CodeDirectoryExpected) }
func IsFileExpected(err error) bool  { return HasCode(err, CodeFileExpected) }
func IsDestExists(err error) bool    { return HasCode(err, CodeDestinationExists) }
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

// ReplacePath returns err with its resource path rewritten. Delegating
// filesystems use it to surface their own paths instead of the inner
// filesystem's. Errors without a path, or outside the taxonomy, pass
// through unchanged.
func ReplacePath(err error, path string) error {
	var e *Error
	if !errors.As(err, &e) || e.Path == "" {
		return err
	}
	clone := *e
	clone.Path = path
	clone.Msg = ""
	return &clone
}
