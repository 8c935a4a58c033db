package server

import "fmt"

// CommandError carries a MongoDB-shaped numeric error code alongside a
// human message, convertible to the {ok:0, errmsg, code} wire reply shape
// from spec §7.
type CommandError struct {
	Code    int32
	Name    string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Message)
}

// Numeric error codes from MongoDB's code space, the subset this server's
// commands can raise.
const (
	CodeBadValue         int32 = 2
	CodeFailedToParse    int32 = 9
	CodeTypeMismatch     int32 = 14
	CodeIndexNotFound    int32 = 27
	CodeCursorNotFound   int32 = 43
	CodeCommandNotFound  int32 = 59
	CodeNamespaceNotFound int32 = 26
)

func newCommandError(code int32, name, format string, args ...interface{}) *CommandError {
	return &CommandError{Code: code, Name: name, Message: fmt.Sprintf(format, args...)}
}

func errCommandNotFound(name string) *CommandError {
	return newCommandError(CodeCommandNotFound, "CommandNotFound", "no such command: '%s'", name)
}

func errFailedToParse(format string, args ...interface{}) *CommandError {
	return newCommandError(CodeFailedToParse, "FailedToParse", format, args...)
}

func errCursorNotFound(id int64) *CommandError {
	return newCommandError(CodeCursorNotFound, "CursorNotFound", "cursor id %d not found", id)
}

func errNamespaceNotFound(ns string) *CommandError {
	return newCommandError(CodeNamespaceNotFound, "NamespaceNotFound", "ns not found: %s", ns)
}
