package engine

import (
	"errors"
	"strconv"
	"strings"
)

// Sentinel errors for engine operations.
var (
	ErrIndexNotFound    = errors.New("engine: index not found")
	ErrIndexExists      = errors.New("engine: index already exists")
	ErrAliasNotFound    = errors.New("engine: alias not found")
	ErrDocumentNotFound = errors.New("engine: document not found")
	ErrConflict         = errors.New("engine: version conflict")
	ErrBadRequest       = errors.New("engine: bad request")
	ErrTimeout          = errors.New("engine: timeout")
	ErrUnavailable      = errors.New("engine: unavailable")
)

// Op constants name engine API calls for error context.
const (
	OpPing          = "ping"
	OpCreateIndex   = "indices.create"
	OpDeleteIndex   = "indices.delete"
	OpIndexExists   = "indices.exists"
	OpRefresh       = "indices.refresh"
	OpGetMapping    = "indices.get_mapping"
	OpAliasExists   = "indices.exists_alias"
	OpGetAlias      = "indices.get_alias"
	OpUpdateAliases = "indices.update_aliases"
	OpReindex       = "reindex"
	OpGet           = "get"
	OpIndex         = "index"
	OpUpdate        = "update"
	OpDelete        = "delete"
	OpDeleteByQuery = "delete_by_query"
	OpBulk          = "bulk"
	OpSearch        = "search"
)

// fielddataDisabled is the reason fragment the engine returns when sorting
// or aggregating on an analyzed text field.
const fielddataDisabled = "Fielddata is disabled"

// Error carries the engine's structured failure for one operation.
type Error struct {
	Op         string
	Status     int
	Type       string
	Reason     string
	RootCauses []string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status > 0 {
		b.WriteString(" [")
		b.WriteString(strconv.Itoa(e.Status))
		b.WriteString("]")
	}
	if e.Type != "" {
		b.WriteString(" ")
		b.WriteString(e.Type)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if len(e.RootCauses) > 0 {
		b.WriteString(" (root cause: ")
		b.WriteString(strings.Join(e.RootCauses, "; "))
		b.WriteString(")")
	}
	if e.Err != nil && e.Reason == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IsFielddataDisabled reports whether err is the bad request raised when a sort
// targets a text field without fielddata. Only this failure is repairable by
// switching the sort to the keyword subfield.
func IsFielddataDisabled(err error) bool {
	if err == nil || !errors.Is(err, ErrBadRequest) {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		if strings.Contains(e.Reason, fielddataDisabled) {
			return true
		}
		for _, rc := range e.RootCauses {
			if strings.Contains(rc, fielddataDisabled) {
				return true
			}
		}
		return false
	}
	return strings.Contains(err.Error(), fielddataDisabled)
}

// Classify maps an HTTP status and engine error type to a sentinel.
// notFound is returned for 404 responses whose type does not say otherwise.
func Classify(status int, errType string, notFound error) error {
	switch {
	case errType == "index_not_found_exception":
		return ErrIndexNotFound
	case errType == "resource_already_exists_exception":
		return ErrIndexExists
	case errType == "version_conflict_engine_exception":
		return ErrConflict
	case strings.Contains(errType, "timeout"):
		return ErrTimeout
	}
	switch {
	case status == 404:
		if notFound != nil {
			return notFound
		}
		return ErrIndexNotFound
	case status == 409:
		return ErrConflict
	case status == 408 || status == 504:
		return ErrTimeout
	case status == 429 || status >= 500:
		return ErrUnavailable
	default:
		return ErrBadRequest
	}
}
