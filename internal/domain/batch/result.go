// Package batch models per-item outcomes of bulk document operations.
package batch

// ItemStatus is the processing outcome of a single item.
type ItemStatus string

// Item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of one item of a bulk operation.
type Result struct {
	key    string
	status ItemStatus
	err    error
}

// NewOK creates a successful result.
func NewOK(key string) Result { return Result{key: key, status: StatusOK} }

// NewError creates a failed result.
func NewError(key string, err error) Result { return Result{key: key, status: StatusError, err: err} }

// Key returns the document key, empty when the item had none.
func (r Result) Key() string { return r.key }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary counts ok and failed items.
type Summary struct {
	OK     int
	Failed int
}

// Summarize counts the outcomes in results.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.status == StatusOK {
			s.OK++
		} else {
			s.Failed++
		}
	}
	return s
}
