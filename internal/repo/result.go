package repo

// State tells a consumer whether a read produced data, legitimately
// produced nothing, or failed and fell back to an empty value.
type State string

const (
	StateOK       State = "ok"
	StateEmpty    State = "empty"
	StateDegraded State = "degraded"
)

// Result wraps the outcome of a read that never propagates errors.
// A degraded result carries the zero value of T and the reason.
type Result[T any] struct {
	Data   T      `json:"data"`
	State  State  `json:"state"`
	Reason string `json:"reason,omitempty"`
	Err    error  `json:"-"`
}

// ok builds a successful result; empty selects StateEmpty over StateOK.
func ok[T any](data T, empty bool) Result[T] {
	if empty {
		return Result[T]{Data: data, State: StateEmpty}
	}
	return Result[T]{Data: data, State: StateOK}
}

// degraded builds a failed result holding fallback as its data.
func degraded[T any](fallback T, err error) Result[T] {
	return Result[T]{Data: fallback, State: StateDegraded, Reason: err.Error(), Err: err}
}

// Degraded reports whether the read failed.
func (r Result[T]) Degraded() bool {
	return r.State == StateDegraded
}
