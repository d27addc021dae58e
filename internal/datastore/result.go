package datastore

// Source says which backend actually served a fetch.
type Source int

const (
	SourceRemote Source = iota
	SourceLocal
	SourceCache
)

func (s Source) String() string {
	switch s {
	case SourceRemote:
		return "remote"
	case SourceCache:
		return "cache"
	default:
		return "local"
	}
}

// Result is the outcome of a fetch. A remote failure never surfaces as an
// error: the fetch degrades to local data and records the cause, so callers
// and tests can tell Ok(data) from Degraded(data, cause) instead of both
// looking like "some data came back".
type Result[T any] struct {
	Data   []T
	Source Source
	Cause  error
}

// Degraded reports whether the result fell back to local data because the
// remote store was offline, timed out, or failed.
func (r Result[T]) Degraded() bool {
	return r.Cause != nil
}

// Empty reports whether no records were available from any backend.
func (r Result[T]) Empty() bool {
	return len(r.Data) == 0
}
