// Package datastore implements the offline-resilient data access layer:
// dual-write mutations mirrored to the remote document store and the local
// persistent store, time-boxed reads that race the remote query against a
// timeout and fall back to local data, and a TTL cache in front of both.
//
// Ownership: the remote store is the durable source of truth when
// reachable; the local store is a best-effort mirror and the sole source
// of truth while offline; the cache is derived and always safe to discard.
package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"studytrack-backend/internal/cache"
	"studytrack-backend/internal/connectivity"
	"studytrack-backend/internal/remote"
)

// Collection names, shared by the remote and local stores.
const (
	ColCourses   = "courses"
	ColSessions  = "sessions"
	ColRevisions = "revisions"
	ColLectures  = "lectures"
	ColLabs      = "labs"

	colOutbox = "outbox"
)

// LocalIDPrefix marks identifiers synthesized for offline writes. Remote
// and local ids share one namespace; a prefixed id simply never came back
// from the remote store yet.
const LocalIDPrefix = "local_"

// DefaultFetchTimeout bounds how long a read waits on the remote store
// before degrading to local data.
const DefaultFetchTimeout = 10 * time.Second

// ErrOffline is the degradation cause recorded when a fetch never attempted
// the remote store because the connectivity flag was off.
var ErrOffline = errors.New("remote store offline")

// PreconditionError reports a rejected state transition, e.g. revising a
// lecture that was never studied. The message is surfaced verbatim.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string {
	return e.Message
}

// IsPrecondition reports whether err is a precondition violation.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// LocalStore is the durable local mirror: synchronous, collection-slotted,
// never failing from the core's point of view.
type LocalStore interface {
	GetCollection(name string, out interface{})
	SetCollection(name string, v interface{})
}

// Options tunes the store; zero values pick the defaults.
type Options struct {
	FetchTimeout time.Duration
	Clock        func() time.Time
}

// Store exposes the per-entity create/update/delete/fetch operations. All
// mutations dual-write; all fetches are time-boxed with local fallback.
type Store struct {
	remote remote.Store
	local  LocalStore
	cache  *cache.Cache
	conn   *connectivity.Monitor

	fetchTimeout time.Duration
	now          func() time.Time

	// mu serializes local-store read-modify-write cycles.
	mu sync.Mutex

	idMu     sync.Mutex
	lastIDMs int64

	replayMu sync.Mutex

	events func(kind, op, id string)
}

func New(rs remote.Store, ls LocalStore, c *cache.Cache, conn *connectivity.Monitor, opts Options) *Store {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Store{
		remote:       rs,
		local:        ls,
		cache:        c,
		conn:         conn,
		fetchTimeout: opts.FetchTimeout,
		now:          opts.Clock,
	}
}

// SetEventSink registers a mutation event callback (the websocket hub).
// Must be called during wiring, before the store is shared.
func (s *Store) SetEventSink(fn func(kind, op, id string)) {
	s.events = fn
}

func (s *Store) emit(kind, op, id string) {
	if s.events != nil {
		s.events(kind, op, id)
	}
}

// Invalidate drops every cache entry for the kind, including scoped
// variants. Mutation callers are responsible for invalidating the kinds
// they touched; the store does not do it implicitly.
func (s *Store) Invalidate(kind string) {
	s.cache.Invalidate(kind)
}

// Kinds lists every cacheable kind, for full invalidation after a resync.
func Kinds() []string {
	return []string{ColCourses, ColSessions, ColRevisions, ColLectures, ColLabs, "courseStats", "dailyActivity"}
}

type path int

const (
	pathRemote path = iota
	pathLocalOnly
)

// resolvePath is the single place deciding which backend a mutation or
// fetch attempts first; individual operations never re-implement the
// online/offline branch.
func (s *Store) resolvePath() path {
	if s.conn.Online() {
		return pathRemote
	}
	return pathLocalOnly
}

// localID synthesizes an offline identifier from the current timestamp,
// strictly increasing so back-to-back writes never collide.
func (s *Store) localID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	ms := s.now().UnixMilli()
	if ms <= s.lastIDMs {
		ms = s.lastIDMs + 1
	}
	s.lastIDMs = ms
	return fmt.Sprintf("%s%d", LocalIDPrefix, ms)
}

// fetchSpec describes one kind's fetch: the remote query, the equivalent
// local filter/sort, and how a successful remote result is folded back
// into the local store.
type fetchSpec[T any] struct {
	key        string // cache key; empty bypasses the cache
	collection string
	filters    []remote.Filter
	order      *remote.Order
	match      func(T) bool    // local filter; nil keeps everything
	less       func(a, b T) bool // canonical local order; nil keeps source order
	merge      func(existing, fetched []T) []T // local update on remote success; nil skips
	id         func(T) string  // identifies records, to retain unsynced local writes on merge
}

// fetchCollection runs the time-boxed read algorithm:
//  1. serve from cache when fresh;
//  2. snapshot the local collection before the race, so a concurrent
//     local write is not lost to a remote overwrite;
//  3. offline: return the snapshot, cause ErrOffline;
//  4. online: query the remote store under the fetch timeout; on failure
//     return the snapshot with the cause; on success fold the result into
//     the local store, populate the cache (sequence-guarded against late
//     arrivals) and return it.
//
// The caller always gets at least an empty slice, never an error.
func fetchCollection[T any](ctx context.Context, s *Store, spec fetchSpec[T]) Result[T] {
	if spec.key != "" {
		if v, ok := s.cache.Get(spec.key); ok {
			if data, ok := v.([]T); ok {
				return Result[T]{Data: data, Source: SourceCache}
			}
		}
	}

	var seq uint64
	if spec.key != "" {
		seq = s.cache.Seq(spec.key)
	}

	snapshot := readLocalFiltered(s, spec.collection, spec.match, spec.less)

	if s.resolvePath() == pathLocalOnly {
		return Result[T]{Data: snapshot, Source: SourceLocal, Cause: ErrOffline}
	}

	qctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	raws, err := s.remote.Query(qctx, spec.collection, spec.filters, spec.order)
	if err != nil {
		return Result[T]{Data: snapshot, Source: SourceLocal, Cause: err}
	}

	data := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		data = append(data, v)
	}

	if spec.merge != nil {
		s.mu.Lock()
		var existing []T
		s.local.GetCollection(spec.collection, &existing)
		// Records created offline have not reached the remote store yet;
		// fold them into the result instead of letting the merge drop them.
		// The outbox replay is what eventually retires them.
		if pending := unsyncedLocal(existing, data, spec); len(pending) > 0 {
			data = append(data, pending...)
			if spec.less != nil {
				sort.SliceStable(data, func(i, j int) bool { return spec.less(data[i], data[j]) })
			}
		}
		s.local.SetCollection(spec.collection, spec.merge(existing, data))
		s.mu.Unlock()
	}

	if spec.key != "" {
		s.cache.SetIfCurrent(spec.key, seq, data)
	}
	return Result[T]{Data: data, Source: SourceRemote}
}

// unsyncedLocal returns the in-scope local records whose id still carries
// the offline prefix and that the remote result does not know about.
func unsyncedLocal[T any](existing, fetched []T, spec fetchSpec[T]) []T {
	if spec.id == nil {
		return nil
	}
	seen := make(map[string]bool, len(fetched))
	for _, v := range fetched {
		seen[spec.id(v)] = true
	}
	var pending []T
	for _, v := range existing {
		id := spec.id(v)
		if !strings.HasPrefix(id, LocalIDPrefix) || seen[id] {
			continue
		}
		if spec.match == nil || spec.match(v) {
			pending = append(pending, v)
		}
	}
	return pending
}

func readLocalFiltered[T any](s *Store, collection string, match func(T) bool, less func(a, b T) bool) []T {
	s.mu.Lock()
	var all []T
	s.local.GetCollection(collection, &all)
	s.mu.Unlock()

	out := make([]T, 0, len(all))
	for _, v := range all {
		if match == nil || match(v) {
			out = append(out, v)
		}
	}
	if less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

// replaceAll overwrites the local collection wholesale with the remote
// result. Used for unscoped queries.
func replaceAll[T any](_, fetched []T) []T {
	return fetched
}

// replaceScope overwrites only the records matching the query's scope,
// keeping other scopes' records intact locally.
func replaceScope[T any](match func(T) bool) func(existing, fetched []T) []T {
	return func(existing, fetched []T) []T {
		out := make([]T, 0, len(existing)+len(fetched))
		for _, v := range existing {
			if !match(v) {
				out = append(out, v)
			}
		}
		return append(out, fetched...)
	}
}

func appendLocal[T any](s *Store, collection string, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []T
	s.local.GetCollection(collection, &all)
	s.local.SetCollection(collection, append(all, v))
}

// updateLocal applies fn to records until one reports a match; reports
// whether any record matched.
func updateLocal[T any](s *Store, collection string, fn func(*T) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []T
	s.local.GetCollection(collection, &all)
	for i := range all {
		if fn(&all[i]) {
			s.local.SetCollection(collection, all)
			return true
		}
	}
	return false
}

// removeLocal keeps only the records for which keep returns true.
func removeLocal[T any](s *Store, collection string, keep func(T) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []T
	s.local.GetCollection(collection, &all)
	out := make([]T, 0, len(all))
	for _, v := range all {
		if keep(v) {
			out = append(out, v)
		}
	}
	s.local.SetCollection(collection, out)
}
