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

// fakeRemote is an in-memory remote.Store with failure injection, used in
// place of the Postgres/Redis adapters.
type fakeRemote struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]interface{}
	order       map[string][]string
	nextID      int

	failInsert bool
	failQuery  bool
	failUpdate bool
	queryDelay time.Duration
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		collections: make(map[string]map[string]map[string]interface{}),
		order:       make(map[string][]string),
	}
}

func (f *fakeRemote) Insert(ctx context.Context, collection string, doc interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert {
		return "", errors.New("insert refused")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("remote-%d", f.nextID)
	m["id"] = id
	if f.collections[collection] == nil {
		f.collections[collection] = make(map[string]map[string]interface{})
	}
	f.collections[collection][id] = m
	f.order[collection] = append(f.order[collection], id)
	return id, nil
}

func (f *fakeRemote) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.collections[collection][id]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return json.Marshal(doc)
}

func (f *fakeRemote) Query(ctx context.Context, collection string, filters []remote.Filter, order *remote.Order) ([]json.RawMessage, error) {
	if f.queryDelay > 0 {
		select {
		case <-time.After(f.queryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQuery {
		return nil, errors.New("query refused")
	}

	var docs []map[string]interface{}
	for _, id := range f.order[collection] {
		doc, ok := f.collections[collection][id]
		if !ok {
			continue
		}
		matched := true
		for _, flt := range filters {
			v, _ := doc[flt.Field].(string)
			switch flt.Op {
			case remote.OpGte:
				matched = v >= flt.Value
			default:
				matched = v == flt.Value
			}
			if !matched {
				break
			}
		}
		if matched {
			docs = append(docs, doc)
		}
	}

	if order != nil {
		sort.SliceStable(docs, func(i, j int) bool {
			a, _ := docs[i][order.Field].(string)
			b, _ := docs[j][order.Field].(string)
			if order.Desc {
				return a > b
			}
			return a < b
		})
	}

	out := make([]json.RawMessage, 0, len(docs))
	for _, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func (f *fakeRemote) Update(ctx context.Context, collection, id string, patch map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate {
		return errors.New("update refused")
	}
	doc, ok := f.collections[collection][id]
	if !ok {
		return remote.ErrNotFound
	}
	// Round-trip the patch through JSON like a real adapter would.
	raw, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	for k, v := range m {
		doc[k] = v
	}
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.collections[collection], id)
	return nil
}

func (f *fakeRemote) BatchDelete(ctx context.Context, collection string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.collections[collection], id)
	}
	return nil
}

func (f *fakeRemote) Ping(ctx context.Context) error {
	return nil
}

func (f *fakeRemote) count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.collections[collection])
}

func (f *fakeRemote) countWhere(collection, field, value string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, doc := range f.collections[collection] {
		if v, _ := doc[field].(string); v == value {
			n++
		}
	}
	return n
}

// memLocal is an in-memory LocalStore.
type memLocal struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemLocal() *memLocal {
	return &memLocal{data: make(map[string][]byte)}
}

func (m *memLocal) GetCollection(name string, out interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[name]
	if !ok {
		return
	}
	json.Unmarshal(raw, out)
}

func (m *memLocal) SetCollection(name string, v interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	m.data[name] = raw
}

type testEnv struct {
	store   *Store
	remote  *fakeRemote
	local   *memLocal
	cache   *cache.Cache
	monitor *connectivity.Monitor
	now     time.Time
}

func newTestEnv(online bool) *testEnv {
	env := &testEnv{
		remote:  newFakeRemote(),
		local:   newMemLocal(),
		monitor: connectivity.NewMonitor(online),
		now:     time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	env.cache = cache.New(5*time.Minute, func() time.Time { return env.now })
	env.store = New(env.remote, env.local, env.cache, env.monitor, Options{
		FetchTimeout: 200 * time.Millisecond,
		Clock:        func() time.Time { return env.now },
	})
	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func hasLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}
