// Package remote defines the contract of the hosted document store the
// data layer mirrors into. Failures surface as errors and latency is
// unbounded from the caller's perspective; the read layer races every
// query against a timeout.
package remote

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned by Get and Update for a missing document.
var ErrNotFound = errors.New("document not found")

// Filter operators. Field values compare as strings; RFC 3339 timestamps
// and ISO dates order correctly under string comparison.
const (
	OpEq  = "=="
	OpGte = ">="
)

type Filter struct {
	Field string
	Op    string
	Value string
}

// Eq builds an equality filter.
func Eq(field, value string) Filter {
	return Filter{Field: field, Op: OpEq, Value: value}
}

// Gte builds a greater-or-equal filter.
func Gte(field, value string) Filter {
	return Filter{Field: field, Op: OpGte, Value: value}
}

type Order struct {
	Field string
	Desc  bool
}

// Store is a collection-oriented CRUD client. Documents are JSON objects
// carrying their own "id" field; Insert assigns the id and returns it.
type Store interface {
	Insert(ctx context.Context, collection string, doc interface{}) (string, error)
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	Query(ctx context.Context, collection string, filters []Filter, order *Order) ([]json.RawMessage, error)
	Update(ctx context.Context, collection, id string, patch map[string]interface{}) error
	Delete(ctx context.Context, collection, id string) error
	BatchDelete(ctx context.Context, collection string, ids []string) error
	Ping(ctx context.Context) error
}

// withID round-trips doc through JSON and injects the assigned id, so the
// stored document is self-describing regardless of the caller's type.
func withID(doc interface{}, id string) (json.RawMessage, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	m["id"] = id
	return json.Marshal(m)
}
