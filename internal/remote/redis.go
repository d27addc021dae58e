package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one JSON document per key ("doc:<collection>:<id>") and
// a membership set per collection. Filtering and ordering happen client
// side; the collections involved are single-user sized.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func docKey(collection, id string) string {
	return "doc:" + collection + ":" + id
}

func setKey(collection string) string {
	return "docs:" + collection
}

func (s *RedisStore) Insert(ctx context.Context, collection string, doc interface{}) (string, error) {
	id := uuid.New().String()
	raw, err := withID(doc, id)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, docKey(collection, id), string(raw), 0)
	pipe.SAdd(ctx, setKey(collection), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	raw, err := s.client.Get(ctx, docKey(collection, id)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return json.RawMessage(raw), nil
}

func (s *RedisStore) Query(ctx context.Context, collection string, filters []Filter, order *Order) ([]json.RawMessage, error) {
	ids, err := s.client.SMembers(ctx, setKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(collection, id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s documents: %w", collection, err)
	}

	type doc struct {
		raw    json.RawMessage
		fields map[string]interface{}
	}
	var docs []doc
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // id in the set without a document; skip
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(str), &m); err != nil {
			continue
		}
		docs = append(docs, doc{raw: json.RawMessage(str), fields: m})
	}

	matched := docs[:0]
	for _, d := range docs {
		ok := true
		for _, f := range filters {
			v := fieldString(d.fields, f.Field)
			switch f.Op {
			case OpGte:
				ok = v >= f.Value
			default:
				ok = v == f.Value
			}
			if !ok {
				break
			}
		}
		if ok {
			matched = append(matched, d)
		}
	}

	if order != nil {
		sort.SliceStable(matched, func(i, j int) bool {
			a := fieldString(matched[i].fields, order.Field)
			b := fieldString(matched[j].fields, order.Field)
			if order.Desc {
				return a > b
			}
			return a < b
		})
	}

	out := make([]json.RawMessage, len(matched))
	for i, d := range matched {
		out[i] = d.raw
	}
	return out, nil
}

func (s *RedisStore) Update(ctx context.Context, collection, id string, patch map[string]interface{}) error {
	raw, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("failed to decode %s/%s: %w", collection, id, err)
	}
	for k, v := range patch {
		m[k] = v
	}
	merged, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", collection, id, err)
	}
	if err := s.client.Set(ctx, docKey(collection, id), string(merged), 0).Err(); err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, collection, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, docKey(collection, id))
	pipe.SRem(ctx, setKey(collection), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *RedisStore) BatchDelete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, docKey(collection, id))
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	pipe.SRem(ctx, setKey(collection), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to batch delete from %s: %w", collection, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func fieldString(m map[string]interface{}, field string) string {
	switch v := m[field].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
