package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/example/bistro/pkg/config"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const maxTxRetries = 5

type document map[string]interface{}

// Local is the durable key-value store every surface falls back to. Values
// are JSON text; every write is announced on the change channel.
type Local struct {
	client  *redis.Client
	prefix  string
	channel string
	origin  string
	logger  *zap.Logger
}

func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewLocal(client *redis.Client, cfg *config.RedisConfig, logger *zap.Logger) *Local {
	channel := cfg.Channel
	if channel == "" {
		channel = cfg.KeyPrefix + "storage"
	}
	return &Local{
		client:  client,
		prefix:  cfg.KeyPrefix,
		channel: channel,
		logger:  logger.Named("local-store"),
	}
}

// WithOrigin returns a view of the store whose writes are tagged with
// origin, so subscribers from the same surface can skip them.
func (l *Local) WithOrigin(origin string) *Local {
	c := *l
	c.origin = origin
	c.logger = l.logger.With(zap.String("origin", origin))
	return &c
}

func (l *Local) Origin() string {
	return l.origin
}

func (l *Local) Name() string {
	return "local"
}

func (l *Local) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *Local) key(k string) string {
	return l.prefix + k
}

// Load decodes the value under key into dest. A missing or malformed value
// leaves dest zeroed and reports false without an error.
func (l *Local) Load(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := l.client.Get(ctx, l.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		l.logger.Warn("Discarding malformed record", zap.String("key", key), zap.Error(err))
		reset(dest)
		return false, nil
	}
	return true, nil
}

// Save replaces the value under every key in one transaction.
func (l *Local) Save(ctx context.Context, value interface{}, keys ...string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Set(ctx, l.key(k), data, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write %v: %w", keys, err)
	}

	l.announce(ctx, keys...)
	return nil
}

func (l *Local) Remove(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = l.key(k)
	}
	if err := l.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to remove %v: %w", keys, err)
	}

	l.announce(ctx, keys...)
	return nil
}

func (l *Local) List(ctx context.Context, c Collection, dest interface{}) (bool, error) {
	return l.Load(ctx, c.ReadKey, dest)
}

func (l *Local) Put(ctx context.Context, c Collection, id string, record interface{}) error {
	doc, err := toDocument(record)
	if err != nil {
		return err
	}

	return l.mutate(ctx, c, func(docs []document) []document {
		for i, d := range docs {
			if d.id() == id {
				docs[i] = doc
				return docs
			}
		}
		return append(docs, doc)
	})
}

func (l *Local) Update(ctx context.Context, c Collection, id string, fields Fields) error {
	return l.mutate(ctx, c, func(docs []document) []document {
		for _, d := range docs {
			if d.id() == id {
				for k, v := range fields {
					d[k] = v
				}
			}
		}
		return docs
	})
}

func (l *Local) Delete(ctx context.Context, c Collection, id string) error {
	return l.mutate(ctx, c, func(docs []document) []document {
		kept := docs[:0]
		for _, d := range docs {
			if d.id() != id {
				kept = append(kept, d)
			}
		}
		return kept
	})
}

// mutate rewrites the snapshot under c.ReadKey and mirrors the result to
// every write key. WATCH retries the read-modify-write if another surface
// commits in between.
func (l *Local) mutate(ctx context.Context, c Collection, fn func([]document) []document) error {
	readKey := l.key(c.ReadKey)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, readKey).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		docs, err := decodeDocuments(raw)
		if err != nil {
			l.logger.Warn("Replacing malformed record", zap.String("key", c.ReadKey), zap.Error(err))
			docs = nil
		}

		data, err := json.Marshal(fn(docs))
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", c.ReadKey, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, k := range c.WriteKeys {
				pipe.Set(ctx, l.key(k), data, 0)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := l.client.Watch(ctx, txf, readKey)
		if err == nil {
			l.announce(ctx, c.WriteKeys...)
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("failed to write %s: %w", c.ReadKey, err)
	}
	return fmt.Errorf("failed to write %s: %w", c.ReadKey, redis.TxFailedErr)
}

func (d document) id() string {
	switch v := d["id"].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func decodeDocuments(raw []byte) ([]document, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var docs []document
	if err := dec.Decode(&docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func toDocument(record interface{}) (document, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("record is not an object: %w", err)
	}
	return doc, nil
}

func reset(dest interface{}) {
	v := reflect.ValueOf(dest)
	if v.Kind() == reflect.Ptr && !v.IsNil() {
		v.Elem().Set(reflect.Zero(v.Elem().Type()))
	}
}
