package kv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

func makeInMemoryKV() KV {
	return &inMemoryKV{
		data: xsync.NewMap[string, kvValue](),
	}
}

type kvValue struct {
	value   []byte
	list    [][]byte
	expires time.Time // zero value means no expiry
}

func (v kvValue) expired() bool {
	return !v.expires.IsZero() && v.expires.Before(time.Now())
}

type inMemoryKV struct {
	data *xsync.Map[string, kvValue]
}

func (kv *inMemoryKV) load(key string) (kvValue, bool) {
	v, ok := kv.data.Load(key)
	if !ok {
		return kvValue{}, false
	}
	if v.expired() {
		kv.data.Delete(key)
		return kvValue{}, false
	}
	return v, true
}

func (kv *inMemoryKV) Has(_ context.Context, key string) (bool, error) {
	_, ok := kv.load(key)
	return ok, nil
}

func (kv *inMemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := kv.load(key)
	if !ok {
		return nil, fmt.Errorf("key %q not found", key)
	}
	return v.value, nil
}

func (kv *inMemoryKV) Set(_ context.Context, key string, value []byte) error {
	existing, _ := kv.data.Load(key)
	existing.value = value
	kv.data.Store(key, existing)
	return nil
}

func (kv *inMemoryKV) Delete(_ context.Context, key string) error {
	kv.data.Delete(key)
	return nil
}

func (kv *inMemoryKV) Expire(_ context.Context, key string, ttl time.Duration) error {
	v, ok := kv.load(key)
	if !ok {
		return fmt.Errorf("key %q not found", key)
	}
	if ttl <= 0 {
		kv.data.Delete(key)
		return nil
	}
	v.expires = time.Now().Add(ttl)
	kv.data.Store(key, v)
	return nil
}

func (kv *inMemoryKV) Scan(_ context.Context, _ uint64, match string, _ int64) ([]string, uint64, error) {
	var keys []string
	kv.data.Range(func(key string, v kvValue) bool {
		if v.expired() {
			kv.data.Delete(key)
			return true
		}
		if match == "" || match == key || globMatch(match, key) {
			keys = append(keys, key)
		}
		return true
	})
	return keys, 0, nil
}

func (kv *inMemoryKV) RPush(_ context.Context, key string, value []byte) (int64, error) {
	v, _ := kv.load(key)
	v.list = append(v.list, value)
	kv.data.Store(key, v)
	return int64(len(v.list)), nil
}

func (kv *inMemoryKV) LDrain(_ context.Context, key string) ([][]byte, error) {
	v, ok := kv.load(key)
	kv.data.Delete(key)
	if !ok {
		return nil, nil
	}
	return v.list, nil
}

func (kv *inMemoryKV) Close() error {
	return nil
}

// globMatch supports only the single trailing "*" wildcard form (e.g.
// "presence:*"); any other pattern matches no key here.
func globMatch(pattern, key string) bool {
	if !strings.HasSuffix(pattern, "*") {
		return false
	}
	return strings.HasPrefix(key, strings.TrimSuffix(pattern, "*"))
}
