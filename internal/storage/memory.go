package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryBucket is an in-memory Bucket used for tests and dry runs.
// It records every mutating call for verification.
type MemoryBucket struct {
	name    string
	mu      sync.RWMutex
	objects map[string]*memoryObject
	calls   MemoryCalls
	now     func() time.Time
}

type memoryObject struct {
	data     []byte
	etag     string
	modified time.Time
	meta     map[string]string
}

// MemoryCalls counts the mutating operations performed on a MemoryBucket.
type MemoryCalls struct {
	Put    []string
	Delete []string
	Touch  []string
	List   int
	Get    int
	Head   int
}

// NewMemoryBucket creates an empty in-memory bucket.
func NewMemoryBucket(name string) *MemoryBucket {
	return &MemoryBucket{
		name:    name,
		objects: make(map[string]*memoryObject),
		now:     time.Now,
	}
}

func (m *MemoryBucket) Name() string { return m.name }

func (m *MemoryBucket) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.List++

	var infos []ObjectInfo
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, obj.info(key))
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (m *MemoryBucket) Head(ctx context.Context, key string) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Head++

	obj, ok := m.objects[key]
	if !ok {
		return ObjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return obj.info(key), nil
}

func (m *MemoryBucket) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Get++

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return bytes.Clone(obj.data), nil
}

func (m *MemoryBucket) Put(ctx context.Context, key string, body io.Reader, size int64, meta map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(io.LimitReader(body, size))
	if err != nil {
		return fmt.Errorf("read body for %s: %w", key, err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("short body for %s: got %d bytes, want %d", key, len(data), size)
	}
	sum := md5.Sum(data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Put = append(m.calls.Put, key)
	m.objects[key] = &memoryObject{
		data:     data,
		etag:     hex.EncodeToString(sum[:]),
		modified: m.now(),
		meta:     maps.Clone(meta),
	}
	return nil
}

func (m *MemoryBucket) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Delete = append(m.calls.Delete, key)
	delete(m.objects, key)
	return nil
}

func (m *MemoryBucket) Touch(ctx context.Context, key string, meta map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	m.calls.Touch = append(m.calls.Touch, key)
	obj.meta = maps.Clone(meta)
	obj.modified = m.now()
	return nil
}

// Seed stores data under key without recording a call. Used to set up remote state.
func (m *MemoryBucket) Seed(key string, data []byte, meta map[string]string) {
	sum := md5.Sum(data)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = &memoryObject{
		data:     bytes.Clone(data),
		etag:     hex.EncodeToString(sum[:]),
		modified: m.now(),
		meta:     maps.Clone(meta),
	}
}

// SetClock overrides the time source used for LastModified.
func (m *MemoryBucket) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Calls returns a snapshot of recorded calls.
func (m *MemoryBucket) Calls() MemoryCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MemoryCalls{
		Put:    append([]string(nil), m.calls.Put...),
		Delete: append([]string(nil), m.calls.Delete...),
		Touch:  append([]string(nil), m.calls.Touch...),
		List:   m.calls.List,
		Get:    m.calls.Get,
		Head:   m.calls.Head,
	}
}

// ResetCalls clears recorded calls, keeping the objects.
func (m *MemoryBucket) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = MemoryCalls{}
}

// Keys returns all stored keys, sorted.
func (m *MemoryBucket) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (o *memoryObject) info(key string) ObjectInfo {
	return ObjectInfo{
		Key:          key,
		Size:         int64(len(o.data)),
		ETag:         o.etag,
		LastModified: o.modified,
		Metadata:     maps.Clone(o.meta),
	}
}
