package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// metaDir holds per-object metadata sidecars inside an FSBucket.
const metaDir = ".docdraft-meta"

// FSBucket is a directory-backed Bucket for local previews. Objects are plain
// files under basePath; user metadata lives in JSON sidecars:
//
//	<basePath>/
//	  langflow-drafts/main/index.html
//	  .docdraft-meta/
//	    langflow-drafts/main/index.html.json
type FSBucket struct {
	basePath string
	mu       sync.RWMutex
}

// NewFSBucket creates the bucket directory if needed.
func NewFSBucket(basePath string) (*FSBucket, error) {
	if err := os.MkdirAll(filepath.Join(basePath, metaDir), 0o750); err != nil {
		return nil, fmt.Errorf("create bucket directory %s: %w", basePath, err)
	}
	return &FSBucket{basePath: basePath}, nil
}

func (b *FSBucket) Name() string { return "file://" + b.basePath }

func (b *FSBucket) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var infos []ObjectInfo
	err := filepath.WalkDir(b.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(b.basePath, p)
		if relErr != nil {
			return relErr
		}
		key := filepath.ToSlash(rel)
		if d.IsDir() {
			if key == metaDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, infoErr := b.stat(key)
		if infoErr != nil {
			return infoErr
		}
		infos = append(infos, info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", b.Name(), prefix, err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (b *FSBucket) Head(_ context.Context, key string) (ObjectInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stat(key)
}

func (b *FSBucket) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, err := os.ReadFile(b.objectPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, err
}

func (b *FSBucket) Put(_ context.Context, key string, body io.Reader, size int64, meta map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.objectPath(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("create object %s: %w", key, err)
	}
	n, copyErr := io.Copy(f, io.LimitReader(body, size))
	closeErr := f.Close()
	if copyErr != nil {
		return fmt.Errorf("write object %s: %w", key, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close object %s: %w", key, closeErr)
	}
	if n != size {
		return fmt.Errorf("short body for %s: got %d bytes, want %d", key, n, size)
	}
	return b.writeMeta(key, meta)
}

func (b *FSBucket) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := os.Remove(b.objectPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	if err := os.Remove(b.metaPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete metadata %s: %w", key, err)
	}
	return nil
}

func (b *FSBucket) Touch(_ context.Context, key string, meta map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.objectPath(key)
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err := b.writeMeta(key, meta); err != nil {
		return err
	}
	now := timeNow()
	return os.Chtimes(p, now, now)
}

func (b *FSBucket) stat(key string) (ObjectInfo, error) {
	p := b.objectPath(key)
	st, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return ObjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return ObjectInfo{}, err
	}
	etag, err := fileMD5(p)
	if err != nil {
		return ObjectInfo{}, err
	}
	meta, err := b.readMeta(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		Key:          key,
		Size:         st.Size(),
		ETag:         etag,
		LastModified: st.ModTime(),
		Metadata:     meta,
	}, nil
}

func (b *FSBucket) objectPath(key string) string {
	return filepath.Join(b.basePath, filepath.FromSlash(key))
}

func (b *FSBucket) metaPath(key string) string {
	return filepath.Join(b.basePath, metaDir, filepath.FromSlash(key)+".json")
}

func (b *FSBucket) readMeta(key string) (map[string]string, error) {
	data, err := os.ReadFile(b.metaPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", key, err)
	}
	var meta map[string]string
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata %s: %w", key, err)
	}
	return meta, nil
}

func (b *FSBucket) writeMeta(key string, meta map[string]string) error {
	p := b.metaPath(key)
	if len(meta) == 0 {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clear metadata %s: %w", key, err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata %s: %w", key, err)
	}
	return os.WriteFile(p, data, 0o600)
}

func fileMD5(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
