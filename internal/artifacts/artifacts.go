// Package artifacts inventories the files produced by the site build.
package artifacts

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File is a regular file inside a local tree.
type File struct {
	Rel  string // slash-separated path relative to the tree root
	Path string // absolute or root-joined filesystem path
	Size int64
}

// MD5 returns the hex MD5 digest of the file content.
func (f File) MD5() (string, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return "", err
	}
	defer func() { _ = fh.Close() }()
	h := md5.New()
	if _, err := io.Copy(h, fh); err != nil {
		return "", fmt.Errorf("hash %s: %w", f.Rel, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Tree is the set of files below a root, sorted by Rel.
type Tree struct {
	Root  string
	Files []File
}

// Scan walks root and records every regular file. A missing root yields an
// empty tree so a first build without assets compares cleanly.
func Scan(root string) (*Tree, error) {
	t := &Tree{Root: root}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return t, nil
	}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		t.Files = append(t.Files, File{Rel: filepath.ToSlash(rel), Path: p, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Slice(t.Files, func(i, j int) bool { return t.Files[i].Rel < t.Files[j].Rel })
	return t, nil
}

// Index maps Rel to File.
func (t *Tree) Index() map[string]File {
	idx := make(map[string]File, len(t.Files))
	for _, f := range t.Files {
		idx[f.Rel] = f
	}
	return idx
}

// Partition splits the tree into assets (under assetsDir) and pages (everything else).
func (t *Tree) Partition(assetsDir string) (assets, pages []File) {
	prefix := strings.Trim(assetsDir, "/") + "/"
	for _, f := range t.Files {
		if strings.HasPrefix(f.Rel, prefix) {
			assets = append(assets, f)
		} else {
			pages = append(pages, f)
		}
	}
	return assets, pages
}

// TotalSize sums the file sizes.
func (t *Tree) TotalSize() int64 {
	var n int64
	for _, f := range t.Files {
		n += f.Size
	}
	return n
}
