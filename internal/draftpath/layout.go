package draftpath

import (
	"path"
	"strings"
)

// MarkerName is the sidecar object recording the source repository of a draft.
const MarkerName = ".github_source_repository"

// Layout locates a draft inside the bucket and on the public site.
type Layout struct {
	Root      string // drafts root, e.g. "langflow-drafts"
	Dir       Directory
	AssetsDir string // assets subdirectory, e.g. "assets"
}

// NewLayout returns the layout for dir under root.
func NewLayout(root string, dir Directory, assetsDir string) Layout {
	return Layout{
		Root:      strings.Trim(root, "/"),
		Dir:       dir,
		AssetsDir: strings.Trim(assetsDir, "/"),
	}
}

// Prefix is the key prefix of every object of the draft, with trailing slash.
func (l Layout) Prefix() string {
	return path.Join(l.Root, string(l.Dir)) + "/"
}

// AssetsPrefix is the key prefix of the draft's static assets.
func (l Layout) AssetsPrefix() string {
	return path.Join(l.Root, string(l.Dir), l.AssetsDir) + "/"
}

// MarkerKey is the key of the source-repository marker object.
func (l Layout) MarkerKey() string {
	return path.Join(l.Root, string(l.Dir), MarkerName)
}

// InvalidationPath is the CDN wildcard covering the draft only.
func (l Layout) InvalidationPath() string {
	return "/" + path.Join(l.Root, string(l.Dir)) + "/*"
}

// URL is the public link to the draft's landing page.
func (l Layout) URL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/" + path.Join(l.Root, string(l.Dir), "index.html")
}

// Key joins rel (slash separated, relative to the draft) onto the draft prefix.
func (l Layout) Key(rel string) string {
	return l.Prefix() + strings.TrimPrefix(rel, "/")
}

// Contains reports whether key lies inside the draft subtree.
func (l Layout) Contains(key string) bool {
	return strings.HasPrefix(key, l.Prefix())
}
